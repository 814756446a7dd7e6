package domain

import "time"

// ThreadJob is the queued request to publish a thread on one platform.
type ThreadJob struct {
	ID         string    `json:"id"`
	Platform   Platform  `json:"platform"`
	Fragments  []string  `json:"fragments"`
	MinDelayMs int       `json:"min_delay_ms"`
	MaxDelayMs int       `json:"max_delay_ms"`
	SourceURL  string    `json:"source_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func (j ThreadJob) Plan() (ThreadPlan, error) {
	delay := DelayRangeMs(j.MinDelayMs, j.MaxDelayMs)
	if err := delay.Validate(); err != nil {
		return ThreadPlan{}, err
	}
	return NewThreadPlan(j.Fragments, delay)
}
