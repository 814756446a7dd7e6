package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrEmptyContent = errors.New("post content is empty")

// PostContent is the text payload of a single post.
type PostContent struct {
	text string
}

func NewPostContent(text string) (PostContent, error) {
	if strings.TrimSpace(text) == "" {
		return PostContent{}, ErrEmptyContent
	}
	return PostContent{text: text}, nil
}

func (c PostContent) Text() string {
	return c.text
}

func (c PostContent) IsZero() bool {
	return c.text == ""
}

// PostReference is the platform-assigned identifier of a published post.
// X uses the tweet ID, Bluesky the record AT-URI. Callers treat it as opaque.
type PostReference string

func (r PostReference) String() string {
	return string(r)
}

type Platform string

const (
	PlatformX       Platform = "x"
	PlatformBluesky Platform = "bluesky"
	PlatformThreads Platform = "threads"
)

func ParsePlatform(s string) (Platform, error) {
	switch p := Platform(strings.ToLower(strings.TrimSpace(s))); p {
	case PlatformX, PlatformBluesky, PlatformThreads:
		return p, nil
	case "twitter":
		return PlatformX, nil
	default:
		return "", fmt.Errorf("unknown platform %q", s)
	}
}

// DelayRange bounds the pause between consecutive posts of a thread.
type DelayRange struct {
	Min time.Duration
	Max time.Duration
}

func DelayRangeMs(minMs, maxMs int) DelayRange {
	return DelayRange{
		Min: time.Duration(minMs) * time.Millisecond,
		Max: time.Duration(maxMs) * time.Millisecond,
	}
}

func (d DelayRange) Validate() error {
	if d.Min < 0 || d.Max < 0 {
		return fmt.Errorf("delay range must not be negative: [%s, %s]", d.Min, d.Max)
	}
	if d.Min > d.Max {
		return fmt.Errorf("min delay %s exceeds max delay %s", d.Min, d.Max)
	}
	return nil
}

// ThreadPlan is an ordered list of posts to publish as a reply chain.
type ThreadPlan struct {
	Fragments []PostContent
	Delay     DelayRange
}

func NewThreadPlan(texts []string, delay DelayRange) (ThreadPlan, error) {
	fragments := make([]PostContent, 0, len(texts))
	for i, t := range texts {
		c, err := NewPostContent(t)
		if err != nil {
			return ThreadPlan{}, fmt.Errorf("fragment %d: %w", i, err)
		}
		fragments = append(fragments, c)
	}
	return ThreadPlan{Fragments: fragments, Delay: delay}, nil
}
