package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PostsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threadcast_posts_published_total",
			Help: "Posts accepted by a platform",
		},
		[]string{"platform", "kind"}, // "root" or "reply"
	)

	PostFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threadcast_post_failures_total",
			Help: "Post attempts that returned an error",
		},
		[]string{"platform", "reason"},
	)

	ThreadsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threadcast_threads_total",
			Help: "Thread runs by outcome",
		},
		[]string{"platform", "outcome"}, // "complete", "partial", "failed"
	)

	ThreadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "threadcast_thread_duration_seconds",
			Help:    "Wall time of a thread run including delays",
			Buckets: []float64{.1, .5, 1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"platform"},
	)

	InterPostDelay = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "threadcast_inter_post_delay_seconds",
			Help:    "Sampled delay between consecutive posts",
			Buckets: []float64{0, .5, 1, 2, 5, 10, 30, 60},
		},
	)

	ContentRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threadcast_content_requests_total",
			Help: "Content source requests by outcome",
		},
		[]string{"outcome"},
	)

	FeedItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threadcast_feed_items_total",
			Help: "Feed items seen by the scraper",
		},
		[]string{"result"}, // "queued", "duplicate", "error"
	)

	JobsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threadcast_jobs_consumed_total",
			Help: "Thread jobs taken off the queue",
		},
		[]string{"platform"},
	)
)
