package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"threadcast/internal/config"
	"threadcast/internal/content"
	"threadcast/internal/domain"
	"threadcast/internal/poster"
	"threadcast/internal/queue"
)

type ProviderLookup interface {
	Get(platform domain.Platform) (poster.Provider, error)
}

type FeedStore interface {
	AddFeed(ctx context.Context, url string) error
	RemoveFeed(ctx context.Context, url string) error
	GetFeeds(ctx context.Context) ([]string, error)
	FeedExists(ctx context.Context, url string) (bool, error)
}

type Server struct {
	echo      *echo.Echo
	thread    config.ThreadConfig
	providers ProviderLookup
	publisher queue.Publisher
	source    content.Source
	feeds     FeedStore
	sse       *SSEBroker
	logger    zerolog.Logger
	now       func() time.Time
}

// NewServer wires the HTTP API. publisher, source and feeds may be nil; the
// endpoints that need them answer 503.
func NewServer(thread config.ThreadConfig, providers ProviderLookup, publisher queue.Publisher, source content.Source, feeds FeedStore, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:      e,
		thread:    thread,
		providers: providers,
		publisher: publisher,
		source:    source,
		feeds:     feeds,
		sse:       NewSSEBroker(),
		logger:    logger.With().Str("component", "api").Logger(),
		now:       time.Now,
	}

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURIPath: true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.logger.Info().
				Str("method", v.Method).
				Str("path", v.URIPath).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request completed")
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s.routes()

	return s
}

func (s *Server) routes() {
	s.echo.GET("/health", s.health)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.echo.GET("/api/events", s.events)

	s.echo.POST("/api/threads", s.postThread)
	s.echo.POST("/api/threads/from-html", s.postThreadFromHTML)

	// Runtime feed subscriptions
	s.echo.GET("/api/feeds", s.getFeeds)
	s.echo.POST("/api/feeds", s.addFeed)
	s.echo.DELETE("/api/feeds", s.removeFeed)
}

func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Broadcast(msg string) {
	s.sse.Broadcast(msg)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type threadRequest struct {
	Platform   string   `json:"platform"`
	Fragments  []string `json:"fragments"`
	MinDelayMs *int     `json:"min_delay_ms"`
	MaxDelayMs *int     `json:"max_delay_ms"`
}

type htmlThreadRequest struct {
	Platform   string `json:"platform"`
	HTML       string `json:"html"`
	MinDelayMs *int   `json:"min_delay_ms"`
	MaxDelayMs *int   `json:"max_delay_ms"`
}

func errorJSON(c echo.Context, status int, err error) error {
	return c.JSON(status, map[string]string{"error": err.Error()})
}

func (s *Server) postThread(c echo.Context) error {
	var req threadRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, err)
	}

	job, err := s.newJob(req.Platform, req.Fragments, req.MinDelayMs, req.MaxDelayMs)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err)
	}

	return s.enqueue(c, job)
}

func (s *Server) postThreadFromHTML(c echo.Context) error {
	if s.source == nil {
		return errorJSON(c, http.StatusServiceUnavailable, errors.New("content source not configured"))
	}

	var req htmlThreadRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, err)
	}
	if strings.TrimSpace(req.HTML) == "" {
		return errorJSON(c, http.StatusBadRequest, errors.New("html is required"))
	}

	fragments, err := s.source.Fragments(c.Request().Context(), req.HTML)
	if err != nil {
		var cse *content.ContentSourceError
		if errors.As(err, &cse) {
			return errorJSON(c, http.StatusUnprocessableEntity, err)
		}
		return errorJSON(c, http.StatusBadGateway, err)
	}

	texts := make([]string, len(fragments))
	for i, f := range fragments {
		texts[i] = f.Text()
	}

	job, err := s.newJob(req.Platform, texts, req.MinDelayMs, req.MaxDelayMs)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err)
	}

	return s.enqueue(c, job)
}

func (s *Server) newJob(platformName string, fragments []string, minDelay, maxDelay *int) (domain.ThreadJob, error) {
	if platformName == "" {
		platformName = s.thread.DefaultPlatform
	}
	platform, err := domain.ParsePlatform(platformName)
	if err != nil {
		return domain.ThreadJob{}, err
	}
	if _, err := s.providers.Get(platform); err != nil {
		return domain.ThreadJob{}, err
	}
	if len(fragments) == 0 {
		return domain.ThreadJob{}, errors.New("fragments are required")
	}

	job := domain.ThreadJob{
		ID:         uuid.NewString(),
		Platform:   platform,
		Fragments:  fragments,
		MinDelayMs: s.thread.MinDelayMs,
		MaxDelayMs: s.thread.MaxDelayMs,
		CreatedAt:  s.now(),
	}
	if minDelay != nil {
		job.MinDelayMs = *minDelay
	}
	if maxDelay != nil {
		job.MaxDelayMs = *maxDelay
	}

	if _, err := job.Plan(); err != nil {
		return domain.ThreadJob{}, err
	}

	return job, nil
}

func (s *Server) enqueue(c echo.Context, job domain.ThreadJob) error {
	if s.publisher == nil {
		return errorJSON(c, http.StatusServiceUnavailable, errors.New("queue not configured"))
	}

	if err := s.publisher.Publish(c.Request().Context(), job); err != nil {
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("enqueue thread")
		return errorJSON(c, http.StatusBadGateway, fmt.Errorf("enqueue: %w", err))
	}

	s.logger.Info().Str("job_id", job.ID).Str("platform", string(job.Platform)).Int("posts", len(job.Fragments)).Msg("thread queued")
	return c.JSON(http.StatusAccepted, map[string]any{
		"id":       job.ID,
		"platform": job.Platform,
		"posts":    len(job.Fragments),
	})
}

func (s *Server) getFeeds(c echo.Context) error {
	if s.feeds == nil {
		return errorJSON(c, http.StatusServiceUnavailable, errors.New("feed store not configured"))
	}
	feeds, err := s.feeds.GetFeeds(c.Request().Context())
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err)
	}
	if feeds == nil {
		feeds = []string{}
	}
	return c.JSON(http.StatusOK, feeds)
}

func (s *Server) addFeed(c echo.Context) error {
	if s.feeds == nil {
		return errorJSON(c, http.StatusServiceUnavailable, errors.New("feed store not configured"))
	}

	var req struct {
		URL string `json:"url"`
	}
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, err)
	}
	url := strings.TrimSpace(req.URL)
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return errorJSON(c, http.StatusBadRequest, errors.New("url must be http(s)"))
	}

	ctx := c.Request().Context()
	exists, err := s.feeds.FeedExists(ctx, url)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err)
	}
	if exists {
		return errorJSON(c, http.StatusConflict, errors.New("already subscribed"))
	}

	if err := s.feeds.AddFeed(ctx, url); err != nil {
		return errorJSON(c, http.StatusInternalServerError, err)
	}

	return s.getFeeds(c)
}

func (s *Server) removeFeed(c echo.Context) error {
	if s.feeds == nil {
		return errorJSON(c, http.StatusServiceUnavailable, errors.New("feed store not configured"))
	}

	url := c.QueryParam("url")
	if url == "" {
		return errorJSON(c, http.StatusBadRequest, errors.New("url is required"))
	}

	if err := s.feeds.RemoveFeed(c.Request().Context(), url); err != nil {
		return errorJSON(c, http.StatusInternalServerError, err)
	}

	return s.getFeeds(c)
}

func (s *Server) events(c echo.Context) error {
	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")

	ch := s.sse.Subscribe()
	defer s.sse.Unsubscribe(ch)

	fmt.Fprintf(c.Response(), ": ping\n\n")
	c.Response().Flush()

	for {
		select {
		case <-c.Request().Context().Done():
			return nil
		case msg := <-ch:
			fmt.Fprintf(c.Response(), "event: progress\n")
			for _, line := range strings.Split(msg, "\n") {
				fmt.Fprintf(c.Response(), "data: %s\n", line)
			}
			fmt.Fprintf(c.Response(), "\n")
			c.Response().Flush()
		}
	}
}
