// Package api serves the watchlist, detail views, charts and search over
// HTTP/JSON, with snapshots streamed as server-sent events.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Rajchodisetti/quotedash/internal/observ"
	"github.com/Rajchodisetti/quotedash/internal/watchlist"
)

type Options struct {
	Heartbeat      time.Duration // SSE keep-alive comment interval
	DetailInterval time.Duration
	DetailIdle     time.Duration // detail views unused this long are stopped
	QuoteWait      time.Duration // max wait for a detail view's first result
}

func (o *Options) applyDefaults() {
	if o.Heartbeat <= 0 {
		o.Heartbeat = 10 * time.Second
	}
	if o.DetailInterval <= 0 {
		o.DetailInterval = watchlist.DetailInterval
	}
	if o.DetailIdle <= 0 {
		o.DetailIdle = 2 * time.Minute
	}
	if o.QuoteWait <= 0 {
		o.QuoteWait = 30 * time.Second
	}
}

type Server struct {
	wl      *watchlist.Watchlist
	details *DetailViews
	opts    Options
	now     func() time.Time
}

// NewServer wires the handlers. The detail views share fetcher, and so its
// rate limiter, with the watchlist.
func NewServer(ctx context.Context, wl *watchlist.Watchlist, fetcher watchlist.QuoteFetcher, opts Options) *Server {
	opts.applyDefaults()
	return &Server{
		wl:      wl,
		details: NewDetailViews(ctx, fetcher, opts.DetailInterval, opts.DetailIdle),
		opts:    opts,
		now:     time.Now,
	}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestMetrics())

	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(observ.Handler()))

	r.GET("/watchlist", s.getWatchlist)
	r.POST("/watchlist", s.addSymbol)
	r.DELETE("/watchlist/:symbol", s.removeSymbol)
	r.POST("/watchlist/refresh", s.refresh)
	r.PUT("/watchlist/auto-refresh", s.setAutoRefresh)
	r.GET("/stats", s.getStats)
	r.GET("/stream", s.stream)

	r.GET("/quotes/:symbol", s.getQuote)
	r.GET("/quotes/:symbol/analysis", s.getAnalysis)
	r.GET("/chart/:symbol", s.getChart)
	r.GET("/search", s.search)
	return r
}

// ListenAndServe blocks until ctx is cancelled, then shuts down gracefully
// and stops the detail views.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		observ.Log("http_listen", map[string]any{"addr": addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.details.Close()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.details.Close()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Close() {
	s.details.Close()
}

func requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		observ.IncCounter("http_requests_total", map[string]string{"route": route, "status": strconv.Itoa(status)})
		observ.RecordDuration("http_request", time.Since(start), map[string]string{"route": route})
		if status >= http.StatusInternalServerError {
			observ.Log("http_error", map[string]any{
				"method": c.Request.Method,
				"route":  route,
				"status": status,
				"errors": c.Errors.String(),
			})
		}
	}
}
