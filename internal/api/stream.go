package api

import (
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Rajchodisetti/quotedash/internal/observ"
)

// stream pushes a "snapshot" event whenever the watchlist changes, starting
// with the current state. Comment lines keep idle connections open.
func (s *Server) stream(c *gin.Context) {
	snaps, cancel := s.wl.Subscribe()
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	clientIP := c.ClientIP()
	observ.IncCounter("sse_connections_total", nil)
	observ.Log("sse_connect", map[string]any{"client": clientIP})
	defer observ.Log("sse_disconnect", map[string]any{"client": clientIP})

	heartbeat := time.NewTicker(s.opts.Heartbeat)
	defer heartbeat.Stop()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case snap, ok := <-snaps:
			if !ok {
				return false
			}
			c.SSEvent("snapshot", snap)
			return true
		case <-heartbeat.C:
			_, err := fmt.Fprint(w, ":ping\n\n")
			return err == nil
		}
	})
}
