package api

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

// StreamRoom handles GET /api/rooms/:code/stream: a server-sent event
// stream that pushes a fresh summary whenever the room changes, with
// keep-alive comments so intermediaries don't drop idle connections. The
// bus subscription and the ticker are released on every exit path.
func (h *Handler) StreamRoom(c *gin.Context) {
	code := roomCode(c)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache, no-transform")
	c.Writer.Header().Set("Connection", "keep-alive")

	updates, unsubscribe := h.bus.Subscribe(code)
	defer unsubscribe()

	keepAlive := time.NewTicker(h.keepAlive)
	defer keepAlive.Stop()

	send := func(payload any) bool {
		data, err := json.Marshal(payload)
		if err != nil {
			return false
		}
		if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", data); err != nil {
			return false
		}
		c.Writer.Flush()
		return true
	}

	if !send(gin.H{"type": "connected"}) {
		return
	}
	if summary, err := h.buildSummary(c.Request.Context(), code); err == nil {
		if !send(gin.H{"type": "summary", "summary": summary}) {
			return
		}
	}

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			// Client disconnect is normal termination, not an error.
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(c.Writer, ": keepalive\n\n"); err != nil {
				return
			}
			c.Writer.Flush()
		case <-updates:
			summary, err := h.buildSummary(ctx, code)
			if err != nil {
				continue
			}
			if !send(gin.H{"type": "summary", "summary": summary}) {
				return
			}
		}
	}
}
