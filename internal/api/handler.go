package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"github.com/trevordebard/vote-tracker/internal/events"
	"github.com/trevordebard/vote-tracker/internal/notification"
	"github.com/trevordebard/vote-tracker/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store     store.Store
	bus       *events.Bus
	pool      *notification.WorkerPool
	webpush   *webpush.Options
	keepAlive time.Duration
}

// NewHandler creates a new API handler. pool and webpushOptions may be nil
// when web push is not configured.
func NewHandler(s store.Store, bus *events.Bus, pool *notification.WorkerPool, webpushOptions *webpush.Options, keepAlive time.Duration) *Handler {
	if keepAlive <= 0 {
		keepAlive = 15 * time.Second
	}
	return &Handler{
		store:     s,
		bus:       bus,
		pool:      pool,
		webpush:   webpushOptions,
		keepAlive: keepAlive,
	}
}

// notifyUpdate fans a room change out to live streams and, when configured,
// to the push notification workers. Exactly one signal per operation.
func (h *Handler) notifyUpdate(code string) {
	h.bus.Publish(code)
	if h.pool != nil {
		h.pool.Dispatch(code)
	}
}

// roomCode returns the normalized room code from the request path.
func roomCode(c *gin.Context) string {
	return strings.ToUpper(strings.TrimSpace(c.Param("code")))
}

// respondError maps the store's error taxonomy onto HTTP status codes.
func respondError(c *gin.Context, err error) {
	var verr *store.ValidationError
	switch {
	case errors.Is(err, store.ErrRoomNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
	case errors.Is(err, store.ErrStaleVoteIDs):
		c.JSON(http.StatusNotFound, gin.H{"error": "Votes no longer exist"})
	case errors.Is(err, store.ErrRoomClosed):
		c.JSON(http.StatusForbidden, gin.H{"error": "Room closed"})
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Reason})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
