package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/trevordebard/vote-tracker/internal/tally"
)

type summaryResponse struct {
	Room        roomResponse        `json:"room"`
	RoleTallies []tally.RoleSummary `json:"roleTallies"`
	TotalVotes  int                 `json:"totalVotes"`
}

func (h *Handler) buildSummary(ctx context.Context, code string) (*summaryResponse, error) {
	detail, err := h.store.GetRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	votes, err := h.store.RoomVotes(ctx, detail.Room.Code)
	if err != nil {
		return nil, err
	}

	summary := tally.Summarize(detail.Roles, votes)
	return &summaryResponse{
		Room:        roomView(detail),
		RoleTallies: summary.RoleTallies,
		TotalVotes:  summary.TotalVotes,
	}, nil
}

// GetSummary handles GET /api/rooms/:code/summary.
func (h *Handler) GetSummary(c *gin.Context) {
	summary, err := h.buildSummary(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
