package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/trevordebard/vote-tracker/internal/candidates"
	"github.com/trevordebard/vote-tracker/internal/store"
)

type createRoomRequest struct {
	Roles          []string            `json:"roles"`
	Candidates     []string            `json:"candidates"`
	RoleCandidates map[string][]string `json:"roleCandidates"`
	AllowWriteIns  *bool               `json:"allowWriteIns"`
	AllowAnonymous *bool               `json:"allowAnonymous"`
}

type roomResponse struct {
	Code           string         `json:"code"`
	CreatedAt      time.Time      `json:"createdAt"`
	ClosedAt       *time.Time     `json:"closedAt"`
	Candidates     []string       `json:"candidates"`
	RoleCandidates candidates.Map `json:"roleCandidates"`
	Roles          []string       `json:"roles"`
	AllowWriteIns  bool           `json:"allowWriteIns"`
	AllowAnonymous bool           `json:"allowAnonymous"`
}

func roomView(detail *store.RoomDetail) roomResponse {
	return roomResponse{
		Code:           detail.Room.Code,
		CreatedAt:      detail.Room.CreatedAt,
		ClosedAt:       detail.Room.ClosedAt,
		Candidates:     sharedCandidateList(detail),
		RoleCandidates: detail.Candidates,
		Roles:          detail.Roles,
		AllowWriteIns:  detail.Room.AllowWriteIns,
		AllowAnonymous: detail.Room.AllowAnonymous,
	}
}

// sharedCandidateList returns the flat candidate view: the single list when
// every role shares it, nil when the lists differ per role. Kept for clients
// written before multi-role support.
func sharedCandidateList(detail *store.RoomDetail) []string {
	if len(detail.Candidates) == 0 {
		return nil
	}
	var shared []string
	for _, role := range detail.Roles {
		list, ok := detail.Candidates[role]
		if !ok {
			return nil
		}
		if shared == nil {
			shared = list
			continue
		}
		if len(list) != len(shared) {
			return nil
		}
		for i := range list {
			if list[i] != shared[i] {
				return nil
			}
		}
	}
	return shared
}

// CreateRoom handles POST /api/rooms. A malformed body is treated as an
// empty request so field-level defaulting applies.
func (h *Handler) CreateRoom(c *gin.Context) {
	var req createRoomRequest
	_ = c.ShouldBindJSON(&req)

	params := store.CreateRoomParams{
		Roles:          req.Roles,
		Candidates:     req.Candidates,
		RoleCandidates: req.RoleCandidates,
		AllowWriteIns:  req.AllowWriteIns == nil || *req.AllowWriteIns,
		AllowAnonymous: req.AllowAnonymous == nil || *req.AllowAnonymous,
	}

	detail, err := h.store.CreateRoom(c.Request.Context(), params)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, roomView(detail))
}

// GetRoom handles GET /api/rooms/:code.
func (h *Handler) GetRoom(c *gin.Context) {
	detail, err := h.store.GetRoom(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, roomView(detail))
}

// CloseRoom handles POST /api/rooms/:code/close. Closing an already-closed
// room re-stamps the timestamp; it never reopens.
func (h *Handler) CloseRoom(c *gin.Context) {
	closedAt, err := h.store.CloseRoom(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}

	h.notifyUpdate(roomCode(c))
	c.JSON(http.StatusOK, gin.H{"closedAt": closedAt})
}
