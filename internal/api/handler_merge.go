package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type mergeRequest struct {
	SourceCandidates []string `json:"sourceCandidates"`
	TargetCandidate  string   `json:"targetCandidate"`
	RoleName         string   `json:"roleName"`
}

// MergeCandidates handles POST /api/rooms/:code/merge: retroactively
// collapses the source candidate spellings into the target across recorded
// votes and the room's candidate list.
func (h *Handler) MergeCandidates(c *gin.Context) {
	var req mergeRequest
	_ = c.ShouldBindJSON(&req)

	mergedInto, err := h.store.MergeCandidates(
		c.Request.Context(), roomCode(c), req.SourceCandidates, req.TargetCandidate, req.RoleName)
	if err != nil {
		respondError(c, err)
		return
	}

	h.notifyUpdate(roomCode(c))
	c.JSON(http.StatusOK, gin.H{"mergedInto": mergedInto})
}
