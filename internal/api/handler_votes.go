package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/trevordebard/vote-tracker/internal/model"
	"github.com/trevordebard/vote-tracker/internal/store"
)

type voteEntryRequest struct {
	RoleName      string `json:"roleName"`
	CandidateName string `json:"candidateName"`
}

// submitVotesRequest accepts both the multi-role list shape and the legacy
// single-vote shape (roleName/candidateName at the top level).
type submitVotesRequest struct {
	VoterName     string             `json:"voterName"`
	Votes         []voteEntryRequest `json:"votes"`
	RoleName      string             `json:"roleName"`
	CandidateName string             `json:"candidateName"`
}

type updateVotesRequest struct {
	VoterName string             `json:"voterName"`
	VoteIDs   []string           `json:"voteIds"`
	Votes     []voteEntryRequest `json:"votes"`
}

type voteResponse struct {
	ID            string    `json:"id"`
	RoleName      string    `json:"roleName"`
	CandidateName string    `json:"candidateName"`
	CreatedAt     time.Time `json:"createdAt"`
}

func voteViews(votes []model.Vote) []voteResponse {
	views := make([]voteResponse, len(votes))
	for i, v := range votes {
		views[i] = voteResponse{
			ID:            v.ID,
			RoleName:      v.RoleName,
			CandidateName: v.CandidateName,
			CreatedAt:     v.CreatedAt,
		}
	}
	return views
}

func toEntries(req submitVotesRequest) (entries []store.VoteEntry, legacy bool) {
	if len(req.Votes) == 0 {
		// Legacy single-vote shape; role defaults to the room's first role.
		return []store.VoteEntry{{RoleName: req.RoleName, CandidateName: req.CandidateName}}, true
	}
	entries = make([]store.VoteEntry, len(req.Votes))
	for i, v := range req.Votes {
		entries[i] = store.VoteEntry{RoleName: v.RoleName, CandidateName: v.CandidateName}
	}
	return entries, false
}

// SubmitVotes handles POST /api/rooms/:code/votes.
func (h *Handler) SubmitVotes(c *gin.Context) {
	var req submitVotesRequest
	_ = c.ShouldBindJSON(&req)

	entries, legacy := toEntries(req)
	ballot, err := h.store.SubmitVotes(c.Request.Context(), roomCode(c), req.VoterName, entries)
	if err != nil {
		respondError(c, err)
		return
	}

	h.notifyUpdate(roomCode(c))

	if legacy {
		v := ballot.Votes[0]
		c.JSON(http.StatusOK, gin.H{
			"id":            v.ID,
			"voterName":     ballot.VoterName,
			"roleName":      v.RoleName,
			"candidateName": v.CandidateName,
			"createdAt":     v.CreatedAt,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"voterName": ballot.VoterName,
		"votes":     voteViews(ballot.Votes),
	})
}

// UpdateVotes handles PUT /api/rooms/:code/votes: the prior rows named by
// voteIds are replaced with the new set in one atomic unit.
func (h *Handler) UpdateVotes(c *gin.Context) {
	var req updateVotesRequest
	_ = c.ShouldBindJSON(&req)

	entries := make([]store.VoteEntry, len(req.Votes))
	for i, v := range req.Votes {
		entries[i] = store.VoteEntry{RoleName: v.RoleName, CandidateName: v.CandidateName}
	}

	ballot, err := h.store.UpdateVotes(c.Request.Context(), roomCode(c), req.VoterName, req.VoteIDs, entries)
	if err != nil {
		respondError(c, err)
		return
	}

	h.notifyUpdate(roomCode(c))
	c.JSON(http.StatusOK, gin.H{
		"voterName": ballot.VoterName,
		"votes":     voteViews(ballot.Votes),
	})
}
