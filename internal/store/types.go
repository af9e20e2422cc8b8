package store

import (
	"github.com/trevordebard/vote-tracker/internal/candidates"
	"github.com/trevordebard/vote-tracker/internal/model"
)

// CreateRoomParams carries the sanitizable input for a new room. Candidate
// input comes in one of two shapes: a flat list shared by every role, or a
// per-role mapping. RoleCandidates wins when both are set.
type CreateRoomParams struct {
	Roles          []string
	Candidates     []string
	RoleCandidates map[string][]string
	AllowWriteIns  bool
	AllowAnonymous bool
}

// RoomDetail is a room with its stored representation decoded: the role list
// and the canonical per-role candidate map.
type RoomDetail struct {
	Room       model.Room
	Roles      []string
	Candidates candidates.Map
}

// VoteEntry is one role/candidate pair of a submission. An empty RoleName
// defaults to the room's first role.
type VoteEntry struct {
	RoleName      string
	CandidateName string
}

// Ballot is the set of vote rows recorded for one voter in one submission.
type Ballot struct {
	VoterName string
	Votes     []model.Vote
}
