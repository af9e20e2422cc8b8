package tally

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trevordebard/vote-tracker/internal/model"
)

func vote(role, candidate, voter string) model.Vote {
	return model.Vote{RoleName: role, CandidateName: candidate, VoterName: voter}
}

func TestSummarize_CountsPerRole(t *testing.T) {
	votes := []model.Vote{
		vote("Secretary", "Alex", "Jamie"),
		vote("Secretary", "Alex", "Sky"),
		vote("Secretary", "Sam", "Robin"),
		vote("Facilitator", "Sam", "Jamie"),
	}

	summary := Summarize([]string{"Secretary", "Facilitator"}, votes)

	assert.Equal(t, 4, summary.TotalVotes)
	require.Len(t, summary.RoleTallies, 2)

	secretary := summary.RoleTallies[0]
	assert.Equal(t, "Secretary", secretary.Role)
	assert.Equal(t, 3, secretary.TotalVotes)
	require.NotNil(t, secretary.Winner)
	assert.Equal(t, "Alex", secretary.Winner.Candidate)
	assert.Equal(t, 2, secretary.Winner.Count)
	assert.Equal(t, []string{"Jamie", "Sky"}, secretary.Winner.Voters)

	facilitator := summary.RoleTallies[1]
	assert.Equal(t, "Facilitator", facilitator.Role)
	assert.Equal(t, 1, facilitator.TotalVotes)
	require.NotNil(t, facilitator.Winner)
	assert.Equal(t, "Sam", facilitator.Winner.Candidate)
}

func TestSummarize_CollapsesSpellingVariants(t *testing.T) {
	votes := []model.Vote{
		vote("General", " Alex ", "Jamie"),
		vote("General", "ALEX", "Sky"),
		vote("General", "alex", "Robin"),
	}

	summary := Summarize([]string{"General"}, votes)

	require.Len(t, summary.RoleTallies, 1)
	tally := summary.RoleTallies[0].Tally
	require.Len(t, tally, 1)
	assert.Equal(t, 3, tally[0].Count)
	// Display spelling is the first one seen in the scan.
	assert.Equal(t, "Alex", tally[0].Candidate)
}

func TestSummarize_EmptyRolesStillListed(t *testing.T) {
	summary := Summarize([]string{"Secretary", "Facilitator"}, nil)

	assert.Equal(t, 0, summary.TotalVotes)
	require.Len(t, summary.RoleTallies, 2)
	for _, rs := range summary.RoleTallies {
		assert.Empty(t, rs.Tally)
		assert.Nil(t, rs.Winner)
		assert.Equal(t, 0, rs.TotalVotes)
	}
}

func TestSummarize_UndeclaredRoleSurfaces(t *testing.T) {
	votes := []model.Vote{
		vote("Treasurer", "Alex", "Jamie"),
	}

	summary := Summarize([]string{"General"}, votes)

	require.Len(t, summary.RoleTallies, 2)
	assert.Equal(t, "General", summary.RoleTallies[0].Role)
	assert.Equal(t, "Treasurer", summary.RoleTallies[1].Role)
	assert.Equal(t, 1, summary.RoleTallies[1].TotalVotes)
}

func TestSummarize_BlankRoleFallsBackToGeneral(t *testing.T) {
	votes := []model.Vote{
		vote("", "Alex", "Jamie"),
	}

	summary := Summarize([]string{"General"}, votes)

	require.Len(t, summary.RoleTallies, 1)
	assert.Equal(t, 1, summary.RoleTallies[0].TotalVotes)
}

func TestSummarize_DescendingOrderWithStableTies(t *testing.T) {
	votes := []model.Vote{
		vote("General", "Sam", "a"),
		vote("General", "Alex", "b"),
		vote("General", "Alex", "c"),
		vote("General", "Robin", "d"),
	}

	summary := Summarize([]string{"General"}, votes)

	tally := summary.RoleTallies[0].Tally
	require.Len(t, tally, 3)
	assert.Equal(t, "Alex", tally[0].Candidate)
	// Sam and Robin tie at one vote each; scan encounter order is kept.
	assert.Equal(t, "Sam", tally[1].Candidate)
	assert.Equal(t, "Robin", tally[2].Candidate)
}

func TestSummarize_VoterListFollowsScanOrder(t *testing.T) {
	votes := []model.Vote{
		vote("General", "Alex", "newest"),
		vote("General", "Alex", "older"),
		vote("General", "Alex", "oldest"),
	}

	summary := Summarize([]string{"General"}, votes)

	tally := summary.RoleTallies[0].Tally
	require.Len(t, tally, 1)
	assert.Equal(t, []string{"newest", "older", "oldest"}, tally[0].Voters)
}
