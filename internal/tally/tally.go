// Package tally aggregates recorded votes into per-role leaderboards.
package tally

import (
	"sort"
	"strings"

	"github.com/trevordebard/vote-tracker/internal/candidates"
	"github.com/trevordebard/vote-tracker/internal/model"
)

// Entry is one candidate's standing within a role.
type Entry struct {
	Candidate string   `json:"candidate"`
	Count     int      `json:"count"`
	Voters    []string `json:"voters"`
}

// RoleSummary is the aggregated result for a single role.
type RoleSummary struct {
	Role       string  `json:"role"`
	Tally      []Entry `json:"tally"`
	Winner     *Entry  `json:"winner"`
	TotalVotes int     `json:"totalVotes"`
}

// Summary is the full aggregation for a room.
type Summary struct {
	RoleTallies []RoleSummary `json:"roleTallies"`
	TotalVotes  int           `json:"totalVotes"`
}

type group struct {
	display string
	count   int
	voters  []string
}

type roleGroup struct {
	role    string
	order   []string
	grouped map[string]*group
}

// Summarize folds votes into per-role tallies. Candidates collapse under
// trim+case-fold normalization; the display spelling is the first one seen
// in the scan. Every declared role appears even with zero votes, and votes
// recorded under a role no longer declared still surface as their own entry.
// The per-role tally is sorted by descending count with a stable tie-break
// (scan encounter order) that callers must not treat as a business rule.
func Summarize(roles []string, votes []model.Vote) Summary {
	order := make([]string, 0, len(roles))
	byKey := make(map[string]*roleGroup, len(roles))
	for _, role := range roles {
		key := candidates.Normalize(role)
		if _, ok := byKey[key]; ok {
			continue
		}
		byKey[key] = &roleGroup{role: role, grouped: make(map[string]*group)}
		order = append(order, key)
	}

	for _, vote := range votes {
		roleName := vote.RoleName
		if candidates.Normalize(roleName) == "" {
			roleName = "General"
		}
		roleKey := candidates.Normalize(roleName)
		rg, ok := byKey[roleKey]
		if !ok {
			rg = &roleGroup{role: roleName, grouped: make(map[string]*group)}
			byKey[roleKey] = rg
			order = append(order, roleKey)
		}

		trimmed := candidates.Normalize(vote.CandidateName)
		g, ok := rg.grouped[trimmed]
		if !ok {
			g = &group{display: displayName(vote.CandidateName)}
			rg.grouped[trimmed] = g
			rg.order = append(rg.order, trimmed)
		}
		g.count++
		g.voters = append(g.voters, vote.VoterName)
	}

	summary := Summary{
		RoleTallies: make([]RoleSummary, 0, len(order)),
		TotalVotes:  len(votes),
	}
	for _, roleKey := range order {
		rg := byKey[roleKey]

		entries := make([]Entry, 0, len(rg.order))
		roleTotal := 0
		for _, candidateKey := range rg.order {
			g := rg.grouped[candidateKey]
			entries = append(entries, Entry{
				Candidate: g.display,
				Count:     g.count,
				Voters:    g.voters,
			})
			roleTotal += g.count
		}
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Count > entries[j].Count
		})

		var winner *Entry
		if len(entries) > 0 {
			winner = &entries[0]
		}
		summary.RoleTallies = append(summary.RoleTallies, RoleSummary{
			Role:       rg.role,
			Tally:      entries,
			Winner:     winner,
			TotalVotes: roleTotal,
		})
	}
	return summary
}

func displayName(raw string) string {
	return strings.TrimSpace(raw)
}
