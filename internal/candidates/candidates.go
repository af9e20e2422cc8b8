// Package candidates translates between the stored candidate representation
// and the in-memory per-role mapping.
//
// Rooms created before multi-role support stored one flat JSON array shared
// by every role. Newer rooms store a JSON object keyed by role name. Decode
// accepts both and always yields the per-role form; Encode picks the flat
// form back when every role shares the same list, so old readers keep
// working.
package candidates

import (
	"encoding/json"
	"strings"
)

// Map holds the candidate lists for a room, keyed by role name. A nil or
// empty Map means pure write-in voting.
type Map map[string][]string

// Normalize is the comparison key used everywhere candidate and role names
// are matched: trimmed and case-folded.
func Normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// CleanList trims entries, drops empties, and deduplicates case-insensitively
// while preserving first-seen order and spelling.
func CleanList(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	cleaned := make([]string, 0, len(items))
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			continue
		}
		key := strings.ToUpper(trimmed)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		cleaned = append(cleaned, trimmed)
	}
	return cleaned
}

// CleanRoles sanitizes a role list like CleanList, falling back to the
// implicit single role when nothing survives.
func CleanRoles(roles []string) []string {
	cleaned := CleanList(roles)
	if len(cleaned) == 0 {
		return []string{"General"}
	}
	return cleaned
}

// Decode parses the stored candidates value. A flat array is expanded so
// every role receives the same list; an object is taken as-is with each list
// sanitized. A nil value, an unparseable value, or a value with no surviving
// entries decodes to nil.
func Decode(raw *string, roles []string) Map {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil
	}

	var flat []string
	if err := json.Unmarshal([]byte(*raw), &flat); err == nil {
		list := CleanList(flat)
		if len(list) == 0 {
			return nil
		}
		m := make(Map, len(roles))
		for _, role := range roles {
			m[role] = list
		}
		return m
	}

	var perRole map[string][]string
	if err := json.Unmarshal([]byte(*raw), &perRole); err != nil {
		return nil
	}
	m := make(Map, len(perRole))
	for role, list := range perRole {
		cleaned := CleanList(list)
		if len(cleaned) == 0 {
			continue
		}
		m[role] = cleaned
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

// Encode serializes a Map for storage. The compact flat-array form is only
// stored when the map covers every one of the room's roles with an identical
// list; a partial map must keep the object form, since Decode expands a flat
// array to all roles and would hand a pure write-in role a candidate list.
// Empty maps encode to nil (no preset candidates).
func Encode(m Map, roles []string) *string {
	if len(m) == 0 {
		return nil
	}

	var payload any = m
	if shared := sharedAcrossRoles(m, roles); shared != nil {
		payload = shared
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	s := string(encoded)
	return &s
}

// sharedAcrossRoles returns the single list when m maps every role to the
// same one, nil otherwise.
func sharedAcrossRoles(m Map, roles []string) []string {
	if len(roles) == 0 || len(m) != len(roles) {
		return nil
	}
	var first []string
	for _, role := range roles {
		list, ok := m[role]
		if !ok {
			return nil
		}
		if first == nil {
			first = list
			continue
		}
		if !equalLists(first, list) {
			return nil
		}
	}
	return first
}

// Contains reports whether name matches an entry of list under Normalize.
func Contains(list []string, name string) bool {
	key := Normalize(name)
	for _, item := range list {
		if Normalize(item) == key {
			return true
		}
	}
	return false
}

func equalLists(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
