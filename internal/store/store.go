package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/trevordebard/vote-tracker/internal/candidates"
	"github.com/trevordebard/vote-tracker/internal/model"
)

// codeAlphabet excludes visually confusable characters (0/O, 1/I).
const (
	codeAlphabet    = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength      = 6
	maxCodeAttempts = 50
	anonymousVoter  = "Anonymous"
)

// Store defines the interface for all room and vote operations.
type Store interface {
	CreateRoom(ctx context.Context, params CreateRoomParams) (*RoomDetail, error)
	GetRoom(ctx context.Context, code string) (*RoomDetail, error)
	CloseRoom(ctx context.Context, code string) (time.Time, error)
	SubmitVotes(ctx context.Context, code, voterName string, entries []VoteEntry) (*Ballot, error)
	UpdateVotes(ctx context.Context, code, voterName string, voteIDs []string, entries []VoteEntry) (*Ballot, error)
	MergeCandidates(ctx context.Context, code string, sources []string, target, roleName string) (string, error)
	RoomVotes(ctx context.Context, code string) ([]model.Vote, error)

	// DB exposes the underlying connection for auxiliary tables
	// (push subscriptions) and the notification worker.
	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// CreateRoom sanitizes the input, generates a unique share code, and inserts
// the room. Creation does not emit an update notification: no dashboard can
// be watching a room that does not exist yet.
func (s *gormStore) CreateRoom(ctx context.Context, params CreateRoomParams) (*RoomDetail, error) {
	roles := candidates.CleanRoles(params.Roles)
	candidateMap := buildCandidateMap(roles, params)

	code, err := s.generateCode(ctx)
	if err != nil {
		return nil, err
	}

	room := model.Room{
		Code:           code,
		CreatedAt:      time.Now().UTC(),
		CandidatesJSON: candidates.Encode(candidateMap, roles),
		RolesJSON:      encodeRoles(roles),
		AllowWriteIns:  params.AllowWriteIns,
		AllowAnonymous: params.AllowAnonymous,
	}

	if err := s.db.WithContext(ctx).Create(&room).Error; err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	return &RoomDetail{Room: room, Roles: roles, Candidates: candidateMap}, nil
}

// GetRoom loads a room by code (case-insensitive) with its stored roles and
// candidate map decoded.
func (s *gormStore) GetRoom(ctx context.Context, code string) (*RoomDetail, error) {
	var room model.Room
	err := s.db.WithContext(ctx).First(&room, "code = ?", normalizeCode(code)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load room: %w", err)
	}

	roles := decodeRoles(room.RolesJSON)
	return &RoomDetail{
		Room:       room,
		Roles:      roles,
		Candidates: candidates.Decode(room.CandidatesJSON, roles),
	}, nil
}

// CloseRoom freezes voting for a room. Closing an already-closed room
// re-stamps ClosedAt with the new time; closure itself never reverts.
func (s *gormStore) CloseRoom(ctx context.Context, code string) (time.Time, error) {
	normalized := normalizeCode(code)
	closedAt := time.Now().UTC()

	result := s.db.WithContext(ctx).
		Model(&model.Room{}).
		Where("code = ?", normalized).
		Update("closed_at", closedAt)
	if result.Error != nil {
		return time.Time{}, fmt.Errorf("failed to close room: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return time.Time{}, ErrRoomNotFound
	}
	return closedAt, nil
}

// SubmitVotes validates and records one ballot: one vote row per entry,
// inserted atomically.
func (s *gormStore) SubmitVotes(ctx context.Context, code, voterName string, entries []VoteEntry) (*Ballot, error) {
	detail, err := s.GetRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	if detail.Room.ClosedAt != nil {
		return nil, ErrRoomClosed
	}

	voter, err := resolveVoterName(voterName, detail.Room.AllowAnonymous)
	if err != nil {
		return nil, err
	}
	rows, err := buildVoteRows(detail, voter, entries)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&rows).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record votes: %w", err)
	}

	return &Ballot{VoterName: voter, Votes: rows}, nil
}

// UpdateVotes replaces a voter's previously recorded rows with a new set.
// The delete and the reinsert share one transaction so a concurrent tally
// never observes the voter with zero votes mid-edit.
func (s *gormStore) UpdateVotes(ctx context.Context, code, voterName string, voteIDs []string, entries []VoteEntry) (*Ballot, error) {
	detail, err := s.GetRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	if detail.Room.ClosedAt != nil {
		return nil, ErrRoomClosed
	}
	if len(voteIDs) == 0 {
		return nil, ErrStaleVoteIDs
	}

	voter, err := resolveVoterName(voterName, detail.Room.AllowAnonymous)
	if err != nil {
		return nil, err
	}
	rows, err := buildVoteRows(detail, voter, entries)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&model.Vote{}).
			Where("room_code = ? AND id IN ?", detail.Room.Code, voteIDs).
			Count(&existing).Error; err != nil {
			return fmt.Errorf("failed to check vote ids: %w", err)
		}
		if existing != int64(len(uniqueStrings(voteIDs))) {
			return ErrStaleVoteIDs
		}

		if err := tx.Where("room_code = ? AND id IN ?", detail.Room.Code, voteIDs).
			Delete(&model.Vote{}).Error; err != nil {
			return fmt.Errorf("failed to delete prior votes: %w", err)
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		if errors.Is(err, ErrStaleVoteIDs) {
			return nil, ErrStaleVoteIDs
		}
		return nil, fmt.Errorf("failed to update votes: %w", err)
	}

	return &Ballot{VoterName: voter, Votes: rows}, nil
}

// MergeCandidates rewrites historical vote rows so that every source
// spelling collapses into the target, and updates the room's stored
// candidate lists to match. The vote count is conserved.
func (s *gormStore) MergeCandidates(ctx context.Context, code string, sources []string, target, roleName string) (string, error) {
	detail, err := s.GetRoom(ctx, code)
	if err != nil {
		return "", err
	}

	cleanedSources := candidates.CleanList(sources)
	cleanedTarget := strings.TrimSpace(target)
	if len(cleanedSources) < 2 || cleanedTarget == "" {
		return "", validationErrorf("need at least two source candidates and a target")
	}

	normalizedSources := make([]string, len(cleanedSources))
	for i, source := range cleanedSources {
		normalizedSources[i] = candidates.Normalize(source)
	}
	roleKey := candidates.Normalize(roleName)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&model.Vote{}).
			Where("room_code = ?", detail.Room.Code).
			Where("UPPER(TRIM(candidate_name)) IN ?", normalizedSources)
		if roleKey != "" {
			q = q.Where("UPPER(TRIM(role_name)) = ?", roleKey)
		}
		if err := q.Update("candidate_name", cleanedTarget).Error; err != nil {
			return fmt.Errorf("failed to rewrite votes: %w", err)
		}

		merged := mergeCandidateMap(detail.Candidates, normalizedSources, cleanedTarget, roleKey)
		if merged == nil {
			return nil
		}
		if err := tx.Model(&model.Room{}).
			Where("code = ?", detail.Room.Code).
			Update("candidates_json", candidates.Encode(merged, detail.Roles)).Error; err != nil {
			return fmt.Errorf("failed to update candidate list: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	return cleanedTarget, nil
}

// RoomVotes returns every vote for a room, newest first. The order feeds the
// tally's display behavior (first-seen spelling, voter list order); the
// counts do not depend on it.
func (s *gormStore) RoomVotes(ctx context.Context, code string) ([]model.Vote, error) {
	var votes []model.Vote
	err := s.db.WithContext(ctx).
		Where("room_code = ?", normalizeCode(code)).
		Order("created_at DESC").
		Find(&votes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load votes: %w", err)
	}
	return votes, nil
}

// generateCode draws random codes until one is unused. Collisions are rare
// enough that the retry cap only guards against a pathological store.
func (s *gormStore) generateCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := randomCode()
		var count int64
		if err := s.db.WithContext(ctx).Model(&model.Room{}).
			Where("code = ?", code).Count(&count).Error; err != nil {
			return "", fmt.Errorf("failed to check code uniqueness: %w", err)
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", fmt.Errorf("failed to generate a unique room code after %d attempts", maxCodeAttempts)
}

func randomCode() string {
	b := make([]byte, codeLength)
	for i := range b {
		b[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
	}
	return string(b)
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func encodeRoles(roles []string) string {
	encoded, _ := json.Marshal(roles)
	return string(encoded)
}

func decodeRoles(rolesJSON string) []string {
	if rolesJSON == "" {
		return []string{"General"}
	}
	var roles []string
	if err := json.Unmarshal([]byte(rolesJSON), &roles); err != nil {
		return []string{"General"}
	}
	return candidates.CleanRoles(roles)
}

// buildCandidateMap resolves the two accepted candidate input shapes into
// the canonical per-role map. Roles whose list sanitizes to nothing are
// absent from the map (pure write-in for that role).
func buildCandidateMap(roles []string, params CreateRoomParams) candidates.Map {
	m := make(candidates.Map)

	if params.RoleCandidates != nil {
		byKey := make(map[string][]string, len(params.RoleCandidates))
		for role, list := range params.RoleCandidates {
			byKey[candidates.Normalize(role)] = list
		}
		for _, role := range roles {
			cleaned := candidates.CleanList(byKey[candidates.Normalize(role)])
			if len(cleaned) > 0 {
				m[role] = cleaned
			}
		}
	} else if len(params.Candidates) > 0 {
		cleaned := candidates.CleanList(params.Candidates)
		if len(cleaned) > 0 {
			for _, role := range roles {
				m[role] = cleaned
			}
		}
	}

	if len(m) == 0 {
		return nil
	}
	return m
}

func resolveVoterName(voterName string, allowAnonymous bool) (string, error) {
	trimmed := strings.TrimSpace(voterName)
	if trimmed == "" {
		if !allowAnonymous {
			return "", validationErrorf("voter name is required for this room")
		}
		return anonymousVoter, nil
	}
	return trimmed, nil
}

// buildVoteRows validates the submission against the room and materializes
// the rows to insert. Entries with an empty candidate are dropped; roles are
// matched case-insensitively and recorded with the room's declared spelling;
// when write-ins are off the candidate must appear in the role's list, and
// the voter's trimmed spelling is what gets recorded.
func buildVoteRows(detail *RoomDetail, voter string, entries []VoteEntry) ([]model.Vote, error) {
	roleByKey := make(map[string]string, len(detail.Roles))
	for _, role := range detail.Roles {
		roleByKey[candidates.Normalize(role)] = role
	}

	now := time.Now().UTC()
	rows := make([]model.Vote, 0, len(entries))
	for _, entry := range entries {
		candidate := strings.TrimSpace(entry.CandidateName)
		if candidate == "" {
			continue
		}

		roleName := strings.TrimSpace(entry.RoleName)
		if roleName == "" {
			roleName = detail.Roles[0]
		}
		canonical, ok := roleByKey[candidates.Normalize(roleName)]
		if !ok {
			return nil, validationErrorf("unknown role %q", roleName)
		}

		if !detail.Room.AllowWriteIns && !candidates.Contains(detail.Candidates[canonical], candidate) {
			return nil, validationErrorf("write-in candidates are not allowed for this room")
		}

		rows = append(rows, model.Vote{
			ID:            uuid.NewString(),
			RoomCode:      detail.Room.Code,
			VoterName:     voter,
			RoleName:      canonical,
			CandidateName: candidate,
			CreatedAt:     now,
		})
	}

	if len(rows) == 0 {
		return nil, validationErrorf("at least one vote with a candidate is required")
	}
	return rows, nil
}

// mergeCandidateMap applies the merge to the decoded candidate map: source
// spellings are filtered out and the target is appended wherever it is absent,
// even when no source was preset (merging two write-in spellings still puts
// the canonical name on the list). Returns nil when the room has no preset
// candidates or nothing changes.
func mergeCandidateMap(m candidates.Map, normalizedSources []string, target, roleKey string) candidates.Map {
	if m == nil {
		return nil
	}
	sourceSet := make(map[string]struct{}, len(normalizedSources))
	for _, s := range normalizedSources {
		sourceSet[s] = struct{}{}
	}
	targetKey := candidates.Normalize(target)

	merged := make(candidates.Map, len(m))
	changed := false
	for role, list := range m {
		if roleKey != "" && candidates.Normalize(role) != roleKey {
			merged[role] = list
			continue
		}

		updated := make([]string, 0, len(list)+1)
		hasTarget := false
		for _, name := range list {
			key := candidates.Normalize(name)
			if _, ok := sourceSet[key]; ok {
				changed = true
				continue
			}
			if key == targetKey {
				hasTarget = true
			}
			updated = append(updated, name)
		}
		if !hasTarget {
			updated = append(updated, target)
			changed = true
		}
		merged[role] = updated
	}

	if !changed {
		return nil
	}
	return merged
}

func uniqueStrings(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
