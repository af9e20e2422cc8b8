package internal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/trevordebard/vote-tracker/config"
	"github.com/trevordebard/vote-tracker/internal/api"
	"github.com/trevordebard/vote-tracker/internal/events"
	"github.com/trevordebard/vote-tracker/internal/model"
	"github.com/trevordebard/vote-tracker/internal/store"
)

// newIntegrationRouter wires a real store, bus and router over an isolated
// in-memory SQLite database, the same stack main assembles minus web push.
func newIntegrationRouter(t *testing.T, name string) (http.Handler, *events.Bus) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	testDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := testDB.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, testDB.AutoMigrate(&model.Room{}, &model.Vote{}, &model.PushSubscription{}))

	bus := events.NewBus()
	cfg := &config.ServerConfig{
		RateLimitPerSec:  1000,
		RateLimitBurst:   1000,
		CacheTTLSeconds:  0,
		KeepAliveSeconds: 1,
	}
	return api.NewRouter(store.NewGormStore(testDB), bus, nil, nil, cfg), bus
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) (int, map[string]any) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var decoded map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded), w.Body.String())
	}
	return w.Code, decoded
}

// TestElectionLifecycle runs a two-role election from room creation through
// voting, a ballot edit and closing, verifying the tally at each step.
func TestElectionLifecycle(t *testing.T) {
	router, _ := newIntegrationRouter(t, "integration_lifecycle")

	// The facilitator opens a room with a fixed slate and write-ins off.
	status, room := doJSON(t, router, http.MethodPost, "/api/rooms",
		`{"roles":["Secretary","Facilitator"],"candidates":["Alex","Sam"],"allowWriteIns":false}`)
	require.Equal(t, http.StatusOK, status)
	code := room["code"].(string)
	require.Len(t, code, 6)

	// Jamie votes for both roles in one ballot.
	status, ballot := doJSON(t, router, http.MethodPost, "/api/rooms/"+code+"/votes",
		`{"voterName":"Jamie","votes":[{"roleName":"Secretary","candidateName":"Alex"},{"roleName":"Facilitator","candidateName":"Sam"}]}`)
	require.Equal(t, http.StatusOK, status)
	votes := ballot["votes"].([]any)
	require.Len(t, votes, 2)

	// A write-in attempt bounces off the fixed slate.
	status, _ = doJSON(t, router, http.MethodPost, "/api/rooms/"+code+"/votes",
		`{"voterName":"Sky","candidateName":"Taylor","votes":[{"roleName":"Secretary","candidateName":"Taylor"}]}`)
	assert.Equal(t, http.StatusBadRequest, status)

	// Jamie changes their mind about Secretary. The edit replaces both rows
	// atomically so the total never double-counts.
	ids := make([]string, 0, len(votes))
	for _, v := range votes {
		ids = append(ids, fmt.Sprintf("%q", v.(map[string]any)["id"]))
	}
	status, updated := doJSON(t, router, http.MethodPut, "/api/rooms/"+code+"/votes",
		fmt.Sprintf(`{"voterName":"Jamie","voteIds":[%s],"votes":[{"roleName":"Secretary","candidateName":"Sam"},{"roleName":"Facilitator","candidateName":"Sam"}]}`,
			strings.Join(ids, ",")))
	require.Equal(t, http.StatusOK, status)
	require.Len(t, updated["votes"].([]any), 2)

	status, summary := doJSON(t, router, http.MethodGet, "/api/rooms/"+code+"/summary", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(2), summary["totalVotes"])

	winners := map[string]string{}
	for _, entry := range summary["roleTallies"].([]any) {
		rs := entry.(map[string]any)
		if w, ok := rs["winner"].(map[string]any); ok {
			winners[rs["role"].(string)] = w["candidate"].(string)
		}
	}
	assert.Equal(t, map[string]string{"Secretary": "Sam", "Facilitator": "Sam"}, winners)

	// Closing freezes the room. Late ballots are refused but the results
	// stay readable.
	status, closed := doJSON(t, router, http.MethodPost, "/api/rooms/"+code+"/close", "")
	require.Equal(t, http.StatusOK, status)
	assert.NotNil(t, closed["closedAt"])

	status, _ = doJSON(t, router, http.MethodPost, "/api/rooms/"+code+"/votes",
		`{"voterName":"Robin","candidateName":"Alex"}`)
	assert.Equal(t, http.StatusForbidden, status)

	status, summary = doJSON(t, router, http.MethodGet, "/api/rooms/"+code+"/summary", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(2), summary["totalVotes"])
}

// TestCandidateMerge folds two write-in spellings into one candidate and
// verifies the counts are conserved.
func TestCandidateMerge(t *testing.T) {
	router, _ := newIntegrationRouter(t, "integration_merge")

	status, room := doJSON(t, router, http.MethodPost, "/api/rooms", `{"candidates":["Alpha","Beta"]}`)
	require.Equal(t, http.StatusOK, status)
	code := room["code"].(string)

	for _, body := range []string{
		`{"voterName":"Jamie","candidateName":"Alpha"}`,
		`{"voterName":"Sky","candidateName":"Beta"}`,
	} {
		status, _ = doJSON(t, router, http.MethodPost, "/api/rooms/"+code+"/votes", body)
		require.Equal(t, http.StatusOK, status)
	}

	status, merged := doJSON(t, router, http.MethodPost, "/api/rooms/"+code+"/merge",
		`{"sourceCandidates":["Alpha","Beta"],"targetCandidate":"Gamma"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Gamma", merged["mergedInto"])

	status, summary := doJSON(t, router, http.MethodGet, "/api/rooms/"+code+"/summary", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(2), summary["totalVotes"])

	tally := summary["roleTallies"].([]any)[0].(map[string]any)["tally"].([]any)
	require.Len(t, tally, 1)
	top := tally[0].(map[string]any)
	assert.Equal(t, "Gamma", top["candidate"])
	assert.Equal(t, float64(2), top["count"])

	// The room's candidate list follows the merge.
	status, room = doJSON(t, router, http.MethodGet, "/api/rooms/"+code, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{"Gamma"}, room["candidates"])
}

// TestStreamDeliversUpdates opens the SSE endpoint against a live server,
// submits a vote and expects a fresh summary frame on the stream.
func TestStreamDeliversUpdates(t *testing.T) {
	router, bus := newIntegrationRouter(t, "integration_stream")

	server := httptest.NewServer(router)
	defer server.Close()

	status, room := doJSON(t, router, http.MethodPost, "/api/rooms", `{"candidates":["Alex"]}`)
	require.Equal(t, http.StatusOK, status)
	code := room["code"].(string)

	resp, err := http.Get(server.URL + "/api/rooms/" + code + "/stream")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	frames := make(chan map[string]any, 8)
	go func() {
		defer close(frames)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var frame map[string]any
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &frame); err == nil {
				frames <- frame
			}
		}
	}()

	readFrame := func() map[string]any {
		select {
		case frame, ok := <-frames:
			require.True(t, ok, "stream closed early")
			return frame
		case <-time.After(3 * time.Second):
			t.Fatal("timed out waiting for stream frame")
			return nil
		}
	}

	assert.Equal(t, "connected", readFrame()["type"])

	initial := readFrame()
	require.Equal(t, "summary", initial["type"])
	assert.Equal(t, float64(0), initial["summary"].(map[string]any)["totalVotes"])

	// Wait for the subscription to register before mutating, then vote.
	require.Eventually(t, func() bool {
		return bus.SubscriberCount(code) == 1
	}, time.Second, 10*time.Millisecond)

	status, _ = doJSON(t, router, http.MethodPost, "/api/rooms/"+code+"/votes",
		`{"voterName":"Jamie","candidateName":"Alex"}`)
	require.Equal(t, http.StatusOK, status)

	update := readFrame()
	require.Equal(t, "summary", update["type"])
	assert.Equal(t, float64(1), update["summary"].(map[string]any)["totalVotes"])

	// Dropping the connection unsubscribes the listener.
	resp.Body.Close()
	assert.Eventually(t, func() bool {
		return bus.SubscriberCount(code) == 0
	}, 3*time.Second, 20*time.Millisecond)
}
