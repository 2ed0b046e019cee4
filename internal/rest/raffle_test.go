package rest

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rakhargo/LotteryFoundry/internal/kafka"
	"github.com/rakhargo/LotteryFoundry/internal/raffle"
	"github.com/rakhargo/LotteryFoundry/internal/services"
	"github.com/rakhargo/LotteryFoundry/internal/store"
)

type stubCoordinator struct{}

func (stubCoordinator) RequestRandomWords(ctx context.Context, req raffle.RandomnessRequest) (string, error) {
	return "req-1", nil
}

type stubBank struct{}

func (stubBank) Deposit(ctx context.Context, account string, amount uint64) error { return nil }
func (stubBank) Payout(ctx context.Context, account string, amount uint64) error  { return nil }

type nullSink struct{}

func (nullSink) PublishEntered(ctx context.Context, ev kafka.EnteredEvent) error { return nil }
func (nullSink) PublishWinnerPicked(ctx context.Context, ev kafka.WinnerPickedEvent) error {
	return nil
}

type nullRecorder struct{}

func (nullRecorder) Record(ctx context.Context, rec store.WinnerRecord) error { return nil }

type nullArchiver struct{}

func (nullArchiver) Archive(ctx context.Context, r *store.Round) error { return nil }

type fakeWinners struct {
	records []store.WinnerRecord
}

func (f *fakeWinners) Recent(ctx context.Context) ([]store.WinnerRecord, error) {
	return f.records, nil
}

type fakeRounds struct {
	rounds []store.Round
}

func (f *fakeRounds) Recent(ctx context.Context, limit int) ([]store.Round, error) {
	if limit < len(f.rounds) {
		return f.rounds[:limit], nil
	}
	return f.rounds, nil
}

type env struct {
	router  *gin.Engine
	clock   time.Time
	advance func(time.Duration)
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{clock: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	e.advance = func(d time.Duration) { e.clock = e.clock.Add(d) }

	r, err := raffle.New(raffle.Config{
		EntranceFee:          100,
		Interval:             30 * time.Second,
		KeyHash:              "0xabc",
		SubscriptionID:       1,
		CallbackGasLimit:     500_000,
		RequestConfirmations: 3,
	}, stubCoordinator{}, stubBank{}, raffle.WithClock(func() time.Time { return e.clock }))
	require.NoError(t, err)

	logger := log.New(io.Discard, "", 0)
	service := services.NewRaffleService(r, nullSink{}, nullRecorder{}, nullArchiver{}, logger)

	router, _ := NewServer(":0")
	controller := NewRaffleController(service, &fakeWinners{records: []store.WinnerRecord{
		{Round: 1, Winner: "alice", Pot: 200},
	}}, &fakeRounds{rounds: []store.Round{
		{Number: 1, Winner: "alice", Pot: 200, Entries: 2},
	}})
	controller.RegisterRaffleRoutes(router.Group("/api"))
	e.router = router
	return e
}

func (e *env) do(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	e := newEnv(t)
	w := e.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestEnterEndpoint(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodPost, "/api/enter", `{"participant":"alice","amount":100}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "alice", resp["participant"])

	w = e.do(http.MethodPost, "/api/enter", `{"amount":100}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodPost, "/api/enter", `{"participant":"bob","amount":1}`)
	assert.Equal(t, http.StatusPaymentRequired, w.Code)

	w = e.do(http.MethodPost, "/api/enter", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEnterWhileCalculating(t *testing.T) {
	e := newEnv(t)
	require.Equal(t, http.StatusCreated, e.do(http.MethodPost, "/api/enter", `{"participant":"alice","amount":100}`).Code)
	e.advance(31 * time.Second)
	require.Equal(t, http.StatusAccepted, e.do(http.MethodPost, "/api/upkeep", "").Code)

	w := e.do(http.MethodPost, "/api/enter", `{"participant":"bob","amount":100}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestStateEndpoint(t *testing.T) {
	e := newEnv(t)
	require.Equal(t, http.StatusCreated, e.do(http.MethodPost, "/api/enter", `{"participant":"alice","amount":100}`).Code)

	w := e.do(http.MethodGet, "/api/state", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "OPEN", resp["state"])
	assert.Equal(t, float64(1), resp["players"])
	assert.Equal(t, float64(100), resp["pot"])
	assert.Equal(t, "30s", resp["interval"])
}

func TestUpkeepEndpoints(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodGet, "/api/upkeep", "")
	require.Equal(t, http.StatusOK, w.Code)
	var status raffle.UpkeepStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.False(t, status.Needed)

	// Not needed: rejected with diagnostic context.
	w = e.do(http.MethodPost, "/api/upkeep", "")
	require.Equal(t, http.StatusConflict, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "OPEN", resp["state"])

	require.Equal(t, http.StatusCreated, e.do(http.MethodPost, "/api/enter", `{"participant":"alice","amount":100}`).Code)
	e.advance(31 * time.Second)

	w = e.do(http.MethodPost, "/api/upkeep", "")
	require.Equal(t, http.StatusAccepted, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "req-1", resp["request_id"])
}

func TestPlayerEndpoint(t *testing.T) {
	e := newEnv(t)
	require.Equal(t, http.StatusCreated, e.do(http.MethodPost, "/api/enter", `{"participant":"alice","amount":100}`).Code)

	w := e.do(http.MethodGet, "/api/players/0", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "alice", resp["player"])

	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/api/players/5", "").Code)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodGet, "/api/players/abc", "").Code)
}

func TestWinnersAndRoundsEndpoints(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodGet, "/api/winners", "")
	require.Equal(t, http.StatusOK, w.Code)
	var winners []store.WinnerRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &winners))
	require.Len(t, winners, 1)
	assert.Equal(t, "alice", winners[0].Winner)

	w = e.do(http.MethodGet, "/api/rounds", "")
	require.Equal(t, http.StatusOK, w.Code)
	var rounds []store.Round
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rounds))
	require.Len(t, rounds, 1)
	assert.Equal(t, uint64(1), rounds[0].Number)

	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodGet, "/api/rounds?limit=abc", "").Code)
}
