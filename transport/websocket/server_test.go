package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-arena/internal/config"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/usecase"
	"github.com/rocketscienceinc/tictactoe-arena/transport/rest"
)

type fakeSeries struct{}

func (fakeSeries) StartSeries(context.Context, string, int) (*entity.Series, error) { return nil, nil }

func (fakeSeries) GetSeries(_ context.Context, sessionID string) (*entity.Series, error) {
	return &entity.Series{
		ID:         sessionID,
		Game:       entity.NewGame("gpt", "claude"),
		GameIndex:  1,
		TotalGames: 3,
		Competitors: [2]entity.Competitor{
			{ID: "gpt", Label: "GPT 5.2 High"},
			{ID: "claude", Label: "Claude Opus 4.5 Thinking"},
		},
	}, nil
}

func (fakeSeries) NextMove(context.Context, string) (*entity.Series, *usecase.TurnResult, error) {
	return nil, nil, nil
}

func (fakeSeries) NextGame(context.Context, string) (*entity.Series, error) { return nil, nil }

type fakeSubscriber struct {
	mu           sync.Mutex
	sessionID    string
	updates      chan []byte
	unsubscribed chan struct{}
}

func (that *fakeSubscriber) Subscribe(_ context.Context, seriesID string) (<-chan []byte, func(), error) {
	that.mu.Lock()
	that.sessionID = seriesID
	that.mu.Unlock()

	var once sync.Once
	return that.updates, func() { once.Do(func() { close(that.unsubscribed) }) }, nil
}

func TestServer_Serve(t *testing.T) {
	// Given: a server with a controllable update stream
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	conf := &config.Config{Session: config.Session{Secret: "test-secret", TTL: time.Hour}}
	subscriber := &fakeSubscriber{updates: make(chan []byte, 1), unsubscribed: make(chan struct{})}
	ws := New(logger, fakeSeries{}, subscriber)

	e := rest.NewServer(logger, conf, rest.NewPingHandler(), rest.NewSeriesHandler(logger, fakeSeries{}), ws.Register)
	server := httptest.NewServer(e)
	defer server.Close()

	// When: a client connects
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	// Then: the current view arrives first
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, actionState, msg.Action)

	var state map[string]any
	require.NoError(t, json.Unmarshal(msg.Payload, &state))
	assert.Equal(t, float64(3), state["total_games"])

	subscriber.mu.Lock()
	assert.NotEmpty(t, subscriber.sessionID)
	subscriber.mu.Unlock()

	// When: an update is published
	subscriber.updates <- []byte(`{"current_game":2}`)

	// Then: it is forwarded as is
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, actionState, msg.Action)
	assert.JSONEq(t, `{"current_game":2}`, string(msg.Payload))

	// When: the client goes away
	require.NoError(t, conn.Close())

	// Then: the subscription is released
	select {
	case <-subscriber.unsubscribed:
	case <-time.After(5 * time.Second):
		t.Fatal("subscription was not released")
	}
}
