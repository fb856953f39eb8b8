package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/stakerise/internal/domain"
)

type chanBus struct {
	mu   sync.Mutex
	subs map[string]chan []byte
}

func newChanBus() *chanBus { return &chanBus{subs: make(map[string]chan []byte)} }

func (b *chanBus) channel(name string) chan []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.subs[name]
	if !ok {
		ch = make(chan []byte, 8)
		b.subs[name] = ch
	}
	return ch
}

func (b *chanBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.channel(channel) <- payload
	return nil
}

func (b *chanBus) Subscribe(_ context.Context, channel string) (<-chan []byte, error) {
	return b.channel(channel), nil
}

func (b *chanBus) StreamAppend(context.Context, string, []byte) error { return nil }

func (b *chanBus) StreamRead(context.Context, string, string, int) ([]domain.StreamMessage, error) {
	return nil, nil
}

func startHub(t *testing.T) (*Hub, *chanBus, string) {
	t.Helper()
	bus := newChanBus()
	hub := NewHub(bus, slog.New(slog.NewTextHandler(io.Discard, nil)), Config{Mode: "Full"})

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return hub, bus, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func clientCount(h *Hub) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var env envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func TestHubRelaysBusEvents(t *testing.T) {
	hub, bus, url := startHub(t)
	conn := dial(t, url+"/ws")

	status := readEnvelope(t, conn)
	assert.Equal(t, "status", status.Type)
	assert.Contains(t, string(status.Payload), `"mode":"full"`)

	require.Eventually(t, func() bool { return clientCount(hub) == 1 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, bus.Publish(context.Background(), domain.ChannelStakeSynced, []byte(`{"wallet":"0xAbC","stakes":2}`)))

	env := readEnvelope(t, conn)
	assert.Equal(t, "event", env.Type)
	assert.Equal(t, domain.ChannelStakeSynced, env.Channel)
	assert.JSONEq(t, `{"wallet":"0xAbC","stakes":2}`, string(env.Payload))
}

func TestHubFiltersByWallet(t *testing.T) {
	hub, bus, url := startHub(t)
	conn := dial(t, url+"/ws?wallet=0xabc")
	readEnvelope(t, conn)
	require.Eventually(t, func() bool { return clientCount(hub) == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, bus.Publish(context.Background(), domain.ChannelStatements, []byte(`{"wallet":"0xdef"}`)))
	require.NoError(t, bus.Publish(context.Background(), domain.ChannelStatements, []byte(`{"wallet":"0xABC"}`)))

	env := readEnvelope(t, conn)
	assert.JSONEq(t, `{"wallet":"0xABC"}`, string(env.Payload))
}

func TestClientWants(t *testing.T) {
	c := &client{subs: map[string]bool{domain.ChannelStakeSynced: true}, wallet: "0xabc"}

	assert.True(t, c.wants(broadcastMsg{channel: domain.ChannelStakeSynced, wallet: "0xABC"}))
	assert.False(t, c.wants(broadcastMsg{channel: domain.ChannelStakeSynced, wallet: "0xdef"}))
	assert.False(t, c.wants(broadcastMsg{channel: domain.ChannelStatements, wallet: "0xabc"}))

	c.handleSubscription(subscribeMsg{Action: "subscribe", Channels: []string{domain.ChannelStatements}})
	assert.True(t, c.wants(broadcastMsg{channel: domain.ChannelStatements, wallet: "0xabc"}))

	c.handleSubscription(subscribeMsg{Action: "unsubscribe", Channels: []string{domain.ChannelStakeSynced}})
	assert.False(t, c.wants(broadcastMsg{channel: domain.ChannelStakeSynced, wallet: "0xabc"}))
}

func TestWrap(t *testing.T) {
	msg, err := wrap(domain.ChannelStatements, []byte(`{"wallet":"0x1","path":"statements/0x1/a.csv"}`))
	require.NoError(t, err)
	assert.Equal(t, "0x1", msg.wallet)
	assert.Contains(t, string(msg.data), `"channel":"statements"`)

	_, err = wrap(domain.ChannelStatements, []byte("not json"))
	assert.Error(t, err)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://app.stakerise.io"})

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, check(req), "no origin header")

	req.Header.Set("Origin", "https://app.stakerise.io")
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://evil.example")
	assert.False(t, check(req))
}
