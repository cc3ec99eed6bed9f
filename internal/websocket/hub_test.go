package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkingapp/internal/config"
	"parkingapp/internal/shared/testutil"
	"parkingapp/internal/store"
	"parkingapp/pkg/contracts/events"
)

// fakeConn is an in-memory Connection. Reads are served from inbound until
// it is exhausted, then fail.
type fakeConn struct {
	mu      sync.Mutex
	inbound [][]byte
	written []writtenFrame
	closed  bool
}

type writtenFrame struct {
	kind int
	data []byte
}

func (f *fakeConn) WriteMessage(kind int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("closed")
	}
	f.written = append(f.written, writtenFrame{kind: kind, data: data})
	return nil
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.inbound) == 0 {
		return 0, nil, &websocket.CloseError{Code: websocket.CloseGoingAway}
	}
	msg := f.inbound[0]
	f.inbound = f.inbound[1:]
	return websocket.TextMessage, msg, nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) frames() []writtenFrame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]writtenFrame(nil), f.written...)
}

func (f *fakeConn) SetReadDeadline(time.Time) error   { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error  { return nil }
func (f *fakeConn) SetReadLimit(int64)                {}
func (f *fakeConn) SetPongHandler(func(string) error) {}
func (f *fakeConn) RemoteAddr() string                { return "192.0.2.1:5000" }

func testConfig() config.WebSocketConfig {
	return config.Default().WebSocket
}

func readMessage(t *testing.T, ws *websocket.Conn) events.Message {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg events.Message
	require.NoError(t, ws.ReadJSON(&msg))
	return msg
}

// sessionServer serves the hub with st as every request's session store.
// A nil st leaves the context without one.
func sessionServer(hub *Hub, st *store.Store, origins []string) *httptest.Server {
	handler := hub.Handler(origins)
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if st != nil {
			r = r.WithContext(store.WithStore(r.Context(), st))
		}
		handler.ServeHTTP(w, r)
	}))
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func decodeSnapshot(t *testing.T, msg events.Message) store.Snapshot {
	t.Helper()
	require.Equal(t, events.MessageTypeSnapshot, msg.Type)
	raw, err := json.Marshal(msg.Data)
	require.NoError(t, err)
	var snap store.Snapshot
	require.NoError(t, json.Unmarshal(raw, &snap))
	return snap
}

func TestHub_StreamsSnapshots(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	st := store.New()
	hub := NewHub(testConfig(), nil, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := sessionServer(hub, st, nil)
	defer srv.Close()

	ws := dial(t, srv)

	hello := readMessage(t, ws)
	assert.Equal(t, events.MessageTypeConnect, hello.Type)

	initial := readMessage(t, ws)
	assert.Equal(t, events.MessageTypeSnapshot, initial.Type)
	assert.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	st.Tickets.Pending()

	update := readMessage(t, ws)
	snap := decodeSnapshot(t, update)
	assert.True(t, snap.Tickets.IsLoading)
	raw, err := json.Marshal(update.Data)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "token", "auth token never leaves the gateway")

	cancel()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = ws.ReadMessage()
	assert.Error(t, err, "hub shutdown closes the stream")
}

func TestHub_StreamsOnlyOwnSession(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(testConfig(), nil, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	alice, bob := store.New(), store.New()
	aliceSrv := sessionServer(hub, alice, nil)
	defer aliceSrv.Close()
	bobSrv := sessionServer(hub, bob, nil)
	defer bobSrv.Close()

	aliceWS := dial(t, aliceSrv)
	bobWS := dial(t, bobSrv)
	for _, ws := range []*websocket.Conn{aliceWS, bobWS} {
		assert.Equal(t, events.MessageTypeConnect, readMessage(t, ws).Type)
		assert.Equal(t, events.MessageTypeSnapshot, readMessage(t, ws).Type)
	}
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 10*time.Millisecond)

	alice.Tickets.Pending()
	assert.True(t, decodeSnapshot(t, readMessage(t, aliceWS)).Tickets.IsLoading)

	bob.Vehicles.Pending()
	snap := decodeSnapshot(t, readMessage(t, bobWS))
	assert.True(t, snap.Vehicles.IsLoading)
	assert.False(t, snap.Tickets.IsLoading, "bob never sees alice's state")
}

func TestHub_Handler(t *testing.T) {
	tests := []struct {
		name    string
		session bool
		origin  string
		status  int
	}{
		{name: "no session", session: false, status: http.StatusUnauthorized},
		{name: "foreign origin", session: true, origin: "https://evil.example.com", status: http.StatusForbidden},
		{name: "no session foreign origin", session: false, origin: "https://evil.example.com", status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := testutil.NewTestLogger(t)
			hub := NewHub(testConfig(), nil, logger)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go hub.Run(ctx)

			var st *store.Store
			if tt.session {
				st = store.New()
			}
			srv := sessionServer(hub, st, []string{"https://app.example.com"})
			defer srv.Close()

			header := http.Header{}
			if tt.origin != "" {
				header.Set("Origin", tt.origin)
			}
			_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), header)
			require.Error(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Zero(t, hub.ClientCount())
		})
	}
}

func TestHub_UnsubscribesWithLastClient(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(testConfig(), nil, logger)
	ctx := context.Background()
	st := store.New()

	first := NewClient(hub, &fakeConn{}, st, "")
	second := NewClient(hub, &fakeConn{}, st, "")
	hub.add(ctx, first)
	hub.add(ctx, second)
	require.Len(t, hub.streams, 1)

	hub.remove(ctx, first, "test")
	require.Len(t, hub.streams, 1)
	hub.remove(ctx, second, "test")
	assert.Empty(t, hub.streams)

	st.Tickets.Pending()
	assert.Empty(t, hub.takeDirty(), "no listener left on the store")
}

func TestHub_DropsSlowConsumer(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	hub := NewHub(testConfig(), nil, logger)
	ctx := context.Background()

	c := NewClient(hub, &fakeConn{}, store.New(), "")
	hub.add(ctx, c)
	require.Equal(t, 1, hub.ClientCount())

	for i := 2; i < sendQueue; i++ {
		require.True(t, hub.deliver(ctx, c, []byte(`{}`)))
	}
	assert.False(t, hub.deliver(ctx, c, []byte(`{}`)))
	assert.Zero(t, hub.ClientCount())
	assert.True(t, logs.ContainsMessage("client send buffer full, disconnecting"))

	queued := 0
	for range c.send {
		queued++
	}
	assert.Equal(t, sendQueue, queued, "send queue is closed after the drop")
}

func TestClient_WritePump(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(testConfig(), nil, logger)
	conn := &fakeConn{}
	c := NewClient(hub, conn, store.New(), "trace-1")

	c.send <- []byte(`{"type":"state:snapshot"}`)
	close(c.send)
	c.WritePump()

	frames := conn.frames()
	require.Len(t, frames, 2)
	assert.Equal(t, websocket.TextMessage, frames[0].kind)
	assert.Equal(t, websocket.CloseMessage, frames[1].kind)
	assert.True(t, conn.closed)
}

func TestClient_ReadPumpUnregisters(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(testConfig(), nil, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	conn := &fakeConn{inbound: [][]byte{heartbeat, []byte("ignored")}}
	c := NewClient(hub, conn, store.New(), "")
	require.True(t, hub.Register(c))
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	c.ReadPump()

	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
	assert.True(t, conn.closed)
}

func TestHub_RegisterAfterStop(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(testConfig(), nil, logger)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	assert.False(t, hub.Register(NewClient(hub, &fakeConn{}, store.New(), "")))
}
