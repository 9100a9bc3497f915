package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/store"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

// TestHubBroadcastsStoreChanges - cada nova versão do store chega aos clientes
func TestHubBroadcastsStoreChanges(t *testing.T) {
	hub := NewHub(nil, nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	st := store.New(nil)
	detach := hub.Attach(st)
	defer detach()

	conn := dial(t, srv)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	st.ReplaceAll([]entity.Lead{{ID: 1}, {ID: 2}})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg LeadsChangedMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "leads_changed", msg.Action)
	assert.Equal(t, uint64(1), msg.Version)
	assert.Equal(t, 2, msg.Count)
}

func TestHubDropsDisconnectedClients(t *testing.T) {
	hub := NewHub(nil, nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()

	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHubRejectsForbiddenOrigin(t *testing.T) {
	hub := NewHub(func(r *http.Request) bool { return false }, nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"https://evil.example"}})

	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHubCloseDisconnectsClients(t *testing.T) {
	hub := NewHub(nil, nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway))
	assert.Equal(t, 0, hub.ClientCount())
}

// TestBroadcastDoesNotWaitForStalledClient - cliente que não consome a fila é
// desconectado e não segura o broadcast
func TestBroadcastDoesNotWaitForStalledClient(t *testing.T) {
	hub := NewHub(nil, nil)
	stalled := &client{send: make(chan LeadsChangedMessage, sendBuffer)}
	hub.clients[stalled] = struct{}{}

	done := make(chan struct{})
	go func() {
		for i := 0; i <= sendBuffer; i++ {
			hub.Broadcast(LeadsChangedMessage{Action: "leads_changed", Version: uint64(i + 1)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast bloqueou em cliente parado")
	}
	assert.Equal(t, 0, hub.ClientCount())

	queued := 0
	for range stalled.send {
		queued++
	}
	assert.Equal(t, sendBuffer, queued)
}

func TestBroadcastReachesHealthyClientAlongsideStalledOne(t *testing.T) {
	hub := NewHub(nil, nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	conn := dial(t, srv)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.mu.Lock()
	hub.clients[&client{send: make(chan LeadsChangedMessage)}] = struct{}{}
	hub.mu.Unlock()

	hub.Broadcast(LeadsChangedMessage{Action: "leads_changed", Version: 7, Count: 1})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg LeadsChangedMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, uint64(7), msg.Version)
	assert.Equal(t, 1, hub.ClientCount())
}
