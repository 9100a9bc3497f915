package realtime

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/store"
)

const (
	writeWait = 5 * time.Second
	// sendBuffer é quantas mensagens um cliente pode acumular antes de ser
	// desconectado por lentidão.
	sendBuffer = 16
)

// LeadsChangedMessage avisa os navegadores que a coleção mudou; eles buscam
// a view de novo pela API.
type LeadsChangedMessage struct {
	Action  string `json:"action"`
	Version uint64 `json:"version"`
	Count   int    `json:"count"`
}

// client tem a própria goroutine de escrita; send fechado encerra a conexão.
type client struct {
	conn *websocket.Conn
	send chan LeadsChangedMessage
}

type Hub struct {
	upgrader websocket.Upgrader
	logger   *zap.Logger
	wg       sync.WaitGroup

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

func NewHub(checkOrigin func(r *http.Request) bool, logger *zap.Logger) *Hub {
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: checkOrigin},
		logger:   logger,
		clients:  make(map[*client]struct{}),
	}
}

// Attach liga o hub às mudanças de versão do store. A função devolvida desliga.
func (h *Hub) Attach(st *store.Store) func() {
	return st.Subscribe(func(version uint64) {
		h.Broadcast(LeadsChangedMessage{
			Action:  "leads_changed",
			Version: version,
			Count:   st.Len(),
		})
	})
}

// Broadcast enfileira msg para cada cliente sem esperar a rede. Cliente com a
// fila cheia é desconectado.
func (h *Hub) Broadcast(msg LeadsChangedMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Debug("cliente websocket lento, desconectando")
			h.removeLocked(c)
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP faz o upgrade e segura a conexão até o cliente sair. Mensagens
// vindas do cliente são ignoradas.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("upgrade websocket falhou", zap.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan LeadsChangedMessage, sendBuffer)}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.wg.Add(1)
	h.mu.Unlock()

	go h.writeLoop(c)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	h.removeLocked(c)
	h.mu.Unlock()
}

func (h *Hub) writeLoop(c *client) {
	defer h.wg.Done()
	defer c.conn.Close()

	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(msg); err != nil {
			h.logger.Debug("escrita websocket falhou", zap.Error(err))
			h.mu.Lock()
			h.removeLocked(c)
			h.mu.Unlock()
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
}

// removeLocked exige mu.
func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// Close derruba todos os clientes conectados e espera as escritas pendentes.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
	h.mu.Unlock()

	h.wg.Wait()
}
