package transport

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"enginesound/internal/log"

	"github.com/gorilla/websocket"
)

var wsLogger = log.New("websocket")

// WebSocketTransport broadcasts JSON messages to every connected client.
// Sends are queued and dropped when the queue is full or when they arrive
// faster than the minimum send interval.
type WebSocketTransport struct {
	addr     string
	path     string
	upgrader websocket.Upgrader

	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex

	broadcast       chan any
	minSendInterval time.Duration
	lastSend        time.Time
	sendMu          sync.Mutex

	server    *http.Server
	listener  net.Listener
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewWebSocketTransport creates a transport serving path on addr. The
// broadcast loop starts immediately; the HTTP listener starts with Start.
func NewWebSocketTransport(addr, path string, minSendInterval time.Duration) *WebSocketTransport {
	if path == "" {
		path = "/ws"
	}
	wst := &WebSocketTransport{
		addr: addr,
		path: path,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins
			},
		},
		clients:         make(map[*websocket.Conn]bool),
		broadcast:       make(chan any, 256),
		minSendInterval: minSendInterval,
		done:            make(chan struct{}),
	}

	wst.wg.Add(1)
	go wst.handleBroadcasts()
	return wst
}

// Handler returns the upgrade handler mounted at the configured path.
func (wst *WebSocketTransport) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(wst.path, wst.handleWebSocket)
	return mux
}

// Start listens on the configured address and serves in the background.
func (wst *WebSocketTransport) Start() error {
	ln, err := net.Listen("tcp", wst.addr)
	if err != nil {
		return err
	}
	wst.listener = ln
	wst.server = &http.Server{
		Handler:           wst.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	wst.wg.Add(1)
	go func() {
		defer wst.wg.Done()
		wsLogger.Infof("Serving telemetry on ws://%s%s", ln.Addr(), wst.path)
		if err := wst.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			wsLogger.Errorf("Server error: %v", err)
		}
	}()
	return nil
}

// Addr returns the bound listener address, or the configured one before
// Start.
func (wst *WebSocketTransport) Addr() string {
	if wst.listener != nil {
		return wst.listener.Addr().String()
	}
	return wst.addr
}

func (wst *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		wsLogger.Warnf("Upgrade error: %v", err)
		return
	}

	wst.clientsMu.Lock()
	wst.clients[conn] = true
	total := len(wst.clients)
	wst.clientsMu.Unlock()
	wsLogger.Infof("Client connected, total: %d", total)

	// Reads only detect disconnects; clients never send anything we use.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				wst.removeClient(conn)
				return
			}
		}
	}()
}

func (wst *WebSocketTransport) removeClient(conn *websocket.Conn) {
	wst.clientsMu.Lock()
	_, ok := wst.clients[conn]
	delete(wst.clients, conn)
	total := len(wst.clients)
	wst.clientsMu.Unlock()

	conn.Close()
	if ok {
		wsLogger.Infof("Client disconnected, total: %d", total)
	}
}

// Clients returns the number of connected clients.
func (wst *WebSocketTransport) Clients() int {
	wst.clientsMu.Lock()
	defer wst.clientsMu.Unlock()
	return len(wst.clients)
}

func (wst *WebSocketTransport) handleBroadcasts() {
	defer wst.wg.Done()
	for {
		select {
		case <-wst.done:
			return
		case data := <-wst.broadcast:
			payload, err := json.Marshal(data)
			if err != nil {
				wsLogger.Errorf("Marshal error: %v", err)
				continue
			}

			wst.clientsMu.Lock()
			for client := range wst.clients {
				client.SetWriteDeadline(time.Now().Add(time.Second))
				if err := client.WriteMessage(websocket.TextMessage, payload); err != nil {
					wsLogger.Warnf("Error sending to client: %v", err)
					client.Close()
					delete(wst.clients, client)
				}
			}
			wst.clientsMu.Unlock()
		}
	}
}

// Send queues data for broadcast. Rate-limited and overflowing messages are
// dropped silently.
func (wst *WebSocketTransport) Send(data any) error {
	select {
	case <-wst.done:
		return ErrClosed
	default:
	}

	if wst.minSendInterval > 0 {
		wst.sendMu.Lock()
		now := time.Now()
		if now.Sub(wst.lastSend) < wst.minSendInterval {
			wst.sendMu.Unlock()
			return nil
		}
		wst.lastSend = now
		wst.sendMu.Unlock()
	}

	select {
	case wst.broadcast <- data:
	default:
	}
	return nil
}

// Close disconnects every client and shuts down the server.
func (wst *WebSocketTransport) Close() error {
	var err error
	wst.closeOnce.Do(func() {
		wsLogger.Infof("Closing server")
		close(wst.done)

		if wst.server != nil {
			err = wst.server.Close()
		}

		wst.clientsMu.Lock()
		for client := range wst.clients {
			client.Close()
		}
		wst.clients = make(map[*websocket.Conn]bool)
		wst.clientsMu.Unlock()

		wst.wg.Wait()
	})
	return err
}

var _ Transport = (*WebSocketTransport)(nil)
