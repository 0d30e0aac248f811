// SPDX-License-Identifier: MIT
package display

import (
	_ "embed"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"lcdspectrum/internal/render"

	"github.com/gorilla/websocket"
)

const (
	writeWait   = 2 * time.Second
	queueFrames = 4 // Frames buffered for slow clients before dropping
)

//go:embed viewer.html
var viewerPage []byte

// WebSocket streams frames to browser clients as binary messages holding
// the raw frame buffer, little-endian words in GRAM order. "/" serves a page
// that decodes and paints them; "/ws" is the stream.
//
// Thread Safety:
// - Blit never blocks on the network, frames are dropped when the queue is full
// - The client map is guarded by a mutex
type WebSocket struct {
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	broadcast chan []byte
	listener  net.Listener
	server    *http.Server
	done      chan struct{}
	closeOnce sync.Once
	dropped   int
}

// NewWebSocket listens on addr and starts serving.
func NewWebSocket(addr string) (*WebSocket, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	ws := &WebSocket{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4 * render.Words,
			CheckOrigin: func(r *http.Request) bool {
				return true // The viewer may be served from anywhere
			},
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan []byte, queueFrames),
		listener:  ln,
		done:      make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", ws.handleWebSocket)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(viewerPage)
	})
	ws.server = &http.Server{Handler: mux}

	go func() {
		logger.Infof("websocket server listening on %s", ln.Addr())
		if err := ws.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("websocket server error: %v", err)
		}
	}()
	go ws.handleBroadcasts()

	return ws, nil
}

// Addr returns the address the server listens on.
func (ws *WebSocket) Addr() net.Addr { return ws.listener.Addr() }

// Clients returns the number of connected clients.
func (ws *WebSocket) Clients() int {
	ws.clientsMu.Lock()
	defer ws.clientsMu.Unlock()
	return len(ws.clients)
}

func (ws *WebSocket) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warnf("websocket upgrade error: %v", err)
		return
	}

	ws.clientsMu.Lock()
	ws.clients[conn] = true
	total := len(ws.clients)
	ws.clientsMu.Unlock()
	logger.Infof("client connected, total: %d", total)

	// Clients never send; reading only detects the close.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				ws.remove(conn)
				return
			}
		}
	}()
}

func (ws *WebSocket) remove(conn *websocket.Conn) {
	ws.clientsMu.Lock()
	_, ok := ws.clients[conn]
	delete(ws.clients, conn)
	total := len(ws.clients)
	ws.clientsMu.Unlock()

	conn.Close()
	if ok {
		logger.Infof("client disconnected, total: %d", total)
	}
}

func (ws *WebSocket) handleBroadcasts() {
	for {
		select {
		case <-ws.done:
			return
		case data := <-ws.broadcast:
			ws.clientsMu.Lock()
			for client := range ws.clients {
				client.SetWriteDeadline(time.Now().Add(writeWait))
				if err := client.WriteMessage(websocket.BinaryMessage, data); err != nil {
					logger.Warnf("error sending to client: %v", err)
					client.Close()
					delete(ws.clients, client)
				}
			}
			ws.clientsMu.Unlock()
		}
	}
}

// Blit queues a copy of buf for every connected client.
func (ws *WebSocket) Blit(x, y, width, height int, buf *render.PixelBuffer) error {
	if err := checkFullFrame(x, y, width, height); err != nil {
		return err
	}

	select {
	case <-ws.done:
		return errors.New("websocket sink closed")
	default:
	}

	if ws.Clients() == 0 {
		return nil
	}

	select {
	case ws.broadcast <- buf.Bytes(nil):
	default:
		ws.dropped++
		logger.Debugf("queue full, dropped %d frames", ws.dropped)
	}
	return nil
}

// Close disconnects all clients and shuts the server down. It is safe to
// call more than once.
func (ws *WebSocket) Close() error {
	var err error
	ws.closeOnce.Do(func() {
		close(ws.done)

		ws.clientsMu.Lock()
		for client := range ws.clients {
			client.Close()
		}
		clear(ws.clients)
		ws.clientsMu.Unlock()

		err = ws.server.Close()
	})
	return err
}
