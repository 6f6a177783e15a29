package live

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/lumen-dev/lumen/pkg/reactive"
)

// Frame types exchanged over the WebSocket.
const (
	// FrameHello carries the full value map, sent once after connect.
	FrameHello = "hello"
	// FrameUpdate carries the full value map after a settled change.
	FrameUpdate = "update"
	// FrameSet is a client write to one exposed signal.
	FrameSet = "set"
	// FrameError reports a rejected client frame.
	FrameError = "error"
)

// Frame is the JSON envelope for all WebSocket messages.
type Frame struct {
	Type    string                     `json:"type"`
	Values  map[string]json.RawMessage `json:"values,omitempty"`
	Name    string                     `json:"name,omitempty"`
	Value   json.RawMessage            `json:"value,omitempty"`
	Message string                     `json:"message,omitempty"`
}

// Router returns the HTTP surface of the bridge:
//
//	GET /signals  current values of all exposed signals as JSON
//	GET /ws       WebSocket upgrade for the live protocol
//
// Mount it on an existing router or serve it directly.
func (b *Bridge) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/signals", b.handleSignals)
	r.Get("/ws", b.handleWebSocket)
	return r
}

func (b *Bridge) handleSignals(w http.ResponseWriter, r *http.Request) {
	var values map[string]json.RawMessage
	if ok := b.Sync(func() {
		values = b.values()
	}); !ok {
		http.Error(w, "bridge closed", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(values); err != nil {
		b.logger.Error("signals encode error", "error", err)
	}
}

func (b *Bridge) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     b.config.CheckOrigin,
	}
	sock, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Error("upgrade error", "error", err)
		return
	}

	c := &conn{
		bridge: b,
		sock:   sock,
		out:    make(chan []byte, b.config.SendBuffer),
		quit:   make(chan struct{}),
	}
	b.logger.Info("client connected", "remote", sock.RemoteAddr())

	// The watch effect lives on the graph's goroutine. Its first run
	// sends the hello frame; every settled change after that sends an
	// update frame.
	var watch *reactive.Effect
	if ok := b.Sync(func() {
		first := true
		watch = reactive.NewEffect(b.sys, func() reactive.Cleanup {
			kind := FrameUpdate
			if first {
				kind = FrameHello
				first = false
			}
			c.send(Frame{Type: kind, Values: b.values()})
			return nil
		})
	}); !ok {
		sock.Close()
		return
	}

	go c.writeLoop()
	c.readLoop()

	b.Dispatch(watch.Stop)
	c.close()
	b.logger.Info("client disconnected", "remote", sock.RemoteAddr())
}

// conn is one WebSocket client.
type conn struct {
	bridge *Bridge
	sock   *websocket.Conn

	out  chan []byte
	quit chan struct{}
	once sync.Once
}

func (c *conn) close() {
	c.once.Do(func() {
		close(c.quit)
		c.sock.Close()
	})
}

// send queues a frame for the write loop. A client whose buffer is full
// is too far behind to ever catch up on full-state frames; drop it.
func (c *conn) send(f Frame) {
	data, err := json.Marshal(f)
	if err != nil {
		c.bridge.logger.Error("frame encode error", "error", err)
		return
	}
	select {
	case c.out <- data:
	case <-c.quit:
	default:
		c.bridge.logger.Warn("client too slow, dropping", "remote", c.sock.RemoteAddr())
		c.close()
	}
}

func (c *conn) writeLoop() {
	for {
		select {
		case data := <-c.out:
			c.sock.SetWriteDeadline(time.Now().Add(c.bridge.config.WriteTimeout))
			if err := c.sock.WriteMessage(websocket.TextMessage, data); err != nil {
				c.bridge.logger.Error("write error", "error", err)
				c.close()
				return
			}
		case <-c.quit:
			return
		}
	}
}

func (c *conn) readLoop() {
	for {
		c.sock.SetReadDeadline(time.Now().Add(c.bridge.config.ReadTimeout))
		_, msg, err := c.sock.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.bridge.logger.Error("read error", "error", err)
			}
			return
		}

		var f Frame
		if err := json.Unmarshal(msg, &f); err != nil {
			c.send(Frame{Type: FrameError, Message: "invalid frame"})
			continue
		}

		switch f.Type {
		case FrameSet:
			c.handleSet(f)
		default:
			c.send(Frame{Type: FrameError, Message: "unknown frame type: " + f.Type})
		}
	}
}

func (c *conn) handleSet(f Frame) {
	name, value := f.Name, f.Value
	c.bridge.Dispatch(func() {
		target, ok := c.bridge.cells[name]
		if !ok {
			c.send(Frame{Type: FrameError, Message: "unknown signal: " + name})
			return
		}
		if err := target.set(value); err != nil {
			c.send(Frame{Type: FrameError, Message: "set " + name + ": " + err.Error()})
		}
	})
}
