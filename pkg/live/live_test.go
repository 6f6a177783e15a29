package live

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lumen-dev/lumen/pkg/reactive"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func newTestBridge(t *testing.T) *Bridge {
	t.Helper()
	b := NewBridge(reactive.NewSystem(),
		WithLogger(testLogger()),
		WithCheckOrigin(func(*http.Request) bool { return true }),
	)
	t.Cleanup(b.Close)
	return b
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := strings.Replace(srv.URL, "http://", "ws://", 1) + "/ws"
	sock, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { sock.Close() })
	return sock
}

func readFrame(t *testing.T, sock *websocket.Conn) Frame {
	t.Helper()
	sock.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := sock.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var f Frame
	if err := json.Unmarshal(msg, &f); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	return f
}

func writeFrame(t *testing.T, sock *websocket.Conn, f Frame) {
	t.Helper()
	data, err := json.Marshal(f)
	if err != nil {
		t.Fatal(err)
	}
	if err := sock.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write frame: %v", err)
	}
}

func TestExposeRejectsDuplicates(t *testing.T) {
	b := newTestBridge(t)
	var count *reactive.Signal[int]
	b.Sync(func() { count = reactive.NewSignal(b.sys, 0) })

	if err := Expose(b, "count", count); err != nil {
		t.Fatalf("first expose: %v", err)
	}
	if err := Expose(b, "count", count); err == nil {
		t.Error("expected duplicate expose to fail")
	}
}

func TestSignalsEndpoint(t *testing.T) {
	b := newTestBridge(t)
	var count *reactive.Signal[int]
	var name *reactive.Signal[string]
	b.Sync(func() {
		count = reactive.NewSignal(b.sys, 42)
		name = reactive.NewSignal(b.sys, "ada")
	})
	if err := Expose(b, "count", count); err != nil {
		t.Fatal(err)
	}
	if err := Expose(b, "name", name); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(b.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/signals")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var values map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&values); err != nil {
		t.Fatal(err)
	}
	if string(values["count"]) != "42" {
		t.Errorf("expected count 42, got %s", values["count"])
	}
	if string(values["name"]) != `"ada"` {
		t.Errorf("expected name %q, got %s", `"ada"`, values["name"])
	}
}

func TestWebSocketHelloThenUpdate(t *testing.T) {
	b := newTestBridge(t)
	var count *reactive.Signal[int]
	b.Sync(func() { count = reactive.NewSignal(b.sys, 1) })
	if err := Expose(b, "count", count); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(b.Router())
	defer srv.Close()
	sock := dialWS(t, srv)

	hello := readFrame(t, sock)
	if hello.Type != FrameHello {
		t.Fatalf("expected hello frame, got %q", hello.Type)
	}
	if string(hello.Values["count"]) != "1" {
		t.Errorf("expected count 1 in hello, got %s", hello.Values["count"])
	}

	// A server-side write reaches the client as an update.
	b.Dispatch(func() { count.Set(2) })

	update := readFrame(t, sock)
	if update.Type != FrameUpdate {
		t.Fatalf("expected update frame, got %q", update.Type)
	}
	if string(update.Values["count"]) != "2" {
		t.Errorf("expected count 2 in update, got %s", update.Values["count"])
	}
}

func TestWebSocketSetRoundTrip(t *testing.T) {
	b := newTestBridge(t)
	var count *reactive.Signal[int]
	b.Sync(func() { count = reactive.NewSignal(b.sys, 1) })
	if err := Expose(b, "count", count); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(b.Router())
	defer srv.Close()
	sock := dialWS(t, srv)

	if f := readFrame(t, sock); f.Type != FrameHello {
		t.Fatalf("expected hello frame, got %q", f.Type)
	}

	writeFrame(t, sock, Frame{Type: FrameSet, Name: "count", Value: json.RawMessage("7")})

	update := readFrame(t, sock)
	if update.Type != FrameUpdate {
		t.Fatalf("expected update frame, got %q", update.Type)
	}
	if string(update.Values["count"]) != "7" {
		t.Errorf("expected count 7 after set, got %s", update.Values["count"])
	}

	var got int
	b.Sync(func() { got = count.Peek() })
	if got != 7 {
		t.Errorf("expected signal value 7, got %d", got)
	}
}

func TestWebSocketRejectsBadFrames(t *testing.T) {
	b := newTestBridge(t)
	var count *reactive.Signal[int]
	b.Sync(func() { count = reactive.NewSignal(b.sys, 1) })
	if err := Expose(b, "count", count); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(b.Router())
	defer srv.Close()
	sock := dialWS(t, srv)

	if f := readFrame(t, sock); f.Type != FrameHello {
		t.Fatalf("expected hello frame, got %q", f.Type)
	}

	writeFrame(t, sock, Frame{Type: FrameSet, Name: "missing", Value: json.RawMessage("1")})
	if f := readFrame(t, sock); f.Type != FrameError {
		t.Errorf("expected error frame for unknown signal, got %q", f.Type)
	}

	writeFrame(t, sock, Frame{Type: FrameSet, Name: "count", Value: json.RawMessage(`"not a number"`)})
	if f := readFrame(t, sock); f.Type != FrameError {
		t.Errorf("expected error frame for type mismatch, got %q", f.Type)
	}
}

func TestWebSocketDerivedValuesPropagate(t *testing.T) {
	b := newTestBridge(t)
	var celsius *reactive.Signal[int]
	var fahrenheit *reactive.Signal[int]
	b.Sync(func() {
		celsius = reactive.NewSignal(b.sys, 0)
		derived := reactive.NewComputed(b.sys, func() int {
			return celsius.Get()*9/5 + 32
		})
		fahrenheit = reactive.NewSignal(b.sys, derived.Get())
		reactive.NewEffect(b.sys, func() reactive.Cleanup {
			fahrenheit.Set(derived.Get())
			return nil
		})
	})
	if err := Expose(b, "celsius", celsius); err != nil {
		t.Fatal(err)
	}
	if err := Expose(b, "fahrenheit", fahrenheit); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(b.Router())
	defer srv.Close()
	sock := dialWS(t, srv)

	hello := readFrame(t, sock)
	if string(hello.Values["fahrenheit"]) != "32" {
		t.Fatalf("expected fahrenheit 32, got %s", hello.Values["fahrenheit"])
	}

	writeFrame(t, sock, Frame{Type: FrameSet, Name: "celsius", Value: json.RawMessage("100")})

	// The set produces updates; the last settled one must carry both
	// the written and the derived value.
	deadline := time.Now().Add(5 * time.Second)
	for {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for settled update")
		}
		f := readFrame(t, sock)
		if f.Type != FrameUpdate {
			t.Fatalf("expected update frame, got %q", f.Type)
		}
		if string(f.Values["celsius"]) == "100" && string(f.Values["fahrenheit"]) == "212" {
			return
		}
	}
}
