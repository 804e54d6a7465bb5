package transport

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{Text, "text"},
		{Binary, "binary"},
		{Kind(9), "Kind(9)"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestPipe_SendReceive(t *testing.T) {
	a, b := Pipe()

	if err := a.Send(TextMessage("hello")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	msg, err := b.Receive()
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if msg.Kind != Text || msg.Text() != "hello" {
		t.Errorf("got %v %q, want text %q", msg.Kind, msg.Text(), "hello")
	}

	if err := b.Send(BinaryMessage([]byte{1, 2})); err != nil {
		t.Fatalf("Send: %v", err)
	}
	msg, err = a.Receive()
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if msg.Kind != Binary || len(msg.Data) != 2 {
		t.Errorf("got %v %v, want 2 binary bytes", msg.Kind, msg.Data)
	}
}

func TestPipe_CloseDrainsThenEOF(t *testing.T) {
	a, b := Pipe()
	_ = a.Send(TextMessage("last"))
	_ = a.Close()

	msg, err := b.Receive()
	if err != nil {
		t.Fatalf("Receive buffered: %v", err)
	}
	if msg.Text() != "last" {
		t.Errorf("got %q, want %q", msg.Text(), "last")
	}
	if _, err := b.Receive(); !errors.Is(err, io.EOF) {
		t.Errorf("Receive after close = %v, want io.EOF", err)
	}
	if err := b.Send(TextMessage("x")); !errors.Is(err, ErrClosed) {
		t.Errorf("Send after close = %v, want ErrClosed", err)
	}
}

func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn := NewConn(ws, ConnConfig{})
		defer conn.Close()
		for {
			msg, err := conn.Receive()
			if err != nil {
				return
			}
			if err := conn.Send(msg); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestConn_RoundTrip(t *testing.T) {
	srv := echoServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	conn := NewConn(ws, ConnConfig{WriteTimeout: time.Second})
	defer conn.Close()

	if err := conn.Send(TextMessage("ping")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	msg, err := conn.Receive()
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if msg.Kind != Text || msg.Text() != "ping" {
		t.Errorf("echo = %v %q, want text ping", msg.Kind, msg.Text())
	}

	if err := conn.Send(Message{Kind: Kind(7)}); !errors.Is(err, ErrUnsupportedKind) {
		t.Errorf("Send(unknown kind) = %v, want ErrUnsupportedKind", err)
	}
	if conn.RemoteAddr() == "" {
		t.Error("RemoteAddr should not be empty")
	}
}

func TestConn_PeerCloseIsEOF(t *testing.T) {
	closed := make(chan struct{})
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		NewConn(ws, ConnConfig{}).Close()
		close(closed)
	}))
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	conn := NewConn(ws, ConnConfig{})
	defer conn.Close()
	<-closed

	if _, err := conn.Receive(); !errors.Is(err, io.EOF) {
		t.Errorf("Receive after peer close = %v, want io.EOF", err)
	}
}
