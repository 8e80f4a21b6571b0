// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"enginesound/internal/log"
	"enginesound/pkg/utils"

	"github.com/gorilla/websocket"
)

func TestMultiFansOut(t *testing.T) {
	a, b := &utils.MockTransport{}, &utils.MockTransport{}
	b.SendErr = errors.New("b down")
	m := Multi{a, b}

	err := m.Send("hello")
	if err == nil || !strings.Contains(err.Error(), "b down") {
		t.Errorf("Send() error = %v, want b's error", err)
	}
	if a.Count() != 1 {
		t.Errorf("healthy transport saw %d sends, want 1", a.Count())
	}

	if err := m.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if !a.Closed || !b.Closed {
		t.Error("Close() did not reach every transport")
	}
}

func TestLoggingTransport(t *testing.T) {
	prev := log.GetLevel()
	defer log.SetLevel(prev)

	var sb strings.Builder
	log.SetOutput(&sb)
	defer log.SetOutput(os.Stderr)
	log.SetLevel(log.LevelDebug)

	lt := NewLoggingTransport()
	if err := lt.Send(map[string]float64{"gain": 1.5}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if err := lt.Send(func() {}); err != nil {
		t.Errorf("Send() of an unmarshalable value = %v, want nil", err)
	}
	if !strings.Contains(sb.String(), `{"gain":1.5}`) {
		t.Errorf("log output %q missing JSON payload", sb.String())
	}
	lt.Close()
}

func dialTransport(t *testing.T, wst *WebSocketTransport) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(wst.Handler())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/telemetry"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for wst.Clients() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if wst.Clients() != 1 {
		t.Fatalf("Clients() = %d, want 1", wst.Clients())
	}
	return conn
}

func TestWebSocketBroadcast(t *testing.T) {
	wst := NewWebSocketTransport("127.0.0.1:0", "/telemetry", 0)
	defer wst.Close()
	conn := dialTransport(t, wst)

	type msg struct {
		Type  string  `json:"type"`
		Value float64 `json:"value"`
	}
	if err := wst.Send(msg{Type: "telemetry", Value: 0.5}); err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error: %v", err)
	}
	var got msg
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("payload %q is not JSON: %v", data, err)
	}
	if got.Type != "telemetry" || got.Value != 0.5 {
		t.Errorf("received %+v", got)
	}
}

func TestWebSocketRateLimit(t *testing.T) {
	wst := NewWebSocketTransport("127.0.0.1:0", "/telemetry", time.Hour)
	defer wst.Close()
	conn := dialTransport(t, wst)

	wst.Send(1)
	wst.Send(2)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, data, err := conn.ReadMessage(); err != nil || string(data) != "1" {
		t.Fatalf("first message = %q, %v; want 1", data, err)
	}

	conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, data, err := conn.ReadMessage(); err == nil {
		t.Errorf("rate-limited message %q was delivered", data)
	}
}

func TestWebSocketStartAndClose(t *testing.T) {
	wst := NewWebSocketTransport("127.0.0.1:0", "", 0)
	if err := wst.Start(); err != nil {
		t.Skipf("cannot listen on loopback: %v", err)
	}
	if strings.HasSuffix(wst.Addr(), ":0") {
		t.Errorf("Addr() = %q, want the bound port", wst.Addr())
	}

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+wst.Addr()+"/ws", nil)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	defer conn.Close()

	if err := wst.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
	if err := wst.Close(); err != nil {
		t.Errorf("second Close() error: %v", err)
	}
	if err := wst.Send("late"); !errors.Is(err, ErrClosed) {
		t.Errorf("Send() after Close = %v, want ErrClosed", err)
	}
}
