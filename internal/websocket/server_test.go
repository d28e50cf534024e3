// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package websocket

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type staticTokens map[string]string

func (s staticTokens) ValidateToken(token string) (string, error) {
	if id, ok := s[token]; ok {
		return id, nil
	}
	return "", errors.New("bad token")
}

func newTestServer(t *testing.T, cfg ServerConfig) (*Hub, *httptest.Server) {
	t.Helper()
	hub := setupHub(t)
	srv := httptest.NewServer(NewServer(hub, staticTokens{"good": "alice", "good2": "alice"}, cfg).Routes("/ws"))
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func expectClose(t *testing.T, conn *websocket.Conn, code int, text string) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	var ce *websocket.CloseError
	if !errors.As(err, &ce) {
		t.Fatalf("read error = %v, want close error", err)
	}
	if ce.Code != code || ce.Text != text {
		t.Errorf("close = %d %q, want %d %q", ce.Code, ce.Text, code, text)
	}
}

func TestServer_AuthenticatesAndDelivers(t *testing.T) {
	hub, srv := newTestServer(t, ServerConfig{AuthTimeout: time.Second})
	conn := dial(t, srv)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("good")); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return hub.Connected("alice") })

	hub.Deliver("alice", []byte("you have mail"))
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	mt, body, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if mt != websocket.TextMessage || string(body) != "you have mail" {
		t.Errorf("received %d %q", mt, body)
	}
}

func TestServer_InvalidToken(t *testing.T) {
	hub, srv := newTestServer(t, ServerConfig{AuthTimeout: time.Second})
	conn := dial(t, srv)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("forged")); err != nil {
		t.Fatal(err)
	}
	expectClose(t, conn, websocket.CloseInternalServerErr, InvalidTokenReason)
	if hub.GetClientCount() != 0 {
		t.Error("unauthenticated client registered")
	}
}

func TestServer_AuthTimeout(t *testing.T) {
	_, srv := newTestServer(t, ServerConfig{AuthTimeout: 50 * time.Millisecond})
	conn := dial(t, srv)
	expectClose(t, conn, websocket.CloseInternalServerErr, InvalidTokenReason)
}

func TestServer_DisconnectUnregisters(t *testing.T) {
	hub, srv := newTestServer(t, ServerConfig{AuthTimeout: time.Second})
	conn := dial(t, srv)
	_ = conn.WriteMessage(websocket.TextMessage, []byte("good"))
	waitFor(t, func() bool { return hub.Connected("alice") })

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = conn.Close()
	waitFor(t, func() bool { return !hub.Connected("alice") })
}

func TestServer_SecondConnectionTakesOver(t *testing.T) {
	hub, srv := newTestServer(t, ServerConfig{AuthTimeout: time.Second})

	first := dial(t, srv)
	_ = first.WriteMessage(websocket.TextMessage, []byte("good"))
	waitFor(t, func() bool { return hub.Connected("alice") })

	second := dial(t, srv)
	_ = second.WriteMessage(websocket.TextMessage, []byte("good2"))

	// Deliver until the second connection receives; registration is async.
	received := make(chan string, 1)
	go func() {
		_ = second.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, body, err := second.ReadMessage()
		if err == nil {
			received <- string(body)
		}
		close(received)
	}()
	deadline := time.After(2 * time.Second)
	for {
		hub.Deliver("alice", []byte("ping"))
		select {
		case body := <-received:
			if body != "ping" {
				t.Fatalf("second received %q", body)
			}
			if hub.GetClientCount() != 1 {
				t.Errorf("client count = %d", hub.GetClientCount())
			}
			return
		case <-deadline:
			t.Fatal("second connection never received")
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestServer_CheckOrigin(t *testing.T) {
	s := NewServer(NewHub(1), staticTokens{}, ServerConfig{AllowedOrigins: []string{"https://app.example.com"}})

	tests := []struct {
		origin string
		want   bool
	}{
		{"https://app.example.com", true},
		{"https://evil.example.com", false},
		{"", true},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		if got := s.checkOrigin(r); got != tt.want {
			t.Errorf("checkOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}

	open := NewServer(NewHub(1), staticTokens{}, ServerConfig{})
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.Header.Set("Origin", "https://anything.example.com")
	if !open.checkOrigin(r) {
		t.Error("empty allow list rejected an origin")
	}
}

func TestServer_HealthRoute(t *testing.T) {
	_, srv := newTestServer(t, ServerConfig{})
	resp, err := http.Get(srv.URL + "/health/live")
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}
