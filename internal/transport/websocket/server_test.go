package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
)

func dialHub(t *testing.T, hub *Hub, userID int64) *gws.Conn {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
		hub.HandleWebSocket(w, r, id)
	}))
	t.Cleanup(server.Close)

	wsURL := "ws" + server.URL[4:] + "?user_id=" + strconv.FormatInt(userID, 10)
	conn, _, err := gws.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	// give the hub time to register the connection
	time.Sleep(100 * time.Millisecond)
	return conn
}

func TestHubBroadcastToSingleUser(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	conn := dialHub(t, hub, 7)

	hub.Broadcast(7, &Message{
		Type:    "invoice.paid",
		Channel: "ledger",
		Data:    map[string]interface{}{"invoice_id": float64(42)},
	})

	conn.SetReadDeadline(time.Now().Add(1 * time.Second))
	var received Message
	if err := conn.ReadJSON(&received); err != nil {
		t.Fatalf("Failed to read message: %v", err)
	}

	if received.Type != "invoice.paid" {
		t.Errorf("Expected type 'invoice.paid', got '%s'", received.Type)
	}
	if received.UserID != 7 {
		t.Errorf("Expected userID 7, got %d", received.UserID)
	}
}

func TestHubBroadcastAllReachesEveryUser(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	connA := dialHub(t, hub, 1)
	connB := dialHub(t, hub, 2)

	hub.BroadcastAll(&Message{
		Type:    "pdc.bounced",
		Channel: "ledger",
		Data:    map[string]interface{}{"pdc_id": float64(9)},
	})

	for _, conn := range []*gws.Conn{connA, connB} {
		conn.SetReadDeadline(time.Now().Add(1 * time.Second))
		var received Message
		if err := conn.ReadJSON(&received); err != nil {
			t.Fatalf("Failed to read message: %v", err)
		}
		if received.Type != "pdc.bounced" {
			t.Errorf("Expected type 'pdc.bounced', got '%s'", received.Type)
		}
	}
}

func TestHubBroadcastUnknownUserDoesNotBlock(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	done := make(chan struct{})
	go func() {
		hub.Broadcast(999, &Message{Type: "noop", Data: nil})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast to unknown user blocked")
	}
}
