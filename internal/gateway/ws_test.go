package gateway

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

func TestGateway_WebSocket(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(newTestGateway(t, nil).buildRouter())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, srv.URL+"/ws/chat", nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "") //nolint:errcheck

	// Empty message gets an in-band error, not a closed connection.
	if err := wsjson.Write(ctx, conn, MessageRequest{}); err != nil {
		t.Fatalf("write empty: %v", err)
	}
	var werr wsError
	if err := wsjson.Read(ctx, conn, &werr); err != nil {
		t.Fatalf("read error frame: %v", err)
	}
	if werr.Error == "" {
		t.Fatal("expected a validation error frame")
	}

	if err := wsjson.Write(ctx, conn, MessageRequest{Message: "I feel stuck lately."}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var resp MessageResponse
	if err := wsjson.Read(ctx, conn, &resp); err != nil {
		t.Fatalf("read: %v", err)
	}
	if resp.Response != stubReply {
		t.Errorf("Response = %q, want %q", resp.Response, stubReply)
	}
	if resp.SessionID == "" {
		t.Fatal("expected a session id")
	}

	// The session id rides in each frame; a second message continues the
	// same conversation.
	if err := wsjson.Write(ctx, conn, MessageRequest{Message: "still stuck", SessionID: resp.SessionID}); err != nil {
		t.Fatalf("write second: %v", err)
	}
	var second MessageResponse
	if err := wsjson.Read(ctx, conn, &second); err != nil {
		t.Fatalf("read second: %v", err)
	}
	if second.SessionID != resp.SessionID {
		t.Errorf("session id changed across frames: %q != %q", second.SessionID, resp.SessionID)
	}

	if err := conn.Close(websocket.StatusNormalClosure, ""); err != nil {
		t.Fatalf("close: %v", err)
	}
}
