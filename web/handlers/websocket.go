package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// turnTimeout bounds one full pipeline turn issued over the chat socket.
// Image and 3D generation dominate; the HTTP clients carry their own
// per-call timeouts below this ceiling.
const turnTimeout = 10 * time.Minute

// chatRequest is one inbound chat message on the WebSocket.
type chatRequest struct {
	Username string `json:"username"`
	Prompt   string `json:"prompt"`
}

// Chat handles the /ws endpoint: a long-lived chat connection where each
// inbound message runs one pipeline turn and the TurnResult is streamed
// back. The connection closes when the client goes away or a write fails.
func (a *API) Chat(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Printf("handlers: websocket accept failed: %v", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "connection closed")

	ctx := r.Context()
	for {
		var req chatRequest
		if err := wsjson.Read(ctx, conn, &req); err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
				websocket.CloseStatus(err) == websocket.StatusGoingAway {
				_ = conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			log.Printf("handlers: websocket read failed: %v", err)
			return
		}

		if strings.TrimSpace(req.Prompt) == "" {
			if err := wsjson.Write(ctx, conn, map[string]string{"error": "prompt is required"}); err != nil {
				return
			}
			continue
		}

		turnCtx, cancel := context.WithTimeout(ctx, turnTimeout)
		result := a.orchestrator.RunTurn(turnCtx, req.Username, req.Prompt)
		cancel()

		if err := wsjson.Write(ctx, conn, result); err != nil {
			log.Printf("handlers: websocket write failed: %v", err)
			return
		}
	}
}
