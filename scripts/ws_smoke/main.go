package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/wirechat-live/internal/proto"
)

func main() {
	addr := flag.String("addr", "ws://localhost:8080", "server base address")
	conversation := flag.Int64("conversation", 1, "conversation id to join")
	token := flag.String("token", "", "JWT issued by `wirechat-live token`")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	target := fmt.Sprintf("%s/ws/chat/%d?token=%s", *addr, *conversation, url.QueryEscape(*token))
	conn, _, err := websocket.Dial(ctx, target, nil)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "smoke done")

	msg, err := json.Marshal(*text)
	if err != nil {
		log.Fatalf("marshal text: %v", err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.TypeChatMessage, Message: msg}); err != nil {
		log.Fatalf("send chat_message: %v", err)
	}

	for {
		var frame map[string]json.RawMessage
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			if code := websocket.CloseStatus(err); code != -1 {
				log.Fatalf("server closed connection: %d", code)
			}
			log.Fatalf("read: %v", err)
		}

		var typ string
		_ = json.Unmarshal(frame["type"], &typ)
		switch typ {
		case proto.TypeChatMessage:
			var evt proto.ChatMessage
			if err := remarshal(frame, &evt); err != nil {
				log.Fatalf("decode chat_message: %v", err)
			}
			fmt.Printf("message from %s at %s: %s\n", evt.User.Username, evt.Timestamp, evt.Message)
			return
		case proto.TypeOnlineStatus:
			var evt proto.OnlineStatus
			if err := remarshal(frame, &evt); err != nil {
				log.Fatalf("decode online_status: %v", err)
			}
			fmt.Printf("presence %s: %+v\n", evt.Status, evt.OnlineUsers)
		default:
			fmt.Printf("frame type=%s\n", typ)
		}
	}
}

func remarshal(frame map[string]json.RawMessage, v any) error {
	raw, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
