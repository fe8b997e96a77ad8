package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/wirechat-live/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080", "server base address")
	conversation := flag.Int64("conversation", 1, "conversation id to join")
	token := flag.String("token", "", "JWT issued by `wirechat-live token`")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	target := fmt.Sprintf("%s/ws/chat/%d?token=%s", *addr, *conversation, url.QueryEscape(*token))
	conn, _, err := websocket.Dial(ctx, target, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	fmt.Printf("Connected to conversation %d\n", *conversation)
	fmt.Println("Type messages and press Enter to send. `/typing <user-id>` sends a typing hint. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, conn)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			switch code := websocket.CloseStatus(err); code {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			case -1:
				log.Printf("read error: %v", err)
			default:
				log.Printf("server closed connection: %d", code)
			}
			return
		}

		var head struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &head); err != nil {
			log.Printf("unmarshal frame: %v", err)
			continue
		}

		switch head.Type {
		case proto.TypeChatMessage:
			var evt proto.ChatMessage
			if err := json.Unmarshal(data, &evt); err != nil {
				log.Printf("unmarshal chat_message: %v", err)
				continue
			}
			fmt.Printf("[%s] %s: %s\n", evt.Timestamp, evt.User.Username, evt.Message)
		case proto.TypeTyping:
			var evt proto.Typing
			if err := json.Unmarshal(data, &evt); err != nil {
				log.Printf("unmarshal typing: %v", err)
				continue
			}
			if evt.IsTyping {
				fmt.Printf("%s is typing to %d\n", evt.User.Username, evt.Receiver)
			}
		case proto.TypeOnlineStatus:
			var evt proto.OnlineStatus
			if err := json.Unmarshal(data, &evt); err != nil {
				log.Printf("unmarshal online_status: %v", err)
				continue
			}
			for _, u := range evt.OnlineUsers {
				fmt.Printf("%s is %s\n", u.Username, evt.Status)
			}
		default:
			fmt.Printf("frame: %s\n", data)
		}
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}

			frame, err := buildFrame(text)
			if err != nil {
				log.Printf("%v", err)
				continue
			}
			if err := wsjson.Write(ctx, conn, frame); err != nil {
				log.Printf("send error: %v", err)
				return
			}
		}
	}
}

func buildFrame(text string) (proto.Inbound, error) {
	if rest, ok := strings.CutPrefix(text, "/typing"); ok {
		id, err := strconv.ParseInt(strings.TrimSpace(rest), 10, 64)
		if err != nil {
			return proto.Inbound{}, fmt.Errorf("usage: /typing <user-id>")
		}
		return proto.Inbound{
			Type:     proto.TypeTyping,
			Receiver: json.RawMessage(strconv.FormatInt(id, 10)),
			IsTyping: json.RawMessage("true"),
		}, nil
	}

	msg, err := json.Marshal(text)
	if err != nil {
		return proto.Inbound{}, fmt.Errorf("marshal msg: %w", err)
	}
	return proto.Inbound{Type: proto.TypeChatMessage, Message: msg}, nil
}
