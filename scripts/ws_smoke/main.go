package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/TsegabAbreham/MovieApp/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "relay WebSocket address")
	room := flag.String("room", "54321", "room code to join")
	user := flag.String("user", "smoke", "username to join with")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	join := proto.Join{
		Type:     proto.TypeJoin,
		Room:     *room,
		ClientID: uuid.NewString(),
		Username: *user,
	}
	if err := wsjson.Write(ctx, conn, join); err != nil {
		return fmt.Errorf("send join: %w", err)
	}

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		typ, ok := proto.Peek(data)
		if !ok {
			continue
		}
		fmt.Printf("received %s: %s\n", typ, data)
	}
}
