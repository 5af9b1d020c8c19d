// Command ws_smoke exercises a running server end to end: it registers a
// throwaway account over REST, connects the WebSocket with the issued token,
// sends one global message, and prints the frames it receives.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/apaluca/PrivateChat/internal/proto"
)

func main() {
	apiAddr := flag.String("api", "http://localhost:8080", "REST API base URL")
	wsAddr := flag.String("ws", "ws://localhost:8080/ws", "WebSocket address")
	user := flag.String("user", fmt.Sprintf("smoke%d", time.Now().Unix()), "username to register")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	token, err := register(ctx, *apiAddr, *user)
	if err != nil {
		log.Fatalf("register: %v", err)
	}
	log.Printf("registered %s", *user)

	conn, _, err := websocket.Dial(ctx, *wsAddr+"?token="+token, nil)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	payload, _ := json.Marshal(proto.SendData{Content: *text})
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundSend, Data: payload}); err != nil {
		log.Fatalf("send: %v", err)
	}

	for {
		var outbound struct {
			Type  string          `json:"type"`
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
			Error *proto.Error    `json:"error"`
		}
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			log.Printf("read stopped: %v", err)
			return
		}
		if outbound.Error != nil {
			log.Fatalf("server error: %s %s", outbound.Error.Code, outbound.Error.Message)
		}
		log.Printf("<- %s %s", outbound.Event, outbound.Data)
		if outbound.Event == proto.EventMessageReceived {
			log.Printf("smoke test ok")
			return
		}
	}
}

func register(ctx context.Context, apiAddr, user string) (string, error) {
	body, _ := json.Marshal(map[string]string{
		"username": user,
		"password": "smoke-password",
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiAddr+"/api/register", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var auth struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return "", err
	}
	return auth.Token, nil
}
