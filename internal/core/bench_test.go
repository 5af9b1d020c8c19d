package core

import (
	"context"
	"fmt"
	"testing"
)

func benchmarkGlobalBroadcast(b *testing.B, recipients int) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := newTestStore(b)
	hub := newTestHub(b, st)
	go hub.Run(ctx)

	senderUser := seedUser(b, st, "sender")
	sender := testClient(senderUser, 1)
	hub.RegisterClient(sender)

	clients := make([]*Client, 0, recipients)
	for i := 0; i < recipients; i++ {
		user := seedUser(b, st, fmt.Sprintf("user%d", i))
		c := testClient(user, 1)
		hub.RegisterClient(c)
		clients = append(clients, c)
	}
	waitForSessions(b, hub, recipients+1)

	// Drain events for all but the first recipient to avoid channel backpressure.
	target := clients[0]
	for _, c := range clients[1:] {
		go func(cl *Client) {
			for range cl.Events {
			}
		}(c)
	}
	go func() {
		for range sender.Events {
		}
	}()

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		sender.Commands <- &Command{Kind: CommandSendGlobal, Content: "payload"}
		for {
			if ev := <-target.Events; ev.Kind == EventGlobalMessage {
				break
			}
		}
	}
}

func BenchmarkGlobalBroadcast_10(b *testing.B)  { benchmarkGlobalBroadcast(b, 10) }
func BenchmarkGlobalBroadcast_100(b *testing.B) { benchmarkGlobalBroadcast(b, 100) }
func BenchmarkGlobalBroadcast_500(b *testing.B) { benchmarkGlobalBroadcast(b, 500) }
