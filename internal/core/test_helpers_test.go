package core

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/apaluca/PrivateChat/internal/store"
	"github.com/apaluca/PrivateChat/internal/store/sqlite"
)

func newTestStore(t testing.TB) store.Store {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func seedUser(t testing.TB, st store.Store, username string) *store.User {
	t.Helper()

	user, err := st.CreateUser(context.Background(), username, "test-hash")
	if err != nil {
		t.Fatalf("failed to seed user %s: %v", username, err)
	}
	return user
}

func newTestHub(t testing.TB, st store.Store) *Hub {
	t.Helper()

	logger := zerolog.Nop()
	return NewHub(st, Options{CaseInsensitiveRooms: true, MaxMessageLength: 4096}, &logger)
}

func testClient(user *store.User, n int) *Client {
	return NewClient(fmt.Sprintf("%s-conn-%d", user.Username, n), Identity{UserID: user.ID, Username: user.Username})
}

// waitForSessions blocks until the hub has n live sessions. Registration
// goes through the hub loop, so tests wait for it before asserting fanout.
func waitForSessions(t testing.TB, hub *Hub, n int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Registry().Len() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d live sessions, got %d", n, hub.Registry().Len())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func waitForRoomOccupants(t testing.TB, hub *Hub, roomID int64, n int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for len(hub.Registry().RoomClients(roomID)) != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d occupants in room %d, got %d", n, roomID, len(hub.Registry().RoomClients(roomID)))
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func mustEvent(t testing.TB, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}
