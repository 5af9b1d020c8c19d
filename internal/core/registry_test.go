package core

import "testing"

func TestRegistryMultipleSessionsPerUser(t *testing.T) {
	r := NewRegistry()

	alice := Identity{UserID: 1, Username: "alice"}
	c1 := NewClient("conn-1", alice)
	c2 := NewClient("conn-2", alice)

	if err := r.Register(c1); err != nil {
		t.Fatalf("register c1: %v", err)
	}
	if err := r.Register(c2); err != nil {
		t.Fatalf("register c2: %v", err)
	}
	if err := r.Register(c1); err == nil {
		t.Fatal("expected duplicate connection id to be rejected")
	}

	if got := len(r.ActiveConnectionsFor(1)); got != 2 {
		t.Fatalf("expected 2 active connections, got %d", got)
	}
	// One user, two sessions, one presence entry.
	if got := len(r.OnlineUsers()); got != 1 {
		t.Fatalf("expected 1 online user, got %d", got)
	}
	// Both sessions are addressed, each exactly once.
	if got := len(r.ClientsForUsers([]int64{1})); got != 2 {
		t.Fatalf("expected 2 clients for user, got %d", got)
	}

	if _, removed := r.Unregister("conn-1"); !removed {
		t.Fatal("expected conn-1 to be removed")
	}
	if _, removed := r.Unregister("conn-1"); removed {
		t.Fatal("expected second unregister to be a no-op")
	}
	if got := len(r.ActiveConnectionsFor(1)); got != 1 {
		t.Fatalf("expected 1 active connection, got %d", got)
	}
}

func TestRegistrySingleRoomAtATime(t *testing.T) {
	r := NewRegistry()

	c := NewClient("conn-1", Identity{UserID: 1, Username: "alice"})
	if err := r.Register(c); err != nil {
		t.Fatalf("register: %v", err)
	}

	if prev, ok := r.SetRoom("conn-1", 10); !ok || prev != 0 {
		t.Fatalf("expected first join from nowhere, got prev=%d ok=%v", prev, ok)
	}
	if prev, ok := r.SetRoom("conn-1", 20); !ok || prev != 10 {
		t.Fatalf("expected switch to report previous room 10, got prev=%d ok=%v", prev, ok)
	}

	if got := len(r.RoomClients(10)); got != 0 {
		t.Fatalf("expected old room to be empty, got %d", got)
	}
	if got := len(r.RoomClients(20)); got != 1 {
		t.Fatalf("expected one occupant in new room, got %d", got)
	}

	if current, ok := r.CurrentRoom("conn-1"); !ok || current != 20 {
		t.Fatalf("expected current room 20, got %d ok=%v", current, ok)
	}

	r.Unregister("conn-1")
	if got := len(r.RoomClients(20)); got != 0 {
		t.Fatalf("expected room emptied after unregister, got %d", got)
	}
}
