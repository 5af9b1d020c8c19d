package core

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestHubGlobalMessageReachesEveryone(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	st := newTestStore(t)
	hub := newTestHub(t, st)
	go hub.Run(ctx)

	alice := testClient(seedUser(t, st, "alice"), 1)
	bob := testClient(seedUser(t, st, "bob"), 1)
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)
	waitForSessions(t, hub, 2)

	alice.Commands <- &Command{Kind: CommandSendGlobal, Content: "hello world"}

	// Sender and everyone else receive the same stored message.
	for _, c := range []*Client{alice, bob} {
		ev := mustEvent(t, c.Events, EventGlobalMessage)
		if ev.Message.Content != "hello world" || ev.Message.SenderName != "alice" {
			t.Fatalf("unexpected message event: %+v", ev.Message)
		}
		if ev.Message.ID == 0 {
			t.Fatal("broadcast message has no durable id")
		}
	}
}

func TestHubRoomCreateConvergesOnExisting(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	st := newTestStore(t)
	hub := newTestHub(t, st)
	go hub.Run(ctx)

	alice := testClient(seedUser(t, st, "alice"), 1)
	bob := testClient(seedUser(t, st, "bob"), 1)
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)
	waitForSessions(t, hub, 2)

	alice.Commands <- &Command{Kind: CommandCreateRoom, RoomName: "General"}
	created := mustEvent(t, bob.Events, EventRoomCreated)
	if created.Room.Name != "General" {
		t.Fatalf("expected display name to keep creator casing, got %q", created.Room.Name)
	}

	// Differently-cased name resolves to the same room, no conflict error.
	bob.Commands <- &Command{Kind: CommandCreateRoom, RoomName: "general"}
	again := mustEvent(t, bob.Events, EventRoomCreated)
	if again.Room.ID != created.Room.ID {
		t.Fatalf("expected convergence on room %d, got %d", created.Room.ID, again.Room.ID)
	}
}

func TestHubRoomJoinAndMessage(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	st := newTestStore(t)
	hub := newTestHub(t, st)
	go hub.Run(ctx)

	alice := testClient(seedUser(t, st, "alice"), 1)
	bob := testClient(seedUser(t, st, "bob"), 1)
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)

	alice.Commands <- &Command{Kind: CommandCreateRoom, RoomName: "general"}
	room := mustEvent(t, alice.Events, EventRoomCreated).Room

	alice.Commands <- &Command{Kind: CommandJoinRoom, RoomName: "general"}
	bob.Commands <- &Command{Kind: CommandJoinRoom, RoomName: "general"}

	joined := mustEvent(t, alice.Events, EventRoomUserJoined)
	if joined.RoomID != room.ID {
		t.Fatalf("unexpected join event room: %d", joined.RoomID)
	}
	waitForRoomOccupants(t, hub, room.ID, 2)

	alice.Commands <- &Command{Kind: CommandSendRoom, RoomName: "general", Content: "hi room"}
	ev := mustEvent(t, bob.Events, EventRoomMessage)
	if ev.Message.Content != "hi room" || ev.Message.Channel.ID != room.ID {
		t.Fatalf("unexpected room message: %+v", ev.Message)
	}
}

func TestHubJoinSwitchesRooms(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	st := newTestStore(t)
	hub := newTestHub(t, st)
	go hub.Run(ctx)

	alice := testClient(seedUser(t, st, "alice"), 1)
	hub.RegisterClient(alice)

	alice.Commands <- &Command{Kind: CommandCreateRoom, RoomName: "alpha"}
	alpha := mustEvent(t, alice.Events, EventRoomCreated).Room
	alice.Commands <- &Command{Kind: CommandCreateRoom, RoomName: "beta"}
	beta := mustEvent(t, alice.Events, EventRoomCreated).Room

	alice.Commands <- &Command{Kind: CommandJoinRoom, RoomName: "alpha"}
	mustEvent(t, alice.Events, EventRoomUserJoined)
	alice.Commands <- &Command{Kind: CommandJoinRoom, RoomName: "beta"}
	mustEvent(t, alice.Events, EventRoomUserJoined)

	// Joining beta implicitly left alpha.
	if n := len(hub.Registry().RoomClients(alpha.ID)); n != 0 {
		t.Fatalf("expected alpha to be empty after switch, got %d occupants", n)
	}
	if n := len(hub.Registry().RoomClients(beta.ID)); n != 1 {
		t.Fatalf("expected one occupant in beta, got %d", n)
	}
}

func TestHubJoinUnknownRoomError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	st := newTestStore(t)
	hub := newTestHub(t, st)
	go hub.Run(ctx)

	alice := testClient(seedUser(t, st, "alice"), 1)
	hub.RegisterClient(alice)

	alice.Commands <- &Command{Kind: CommandJoinRoom, RoomName: "ghost"}

	ev := mustEvent(t, alice.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodeRoomNotFound {
		t.Fatalf("expected room_not_found error, got %+v", ev)
	}
}

func TestHubLeaveWithoutRoomError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	st := newTestStore(t)
	hub := newTestHub(t, st)
	go hub.Run(ctx)

	alice := testClient(seedUser(t, st, "alice"), 1)
	hub.RegisterClient(alice)

	alice.Commands <- &Command{Kind: CommandLeaveRoom}

	ev := mustEvent(t, alice.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodeNotInRoom {
		t.Fatalf("expected not_in_room error, got %+v", ev)
	}
}

func TestHubDirectMessageCreatesConversation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	st := newTestStore(t)
	hub := newTestHub(t, st)
	go hub.Run(ctx)

	aliceUser := seedUser(t, st, "alice")
	bobUser := seedUser(t, st, "bob")
	alice := testClient(aliceUser, 1)
	bob := testClient(bobUser, 1)
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)
	waitForSessions(t, hub, 2)

	alice.Commands <- &Command{Kind: CommandSendDirect, RecipientID: bobUser.ID, Content: "psst"}

	// Both participants learn about the new conversation, then the message.
	convForBob := mustEvent(t, bob.Events, EventConversationUpdated).Conversation
	if !convForBob.HasParticipant(aliceUser.ID) || !convForBob.HasParticipant(bobUser.ID) {
		t.Fatalf("unexpected participants: %+v", convForBob)
	}
	ev := mustEvent(t, bob.Events, EventDirectMessage)
	if ev.Message.Content != "psst" || ev.Message.Channel.ID != convForBob.ID {
		t.Fatalf("unexpected direct message: %+v", ev.Message)
	}
	mustEvent(t, alice.Events, EventDirectMessage)

	// The reverse direction resolves to the same canonical conversation.
	bob.Commands <- &Command{Kind: CommandSendDirect, RecipientID: aliceUser.ID, Content: "back"}
	reply := mustEvent(t, alice.Events, EventDirectMessage)
	if reply.Message.Channel.ID != convForBob.ID {
		t.Fatalf("expected reply on conversation %d, got %d", convForBob.ID, reply.Message.Channel.ID)
	}
}

func TestHubDirectMessageToSelfRejected(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	st := newTestStore(t)
	hub := newTestHub(t, st)
	go hub.Run(ctx)

	aliceUser := seedUser(t, st, "alice")
	alice := testClient(aliceUser, 1)
	hub.RegisterClient(alice)

	alice.Commands <- &Command{Kind: CommandSendDirect, RecipientID: aliceUser.ID, Content: "me"}

	ev := mustEvent(t, alice.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodeValidation {
		t.Fatalf("expected validation error, got %+v", ev)
	}
}

func TestHubDirectMessageUnknownRecipient(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	st := newTestStore(t)
	hub := newTestHub(t, st)
	go hub.Run(ctx)

	alice := testClient(seedUser(t, st, "alice"), 1)
	hub.RegisterClient(alice)

	alice.Commands <- &Command{Kind: CommandSendDirect, RecipientID: 9999, Content: "hello?"}

	ev := mustEvent(t, alice.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodeUserNotFound {
		t.Fatalf("expected user_not_found error, got %+v", ev)
	}
}

func TestHubGroupMessageReachesLiveMembers(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	st := newTestStore(t)
	hub := newTestHub(t, st)
	go hub.Run(ctx)

	aliceUser := seedUser(t, st, "alice")
	bobUser := seedUser(t, st, "bob")
	alice := testClient(aliceUser, 1)
	bob := testClient(bobUser, 1)
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)
	waitForSessions(t, hub, 2)

	group, err := st.CreateGroup(ctx, "team", aliceUser.ID)
	if err != nil {
		t.Fatalf("failed to create group: %v", err)
	}

	members, err := hub.AddGroupMember(ctx, group.ID, bobUser.ID, aliceUser.ID)
	if err != nil {
		t.Fatalf("failed to add member: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}

	// Live members see the membership change.
	update := mustEvent(t, bob.Events, EventGroupUpdated)
	if update.Group.GroupID != group.ID || len(update.Group.Members) != 2 {
		t.Fatalf("unexpected group update: %+v", update.Group)
	}

	alice.Commands <- &Command{Kind: CommandSendGroup, GroupID: group.ID, Content: "standup in 5"}
	for _, c := range []*Client{alice, bob} {
		ev := mustEvent(t, c.Events, EventGroupMessage)
		if ev.Message.Content != "standup in 5" || ev.Message.Channel.ID != group.ID {
			t.Fatalf("unexpected group message: %+v", ev.Message)
		}
	}
}

func TestHubGroupJoinValidatesMembership(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	st := newTestStore(t)
	hub := newTestHub(t, st)
	go hub.Run(ctx)

	aliceUser := seedUser(t, st, "alice")
	carolUser := seedUser(t, st, "carol")
	alice := testClient(aliceUser, 1)
	carol := testClient(carolUser, 1)
	hub.RegisterClient(alice)
	hub.RegisterClient(carol)
	waitForSessions(t, hub, 2)

	group, err := st.CreateGroup(ctx, "team", aliceUser.ID)
	if err != nil {
		t.Fatalf("failed to create group: %v", err)
	}

	carol.Commands <- &Command{Kind: CommandJoinGroup, GroupID: group.ID}
	ev := mustEvent(t, carol.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodeNotAMember {
		t.Fatalf("expected not_a_member error, got %+v", ev)
	}

	// The owner is a member; join succeeds and delivery follows durable
	// membership, so a subsequent send reaches the owner's session.
	alice.Commands <- &Command{Kind: CommandJoinGroup, GroupID: group.ID}
	alice.Commands <- &Command{Kind: CommandSendGroup, GroupID: group.ID, Content: "after join"}
	msg := mustEvent(t, alice.Events, EventGroupMessage)
	if msg.Message.Content != "after join" || msg.Message.Channel.ID != group.ID {
		t.Fatalf("unexpected group message: %+v", msg.Message)
	}
}

func TestHubGroupMessageNonMemberRejected(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	st := newTestStore(t)
	hub := newTestHub(t, st)
	go hub.Run(ctx)

	aliceUser := seedUser(t, st, "alice")
	carolUser := seedUser(t, st, "carol")
	carol := testClient(carolUser, 1)
	hub.RegisterClient(carol)

	group, err := st.CreateGroup(ctx, "team", aliceUser.ID)
	if err != nil {
		t.Fatalf("failed to create group: %v", err)
	}

	carol.Commands <- &Command{Kind: CommandSendGroup, GroupID: group.ID, Content: "let me in"}

	ev := mustEvent(t, carol.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodeNotAMember {
		t.Fatalf("expected not_a_member error, got %+v", ev)
	}
}

func TestHubRemoveMemberByNonAdminForbidden(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	st := newTestStore(t)
	hub := newTestHub(t, st)
	go hub.Run(ctx)

	aliceUser := seedUser(t, st, "alice")
	bobUser := seedUser(t, st, "bob")

	group, err := st.CreateGroup(ctx, "team", aliceUser.ID)
	if err != nil {
		t.Fatalf("failed to create group: %v", err)
	}
	if _, err := hub.AddGroupMember(ctx, group.ID, bobUser.ID, aliceUser.ID); err != nil {
		t.Fatalf("failed to add member: %v", err)
	}

	_, err = hub.RemoveGroupMember(ctx, group.ID, aliceUser.ID, bobUser.ID)
	ce := AsCoreError(err)
	if err == nil || ce.Code != ErrCodeForbidden {
		t.Fatalf("expected forbidden error, got %v", err)
	}

	// Self-leave needs no admin rights.
	members, err := hub.RemoveGroupMember(ctx, group.ID, bobUser.ID, bobUser.ID)
	if err != nil {
		t.Fatalf("self-leave failed: %v", err)
	}
	if len(members) != 1 || members[0].UserID != aliceUser.ID {
		t.Fatalf("unexpected members after self-leave: %+v", members)
	}
}

func TestHubUnregisterIsIdempotent(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	st := newTestStore(t)
	hub := newTestHub(t, st)
	go hub.Run(ctx)

	alice := testClient(seedUser(t, st, "alice"), 1)
	bob := testClient(seedUser(t, st, "bob"), 1)
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)

	hub.UnregisterClient(alice)
	hub.UnregisterClient(alice)

	left := mustEvent(t, bob.Events, EventUserLeft)
	if left.User.Username != "alice" {
		t.Fatalf("unexpected user_left event: %+v", left)
	}

	deadline := time.Now().Add(2 * time.Second)
	for hub.Registry().Len() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("expected 1 live session, got %d", hub.Registry().Len())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHubRejectsInvalidContent(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	st := newTestStore(t)
	hub := newTestHub(t, st)
	go hub.Run(ctx)

	alice := testClient(seedUser(t, st, "alice"), 1)
	hub.RegisterClient(alice)

	alice.Commands <- &Command{Kind: CommandSendGlobal, Content: "   "}
	ev := mustEvent(t, alice.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodeValidation {
		t.Fatalf("expected validation error for blank content, got %+v", ev)
	}

	alice.Commands <- &Command{Kind: CommandSendGlobal, Content: strings.Repeat("x", 5000)}
	ev = mustEvent(t, alice.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodeValidation {
		t.Fatalf("expected validation error for oversized content, got %+v", ev)
	}
}
