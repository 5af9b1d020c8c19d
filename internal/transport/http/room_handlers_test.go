package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
)

func doJSON(t *testing.T, ts *httptest.Server, method, path, token string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req, err := http.NewRequest(method, ts.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestRegisterLoginAndMe(t *testing.T) {
	ts, cancel := startTestServer(t)
	defer cancel()

	resp := doJSON(t, ts, "POST", "/api/register", "", RegisterRequest{Username: "alice", Password: "password123"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected register status: %d", resp.StatusCode)
	}
	registered := decodeBody[AuthResponse](t, resp)
	if registered.Token == "" || registered.User.Username != "alice" {
		t.Fatalf("unexpected register response: %+v", registered)
	}

	// Duplicate username is a conflict.
	resp = doJSON(t, ts, "POST", "/api/register", "", RegisterRequest{Username: "alice", Password: "password123"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate, got %d", resp.StatusCode)
	}

	resp = doJSON(t, ts, "POST", "/api/login", "", LoginRequest{Username: "alice", Password: "wrong"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 on bad password, got %d", resp.StatusCode)
	}

	resp = doJSON(t, ts, "POST", "/api/login", "", LoginRequest{Username: "alice", Password: "password123"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected login status: %d", resp.StatusCode)
	}
	logged := decodeBody[AuthResponse](t, resp)

	resp = doJSON(t, ts, "GET", "/api/me", logged.Token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected me status: %d", resp.StatusCode)
	}
	me := decodeBody[UserResponse](t, resp)
	if me.Username != "alice" || me.ID != registered.User.ID {
		t.Fatalf("unexpected me response: %+v", me)
	}

	// Protected routes reject missing tokens.
	resp = doJSON(t, ts, "GET", "/api/me", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}
}

func TestRoomEndpoints(t *testing.T) {
	ts, cancel := startTestServer(t)
	defer cancel()

	_, token := registerUser(t, ts, "alice")

	resp := doJSON(t, ts, "POST", "/api/rooms", token, CreateRoomRequest{Name: "General"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected create status: %d", resp.StatusCode)
	}
	room := decodeBody[RoomResponse](t, resp)
	if room.Name != "General" {
		t.Fatalf("unexpected room: %+v", room)
	}

	// A differently-cased create converges on the existing room.
	resp = doJSON(t, ts, "POST", "/api/rooms", token, CreateRoomRequest{Name: "GENERAL"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on existing room, got %d", resp.StatusCode)
	}
	same := decodeBody[RoomResponse](t, resp)
	if same.ID != room.ID {
		t.Fatalf("expected room %d, got %d", room.ID, same.ID)
	}

	resp = doJSON(t, ts, "GET", "/api/rooms", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected list status: %d", resp.StatusCode)
	}
	rooms := decodeBody[[]RoomResponse](t, resp)
	if len(rooms) != 1 {
		t.Fatalf("expected 1 room, got %d", len(rooms))
	}

	resp = doJSON(t, ts, "GET", "/api/rooms/"+strconv.FormatInt(room.ID, 10)+"/messages", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected history status: %d", resp.StatusCode)
	}
	messages := decodeBody[[]MessageResponse](t, resp)
	if len(messages) != 0 {
		t.Fatalf("expected empty history, got %d", len(messages))
	}

	resp = doJSON(t, ts, "GET", "/api/rooms/9999/messages", token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown room, got %d", resp.StatusCode)
	}
}

func TestGroupEndpoints(t *testing.T) {
	ts, cancel := startTestServer(t)
	defer cancel()

	aliceID, aliceToken := registerUser(t, ts, "alice")
	bobID, bobToken := registerUser(t, ts, "bob")
	_, carolToken := registerUser(t, ts, "carol")

	resp := doJSON(t, ts, "POST", "/api/groups", aliceToken, CreateGroupRequest{Name: "team"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected create status: %d", resp.StatusCode)
	}
	group := decodeBody[GroupResponse](t, resp)
	if group.OwnerID != aliceID {
		t.Fatalf("unexpected group: %+v", group)
	}
	groupPath := "/api/groups/" + strconv.FormatInt(group.ID, 10)

	// Non-members cannot see the roster.
	resp = doJSON(t, ts, "GET", groupPath+"/members", carolToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for non-member, got %d", resp.StatusCode)
	}

	// Only admins can add members.
	resp = doJSON(t, ts, "POST", groupPath+"/members", bobToken, MemberRequest{UserID: bobID})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin add, got %d", resp.StatusCode)
	}

	resp = doJSON(t, ts, "POST", groupPath+"/members", aliceToken, MemberRequest{UserID: bobID})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected add status: %d", resp.StatusCode)
	}
	members := decodeBody[[]GroupMemberResponse](t, resp)
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}

	resp = doJSON(t, ts, "GET", "/api/groups", bobToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected list status: %d", resp.StatusCode)
	}
	groups := decodeBody[[]GroupResponse](t, resp)
	if len(groups) != 1 || groups[0].ID != group.ID {
		t.Fatalf("unexpected groups: %+v", groups)
	}

	// Members may remove themselves.
	resp = doJSON(t, ts, "DELETE", groupPath+"/members/"+strconv.FormatInt(bobID, 10), bobToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected self-leave status: %d", resp.StatusCode)
	}
	members = decodeBody[[]GroupMemberResponse](t, resp)
	if len(members) != 1 || members[0].UserID != aliceID {
		t.Fatalf("unexpected members after leave: %+v", members)
	}
}
