package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/sakif/startup-nation/internal/apperror"
	"github.com/sakif/startup-nation/internal/model"
)

// =========================================================================
// FAKE
// =========================================================================

type fakeChatRepo struct {
	rooms    map[string]*model.ChatRoom
	members  map[string][]string        // roomID → member IDs
	messages map[string][]model.Message // roomID → messages, oldest first
	nextID   int
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{
		rooms:    make(map[string]*model.ChatRoom),
		members:  make(map[string][]string),
		messages: make(map[string][]model.Message),
		nextID:   1,
	}
}

func (f *fakeChatRepo) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeChatRepo) ListRooms(ctx context.Context, userID string) ([]model.ChatRoom, error) {
	var out []model.ChatRoom
	for roomID, ids := range f.members {
		for _, id := range ids {
			if id == userID {
				out = append(out, *f.rooms[roomID])
				break
			}
		}
	}
	return out, nil
}

func (f *fakeChatRepo) FindDirectRoom(ctx context.Context, a, b string) (*model.ChatRoom, error) {
	for roomID, room := range f.rooms {
		if room.Type != model.RoomDirect {
			continue
		}
		ids := f.members[roomID]
		if len(ids) != 2 {
			continue
		}
		if (ids[0] == a && ids[1] == b) || (ids[0] == b && ids[1] == a) {
			return room, nil
		}
	}
	return nil, apperror.NotFound("direct room", a+"+"+b)
}

func (f *fakeChatRepo) CreateRoom(ctx context.Context, room *model.ChatRoom, memberIDs []string) error {
	room.ID = f.id("room")
	room.CreatedAt = time.Now()
	room.UpdatedAt = room.CreatedAt
	copied := *room
	f.rooms[room.ID] = &copied
	f.members[room.ID] = append([]string(nil), memberIDs...)
	return nil
}

func (f *fakeChatRepo) GetRoom(ctx context.Context, roomID string) (*model.ChatRoom, error) {
	room, ok := f.rooms[roomID]
	if !ok {
		return nil, apperror.NotFound("chat room", roomID)
	}
	return room, nil
}

func (f *fakeChatRepo) IsMember(ctx context.Context, roomID, userID string) (bool, error) {
	for _, id := range f.members[roomID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

// ListMessages returns newest-first, like the sqlite implementation.
func (f *fakeChatRepo) ListMessages(ctx context.Context, roomID string, limit, offset int) ([]model.Message, error) {
	all := f.messages[roomID]
	var newest []model.Message
	for i := len(all) - 1; i >= 0; i-- {
		newest = append(newest, all[i])
	}
	if offset >= len(newest) {
		return []model.Message{}, nil
	}
	end := offset + limit
	if end > len(newest) {
		end = len(newest)
	}
	return newest[offset:end], nil
}

func (f *fakeChatRepo) CreateMessage(ctx context.Context, msg *model.Message) error {
	msg.ID = f.id("msg")
	msg.CreatedAt = time.Now()
	f.messages[msg.RoomID] = append(f.messages[msg.RoomID], *msg)
	if room, ok := f.rooms[msg.RoomID]; ok {
		room.UpdatedAt = msg.CreatedAt
	}
	return nil
}

func newTestChatService(repo *fakeChatRepo) *ChatService {
	return NewChatService(repo, testLogger())
}

// =========================================================================
// CreateRoom TESTS
// =========================================================================

func TestCreateRoom_CallerIsAlwaysAMember(t *testing.T) {
	repo := newFakeChatRepo()
	svc := newTestChatService(repo)

	room, created, err := svc.CreateRoom(context.Background(), "alice", "founders", model.RoomGroup, []string{"bob", "carol"})
	if err != nil {
		t.Fatalf("CreateRoom() error = %v", err)
	}
	if !created {
		t.Error("a new GROUP room should report created=true")
	}

	ids := repo.members[room.ID]
	if len(ids) != 3 {
		t.Fatalf("member count = %d, want 3 (caller merged in)", len(ids))
	}
	if ids[0] != "alice" {
		t.Errorf("first member = %q, want the caller", ids[0])
	}
}

func TestCreateRoom_DeduplicatesMemberList(t *testing.T) {
	repo := newFakeChatRepo()
	svc := newTestChatService(repo)

	// The caller listed themselves and bob twice; empty IDs are dropped.
	room, _, err := svc.CreateRoom(context.Background(), "alice", "", model.RoomGroup,
		[]string{"bob", "alice", "bob", "", "carol"})
	if err != nil {
		t.Fatalf("CreateRoom() error = %v", err)
	}

	ids := repo.members[room.ID]
	want := []string{"alice", "bob", "carol"}
	if len(ids) != len(want) {
		t.Fatalf("members = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("members = %v, want %v (first-seen order)", ids, want)
			break
		}
	}
}

func TestCreateRoom_DirectRoomIsIdempotent(t *testing.T) {
	repo := newFakeChatRepo()
	svc := newTestChatService(repo)
	ctx := context.Background()

	first, created, err := svc.CreateRoom(ctx, "alice", "", model.RoomDirect, []string{"bob"})
	if err != nil {
		t.Fatalf("first CreateRoom() error = %v", err)
	}
	if !created {
		t.Error("first DIRECT room should report created=true")
	}

	// Same pair, opposite initiator — must return the same room.
	second, created, err := svc.CreateRoom(ctx, "bob", "", model.RoomDirect, []string{"alice"})
	if err != nil {
		t.Fatalf("second CreateRoom() error = %v", err)
	}
	if created {
		t.Error("reusing an existing DIRECT room should report created=false")
	}
	if second.ID != first.ID {
		t.Errorf("second room ID = %q, want %q (de-duplicated)", second.ID, first.ID)
	}
	if len(repo.rooms) != 1 {
		t.Errorf("room count = %d, want 1", len(repo.rooms))
	}
}

func TestCreateRoom_GroupRoomsAreNeverDeduplicated(t *testing.T) {
	repo := newFakeChatRepo()
	svc := newTestChatService(repo)
	ctx := context.Background()

	if _, _, err := svc.CreateRoom(ctx, "alice", "g", model.RoomGroup, []string{"bob"}); err != nil {
		t.Fatalf("CreateRoom() error = %v", err)
	}
	_, created, err := svc.CreateRoom(ctx, "alice", "g", model.RoomGroup, []string{"bob"})
	if err != nil {
		t.Fatalf("CreateRoom() error = %v", err)
	}
	if !created {
		t.Error("GROUP rooms are never de-duplicated — second call must create")
	}
	if len(repo.rooms) != 2 {
		t.Errorf("room count = %d, want 2", len(repo.rooms))
	}
}

func TestCreateRoom_Validation(t *testing.T) {
	repo := newFakeChatRepo()
	svc := newTestChatService(repo)
	ctx := context.Background()

	if _, _, err := svc.CreateRoom(ctx, "alice", "", model.RoomType("BROADCAST"), []string{"bob"}); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("bad type error = %v, want ErrValidation", err)
	}
	if _, _, err := svc.CreateRoom(ctx, "alice", "", model.RoomGroup, nil); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("no members error = %v, want ErrValidation", err)
	}
	if _, _, err := svc.CreateRoom(ctx, "alice", strings.Repeat("n", MaxRoomNameLength+1), model.RoomGroup, []string{"bob"}); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("long name error = %v, want ErrValidation", err)
	}
}

// =========================================================================
// Messages TESTS
// =========================================================================

func TestMessages_PageOneIsTheNewestTailInChronologicalOrder(t *testing.T) {
	repo := newFakeChatRepo()
	svc := newTestChatService(repo)
	ctx := context.Background()

	room, _, err := svc.CreateRoom(ctx, "alice", "", model.RoomDirect, []string{"bob"})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	for i := 1; i <= 5; i++ {
		if _, err := svc.Send(ctx, room.ID, "alice", fmt.Sprintf("msg %d", i)); err != nil {
			t.Fatalf("setup send %d: %v", i, err)
		}
	}

	// Page 1 with limit 3 = the three MOST RECENT messages, oldest first.
	msgs, err := svc.Messages(ctx, room.ID, "alice", 1, 3)
	if err != nil {
		t.Fatalf("Messages() error = %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("message count = %d, want 3", len(msgs))
	}
	want := []string{"msg 3", "msg 4", "msg 5"}
	for i, m := range msgs {
		if m.Content != want[i] {
			t.Errorf("msgs[%d].Content = %q, want %q", i, m.Content, want[i])
		}
	}

	// Page 2 = the older remainder, still oldest first.
	msgs, err = svc.Messages(ctx, room.ID, "alice", 2, 3)
	if err != nil {
		t.Fatalf("Messages() page 2 error = %v", err)
	}
	want = []string{"msg 1", "msg 2"}
	if len(msgs) != 2 {
		t.Fatalf("page 2 count = %d, want 2", len(msgs))
	}
	for i, m := range msgs {
		if m.Content != want[i] {
			t.Errorf("page 2 msgs[%d].Content = %q, want %q", i, m.Content, want[i])
		}
	}
}

func TestMessages_NonMemberGetsNotFound(t *testing.T) {
	repo := newFakeChatRepo()
	svc := newTestChatService(repo)
	ctx := context.Background()

	room, _, err := svc.CreateRoom(ctx, "alice", "", model.RoomDirect, []string{"bob"})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	// Not-found, not forbidden — a non-member can't learn the room exists.
	_, err = svc.Messages(ctx, room.ID, "mallory", 1, 10)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("non-member error = %v, want ErrNotFound", err)
	}

	_, err = svc.Messages(ctx, "no-such-room", "mallory", 1, 10)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("missing-room error = %v, want ErrNotFound (indistinguishable)", err)
	}
}

// =========================================================================
// Send TESTS
// =========================================================================

func TestSend_RequiresMembership(t *testing.T) {
	repo := newFakeChatRepo()
	svc := newTestChatService(repo)
	ctx := context.Background()

	room, _, err := svc.CreateRoom(ctx, "alice", "", model.RoomDirect, []string{"bob"})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	_, err = svc.Send(ctx, room.ID, "mallory", "let me in")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("non-member Send() error = %v, want ErrNotFound", err)
	}
	if len(repo.messages[room.ID]) != 0 {
		t.Error("a rejected send must not store a message")
	}
}

func TestSend_Validation(t *testing.T) {
	repo := newFakeChatRepo()
	svc := newTestChatService(repo)
	ctx := context.Background()

	room, _, err := svc.CreateRoom(ctx, "alice", "", model.RoomDirect, []string{"bob"})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	if _, err := svc.Send(ctx, room.ID, "alice", "   "); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("blank content error = %v, want ErrValidation", err)
	}
	long := strings.Repeat("x", MaxMessageLength+1)
	if _, err := svc.Send(ctx, room.ID, "alice", long); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("oversized content error = %v, want ErrValidation", err)
	}
}

func TestSend_BumpsRoomActivity(t *testing.T) {
	repo := newFakeChatRepo()
	svc := newTestChatService(repo)
	ctx := context.Background()

	room, _, err := svc.CreateRoom(ctx, "alice", "", model.RoomDirect, []string{"bob"})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	before := repo.rooms[room.ID].UpdatedAt

	time.Sleep(2 * time.Millisecond)
	if _, err := svc.Send(ctx, room.ID, "alice", "hello"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if !repo.rooms[room.ID].UpdatedAt.After(before) {
		t.Error("sending a message should bump the room's updated_at")
	}
}
