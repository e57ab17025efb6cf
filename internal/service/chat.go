package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/startup-nation/internal/apperror"
	"github.com/sakif/startup-nation/internal/model"
	"github.com/sakif/startup-nation/internal/repository"
)

const (
	MaxMessageLength   = 2000
	MaxRoomMembers     = 50
	MaxRoomNameLength  = 100
	DefaultMessagePage = 50
)

// ChatService handles room provisioning and messaging.
type ChatService struct {
	chat   repository.ChatRepository
	logger *slog.Logger
}

func NewChatService(chat repository.ChatRepository, logger *slog.Logger) *ChatService {
	return &ChatService{chat: chat, logger: logger}
}

// Rooms returns the caller's rooms, most recently active first.
func (s *ChatService) Rooms(ctx context.Context, userID string) ([]model.ChatRoom, error) {
	return s.chat.ListRooms(ctx, userID)
}

// CreateRoom creates a room — or, for a DIRECT room between exactly two
// users, returns the existing one.
//
// The caller is always a member: their ID is merged into the target set and
// the set de-duplicated before anything else. DIRECT de-duplication applies
// only when the merged set has exactly two members; GROUP rooms are never
// de-duplicated — each call produces a new room.
//
// The second return value reports whether a room was actually created
// (false = an existing DIRECT room was reused), so the handler can pick
// between 201 and 200.
func (s *ChatService) CreateRoom(ctx context.Context, callerID, name string, roomType model.RoomType, userIDs []string) (*model.ChatRoom, bool, error) {
	if roomType != model.RoomDirect && roomType != model.RoomGroup {
		return nil, false, apperror.ValidationFailed("type", "Type must be DIRECT or GROUP")
	}
	name = strings.TrimSpace(name)
	if len(name) > MaxRoomNameLength {
		return nil, false, apperror.ValidationFailed("name",
			fmt.Sprintf("Room name must be %d characters or less", MaxRoomNameLength))
	}
	if len(userIDs) == 0 {
		return nil, false, apperror.ValidationFailed("userIds", "At least one user is required")
	}
	if len(userIDs) > MaxRoomMembers {
		return nil, false, apperror.ValidationFailed("userIds",
			fmt.Sprintf("At most %d users are allowed", MaxRoomMembers))
	}

	// Merge the caller in and de-duplicate, preserving first-seen order.
	seen := map[string]bool{callerID: true}
	members := []string{callerID}
	for _, id := range userIDs {
		if id != "" && !seen[id] {
			seen[id] = true
			members = append(members, id)
		}
	}

	if roomType == model.RoomDirect && len(members) == 2 {
		existing, err := s.chat.FindDirectRoom(ctx, members[0], members[1])
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, apperror.ErrNotFound) {
			return nil, false, fmt.Errorf("service/chat: finding direct room: %w", err)
		}
	}

	room := &model.ChatRoom{Name: name, Type: roomType}
	if err := s.chat.CreateRoom(ctx, room, members); err != nil {
		return nil, false, fmt.Errorf("service/chat: creating room: %w", err)
	}

	s.logger.Info("chat room created",
		slog.String("roomID", room.ID),
		slog.String("type", string(room.Type)),
		slog.Int("members", len(members)),
	)
	return room, true, nil
}

// Messages returns one page of a room's messages in oldest-first order.
//
// Storage returns the page newest-first (so page 1 is always the most
// recent conversation tail); the page is reversed here so every consumer
// sees chronological order within a page.
//
// A non-member gets the same not-found error as a missing room — room
// existence is not leaked to outsiders.
func (s *ChatService) Messages(ctx context.Context, roomID, userID string, page, limit int) ([]model.Message, error) {
	member, err := s.chat.IsMember(ctx, roomID, userID)
	if err != nil {
		return nil, fmt.Errorf("service/chat: checking membership: %w", err)
	}
	if !member {
		return nil, apperror.NotFound("chat room", roomID)
	}

	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultMessagePage
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	msgs, err := s.chat.ListMessages(ctx, roomID, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("service/chat: listing messages: %w", err)
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// Send appends a message to a room. Membership is re-checked on every call.
func (s *ChatService) Send(ctx context.Context, roomID, senderID, content string) (*model.Message, error) {
	member, err := s.chat.IsMember(ctx, roomID, senderID)
	if err != nil {
		return nil, fmt.Errorf("service/chat: checking membership: %w", err)
	}
	if !member {
		return nil, apperror.NotFound("chat room", roomID)
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperror.ValidationFailed("content", "Message content is required")
	}
	if len(content) > MaxMessageLength {
		return nil, apperror.ValidationFailed("content",
			fmt.Sprintf("Message must be %d characters or less", MaxMessageLength))
	}

	msg := &model.Message{Content: content, RoomID: roomID, SenderID: senderID}
	if err := s.chat.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("service/chat: sending message: %w", err)
	}

	s.logger.Info("message sent",
		slog.String("roomID", roomID),
		slog.String("messageID", msg.ID),
	)
	return msg, nil
}
