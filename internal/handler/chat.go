package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/startup-nation/internal/auth"
	"github.com/sakif/startup-nation/internal/model"
	"github.com/sakif/startup-nation/internal/service"
)

// ChatHandler serves direct and group messaging.
//
// ROUTES:
//
//	GET  /api/chat/rooms                     → caller's rooms, recent first
//	POST /api/chat/rooms                     → create (or reuse) a room
//	GET  /api/chat/rooms/{roomId}/messages   → one page of messages
//	POST /api/chat/rooms/{roomId}/messages   → send a message
//
// Every route requires auth; membership checks live in the service so a
// non-member can never tell a room exists.
type ChatHandler struct {
	chat   *service.ChatService
	logger *slog.Logger
}

func NewChatHandler(chat *service.ChatService, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, logger: logger}
}

// HandleListRooms returns the caller's rooms ordered by most recent
// activity, each with its member list, message count, and last message.
//
// HTTP: GET /api/chat/rooms
func (h *ChatHandler) HandleListRooms(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	rooms, err := h.chat.Rooms(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}

// HandleCreateRoom creates a chat room. The caller is always included in
// the member set. A DIRECT room between exactly two people is idempotent:
// if one already exists it is returned with 200 instead of 201.
//
// HTTP: POST /api/chat/rooms
// BODY: {"name": "...", "type": "DIRECT", "userIds": ["..."]}
func (h *ChatHandler) HandleCreateRoom(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req struct {
		Name    string   `json:"name"`
		Type    string   `json:"type"`
		UserIDs []string `json:"userIds"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	room, created, err := h.chat.CreateRoom(r.Context(), claims.UserID, req.Name, model.RoomType(req.Type), req.UserIDs)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, room)
}

// HandleListMessages returns one page of a room's messages in
// chronological order. Page 1 is the most recent tail of the conversation.
//
// HTTP: GET /api/chat/rooms/{roomId}/messages?page=1&limit=50
func (h *ChatHandler) HandleListMessages(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	msgs, err := h.chat.Messages(r.Context(), r.PathValue("roomId"), claims.UserID, page, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

// HandleSendMessage appends a message to a room the caller belongs to.
//
// HTTP: POST /api/chat/rooms/{roomId}/messages
// BODY: {"content": "..."}
func (h *ChatHandler) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	msg, err := h.chat.Send(r.Context(), r.PathValue("roomId"), claims.UserID, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}
