package model

import "time"

// RoomType distinguishes the two chat room kinds.
//
// DIRECT rooms conceptually hold exactly two members and are de-duplicated:
// creating a direct room between the same pair twice returns the existing
// room. GROUP rooms have unconstrained membership and are never de-duplicated.
type RoomType string

const (
	RoomDirect RoomType = "DIRECT"
	RoomGroup  RoomType = "GROUP"
)

// ChatRoom is a messaging room plus its membership set.
type ChatRoom struct {
	ID        string       `json:"id"`
	Name      string       `json:"name,omitempty"`
	Type      RoomType     `json:"type"`
	Members   []PublicUser `json:"users"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`

	// LastMessage and MessageCount are aggregates for the room list view.
	LastMessage  *Message `json:"lastMessage,omitempty"`
	MessageCount int      `json:"messageCount"`
}

// Message belongs to exactly one room and one sender, ordered by creation
// time. There is no delivery state — database insertion order is the only
// ordering guarantee.
type Message struct {
	ID        string     `json:"id"`
	Content   string     `json:"content"`
	RoomID    string     `json:"chatRoomId"`
	SenderID  string     `json:"senderId"`
	Sender    PublicUser `json:"sender"`
	CreatedAt time.Time  `json:"createdAt"`
}
