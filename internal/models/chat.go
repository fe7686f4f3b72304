package models

import "time"

// ChatType distinguishes direct chats from group chats.
type ChatType string

const (
	ChatTypeDM    ChatType = "dm"
	ChatTypeGroup ChatType = "group"
)

// Chat represents a direct or group conversation.
type Chat struct {
	ID            string     `db:"id" json:"id"`
	Type          ChatType   `db:"type" json:"type"`
	Name          *string    `db:"name" json:"name,omitempty"`
	ImageURL      *string    `db:"image_url" json:"image_url,omitempty"`
	LastMessageID *string    `db:"last_message_id" json:"last_message_id,omitempty"`
	DMKey         *string    `db:"dm_key" json:"-"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	DeletedAt     *time.Time `db:"deleted_at" json:"-"`
}

// ChatSummary is the chat-list projection: one row per chat the user belongs to,
// annotated with the active member count and a last-message preview.
type ChatSummary struct {
	ChatID         string     `db:"id" json:"chat_id"`
	Type           ChatType   `db:"type" json:"type"`
	Name           *string    `db:"name" json:"name,omitempty"`
	ImageURL       *string    `db:"image_url" json:"image_url,omitempty"`
	MemberCount    int        `db:"member_count" json:"member_count"`
	LastMessage    *string    `db:"last_message_content" json:"last_message,omitempty"`
	LastMessageAt  *time.Time `db:"last_message_at" json:"last_message_at,omitempty"`
	LastSenderName *string    `db:"last_sender_username" json:"last_sender_username,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}
