package models

import "time"

// MessageType categorizes message content. Only text messages are editable and
// keyword-searchable.
type MessageType string

const (
	MessageTypeText   MessageType = "text"
	MessageTypeImage  MessageType = "image"
	MessageTypeSystem MessageType = "system"
	MessageTypeVoice  MessageType = "voice"
)

// Message represents a chat message.
type Message struct {
	ID        string      `db:"id" json:"id"`
	ChatID    string      `db:"chat_id" json:"chat_id"`
	SenderID  string      `db:"sender_id" json:"sender_id"`
	Type      MessageType `db:"type" json:"type"`
	Content   string      `db:"content" json:"content"`
	Pinned    bool        `db:"pinned" json:"pinned"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
	EditedAt  *time.Time  `db:"edited_at" json:"edited_at,omitempty"`
	DeletedAt *time.Time  `db:"deleted_at" json:"-"`
}

// MessageFilter holds the optional, composable search filters. The keyword
// filter only applies when Type is unset or text.
type MessageFilter struct {
	Before  *time.Time
	After   *time.Time
	Type    *MessageType
	Pinned  *bool
	Keyword string
	Limit   int
}
