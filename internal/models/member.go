package models

import "time"

// MemberRole is the role a user holds inside a chat. Group chats keep exactly
// one owner while they have active members; DM chats only use the member role.
type MemberRole string

const (
	RoleOwner  MemberRole = "owner"
	RoleMember MemberRole = "member"
)

// ChatMember is the membership row between a user and a chat. Leaving a chat
// soft-deletes the row instead of removing it so history survives and a later
// rejoin is a restore, not a re-insert.
type ChatMember struct {
	ChatID     string     `db:"chat_id" json:"chat_id"`
	UserID     string     `db:"user_id" json:"user_id"`
	Role       MemberRole `db:"role" json:"role"`
	JoinedAt   time.Time  `db:"joined_at" json:"joined_at"`
	LastReadAt *time.Time `db:"last_read_at" json:"last_read_at,omitempty"`
	DeletedAt  *time.Time `db:"deleted_at" json:"-"`
}

// MemberInfo is a ChatMember joined with user display fields for member lists.
type MemberInfo struct {
	ChatMember
	Username  string  `db:"username" json:"username"`
	AvatarURL *string `db:"avatar_url" json:"avatar_url,omitempty"`
}

// UserDisplay carries the minimal user projection used for previews.
type UserDisplay struct {
	ID        string  `db:"id" json:"id"`
	Username  string  `db:"username" json:"username"`
	AvatarURL *string `db:"avatar_url" json:"avatar_url,omitempty"`
}
