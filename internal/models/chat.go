package models

// Chat is a conversation between two users. The messaging core treats it as
// an opaque correlation object except for Code, FromUser and ToUser; the
// unread counter is maintained server-side and refreshed over REST.
type Chat struct {
	ID             int64    `json:"id,omitempty"`
	Code           string   `json:"code"`
	FromUser       *User    `json:"fromUser"`
	ToUser         *User    `json:"toUser"`
	LastMessage    *Message `json:"lastMessage,omitempty"`
	UnreadMessages int      `json:"unreadMessages"`
}
