package models

// MessageStatus is the delivery state of a chat message. Messages only ever
// move forward: SENT -> DELIVERED -> READ, one step at a time.
type MessageStatus string

const (
	StatusSent      MessageStatus = "SENT"
	StatusDelivered MessageStatus = "DELIVERED"
	StatusRead      MessageStatus = "READ"
)

// rank orders the statuses for forward-only comparison. Unknown statuses
// rank below SENT so they can never overwrite a known state.
func (s MessageStatus) rank() int {
	switch s {
	case StatusSent:
		return 1
	case StatusDelivered:
		return 2
	case StatusRead:
		return 3
	}
	return 0
}

// After reports whether s is a later delivery state than other.
func (s MessageStatus) After(other MessageStatus) bool {
	return s.rank() > other.rank()
}

// Message is one unit of chat communication. Code is assigned client-side at
// creation and is the sole correlation key between the two parties' copies:
// duplicate frames and status updates are matched by Code, never by ID.
type Message struct {
	ID      int64         `json:"id,omitempty"`
	Code    string        `json:"code"`
	Content string        `json:"content"`
	// Date is the creation timestamp in epoch milliseconds.
	Date     int64         `json:"date"`
	Status   MessageStatus `json:"messageStatus"`
	FromUser *User         `json:"fromUser"`
	ToUser   *User         `json:"toUser"`
	Chat     *Chat         `json:"chat"`
}
