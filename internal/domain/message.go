package domain

import (
	"errors"
	"time"
)

var ErrContentEmpty = errors.New("message content empty")

// Message is the durable record of a chat line. ID and CreatedAt are
// assigned by the store; a message that could not be persisted is still
// broadcast with an empty ID.
type Message struct {
	ID        string    `json:"id"`
	GroupID   RoomID    `json:"group_id"`
	UserID    UserID    `json:"user_id"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
