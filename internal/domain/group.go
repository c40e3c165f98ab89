package domain

import (
	"errors"
	"time"
)

var ErrGroupNameEmpty = errors.New("group name empty")

// Group is the stored membership unit behind a chat room.
type Group struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	OwnerID     UserID    `json:"owner_id"`
	MemberIDs   []UserID  `json:"member_ids"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HasMember reports whether id is in the member list.
func (g *Group) HasMember(id UserID) bool {
	for _, m := range g.MemberIDs {
		if m == id {
			return true
		}
	}
	return false
}
