package domain

import "time"

// Profile stores a user's chosen display name. Absence of a profile is not
// an error; callers fall back to token claims and finally DefaultDisplayName.
type Profile struct {
	UserID      UserID    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
}
