package types

import "time"

// Tag is a user-owned label that can be attached to notes.
// The pair (Name, UserID) is unique.
type Tag struct {
	// ID is the unique identifier of the tag.
	ID string `json:"id" db:"id"`

	// Name is the display name of the tag.
	Name string `json:"name" db:"name"`

	// UserID identifies the owner of the tag.
	UserID string `json:"userId" db:"user_id"`

	// CreatedAt is the timestamp when the tag was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent rename.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
