package types

import "time"

// Note is a user-owned text entry that references a set of tags.
type Note struct {
	// ID is the unique identifier of the note.
	ID string `json:"id" db:"id"`

	// Title is the required heading of the note.
	Title string `json:"title" db:"title"`

	// Content is the free-form body of the note.
	Content string `json:"content" db:"content"`

	// Tags holds the ids of the tags attached to the note.
	Tags []string `json:"tags" db:"-"`

	// UserID identifies the owner of the note.
	UserID string `json:"userId" db:"user_id"`

	// CreatedAt is the timestamp when the note was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the note.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// NoteFilter narrows a note listing. Zero values disable a filter.
type NoteFilter struct {
	SearchTerm string
	TagID      string
}
