// Package memstore is an in-memory implementation of the repositories, used
// by tests. It enforces the same unique constraints as the postgres schema.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/noteful/apiserver/internal/store"
	"github.com/noteful/apiserver/types"
)

// Store holds all records. Users, Tags and Notes return repository views.
type Store struct {
	mu    sync.RWMutex
	users map[string]types.User
	tags  map[string]types.Tag
	notes map[string]types.Note
}

func New() *Store {
	return &Store{
		users: make(map[string]types.User),
		tags:  make(map[string]types.Tag),
		notes: make(map[string]types.Note),
	}
}

func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }
func (s *Store) Tags() *TagRepository   { return &TagRepository{s: s} }
func (s *Store) Notes() *NoteRepository { return &NoteRepository{s: s} }

// NotesReferencing returns the ids of all notes, of any owner, whose tag list
// contains tagID.
func (s *Store) NotesReferencing(tagID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for _, n := range s.notes {
		for _, t := range n.Tags {
			if t == tagID {
				ids = append(ids, n.ID)
				break
			}
		}
	}
	sort.Strings(ids)
	return ids
}

type UserRepository struct{ s *Store }

func (r *UserRepository) GetByUsername(_ context.Context, username string) (types.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *UserRepository) Create(_ context.Context, user types.User) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Username == user.Username {
			return types.User{}, store.ErrDuplicate
		}
	}
	now := time.Now().UTC()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.s.users[user.ID] = user
	return user, nil
}

type TagRepository struct{ s *Store }

func (r *TagRepository) List(_ context.Context, userID string) ([]types.Tag, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	tags := make([]types.Tag, 0)
	for _, t := range r.s.tags {
		if t.UserID == userID {
			tags = append(tags, t)
		}
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
	return tags, nil
}

func (r *TagRepository) Get(_ context.Context, id, userID string) (types.Tag, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.tags[id]
	if !ok || t.UserID != userID {
		return types.Tag{}, store.ErrNotFound
	}
	return t, nil
}

func (r *TagRepository) Create(_ context.Context, tag types.Tag) (types.Tag, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.nameTaken(tag.Name, tag.UserID, "") {
		return types.Tag{}, store.ErrDuplicate
	}
	now := time.Now().UTC()
	tag.ID = uuid.NewString()
	tag.CreatedAt = now
	tag.UpdatedAt = now
	r.s.tags[tag.ID] = tag
	return tag, nil
}

func (r *TagRepository) Update(_ context.Context, tag types.Tag) (types.Tag, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.tags[tag.ID]
	if !ok || current.UserID != tag.UserID {
		return types.Tag{}, store.ErrNotFound
	}
	if r.nameTaken(tag.Name, tag.UserID, tag.ID) {
		return types.Tag{}, store.ErrDuplicate
	}
	current.Name = tag.Name
	current.UpdatedAt = time.Now().UTC()
	r.s.tags[tag.ID] = current
	return current, nil
}

func (r *TagRepository) Delete(_ context.Context, id, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tags[id]
	if !ok || t.UserID != userID {
		return store.ErrNotFound
	}
	delete(r.s.tags, id)
	for noteID, n := range r.s.notes {
		n.Tags = without(n.Tags, id)
		r.s.notes[noteID] = n
	}
	return nil
}

func (r *TagRepository) CountOwned(_ context.Context, userID string, ids []string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	count := 0
	for _, id := range ids {
		if t, ok := r.s.tags[id]; ok && t.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (r *TagRepository) nameTaken(name, userID, exceptID string) bool {
	for _, t := range r.s.tags {
		if t.ID != exceptID && t.UserID == userID && t.Name == name {
			return true
		}
	}
	return false
}

type NoteRepository struct{ s *Store }

func (r *NoteRepository) List(_ context.Context, userID string, filter types.NoteFilter) ([]types.Note, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	term := strings.ToLower(filter.SearchTerm)
	notes := make([]types.Note, 0)
	for _, n := range r.s.notes {
		if n.UserID != userID {
			continue
		}
		if term != "" && !strings.Contains(strings.ToLower(n.Title), term) && !strings.Contains(strings.ToLower(n.Content), term) {
			continue
		}
		if filter.TagID != "" && !contains(n.Tags, filter.TagID) {
			continue
		}
		notes = append(notes, copyNote(n))
	}
	sort.Slice(notes, func(i, j int) bool {
		if notes[i].UpdatedAt.Equal(notes[j].UpdatedAt) {
			return notes[i].ID < notes[j].ID
		}
		return notes[i].UpdatedAt.After(notes[j].UpdatedAt)
	})
	return notes, nil
}

func (r *NoteRepository) Get(_ context.Context, id, userID string) (types.Note, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n, ok := r.s.notes[id]
	if !ok || n.UserID != userID {
		return types.Note{}, store.ErrNotFound
	}
	return copyNote(n), nil
}

func (r *NoteRepository) Create(_ context.Context, note types.Note) (types.Note, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now().UTC()
	note.ID = uuid.NewString()
	note.CreatedAt = now
	note.UpdatedAt = now
	note = copyNote(note)
	r.s.notes[note.ID] = note
	return copyNote(note), nil
}

func (r *NoteRepository) Update(_ context.Context, note types.Note) (types.Note, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.notes[note.ID]
	if !ok || current.UserID != note.UserID {
		return types.Note{}, store.ErrNotFound
	}
	note.CreatedAt = current.CreatedAt
	note.UpdatedAt = time.Now().UTC()
	note = copyNote(note)
	r.s.notes[note.ID] = note
	return copyNote(note), nil
}

func (r *NoteRepository) Delete(_ context.Context, id, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.notes[id]
	if !ok || n.UserID != userID {
		return store.ErrNotFound
	}
	delete(r.s.notes, id)
	return nil
}

func copyNote(n types.Note) types.Note {
	tags := make([]string, len(n.Tags))
	copy(tags, n.Tags)
	n.Tags = tags
	return n
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func without(values []string, v string) []string {
	out := make([]string, 0, len(values))
	for _, x := range values {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}
