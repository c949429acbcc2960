package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/noteful/apiserver/internal/apperr"
	"github.com/noteful/apiserver/internal/events"
	"github.com/noteful/apiserver/types"
)

const (
	msgMissingTitle = "Missing `title` in request body"
	msgInvalidTags  = "The `tags` array contains an invalid `id`"
	msgInvalidTagID = "The `tagId` is not valid"
)

// NoteRepository defines persistence operations for notes. Implementations
// filter every call by userID.
type NoteRepository interface {
	List(ctx context.Context, userID string, filter types.NoteFilter) ([]types.Note, error)
	Get(ctx context.Context, id, userID string) (types.Note, error)
	Create(ctx context.Context, note types.Note) (types.Note, error)
	Update(ctx context.Context, note types.Note) (types.Note, error)
	Delete(ctx context.Context, id, userID string) error
}

// NoteInput carries the writable fields of a note.
type NoteInput struct {
	Title   string
	Content string
	Tags    []string
}

// NoteService encapsulates note use-cases for a single owner.
type NoteService struct {
	repo   NoteRepository
	tags   TagRepository
	events events.Publisher
}

func NewNoteService(repo NoteRepository, tags TagRepository, publisher events.Publisher) *NoteService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &NoteService{repo: repo, tags: tags, events: publisher}
}

func (s *NoteService) List(ctx context.Context, userID string, filter types.NoteFilter) ([]types.Note, error) {
	filter.SearchTerm = strings.TrimSpace(filter.SearchTerm)
	if filter.TagID != "" {
		tagID, ok := CanonicalID(filter.TagID)
		if !ok {
			return nil, apperr.BadRequest(msgInvalidTagID)
		}
		filter.TagID = tagID
	}
	notes, err := s.repo.List(ctx, userID, filter)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list notes: %w", err))
	}
	return notes, nil
}

func (s *NoteService) Get(ctx context.Context, userID, id string) (types.Note, error) {
	id, ok := CanonicalID(id)
	if !ok {
		return types.Note{}, apperr.BadRequest(MsgInvalidID)
	}
	note, err := s.repo.Get(ctx, id, userID)
	if err != nil {
		return types.Note{}, mapLookupError("get note", err)
	}
	return note, nil
}

func (s *NoteService) Create(ctx context.Context, userID string, input NoteInput) (types.Note, error) {
	tags, err := s.validate(ctx, userID, input)
	if err != nil {
		return types.Note{}, err
	}
	note, err := s.repo.Create(ctx, types.Note{
		Title:   input.Title,
		Content: input.Content,
		Tags:    tags,
		UserID:  userID,
	})
	if err != nil {
		return types.Note{}, apperr.Internal(fmt.Errorf("create note: %w", err))
	}
	s.events.Publish(ctx, events.New(events.NoteCreated, userID, map[string]string{"id": note.ID}))
	return note, nil
}

func (s *NoteService) Update(ctx context.Context, userID, id string, input NoteInput) (types.Note, error) {
	id, ok := CanonicalID(id)
	if !ok {
		return types.Note{}, apperr.BadRequest(MsgInvalidID)
	}
	tags, err := s.validate(ctx, userID, input)
	if err != nil {
		return types.Note{}, err
	}
	note, err := s.repo.Update(ctx, types.Note{
		ID:      id,
		Title:   input.Title,
		Content: input.Content,
		Tags:    tags,
		UserID:  userID,
	})
	if err != nil {
		return types.Note{}, mapLookupError("update note", err)
	}
	s.events.Publish(ctx, events.New(events.NoteUpdated, userID, map[string]string{"id": note.ID}))
	return note, nil
}

func (s *NoteService) Delete(ctx context.Context, userID, id string) error {
	id, ok := CanonicalID(id)
	if !ok {
		return apperr.NotFound(MsgNotFound)
	}
	if err := s.repo.Delete(ctx, id, userID); err != nil {
		return mapLookupError("delete note", err)
	}
	s.events.Publish(ctx, events.New(events.NoteDeleted, userID, map[string]string{"id": id}))
	return nil
}

// validate checks the title and that every tag id is well formed and owned
// by the user. It returns the de-duplicated tag ids.
func (s *NoteService) validate(ctx context.Context, userID string, input NoteInput) ([]string, error) {
	if input.Title == "" {
		return nil, apperr.BadRequest(msgMissingTitle)
	}

	seen := make(map[string]struct{}, len(input.Tags))
	tags := make([]string, 0, len(input.Tags))
	for _, raw := range input.Tags {
		id, ok := CanonicalID(raw)
		if !ok {
			return nil, apperr.BadRequest(msgInvalidTags)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		tags = append(tags, id)
	}
	if len(tags) == 0 {
		return tags, nil
	}

	owned, err := s.tags.CountOwned(ctx, userID, tags)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("check note tags: %w", err))
	}
	if owned != len(tags) {
		return nil, apperr.BadRequest(msgInvalidTags)
	}
	return tags, nil
}
