package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/noteful/apiserver/internal/apperr"
	"github.com/noteful/apiserver/internal/events"
	"github.com/noteful/apiserver/internal/store"
	"github.com/noteful/apiserver/types"
)

const (
	msgMissingTagName = "Missing `name` in request body"
	msgDuplicateTag   = "The tag name already exists"
)

// TagRepository defines persistence operations for tags. Implementations
// filter every call by userID.
type TagRepository interface {
	List(ctx context.Context, userID string) ([]types.Tag, error)
	Get(ctx context.Context, id, userID string) (types.Tag, error)
	Create(ctx context.Context, tag types.Tag) (types.Tag, error)
	Update(ctx context.Context, tag types.Tag) (types.Tag, error)
	Delete(ctx context.Context, id, userID string) error
	CountOwned(ctx context.Context, userID string, ids []string) (int, error)
}

// TagService encapsulates tag use-cases for a single owner.
type TagService struct {
	repo   TagRepository
	events events.Publisher
}

func NewTagService(repo TagRepository, publisher events.Publisher) *TagService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &TagService{repo: repo, events: publisher}
}

// List returns the user's tags sorted by name.
func (s *TagService) List(ctx context.Context, userID string) ([]types.Tag, error) {
	tags, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list tags: %w", err))
	}
	return tags, nil
}

func (s *TagService) Get(ctx context.Context, userID, id string) (types.Tag, error) {
	id, ok := CanonicalID(id)
	if !ok {
		return types.Tag{}, apperr.BadRequest(MsgInvalidID)
	}
	tag, err := s.repo.Get(ctx, id, userID)
	if err != nil {
		return types.Tag{}, mapLookupError("get tag", err)
	}
	return tag, nil
}

func (s *TagService) Create(ctx context.Context, userID, name string) (types.Tag, error) {
	if name == "" {
		return types.Tag{}, apperr.BadRequest(msgMissingTagName)
	}
	tag, err := s.repo.Create(ctx, types.Tag{Name: name, UserID: userID})
	if err != nil {
		return types.Tag{}, mapTagWriteError("create tag", err)
	}
	s.events.Publish(ctx, events.New(events.TagCreated, userID, tag))
	return tag, nil
}

// Update renames a tag. The name is checked before the id.
func (s *TagService) Update(ctx context.Context, userID, id, name string) (types.Tag, error) {
	if name == "" {
		return types.Tag{}, apperr.BadRequest(msgMissingTagName)
	}
	id, ok := CanonicalID(id)
	if !ok {
		return types.Tag{}, apperr.BadRequest(MsgInvalidID)
	}
	tag, err := s.repo.Update(ctx, types.Tag{ID: id, Name: name, UserID: userID})
	if err != nil {
		return types.Tag{}, mapTagWriteError("update tag", err)
	}
	s.events.Publish(ctx, events.New(events.TagUpdated, userID, tag))
	return tag, nil
}

// Delete removes the user's tag and pulls it from all notes. A malformed or
// foreign id is reported as not found.
func (s *TagService) Delete(ctx context.Context, userID, id string) error {
	id, ok := CanonicalID(id)
	if !ok {
		return apperr.NotFound(MsgNotFound)
	}
	if err := s.repo.Delete(ctx, id, userID); err != nil {
		return mapLookupError("delete tag", err)
	}
	s.events.Publish(ctx, events.New(events.TagDeleted, userID, map[string]string{"id": id}))
	return nil
}

func mapTagWriteError(op string, err error) error {
	switch {
	case errors.Is(err, store.ErrDuplicate):
		return apperr.BadRequest(msgDuplicateTag)
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound(MsgNotFound)
	default:
		return apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
}
