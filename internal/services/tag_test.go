package services

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/noteful/apiserver/internal/apperr"
	"github.com/noteful/apiserver/internal/events"
	"github.com/noteful/apiserver/internal/store/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	alice = "0b0e7a4e-1f7c-4f5e-9a52-8a3b1c2d3e4f"
	bob   = "6d1c9f0a-2b3c-4d5e-8f70-9a1b2c3d4e5f"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type domainFixture struct {
	ms     *memstore.Store
	tags   *TagService
	notes  *NoteService
	events *recordingPublisher
}

func newDomainFixture(t *testing.T) domainFixture {
	t.Helper()
	ms := memstore.New()
	pub := &recordingPublisher{}
	return domainFixture{
		ms:     ms,
		tags:   NewTagService(ms.Tags(), pub),
		notes:  NewNoteService(ms.Notes(), ms.Tags(), pub),
		events: pub,
	}
}

func TestTagService_CreateAndList(t *testing.T) {
	f := newDomainFixture(t)
	ctx := context.Background()

	_, err := f.tags.Create(ctx, alice, "work")
	require.NoError(t, err)
	_, err = f.tags.Create(ctx, alice, "home")
	require.NoError(t, err)
	_, err = f.tags.Create(ctx, bob, "bob-only")
	require.NoError(t, err)

	tags, err := f.tags.List(ctx, alice)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "home", tags[0].Name)
	assert.Equal(t, "work", tags[1].Name)
	for _, tag := range tags {
		assert.Equal(t, alice, tag.UserID)
	}

	assert.Equal(t, []events.Type{events.TagCreated, events.TagCreated, events.TagCreated}, f.events.types())
}

func TestTagService_CreateValidation(t *testing.T) {
	f := newDomainFixture(t)
	ctx := context.Background()

	_, err := f.tags.Create(ctx, alice, "")
	requireAppErr(t, err, apperr.KindBadRequest, "Missing `name` in request body")

	_, err = f.tags.Create(ctx, alice, "work")
	require.NoError(t, err)
	_, err = f.tags.Create(ctx, alice, "work")
	requireAppErr(t, err, apperr.KindBadRequest, "The tag name already exists")

	// Names are unique per owner only.
	_, err = f.tags.Create(ctx, bob, "work")
	assert.NoError(t, err)
}

func TestTagService_Get(t *testing.T) {
	f := newDomainFixture(t)
	ctx := context.Background()

	tag, err := f.tags.Create(ctx, alice, "work")
	require.NoError(t, err)

	got, err := f.tags.Get(ctx, alice, tag.ID)
	require.NoError(t, err)
	assert.Equal(t, tag, got)

	_, err = f.tags.Get(ctx, bob, tag.ID)
	requireAppErr(t, err, apperr.KindNotFound, "Not Found")

	_, err = f.tags.Get(ctx, alice, "not-a-uuid")
	requireAppErr(t, err, apperr.KindBadRequest, "The `id` is not valid")

	_, err = f.tags.Get(ctx, alice, uuid.NewString())
	requireAppErr(t, err, apperr.KindNotFound, "Not Found")
}

func TestTagService_UppercaseIDsAreCanonicalised(t *testing.T) {
	f := newDomainFixture(t)
	ctx := context.Background()

	tag, err := f.tags.Create(ctx, alice, "work")
	require.NoError(t, err)
	upper := strings.ToUpper(tag.ID)

	got, err := f.tags.Get(ctx, alice, upper)
	require.NoError(t, err)
	assert.Equal(t, tag, got)

	renamed, err := f.tags.Update(ctx, alice, upper, "office")
	require.NoError(t, err)
	assert.Equal(t, tag.ID, renamed.ID)

	require.NoError(t, f.tags.Delete(ctx, alice, upper))
	_, err = f.tags.Get(ctx, alice, tag.ID)
	requireAppErr(t, err, apperr.KindNotFound, "Not Found")
}

func TestCanonicalID(t *testing.T) {
	id, ok := CanonicalID("5F1C2A9E-3D43-4B0C-9A53-2F5D2A3C1E01")
	assert.True(t, ok)
	assert.Equal(t, "5f1c2a9e-3d43-4b0c-9a53-2f5d2a3c1e01", id)

	for _, bad := range []string{"", "nope", "{5f1c2a9e-3d43-4b0c-9a53-2f5d2a3c1e01}", "5f1c2a9e3d434b0c9a532f5d2a3c1e01"} {
		_, ok := CanonicalID(bad)
		assert.False(t, ok, bad)
	}
}

func TestTagService_Update(t *testing.T) {
	f := newDomainFixture(t)
	ctx := context.Background()

	work, err := f.tags.Create(ctx, alice, "work")
	require.NoError(t, err)
	_, err = f.tags.Create(ctx, alice, "home")
	require.NoError(t, err)

	renamed, err := f.tags.Update(ctx, alice, work.ID, "office")
	require.NoError(t, err)
	assert.Equal(t, work.ID, renamed.ID)
	assert.Equal(t, "office", renamed.Name)

	_, err = f.tags.Update(ctx, alice, work.ID, "home")
	requireAppErr(t, err, apperr.KindBadRequest, "The tag name already exists")

	_, err = f.tags.Update(ctx, bob, work.ID, "stolen")
	requireAppErr(t, err, apperr.KindNotFound, "Not Found")

	got, err := f.tags.Get(ctx, alice, work.ID)
	require.NoError(t, err)
	assert.Equal(t, "office", got.Name)
}

func TestTagService_UpdateChecksNameBeforeID(t *testing.T) {
	f := newDomainFixture(t)

	_, err := f.tags.Update(context.Background(), alice, "bad-id", "")
	requireAppErr(t, err, apperr.KindBadRequest, "Missing `name` in request body")

	_, err = f.tags.Update(context.Background(), alice, "bad-id", "name")
	requireAppErr(t, err, apperr.KindBadRequest, "The `id` is not valid")
}

func TestTagService_DeleteRemovesTagFromNotes(t *testing.T) {
	f := newDomainFixture(t)
	ctx := context.Background()

	work, err := f.tags.Create(ctx, alice, "work")
	require.NoError(t, err)
	home, err := f.tags.Create(ctx, alice, "home")
	require.NoError(t, err)

	note, err := f.notes.Create(ctx, alice, NoteInput{Title: "todo", Tags: []string{work.ID, home.ID}})
	require.NoError(t, err)

	require.NoError(t, f.tags.Delete(ctx, alice, work.ID))

	assert.Empty(t, f.ms.NotesReferencing(work.ID))
	got, err := f.notes.Get(ctx, alice, note.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{home.ID}, got.Tags)

	_, err = f.tags.Get(ctx, alice, work.ID)
	requireAppErr(t, err, apperr.KindNotFound, "Not Found")
}

func TestTagService_DeleteForeignTagLeavesNotesAlone(t *testing.T) {
	f := newDomainFixture(t)
	ctx := context.Background()

	tag, err := f.tags.Create(ctx, alice, "work")
	require.NoError(t, err)
	note, err := f.notes.Create(ctx, alice, NoteInput{Title: "todo", Tags: []string{tag.ID}})
	require.NoError(t, err)

	err = f.tags.Delete(ctx, bob, tag.ID)
	requireAppErr(t, err, apperr.KindNotFound, "Not Found")

	assert.Equal(t, []string{note.ID}, f.ms.NotesReferencing(tag.ID))
	_, err = f.tags.Get(ctx, alice, tag.ID)
	assert.NoError(t, err)
}

func TestTagService_DeleteMalformedIDIsNotFound(t *testing.T) {
	f := newDomainFixture(t)

	err := f.tags.Delete(context.Background(), alice, "1234")
	requireAppErr(t, err, apperr.KindNotFound, "Not Found")
	assert.Empty(t, f.events.types())
}
