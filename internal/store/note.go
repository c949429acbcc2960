package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/noteful/apiserver/types"
)

// NoteRepository handles persistence for notes and their tag links.
type NoteRepository struct {
	db *sql.DB
}

func NewNoteRepository(db *sql.DB) *NoteRepository {
	return &NoteRepository{db: db}
}

const noteColumns = `
		n.id, n.title, n.content, n.user_id, n.created_at, n.updated_at,
		COALESCE(array_agg(nt.tag_id::text ORDER BY nt.tag_id) FILTER (WHERE nt.tag_id IS NOT NULL), '{}') AS tags`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(row rowScanner) (types.Note, error) {
	var note types.Note
	var tags pq.StringArray
	if err := row.Scan(
		&note.ID,
		&note.Title,
		&note.Content,
		&note.UserID,
		&note.CreatedAt,
		&note.UpdatedAt,
		&tags,
	); err != nil {
		return types.Note{}, err
	}
	note.Tags = []string(tags)
	if note.Tags == nil {
		note.Tags = []string{}
	}
	return note, nil
}

// List returns the user's notes, most recently updated first.
func (r *NoteRepository) List(ctx context.Context, userID string, filter types.NoteFilter) ([]types.Note, error) {
	const query = `
		SELECT` + noteColumns + `
		FROM notes n
		LEFT JOIN note_tags nt ON nt.note_id = n.id
		WHERE n.user_id = $1
			AND ($2 = '' OR n.title ILIKE '%' || $2 || '%' OR n.content ILIKE '%' || $2 || '%')
			AND ($3 = '' OR EXISTS (
				SELECT 1 FROM note_tags f WHERE f.note_id = n.id AND f.tag_id::text = $3))
		GROUP BY n.id
		ORDER BY n.updated_at DESC, n.id`
	rows, err := r.db.QueryContext(ctx, query, userID, filter.SearchTerm, filter.TagID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := make([]types.Note, 0)
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return notes, nil
}

func (r *NoteRepository) Get(ctx context.Context, id, userID string) (types.Note, error) {
	const query = `
		SELECT` + noteColumns + `
		FROM notes n
		LEFT JOIN note_tags nt ON nt.note_id = n.id
		WHERE n.id = $1 AND n.user_id = $2
		GROUP BY n.id`
	note, err := scanNote(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Note{}, ErrNotFound
		}
		return types.Note{}, err
	}
	return note, nil
}

func (r *NoteRepository) Create(ctx context.Context, note types.Note) (_ types.Note, err error) {
	now := time.Now().UTC()
	note.ID = uuid.NewString()
	note.CreatedAt = now
	note.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Note{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `
		INSERT INTO notes (id, title, content, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err = tx.ExecContext(ctx, query, note.ID, note.Title, note.Content, note.UserID, note.CreatedAt, note.UpdatedAt); err != nil {
		return types.Note{}, err
	}
	if err = insertNoteTags(ctx, tx, note.ID, note.Tags); err != nil {
		return types.Note{}, err
	}
	if err = tx.Commit(); err != nil {
		return types.Note{}, err
	}
	return note, nil
}

// Update replaces title, content and tags of the note identified by
// (ID, UserID).
func (r *NoteRepository) Update(ctx context.Context, note types.Note) (_ types.Note, err error) {
	note.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Note{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `
		UPDATE notes
		SET title = $1,
			content = $2,
			updated_at = $3
		WHERE id = $4 AND user_id = $5
		RETURNING created_at`
	err = tx.QueryRowContext(ctx, query, note.Title, note.Content, note.UpdatedAt, note.ID, note.UserID).Scan(&note.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrNotFound
		}
		return types.Note{}, err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM note_tags WHERE note_id = $1`, note.ID); err != nil {
		return types.Note{}, err
	}
	if err = insertNoteTags(ctx, tx, note.ID, note.Tags); err != nil {
		return types.Note{}, err
	}
	if err = tx.Commit(); err != nil {
		return types.Note{}, err
	}
	return note, nil
}

func (r *NoteRepository) Delete(ctx context.Context, id, userID string) error {
	const query = `DELETE FROM notes WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func insertNoteTags(ctx context.Context, tx *sql.Tx, noteID string, tagIDs []string) error {
	if len(tagIDs) == 0 {
		return nil
	}
	const query = `
		INSERT INTO note_tags (note_id, tag_id)
		SELECT $1, unnest($2::uuid[])
		ON CONFLICT DO NOTHING`
	_, err := tx.ExecContext(ctx, query, noteID, pq.Array(tagIDs))
	return err
}
