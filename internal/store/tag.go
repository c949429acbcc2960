package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/noteful/apiserver/types"
)

// TagRepository handles persistence for tags. Every query is filtered by the
// owning user id except the note cleanup in Delete.
type TagRepository struct {
	db *sql.DB
}

func NewTagRepository(db *sql.DB) *TagRepository {
	return &TagRepository{db: db}
}

func (r *TagRepository) List(ctx context.Context, userID string) ([]types.Tag, error) {
	const query = `
		SELECT id, name, user_id, created_at, updated_at
		FROM tags
		WHERE user_id = $1
		ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := make([]types.Tag, 0)
	for rows.Next() {
		var tag types.Tag
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.UserID, &tag.CreatedAt, &tag.UpdatedAt); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tags, nil
}

func (r *TagRepository) Get(ctx context.Context, id, userID string) (types.Tag, error) {
	const query = `
		SELECT id, name, user_id, created_at, updated_at
		FROM tags
		WHERE id = $1 AND user_id = $2`
	var tag types.Tag
	err := r.db.QueryRowContext(ctx, query, id, userID).Scan(
		&tag.ID,
		&tag.Name,
		&tag.UserID,
		&tag.CreatedAt,
		&tag.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Tag{}, ErrNotFound
		}
		return types.Tag{}, err
	}
	return tag, nil
}

func (r *TagRepository) Create(ctx context.Context, tag types.Tag) (types.Tag, error) {
	now := time.Now().UTC()
	tag.ID = uuid.NewString()
	tag.CreatedAt = now
	tag.UpdatedAt = now

	const query = `
		INSERT INTO tags (id, name, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, query, tag.ID, tag.Name, tag.UserID, tag.CreatedAt, tag.UpdatedAt); err != nil {
		return types.Tag{}, mapWriteError(err)
	}
	return tag, nil
}

// Update renames the tag identified by (ID, UserID).
func (r *TagRepository) Update(ctx context.Context, tag types.Tag) (types.Tag, error) {
	const query = `
		UPDATE tags
		SET name = $1,
			updated_at = $2
		WHERE id = $3 AND user_id = $4
		RETURNING created_at`
	tag.UpdatedAt = time.Now().UTC()
	err := r.db.QueryRowContext(ctx, query, tag.Name, tag.UpdatedAt, tag.ID, tag.UserID).Scan(&tag.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Tag{}, ErrNotFound
		}
		return types.Tag{}, mapWriteError(err)
	}
	return tag, nil
}

// Delete removes the tag owned by userID and pulls its id from every note in
// the same transaction. The note cleanup is not filtered by owner. When no
// tag matches, nothing is changed and ErrNotFound is returned.
func (r *TagRepository) Delete(ctx context.Context, id, userID string) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	result, err := tx.ExecContext(ctx, `DELETE FROM tags WHERE id = $1 AND user_id = $2`, id, userID)
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

	if _, err = tx.ExecContext(ctx, `DELETE FROM note_tags WHERE tag_id = $1`, id); err != nil {
		return fmt.Errorf("pull tag from notes: %w", err)
	}

	return tx.Commit()
}

// CountOwned returns how many of ids are tags owned by userID.
func (r *TagRepository) CountOwned(ctx context.Context, userID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	const query = `SELECT COUNT(1) FROM tags WHERE user_id = $1 AND id = ANY($2::uuid[])`
	var count int
	if err := r.db.QueryRowContext(ctx, query, userID, pq.Array(ids)).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
