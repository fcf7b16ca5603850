package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mediavault/api/internal/models"
)

var ErrMediaNotFound = errors.New("media not found")

type MediaRepository struct {
	pool *pgxpool.Pool
}

func NewMediaRepository(pool *pgxpool.Pool) *MediaRepository {
	return &MediaRepository{pool: pool}
}

const mediaColumns = `
	id, owner_id, allowed_user_ids, file_name, mime_type, size_bytes,
	bucket, object_key, created_at, updated_at
`

func (r *MediaRepository) Create(ctx context.Context, media models.Media) error {
	const query = `
		INSERT INTO media (
			id, owner_id, allowed_user_ids, file_name, mime_type, size_bytes,
			bucket, object_key, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW()
		)
	`

	_, err := r.pool.Exec(ctx, query,
		media.ID,
		media.OwnerID,
		media.AllowedUserIDs,
		media.FileName,
		media.MimeType,
		media.SizeBytes,
		media.Bucket,
		media.ObjectKey,
	)
	return err
}

func (r *MediaRepository) GetByID(ctx context.Context, id string) (models.Media, error) {
	const query = `SELECT ` + mediaColumns + ` FROM media WHERE id = $1`
	return r.scanMedia(r.pool.QueryRow(ctx, query, id))
}

func (r *MediaRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Media, error) {
	const query = `
		SELECT ` + mediaColumns + `
		FROM media
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.Media
	for rows.Next() {
		media, err := r.scanMedia(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, media)
	}
	return items, rows.Err()
}

// UpdateAllowList replaces the allow-list wholesale. Concurrent callers race
// last-writer-wins, which is the documented behavior.
func (r *MediaRepository) UpdateAllowList(ctx context.Context, id string, allowedUserIDs []string) error {
	const query = `
		UPDATE media SET allowed_user_ids = $2, updated_at = NOW() WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query, id, allowedUserIDs)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrMediaNotFound
	}
	return nil
}

func (r *MediaRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM media WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrMediaNotFound
	}
	return nil
}

func (r *MediaRepository) scanMedia(row pgx.Row) (models.Media, error) {
	var media models.Media
	if err := row.Scan(
		&media.ID,
		&media.OwnerID,
		&media.AllowedUserIDs,
		&media.FileName,
		&media.MimeType,
		&media.SizeBytes,
		&media.Bucket,
		&media.ObjectKey,
		&media.CreatedAt,
		&media.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Media{}, ErrMediaNotFound
		}
		return models.Media{}, err
	}
	if media.AllowedUserIDs == nil {
		media.AllowedUserIDs = []string{}
	}
	return media, nil
}
