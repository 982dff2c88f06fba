package persistent

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/topautomaat/gallery-backend/internal/entity"
	"github.com/topautomaat/gallery-backend/pkg/postgres"
)

const (
	// Table
	photosTable = "photos"

	// Columns
	photoIDColumn           = "id"
	photoFilenameColumn     = "filename"
	photoOriginalNameColumn = "original_name"
	photoMimeTypeColumn     = "mimetype"
	photoSizeColumn         = "size"
	photoURLColumn          = "url"
	photoThumbnailURLColumn = "thumbnail_url"
	photoUploadedByColumn   = "uploaded_by"
	photoCreatedAtColumn    = "created_at"
)

var photoColumns = []string{
	photoIDColumn,
	photoFilenameColumn,
	photoOriginalNameColumn,
	photoMimeTypeColumn,
	photoSizeColumn,
	photoURLColumn,
	photoThumbnailURLColumn,
	photoUploadedByColumn,
	photoCreatedAtColumn,
}

type PhotoRepo struct {
	*postgres.Postgres
}

func NewPhotoRepo(pg *postgres.Postgres) *PhotoRepo {
	return &PhotoRepo{pg}
}

// Create inserts photo and fills in the id and created_at assigned by the database.
func (r *PhotoRepo) Create(ctx context.Context, photo *entity.Photo) error {
	sql, args, err := r.Builder.
		Insert(photosTable).
		Columns(
			photoFilenameColumn,
			photoOriginalNameColumn,
			photoMimeTypeColumn,
			photoSizeColumn,
			photoURLColumn,
			photoThumbnailURLColumn,
			photoUploadedByColumn,
		).
		Values(
			photo.Filename,
			photo.OriginalName,
			photo.MimeType,
			photo.Size,
			photo.URL,
			photo.ThumbnailURL,
			photo.UploadedBy,
		).
		Suffix("RETURNING " + photoIDColumn + ", " + photoCreatedAtColumn).
		ToSql()
	if err != nil {
		return fmt.Errorf("PhotoRepo - Create - r.Builder.ToSql: %w", err)
	}

	// Pool / Tx
	executor := r.GetExecutor(ctx)

	err = executor.QueryRow(ctx, sql, args...).Scan(&photo.ID, &photo.CreatedAt)
	if err != nil {
		return fmt.Errorf("PhotoRepo - Create - executor.QueryRow: %w", err)
	}

	return nil
}

func (r *PhotoRepo) List(ctx context.Context) ([]entity.Photo, error) {
	sql, args, err := r.Builder.
		Select(photoColumns...).
		From(photosTable).
		OrderBy(photoCreatedAtColumn+" DESC", photoIDColumn+" DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("PhotoRepo - List - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	rows, err := executor.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("PhotoRepo - List - executor.Query: %w", err)
	}
	defer rows.Close()

	photos := make([]entity.Photo, 0)
	for rows.Next() {
		var p entity.Photo
		if err = scanPhoto(rows, &p); err != nil {
			return nil, fmt.Errorf("PhotoRepo - List - rows.Scan: %w", err)
		}
		photos = append(photos, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("PhotoRepo - List - rows.Err: %w", err)
	}

	return photos, nil
}

func (r *PhotoRepo) Delete(ctx context.Context, id int64) (*entity.Photo, error) {
	sql, args, err := r.Builder.
		Delete(photosTable).
		Where(squirrel.Eq{photoIDColumn: id}).
		Suffix("RETURNING " + joinColumns(photoColumns)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("PhotoRepo - Delete - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	var p entity.Photo
	err = scanPhoto(executor.QueryRow(ctx, sql, args...), &p)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("PhotoRepo - Delete - executor.QueryRow: %w", err)
	}

	return &p, nil
}

func scanPhoto(row pgx.Row, p *entity.Photo) error {
	return row.Scan(
		&p.ID,
		&p.Filename,
		&p.OriginalName,
		&p.MimeType,
		&p.Size,
		&p.URL,
		&p.ThumbnailURL,
		&p.UploadedBy,
		&p.CreatedAt,
	)
}
