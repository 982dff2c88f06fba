package persistent

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/topautomaat/gallery-backend/internal/entity"
	"github.com/topautomaat/gallery-backend/pkg/postgres"
)

const (
	// Table
	contactTable = "contact_submissions"

	// Columns
	contactIDColumn        = "id"
	contactFirstNameColumn = "first_name"
	contactLastNameColumn  = "last_name"
	contactEmailColumn     = "email"
	contactPhoneColumn     = "phone"
	contactServiceColumn   = "service"
	contactMessageColumn   = "message"
	contactLanguageColumn  = "language"
	contactCreatedAtColumn = "created_at"
)

type ContactSubmissionRepo struct {
	*postgres.Postgres
}

func NewContactSubmissionRepo(pg *postgres.Postgres) *ContactSubmissionRepo {
	return &ContactSubmissionRepo{pg}
}

func (r *ContactSubmissionRepo) Create(ctx context.Context, s *entity.ContactSubmission) error {
	var service *string
	if s.Service != nil {
		v := string(*s.Service)
		service = &v
	}

	sql, args, err := r.Builder.
		Insert(contactTable).
		Columns(
			contactFirstNameColumn,
			contactLastNameColumn,
			contactEmailColumn,
			contactPhoneColumn,
			contactServiceColumn,
			contactMessageColumn,
			contactLanguageColumn,
		).
		Values(
			s.FirstName,
			s.LastName,
			s.Email,
			s.Phone,
			service,
			s.Message,
			s.Language,
		).
		Suffix("RETURNING " + contactIDColumn + ", " + contactCreatedAtColumn).
		ToSql()
	if err != nil {
		return fmt.Errorf("ContactSubmissionRepo - Create - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	err = executor.QueryRow(ctx, sql, args...).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("ContactSubmissionRepo - Create - executor.QueryRow: %w", err)
	}

	return nil
}

func (r *ContactSubmissionRepo) List(ctx context.Context) ([]entity.ContactSubmission, error) {
	sql, args, err := r.Builder.
		Select(
			contactIDColumn,
			contactFirstNameColumn,
			contactLastNameColumn,
			contactEmailColumn,
			contactPhoneColumn,
			contactServiceColumn,
			contactMessageColumn,
			contactLanguageColumn,
			contactCreatedAtColumn,
		).
		From(contactTable).
		OrderBy(contactCreatedAtColumn+" DESC", contactIDColumn+" DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ContactSubmissionRepo - List - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	rows, err := executor.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("ContactSubmissionRepo - List - executor.Query: %w", err)
	}
	defer rows.Close()

	submissions := make([]entity.ContactSubmission, 0)
	for rows.Next() {
		s, err := scanContactSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("ContactSubmissionRepo - List - rows.Scan: %w", err)
		}
		submissions = append(submissions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ContactSubmissionRepo - List - rows.Err: %w", err)
	}

	return submissions, nil
}

func scanContactSubmission(row pgx.Row) (entity.ContactSubmission, error) {
	var (
		s       entity.ContactSubmission
		service *string
	)

	err := row.Scan(
		&s.ID,
		&s.FirstName,
		&s.LastName,
		&s.Email,
		&s.Phone,
		&service,
		&s.Message,
		&s.Language,
		&s.CreatedAt,
	)
	if err != nil {
		return entity.ContactSubmission{}, err
	}

	if service != nil {
		v := entity.Service(*service)
		s.Service = &v
	}

	return s, nil
}
