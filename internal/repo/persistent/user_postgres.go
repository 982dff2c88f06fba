package persistent

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/topautomaat/gallery-backend/internal/entity"
	"github.com/topautomaat/gallery-backend/pkg/postgres"
	"github.com/topautomaat/gallery-backend/pkg/types/errs"
)

const (
	// Table
	usersTable = "users"

	// Columns
	userIDColumn              = "id"
	userEmailColumn           = "email"
	userFirstNameColumn       = "first_name"
	userLastNameColumn        = "last_name"
	userProfileImageURLColumn = "profile_image_url"
	userIsAdminColumn         = "is_admin"
	userPasswordHashColumn    = "password_hash"
	userCreatedAtColumn       = "created_at"
	userUpdatedAtColumn       = "updated_at"
)

type UserRepo struct {
	*postgres.Postgres
}

func NewUserRepo(pg *postgres.Postgres) *UserRepo {
	return &UserRepo{pg}
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return r.getBy(ctx, squirrel.Eq{userIDColumn: id})
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.getBy(ctx, squirrel.Eq{userEmailColumn: email})
}

func (r *UserRepo) getBy(ctx context.Context, where squirrel.Eq) (*entity.User, error) {
	sql, args, err := r.Builder.
		Select(
			userIDColumn,
			userEmailColumn,
			userFirstNameColumn,
			userLastNameColumn,
			userProfileImageURLColumn,
			userIsAdminColumn,
			userPasswordHashColumn,
			userCreatedAtColumn,
			userUpdatedAtColumn,
		).
		From(usersTable).
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("UserRepo - getBy - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	var u entity.User
	err = executor.QueryRow(ctx, sql, args...).Scan(
		&u.ID,
		&u.Email,
		&u.FirstName,
		&u.LastName,
		&u.ProfileImageURL,
		&u.IsAdmin,
		&u.PasswordHash,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("UserRepo - getBy: %w", errs.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("UserRepo - getBy - executor.QueryRow: %w", err)
	}

	return &u, nil
}

// Upsert inserts user or updates the row with the same email. ID and
// timestamps are filled from the stored row.
func (r *UserRepo) Upsert(ctx context.Context, user *entity.User) error {
	sql, args, err := r.Builder.
		Insert(usersTable).
		Columns(
			userEmailColumn,
			userFirstNameColumn,
			userLastNameColumn,
			userProfileImageURLColumn,
			userIsAdminColumn,
			userPasswordHashColumn,
		).
		Values(
			user.Email,
			user.FirstName,
			user.LastName,
			user.ProfileImageURL,
			user.IsAdmin,
			user.PasswordHash,
		).
		Suffix(
			"ON CONFLICT (" + userEmailColumn + ") DO UPDATE SET " +
				"first_name = COALESCE(EXCLUDED.first_name, users.first_name), " +
				"last_name = COALESCE(EXCLUDED.last_name, users.last_name), " +
				"profile_image_url = COALESCE(EXCLUDED.profile_image_url, users.profile_image_url), " +
				"is_admin = EXCLUDED.is_admin, " +
				"password_hash = COALESCE(EXCLUDED.password_hash, users.password_hash), " +
				"updated_at = now() " +
				"RETURNING " + userIDColumn + ", " + userCreatedAtColumn + ", " + userUpdatedAtColumn,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("UserRepo - Upsert - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	err = executor.QueryRow(ctx, sql, args...).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("UserRepo - Upsert - executor.QueryRow: %w", err)
	}

	return nil
}
