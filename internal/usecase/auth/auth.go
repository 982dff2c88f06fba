package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/topautomaat/gallery-backend/internal/dto"
	"github.com/topautomaat/gallery-backend/internal/entity"
	"github.com/topautomaat/gallery-backend/internal/infrastructure"
	"github.com/topautomaat/gallery-backend/internal/repo"
	"github.com/topautomaat/gallery-backend/pkg/logger"
	"github.com/topautomaat/gallery-backend/pkg/types/errs"
)

type UseCase struct {
	users  repo.UserRepo
	tokens infrastructure.TokenManager
	logger logger.Interface

	hashCost  int
	dummyOnce sync.Once
	dummyHash []byte
}

func New(users repo.UserRepo, tokens infrastructure.TokenManager, l logger.Interface) *UseCase {
	return &UseCase{
		users:    users,
		tokens:   tokens,
		logger:   l,
		hashCost: bcrypt.DefaultCost,
	}
}

// RequireAdmin fails with errs.ErrForbidden for anonymous callers, unknown
// users and users without the admin flag.
func (uc *UseCase) RequireAdmin(ctx context.Context, identity string) (*entity.User, error) {
	user, err := uc.CurrentUser(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("AuthUseCase - RequireAdmin - uc.CurrentUser: %w", err)
	}

	if !entity.IsAdmin(user) {
		return nil, fmt.Errorf("AuthUseCase - RequireAdmin: %w", errs.ErrForbidden)
	}

	return user, nil
}

// CurrentUser returns nil without error when identity does not resolve to a user.
func (uc *UseCase) CurrentUser(ctx context.Context, identity string) (*entity.User, error) {
	if identity == "" {
		return nil, nil
	}

	user, err := uc.users.GetByID(ctx, identity)
	if err != nil {
		if errors.Is(err, errs.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("AuthUseCase - CurrentUser - uc.users.GetByID: %w: %w", errs.ErrDatabase, err)
	}

	return user, nil
}

func (uc *UseCase) Login(ctx context.Context, email, password string) (dto.Token, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return dto.Token{}, fmt.Errorf("AuthUseCase - Login: email and password are required: %w", errs.ErrInvalidInput)
	}

	user, err := uc.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, errs.ErrRecordNotFound) {
		return dto.Token{}, fmt.Errorf("AuthUseCase - Login - uc.users.GetByEmail: %w: %w", errs.ErrDatabase, err)
	}

	if user == nil || user.PasswordHash == nil {
		// same bcrypt cost whether or not the user exists
		_ = bcrypt.CompareHashAndPassword(uc.dummy(), []byte(password))

		return dto.Token{}, fmt.Errorf("AuthUseCase - Login: %w", errs.ErrUnauthorized)
	}

	err = bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password))
	if err != nil {
		return dto.Token{}, fmt.Errorf("AuthUseCase - Login - bcrypt.CompareHashAndPassword: %w", errs.ErrUnauthorized)
	}

	signed, expiresAt, err := uc.tokens.Issue(user.ID)
	if err != nil {
		return dto.Token{}, fmt.Errorf("AuthUseCase - Login - uc.tokens.Issue: %w", err)
	}

	return dto.Token{Token: signed, ExpiresAt: expiresAt}, nil
}

func (uc *UseCase) Identify(token string) string {
	if token == "" {
		return ""
	}

	userID, err := uc.tokens.Parse(token)
	if err != nil {
		uc.logger.Debug("AuthUseCase - Identify - rejected token: %v", err)

		return ""
	}

	return userID
}

// SeedAdmin creates or refreshes the admin account. An empty email disables seeding.
func (uc *UseCase) SeedAdmin(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)
	if email == "" {
		return nil
	}

	if password == "" {
		return fmt.Errorf("AuthUseCase - SeedAdmin: password is required: %w", errs.ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), uc.hashCost)
	if err != nil {
		return fmt.Errorf("AuthUseCase - SeedAdmin - bcrypt.GenerateFromPassword: %w", err)
	}

	hashStr := string(hash)
	user := &entity.User{
		Email:        &email,
		IsAdmin:      true,
		PasswordHash: &hashStr,
	}

	if err := uc.users.Upsert(ctx, user); err != nil {
		return fmt.Errorf("AuthUseCase - SeedAdmin - uc.users.Upsert: %w", err)
	}

	uc.logger.Infow("admin account ready", "user_id", user.ID, "email", email)

	return nil
}

func (uc *UseCase) dummy() []byte {
	uc.dummyOnce.Do(func() {
		uc.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), uc.hashCost)
	})

	return uc.dummyHash
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
