package contact

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"

	"github.com/topautomaat/gallery-backend/internal/dto"
	"github.com/topautomaat/gallery-backend/internal/entity"
	"github.com/topautomaat/gallery-backend/internal/infrastructure"
	"github.com/topautomaat/gallery-backend/internal/repo"
	"github.com/topautomaat/gallery-backend/internal/usecase"
	"github.com/topautomaat/gallery-backend/pkg/logger"
	"github.com/topautomaat/gallery-backend/pkg/types/errs"
)

const (
	defaultNotifyTimeout = 10 * time.Second
	maxSanitizePasses    = 4
)

type UseCase struct {
	guard       usecase.AdminGuard
	submissions repo.ContactSubmissionRepo

	notifier      infrastructure.ContactNotifier
	notifyTimeout time.Duration

	validate  *validator.Validate
	sanitizer *bluemonday.Policy

	logger logger.Interface
}

func New(guard usecase.AdminGuard, submissions repo.ContactSubmissionRepo, l logger.Interface, opts ...Option) *UseCase {
	uc := &UseCase{
		guard:         guard,
		submissions:   submissions,
		notifyTimeout: defaultNotifyTimeout,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		sanitizer:     bluemonday.StrictPolicy(),
		logger:        l,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// Create stores a visitor inquiry. Public.
func (uc *UseCase) Create(ctx context.Context, input dto.ContactInput) (*entity.ContactSubmission, error) {
	// 1. чистим разметку до валидации, чтобы "<b></b>" не прошло как непустое имя
	input = uc.clean(input)

	// 2. валидация
	if err := uc.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("ContactUseCase - Create - uc.validate.Struct: %w: %s", errs.ErrInvalidInput, describe(err))
	}

	s := &entity.ContactSubmission{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     input.Email,
		Phone:     input.Phone,
		Message:   input.Message,
		Language:  input.Language,
	}

	if input.Service != nil {
		service := entity.Service(*input.Service)
		s.Service = &service
	}

	if s.Language == "" {
		s.Language = entity.DefaultLanguage
	}

	// 3. сохраняем
	if err := uc.submissions.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("ContactUseCase - Create - uc.submissions.Create: %w: %w", errs.ErrDatabase, err)
	}

	uc.logger.Infow("contact submission received", "submission_id", s.ID, "language", s.Language)

	// 4. уведомление; заявка уже сохранена, поэтому ошибка только логируется
	uc.notify(ctx, s)

	return s, nil
}

func (uc *UseCase) notify(ctx context.Context, s *entity.ContactSubmission) {
	if uc.notifier == nil {
		return
	}

	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.notifyTimeout)
	defer cancel()

	if err := uc.notifier.NotifyContact(notifyCtx, *s); err != nil {
		uc.logger.Warnw("contact notification failed", "submission_id", s.ID, "error", err)
	}
}

// List returns all submissions, newest first. Admin only.
func (uc *UseCase) List(ctx context.Context, identity string) ([]entity.ContactSubmission, error) {
	if _, err := uc.guard.RequireAdmin(ctx, identity); err != nil {
		return nil, fmt.Errorf("ContactUseCase - List - uc.guard.RequireAdmin: %w", err)
	}

	submissions, err := uc.submissions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ContactUseCase - List - uc.submissions.List: %w: %w", errs.ErrDatabase, err)
	}

	return submissions, nil
}

func (uc *UseCase) clean(input dto.ContactInput) dto.ContactInput {
	input.FirstName = uc.text(input.FirstName)
	input.LastName = uc.text(input.LastName)
	input.Email = strings.TrimSpace(input.Email)
	input.Message = uc.text(input.Message)
	input.Language = strings.ToLower(strings.TrimSpace(input.Language))

	input.Phone = uc.optional(input.Phone)
	input.Service = uc.optional(input.Service)

	return input
}

// text strips markup and returns plain text. The sanitizer entity-escapes
// what it keeps, so its output is unescaped; that can reveal encoded markup,
// which is stripped again until the value is stable.
func (uc *UseCase) text(s string) string {
	for i := 0; i < maxSanitizePasses; i++ {
		next := html.UnescapeString(uc.sanitizer.Sanitize(s))
		if next == s {
			break
		}
		s = next
	}

	return strings.TrimSpace(s)
}

// optional turns blank values into nil.
func (uc *UseCase) optional(s *string) *string {
	if s == nil {
		return nil
	}

	v := uc.text(*s)
	if v == "" {
		return nil
	}

	return &v
}

// describe lists the failing fields as "field: rule" pairs.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s: %s", lowerFirst(fe.Field()), fe.Tag()))
	}

	return strings.Join(parts, ", ")
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}

	return strings.ToLower(s[:1]) + s[1:]
}
