package contact

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/topautomaat/gallery-backend/internal/dto"
	"github.com/topautomaat/gallery-backend/internal/entity"
	"github.com/topautomaat/gallery-backend/internal/repo/repotest"
	"github.com/topautomaat/gallery-backend/pkg/logger"
	"github.com/topautomaat/gallery-backend/pkg/types/errs"
)

type fakeGuard struct{}

func (fakeGuard) RequireAdmin(_ context.Context, identity string) (*entity.User, error) {
	if identity == "admin" {
		return &entity.User{ID: "admin", IsAdmin: true}, nil
	}
	return nil, errs.ErrForbidden
}

func strPtr(s string) *string { return &s }

func validInput() dto.ContactInput {
	return dto.ContactInput{
		FirstName: "Sara",
		LastName:  "de Vries",
		Email:     "sara@example.nl",
		Message:   "Ik wil graag een proefles.",
	}
}

func TestCreate_DefaultsLanguage(t *testing.T) {
	uc := New(fakeGuard{}, repotest.NewContacts(), logger.NewNop())

	s, err := uc.Create(context.Background(), validInput())
	require.NoError(t, err)

	assert.Equal(t, int64(1), s.ID)
	assert.Equal(t, entity.DefaultLanguage, s.Language)
	assert.Nil(t, s.Service)
	assert.Nil(t, s.Phone)
	assert.False(t, s.CreatedAt.IsZero())
}

func TestCreate_OptionalFields(t *testing.T) {
	uc := New(fakeGuard{}, repotest.NewContacts(), logger.NewNop())

	in := validInput()
	in.Phone = strPtr(" +31 6 12345678 ")
	in.Service = strPtr("trial")
	in.Language = "AR"

	s, err := uc.Create(context.Background(), in)
	require.NoError(t, err)

	require.NotNil(t, s.Phone)
	assert.Equal(t, "+31 6 12345678", *s.Phone)
	require.NotNil(t, s.Service)
	assert.Equal(t, entity.ServiceTrial, *s.Service)
	assert.Equal(t, "ar", s.Language)
}

func TestCreate_BlankOptionalsBecomeNil(t *testing.T) {
	uc := New(fakeGuard{}, repotest.NewContacts(), logger.NewNop())

	in := validInput()
	in.Phone = strPtr("   ")
	in.Service = strPtr("")

	s, err := uc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Nil(t, s.Phone)
	assert.Nil(t, s.Service)
}

func TestCreate_StripsMarkup(t *testing.T) {
	uc := New(fakeGuard{}, repotest.NewContacts(), logger.NewNop())

	in := validInput()
	in.Message = `<script>alert(1)</script>Hallo <b>daar</b>`

	s, err := uc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "Hallo daar", s.Message)
}

func TestCreate_KeepsPlainTextVerbatim(t *testing.T) {
	uc := New(fakeGuard{}, repotest.NewContacts(), logger.NewNop())

	in := validInput()
	in.LastName = "O'Brien"
	in.Message = `Lessen & examen, prijs < 50 euro? "Graag" snel.`

	s, err := uc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "O'Brien", s.LastName)
	assert.Equal(t, `Lessen & examen, prijs < 50 euro? "Graag" snel.`, s.Message)
}

func TestCreate_StripsEncodedMarkup(t *testing.T) {
	uc := New(fakeGuard{}, repotest.NewContacts(), logger.NewNop())

	in := validInput()
	in.Message = `Hallo &lt;script&gt;alert(1)&lt;/script&gt;daar`

	s, err := uc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "Hallo daar", s.Message)
}

type fakeNotifier struct {
	sent []entity.ContactSubmission
	err  error
}

func (n *fakeNotifier) NotifyContact(_ context.Context, s entity.ContactSubmission) error {
	n.sent = append(n.sent, s)
	return n.err
}

func TestCreate_Notifies(t *testing.T) {
	notifier := &fakeNotifier{}
	uc := New(fakeGuard{}, repotest.NewContacts(), logger.NewNop(), Notifier(notifier))

	s, err := uc.Create(context.Background(), validInput())
	require.NoError(t, err)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, s.ID, notifier.sent[0].ID)
	assert.Equal(t, "sara@example.nl", notifier.sent[0].Email)
}

func TestCreate_NotifyFailureKeepsSubmission(t *testing.T) {
	contacts := repotest.NewContacts()
	notifier := &fakeNotifier{err: errors.New("sendgrid: 503")}
	uc := New(fakeGuard{}, contacts, logger.NewNop(), Notifier(notifier))

	s, err := uc.Create(context.Background(), validInput())
	require.NoError(t, err)
	require.NotNil(t, s)

	list, err := contacts.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCreate_InvalidDoesNotNotify(t *testing.T) {
	notifier := &fakeNotifier{}
	uc := New(fakeGuard{}, repotest.NewContacts(), logger.NewNop(), Notifier(notifier))

	in := validInput()
	in.Email = "nope"

	_, err := uc.Create(context.Background(), in)
	require.ErrorIs(t, err, errs.ErrInvalidInput)
	assert.Empty(t, notifier.sent)
}

func TestCreate_Invalid(t *testing.T) {
	tests := map[string]func(in *dto.ContactInput){
		"missing first name": func(in *dto.ContactInput) { in.FirstName = "" },
		"markup only name":   func(in *dto.ContactInput) { in.LastName = "<b></b>" },
		"bad email":          func(in *dto.ContactInput) { in.Email = "not-an-email" },
		"missing message":    func(in *dto.ContactInput) { in.Message = " " },
		"unknown service":    func(in *dto.ContactInput) { in.Service = strPtr("weekend") },
		"unknown language":   func(in *dto.ContactInput) { in.Language = "fr" },
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			contacts := repotest.NewContacts()
			uc := New(fakeGuard{}, contacts, logger.NewNop())

			in := validInput()
			mutate(&in)

			_, err := uc.Create(context.Background(), in)
			assert.ErrorIs(t, err, errs.ErrInvalidInput)

			list, err := contacts.List(context.Background())
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}

func TestCreate_ErrorNamesField(t *testing.T) {
	uc := New(fakeGuard{}, repotest.NewContacts(), logger.NewNop())

	in := validInput()
	in.Email = "nope"

	_, err := uc.Create(context.Background(), in)
	assert.ErrorContains(t, err, "email: email")
}

func TestCreate_DatabaseError(t *testing.T) {
	contacts := repotest.NewContacts()
	contacts.CreateErr = errors.New("boom")

	_, err := New(fakeGuard{}, contacts, logger.NewNop()).Create(context.Background(), validInput())
	assert.ErrorIs(t, err, errs.ErrDatabase)
}

func TestList(t *testing.T) {
	uc := New(fakeGuard{}, repotest.NewContacts(), logger.NewNop())
	ctx := context.Background()

	first, err := uc.Create(ctx, validInput())
	require.NoError(t, err)
	second, err := uc.Create(ctx, validInput())
	require.NoError(t, err)

	list, err := uc.List(ctx, "admin")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)

	_, err = uc.List(ctx, "")
	assert.ErrorIs(t, err, errs.ErrForbidden)
}
