// Package repotest provides in-memory implementations of the repo contracts
// for use in tests.
package repotest

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/topautomaat/gallery-backend/internal/entity"
	"github.com/topautomaat/gallery-backend/pkg/types/errs"
)

// snapshotter is implemented by stores that Transactor can roll back.
type snapshotter interface {
	snapshot() func()
}

// Transactor rolls back the registered stores when f fails.
type Transactor struct {
	Stores []snapshotter
	Calls  int
}

func NewTransactor(stores ...snapshotter) *Transactor {
	return &Transactor{Stores: stores}
}

func (t *Transactor) WithinTransaction(ctx context.Context, f func(ctx context.Context) error) error {
	t.Calls++

	restores := make([]func(), 0, len(t.Stores))
	for _, s := range t.Stores {
		restores = append(restores, s.snapshot())
	}

	if err := f(ctx); err != nil {
		for _, restore := range restores {
			restore()
		}
		return err
	}

	return nil
}

// Files is a FileRepo backed by a map. WriteErr and DeleteErr, when set,
// decide per key whether the call fails.
type Files struct {
	mu        sync.Mutex
	Data      map[string][]byte
	WriteErr  func(key string) error
	DeleteErr func(key string) error
	Writes    []string
}

func NewFiles() *Files {
	return &Files{Data: map[string][]byte{}}
}

func (f *Files) Write(_ context.Context, key string, data []byte, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Writes = append(f.Writes, key)
	if f.WriteErr != nil {
		if err := f.WriteErr(key); err != nil {
			return err
		}
	}

	f.Data[key] = append([]byte(nil), data...)

	return nil
}

func (f *Files) Read(_ context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, ok := f.Data[key]
	if !ok {
		return nil, errs.ErrRecordNotFound
	}

	return io.NopCloser(bytes.NewReader(b)), nil
}

func (f *Files) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.DeleteErr != nil {
		if err := f.DeleteErr(key); err != nil {
			return err
		}
	}

	delete(f.Data, key)

	return nil
}

func (f *Files) Has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, ok := f.Data[key]
	return ok
}

func (f *Files) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.Data)
}

// Photos is a PhotoRepo that assigns ids and timestamps like the database.
type Photos struct {
	mu        sync.Mutex
	rows      []entity.Photo
	nextID    int64
	clock     time.Time
	CreateErr error
	ListErr   error
	DeleteErr error
}

func NewPhotos() *Photos {
	return &Photos{nextID: 1, clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (p *Photos) Create(_ context.Context, photo *entity.Photo) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.CreateErr != nil {
		return p.CreateErr
	}

	photo.ID = p.nextID
	p.nextID++
	p.clock = p.clock.Add(time.Second)
	photo.CreatedAt = p.clock

	p.rows = append(p.rows, *photo)

	return nil
}

func (p *Photos) List(_ context.Context) ([]entity.Photo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ListErr != nil {
		return nil, p.ListErr
	}

	out := append([]entity.Photo{}, p.rows...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	return out, nil
}

func (p *Photos) Delete(_ context.Context, id int64) (*entity.Photo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.DeleteErr != nil {
		return nil, p.DeleteErr
	}

	for i, row := range p.rows {
		if row.ID == id {
			p.rows = append(p.rows[:i], p.rows[i+1:]...)
			return &row, nil
		}
	}

	return nil, nil
}

func (p *Photos) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.rows)
}

func (p *Photos) snapshot() func() {
	p.mu.Lock()
	saved := append([]entity.Photo{}, p.rows...)
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		p.rows = saved
		p.mu.Unlock()
	}
}

// Contacts is a ContactSubmissionRepo.
type Contacts struct {
	mu        sync.Mutex
	rows      []entity.ContactSubmission
	clock     time.Time
	CreateErr error
}

func NewContacts() *Contacts {
	return &Contacts{clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *Contacts) Create(_ context.Context, s *entity.ContactSubmission) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.CreateErr != nil {
		return c.CreateErr
	}

	s.ID = int64(len(c.rows) + 1)
	c.clock = c.clock.Add(time.Second)
	s.CreatedAt = c.clock
	c.rows = append(c.rows, *s)

	return nil
}

func (c *Contacts) List(_ context.Context) ([]entity.ContactSubmission, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]entity.ContactSubmission, 0, len(c.rows))
	for i := len(c.rows) - 1; i >= 0; i-- {
		out = append(out, c.rows[i])
	}

	return out, nil
}

// Users is a UserRepo keyed by id.
type Users struct {
	mu     sync.Mutex
	rows   map[string]*entity.User
	GetErr error
}

func NewUsers(users ...*entity.User) *Users {
	u := &Users{rows: map[string]*entity.User{}}
	for _, user := range users {
		u.rows[user.ID] = user
	}
	return u
}

func (u *Users) GetByID(_ context.Context, id string) (*entity.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.GetErr != nil {
		return nil, u.GetErr
	}

	user, ok := u.rows[id]
	if !ok {
		return nil, errs.ErrRecordNotFound
	}

	cp := *user
	return &cp, nil
}

func (u *Users) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.GetErr != nil {
		return nil, u.GetErr
	}

	for _, user := range u.rows {
		if user.Email != nil && *user.Email == email {
			cp := *user
			return &cp, nil
		}
	}

	return nil, errs.ErrRecordNotFound
}

func (u *Users) Upsert(_ context.Context, user *entity.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	for id, existing := range u.rows {
		if existing.Email != nil && user.Email != nil && *existing.Email == *user.Email {
			user.ID = id
			u.rows[id] = user
			return nil
		}
	}

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	u.rows[user.ID] = user

	return nil
}

// Outbox is a PhotoOutboxRepo.
type Outbox struct {
	mu        sync.Mutex
	Events    []*entity.OutboxEvent
	CreateErr error
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) Create(_ context.Context, event *entity.OutboxEvent) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.CreateErr != nil {
		return o.CreateErr
	}

	o.Events = append(o.Events, event)

	return nil
}

func (o *Outbox) GetPendingEvents(_ context.Context, limit int, maxRetries int) ([]*entity.OutboxEvent, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	var out []*entity.OutboxEvent
	for _, e := range o.Events {
		if e.Status == entity.Pending && e.RetryCount < maxRetries && len(out) < limit {
			out = append(out, e)
		}
	}

	return out, nil
}

func (o *Outbox) MarkAsProcessingBatch(_ context.Context, IDs uuid.UUIDs) error {
	return o.update(IDs, func(e *entity.OutboxEvent) { e.Status = entity.Processing })
}

func (o *Outbox) MarkAsProcessedBatch(_ context.Context, IDs uuid.UUIDs) error {
	now := time.Now()
	return o.update(IDs, func(e *entity.OutboxEvent) {
		e.Status = entity.Processed
		e.ProcessedAt = &now
	})
}

func (o *Outbox) IncrementRetryCountBatch(_ context.Context, IDs uuid.UUIDs) error {
	return o.update(IDs, func(e *entity.OutboxEvent) {
		e.RetryCount++
		e.Status = entity.Pending
	})
}

func (o *Outbox) MarkMaxRetriesAsFailed(_ context.Context, maxRetries int) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, e := range o.Events {
		if e.Status == entity.Pending && e.RetryCount >= maxRetries {
			e.Status = entity.Failed
		}
	}

	return nil
}

func (o *Outbox) DeleteOldProcessedAndFailed(_ context.Context) (int64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	kept := o.Events[:0]
	var deleted int64
	for _, e := range o.Events {
		if e.Status == entity.Processed || e.Status == entity.Failed {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	o.Events = kept

	return deleted, nil
}

func (o *Outbox) update(IDs uuid.UUIDs, f func(e *entity.OutboxEvent)) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	var n int
	for _, e := range o.Events {
		for _, id := range IDs {
			if e.ID == id {
				f(e)
				n++
			}
		}
	}

	if n == 0 {
		return errs.ErrRecordNotFound
	}

	return nil
}

func (o *Outbox) snapshot() func() {
	o.mu.Lock()
	saved := append([]*entity.OutboxEvent{}, o.Events...)
	o.mu.Unlock()

	return func() {
		o.mu.Lock()
		o.Events = saved
		o.mu.Unlock()
	}
}
