package photo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/topautomaat/gallery-backend/internal/dto"
	"github.com/topautomaat/gallery-backend/internal/entity"
	"github.com/topautomaat/gallery-backend/internal/infrastructure/processor"
	"github.com/topautomaat/gallery-backend/internal/repo/persistent"
	"github.com/topautomaat/gallery-backend/internal/repo/repotest"
	"github.com/topautomaat/gallery-backend/pkg/types/errs"
)

const (
	adminID   = "admin-1"
	visitorID = "visitor-1"
)

type fakeGuard struct{}

func (fakeGuard) RequireAdmin(_ context.Context, identity string) (*entity.User, error) {
	switch identity {
	case adminID:
		return &entity.User{ID: adminID, IsAdmin: true}, nil
	default:
		return nil, errs.ErrForbidden
	}
}

type fakeDeriver struct {
	calls int
	err   error
}

func (d *fakeDeriver) Derive(_ context.Context, data []byte) (dto.Derived, error) {
	d.calls++
	if d.err != nil {
		return dto.Derived{}, d.err
	}
	return dto.Derived{Display: append([]byte("display:"), data...), Thumbnail: []byte("thumb")}, nil
}

// fakeCache mirrors the generation scheme of the redis cache.
type fakeCache struct {
	version     int64
	entries     map[int64][]entity.Photo
	invalidated int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[int64][]entity.Photo{}}
}

func (c *fakeCache) GetPhotos(context.Context) ([]entity.Photo, int64, bool, error) {
	photos, ok := c.entries[c.version]
	return photos, c.version, ok, nil
}

func (c *fakeCache) SetPhotos(_ context.Context, version int64, photos []entity.Photo) error {
	c.entries[version] = photos
	return nil
}

func (c *fakeCache) Invalidate(context.Context) error {
	c.invalidated++
	c.version++
	return nil
}

func (c *fakeCache) cached() bool {
	_, ok := c.entries[c.version]
	return ok
}

// slowPhotos runs onList after the database read, before List returns.
type slowPhotos struct {
	*repotest.Photos
	onList func()
}

func (p *slowPhotos) List(ctx context.Context) ([]entity.Photo, error) {
	photos, err := p.Photos.List(ctx)
	if p.onList != nil {
		p.onList()
		p.onList = nil
	}
	return photos, err
}

type logEntry struct {
	level string
	msg   string
	kv    []interface{}
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) add(level, msg string, kv ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, kv: kv})
}

func (l *recordingLogger) Debug(m string, _ ...interface{})          { l.add("debug", m) }
func (l *recordingLogger) Info(m string, _ ...interface{})           { l.add("info", m) }
func (l *recordingLogger) Warn(m string, _ ...interface{})           { l.add("warn", m) }
func (l *recordingLogger) Error(_ error, m string, _ ...interface{}) { l.add("error", m) }
func (l *recordingLogger) Fatal(error)                               {}
func (l *recordingLogger) Infow(m string, kv ...interface{})         { l.add("info", m, kv...) }
func (l *recordingLogger) Warnw(m string, kv ...interface{})         { l.add("warn", m, kv...) }
func (l *recordingLogger) Errorw(m string, kv ...interface{})        { l.add("error", m, kv...) }

func (l *recordingLogger) has(level, msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.level == level && e.msg == msg {
			return true
		}
	}
	return false
}

type fixture struct {
	uc      *UseCase
	files   *repotest.Files
	photos  *repotest.Photos
	outbox  *repotest.Outbox
	tx      *repotest.Transactor
	deriver *fakeDeriver
	cache   *fakeCache
	log     *recordingLogger
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	f := &fixture{
		files:   repotest.NewFiles(),
		photos:  repotest.NewPhotos(),
		outbox:  repotest.NewOutbox(),
		deriver: &fakeDeriver{},
		cache:   newFakeCache(),
		log:     &recordingLogger{},
	}
	f.tx = repotest.NewTransactor(f.photos, f.outbox)

	ms := int64(1_700_000_000_000)
	base := []Option{
		Outbox(f.outbox),
		Cache(f.cache),
		Clock(func() time.Time { ms++; return time.UnixMilli(ms) }),
	}

	f.uc = New(fakeGuard{}, f.deriver, f.files, f.photos, f.tx, f.log, append(base, opts...)...)

	return f
}

func upload(contentType string, data []byte) *dto.Upload {
	return &dto.Upload{
		OriginalName: "My Car.PNG",
		ContentType:  contentType,
		Size:         int64(len(data)),
		Data:         bytes.NewReader(data),
	}
}

func TestIngest_Success(t *testing.T) {
	f := newFixture(t)

	p, err := f.uc.Ingest(context.Background(), adminID, upload("image/png", []byte("raw")))
	require.NoError(t, err)

	assert.Equal(t, int64(1), p.ID)
	assert.False(t, p.CreatedAt.IsZero())
	assert.Equal(t, "My Car.PNG", p.OriginalName)
	assert.Equal(t, "image/png", p.MimeType)
	assert.Equal(t, int64(3), p.Size)
	assert.Equal(t, adminID, p.UploadedBy)
	assert.True(t, strings.HasSuffix(p.Filename, "-My-Car.jpg"), p.Filename)
	assert.Equal(t, "/uploads/"+p.Filename, p.URL)
	require.NotNil(t, p.ThumbnailURL)
	assert.Equal(t, "/uploads/thumb-"+p.Filename, *p.ThumbnailURL)

	assert.True(t, f.files.Has(p.Filename))
	assert.True(t, f.files.Has("thumb-"+p.Filename))
	assert.Equal(t, []string{p.Filename, "thumb-" + p.Filename}, f.files.Writes)
	assert.Equal(t, 1, f.photos.Len())

	require.Len(t, f.outbox.Events, 1)
	ev := f.outbox.Events[0]
	assert.Equal(t, entity.PhotoCreated, ev.Type)
	assert.Equal(t, p.ID, ev.AggregateID)
	assert.Equal(t, entity.Pending, ev.Status)

	var payload dto.PhotoEventPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &payload))
	assert.Equal(t, "thumb-"+p.Filename, payload.ThumbnailKey)

	assert.Equal(t, 1, f.cache.invalidated)
}

func TestIngest_ForbiddenBeforeAnyWork(t *testing.T) {
	f := newFixture(t)

	for _, identity := range []string{"", visitorID} {
		_, err := f.uc.Ingest(context.Background(), identity, upload("image/gif", nil))
		assert.ErrorIs(t, err, errs.ErrForbidden)

		_, err = f.uc.Ingest(context.Background(), identity, nil)
		assert.ErrorIs(t, err, errs.ErrForbidden)
	}

	assert.Equal(t, 0, f.deriver.calls)
	assert.Equal(t, 0, f.files.Len())
	assert.Equal(t, 0, f.photos.Len())
}

func TestIngest_Validation(t *testing.T) {
	big := bytes.Repeat([]byte{0xff}, 5*1024*1024+1)

	tests := []struct {
		name   string
		upload *dto.Upload
		want   error
	}{
		{name: "no upload", upload: nil, want: errs.ErrInvalidInput},
		{name: "no data", upload: &dto.Upload{ContentType: "image/png"}, want: errs.ErrInvalidInput},
		{name: "empty file", upload: upload("image/png", []byte{}), want: errs.ErrInvalidInput},
		{name: "gif", upload: upload("image/gif", []byte("GIF89a")), want: errs.ErrUnsupportedMediaType},
		{name: "svg", upload: upload("image/svg+xml", []byte("<svg/>")), want: errs.ErrUnsupportedMediaType},
		{name: "too large", upload: upload("image/jpeg", big), want: errs.ErrPayloadTooLarge},
		{
			name: "understated size",
			upload: &dto.Upload{
				OriginalName: "a.jpg",
				ContentType:  "image/jpeg",
				Size:         10,
				Data:         bytes.NewReader(big),
			},
			want: errs.ErrPayloadTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			_, err := f.uc.Ingest(context.Background(), adminID, tt.upload)
			assert.ErrorIs(t, err, tt.want)

			assert.Equal(t, 0, f.deriver.calls, "no derivation on invalid input")
			assert.Equal(t, 0, f.files.Len())
			assert.Equal(t, 0, f.photos.Len())
		})
	}
}

func TestIngest_ExactlyMaxSizeAccepted(t *testing.T) {
	f := newFixture(t, MaxFileSize(16))

	_, err := f.uc.Ingest(context.Background(), adminID, upload("image/jpeg", bytes.Repeat([]byte{1}, 16)))
	require.NoError(t, err)
}

func TestIngest_MimeTypeWithParams(t *testing.T) {
	f := newFixture(t)

	p, err := f.uc.Ingest(context.Background(), adminID, upload("Image/JPEG; charset=binary", []byte("raw")))
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", p.MimeType)
}

func TestIngest_DeriveFailure(t *testing.T) {
	f := newFixture(t)
	f.deriver.err = errs.ErrUnsupportedImage

	_, err := f.uc.Ingest(context.Background(), adminID, upload("image/png", []byte("not an image")))
	assert.ErrorIs(t, err, errs.ErrTransform)
	assert.ErrorIs(t, err, errs.ErrUnsupportedImage)

	assert.Equal(t, 0, f.files.Len())
	assert.Equal(t, 0, f.photos.Len())
}

func TestIngest_ThumbnailWriteFailureRemovesDisplay(t *testing.T) {
	f := newFixture(t)
	f.files.WriteErr = func(key string) error {
		if strings.HasPrefix(key, ThumbnailPrefix) {
			return errors.New("disk full")
		}
		return nil
	}

	_, err := f.uc.Ingest(context.Background(), adminID, upload("image/png", []byte("raw")))
	assert.ErrorIs(t, err, errs.ErrStorageWrite)

	assert.Equal(t, 0, f.files.Len())
	assert.Equal(t, 0, f.photos.Len())
	assert.Empty(t, f.outbox.Events)
}

func TestIngest_DatabaseFailureRemovesFiles(t *testing.T) {
	f := newFixture(t)
	f.photos.CreateErr = errors.New("connection reset")

	_, err := f.uc.Ingest(context.Background(), adminID, upload("image/png", []byte("raw")))
	assert.ErrorIs(t, err, errs.ErrDatabase)

	assert.Equal(t, 0, f.files.Len())
	assert.Equal(t, 0, f.photos.Len())
	assert.Equal(t, 0, f.cache.invalidated)
	assert.False(t, f.log.has("error", "reconciliation required"))
}

func TestIngest_OutboxFailureRollsBackRow(t *testing.T) {
	f := newFixture(t)
	f.outbox.CreateErr = errors.New("outbox down")

	_, err := f.uc.Ingest(context.Background(), adminID, upload("image/png", []byte("raw")))
	assert.ErrorIs(t, err, errs.ErrDatabase)

	assert.Equal(t, 0, f.photos.Len())
	assert.Equal(t, 0, f.files.Len())
}

func TestIngest_FailedCompensationIsReported(t *testing.T) {
	f := newFixture(t)
	f.photos.CreateErr = errors.New("connection reset")
	f.files.DeleteErr = func(string) error { return errors.New("permission denied") }

	_, err := f.uc.Ingest(context.Background(), adminID, upload("image/png", []byte("raw")))
	assert.ErrorIs(t, err, errs.ErrDatabase)

	assert.Equal(t, 2, f.files.Len())
	assert.True(t, f.log.has("error", "reconciliation required"))
}

func TestIngest_WithoutOutbox(t *testing.T) {
	f := newFixture(t)
	f.uc.outbox = nil

	_, err := f.uc.Ingest(context.Background(), adminID, upload("image/png", []byte("raw")))
	require.NoError(t, err)
	assert.Empty(t, f.outbox.Events)
}

func TestIngest_UniqueNames(t *testing.T) {
	f := newFixture(t, Clock(func() time.Time { return time.UnixMilli(1_700_000_000_000) }))

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		p, err := f.uc.Ingest(context.Background(), adminID, upload("image/png", []byte("raw")))
		require.NoError(t, err)
		require.False(t, seen[p.Filename], p.Filename)
		seen[p.Filename] = true
	}
}

func TestList_NewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.uc.Ingest(ctx, adminID, upload("image/png", []byte("a")))
	require.NoError(t, err)
	b, err := f.uc.Ingest(ctx, adminID, upload("image/png", []byte("b")))
	require.NoError(t, err)

	photos, err := f.uc.List(ctx)
	require.NoError(t, err)
	require.Len(t, photos, 2)
	assert.Equal(t, b.ID, photos[0].ID)
	assert.Equal(t, a.ID, photos[1].ID)
}

func TestList_UsesCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.uc.List(ctx)
	require.NoError(t, err)
	assert.True(t, f.cache.cached())

	f.photos.ListErr = errors.New("must not be called")

	photos, err := f.uc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, photos)
}

func TestList_InvalidatedDuringReadIsNotCached(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	photos := &slowPhotos{Photos: f.photos}
	photos.onList = func() {
		// an ingest commits while the first List is between its read and its cache fill
		require.NoError(t, f.photos.Create(ctx, &entity.Photo{Filename: "late.jpg"}))
		require.NoError(t, f.cache.Invalidate(ctx))
	}
	uc := New(fakeGuard{}, f.deriver, f.files, photos, f.tx, f.log, Cache(f.cache))

	first, err := uc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, first)
	assert.False(t, f.cache.cached())

	second, err := uc.List(ctx)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "late.jpg", second[0].Filename)
}

func TestList_DatabaseError(t *testing.T) {
	f := newFixture(t)
	f.uc.cache = nil
	f.photos.ListErr = errors.New("boom")

	_, err := f.uc.List(context.Background())
	assert.ErrorIs(t, err, errs.ErrDatabase)
}

func TestRemove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.uc.Ingest(ctx, adminID, upload("image/png", []byte("raw")))
	require.NoError(t, err)

	require.NoError(t, f.uc.Remove(ctx, adminID, "1"))
	assert.Equal(t, 0, f.photos.Len())

	// files are kept
	assert.True(t, f.files.Has(p.Filename))
	assert.True(t, f.log.has("warn", "photo files left in storage"))

	require.Len(t, f.outbox.Events, 2)
	ev := f.outbox.Events[1]
	assert.Equal(t, entity.PhotoRemoved, ev.Type)

	var payload dto.PhotoEventPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &payload))
	assert.Equal(t, p.Filename, payload.DisplayKey)
	assert.Equal(t, "thumb-"+p.Filename, payload.ThumbnailKey)
	assert.Equal(t, adminID, payload.RemovedBy)
}

func TestRemove_Idempotent(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.uc.Remove(context.Background(), adminID, "999"))
	require.NoError(t, f.uc.Remove(context.Background(), adminID, "999"))
	assert.Empty(t, f.outbox.Events)
}

func TestRemove_Forbidden(t *testing.T) {
	f := newFixture(t)

	for _, identity := range []string{"", visitorID} {
		assert.ErrorIs(t, f.uc.Remove(context.Background(), identity, "1"), errs.ErrForbidden)
		assert.ErrorIs(t, f.uc.Remove(context.Background(), identity, "not-a-number"), errs.ErrForbidden)
	}
}

func TestRemove_InvalidID(t *testing.T) {
	f := newFixture(t)

	for _, raw := range []string{"", "abc", "0", "-3", "1.5", "99999999999999999999"} {
		assert.ErrorIs(t, f.uc.Remove(context.Background(), adminID, raw), errs.ErrInvalidInput, raw)
	}
}

func TestRemove_DatabaseError(t *testing.T) {
	f := newFixture(t)
	f.photos.DeleteErr = errors.New("boom")

	assert.ErrorIs(t, f.uc.Remove(context.Background(), adminID, "1"), errs.ErrDatabase)
}

// Real engine and disk storage: both URLs point at files that exist.
func TestIngest_EndToEndWithDisk(t *testing.T) {
	dir := t.TempDir()
	files, err := persistent.NewLocalFileRepo(dir)
	require.NoError(t, err)

	photos := repotest.NewPhotos()
	uc := New(fakeGuard{}, processor.New(), files, photos, repotest.NewTransactor(photos), &recordingLogger{})

	img := image.NewNRGBA(image.Rect(0, 0, 1800, 1200))
	for y := 0; y < 1200; y++ {
		for x := 0; x < 1800; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	p, err := uc.Ingest(context.Background(), adminID, upload("image/png", buf.Bytes()))
	require.NoError(t, err)

	for _, url := range []string{p.URL, *p.ThumbnailURL} {
		b, err := os.ReadFile(filepath.Join(dir, filepath.Base(url)))
		require.NoError(t, err)

		cfg, format, err := image.DecodeConfig(bytes.NewReader(b))
		require.NoError(t, err)
		assert.Equal(t, "jpeg", format)

		if strings.Contains(url, ThumbnailPrefix) {
			assert.Equal(t, 300, cfg.Width)
			assert.Equal(t, 200, cfg.Height)
		} else {
			assert.Equal(t, 1200, cfg.Width)
			assert.Equal(t, 800, cfg.Height)
		}
	}
}

func TestSanitizeStem(t *testing.T) {
	tests := map[string]string{
		"holiday.jpg":            "holiday",
		"../../etc/passwd":       "passwd",
		`C:\Users\me\pic.png`:    "pic",
		"my photo (1).webp":      "my-photo-1",
		"фото.jpg":               "photo",
		".hidden":                "photo",
		"":                       "photo",
		"a\x00b.png":             "ab",
		strings.Repeat("x", 100): strings.Repeat("x", 64),
	}

	for in, want := range tests {
		assert.Equal(t, want, sanitizeStem(in), in)
	}
}
