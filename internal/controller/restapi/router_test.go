package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swaggo/swag"

	"github.com/topautomaat/gallery-backend/config"
	v1 "github.com/topautomaat/gallery-backend/internal/controller/restapi/v1"
	"github.com/topautomaat/gallery-backend/internal/dto"
	"github.com/topautomaat/gallery-backend/internal/entity"
	"github.com/topautomaat/gallery-backend/internal/infrastructure/processor"
	"github.com/topautomaat/gallery-backend/internal/infrastructure/token"
	"github.com/topautomaat/gallery-backend/internal/repo/persistent"
	"github.com/topautomaat/gallery-backend/internal/repo/repotest"
	"github.com/topautomaat/gallery-backend/internal/usecase/auth"
	"github.com/topautomaat/gallery-backend/internal/usecase/contact"
	"github.com/topautomaat/gallery-backend/internal/usecase/photo"
	"github.com/topautomaat/gallery-backend/pkg/logger"
)

const (
	adminEmail    = "admin@example.nl"
	adminPassword = "correct horse"
)

type testApp struct {
	app *fiber.App
	dir string
}

func newTestApp(t *testing.T, perMinute int) *testApp {
	t.Helper()

	l := logger.NewNop()

	authUC := auth.New(repotest.NewUsers(), token.NewJWTManager("test-secret", time.Hour), l)
	require.NoError(t, authUC.SeedAdmin(context.Background(), adminEmail, adminPassword))

	dir := t.TempDir()
	files, err := persistent.NewLocalFileRepo(dir)
	require.NoError(t, err)

	photos := repotest.NewPhotos()

	cfg := &config.Config{}
	cfg.HTTP.CORSOrigins = "*"
	cfg.Storage.PublicPrefix = "/uploads"
	cfg.RateLimit.PerMinute = perMinute

	app := fiber.New(fiber.Config{BodyLimit: 16 << 20})
	NewRouter(app, cfg, v1.Deps{
		Photos:   photo.New(authUC, processor.New(), files, photos, repotest.NewTransactor(photos), l),
		Contacts: contact.New(authUC, repotest.NewContacts(), l),
		Auth:     authUC,
		Files:    files,
	}, l)

	return &testApp{app: app, dir: dir}
}

func (a *testApp) do(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()

	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, body
}

func (a *testApp) login(t *testing.T) string {
	t.Helper()

	resp, body := a.do(t, jsonRequest(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    adminEmail,
		"password": adminPassword,
	}))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var tok dto.Token
	require.NoError(t, json.Unmarshal(body, &tok))
	require.NotEmpty(t, tok.Token)

	return tok.Token
}

func jsonRequest(t *testing.T, method, target, bearer string, v interface{}) *http.Request {
	t.Helper()

	b, err := json.Marshal(v)
	require.NoError(t, err)

	req := httptest.NewRequest(method, target, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	return req
}

func uploadRequest(t *testing.T, bearer, contentType string, data []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="photo"; filename="les auto.png"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/photos", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	return req
}

func pngFixture(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func message(t *testing.T, body []byte) string {
	t.Helper()

	var e struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(body, &e))
	return e.Message
}

func TestHealthz(t *testing.T) {
	a := newTestApp(t, 100)

	resp, _ := a.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLogin(t *testing.T) {
	a := newTestApp(t, 100)

	resp, body := a.do(t, jsonRequest(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    adminEmail,
		"password": "wrong",
	}))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid credentials", message(t, body))

	resp, _ = a.do(t, jsonRequest(t, http.MethodPost, "/api/auth/login", "", map[string]string{}))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	tok := a.login(t)

	resp, body = a.do(t, jsonRequest(t, http.MethodGet, "/api/auth/user", tok, nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var user entity.User
	require.NoError(t, json.Unmarshal(body, &user))
	assert.True(t, user.IsAdmin)
	require.NotNil(t, user.Email)
	assert.Equal(t, adminEmail, *user.Email)
	assert.NotContains(t, string(body), "$2a$")

	resp, _ = a.do(t, httptest.NewRequest(http.MethodGet, "/api/auth/user", nil))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPhotoLifecycle(t *testing.T) {
	a := newTestApp(t, 100)
	tok := a.login(t)

	// 1. upload
	resp, body := a.do(t, uploadRequest(t, tok, "image/png", pngFixture(t, 600, 400)))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var p entity.Photo
	require.NoError(t, json.Unmarshal(body, &p))
	assert.Equal(t, int64(1), p.ID)
	assert.Equal(t, "les auto.png", p.OriginalName)
	assert.Equal(t, "image/png", p.MimeType)
	assert.True(t, strings.HasPrefix(p.URL, "/uploads/"))
	require.NotNil(t, p.ThumbnailURL)

	// 2. both files are served
	for _, url := range []string{p.URL, *p.ThumbnailURL} {
		resp, body = a.do(t, httptest.NewRequest(http.MethodGet, url, nil))
		require.Equal(t, http.StatusOK, resp.StatusCode, url)
		assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))

		cfg, format, err := image.DecodeConfig(bytes.NewReader(body))
		require.NoError(t, err)
		assert.Equal(t, "jpeg", format)
		assert.Positive(t, cfg.Width)
	}

	// 3. list
	resp, body = a.do(t, httptest.NewRequest(http.MethodGet, "/api/photos", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list []entity.Photo
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 1)
	assert.Equal(t, p.ID, list[0].ID)

	// 4. delete twice
	for i := 0; i < 2; i++ {
		resp, body = a.do(t, jsonRequest(t, http.MethodDelete, fmt.Sprintf("/api/photos/%d", p.ID), tok, nil))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"success":true}`, string(body))
	}

	resp, body = a.do(t, httptest.NewRequest(http.MethodGet, "/api/photos", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(body))
}

func TestPhotoErrors(t *testing.T) {
	a := newTestApp(t, 100)
	tok := a.login(t)

	tests := []struct {
		name string
		req  *http.Request
		code int
	}{
		{name: "anonymous upload", req: uploadRequest(t, "", "image/png", pngFixture(t, 10, 10)), code: http.StatusForbidden},
		{name: "forged token", req: uploadRequest(t, "not-a-jwt", "image/png", pngFixture(t, 10, 10)), code: http.StatusForbidden},
		{name: "no file", req: jsonRequest(t, http.MethodPost, "/api/photos", tok, nil), code: http.StatusBadRequest},
		{name: "gif", req: uploadRequest(t, tok, "image/gif", []byte("GIF89a")), code: http.StatusUnsupportedMediaType},
		{name: "undecodable", req: uploadRequest(t, tok, "image/jpeg", []byte("not a jpeg")), code: http.StatusInternalServerError},
		{name: "too large", req: uploadRequest(t, tok, "image/jpeg", make([]byte, 5*1024*1024+1)), code: http.StatusRequestEntityTooLarge},
		{name: "anonymous delete", req: jsonRequest(t, http.MethodDelete, "/api/photos/1", "", nil), code: http.StatusForbidden},
		{name: "bad id", req: jsonRequest(t, http.MethodDelete, "/api/photos/abc", tok, nil), code: http.StatusBadRequest},
		{name: "unknown file", req: httptest.NewRequest(http.MethodGet, "/uploads/missing.jpg", nil), code: http.StatusNotFound},
		{name: "hidden file", req: httptest.NewRequest(http.MethodGet, "/uploads/.env", nil), code: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := a.do(t, tt.req)
			assert.Equal(t, tt.code, resp.StatusCode, string(body))
			assert.NotEmpty(t, message(t, body))
		})
	}

	entries, err := os.ReadDir(a.dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestContact(t *testing.T) {
	a := newTestApp(t, 100)
	tok := a.login(t)

	resp, body := a.do(t, jsonRequest(t, http.MethodPost, "/api/contact", "", map[string]string{
		"firstName": "Sara",
		"lastName":  "de Vries",
		"email":     "sara@example.nl",
		"service":   "package",
		"message":   "Wanneer kan ik beginnen?",
	}))
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var s entity.ContactSubmission
	require.NoError(t, json.Unmarshal(body, &s))
	assert.Equal(t, "nl", s.Language)

	resp, body = a.do(t, jsonRequest(t, http.MethodPost, "/api/contact", "", map[string]string{
		"firstName": "Sara",
		"lastName":  "de Vries",
		"email":     "nope",
		"message":   "Hallo",
	}))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid input: email: email", message(t, body))

	resp, _ = a.do(t, httptest.NewRequest(http.MethodGet, "/api/admin/contact-submissions", nil))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = a.do(t, jsonRequest(t, http.MethodGet, "/api/admin/contact-submissions", tok, nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list []entity.ContactSubmission
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 1)
	assert.Equal(t, s.ID, list[0].ID)
}

func TestContactRateLimited(t *testing.T) {
	a := newTestApp(t, 2)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, _ := a.do(t, jsonRequest(t, http.MethodPost, "/api/contact", "", map[string]string{}))
		codes = append(codes, resp.StatusCode)
	}

	assert.Equal(t, http.StatusBadRequest, codes[0])
	assert.Equal(t, http.StatusTooManyRequests, codes[2])
}

func TestDocsMatchRoutes(t *testing.T) {
	a := newTestApp(t, 100)

	raw, err := swag.ReadDoc()
	require.NoError(t, err)

	var doc struct {
		BasePath string                                `json:"basePath"`
		Paths    map[string]map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	assert.Equal(t, "/", doc.BasePath)
	require.NotEmpty(t, doc.Paths)

	routes := map[string]bool{}
	for _, r := range a.app.GetRoutes(true) {
		routes[r.Method+" "+r.Path] = true
	}

	params := strings.NewReplacer("{id}", ":id", "{filename}", ":filename")
	for path, ops := range doc.Paths {
		for method := range ops {
			key := strings.ToUpper(method) + " " + params.Replace(path)
			assert.True(t, routes[key], "documented route %s is not served", key)
		}
	}
}
