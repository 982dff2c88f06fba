package httpserver

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/topautomaat/gallery-backend/pkg/logger"
)

func decodeMessage(t *testing.T, body io.Reader) string {
	t.Helper()

	var payload struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(body).Decode(&payload))
	return payload.Message
}

func TestBodyLimit(t *testing.T) {
	s := New(logger.NewNop(), BodyLimit(16))

	var reached bool
	s.App.Post("/upload", func(ctx *fiber.Ctx) error {
		reached = true
		return ctx.SendStatus(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(strings.Repeat("x", 64)))
	req.Header.Set(fiber.HeaderContentType, "application/octet-stream")

	resp, err := s.App.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	// rejected while reading the request, before any route or middleware runs
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.NotEmpty(t, decodeMessage(t, resp.Body))
	assert.False(t, reached)

	req = httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("small"))
	resp, err = s.App.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.True(t, reached)
}

func TestErrorHandler_NotFound(t *testing.T) {
	s := New(logger.NewNop())

	resp, err := s.App.Test(httptest.NewRequest(http.MethodGet, "/missing", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Cannot GET /missing", decodeMessage(t, resp.Body))
}
