package v1

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/topautomaat/gallery-backend/internal/controller/restapi/v1/response"
	"github.com/topautomaat/gallery-backend/pkg/types/errs"
)

var statusBySentinel = []struct {
	err    error
	status int
}{
	{errs.ErrForbidden, http.StatusForbidden},
	{errs.ErrUnauthorized, http.StatusUnauthorized},
	{errs.ErrPayloadTooLarge, http.StatusRequestEntityTooLarge},
	{errs.ErrUnsupportedMediaType, http.StatusUnsupportedMediaType},
	{errs.ErrInvalidInput, http.StatusBadRequest},
	{errs.ErrRecordNotFound, http.StatusNotFound},
}

func errorResponse(ctx *fiber.Ctx, code int, msg string) error {
	return ctx.Status(code).JSON(response.Error{Message: msg})
}

// fail maps a use case error onto a status. Unknown errors are logged and
// hidden behind a 500.
func (r *V1) fail(ctx *fiber.Ctx, op string, err error) error {
	for _, s := range statusBySentinel {
		if errors.Is(err, s.err) {
			return errorResponse(ctx, s.status, publicMessage(err, s.err))
		}
	}

	r.logger.Error(err, "restapi - v1 - %s", op)

	return errorResponse(ctx, http.StatusInternalServerError, "internal server error")
}

// publicMessage is the sentinel text plus whatever detail was wrapped after
// it, e.g. "invalid input: email: email".
func publicMessage(err, sentinel error) string {
	msg := sentinel.Error()

	_, detail, found := strings.Cut(err.Error(), msg+": ")
	if found && detail != "" {
		return msg + ": " + detail
	}

	return msg
}
