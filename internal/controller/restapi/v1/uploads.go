package v1

import (
	"github.com/gofiber/fiber/v2"
)

// @Summary     Get stored image
// @Tags        uploads
// @Produce     image/jpeg
// @Param       filename path string true "Display or thumbnail file name"
// @Success     200 {file} binary
// @Failure     400 {object} response.Error
// @Failure     404 {object} response.Error
// @Failure     500 {object} response.Error
// @Router      /uploads/{filename} [get]
func (r *V1) serveUpload(ctx *fiber.Ctx) error {
	body, err := r.files.Read(ctx.UserContext(), ctx.Params("filename"))
	if err != nil {
		return r.fail(ctx, "serveUpload", err)
	}

	ctx.Set(fiber.HeaderContentType, "image/jpeg")
	ctx.Set(fiber.HeaderCacheControl, "public, max-age=86400")

	return ctx.SendStream(body)
}
