package v1

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/topautomaat/gallery-backend/internal/controller/restapi/middleware"
	"github.com/topautomaat/gallery-backend/internal/controller/restapi/v1/response"
	"github.com/topautomaat/gallery-backend/internal/dto"
)

// @Summary     List photos
// @Description Returns every gallery photo, newest first
// @Tags        photos
// @Produce     json
// @Success     200 {array}  entity.Photo
// @Failure     500 {object} response.Error
// @Router      /api/photos [get]
func (r *V1) listPhotos(ctx *fiber.Ctx) error {
	photos, err := r.photos.List(ctx.UserContext())
	if err != nil {
		return r.fail(ctx, "listPhotos", err)
	}

	return ctx.Status(http.StatusOK).JSON(photos)
}

// @Summary     Upload photo
// @Description Derives a display image and a thumbnail from the upload and adds them to the gallery
// @Tags        photos
// @Accept      mpfd
// @Produce     json
// @Security    BearerAuth
// @Param       photo formData file true "Image file (jpeg, png, webp)"
// @Success     200 {object} entity.Photo
// @Failure     400 {object} response.Error "No file"
// @Failure     403 {object} response.Error "Not an admin"
// @Failure     413 {object} response.Error "File too large"
// @Failure     415 {object} response.Error "Unsupported media type"
// @Failure     500 {object} response.Error
// @Router      /api/photos [post]
func (r *V1) ingestPhoto(ctx *fiber.Ctx) error {
	// 1. файл может отсутствовать, решает use case после проверки прав
	var upload *dto.Upload

	file, err := ctx.FormFile("photo")
	if err == nil {
		fileReader, err := file.Open()
		if err != nil {
			r.logger.Error(err, "restapi - v1 - ingestPhoto - file.Open")

			return errorResponse(ctx, http.StatusInternalServerError, "problems with opening the file")
		}
		defer fileReader.Close()

		upload = &dto.Upload{
			OriginalName: file.Filename,
			ContentType:  file.Header.Get(fiber.HeaderContentType),
			Size:         file.Size,
			Data:         fileReader,
		}
	}

	// 2. загружаем
	photo, err := r.photos.Ingest(ctx.UserContext(), middleware.IdentityFrom(ctx), upload)
	if err != nil {
		return r.fail(ctx, "ingestPhoto", err)
	}

	return ctx.Status(http.StatusOK).JSON(photo)
}

// @Summary     Delete photo
// @Description Removes the photo from the gallery. Deleting an unknown id succeeds
// @Tags        photos
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Photo ID"
// @Success     200 {object} response.Success
// @Failure     400 {object} response.Error "Invalid ID"
// @Failure     403 {object} response.Error "Not an admin"
// @Failure     500 {object} response.Error
// @Router      /api/photos/{id} [delete]
func (r *V1) removePhoto(ctx *fiber.Ctx) error {
	err := r.photos.Remove(ctx.UserContext(), middleware.IdentityFrom(ctx), ctx.Params("id"))
	if err != nil {
		return r.fail(ctx, "removePhoto", err)
	}

	return ctx.Status(http.StatusOK).JSON(response.Success{Success: true})
}
