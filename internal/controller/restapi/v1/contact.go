package v1

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/topautomaat/gallery-backend/internal/controller/restapi/middleware"
	"github.com/topautomaat/gallery-backend/internal/dto"
)

// @Summary     Send contact form
// @Tags        contact
// @Accept      json
// @Produce     json
// @Param       request body     dto.ContactInput true "Inquiry"
// @Success     201     {object} entity.ContactSubmission
// @Failure     400     {object} response.Error
// @Failure     429     {object} response.Error
// @Failure     500     {object} response.Error
// @Router      /api/contact [post]
func (r *V1) createContact(ctx *fiber.Ctx) error {
	var input dto.ContactInput
	if err := ctx.BodyParser(&input); err != nil {
		return errorResponse(ctx, http.StatusBadRequest, "invalid request body")
	}

	submission, err := r.contacts.Create(ctx.UserContext(), input)
	if err != nil {
		return r.fail(ctx, "createContact", err)
	}

	return ctx.Status(http.StatusCreated).JSON(submission)
}

// @Summary     List contact submissions
// @Tags        contact
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array}  entity.ContactSubmission
// @Failure     403 {object} response.Error
// @Failure     500 {object} response.Error
// @Router      /api/admin/contact-submissions [get]
func (r *V1) listContacts(ctx *fiber.Ctx) error {
	submissions, err := r.contacts.List(ctx.UserContext(), middleware.IdentityFrom(ctx))
	if err != nil {
		return r.fail(ctx, "listContacts", err)
	}

	return ctx.Status(http.StatusOK).JSON(submissions)
}
