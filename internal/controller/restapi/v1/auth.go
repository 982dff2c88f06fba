package v1

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/topautomaat/gallery-backend/internal/controller/restapi/middleware"
)

// @Summary     Log in
// @Description Exchanges admin credentials for a bearer token
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body     loginRequest true "Credentials"
// @Success     200     {object} dto.Token
// @Failure     400     {object} response.Error
// @Failure     401     {object} response.Error
// @Failure     429     {object} response.Error
// @Failure     500     {object} response.Error
// @Router      /api/auth/login [post]
func (r *V1) login(ctx *fiber.Ctx) error {
	var req loginRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errorResponse(ctx, http.StatusBadRequest, "invalid request body")
	}

	token, err := r.auth.Login(ctx.UserContext(), req.Email, req.Password)
	if err != nil {
		return r.fail(ctx, "login", err)
	}

	return ctx.Status(http.StatusOK).JSON(token)
}

// @Summary     Current user
// @Tags        auth
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} entity.User
// @Failure     401 {object} response.Error
// @Failure     500 {object} response.Error
// @Router      /api/auth/user [get]
func (r *V1) currentUser(ctx *fiber.Ctx) error {
	user, err := r.auth.CurrentUser(ctx.UserContext(), middleware.IdentityFrom(ctx))
	if err != nil {
		return r.fail(ctx, "currentUser", err)
	}
	if user == nil {
		return errorResponse(ctx, http.StatusUnauthorized, "unauthorized")
	}

	return ctx.Status(http.StatusOK).JSON(user)
}
