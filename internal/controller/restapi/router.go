package restapi

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"

	"github.com/topautomaat/gallery-backend/config"
	_ "github.com/topautomaat/gallery-backend/docs" // swagger spec
	"github.com/topautomaat/gallery-backend/internal/controller/restapi/middleware"
	v1 "github.com/topautomaat/gallery-backend/internal/controller/restapi/v1"
	"github.com/topautomaat/gallery-backend/pkg/logger"
)

// @title                      Driving school gallery
// @version                    1.0.0
// @host                       localhost:8080
// @BasePath                   /
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
func NewRouter(app *fiber.App, cfg *config.Config, d v1.Deps, l logger.Interface) {
	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{AllowOrigins: cfg.HTTP.CORSOrigins}))
	app.Use(middleware.Logger(l))
	app.Use(middleware.Identity(d.Auth))

	// Swagger
	if cfg.Swagger.Enabled {
		app.Get("/swagger/*", swagger.HandlerDefault)
	}

	// liveness
	app.Get("/healthz", func(ctx *fiber.Ctx) error { return ctx.SendStatus(http.StatusOK) })

	// Files
	v1.NewUploadRoutes(app, cfg.Storage.PublicPrefix, d.Files, l)

	// Routers
	apiGroup := app.Group("/api")
	{
		v1.NewGalleryRoutes(apiGroup, d, middleware.RateLimit(cfg.RateLimit.PerMinute), l)
	}
}
