package v1

import (
	"github.com/gofiber/fiber/v2"

	"github.com/topautomaat/gallery-backend/internal/repo"
	"github.com/topautomaat/gallery-backend/internal/usecase"
	"github.com/topautomaat/gallery-backend/pkg/logger"
)

// Deps are the use cases served under /api.
type Deps struct {
	Photos   usecase.PhotoUseCase
	Contacts usecase.ContactUseCase
	Auth     usecase.AuthUseCase
	Files    repo.FileRepo
}

// NewGalleryRoutes registers the /api routes. limit guards the public write
// endpoints.
func NewGalleryRoutes(apiGroup fiber.Router, d Deps, limit fiber.Handler, l logger.Interface) {
	r := &V1{photos: d.Photos, contacts: d.Contacts, auth: d.Auth, files: d.Files, logger: l}

	{
		// gallery
		apiGroup.Get("/photos", r.listPhotos)
		apiGroup.Post("/photos", r.ingestPhoto)
		apiGroup.Delete("/photos/:id", r.removePhoto)

		// contact
		apiGroup.Post("/contact", limit, r.createContact)
		apiGroup.Get("/admin/contact-submissions", r.listContacts)

		// auth
		apiGroup.Post("/auth/login", limit, r.login)
		apiGroup.Get("/auth/user", r.currentUser)
	}
}

// NewUploadRoutes serves stored variant files under prefix.
func NewUploadRoutes(app fiber.Router, prefix string, files repo.FileRepo, l logger.Interface) {
	r := &V1{files: files, logger: l}

	app.Get(prefix+"/:filename", r.serveUpload)
}
