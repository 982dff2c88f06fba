package v1

import (
	"github.com/topautomaat/gallery-backend/internal/repo"
	"github.com/topautomaat/gallery-backend/internal/usecase"
	"github.com/topautomaat/gallery-backend/pkg/logger"
)

type V1 struct {
	photos   usecase.PhotoUseCase
	contacts usecase.ContactUseCase
	auth     usecase.AuthUseCase
	files    repo.FileRepo
	logger   logger.Interface
}
