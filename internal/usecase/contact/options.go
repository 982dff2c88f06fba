package contact

import (
	"time"

	"github.com/topautomaat/gallery-backend/internal/infrastructure"
)

type Option func(*UseCase)

// Notifier sends an e-mail for every stored submission.
func Notifier(n infrastructure.ContactNotifier) Option {
	return func(uc *UseCase) {
		uc.notifier = n
	}
}

func NotifyTimeout(timeout time.Duration) Option {
	return func(uc *UseCase) {
		if timeout > 0 {
			uc.notifyTimeout = timeout
		}
	}
}
