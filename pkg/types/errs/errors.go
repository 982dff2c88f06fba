package errs

import "errors"

var (
	ErrRecordNotFound   = errors.New("record not found")
	ErrUnknownEventType = errors.New("unknown event type")

	ErrForbidden            = errors.New("admin access required")
	ErrUnauthorized         = errors.New("invalid credentials")
	ErrInvalidInput         = errors.New("invalid input")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrPayloadTooLarge      = errors.New("payload too large")
	ErrUnsupportedImage     = errors.New("unsupported image")
	ErrTransform            = errors.New("image transform failed")
	ErrStorageWrite         = errors.New("storage write failed")
	ErrDatabase             = errors.New("database error")
)
