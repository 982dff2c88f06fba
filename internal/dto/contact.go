package dto

// ContactInput is the public contact form payload.
type ContactInput struct {
	FirstName string  `json:"firstName" validate:"required,max=255"`
	LastName  string  `json:"lastName" validate:"required,max=255"`
	Email     string  `json:"email" validate:"required,email,max=255"`
	Phone     *string `json:"phone" validate:"omitempty,max=64"`
	Service   *string `json:"service" validate:"omitempty,oneof=single package trial"`
	Message   string  `json:"message" validate:"required,max=5000"`
	Language  string  `json:"language" validate:"omitempty,oneof=nl en ar"`
}
