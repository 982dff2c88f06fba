package entity

import "time"

type Service string

const (
	ServiceSingleLesson Service = "single"
	ServicePackage      Service = "package"
	ServiceTrial        Service = "trial"
)

const DefaultLanguage = "nl"

// ContactSubmission is an immutable visitor inquiry.
type ContactSubmission struct {
	ID        int64    `json:"id"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Email     string   `json:"email"`
	Phone     *string  `json:"phone"`
	Service   *Service `json:"service"`
	Message   string   `json:"message"`
	Language  string   `json:"language"`

	CreatedAt time.Time `json:"createdAt"`
}
