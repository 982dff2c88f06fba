package entity

import "time"

type User struct {
	ID              string  `json:"id"`
	Email           *string `json:"email"`
	FirstName       *string `json:"firstName"`
	LastName        *string `json:"lastName"`
	ProfileImageURL *string `json:"profileImageUrl"`
	IsAdmin         bool    `json:"isAdmin"`
	PasswordHash    *string `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsAdmin reports whether u may manage the gallery. A nil user is a visitor.
func IsAdmin(u *User) bool {
	return u != nil && u.IsAdmin
}
