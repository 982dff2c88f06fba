package v1

type loginRequest struct {
	Email    string `json:"email" example:"admin@example.nl"`
	Password string `json:"password" example:"secret"`
}
