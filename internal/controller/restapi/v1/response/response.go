package response

type Error struct {
	Message string `json:"message" example:"admin access required"`
}

type Success struct {
	Success bool `json:"success" example:"true"`
}
