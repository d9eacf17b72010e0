package dto

type CreateUserRequest struct {
	Email string `json:"email" validate:"required,max=320"`
}

type WidgetTokenResponse struct {
	Token string `json:"token"`
}
