package dto

type PasswordRequest struct {
	Password string `json:"password"`
}

type PasswordResponse struct {
	Success bool `json:"success"`
}

type AuthCheckResponse struct {
	Authenticated    bool `json:"authenticated"`
	PasswordRequired bool `json:"passwordRequired"`
}
