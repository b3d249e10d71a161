package users

// CreateUserRequest carries a registration.
type CreateUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest carries a login attempt.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
