package dto

// Data Transfer Objects for the signup / token handshake

// SignupRequest: payload for requesting a confirmation code.
// Email is checked by the service, a code resend only needs the username.
type SignupRequest struct {
	Username string `json:"username" binding:"required,max=150,slug"`
	Email    string `json:"email"`
}

// SignupResponse echoes the registered identity
type SignupResponse struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// TokenRequest: exchange a confirmation code for a token
type TokenRequest struct {
	Username         string `json:"username" binding:"required,max=150,slug"`
	ConfirmationCode string `json:"confirmation_code" binding:"required,max=255"`
}

type TokenResponse struct {
	Token   string `json:"token"`
	Refresh string `json:"refresh"`
}

// RefreshTokenRequest: payload for refreshing access token
type RefreshTokenRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

type RefreshResponse struct {
	Token string `json:"token"`
}
