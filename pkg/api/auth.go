package api

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`     // login email, globally unique
	Password string `json:"password"`  // plaintext, hashed server side
	TenantID string `json:"tenant_id"` // UUID of the tenant to join
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse is returned by register, login and refresh. The refresh
// token is never part of this body; it travels only as an HttpOnly cookie.
type TokenResponse struct {
	AccessToken string `json:"access_token"` // JWT, held in memory by the client
	TokenType   string `json:"token_type"`   // always "bearer"
	UserID      string `json:"user_id"`
	TenantID    string `json:"tenant_id"`
	Email       string `json:"email"`
}

// TenantResponse is one entry of GET /auth/tenants.
type TenantResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ErrorResponse is the uniform error body for all endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`             // HTTP status text
	Message string `json:"message,omitempty"` // safe, user facing detail
}
