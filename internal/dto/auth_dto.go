package dto

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

// ValidationErrorResponse lists the offending fields of a 422 response.
type ValidationErrorResponse struct {
	Error   bool              `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"errors"`
}

type HealthResponse struct {
	Status      string   `json:"status"`
	Timestamp   string   `json:"timestamp"`
	Store       string   `json:"store"`
	Collections []string `json:"collections"`
}
