package model

// ErrorResponse is the standard envelope for error responses.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the structured error information returned by the API.
// Message never carries stack traces or internal type names.
type ErrorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
