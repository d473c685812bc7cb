package response

// Response represents a standard API response format
type Response struct {
	Status     string              `json:"status"`                // "success" or "error"
	StatusCode int                 `json:"status_code,omitempty"` // HTTP status code
	Data       interface{}         `json:"data,omitempty"`
	Message    string              `json:"message,omitempty"`
	Errors     map[string][]string `json:"errors,omitempty"`
	Error      string              `json:"error,omitempty"`
}

// Success returns a standard success response wrapping the data
func Success(statusCode int, data interface{}) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
	}
}

// Error returns a standard error response wrapping the error message
func Error(statusCode int, err string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
	}
}

// Public is the bare {status, data} envelope of the v1 API.
func Public(data interface{}) Response {
	return Response{Status: "success", Data: data}
}

// PublicError is the {status, message} failure envelope of the v1 API.
func PublicError(message string) Response {
	return Response{Status: "error", Message: message}
}

// ValidationError carries per-field messages.
func ValidationError(fields map[string][]string) Response {
	return Response{Status: "error", Errors: fields}
}
