package http

// APIResponse represents standard API response.
type APIResponse struct {
	Status  int         `json:"status" example:"200"`
	Message string      `json:"message" example:"OK"`
	Data    interface{} `json:"data,omitempty"`
}

// ValidationError represents validation error detail.
type ValidationError struct {
	Code    string                 `json:"code,omitempty" example:"ERR_REQUIRED"`
	Field   string                 `json:"field,omitempty" example:"tickers"`
	Message string                 `json:"message,omitempty" example:"tickers es obligatorio"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// ValidationErrors is the list form returned by request validation.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}
	return v[0].Message
}

// First returns the first message, or "" when there are none.
func (v ValidationErrors) First() string {
	if len(v) == 0 {
		return ""
	}
	return v[0].Message
}
