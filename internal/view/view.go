package view

// ApiResponse is the envelope every endpoint returns.
type ApiResponse[T any] struct {
	Data    T      `json:"data"`
	Error   string `json:"error,omitempty"`
	Request any    `json:"request,omitempty"`
	Message string `json:"message,omitempty"`
}

// MessageResponse is a plain acknowledgement payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse documents the error shape in swagger.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// CreateResponse builds the response envelope. The failing request is echoed
// back on errors so clients can see what the server actually parsed.
func CreateResponse[T any](data T, err error, request any, message string) ApiResponse[T] {
	resp := ApiResponse[T]{
		Data:    data,
		Message: message,
	}
	if err != nil {
		resp.Error = err.Error()
		resp.Request = request
	}
	return resp
}
