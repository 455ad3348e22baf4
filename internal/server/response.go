package server

// Response codes carried in ApiResponse.Code
const (
	CodeOK         = 0
	CodeBadRequest = 400
	CodeNotFound   = 404
	CodeFailed     = 500
)

// ApiResponse is the envelope of every invoke response
type ApiResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func success(data any) ApiResponse {
	return ApiResponse{Code: CodeOK, Message: "ok", Data: data}
}

func failure(code int, message string) ApiResponse {
	return ApiResponse{Code: code, Message: message}
}
