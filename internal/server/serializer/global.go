package serializer

import "net/http"

// An Envelope is the general API response format.
// Code always mirrors the HTTP status of the response.
type Envelope struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// Success serializes the given render to the general API response format.
func Success(message string, data interface{}) Envelope {
	return Envelope{
		Code:    http.StatusOK,
		Message: message,
		Data:    data,
	}
}

// Failure serializes an error to the general API response format. Data is always null.
func Failure(code int, message string) Envelope {
	return Envelope{
		Code:    code,
		Message: message,
	}
}
