package kverror

import "net/http"

type (
	// An Error represents an API error that can be rendered to the client
	// with a meaningful HTTP status code.
	Error struct {
		HTTPCode int    `json:"-"`
		Tag      string `json:"tag,omitempty"`
		Message  string `json:"message"`
	}
)

// StatusCode returns the HTTP status code for the given error.
func StatusCode(err error) int {
	if kverr, ok := err.(*Error); ok && kverr.HTTPCode > 0 {
		return kverr.HTTPCode
	}
	return http.StatusInternalServerError
}

// New returns a new Error with the given code and message.
func New(code int, message string) *Error {
	return &Error{HTTPCode: code, Message: message}
}

// NewWithTag returns a new Error with the given code, tag and message.
func NewWithTag(code int, tag, message string) *Error {
	return &Error{HTTPCode: code, Tag: tag, Message: message}
}

// Error implements error interface.
func (e *Error) Error() string {
	return e.Message
}
