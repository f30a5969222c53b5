package gateway

import (
	"errors"
	"fmt"
)

// Transport codes carried by APIError.Code.
const (
	CodeBadRequest  = "ERR_BAD_REQUEST"  // 4xx
	CodeBadResponse = "ERR_BAD_RESPONSE" // 5xx or undecodable body
	CodeNetwork     = "ERR_NETWORK"      // no response
	CodeTimeout     = "ECONNABORTED"     // timed out
	CodeCanceled    = "ERR_CANCELED"     // caller cancelled the context
)

// DefaultErrorMessage is used when neither the server nor the transport
// gave any text.
const DefaultErrorMessage = "An unexpected error occurred"

// ErrMissingResetToken is returned by ResetPassword before any request is
// made when the token is blank.
var ErrMissingResetToken = &APIError{Message: "Reset token is required", Code: CodeBadRequest}

// APIError is the normalised failure of a gateway call.
type APIError struct {
	Message string `json:"message"`
	Status  int    `json:"status,omitempty"`
	Code    string `json:"code,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Status
	}
	return 0
}

// IsUnauthorized reports whether err is a 401 from the server.
func IsUnauthorized(err error) bool {
	return StatusOf(err) == 401
}

func statusError(status int, serverMsg string) *APIError {
	msg := serverMsg
	if msg == "" {
		msg = fmt.Sprintf("Request failed with status code %d", status)
	}
	code := CodeBadRequest
	if status >= 500 {
		code = CodeBadResponse
	}
	return &APIError{Message: msg, Status: status, Code: code}
}
