package content

import (
	"fmt"
	"net/http"
)

// Error is a failure the caller can act on. Status is the HTTP status
// the API answers with.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Message }

func badRequest(format string, args ...any) *Error {
	return &Error{Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

func notFound(what string) *Error {
	return &Error{Status: http.StatusNotFound, Message: what + " not found"}
}

var errPremium = &Error{
	Status:  http.StatusForbidden,
	Message: "This content requires a premium subscription",
}
