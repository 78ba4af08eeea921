package api

import (
	"fmt"
	"net/http"

	"github.com/banjarlabs/iuran/session"
)

// Error is a non-2xx response from the API.
type Error struct {
	Status  int
	Message string
}

// Error includes the status and, when present, the API message.
func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
}

// UserMessage is the server-provided text, if any.
func (e *Error) UserMessage() string {
	return e.Message
}

// Is matches session.ErrAuthFailure for 401 and 403.
func (e *Error) Is(target error) bool {
	if target != session.ErrAuthFailure {
		return false
	}
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}
