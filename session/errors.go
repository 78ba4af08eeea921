package session

import "errors"

var (
	// ErrAuthFailure covers rejected credentials and rejected session tokens.
	ErrAuthFailure = errors.New("authentication failed")
	// ErrNetworkFailure covers transport errors talking to the remote API.
	ErrNetworkFailure = errors.New("network failure")
	// ErrInvalidResponse covers API responses that cannot be used.
	ErrInvalidResponse = errors.New("invalid api response")
	// ErrTokenExpired is used when a stored JWT is already past its exp claim.
	ErrTokenExpired = errors.New("stored token expired")

	errTokenPersist = errors.New("token persist failed")
)

const (
	msgInvalidCredentials = "Invalid email or password."
	msgNetwork            = "Unable to reach the server. Check your connection and try again."
	msgInvalidResponse    = "The server returned an unexpected response."
	msgTokenPersist       = "Could not save your session on this device."
	msgGeneric            = "Login failed. Please try again."
)

// userMessager is implemented by API errors that carry a server-provided
// message suitable for display.
type userMessager interface {
	UserMessage() string
}

// userMessage maps err to the text shown next to the login form.
func userMessage(err error) string {
	var um userMessager
	if errors.As(err, &um) {
		if msg := um.UserMessage(); msg != "" {
			return msg
		}
	}
	switch {
	case errors.Is(err, errTokenPersist):
		return msgTokenPersist
	case errors.Is(err, ErrAuthFailure):
		return msgInvalidCredentials
	case errors.Is(err, ErrNetworkFailure):
		return msgNetwork
	case errors.Is(err, ErrInvalidResponse):
		return msgInvalidResponse
	default:
		return msgGeneric
	}
}
