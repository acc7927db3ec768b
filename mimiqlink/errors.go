package mimiqlink

import (
	"errors"
	"fmt"
)

var (
	ErrNotAuthenticated   = errors.New("mimiq: not yet authenticated")
	ErrMissingFilename    = errors.New("mimiq: server reply is missing the file name")
	ErrTokenMismatch      = errors.New("mimiq: token file does not match the connection url")
	ErrInvalidConnectArgs = errors.New("mimiq: connect expects 0, 1 (token) or 2 (email, password) arguments")
	ErrMissingCredentials = errors.New("mimiq: no consumer key or secret provided")
)

// APIError an error reply from the remote server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("mimiq: server responded with %d", e.Status)
	}
	return fmt.Sprintf("mimiq: server responded with %d: %s", e.Status, e.Message)
}

// IsAPIError unwraps err into an APIError when the server replied with one.
func IsAPIError(err error) (*APIError, bool) {
	var e *APIError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
