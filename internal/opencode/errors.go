package opencode

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// RemoteError is a network or provider failure talking to the opencode server.
// Status is 0 when the request never got an HTTP response.
type RemoteError struct {
	Status  int
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	if e.Status > 0 {
		msg := e.Message
		if msg == "" {
			msg = "Unknown error"
		}
		return fmt.Sprintf("API Error (%d): %s", e.Status, msg)
	}
	return e.Message
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// HandleError renders any error the way every caller shows it to a user.
func HandleError(err error) string {
	var remote *RemoteError
	if errors.As(err, &remote) {
		if remote.Status > 0 {
			return remote.Error()
		}
		if remote.Message != "" {
			return remote.Message
		}
		return "Unknown error occurred"
	}
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return "Unknown error occurred"
}

// errorMessage pulls a human-readable message out of an error response body
func errorMessage(body []byte) string {
	if gjson.ValidBytes(body) {
		parsed := gjson.ParseBytes(body)
		for _, path := range []string{"error.message", "data.message", "message", "error"} {
			if v := parsed.Get(path); v.Type == gjson.String && v.String() != "" {
				return v.String()
			}
		}
	}
	return strings.TrimSpace(string(body))
}
