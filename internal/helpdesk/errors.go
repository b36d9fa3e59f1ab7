package helpdesk

import (
	"errors"
	"fmt"
	"time"
)

// RemoteError is a non-success response from the helpdesk API that is not
// worth retrying. It carries the HTTP status and the server's request id so
// failed jobs can be correlated with the vendor's logs.
type RemoteError struct {
	Status    int
	RequestID string
	Message   string
}

func (e *RemoteError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("helpdesk API returned HTTP %d (request_id=%s): %s", e.Status, e.RequestID, e.Message)
	}
	return fmt.Sprintf("helpdesk API returned HTTP %d: %s", e.Status, e.Message)
}

// TransientTimeoutError means an outbound call did not complete before its
// computed deadline. It is a distinct type, never a RemoteError, so callers
// can apply soft-retry policy without inspecting message text.
type TransientTimeoutError struct {
	Path    string
	Elapsed time.Duration
}

func (e *TransientTimeoutError) Error() string {
	return fmt.Sprintf("helpdesk call %s timed out after %s", e.Path, e.Elapsed.Round(time.Millisecond))
}

// IsTransientTimeout reports whether err (or anything it wraps) is a
// TransientTimeoutError.
func IsTransientTimeout(err error) bool {
	var te *TransientTimeoutError
	return errors.As(err, &te)
}
