package report

import "errors"

// Control-plane errors. Handlers map these to HTTP status codes; everything
// else surfaces as an internal error.
var (
	// ErrNotFound means the job id is unknown, including ids already
	// evicted by the TTL sweep.
	ErrNotFound = errors.New("job not found")

	// ErrConflict means results were requested before the job completed.
	ErrConflict = errors.New("job is not complete")

	// ErrInvalidArgument means malformed request parameters.
	ErrInvalidArgument = errors.New("invalid argument")
)
