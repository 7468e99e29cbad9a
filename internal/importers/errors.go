package importers

import (
	"errors"
	"fmt"

	"github.com/abdnh/anki-copycat-importer/internal/httpclient"
)

var (
	// ErrCanceled is returned when the user asked to stop the import.
	ErrCanceled = errors.New("import canceled")
	// ErrRequestFailed matches any failed request to a remote service.
	ErrRequestFailed = httpclient.ErrRequestFailed
)

// Error is a problem with the user's input, such as a missing file. Its
// message is meant to be shown to the user as is.
type Error struct {
	Msg string
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf builds an Error from a format string.
func Errorf(format string, args ...any) *Error {
	return &Error{Msg: fmt.Sprintf(format, args...)}
}

// IsUserError reports whether err carries a user-facing Error.
func IsUserError(err error) bool {
	var e *Error
	return errors.As(err, &e)
}
