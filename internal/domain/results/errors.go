package results

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the result engine. Callers classify failures with
// errors.Is; anything not wrapping one of these sentinels is an
// infrastructure error and should be retried, not reported to the user.
var (
	ErrNotFound   = errors.New("resource not found")
	ErrBadRequest = errors.New("bad request")
	ErrConflict   = errors.New("conflict")
)

func notFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrNotFound}, args...)...)
}

func badRequestf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrBadRequest}, args...)...)
}

func conflictf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrConflict}, args...)...)
}

// Permanent reports whether err is a validation or state error that will not
// succeed on retry. Infrastructure errors are not permanent.
func Permanent(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrBadRequest) || errors.Is(err, ErrConflict)
}
