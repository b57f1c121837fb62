package discovery

import "github.com/cockroachdb/errors"

// ErrorCode classifies the errors Discover can return.
type ErrorCode int

const (
	// ErrCodeInvalidLevel is returned for a level other than HLD or LLD.
	ErrCodeInvalidLevel ErrorCode = iota + 1000

	// ErrCodeEmptyTopic is returned for a blank topic.
	ErrCodeEmptyTopic
)

// String returns the human-readable string representation of the error code.
func (e ErrorCode) String() string {
	switch e {
	case ErrCodeInvalidLevel:
		return "invalid level"
	case ErrCodeEmptyTopic:
		return "empty topic"
	default:
		return "unknown error"
	}
}

func newErrorWithCode(code ErrorCode, msg string) error {
	err := errors.New(msg)
	return errors.WithSecondaryError(err, errors.Newf("code: %d", int(code)))
}

// Input errors. These are the only errors Discover returns; search and fetch
// failures only shrink the result.
var (
	ErrInvalidLevel = newErrorWithCode(ErrCodeInvalidLevel, "discovery: invalid level")
	ErrEmptyTopic   = newErrorWithCode(ErrCodeEmptyTopic, "discovery: empty topic")
)

// IsInputError reports whether err was caused by a bad request.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidLevel) || errors.Is(err, ErrEmptyTopic)
}
