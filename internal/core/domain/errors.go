package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnavailable     = errors.New("service unavailable")
	ErrUpstreamFailure = errors.New("upstream failure")
	ErrConfiguration   = errors.New("configuration failure")

	ErrEmptyQuestion = errors.New("question cannot be empty")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// KindOf returns the first known kind found in err's chain, or nil.
func KindOf(err error) error {
	for _, kind := range []error{ErrInvalidInput, ErrUnavailable, ErrConfiguration, ErrUpstreamFailure} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// KindLabel is a short stable name for err's kind, used as a metrics label.
func KindLabel(err error) string {
	switch KindOf(err) {
	case ErrInvalidInput:
		return "invalid_input"
	case ErrUnavailable:
		return "unavailable"
	case ErrConfiguration:
		return "configuration"
	case ErrUpstreamFailure:
		return "upstream"
	default:
		return "unknown"
	}
}
