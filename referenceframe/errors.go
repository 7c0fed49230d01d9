package referenceframe

import (
	"fmt"

	"github.com/pkg/errors"
)

// ConfigurationError is returned when the frame chain is declared or mutated in a way that is not
// allowed, such as installing a static offset after activation.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "frame configuration error: " + e.Reason
}

// NewConfigurationError returns a ConfigurationError with a formatted reason.
func NewConfigurationError(format string, args ...interface{}) error {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

// LookupError is returned when a transform between two frames cannot be produced because a frame is
// unknown or a link on the path has never been set.
type LookupError struct {
	From   string
	To     string
	Reason string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("cannot look up transform %q -> %q: %s", e.From, e.To, e.Reason)
}

// NewLookupError returns a LookupError for the given frame pair.
func NewLookupError(from, to, reason string) error {
	return &LookupError{From: from, To: to, Reason: reason}
}

// IsLookupError reports whether err is, or wraps, a LookupError.
func IsLookupError(err error) bool {
	var lookupErr *LookupError
	return errors.As(err, &lookupErr)
}

// IsConfigurationError reports whether err is, or wraps, a ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}
