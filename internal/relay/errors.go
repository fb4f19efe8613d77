package relay

import (
	"errors"

	"contactrelay/pkg/util"
)

// Classify labels a Send error for logs, metrics and delivery records.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	var rejection *Error
	switch {
	case errors.Is(err, ErrNotInitialized), errors.Is(err, ErrUnavailable):
		return "relay_unavailable"
	case errors.As(err, &rejection):
		if rejection.Status >= 500 {
			return "relay_server_error"
		}
		return "relay_rejected"
	}

	return util.ClassifyError(err)
}
