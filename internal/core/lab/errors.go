package lab

import (
	"errors"
	"fmt"
)

// Sentinel errors for lab operations.
var (
	ErrCreation          = errors.New("lab creation failed")
	ErrConnectivity      = errors.New("lab service unreachable")
	ErrBackendReported   = errors.New("backend reported error")
	ErrStaleResult       = errors.New("stale result discarded")
	ErrInvalidKind       = errors.New("unknown lab kind")
	ErrInvalidTTL        = errors.New("invalid ttl")
	ErrExtendUnsupported = errors.New("backend does not support extension")
	ErrClosed            = errors.New("session closed")
)

// Failure classifies the last error recorded on a session.
type Failure string

const (
	FailureNone         Failure = ""
	FailureCreation     Failure = "creation"
	FailureConnectivity Failure = "connectivity"
	FailureBackend      Failure = "backend"
)

// Classify maps an error to its failure class. Creation wins over connectivity
// since a launch that never reached the backend is still a rejected launch.
func Classify(err error) Failure {
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, ErrCreation):
		return FailureCreation
	case errors.Is(err, ErrBackendReported):
		return FailureBackend
	default:
		return FailureConnectivity
	}
}

// FailureMessage returns user-facing text for a failure.
func FailureMessage(f Failure, err error) string {
	if err == nil {
		return ""
	}
	switch f {
	case FailureCreation:
		return fmt.Sprintf("Could not launch the lab: %v", err)
	case FailureBackend:
		return fmt.Sprintf("The lab failed to start: %v", err)
	default:
		return fmt.Sprintf("Lost contact with the lab service: %v", err)
	}
}
