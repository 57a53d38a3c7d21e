package lab

import "strings"

// Status is the backend-reported provisioning status, mapped from the wire string.
type Status int

const (
	StatusPending Status = iota
	StatusReady
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	default:
		return "pending"
	}
}

// ParseStatus maps a backend status string into a Status. Unknown values are
// treated as pending; known reports false for them.
func ParseStatus(raw string) (status Status, known bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pending":
		return StatusPending, true
	case "ready":
		return StatusReady, true
	case "error":
		return StatusError, true
	default:
		return StatusPending, false
	}
}

// StatusReport is one authoritative status observation for a lab.
type StatusReport struct {
	Status    Status
	AccessURL string
	// Message carries the backend's failure detail when Status is StatusError.
	Message string
}

// Settled reports whether polling can stop after this report.
func (r StatusReport) Settled() bool {
	switch r.Status {
	case StatusReady:
		return r.AccessURL != ""
	case StatusError:
		return true
	default:
		return false
	}
}
