// Package lab defines lab session domain types and the provisioning backend contract.
package lab

import (
	"fmt"
	"slices"
)

// State represents the lifecycle state of a lab session.
type State string

const (
	StateCreated    State = "created"
	StateLaunching  State = "launching"
	StateActive     State = "active"
	StateError      State = "error"
	StateExpired    State = "expired"
	StateTerminated State = "terminated"
)

// MaxMinutes bounds any lifetime or extension a session accepts.
const MaxMinutes = 24 * 60

// Kind identifies the environment type provisioned by the backend.
type Kind string

const (
	KindPython          Kind = "python-lab"
	KindLinuxNetworking Kind = "linux-networking-lab"
	KindPythonCLI       Kind = "python-cli-lab"
	KindSQL             Kind = "sql-lab"
)

// KindInfo describes a kind for display.
type KindInfo struct {
	Kind        Kind
	Title       string
	Description string
}

var catalog = []KindInfo{
	{KindPython, "Python Lab", "Write Python code in browser-based VS Code"},
	{KindLinuxNetworking, "Linux + Networking Lab", "Run Linux tools, networking utilities, and terminal commands in-browser"},
	{KindPythonCLI, "Python CLI Lab", "Minimal Python REPLs in browser terminal"},
	{KindSQL, "SQL Lab", "Use the SQLite CLI in your browser to write and query SQL"},
}

// Kinds returns the catalogue of supported kinds in display order.
func Kinds() []KindInfo {
	return slices.Clone(catalog)
}

// ParseKind validates s against the closed set of kinds.
func ParseKind(s string) (Kind, error) {
	for _, info := range catalog {
		if string(info.Kind) == s {
			return info.Kind, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
}

// Info returns the catalogue entry for k.
func (k Kind) Info() KindInfo {
	for _, info := range catalog {
		if info.Kind == k {
			return info
		}
	}
	return KindInfo{Kind: k, Title: string(k)}
}

// Session is the client-side record of one provisioned lab.
type Session struct {
	ID               string
	Kind             Kind
	TTLMinutes       int
	RemainingSeconds int
	AccessURL        string
	State            State
	LastError        string
	Failure          Failure
}

// New returns an empty session in the created state.
func New() Session {
	return Session{State: StateCreated}
}

// TTLSeconds returns the requested lifetime in seconds.
func (s *Session) TTLSeconds() int {
	return s.TTLMinutes * 60
}

// Live reports whether the access URL may be used.
func (s *Session) Live() bool {
	return s.State == StateActive && s.AccessURL != ""
}

// SetError records a failure reason on the session.
func (s *Session) SetError(err error) {
	s.Failure = Classify(err)
	s.LastError = FailureMessage(s.Failure, err)
}

// ClearError drops any recorded failure.
func (s *Session) ClearError() {
	s.Failure = FailureNone
	s.LastError = ""
}

// FormatRemaining renders seconds as mm:ss. Minutes are not wrapped at 60.
func FormatRemaining(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
