package lifecycle

import "github.com/hay-kot/labstack/internal/core/lab"

// Snapshot is a read-only view of the session for presentation.
type Snapshot struct {
	LabID            string
	Kind             lab.Kind
	TTLMinutes       int
	State            lab.State
	RemainingSeconds int
	// Remaining is RemainingSeconds formatted as mm:ss.
	Remaining string
	AccessURL string
	// Live is true only while the access URL may be used.
	Live      bool
	LastError string
	Failure   lab.Failure
	// Notice is a non-blocking message, e.g. a failed remote terminate.
	Notice string
	// Submitting is true while a launch request is in flight.
	Submitting bool
	// ExtensionUnconfirmed is set when the remaining time includes an
	// extension the backend has not acknowledged.
	ExtensionUnconfirmed bool
}

// Transition describes one processed state change. From and To may be equal.
type Transition struct {
	From       lab.State
	To         lab.State
	Event      string
	LabID      string
	Kind       lab.Kind
	TTLMinutes int
	AccessURL  string
}
