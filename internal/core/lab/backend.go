package lab

import "context"

// Backend is the provisioning service contract.
type Backend interface {
	// CreateLab requests a new lab and returns its id. Errors wrap ErrCreation.
	CreateLab(ctx context.Context, kind Kind, ttlMinutes int) (string, error)
	// LabStatus returns the current status. Transport and decoding errors wrap ErrConnectivity.
	LabStatus(ctx context.Context, id string) (StatusReport, error)
	// TerminateLab asks the backend to destroy the lab.
	TerminateLab(ctx context.Context, id string) error
}

// Extender is implemented by backends that can extend a lab's TTL server-side.
// Returns ErrExtendUnsupported when the capability is disabled.
type Extender interface {
	ExtendLab(ctx context.Context, id string, minutes int) error
}
