package doctor

import (
	"context"
	"fmt"
	"time"
)

// Pinger reaches the provisioning backend without touching any lab.
type Pinger interface {
	Ping(ctx context.Context) (int, error)
}

// BackendCheck verifies the backend answers HTTP at its configured URL.
type BackendCheck struct {
	pinger  Pinger
	url     string
	timeout time.Duration
}

// NewBackendCheck creates a reachability check. A zero timeout uses 5s.
func NewBackendCheck(pinger Pinger, url string, timeout time.Duration) *BackendCheck {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &BackendCheck{pinger: pinger, url: url, timeout: timeout}
}

func (c *BackendCheck) Name() string {
	return "Backend"
}

func (c *BackendCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	code, err := c.pinger.Ping(ctx)
	if err != nil {
		result.Items = append(result.Items, CheckItem{
			Label:  "Reachable",
			Status: StatusFail,
			Detail: err.Error(),
		})
		return result
	}

	status := StatusPass
	if code >= 500 {
		status = StatusWarn
	}
	result.Items = append(result.Items, CheckItem{
		Label:  "Reachable",
		Status: status,
		Detail: fmt.Sprintf("%s answered HTTP %d in %s", c.url, code, time.Since(start).Round(time.Millisecond)),
	})
	return result
}
