// Package labapi is the HTTP client for the LabStack provisioning backend.
package labapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/hay-kot/labstack/internal/core/lab"
)

// maxErrorBody bounds how much of an error response is read into messages.
const maxErrorBody = 4 << 10

// Options configures a Client.
type Options struct {
	BaseURL string
	// RateLimit caps outbound requests per second. Zero disables pacing.
	RateLimit float64
	// ExtendEndpoint enables POST /labs/{id}/extend.
	ExtendEndpoint bool
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// Client implements lab.Backend and lab.Extender over HTTP.
// It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	extend  bool
	log     zerolog.Logger
}

var (
	_ lab.Backend  = (*Client)(nil)
	_ lab.Extender = (*Client)(nil)
)

// New creates a Client.
func New(opts Options, log zerolog.Logger) *Client {
	// Deadlines come from the caller's context; create, status and terminate
	// are bounded differently.
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    hc,
		limiter: limiter,
		extend:  opts.ExtendEndpoint,
		log:     log,
	}
}

// CreateLab requests a new lab. Every failure wraps lab.ErrCreation.
func (c *Client) CreateLab(ctx context.Context, kind lab.Kind, ttlMinutes int) (string, error) {
	var out CreateResponse
	err := c.do(ctx, http.MethodPost, "/labs", CreateRequest{LabType: string(kind), TTL: ttlMinutes}, &out)
	if err != nil {
		return "", fmt.Errorf("%w: %w", lab.ErrCreation, err)
	}
	if out.LabID == "" {
		return "", fmt.Errorf("%w: response missing lab_id", lab.ErrCreation)
	}
	return out.LabID, nil
}

// LabStatus fetches the current status. Every failure wraps lab.ErrConnectivity.
func (c *Client) LabStatus(ctx context.Context, id string) (lab.StatusReport, error) {
	var out StatusResponse
	if err := c.do(ctx, http.MethodGet, "/labs/"+url.PathEscape(id)+"/status", nil, &out); err != nil {
		return lab.StatusReport{}, err
	}

	status, known := lab.ParseStatus(out.Status)
	if !known {
		c.log.Debug().Str("lab_id", id).Str("status", out.Status).Msg("unknown status treated as pending")
	}

	report := lab.StatusReport{Status: status, Message: out.Message}
	if out.AccessURL != nil {
		report.AccessURL = *out.AccessURL
	}
	return report, nil
}

// TerminateLab asks the backend to destroy the lab.
func (c *Client) TerminateLab(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/labs/"+url.PathEscape(id)+"/terminate", nil, nil)
}

// ExtendLab extends the lab's TTL server-side when the endpoint is enabled.
func (c *Client) ExtendLab(ctx context.Context, id string, minutes int) error {
	if !c.extend {
		return lab.ErrExtendUnsupported
	}
	return c.do(ctx, http.MethodPost, "/labs/"+url.PathEscape(id)+"/extend", ExtendRequest{Minutes: minutes}, nil)
}

// Ping requests the base URL and returns the HTTP status code. Any response
// means the backend is reachable; only transport failures are errors.
func (c *Client) Ping(ctx context.Context) (int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("%w: %w", lab.ErrConnectivity, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return 0, fmt.Errorf("%w: build request: %w", lab.ErrConnectivity, err)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: GET /: %w", lab.ErrConnectivity, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	return resp.StatusCode, nil
}

// do performs one JSON request. Transport errors, non-2xx responses and
// undecodable bodies all wrap lab.ErrConnectivity.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %w", lab.ErrConnectivity, err)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%w: build request: %w", lab.ErrConnectivity, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log := c.log.With().Str("method", method).Str("path", path).Str("request_id", requestID).Logger()
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		log.Debug().Err(err).Msg("request failed")
		return fmt.Errorf("%w: %s %s: %w", lab.ErrConnectivity, method, path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	log.Debug().Int("status", resp.StatusCode).Dur("elapsed", time.Since(start)).Msg("request complete")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s %s: %s", lab.ErrConnectivity, method, path, describeError(resp))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s response: %w", lab.ErrConnectivity, path, err)
	}
	return nil
}

func describeError(resp *http.Response) string {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var body ErrorResponse
	if json.Unmarshal(data, &body) == nil && body.Detail != "" {
		return fmt.Sprintf("%s: %s", resp.Status, body.Detail)
	}
	if text := strings.TrimSpace(string(data)); text != "" {
		return fmt.Sprintf("%s: %s", resp.Status, text)
	}
	return resp.Status
}
