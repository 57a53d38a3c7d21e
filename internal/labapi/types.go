package labapi

// CreateRequest is the body of POST /labs.
type CreateRequest struct {
	LabType string `json:"lab_type"`
	TTL     int    `json:"ttl"` // minutes
}

// CreateResponse is the body returned by POST /labs.
type CreateResponse struct {
	LabID string `json:"lab_id"`
}

// StatusResponse is the body returned by GET /labs/{lab_id}/status.
type StatusResponse struct {
	Status    string  `json:"status"`
	AccessURL *string `json:"access_url"`
	Message   string  `json:"message,omitempty"`
}

// ExtendRequest is the body of POST /labs/{lab_id}/extend.
type ExtendRequest struct {
	Minutes int `json:"minutes"`
}

// ErrorResponse is the error body returned by the backend.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
