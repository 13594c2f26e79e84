package model

// Status strings returned by the public contact endpoint.
const (
	ResultSuccess         = "success"
	ResultError           = "error"
	ResultTooManyRequests = "too_many_requests"
)

// StatusResponse is the envelope for the public JSON API. It carries a single
// machine-readable status string and never any field-level detail.
type StatusResponse struct {
	Status string `json:"status"`
}

// HealthResponse is returned by the liveness and readiness probes.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
