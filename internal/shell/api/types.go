package api

// =============================================================================
// Response Types
// =============================================================================

// DeployResponse acknowledges an inbound deploy request. The nonce is always
// echoed; Status distinguishes a freshly queued deployment from a replay.
type DeployResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Nonce   string `json:"nonce"`
}

// InfoResponse describes the service on the root endpoint.
type InfoResponse struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Status  string `json:"status"`
}

// HealthResponse is the response for health checks.
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadyResponse is the response for readiness checks.
type ReadyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error      string `json:"error"`
	Code       string `json:"code"`
	RetryAfter int    `json:"retry_after,omitempty"`
}
