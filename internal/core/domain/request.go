// Package domain contains the core types and pure logic for pagesmith.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// Request Errors
// =============================================================================

var (
	ErrMissingEmail         = errors.New("email is required")
	ErrMissingSecret        = errors.New("secret is required")
	ErrMissingTask          = errors.New("task is required")
	ErrInvalidRound         = errors.New("round must be >= 1")
	ErrMissingNonce         = errors.New("nonce is required")
	ErrMissingEvaluationURL = errors.New("evaluation_url is required")
)

// =============================================================================
// Deploy Request
// =============================================================================

// Attachment is a named file reference attached to a deploy request.
// URL may be a plain URL or a base64 data-URL (data:<mime>;base64,<payload>).
type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// DeployRequest is the inbound deployment request payload.
type DeployRequest struct {
	Email         string       `json:"email"`
	Secret        string       `json:"secret"`
	Task          string       `json:"task"`
	Round         int          `json:"round"`
	Nonce         string       `json:"nonce"`
	Brief         string       `json:"brief"`
	Checks        []string     `json:"checks"`
	EvaluationURL string       `json:"evaluation_url"`
	Attachments   []Attachment `json:"attachments"`
}

// Validate checks that the request has the required shape.
// Credential verification is a separate concern and happens in the API layer.
func (r *DeployRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" {
		return ErrMissingEmail
	}
	if r.Secret == "" {
		return ErrMissingSecret
	}
	if strings.TrimSpace(r.Task) == "" {
		return ErrMissingTask
	}
	if r.Round < 1 {
		return ErrInvalidRound
	}
	if r.Nonce == "" {
		return ErrMissingNonce
	}
	if strings.TrimSpace(r.EvaluationURL) == "" {
		return ErrMissingEvaluationURL
	}
	return nil
}

// DedupKey identifies one logical deployment attempt.
// Two requests with the same key are the same attempt; only the first is processed.
type DedupKey struct {
	Email string
	Task  string
	Round int
	Nonce string
}

// Key returns the request's dedup key.
func (r *DeployRequest) Key() DedupKey {
	return DedupKey{
		Email: r.Email,
		Task:  r.Task,
		Round: r.Round,
		Nonce: r.Nonce,
	}
}

// String renders the key for log fields.
func (k DedupKey) String() string {
	return fmt.Sprintf("%s/%s/r%d/%s", k.Email, k.Task, k.Round, k.Nonce)
}
