package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// =============================================================================
// Admitted Task
// =============================================================================

// AdmittedTask is the durable record of an admitted deploy request.
// Created exactly once per dedup key and never modified afterwards; a replay
// of the same key returns "already processed" without touching this record.
type AdmittedTask struct {
	ID            int64        `json:"id"`
	Email         string       `json:"email"`
	Task          string       `json:"task"`
	Round         int          `json:"round"`
	Nonce         string       `json:"nonce"`
	Brief         string       `json:"brief"`
	Checks        []string     `json:"checks"`
	Attachments   []Attachment `json:"attachments"`
	EvaluationURL string       `json:"evaluation_url"`
	SecretHash    string       `json:"secret_hash"`
	StatusCode    int          `json:"status_code"`
	CreatedAt     time.Time    `json:"created_at"`
}

// NewAdmittedTask builds the persisted record for a validated request.
// The shared secret is never stored; only its SHA-256 digest is kept for audit.
func NewAdmittedTask(req *DeployRequest) *AdmittedTask {
	return &AdmittedTask{
		Email:         req.Email,
		Task:          req.Task,
		Round:         req.Round,
		Nonce:         req.Nonce,
		Brief:         req.Brief,
		Checks:        req.Checks,
		Attachments:   req.Attachments,
		EvaluationURL: req.EvaluationURL,
		SecretHash:    HashSecret(req.Secret),
		StatusCode:    200,
		CreatedAt:     time.Now().UTC(),
	}
}

// Key returns the task's dedup key.
func (t *AdmittedTask) Key() DedupKey {
	return DedupKey{
		Email: t.Email,
		Task:  t.Task,
		Round: t.Round,
		Nonce: t.Nonce,
	}
}

// HashSecret returns the hex SHA-256 digest of a shared secret.
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
