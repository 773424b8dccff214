package domain

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Workflow Stages
// =============================================================================

// WorkflowStage names one step of the per-task deployment state machine.
// Stages always advance in order; no stage is skipped or revisited.
type WorkflowStage string

const (
	StageReceived         WorkflowStage = "received"
	StageGenerating       WorkflowStage = "generating"
	StagePublishing       WorkflowStage = "publishing"
	StageAwaitingLiveness WorkflowStage = "awaiting_liveness"
	StageNotifying        WorkflowStage = "notifying"
	StageRecorded         WorkflowStage = "recorded"
)

// =============================================================================
// Publish Result
// =============================================================================

// PublishResult describes a successfully published site.
type PublishResult struct {
	RepoName  string `json:"repo_name"`
	RepoURL   string `json:"repo_url"`
	CommitSHA string `json:"commit_sha"`
	PagesURL  string `json:"pages_url"`
}

// =============================================================================
// Outcome
// =============================================================================

// NotifyStatus is the terminal delivery state of the evaluator notification.
type NotifyStatus string

const (
	NotifySuccess NotifyStatus = "success"
	NotifyFailed  NotifyStatus = "failed"
)

// Outcome is the terminal record of one deployment workflow. One row is
// written per admitted task, after the notify stage resolves. Append only.
type Outcome struct {
	ID              string       `json:"id"`
	Email           string       `json:"email"`
	Task            string       `json:"task"`
	Round           int          `json:"round"`
	Nonce           string       `json:"nonce"`
	RepoURL         string       `json:"repo_url"`
	CommitSHA       string       `json:"commit_sha"`
	PagesURL        string       `json:"pages_url"`
	NotifyStatus    NotifyStatus `json:"notify_status"`
	NotifyTimestamp time.Time    `json:"notify_timestamp"`
	ErrorMessage    string       `json:"error_message,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
}

// NewOutcome builds a terminal outcome for a task. publish may be nil when
// the workflow failed before a publish result existed.
func NewOutcome(task *AdmittedTask, publish *PublishResult, status NotifyStatus, errMsg string) *Outcome {
	now := time.Now().UTC()
	o := &Outcome{
		ID:              uuid.NewString(),
		Email:           task.Email,
		Task:            task.Task,
		Round:           task.Round,
		Nonce:           task.Nonce,
		NotifyStatus:    status,
		NotifyTimestamp: now,
		ErrorMessage:    errMsg,
		CreatedAt:       now,
	}
	if publish != nil {
		o.RepoURL = publish.RepoURL
		o.CommitSHA = publish.CommitSHA
		o.PagesURL = publish.PagesURL
	}
	return o
}

// =============================================================================
// Check Result
// =============================================================================

// CheckResult is one evaluator verdict for a single check. Append only;
// rows arrive after the evaluator has inspected the published site.
type CheckResult struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Task      string    `json:"task"`
	Round     int       `json:"round"`
	RepoURL   string    `json:"repo_url"`
	CommitSHA string    `json:"commit_sha"`
	PagesURL  string    `json:"pages_url"`
	Check     string    `json:"check"`
	Score     int       `json:"score"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// NewCheckResult builds a check result row keyed to an outcome's identity.
func NewCheckResult(o *Outcome, check string, score int, reason string) *CheckResult {
	return &CheckResult{
		ID:        uuid.NewString(),
		Email:     o.Email,
		Task:      o.Task,
		Round:     o.Round,
		RepoURL:   o.RepoURL,
		CommitSHA: o.CommitSHA,
		PagesURL:  o.PagesURL,
		Check:     check,
		Score:     score,
		Reason:    reason,
		CreatedAt: time.Now().UTC(),
	}
}

// =============================================================================
// Evaluation Payload
// =============================================================================

// EvaluationPayload is the JSON body POSTed to the evaluator callback URL.
type EvaluationPayload struct {
	Email     string `json:"email"`
	Task      string `json:"task"`
	Round     int    `json:"round"`
	Nonce     string `json:"nonce"`
	RepoURL   string `json:"repo_url"`
	CommitSHA string `json:"commit_sha"`
	PagesURL  string `json:"pages_url"`
}

// NewEvaluationPayload assembles the notification body for a published task.
func NewEvaluationPayload(task *AdmittedTask, publish *PublishResult) EvaluationPayload {
	p := EvaluationPayload{
		Email: task.Email,
		Task:  task.Task,
		Round: task.Round,
		Nonce: task.Nonce,
	}
	if publish != nil {
		p.RepoURL = publish.RepoURL
		p.CommitSHA = publish.CommitSHA
		p.PagesURL = publish.PagesURL
	}
	return p
}
