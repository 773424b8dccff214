// Package workflow runs the asynchronous deployment pipeline for admitted
// tasks: generate, publish, wait for liveness, notify, record.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pagesmith/pagesmith/internal/core/domain"
	"github.com/pagesmith/pagesmith/internal/core/generator"
	"github.com/pagesmith/pagesmith/internal/shell/github"
	"github.com/pagesmith/pagesmith/internal/shell/store"
)

// ErrQueueFull is returned by Submit when the task queue has no capacity.
var ErrQueueFull = errors.New("workflow queue full")

// =============================================================================
// Dependencies
// =============================================================================

// Publisher publishes generated file maps as live sites.
type Publisher interface {
	CreateSite(ctx context.Context, taskName string, files map[string]string) (*domain.PublishResult, error)
	UpdateSite(ctx context.Context, taskName string, files map[string]string) (*domain.PublishResult, error)
	WaitForLive(ctx context.Context, pagesURL string) bool
}

// Notifier delivers evaluation payloads to callback URLs.
type Notifier interface {
	Notify(ctx context.Context, url string, payload domain.EvaluationPayload) bool
}

// =============================================================================
// Runner
// =============================================================================

// Config configures the workflow runner.
type Config struct {
	// Workers is the number of concurrent deployment goroutines.
	Workers int

	// QueueSize bounds the number of admitted tasks waiting to run.
	QueueSize int
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		Workers:   4,
		QueueSize: 64,
	}
}

// Runner executes the deployment workflow for admitted tasks. Each task
// moves through a fixed sequence of stages and always terminates in a
// recorded outcome; no error or panic escapes a worker goroutine.
type Runner struct {
	store     store.Store
	generator *generator.Generator
	publisher Publisher
	notifier  Notifier
	config    Config
	logger    *slog.Logger

	queue  chan *domain.AdmittedTask
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRunner creates a workflow runner.
func NewRunner(s store.Store, gen *generator.Generator, pub Publisher, not Notifier, config Config, logger *slog.Logger) *Runner {
	if config.Workers == 0 {
		config.Workers = 4
	}
	if config.QueueSize == 0 {
		config.QueueSize = 64
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		store:     s,
		generator: gen,
		publisher: pub,
		notifier:  not,
		config:    config,
		logger:    logger.With("component", "workflow"),
		queue:     make(chan *domain.AdmittedTask, config.QueueSize),
	}
}

// Start launches the worker pool.
func (r *Runner) Start() {
	r.ctx, r.cancel = context.WithCancel(context.Background())
	for i := 0; i < r.config.Workers; i++ {
		r.wg.Add(1)
		go r.work()
	}
	r.logger.Info("workflow runner started", "workers", r.config.Workers, "queue_size", r.config.QueueSize)
}

// Stop cancels in-flight deployments and waits for workers to exit.
func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	r.logger.Info("workflow runner stopped")
}

// Submit queues an admitted task for deployment. Never blocks; returns
// ErrQueueFull when the queue is at capacity.
func (r *Runner) Submit(task *domain.AdmittedTask) error {
	select {
	case r.queue <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

func (r *Runner) work() {
	defer r.wg.Done()
	for {
		select {
		case <-r.ctx.Done():
			return
		case task := <-r.queue:
			r.process(r.ctx, task)
		}
	}
}

// =============================================================================
// State Machine
// =============================================================================

// process drives one task from received to recorded. The recover here is
// the last line of defense: a panicking stage must not take down the worker,
// and the task must still end in a recorded outcome. When the panic happened
// after a normal record, the duplicate-key guard in record makes the second
// write a no-op.
func (r *Runner) process(ctx context.Context, task *domain.AdmittedTask) {
	logger := r.logger.With("task", task.Task, "round", task.Round, "nonce", task.Nonce)

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("workflow panicked", "panic", rec)
			r.record(ctx, task, nil, domain.NotifyFailed, fmt.Sprintf("panic: %v", rec), logger)
		}
	}()

	logger.Info("workflow started", "stage", domain.StageReceived)

	publish, err := r.build(ctx, task, logger)
	if err != nil {
		r.record(ctx, task, nil, domain.NotifyFailed, err.Error(), logger)
		return
	}

	logger.Info("site published", "stage", domain.StageAwaitingLiveness, "pages_url", publish.PagesURL)
	if !r.publisher.WaitForLive(ctx, publish.PagesURL) {
		logger.Warn("site not confirmed live, notifying anyway", "pages_url", publish.PagesURL)
	}

	logger.Info("notifying evaluator", "stage", domain.StageNotifying, "url", task.EvaluationURL)
	status := domain.NotifyFailed
	if r.notifier.Notify(ctx, task.EvaluationURL, domain.NewEvaluationPayload(task, publish)) {
		status = domain.NotifySuccess
	}

	r.record(ctx, task, publish, status, "", logger)
}

// build runs the generate and publish stages. Failures here are
// non-transient: the caller records a failed outcome and the task is never
// retried.
func (r *Runner) build(ctx context.Context, task *domain.AdmittedTask, logger *slog.Logger) (*domain.PublishResult, error) {
	logger.Info("generating site", "stage", domain.StageGenerating)
	files, err := r.generator.Generate(generator.Input{
		Brief:       task.Brief,
		Checks:      task.Checks,
		Attachments: task.Attachments,
		Round:       task.Round,
	})
	if err != nil {
		logger.Error("generation failed", "error", err)
		return nil, fmt.Errorf("generate: %w", err)
	}

	logger.Info("publishing site", "stage", domain.StagePublishing, "files", len(files))
	var publish *domain.PublishResult
	if task.Round > 1 {
		publish, err = r.publisher.UpdateSite(ctx, task.Task, files)
	} else {
		publish, err = r.publisher.CreateSite(ctx, task.Task, files)
	}
	if err != nil {
		if errors.Is(err, github.ErrSiteNotFound) {
			logger.Error("no existing site for revision round", "error", err)
		} else {
			logger.Error("publish failed", "error", err)
		}
		return nil, fmt.Errorf("publish: %w", err)
	}
	return publish, nil
}

// record writes the terminal outcome row. Exactly one row per admitted
// task; a duplicate key means the outcome was already recorded and is not
// an error.
func (r *Runner) record(ctx context.Context, task *domain.AdmittedTask, publish *domain.PublishResult, status domain.NotifyStatus, errMsg string, logger *slog.Logger) {
	outcome := domain.NewOutcome(task, publish, status, errMsg)
	if err := r.store.CreateOutcome(ctx, outcome); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			logger.Warn("outcome already recorded")
			return
		}
		logger.Error("failed to record outcome", "error", err)
		return
	}
	logger.Info("workflow recorded", "stage", domain.StageRecorded, "notify_status", status, "outcome_id", outcome.ID)
}
