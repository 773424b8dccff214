package workflow

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagesmith/pagesmith/internal/core/domain"
	"github.com/pagesmith/pagesmith/internal/core/generator"
	"github.com/pagesmith/pagesmith/internal/shell/github"
	"github.com/pagesmith/pagesmith/internal/shell/store"
)

// =============================================================================
// Fakes
// =============================================================================

type fakePublisher struct {
	mu        sync.Mutex
	creates   int
	updates   int
	createErr error
	updateErr error
	live      bool
}

func (f *fakePublisher) result(name string) *domain.PublishResult {
	return &domain.PublishResult{
		RepoName:  domain.RepoName(name),
		RepoURL:   "https://github.com/octocat/" + domain.RepoName(name),
		CommitSHA: "abc123",
		PagesURL:  "https://octocat.github.io/" + domain.RepoName(name) + "/",
	}
}

func (f *fakePublisher) CreateSite(ctx context.Context, name string, files map[string]string) (*domain.PublishResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.result(name), nil
}

func (f *fakePublisher) UpdateSite(ctx context.Context, name string, files map[string]string) (*domain.PublishResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return f.result(name), nil
}

func (f *fakePublisher) WaitForLive(ctx context.Context, pagesURL string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.live
}

type fakeNotifier struct {
	mu       sync.Mutex
	calls    int
	payloads []domain.EvaluationPayload
	ack      bool
}

func (f *fakeNotifier) Notify(ctx context.Context, url string, payload domain.EvaluationPayload) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.payloads = append(f.payloads, payload)
	return f.ack
}

// =============================================================================
// Test Helpers
// =============================================================================

// setupRunner backs the runner with a file database; a :memory: DSN gives
// every pool connection its own empty database.
func setupRunner(t *testing.T) (*Runner, store.Store, *fakePublisher, *fakeNotifier) {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	pub := &fakePublisher{live: true}
	not := &fakeNotifier{ack: true}
	r := NewRunner(s, generator.New("octocat"), pub, not, Config{Workers: 2, QueueSize: 8}, nil)
	return r, s, pub, not
}

func admitTask(t *testing.T, s store.Store, round int) *domain.AdmittedTask {
	t.Helper()
	task := domain.NewAdmittedTask(&domain.DeployRequest{
		Email:         "a@b.com",
		Secret:        "S",
		Task:          "sales-1",
		Round:         round,
		Nonce:         "n1",
		Brief:         "Sum sales from CSV. seed: x7",
		Checks:        []string{"repo has MIT license"},
		EvaluationURL: "https://eval.example.com/notify",
	})
	admission, err := s.Admit(context.Background(), task)
	require.NoError(t, err)
	require.Equal(t, store.Admitted, admission)
	return task
}

// run drives one task synchronously through the state machine.
func run(r *Runner, task *domain.AdmittedTask) {
	r.process(context.Background(), task)
}

func getOutcome(t *testing.T, s store.Store, task *domain.AdmittedTask) *domain.Outcome {
	t.Helper()
	outcome, err := s.GetOutcomeByKey(context.Background(), task.Key())
	require.NoError(t, err)
	return outcome
}

// =============================================================================
// State Machine Tests
// =============================================================================

func TestProcess_RoundOneCreatesAndRecordsSuccess(t *testing.T) {
	r, s, pub, not := setupRunner(t)
	task := admitTask(t, s, 1)

	run(r, task)

	assert.Equal(t, 1, pub.creates)
	assert.Equal(t, 0, pub.updates)
	assert.Equal(t, 1, not.calls)

	outcome := getOutcome(t, s, task)
	assert.Equal(t, domain.NotifySuccess, outcome.NotifyStatus)
	assert.Equal(t, "https://github.com/octocat/sales-1", outcome.RepoURL)
	assert.Equal(t, "abc123", outcome.CommitSHA)
	assert.Empty(t, outcome.ErrorMessage)
}

func TestProcess_LaterRoundUpdates(t *testing.T) {
	r, s, pub, _ := setupRunner(t)
	task := admitTask(t, s, 2)

	run(r, task)

	assert.Equal(t, 0, pub.creates)
	assert.Equal(t, 1, pub.updates)
	assert.Equal(t, domain.NotifySuccess, getOutcome(t, s, task).NotifyStatus)
}

func TestProcess_PublishFailureRecordsFailedWithoutNotify(t *testing.T) {
	r, s, pub, not := setupRunner(t)
	pub.createErr = errors.New("boom")
	task := admitTask(t, s, 1)

	run(r, task)

	assert.Equal(t, 0, not.calls)

	outcome := getOutcome(t, s, task)
	assert.Equal(t, domain.NotifyFailed, outcome.NotifyStatus)
	assert.Contains(t, outcome.ErrorMessage, "publish")
	assert.Empty(t, outcome.RepoURL)
}

func TestProcess_MissingSiteOnUpdateRecordsFailed(t *testing.T) {
	r, s, pub, not := setupRunner(t)
	pub.updateErr = github.ErrSiteNotFound
	task := admitTask(t, s, 2)

	run(r, task)

	assert.Equal(t, 0, not.calls)
	assert.Equal(t, domain.NotifyFailed, getOutcome(t, s, task).NotifyStatus)
}

func TestProcess_NotifyExhaustionRecordsFailed(t *testing.T) {
	r, s, _, not := setupRunner(t)
	not.ack = false
	task := admitTask(t, s, 1)

	run(r, task)

	outcome := getOutcome(t, s, task)
	assert.Equal(t, domain.NotifyFailed, outcome.NotifyStatus)
	// The publish succeeded, so its result is still recorded.
	assert.NotEmpty(t, outcome.RepoURL)
	assert.Empty(t, outcome.ErrorMessage)
}

func TestProcess_LivenessTimeoutStillNotifies(t *testing.T) {
	r, s, pub, not := setupRunner(t)
	pub.live = false
	task := admitTask(t, s, 1)

	run(r, task)

	assert.Equal(t, 1, not.calls)
	assert.Equal(t, domain.NotifySuccess, getOutcome(t, s, task).NotifyStatus)
}

func TestProcess_NotifyPayloadCarriesPublishResult(t *testing.T) {
	r, s, _, not := setupRunner(t)
	task := admitTask(t, s, 1)

	run(r, task)

	require.Len(t, not.payloads, 1)
	payload := not.payloads[0]
	assert.Equal(t, "a@b.com", payload.Email)
	assert.Equal(t, "sales-1", payload.Task)
	assert.Equal(t, "n1", payload.Nonce)
	assert.Equal(t, "https://octocat.github.io/sales-1/", payload.PagesURL)
}

func TestProcess_OutcomeWrittenOnce(t *testing.T) {
	r, s, _, _ := setupRunner(t)
	task := admitTask(t, s, 1)

	run(r, task)
	// A second pass over the same task must not produce a second row.
	run(r, task)

	outcomes, err := s.ListOutcomes(context.Background(), store.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, outcomes, 1)
}

func TestProcess_PanicDoesNotEscape(t *testing.T) {
	r, s, _, _ := setupRunner(t)
	r.generator = nil // forces a nil-pointer panic in the generating stage
	task := admitTask(t, s, 1)

	assert.NotPanics(t, func() { run(r, task) })

	// A panicking stage still terminates in a recorded outcome.
	outcome := getOutcome(t, s, task)
	assert.Equal(t, domain.NotifyFailed, outcome.NotifyStatus)
	assert.Contains(t, outcome.ErrorMessage, "panic")
	assert.Empty(t, outcome.RepoURL)
}

func TestProcess_PanicAfterRecordDoesNotDuplicateOutcome(t *testing.T) {
	r, s, _, _ := setupRunner(t)
	task := admitTask(t, s, 1)

	run(r, task)
	first := getOutcome(t, s, task)

	// A panic in a later pass over the same task must not overwrite or
	// duplicate the existing row.
	r.generator = nil
	assert.NotPanics(t, func() { run(r, task) })

	outcomes, err := s.ListOutcomes(context.Background(), store.ListOptions{})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, first.ID, outcomes[0].ID)
	assert.Equal(t, domain.NotifySuccess, outcomes[0].NotifyStatus)
}

// =============================================================================
// Runner Lifecycle Tests
// =============================================================================

func TestRunner_SubmitAndDrain(t *testing.T) {
	r, s, _, not := setupRunner(t)
	task := admitTask(t, s, 1)

	r.Start()
	defer r.Stop()

	require.NoError(t, r.Submit(task))

	require.Eventually(t, func() bool {
		_, err := s.GetOutcomeByKey(context.Background(), task.Key())
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	not.mu.Lock()
	defer not.mu.Unlock()
	assert.Equal(t, 1, not.calls)
}

func TestRunner_SubmitQueueFull(t *testing.T) {
	r, _, _, _ := setupRunner(t)
	r.config.QueueSize = 1
	r.queue = make(chan *domain.AdmittedTask, 1)
	// Not started: nothing drains the queue.
	require.NoError(t, r.Submit(&domain.AdmittedTask{Task: "a"}))
	assert.ErrorIs(t, r.Submit(&domain.AdmittedTask{Task: "b"}), ErrQueueFull)
}
