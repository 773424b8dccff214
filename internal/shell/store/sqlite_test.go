package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/pagesmith/pagesmith/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Helpers
// =============================================================================

func setupTestStore(t *testing.T) Store {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

// setupFileStore uses an on-disk database so concurrent connections share
// the same data; :memory: gives every pool connection its own database.
func setupFileStore(t *testing.T) Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "pagesmith.db")
	s, err := NewSQLiteStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func testTask(nonce string) *domain.AdmittedTask {
	return domain.NewAdmittedTask(&domain.DeployRequest{
		Email:         "a@b.com",
		Secret:        "S",
		Task:          "sales-1",
		Round:         1,
		Nonce:         nonce,
		Brief:         "Build a sales page",
		Checks:        []string{"has license"},
		EvaluationURL: "http://eval.local/cb",
	})
}

// =============================================================================
// Admission Tests
// =============================================================================

func TestAdmit_NewTask(t *testing.T) {
	s := setupTestStore(t)

	admission, err := s.Admit(context.Background(), testTask("n1"))
	require.NoError(t, err)
	assert.Equal(t, Admitted, admission)
}

func TestAdmit_Replay(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	_, err := s.Admit(ctx, testTask("n1"))
	require.NoError(t, err)

	admission, err := s.Admit(ctx, testTask("n1"))
	require.NoError(t, err)
	assert.Equal(t, AlreadyProcessed, admission)
}

func TestAdmit_ReplayLeavesRecordUntouched(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	first := testTask("n1")
	_, err := s.Admit(ctx, first)
	require.NoError(t, err)

	replay := testTask("n1")
	replay.Brief = "a different brief"
	_, err = s.Admit(ctx, replay)
	require.NoError(t, err)

	stored, err := s.GetTask(ctx, first.Key())
	require.NoError(t, err)
	assert.Equal(t, "Build a sales page", stored.Brief)
}

func TestAdmit_DifferentNonceIsNovel(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	_, err := s.Admit(ctx, testTask("n1"))
	require.NoError(t, err)

	admission, err := s.Admit(ctx, testTask("n2"))
	require.NoError(t, err)
	assert.Equal(t, Admitted, admission)
}

func TestAdmit_DifferentRoundIsNovel(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	_, err := s.Admit(ctx, testTask("n1"))
	require.NoError(t, err)

	other := testTask("n1")
	other.Round = 2
	admission, err := s.Admit(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, Admitted, admission)
}

func TestAdmit_ConcurrentSameKey(t *testing.T) {
	s := setupFileStore(t)
	ctx := context.Background()

	const n = 10
	results := make([]Admission, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = s.Admit(ctx, testTask("race"))
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	admitted := 0
	for _, a := range results {
		if a == Admitted {
			admitted++
		}
	}
	assert.Equal(t, 1, admitted, "exactly one admission must win")

	tasks, err := s.ListTasks(ctx, ListOptions{})
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

// =============================================================================
// Task Lookup Tests
// =============================================================================

func TestGetTask_RoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	task := testTask("n1")
	task.Attachments = []domain.Attachment{{Name: "data.csv", URL: "data:text/csv;base64,YQ=="}}
	_, err := s.Admit(ctx, task)
	require.NoError(t, err)

	got, err := s.GetTask(ctx, task.Key())
	require.NoError(t, err)

	assert.Equal(t, task.Email, got.Email)
	assert.Equal(t, task.Brief, got.Brief)
	assert.Equal(t, task.Checks, got.Checks)
	assert.Equal(t, task.Attachments, got.Attachments)
	assert.Equal(t, task.SecretHash, got.SecretHash)
	assert.NotZero(t, got.ID)
}

func TestGetTask_NotFound(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.GetTask(context.Background(), domain.DedupKey{Email: "x", Task: "y", Round: 1, Nonce: "z"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListTasks(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	for _, nonce := range []string{"n1", "n2", "n3"} {
		_, err := s.Admit(ctx, testTask(nonce))
		require.NoError(t, err)
	}

	tasks, err := s.ListTasks(ctx, ListOptions{})
	require.NoError(t, err)
	assert.Len(t, tasks, 3)
}

// =============================================================================
// Outcome Tests
// =============================================================================

func TestCreateOutcome_RoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	task := testTask("n1")
	outcome := domain.NewOutcome(task, &domain.PublishResult{
		RepoURL:   "https://github.com/u/sales-1",
		CommitSHA: "abc",
		PagesURL:  "https://u.github.io/sales-1/",
	}, domain.NotifySuccess, "")

	require.NoError(t, s.CreateOutcome(ctx, outcome))

	got, err := s.GetOutcomeByKey(ctx, task.Key())
	require.NoError(t, err)
	assert.Equal(t, outcome.ID, got.ID)
	assert.Equal(t, domain.NotifySuccess, got.NotifyStatus)
	assert.Equal(t, "abc", got.CommitSHA)
}

func TestCreateOutcome_DuplicateKeyRejected(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	task := testTask("n1")
	require.NoError(t, s.CreateOutcome(ctx, domain.NewOutcome(task, nil, domain.NotifyFailed, "boom")))

	err := s.CreateOutcome(ctx, domain.NewOutcome(task, nil, domain.NotifySuccess, ""))
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestGetOutcomeByKey_NotFound(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.GetOutcomeByKey(context.Background(), domain.DedupKey{Email: "x", Task: "y", Round: 1, Nonce: "z"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListOutcomes(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	for _, nonce := range []string{"n1", "n2"} {
		require.NoError(t, s.CreateOutcome(ctx, domain.NewOutcome(testTask(nonce), nil, domain.NotifyFailed, "x")))
	}

	outcomes, err := s.ListOutcomes(ctx, ListOptions{})
	require.NoError(t, err)
	assert.Len(t, outcomes, 2)
}

// =============================================================================
// Check Result Tests
// =============================================================================

func TestCheckResults_RoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	outcome := domain.NewOutcome(testTask("n1"), &domain.PublishResult{RepoURL: "r"}, domain.NotifySuccess, "")
	result := domain.NewCheckResult(outcome, "has license", 1, "LICENSE file present")

	require.NoError(t, s.CreateCheckResult(ctx, result))

	results, err := s.ListCheckResults(ctx, "sales-1", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "has license", results[0].Check)
	assert.Equal(t, 1, results[0].Score)
	assert.Equal(t, "r", results[0].RepoURL)
}

func TestListCheckResults_Empty(t *testing.T) {
	s := setupTestStore(t)

	results, err := s.ListCheckResults(context.Background(), "nope", 1)
	require.NoError(t, err)
	assert.Empty(t, results)
}

// =============================================================================
// Lifecycle Tests
// =============================================================================

func TestPing(t *testing.T) {
	s := setupTestStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}
