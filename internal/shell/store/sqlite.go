package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pagesmith/pagesmith/internal/core/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// =============================================================================
// SQLiteStore
// =============================================================================

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore creates a new SQLite store and runs migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite3", dsn+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, NewStoreError("NewSQLiteStore", "", "", "failed to open database", ErrConnectionFailed)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "", "failed to ping database", ErrConnectionFailed)
	}

	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "", err.Error(), ErrMigrationFailed)
	}

	return &SQLiteStore{db: db}, nil
}

// runMigrations runs database migrations using embedded SQL files.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Ping verifies the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// =============================================================================
// Task Operations
// =============================================================================

// taskRow represents a task row in the database.
type taskRow struct {
	ID            int64  `db:"id"`
	Email         string `db:"email"`
	Task          string `db:"task"`
	Round         int    `db:"round"`
	Nonce         string `db:"nonce"`
	Brief         string `db:"brief"`
	Checks        string `db:"checks"`
	Attachments   string `db:"attachments"`
	EvaluationURL string `db:"evaluation_url"`
	SecretHash    string `db:"secret_hash"`
	StatusCode    int    `db:"status_code"`
	CreatedAt     string `db:"created_at"`
}

// Admit atomically inserts the task record. The unique index on
// (email, task, round, nonce) decides the race: the losing insert sees a
// constraint failure and reports AlreadyProcessed without side effects.
func (s *SQLiteStore) Admit(ctx context.Context, task *domain.AdmittedTask) (Admission, error) {
	checksJSON, err := json.Marshal(task.Checks)
	if err != nil {
		return "", NewStoreError("Admit", "task", task.Key().String(), "failed to serialize checks", ErrInvalidData)
	}
	attachmentsJSON, err := json.Marshal(task.Attachments)
	if err != nil {
		return "", NewStoreError("Admit", "task", task.Key().String(), "failed to serialize attachments", ErrInvalidData)
	}

	query := `
		INSERT INTO tasks (
			email, task, round, nonce, brief, checks, attachments,
			evaluation_url, secret_hash, status_code, created_at
		) VALUES (
			:email, :task, :round, :nonce, :brief, :checks, :attachments,
			:evaluation_url, :secret_hash, :status_code, :created_at
		)`

	row := map[string]any{
		"email":          task.Email,
		"task":           task.Task,
		"round":          task.Round,
		"nonce":          task.Nonce,
		"brief":          task.Brief,
		"checks":         string(checksJSON),
		"attachments":    string(attachmentsJSON),
		"evaluation_url": task.EvaluationURL,
		"secret_hash":    task.SecretHash,
		"status_code":    task.StatusCode,
		"created_at":     task.CreatedAt.Format(time.RFC3339),
	}

	result, err := s.db.NamedExecContext(ctx, query, row)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return AlreadyProcessed, nil
		}
		return "", NewStoreError("Admit", "task", task.Key().String(), err.Error(), err)
	}

	if id, err := result.LastInsertId(); err == nil {
		task.ID = id
	}
	return Admitted, nil
}

func (s *SQLiteStore) GetTask(ctx context.Context, key domain.DedupKey) (*domain.AdmittedTask, error) {
	query := `SELECT * FROM tasks WHERE email = ? AND task = ? AND round = ? AND nonce = ?`

	var row taskRow
	err := s.db.GetContext(ctx, &row, query, key.Email, key.Task, key.Round, key.Nonce)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("GetTask", "task", key.String(), "task not found", ErrNotFound)
		}
		return nil, NewStoreError("GetTask", "task", key.String(), err.Error(), err)
	}

	return rowToTask(&row)
}

func (s *SQLiteStore) ListTasks(ctx context.Context, opts ListOptions) ([]domain.AdmittedTask, error) {
	opts = opts.Normalize()
	query := `SELECT * FROM tasks ORDER BY created_at DESC LIMIT ? OFFSET ?`

	var rows []taskRow
	err := s.db.SelectContext(ctx, &rows, query, opts.Limit, opts.Offset)
	if err != nil {
		return nil, NewStoreError("ListTasks", "task", "", err.Error(), err)
	}

	tasks := make([]domain.AdmittedTask, 0, len(rows))
	for i := range rows {
		task, err := rowToTask(&rows[i])
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}

	return tasks, nil
}

func rowToTask(row *taskRow) (*domain.AdmittedTask, error) {
	var checks []string
	if err := json.Unmarshal([]byte(row.Checks), &checks); err != nil {
		return nil, NewStoreError("rowToTask", "task", row.Nonce, "failed to parse checks", ErrInvalidData)
	}
	var attachments []domain.Attachment
	if err := json.Unmarshal([]byte(row.Attachments), &attachments); err != nil {
		return nil, NewStoreError("rowToTask", "task", row.Nonce, "failed to parse attachments", ErrInvalidData)
	}
	createdAt, err := time.Parse(time.RFC3339, row.CreatedAt)
	if err != nil {
		return nil, NewStoreError("rowToTask", "task", row.Nonce, "failed to parse created_at", ErrInvalidData)
	}

	return &domain.AdmittedTask{
		ID:            row.ID,
		Email:         row.Email,
		Task:          row.Task,
		Round:         row.Round,
		Nonce:         row.Nonce,
		Brief:         row.Brief,
		Checks:        checks,
		Attachments:   attachments,
		EvaluationURL: row.EvaluationURL,
		SecretHash:    row.SecretHash,
		StatusCode:    row.StatusCode,
		CreatedAt:     createdAt,
	}, nil
}

// =============================================================================
// Outcome Operations
// =============================================================================

// outcomeRow represents an outcome row in the database.
type outcomeRow struct {
	ID              string `db:"id"`
	Email           string `db:"email"`
	Task            string `db:"task"`
	Round           int    `db:"round"`
	Nonce           string `db:"nonce"`
	RepoURL         string `db:"repo_url"`
	CommitSHA       string `db:"commit_sha"`
	PagesURL        string `db:"pages_url"`
	NotifyStatus    string `db:"notify_status"`
	NotifyTimestamp string `db:"notify_timestamp"`
	ErrorMessage    string `db:"error_message"`
	CreatedAt       string `db:"created_at"`
}

func (s *SQLiteStore) CreateOutcome(ctx context.Context, outcome *domain.Outcome) error {
	query := `
		INSERT INTO outcomes (
			id, email, task, round, nonce, repo_url, commit_sha, pages_url,
			notify_status, notify_timestamp, error_message, created_at
		) VALUES (
			:id, :email, :task, :round, :nonce, :repo_url, :commit_sha, :pages_url,
			:notify_status, :notify_timestamp, :error_message, :created_at
		)`

	row := map[string]any{
		"id":               outcome.ID,
		"email":            outcome.Email,
		"task":             outcome.Task,
		"round":            outcome.Round,
		"nonce":            outcome.Nonce,
		"repo_url":         outcome.RepoURL,
		"commit_sha":       outcome.CommitSHA,
		"pages_url":        outcome.PagesURL,
		"notify_status":    string(outcome.NotifyStatus),
		"notify_timestamp": outcome.NotifyTimestamp.Format(time.RFC3339),
		"error_message":    outcome.ErrorMessage,
		"created_at":       outcome.CreatedAt.Format(time.RFC3339),
	}

	_, err := s.db.NamedExecContext(ctx, query, row)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return NewStoreError("CreateOutcome", "outcome", outcome.ID, "outcome for this dedup key already exists", ErrDuplicateKey)
		}
		return NewStoreError("CreateOutcome", "outcome", outcome.ID, err.Error(), err)
	}

	return nil
}

func (s *SQLiteStore) GetOutcomeByKey(ctx context.Context, key domain.DedupKey) (*domain.Outcome, error) {
	query := `SELECT * FROM outcomes WHERE email = ? AND task = ? AND round = ? AND nonce = ?`

	var row outcomeRow
	err := s.db.GetContext(ctx, &row, query, key.Email, key.Task, key.Round, key.Nonce)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("GetOutcomeByKey", "outcome", key.String(), "outcome not found", ErrNotFound)
		}
		return nil, NewStoreError("GetOutcomeByKey", "outcome", key.String(), err.Error(), err)
	}

	return rowToOutcome(&row)
}

func (s *SQLiteStore) ListOutcomes(ctx context.Context, opts ListOptions) ([]domain.Outcome, error) {
	opts = opts.Normalize()
	query := `SELECT * FROM outcomes ORDER BY created_at DESC LIMIT ? OFFSET ?`

	var rows []outcomeRow
	err := s.db.SelectContext(ctx, &rows, query, opts.Limit, opts.Offset)
	if err != nil {
		return nil, NewStoreError("ListOutcomes", "outcome", "", err.Error(), err)
	}

	outcomes := make([]domain.Outcome, 0, len(rows))
	for i := range rows {
		outcome, err := rowToOutcome(&rows[i])
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, *outcome)
	}

	return outcomes, nil
}

func rowToOutcome(row *outcomeRow) (*domain.Outcome, error) {
	notifyAt, err := time.Parse(time.RFC3339, row.NotifyTimestamp)
	if err != nil {
		return nil, NewStoreError("rowToOutcome", "outcome", row.ID, "failed to parse notify_timestamp", ErrInvalidData)
	}
	createdAt, err := time.Parse(time.RFC3339, row.CreatedAt)
	if err != nil {
		return nil, NewStoreError("rowToOutcome", "outcome", row.ID, "failed to parse created_at", ErrInvalidData)
	}

	return &domain.Outcome{
		ID:              row.ID,
		Email:           row.Email,
		Task:            row.Task,
		Round:           row.Round,
		Nonce:           row.Nonce,
		RepoURL:         row.RepoURL,
		CommitSHA:       row.CommitSHA,
		PagesURL:        row.PagesURL,
		NotifyStatus:    domain.NotifyStatus(row.NotifyStatus),
		NotifyTimestamp: notifyAt,
		ErrorMessage:    row.ErrorMessage,
		CreatedAt:       createdAt,
	}, nil
}

// =============================================================================
// Check Result Operations
// =============================================================================

// checkResultRow represents a check result row in the database.
type checkResultRow struct {
	ID        string `db:"id"`
	Email     string `db:"email"`
	Task      string `db:"task"`
	Round     int    `db:"round"`
	RepoURL   string `db:"repo_url"`
	CommitSHA string `db:"commit_sha"`
	PagesURL  string `db:"pages_url"`
	Check     string `db:"check"`
	Score     int    `db:"score"`
	Reason    string `db:"reason"`
	CreatedAt string `db:"created_at"`
}

func (s *SQLiteStore) CreateCheckResult(ctx context.Context, result *domain.CheckResult) error {
	query := `
		INSERT INTO check_results (
			id, email, task, round, repo_url, commit_sha, pages_url,
			"check", score, reason, created_at
		) VALUES (
			:id, :email, :task, :round, :repo_url, :commit_sha, :pages_url,
			:check, :score, :reason, :created_at
		)`

	row := map[string]any{
		"id":         result.ID,
		"email":      result.Email,
		"task":       result.Task,
		"round":      result.Round,
		"repo_url":   result.RepoURL,
		"commit_sha": result.CommitSHA,
		"pages_url":  result.PagesURL,
		"check":      result.Check,
		"score":      result.Score,
		"reason":     result.Reason,
		"created_at": result.CreatedAt.Format(time.RFC3339),
	}

	_, err := s.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return NewStoreError("CreateCheckResult", "check_result", result.ID, err.Error(), err)
	}

	return nil
}

func (s *SQLiteStore) ListCheckResults(ctx context.Context, task string, round int) ([]domain.CheckResult, error) {
	query := `SELECT * FROM check_results WHERE task = ? AND round = ? ORDER BY created_at ASC`

	var rows []checkResultRow
	err := s.db.SelectContext(ctx, &rows, query, task, round)
	if err != nil {
		return nil, NewStoreError("ListCheckResults", "check_result", task, err.Error(), err)
	}

	results := make([]domain.CheckResult, 0, len(rows))
	for i := range rows {
		row := &rows[i]
		createdAt, err := time.Parse(time.RFC3339, row.CreatedAt)
		if err != nil {
			return nil, NewStoreError("ListCheckResults", "check_result", row.ID, "failed to parse created_at", ErrInvalidData)
		}
		results = append(results, domain.CheckResult{
			ID:        row.ID,
			Email:     row.Email,
			Task:      row.Task,
			Round:     row.Round,
			RepoURL:   row.RepoURL,
			CommitSHA: row.CommitSHA,
			PagesURL:  row.PagesURL,
			Check:     row.Check,
			Score:     row.Score,
			Reason:    row.Reason,
			CreatedAt: createdAt,
		})
	}

	return results, nil
}
