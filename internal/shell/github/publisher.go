package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pagesmith/pagesmith/internal/core/domain"
)

// PagesBranch is the branch GitHub Pages serves from.
const PagesBranch = "gh-pages"

// ErrSiteNotFound is returned by UpdateSite when no repository exists for
// the task. A round >= 2 request without a round-1 site is a configuration
// error, not a transient failure.
var ErrSiteNotFound = errors.New("github: site for task does not exist")

// =============================================================================
// Publisher
// =============================================================================

// PublisherConfig configures publish behavior.
type PublisherConfig struct {
	// SettleDelay is the pause after repo create/delete; GitHub's repo
	// lifecycle is eventually consistent.
	SettleDelay time.Duration

	// LivenessAttempts and LivenessInterval bound the advisory poll that
	// waits for a published site to become publicly reachable.
	LivenessAttempts int
	LivenessInterval time.Duration
	LivenessTimeout  time.Duration
}

// DefaultPublisherConfig returns default configuration.
func DefaultPublisherConfig() PublisherConfig {
	return PublisherConfig{
		SettleDelay:      2 * time.Second,
		LivenessAttempts: 30,
		LivenessInterval: 4 * time.Second,
		LivenessTimeout:  10 * time.Second,
	}
}

// Publisher turns a generated file map into a live GitHub Pages site.
type Publisher struct {
	client *Client
	config PublisherConfig
	logger *slog.Logger

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration)

	// liveClient fetches the public Pages URL during liveness polling.
	liveClient *http.Client
}

// NewPublisher creates a publisher on top of a GitHub API client.
func NewPublisher(client *Client, config PublisherConfig, logger *slog.Logger) *Publisher {
	if config.SettleDelay == 0 {
		config.SettleDelay = 2 * time.Second
	}
	if config.LivenessAttempts == 0 {
		config.LivenessAttempts = 30
	}
	if config.LivenessInterval == 0 {
		config.LivenessInterval = 4 * time.Second
	}
	if config.LivenessTimeout == 0 {
		config.LivenessTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Publisher{
		client:     client,
		config:     config,
		logger:     logger.With("component", "publisher"),
		sleep:      sleepCtx,
		liveClient: &http.Client{Timeout: config.LivenessTimeout},
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// =============================================================================
// Create Path
// =============================================================================

// CreateSite provisions a fresh repository for the task and publishes the
// file map on the Pages branch. A pre-existing repository with the same
// derived name is destroyed first.
func (p *Publisher) CreateSite(ctx context.Context, taskName string, files map[string]string) (*domain.PublishResult, error) {
	name := domain.RepoName(taskName)
	logger := p.logger.With("repo", name)

	// Destroy-and-recreate on name collision.
	if _, err := p.client.GetRepo(ctx, name); err == nil {
		logger.Info("repo already exists, deleting before recreate")
		if err := p.client.DeleteRepo(ctx, name); err != nil {
			return nil, fmt.Errorf("delete existing repo %s: %w", name, err)
		}
		p.sleep(ctx, p.config.SettleDelay)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("check existing repo %s: %w", name, err)
	}

	repo, err := p.client.CreateRepo(ctx, name, "Auto-generated app for "+taskName)
	if err != nil {
		return nil, fmt.Errorf("create repo %s: %w", name, err)
	}
	logger.Info("repository created", "url", repo.HTMLURL)
	p.sleep(ctx, p.config.SettleDelay)

	defaultBranch := repo.DefaultBranch
	if defaultBranch == "" {
		defaultBranch = "main"
	}
	mainSHA, err := p.client.GetRef(ctx, name, "heads/"+defaultBranch)
	if err != nil {
		return nil, fmt.Errorf("resolve %s ref: %w", defaultBranch, err)
	}

	if err := p.client.CreateRef(ctx, name, "refs/heads/"+PagesBranch, mainSHA); err != nil {
		return nil, fmt.Errorf("create %s branch: %w", PagesBranch, err)
	}

	if err := p.uploadFiles(ctx, name, files); err != nil {
		return nil, err
	}

	if err := p.client.EnablePages(ctx, name, PagesBranch); err != nil {
		return nil, fmt.Errorf("enable pages for %s: %w", name, err)
	}

	return p.result(ctx, name, repo.HTMLURL)
}

// =============================================================================
// Update Path
// =============================================================================

// UpdateSite upserts the file map into the task's existing repository.
// Files absent from the map are left untouched; nothing is deleted.
func (p *Publisher) UpdateSite(ctx context.Context, taskName string, files map[string]string) (*domain.PublishResult, error) {
	name := domain.RepoName(taskName)

	repo, err := p.client.GetRepo(ctx, name)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSiteNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("look up repo %s: %w", name, err)
	}

	if err := p.uploadFiles(ctx, name, files); err != nil {
		return nil, err
	}

	// Re-enabling is a no-op when Pages is already on.
	if err := p.client.EnablePages(ctx, name, PagesBranch); err != nil {
		return nil, fmt.Errorf("enable pages for %s: %w", name, err)
	}

	return p.result(ctx, name, repo.HTMLURL)
}

// =============================================================================
// Shared Steps
// =============================================================================

// uploadFiles upserts every file onto the Pages branch: replace when the
// path exists (by its current blob SHA), create when it does not.
func (p *Publisher) uploadFiles(ctx context.Context, repo string, files map[string]string) error {
	for path, content := range files {
		sha, err := p.client.GetContentSHA(ctx, repo, path, PagesBranch)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("stat %s: %w", path, err)
		}

		message := "Add " + path
		if sha != "" {
			message = "Update " + path
		}
		if err := p.client.PutContent(ctx, repo, path, message, content, PagesBranch, sha); err != nil {
			return fmt.Errorf("upload %s: %w", path, err)
		}
		p.logger.Debug("uploaded file", "repo", repo, "path", path)
	}
	return nil
}

// result reads the Pages branch tip and assembles the publish result.
func (p *Publisher) result(ctx context.Context, name, htmlURL string) (*domain.PublishResult, error) {
	commitSHA, err := p.client.GetRef(ctx, name, "heads/"+PagesBranch)
	if err != nil {
		return nil, fmt.Errorf("resolve %s tip: %w", PagesBranch, err)
	}

	return &domain.PublishResult{
		RepoName:  name,
		RepoURL:   htmlURL,
		CommitSHA: commitSHA,
		PagesURL:  fmt.Sprintf("https://%s.github.io/%s/", p.client.Username(), name),
	}, nil
}

// =============================================================================
// Liveness
// =============================================================================

// WaitForLive polls the public URL until it serves a 200 or the attempt
// budget runs out. The outcome is advisory; callers only log it.
func (p *Publisher) WaitForLive(ctx context.Context, pagesURL string) bool {
	for attempt := 1; attempt <= p.config.LivenessAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pagesURL, nil)
		if err != nil {
			return false
		}
		resp, err := p.liveClient.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				p.logger.Info("site is live", "url", pagesURL, "attempts", attempt)
				return true
			}
		}

		if ctx.Err() != nil {
			return false
		}
		if attempt < p.config.LivenessAttempts {
			p.sleep(ctx, p.config.LivenessInterval)
		}
	}

	p.logger.Warn("site not reachable within liveness budget", "url", pagesURL)
	return false
}
