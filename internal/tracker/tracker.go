// Package tracker synchronises tracked repositories and their contributor
// friendly issues from the source host into the catalogue.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cncf/clotributor/internal/config"
	"github.com/cncf/clotributor/internal/github"
)

// repositoryTrackTimeout is the maximum time tracking a single repository
// can take.
const repositoryTrackTimeout = 300 * time.Second

// DB defines the catalogue operations the tracker needs.
type DB interface {
	// GetRepositoriesToTrack returns the repositories due for tracking.
	GetRepositoriesToTrack(ctx context.Context) ([]*Repository, error)

	// GetRepositoryIssues returns the issues stored for a repository.
	GetRepositoryIssues(ctx context.Context, repositoryID uuid.UUID) ([]*Issue, error)

	// RegisterIssue upserts an issue in the catalogue.
	RegisterIssue(ctx context.Context, repo *Repository, issue *Issue) error

	// UnregisterIssue removes an issue from the catalogue.
	UnregisterIssue(ctx context.Context, issueID int64) error

	// UpdateRepositoryGHData persists the repository's refreshed metadata.
	UpdateRepositoryGHData(ctx context.Context, repo *Repository) error

	// UpdateRepositoryLastTrackTS advances the repository's tracked_at.
	UpdateRepositoryLastTrackTS(ctx context.Context, repositoryID uuid.UUID) error
}

// GH defines the source host operations the tracker needs.
type GH interface {
	// Repository fetches a repository snapshot using the token provided.
	Repository(ctx context.Context, token, url string, issuesFilterLabel *string) (*github.Repository, error)
}

// RateLimitReporter is implemented by source host clients that can report
// the remaining API budget of a token. Test doubles usually don't.
type RateLimitReporter interface {
	RateLimit(ctx context.Context, token string) (*github.RateLimitStatus, error)
}

// Run tracks all repositories due for tracking, fanning out with bounded
// concurrency. A failed repository doesn't abort its siblings: every task
// error is collected and the combined error is returned at the end.
func Run(ctx context.Context, cfg *config.Config, db DB, gh GH, logger *zap.Logger) error {
	// Setup source host tokens pool
	tokens := cfg.Creds.GitHubTokens
	if len(tokens) == 0 {
		return errors.New("GitHub tokens not found in config file (creds.githubTokens)")
	}
	pool := NewTokenPool(tokens)

	// Get repositories to track
	logger.Debug("getting repositories to track")
	repositories, err := db.GetRepositoriesToTrack(ctx)
	if err != nil {
		return err
	}
	if len(repositories) == 0 {
		logger.Info("no repositories to track, finished")
		return nil
	}

	// Track repositories
	logger.Info("tracking repositories")
	var (
		mu   sync.Mutex
		errs []error
	)
	var g errgroup.Group
	g.SetLimit(cfg.Tracker.Concurrency)
	for _, repository := range repositories {
		g.Go(func() error {
			token, err := pool.Acquire(ctx)
			if err != nil {
				err = fmt.Errorf("error tracking repository %s: %w", repository.URL, err)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return nil
			}
			defer pool.Release(token)

			taskCtx, cancel := context.WithTimeout(ctx, repositoryTrackTimeout)
			defer cancel()
			if err := trackRepository(taskCtx, db, gh, token, repository, logger); err != nil {
				err = fmt.Errorf("error tracking repository %s: %w", repository.URL, err)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	// Check source host rate limit status for each token
	if reporter, ok := gh.(RateLimitReporter); ok {
		for i, token := range tokens {
			status, err := reporter.RateLimit(ctx, token)
			if err != nil {
				logger.Debug("error getting token rate limit info", zap.Int("token", i), zap.Error(err))
				continue
			}
			logger.Debug("token github rate limit info",
				zap.Int("token", i),
				zap.ByteString("rate", status.Rate),
				zap.ByteString("graphql", status.GraphQL),
			)
		}
	}

	logger.Info("finished")
	return errors.Join(errs...)
}

// trackRepository synchronises a single repository: refresh its metadata,
// diff its issues against the stored set by digest and advance tracked_at.
func trackRepository(ctx context.Context, db DB, gh GH, token string, repo *Repository, logger *zap.Logger) error {
	start := time.Now()
	logger = logger.With(zap.String("url", repo.URL))
	logger.Debug("started")

	// Fetch repository data from source host
	snap, err := gh.Repository(ctx, token, repo.URL, repo.IssuesFilterLabel)
	if err != nil {
		return err
	}

	// Update repository's metadata in the catalogue if needed
	if changed := repo.UpdateGHData(snap); changed {
		if err := db.UpdateRepositoryGHData(ctx, repo); err != nil {
			return err
		}
		logger.Debug("github data updated in database")
	}

	// Sync issues in the source host with the catalogue
	issuesInGH, err := issuesFromSnapshot(snap)
	if err != nil {
		return err
	}
	issuesInDB, err := db.GetRepositoryIssues(ctx, repo.RepositoryID)
	if err != nil {
		return err
	}

	// Register new or outdated issues
	for _, issue := range issuesInGH {
		digestInDB, found := findIssue(issue.IssueID, issuesInDB)
		if !found || issue.Digest != digestInDB {
			if err := db.RegisterIssue(ctx, repo, issue); err != nil {
				return err
			}
			logger.Debug("registering issue", zap.Int32("number", issue.Number))
		}
	}

	// Unregister issues no longer available in the source host
	for _, issue := range issuesInDB {
		if _, found := findIssue(issue.IssueID, issuesInGH); !found {
			if err := db.UnregisterIssue(ctx, issue.IssueID); err != nil {
				return err
			}
			logger.Debug("unregistering issue", zap.Int32("number", issue.Number))
		}
	}

	// Update repository's last track timestamp
	if err := db.UpdateRepositoryLastTrackTS(ctx, repo.RepositoryID); err != nil {
		return err
	}

	logger.Debug("completed", zap.Duration("duration", time.Since(start)))
	return nil
}

// issuesFromSnapshot translates the snapshot's issue nodes into catalogue
// issues, dropping nodes missing their id or publication date.
func issuesFromSnapshot(snap *github.Repository) ([]*Issue, error) {
	issues := make([]*Issue, 0, len(snap.Issues))
	for _, node := range snap.Issues {
		if node.DatabaseID == nil || node.PublishedAt == nil {
			continue
		}
		publishedAt, err := time.Parse(time.RFC3339, *node.PublishedAt)
		if err != nil {
			return nil, fmt.Errorf("error parsing issue %d published date: %w", node.Number, err)
		}

		issue := &Issue{
			IssueID:      *node.DatabaseID,
			Title:        node.Title,
			URL:          node.URL,
			Number:       node.Number,
			Labels:       node.Labels,
			PublishedAt:  publishedAt,
			HasLinkedPRs: len(node.ClosingPRNumber) > 0,
		}
		issue.PopulateFromLabels()
		issue.UpdateDigest()
		issues = append(issues, issue)
	}
	return issues, nil
}

// findIssue looks an issue up by id, returning its digest when found.
func findIssue(issueID int64, issues []*Issue) (string, bool) {
	for _, issue := range issues {
		if issue.IssueID == issueID {
			return issue.Digest, true
		}
	}
	return "", false
}
