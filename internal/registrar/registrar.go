// Package registrar reconciles the set of projects registered in the
// catalogue against the data files published by each foundation.
package registrar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/cncf/clotributor/internal/config"
)

// foundationTimeout is the maximum time processing a foundation data file
// can take.
const foundationTimeout = 300 * time.Second

// DB defines the catalogue operations the registrar needs.
type DB interface {
	// GetFoundations returns the foundations registered in the catalogue.
	GetFoundations(ctx context.Context) ([]*Foundation, error)

	// GetFoundationProjects returns the name and digest of the projects
	// registered for a foundation.
	GetFoundationProjects(ctx context.Context, foundationID string) (map[string]string, error)

	// RegisterProject registers or updates a project in the catalogue.
	RegisterProject(ctx context.Context, foundationID string, project *Project) error

	// UnregisterProject removes a project from the catalogue.
	UnregisterProject(ctx context.Context, foundationID, projectName string) error
}

// Run processes the data file of every foundation registered in the
// catalogue, fanning out with bounded concurrency. A failed foundation
// doesn't abort its siblings: every task error is collected and the
// combined error is returned at the end.
func Run(ctx context.Context, cfg *config.Config, db DB, logger *zap.Logger) error {
	logger.Info("started")

	httpClient := &http.Client{Timeout: 30 * time.Second}
	foundations, err := db.GetFoundations(ctx)
	if err != nil {
		return err
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	var g errgroup.Group
	g.SetLimit(cfg.Registrar.Concurrency)
	for _, foundation := range foundations {
		g.Go(func() error {
			taskCtx, cancel := context.WithTimeout(ctx, foundationTimeout)
			defer cancel()
			if err := processFoundation(taskCtx, db, httpClient, foundation, logger); err != nil {
				err = fmt.Errorf("error processing foundation %s data file: %w", foundation.FoundationID, err)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	logger.Info("finished")
	return errors.Join(errs...)
}

// processFoundation reconciles the catalogue against a foundation's data
// file. New projects are registered, changed ones (by digest) are updated
// and projects no longer listed are unregistered.
func processFoundation(ctx context.Context, db DB, httpClient *http.Client, foundation *Foundation, logger *zap.Logger) error {
	start := time.Now()
	logger = logger.With(zap.String("foundation", foundation.FoundationID))
	logger.Debug("started")

	// Fetch foundation data file
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, foundation.DataURL, nil)
	if err != nil {
		return err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code getting data file: %s", resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	// Get projects available in the data file
	var projects []*Project
	if err := yaml.Unmarshal(data, &projects); err != nil {
		return err
	}
	projectsAvailable := make(map[string]*Project, len(projects))
	for _, project := range projects {
		// Do not include repositories that have been excluded for this service
		project.RemoveExcludedRepositories()

		project.SetDigest()
		projectsAvailable[project.Name] = project
	}

	// Get projects registered in the catalogue
	projectsRegistered, err := db.GetFoundationProjects(ctx, foundation.FoundationID)
	if err != nil {
		return err
	}

	// Register or update available projects as needed
	for name, project := range projectsAvailable {
		if registeredDigest, ok := projectsRegistered[name]; ok && registeredDigest == project.Digest {
			continue
		}

		logger.Debug("registering project", zap.String("project", name))
		if err := db.RegisterProject(ctx, foundation.FoundationID, project); err != nil {
			logger.Error("error registering project", zap.String("project", name), zap.Error(err))
		}
	}

	// Unregister projects no longer available in the data file. Skipped when
	// the data file yielded no projects at all: a file that parses to zero
	// projects must not cascade into a full deletion.
	if len(projectsAvailable) > 0 {
		for name := range projectsRegistered {
			if _, ok := projectsAvailable[name]; ok {
				continue
			}
			logger.Debug("unregistering project", zap.String("project", name))
			if err := db.UnregisterProject(ctx, foundation.FoundationID, name); err != nil {
				logger.Error("error unregistering project", zap.String("project", name), zap.Error(err))
			}
		}
	}

	logger.Debug("completed", zap.Duration("duration", time.Since(start)))
	return nil
}
