package db

import (
	"context"
	"encoding/json"

	"github.com/cncf/clotributor/internal/registrar"
)

// GetFoundations returns the foundations registered in the catalogue.
func (s *Store) GetFoundations(ctx context.Context) ([]*registrar.Foundation, error) {
	rows, err := s.pool.Query(ctx, `
		select foundation_id, data_url
		from foundation
		order by foundation_id asc;
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var foundations []*registrar.Foundation
	for rows.Next() {
		var f registrar.Foundation
		if err := rows.Scan(&f.FoundationID, &f.DataURL); err != nil {
			return nil, err
		}
		foundations = append(foundations, &f)
	}
	return foundations, rows.Err()
}

// GetFoundationProjects returns the name and digest of the projects
// registered for the foundation provided.
func (s *Store) GetFoundationProjects(ctx context.Context, foundationID string) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, `
		select name, digest
		from project
		where foundation_id = $1;
	`, foundationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects := make(map[string]string)
	for rows.Next() {
		var name string
		var digest *string
		if err := rows.Scan(&name, &digest); err != nil {
			return nil, err
		}
		if digest != nil {
			projects[name] = *digest
		} else {
			projects[name] = ""
		}
	}
	return projects, rows.Err()
}

// RegisterProject registers or updates the project provided, delegating to
// the register_project database function (which also creates or prunes the
// project's repositories).
func (s *Store) RegisterProject(ctx context.Context, foundationID string, project *registrar.Project) error {
	projectJSON, err := json.Marshal(project)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, "select register_project($1::text, $2::jsonb)", foundationID, projectJSON)
	return err
}

// UnregisterProject removes the project provided from the catalogue.
func (s *Store) UnregisterProject(ctx context.Context, foundationID, projectName string) error {
	_, err := s.pool.Exec(ctx, "select unregister_project($1::text, $2::text)", foundationID, projectName)
	return err
}
