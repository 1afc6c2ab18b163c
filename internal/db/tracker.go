package db

import (
	"context"

	"github.com/google/uuid"

	"github.com/cncf/clotributor/internal/tracker"
)

// GetRepositoriesToTrack returns the repositories that have never been
// tracked or whose last track happened more than 30 minutes ago.
func (s *Store) GetRepositoriesToTrack(ctx context.Context) ([]*tracker.Repository, error) {
	rows, err := s.pool.Query(ctx, `
		select
			r.repository_id,
			r.name,
			r.description,
			r.url,
			r.homepage_url,
			r.topics,
			r.languages,
			r.stars,
			r.digest,
			r.issues_filter_label,
			p.name as project_name,
			p.foundation_id
		from repository r
		join project p using (project_id)
		where r.tracked_at is null
		or r.tracked_at < current_timestamp - '30 minutes'::interval
		order by r.url asc;
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var repositories []*tracker.Repository
	for rows.Next() {
		var r tracker.Repository
		var digest *string
		if err := rows.Scan(
			&r.RepositoryID,
			&r.Name,
			&r.Description,
			&r.URL,
			&r.HomepageURL,
			&r.Topics,
			&r.Languages,
			&r.Stars,
			&digest,
			&r.IssuesFilterLabel,
			&r.ProjectName,
			&r.FoundationID,
		); err != nil {
			return nil, err
		}
		if digest != nil {
			r.Digest = *digest
		}
		repositories = append(repositories, &r)
	}
	return repositories, rows.Err()
}

// GetRepositoryIssues returns the issues stored for the repository provided.
func (s *Store) GetRepositoryIssues(ctx context.Context, repositoryID uuid.UUID) ([]*tracker.Issue, error) {
	rows, err := s.pool.Query(ctx, `
		select
			issue_id,
			title,
			url,
			number,
			labels,
			published_at,
			has_linked_prs,
			digest,
			area,
			kind,
			difficulty,
			mentor_available,
			mentor,
			good_first_issue
		from issue
		where repository_id = $1;
	`, repositoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var issues []*tracker.Issue
	for rows.Next() {
		var i tracker.Issue
		var digest *string
		if err := rows.Scan(
			&i.IssueID,
			&i.Title,
			&i.URL,
			&i.Number,
			&i.Labels,
			&i.PublishedAt,
			&i.HasLinkedPRs,
			&digest,
			&i.Area,
			&i.Kind,
			&i.Difficulty,
			&i.MentorAvailable,
			&i.Mentor,
			&i.GoodFirstIssue,
		); err != nil {
			return nil, err
		}
		if digest != nil {
			i.Digest = *digest
		}
		issues = append(issues, &i)
	}
	return issues, rows.Err()
}

// RegisterIssue upserts the issue provided, building its weighted full text
// search document from the repository and issue texts.
func (s *Store) RegisterIssue(ctx context.Context, repo *tracker.Repository, issue *tracker.Issue) error {
	tsTexts := issue.PrepareTSTexts(repo)
	_, err := s.pool.Exec(ctx, `
		insert into issue (
			issue_id,
			title,
			url,
			number,
			labels,
			published_at,
			has_linked_prs,
			digest,
			area,
			kind,
			difficulty,
			mentor_available,
			mentor,
			good_first_issue,
			repository_id,
			tsdoc
		) values (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			setweight(to_tsvector($16), 'A') ||
			setweight(to_tsvector($17), 'B') ||
			setweight(to_tsvector($18), 'C')
		) on conflict (issue_id) do update
		set
			title = excluded.title,
			labels = excluded.labels,
			has_linked_prs = excluded.has_linked_prs,
			digest = excluded.digest,
			area = excluded.area,
			kind = excluded.kind,
			difficulty = excluded.difficulty,
			mentor_available = excluded.mentor_available,
			mentor = excluded.mentor,
			good_first_issue = excluded.good_first_issue;
	`,
		issue.IssueID,
		issue.Title,
		issue.URL,
		issue.Number,
		issue.Labels,
		issue.PublishedAt,
		issue.HasLinkedPRs,
		issue.Digest,
		issue.Area,
		issue.Kind,
		issue.Difficulty,
		issue.MentorAvailable,
		issue.Mentor,
		issue.GoodFirstIssue,
		repo.RepositoryID,
		tsTexts.WeightA,
		tsTexts.WeightB,
		tsTexts.WeightC,
	)
	return err
}

// UnregisterIssue removes the issue provided from the catalogue.
func (s *Store) UnregisterIssue(ctx context.Context, issueID int64) error {
	_, err := s.pool.Exec(ctx, "delete from issue where issue_id = $1;", issueID)
	return err
}

// UpdateRepositoryGHData updates the repository's source host metadata.
func (s *Store) UpdateRepositoryGHData(ctx context.Context, repo *tracker.Repository) error {
	_, err := s.pool.Exec(ctx, `
		update repository set
			description = $2,
			homepage_url = $3,
			languages = $4,
			stars = $5,
			topics = $6,
			digest = $7,
			updated_at = current_timestamp
		where repository_id = $1;
	`,
		repo.RepositoryID,
		repo.Description,
		repo.HomepageURL,
		repo.Languages,
		repo.Stars,
		repo.Topics,
		repo.Digest,
	)
	return err
}

// UpdateRepositoryLastTrackTS advances the repository's tracked_at to now.
func (s *Store) UpdateRepositoryLastTrackTS(ctx context.Context, repositoryID uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		"update repository set tracked_at = current_timestamp where repository_id = $1;",
		repositoryID,
	)
	return err
}
