package db

import (
	"context"
	"encoding/json"
)

// SearchIssuesInput is the query input used when searching for issues. It is
// serialised as JSON and handed to the search_issues database function,
// which implements filtering, ranking, pagination and sorting.
type SearchIssuesInput struct {
	Limit           *int     `json:"limit,omitempty"`
	Offset          *int     `json:"offset,omitempty"`
	SortBy          *string  `json:"sort_by,omitempty"`
	Foundation      []string `json:"foundation,omitempty"`
	Maturity        []string `json:"maturity,omitempty"`
	Project         []string `json:"project,omitempty"`
	Area            []string `json:"area,omitempty"`
	Kind            []string `json:"kind,omitempty"`
	Difficulty      []string `json:"difficulty,omitempty"`
	Language        []string `json:"language,omitempty"`
	MentorAvailable *bool    `json:"mentor_available,omitempty"`
	GoodFirstIssue  *bool    `json:"good_first_issue,omitempty"`
	NoLinkedPRs     *bool    `json:"no_linked_prs,omitempty"`
	TSQueryWeb      *string  `json:"ts_query_web,omitempty"`
}

// SearchIssues returns the issues matching the input provided as a JSON
// document, along with the total number of matches available.
func (s *Store) SearchIssues(ctx context.Context, input *SearchIssuesInput) (int64, []byte, error) {
	inputJSON, err := json.Marshal(input)
	if err != nil {
		return 0, nil, err
	}
	var count int64
	var issues []byte
	err = s.pool.QueryRow(ctx,
		"select total_count, issues::text from search_issues($1::jsonb)",
		inputJSON,
	).Scan(&count, &issues)
	if err != nil {
		return 0, nil, err
	}
	return count, issues, nil
}

// GetIssuesFilters returns the filters that can be used when searching for
// issues as a JSON document.
func (s *Store) GetIssuesFilters(ctx context.Context) ([]byte, error) {
	var filters []byte
	if err := s.pool.QueryRow(ctx, "select get_issues_filters()::text").Scan(&filters); err != nil {
		return nil, err
	}
	return filters, nil
}
