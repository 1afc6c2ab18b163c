// Package github fetches repository snapshots from the GitHub GraphQL API.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"golang.org/x/time/rate"
)

// API endpoints used by the client.
const (
	defaultGraphQLURL = "https://api.github.com/graphql"
	defaultRESTURL    = "https://api.github.com"
)

// userAgent identifies this service to the GitHub API.
const userAgent = "clotributor"

// issuesSinceWindow bounds how far back issues are requested.
const issuesSinceWindow = 365 * 24 * time.Hour

var repoURL = regexp.MustCompile(`^https://github\.com/(?P<owner>[^/]+)/(?P<repo>[^/]+)/?$`)

// Repository is the snapshot of a repository returned by the GraphQL API:
// its metadata plus the recent issues that match the tracking criteria.
//
// Topics and Languages are nil when GitHub returned no collection at all and
// an empty non-nil slice when it returned an empty one. Digests are computed
// over this distinction, so conversions must preserve it.
type Repository struct {
	Description    *string
	HomepageURL    *string
	StargazerCount int32
	Topics         []string
	Languages      []string
	Issues         []IssueNode
}

// IssueNode is a single issue as returned by the GraphQL API. Fields GitHub
// may omit are pointers; callers drop nodes missing required ones.
type IssueNode struct {
	DatabaseID      *int64
	Title           string
	URL             string
	Number          int32
	PublishedAt     *string
	Labels          []string
	ClosingPRNumber []int32
}

// Client talks to the GitHub API. A single client is shared by all tracker
// tasks; the per-request token comes from the credential pool.
type Client struct {
	graphQLURL string
	restURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a GitHub API client.
func NewClient() *Client {
	return &Client{
		graphQLURL: defaultGraphQLURL,
		restURL:    defaultRESTURL,
		// Sustained 5 req/s with room for a burst when a tracker run
		// fans out; the credential pool is the primary gate.
		limiter:    rate.NewLimiter(rate.Limit(5), 20),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// SetAPIURL overrides both API base URLs (for testing).
func (c *Client) SetAPIURL(url string) {
	c.graphQLURL = url + "/graphql"
	c.restURL = url
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors,omitempty"`
}

// Repository fetches the snapshot of the repository at the url provided,
// limiting issues to the ones carrying issuesFilterLabel when set.
func (c *Client) Repository(ctx context.Context, token, url string, issuesFilterLabel *string) (*Repository, error) {
	owner, repo, err := parseRepoURL(url)
	if err != nil {
		return nil, err
	}

	vars := map[string]any{
		"owner":       owner,
		"repo":        repo,
		"issuesSince": time.Now().UTC().Add(-issuesSinceWindow).Format(time.RFC3339),
	}
	if issuesFilterLabel != nil {
		vars["labels"] = []string{*issuesFilterLabel}
	}

	var result struct {
		Repository *struct {
			Description      *string `json:"description"`
			HomepageURL      *string `json:"homepageUrl"`
			StargazerCount   int32   `json:"stargazerCount"`
			RepositoryTopics *struct {
				Nodes []*struct {
					Topic struct {
						Name string `json:"name"`
					} `json:"topic"`
				} `json:"nodes"`
			} `json:"repositoryTopics"`
			Languages *struct {
				Nodes []*struct {
					Name string `json:"name"`
				} `json:"nodes"`
			} `json:"languages"`
			Issues struct {
				Nodes []*struct {
					DatabaseID  *int64  `json:"databaseId"`
					Title       string  `json:"title"`
					URL         string  `json:"url"`
					Number      int32   `json:"number"`
					PublishedAt *string `json:"publishedAt"`
					Labels      *struct {
						Nodes []*struct {
							Name string `json:"name"`
						} `json:"nodes"`
					} `json:"labels"`
					ClosedByPullRequestsReferences *struct {
						Nodes []*struct {
							Number int32 `json:"number"`
						} `json:"nodes"`
					} `json:"closedByPullRequestsReferences"`
				} `json:"nodes"`
			} `json:"issues"`
		} `json:"repository"`
	}

	if err := c.query(ctx, token, queryRepoView, vars, &result); err != nil {
		return nil, err
	}
	if result.Repository == nil {
		return nil, fmt.Errorf("repository field not found")
	}
	gh := result.Repository

	snap := &Repository{
		Description:    gh.Description,
		HomepageURL:    gh.HomepageURL,
		StargazerCount: gh.StargazerCount,
	}
	if gh.RepositoryTopics != nil && gh.RepositoryTopics.Nodes != nil {
		snap.Topics = make([]string, 0, len(gh.RepositoryTopics.Nodes))
		for _, node := range gh.RepositoryTopics.Nodes {
			if node != nil {
				snap.Topics = append(snap.Topics, node.Topic.Name)
			}
		}
	}
	if gh.Languages != nil && gh.Languages.Nodes != nil {
		snap.Languages = make([]string, 0, len(gh.Languages.Nodes))
		for _, node := range gh.Languages.Nodes {
			if node != nil {
				snap.Languages = append(snap.Languages, node.Name)
			}
		}
	}
	for _, node := range gh.Issues.Nodes {
		if node == nil {
			continue
		}
		issue := IssueNode{
			DatabaseID:  node.DatabaseID,
			Title:       node.Title,
			URL:         node.URL,
			Number:      node.Number,
			PublishedAt: node.PublishedAt,
			Labels:      []string{},
		}
		if node.Labels != nil {
			for _, label := range node.Labels.Nodes {
				if label != nil {
					issue.Labels = append(issue.Labels, label.Name)
				}
			}
		}
		if node.ClosedByPullRequestsReferences != nil {
			for _, pr := range node.ClosedByPullRequestsReferences.Nodes {
				if pr != nil {
					issue.ClosingPRNumber = append(issue.ClosingPRNumber, pr.Number)
				}
			}
		}
		snap.Issues = append(snap.Issues, issue)
	}

	return snap, nil
}

// RateLimitStatus holds the fields of interest from the rate limit endpoint.
type RateLimitStatus struct {
	Rate    json.RawMessage
	GraphQL json.RawMessage
}

// RateLimit fetches the current rate limit status for the token provided.
// The result is informational only.
func (c *Client) RateLimit(ctx context.Context, token string) (*RateLimitStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.restURL+"/rate_limit", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code getting rate limit: %d", resp.StatusCode)
	}

	var body struct {
		Rate      json.RawMessage `json:"rate"`
		Resources struct {
			GraphQL json.RawMessage `json:"graphql"`
		} `json:"resources"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("error decoding rate limit response: %w", err)
	}
	return &RateLimitStatus{Rate: body.Rate, GraphQL: body.Resources.GraphQL}, nil
}

func (c *Client) query(ctx context.Context, token, query string, variables map[string]any, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	body, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("error marshalling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphQLURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error querying graphql api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code querying graphql api: %d - %s", resp.StatusCode, respBody)
	}

	var gqlResp graphQLResponse
	if err := json.Unmarshal(respBody, &gqlResp); err != nil {
		return fmt.Errorf("error deserializing query response: %w", err)
	}
	if len(gqlResp.Errors) > 0 {
		return fmt.Errorf("graphql error: %s", gqlResp.Errors[0].Message)
	}
	if err := json.Unmarshal(gqlResp.Data, result); err != nil {
		return fmt.Errorf("error deserializing query data: %w", err)
	}

	return nil
}

func parseRepoURL(repoURLStr string) (owner, repo string, err error) {
	m := repoURL.FindStringSubmatch(repoURLStr)
	if m == nil {
		return "", "", fmt.Errorf("invalid repository url")
	}
	return m[1], m[2], nil
}
