// Package contextdata retrieves issue and pull-request records used as
// context input for workspace documentation. The orchestration core treats
// it as an opaque fetch: a list of identifiers in, structured records out.
package contextdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Record is one issue or pull request with its discussion.
type Record struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Labels    []string  `json:"labels"`
	Assignees []string  `json:"assignees"`
	Comments  []Comment `json:"comments"`
}

// Comment is one discussion entry on a record.
type Comment struct {
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Fetcher retrieves records for issue numbers in an org/repo.
type Fetcher interface {
	FetchIssues(ctx context.Context, org, repo string, numbers []int) ([]Record, error)
}

// GitHubFetcher fetches records from the GitHub REST API.
type GitHubFetcher struct {
	// BaseURL defaults to the public API endpoint.
	BaseURL string
	// Token is optional; unauthenticated requests work for public repos.
	Token  string
	Client *http.Client
}

const defaultBaseURL = "https://api.github.com"

func (g *GitHubFetcher) client() *http.Client {
	if g.Client != nil {
		return g.Client
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func (g *GitHubFetcher) base() string {
	if g.BaseURL != "" {
		return g.BaseURL
	}
	return defaultBaseURL
}

// FetchIssues retrieves each numbered issue and its comments.
func (g *GitHubFetcher) FetchIssues(ctx context.Context, org, repo string, numbers []int) ([]Record, error) {
	records := make([]Record, 0, len(numbers))
	for _, n := range numbers {
		rec, err := g.fetchOne(ctx, org, repo, n)
		if err != nil {
			return nil, fmt.Errorf("fetch issue #%d: %w", n, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

type ghIssue struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Labels    []struct {
		Name string `json:"name"`
	} `json:"labels"`
	Assignees []struct {
		Login string `json:"login"`
	} `json:"assignees"`
}

type ghComment struct {
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	User      struct {
		Login string `json:"login"`
	} `json:"user"`
}

func (g *GitHubFetcher) fetchOne(ctx context.Context, org, repo string, number int) (Record, error) {
	var issue ghIssue
	url := fmt.Sprintf("%s/repos/%s/%s/issues/%d", g.base(), org, repo, number)
	if err := g.get(ctx, url, &issue); err != nil {
		return Record{}, err
	}

	var comments []ghComment
	if err := g.get(ctx, url+"/comments", &comments); err != nil {
		return Record{}, err
	}

	rec := Record{
		ID:        issue.Number,
		Title:     issue.Title,
		Body:      issue.Body,
		State:     issue.State,
		CreatedAt: issue.CreatedAt,
		UpdatedAt: issue.UpdatedAt,
	}
	for _, l := range issue.Labels {
		rec.Labels = append(rec.Labels, l.Name)
	}
	for _, a := range issue.Assignees {
		rec.Assignees = append(rec.Assignees, a.Login)
	}
	for _, c := range comments {
		rec.Comments = append(rec.Comments, Comment{
			Author:    c.User.Login,
			Body:      c.Body,
			CreatedAt: c.CreatedAt,
		})
	}
	return rec, nil
}

func (g *GitHubFetcher) get(ctx context.Context, url string, into any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if g.Token != "" {
		req.Header.Set("Authorization", "Bearer "+g.Token)
	}

	resp, err := g.client().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %s", url, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(into)
}
