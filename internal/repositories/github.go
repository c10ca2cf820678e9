package repositories

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"indiana/internal/config"
	"indiana/internal/models"
)

const (
	// GitHubAPIVersion is sent with every request
	GitHubAPIVersion = "2022-11-28"

	perPage = 100
)

// GitHubRepository handles GitHub REST API interactions for one repository
type GitHubRepository struct {
	baseURL string
	owner   string
	repo    string
	token   string
	client  *http.Client
}

// NewGitHubRepository creates a new GitHub repository whose requests pass
// through the rate-limit guard
func NewGitHubRepository(cfg *config.Config) *GitHubRepository {
	return &GitHubRepository{
		baseURL: strings.TrimRight(cfg.GitHubURL, "/"),
		owner:   cfg.Organization,
		repo:    cfg.Project,
		token:   cfg.Token,
		client: &http.Client{
			// covers both attempts and the wait between them
			Timeout:   2*cfg.HTTPTimeout() + cfg.RateLimitMaxWait(),
			Transport: NewRateLimitTransport(http.DefaultTransport, cfg.RateLimitMaxWait()),
		},
	}
}

func (r *GitHubRepository) repoURL(path string) string {
	return fmt.Sprintf("%s/repos/%s/%s/%s", r.baseURL, url.PathEscape(r.owner), url.PathEscape(r.repo), path)
}

func (r *GitHubRepository) headers(h http.Header) {
	h.Set("Accept", "application/vnd.github+json")
	h.Set("X-GitHub-Api-Version", GitHubAPIVersion)
	h.Set("Authorization", "Bearer "+r.token)
}

// listAll fetches every page of a list endpoint
func listAll[T any](ctx context.Context, r *GitHubRepository, path, query string) ([]T, error) {
	var all []T
	for page := 1; ; page++ {
		endpoint := fmt.Sprintf("%s?per_page=%d&page=%d", r.repoURL(path), perPage, page)
		if query != "" {
			endpoint += "&" + query
		}

		var batch []T
		err := doJSON(ctx, r.client, request{
			method: http.MethodGet,
			url:    endpoint,
			expect: http.StatusOK,
			header: r.headers,
		}, &batch)
		if err != nil {
			return nil, err
		}

		all = append(all, batch...)
		if len(batch) < perPage {
			return all, nil
		}
	}
}

// ListLabels returns every label of the repository
func (r *GitHubRepository) ListLabels(ctx context.Context) ([]models.Label, error) {
	return listAll[models.Label](ctx, r, "labels", "")
}

// CreateLabel creates a label
func (r *GitHubRepository) CreateLabel(ctx context.Context, label models.Label) (*models.Label, error) {
	var created models.Label
	err := doJSON(ctx, r.client, request{
		method: http.MethodPost,
		url:    r.repoURL("labels"),
		body:   label,
		expect: http.StatusCreated,
		header: r.headers,
	}, &created)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// ListMilestones returns every milestone of the repository, open or closed
func (r *GitHubRepository) ListMilestones(ctx context.Context) ([]models.Milestone, error) {
	return listAll[models.Milestone](ctx, r, "milestones", "state=all")
}

// CreateMilestone creates a milestone
func (r *GitHubRepository) CreateMilestone(ctx context.Context, milestone models.Milestone) (*models.Milestone, error) {
	var created models.Milestone
	err := doJSON(ctx, r.client, request{
		method: http.MethodPost,
		url:    r.repoURL("milestones"),
		body:   milestone,
		expect: http.StatusCreated,
		header: r.headers,
	}, &created)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// CreateIssue creates an issue
func (r *GitHubRepository) CreateIssue(ctx context.Context, issue models.IssueRequest) (*models.Issue, error) {
	var created models.Issue
	err := doJSON(ctx, r.client, request{
		method: http.MethodPost,
		url:    r.repoURL("issues"),
		body:   issue,
		expect: http.StatusCreated,
		header: r.headers,
	}, &created)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// CreateComment adds a comment to an issue
func (r *GitHubRepository) CreateComment(ctx context.Context, number int, body string) (*models.Comment, error) {
	var created models.Comment
	err := doJSON(ctx, r.client, request{
		method: http.MethodPost,
		url:    r.repoURL(fmt.Sprintf("issues/%d/comments", number)),
		body:   models.Comment{Body: body},
		expect: http.StatusCreated,
		header: r.headers,
	}, &created)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// ListIssues returns every issue of the repository, pull requests excluded
func (r *GitHubRepository) ListIssues(ctx context.Context) ([]models.Issue, error) {
	all, err := listAll[models.Issue](ctx, r, "issues", "state=all")
	if err != nil {
		return nil, err
	}

	issues := all[:0]
	for _, issue := range all {
		if issue.PullRequest == nil {
			issues = append(issues, issue)
		}
	}
	return issues, nil
}
