package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

// Fetcher wraps the GitHub issues API for one repository.
type Fetcher struct {
	client *github.Client
	owner  string
	repo   string
}

// NewFetcher builds a Fetcher from explicit configuration; the token is
// optional (unauthenticated requests work at a lower rate limit).
func NewFetcher(cfg Config) (*Fetcher, error) {
	owner, repo, err := splitRepo(cfg.Repo)
	if err != nil {
		return nil, fmt.Errorf("invalid repo %q: %w", cfg.Repo, err)
	}

	httpClient := oauth2.NewClient(context.Background(), nil)
	if cfg.GitHubToken != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.GitHubToken})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}

	return &Fetcher{client: github.NewClient(httpClient), owner: owner, repo: repo}, nil
}

// RecentIssues returns up to limit recent issues, newest first, paginating
// until the limit is reached or the listing is exhausted. Pull requests are
// excluded; the issues API reports them alongside true issues.
func (f *Fetcher) RecentIssues(ctx context.Context, limit int) ([]Issue, error) {
	opts := &github.IssueListByRepoOptions{
		State:       "all",
		ListOptions: github.ListOptions{PerPage: 100},
	}
	if limit < 100 {
		opts.ListOptions.PerPage = limit
	}

	var issues []Issue
	pages := 0
	for len(issues) < limit {
		page, resp, err := f.client.Issues.ListByRepo(ctx, f.owner, f.repo, opts)
		if err != nil {
			return nil, fmt.Errorf("listing issues for %s/%s: %w", f.owner, f.repo, err)
		}
		pages++
		for _, raw := range page {
			if raw.IsPullRequest() {
				continue
			}
			issues = append(issues, convertIssue(raw))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.ListOptions.Page = resp.NextPage
	}

	if len(issues) > limit {
		issues = issues[:limit]
	}
	log.Printf("github fetch done repo=%s/%s issues=%d pages=%d", f.owner, f.repo, len(issues), pages)
	return issues, nil
}

// LabeledIssues returns issues carrying the given label created at or after
// cutoff. The Since API parameter filters on update time, so the creation
// cutoff is applied client-side.
func (f *Fetcher) LabeledIssues(ctx context.Context, label string, cutoff time.Time) ([]Issue, error) {
	opts := &github.IssueListByRepoOptions{
		State:       "all",
		Labels:      []string{label},
		Since:       cutoff,
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var issues []Issue
	for {
		page, resp, err := f.client.Issues.ListByRepo(ctx, f.owner, f.repo, opts)
		if err != nil {
			return nil, fmt.Errorf("listing %q issues for %s/%s: %w", label, f.owner, f.repo, err)
		}
		for _, raw := range page {
			if raw.IsPullRequest() {
				continue
			}
			issue := convertIssue(raw)
			if issue.CreatedAt.Before(cutoff) {
				continue
			}
			issues = append(issues, issue)
		}
		if resp.NextPage == 0 {
			break
		}
		opts.ListOptions.Page = resp.NextPage
	}

	log.Printf("github fetch done repo=%s/%s label=%q issues=%d cutoff=%s",
		f.owner, f.repo, label, len(issues), cutoff.Format("2006-01-02"))
	return issues, nil
}

// Comments returns the discussion thread for one issue, oldest first.
func (f *Fetcher) Comments(ctx context.Context, number int) ([]string, error) {
	opts := &github.IssueListCommentsOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var comments []string
	for {
		page, resp, err := f.client.Issues.ListComments(ctx, f.owner, f.repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("listing comments for #%d: %w", number, err)
		}
		for _, c := range page {
			comments = append(comments, c.GetBody())
		}
		if resp.NextPage == 0 {
			break
		}
		opts.ListOptions.Page = resp.NextPage
	}
	return comments, nil
}

func convertIssue(raw *github.Issue) Issue {
	var labels []string
	for _, l := range raw.Labels {
		labels = append(labels, l.GetName())
	}
	return Issue{
		Number:    raw.GetNumber(),
		Title:     raw.GetTitle(),
		Body:      raw.GetBody(),
		State:     raw.GetState(),
		Labels:    labels,
		Author:    raw.GetUser().GetLogin(),
		URL:       raw.GetHTMLURL(),
		CreatedAt: raw.GetCreatedAt().Time,
	}
}

// --- File-backed variants ---

// rawFileIssue mirrors the GitHub REST issue shape found in a pre-fetched
// issues.json.
type rawFileIssue struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	Body    string `json:"body"`
	State   string `json:"state"`
	HTMLURL string `json:"html_url"`
	Labels  []struct {
		Name string `json:"name"`
	} `json:"labels"`
	User struct {
		Login string `json:"login"`
	} `json:"user"`
	PullRequest *struct{} `json:"pull_request,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// LoadIssuesFile reads operator-supplied issues from a JSON file in the
// GitHub API shape, filtering out pull requests. A malformed file is a hard
// error; the caller aborts the run.
func LoadIssuesFile(path string) ([]Issue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var raw []rawFileIssue
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	var issues []Issue
	for _, r := range raw {
		if r.PullRequest != nil {
			continue
		}
		var labels []string
		for _, l := range r.Labels {
			labels = append(labels, l.Name)
		}
		issues = append(issues, Issue{
			Number:    r.Number,
			Title:     r.Title,
			Body:      r.Body,
			State:     r.State,
			Labels:    labels,
			Author:    r.User.Login,
			URL:       r.HTMLURL,
			CreatedAt: r.CreatedAt,
		})
	}
	return issues, nil
}

type rawFileComment struct {
	Body string `json:"body"`
}

// LoadCommentsDir reads pre-fetched comments for one issue from
// <dir>/<number>.json. A missing file means no discussion, not an error.
func LoadCommentsDir(dir string, number int) ([]string, error) {
	path := filepath.Join(dir, fmt.Sprintf("%d.json", number))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var raw []rawFileComment
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	var comments []string
	for _, c := range raw {
		comments = append(comments, c.Body)
	}
	return comments, nil
}
