// Package repos fetches repository metadata through the GitHub CLI. Every
// listing degrades to an empty slice on failure so the dashboard renders
// with whatever is reachable.
package repos

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/go-logr/logr"
)

const commandTimeout = 30 * time.Second

// Repo is one repository summary.
type Repo struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	URL             string `json:"url"`
	StargazerCount  int    `json:"stargazerCount"`
	ForkCount       int    `json:"forkCount"`
	PrimaryLanguage string `json:"primaryLanguage"`
	PushedAt        string `json:"pushedAt"`
	IsPrivate       bool   `json:"isPrivate"`
}

// Issue is one open or closed issue summary.
type Issue struct {
	Number    int      `json:"number"`
	Title     string   `json:"title"`
	State     string   `json:"state"`
	Labels    []string `json:"labels"`
	Author    string   `json:"author"`
	CreatedAt string   `json:"createdAt"`
	URL       string   `json:"url"`
}

// PullRequest is one pull request summary.
type PullRequest struct {
	Number         int    `json:"number"`
	Title          string `json:"title"`
	State          string `json:"state"`
	Author         string `json:"author"`
	ReviewDecision string `json:"reviewDecision"`
	CreatedAt      string `json:"createdAt"`
	URL            string `json:"url"`
}

// Commit is one commit summary.
type Commit struct {
	Message string `json:"message"`
	Author  string `json:"author"`
	Date    string `json:"date"`
	SHA     string `json:"sha"`
}

// Contributor is one contributor summary.
type Contributor struct {
	Login         string `json:"login"`
	AvatarURL     string `json:"avatarUrl"`
	Contributions int    `json:"contributions"`
}

// Client shells out to the gh binary.
type Client struct {
	binary string
	log    logr.Logger
}

// NewClient creates a repository metadata client.
func NewClient(binary string, log logr.Logger) *Client {
	if binary == "" {
		binary = "gh"
	}
	return &Client{binary: binary, log: log.WithName("repos")}
}

func (c *Client) run(ctx context.Context, args ...string) ([]byte, error) {
	cmdCtx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	out, err := exec.CommandContext(cmdCtx, c.binary, args...).Output()
	if err != nil {
		return nil, fmt.Errorf("gh %s failed: %w", strings.Join(args, " "), err)
	}
	return out, nil
}

// ListRepos lists the authenticated user's repositories.
func (c *Client) ListRepos(ctx context.Context) []Repo {
	out, err := c.run(ctx, "repo", "list",
		"--json", "name,description,url,stargazerCount,forkCount,primaryLanguage,pushedAt,isPrivate",
		"--limit", "100")
	if err != nil {
		c.log.Error(err, "failed to list repositories")
		return []Repo{}
	}

	// gh returns primaryLanguage as an object {"name": "Go"}
	var raw []struct {
		Repo
		PrimaryLanguage *struct {
			Name string `json:"name"`
		} `json:"primaryLanguage"`
	}
	if err := json.Unmarshal(out, &raw); err != nil {
		c.log.Error(err, "failed to decode repository list")
		return []Repo{}
	}

	repos := make([]Repo, 0, len(raw))
	for _, r := range raw {
		repo := r.Repo
		if r.PrimaryLanguage != nil {
			repo.PrimaryLanguage = r.PrimaryLanguage.Name
		}
		repos = append(repos, repo)
	}
	return repos
}

// Issues lists recent issues of a repository.
func (c *Client) Issues(ctx context.Context, owner, repo string, limit int) []Issue {
	out, err := c.run(ctx, "issue", "list",
		"--repo", owner+"/"+repo,
		"--json", "number,title,state,labels,author,createdAt,url",
		"--limit", fmt.Sprint(limit))
	if err != nil {
		c.log.Error(err, "failed to list issues", "repo", owner+"/"+repo)
		return []Issue{}
	}

	var raw []struct {
		Issue
		Author *struct {
			Login string `json:"login"`
		} `json:"author"`
		Labels []struct {
			Name string `json:"name"`
		} `json:"labels"`
	}
	if err := json.Unmarshal(out, &raw); err != nil {
		c.log.Error(err, "failed to decode issue list")
		return []Issue{}
	}

	issues := make([]Issue, 0, len(raw))
	for _, r := range raw {
		issue := r.Issue
		issue.Author = "unknown"
		if r.Author != nil {
			issue.Author = r.Author.Login
		}
		issue.Labels = make([]string, 0, len(r.Labels))
		for _, l := range r.Labels {
			issue.Labels = append(issue.Labels, l.Name)
		}
		issues = append(issues, issue)
	}
	return issues
}

// PullRequests lists recent pull requests of a repository.
func (c *Client) PullRequests(ctx context.Context, owner, repo string, limit int) []PullRequest {
	out, err := c.run(ctx, "pr", "list",
		"--repo", owner+"/"+repo,
		"--json", "number,title,state,author,reviewDecision,createdAt,url",
		"--limit", fmt.Sprint(limit))
	if err != nil {
		c.log.Error(err, "failed to list pull requests", "repo", owner+"/"+repo)
		return []PullRequest{}
	}

	var raw []struct {
		PullRequest
		Author *struct {
			Login string `json:"login"`
		} `json:"author"`
	}
	if err := json.Unmarshal(out, &raw); err != nil {
		c.log.Error(err, "failed to decode pull request list")
		return []PullRequest{}
	}

	prs := make([]PullRequest, 0, len(raw))
	for _, r := range raw {
		pr := r.PullRequest
		pr.Author = "unknown"
		if r.Author != nil {
			pr.Author = r.Author.Login
		}
		prs = append(prs, pr)
	}
	return prs
}

// Commits lists recent commits of a repository via the REST API.
func (c *Client) Commits(ctx context.Context, owner, repo string, limit int) []Commit {
	jq := fmt.Sprintf(
		".[0:%d] | .[] | {message: .commit.message, author: .commit.author.name, date: .commit.author.date, sha: .sha}",
		limit)
	out, err := c.run(ctx, "api", fmt.Sprintf("repos/%s/%s/commits", owner, repo), "--jq", jq)
	if err != nil {
		c.log.Error(err, "failed to list commits", "repo", owner+"/"+repo)
		return []Commit{}
	}

	// --jq emits one JSON object per line
	commits := []Commit{}
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line == "" {
			continue
		}
		var commit Commit
		if err := json.Unmarshal([]byte(line), &commit); err != nil {
			c.log.Error(err, "failed to decode commit line")
			continue
		}
		commits = append(commits, commit)
	}
	return commits
}

// Contributors lists a repository's top contributors via the REST API.
func (c *Client) Contributors(ctx context.Context, owner, repo string, limit int) []Contributor {
	jq := fmt.Sprintf(
		".[0:%d] | .[] | {login: .login, avatarUrl: .avatar_url, contributions: .contributions}",
		limit)
	out, err := c.run(ctx, "api", fmt.Sprintf("repos/%s/%s/contributors", owner, repo), "--jq", jq)
	if err != nil {
		c.log.Error(err, "failed to list contributors", "repo", owner+"/"+repo)
		return []Contributor{}
	}

	contributors := []Contributor{}
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line == "" {
			continue
		}
		var contributor Contributor
		if err := json.Unmarshal([]byte(line), &contributor); err != nil {
			c.log.Error(err, "failed to decode contributor line")
			continue
		}
		contributors = append(contributors, contributor)
	}
	return contributors
}

var repoURLRe = regexp.MustCompile(`github\.com[/:]([^/]+)/([^/]+?)(\.git)?$`)

// ParseRepoURL extracts owner and repo from an HTTPS or SSH GitHub URL.
func ParseRepoURL(url string) (owner, repo string, ok bool) {
	m := repoURLRe.FindStringSubmatch(url)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}
