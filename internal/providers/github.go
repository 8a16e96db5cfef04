package providers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/nippogen/internal/models"
)

type GitHubCommit struct {
	SHA         string    `json:"sha"`
	Message     string    `json:"message"`
	AuthorName  string    `json:"author_name"`
	AuthorEmail string    `json:"author_email"`
	CommittedAt time.Time `json:"committed_at"`
	URL         string    `json:"url"`
}

type GitHubPullRequest struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	State     string    `json:"state"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
	URL       string    `json:"url"`
}

type GitHubActivity struct {
	Repository   string              `json:"repository"`
	Date         string              `json:"date"`
	Commits      []GitHubCommit      `json:"commits"`
	PullRequests []GitHubPullRequest `json:"pull_requests"`
}

func (a *GitHubActivity) Provider() models.Provider { return models.ProviderGitHub }

func (a *GitHubActivity) Empty() bool {
	return len(a.Commits) == 0 && len(a.PullRequests) == 0
}

type GitHubGateway struct {
	client  *http.Client
	baseURL string
}

// NewGitHubGateway uses baseURL for credentials that do not set their own base_url.
func NewGitHubGateway(client *http.Client, baseURL string) *GitHubGateway {
	return &GitHubGateway{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

func (g *GitHubGateway) Provider() models.Provider { return models.ProviderGitHub }

func (g *GitHubGateway) config(cred *models.Credential) (models.GitHubConfig, error) {
	var cfg models.GitHubConfig
	if err := cred.DecodeConfig(&cfg); err != nil {
		return cfg, err
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = g.baseURL
	}
	cfg = cfg.WithDefaults()
	if cfg.Owner == "" || cfg.Repo == "" {
		return cfg, fmt.Errorf("%w: github owner and repo are required", ErrBadConfig)
	}
	return cfg, nil
}

func (g *GitHubGateway) TestConnection(ctx context.Context, cred *models.Credential) bool {
	cfg, err := g.config(cred)
	if err != nil {
		slog.Warn("github connection test failed", "provider", models.ProviderGitHub, "user_id", cred.UserID.String(), "error", err)
		return false
	}

	req, err := g.request(ctx, cred, fmt.Sprintf("%s/repos/%s/%s", cfg.BaseURL, url.PathEscape(cfg.Owner), url.PathEscape(cfg.Repo)))
	if err != nil {
		return false
	}
	if err := doJSON(g.client, req, models.ProviderGitHub, nil); err != nil {
		slog.Warn("github connection test failed", "provider", models.ProviderGitHub, "user_id", cred.UserID.String(), "error", err)
		return false
	}
	return true
}

type githubCommitResponse struct {
	SHA     string `json:"sha"`
	HTMLURL string `json:"html_url"`
	Commit  struct {
		Message string `json:"message"`
		Author  struct {
			Name  string    `json:"name"`
			Email string    `json:"email"`
			Date  time.Time `json:"date"`
		} `json:"author"`
	} `json:"commit"`
}

type githubSearchResponse struct {
	TotalCount int `json:"total_count"`
	Items      []struct {
		Number    int       `json:"number"`
		Title     string    `json:"title"`
		State     string    `json:"state"`
		HTMLURL   string    `json:"html_url"`
		CreatedAt time.Time `json:"created_at"`
		User      struct {
			Login string `json:"login"`
		} `json:"user"`
	} `json:"items"`
}

func (g *GitHubGateway) FetchActivity(ctx context.Context, cred *models.Credential, date time.Time) (Activity, error) {
	cfg, err := g.config(cred)
	if err != nil {
		return nil, err
	}

	day := models.NormalizeDate(date)
	activity := EmptyActivity(models.ProviderGitHub, day).(*GitHubActivity)
	activity.Repository = cfg.Owner + "/" + cfg.Repo

	q := url.Values{}
	q.Set("author", cfg.Owner)
	q.Set("since", day.Format(time.RFC3339))
	q.Set("until", day.Add(24*time.Hour).Format(time.RFC3339))
	q.Set("per_page", "100")
	commitsURL := fmt.Sprintf("%s/repos/%s/%s/commits?%s", cfg.BaseURL, url.PathEscape(cfg.Owner), url.PathEscape(cfg.Repo), q.Encode())

	req, err := g.request(ctx, cred, commitsURL)
	if err != nil {
		return nil, err
	}
	var commits []githubCommitResponse
	if err := doJSON(g.client, req, models.ProviderGitHub, &commits); err != nil {
		return nil, err
	}
	for _, c := range commits {
		activity.Commits = append(activity.Commits, GitHubCommit{
			SHA:         c.SHA,
			Message:     c.Commit.Message,
			AuthorName:  c.Commit.Author.Name,
			AuthorEmail: c.Commit.Author.Email,
			CommittedAt: c.Commit.Author.Date,
			URL:         c.HTMLURL,
		})
	}

	sq := url.Values{}
	sq.Set("q", fmt.Sprintf("repo:%s/%s type:pr author:%s created:%s", cfg.Owner, cfg.Repo, cfg.Owner, day.Format(models.DateLayout)))
	sq.Set("per_page", "100")
	req, err = g.request(ctx, cred, cfg.BaseURL+"/search/issues?"+sq.Encode())
	if err != nil {
		return nil, err
	}
	var search githubSearchResponse
	if err := doJSON(g.client, req, models.ProviderGitHub, &search); err != nil {
		return nil, err
	}
	for _, it := range search.Items {
		activity.PullRequests = append(activity.PullRequests, GitHubPullRequest{
			Number:    it.Number,
			Title:     it.Title,
			State:     it.State,
			Author:    it.User.Login,
			CreatedAt: it.CreatedAt,
			URL:       it.HTMLURL,
		})
	}

	return activity, nil
}

func (g *GitHubGateway) request(ctx context.Context, cred *models.Credential, target string) (*http.Request, error) {
	req, err := newJSONRequest(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+cred.Secret)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	return req, nil
}
