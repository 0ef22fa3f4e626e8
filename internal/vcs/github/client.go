package github

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/go-github/v80/github"
	apperrors "github.com/thomas-vilte/shipsheet/internal/errors"
	"github.com/thomas-vilte/shipsheet/internal/logger"
	"github.com/thomas-vilte/shipsheet/internal/models"
	"github.com/thomas-vilte/shipsheet/internal/vcs"
	"golang.org/x/oauth2"
)

var _ vcs.Source = (*GitHubClient)(nil)

const perPage = 100

type PullRequestsService interface {
	List(ctx context.Context, owner, repo string, opts *github.PullRequestListOptions) ([]*github.PullRequest, *github.Response, error)
	ListPullRequestsWithCommit(ctx context.Context, owner, repo, sha string, opts *github.ListOptions) ([]*github.PullRequest, *github.Response, error)
}

type RepositoriesService interface {
	CompareCommits(ctx context.Context, owner, repo, base, head string, opts *github.ListOptions) (*github.CommitsComparison, *github.Response, error)
}

type UsersService interface {
	Get(ctx context.Context, user string) (*github.User, *github.Response, error)
}

// GitHubClient lists merged pull requests. One client serves every
// configured repository and is safe for concurrent use.
type GitHubClient struct {
	prService    PullRequestsService
	repoService  RepositoriesService
	usersService UsersService

	mu    sync.Mutex
	names map[string]string
}

func NewGitHubClient(token string) *GitHubClient {
	var httpClient *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}

	client := github.NewClient(httpClient)
	return NewGitHubClientWithServices(client.PullRequests, client.Repositories, client.Users)
}

func NewGitHubClientWithServices(prService PullRequestsService, repoService RepositoriesService, usersService UsersService) *GitHubClient {
	return &GitHubClient{
		prService:    prService,
		repoService:  repoService,
		usersService: usersService,
		names:        make(map[string]string),
	}
}

func (ghc *GitHubClient) Platform() string {
	return models.PlatformGitHub
}

// ListMerged walks closed pull requests by last update, newest first, and
// stops once a page reaches updates older than the window start: a pull
// request is never merged after its last update.
func (ghc *GitHubClient) ListMerged(ctx context.Context, repo string, window vcs.Window) ([]models.ChangeRequest, error) {
	owner, name, err := splitRepository(repo)
	if err != nil {
		return nil, err
	}

	opts := &github.PullRequestListOptions{
		State:     "closed",
		Sort:      "updated",
		Direction: "desc",
		ListOptions: github.ListOptions{
			PerPage: perPage,
		},
	}

	var merged []models.ChangeRequest
	for {
		prs, resp, err := ghc.prService.List(ctx, owner, name, opts)
		if err != nil {
			return nil, wrapError(err, resp, repo, "list pull requests")
		}

		exhausted := false
		for _, pr := range prs {
			if !window.Since.IsZero() && pr.GetUpdatedAt().Before(window.Since) {
				exhausted = true
				break
			}
			if pr.MergedAt == nil || !window.Contains(pr.GetMergedAt().Time) {
				continue
			}
			merged = append(merged, ghc.toChangeRequest(ctx, repo, pr))
		}

		if exhausted || resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	logger.Debug(ctx, "github pull requests listed", "repository", repo, "count", len(merged))
	return merged, nil
}

// ListMergedBetween compares base...head and collects the merged pull
// requests associated with each commit of the comparison.
func (ghc *GitHubClient) ListMergedBetween(ctx context.Context, repo, base, head string) ([]models.ChangeRequest, error) {
	owner, name, err := splitRepository(repo)
	if err != nil {
		return nil, err
	}

	var shas []string
	opts := &github.ListOptions{PerPage: perPage}
	for {
		comparison, resp, err := ghc.repoService.CompareCommits(ctx, owner, name, base, head, opts)
		if err != nil {
			return nil, wrapError(err, resp, repo, "compare commits")
		}
		for _, commit := range comparison.Commits {
			shas = append(shas, commit.GetSHA())
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	seen := make(map[int]bool)
	var merged []models.ChangeRequest
	for _, sha := range shas {
		prs, resp, err := ghc.prService.ListPullRequestsWithCommit(ctx, owner, name, sha, &github.ListOptions{PerPage: perPage})
		if err != nil {
			return nil, wrapError(err, resp, repo, "list pull requests for commit")
		}
		for _, pr := range prs {
			if pr.MergedAt == nil || seen[pr.GetNumber()] {
				continue
			}
			seen[pr.GetNumber()] = true
			merged = append(merged, ghc.toChangeRequest(ctx, repo, pr))
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].MergedAt.Before(*merged[j].MergedAt)
	})

	logger.Debug(ctx, "github comparison listed", "repository", repo, "base", base, "head", head,
		"commits", len(shas), "count", len(merged))
	return merged, nil
}

func (ghc *GitHubClient) toChangeRequest(ctx context.Context, repo string, pr *github.PullRequest) models.ChangeRequest {
	login := pr.GetUser().GetLogin()
	cr := models.ChangeRequest{
		Platform:     models.PlatformGitHub,
		ID:           strconv.FormatInt(pr.GetID(), 10),
		Number:       pr.GetNumber(),
		Title:        pr.GetTitle(),
		Description:  pr.GetBody(),
		SourceBranch: pr.GetHead().GetRef(),
		TargetBranch: pr.GetBase().GetRef(),
		CreatedAt:    pr.GetCreatedAt().Time,
		State:        "merged",
		Author:       login,
		AuthorName:   ghc.displayName(ctx, login),
		Repository:   repo,
		WebURL:       pr.GetHTMLURL(),
	}
	if pr.MergedAt != nil {
		t := pr.GetMergedAt().Time
		cr.MergedAt = &t
	}
	return cr
}

// displayName looks up the profile name of login once per client. Failures
// are remembered as "no name" so the login is used instead.
func (ghc *GitHubClient) displayName(ctx context.Context, login string) string {
	if login == "" {
		return ""
	}

	ghc.mu.Lock()
	name, ok := ghc.names[login]
	ghc.mu.Unlock()
	if ok {
		return name
	}

	user, _, err := ghc.usersService.Get(ctx, login)
	if err != nil {
		logger.Debug(ctx, "could not fetch github user", "login", login, "error", err)
	} else {
		name = strings.TrimSpace(user.GetName())
	}

	ghc.mu.Lock()
	ghc.names[login] = name
	ghc.mu.Unlock()
	return name
}

func splitRepository(repo string) (string, string, error) {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", apperrors.ErrInvalidRepository.WithContext("repository", repo)
	}
	return owner, name, nil
}

func wrapError(err error, resp *github.Response, repo, operation string) error {
	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return apperrors.ErrGitHubRateLimit.WithError(err).
			WithContext("repository", repo).
			WithContext("operation", operation)
	}

	if resp != nil && resp.Response != nil {
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return apperrors.ErrGitHubTokenInvalid.WithError(err).WithContext("repository", repo)
		case http.StatusTooManyRequests:
			return apperrors.ErrGitHubRateLimit.WithError(err).
				WithContext("retry_after", resp.Header.Get("Retry-After")).
				WithContext("repository", repo)
		case http.StatusNotFound:
			return apperrors.ErrRepositoryNotFound.WithError(err).
				WithContext("repository", repo).
				WithContext("operation", operation)
		}
	}

	return apperrors.ErrGitHubRequest.WithError(err).
		WithContext("repository", repo).
		WithContext("operation", operation)
}
