package gitlab

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/thomas-vilte/shipsheet/internal/errors"
	"github.com/thomas-vilte/shipsheet/internal/httpclient"
	"github.com/thomas-vilte/shipsheet/internal/logger"
	"github.com/thomas-vilte/shipsheet/internal/models"
	"github.com/thomas-vilte/shipsheet/internal/regex"
	"github.com/thomas-vilte/shipsheet/internal/vcs"
)

var _ vcs.Source = (*GitLabClient)(nil)

const (
	DefaultBaseURL = "https://gitlab.com"
	perPage        = 100
)

type (
	mergeRequest struct {
		ID           int64      `json:"id"`
		IID          int        `json:"iid"`
		Title        string     `json:"title"`
		Description  string     `json:"description"`
		SourceBranch string     `json:"source_branch"`
		TargetBranch string     `json:"target_branch"`
		State        string     `json:"state"`
		CreatedAt    time.Time  `json:"created_at"`
		UpdatedAt    time.Time  `json:"updated_at"`
		MergedAt     *time.Time `json:"merged_at"`
		WebURL       string     `json:"web_url"`
		Author       struct {
			Username string `json:"username"`
			Name     string `json:"name"`
		} `json:"author"`
	}

	comparison struct {
		Commits []struct {
			ID string `json:"id"`
		} `json:"commits"`
	}
)

// GitLabClient lists merged merge requests through the REST API v4.
// Repositories are project paths, nested groups included.
type GitLabClient struct {
	baseURL string
	token   string
	client  httpclient.HTTPClient
}

func NewGitLabClient(baseURL, token string, client httpclient.HTTPClient) *GitLabClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &GitLabClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  client,
	}
}

func (glc *GitLabClient) Platform() string {
	return models.PlatformGitLab
}

func (glc *GitLabClient) ListMerged(ctx context.Context, repo string, window vcs.Window) ([]models.ChangeRequest, error) {
	query := url.Values{}
	query.Set("state", "merged")
	query.Set("order_by", "updated_at")
	query.Set("sort", "desc")
	query.Set("per_page", strconv.Itoa(perPage))
	if !window.Since.IsZero() {
		query.Set("updated_after", window.Since.UTC().Format(time.RFC3339))
	}

	query.Set("page", "1")

	var merged []models.ChangeRequest
	endpoint := glc.projectURL(repo, "merge_requests") + "?" + query.Encode()
	for endpoint != "" {
		var mrs []mergeRequest
		next, err := glc.get(ctx, repo, endpoint, &mrs)
		if err != nil {
			return nil, err
		}
		for _, mr := range mrs {
			if mr.MergedAt == nil || !window.Contains(*mr.MergedAt) {
				continue
			}
			merged = append(merged, toChangeRequest(repo, mr))
		}
		endpoint = next
	}

	logger.Debug(ctx, "gitlab merge requests listed", "repository", repo, "count", len(merged))
	return merged, nil
}

func (glc *GitLabClient) ListMergedBetween(ctx context.Context, repo, base, head string) ([]models.ChangeRequest, error) {
	query := url.Values{}
	query.Set("from", base)
	query.Set("to", head)

	var cmp comparison
	if _, err := glc.get(ctx, repo, glc.projectURL(repo, "repository/compare")+"?"+query.Encode(), &cmp); err != nil {
		return nil, err
	}

	seen := make(map[int]bool)
	var merged []models.ChangeRequest
	for _, commit := range cmp.Commits {
		var mrs []mergeRequest
		endpoint := glc.projectURL(repo, "repository/commits/"+url.PathEscape(commit.ID)+"/merge_requests")
		if _, err := glc.get(ctx, repo, endpoint, &mrs); err != nil {
			return nil, err
		}
		for _, mr := range mrs {
			if mr.MergedAt == nil || seen[mr.IID] {
				continue
			}
			seen[mr.IID] = true
			merged = append(merged, toChangeRequest(repo, mr))
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].MergedAt.Before(*merged[j].MergedAt)
	})

	logger.Debug(ctx, "gitlab comparison listed", "repository", repo, "base", base, "head", head,
		"commits", len(cmp.Commits), "count", len(merged))
	return merged, nil
}

func (glc *GitLabClient) projectURL(repo, path string) string {
	return fmt.Sprintf("%s/api/v4/projects/%s/%s", glc.baseURL, url.PathEscape(repo), path)
}

// get decodes the JSON body into out and returns the URL of the next page,
// empty on the last one.
func (glc *GitLabClient) get(ctx context.Context, repo, endpoint string, out interface{}) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", apperrors.ErrGitLabRequest.WithError(err).WithContext("repository", repo)
	}
	req.Header.Set("Accept", "application/json")
	if glc.token != "" {
		req.Header.Set("PRIVATE-TOKEN", glc.token)
	}

	resp, err := glc.client.Do(req)
	if err != nil {
		return "", apperrors.ErrGitLabRequest.WithError(err).WithContext("repository", repo)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Debug(ctx, "error closing response body", "error", err)
		}
	}()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return "", apperrors.ErrRepositoryNotFound.WithContext("repository", repo)
	case http.StatusUnauthorized:
		return "", apperrors.ErrGitLabRequest.
			WithContext("repository", repo).
			WithContext("detail", "token rejected").
			WithSuggestion("Check GITLAB_TOKEN has the read_api scope")
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", apperrors.ErrGitLabRequest.
			WithContext("repository", repo).
			WithContext("detail", fmt.Sprintf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(body))))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return "", apperrors.ErrGitLabRequest.WithError(fmt.Errorf("error decoding response: %w", err)).
			WithContext("repository", repo)
	}
	return nextPage(endpoint, resp.Header), nil
}

// nextPage prefers the Link header, used by keyset pagination, over
// X-Next-Page.
func nextPage(endpoint string, header http.Header) string {
	if m := regex.LinkNext.FindStringSubmatch(header.Get("Link")); m != nil {
		return m[1]
	}
	page := strings.TrimSpace(header.Get("X-Next-Page"))
	if page == "" {
		return ""
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return ""
	}
	q := u.Query()
	q.Set("page", page)
	u.RawQuery = q.Encode()
	return u.String()
}

func toChangeRequest(repo string, mr mergeRequest) models.ChangeRequest {
	cr := models.ChangeRequest{
		Platform:     models.PlatformGitLab,
		ID:           strconv.FormatInt(mr.ID, 10),
		Number:       mr.IID,
		Title:        mr.Title,
		Description:  mr.Description,
		SourceBranch: mr.SourceBranch,
		TargetBranch: mr.TargetBranch,
		CreatedAt:    mr.CreatedAt,
		State:        mr.State,
		Author:       mr.Author.Username,
		AuthorName:   mr.Author.Name,
		Repository:   repo,
		WebURL:       mr.WebURL,
	}
	if mr.MergedAt != nil {
		t := *mr.MergedAt
		cr.MergedAt = &t
	}
	return cr
}
