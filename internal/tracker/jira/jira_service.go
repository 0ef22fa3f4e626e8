package jira

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	apperrors "github.com/thomas-vilte/shipsheet/internal/errors"
	"github.com/thomas-vilte/shipsheet/internal/httpclient"
	"github.com/thomas-vilte/shipsheet/internal/logger"
	"github.com/thomas-vilte/shipsheet/internal/models"
)

// Options configures the Jira work-item source.
type Options struct {
	BaseURL    string
	Email      string
	APIToken   string
	ProjectKey string
	// TeamField is the issue field holding the owning team, usually a
	// customfield_NNNNN id. Empty leaves Team blank.
	TeamField string
}

// JiraService resolves numeric work-item ids to Jira issues of one project.
type JiraService struct {
	opts   Options
	client httpclient.HTTPClient
}

func NewJiraService(opts Options, client httpclient.HTTPClient) *JiraService {
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &JiraService{
		opts:   opts,
		client: client,
	}
}

// IssueKey turns a numeric id into the project issue key, e.g. ABC-123.
func (s *JiraService) IssueKey(id int) string {
	return fmt.Sprintf("%s-%d", s.opts.ProjectKey, id)
}

// BrowseURL is the human facing page of an issue.
func (s *JiraService) BrowseURL(key string) string {
	return fmt.Sprintf("%s/browse/%s", s.opts.BaseURL, key)
}

// GetWorkItem fetches the issue for id. A missing issue returns (nil, nil).
func (s *JiraService) GetWorkItem(ctx context.Context, id int) (*models.WorkItem, error) {
	key := s.IssueKey(id)
	log := logger.FromContext(ctx)

	fields := "summary"
	if s.opts.TeamField != "" {
		fields += "," + s.opts.TeamField
	}
	endpoint := fmt.Sprintf("%s/rest/api/3/issue/%s?fields=%s",
		s.opts.BaseURL, url.PathEscape(key), url.QueryEscape(fields))

	resp, err := s.makeRequest(ctx, http.MethodGet, endpoint)
	if err != nil {
		return nil, apperrors.ErrTrackerRequest.WithError(err).WithContext("issue", key)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Debug("error closing response body", "error", err)
		}
	}()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		log.Debug("jira issue not found", "issue", key)
		return nil, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, apperrors.ErrTrackerUnauthorized.WithContext("issue", key)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, apperrors.ErrTrackerRequest.
			WithContext("issue", key).
			WithContext("detail", fmt.Sprintf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(body))))
	}

	var result struct {
		Key    string                     `json:"key"`
		Fields map[string]json.RawMessage `json:"fields"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, apperrors.ErrTrackerRequest.WithError(fmt.Errorf("error decoding response: %w", err)).
			WithContext("issue", key)
	}
	if result.Key != "" {
		key = result.Key
	}

	item := &models.WorkItem{
		ID:  id,
		URL: s.BrowseURL(key),
	}
	if raw, ok := result.Fields["summary"]; ok {
		if err := json.Unmarshal(raw, &item.Title); err != nil {
			return nil, apperrors.ErrTrackerRequest.WithError(fmt.Errorf("error unmarshaling summary: %w", err)).
				WithContext("issue", key)
		}
	}
	if s.opts.TeamField != "" {
		item.Team = fieldText(result.Fields[s.opts.TeamField])
	}

	log.Debug("jira issue fetched", "issue", key, "team", item.Team)
	return item, nil
}

// fieldText flattens the shapes a team field takes: plain text, a select
// option ({"value"}), a team or user object ({"name"} / {"displayName"}) or a
// list of those, joined by ", ".
func fieldText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return strings.TrimSpace(text)
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		var parts []string
		for _, entry := range list {
			if t := fieldText(entry); t != "" {
				parts = append(parts, t)
			}
		}
		return strings.Join(parts, ", ")
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	for _, k := range []string{"value", "name", "displayName", "title"} {
		if v, ok := obj[k]; ok {
			if t := fieldText(v); t != "" {
				return t
			}
		}
	}
	return ""
}

func (s *JiraService) makeRequest(ctx context.Context, method, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Authorization", getBasicAuth(s.opts.Email, s.opts.APIToken))
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}

	return resp, nil
}

func getBasicAuth(email, token string) string {
	auth := email + ":" + token
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(auth))
}
