package models

import "time"

// PlaceholderID marks a change-request as intentionally untracked. It is a
// real identifier value, unlike an identifier that could not be resolved.
const PlaceholderID = 0

const (
	PlatformGitHub = "github"
	PlatformGitLab = "gitlab"
)

type (
	// ChangeRequest is a merged pull request or merge request as reported by
	// a version control platform.
	ChangeRequest struct {
		Platform     string     `json:"platform"`
		ID           string     `json:"id"`
		Number       int        `json:"number"`
		Title        string     `json:"title"`
		Description  string     `json:"description,omitempty"`
		SourceBranch string     `json:"source_branch"`
		TargetBranch string     `json:"target_branch"`
		CreatedAt    time.Time  `json:"created_at"`
		MergedAt     *time.Time `json:"merged_at,omitempty"`
		State        string     `json:"state"`
		Author       string     `json:"author"`
		AuthorName   string     `json:"author_name,omitempty"`
		Repository   string     `json:"repository"`
		WebURL       string     `json:"web_url,omitempty"`
		WorkItem     *WorkItem  `json:"work_item,omitempty"`
	}

	// WorkItem is the tracked ticket a change-request belongs to.
	WorkItem struct {
		ID    int    `json:"id"`
		Title string `json:"title"`
		Team  string `json:"team,omitempty"`
		URL   string `json:"url,omitempty"`
	}
)

// DisplayAuthor prefers the full name and falls back to the handle.
func (c ChangeRequest) DisplayAuthor() string {
	if c.AuthorName != "" {
		return c.AuthorName
	}
	return c.Author
}

func (w *WorkItem) IsPlaceholder() bool {
	return w != nil && w.ID == PlaceholderID
}
