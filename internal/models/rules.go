package models

// ExtractionRule pulls a work item identifier out of a branch name or title.
type ExtractionRule struct {
	Name          string `json:"name"`
	Pattern       string `json:"pattern"`
	CaseSensitive bool   `json:"case_sensitive"`
	CaptureGroup  int    `json:"capture_group"`
}

// ResolutionPolicy decides what happens when no rule matches.
type ResolutionPolicy string

const (
	PolicyWarn ResolutionPolicy = "warn"
	PolicyFail ResolutionPolicy = "fail"
)
