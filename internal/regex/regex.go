package regex

import "regexp"

// Branch patterns used as default extraction rules. Each captures the work
// item number in group 1.
const (
	BranchFeatureFolder = `^(?:feature|feat|bugfix|fix|hotfix|chore)/(\d+)(?:[-_/]|$)`
	BranchIssueSharp    = `#(\d+)`
	BranchIssueName     = `issue[/-](\d+)`
	BranchIssueStart    = `^(\d+)-`
	BranchIssueFolder   = `/(\d+)-`
	BranchIssueID       = `\bID[-_ ]?(\d+)\b`
)

var (
	// Git and Repo patterns
	SSHRepo   = regexp.MustCompile(`^git@([^:]+):(.+?)(?:\.git)?$`)
	HTTPSRepo = regexp.MustCompile(`^https?://([^/]+)/(.+?)(?:\.git)?/?$`)
	RepoPath  = regexp.MustCompile(`^[\w.-]+(?:/[\w.-]+)+$`)

	// Spreadsheet cells
	HyperlinkFormula = regexp.MustCompile(`(?i)^=HYPERLINK\(\s*"((?:[^"]|"")*)"\s*[,;]\s*"((?:[^"]|"")*)"\s*\)$`)

	// GitLab pagination
	LinkNext = regexp.MustCompile(`<([^>]+)>;\s*rel="next"`)
)
