package errors

import "fmt"

// ErrorType defines the category of the error
type ErrorType string

const (
	TypeConfiguration ErrorType = "CONFIGURATION"
	TypeResolution    ErrorType = "RESOLUTION"
	TypeEnrichment    ErrorType = "ENRICHMENT"
	TypeInvariant     ErrorType = "INVARIANT"
	TypeInvalidInput  ErrorType = "INVALID_INPUT"
	TypeVCS           ErrorType = "VCS"
	TypeTracker       ErrorType = "TRACKER"
	TypeSheets        ErrorType = "SHEETS"
	TypeInternal      ErrorType = "INTERNAL"
)

// AppError represents a domain-level error with a type and an underlying error
type AppError struct {
	Type       ErrorType
	Message    string
	Context    map[string]interface{}
	Err        error
	Suggestion string
}

func (e *AppError) Error() string {
	var msg string
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	} else {
		msg = fmt.Sprintf("%s: %s", e.Type, e.Message)
	}

	if e.Context != nil {
		if detail, ok := e.Context["detail"].(string); ok && detail != "" {
			msg += fmt.Sprintf(" - %s", detail)
		}
	}

	return msg
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the same kind of AppError. Copies produced by
// WithContext, WithError and WithSuggestion still match their sentinel.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Message == t.Message
}

// WithError creates a new AppError with an underlying error
func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Type:       e.Type,
		Message:    e.Message,
		Context:    e.Context,
		Err:        err,
		Suggestion: e.Suggestion,
	}
}

// WithContext creates a new AppError with additional context
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	ctx := make(map[string]interface{})
	for k, v := range e.Context {
		ctx[k] = v
	}
	ctx[key] = value
	return &AppError{
		Type:       e.Type,
		Message:    e.Message,
		Context:    ctx,
		Err:        e.Err,
		Suggestion: e.Suggestion,
	}
}

func (e *AppError) WithSuggestion(suggestion string) *AppError {
	return &AppError{
		Type:       e.Type,
		Message:    e.Message,
		Context:    e.Context,
		Err:        e.Err,
		Suggestion: suggestion,
	}
}

// NewAppError creates a new AppError
func NewAppError(t ErrorType, msg string, err error) *AppError {
	return &AppError{
		Type:    t,
		Message: msg,
		Err:     err,
	}
}

// Configuration errors
var (
	ErrConfigMissing = NewAppError(TypeConfiguration, "Configuration is missing", nil).
				WithSuggestion("Initialize configuration: shipsheet config init")

	ErrInvalidConfig = NewAppError(TypeConfiguration, "Configuration is invalid", nil).
				WithSuggestion("Check the file with: shipsheet config validate")

	ErrInvalidColumnMapping = NewAppError(TypeConfiguration, "Invalid column mapping", nil).
				WithSuggestion("Columns must be one or two uppercase letters (A..ZZ) and pairwise distinct")

	ErrInvalidRule = NewAppError(TypeConfiguration, "Invalid extraction rule", nil).
			WithSuggestion("Every rule needs a name, a pattern and a non-negative capture_group")

	ErrNoRepositories = NewAppError(TypeConfiguration, "No repositories configured", nil).
				WithSuggestion("Add repositories to the 'repositories' list of the config file")

	ErrTokenMissing = NewAppError(TypeConfiguration, "Platform token is missing", nil).
			WithSuggestion("Set GITHUB_TOKEN / GITLAB_TOKEN in your environment or .env file")

	ErrNoDestination = NewAppError(TypeConfiguration, "No report destination configured", nil).
				WithSuggestion("Set sheet.spreadsheet_id or sheet.file in the config file, or pass --sheet-file")
)

// Record-level errors
var (
	ErrResolution = NewAppError(TypeResolution, "No extraction rule matched", nil).
			WithSuggestion("Add a rule matching your branch naming or switch on_failure to \"warn\"")

	ErrWorkItemLookup = NewAppError(TypeEnrichment, "Work item lookup failed", nil)
)

// Reconciliation errors
var (
	ErrInvalidInput = NewAppError(TypeInvalidInput, "Invalid reconciliation input", nil)

	ErrDuplicateKey = NewAppError(TypeInvariant, "Duplicate unique key reached reconciliation", nil)

	ErrInvalidReorder = NewAppError(TypeInvariant, "Block reorder operation is malformed", nil)
)

// VCS errors
var (
	ErrRepositoryNotFound = NewAppError(TypeVCS, "repository not found", nil).
				WithSuggestion("Check repository name and access permissions")

	ErrVCSNotSupported = NewAppError(TypeVCS, "VCS platform not supported", nil).
				WithSuggestion("Supported platforms: github, gitlab")

	ErrInvalidRepository = NewAppError(TypeVCS, "Repository must be in owner/name form", nil)

	ErrGitHubTokenInvalid = NewAppError(TypeVCS, "GitHub token is invalid or expired", nil).
				WithSuggestion("Generate a new token at: https://github.com/settings/tokens")

	ErrGitHubRateLimit = NewAppError(TypeVCS, "GitHub API rate limit exceeded", nil).
				WithSuggestion("Wait a few minutes or use a personal access token for higher limits")

	ErrGitHubRequest = NewAppError(TypeVCS, "GitHub API request failed", nil)

	ErrGitLabRequest = NewAppError(TypeVCS, "GitLab API request failed", nil)

	ErrNothingCollected = NewAppError(TypeVCS, "No repository could be read", nil).
				WithSuggestion("Run with --verbose to see why each repository failed")
)

// Tracker errors
var (
	ErrTrackerUnauthorized = NewAppError(TypeTracker, "Jira rejected the credentials", nil).
				WithSuggestion("Verify JIRA_EMAIL and JIRA_API_TOKEN")

	ErrTrackerRequest = NewAppError(TypeTracker, "Jira API request failed", nil)
)

// Sheets errors
var (
	ErrSheetNotFound = NewAppError(TypeSheets, "Sheet not found in spreadsheet", nil).
				WithSuggestion("Check sheet.sheet_name in the config file")

	ErrSheetRead = NewAppError(TypeSheets, "Failed to read spreadsheet", nil)

	ErrSheetWrite = NewAppError(TypeSheets, "Failed to write spreadsheet", nil).
			WithSuggestion("Share the spreadsheet with the service account email as editor")
)
