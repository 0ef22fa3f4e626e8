package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	apperrors "github.com/thomas-vilte/shipsheet/internal/errors"
	"github.com/thomas-vilte/shipsheet/internal/models"
	"github.com/thomas-vilte/shipsheet/internal/regex"
	"github.com/thomas-vilte/shipsheet/internal/resolver"
	"github.com/thomas-vilte/shipsheet/internal/schema"
)

type (
	Config struct {
		Language      string           `json:"language"`
		Repositories  []Repository     `json:"repositories"`
		GitHub        GitHubConfig     `json:"github"`
		GitLab        GitLabConfig     `json:"gitlab"`
		Jira          JiraConfig       `json:"jira"`
		Sheet         SheetConfig      `json:"sheet"`
		Extraction    ExtractionConfig `json:"extraction"`
		Concurrency   int              `json:"concurrency"`
		CacheTTLHours int              `json:"cache_ttl_hours"`

		PathFile string `json:"-"`
	}

	// Repository is one source of change-requests. In the file it is either
	// an object or a string: "owner/name", "gitlab:group/project", or a clone
	// URL.
	Repository struct {
		Platform string `json:"platform"`
		Name     string `json:"name"`
	}

	GitHubConfig struct {
		Token string `json:"token,omitempty"`
	}

	GitLabConfig struct {
		BaseURL string `json:"base_url,omitempty"`
		Token   string `json:"token,omitempty"`
	}

	JiraConfig struct {
		BaseURL    string `json:"base_url,omitempty"`
		Email      string `json:"email,omitempty"`
		APIToken   string `json:"api_token,omitempty"`
		ProjectKey string `json:"project_key,omitempty"`
		TeamField  string `json:"team_field,omitempty"`
	}

	SheetConfig struct {
		SpreadsheetID   string               `json:"spreadsheet_id,omitempty"`
		SheetName       string               `json:"sheet_name"`
		CredentialsFile string               `json:"credentials_file,omitempty"`
		// File keeps the report in a local JSON sheet instead of Google Sheets.
		File    string               `json:"file,omitempty"`
		Columns schema.ColumnMapping `json:"columns"`
	}

	ExtractionConfig struct {
		Rules     []models.ExtractionRule `json:"rules"`
		OnFailure models.ResolutionPolicy `json:"on_failure"`
	}
)

const (
	LangEN = "en"
	LangES = "es"

	defaultLang          = LangEN
	defaultSheetName     = "Report"
	defaultConcurrency   = 4
	defaultCacheTTLHours = 24
)

// DefaultPath is ~/.shipsheet/config.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("error getting home directory: %w", err)
	}
	return filepath.Join(home, ".shipsheet", "config.json"), nil
}

// LoadConfig reads the config at path, or at DefaultPath when path is empty.
// A missing file is created with defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefaultConfig(path)
	} else if err != nil {
		return nil, fmt.Errorf("error checking config file: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, apperrors.ErrInvalidConfig.WithError(err).WithContext("path", path)
	}
	config.PathFile = path

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// Default returns a config with every optional setting filled in.
func Default() *Config {
	return &Config{
		Language: defaultLang,
		GitLab:   GitLabConfig{BaseURL: "https://gitlab.com"},
		Sheet: SheetConfig{
			SheetName: defaultSheetName,
			Columns:   schema.DefaultMapping(),
		},
		Extraction: ExtractionConfig{
			Rules:     resolver.DefaultRules(),
			OnFailure: models.PolicyWarn,
		},
		Concurrency:   defaultConcurrency,
		CacheTTLHours: defaultCacheTTLHours,
	}
}

func createDefaultConfig(path string) (*Config, error) {
	config := Default()
	config.PathFile = path

	if err := SaveConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

func SaveConfig(config *Config) error {
	if err := validateConfig(config); err != nil {
		return err
	}

	if config.PathFile == "" {
		return errors.New("config file path is not set")
	}

	if err := os.MkdirAll(filepath.Dir(config.PathFile), 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding config: %w", err)
	}

	if err := os.WriteFile(config.PathFile, data, 0600); err != nil {
		return fmt.Errorf("error saving config: %w", err)
	}

	return nil
}

// ApplyEnv loads envFiles (".env" when none) into the process environment,
// ignoring missing files, and lets the environment override secrets.
func ApplyEnv(config *Config, envFiles ...string) {
	_ = godotenv.Load(envFiles...)

	override := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	override(&config.GitHub.Token, "GITHUB_TOKEN")
	override(&config.GitLab.Token, "GITLAB_TOKEN")
	override(&config.Jira.APIToken, "JIRA_API_TOKEN")
	override(&config.Jira.Email, "JIRA_EMAIL")
	override(&config.Jira.BaseURL, "JIRA_URL")
	override(&config.Sheet.CredentialsFile, "GOOGLE_APPLICATION_CREDENTIALS")
}

// validateConfig checks what every command relies on. It is run on load and
// save; ValidateForSync adds what a sync needs.
func validateConfig(config *Config) error {
	var problems []string

	switch config.Language {
	case LangEN, LangES:
	default:
		problems = append(problems, fmt.Sprintf("language %q is not supported (en, es)", config.Language))
	}
	if config.Concurrency <= 0 {
		problems = append(problems, "concurrency must be greater than 0")
	}
	if config.CacheTTLHours < 0 {
		problems = append(problems, "cache_ttl_hours cannot be negative")
	}
	for i, repo := range config.Repositories {
		if repo.Name == "" {
			problems = append(problems, fmt.Sprintf("repositories[%d] has no name", i))
		}
		if repo.Platform != models.PlatformGitHub && repo.Platform != models.PlatformGitLab {
			problems = append(problems, fmt.Sprintf("repositories[%d] has unsupported platform %q", i, repo.Platform))
		}
	}

	if len(problems) > 0 {
		return apperrors.ErrInvalidConfig.WithContext("detail", strings.Join(problems, "; "))
	}

	if err := config.Sheet.Columns.Validate(); err != nil {
		return err
	}
	if _, err := resolver.New(config.Extraction.Rules, config.Extraction.OnFailure); err != nil {
		return err
	}
	return nil
}

// ValidateForSync checks repositories, tokens and the report destination.
func (c *Config) ValidateForSync() error {
	if err := validateConfig(c); err != nil {
		return err
	}
	if len(c.Repositories) == 0 {
		return apperrors.ErrNoRepositories
	}
	for _, repo := range c.Repositories {
		if repo.Platform == models.PlatformGitHub && c.GitHub.Token == "" {
			return apperrors.ErrTokenMissing.WithContext("detail", "GITHUB_TOKEN is required for "+repo.Name)
		}
		if repo.Platform == models.PlatformGitLab && c.GitLab.Token == "" {
			return apperrors.ErrTokenMissing.WithContext("detail", "GITLAB_TOKEN is required for "+repo.Name)
		}
	}
	if c.JiraEnabled() && (c.Jira.Email == "" || c.Jira.APIToken == "" || c.Jira.ProjectKey == "") {
		return apperrors.ErrInvalidConfig.WithContext("detail", "jira needs email, api_token and project_key").
			WithSuggestion("Set JIRA_EMAIL and JIRA_API_TOKEN, and jira.project_key in the config file")
	}
	if c.Sheet.File == "" && c.Sheet.SpreadsheetID == "" {
		return apperrors.ErrNoDestination
	}
	return nil
}

// JiraEnabled reports whether work items are looked up in Jira.
func (c *Config) JiraEnabled() bool {
	return c.Jira.BaseURL != ""
}

func (r *Repository) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		parsed, err := ParseRepository(text)
		if err != nil {
			return err
		}
		*r = parsed
		return nil
	}

	type plain Repository
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	p.Platform = strings.ToLower(strings.TrimSpace(p.Platform))
	if p.Platform == "" {
		p.Platform = models.PlatformGitHub
	}
	*r = Repository(p)
	return nil
}

func (r Repository) String() string {
	return r.Platform + ":" + r.Name
}

// ParseRepository reads "owner/name" (GitHub), "platform:path" or a clone
// URL whose host names the platform.
func ParseRepository(text string) (Repository, error) {
	text = strings.TrimSpace(text)

	var host, path string
	switch {
	case regex.SSHRepo.MatchString(text):
		m := regex.SSHRepo.FindStringSubmatch(text)
		host, path = m[1], m[2]
	case regex.HTTPSRepo.MatchString(text):
		m := regex.HTTPSRepo.FindStringSubmatch(text)
		host, path = m[1], m[2]
	default:
		platform, rest, found := strings.Cut(text, ":")
		if !found {
			platform, rest = models.PlatformGitHub, text
		}
		host, path = strings.ToLower(platform), rest
	}

	repo := Repository{Name: strings.Trim(path, "/")}
	switch {
	case strings.Contains(host, models.PlatformGitLab):
		repo.Platform = models.PlatformGitLab
	case strings.Contains(host, models.PlatformGitHub):
		repo.Platform = models.PlatformGitHub
	default:
		return Repository{}, apperrors.ErrVCSNotSupported.WithContext("repository", text)
	}

	if !regex.RepoPath.MatchString(repo.Name) {
		return Repository{}, apperrors.ErrInvalidRepository.WithContext("repository", text)
	}
	return repo, nil
}
