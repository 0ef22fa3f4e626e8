package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/thomas-vilte/shipsheet/internal/errors"
	"github.com/thomas-vilte/shipsheet/internal/models"
	"github.com/thomas-vilte/shipsheet/internal/schema"
)

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("should create a default config when missing", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "config.json")

		cfg, err := LoadConfig(path)

		require.NoError(t, err)
		assert.Equal(t, path, cfg.PathFile)
		assert.Equal(t, LangEN, cfg.Language)
		assert.Equal(t, schema.DefaultMapping(), cfg.Sheet.Columns)
		assert.NotEmpty(t, cfg.Extraction.Rules)
		assert.FileExists(t, path)
	})

	t.Run("should use the home directory by default", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)

		cfg, err := LoadConfig("")

		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, ".shipsheet", "config.json"), cfg.PathFile)
	})

	t.Run("should keep defaults for omitted settings", func(t *testing.T) {
		path := writeConfig(t, `{
			"language": "es",
			"repositories": ["acme/api", "gitlab:acme/team/shop", {"platform": "GitLab", "name": "acme/ops"}],
			"sheet": {"spreadsheet_id": "abc", "columns": {"unique_key": "Z"}}
		}`)

		cfg, err := LoadConfig(path)

		require.NoError(t, err)
		assert.Equal(t, LangES, cfg.Language)
		assert.Equal(t, []Repository{
			{Platform: models.PlatformGitHub, Name: "acme/api"},
			{Platform: models.PlatformGitLab, Name: "acme/team/shop"},
			{Platform: models.PlatformGitLab, Name: "acme/ops"},
		}, cfg.Repositories)
		assert.Equal(t, "Z", cfg.Sheet.Columns.UniqueKey)
		assert.Equal(t, "A", cfg.Sheet.Columns.Repository)
		assert.Equal(t, defaultSheetName, cfg.Sheet.SheetName)
		assert.Equal(t, defaultConcurrency, cfg.Concurrency)
	})

	t.Run("should reject invalid settings", func(t *testing.T) {
		tests := []struct {
			name    string
			content string
			expect  error
		}{
			{"bad json", `{`, apperrors.ErrInvalidConfig},
			{"language", `{"language": "fr"}`, apperrors.ErrInvalidConfig},
			{"concurrency", `{"concurrency": 0}`, apperrors.ErrInvalidConfig},
			{"column clash", `{"sheet": {"columns": {"team": "A"}}}`, apperrors.ErrInvalidColumnMapping},
			{"rule without pattern", `{"extraction": {"rules": [{"name": "x"}]}}`, apperrors.ErrInvalidRule},
			{"policy", `{"extraction": {"on_failure": "explode"}}`, apperrors.ErrInvalidConfig},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := LoadConfig(writeConfig(t, tt.content))

				assert.True(t, errors.Is(err, tt.expect), "got %v", err)
			})
		}
	})

	t.Run("should reject repositories on unknown hosts", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, `{"repositories": ["https://bitbucket.org/acme/api"]}`))

		assert.True(t, errors.Is(err, apperrors.ErrVCSNotSupported), "got %v", err)
	})
}

func TestSaveConfig(t *testing.T) {
	t.Run("should round trip", func(t *testing.T) {
		cfg := Default()
		cfg.PathFile = filepath.Join(t.TempDir(), "config.json")
		cfg.Repositories = []Repository{{Platform: models.PlatformGitHub, Name: "acme/api"}}
		cfg.Jira.ProjectKey = "ABC"

		require.NoError(t, SaveConfig(cfg))
		loaded, err := LoadConfig(cfg.PathFile)

		require.NoError(t, err)
		assert.Equal(t, cfg, loaded)
	})

	t.Run("should refuse an invalid config", func(t *testing.T) {
		cfg := Default()
		cfg.PathFile = filepath.Join(t.TempDir(), "config.json")
		cfg.Concurrency = -1

		assert.Error(t, SaveConfig(cfg))
		assert.NoFileExists(t, cfg.PathFile)
	})

	t.Run("should require a path", func(t *testing.T) {
		assert.Error(t, SaveConfig(Default()))
	})
}

func TestApplyEnv(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("JIRA_API_TOKEN=from-file\nJIRA_EMAIL=bot@acme.io\n"), 0600))
	t.Setenv("GITHUB_TOKEN", "gh-token")
	t.Setenv("GITLAB_TOKEN", "")
	t.Setenv("JIRA_API_TOKEN", "")
	t.Setenv("JIRA_EMAIL", "")
	t.Setenv("JIRA_URL", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "/keys/sa.json")
	require.NoError(t, os.Unsetenv("JIRA_API_TOKEN"))
	require.NoError(t, os.Unsetenv("JIRA_EMAIL"))

	cfg := Default()
	cfg.GitLab.Token = "kept"

	ApplyEnv(cfg, envFile)

	assert.Equal(t, "gh-token", cfg.GitHub.Token)
	assert.Equal(t, "kept", cfg.GitLab.Token)
	assert.Equal(t, "from-file", cfg.Jira.APIToken)
	assert.Equal(t, "bot@acme.io", cfg.Jira.Email)
	assert.Equal(t, "/keys/sa.json", cfg.Sheet.CredentialsFile)
}

func TestValidateForSync(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Repositories = []Repository{
			{Platform: models.PlatformGitHub, Name: "acme/api"},
			{Platform: models.PlatformGitLab, Name: "acme/shop"},
		}
		cfg.GitHub.Token = "gh"
		cfg.GitLab.Token = "gl"
		cfg.Sheet.File = "report.json"
		return cfg
	}

	require.NoError(t, valid().ValidateForSync())

	tests := []struct {
		name   string
		mutate func(*Config)
		expect error
	}{
		{"no repositories", func(c *Config) { c.Repositories = nil }, apperrors.ErrNoRepositories},
		{"github token", func(c *Config) { c.GitHub.Token = "" }, apperrors.ErrTokenMissing},
		{"gitlab token", func(c *Config) { c.GitLab.Token = "" }, apperrors.ErrTokenMissing},
		{"no destination", func(c *Config) { c.Sheet.File = "" }, apperrors.ErrNoDestination},
		{"partial jira", func(c *Config) { c.Jira.BaseURL = "https://acme.atlassian.net" }, apperrors.ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			assert.True(t, errors.Is(cfg.ValidateForSync(), tt.expect))
		})
	}
}

func TestParseRepository(t *testing.T) {
	tests := []struct {
		in   string
		want Repository
	}{
		{"acme/api", Repository{models.PlatformGitHub, "acme/api"}},
		{"github:acme/api", Repository{models.PlatformGitHub, "acme/api"}},
		{"GitLab:group/sub/shop", Repository{models.PlatformGitLab, "group/sub/shop"}},
		{"git@github.com:acme/api.git", Repository{models.PlatformGitHub, "acme/api"}},
		{"https://gitlab.com/group/shop.git", Repository{models.PlatformGitLab, "group/shop"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRepository(tt.in)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseRepository("api")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidRepository))
}

func TestRepository_JSON(t *testing.T) {
	data, err := json.Marshal(Repository{Platform: models.PlatformGitLab, Name: "a/b"})
	require.NoError(t, err)

	var back Repository
	require.NoError(t, json.Unmarshal(data, &back))

	assert.Equal(t, Repository{Platform: models.PlatformGitLab, Name: "a/b"}, back)
}
