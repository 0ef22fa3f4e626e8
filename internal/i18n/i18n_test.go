package i18n

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTranslations(t *testing.T) {
	t.Run("should load bundled messages without a locales dir", func(t *testing.T) {
		// act
		trans, err := NewTranslations("en", "")

		// assert
		require.NoError(t, err)
		assert.Equal(t, "Manage the configuration file", trans.GetMessage("config.usage", 0, nil))
	})

	t.Run("should fail with empty language", func(t *testing.T) {
		// act
		trans, err := NewTranslations("", "")

		// assert
		assert.Error(t, err)
		assert.Nil(t, trans)
	})

	t.Run("should let files in the locales dir override bundled messages", func(t *testing.T) {
		// arrange
		dir := t.TempDir()
		createTestFile(t, dir, "active.en.toml", `
[sync]
applied = "Sheet refreshed"`)

		// act
		trans, err := NewTranslations("en", dir)

		// assert
		require.NoError(t, err)
		assert.Equal(t, "Sheet refreshed", trans.GetMessage("sync.applied", 0, nil))
		assert.Equal(t, "Dry run: nothing was written", trans.GetMessage("sync.dry_run", 0, nil))
	})

	t.Run("should fail on a broken locale file", func(t *testing.T) {
		// arrange
		dir := t.TempDir()
		createTestFile(t, dir, "active.en.toml", `[sync`)

		// act
		_, err := NewTranslations("en", dir)

		// assert
		assert.Error(t, err)
	})
}

func TestSetLanguage(t *testing.T) {
	t.Run("should change to a bundled language", func(t *testing.T) {
		// arrange
		trans, err := NewTranslations("en", "")
		require.NoError(t, err)

		// act
		err = trans.SetLanguage("es")

		// assert
		require.NoError(t, err)
		assert.Equal(t, "Reporte actualizado", trans.GetMessage("sync.applied", 0, nil))
	})

	t.Run("should fail with unsupported language", func(t *testing.T) {
		// arrange
		trans, err := NewTranslations("es", "")
		require.NoError(t, err)

		// act
		err = trans.SetLanguage("fr")

		// assert
		assert.Error(t, err)
	})
}

func TestGetMessage(t *testing.T) {
	t.Run("should render template data", func(t *testing.T) {
		// arrange
		trans, err := NewTranslations("es", "")
		require.NoError(t, err)

		// act
		result := trans.GetMessage("config.path", 0, map[string]interface{}{"Path": "/tmp/config.json"})

		// assert
		assert.Equal(t, "Archivo de configuración: /tmp/config.json", result)
	})

	t.Run("should pick plural forms", func(t *testing.T) {
		// arrange
		dir := t.TempDir()
		createTestFile(t, dir, "active.en.toml", `
[Rows]
one = "{{.Count}} row"
other = "{{.Count}} rows"`)
		trans, err := NewTranslations("en", dir)
		require.NoError(t, err)

		// act & assert
		assert.Equal(t, "1 row", trans.GetMessage("Rows", 1, map[string]interface{}{"Count": 1}))
		assert.Equal(t, "3 rows", trans.GetMessage("Rows", 3, map[string]interface{}{"Count": 3}))
	})

	t.Run("should handle missing messages", func(t *testing.T) {
		// arrange
		trans, err := NewTranslations("en", "")
		require.NoError(t, err)

		// act
		result := trans.GetMessage("NonExistent", 1, nil)

		// assert
		assert.Equal(t, "Translation missing: NonExistent", result)
	})

	t.Run("should keep both bundles in sync", func(t *testing.T) {
		// arrange
		en, err := NewTranslations("en", "")
		require.NoError(t, err)
		es, err := NewTranslations("es", "")
		require.NoError(t, err)

		// act & assert
		for _, id := range []string{
			"app.usage", "flags.since", "sync.plan", "export.written",
			"config.init.created", "config.show.header", "config.validate.ok",
			"rules.test.matched", "rules.test.no_match",
		} {
			assert.NotContains(t, en.GetMessage(id, 0, nil), "Translation missing", id)
			assert.NotContains(t, es.GetMessage(id, 0, nil), "Translation missing", id)
			assert.NotEqual(t, en.GetMessage(id, 0, nil), es.GetMessage(id, 0, nil), id)
		}
	})
}

func createTestFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}
