package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thomas-vilte/shipsheet/internal/config"
	"github.com/thomas-vilte/shipsheet/internal/i18n"
	"github.com/urfave/cli/v3"
)

type mockCommandFactory struct {
	name string
}

func (m *mockCommandFactory) CreateCommand(t *i18n.Translations, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name: m.name,
	}
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	translations, err := i18n.NewTranslations("en", "")
	require.NoError(t, err)
	return NewRegistry(config.Default(), translations)
}

func TestRegistry_Register(t *testing.T) {
	t.Run("should register new factory successfully", func(t *testing.T) {
		// arrange
		registry := newTestRegistry(t)

		// act
		err := registry.Register("sync", &mockCommandFactory{name: "sync"})

		// assert
		assert.NoError(t, err)
		assert.Len(t, registry.factories, 1)
		assert.Contains(t, registry.factories, "sync")
	})

	t.Run("should return error when registering duplicate factory", func(t *testing.T) {
		// arrange
		registry := newTestRegistry(t)
		factory := &mockCommandFactory{name: "sync"}

		// act
		_ = registry.Register("sync", factory)
		err := registry.Register("sync", factory)

		// assert
		require.Error(t, err)
		assert.Contains(t, err.Error(), "'sync' is already registered")
		assert.Len(t, registry.factories, 1)
	})
}

func TestRegistry_CreateCommands(t *testing.T) {
	t.Run("should create commands sorted by name", func(t *testing.T) {
		// arrange
		registry := newTestRegistry(t)
		_ = registry.Register("sync", &mockCommandFactory{name: "sync"})
		_ = registry.Register("config", &mockCommandFactory{name: "config"})
		_ = registry.Register("export", &mockCommandFactory{name: "export"})

		// act
		commands := registry.CreateCommands()

		// assert
		require.Len(t, commands, 3)
		assert.Equal(t, "config", commands[0].Name)
		assert.Equal(t, "export", commands[1].Name)
		assert.Equal(t, "sync", commands[2].Name)
	})

	t.Run("should return empty slice when no factories registered", func(t *testing.T) {
		// arrange
		registry := newTestRegistry(t)

		// act
		commands := registry.CreateCommands()

		// assert
		assert.Empty(t, commands)
	})
}
