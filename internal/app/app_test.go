package app_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/TAC-Tabletop-Adventure-Creator/roll20-tac-importer/internal/app"
	"github.com/TAC-Tabletop-Adventure-Creator/roll20-tac-importer/internal/command"
	"github.com/TAC-Tabletop-Adventure-Creator/roll20-tac-importer/internal/config"
	"github.com/TAC-Tabletop-Adventure-Creator/roll20-tac-importer/internal/importer"
	"github.com/TAC-Tabletop-Adventure-Creator/roll20-tac-importer/internal/world"
)

type replies struct{ texts []string }

func (r *replies) Whisper(_ context.Context, reply command.Reply) error {
	r.texts = append(r.texts, reply.Text)
	return nil
}

func defaultConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func TestImporterOptions_Defaults(t *testing.T) {
	opts := app.ImporterOptions(defaultConfig(t).Import)
	require.NoError(t, opts.Validate())
	assert.Equal(t, importer.DefaultOptions(), opts)
}

func TestCommandConfig_Defaults(t *testing.T) {
	assert.Equal(t, command.DefaultConfig(), app.CommandConfig(defaultConfig(t).Import))
}

func TestBuild_UnknownDriver(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Store.Driver = "sqlite"
	_, err := app.Build(context.Background(), cfg, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestBuild_MissingHookDir(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Scripting.HookDir = filepath.Join(t.TempDir(), "absent")
	_, err := app.Build(context.Background(), cfg, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestBuild_SnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	cfg := defaultConfig(t)
	cfg.Store.SnapshotPath = filepath.Join(t.TempDir(), "world.yaml")

	first, err := app.Build(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	_, err = first.Store.Create(ctx, world.KindPage, world.Attributes{"name": "Cave", "width": 21.94, "height": 21.94})
	require.NoError(t, err)
	report := first.Importer.Process(ctx, importer.Batch{
		Scenes:   []importer.Scene{{Name: "Cave", Walls: []importer.Wall{{EndX: 1536, EndY: 1536}}}},
		Monsters: []importer.Monster{{Name: "Goblin", Description: "d"}},
	})
	require.Zero(t, report.Failed())
	require.NoError(t, first.Close())

	second, err := app.Build(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer second.Close()

	paths, err := world.FindAll(ctx, second.Store, world.KindPath)
	require.NoError(t, err)
	assert.Len(t, paths, 1)
	goblins, err := world.FindByTypeAndName(ctx, second.Store, world.KindCharacter, "Goblin")
	require.NoError(t, err)
	assert.Len(t, goblins, 1)
}

func TestApp_DispatcherRunsHooks(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "summary.lua"), []byte(`
		function on_import_complete(s)
			return "notes imported: " .. s.notes.success
		end
	`), 0644))

	cfg := defaultConfig(t)
	cfg.Scripting.HookDir = dir
	a, err := app.Build(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer a.Close()

	r := &replies{}
	d, err := a.Dispatcher(r)
	require.NoError(t, err)
	require.NoError(t, d.Handle(context.Background(), command.Message{
		Type:    command.MessageTypeAPI,
		Content: `!tac --import {"notes":[{"name":"Lore","description":"old"}]}`,
	}))

	require.Len(t, r.texts, 2)
	assert.Contains(t, r.texts[0], "Notes: 1 imported, 0 failed.")
	assert.Equal(t, "notes imported: 1", r.texts[1])
}
