package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()
	require.NotNil(t, r)
	assert.Len(t, r.Subcommands(), 3)
}

func TestResolve_CanonicalName(t *testing.T) {
	sub, ok := DefaultRegistry().Resolve("import")
	require.True(t, ok)
	assert.Equal(t, HandlerImport, sub.Handler)
}

func TestResolve_Alias(t *testing.T) {
	sub, ok := DefaultRegistry().Resolve("h")
	require.True(t, ok)
	assert.Equal(t, "help", sub.Name)
}

func TestResolve_CaseInsensitive(t *testing.T) {
	sub, ok := DefaultRegistry().Resolve("DUMP")
	require.True(t, ok)
	assert.Equal(t, HandlerDump, sub.Handler)
}

func TestResolve_NotFound(t *testing.T) {
	_, ok := DefaultRegistry().Resolve("export")
	assert.False(t, ok)
}

func TestNewRegistry_DuplicateName(t *testing.T) {
	_, err := NewRegistry([]Subcommand{
		{Name: "import", Handler: HandlerImport},
		{Name: "import", Handler: HandlerDump},
	})
	assert.Error(t, err)
}

func TestNewRegistry_AliasCollidesWithName(t *testing.T) {
	_, err := NewRegistry([]Subcommand{
		{Name: "dump", Handler: HandlerDump},
		{Name: "help", Aliases: []string{"dump"}, Handler: HandlerHelp},
	})
	assert.Error(t, err)
}

func TestNewRegistry_EmptyName(t *testing.T) {
	_, err := NewRegistry([]Subcommand{{Handler: HandlerHelp}})
	assert.Error(t, err)
}

func TestUsage_StartsWithImportLine(t *testing.T) {
	usage := DefaultRegistry().Usage()
	assert.Equal(t, "Use --import {json} to import TAC data.", usage[:len("Use --import {json} to import TAC data.")])
	assert.Contains(t, usage, "--dump")
}
