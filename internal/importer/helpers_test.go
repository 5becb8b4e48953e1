package importer_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/TAC-Tabletop-Adventure-Creator/roll20-tac-importer/internal/importer"
	"github.com/TAC-Tabletop-Adventure-Creator/roll20-tac-importer/internal/world"
)

// rejectingStore fails every nth Create of the selected kinds.
type rejectingStore struct {
	*world.MemoryStore
	every    int
	kinds    map[world.Kind]bool
	attempts int
	nilOnly  bool
}

func (s *rejectingStore) Create(ctx context.Context, kind world.Kind, attrs world.Attributes) (*world.Entity, error) {
	if s.kinds == nil || s.kinds[kind] {
		s.attempts++
		if s.every > 0 && s.attempts%s.every == 0 {
			if s.nilOnly {
				return nil, nil
			}
			return nil, world.ErrRejected
		}
	}
	return s.MemoryStore.Create(ctx, kind, attrs)
}

func newImporter(t *testing.T, store world.Store) *importer.Importer {
	t.Helper()
	return newImporterWith(t, store, importer.DefaultOptions())
}

func newImporterWith(t *testing.T, store world.Store, opts importer.Options) *importer.Importer {
	t.Helper()
	imp, err := importer.New(store, opts, zaptest.NewLogger(t))
	require.NoError(t, err)
	return imp
}

func seedPage(t *testing.T, s world.Store, name string, width float64) *world.Entity {
	t.Helper()
	p, err := s.Create(context.Background(), world.KindPage, world.Attributes{
		"name":   name,
		"width":  width,
		"height": width,
	})
	require.NoError(t, err)
	return p
}

func findOne(t *testing.T, s world.Store, kind world.Kind, name string) *world.Entity {
	t.Helper()
	found, err := world.FindByTypeAndName(context.Background(), s, kind, name)
	require.NoError(t, err)
	require.Len(t, found, 1, "%s %q", kind, name)
	return found[0]
}

func children(t *testing.T, s world.Store, kind world.Kind, pageID string) []*world.Entity {
	t.Helper()
	out, err := world.FindChildrenOfPage(context.Background(), s, kind, pageID)
	require.NoError(t, err)
	return out
}

// names returns the sorted multiset of (kind, name) pairs in s.
func names(s *world.MemoryStore) map[string]int {
	out := make(map[string]int)
	for _, e := range s.All() {
		out[string(e.Kind)+"/"+e.Name()]++
	}
	return out
}
