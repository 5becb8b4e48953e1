package world_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/TAC-Tabletop-Adventure-Creator/roll20-tac-importer/internal/world"
)

func TestMemoryStore_CreateAndFindByName(t *testing.T) {
	ctx := context.Background()
	s := world.NewMemoryStore()

	created, err := s.Create(ctx, world.KindPage, world.Attributes{"name": "Cave", "width": 21.94})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, world.KindPage, created.Kind)

	found, err := world.FindByTypeAndName(ctx, s, world.KindPage, "Cave")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, created.ID, found[0].ID)

	w, ok := found[0].Float("width")
	require.True(t, ok)
	assert.InDelta(t, 21.94, w, 1e-9)
}

func TestMemoryStore_FindIsCaseSensitiveAndKindScoped(t *testing.T) {
	ctx := context.Background()
	s := world.NewMemoryStore()
	_, err := s.Create(ctx, world.KindPage, world.Attributes{"name": "Cave"})
	require.NoError(t, err)
	_, err = s.Create(ctx, world.KindHandout, world.Attributes{"name": "Cave"})
	require.NoError(t, err)

	found, err := world.FindByTypeAndName(ctx, s, world.KindPage, "cave")
	require.NoError(t, err)
	assert.Empty(t, found)

	found, err = world.FindByTypeAndName(ctx, s, world.KindPage, "Cave")
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestMemoryStore_FindByEmptyNameIsExact(t *testing.T) {
	ctx := context.Background()
	s := world.NewMemoryStore()
	_, err := s.Create(ctx, world.KindHandout, world.Attributes{"name": "Lore"})
	require.NoError(t, err)
	unnamed, err := s.Create(ctx, world.KindHandout, world.Attributes{})
	require.NoError(t, err)

	found, err := world.FindByTypeAndName(ctx, s, world.KindHandout, "")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, unnamed.ID, found[0].ID)

	all, err := world.FindAll(ctx, s, world.KindHandout)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMemoryStore_FindReturnsCreationOrder(t *testing.T) {
	ctx := context.Background()
	s := world.NewMemoryStore()
	var ids []string
	for _, n := range []string{"c", "a", "b"} {
		e, err := s.Create(ctx, world.KindHandout, world.Attributes{"name": n})
		require.NoError(t, err)
		ids = append(ids, e.ID)
	}

	all, err := world.FindAll(ctx, s, world.KindHandout)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, e := range all {
		assert.Equal(t, ids[i], e.ID)
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := world.NewMemoryStore()
	e, err := s.Create(ctx, world.KindHandout, world.Attributes{"name": "Lore"})
	require.NoError(t, err)

	e.Attrs["name"] = "Mutated"

	found, err := world.FindByTypeAndName(ctx, s, world.KindHandout, "Lore")
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestMemoryStore_UpdateMerges(t *testing.T) {
	ctx := context.Background()
	s := world.NewMemoryStore()
	e, err := s.Create(ctx, world.KindHandout, world.Attributes{"name": "Lore", "archived": false})
	require.NoError(t, err)

	updated, err := s.Update(ctx, e.ID, world.Attributes{"notes": "body"})
	require.NoError(t, err)
	assert.Equal(t, "Lore", updated.Name())
	assert.Equal(t, "body", updated.Get("notes"))
	assert.Equal(t, false, updated.Get("archived"))
}

func TestMemoryStore_UpdateUnknown(t *testing.T) {
	_, err := world.NewMemoryStore().Update(context.Background(), "nope", world.Attributes{})
	assert.ErrorIs(t, err, world.ErrNotFound)
}

func TestMemoryStore_RemoveCascadesToChildren(t *testing.T) {
	ctx := context.Background()
	s := world.NewMemoryStore()
	page, err := s.Create(ctx, world.KindPage, world.Attributes{"name": "Cave"})
	require.NoError(t, err)
	_, err = s.Create(ctx, world.KindGraphic, world.Attributes{"pageid": page.ID})
	require.NoError(t, err)
	_, err = s.Create(ctx, world.KindPath, world.Attributes{"pageid": page.ID})
	require.NoError(t, err)
	char, err := s.Create(ctx, world.KindCharacter, world.Attributes{"name": "Goblin"})
	require.NoError(t, err)
	_, err = s.Create(ctx, world.KindAttribute, world.Attributes{"characterid": char.ID, "name": "hp"})
	require.NoError(t, err)
	require.Equal(t, 5, s.Len())

	require.NoError(t, s.Remove(ctx, page.ID))
	assert.Equal(t, 2, s.Len())

	require.NoError(t, s.Remove(ctx, char.ID))
	assert.Equal(t, 0, s.Len())
}

func TestMemoryStore_CreateRejectsOrphan(t *testing.T) {
	_, err := world.NewMemoryStore().Create(context.Background(), world.KindGraphic,
		world.Attributes{"pageid": "missing"})
	assert.ErrorIs(t, err, world.ErrRejected)
}

func TestMemoryStore_UnknownKind(t *testing.T) {
	ctx := context.Background()
	s := world.NewMemoryStore()
	_, err := s.Create(ctx, world.Kind("deck"), nil)
	assert.Error(t, err)
	_, err = s.Find(ctx, world.Query{Kind: "deck"})
	assert.Error(t, err)
}

func TestMemoryStore_RemoveUnknown(t *testing.T) {
	err := world.NewMemoryStore().Remove(context.Background(), "nope")
	assert.ErrorIs(t, err, world.ErrNotFound)
}

func TestPropertyFindChildrenOfPageOnlyReturnsThatPage(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		ctx := context.Background()
		s := world.NewMemoryStore()
		pages := rapid.IntRange(1, 4).Draw(rt, "pages")
		want := make(map[string]int)
		var pageIDs []string
		for i := 0; i < pages; i++ {
			p, err := s.Create(ctx, world.KindPage, world.Attributes{"name": "p"})
			if err != nil {
				rt.Fatal(err)
			}
			pageIDs = append(pageIDs, p.ID)
		}
		children := rapid.IntRange(0, 20).Draw(rt, "children")
		for i := 0; i < children; i++ {
			owner := pageIDs[rapid.IntRange(0, pages-1).Draw(rt, "owner")]
			if _, err := s.Create(ctx, world.KindGraphic, world.Attributes{"pageid": owner}); err != nil {
				rt.Fatal(err)
			}
			want[owner]++
		}
		for _, id := range pageIDs {
			got, err := world.FindChildrenOfPage(ctx, s, world.KindGraphic, id)
			if err != nil {
				rt.Fatal(err)
			}
			if len(got) != want[id] {
				rt.Fatalf("page %s: got %d children, want %d", id, len(got), want[id])
			}
		}
	})
}
