package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/patchgest/internal/patchdoc"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "patches.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func tier(n int) *int { return &n }

var testBlocks = []patchdoc.Block{
	{Category: patchdoc.CategoryOverview, Size: patchdoc.SizeAll, Order: 0, Text: "Welcome", Lines: []string{}},
	{Category: patchdoc.CategoryChampions, Size: patchdoc.SizeSmall, H2: "Small Changes", H4: "Tier 2",
		Order: 1, Text: "Ahri buffed", Lines: []string{"Ahri buffed"}, UnitTier: tier(2)},
	{Category: patchdoc.CategoryTraits, Size: patchdoc.SizeLarge, H2: "Large Changes", H4: "Traits",
		Order: 2, Text: "Bruiser health up", Lines: []string{"Bruiser health up"}},
}

func TestSavePatch_Outcomes(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	p := Patch{Version: "16.4", SourceURL: "https://x.test/p/", SourceSlug: "p", RawText: "t", RawHTML: "<p>t</p>", ContentHash: "h1"}

	out, err := s.SavePatch(ctx, p, testBlocks)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAdded, out)

	// Unchanged content keeps the stored sections.
	out, err = s.SavePatch(ctx, p, nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, out)
	got, err := s.Sections(ctx, "16.4", SectionFilter{})
	require.NoError(t, err)
	assert.Len(t, got, 3)

	p.ContentHash = "h2"
	p.RawText = "t2"
	out, err = s.SavePatch(ctx, p, testBlocks[:1])
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, out)

	stored, err := s.GetPatch(ctx, "16.4")
	require.NoError(t, err)
	assert.Equal(t, "t2", stored.RawText)
	assert.Equal(t, "h2", stored.ContentHash)
	assert.False(t, stored.CreatedAt.IsZero())
}

func TestGetPatch_NotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetPatch(context.Background(), "1.1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSavePatch_ReplacesSections(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, err := s.SavePatch(ctx, Patch{Version: "16.4", ContentHash: "h1"}, testBlocks)
	require.NoError(t, err)

	got, err := s.Sections(ctx, "16.4", SectionFilter{})
	require.NoError(t, err)
	assert.Equal(t, testBlocks, got)

	// New content drops sections that are no longer present.
	_, err = s.SavePatch(ctx, Patch{Version: "16.4", ContentHash: "h2"}, testBlocks[:1])
	require.NoError(t, err)
	got, err = s.Sections(ctx, "16.4", SectionFilter{})
	require.NoError(t, err)
	assert.Equal(t, testBlocks[:1], got)

	// Empty blocks clear them.
	_, err = s.SavePatch(ctx, Patch{Version: "16.4", ContentHash: "h3"}, nil)
	require.NoError(t, err)
	got, err = s.Sections(ctx, "16.4", SectionFilter{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSavePatch_FailedSectionWriteRollsBack(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, err := s.SavePatch(ctx, Patch{Version: "16.4", ContentHash: "h1"}, testBlocks)
	require.NoError(t, err)

	// Duplicate orders violate the section primary key.
	dup := []patchdoc.Block{testBlocks[0], testBlocks[0]}
	_, err = s.SavePatch(ctx, Patch{Version: "16.4", ContentHash: "h2"}, dup)
	require.Error(t, err)

	stored, err := s.GetPatch(ctx, "16.4")
	require.NoError(t, err)
	assert.Equal(t, "h1", stored.ContentHash)
	got, err := s.Sections(ctx, "16.4", SectionFilter{})
	require.NoError(t, err)
	assert.Equal(t, testBlocks, got)

	// The retry is not mistaken for unchanged content.
	out, err := s.SavePatch(ctx, Patch{Version: "16.4", ContentHash: "h2"}, testBlocks[:1])
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, out)
	got, err = s.Sections(ctx, "16.4", SectionFilter{})
	require.NoError(t, err)
	assert.Equal(t, testBlocks[:1], got)

	// A failed first insert leaves no patch row at all.
	_, err = s.SavePatch(ctx, Patch{Version: "16.5", ContentHash: "x"}, dup)
	require.Error(t, err)
	_, err = s.GetPatch(ctx, "16.5")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSections_Filter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, err := s.SavePatch(ctx, Patch{Version: "16.4", ContentHash: "h"}, testBlocks)
	require.NoError(t, err)

	got, err := s.Sections(ctx, "16.4", SectionFilter{Category: patchdoc.CategoryChampions})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2, *got[0].UnitTier)

	got, err = s.Sections(ctx, "16.4", SectionFilter{Size: patchdoc.SizeLarge})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, patchdoc.CategoryTraits, got[0].Category)

	got, err = s.Sections(ctx, "16.4", SectionFilter{Category: patchdoc.CategoryTraits, Size: patchdoc.SizeSmall})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = s.Sections(ctx, "9.9", SectionFilter{})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestListPatches_NewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	for _, v := range []string{"16.9", "15.24", "16.10"} {
		var blocks []patchdoc.Block
		if v == "16.10" {
			blocks = testBlocks
		}
		_, err := s.SavePatch(ctx, Patch{Version: v, ContentHash: v}, blocks)
		require.NoError(t, err)
	}

	got, err := s.ListPatches(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "16.10", got[0].Version)
	assert.Equal(t, 3, got[0].Sections)
	assert.Equal(t, "16.9", got[1].Version)
	assert.Equal(t, "15.24", got[2].Version)
}
