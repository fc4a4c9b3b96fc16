package studio

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Conceptual-Machines/songsmith-api/internal/catalog"
	"github.com/Conceptual-Machines/songsmith-api/internal/models"
	"github.com/Conceptual-Machines/songsmith-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyStore fails project writes while failProjects is set
type flakyStore struct {
	store.Adapter
	failProjects atomic.Bool
	writes       atomic.Int32
}

func (s *flakyStore) SetProjects(ctx context.Context, projects []*models.Project) error {
	s.writes.Add(1)
	if s.failProjects.Load() {
		return &store.PersistenceFailure{Op: "set", Key: "projects", Err: errors.New("quota exceeded")}
	}
	return s.Adapter.SetProjects(ctx, projects)
}

func newTestService(t *testing.T) (*Service, *flakyStore) {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)

	st := &flakyStore{Adapter: store.NewKVAdapter(store.NewMemoryKV(), nil, "")}
	svc := NewService(st, cat)
	var n atomic.Int64
	svc.newID = func() string { return fmt.Sprintf("id-%d", n.Add(1)) }
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return svc, st
}

func createProject(t *testing.T, svc *Service) *models.Project {
	t.Helper()
	p, err := svc.CreateProject(context.Background(), models.ProjectSeed{Title: "Neon", Genre: "K-Pop", Mood: "Energetic"})
	require.NoError(t, err)
	return p
}

func withBlocks(t *testing.T, svc *Service, id string, types ...string) *models.Project {
	t.Helper()
	blocks := make([]models.SongBlock, len(types))
	for i, bt := range types {
		blocks[i] = models.SongBlock{ID: fmt.Sprintf("b%d", i), Type: bt, Description: bt + " part", Duration: 8}
	}
	p, err := svc.UpdateProject(context.Background(), id, models.ProjectPatch{Structure: blocks})
	require.NoError(t, err)
	return p
}

func blockIDs(p *models.Project) []string {
	ids := make([]string, len(p.Structure))
	for i, b := range p.Structure {
		ids[i] = b.ID
	}
	return ids
}

func TestCreateProject(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		seed  models.ProjectSeed
		field string
	}{
		{"missing title", models.ProjectSeed{Genre: "K-Pop", Mood: "Happy"}, "title"},
		{"missing genre", models.ProjectSeed{Title: "x", Mood: "Happy"}, "genre"},
		{"blank mood", models.ProjectSeed{Title: "x", Genre: "K-Pop", Mood: "  "}, "mood"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateProject(ctx, tt.seed)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}

	first := createProject(t, svc)
	assert.Equal(t, "Male", first.VocalType)
	assert.Equal(t, int64(1700000000000), first.CreatedAt)
	assert.Equal(t, svc.Catalog().DefaultInstruments("K-Pop"), first.Instruments)
	assert.Nil(t, first.SelectedLyricVariationIndex)

	second := createProject(t, svc)
	list := svc.List()
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}

func TestUpdateProject_ShallowMerge(t *testing.T) {
	svc, _ := newTestService(t)
	p := createProject(t, svc)
	ctx := context.Background()

	concept := "late night city drive"
	bpm := 120
	updated, err := svc.UpdateProject(ctx, p.ID, models.ProjectPatch{
		Concept:     &concept,
		BPM:         &bpm,
		Instruments: []string{"Guitar"},
	})
	require.NoError(t, err)
	assert.Equal(t, concept, updated.Concept)
	assert.Equal(t, 120, updated.BPM)
	assert.Equal(t, []string{"Guitar"}, updated.Instruments)
	assert.Equal(t, p.Title, updated.Title)
	assert.Equal(t, p.Mood, updated.Mood)

	empty := " "
	_, err = svc.UpdateProject(ctx, p.ID, models.ProjectPatch{Title: &empty})
	assert.True(t, IsValidation(err))

	_, err = svc.UpdateProject(ctx, "missing", models.ProjectPatch{Concept: &concept})
	assert.ErrorIs(t, err, ErrProjectNotFound)

	_, err = svc.UpdateProject(ctx, p.ID, models.ProjectPatch{Structure: []models.SongBlock{{Type: "Solo"}}})
	assert.True(t, IsValidation(err))
}

func TestUpdateProject_ReplacingVariationsResetsIndex(t *testing.T) {
	svc, _ := newTestService(t)
	p := createProject(t, svc)
	ctx := context.Background()

	_, err := svc.ReplaceVariations(ctx, p.ID, variations(3))
	require.NoError(t, err)
	_, err = svc.ApplyVariation(ctx, p.ID, 1)
	require.NoError(t, err)

	updated, err := svc.UpdateProject(ctx, p.ID, models.ProjectPatch{LyricVariations: variations(5)})
	require.NoError(t, err)
	assert.Nil(t, updated.SelectedLyricVariationIndex)
	assert.Len(t, updated.LyricVariations, 5)
}

func variations(n int) []models.LyricVariation {
	out := make([]models.LyricVariation, n)
	for i := range out {
		out[i] = models.LyricVariation{
			Title:     fmt.Sprintf("Take %d", i),
			Rationale: "angle",
			Lyrics:    fmt.Sprintf("[Verse]\nlyrics %d", i),
		}
	}
	return out
}

func TestApplyVariation(t *testing.T) {
	svc, _ := newTestService(t)
	p := createProject(t, svc)
	ctx := context.Background()

	_, err := svc.ReplaceVariations(ctx, p.ID, variations(5))
	require.NoError(t, err)

	for _, i := range []int{0, 4, 2} {
		updated, err := svc.ApplyVariation(ctx, p.ID, i)
		require.NoError(t, err)
		require.NotNil(t, updated.SelectedLyricVariationIndex)
		assert.Equal(t, i, *updated.SelectedLyricVariationIndex)
		assert.Equal(t, updated.LyricVariations[i].Lyrics, updated.Lyrics)
	}

	before, err := svc.Get(p.ID)
	require.NoError(t, err)
	for _, bad := range []int{-1, 5, 99} {
		_, err := svc.ApplyVariation(ctx, p.ID, bad)
		assert.True(t, IsValidation(err), "index %d", bad)
	}
	after, err := svc.Get(p.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestReplaceVariations_AlwaysResetsIndex(t *testing.T) {
	svc, _ := newTestService(t)
	p := createProject(t, svc)
	ctx := context.Background()

	_, err := svc.ReplaceVariations(ctx, p.ID, variations(5))
	require.NoError(t, err)
	_, err = svc.ApplyVariation(ctx, p.ID, 0)
	require.NoError(t, err)

	// Index 0 would still be valid for the new list
	updated, err := svc.ReplaceVariations(ctx, p.ID, variations(5))
	require.NoError(t, err)
	assert.Nil(t, updated.SelectedLyricVariationIndex)
}

func TestReorderBlock(t *testing.T) {
	svc, _ := newTestService(t)
	p := createProject(t, svc)
	p = withBlocks(t, svc, p.ID, models.BlockIntro, models.BlockVerse, models.BlockChorus, models.BlockBridge, models.BlockOutro)
	before := blockIDs(p)

	tests := []struct{ from, to int }{{0, 4}, {1, 3}, {2, 2}, {3, 0}}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d-%d", tt.from, tt.to), func(t *testing.T) {
			current, err := svc.Get(p.ID)
			require.NoError(t, err)
			ids := blockIDs(current)

			updated, err := svc.ReorderBlock(context.Background(), p.ID, tt.from, tt.to)
			require.NoError(t, err)
			got := blockIDs(updated)

			assert.ElementsMatch(t, before, got)
			for i := range ids {
				switch i {
				case tt.from:
					assert.Equal(t, ids[tt.to], got[i])
				case tt.to:
					assert.Equal(t, ids[tt.from], got[i])
				default:
					assert.Equal(t, ids[i], got[i])
				}
			}
		})
	}

	_, err := svc.ReorderBlock(context.Background(), p.ID, 0, 5)
	assert.True(t, IsValidation(err))
}

func TestMoveBlock(t *testing.T) {
	svc, _ := newTestService(t)
	p := createProject(t, svc)
	withBlocks(t, svc, p.ID, models.BlockIntro, models.BlockVerse, models.BlockOutro)
	ctx := context.Background()

	updated, err := svc.MoveBlock(ctx, p.ID, 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"b0", "b1", "b2"}, blockIDs(updated))

	updated, err = svc.MoveBlock(ctx, p.ID, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"b0", "b1", "b2"}, blockIDs(updated))

	updated, err = svc.MoveBlock(ctx, p.ID, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"b1", "b0", "b2"}, blockIDs(updated))

	_, err = svc.MoveBlock(ctx, p.ID, 0, 2)
	assert.True(t, IsValidation(err))
}

func TestInsertBlock(t *testing.T) {
	svc, _ := newTestService(t)
	p := createProject(t, svc)
	withBlocks(t, svc, p.ID, models.BlockVerse, models.BlockChorus)
	ctx := context.Background()

	updated, err := svc.InsertBlock(ctx, p.ID, 0, models.SongBlock{Type: models.BlockIntro})
	require.NoError(t, err)
	require.Len(t, updated.Structure, 3)
	intro := updated.Structure[0]
	assert.Equal(t, models.BlockIntro, intro.Type)
	assert.Equal(t, 4, intro.Duration)
	assert.Equal(t, svc.Catalog().BlockSamples[models.BlockIntro][0], intro.Description)
	assert.NotEmpty(t, intro.ID)
	assert.Equal(t, []string{"b0", "b1"}, blockIDs(updated)[1:])

	updated, err = svc.InsertBlock(ctx, p.ID, 99, models.SongBlock{Type: models.BlockBridge, Description: "key change"})
	require.NoError(t, err)
	last := updated.Structure[len(updated.Structure)-1]
	assert.Equal(t, "key change", last.Description)
	assert.Equal(t, 8, last.Duration)

	_, err = svc.InsertBlock(ctx, p.ID, 0, models.SongBlock{Type: "Solo"})
	assert.True(t, IsValidation(err))
}

func TestRemoveAndDescribeBlock(t *testing.T) {
	svc, _ := newTestService(t)
	p := createProject(t, svc)
	withBlocks(t, svc, p.ID, models.BlockIntro, models.BlockVerse, models.BlockChorus)
	ctx := context.Background()

	updated, err := svc.RemoveBlock(ctx, p.ID, "b1")
	require.NoError(t, err)
	assert.Equal(t, []string{"b0", "b2"}, blockIDs(updated))

	_, err = svc.RemoveBlock(ctx, p.ID, "b1")
	assert.ErrorIs(t, err, ErrBlockNotFound)

	updated, err = svc.UpdateBlockDescription(ctx, p.ID, "b2", "massive hook")
	require.NoError(t, err)
	assert.Equal(t, "massive hook", updated.Structure[1].Description)
	assert.Equal(t, "b0", updated.Structure[0].ID)
}

func TestApplyTemplate(t *testing.T) {
	svc, _ := newTestService(t)
	p := createProject(t, svc)
	ctx := context.Background()

	tmpl := svc.Catalog().Templates[0]
	updated, err := svc.ApplyTemplate(ctx, p.ID, tmpl.Name)
	require.NoError(t, err)
	require.Len(t, updated.Structure, len(tmpl.Blocks))
	seen := map[string]bool{}
	for i, b := range updated.Structure {
		assert.Equal(t, tmpl.Blocks[i].Type, b.Type)
		assert.False(t, seen[b.ID])
		seen[b.ID] = true
	}

	_, err = svc.ApplyTemplate(ctx, p.ID, "Polka")
	assert.ErrorIs(t, err, ErrTemplateUnknown)
}

func TestImportAndRemix(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.ImportProject(ctx, &models.Project{Title: "no id"})
	assert.True(t, IsValidation(err))

	bad := 7
	imported, err := svc.ImportProject(ctx, &models.Project{
		ID:                          "exported",
		Title:                       "Old Song",
		Genre:                       "Ballad",
		LyricVariations:             variations(2),
		SelectedLyricVariationIndex: &bad,
	})
	require.NoError(t, err)
	assert.NotEqual(t, "exported", imported.ID)
	assert.Nil(t, imported.SelectedLyricVariationIndex)

	remix, err := svc.RemixProject(ctx, imported.ID)
	require.NoError(t, err)
	assert.Equal(t, "Old Song (Remix)", remix.Title)
	assert.NotEqual(t, imported.ID, remix.ID)
	assert.Equal(t, remix.ID, svc.List()[0].ID)

	_, err = svc.RemixProject(ctx, "missing")
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestDeleteProject(t *testing.T) {
	svc, _ := newTestService(t)
	p := createProject(t, svc)
	ctx := context.Background()

	require.NoError(t, svc.DeleteProject(ctx, p.ID))
	assert.Empty(t, svc.List())
	assert.ErrorIs(t, svc.DeleteProject(ctx, p.ID), ErrProjectNotFound)
}

func TestPersistenceFailureKeepsInMemoryState(t *testing.T) {
	svc, st := newTestService(t)
	p := createProject(t, svc)
	st.failProjects.Store(true)

	concept := "offline edit"
	updated, err := svc.UpdateProject(context.Background(), p.ID, models.ProjectPatch{Concept: &concept})
	require.Error(t, err)
	assert.True(t, store.IsPersistenceFailure(err))
	require.NotNil(t, updated)
	assert.Equal(t, concept, updated.Concept)

	current, err := svc.Get(p.ID)
	require.NoError(t, err)
	assert.Equal(t, concept, current.Concept)
}

func TestStoreRoundTrip(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	p := createProject(t, svc)
	withBlocks(t, svc, p.ID, models.BlockIntro, models.BlockChorus)
	_, err := svc.ReplaceVariations(ctx, p.ID, variations(5))
	require.NoError(t, err)
	_, err = svc.ApplyVariation(ctx, p.ID, 3)
	require.NoError(t, err)

	reloaded := NewService(st, svc.Catalog())
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, svc.List(), reloaded.List())
}

func TestSettings(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	prompts, err := svc.SamplePrompts(ctx)
	require.NoError(t, err)
	assert.Equal(t, svc.Catalog().SamplePrompts, prompts)

	require.NoError(t, svc.SetSamplePrompts(ctx, []models.SamplePrompt{}))
	prompts, err = svc.SamplePrompts(ctx)
	require.NoError(t, err)
	assert.Empty(t, prompts)

	assert.True(t, IsValidation(svc.SetSamplePrompts(ctx, []models.SamplePrompt{{Label: "x"}})))

	presets, err := svc.InstrumentPresets(ctx)
	require.NoError(t, err)
	assert.Empty(t, presets)
	require.NoError(t, svc.SetInstrumentPresets(ctx, []models.InstrumentPreset{{Name: "Trio", Instruments: []string{"Piano"}}}))
	presets, err = svc.InstrumentPresets(ctx)
	require.NoError(t, err)
	assert.Len(t, presets, 1)

	require.NoError(t, svc.SetLegibility(ctx, true))
	on, err := svc.Legibility(ctx)
	require.NoError(t, err)
	assert.True(t, on)
}
