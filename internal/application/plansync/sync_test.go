package plansync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screenplay-ai-api/internal/application/projectstore"
	"screenplay-ai-api/internal/domain/entity"
	"screenplay-ai-api/internal/infrastructure/persistence/memory"
	apperrors "screenplay-ai-api/pkg/errors"
)

func samplePlan() []entity.AdaptationEpisode {
	return []entity.AdaptationEpisode{
		{
			ID: "ep2", EpisodeNumber: 2, Title: "追查", Summary: "林舟发现线索",
			Events:   []string{"林舟在旧码头找到一封被雨水泡过的信，信上的字迹与妹妹的一模一样"},
			Emotions: []string{"疑惑", "紧张"},
		},
		{
			ID: "ep1", EpisodeNumber: 1, Title: "失踪", Summary: "妹妹失踪",
			Events:   []string{"雨夜", "报警无果"},
			Emotions: []string{"不安"},
		},
	}
}

func TestSync_OneSectionPerEpisodeInOrder(t *testing.T) {
	res := Sync(samplePlan())

	require.Len(t, res.Outline, 2)
	assert.Equal(t, "ep1", res.Outline[0].ID)
	assert.Equal(t, "失踪", res.Outline[0].Title)
	assert.Equal(t, "妹妹失踪", res.Outline[0].Content)
	assert.Equal(t, "不安", res.Outline[0].EmotionalArc)
	assert.Equal(t, []string{}, res.Outline[0].Scenes)
	assert.Equal(t, "疑惑 / 紧张", res.Outline[1].EmotionalArc)

	require.Len(t, res.PlotEvents, 3)
	assert.Equal(t, "ep1-evt-0", res.PlotEvents[0].ID)
	assert.Equal(t, "ep1", res.PlotEvents[0].ActID)
	assert.Equal(t, entity.PlotlineMain, res.PlotEvents[0].Plotline)
	assert.Equal(t, entity.DefaultTension, res.PlotEvents[0].Tension)
	assert.Equal(t, "雨夜", res.PlotEvents[0].Title)

	long := res.PlotEvents[2]
	assert.Equal(t, "ep2-evt-0", long.ID)
	assert.Equal(t, "林舟在旧码头找到一封被雨水泡过的信，信上...", long.Title)
	assert.Equal(t, samplePlan()[0].Events[0], long.Description)
}

func TestSync_IsIdempotent(t *testing.T) {
	first := Sync(samplePlan())
	second := Sync(samplePlan())
	assert.Equal(t, first, second)
}

func TestSync_FallbackSectionIDs(t *testing.T) {
	res := Sync([]entity.AdaptationEpisode{
		{EpisodeNumber: 1, Events: []string{"a"}},
		{ID: "dup", EpisodeNumber: 2},
		{ID: "dup", EpisodeNumber: 3},
	})
	assert.Equal(t, "ep-1", res.Outline[0].ID)
	assert.Equal(t, "ep-1-evt-0", res.PlotEvents[0].ID)
	assert.Equal(t, "dup", res.Outline[1].ID)
	assert.Equal(t, "dup-2", res.Outline[2].ID)
}

func TestSync_Empty(t *testing.T) {
	res := Sync(nil)
	assert.Empty(t, res.Outline)
	assert.NotNil(t, res.PlotEvents)
}

func TestSyncProject_ReplacesMatrixAndRestoresMainPlotline(t *testing.T) {
	ctx := context.Background()
	store := projectstore.New(memory.NewSnapshotRepo(), projectstore.Options{})
	store.Hydrate(ctx)
	p := store.Create(ctx, "x")

	_, err := SyncProject(ctx, store, p.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidParam))

	plan := samplePlan()
	_, err = store.ApplyPatch(ctx, p.ID, entity.ProjectPatch{NovelAdaptationPlan: &plan})
	require.NoError(t, err)
	_, err = store.AddOutlineSection(ctx, p.ID, entity.OutlineSection{Title: "手动段落"})
	require.NoError(t, err)
	_, err = store.DeletePlotline(ctx, p.ID, entity.PlotlineMain)
	require.NoError(t, err)

	got, err := SyncProject(ctx, store, p.ID)
	require.NoError(t, err)
	require.Len(t, got.Outline, 2)
	assert.Equal(t, "ep1", got.Outline[0].ID)
	assert.Len(t, got.PlotEvents, 3)
	assert.GreaterOrEqual(t, got.FindPlotline(entity.PlotlineMain), 0)

	again, err := SyncProject(ctx, store, p.ID)
	require.NoError(t, err)
	assert.Equal(t, got.Outline, again.Outline)
	assert.Equal(t, got.PlotEvents, again.PlotEvents)
	assert.Greater(t, again.UpdatedAt, got.UpdatedAt)
}
