package projectstore

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screenplay-ai-api/internal/domain/entity"
	"screenplay-ai-api/internal/infrastructure/persistence/memory"
	apperrors "screenplay-ai-api/pkg/errors"
)

// fixedClock 返回一个不会前进的时钟，用来验证 updatedAt 的严格递增
func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func newTestStore(t *testing.T) (*Store, *memory.SnapshotRepo) {
	t.Helper()
	repo := memory.NewSnapshotRepo()
	s := New(repo, Options{Now: fixedClock(1_000)})
	s.Hydrate(context.Background())
	return s, repo
}

func loadSnapshot(t *testing.T, repo *memory.SnapshotRepo) []entity.Project {
	t.Helper()
	raw, err := repo.Load(context.Background(), DefaultProjectsKey)
	require.NoError(t, err)
	var out []entity.Project
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestCreate_NewProjectIsActiveAndPersisted(t *testing.T) {
	s, repo := newTestStore(t)
	ctx := context.Background()

	first := s.Create(ctx, "")
	second := s.Create(ctx, "第二个")

	assert.Equal(t, entity.DefaultProjectTitle, first.Title)
	assert.Equal(t, second.ID, s.ActiveID())

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)

	snap := loadSnapshot(t, repo)
	require.Len(t, snap, 2)
	assert.Equal(t, second.ID, snap[0].ID)
	assert.Equal(t, []entity.Character{}, snap[0].Characters)

	active, err := repo.Load(ctx, DefaultActiveKey)
	require.NoError(t, err)
	assert.Equal(t, second.ID, string(active))
}

func TestMutate_UpdatedAtStrictlyIncreases(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	p := s.Create(ctx, "x")

	prev := p.UpdatedAt
	for i := 0; i < 5; i++ {
		next, err := s.ApplyPatch(ctx, p.ID, entity.ProjectPatch{Logline: entity.Ptr("第" + string(rune('a'+i)))})
		require.NoError(t, err)
		assert.Greater(t, next.UpdatedAt, prev)
		prev = next.UpdatedAt
	}
}

func TestMutate_UsesClockWhenAhead(t *testing.T) {
	repo := memory.NewSnapshotRepo()
	now := int64(1_000)
	s := New(repo, Options{Now: func() time.Time { return time.UnixMilli(now) }})
	ctx := context.Background()
	p := s.Create(ctx, "x")

	now = 5_000
	next, err := s.ApplyPatch(ctx, p.ID, entity.ProjectPatch{Genre: entity.Ptr("悬疑")})
	require.NoError(t, err)
	assert.Equal(t, int64(5_000), next.UpdatedAt)
	assert.Equal(t, int64(1_000), next.CreatedAt)
}

func TestMutate_FailureLeavesProjectUnchanged(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	p := s.Create(ctx, "x")

	boom := errors.New("boom")
	_, err := s.Mutate(ctx, p.ID, func(cur *entity.Project) (entity.ProjectPatch, error) {
		cur.Title = "被修改的副本"
		return entity.ProjectPatch{}, boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.Get(p.ID)
	require.NoError(t, err)
	assert.Equal(t, "x", got.Title)
	assert.Equal(t, p.UpdatedAt, got.UpdatedAt)
}

func TestMutate_EmptyPatchIsNoop(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	p := s.Create(ctx, "x")

	got, err := s.ApplyPatch(ctx, p.ID, entity.ProjectPatch{})
	require.NoError(t, err)
	assert.Equal(t, p.UpdatedAt, got.UpdatedAt)
}

func TestMutate_InvalidPatchRejected(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	p := s.Create(ctx, "x")

	chars := []entity.Character{{ID: "dup", Name: "甲"}, {ID: "dup", Name: "乙"}}
	_, err := s.ApplyPatch(ctx, p.ID, entity.ProjectPatch{Characters: &chars})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))

	got, _ := s.Get(p.ID)
	assert.Empty(t, got.Characters)
}

func TestMutate_UnknownProject(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.ApplyPatch(context.Background(), "missing", entity.ProjectPatch{Title: entity.Ptr("t")})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeProjectNotFound))
}

func TestMutate_PatchCascades(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	p := s.Create(ctx, "x")

	chars := []entity.Character{{ID: "a", Name: "甲"}, {ID: "b", Name: "乙"}}
	rels := []entity.CharacterRelationship{{ID: "r1", SourceID: "a", TargetID: "b"}}
	_, err := s.ApplyPatch(ctx, p.ID, entity.ProjectPatch{Characters: &chars, Relationships: &rels})
	require.NoError(t, err)

	only := []entity.Character{{ID: "a", Name: "甲"}}
	got, err := s.ApplyPatch(ctx, p.ID, entity.ProjectPatch{Characters: &only})
	require.NoError(t, err)
	assert.Empty(t, got.Relationships)
}

func TestMutate_PersistFailureDoesNotBlock(t *testing.T) {
	s, repo := newTestStore(t)
	ctx := context.Background()
	p := s.Create(ctx, "x")

	repo.FailSave = errors.New("disk full")
	got, err := s.ApplyPatch(ctx, p.ID, entity.ProjectPatch{Title: entity.Ptr("新标题")})
	require.NoError(t, err)
	assert.Equal(t, "新标题", got.Title)

	repo.FailSave = nil
	snap := loadSnapshot(t, repo)
	assert.Equal(t, "x", snap[0].Title)
}

func TestMutate_NotifiesListeners(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	var changes []entity.ProjectChange
	s.Subscribe(ChangeListenerFunc(func(_ context.Context, c entity.ProjectChange) {
		changes = append(changes, c)
	}))

	p := s.Create(ctx, "x")
	_, err := s.ApplyPatch(ctx, p.ID, entity.ProjectPatch{Title: entity.Ptr("y"), Genre: entity.Ptr("z")})
	require.NoError(t, err)
	_, err = s.ApplyPatch(ctx, p.ID, entity.ProjectPatch{})
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, p.ID))

	require.Len(t, changes, 3)
	assert.Equal(t, entity.ChangeCreated, changes[0].Kind)
	assert.Equal(t, entity.ChangeUpdated, changes[1].Kind)
	assert.Equal(t, []string{"title", "genre"}, changes[1].Fields)
	assert.Equal(t, entity.ChangeDeleted, changes[2].Kind)
}

func TestHydrate_RestoresSnapshot(t *testing.T) {
	s, repo := newTestStore(t)
	ctx := context.Background()
	a := s.Create(ctx, "a")
	b := s.Create(ctx, "b")
	require.NoError(t, s.SetActive(ctx, a.ID))

	reloaded := New(repo, Options{})
	reloaded.Hydrate(ctx)

	list := reloaded.List()
	require.Len(t, list, 2)
	assert.Equal(t, b.ID, list[0].ID)
	assert.Equal(t, a.ID, reloaded.ActiveID())
}

func TestHydrate_CorruptSnapshotStartsEmpty(t *testing.T) {
	repo := memory.NewSnapshotRepo()
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, DefaultProjectsKey, []byte("{not json")))

	s := New(repo, Options{})
	s.Hydrate(ctx)

	assert.Empty(t, s.List())
	assert.Equal(t, "", s.ActiveID())
	_, err := s.Active()
	assert.True(t, apperrors.HasCode(err, apperrors.CodeProjectNotFound))
}

func TestHydrate_NormalizesLegacyProjects(t *testing.T) {
	repo := memory.NewSnapshotRepo()
	ctx := context.Background()
	legacy := `[{"id":"p1","title":"旧项目","plotEvents":[{"id":"e1","actId":"gone","plotline":"main"}]}]`
	require.NoError(t, repo.Save(ctx, DefaultProjectsKey, []byte(legacy)))

	s := New(repo, Options{})
	s.Hydrate(ctx)

	p, err := s.Get("p1")
	require.NoError(t, err)
	assert.Len(t, p.DefinedPlotlines, 4)
	require.Len(t, p.PlotEvents, 1)
	assert.False(t, p.PlotEvents[0].Scheduled())
	assert.Equal(t, entity.DefaultTension, p.PlotEvents[0].Tension)
	assert.Equal(t, "p1", s.ActiveID())
}

func TestImport_AssignsFreshIDOnCollision(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	p := s.Create(ctx, "x")

	imported, err := s.Import(ctx, p)
	require.NoError(t, err)
	assert.NotEqual(t, p.ID, imported.ID)
	assert.Len(t, s.List(), 2)
}

func TestDelete_MovesActive(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	a := s.Create(ctx, "a")
	b := s.Create(ctx, "b")

	require.NoError(t, s.Delete(ctx, b.ID))
	assert.Equal(t, a.ID, s.ActiveID())

	require.NoError(t, s.Delete(ctx, a.ID))
	assert.Equal(t, "", s.ActiveID())

	err := s.Delete(ctx, a.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeProjectNotFound))
}
