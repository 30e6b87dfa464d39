package copilot

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screenplay-ai-api/internal/application/generation"
	"screenplay-ai-api/internal/application/projectstore"
	"screenplay-ai-api/internal/domain/entity"
	"screenplay-ai-api/internal/infrastructure/persistence/memory"
	wfmodel "screenplay-ai-api/internal/workflow/model"
	apperrors "screenplay-ai-api/pkg/errors"
)

type cannedGenerator struct {
	content string
	last    *wfmodel.GenerateInput
}

func (g *cannedGenerator) Generate(_ context.Context, in *wfmodel.GenerateInput) (*wfmodel.GenerateOutput, error) {
	g.last = in
	return &wfmodel.GenerateOutput{Content: g.content}, nil
}

func op(o, path string, v any) generation.PatchOp {
	raw, _ := json.Marshal(v)
	return generation.PatchOp{Op: o, Path: path, Value: raw}
}

func setup(t *testing.T, reply string) (*Service, *projectstore.Store, *cannedGenerator, string) {
	t.Helper()
	store := projectstore.New(memory.NewSnapshotRepo(), projectstore.Options{})
	gen := &cannedGenerator{content: reply}
	svc := NewService(store, generation.New(gen, nil, generation.Options{}))
	p := store.Create(context.Background(), "夜航船")
	return svc, store, gen, p.ID
}

func TestValidateOps(t *testing.T) {
	touched, err := ValidateOps([]generation.PatchOp{
		op("replace", "/title", "新"),
		op("add", "/characters/-", map[string]string{"name": "阿青"}),
		op("add", "/characters/0/name", "甲"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"/title", "/characters"}, touched)

	cases := map[string][]generation.PatchOp{
		"empty":         nil,
		"remove":        {op("remove", "/title", "x")},
		"script":        {op("replace", "/script", []string{})},
		"novel":         {op("replace", "/novelFullText", "x")},
		"relative":      {op("replace", "title", "x")},
		"missing value": {{Op: "replace", Path: "/title"}},
	}
	for name, ops := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ValidateOps(ops)
			assert.True(t, apperrors.HasCode(err, apperrors.CodePatchRejected))
		})
	}
}

func TestApply_AddsCharacterWithID(t *testing.T) {
	svc, _, _, pid := setup(t, "")
	ctx := context.Background()

	p, err := svc.Apply(ctx, pid, []generation.PatchOp{
		op("replace", "/logline", "一封信牵出旧案"),
		op("add", "/characters/-", map[string]string{"name": "阿青", "role": "supporting"}),
	})
	require.NoError(t, err)
	assert.Equal(t, "一封信牵出旧案", p.Logline)
	require.Len(t, p.Characters, 1)
	assert.NotEmpty(t, p.Characters[0].ID)
	assert.Equal(t, "夜航船", p.Title)
}

func TestApply_RejectedLeavesProjectUnchanged(t *testing.T) {
	svc, store, _, pid := setup(t, "")
	ctx := context.Background()
	before, err := store.Get(pid)
	require.NoError(t, err)

	_, err = svc.Apply(ctx, pid, []generation.PatchOp{
		op("replace", "/title", "新标题"),
		op("replace", "/script", []string{}),
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodePatchRejected))

	_, err = svc.Apply(ctx, pid, []generation.PatchOp{op("replace", "/characters/5/name", "x")})
	assert.True(t, apperrors.HasCode(err, apperrors.CodePatchRejected))

	_, err = svc.Apply(ctx, pid, []generation.PatchOp{op("add", "/plotEvents/-", map[string]string{"title": "开场", "actId": "ghost"})})
	assert.True(t, apperrors.HasCode(err, apperrors.CodePatchRejected))

	after, err := store.Get(pid)
	require.NoError(t, err)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
	assert.Equal(t, "夜航船", after.Title)
}

func TestApply_NewEventDefaultsToMainPlotline(t *testing.T) {
	svc, store, _, pid := setup(t, "")
	ctx := context.Background()
	sec, err := store.AddOutlineSection(ctx, pid, entity.OutlineSection{Title: "第1集"})
	require.NoError(t, err)

	p, err := svc.Apply(ctx, pid, []generation.PatchOp{op("add", "/plotEvents/-", map[string]any{"title": "开场", "actId": sec.ID, "tension": 7})})
	require.NoError(t, err)
	require.Len(t, p.PlotEvents, 1)
	assert.Equal(t, entity.PlotlineMain, p.PlotEvents[0].Plotline)
	assert.Equal(t, 7, p.PlotEvents[0].Tension)
}

func TestChat_FiltersActions(t *testing.T) {
	reply := `{"reply":"建议改标题","actions":[
		{"label":"改标题","ops":[{"op":"replace","path":"/title","value":"夜航"}]},
		{"label":"删剧本","ops":[{"op":"replace","path":"/script","value":[]}]}
	]}`
	svc, _, gen, pid := setup(t, reply)

	got, err := svc.Chat(context.Background(), pid, "标题太长了", []wfmodel.ChatTurn{{Role: "user", Content: "你好"}})
	require.NoError(t, err)
	assert.Equal(t, "建议改标题", got.Reply)
	require.Len(t, got.Actions, 1)
	assert.NotEmpty(t, got.Actions[0].ID)
	assert.Contains(t, gen.last.Vars["project_block"], `"title":"夜航船"`)
	assert.Len(t, gen.last.History, 1)

	_, err = svc.Chat(context.Background(), pid, " ", nil)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidParam))
}
