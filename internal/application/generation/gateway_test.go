package generation

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screenplay-ai-api/internal/domain/entity"
	wfmodel "screenplay-ai-api/internal/workflow/model"
	"screenplay-ai-api/internal/workflow/port"
	apperrors "screenplay-ai-api/pkg/errors"
)

type fakeGenerator struct {
	content string
	err     error
	inputs  []*wfmodel.GenerateInput
}

func (f *fakeGenerator) Generate(_ context.Context, in *wfmodel.GenerateInput) (*wfmodel.GenerateOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &wfmodel.GenerateOutput{
		Content: f.content,
		Meta:    wfmodel.LLMUsageMeta{Provider: "fake", PromptTokens: 10, CompletionTokens: 5},
	}, nil
}

type fakeImages struct {
	img    *port.Image
	err    error
	source []byte
}

func (f *fakeImages) Generate(context.Context, string) (*port.Image, error) { return f.img, f.err }

func (f *fakeImages) Edit(_ context.Context, _ string, source []byte) (*port.Image, error) {
	f.source = source
	return f.img, f.err
}

func newGateway(content string) (*Gateway, *fakeGenerator) {
	gen := &fakeGenerator{content: content}
	return New(gen, nil, Options{Provider: "openai", Model: "gpt-4o-mini"}), gen
}

func TestAnalyzeNovel(t *testing.T) {
	g, gen := newGateway("```json\n{\"worldView\":\"近未来港城\",\"mainPlot\":\"寻人\",\"characterCards\":[{\"name\":\"林舟\"},{\"name\":\" \"}]}\n```")

	res, err := g.AnalyzeNovel(context.Background(), "原文")
	require.NoError(t, err)
	assert.Equal(t, "近未来港城", res.Value.WorldView)
	assert.Len(t, res.Value.CharacterCards, 1)
	assert.Equal(t, 10, res.Meta.PromptTokens)

	in := gen.inputs[0]
	assert.Equal(t, "novel_analysis_v1", in.Prompt)
	assert.True(t, in.Structured())
	assert.Equal(t, "openai", in.Provider)
	assert.Equal(t, "原文", in.Vars["novel_text"])
}

func TestFailureKinds(t *testing.T) {
	ctx := context.Background()

	g, _ := newGateway("这不是 JSON")
	_, err := g.AnalyzeNovel(ctx, "x")
	assert.ErrorIs(t, err, ErrInvalidOutput)

	g, _ = newGateway("   ")
	_, err = g.AnalyzeNovel(ctx, "x")
	assert.ErrorIs(t, err, ErrEmptyOutput)

	g, _ = newGateway(`{"worldView":"","mainPlot":"","characterCards":[]}`)
	_, err = g.AnalyzeNovel(ctx, "x")
	assert.ErrorIs(t, err, ErrEmptyOutput)

	boom := errors.New("upstream down")
	g = New(&fakeGenerator{err: boom}, nil, Options{})
	_, err = g.AnalyzeNovel(ctx, "x")
	assert.ErrorIs(t, err, boom)
}

func TestPlanAdaptation_Defaults(t *testing.T) {
	g, gen := newGateway(`[{"title":"","summary":"开端","events":["相遇"]},{"episodeNumber":5,"title":"重逢"},{}]`)

	res, err := g.PlanAdaptation(context.Background(), PlanInput{Title: "夜航船", EpisodeCount: 2})
	require.NoError(t, err)
	require.Len(t, res.Value, 2)

	first := res.Value[0]
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, 1, first.EpisodeNumber)
	assert.Equal(t, "第1集", first.Title)
	assert.Equal(t, []string{}, first.Characters)
	assert.Equal(t, 5, res.Value[1].EpisodeNumber)
	assert.Equal(t, "2", gen.inputs[0].Vars["episode_count"])
}

func TestPlanAdaptation_WrappedAndEmpty(t *testing.T) {
	g, _ := newGateway(`{"episodes":[{"id":"ep-a","title":"一"}]}`)
	res, err := g.PlanAdaptation(context.Background(), PlanInput{})
	require.NoError(t, err)
	assert.Equal(t, "ep-a", res.Value[0].ID)

	g, _ = newGateway(`{"episodes":[]}`)
	_, err = g.PlanAdaptation(context.Background(), PlanInput{})
	assert.ErrorIs(t, err, ErrEmptyOutput)
}

func TestGenerateCharacters_ResolvesRelationshipNames(t *testing.T) {
	g, _ := newGateway(`{
		"characters":[
			{"name":"沈墨","role":"ANTAGONIST","description":"旧友"},
			{"name":"林舟","role":"protagonist"},
			{"name":"阿青","role":"sidekick"}
		],
		"relationships":[
			{"source":"林舟","target":"沈墨","type":"rival"},
			{"source":"沈墨","target":"阿青","type":"boss"},
			{"source":"沈墨","target":"路人","type":"friend"}
		]}`)
	existing := []entity.Character{{ID: "c-lin", Name: "林舟", Role: entity.RoleProtagonist}}

	res, err := g.GenerateCharacters(context.Background(), CharactersInput{Existing: existing})
	require.NoError(t, err)

	require.Len(t, res.Value.Characters, 2)
	shen, qing := res.Value.Characters[0], res.Value.Characters[1]
	assert.Equal(t, entity.RoleAntagonist, shen.Role)
	assert.Equal(t, entity.RoleSupporting, qing.Role)

	require.Len(t, res.Value.Relationships, 2)
	assert.Equal(t, "c-lin", res.Value.Relationships[0].SourceID)
	assert.Equal(t, shen.ID, res.Value.Relationships[0].TargetID)
	assert.Equal(t, entity.RelationTypeRival, res.Value.Relationships[0].Type)
	assert.Equal(t, entity.RelationTypeOther, res.Value.Relationships[1].Type)
}

func TestGenerateScript_NormalizesBlocks(t *testing.T) {
	g, gen := newGateway(`{"blocks":[
		{"type":"SCENE_HEADING","content":"外景 码头 - 夜"},
		{"type":"poem","content":"雨很大。"},
		{"type":"dialogue","content":"  "}
	]}`)
	prev := []entity.ScriptBlock{{ID: "b0", Type: entity.BlockAction, Content: "前情"}}

	res, err := g.GenerateScript(context.Background(), ScriptInput{Section: entity.OutlineSection{Title: "第1集"}, Previous: prev})
	require.NoError(t, err)
	require.Len(t, res.Value, 2)
	assert.Equal(t, entity.BlockSceneHeading, res.Value[0].Type)
	assert.Equal(t, entity.BlockAction, res.Value[1].Type)
	assert.NotEqual(t, res.Value[0].ID, res.Value[1].ID)
	assert.Equal(t, "前情", gen.inputs[0].Vars["previous_block"])
}

func TestGenerateStoryboard_DropsUnknownBlocks(t *testing.T) {
	g, _ := newGateway(`{"shots":[
		{"blockId":"b1","shotType":"特写","imagePrompt":"雨夜码头"},
		{"blockId":"ghost","shotType":"远景"}
	],"rows":[{"visual":"雨落在信纸上","durationSeconds":-3},{"visual":""}]}`)
	script := []entity.ScriptBlock{{ID: "b1", Type: entity.BlockAction, Content: "雨很大。"}}

	res, err := g.GenerateStoryboard(context.Background(), "夜航船", script)
	require.NoError(t, err)
	require.Len(t, res.Value.Shots, 1)
	assert.Equal(t, "特写", res.Value.Shots["b1"].ShotType)
	require.Len(t, res.Value.Rows, 1)
	assert.Equal(t, 1, res.Value.Rows[0].ShotNumber)
	assert.Equal(t, 1, res.Value.Rows[0].SceneNumber)
	assert.Equal(t, 0, res.Value.Rows[0].DurationSeconds)
}

func TestAnalyzeMarket_ClampsScore(t *testing.T) {
	g, _ := newGateway(`{"targetAudience":"18-30 女性","commercialScore":140}`)
	res, err := g.AnalyzeMarket(context.Background(), MarketInput{})
	require.NoError(t, err)
	assert.Equal(t, 100, res.Value.CommercialScore)
	assert.Equal(t, []string{}, res.Value.Risks)

	g, _ = newGateway(`{"commercialScore":50}`)
	_, err = g.AnalyzeMarket(context.Background(), MarketInput{})
	assert.ErrorIs(t, err, ErrInvalidOutput)
}

func TestRewriteBlock_PlainText(t *testing.T) {
	g, gen := newGateway("  「门缓缓打开。」 ")
	res, err := g.RewriteBlock(context.Background(), RewriteInput{
		Block:       entity.ScriptBlock{Type: entity.BlockAction, Content: "门开了。"},
		Instruction: "更有悬念",
	})
	require.NoError(t, err)
	assert.Equal(t, "门缓缓打开。", res.Value)
	assert.False(t, gen.inputs[0].Structured())
}

func TestChat(t *testing.T) {
	g, gen := newGateway(`{"reply":"可以把标题改短一些","actions":[{"label":"","ops":[{"op":"replace","path":"/title","value":"夜航"}]},{"label":"空","ops":[]}]}`)
	history := []wfmodel.ChatTurn{{Role: "user", Content: "你好"}, {Role: "assistant", Content: "你好"}}

	res, err := g.Chat(context.Background(), ChatInput{ProjectJSON: "{}", AllowedPaths: []string{"/title"}, Message: "标题怎么样", History: history})
	require.NoError(t, err)
	assert.Equal(t, "可以把标题改短一些", res.Value.Reply)
	require.Len(t, res.Value.Actions, 1)
	assert.Equal(t, "应用修改", res.Value.Actions[0].Label)
	assert.JSONEq(t, `"夜航"`, string(res.Value.Actions[0].Ops[0].Value))
	assert.Len(t, gen.inputs[0].History, 2)

	g, _ = newGateway("直接给出的文字回复")
	res, err = g.Chat(context.Background(), ChatInput{Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "直接给出的文字回复", res.Value.Reply)
	assert.Empty(t, res.Value.Actions)
}

func TestImages(t *testing.T) {
	ctx := context.Background()

	g, _ := newGateway("")
	assert.False(t, g.ImagesEnabled())
	_, err := g.GenerateImage(ctx, "雨夜码头")
	assert.ErrorIs(t, err, ErrNoImage)

	imgs := &fakeImages{}
	g = New(&fakeGenerator{}, imgs, Options{})
	_, err = g.GenerateImage(ctx, "雨夜码头")
	assert.ErrorIs(t, err, ErrNoImage)
	assert.True(t, IsRecoverable(err))

	imgs.img = &port.Image{Data: "aGVsbG8=", MimeType: "image/png"}
	res, err := g.EditImage(ctx, "加一把伞", "data:image/png;base64,"+base64.StdEncoding.EncodeToString([]byte("src")))
	require.NoError(t, err)
	assert.Equal(t, "aGVsbG8=", res.Value.Data)
	assert.Equal(t, []byte("src"), imgs.source)

	_, err = g.EditImage(ctx, "加一把伞", "%%%")
	assert.ErrorIs(t, err, ErrInvalidOutput)
}

func TestToAppError(t *testing.T) {
	assert.Nil(t, ToAppError(OpChat, nil))
	assert.True(t, apperrors.HasCode(ToAppError(OpGenerateImage, ErrNoImage), apperrors.CodeImageUnavailable))
	assert.True(t, apperrors.HasCode(ToAppError(OpChat, context.DeadlineExceeded), apperrors.CodeTimeout))

	err := ToAppError(OpGenerateScript, ErrInvalidOutput)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeGenerationFailed))
	assert.ErrorIs(t, err, ErrInvalidOutput)

	already := apperrors.New(apperrors.CodeInvalidParam, "bad")
	assert.Same(t, already, ToAppError(OpChat, already))
}
