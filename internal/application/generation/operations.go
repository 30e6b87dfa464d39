package generation

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"screenplay-ai-api/internal/domain/entity"
	wfmodel "screenplay-ai-api/internal/workflow/model"
	wfnode "screenplay-ai-api/internal/workflow/node"
	workflowprompt "screenplay-ai-api/internal/workflow/prompt"
)

// AnalyzeNovel 原著深度分析
func (g *Gateway) AnalyzeNovel(ctx context.Context, novelText string) (*Result[entity.NovelDeepAnalysis], error) {
	out, err := g.call(ctx, request{
		op:         OpAnalyzeNovel,
		prompt:     workflowprompt.PromptNovelAnalysisV1,
		vars:       map[string]any{"novel_text": g.limit(novelText)},
		schemaName: "novel_analysis",
		schema:     novelAnalysisSchema(),
	})
	if err != nil {
		return nil, err
	}

	a, err := decode[entity.NovelDeepAnalysis](out.Content)
	if err != nil {
		return nil, err
	}
	a.WorldView = strings.TrimSpace(a.WorldView)
	a.MainPlot = strings.TrimSpace(a.MainPlot)
	cards := a.CharacterCards[:0:0]
	for _, c := range a.CharacterCards {
		if c.Name = strings.TrimSpace(c.Name); c.Name != "" {
			cards = append(cards, c)
		}
	}
	a.CharacterCards = cards
	if a.WorldView == "" && a.MainPlot == "" && len(a.CharacterCards) == 0 {
		return nil, ErrEmptyOutput
	}
	return &Result[entity.NovelDeepAnalysis]{Value: a, Meta: out.Meta}, nil
}

// PlanInput 分集改编计划输入
type PlanInput struct {
	Title        string
	Analysis     *entity.NovelDeepAnalysis
	NovelText    string
	EpisodeCount int
}

// PlanAdaptation 生成分集改编计划，集数缺失时按位置补齐
func (g *Gateway) PlanAdaptation(ctx context.Context, in PlanInput) (*Result[[]entity.AdaptationEpisode], error) {
	count := "由你根据原著体量决定"
	if in.EpisodeCount > 0 {
		count = strconv.Itoa(in.EpisodeCount)
	}
	out, err := g.call(ctx, request{
		op:     OpPlanAdaptation,
		prompt: workflowprompt.PromptAdaptationPlanV1,
		vars: map[string]any{
			"title":          wfnode.TextOrEmpty(in.Title),
			"episode_count":  count,
			"analysis_block": wfnode.BuildAnalysisBlock(in.Analysis),
			"novel_text":     g.limit(in.NovelText),
		},
		schemaName: "adaptation_plan",
		schema:     adaptationPlanSchema(),
	})
	if err != nil {
		return nil, err
	}

	episodes, err := decodeEpisodes(out.Content)
	if err != nil {
		return nil, err
	}
	plan := make([]entity.AdaptationEpisode, 0, len(episodes))
	for i, ep := range episodes {
		if strings.TrimSpace(ep.Title) == "" && strings.TrimSpace(ep.Summary) == "" && len(ep.Events) == 0 {
			continue
		}
		if ep.ID = strings.TrimSpace(ep.ID); ep.ID == "" {
			ep.ID = uuid.NewString()
		}
		if ep.EpisodeNumber <= 0 {
			ep.EpisodeNumber = i + 1
		}
		if strings.TrimSpace(ep.Title) == "" {
			ep.Title = "第" + strconv.Itoa(ep.EpisodeNumber) + "集"
		}
		ep.Characters = cleanList(ep.Characters)
		ep.Events = cleanList(ep.Events)
		ep.Emotions = cleanList(ep.Emotions)
		ep.Beats = cleanList(ep.Beats)
		plan = append(plan, ep)
	}
	if len(plan) == 0 {
		return nil, ErrEmptyOutput
	}
	return &Result[[]entity.AdaptationEpisode]{Value: plan, Meta: out.Meta}, nil
}

// decodeEpisodes 兼容 {"episodes": [...]} 与裸数组两种输出
func decodeEpisodes(content string) ([]entity.AdaptationEpisode, error) {
	raw := wfnode.ExtractJSONObject(content)
	if strings.HasPrefix(raw, "[") {
		return decode[[]entity.AdaptationEpisode](raw)
	}
	wrapped, err := decode[struct {
		Episodes []entity.AdaptationEpisode `json:"episodes"`
	}](raw)
	if err != nil {
		return nil, err
	}
	return wrapped.Episodes, nil
}

// CharactersInput 角色生成输入
type CharactersInput struct {
	Title       string
	Genre       string
	Logline     string
	Existing    []entity.Character
	Context     string
	Instruction string
}

// CharactersOutput 新生成的角色与关系；关系两端可以指向新角色或已有角色
type CharactersOutput struct {
	Characters    []entity.Character
	Relationships []entity.CharacterRelationship
}

// GenerateCharacters 生成角色。与已有角色重名的条目被忽略，关系按名字解析为 ID，解析不了的丢弃。
func (g *Gateway) GenerateCharacters(ctx context.Context, in CharactersInput) (*Result[CharactersOutput], error) {
	out, err := g.call(ctx, request{
		op:     OpGenerateCharacters,
		prompt: workflowprompt.PromptCharactersV1,
		vars: map[string]any{
			"title":            wfnode.TextOrEmpty(in.Title),
			"genre":            wfnode.TextOrEmpty(in.Genre),
			"logline":          wfnode.TextOrEmpty(in.Logline),
			"characters_block": wfnode.BuildCharactersBlock(in.Existing),
			"context_block":    wfnode.TextOrEmpty(g.limit(in.Context)),
			"instruction":      wfnode.TextOrEmpty(in.Instruction),
		},
		schemaName: "characters",
		schema:     charactersSchema(),
	})
	if err != nil {
		return nil, err
	}

	parsed, err := decode[struct {
		Characters    []entity.Character `json:"characters"`
		Relationships []struct {
			Source      string `json:"source"`
			Target      string `json:"target"`
			Type        string `json:"type"`
			Description string `json:"description"`
		} `json:"relationships"`
	}](out.Content)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]string, len(in.Existing)+len(parsed.Characters))
	for _, c := range in.Existing {
		byName[c.Name] = c.ID
	}
	res := CharactersOutput{Characters: []entity.Character{}, Relationships: []entity.CharacterRelationship{}}
	for _, c := range parsed.Characters {
		c.Name = strings.TrimSpace(c.Name)
		if c.Name == "" {
			continue
		}
		if _, dup := byName[c.Name]; dup {
			continue
		}
		c.ID = uuid.NewString()
		c.Role = normalizeRole(c.Role)
		c.Avatar = ""
		byName[c.Name] = c.ID
		res.Characters = append(res.Characters, c)
	}
	if len(res.Characters) == 0 {
		return nil, ErrEmptyOutput
	}

	for _, r := range parsed.Relationships {
		src, okSrc := byName[strings.TrimSpace(r.Source)]
		dst, okDst := byName[strings.TrimSpace(r.Target)]
		if !okSrc || !okDst || src == dst {
			continue
		}
		res.Relationships = append(res.Relationships, entity.CharacterRelationship{
			ID:          uuid.NewString(),
			SourceID:    src,
			TargetID:    dst,
			Type:        normalizeRelation(r.Type),
			Description: strings.TrimSpace(r.Description),
		})
	}
	return &Result[CharactersOutput]{Value: res, Meta: out.Meta}, nil
}

// OutlineInput 大纲生成输入
type OutlineInput struct {
	Title        string
	Genre        string
	Logline      string
	Characters   []entity.Character
	SectionCount int
	Instruction  string
}

// GenerateOutline 生成大纲段落，每段分配新 ID
func (g *Gateway) GenerateOutline(ctx context.Context, in OutlineInput) (*Result[[]entity.OutlineSection], error) {
	count := "由你决定"
	if in.SectionCount > 0 {
		count = strconv.Itoa(in.SectionCount)
	}
	out, err := g.call(ctx, request{
		op:     OpGenerateOutline,
		prompt: workflowprompt.PromptOutlineV1,
		vars: map[string]any{
			"title":            wfnode.TextOrEmpty(in.Title),
			"genre":            wfnode.TextOrEmpty(in.Genre),
			"logline":          wfnode.TextOrEmpty(in.Logline),
			"section_count":    count,
			"characters_block": wfnode.BuildCharactersBlock(in.Characters),
			"instruction":      wfnode.TextOrEmpty(in.Instruction),
		},
		schemaName: "outline",
		schema:     outlineSchema(),
	})
	if err != nil {
		return nil, err
	}

	parsed, err := decode[struct {
		Sections []entity.OutlineSection `json:"sections"`
	}](out.Content)
	if err != nil {
		return nil, err
	}
	sections := make([]entity.OutlineSection, 0, len(parsed.Sections))
	for _, s := range parsed.Sections {
		s.Title = strings.TrimSpace(s.Title)
		s.Content = strings.TrimSpace(s.Content)
		if s.Title == "" && s.Content == "" {
			continue
		}
		if s.Title == "" {
			s.Title = "第" + strconv.Itoa(len(sections)+1) + "集"
		}
		s.ID = uuid.NewString()
		s.Scenes = cleanList(s.Scenes)
		sections = append(sections, s)
	}
	if len(sections) == 0 {
		return nil, ErrEmptyOutput
	}
	return &Result[[]entity.OutlineSection]{Value: sections, Meta: out.Meta}, nil
}

// ScriptInput 分段剧本生成输入
type ScriptInput struct {
	Title      string
	Genre      string
	Characters []entity.Character
	Section    entity.OutlineSection
	// Previous 已有剧本，只取末尾一段作为衔接
	Previous []entity.ScriptBlock
}

// previousTailRunes 续写时携带的前文长度
const previousTailRunes = 2000

// GenerateScript 生成一段剧本块；未知类型按动作描写处理，空内容块丢弃
func (g *Gateway) GenerateScript(ctx context.Context, in ScriptInput) (*Result[[]entity.ScriptBlock], error) {
	out, err := g.call(ctx, request{
		op:     OpGenerateScript,
		prompt: workflowprompt.PromptScriptV1,
		vars: map[string]any{
			"title":            wfnode.TextOrEmpty(in.Title),
			"genre":            wfnode.TextOrEmpty(in.Genre),
			"characters_block": wfnode.BuildCharactersBlock(in.Characters),
			"section_title":    wfnode.TextOrEmpty(in.Section.Title),
			"section_content":  wfnode.TextOrEmpty(in.Section.Content),
			"scenes_block":     wfnode.BuildListBlock(in.Section.Scenes),
			"previous_block":   wfnode.TextOrEmpty(wfnode.TailByRunes(entity.ScriptText(in.Previous), previousTailRunes)),
		},
		schemaName: "script",
		schema:     scriptSchema(),
	})
	if err != nil {
		return nil, err
	}

	parsed, err := decode[struct {
		Blocks []entity.ScriptBlock `json:"blocks"`
	}](out.Content)
	if err != nil {
		return nil, err
	}
	blocks := make([]entity.ScriptBlock, 0, len(parsed.Blocks))
	for _, b := range parsed.Blocks {
		b.Content = strings.TrimSpace(b.Content)
		if b.Content == "" {
			continue
		}
		b.Type = entity.ScriptBlockType(strings.ToLower(strings.TrimSpace(string(b.Type))))
		if !b.Type.Valid() {
			b.Type = entity.BlockAction
		}
		b.ID = uuid.NewString()
		b.Storyboard = nil
		blocks = append(blocks, b)
	}
	if len(blocks) == 0 {
		return nil, ErrEmptyOutput
	}
	return &Result[[]entity.ScriptBlock]{Value: blocks, Meta: out.Meta}, nil
}

// StoryboardOutput 分镜结果：按剧本块 ID 的镜头与制作表
type StoryboardOutput struct {
	Shots map[string]entity.Storyboard
	Rows  []entity.StoryboardRow
}

// GenerateStoryboard 为剧本生成分镜。指向不存在剧本块的镜头被丢弃。
func (g *Gateway) GenerateStoryboard(ctx context.Context, title string, script []entity.ScriptBlock) (*Result[StoryboardOutput], error) {
	out, err := g.call(ctx, request{
		op:     OpGenerateStoryboard,
		prompt: workflowprompt.PromptStoryboardV1,
		vars: map[string]any{
			"title":        wfnode.TextOrEmpty(title),
			"script_block": g.limit(wfnode.BuildScriptBlock(script)),
		},
		schemaName: "storyboard",
		schema:     storyboardSchema(),
	})
	if err != nil {
		return nil, err
	}

	parsed, err := decode[struct {
		Shots []struct {
			BlockID string `json:"blockId"`
			entity.Storyboard
		} `json:"shots"`
		Rows []entity.StoryboardRow `json:"rows"`
	}](out.Content)
	if err != nil {
		return nil, err
	}

	known := make(map[string]struct{}, len(script))
	for _, b := range script {
		known[b.ID] = struct{}{}
	}
	res := StoryboardOutput{Shots: make(map[string]entity.Storyboard), Rows: []entity.StoryboardRow{}}
	for _, s := range parsed.Shots {
		if _, ok := known[strings.TrimSpace(s.BlockID)]; !ok {
			continue
		}
		sb := s.Storyboard
		sb.ImageData = ""
		res.Shots[strings.TrimSpace(s.BlockID)] = sb
	}
	for i, r := range parsed.Rows {
		if strings.TrimSpace(r.Visual) == "" {
			continue
		}
		r.ID = uuid.NewString()
		if r.ShotNumber <= 0 {
			r.ShotNumber = i + 1
		}
		if r.SceneNumber <= 0 {
			r.SceneNumber = 1
		}
		if r.DurationSeconds < 0 {
			r.DurationSeconds = 0
		}
		r.ImageData = ""
		res.Rows = append(res.Rows, r)
	}
	if len(res.Shots) == 0 && len(res.Rows) == 0 {
		return nil, ErrEmptyOutput
	}
	return &Result[StoryboardOutput]{Value: res, Meta: out.Meta}, nil
}

// MarketInput 市场分析输入
type MarketInput struct {
	Title      string
	Genre      string
	Logline    string
	Characters []entity.Character
	Outline    []entity.OutlineSection
}

// AnalyzeMarket 市场分析，商业评分限制在 0-100
func (g *Gateway) AnalyzeMarket(ctx context.Context, in MarketInput) (*Result[entity.MarketAnalysis], error) {
	out, err := g.call(ctx, request{
		op:     OpAnalyzeMarket,
		prompt: workflowprompt.PromptMarketAnalysisV1,
		vars: map[string]any{
			"title":            wfnode.TextOrEmpty(in.Title),
			"genre":            wfnode.TextOrEmpty(in.Genre),
			"logline":          wfnode.TextOrEmpty(in.Logline),
			"characters_block": wfnode.BuildCharactersBlock(in.Characters),
			"outline_block":    wfnode.BuildOutlineBlock(in.Outline),
		},
		schemaName: "market_analysis",
		schema:     marketSchema(),
	})
	if err != nil {
		return nil, err
	}

	m, err := decode[entity.MarketAnalysis](out.Content)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(m.TargetAudience) == "" && strings.TrimSpace(m.Positioning) == "" {
		return nil, invalid("market analysis has neither targetAudience nor positioning")
	}
	m.CommercialScore = max(0, min(100, m.CommercialScore))
	m.Comparables = cleanList(m.Comparables)
	m.SellingPoints = cleanList(m.SellingPoints)
	m.Risks = cleanList(m.Risks)
	return &Result[entity.MarketAnalysis]{Value: m, Meta: out.Meta}, nil
}

// RewriteInput 剧本块改写输入
type RewriteInput struct {
	Block       entity.ScriptBlock
	Instruction string
	Context     string
}

// RewriteBlock 改写单个剧本块，返回纯文本
func (g *Gateway) RewriteBlock(ctx context.Context, in RewriteInput) (*Result[string], error) {
	out, err := g.call(ctx, request{
		op:     OpRewriteBlock,
		prompt: workflowprompt.PromptRewriteV1,
		vars: map[string]any{
			"block_type":    string(in.Block.Type),
			"context_block": wfnode.TextOrEmpty(g.limit(in.Context)),
			"content":       in.Block.Content,
			"instruction":   wfnode.TextOrEmpty(in.Instruction),
		},
	})
	if err != nil {
		return nil, err
	}
	text := strings.Trim(strings.TrimSpace(out.Content), "\"「」")
	if text == "" {
		return nil, ErrEmptyOutput
	}
	return &Result[string]{Value: text, Meta: out.Meta}, nil
}

// PatchOp JSON Patch 操作，值保持原始 JSON
type PatchOp struct {
	Op    string          `json:"op"`
	Path  string          `json:"path"`
	Value json.RawMessage `json:"value,omitempty"`
}

// ProposedAction 模型建议的一组修改
type ProposedAction struct {
	Label string    `json:"label"`
	Ops   []PatchOp `json:"ops"`
}

// ChatReply 助手回复
type ChatReply struct {
	Reply   string           `json:"reply"`
	Actions []ProposedAction `json:"actions"`
}

// ChatInput 对话输入，历史由调用方携带
type ChatInput struct {
	ProjectJSON  string
	AllowedPaths []string
	Message      string
	History      []wfmodel.ChatTurn
}

// Chat 创作助手对话。输出不是 JSON 时把整段文本当作回复、不带修改建议。
func (g *Gateway) Chat(ctx context.Context, in ChatInput) (*Result[ChatReply], error) {
	out, err := g.call(ctx, request{
		op:     OpChat,
		prompt: workflowprompt.PromptCopilotChatV1,
		vars: map[string]any{
			"allowed_paths": strings.Join(in.AllowedPaths, "、"),
			"project_block": g.limit(in.ProjectJSON),
			"message":       strings.TrimSpace(in.Message),
		},
		schemaName: "copilot_reply",
		schema:     copilotSchema(),
		history:    in.History,
	})
	if err != nil {
		return nil, err
	}

	reply, err := decode[ChatReply](out.Content)
	if err != nil {
		reply = ChatReply{Reply: out.Content}
	}
	reply.Reply = strings.TrimSpace(reply.Reply)
	actions := make([]ProposedAction, 0, len(reply.Actions))
	for _, a := range reply.Actions {
		if len(a.Ops) == 0 {
			continue
		}
		if a.Label = strings.TrimSpace(a.Label); a.Label == "" {
			a.Label = "应用修改"
		}
		actions = append(actions, a)
	}
	reply.Actions = actions
	if reply.Reply == "" && len(reply.Actions) == 0 {
		return nil, ErrEmptyOutput
	}
	return &Result[ChatReply]{Value: reply, Meta: out.Meta}, nil
}

func normalizeRole(r entity.CharacterRole) entity.CharacterRole {
	switch entity.CharacterRole(strings.ToLower(strings.TrimSpace(string(r)))) {
	case entity.RoleProtagonist:
		return entity.RoleProtagonist
	case entity.RoleAntagonist:
		return entity.RoleAntagonist
	case entity.RoleMinor:
		return entity.RoleMinor
	default:
		return entity.RoleSupporting
	}
}

func normalizeRelation(t string) entity.RelationType {
	rt := entity.RelationType(strings.ToLower(strings.TrimSpace(t)))
	switch rt {
	case entity.RelationTypeFriend, entity.RelationTypeEnemy, entity.RelationTypeFamily,
		entity.RelationTypeLover, entity.RelationTypeMentor, entity.RelationTypeRival, entity.RelationTypeAlly:
		return rt
	default:
		return entity.RelationTypeOther
	}
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}
