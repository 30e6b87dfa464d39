// Package studio 编排生成流程：读取项目字段，调用生成网关，再通过 Store.Mutate 合并结果。
//
// 生成失败时项目保持不变，唯一例外是剧本生成会插入一个“生成失败”占位块。
package studio

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"screenplay-ai-api/internal/application/generation"
	"screenplay-ai-api/internal/application/plansync"
	"screenplay-ai-api/internal/application/projectstore"
	"screenplay-ai-api/internal/domain/entity"
	llmctx "screenplay-ai-api/internal/domain/service"
	apperrors "screenplay-ai-api/pkg/errors"
	"screenplay-ai-api/pkg/logger"
	"screenplay-ai-api/pkg/metrics"
	"screenplay-ai-api/pkg/tracer"
)

// FailedBlockMarker 剧本生成失败时占位块的前缀
const FailedBlockMarker = "[生成失败]"

// Options 服务选项
type Options struct {
	// Timeout 单次生成的超时，0 表示不限
	Timeout time.Duration
}

// Service 生成流程服务
type Service struct {
	store   *projectstore.Store
	gw      *generation.Gateway
	timeout time.Duration
	group   singleflight.Group
}

// NewService 创建生成流程服务
func NewService(store *projectstore.Store, gw *generation.Gateway, opts Options) *Service {
	return &Service{store: store, gw: gw, timeout: opts.Timeout}
}

// ImagesEnabled 是否可以生成图片
func (s *Service) ImagesEnabled() bool {
	return s.gw.ImagesEnabled()
}

// run 包装一次生成：同一项目同一操作的并发请求合并为一次；记录指标与链路；错误统一转换为 AppError。
//
// 合并后的调用与任何单个请求的取消解耦，只受 timeout 约束；每个请求各自等待自己的 ctx。
func (s *Service) run(ctx context.Context, projectID string, op generation.Operation, key string, fn func(ctx context.Context) (*entity.Project, error)) (*entity.Project, error) {
	ctx, span := tracer.StartProject(ctx, "studio."+string(op), projectID,
		attribute.String("generation.operation", string(op)))
	defer span.End()
	ctx = logger.WithContext(ctx, logger.ProjectIDKey, projectID)

	flightKey := projectID + ":" + string(op)
	if key != "" {
		flightKey += ":" + key
	}

	ch := s.group.DoChan(flightKey, func() (any, error) {
		callCtx := llmctx.WithProject(context.WithoutCancel(ctx), projectID)
		if s.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(callCtx, s.timeout)
			defer cancel()
		}

		start := time.Now()
		p, err := fn(callCtx)
		metrics.GenerationDuration.WithLabelValues(string(op)).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.GenerationTotal.WithLabelValues(string(op), statusOf(err)).Inc()
			return nil, err
		}
		metrics.GenerationTotal.WithLabelValues(string(op), "success").Inc()
		logger.Info(ctx, "generation applied",
			"operation", string(op),
			"duration_ms", time.Since(start).Milliseconds())
		return p, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		res = singleflight.Result{Err: ctx.Err()}
	}
	if res.Err != nil {
		tracer.RecordError(span, res.Err)
		if !apperrors.IsAppError(res.Err) {
			logger.Error(ctx, "generation failed", res.Err, "operation", string(op))
		}
		return nil, generation.ToAppError(op, res.Err)
	}
	p := res.Val.(*entity.Project)
	if res.Shared {
		span.SetAttributes(attribute.Bool("singleflight.shared", true))
		p = p.Clone()
	}
	return p, nil
}

func statusOf(err error) string {
	if apperrors.IsAppError(err) {
		return "rejected"
	}
	return "error"
}

func (s *Service) load(projectID string) (*entity.Project, error) {
	return s.store.Get(projectID)
}

// AnalyzeNovel 对已上传原著做深度分析
func (s *Service) AnalyzeNovel(ctx context.Context, projectID string) (*entity.Project, error) {
	return s.run(ctx, projectID, generation.OpAnalyzeNovel, "", func(ctx context.Context) (*entity.Project, error) {
		p, err := s.load(projectID)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(p.NovelFullText) == "" {
			return nil, apperrors.New(apperrors.CodeInvalidParam, "upload the novel before analysing it")
		}
		res, err := s.gw.AnalyzeNovel(ctx, p.NovelFullText)
		if err != nil {
			return nil, err
		}
		return s.store.ApplyPatch(ctx, projectID, entity.ProjectPatch{NovelDeepAnalysis: &res.Value})
	})
}

// PlanRequest 改编计划请求
type PlanRequest struct {
	EpisodeCount int
	// Sync 生成成功后立即同步到大纲与剧情矩阵
	Sync bool
}

// PlanAdaptation 生成分集改编计划
func (s *Service) PlanAdaptation(ctx context.Context, projectID string, req PlanRequest) (*entity.Project, error) {
	return s.run(ctx, projectID, generation.OpPlanAdaptation, "", func(ctx context.Context) (*entity.Project, error) {
		p, err := s.load(projectID)
		if err != nil {
			return nil, err
		}
		if p.NovelDeepAnalysis == nil {
			return nil, apperrors.New(apperrors.CodeInvalidParam, "analyse the novel before planning the adaptation")
		}
		if req.EpisodeCount < 0 {
			return nil, apperrors.New(apperrors.CodeInvalidParam, "episode count must not be negative")
		}
		res, err := s.gw.PlanAdaptation(ctx, generation.PlanInput{
			Title:        p.Title,
			Analysis:     p.NovelDeepAnalysis,
			NovelText:    p.NovelFullText,
			EpisodeCount: req.EpisodeCount,
		})
		if err != nil {
			return nil, err
		}
		next, err := s.store.ApplyPatch(ctx, projectID, entity.ProjectPatch{NovelAdaptationPlan: &res.Value})
		if err != nil || !req.Sync {
			return next, err
		}
		return plansync.SyncProject(ctx, s.store, projectID)
	})
}

// CharactersRequest 角色生成请求
type CharactersRequest struct {
	Instruction string
}

// GenerateCharacters 生成新角色并追加到项目，关系一并追加
func (s *Service) GenerateCharacters(ctx context.Context, projectID string, req CharactersRequest) (*entity.Project, error) {
	return s.run(ctx, projectID, generation.OpGenerateCharacters, "", func(ctx context.Context) (*entity.Project, error) {
		p, err := s.load(projectID)
		if err != nil {
			return nil, err
		}
		res, err := s.gw.GenerateCharacters(ctx, generation.CharactersInput{
			Title:       p.Title,
			Genre:       p.Genre,
			Logline:     p.Logline,
			Existing:    p.Characters,
			Context:     analysisContext(p),
			Instruction: req.Instruction,
		})
		if err != nil {
			return nil, err
		}
		return s.store.Mutate(ctx, projectID, func(cur *entity.Project) (entity.ProjectPatch, error) {
			chars := append(cur.Characters, res.Value.Characters...)
			rels := append(cur.Relationships, res.Value.Relationships...)
			return entity.ProjectPatch{Characters: &chars, Relationships: &rels}, nil
		})
	})
}

// OutlineRequest 大纲生成请求
type OutlineRequest struct {
	SectionCount int
	Instruction  string
	// Replace 为 true 时替换现有大纲，原有事件变为未排期
	Replace bool
}

// GenerateOutline 生成大纲段落
func (s *Service) GenerateOutline(ctx context.Context, projectID string, req OutlineRequest) (*entity.Project, error) {
	return s.run(ctx, projectID, generation.OpGenerateOutline, "", func(ctx context.Context) (*entity.Project, error) {
		p, err := s.load(projectID)
		if err != nil {
			return nil, err
		}
		if req.SectionCount < 0 {
			return nil, apperrors.New(apperrors.CodeInvalidParam, "section count must not be negative")
		}
		res, err := s.gw.GenerateOutline(ctx, generation.OutlineInput{
			Title:        p.Title,
			Genre:        p.Genre,
			Logline:      p.Logline,
			Characters:   p.Characters,
			SectionCount: req.SectionCount,
			Instruction:  req.Instruction,
		})
		if err != nil {
			return nil, err
		}
		return s.store.Mutate(ctx, projectID, func(cur *entity.Project) (entity.ProjectPatch, error) {
			outline := res.Value
			if !req.Replace {
				outline = append(cur.Outline, res.Value...)
			}
			return entity.ProjectPatch{Outline: &outline}, nil
		})
	})
}

// GenerateScript 为大纲段落生成剧本块并追加到剧本末尾。
// 生成失败时追加一个占位块并返回错误。
func (s *Service) GenerateScript(ctx context.Context, projectID, sectionID string) (*entity.Project, error) {
	return s.run(ctx, projectID, generation.OpGenerateScript, sectionID, func(ctx context.Context) (*entity.Project, error) {
		p, err := s.load(projectID)
		if err != nil {
			return nil, err
		}
		idx := p.FindSection(sectionID)
		if idx < 0 {
			return nil, apperrors.ErrSectionNotFound.WithDetail(sectionID)
		}
		section := p.Outline[idx]

		res, err := s.gw.GenerateScript(ctx, generation.ScriptInput{
			Title:      p.Title,
			Genre:      p.Genre,
			Characters: p.Characters,
			Section:    section,
			Previous:   p.Script,
		})
		if err != nil {
			s.insertFailedBlock(ctx, projectID, section.Title)
			return nil, err
		}
		return s.store.Mutate(ctx, projectID, func(cur *entity.Project) (entity.ProjectPatch, error) {
			script := append(cur.Script, res.Value...)
			return entity.ProjectPatch{Script: &script}, nil
		})
	})
}

func (s *Service) insertFailedBlock(ctx context.Context, projectID, sectionTitle string) {
	// 生成超时后 ctx 已失效，占位块仍然要写入
	ctx = context.WithoutCancel(ctx)
	content := FailedBlockMarker
	if t := strings.TrimSpace(sectionTitle); t != "" {
		content += " " + t
	}
	if _, err := s.store.AddScriptBlock(ctx, projectID, entity.ScriptBlock{Type: entity.BlockAction, Content: content}, ""); err != nil {
		logger.Error(ctx, "failed to insert placeholder block", err)
	}
}

// GenerateStoryboard 为整部剧本生成分镜：逐块镜头信息和分镜制作表
func (s *Service) GenerateStoryboard(ctx context.Context, projectID string) (*entity.Project, error) {
	return s.run(ctx, projectID, generation.OpGenerateStoryboard, "", func(ctx context.Context) (*entity.Project, error) {
		p, err := s.load(projectID)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(entity.ScriptText(p.Script)) == "" {
			return nil, apperrors.New(apperrors.CodeInvalidParam, "the script is empty")
		}
		res, err := s.gw.GenerateStoryboard(ctx, p.Title, p.Script)
		if err != nil {
			return nil, err
		}
		return s.store.Mutate(ctx, projectID, func(cur *entity.Project) (entity.ProjectPatch, error) {
			script := cur.Script
			for i := range script {
				shot, ok := res.Value.Shots[script[i].ID]
				if !ok {
					continue
				}
				if script[i].Storyboard != nil {
					shot.ImageData = script[i].Storyboard.ImageData
				}
				script[i].Storyboard = &shot
			}
			rows := res.Value.Rows
			return entity.ProjectPatch{Script: &script, StoryboardRows: &rows}, nil
		})
	})
}

// AnalyzeMarket 市场分析
func (s *Service) AnalyzeMarket(ctx context.Context, projectID string) (*entity.Project, error) {
	return s.run(ctx, projectID, generation.OpAnalyzeMarket, "", func(ctx context.Context) (*entity.Project, error) {
		p, err := s.load(projectID)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(p.Logline) == "" && len(p.Outline) == 0 {
			return nil, apperrors.New(apperrors.CodeInvalidParam, "add a logline or an outline first")
		}
		res, err := s.gw.AnalyzeMarket(ctx, generation.MarketInput{
			Title:      p.Title,
			Genre:      p.Genre,
			Logline:    p.Logline,
			Characters: p.Characters,
			Outline:    p.Outline,
		})
		if err != nil {
			return nil, err
		}
		return s.store.ApplyPatch(ctx, projectID, entity.ProjectPatch{MarketAnalysis: &res.Value})
	})
}

// rewriteContextBlocks 改写时携带的前后文块数
const rewriteContextBlocks = 3

// RewriteBlock 按指令改写单个剧本块，类型与分镜保持不变
func (s *Service) RewriteBlock(ctx context.Context, projectID, blockID, instruction string) (*entity.Project, error) {
	return s.run(ctx, projectID, generation.OpRewriteBlock, blockID, func(ctx context.Context) (*entity.Project, error) {
		p, err := s.load(projectID)
		if err != nil {
			return nil, err
		}
		idx := p.FindBlock(blockID)
		if idx < 0 {
			return nil, apperrors.ErrBlockNotFound.WithDetail(blockID)
		}
		lo := max(0, idx-rewriteContextBlocks)
		hi := min(len(p.Script), idx+rewriteContextBlocks+1)

		res, err := s.gw.RewriteBlock(ctx, generation.RewriteInput{
			Block:       p.Script[idx],
			Instruction: instruction,
			Context:     entity.ScriptText(p.Script[lo:hi]),
		})
		if err != nil {
			return nil, err
		}
		return s.store.UpdateScriptBlock(ctx, projectID, entity.ScriptBlock{ID: blockID, Content: res.Value})
	})
}

func analysisContext(p *entity.Project) string {
	if p.NovelDeepAnalysis == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(p.NovelDeepAnalysis.WorldView)
	if p.NovelDeepAnalysis.MainPlot != "" {
		b.WriteString("\n")
		b.WriteString(p.NovelDeepAnalysis.MainPlot)
	}
	for _, c := range p.NovelDeepAnalysis.CharacterCards {
		b.WriteString("\n- ")
		b.WriteString(c.Name)
		if c.Identity != "" {
			b.WriteString("：")
			b.WriteString(c.Identity)
		}
	}
	return strings.TrimSpace(b.String())
}
