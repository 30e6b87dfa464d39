// Package copilot 创作助手：对话给出修改建议，建议以受限的 JSON Patch 形式经 Store.Mutate 应用。
package copilot

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"screenplay-ai-api/internal/application/generation"
	"screenplay-ai-api/internal/application/projectstore"
	"screenplay-ai-api/internal/domain/entity"
	llmctx "screenplay-ai-api/internal/domain/service"
	wfmodel "screenplay-ai-api/internal/workflow/model"
	apperrors "screenplay-ai-api/pkg/errors"
	"screenplay-ai-api/pkg/logger"
)

// maxHistoryTurns 随请求携带的最大历史轮数
const maxHistoryTurns = 20

// Action 一组可一键应用的修改
type Action struct {
	ID    string               `json:"id"`
	Label string               `json:"label"`
	Ops   []generation.PatchOp `json:"ops"`
}

// Reply 助手回复
type Reply struct {
	Reply   string               `json:"reply"`
	Actions []Action             `json:"actions"`
	Usage   wfmodel.LLMUsageMeta `json:"usage"`
}

// Service 创作助手
type Service struct {
	store *projectstore.Store
	gw    *generation.Gateway
}

// NewService 创建助手服务
func NewService(store *projectstore.Store, gw *generation.Gateway) *Service {
	return &Service{store: store, gw: gw}
}

// chatView 发给模型的项目视图，不含原著全文和图片
type chatView struct {
	Title            string                         `json:"title"`
	Logline          string                         `json:"logline"`
	Genre            string                         `json:"genre"`
	Characters       []entity.Character             `json:"characters"`
	Relationships    []entity.CharacterRelationship `json:"relationships"`
	Outline          []entity.OutlineSection        `json:"outline"`
	PlotEvents       []entity.PlotEvent             `json:"plotEvents"`
	DefinedPlotlines []entity.PlotlineDefinition    `json:"definedPlotlines"`
}

func projectJSON(p *entity.Project) (string, error) {
	chars := make([]entity.Character, len(p.Characters))
	for i, c := range p.Characters {
		c.Avatar = ""
		chars[i] = c
	}
	raw, err := json.Marshal(chatView{
		Title:            p.Title,
		Logline:          p.Logline,
		Genre:            p.Genre,
		Characters:       chars,
		Relationships:    p.Relationships,
		Outline:          p.Outline,
		PlotEvents:       p.PlotEvents,
		DefinedPlotlines: p.DefinedPlotlines,
	})
	return string(raw), err
}

// Chat 对话一轮。不合规的修改建议被丢弃，不影响回复本身。
func (s *Service) Chat(ctx context.Context, projectID, message string, history []wfmodel.ChatTurn) (*Reply, error) {
	if strings.TrimSpace(message) == "" {
		return nil, apperrors.New(apperrors.CodeInvalidParam, "message is required")
	}
	p, err := s.store.Get(projectID)
	if err != nil {
		return nil, err
	}
	view, err := projectJSON(p)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternalError, "encode project")
	}
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}

	ctx = llmctx.WithProject(ctx, projectID)
	res, err := s.gw.Chat(ctx, generation.ChatInput{
		ProjectJSON:  view,
		AllowedPaths: AllowedPaths,
		Message:      message,
		History:      history,
	})
	if err != nil {
		return nil, generation.ToAppError(generation.OpChat, err)
	}

	out := &Reply{Reply: res.Value.Reply, Actions: []Action{}, Usage: res.Meta}
	for _, a := range res.Value.Actions {
		if _, err := ValidateOps(a.Ops); err != nil {
			logger.Warn(ctx, "copilot action dropped", "label", a.Label, "error", err.Error())
			continue
		}
		out.Actions = append(out.Actions, Action{ID: uuid.NewString(), Label: a.Label, Ops: a.Ops})
	}
	return out, nil
}

// Apply 应用一组修改；任一操作不合规则整组拒绝，项目不变
func (s *Service) Apply(ctx context.Context, projectID string, ops []generation.PatchOp) (*entity.Project, error) {
	p, err := s.store.Mutate(ctx, projectID, func(cur *entity.Project) (entity.ProjectPatch, error) {
		return applyOps(cur, ops)
	})
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "copilot action applied", "project_id", projectID, "ops", len(ops))
	return p, nil
}
