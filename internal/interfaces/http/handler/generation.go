package handler

import (
	"github.com/gin-gonic/gin"

	"screenplay-ai-api/internal/application/studio"
	"screenplay-ai-api/internal/domain/entity"
	"screenplay-ai-api/internal/interfaces/http/dto"
	apperrors "screenplay-ai-api/pkg/errors"
)

// GenerationHandler 生成接口处理器。成功时返回更新后的项目。
type GenerationHandler struct {
	svc *studio.Service
}

// NewGenerationHandler 创建生成处理器
func NewGenerationHandler(svc *studio.Service) *GenerationHandler {
	return &GenerationHandler{svc: svc}
}

func (h *GenerationHandler) respond(c *gin.Context, p *entity.Project, err error) {
	if err != nil {
		respondError(c, err, "generation failed")
		return
	}
	dto.Success(c, p)
}

// Analysis 原著深度分析
// @Summary 原著深度分析
// @Tags Generation
// @Produce json
// @Param pid path string true "项目 ID"
// @Success 200 {object} dto.Response[entity.Project]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /v1/projects/{pid}/generate/analysis [post]
func (h *GenerationHandler) Analysis(c *gin.Context) {
	p, err := h.svc.AnalyzeNovel(c.Request.Context(), dto.BindProjectID(c))
	h.respond(c, p, err)
}

// Plan 分集改编计划，sync=true 时同步到大纲与剧情矩阵
// @Summary 分集改编计划
// @Tags Generation
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param body body dto.PlanRequest false "参数"
// @Success 200 {object} dto.Response[entity.Project]
// @Router /v1/projects/{pid}/generate/plan [post]
func (h *GenerationHandler) Plan(c *gin.Context) {
	var req dto.PlanRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	p, err := h.svc.PlanAdaptation(c.Request.Context(), dto.BindProjectID(c), studio.PlanRequest{
		EpisodeCount: req.EpisodeCount,
		Sync:         req.Sync,
	})
	h.respond(c, p, err)
}

// Characters 生成角色
func (h *GenerationHandler) Characters(c *gin.Context) {
	var req dto.CharactersRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	p, err := h.svc.GenerateCharacters(c.Request.Context(), dto.BindProjectID(c), studio.CharactersRequest{Instruction: req.Instruction})
	h.respond(c, p, err)
}

// Outline 生成大纲
func (h *GenerationHandler) Outline(c *gin.Context) {
	var req dto.OutlineRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	p, err := h.svc.GenerateOutline(c.Request.Context(), dto.BindProjectID(c), studio.OutlineRequest{
		SectionCount: req.SectionCount,
		Instruction:  req.Instruction,
		Replace:      req.Replace,
	})
	h.respond(c, p, err)
}

// Script 为大纲段落生成剧本
// @Summary 生成剧本
// @Description 失败时剧本末尾会出现一个“[生成失败]”占位块，接口仍返回错误
// @Tags Generation
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param body body dto.ScriptRequest true "段落"
// @Success 200 {object} dto.Response[entity.Project]
// @Router /v1/projects/{pid}/generate/script [post]
func (h *GenerationHandler) Script(c *gin.Context) {
	var req dto.ScriptRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.svc.GenerateScript(c.Request.Context(), dto.BindProjectID(c), req.SectionID)
	h.respond(c, p, err)
}

// Storyboard 生成分镜
func (h *GenerationHandler) Storyboard(c *gin.Context) {
	p, err := h.svc.GenerateStoryboard(c.Request.Context(), dto.BindProjectID(c))
	h.respond(c, p, err)
}

// Market 市场分析
func (h *GenerationHandler) Market(c *gin.Context) {
	p, err := h.svc.AnalyzeMarket(c.Request.Context(), dto.BindProjectID(c))
	h.respond(c, p, err)
}

// Rewrite 改写剧本块
func (h *GenerationHandler) Rewrite(c *gin.Context) {
	var req dto.RewriteRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.svc.RewriteBlock(c.Request.Context(), dto.BindProjectID(c), req.BlockID, req.Instruction)
	h.respond(c, p, err)
}

// Image 为剧本块生成分镜图，或为角色生成头像
func (h *GenerationHandler) Image(c *gin.Context) {
	var req dto.ImageRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	pid := dto.BindProjectID(c)
	switch {
	case req.BlockID != "" && req.CharacterID == "":
		p, err := h.svc.GenerateBlockImage(ctx, pid, req.BlockID)
		h.respond(c, p, err)
	case req.CharacterID != "" && req.BlockID == "":
		p, err := h.svc.GenerateAvatar(ctx, pid, req.CharacterID)
		h.respond(c, p, err)
	default:
		respondError(c, apperrors.ErrInvalidParam.WithDetail("exactly one of blockId or characterId is required"), "")
	}
}

// ImageEdit 按指令修改剧本块的分镜图
func (h *GenerationHandler) ImageEdit(c *gin.Context) {
	var req dto.ImageEditRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.svc.EditBlockImage(c.Request.Context(), dto.BindProjectID(c), req.BlockID, req.Instruction)
	h.respond(c, p, err)
}
