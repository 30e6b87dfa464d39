package handler

import (
	"github.com/gin-gonic/gin"

	"screenplay-ai-api/internal/application/plansync"
	"screenplay-ai-api/internal/application/projectstore"
	"screenplay-ai-api/internal/domain/entity"
	"screenplay-ai-api/internal/interfaces/http/dto"
)

// EditHandler 角色、大纲、剧情矩阵与剧本的编辑操作
type EditHandler struct {
	store *projectstore.Store
}

// NewEditHandler 创建编辑处理器
func NewEditHandler(store *projectstore.Store) *EditHandler {
	return &EditHandler{store: store}
}

// AddCharacter 新增角色
// @Summary 新增角色
// @Tags Characters
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param body body entity.Character true "角色"
// @Success 201 {object} dto.Response[entity.Character]
// @Router /v1/projects/{pid}/characters [post]
func (h *EditHandler) AddCharacter(c *gin.Context) {
	var req entity.Character
	if !bindJSON(c, &req) {
		return
	}
	req.ID = ""
	ch, err := h.store.AddCharacter(c.Request.Context(), dto.BindProjectID(c), req)
	if err != nil {
		respondError(c, err, "failed to add character")
		return
	}
	dto.Created(c, ch)
}

// UpdateCharacter 更新角色
func (h *EditHandler) UpdateCharacter(c *gin.Context) {
	var req entity.Character
	if !bindJSON(c, &req) {
		return
	}
	req.ID = c.Param(dto.ParamCharacter)
	p, err := h.store.UpdateCharacter(c.Request.Context(), dto.BindProjectID(c), req)
	if err != nil {
		respondError(c, err, "failed to update character")
		return
	}
	dto.Success(c, p)
}

// DeleteCharacter 删除角色，关联关系一并删除
// @Summary 删除角色
// @Tags Characters
// @Param pid path string true "项目 ID"
// @Param cid path string true "角色 ID"
// @Success 200 {object} dto.Response[entity.Project]
// @Router /v1/projects/{pid}/characters/{cid} [delete]
func (h *EditHandler) DeleteCharacter(c *gin.Context) {
	p, err := h.store.DeleteCharacter(c.Request.Context(), dto.BindProjectID(c), c.Param(dto.ParamCharacter))
	if err != nil {
		respondError(c, err, "failed to delete character")
		return
	}
	dto.Success(c, p)
}

// AddRelationship 新增角色关系
func (h *EditHandler) AddRelationship(c *gin.Context) {
	var req entity.CharacterRelationship
	if !bindJSON(c, &req) {
		return
	}
	req.ID = ""
	r, err := h.store.AddRelationship(c.Request.Context(), dto.BindProjectID(c), req)
	if err != nil {
		respondError(c, err, "failed to add relationship")
		return
	}
	dto.Created(c, r)
}

// DeleteRelationship 删除角色关系
func (h *EditHandler) DeleteRelationship(c *gin.Context) {
	p, err := h.store.DeleteRelationship(c.Request.Context(), dto.BindProjectID(c), c.Param(dto.ParamRelationship))
	if err != nil {
		respondError(c, err, "failed to delete relationship")
		return
	}
	dto.Success(c, p)
}

// AddOutlineSection 追加大纲段落
func (h *EditHandler) AddOutlineSection(c *gin.Context) {
	var req entity.OutlineSection
	if !bindJSON(c, &req) {
		return
	}
	req.ID = ""
	sec, err := h.store.AddOutlineSection(c.Request.Context(), dto.BindProjectID(c), req)
	if err != nil {
		respondError(c, err, "failed to add outline section")
		return
	}
	dto.Created(c, sec)
}

// UpdateOutlineSection 更新大纲段落
func (h *EditHandler) UpdateOutlineSection(c *gin.Context) {
	var req entity.OutlineSection
	if !bindJSON(c, &req) {
		return
	}
	req.ID = c.Param(dto.ParamSection)
	p, err := h.store.UpdateOutlineSection(c.Request.Context(), dto.BindProjectID(c), req)
	if err != nil {
		respondError(c, err, "failed to update outline section")
		return
	}
	dto.Success(c, p)
}

// DeleteOutlineSection 删除大纲段落，段落内事件变为未排期
// @Summary 删除大纲段落
// @Tags Outline
// @Param pid path string true "项目 ID"
// @Param sid path string true "段落 ID"
// @Success 200 {object} dto.Response[entity.Project]
// @Router /v1/projects/{pid}/outline/{sid} [delete]
func (h *EditHandler) DeleteOutlineSection(c *gin.Context) {
	p, err := h.store.DeleteOutlineSection(c.Request.Context(), dto.BindProjectID(c), c.Param(dto.ParamSection))
	if err != nil {
		respondError(c, err, "failed to delete outline section")
		return
	}
	dto.Success(c, p)
}

// MoveOutlineSection 调整段落顺序
func (h *EditHandler) MoveOutlineSection(c *gin.Context) {
	var req dto.MoveSectionRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.store.MoveOutlineSection(c.Request.Context(), dto.BindProjectID(c), c.Param(dto.ParamSection), *req.To)
	if err != nil {
		respondError(c, err, "failed to move outline section")
		return
	}
	dto.Success(c, p)
}

// AddPlotline 新增剧情线
func (h *EditHandler) AddPlotline(c *gin.Context) {
	var req entity.PlotlineDefinition
	if !bindJSON(c, &req) {
		return
	}
	line, err := h.store.AddPlotline(c.Request.Context(), dto.BindProjectID(c), req)
	if err != nil {
		respondError(c, err, "failed to add plotline")
		return
	}
	dto.Created(c, line)
}

// DeletePlotline 删除剧情线及其全部事件
func (h *EditHandler) DeletePlotline(c *gin.Context) {
	p, err := h.store.DeletePlotline(c.Request.Context(), dto.BindProjectID(c), c.Param(dto.ParamPlotline))
	if err != nil {
		respondError(c, err, "failed to delete plotline")
		return
	}
	dto.Success(c, p)
}

// AddPlotEvent 新增剧情事件
// @Summary 新增剧情事件
// @Description actId 为空时放入第一个段落，plotline 为空时归入主线
// @Tags Matrix
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param body body entity.PlotEvent true "事件"
// @Success 201 {object} dto.Response[entity.PlotEvent]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/projects/{pid}/plot-events [post]
func (h *EditHandler) AddPlotEvent(c *gin.Context) {
	var req entity.PlotEvent
	if !bindJSON(c, &req) {
		return
	}
	req.ID = ""
	e, err := h.store.AddPlotEvent(c.Request.Context(), dto.BindProjectID(c), req)
	if err != nil {
		respondError(c, err, "failed to add plot event")
		return
	}
	dto.Created(c, e)
}

// UpdatePlotEvent 更新剧情事件（含拖拽到其他段落或剧情线）
func (h *EditHandler) UpdatePlotEvent(c *gin.Context) {
	var req entity.PlotEvent
	if !bindJSON(c, &req) {
		return
	}
	req.ID = c.Param(dto.ParamEvent)
	p, err := h.store.UpdatePlotEvent(c.Request.Context(), dto.BindProjectID(c), req)
	if err != nil {
		respondError(c, err, "failed to update plot event")
		return
	}
	dto.Success(c, p)
}

// DeletePlotEvent 删除剧情事件
func (h *EditHandler) DeletePlotEvent(c *gin.Context) {
	p, err := h.store.DeletePlotEvent(c.Request.Context(), dto.BindProjectID(c), c.Param(dto.ParamEvent))
	if err != nil {
		respondError(c, err, "failed to delete plot event")
		return
	}
	dto.Success(c, p)
}

// SyncPlan 把改编计划同步为大纲与剧情矩阵
// @Summary 同步改编计划
// @Description 整体替换大纲与事件；重复同步结果一致
// @Tags Matrix
// @Param pid path string true "项目 ID"
// @Success 200 {object} dto.Response[entity.Project]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/projects/{pid}/plan/sync [post]
func (h *EditHandler) SyncPlan(c *gin.Context) {
	p, err := plansync.SyncProject(c.Request.Context(), h.store, dto.BindProjectID(c))
	if err != nil {
		respondError(c, err, "failed to sync plan")
		return
	}
	dto.Success(c, p)
}

// AddScriptBlock 插入剧本块
func (h *EditHandler) AddScriptBlock(c *gin.Context) {
	var req dto.AddScriptBlockRequest
	if !bindJSON(c, &req) {
		return
	}
	b, err := h.store.AddScriptBlock(c.Request.Context(), dto.BindProjectID(c),
		entity.ScriptBlock{Type: req.Type, Content: req.Content}, req.AfterID)
	if err != nil {
		respondError(c, err, "failed to add script block")
		return
	}
	dto.Created(c, b)
}

// UpdateScriptBlock 更新剧本块
func (h *EditHandler) UpdateScriptBlock(c *gin.Context) {
	var req dto.UpdateScriptBlockRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.store.UpdateScriptBlock(c.Request.Context(), dto.BindProjectID(c), entity.ScriptBlock{
		ID:         c.Param(dto.ParamBlock),
		Type:       req.Type,
		Content:    req.Content,
		Storyboard: req.Storyboard,
	})
	if err != nil {
		respondError(c, err, "failed to update script block")
		return
	}
	dto.Success(c, p)
}

// DeleteScriptBlock 删除剧本块
func (h *EditHandler) DeleteScriptBlock(c *gin.Context) {
	p, err := h.store.DeleteScriptBlock(c.Request.Context(), dto.BindProjectID(c), c.Param(dto.ParamBlock))
	if err != nil {
		respondError(c, err, "failed to delete script block")
		return
	}
	dto.Success(c, p)
}

// SetStoryboardRows 整体替换分镜制作表
func (h *EditHandler) SetStoryboardRows(c *gin.Context) {
	var rows []entity.StoryboardRow
	if !bindJSON(c, &rows) {
		return
	}
	p, err := h.store.SetStoryboardRows(c.Request.Context(), dto.BindProjectID(c), rows)
	if err != nil {
		respondError(c, err, "failed to set storyboard rows")
		return
	}
	dto.Success(c, p)
}
