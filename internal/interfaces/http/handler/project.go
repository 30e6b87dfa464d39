package handler

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"screenplay-ai-api/internal/application/projectstore"
	"screenplay-ai-api/internal/domain/entity"
	"screenplay-ai-api/internal/interfaces/http/dto"
)

// ProjectHandler 项目处理器
type ProjectHandler struct {
	store *projectstore.Store
}

// NewProjectHandler 创建项目处理器
func NewProjectHandler(store *projectstore.Store) *ProjectHandler {
	return &ProjectHandler{store: store}
}

// ListProjects 获取项目列表
// @Summary 获取项目列表
// @Description 按修改时间倒序返回项目摘要及当前激活项目
// @Tags Projects
// @Produce json
// @Success 200 {object} dto.Response[dto.ProjectListResponse]
// @Router /v1/projects [get]
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	dto.Success(c, dto.ProjectListResponse{
		Projects: h.store.List(),
		ActiveID: h.store.ActiveID(),
	})
}

// CreateProject 创建项目
// @Summary 创建或导入项目
// @Description 创建空项目并设为激活；请求体携带 project 时按导入处理
// @Tags Projects
// @Accept json
// @Produce json
// @Param body body dto.CreateProjectRequest true "项目信息"
// @Success 201 {object} dto.Response[entity.Project]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/projects [post]
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req dto.CreateProjectRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	if req.Project != nil {
		p, err := h.store.Import(c.Request.Context(), req.Project)
		if err != nil {
			respondError(c, err, "failed to import project")
			return
		}
		dto.Created(c, p)
		return
	}
	dto.Created(c, h.store.Create(c.Request.Context(), req.Title))
}

// GetProject 获取项目详情
// @Summary 获取项目详情
// @Tags Projects
// @Produce json
// @Param pid path string true "项目 ID"
// @Success 200 {object} dto.Response[entity.Project]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/projects/{pid} [get]
func (h *ProjectHandler) GetProject(c *gin.Context) {
	p, err := h.store.Get(dto.BindProjectID(c))
	if err != nil {
		respondError(c, err, "failed to get project")
		return
	}
	dto.Success(c, p)
}

// GetActiveProject 获取当前激活项目
func (h *ProjectHandler) GetActiveProject(c *gin.Context) {
	p, err := h.store.Active()
	if err != nil {
		respondError(c, err, "failed to get active project")
		return
	}
	dto.Success(c, p)
}

// PatchProject 局部更新项目
// @Summary 局部更新项目
// @Description 请求体中出现的字段整体替换，未出现的字段保持不变；级联清理悬空引用
// @Tags Projects
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param body body entity.ProjectPatch true "补丁"
// @Success 200 {object} dto.Response[entity.Project]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/projects/{pid} [patch]
func (h *ProjectHandler) PatchProject(c *gin.Context) {
	var patch entity.ProjectPatch
	if !bindJSON(c, &patch) {
		return
	}
	p, err := h.store.ApplyPatch(c.Request.Context(), dto.BindProjectID(c), patch)
	if err != nil {
		respondError(c, err, "failed to update project")
		return
	}
	dto.Success(c, p)
}

// DeleteProject 删除项目
// @Summary 删除项目
// @Tags Projects
// @Param pid path string true "项目 ID"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/projects/{pid} [delete]
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	if err := h.store.Delete(c.Request.Context(), dto.BindProjectID(c)); err != nil {
		respondError(c, err, "failed to delete project")
		return
	}
	dto.NoContent(c)
}

// SetActiveProject 切换激活项目
func (h *ProjectHandler) SetActiveProject(c *gin.Context) {
	pid := dto.BindProjectID(c)
	if err := h.store.SetActive(c.Request.Context(), pid); err != nil {
		respondError(c, err, "failed to activate project")
		return
	}
	p, err := h.store.Get(pid)
	if err != nil {
		respondError(c, err, "failed to get project")
		return
	}
	dto.Success(c, p)
}

// ExportScript 以 UTF-8 纯文本导出剧本
// @Summary 导出剧本
// @Tags Projects
// @Produce plain
// @Param pid path string true "项目 ID"
// @Success 200 {string} string
// @Router /v1/projects/{pid}/script.txt [get]
func (h *ProjectHandler) ExportScript(c *gin.Context) {
	p, err := h.store.Get(dto.BindProjectID(c))
	if err != nil {
		respondError(c, err, "failed to get project")
		return
	}
	filename := url.PathEscape(p.Title + ".txt")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+filename)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(entity.ScriptText(p.Script)))
}
