package handler

import (
	"github.com/gin-gonic/gin"

	"screenplay-ai-api/internal/application/copilot"
	"screenplay-ai-api/internal/interfaces/http/dto"
)

// CopilotHandler 创作助手处理器
type CopilotHandler struct {
	svc *copilot.Service
}

// NewCopilotHandler 创建助手处理器
func NewCopilotHandler(svc *copilot.Service) *CopilotHandler {
	return &CopilotHandler{svc: svc}
}

// Chat 对话一轮，历史由客户端携带
// @Summary 助手对话
// @Tags Copilot
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param body body dto.ChatRequest true "消息"
// @Success 200 {object} dto.Response[dto.ChatResponse]
// @Router /v1/projects/{pid}/copilot/chat [post]
func (h *CopilotHandler) Chat(c *gin.Context) {
	var req dto.ChatRequest
	if !bindJSON(c, &req) {
		return
	}
	reply, err := h.svc.Chat(c.Request.Context(), dto.BindProjectID(c), req.Message, req.History)
	if err != nil {
		respondError(c, err, "copilot chat failed")
		return
	}
	dto.Success(c, reply)
}

// Apply 应用助手建议的修改
// @Summary 应用修改
// @Description ops 为 RFC 6902 操作，仅允许 add/replace 与白名单内的顶层路径
// @Tags Copilot
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param body body dto.ApplyRequest true "修改"
// @Success 200 {object} dto.Response[entity.Project]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/projects/{pid}/copilot/apply [post]
func (h *CopilotHandler) Apply(c *gin.Context) {
	var req dto.ApplyRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.svc.Apply(c.Request.Context(), dto.BindProjectID(c), req.Ops)
	if err != nil {
		respondError(c, err, "failed to apply copilot action")
		return
	}
	dto.Success(c, p)
}
