package handler

import (
	"github.com/gin-gonic/gin"

	"screenplay-ai-api/internal/interfaces/http/dto"
	apperrors "screenplay-ai-api/pkg/errors"
	"screenplay-ai-api/pkg/logger"
)

// respondError 应用错误按错误码返回，其他错误记录日志后返回 500
func respondError(c *gin.Context, err error, msg string) {
	if apperrors.IsAppError(err) {
		dto.AppError(c, apperrors.AsAppError(err))
		return
	}
	logger.Error(c.Request.Context(), msg, err, "path", c.FullPath())
	dto.InternalError(c, msg)
}

// bindJSON 绑定请求体，失败时写入 400 并返回 false
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return false
	}
	return true
}
