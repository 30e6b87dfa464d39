package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"screenplay-ai-api/internal/application/novel"
	"screenplay-ai-api/internal/interfaces/http/dto"
	apperrors "screenplay-ai-api/pkg/errors"
)

// DefaultMaxUploadBytes 单次上传的默认大小上限
const DefaultMaxUploadBytes = 32 << 20

// uploadEnvelopeBytes 请求体在文档内容之外允许的余量（multipart 边界、表单头、JSON 结构）
const uploadEnvelopeBytes = 64 << 10

// NovelHandler 原著上传处理器
type NovelHandler struct {
	svc            *novel.Service
	maxUploadBytes int64
}

// NewNovelHandler 创建原著上传处理器
func NewNovelHandler(svc *novel.Service, maxUploadBytes int64) *NovelHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &NovelHandler{svc: svc, maxUploadBytes: maxUploadBytes}
}

// UploadDocuments 上传原著文档
// @Summary 上传原著
// @Description 支持 JSON（documents 数组）或 multipart（files 字段，多个 UTF-8 文本文件）。
// @Description 超长文档按字符数切分为多个分片，空文档与重复文档被跳过。
// @Tags Novel
// @Accept json,mpfd
// @Produce json
// @Param pid path string true "项目 ID"
// @Success 200 {object} dto.Response[novel.UploadResult]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/projects/{pid}/novel/chunks [post]
func (h *NovelHandler) UploadDocuments(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+uploadEnvelopeBytes)

	var docs []novel.Document
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		var err error
		if docs, err = h.readMultipart(c); err != nil {
			respondError(c, err, "failed to read upload")
			return
		}
	} else {
		var req dto.UploadDocumentsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			if tooLarge := h.tooLarge(err); tooLarge != nil {
				respondError(c, tooLarge, "failed to read upload")
				return
			}
			dto.BadRequest(c, "invalid request body: "+err.Error())
			return
		}
		docs = req.ToDocuments()
	}

	res, err := h.svc.UploadDocuments(c.Request.Context(), dto.BindProjectID(c), docs)
	if err != nil {
		respondError(c, err, "failed to upload documents")
		return
	}
	dto.Success(c, res)
}

func (h *NovelHandler) readMultipart(c *gin.Context) ([]novel.Document, error) {
	form, err := c.MultipartForm()
	if err != nil {
		if tooLarge := h.tooLarge(err); tooLarge != nil {
			return nil, tooLarge
		}
		return nil, apperrors.ErrInvalidParam.WithDetail("invalid multipart body: " + err.Error())
	}
	files := form.File["files"]
	if len(files) == 0 {
		return nil, apperrors.ErrInvalidParam.WithDetail("no files uploaded")
	}

	var total int64
	docs := make([]novel.Document, 0, len(files))
	for _, fh := range files {
		total += fh.Size
		if total > h.maxUploadBytes {
			return nil, h.uploadLimitError()
		}
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
		}
		raw, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
		}
		if !utf8.Valid(raw) {
			return nil, apperrors.ErrInvalidParam.WithDetail(fh.Filename + " is not UTF-8 text")
		}
		name := strings.TrimSuffix(filepath.Base(fh.Filename), filepath.Ext(fh.Filename))
		docs = append(docs, novel.Document{Name: name, Content: string(raw)})
	}
	return docs, nil
}

// tooLarge 请求体超过上限时返回对应的业务错误，否则返回 nil
func (h *NovelHandler) tooLarge(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return h.uploadLimitError()
	}
	return nil
}

func (h *NovelHandler) uploadLimitError() error {
	return apperrors.ErrInvalidParam.WithDetail(fmt.Sprintf("upload exceeds %d bytes", h.maxUploadBytes))
}

// RemoveChunk 删除一个原著分片，全文随之重建
func (h *NovelHandler) RemoveChunk(c *gin.Context) {
	p, err := h.svc.RemoveChunk(c.Request.Context(), dto.BindProjectID(c), c.Param(dto.ParamChunk))
	if err != nil {
		respondError(c, err, "failed to remove chunk")
		return
	}
	dto.Success(c, p)
}

// ClearChunks 清空全部原著分片
func (h *NovelHandler) ClearChunks(c *gin.Context) {
	p, err := h.svc.ClearChunks(c.Request.Context(), dto.BindProjectID(c))
	if err != nil {
		respondError(c, err, "failed to clear chunks")
		return
	}
	dto.Success(c, p)
}
