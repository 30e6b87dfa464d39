package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screenplay-ai-api/internal/application/novel"
	"screenplay-ai-api/internal/application/projectstore"
	"screenplay-ai-api/internal/infrastructure/persistence/memory"
	"screenplay-ai-api/internal/interfaces/http/dto"
	apperrors "screenplay-ai-api/pkg/errors"
)

func newUploadEngine(t *testing.T, maxBytes int64) (*gin.Engine, *projectstore.Store, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := projectstore.New(memory.NewSnapshotRepo(), projectstore.Options{})
	p := store.Create(context.Background(), "x")

	h := NewNovelHandler(novel.NewService(store, novel.NewChunker(0)), maxBytes)
	engine := gin.New()
	engine.POST("/v1/projects/:"+dto.ParamProject+"/novel/chunks", h.UploadDocuments)
	return engine, store, "/v1/projects/" + p.ID + "/novel/chunks"
}

func multipartBody(t *testing.T, name string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("files", name)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()
	var out dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestUploadDocuments_BodyOverLimitIsRejectedWhileReading(t *testing.T) {
	engine, store, path := newUploadEngine(t, 16)

	body, contentType := multipartBody(t, "长篇.txt", bytes.Repeat([]byte("a"), 2*uploadEnvelopeBytes))
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	res := decodeError(t, w)
	require.NotNil(t, res.Error)
	assert.Equal(t, string(apperrors.CodeInvalidParam), res.Error.ErrorCode)
	assert.Contains(t, res.Error.Details, "upload exceeds 16 bytes")

	payload, err := json.Marshal(map[string]any{"documents": []map[string]string{
		{"name": "a", "content": strings.Repeat("a", 2*uploadEnvelopeBytes)},
	}})
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Contains(t, decodeError(t, w).Error.Details, "upload exceeds 16 bytes")

	for _, sum := range store.List() {
		p, err := store.Get(sum.ID)
		require.NoError(t, err)
		assert.Empty(t, p.NovelUploadChunks)
	}
}

func TestUploadDocuments_FilesOverLimit(t *testing.T) {
	engine, _, path := newUploadEngine(t, 16)

	body, contentType := multipartBody(t, "a.txt", bytes.Repeat([]byte("a"), 32))
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Contains(t, decodeError(t, w).Error.Details, "upload exceeds 16 bytes")
}

func TestUploadDocuments_WithinLimit(t *testing.T) {
	engine, _, path := newUploadEngine(t, 64)

	body, contentType := multipartBody(t, "番外.txt", []byte("短篇"))
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}
