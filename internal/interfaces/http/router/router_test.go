package router

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screenplay-ai-api/internal/application/copilot"
	"screenplay-ai-api/internal/application/generation"
	"screenplay-ai-api/internal/application/novel"
	"screenplay-ai-api/internal/application/projectstore"
	"screenplay-ai-api/internal/application/studio"
	"screenplay-ai-api/internal/config"
	"screenplay-ai-api/internal/domain/entity"
	"screenplay-ai-api/internal/infrastructure/persistence/memory"
	"screenplay-ai-api/internal/interfaces/http/handler"
	"screenplay-ai-api/internal/interfaces/http/middleware"
	wfmodel "screenplay-ai-api/internal/workflow/model"
	apperrors "screenplay-ai-api/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type replyGenerator struct{ content string }

func (g *replyGenerator) Generate(context.Context, *wfmodel.GenerateInput) (*wfmodel.GenerateOutput, error) {
	return &wfmodel.GenerateOutput{Content: g.content}, nil
}

type denyAll struct{}

func (denyAll) Allow(context.Context, string, int, time.Duration) (bool, error) { return false, nil }

type testServer struct {
	engine *gin.Engine
	store  *projectstore.Store
	gen    *replyGenerator
}

func newTestServer(t *testing.T, cfg *config.Config, limiter middleware.RateLimiter) *testServer {
	t.Helper()
	if cfg == nil {
		cfg = &config.Config{}
	}
	store := projectstore.New(memory.NewSnapshotRepo(), projectstore.Options{})
	gen := &replyGenerator{}
	gw := generation.New(gen, nil, generation.Options{})

	handlers := Handlers{
		Health:     handler.NewHealthHandler("test", nil, nil),
		Project:    handler.NewProjectHandler(store),
		Edit:       handler.NewEditHandler(store),
		Novel:      handler.NewNovelHandler(novel.NewService(store, novel.NewChunker(10)), 0),
		Generation: handler.NewGenerationHandler(studio.NewService(store, gw, studio.Options{})),
		Copilot:    handler.NewCopilotHandler(copilot.NewService(store, gw)),
	}
	keyFn := func(clientID, group string) string { return clientID + ":" + group }
	r := New(cfg, handlers, limiter, keyFn)
	return &testServer{engine: r.Engine(), store: store, gen: gen}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

type envelope[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data"`
	Error   *struct {
		ErrorCode string `json:"error_code"`
	} `json:"error"`
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var out envelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (s *testServer) createProject(t *testing.T, title string) entity.Project {
	t.Helper()
	w := s.do(t, http.MethodPost, "/v1/projects", map[string]string{"title": title})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeBody[entity.Project](t, w).Data
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t, nil, nil)
	for _, path := range []string{"/health", "/ready", "/live"} {
		w := s.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
	assert.NotEmpty(t, s.do(t, http.MethodGet, "/health", nil).Header().Get("X-Request-ID"))
}

func TestProjectLifecycle(t *testing.T) {
	s := newTestServer(t, nil, nil)
	p := s.createProject(t, "夜航船")
	assert.Equal(t, "夜航船", p.Title)

	w := s.do(t, http.MethodGet, "/v1/projects/active", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, p.ID, decodeBody[entity.Project](t, w).Data.ID)

	w = s.do(t, http.MethodPatch, "/v1/projects/"+p.ID, map[string]string{"logline": "一封信牵出旧案"})
	require.Equal(t, http.StatusOK, w.Code)
	patched := decodeBody[entity.Project](t, w).Data
	assert.Equal(t, "一封信牵出旧案", patched.Logline)
	assert.Greater(t, patched.UpdatedAt, p.UpdatedAt)

	w = s.do(t, http.MethodGet, "/v1/projects", nil)
	list := decodeBody[struct {
		Projects []entity.ProjectSummary `json:"projects"`
		ActiveID string                  `json:"activeId"`
	}](t, w).Data
	require.Len(t, list.Projects, 1)
	assert.Equal(t, p.ID, list.ActiveID)

	w = s.do(t, http.MethodDelete, "/v1/projects/"+p.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodGet, "/v1/projects/"+p.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(apperrors.CodeProjectNotFound), decodeBody[any](t, w).Error.ErrorCode)
}

func TestCharacterCascadeOverHTTP(t *testing.T) {
	s := newTestServer(t, nil, nil)
	p := s.createProject(t, "x")
	base := "/v1/projects/" + p.ID

	w := s.do(t, http.MethodPost, base+"/characters", map[string]string{"name": "林舟"})
	require.Equal(t, http.StatusCreated, w.Code)
	a := decodeBody[entity.Character](t, w).Data
	w = s.do(t, http.MethodPost, base+"/characters", map[string]string{"name": "沈墨"})
	b := decodeBody[entity.Character](t, w).Data

	w = s.do(t, http.MethodPost, base+"/relationships", map[string]string{"sourceId": a.ID, "targetId": b.ID, "type": "rival"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(t, http.MethodDelete, base+"/characters/"+b.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decodeBody[entity.Project](t, w).Data
	assert.Len(t, got.Characters, 1)
	assert.Empty(t, got.Relationships)

	w = s.do(t, http.MethodPost, base+"/characters", map[string]string{"name": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPlotEventRequiresOutline(t *testing.T) {
	s := newTestServer(t, nil, nil)
	p := s.createProject(t, "x")
	base := "/v1/projects/" + p.ID

	w := s.do(t, http.MethodPost, base+"/plot-events", map[string]string{"title": "开场"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, base+"/outline", map[string]string{"title": "第一集"})
	require.Equal(t, http.StatusCreated, w.Code)
	sec := decodeBody[entity.OutlineSection](t, w).Data

	w = s.do(t, http.MethodPost, base+"/plot-events", map[string]string{"title": "开场"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, sec.ID, decodeBody[entity.PlotEvent](t, w).Data.ActID)

	w = s.do(t, http.MethodPost, base+"/plan/sync", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScriptExport(t *testing.T) {
	s := newTestServer(t, nil, nil)
	p := s.createProject(t, "夜航船")
	base := "/v1/projects/" + p.ID

	w := s.do(t, http.MethodPut, base+"/script/"+p.Script[0].ID, map[string]string{"content": "外景 码头 - 夜"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = s.do(t, http.MethodPost, base+"/script", map[string]string{"content": "雨很大。"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(t, http.MethodGet, base+"/script.txt", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "外景 码头 - 夜\n\n雨很大。", w.Body.String())
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain"))
}

func TestUploadDocuments(t *testing.T) {
	s := newTestServer(t, nil, nil)
	p := s.createProject(t, "x")
	path := "/v1/projects/" + p.ID + "/novel/chunks"

	w := s.do(t, http.MethodPost, path, map[string]any{"documents": []map[string]string{
		{"name": "第一卷", "content": strings.Repeat("雨", 25)},
		{"name": "空", "content": "  "},
	}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decodeBody[novel.UploadResult](t, w).Data
	assert.Equal(t, 3, res.Added)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "第一卷 (Part 1/3)", res.Project.NovelUploadChunks[0].Name)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("files", "番外.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("短篇"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res = decodeBody[novel.UploadResult](t, rec).Data
	assert.Equal(t, 1, res.Added)
	last := res.Project.NovelUploadChunks[len(res.Project.NovelUploadChunks)-1]
	assert.Equal(t, "番外", last.Name)
}

func TestGenerationFailureMapsToBadGateway(t *testing.T) {
	s := newTestServer(t, nil, nil)
	p := s.createProject(t, "x")
	_, err := s.store.ApplyPatch(context.Background(), p.ID, entity.ProjectPatch{Logline: entity.Ptr("一封信牵出旧案")})
	require.NoError(t, err)

	s.gen.content = "not json"
	w := s.do(t, http.MethodPost, "/v1/projects/"+p.ID+"/generate/market", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, string(apperrors.CodeGenerationFailed), decodeBody[any](t, w).Error.ErrorCode)

	s.gen.content = `{"targetAudience":"悬疑爱好者","commercialScore":88}`
	w = s.do(t, http.MethodPost, "/v1/projects/"+p.ID+"/generate/market", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 88, decodeBody[entity.Project](t, w).Data.MarketAnalysis.CommercialScore)

	w = s.do(t, http.MethodPost, "/v1/projects/"+p.ID+"/generate/image", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCopilotApply(t *testing.T) {
	s := newTestServer(t, nil, nil)
	p := s.createProject(t, "x")
	path := "/v1/projects/" + p.ID + "/copilot/apply"

	w := s.do(t, http.MethodPost, path, map[string]any{"ops": []map[string]any{{"op": "replace", "path": "/script", "value": []any{}}}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(apperrors.CodePatchRejected), decodeBody[any](t, w).Error.ErrorCode)

	w = s.do(t, http.MethodPost, path, map[string]any{"ops": []map[string]any{{"op": "replace", "path": "/title", "value": "新标题"}}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "新标题", decodeBody[entity.Project](t, w).Data.Title)
}

func TestGenerationRateLimited(t *testing.T) {
	cfg := &config.Config{}
	cfg.Security.RateLimit.Enabled = true
	s := newTestServer(t, cfg, denyAll{})
	p := s.createProject(t, "x")

	w := s.do(t, http.MethodPost, "/v1/projects/"+p.ID+"/generate/market", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	w = s.do(t, http.MethodGet, "/v1/projects/"+p.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
