package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"screenplay-ai-api/internal/application/copilot"
	"screenplay-ai-api/internal/application/generation"
	"screenplay-ai-api/internal/application/novel"
	"screenplay-ai-api/internal/application/plansync"
	"screenplay-ai-api/internal/application/projectstore"
	"screenplay-ai-api/internal/domain/entity"
	apperrors "screenplay-ai-api/pkg/errors"
	"screenplay-ai-api/pkg/logger"
)

// ProjectTools 工具处理器依赖
type ProjectTools struct {
	Store   *projectstore.Store
	Novels  *novel.Service
	Copilot *copilot.Service
}

// --- Input types ---

type ProjectRef struct {
	ProjectID string `json:"projectId,omitempty" jsonschema:"Project id; the active project when empty"`
}

type CreateProjectInput struct {
	Title string `json:"title,omitempty" jsonschema:"Project title"`
}

type ApplyPatchInput struct {
	ProjectID string         `json:"projectId,omitempty" jsonschema:"Project id; the active project when empty"`
	Patch     map[string]any `json:"patch" jsonschema:"Top-level fields to replace, e.g. {\"logline\": \"...\"}"`
}

type UploadDocumentInput struct {
	ProjectID string `json:"projectId,omitempty" jsonschema:"Project id; the active project when empty"`
	Name      string `json:"name" jsonschema:"Document name"`
	Content   string `json:"content" jsonschema:"UTF-8 document text"`
}

type PatchOpInput struct {
	Op    string `json:"op" jsonschema:"add or replace"`
	Path  string `json:"path" jsonschema:"JSON Pointer under an allowed top-level field"`
	Value any    `json:"value,omitempty" jsonschema:"Value to write"`
}

type CopilotActionInput struct {
	ProjectID string         `json:"projectId,omitempty" jsonschema:"Project id; the active project when empty"`
	Ops       []PatchOpInput `json:"ops" jsonschema:"Operations applied atomically"`
}

// --- Handlers ---

func (t *ProjectTools) ListProjects(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	return toolJSON(map[string]any{
		"projects": t.Store.List(),
		"activeId": t.Store.ActiveID(),
	})
}

func (t *ProjectTools) GetProject(_ context.Context, _ *mcp.CallToolRequest, input ProjectRef) (*mcp.CallToolResult, any, error) {
	p, err := t.project(input.ProjectID)
	if err != nil {
		return toolFailure("Failed to get project", err), nil, nil
	}
	return toolJSON(p)
}

func (t *ProjectTools) CreateProject(ctx context.Context, _ *mcp.CallToolRequest, input CreateProjectInput) (*mcp.CallToolResult, any, error) {
	return toolJSON(t.Store.Create(ctx, input.Title))
}

func (t *ProjectTools) ApplyPatch(ctx context.Context, _ *mcp.CallToolRequest, input ApplyPatchInput) (*mcp.CallToolResult, any, error) {
	if len(input.Patch) == 0 {
		return toolError("Patch is required"), nil, nil
	}
	raw, err := json.Marshal(input.Patch)
	if err != nil {
		return toolError("Invalid patch: %v", err), nil, nil
	}
	var patch entity.ProjectPatch
	if err := json.Unmarshal(raw, &patch); err != nil {
		return toolError("Invalid patch: %v", err), nil, nil
	}
	if patch.IsEmpty() {
		return toolError("Patch has no known project fields"), nil, nil
	}

	id, err := t.resolve(input.ProjectID)
	if err != nil {
		return toolFailure("Failed to apply patch", err), nil, nil
	}
	p, err := t.Store.ApplyPatch(ctx, id, patch)
	if err != nil {
		return toolFailure("Failed to apply patch", err), nil, nil
	}
	return toolJSON(p)
}

func (t *ProjectTools) UploadDocument(ctx context.Context, _ *mcp.CallToolRequest, input UploadDocumentInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(input.Name) == "" {
		return toolError("Document name is required"), nil, nil
	}
	id, err := t.resolve(input.ProjectID)
	if err != nil {
		return toolFailure("Failed to upload document", err), nil, nil
	}
	res, err := t.Novels.UploadDocuments(ctx, id, []novel.Document{{Name: input.Name, Content: input.Content}})
	if err != nil {
		return toolFailure("Failed to upload document", err), nil, nil
	}
	return toolJSON(map[string]any{
		"added":   res.Added,
		"skipped": res.Skipped,
		"chunks":  len(res.Project.NovelUploadChunks),
	})
}

func (t *ProjectTools) SyncPlan(ctx context.Context, _ *mcp.CallToolRequest, input ProjectRef) (*mcp.CallToolResult, any, error) {
	id, err := t.resolve(input.ProjectID)
	if err != nil {
		return toolFailure("Failed to sync plan", err), nil, nil
	}
	p, err := plansync.SyncProject(ctx, t.Store, id)
	if err != nil {
		return toolFailure("Failed to sync plan", err), nil, nil
	}
	return toolJSON(map[string]any{
		"outline":    p.Outline,
		"plotEvents": p.PlotEvents,
	})
}

func (t *ProjectTools) ApplyCopilotAction(ctx context.Context, _ *mcp.CallToolRequest, input CopilotActionInput) (*mcp.CallToolResult, any, error) {
	ops := make([]generation.PatchOp, 0, len(input.Ops))
	for _, op := range input.Ops {
		var value json.RawMessage
		if op.Value != nil {
			raw, err := json.Marshal(op.Value)
			if err != nil {
				return toolError("Invalid value for %s: %v", op.Path, err), nil, nil
			}
			value = raw
		}
		ops = append(ops, generation.PatchOp{Op: op.Op, Path: op.Path, Value: value})
	}

	id, err := t.resolve(input.ProjectID)
	if err != nil {
		return toolFailure("Failed to apply action", err), nil, nil
	}
	p, err := t.Copilot.Apply(ctx, id, ops)
	if err != nil {
		return toolFailure("Failed to apply action", err), nil, nil
	}
	return toolJSON(p)
}

func (t *ProjectTools) ExportScript(_ context.Context, _ *mcp.CallToolRequest, input ProjectRef) (*mcp.CallToolResult, any, error) {
	p, err := t.project(input.ProjectID)
	if err != nil {
		return toolFailure("Failed to export script", err), nil, nil
	}
	return toolText(entity.ScriptText(p.Script)), nil, nil
}

// resolve 空 id 取激活项目
func (t *ProjectTools) resolve(id string) (string, error) {
	if id != "" {
		return id, nil
	}
	p, err := t.Store.Active()
	if err != nil {
		return "", err
	}
	return p.ID, nil
}

func (t *ProjectTools) project(id string) (*entity.Project, error) {
	if id == "" {
		return t.Store.Active()
	}
	return t.Store.Get(id)
}

func toolText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func toolError(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}

// toolFailure 应用错误带上错误码返回给调用方，其他错误只记录日志
func toolFailure(msg string, err error) *mcp.CallToolResult {
	if apperrors.IsAppError(err) {
		appErr := apperrors.AsAppError(err)
		if appErr.Detail != "" {
			return toolError("%s: %s (%s)", msg, appErr.Error(), appErr.Detail)
		}
		return toolError("%s: %s", msg, appErr.Error())
	}
	logger.Error(context.Background(), msg, err)
	return toolError("%s: internal error", msg)
}

func toolJSON(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return toolError("Failed to marshal result: %v", err), nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}
