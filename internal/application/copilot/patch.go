package copilot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/google/uuid"

	"screenplay-ai-api/internal/application/generation"
	"screenplay-ai-api/internal/domain/entity"
	apperrors "screenplay-ai-api/pkg/errors"
)

// AllowedPaths 助手可以修改的顶层路径
var AllowedPaths = []string{
	"/title",
	"/logline",
	"/genre",
	"/characters",
	"/relationships",
	"/outline",
	"/plotEvents",
	"/definedPlotlines",
}

func allowedOps() []string {
	return []string{"add", "replace"}
}

// topLevel 返回路径的顶层段，"/characters/-" -> "/characters"
func topLevel(path string) string {
	path = strings.TrimSpace(path)
	if !strings.HasPrefix(path, "/") {
		return ""
	}
	if i := strings.IndexByte(path[1:], '/'); i >= 0 {
		return path[:i+1]
	}
	return path
}

// ValidateOps 检查操作类型与路径白名单，返回被修改的顶层路径
func ValidateOps(ops []generation.PatchOp) ([]string, error) {
	if len(ops) == 0 {
		return nil, apperrors.ErrPatchRejected.WithDetail("no operations")
	}
	allowed := make(map[string]struct{}, len(AllowedPaths))
	for _, p := range AllowedPaths {
		allowed[p] = struct{}{}
	}

	var touched []string
	seen := make(map[string]struct{})
	for i, op := range ops {
		name := strings.ToLower(strings.TrimSpace(op.Op))
		okOp := false
		for _, a := range allowedOps() {
			if name == a {
				okOp = true
				break
			}
		}
		if !okOp {
			return nil, apperrors.ErrPatchRejected.WithDetail(fmt.Sprintf("ops[%d]: op %q is not allowed", i, op.Op))
		}
		top := topLevel(op.Path)
		if _, ok := allowed[top]; !ok {
			return nil, apperrors.ErrPatchRejected.WithDetail(fmt.Sprintf("ops[%d]: path %q is not allowed", i, op.Path))
		}
		if len(bytes.TrimSpace(op.Value)) == 0 {
			return nil, apperrors.ErrPatchRejected.WithDetail(fmt.Sprintf("ops[%d]: value is required", i))
		}
		if _, dup := seen[top]; !dup {
			seen[top] = struct{}{}
			touched = append(touched, top)
		}
	}
	return touched, nil
}

// applyOps 把 JSON Patch 应用到项目副本，返回只包含被修改字段的补丁
func applyOps(cur *entity.Project, ops []generation.PatchOp) (entity.ProjectPatch, error) {
	touched, err := ValidateOps(ops)
	if err != nil {
		return entity.ProjectPatch{}, err
	}

	doc, err := json.Marshal(cur)
	if err != nil {
		return entity.ProjectPatch{}, fmt.Errorf("encode project: %w", err)
	}
	rawOps, err := json.Marshal(ops)
	if err != nil {
		return entity.ProjectPatch{}, fmt.Errorf("encode patch: %w", err)
	}
	patch, err := jsonpatch.DecodePatch(rawOps)
	if err != nil {
		return entity.ProjectPatch{}, apperrors.Wrap(err, apperrors.CodePatchRejected, "invalid json patch")
	}
	out, err := patch.Apply(doc)
	if err != nil {
		return entity.ProjectPatch{}, apperrors.Wrap(err, apperrors.CodePatchRejected, "failed to apply json patch")
	}

	var next entity.Project
	if err := json.Unmarshal(out, &next); err != nil {
		return entity.ProjectPatch{}, apperrors.Wrap(err, apperrors.CodePatchRejected, "patched project does not match the schema")
	}
	assignIDs(&next)
	if err := checkNewEvents(cur, &next); err != nil {
		return entity.ProjectPatch{}, err
	}

	var p entity.ProjectPatch
	for _, top := range touched {
		switch top {
		case "/title":
			p.Title = &next.Title
		case "/logline":
			p.Logline = &next.Logline
		case "/genre":
			p.Genre = &next.Genre
		case "/characters":
			p.Characters = &next.Characters
		case "/relationships":
			p.Relationships = &next.Relationships
		case "/outline":
			p.Outline = &next.Outline
		case "/plotEvents":
			p.PlotEvents = &next.PlotEvents
		case "/definedPlotlines":
			p.DefinedPlotlines = &next.DefinedPlotlines
		}
	}
	return p, nil
}

// assignIDs 为新增但缺少 ID 的元素分配 uuid
func assignIDs(p *entity.Project) {
	for i := range p.Characters {
		fill(&p.Characters[i].ID)
	}
	for i := range p.Relationships {
		fill(&p.Relationships[i].ID)
	}
	for i := range p.Outline {
		fill(&p.Outline[i].ID)
		if p.Outline[i].Scenes == nil {
			p.Outline[i].Scenes = []string{}
		}
	}
	for i := range p.PlotEvents {
		fill(&p.PlotEvents[i].ID)
		if p.PlotEvents[i].Plotline == "" {
			p.PlotEvents[i].Plotline = entity.PlotlineMain
		}
	}
	for i := range p.DefinedPlotlines {
		fill(&p.DefinedPlotlines[i].ID)
	}
}

func fill(id *string) {
	if strings.TrimSpace(*id) == "" {
		*id = uuid.NewString()
	}
}

// checkNewEvents 新增事件必须指向存在的段落与剧情线，已有事件的悬空引用交给 Reconcile
func checkNewEvents(cur, next *entity.Project) error {
	for _, e := range next.PlotEvents {
		if cur.FindEvent(e.ID) >= 0 {
			continue
		}
		if e.ActID != "" && next.FindSection(e.ActID) < 0 {
			return apperrors.ErrPatchRejected.WithDetail(fmt.Sprintf("plot event %s refers to unknown section %s", e.ID, e.ActID))
		}
		if next.FindPlotline(e.Plotline) < 0 {
			return apperrors.ErrPatchRejected.WithDetail(fmt.Sprintf("plot event %s refers to unknown plotline %s", e.ID, e.Plotline))
		}
	}
	return nil
}
