package projectstore

import (
	"context"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"screenplay-ai-api/internal/domain/entity"
	apperrors "screenplay-ai-api/pkg/errors"
)

// 编辑模块的细粒度操作，全部经由 Mutate 落地。

// AddCharacter 追加角色
func (s *Store) AddCharacter(ctx context.Context, projectID string, c entity.Character) (*entity.Character, error) {
	if strings.TrimSpace(c.Name) == "" {
		return nil, apperrors.ErrInvalidParam.WithDetail("character name is required")
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Role == "" {
		c.Role = entity.RoleSupporting
	}
	_, err := s.Mutate(ctx, projectID, func(p *entity.Project) (entity.ProjectPatch, error) {
		if p.FindCharacter(c.ID) >= 0 {
			return entity.ProjectPatch{}, apperrors.ErrConflict.WithDetail("character id exists: " + c.ID)
		}
		chars := append(p.Characters, c)
		return entity.ProjectPatch{Characters: &chars}, nil
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateCharacter 按 ID 整体替换角色
func (s *Store) UpdateCharacter(ctx context.Context, projectID string, c entity.Character) (*entity.Project, error) {
	return s.Mutate(ctx, projectID, func(p *entity.Project) (entity.ProjectPatch, error) {
		idx := p.FindCharacter(c.ID)
		if idx < 0 {
			return entity.ProjectPatch{}, apperrors.ErrCharacterNotFound.WithDetail(c.ID)
		}
		p.Characters[idx] = c
		return entity.ProjectPatch{Characters: &p.Characters}, nil
	})
}

// DeleteCharacter 删除角色，同时删除所有引用它的关系
func (s *Store) DeleteCharacter(ctx context.Context, projectID, characterID string) (*entity.Project, error) {
	return s.Mutate(ctx, projectID, func(p *entity.Project) (entity.ProjectPatch, error) {
		idx := p.FindCharacter(characterID)
		if idx < 0 {
			return entity.ProjectPatch{}, apperrors.ErrCharacterNotFound.WithDetail(characterID)
		}
		chars := slices.Delete(p.Characters, idx, idx+1)
		rels := slices.DeleteFunc(p.Relationships, func(r entity.CharacterRelationship) bool {
			return r.Touches(characterID)
		})
		return entity.ProjectPatch{Characters: &chars, Relationships: &rels}, nil
	})
}

// AddRelationship 新增角色关系，两端角色必须存在
func (s *Store) AddRelationship(ctx context.Context, projectID string, r entity.CharacterRelationship) (*entity.CharacterRelationship, error) {
	if r.SourceID == "" || r.TargetID == "" {
		return nil, apperrors.ErrInvalidParam.WithDetail("sourceId and targetId are required")
	}
	if r.SourceID == r.TargetID {
		return nil, apperrors.ErrInvalidParam.WithDetail("a character cannot relate to itself")
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Type == "" {
		r.Type = entity.RelationTypeOther
	}
	_, err := s.Mutate(ctx, projectID, func(p *entity.Project) (entity.ProjectPatch, error) {
		for _, id := range []string{r.SourceID, r.TargetID} {
			if p.FindCharacter(id) < 0 {
				return entity.ProjectPatch{}, apperrors.ErrCharacterNotFound.WithDetail(id)
			}
		}
		rels := append(p.Relationships, r)
		return entity.ProjectPatch{Relationships: &rels}, nil
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// DeleteRelationship 删除角色关系
func (s *Store) DeleteRelationship(ctx context.Context, projectID, relationshipID string) (*entity.Project, error) {
	return s.Mutate(ctx, projectID, func(p *entity.Project) (entity.ProjectPatch, error) {
		before := len(p.Relationships)
		rels := slices.DeleteFunc(p.Relationships, func(r entity.CharacterRelationship) bool {
			return r.ID == relationshipID
		})
		if len(rels) == before {
			return entity.ProjectPatch{}, apperrors.ErrNotFound.WithDetail("relationship " + relationshipID)
		}
		return entity.ProjectPatch{Relationships: &rels}, nil
	})
}

// AddOutlineSection 追加大纲段落
func (s *Store) AddOutlineSection(ctx context.Context, projectID string, sec entity.OutlineSection) (*entity.OutlineSection, error) {
	if sec.ID == "" {
		sec.ID = uuid.NewString()
	}
	if sec.Scenes == nil {
		sec.Scenes = []string{}
	}
	_, err := s.Mutate(ctx, projectID, func(p *entity.Project) (entity.ProjectPatch, error) {
		if p.FindSection(sec.ID) >= 0 {
			return entity.ProjectPatch{}, apperrors.ErrConflict.WithDetail("section id exists: " + sec.ID)
		}
		if strings.TrimSpace(sec.Title) == "" {
			sec.Title = defaultSectionTitle(len(p.Outline) + 1)
		}
		outline := append(p.Outline, sec)
		return entity.ProjectPatch{Outline: &outline}, nil
	})
	if err != nil {
		return nil, err
	}
	return &sec, nil
}

// UpdateOutlineSection 按 ID 替换大纲段落内容
func (s *Store) UpdateOutlineSection(ctx context.Context, projectID string, sec entity.OutlineSection) (*entity.Project, error) {
	return s.Mutate(ctx, projectID, func(p *entity.Project) (entity.ProjectPatch, error) {
		idx := p.FindSection(sec.ID)
		if idx < 0 {
			return entity.ProjectPatch{}, apperrors.ErrSectionNotFound.WithDetail(sec.ID)
		}
		if sec.Scenes == nil {
			sec.Scenes = []string{}
		}
		p.Outline[idx] = sec
		return entity.ProjectPatch{Outline: &p.Outline}, nil
	})
}

// DeleteOutlineSection 删除大纲段落，原本排在该段落上的事件转为未排期
func (s *Store) DeleteOutlineSection(ctx context.Context, projectID, sectionID string) (*entity.Project, error) {
	return s.Mutate(ctx, projectID, func(p *entity.Project) (entity.ProjectPatch, error) {
		idx := p.FindSection(sectionID)
		if idx < 0 {
			return entity.ProjectPatch{}, apperrors.ErrSectionNotFound.WithDetail(sectionID)
		}
		outline := slices.Delete(p.Outline, idx, idx+1)
		for i := range p.PlotEvents {
			if p.PlotEvents[i].ActID == sectionID {
				p.PlotEvents[i].ActID = ""
			}
		}
		return entity.ProjectPatch{Outline: &outline, PlotEvents: &p.PlotEvents}, nil
	})
}

// MoveOutlineSection 调整大纲段落顺序，to 会被限制在合法范围内
func (s *Store) MoveOutlineSection(ctx context.Context, projectID, sectionID string, to int) (*entity.Project, error) {
	return s.Mutate(ctx, projectID, func(p *entity.Project) (entity.ProjectPatch, error) {
		from := p.FindSection(sectionID)
		if from < 0 {
			return entity.ProjectPatch{}, apperrors.ErrSectionNotFound.WithDetail(sectionID)
		}
		to = max(0, min(to, len(p.Outline)-1))
		if from == to {
			return entity.ProjectPatch{}, nil
		}
		outline := moveItem(p.Outline, from, to)
		return entity.ProjectPatch{Outline: &outline}, nil
	})
}

// AddPlotline 新增剧情线
func (s *Store) AddPlotline(ctx context.Context, projectID string, line entity.PlotlineDefinition) (*entity.PlotlineDefinition, error) {
	if strings.TrimSpace(line.Name) == "" {
		return nil, apperrors.ErrInvalidParam.WithDetail("plotline name is required")
	}
	if line.ID == "" {
		line.ID = uuid.NewString()
	}
	_, err := s.Mutate(ctx, projectID, func(p *entity.Project) (entity.ProjectPatch, error) {
		if p.FindPlotline(line.ID) >= 0 {
			return entity.ProjectPatch{}, apperrors.ErrConflict.WithDetail("plotline id exists: " + line.ID)
		}
		lines := append(p.DefinedPlotlines, line)
		return entity.ProjectPatch{DefinedPlotlines: &lines}, nil
	})
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// DeletePlotline 删除剧情线及其上的全部事件
func (s *Store) DeletePlotline(ctx context.Context, projectID, plotlineID string) (*entity.Project, error) {
	return s.Mutate(ctx, projectID, func(p *entity.Project) (entity.ProjectPatch, error) {
		idx := p.FindPlotline(plotlineID)
		if idx < 0 {
			return entity.ProjectPatch{}, apperrors.ErrPlotlineNotFound.WithDetail(plotlineID)
		}
		lines := slices.Delete(p.DefinedPlotlines, idx, idx+1)
		events := slices.DeleteFunc(p.PlotEvents, func(e entity.PlotEvent) bool {
			return e.Plotline == plotlineID
		})
		return entity.ProjectPatch{DefinedPlotlines: &lines, PlotEvents: &events}, nil
	})
}

// AddPlotEvent 在剧情矩阵中放置事件。
// 大纲为空时拒绝；未指定 actId 时落在第一个段落，未指定剧情线时落在主线。
func (s *Store) AddPlotEvent(ctx context.Context, projectID string, e entity.PlotEvent) (*entity.PlotEvent, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Plotline == "" {
		e.Plotline = entity.PlotlineMain
	}
	e.Tension = entity.ClampTension(e.Tension)
	_, err := s.Mutate(ctx, projectID, func(p *entity.Project) (entity.ProjectPatch, error) {
		if len(p.Outline) == 0 {
			return entity.ProjectPatch{}, apperrors.ErrInvalidParam.WithDetail("add an outline section before placing plot events")
		}
		if err := checkEventRefs(p, e); err != nil {
			return entity.ProjectPatch{}, err
		}
		if e.ActID == "" {
			e.ActID = p.Outline[0].ID
		}
		if p.FindEvent(e.ID) >= 0 {
			return entity.ProjectPatch{}, apperrors.ErrConflict.WithDetail("event id exists: " + e.ID)
		}
		events := append(p.PlotEvents, e)
		return entity.ProjectPatch{PlotEvents: &events}, nil
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// UpdatePlotEvent 按 ID 替换事件（也用于在矩阵中拖动）
func (s *Store) UpdatePlotEvent(ctx context.Context, projectID string, e entity.PlotEvent) (*entity.Project, error) {
	e.Tension = entity.ClampTension(e.Tension)
	return s.Mutate(ctx, projectID, func(p *entity.Project) (entity.ProjectPatch, error) {
		idx := p.FindEvent(e.ID)
		if idx < 0 {
			return entity.ProjectPatch{}, apperrors.ErrEventNotFound.WithDetail(e.ID)
		}
		if e.Plotline == "" {
			e.Plotline = p.PlotEvents[idx].Plotline
		}
		if err := checkEventRefs(p, e); err != nil {
			return entity.ProjectPatch{}, err
		}
		p.PlotEvents[idx] = e
		return entity.ProjectPatch{PlotEvents: &p.PlotEvents}, nil
	})
}

// DeletePlotEvent 删除事件
func (s *Store) DeletePlotEvent(ctx context.Context, projectID, eventID string) (*entity.Project, error) {
	return s.Mutate(ctx, projectID, func(p *entity.Project) (entity.ProjectPatch, error) {
		idx := p.FindEvent(eventID)
		if idx < 0 {
			return entity.ProjectPatch{}, apperrors.ErrEventNotFound.WithDetail(eventID)
		}
		events := slices.Delete(p.PlotEvents, idx, idx+1)
		return entity.ProjectPatch{PlotEvents: &events}, nil
	})
}

// AddScriptBlock 插入剧本块；afterID 为空时追加到末尾
func (s *Store) AddScriptBlock(ctx context.Context, projectID string, b entity.ScriptBlock, afterID string) (*entity.ScriptBlock, error) {
	if b.Type == "" {
		b.Type = entity.BlockAction
	}
	if !b.Type.Valid() {
		return nil, apperrors.ErrInvalidParam.WithDetail("unknown script block type: " + string(b.Type))
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	_, err := s.Mutate(ctx, projectID, func(p *entity.Project) (entity.ProjectPatch, error) {
		if p.FindBlock(b.ID) >= 0 {
			return entity.ProjectPatch{}, apperrors.ErrConflict.WithDetail("block id exists: " + b.ID)
		}
		at := len(p.Script)
		if afterID != "" {
			idx := p.FindBlock(afterID)
			if idx < 0 {
				return entity.ProjectPatch{}, apperrors.ErrBlockNotFound.WithDetail(afterID)
			}
			at = idx + 1
		}
		script := slices.Insert(p.Script, at, b)
		return entity.ProjectPatch{Script: &script}, nil
	})
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// UpdateScriptBlock 按 ID 替换剧本块；未携带分镜时保留原分镜
func (s *Store) UpdateScriptBlock(ctx context.Context, projectID string, b entity.ScriptBlock) (*entity.Project, error) {
	if b.Type != "" && !b.Type.Valid() {
		return nil, apperrors.ErrInvalidParam.WithDetail("unknown script block type: " + string(b.Type))
	}
	return s.Mutate(ctx, projectID, func(p *entity.Project) (entity.ProjectPatch, error) {
		idx := p.FindBlock(b.ID)
		if idx < 0 {
			return entity.ProjectPatch{}, apperrors.ErrBlockNotFound.WithDetail(b.ID)
		}
		if b.Type == "" {
			b.Type = p.Script[idx].Type
		}
		if b.Storyboard == nil {
			b.Storyboard = p.Script[idx].Storyboard
		}
		p.Script[idx] = b
		return entity.ProjectPatch{Script: &p.Script}, nil
	})
}

// DeleteScriptBlock 删除剧本块
func (s *Store) DeleteScriptBlock(ctx context.Context, projectID, blockID string) (*entity.Project, error) {
	return s.Mutate(ctx, projectID, func(p *entity.Project) (entity.ProjectPatch, error) {
		idx := p.FindBlock(blockID)
		if idx < 0 {
			return entity.ProjectPatch{}, apperrors.ErrBlockNotFound.WithDetail(blockID)
		}
		script := slices.Delete(p.Script, idx, idx+1)
		return entity.ProjectPatch{Script: &script}, nil
	})
}

// SetStoryboard 设置或清除剧本块的分镜
func (s *Store) SetStoryboard(ctx context.Context, projectID, blockID string, sb *entity.Storyboard) (*entity.Project, error) {
	return s.Mutate(ctx, projectID, func(p *entity.Project) (entity.ProjectPatch, error) {
		idx := p.FindBlock(blockID)
		if idx < 0 {
			return entity.ProjectPatch{}, apperrors.ErrBlockNotFound.WithDetail(blockID)
		}
		p.Script[idx].Storyboard = sb
		return entity.ProjectPatch{Script: &p.Script}, nil
	})
}

// SetStoryboardRows 整体替换分镜制作表
func (s *Store) SetStoryboardRows(ctx context.Context, projectID string, rows []entity.StoryboardRow) (*entity.Project, error) {
	for i := range rows {
		if rows[i].ID == "" {
			rows[i].ID = uuid.NewString()
		}
	}
	return s.ApplyPatch(ctx, projectID, entity.ProjectPatch{StoryboardRows: &rows})
}

func checkEventRefs(p *entity.Project, e entity.PlotEvent) error {
	if p.FindPlotline(e.Plotline) < 0 {
		return apperrors.ErrPlotlineNotFound.WithDetail(e.Plotline)
	}
	if e.ActID != "" && p.FindSection(e.ActID) < 0 {
		return apperrors.ErrSectionNotFound.WithDetail(e.ActID)
	}
	return nil
}

func defaultSectionTitle(n int) string {
	return "第" + strconv.Itoa(n) + "集"
}

func moveItem[T any](s []T, from, to int) []T {
	item := s[from]
	s = slices.Delete(s, from, from+1)
	return slices.Insert(s, to, item)
}
