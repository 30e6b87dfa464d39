package studio

import (
	"context"
	"strings"

	"screenplay-ai-api/internal/application/generation"
	"screenplay-ai-api/internal/domain/entity"
	apperrors "screenplay-ai-api/pkg/errors"
)

// GenerateBlockImage 为剧本块生成分镜图。提示词优先使用分镜的 imagePrompt，其次是块内容。
func (s *Service) GenerateBlockImage(ctx context.Context, projectID, blockID string) (*entity.Project, error) {
	return s.run(ctx, projectID, generation.OpGenerateImage, blockID, func(ctx context.Context) (*entity.Project, error) {
		block, err := s.block(projectID, blockID)
		if err != nil {
			return nil, err
		}
		prompt := block.Content
		if block.Storyboard != nil && strings.TrimSpace(block.Storyboard.ImagePrompt) != "" {
			prompt = block.Storyboard.ImagePrompt
		}
		if strings.TrimSpace(prompt) == "" {
			return nil, apperrors.New(apperrors.CodeInvalidParam, "the block has nothing to draw")
		}

		res, err := s.gw.GenerateImage(ctx, prompt)
		if err != nil {
			return nil, err
		}
		return s.setBlockImage(ctx, projectID, blockID, res.Value.DataURL())
	})
}

// EditBlockImage 以剧本块现有分镜图为参考，按指令生成新图
func (s *Service) EditBlockImage(ctx context.Context, projectID, blockID, instruction string) (*entity.Project, error) {
	return s.run(ctx, projectID, generation.OpEditImage, blockID, func(ctx context.Context) (*entity.Project, error) {
		if strings.TrimSpace(instruction) == "" {
			return nil, apperrors.New(apperrors.CodeInvalidParam, "instruction is required")
		}
		block, err := s.block(projectID, blockID)
		if err != nil {
			return nil, err
		}
		if block.Storyboard == nil || block.Storyboard.ImageData == "" {
			return nil, apperrors.New(apperrors.CodeInvalidParam, "the block has no image to edit")
		}

		res, err := s.gw.EditImage(ctx, instruction, block.Storyboard.ImageData)
		if err != nil {
			return nil, err
		}
		return s.setBlockImage(ctx, projectID, blockID, res.Value.DataURL())
	})
}

// GenerateAvatar 根据角色描述生成头像
func (s *Service) GenerateAvatar(ctx context.Context, projectID, characterID string) (*entity.Project, error) {
	return s.run(ctx, projectID, generation.OpGenerateImage, "avatar:"+characterID, func(ctx context.Context) (*entity.Project, error) {
		p, err := s.load(projectID)
		if err != nil {
			return nil, err
		}
		idx := p.FindCharacter(characterID)
		if idx < 0 {
			return nil, apperrors.ErrCharacterNotFound.WithDetail(characterID)
		}
		c := p.Characters[idx]

		prompt := "角色头像，半身像。" + c.Name
		if c.Age != "" {
			prompt += "，" + c.Age
		}
		if c.Description != "" {
			prompt += "，" + c.Description
		}
		res, err := s.gw.GenerateImage(ctx, prompt)
		if err != nil {
			return nil, err
		}
		return s.store.Mutate(ctx, projectID, func(cur *entity.Project) (entity.ProjectPatch, error) {
			i := cur.FindCharacter(characterID)
			if i < 0 {
				return entity.ProjectPatch{}, apperrors.ErrCharacterNotFound.WithDetail(characterID)
			}
			cur.Characters[i].Avatar = res.Value.DataURL()
			return entity.ProjectPatch{Characters: &cur.Characters}, nil
		})
	})
}

func (s *Service) block(projectID, blockID string) (*entity.ScriptBlock, error) {
	p, err := s.load(projectID)
	if err != nil {
		return nil, err
	}
	idx := p.FindBlock(blockID)
	if idx < 0 {
		return nil, apperrors.ErrBlockNotFound.WithDetail(blockID)
	}
	return &p.Script[idx], nil
}

// setBlockImage 写入分镜图，块没有分镜时创建一个
func (s *Service) setBlockImage(ctx context.Context, projectID, blockID, dataURL string) (*entity.Project, error) {
	return s.store.Mutate(ctx, projectID, func(cur *entity.Project) (entity.ProjectPatch, error) {
		idx := cur.FindBlock(blockID)
		if idx < 0 {
			return entity.ProjectPatch{}, apperrors.ErrBlockNotFound.WithDetail(blockID)
		}
		sb := cur.Script[idx].Storyboard
		if sb == nil {
			sb = &entity.Storyboard{}
		}
		sb.ImageData = dataURL
		cur.Script[idx].Storyboard = sb
		return entity.ProjectPatch{Script: &cur.Script}, nil
	})
}
