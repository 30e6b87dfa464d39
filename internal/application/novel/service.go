package novel

import (
	"context"

	"screenplay-ai-api/internal/application/projectstore"
	"screenplay-ai-api/internal/domain/entity"
	apperrors "screenplay-ai-api/pkg/errors"
	"screenplay-ai-api/pkg/logger"
	"screenplay-ai-api/pkg/metrics"
)

// Service 原著上传服务
type Service struct {
	store   *projectstore.Store
	chunker *Chunker
}

// NewService 创建原著上传服务
func NewService(store *projectstore.Store, chunker *Chunker) *Service {
	if chunker == nil {
		chunker = NewChunker(0)
	}
	return &Service{store: store, chunker: chunker}
}

// UploadResult 上传结果
type UploadResult struct {
	Project *entity.Project `json:"project"`
	Added   int             `json:"added"`
	Skipped []Skipped       `json:"skipped"`
}

// UploadDocuments 切片并追加文档。全部被跳过时项目不变。
func (s *Service) UploadDocuments(ctx context.Context, projectID string, docs []Document) (*UploadResult, error) {
	if len(docs) == 0 {
		return nil, apperrors.ErrInvalidParam.WithDetail("at least one document is required")
	}

	var res Result
	p, err := s.store.Mutate(ctx, projectID, func(cur *entity.Project) (entity.ProjectPatch, error) {
		res = s.chunker.Append(cur.NovelUploadChunks, docs)
		if len(res.Added) == 0 {
			return entity.ProjectPatch{}, nil
		}
		return entity.ProjectPatch{NovelUploadChunks: &res.Chunks}, nil
	})
	if err != nil {
		return nil, err
	}

	metrics.NovelChunksCreated.Add(float64(len(res.Added)))
	for _, sk := range res.Skipped {
		metrics.NovelDocumentsSkipped.WithLabelValues(string(sk.Reason)).Inc()
	}
	logger.Info(ctx, "novel documents uploaded",
		"project_id", projectID,
		"documents", len(docs),
		"chunks_added", len(res.Added),
		"skipped", len(res.Skipped))

	skipped := res.Skipped
	if skipped == nil {
		skipped = []Skipped{}
	}
	return &UploadResult{Project: p, Added: len(res.Added), Skipped: skipped}, nil
}

// RemoveChunk 删除一个分片并刷新全文缓存
func (s *Service) RemoveChunk(ctx context.Context, projectID, chunkID string) (*entity.Project, error) {
	return s.store.Mutate(ctx, projectID, func(cur *entity.Project) (entity.ProjectPatch, error) {
		chunks, _, ok := Remove(cur.NovelUploadChunks, chunkID)
		if !ok {
			return entity.ProjectPatch{}, apperrors.ErrChunkNotFound.WithDetail(chunkID)
		}
		return entity.ProjectPatch{NovelUploadChunks: &chunks}, nil
	})
}

// ClearChunks 清空全部原著分片
func (s *Service) ClearChunks(ctx context.Context, projectID string) (*entity.Project, error) {
	return s.store.Mutate(ctx, projectID, func(cur *entity.Project) (entity.ProjectPatch, error) {
		if len(cur.NovelUploadChunks) == 0 {
			return entity.ProjectPatch{}, nil
		}
		empty := []entity.NovelUploadChunk{}
		return entity.ProjectPatch{NovelUploadChunks: &empty}, nil
	})
}
