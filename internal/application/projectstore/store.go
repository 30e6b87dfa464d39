// Package projectstore 维护项目集合：唯一的变更入口、时间戳与快照持久化
package projectstore

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"screenplay-ai-api/internal/domain/entity"
	"screenplay-ai-api/internal/domain/repository"
	apperrors "screenplay-ai-api/pkg/errors"
	"screenplay-ai-api/pkg/logger"
	"screenplay-ai-api/pkg/metrics"
	"screenplay-ai-api/pkg/tracer"
)

// 默认存储键，版本号写在键名里
const (
	DefaultProjectsKey = "screenplay_projects_v1"
	DefaultActiveKey   = "screenplay_active_project_v1"
)

// ChangeListener 项目变更订阅者，在锁外同步调用
type ChangeListener interface {
	OnProjectChanged(ctx context.Context, change entity.ProjectChange)
}

// ChangeListenerFunc 函数适配器
type ChangeListenerFunc func(ctx context.Context, change entity.ProjectChange)

// OnProjectChanged 实现 ChangeListener
func (f ChangeListenerFunc) OnProjectChanged(ctx context.Context, change entity.ProjectChange) {
	f(ctx, change)
}

// MutateFunc 基于当前项目（副本）计算补丁；返回错误时项目保持不变
type MutateFunc func(current *entity.Project) (entity.ProjectPatch, error)

// Options 存储选项
type Options struct {
	ProjectsKey string
	ActiveKey   string
	// Now 时钟，测试时注入
	Now func() time.Time
}

// Store 项目集合
//
// 所有修改都经过 Mutate：合并补丁、级联修复、校验、刷新 updatedAt、整体持久化，作为一个原子步骤。
// 同一字段上的并发修改以后完成者为准。
type Store struct {
	mu          sync.Mutex
	repo        repository.SnapshotRepository
	projectsKey string
	activeKey   string
	now         func() time.Time

	projects []*entity.Project
	activeID string

	listenersMu sync.RWMutex
	listeners   []ChangeListener
}

// New 创建存储，调用方随后应执行 Hydrate
func New(repo repository.SnapshotRepository, opts Options) *Store {
	if opts.ProjectsKey == "" {
		opts.ProjectsKey = DefaultProjectsKey
	}
	if opts.ActiveKey == "" {
		opts.ActiveKey = DefaultActiveKey
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		repo:        repo,
		projectsKey: opts.ProjectsKey,
		activeKey:   opts.ActiveKey,
		now:         opts.Now,
	}
}

// Subscribe 注册变更订阅者
func (s *Store) Subscribe(l ChangeListener) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Hydrate 启动时加载快照。读取或解析失败时退回空集合，只记录告警，不阻止启动。
func (s *Store) Hydrate(ctx context.Context) {
	ctx, span := tracer.Start(ctx, "projectstore.Hydrate")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.projects = nil
	s.activeID = ""

	data, err := s.repo.Load(ctx, s.projectsKey)
	switch {
	case errors.Is(err, repository.ErrSnapshotNotFound):
		metrics.SnapshotHydrateTotal.WithLabelValues("empty").Inc()
	case err != nil:
		metrics.SnapshotHydrateTotal.WithLabelValues("error").Inc()
		logger.Warn(ctx, "failed to read project snapshot, starting empty", "key", s.projectsKey, "error", err.Error())
	default:
		var loaded []*entity.Project
		if err := json.Unmarshal(data, &loaded); err != nil {
			metrics.SnapshotHydrateTotal.WithLabelValues("corrupt").Inc()
			logger.Warn(ctx, "project snapshot is corrupt, starting empty", "key", s.projectsKey, "error", err.Error())
			break
		}
		for _, p := range loaded {
			if p == nil || p.ID == "" {
				continue
			}
			normalize(p)
			p.Reconcile()
			s.projects = append(s.projects, p)
		}
		metrics.SnapshotHydrateTotal.WithLabelValues("ok").Inc()
	}

	if raw, err := s.repo.Load(ctx, s.activeKey); err == nil && s.indexLocked(string(raw)) >= 0 {
		s.activeID = string(raw)
	} else if len(s.projects) > 0 {
		s.activeID = s.projects[0].ID
	}

	metrics.ProjectsLoaded.Set(float64(len(s.projects)))
	span.SetAttributes(attribute.Int("projects.count", len(s.projects)))
	logger.Info(ctx, "project store hydrated", "projects", len(s.projects), "active", s.activeID)
}

// Create 新建项目并设为当前项目
func (s *Store) Create(ctx context.Context, title string) *entity.Project {
	s.mu.Lock()
	p := entity.NewProject(title, s.now())
	s.projects = append([]*entity.Project{p}, s.projects...)
	s.activeID = p.ID
	s.persistLocked(ctx)
	s.persistActiveLocked(ctx)
	metrics.ProjectsLoaded.Set(float64(len(s.projects)))
	out := p.Clone()
	s.mu.Unlock()

	s.notify(ctx, entity.ProjectChange{ProjectID: p.ID, Kind: entity.ChangeCreated, UpdatedAt: p.UpdatedAt})
	return out
}

// Import 导入一个完整项目；ID 冲突时生成新 ID
func (s *Store) Import(ctx context.Context, p *entity.Project) (*entity.Project, error) {
	if p == nil {
		return nil, apperrors.ErrInvalidParam.WithDetail("project is required")
	}
	next := p.Clone()
	normalize(next)
	next.Reconcile()

	s.mu.Lock()
	if next.ID == "" || s.indexLocked(next.ID) >= 0 {
		next.ID = uuid.NewString()
	}
	if err := validate(next, "import"); err != nil {
		s.mu.Unlock()
		return nil, apperrors.Wrap(err, apperrors.CodeValidationFailed, "invalid project")
	}
	now := s.now().UnixMilli()
	if next.CreatedAt == 0 {
		next.CreatedAt = now
	}
	next.UpdatedAt = now
	s.projects = append([]*entity.Project{next}, s.projects...)
	s.persistLocked(ctx)
	metrics.ProjectsLoaded.Set(float64(len(s.projects)))
	out := next.Clone()
	s.mu.Unlock()

	s.notify(ctx, entity.ProjectChange{ProjectID: next.ID, Kind: entity.ChangeCreated, UpdatedAt: next.UpdatedAt})
	return out, nil
}

// Get 返回项目副本
func (s *Store) Get(id string) (*entity.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return nil, apperrors.ErrProjectNotFound.WithDetail(id)
	}
	return s.projects[idx].Clone(), nil
}

// List 返回全部项目摘要，顺序与集合一致（最新创建在前）
func (s *Store) List() []entity.ProjectSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]entity.ProjectSummary, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, p.Summary())
	}
	return out
}

// Delete 从集合中移除项目
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return apperrors.ErrProjectNotFound.WithDetail(id)
	}
	s.projects = append(s.projects[:idx:idx], s.projects[idx+1:]...)
	if s.activeID == id {
		s.activeID = ""
		if len(s.projects) > 0 {
			s.activeID = s.projects[0].ID
		}
		s.persistActiveLocked(ctx)
	}
	s.persistLocked(ctx)
	metrics.ProjectsLoaded.Set(float64(len(s.projects)))
	s.mu.Unlock()

	s.notify(ctx, entity.ProjectChange{ProjectID: id, Kind: entity.ChangeDeleted, UpdatedAt: s.now().UnixMilli()})
	return nil
}

// SetActive 切换当前编辑的项目
func (s *Store) SetActive(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexLocked(id) < 0 {
		return apperrors.ErrProjectNotFound.WithDetail(id)
	}
	s.activeID = id
	s.persistActiveLocked(ctx)
	return nil
}

// Active 返回当前项目
func (s *Store) Active() (*entity.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(s.activeID)
	if idx < 0 {
		return nil, apperrors.ErrProjectNotFound.WithDetail("no active project")
	}
	return s.projects[idx].Clone(), nil
}

// ActiveID 返回当前项目 ID，没有时为空
func (s *Store) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// ApplyPatch 合并一个固定补丁
func (s *Store) ApplyPatch(ctx context.Context, id string, patch entity.ProjectPatch) (*entity.Project, error) {
	return s.Mutate(ctx, id, func(*entity.Project) (entity.ProjectPatch, error) {
		return patch, nil
	})
}

// Mutate 唯一的变更入口。
//
// fn 在锁内基于当前项目的副本计算补丁。fn 返回错误、补丁校验失败时项目与 updatedAt 均不变；
// 空补丁视为无操作。成功时 updatedAt 严格递增并持久化整个集合。
func (s *Store) Mutate(ctx context.Context, id string, fn MutateFunc) (*entity.Project, error) {
	ctx, span := tracer.StartProject(ctx, "projectstore.Mutate", id)
	defer span.End()
	ctx = logger.WithContext(ctx, logger.ProjectIDKey, id)

	next, change, err := s.mutate(ctx, id, fn)
	if err != nil {
		metrics.ProjectPatchTotal.WithLabelValues("rejected").Inc()
		tracer.RecordError(span, err)
		return nil, err
	}
	if change == nil {
		metrics.ProjectPatchTotal.WithLabelValues("noop").Inc()
		return next, nil
	}

	metrics.ProjectPatchTotal.WithLabelValues("applied").Inc()
	if change.Cascade.Changed() {
		logger.Info(ctx, "patch cascaded",
			"pruned_relationships", change.Cascade.PrunedRelationships,
			"deleted_events", change.Cascade.DeletedEvents,
			"unscheduled_events", change.Cascade.UnscheduledEvents)
	}
	s.notify(ctx, *change)
	return next, nil
}

func (s *Store) mutate(ctx context.Context, id string, fn MutateFunc) (*entity.Project, *entity.ProjectChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return nil, nil, apperrors.ErrProjectNotFound.WithDetail(id)
	}
	current := s.projects[idx]

	patch, err := fn(current.Clone())
	if err != nil {
		return nil, nil, err
	}
	if patch.IsEmpty() {
		return current.Clone(), nil, nil
	}

	next := entity.Merge(current, patch)
	normalize(next)
	report := next.Reconcile()
	if err := validate(next, "patch"); err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.CodeValidationFailed, "patch produces an invalid project")
	}
	next.UpdatedAt = s.stamp(current.UpdatedAt)

	s.projects[idx] = next
	s.persistLocked(ctx)

	return next.Clone(), &entity.ProjectChange{
		ProjectID: id,
		Kind:      entity.ChangeUpdated,
		Fields:    patch.Fields(),
		UpdatedAt: next.UpdatedAt,
		Cascade:   report,
	}, nil
}

// stamp 计算新的修改时间，保证严格大于上一次
func (s *Store) stamp(prev int64) int64 {
	now := s.now().UnixMilli()
	if now <= prev {
		return prev + 1
	}
	return now
}

func (s *Store) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i, p := range s.projects {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// persistLocked 序列化整个集合写入存储；失败只记录，不影响内存状态
func (s *Store) persistLocked(ctx context.Context) {
	projects := s.projects
	if projects == nil {
		projects = []*entity.Project{}
	}
	data, err := json.Marshal(projects)
	if err != nil {
		metrics.SnapshotPersistTotal.WithLabelValues("error").Inc()
		logger.Error(ctx, "failed to encode project snapshot", err)
		return
	}
	if err := s.repo.Save(ctx, s.projectsKey, data); err != nil {
		metrics.SnapshotPersistTotal.WithLabelValues("error").Inc()
		logger.Error(ctx, "failed to persist project snapshot", err, "key", s.projectsKey, "bytes", len(data))
		return
	}
	metrics.SnapshotPersistTotal.WithLabelValues("ok").Inc()
}

func (s *Store) persistActiveLocked(ctx context.Context) {
	var err error
	if s.activeID == "" {
		err = s.repo.Delete(ctx, s.activeKey)
	} else {
		err = s.repo.Save(ctx, s.activeKey, []byte(s.activeID))
	}
	if err != nil {
		logger.Error(ctx, "failed to persist active project", err, "key", s.activeKey)
	}
}

func (s *Store) notify(ctx context.Context, change entity.ProjectChange) {
	s.listenersMu.RLock()
	listeners := append([]ChangeListener(nil), s.listeners...)
	s.listenersMu.RUnlock()

	for _, l := range listeners {
		l.OnProjectChanged(ctx, change)
	}
}

// normalize 把缺失的集合字段补成空切片，保证快照里是 [] 而不是 null
func normalize(p *entity.Project) {
	if p.Characters == nil {
		p.Characters = []entity.Character{}
	}
	if p.Relationships == nil {
		p.Relationships = []entity.CharacterRelationship{}
	}
	if p.Outline == nil {
		p.Outline = []entity.OutlineSection{}
	}
	if p.PlotEvents == nil {
		p.PlotEvents = []entity.PlotEvent{}
	}
	if p.DefinedPlotlines == nil {
		p.DefinedPlotlines = entity.DefaultPlotlines()
	}
	if p.Script == nil {
		p.Script = []entity.ScriptBlock{}
	}
	if p.NovelUploadChunks == nil {
		p.NovelUploadChunks = []entity.NovelUploadChunk{}
	}
	p.NovelFullText = entity.JoinNovelChunks(p.NovelUploadChunks)
	if p.NovelAdaptationPlan == nil {
		p.NovelAdaptationPlan = []entity.AdaptationEpisode{}
	}
	if p.StoryboardRows == nil {
		p.StoryboardRows = []entity.StoryboardRow{}
	}
}

// validate 校验项目并计数
func validate(p *entity.Project, kind string) error {
	if err := p.Validate(); err != nil {
		metrics.ValidationTotal.WithLabelValues(kind, "rejected").Inc()
		return err
	}
	metrics.ValidationTotal.WithLabelValues(kind, "ok").Inc()
	return nil
}
