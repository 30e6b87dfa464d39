// Package memory 提供进程内快照存储，用于测试和无持久化运行
package memory

import (
	"context"
	"sync"

	"screenplay-ai-api/internal/domain/repository"
)

// SnapshotRepo 进程内快照仓储
type SnapshotRepo struct {
	mu   sync.RWMutex
	data map[string][]byte
	// FailSave 非 nil 时 Save 返回该错误，用于模拟存储故障
	FailSave error
}

// NewSnapshotRepo 创建进程内仓储
func NewSnapshotRepo() *SnapshotRepo {
	return &SnapshotRepo{data: make(map[string][]byte)}
}

// Load 读取快照
func (r *SnapshotRepo) Load(_ context.Context, key string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.data[key]
	if !ok {
		return nil, repository.ErrSnapshotNotFound
	}
	return append([]byte(nil), v...), nil
}

// Save 覆盖写入快照
func (r *SnapshotRepo) Save(_ context.Context, key string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailSave != nil {
		return r.FailSave
	}
	r.data[key] = append([]byte(nil), data...)
	return nil
}

// Delete 删除快照
func (r *SnapshotRepo) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.data, key)
	return nil
}

var _ repository.SnapshotRepository = (*SnapshotRepo)(nil)
