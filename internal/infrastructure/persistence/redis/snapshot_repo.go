package redis

import (
	"context"
	"fmt"

	"screenplay-ai-api/internal/domain/repository"
)

// SnapshotRepo 以普通字符串键保存项目快照
type SnapshotRepo struct {
	client *Client
	prefix string
}

// NewSnapshotRepo 创建快照仓储，prefix 用于隔离多个部署共享同一个 Redis
func NewSnapshotRepo(client *Client, prefix string) *SnapshotRepo {
	return &SnapshotRepo{client: client, prefix: prefix}
}

func (r *SnapshotRepo) key(k string) string {
	return r.prefix + k
}

// Load 读取快照
func (r *SnapshotRepo) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.GetBytes(ctx, r.key(key))
	if err != nil {
		if IsNil(err) {
			return nil, repository.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("load snapshot %s: %w", key, err)
	}
	return data, nil
}

// Save 覆盖写入快照
func (r *SnapshotRepo) Save(ctx context.Context, key string, data []byte) error {
	if err := r.client.Set(ctx, r.key(key), data, 0); err != nil {
		return fmt.Errorf("save snapshot %s: %w", key, err)
	}
	return nil
}

// Delete 删除快照
func (r *SnapshotRepo) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", key, err)
	}
	return nil
}

// Ping 健康检查
func (r *SnapshotRepo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx)
}

var _ repository.SnapshotRepository = (*SnapshotRepo)(nil)
