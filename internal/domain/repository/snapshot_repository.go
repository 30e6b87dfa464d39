// Package repository 定义数据访问层接口
package repository

import (
	"context"
	"errors"
)

// ErrSnapshotNotFound 指定键下没有任何快照
var ErrSnapshotNotFound = errors.New("snapshot not found")

// SnapshotRepository 键值快照存储
//
// 项目集合整体序列化为一个 JSON 数组保存在固定键下，存储层不理解其内容。
type SnapshotRepository interface {
	// Load 读取快照，不存在时返回 ErrSnapshotNotFound
	Load(ctx context.Context, key string) ([]byte, error)
	// Save 覆盖写入快照
	Save(ctx context.Context, key string, data []byte) error
	// Delete 删除快照，不存在时不报错
	Delete(ctx context.Context, key string) error
}

// HealthChecker 可选的存储健康检查
type HealthChecker interface {
	Ping(ctx context.Context) error
}
