package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"screenplay-ai-api/internal/domain/repository"
)

// SnapshotRecord 快照表记录
type SnapshotRecord struct {
	Key       string    `gorm:"primaryKey;type:varchar(255)"`
	Value     []byte    `gorm:"type:bytea;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (SnapshotRecord) TableName() string {
	return "snapshots"
}

// SnapshotRepo PostgreSQL 快照仓储
type SnapshotRepo struct {
	client *Client
}

// NewSnapshotRepo 创建快照仓储
func NewSnapshotRepo(client *Client) *SnapshotRepo {
	return &SnapshotRepo{client: client}
}

// Load 读取快照
func (r *SnapshotRepo) Load(ctx context.Context, key string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "postgres.SnapshotRepo.Load",
		trace.WithAttributes(attribute.String("snapshot.key", key)))
	defer span.End()

	var rec SnapshotRecord
	err := r.client.db.WithContext(ctx).Where("key = ?", key).Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrSnapshotNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("load snapshot %s: %w", key, err)
	}
	span.SetAttributes(attribute.Int("snapshot.bytes", len(rec.Value)))
	return rec.Value, nil
}

// Save 覆盖写入快照（upsert）
func (r *SnapshotRepo) Save(ctx context.Context, key string, data []byte) error {
	ctx, span := tracer.Start(ctx, "postgres.SnapshotRepo.Save",
		trace.WithAttributes(
			attribute.String("snapshot.key", key),
			attribute.Int("snapshot.bytes", len(data)),
		))
	defer span.End()

	rec := SnapshotRecord{Key: key, Value: data, UpdatedAt: time.Now()}
	err := r.client.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("save snapshot %s: %w", key, err)
	}
	return nil
}

// Delete 删除快照
func (r *SnapshotRepo) Delete(ctx context.Context, key string) error {
	ctx, span := tracer.Start(ctx, "postgres.SnapshotRepo.Delete",
		trace.WithAttributes(attribute.String("snapshot.key", key)))
	defer span.End()

	if err := r.client.db.WithContext(ctx).Where("key = ?", key).Delete(&SnapshotRecord{}).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("delete snapshot %s: %w", key, err)
	}
	return nil
}

// Ping 健康检查
func (r *SnapshotRepo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx)
}

var _ repository.SnapshotRepository = (*SnapshotRepo)(nil)
