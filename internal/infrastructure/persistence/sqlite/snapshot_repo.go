package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"screenplay-ai-api/internal/domain/repository"
)

var tracer = otel.Tracer("sqlite")

// SnapshotRepo SQLite 快照仓储
type SnapshotRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewSnapshotRepo 创建快照仓储
func NewSnapshotRepo(db *sql.DB) *SnapshotRepo {
	return &SnapshotRepo{db: db, now: time.Now}
}

// Load 读取快照
func (r *SnapshotRepo) Load(ctx context.Context, key string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "sqlite.SnapshotRepo.Load",
		trace.WithAttributes(attribute.String("snapshot.key", key)))
	defer span.End()

	var data []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM snapshots WHERE snapshot_key = ?`, key).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrSnapshotNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("load snapshot %s: %w", key, err)
	}
	return data, nil
}

// Save 覆盖写入快照
func (r *SnapshotRepo) Save(ctx context.Context, key string, data []byte) error {
	ctx, span := tracer.Start(ctx, "sqlite.SnapshotRepo.Save",
		trace.WithAttributes(
			attribute.String("snapshot.key", key),
			attribute.Int("snapshot.bytes", len(data)),
		))
	defer span.End()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO snapshots (snapshot_key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(snapshot_key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, data, r.now().UnixMilli())
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("save snapshot %s: %w", key, err)
	}
	return nil
}

// Delete 删除快照
func (r *SnapshotRepo) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM snapshots WHERE snapshot_key = ?`, key); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", key, err)
	}
	return nil
}

// Ping 健康检查
func (r *SnapshotRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

var _ repository.SnapshotRepository = (*SnapshotRepo)(nil)
