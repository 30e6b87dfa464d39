package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"screenplay-ai-api/internal/domain/entity"
	"screenplay-ai-api/pkg/logger"
	"screenplay-ai-api/pkg/metrics"
)

var tracer = otel.Tracer("messaging")

// Producer 消息生产者
type Producer struct {
	client *redis.Client
	stream Stream
	maxLen int64
}

// NewProducer 创建消息生产者
func NewProducer(client *redis.Client, stream Stream, maxLen int64) *Producer {
	if maxLen <= 0 {
		maxLen = 10000
	}
	if stream == "" {
		stream = StreamProjectChanges
	}
	return &Producer{client: client, stream: stream, maxLen: maxLen}
}

// Publish 发布消息到流
func (p *Producer) Publish(ctx context.Context, msg *Message) (string, error) {
	ctx, span := tracer.Start(ctx, "producer.Publish",
		trace.WithAttributes(
			attribute.String("stream", string(p.stream)),
			attribute.String("message.id", msg.ID),
			attribute.String("message.type", msg.Type),
		))
	defer span.End()

	data, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	result, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: string(p.stream),
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]any{"data": string(data)},
	}).Result()
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to publish message: %w", err)
	}

	span.SetAttributes(attribute.String("stream.message_id", result))
	return result, nil
}

// PublishProjectChange 发布项目变更事件
func (p *Producer) PublishProjectChange(ctx context.Context, change entity.ProjectChange) error {
	msg, err := NewMessage(uuid.NewString(), "project_"+string(change.Kind), change.ProjectID, change)
	if err != nil {
		return err
	}
	if len(change.Fields) > 0 {
		msg.SetMetadata("fields", strings.Join(change.Fields, ","))
	}
	_, err = p.Publish(ctx, msg)
	return err
}

// OnProjectChanged 作为项目存储的变更监听器，发布失败只记录日志
func (p *Producer) OnProjectChanged(ctx context.Context, change entity.ProjectChange) {
	if err := p.PublishProjectChange(ctx, change); err != nil {
		metrics.ChangeEventsPublished.WithLabelValues("error").Inc()
		logger.Warn(ctx, "failed to publish project change",
			"project_id", change.ProjectID, "kind", change.Kind, "error", err.Error())
		return
	}
	metrics.ChangeEventsPublished.WithLabelValues("ok").Inc()
}
