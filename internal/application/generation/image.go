package generation

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"screenplay-ai-api/internal/workflow/port"
	"screenplay-ai-api/pkg/tracer"
)

// GenerateImage 文生图；服务未返回图片时返回 ErrNoImage
func (g *Gateway) GenerateImage(ctx context.Context, prompt string) (*Result[port.Image], error) {
	ctx, span := tracer.Start(ctx, "generation.image")
	defer span.End()

	if strings.TrimSpace(prompt) == "" {
		return nil, errors.New("image prompt is empty")
	}
	if g.images == nil {
		return nil, fmt.Errorf("%w: image generation is not configured", ErrNoImage)
	}
	img, err := g.images.Generate(ctx, prompt)
	return imageResult(span, img, err)
}

// EditImage 以参考图生成新图。source 可以是 data URL 或纯 base64。
func (g *Gateway) EditImage(ctx context.Context, prompt, source string) (*Result[port.Image], error) {
	ctx, span := tracer.Start(ctx, "generation.image_edit")
	defer span.End()

	if g.images == nil {
		return nil, fmt.Errorf("%w: image generation is not configured", ErrNoImage)
	}
	raw, err := DecodeImageData(source)
	if err != nil {
		return nil, err
	}
	img, err := g.images.Edit(ctx, prompt, raw)
	return imageResult(span, img, err)
}

// DecodeImageData 解码 data URL 或纯 base64 图片
func DecodeImageData(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, ";base64,"); strings.HasPrefix(s, "data:") && i >= 0 {
		s = s[i+len(";base64,"):]
	}
	if s == "" {
		return nil, invalid("source image is empty")
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, invalid("source image is not base64: %v", err)
	}
	return raw, nil
}

func imageResult(span trace.Span, img *port.Image, err error) (*Result[port.Image], error) {
	if err != nil {
		return nil, err
	}
	if img == nil || img.Data == "" {
		span.SetAttributes(attribute.Bool("image.empty", true))
		return nil, ErrNoImage
	}
	return &Result[port.Image]{Value: *img}, nil
}
