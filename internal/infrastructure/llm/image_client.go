package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"screenplay-ai-api/internal/config"
	"screenplay-ai-api/internal/workflow/port"
	"screenplay-ai-api/pkg/metrics"
)

// ImageClient OpenAI 兼容的 /images/generations 与 /images/edits 客户端
type ImageClient struct {
	cfg  config.ImageConfig
	http *http.Client
}

// NewImageClient 创建图片客户端
func NewImageClient(cfg config.ImageConfig) *ImageClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Size == "" {
		cfg.Size = "1024x1024"
	}
	return &ImageClient{cfg: cfg, http: &http.Client{Timeout: timeout}}
}

type imageResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate 文生图
func (c *ImageClient) Generate(ctx context.Context, prompt string) (*port.Image, error) {
	body, err := json.Marshal(map[string]any{
		"model":           c.cfg.Model,
		"prompt":          prompt,
		"n":               1,
		"size":            c.cfg.Size,
		"response_format": "b64_json",
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/images/generations"), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, "generate")
}

// Edit 以参考图加提示词生成新图
func (c *ImageClient) Edit(ctx context.Context, prompt string, source []byte) (*port.Image, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range map[string]string{
		"model":           c.cfg.Model,
		"prompt":          prompt,
		"n":               "1",
		"size":            c.cfg.Size,
		"response_format": "b64_json",
	} {
		if err := w.WriteField(k, v); err != nil {
			return nil, err
		}
	}
	fw, err := w.CreateFormFile("image", "source.png")
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(source); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/images/edits"), &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.do(req, "edit")
}

func (c *ImageClient) do(req *http.Request, kind string) (*port.Image, error) {
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ImageCallTotal.WithLabelValues(kind, "error").Inc()
		return nil, fmt.Errorf("image %s request: %w", kind, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		metrics.ImageCallTotal.WithLabelValues(kind, "error").Inc()
		return nil, fmt.Errorf("read image %s response: %w", kind, err)
	}

	var parsed imageResponse
	_ = json.Unmarshal(raw, &parsed)
	if resp.StatusCode >= http.StatusBadRequest {
		metrics.ImageCallTotal.WithLabelValues(kind, "error").Inc()
		msg := strings.TrimSpace(string(raw))
		if parsed.Error != nil && parsed.Error.Message != "" {
			msg = parsed.Error.Message
		}
		return nil, fmt.Errorf("image %s failed: status %d: %s", kind, resp.StatusCode, msg)
	}

	for _, d := range parsed.Data {
		if d.B64JSON != "" {
			metrics.ImageCallTotal.WithLabelValues(kind, "success").Inc()
			return &port.Image{Data: d.B64JSON, MimeType: "image/png"}, nil
		}
	}
	metrics.ImageCallTotal.WithLabelValues(kind, "empty").Inc()
	return nil, nil
}

func (c *ImageClient) endpoint(path string) string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + path
}

var _ port.ImageGenerator = (*ImageClient)(nil)
