package node

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSON 模型输出中找不到 JSON 值
var ErrNoJSON = errors.New("no json value in model output")

// ExtractJSONObject 从模型输出中截取第一个 JSON 对象或数组。
// 模型常在 JSON 前后夹带说明文字或 Markdown 代码块。
func ExtractJSONObject(s string) string {
	raw := stripCodeFence(strings.TrimSpace(s))
	if raw == "" {
		return raw
	}

	objStart := strings.Index(raw, "{")
	arrStart := strings.Index(raw, "[")
	start, end := -1, -1
	switch {
	case objStart >= 0 && (arrStart < 0 || objStart < arrStart):
		start = objStart
		end = strings.LastIndex(raw, "}")
	case arrStart >= 0:
		start = arrStart
		end = strings.LastIndex(raw, "]")
	}
	if start >= 0 && end > start {
		raw = raw[start : end+1]
	}
	return raw
}

// DecodeJSON 截取并解码模型输出
func DecodeJSON[T any](s string) (T, error) {
	var out T
	raw := ExtractJSONObject(s)
	if raw == "" || (raw[0] != '{' && raw[0] != '[') {
		return out, ErrNoJSON
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return out, fmt.Errorf("decode model json: %w", err)
	}
	return out, nil
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
