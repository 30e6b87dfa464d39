package node

import "strings"

// IsResponseFormatUnsupportedError 判断错误是否因为服务端不支持 response_format / json_schema。
// 命中时调用方退回纯提示词约束重新请求一次。
func IsResponseFormatUnsupportedError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"response_format", "json_schema", "response_schema", "failed to parse"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return strings.Contains(msg, "response") &&
		(strings.Contains(msg, "unknown parameter") || strings.Contains(msg, "invalid"))
}
