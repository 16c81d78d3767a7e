package tracing

import (
	"strings"
)

const (
	// DefaultMaxLength 默认最大属性长度
	DefaultMaxLength = 200

	// MaxURLLength 请求路径最大长度
	MaxURLLength = 150

	// MaxChunkLength SSE 消息片段最大长度
	MaxChunkLength = 120

	// MaxRedisLength Redis 键值最大长度
	MaxRedisLength = 100

	// MaxBodyLength 请求/响应体摘要最大长度
	MaxBodyLength = 150
)

// maskPIILookup 需要掩码处理的关键字映射
var maskPIILookup = map[string]bool{
	"wechat_id":     true,
	"wechat_openid": true,
	"openid":        true,
	"invite_code":   true,
	"邀请码":           true,
	"nickname":      true,
	"nick_name":     true,
	"昵称":            true,
	"phone":         true,
	"password":      true,
	"token":         true,
	"secret":        true,
}

// SafeAttributeValue 确保属性值安全，不包含敏感信息
// 1. 如果是敏感关键字对应的值，返回掩码处理后的值
// 2. 如果长度超过maxLength，则截断并添加省略号
func SafeAttributeValue(name string, value string, maxLength int) string {
	lowerName := strings.ToLower(name)
	for keyword := range maskPIILookup {
		if strings.Contains(lowerName, keyword) {
			return MaskPII(value)
		}
	}

	return TruncateString(value, maxLength)
}

// MaskPII 对个人敏感信息进行掩码处理
func MaskPII(value string) string {
	if value == "" {
		return ""
	}

	runes := []rune(value)
	length := len(runes)

	if length <= 1 {
		return "*"
	}
	if length <= 4 {
		if length == 2 {
			return string(runes[0:1]) + "*"
		}
		return string(runes[0:1]) + strings.Repeat("*", length-2) + string(runes[length-1:])
	}

	// 较长的字符串只保留首尾各两位，如 "oX2abcdEFgh" -> "oX*******gh"
	return string(runes[0:2]) + strings.Repeat("*", length-4) + string(runes[length-2:])
}

// TruncateString 截断字符串，并在截断时添加省略号
func TruncateString(s string, maxLength int) string {
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}

	if maxLength <= 3 {
		return string(runes[:maxLength])
	}

	half := (maxLength - 3) / 2
	if half < 1 {
		half = 1
	}

	return string(runes[:half]) + "..." + string(runes[len(runes)-half:])
}

// SafeRedisKey 安全处理 Redis 键
func SafeRedisKey(key string) string {
	return TruncateString(key, MaxRedisLength)
}

// SafeChunk 安全处理 SSE 消息片段
func SafeChunk(chunk string) string {
	return TruncateString(chunk, MaxChunkLength)
}
