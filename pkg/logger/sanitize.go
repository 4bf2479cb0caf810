package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const redacted = "***"

// Credentials and the contact details of listings never reach the logs.
var sensitiveKeys = []string{
	"password",
	"token",
	"secret",
	"authorization",
	"cookie",
	"phone",
	"email",
	"contactname",
}

// SanitizeFields replaces sensitive values, including ones nested inside
// object or array fields.
func SanitizeFields(fields []zap.Field) []zap.Field {
	if len(fields) == 0 {
		return fields
	}

	out := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		if IsSensitiveKey(field.Key) {
			out = append(out, zap.String(field.Key, redacted))
			continue
		}

		enc := zapcore.NewMapObjectEncoder()
		field.AddTo(enc)
		value, ok := enc.Fields[field.Key]
		if !ok {
			out = append(out, field)
			continue
		}

		switch value.(type) {
		case map[string]interface{}, []interface{}:
			out = append(out, zap.Any(field.Key, redact(value)))
		default:
			out = append(out, field)
		}
	}
	return out
}

func redact(value interface{}) interface{} {
	switch typed := value.(type) {
	case map[string]interface{}:
		clean := make(map[string]interface{}, len(typed))
		for k, v := range typed {
			if IsSensitiveKey(k) {
				clean[k] = redacted
				continue
			}
			clean[k] = redact(v)
		}
		return clean
	case []interface{}:
		clean := make([]interface{}, 0, len(typed))
		for _, item := range typed {
			clean = append(clean, redact(item))
		}
		return clean
	default:
		return typed
	}
}

func IsSensitiveKey(key string) bool {
	normalized := strings.ToLower(strings.TrimSpace(key))
	normalized = strings.NewReplacer("-", "", "_", "").Replace(normalized)
	if normalized == "" {
		return false
	}

	for _, token := range sensitiveKeys {
		if strings.Contains(normalized, token) {
			return true
		}
	}
	return false
}
