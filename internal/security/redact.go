package security

import (
	"regexp"
	"strings"
)

// Secret redaction is applied to log records and captured output only, never
// to the script text actually sent to the execution environment.

var (
	sensitiveKeyRegexp = regexp.MustCompile(`(?i)(?:license[_-]?key|api[_-]?key|access[_-]?key|auth[_-]?token|token|passwd|password|secret|credential)`)

	// key=value / key: value / export KEY=value shapes, optionally quoted.
	sensitiveKVRegexp = regexp.MustCompile(`(?i)((?:export\s+)?[A-Za-z0-9_.-]*(?:license[_-]?key|api[_-]?key|access[_-]?key|auth[_-]?token|token|passwd|password|secret|credential)[A-Za-z0-9_.-]*\s*[=:]\s*["']?)([^\s"']+)(["']?)`)
)

// IsSensitiveKey reports whether a parameter key looks like it carries a
// secret value.
func IsSensitiveKey(key string) bool {
	return sensitiveKeyRegexp.MatchString(key)
}

// MaskSecrets replaces the value half of recognized sensitive key=value
// patterns with a first-character/last-character plus asterisk-run mask.
func MaskSecrets(text string) string {
	return sensitiveKVRegexp.ReplaceAllStringFunc(text, func(match string) string {
		m := sensitiveKVRegexp.FindStringSubmatch(match)
		if m == nil {
			return match
		}
		return m[1] + maskValue(m[2]) + m[3]
	})
}

func maskValue(v string) string {
	if len(v) <= 2 {
		return strings.Repeat("*", 4)
	}
	return v[:1] + strings.Repeat("*", len(v)-2) + v[len(v)-1:]
}
