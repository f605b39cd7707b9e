// Package redact removes credentials and SQL text from strings before they
// are logged or shown to an operator. Store and broker errors can carry
// connection strings, passwords and statement fragments.
package redact

import (
	"regexp"
)

// Redaction placeholders
const (
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
	RedactedSQLPlaceholder        = "[REDACTED_SQL]"
)

type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

// Rules apply in order. Replacements may reference submatches.
var rules = []rule{
	// Userinfo in connection URLs; the scheme and host stay readable.
	{
		regexp.MustCompile(`(?i)\b(postgres|postgresql|nats|tls|ws|wss)://[^@/\s]+@`),
		"${1}://" + RedactedCredentialPlaceholder + "@",
	},
	// Key/value connection strings and similar.
	{
		regexp.MustCompile(`(?i)\b(password|passwd|pwd)(\s*[=:]\s*['"]?)[^'"&\s]+`),
		"${1}${2}" + RedactedCredentialPlaceholder,
	},
	{
		regexp.MustCompile(`(?i)\b(token|secret|api[_-]?key)(\s*[=:]\s*['"]?)[A-Za-z0-9_\-.~+/]{4,}`),
		"${1}${2}" + RedactedKeyPlaceholder,
	},
	// Statements echoed back by the driver.
	{
		regexp.MustCompile(`(?i)\b(SELECT|INSERT|UPDATE|DELETE|TRUNCATE)\s[^;:]*?\b(FROM|INTO|SET|TABLE)\b[^;:]*`),
		RedactedSQLPlaceholder,
	},
}

// String redacts sensitive information from the input string.
func String(input string) string {
	if input == "" {
		return input
	}
	result := input
	for _, r := range rules {
		result = r.pattern.ReplaceAllString(result, r.replacement)
	}
	return result
}

// Error redacts sensitive information from an error's Error() output.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
