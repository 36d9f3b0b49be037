package logger

import "regexp"

type redaction struct {
	pattern     *regexp.Regexp
	replacement string
}

// sensitiveDataPatterns match credentials that must never reach log output
var sensitiveDataPatterns = []redaction{
	{regexp.MustCompile(`(?i)(bearer\s+)([A-Za-z0-9-._~+/]+=*)`), "$1[REDACTED]"},
	{regexp.MustCompile(`(?i)([?&](key|cx|subscription-key)=)([^&\s]+)`), "$1[REDACTED]"},
	{regexp.MustCompile(`(?i)((api|access|auth|token|secret|subscription|password)[0-9a-z\-_\.]*[\s:=]+)([^;,&\s]{5,})`), "$1[REDACTED]"},
	// user:password@host in database DSNs
	{regexp.MustCompile(`([A-Za-z0-9_.\-]+:)([^@/\s:]+)(@)`), "$1[REDACTED]$3"},
}

// RedactSensitiveData replaces API keys, tokens, passwords and search engine
// ids with "[REDACTED]"
func RedactSensitiveData(input string) string {
	if input == "" {
		return input
	}

	for _, r := range sensitiveDataPatterns {
		input = r.pattern.ReplaceAllString(input, r.replacement)
	}

	return input
}
