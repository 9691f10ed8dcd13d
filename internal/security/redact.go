// Package security redacts credentials from text before it is logged.
package security

import "regexp"

type secretPattern struct {
	name       string
	regex      *regexp.Regexp
	redactWith string
}

var defaultSecretPatterns = []struct {
	name       string
	pattern    string
	redactWith string
}{
	{"Bearer Token", `(?i)bearer\s+[0-9a-zA-Z\-_.~+/]{16,}=*`, "Bearer ****"},
	{"API Key Field", `(?i)(api[_-]?key|apikey|access[_-]?key)['"]?\s*[:=]\s*['"]?[0-9a-zA-Z\-_]{16,}['"]?`, "API_KEY****"},
	{"Signed URL Signature", `(?i)(signature|sig|token)=[0-9a-zA-Z\-_%]{16,}`, "$1=****"},
	{"JWT Token", `eyJ[a-zA-Z0-9\-_]+\.eyJ[a-zA-Z0-9\-_]+\.[a-zA-Z0-9\-_]+`, "eyJ****"},
	{"Generic Secret Field", `(?i)(secret|password|passwd|token)['"]?\s*[:=]\s*['"]?[^\s'"]{8,}['"]?`, "SECRET****"},
}

var patterns = compilePatterns()

func compilePatterns() []*secretPattern {
	compiled := make([]*secretPattern, 0, len(defaultSecretPatterns))
	for _, p := range defaultSecretPatterns {
		re, err := regexp.Compile(p.pattern)
		if err == nil {
			compiled = append(compiled, &secretPattern{
				name:       p.name,
				regex:      re,
				redactWith: p.redactWith,
			})
		}
	}
	return compiled
}

// Redact replaces credential-shaped substrings so provider error bodies
// and signed URLs can be logged safely.
func Redact(input string) string {
	result := input
	for _, pattern := range patterns {
		result = pattern.regex.ReplaceAllString(result, pattern.redactWith)
	}
	return result
}

// HasSecrets reports whether the input contains credential-shaped text.
func HasSecrets(input string) bool {
	for _, pattern := range patterns {
		if pattern.regex.MatchString(input) {
			return true
		}
	}
	return false
}
