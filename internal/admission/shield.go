// AngelaMos | 2026
// shield.go

package admission

import (
	"context"
	"net/url"
	"regexp"
)

type shieldRule struct {
	name    string
	pattern *regexp.Regexp
}

var shieldRules = []shieldRule{
	{"sql_injection", regexp.MustCompile(
		`(?i)(\bunion\b[\s\S]*\bselect\b|'\s*or\s+'?\d*'?\s*=|\bor\s+1\s*=\s*1\b|;\s*(drop|delete|truncate|alter)\s+table\b|\bsleep\s*\(\s*\d+\s*\)|\bbenchmark\s*\(|'\s*--)`,
	)},
	{"xss", regexp.MustCompile(
		`(?i)(<\s*script\b|javascript\s*:|\bon(error|load|mouseover|focus)\s*=|<\s*iframe\b|<\s*svg[^>]*\bon\w+\s*=)`,
	)},
	{"path_traversal", regexp.MustCompile(`(\.\./|\.\.\\|/etc/passwd|\\windows\\win\.ini)`)},
	{"command_injection", regexp.MustCompile(
		"(?i)(;\\s*(cat|ls|id|whoami|wget|curl|rm|nc)\\b|\\|\\s*(sh|bash|nc)\\b|\\$\\(|`)",
	)},
}

// Shield blocks requests whose target or client headers carry a common
// attack payload. Request bodies are not inspected.
type Shield struct {
	rules []shieldRule
}

func NewShield() *Shield {
	return &Shield{rules: shieldRules}
}

func (s *Shield) Inspect(_ context.Context, req Request) Decision {
	for _, candidate := range shieldInputs(req) {
		for _, rule := range s.rules {
			if rule.pattern.MatchString(candidate) {
				return Deny(ReasonShield, "shield:"+rule.name)
			}
		}
	}
	return Allow()
}

func shieldInputs(req Request) []string {
	inputs := []string{req.Path, req.RawQuery, req.UserAgent, req.Referer}
	if p, err := url.PathUnescape(req.Path); err == nil && p != req.Path {
		inputs = append(inputs, p)
	}
	if q, err := url.QueryUnescape(req.RawQuery); err == nil && q != req.RawQuery {
		inputs = append(inputs, q)
	}
	return inputs
}
