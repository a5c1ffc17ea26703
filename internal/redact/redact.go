// Package redact masks secrets and personal data before they reach logs.
package redact

import "strings"

// Token keeps a short prefix so two tokens can be told apart in logs.
func Token(s string) string {
	if len(s) <= 8 {
		return "[REDACTED]"
	}
	return s[:4] + "…[REDACTED]"
}

func Email(s string) string {
	parts := strings.Split(s, "@")
	if len(parts) != 2 {
		return "***"
	}
	local, domain := parts[0], parts[1]
	if len(local) > 2 {
		local = local[:2] + "***"
	} else {
		local = "***"
	}
	return local + "@" + domain
}

// Phone keeps the last two digits.
func Phone(s string) string {
	if len(s) <= 2 {
		return "***"
	}
	return strings.Repeat("*", len(s)-2) + s[len(s)-2:]
}
