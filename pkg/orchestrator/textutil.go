package orchestrator

import "strings"

// EnsureEndsWithOver normalizes s per the GLOSSARY definition:
//   - strips a trailing "over and out"/"over and out." variant,
//   - appends " over." if s does not already end with "over"/"over.",
//   - is idempotent.
func EnsureEndsWithOver(s string) string {
	trimmed := strings.TrimRight(s, " \t\n")
	lower := strings.ToLower(trimmed)

	for _, variant := range []string{"over and out.", "over and out"} {
		if strings.HasSuffix(lower, variant) {
			trimmed = strings.TrimRight(trimmed[:len(trimmed)-len(variant)], " \t\n")
			lower = strings.ToLower(trimmed)
			break
		}
	}

	if strings.HasSuffix(lower, "over.") {
		return trimmed
	}
	if strings.HasSuffix(lower, "over") {
		return trimmed + "."
	}
	if trimmed == "" {
		return "over."
	}
	return trimmed + " over."
}
