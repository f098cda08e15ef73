package models

import "strings"

// NormalizeTag trims and lower-cases a keyword, interest or hashtag so that
// vocabularies dedupe case-insensitively on write.
func NormalizeTag(raw string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "#")))
}

// NormalizeTags normalizes and dedupes a tag list, preserving first-seen order
// and dropping blanks.
func NormalizeTags(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		tag := NormalizeTag(r)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
