package valueobjects

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// NewUUID returns a fresh synthetic identifier
func NewUUID() string {
	return uuid.New().String()
}

// EdgeID derives the human-readable id for an edge between two node ids
func EdgeID(fromID, toID string) string {
	return fromID + "-to-" + toID
}

// UniqueID returns base, suffixed with a counter if base is already taken.
// taken reports whether a candidate id is in use.
func UniqueID(base string, taken func(string) bool) string {
	if !taken(base) {
		return base
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s-%d", base, i)
		if !taken(candidate) {
			return candidate
		}
	}
}

// CopyID returns a paste-friendly variant of id that is not taken
func CopyID(id string, taken func(string) bool) string {
	return UniqueID(id+"-copy", taken)
}

// LabelFromID regenerates a display label from a human-readable id:
// separators become spaces and each word is capitalized.
func LabelFromID(id string) string {
	words := strings.FieldsFunc(id, func(r rune) bool {
		return r == '-' || r == '_'
	})
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// ReplaceIDToken rewrites standalone occurrences of old inside s with new.
// Ids contain hyphens, so the usual \b word boundary is wrong here: a
// boundary is the string edge or any character outside [A-Za-z0-9_-]. This
// keeps "checkout-start" from matching inside "checkout-started".
func ReplaceIDToken(s, old, new string) string {
	if old == "" || old == new || !strings.Contains(s, old) {
		return s
	}

	var b strings.Builder
	for i := 0; i < len(s); {
		j := strings.Index(s[i:], old)
		if j < 0 {
			b.WriteString(s[i:])
			break
		}
		start := i + j
		end := start + len(old)

		boundedLeft := start == 0 || !idChar(s[start-1])
		boundedRight := end == len(s) || !idChar(s[end])
		if boundedLeft && boundedRight {
			b.WriteString(s[i:start])
			b.WriteString(new)
		} else {
			b.WriteString(s[i:end])
		}
		i = end
	}
	return b.String()
}

func idChar(c byte) bool {
	return c == '-' || c == '_' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
