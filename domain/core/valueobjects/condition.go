package valueobjects

import (
	"sort"
	"strings"
)

// ConditionNormalizer produces the canonical form of a condition string.
// Conditional entries are matched across sibling edges by normalized
// condition, so two spellings of the same predicate must normalize equal.
// The DSL normalizer collaborator can replace the default.
type ConditionNormalizer func(condition string) string

var operators = []string{"==", "!=", ">=", "<=", "=", ">", "<"}

// NormalizeCondition is the default normalizer: whitespace-insensitive and,
// for the symmetric operators, operand-order-insensitive.
func NormalizeCondition(condition string) string {
	s := strings.Join(strings.Fields(condition), " ")

	for _, op := range operators {
		idx := strings.Index(s, op)
		if idx < 0 {
			continue
		}
		left := strings.TrimSpace(s[:idx])
		right := strings.TrimSpace(s[idx+len(op):])
		if left == "" || right == "" {
			break
		}
		if symmetric(op) {
			sides := []string{left, right}
			sort.Strings(sides)
			left, right = sides[0], sides[1]
		}
		// "=" and "==" spell the same predicate.
		if op == "==" {
			op = "="
		}
		return left + op + right
	}

	return s
}

func symmetric(op string) bool {
	return op == "=" || op == "==" || op == "!="
}

// SameCondition reports whether two condition strings normalize equal
func SameCondition(a, b string, normalize ConditionNormalizer) bool {
	if normalize == nil {
		normalize = NormalizeCondition
	}
	return normalize(a) == normalize(b)
}
