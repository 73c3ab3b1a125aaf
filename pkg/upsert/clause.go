package upsert

import (
	"strings"
	"unicode"
)

// Conflicts renders the SET list of an ON CONFLICT DO UPDATE clause from a
// comma separated column list. Whitespace is ignored.
func Conflicts(keys string) string {
	return ConflictsOf(SplitColumns(keys))
}

// ConflictsOf renders `col = EXCLUDED.col` for every column, in order
func ConflictsOf(columns []string) string {
	sets := make([]string, 0, len(columns))
	for _, c := range columns {
		sets = append(sets, c+" = EXCLUDED."+c)
	}
	return strings.Join(sets, ", ")
}

// SplitColumns turns "a, b,\n c" into [a b c]
func SplitColumns(keys string) []string {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, keys)
	if stripped == "" {
		return nil
	}
	return strings.Split(stripped, ",")
}
