// Package majority implements the strict-majority vote shared by the PDM
// display fields and the consistency checks.
package majority

import (
	"strings"

	"golang.org/x/text/cases"
)

// Strict returns the display form of every key held by more than half of the
// members, in first-seen order. A member contributes each key at most once and
// may contribute none. fold maps a raw value to its comparison key; values that
// fold to "" are ignored. The display form is the first raw value seen for a key.
func Strict(members [][]string, fold func(string) string) []string {
	if fold == nil {
		fold = strings.TrimSpace
	}

	counts := make(map[string]int)
	display := make(map[string]string)
	var order []string

	for _, values := range members {
		seen := make(map[string]struct{}, len(values))
		for _, v := range values {
			key := fold(v)
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			if _, known := counts[key]; !known {
				order = append(order, key)
				display[key] = strings.TrimSpace(v)
			}
			counts[key]++
		}
	}

	n := len(members)
	var out []string
	for _, key := range order {
		if Exceeds(counts[key], n) {
			out = append(out, display[key])
		}
	}
	return out
}

// Value runs Strict over single-valued members. It returns the majority
// value's display form and true, or "" and false when no value wins.
func Value(values []string, fold func(string) string) (string, bool) {
	members := make([][]string, len(values))
	for i, v := range values {
		members[i] = []string{v}
	}
	winners := Strict(members, fold)
	if len(winners) == 0 {
		return "", false
	}
	return winners[0], true
}

// Exceeds reports whether count is strictly greater than half of n.
func Exceeds(count, n int) bool {
	return 2*count > n
}

// SplitList splits a comma-joined list, trimming each entry and dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// CaseFold is the fold used for case-insensitive single-valued fields.
func CaseFold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}
