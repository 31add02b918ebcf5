// Package pages resolves page selections and output page dimensions.
package pages

import (
	"sort"
	"strconv"
	"strings"
)

// ParseSelection resolves a custom page expression such as "1-3,5,8-9" against a document
// of total pages. Tokens are 1-based; a token that is malformed, descending or outside
// [1,total] is dropped. The result is the de-duplicated, ascending set of 0-based indices.
func ParseSelection(expr string, total int) []int {
	seen := make(map[int]bool)
	for _, token := range strings.Split(expr, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		start, end, ok := parseToken(token)
		if !ok || start > end || start < 1 || end > total {
			continue
		}
		for n := start; n <= end; n++ {
			seen[n-1] = true
		}
	}

	indices := make([]int, 0, len(seen))
	for i := range seen {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	return indices
}

func parseToken(token string) (int, int, bool) {
	if a, b, isRange := strings.Cut(token, "-"); isRange {
		start, ok := parsePageNumber(a)
		if !ok {
			return 0, 0, false
		}
		end, ok := parsePageNumber(b)
		if !ok {
			return 0, 0, false
		}
		return start, end, true
	}
	n, ok := parsePageNumber(token)
	return n, n, ok
}

func parsePageNumber(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Range returns the 0-based indices for the inclusive 1-based range start..end. It returns
// nil unless 1 <= start <= end <= total.
func Range(start, end, total int) []int {
	if start < 1 || start > end || end > total {
		return nil
	}
	indices := make([]int, 0, end-start+1)
	for n := start; n <= end; n++ {
		indices = append(indices, n-1)
	}
	return indices
}
