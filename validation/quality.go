package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// minRepeatedLines is the number of identical non-blank lines that
	// triggers a repetition warning.
	minRepeatedLines = 5

	// maxRepeatedLineRatio is the share of repeated lines tolerated
	// before warning.
	maxRepeatedLineRatio = 0.5

	// charRunThreshold is the length of a single-character run that triggers
	// a warning.
	charRunThreshold = 50

	// maxReplacementRatio is the tolerated share of U+FFFD characters and
	// invalid bytes.
	maxReplacementRatio = 0.01
)

// CheckQuality returns warnings for content that is valid but likely to embed
// poorly. It never fails.
func CheckQuality(content string) []string {
	var warnings []string
	if w, ok := lineRepetition(content); ok {
		warnings = append(warnings, w)
	}
	if run := longestRun(content); run >= charRunThreshold {
		warnings = append(warnings, fmt.Sprintf("contains a run of %d repeated characters", run))
	}
	if w, ok := replacementDensity(content); ok {
		warnings = append(warnings, w)
	}
	return warnings
}

func lineRepetition(content string) (string, bool) {
	counts := make(map[string]int)
	total := 0
	for line := range strings.Lines(content) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		counts[line]++
		total++
	}

	repeated := 0
	for _, n := range counts {
		if n > 1 {
			repeated += n
		}
	}
	if repeated >= minRepeatedLines && float64(repeated)/float64(total) > maxRepeatedLineRatio {
		return fmt.Sprintf("%d of %d lines are repeated", repeated, total), true
	}
	return "", false
}

// longestRun returns the length of the longest run of one repeated
// non-space character.
func longestRun(content string) int {
	longest, run := 0, 0
	var prev rune = -1
	for _, r := range content {
		if r == prev && r != ' ' {
			run++
		} else {
			run = 1
		}
		prev = r
		longest = max(longest, run)
	}
	return longest
}

func replacementDensity(content string) (string, bool) {
	total := utf8.RuneCountInString(content)
	if total == 0 {
		return "", false
	}
	// Invalid bytes decode as utf8.RuneError too.
	bad := 0
	for _, r := range content {
		if r == utf8.RuneError {
			bad++
		}
	}
	ratio := float64(bad) / float64(total)
	if ratio > maxReplacementRatio {
		return fmt.Sprintf("%.1f%% of characters are replacement characters or invalid UTF-8", ratio*100), true
	}
	return "", false
}
