package agents

import (
	"regexp"
	"strconv"
	"strings"
)

// Best-effort extraction of structured fields from free-text completion
// responses. Every helper degrades gracefully: a missing section yields an
// empty result, never an error. Callers walk a fixed ladder — labeled
// section, then first substantial paragraph, then truncated raw text — so a
// response that ignores the requested format still produces usable output.

// extractSection returns the text following the first occurrence of header,
// up to the next blank-line-separated block. Empty string if absent.
func extractSection(text, header string) string {
	idx := strings.Index(text, header)
	if idx < 0 {
		return ""
	}
	rest := text[idx+len(header):]
	if end := strings.Index(rest, "\n\n"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

// extractBullets pulls lines beginning with a bullet character out of a
// section, stripped of markers, capped at limit.
func extractBullets(section string, limit int) []string {
	var items []string
	for _, line := range strings.Split(section, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "•") && !strings.HasPrefix(line, "*") {
			continue
		}
		item := strings.TrimSpace(strings.TrimLeft(line, "-•* "))
		if item == "" {
			continue
		}
		items = append(items, item)
		if len(items) == limit {
			break
		}
	}
	return items
}

// extractBulletsAfter combines section lookup and bullet splitting.
func extractBulletsAfter(text, header string, limit int) []string {
	section := extractSection(text, header)
	if section == "" {
		return nil
	}
	return extractBullets(section, limit)
}

// firstParagraph returns the first blank-line-separated paragraph longer
// than minLen characters, or "" when none qualifies.
func firstParagraph(text string, minLen int) string {
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if len(p) > minLen {
			return p
		}
	}
	return ""
}

// truncate caps text at n bytes. Raw-text last rung of the ladder.
func truncate(text string, n int) string {
	if len(text) <= n {
		return text
	}
	return text[:n]
}

var confidenceRe = regexp.MustCompile(`(\d+\.?\d*)`)

// extractConfidence reads a self-reported confidence number following the
// given header and rescales it into [0,1]. Values above 1 are assumed to be
// percentages and divided by 100.
func extractConfidence(text, header string) (float64, bool) {
	idx := strings.Index(text, header)
	if idx < 0 {
		return 0, false
	}
	line := text[idx+len(header):]
	if end := strings.Index(line, "\n"); end >= 0 {
		line = line[:end]
	}
	m := confidenceRe.FindString(strings.TrimSpace(line))
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	if v > 1.0 {
		v = v / 100.0
	}
	return clamp01(v), true
}
