package analysis

import (
	"regexp"
	"strings"

	"workfocus/internal/workitem"
)

// DefaultReasoning is used when provider text has no sentence explaining why.
const DefaultReasoning = "Provider analysis suggests this needs immediate attention"

var (
	whyRe    = regexp.MustCompile(`(?i)why[^.]*[.!]`)
	noiseRes = []*regexp.Regexp{
		regexp.MustCompile(`(?is)<think>.*?</think>`),
		regexp.MustCompile(`(?is)<debug>.*?</debug>`),
		regexp.MustCompile(`(?is)<reasoning>.*?</reasoning>`),
	}
)

// ExtractRecommended finds the item a provider answer recommends. It returns
// the first item, in input order, whose identifier is mentioned in text
// ignoring case. When none is mentioned it falls back to the first item. ok
// is false only for an empty batch.
func ExtractRecommended(text string, items []workitem.WorkItem) (workitem.WorkItem, bool) {
	if len(items) == 0 {
		return workitem.WorkItem{}, false
	}
	lower := strings.ToLower(text)
	for _, it := range items {
		if mentions(lower, it.ID) {
			return it, true
		}
	}
	return items[0], true
}

// mentions reports whether id occurs in lower (already lowercased) without a
// letter or digit directly before or after it, so PROJ-1 does not match
// inside PROJ-12.
func mentions(lower, id string) bool {
	if id == "" {
		return false
	}
	id = strings.ToLower(id)
	for from := 0; ; {
		i := strings.Index(lower[from:], id)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(id)
		if !wordByteBefore(lower, start) && !wordByteAt(lower, end) {
			return true
		}
		from = start + 1
	}
}

func wordByteBefore(s string, i int) bool {
	return i > 0 && isWordByte(s[i-1])
}

func wordByteAt(s string, i int) bool {
	return i < len(s) && isWordByte(s[i])
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '_'
}

// ExtractReasoning returns the first sentence fragment starting at "why".
func ExtractReasoning(text string) string {
	if m := whyRe.FindString(text); m != "" {
		return m
	}
	return DefaultReasoning
}

// CleanResponse strips model scratchpad tags and blank lines.
func CleanResponse(text string) string {
	for _, re := range noiseRes {
		text = re.ReplaceAllString(text, "")
	}
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return strings.Join(lines, "\n")
}

// AnalyzeDependencies records an edge from an item to every other item of the
// batch whose identifier its title or body mentions as a whole word, ignoring
// case. Items
// without edges are absent from the map.
func AnalyzeDependencies(items []workitem.WorkItem) map[string][]string {
	deps := make(map[string][]string)
	for _, it := range items {
		text := strings.ToLower(it.Title + " " + it.Body)
		var edges []string
		for _, other := range items {
			if other.ID == it.ID {
				continue
			}
			if mentions(text, other.ID) {
				edges = append(edges, other.ID)
			}
		}
		if len(edges) > 0 {
			deps[it.ID] = edges
		}
	}
	return deps
}
