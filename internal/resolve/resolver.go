// Package resolve maps user references ("#2", "the one from John", "the
// spam") to entries of the session's email cache. Resolution is best-effort
// over a small bounded window: the first match in cache order wins, and a
// miss must be surfaced to the user as a clarification, never swallowed.
package resolve

import (
	"regexp"
	"strconv"
	"strings"

	"mailpilot/internal/model"
)

var ordinals = map[string]int{
	"first": 1, "second": 2, "third": 3, "fourth": 4, "fifth": 5,
	"1st": 1, "2nd": 2, "3rd": 3, "4th": 4, "5th": 5,
	"latest": 1, "most recent": 1,
}

var indexPatterns = []*regexp.Regexp{
	regexp.MustCompile(`#(\d+)`),
	regexp.MustCompile(`email\s*(\d+)`),
	regexp.MustCompile(`number\s*(\d+)`),
	regexp.MustCompile(`^(\d+)$`),
}

var senderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`from\s+(\w+)`),
	regexp.MustCompile(`(\w+)'s\s+email`),
	regexp.MustCompile(`the\s+(\w+)\s+one`),
	regexp.MustCompile(`the\s+(\w+)\s+email`),
}

var subjectPatterns = []*regexp.Regexp{
	regexp.MustCompile(`about\s+(.+)`),
	regexp.MustCompile(`regarding\s+(.+)`),
	regexp.MustCompile(`re:\s*(.+)`),
}

// Resolve maps reference to a cached email. The second return value is
// false when nothing matches.
func Resolve(reference string, cache []model.EmailRef) (model.EmailRef, bool) {
	if len(cache) == 0 {
		return model.EmailRef{}, false
	}
	ref := strings.ToLower(strings.TrimSpace(reference))
	if ref == "" {
		return model.EmailRef{}, false
	}

	if e, ok := resolveIndex(ref, cache); ok {
		return e, true
	}
	if e, ok := resolveSender(ref, cache); ok {
		return e, true
	}
	if e, ok := resolveText(ref, cache); ok {
		return e, true
	}
	return model.EmailRef{}, false
}

func resolveIndex(ref string, cache []model.EmailRef) (model.EmailRef, bool) {
	if ref == "last" {
		return cache[len(cache)-1], true
	}
	for word, idx := range ordinals {
		if strings.Contains(ref, word) {
			return byIndex(idx, cache)
		}
	}
	for _, re := range indexPatterns {
		if m := re.FindStringSubmatch(ref); m != nil {
			idx, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			return byIndex(idx, cache)
		}
	}
	return model.EmailRef{}, false
}

// byIndex looks up a 1-based index. Indices are contiguous from 1 within a
// cache generation, so an out-of-range index is simply a miss — it never
// falls back to a different entry.
func byIndex(idx int, cache []model.EmailRef) (model.EmailRef, bool) {
	for _, e := range cache {
		if e.Index == idx {
			return e, true
		}
	}
	return model.EmailRef{}, false
}

func resolveSender(ref string, cache []model.EmailRef) (model.EmailRef, bool) {
	for _, re := range senderPatterns {
		m := re.FindStringSubmatch(ref)
		if m == nil {
			continue
		}
		needle := strings.ToLower(m[1])
		for _, e := range cache {
			if strings.Contains(strings.ToLower(e.SenderName), needle) ||
				strings.Contains(strings.ToLower(e.SenderEmail), needle) {
				return e, true
			}
		}
	}

	// Loose fallback: any significant word of the reference against the
	// combined sender fields.
	for _, e := range cache {
		sender := strings.ToLower(e.SenderName + " " + e.SenderEmail)
		for _, word := range significantWords(ref, 2) {
			if strings.Contains(sender, word) {
				return e, true
			}
		}
	}
	return model.EmailRef{}, false
}

// resolveText matches free-text references ("the spam", "about the invoice")
// against subject and summary.
func resolveText(ref string, cache []model.EmailRef) (model.EmailRef, bool) {
	for _, re := range subjectPatterns {
		m := re.FindStringSubmatch(ref)
		if m == nil {
			continue
		}
		topic := strings.ToLower(strings.TrimSpace(m[1]))
		for _, e := range cache {
			if strings.Contains(strings.ToLower(e.Subject), topic) {
				return e, true
			}
		}
	}

	for _, e := range cache {
		haystack := strings.ToLower(e.Subject + " " + e.Summary + " " + e.Snippet)
		for _, word := range significantWords(ref, 3) {
			if strings.Contains(haystack, word) {
				return e, true
			}
		}
	}
	return model.EmailRef{}, false
}

// significantWords drops stopwords and anything at or below minLen runes.
func significantWords(ref string, minLen int) []string {
	var words []string
	for _, w := range strings.Fields(ref) {
		switch w {
		case "the", "one", "email", "from", "that", "this", "about":
			continue
		}
		if len(w) > minLen {
			words = append(words, w)
		}
	}
	return words
}
