package intent

import (
	"regexp"
	"strconv"
	"strings"
)

// Deterministic pattern rules, tried before the model. Order matters: the
// first matching group wins, so the specific action verbs sit before the
// broad list patterns ("organize my inbox" is a categorize, not a list).
var rulePatterns = []struct {
	kind     Kind
	patterns []*regexp.Regexp
}{
	{KindDraft, compileAll(
		`\breply\b`,
		`\brespond\b`,
		`\bsend\s+(a\s+)?response\b`,
		`\banswer\b.*\bemail\b`,
		`\bwrite\s+back\b`,
	)},
	{KindDelete, compileAll(
		`\bdelete\b`,
		`\bremove\b`,
		`\btrash\b`,
		`\bget\s+rid\s+of\b`,
		`\bdiscard\b`,
	)},
	{KindCategorize, compileAll(
		`\bcategorize\b`,
		`\bgroup\b`,
		`\borganize\b`,
		`\bsort\b`,
		`\bclassify\b`,
	)},
	{KindDigest, compileAll(
		`\bdigest\b`,
		`\bsummary\b.*\b(inbox|email|day|today)\b`,
		`\btoday.?s\s+(emails?|summary)\b`,
		`\bdaily\s+(digest|summary|report)\b`,
		`\bwhat.?s\s+(new|happening|important)\b`,
	)},
	{KindSummarize, compileAll(
		`\bsummarize\b`,
		`\bsummary\s+of\b`,
		`\btl;?dr\b`,
	)},
	{KindList, compileAll(
		`\b(show|check|read|get|fetch|see|view|display|list|open)\b.*\b(email|inbox|mail|messages?)\b`,
		`\b(what|any|new)\b.*\b(email|mail|inbox)\b`,
		`^(emails?|inbox|mail)$`,
		`\bmy\s+(emails?|inbox|mail)\b`,
	)},
	{KindConfirm, compileAll(
		`^(yes|yeah|yep|yup|sure|ok|okay|confirm|do\s+it|send\s+it|proceed|go\s+ahead)$`,
		`^(y|yes)\s*[.!]?$`,
		`\bconfirm(ed)?\b`,
		`\bapproved?\b`,
	)},
	{KindCancel, compileAll(
		`^(no|nope|nah|cancel|stop|abort|nevermind|never\s+mind)$`,
		`^n$`,
		`\bdon.?t\b`,
		`\bcancel\b`,
	)},
	{KindHelp, compileAll(
		`^help$`,
		`\bwhat\s+can\s+you\s+do\b`,
		`\bhow\s+(do|does)\s+(this|it)\s+work\b`,
		`\bcommands?\b`,
		`\bfeatures?\b`,
	)},
	{KindGreeting, compileAll(
		`^(hi|hello|hey|greetings|howdy|good\s+(morning|afternoon|evening))[\s!.]*$`,
	)},
}

var indexRefPatterns = compileAll(
	`#(\d+)`,
	`\bemail\s*(\d+)\b`,
	`\bnumber\s*(\d+)\b`,
	`^(\d+)$`,
	`\b(first|second|third|fourth|fifth|last|latest)\b`,
)

var senderRefPatterns = compileAll(
	`\bfrom\s+(\w+)\b`,
	`\b(\w+).?s\s+email\b`,
	`\bthe\s+(\w+)\s+one\b`,
)

var subjectRefPatterns = compileAll(
	`\babout\s+(.+)`,
	`\bregarding\s+(.+)`,
)

var replyContentPatterns = compileAll(
	`reply:\s*["']?(.+?)["']?$`,
	`respond\s+with[:\s]+["']?(.+?)["']?$`,
	`say[:\s]+["']?(.+?)["']?$`,
	`tell\s+them[:\s]+["']?(.+?)["']?$`,
)

var countPattern = regexp.MustCompile(`(\d+)\s+emails?`)

func compileAll(patterns ...string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		res = append(res, regexp.MustCompile(`(?i)`+p))
	}
	return res
}

// ruleParse runs the deterministic patterns. Returns false when nothing
// matches and the model should decide.
func ruleParse(message string) (Intent, bool) {
	msg := strings.ToLower(strings.TrimSpace(message))

	for _, group := range rulePatterns {
		for _, re := range group.patterns {
			if !re.MatchString(msg) {
				continue
			}
			it := Intent{
				Kind:       group.kind,
				Confidence: 0.9,
				Raw:        message,
			}
			extractSlots(&it, msg)
			return it, true
		}
	}
	return Intent{}, false
}

func extractSlots(it *Intent, msg string) {
	it.Ref = extractRef(msg)

	if it.Kind == KindDraft {
		it.Body = extractReplyContent(msg)
	}
	if it.Kind == KindList {
		if m := countPattern.FindStringSubmatch(msg); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				it.Count = n
			}
		}
	}
}

// extractRef pulls an email reference out of the message: index ("#2",
// "first"), sender ("from john"), or topic ("about the invoice").
func extractRef(msg string) string {
	for _, re := range indexRefPatterns {
		if m := re.FindStringSubmatch(msg); m != nil {
			return m[1]
		}
	}
	for _, re := range senderRefPatterns {
		if m := re.FindStringSubmatch(msg); m != nil {
			return m[1]
		}
	}
	for _, re := range subjectRefPatterns {
		if m := re.FindStringSubmatch(msg); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

// extractReplyContent finds explicit reply text, e.g. "reply to #1: thanks!".
func extractReplyContent(msg string) string {
	for _, re := range replyContentPatterns {
		if m := re.FindStringSubmatch(msg); m != nil {
			return strings.TrimSpace(m[1])
		}
	}

	// "reply <content>" without "to": everything after the verb, as long
	// as it is not just a reference.
	if rest, ok := strings.CutPrefix(msg, "reply "); ok && !strings.HasPrefix(rest, "to ") {
		rest = strings.TrimSpace(rest)
		if len(rest) > 2 && extractRef(rest) == "" {
			return rest
		}
	}

	// Generic "...: content" tail.
	if idx := strings.Index(msg, ":"); idx >= 0 {
		tail := strings.TrimSpace(msg[idx+1:])
		if len(tail) > 2 {
			return tail
		}
	}
	return ""
}
