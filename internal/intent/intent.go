// Package intent classifies a raw chat message into a typed intent with
// slots. Parsing never fails: unrecognizable input degrades to KindUnknown.
package intent

// Kind is the closed set of intent labels.
type Kind string

const (
	KindList       Kind = "LIST"
	KindSummarize  Kind = "SUMMARIZE"
	KindCategorize Kind = "CATEGORIZE"
	KindDigest     Kind = "DIGEST"
	KindDraft      Kind = "REPLY"
	KindDelete     Kind = "DELETE"
	KindConfirm    Kind = "CONFIRM"
	KindCancel     Kind = "CANCEL"
	KindHelp       Kind = "HELP"
	KindGreeting   Kind = "GREETING"
	KindClarify    Kind = "CLARIFY"
	KindUnknown    Kind = "UNKNOWN"
)

// Intent is a classified message. Slot fields are empty unless extracted.
type Intent struct {
	Kind       Kind
	Confidence float64

	// Ref is the user's reference to a cached email ("2", "john", "spam").
	Ref string
	// Body is explicit reply content or a tone hint.
	Body string
	// Count is the requested listing size, 0 when unspecified.
	Count int
	// Query is a free-text search filter for listings.
	Query string

	// Clarify is the question to ask when Kind == KindClarify.
	Clarify string
	// Raw is the original message, kept for conversational fallback.
	Raw string
}
