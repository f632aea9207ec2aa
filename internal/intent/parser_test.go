package intent

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"mailpilot/internal/llm"
)

// fakeCompleter returns a canned response and counts calls.
type fakeCompleter struct {
	response string
	err      error
	calls    int
}

func (f *fakeCompleter) Complete(ctx context.Context, system, prompt string, opts llm.Options) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func TestParseRuleShortCircuit(t *testing.T) {
	t.Parallel()

	fake := &fakeCompleter{}
	p := NewParser(fake, zap.NewNop())

	it := p.Parse(context.Background(), "show my emails", false)
	if it.Kind != KindList {
		t.Fatalf("kind = %s, want %s", it.Kind, KindList)
	}
	if fake.calls != 0 {
		t.Errorf("model called %d times for a rule-matched message, want 0", fake.calls)
	}
}

func TestParseModelFallback(t *testing.T) {
	t.Parallel()

	fake := &fakeCompleter{
		response: `{"intent": "LIST", "confidence": 0.8, "params": {"email_ref": "", "reply_content": "", "count": 0, "query": ""}}`,
	}
	p := NewParser(fake, zap.NewNop())

	it := p.Parse(context.Background(), "anything interesting for me?", false)
	if it.Kind != KindList {
		t.Fatalf("kind = %s, want %s", it.Kind, KindList)
	}
	if fake.calls != 1 {
		t.Errorf("model calls = %d, want 1", fake.calls)
	}
}

func TestParseModelFailure(t *testing.T) {
	t.Parallel()

	fake := &fakeCompleter{err: llm.ErrUnavailable}
	p := NewParser(fake, zap.NewNop())

	it := p.Parse(context.Background(), "anything interesting for me?", false)
	if it.Kind != KindUnknown {
		t.Errorf("kind = %s, want %s", it.Kind, KindUnknown)
	}
}

func TestParsePendingConfirmCancel(t *testing.T) {
	t.Parallel()

	fake := &fakeCompleter{}
	p := NewParser(fake, zap.NewNop())

	tests := []struct {
		message string
		want    Kind
	}{
		{"yes", KindConfirm},
		{"y", KindConfirm},
		{"go ahead", KindConfirm},
		{"no", KindCancel},
		{"cancel", KindCancel},
	}
	for _, tt := range tests {
		it := p.Parse(context.Background(), tt.message, true)
		if it.Kind != tt.want {
			t.Errorf("Parse(%q, pending) = %s, want %s", tt.message, it.Kind, tt.want)
		}
	}
	if fake.calls != 0 {
		t.Errorf("model calls = %d, want 0", fake.calls)
	}
}

func TestParseClarifyMissingTarget(t *testing.T) {
	t.Parallel()

	fake := &fakeCompleter{
		response: `{"intent": "DELETE", "confidence": 0.9, "params": {"email_ref": "", "reply_content": "", "count": 0, "query": ""}}`,
	}
	p := NewParser(fake, zap.NewNop())

	it := p.Parse(context.Background(), "delete it", false)
	if it.Kind != KindClarify {
		t.Fatalf("kind = %s, want %s", it.Kind, KindClarify)
	}
	if it.Clarify == "" {
		t.Error("clarify question is empty")
	}
}

func TestParseSummarizeWithoutRefBecomesDigest(t *testing.T) {
	t.Parallel()

	fake := &fakeCompleter{}
	p := NewParser(fake, zap.NewNop())

	it := p.Parse(context.Background(), "give me a tldr", false)
	if it.Kind != KindDigest {
		t.Errorf("kind = %s, want %s", it.Kind, KindDigest)
	}
}

func TestParseModelSlotMerge(t *testing.T) {
	t.Parallel()

	// The model labels the intent but misses the slot the rules found.
	fake := &fakeCompleter{
		response: `{"intent": "REPLY", "confidence": 0.7, "params": {"email_ref": "", "reply_content": "", "count": 0, "query": ""}}`,
	}
	p := NewParser(fake, zap.NewNop())

	it := p.Parse(context.Background(), "could you maybe answer that email from bob for me", false)
	if it.Kind != KindDraft {
		t.Fatalf("kind = %s, want %s", it.Kind, KindDraft)
	}
	if it.Ref != "bob" {
		t.Errorf("ref = %q, want %q", it.Ref, "bob")
	}
}
