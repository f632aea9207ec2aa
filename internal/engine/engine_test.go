package engine

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"mailpilot/config"
	"mailpilot/internal/intent"
	"mailpilot/internal/llm"
	"mailpilot/internal/mailer"
	"mailpilot/internal/model"
	"mailpilot/internal/session"
)

// fakeCompleter answers per task, keyed off the system prompt.
type fakeCompleter struct {
	intentJSON string
	err        error
}

func (f *fakeCompleter) Complete(ctx context.Context, system, prompt string, opts llm.Options) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	switch {
	case strings.Contains(system, "extract their intent"):
		if f.intentJSON != "" {
			return f.intentJSON, nil
		}
		return `{"intent": "UNKNOWN", "confidence": 0.2, "params": {}}`, nil
	case strings.Contains(system, "summarizer"):
		return "A short summary.", nil
	case strings.Contains(system, "email writer"):
		return "Thanks, I will take a look.", nil
	case strings.Contains(system, "Categorize"):
		return `{"categories": [{"name": "Work", "email_indices": [1, 2], "summary": "work stuff"}]}`, nil
	case strings.Contains(system, "digest"):
		return `{"summary": "Two emails today.", "key_emails": [{"index": 1, "reason": "urgent"}], "suggested_actions": ["reply to #1"]}`, nil
	}
	return "", fmt.Errorf("unexpected task: %s", system)
}

// fakeProvider is an in-memory mailbox that records destructive calls.
type fakeProvider struct {
	emails    []model.Email
	listErr   error
	failFirst int // first N list calls fail with listErr
	sendErr   error
	trashEr   error

	listCalls int
	sent      []string // replyToID per send
	trashed   []string
}

func (f *fakeProvider) ListRecent(ctx context.Context, n int) ([]model.Email, error) {
	f.listCalls++
	if f.listErr != nil && (f.failFirst == 0 || f.listCalls <= f.failFirst) {
		return nil, f.listErr
	}
	if n > len(f.emails) {
		n = len(f.emails)
	}
	return f.emails[:n], nil
}

func (f *fakeProvider) GetByID(ctx context.Context, id string) (model.Email, error) {
	for _, e := range f.emails {
		if e.ID == id {
			return e, nil
		}
	}
	return model.Email{}, mailer.ErrNotFound
}

func (f *fakeProvider) Trash(ctx context.Context, id string) error {
	if f.trashEr != nil {
		return f.trashEr
	}
	f.trashed = append(f.trashed, id)
	return nil
}

func (f *fakeProvider) SendReply(ctx context.Context, to, subject, body, replyToID string) (string, error) {
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.sent = append(f.sent, replyToID)
	return "sent-1", nil
}

type fakeFactory struct{ prov *fakeProvider }

func (f *fakeFactory) ForToken(ctx context.Context, accessToken string) (mailer.Provider, error) {
	return f.prov, nil
}

func testEmails() []model.Email {
	return []model.Email{
		{ID: "m1", SenderName: "John Smith", SenderEmail: "john@example.com",
			Subject: "Quarterly report", Snippet: "The Q3 numbers are ready.", Body: "The Q3 numbers are ready for review."},
		{ID: "m2", SenderName: "LinkedIn", SenderEmail: "jobs@linkedin.com",
			Subject: "New jobs for you", Snippet: "5 new job recommendations."},
		{ID: "m3", SenderName: "Sarah Chen", SenderEmail: "sarah@acme.io",
			Subject: "Invoice overdue", Snippet: "Payment reminder."},
	}
}

func testConfig() config.ChatConfig {
	return config.ChatConfig{
		WindowSize:     5,
		DigestKeyMax:   3,
		PendingTimeout: 5 * time.Minute,
		SessionTTL:     time.Hour,
		ReadRetries:    2,
		RetryBackoff:   time.Millisecond,
	}
}

func newTestEngine(prov *fakeProvider, cfg config.ChatConfig) *Engine {
	log := zap.NewNop()
	completer := &fakeCompleter{}
	parser := intent.NewParser(completer, log)
	store := session.NewStore(cfg.SessionTTL, nil, log)
	disp := NewDispatcher(completer, cfg, nil, nil, log)
	return NewEngine(parser, disp, store, &fakeFactory{prov: prov}, cfg, log)
}

func turn(t *testing.T, eng *Engine, message string) model.ResponseEnvelope {
	t.Helper()
	return eng.HandleTurn(context.Background(), "u1", "tok", message)
}

func TestListTurn(t *testing.T) {
	t.Parallel()

	prov := &fakeProvider{emails: testEmails()}
	eng := newTestEngine(prov, testConfig())

	env := turn(t, eng, "show my emails")
	if env.Type != model.TypeEmails {
		t.Fatalf("type = %s, want %s", env.Type, model.TypeEmails)
	}
	refs, ok := env.Data.([]model.EmailRef)
	if !ok {
		t.Fatalf("data is %T, want []model.EmailRef", env.Data)
	}
	if len(refs) != 3 {
		t.Fatalf("listed %d emails, want 3", len(refs))
	}
	if refs[0].Index != 1 || refs[2].Index != 3 {
		t.Errorf("indices = %d..%d, want 1..3", refs[0].Index, refs[2].Index)
	}
	if env.PendingAction != "" {
		t.Errorf("pending_action = %q, want empty", env.PendingAction)
	}
}

func TestReplyConfirmFlow(t *testing.T) {
	t.Parallel()

	prov := &fakeProvider{emails: testEmails()}
	eng := newTestEngine(prov, testConfig())

	turn(t, eng, "show my emails")

	env := turn(t, eng, "reply to #1: thanks for the update")
	if env.Type != model.TypeDraft {
		t.Fatalf("type = %s, want %s", env.Type, model.TypeDraft)
	}
	if env.PendingAction != model.PendingSend {
		t.Fatalf("pending_action = %q, want %q", env.PendingAction, model.PendingSend)
	}
	draft, ok := env.Data.(model.DraftReply)
	if !ok {
		t.Fatalf("data is %T, want model.DraftReply", env.Data)
	}
	if draft.To != "john@example.com" || draft.Body != "thanks for the update" {
		t.Errorf("draft = %+v", draft)
	}
	if len(prov.sent) != 0 {
		t.Fatal("send happened before confirmation")
	}

	env = turn(t, eng, "yes")
	if env.Type != model.TypeText {
		t.Fatalf("type = %s, want %s", env.Type, model.TypeText)
	}
	if env.PendingAction != "" {
		t.Errorf("pending_action = %q after confirm, want empty", env.PendingAction)
	}
	if len(prov.sent) != 1 || prov.sent[0] != "m1" {
		t.Errorf("sent = %v, want [m1]", prov.sent)
	}
}

func TestDeleteCancelFlow(t *testing.T) {
	t.Parallel()

	prov := &fakeProvider{emails: testEmails()}
	eng := newTestEngine(prov, testConfig())

	turn(t, eng, "show my emails")

	env := turn(t, eng, "delete #2")
	if env.Type != model.TypeConfirmation {
		t.Fatalf("type = %s, want %s", env.Type, model.TypeConfirmation)
	}
	if env.PendingAction != model.PendingDelete {
		t.Fatalf("pending_action = %q, want %q", env.PendingAction, model.PendingDelete)
	}

	env = turn(t, eng, "no")
	if env.PendingAction != "" {
		t.Errorf("pending_action = %q after cancel, want empty", env.PendingAction)
	}
	if len(prov.trashed) != 0 {
		t.Errorf("trashed = %v, want none", prov.trashed)
	}
}

func TestDeleteConfirmRemovesFromCache(t *testing.T) {
	t.Parallel()

	prov := &fakeProvider{emails: testEmails()}
	eng := newTestEngine(prov, testConfig())

	turn(t, eng, "show my emails")
	turn(t, eng, "delete #2")
	env := turn(t, eng, "yes")

	if len(prov.trashed) != 1 || prov.trashed[0] != "m2" {
		t.Fatalf("trashed = %v, want [m2]", prov.trashed)
	}
	if env.Type != model.TypeText {
		t.Errorf("type = %s, want %s", env.Type, model.TypeText)
	}

	status := eng.Status(context.Background(), "u1")
	if status.CachedEmailCount != 2 {
		t.Errorf("cached emails = %d, want 2", status.CachedEmailCount)
	}
}

func TestConfirmWithNothingPending(t *testing.T) {
	t.Parallel()

	prov := &fakeProvider{emails: testEmails()}
	eng := newTestEngine(prov, testConfig())

	env := turn(t, eng, "yes")
	if env.Type != model.TypeText {
		t.Fatalf("type = %s, want %s", env.Type, model.TypeText)
	}
	if !strings.Contains(env.Message, "No pending action") {
		t.Errorf("message = %q", env.Message)
	}
}

func TestNewIntentAbandonsPending(t *testing.T) {
	t.Parallel()

	prov := &fakeProvider{emails: testEmails()}
	eng := newTestEngine(prov, testConfig())

	turn(t, eng, "show my emails")
	turn(t, eng, "delete #1")

	env := turn(t, eng, "show my emails")
	if env.Type != model.TypeEmails {
		t.Fatalf("type = %s, want %s", env.Type, model.TypeEmails)
	}
	if env.PendingAction != "" {
		t.Errorf("pending_action = %q, want empty after abandon", env.PendingAction)
	}
	if len(prov.trashed) != 0 {
		t.Errorf("trashed = %v, want none", prov.trashed)
	}
}

func TestUnresolvedReferenceKeepsGateIdle(t *testing.T) {
	t.Parallel()

	prov := &fakeProvider{emails: testEmails()}
	eng := newTestEngine(prov, testConfig())

	turn(t, eng, "show my emails")

	env := turn(t, eng, "delete #9")
	if env.PendingAction != "" {
		t.Errorf("pending_action = %q, want empty on a miss", env.PendingAction)
	}
	if !strings.Contains(env.Message, "couldn't find") {
		t.Errorf("message = %q", env.Message)
	}
}

func TestDestructiveWithoutTargetAsksForClarification(t *testing.T) {
	t.Parallel()

	prov := &fakeProvider{emails: testEmails()}
	eng := newTestEngine(prov, testConfig())

	env := turn(t, eng, "delete it")
	if env.Type != model.TypeText {
		t.Fatalf("type = %s, want %s", env.Type, model.TypeText)
	}
	if env.PendingAction != "" {
		t.Errorf("pending_action = %q, want empty", env.PendingAction)
	}
	if !strings.Contains(env.Message, "Which email") {
		t.Errorf("message = %q", env.Message)
	}
}

func TestFailedSendRetainsPending(t *testing.T) {
	t.Parallel()

	prov := &fakeProvider{emails: testEmails(), sendErr: mailer.ErrProvider}
	eng := newTestEngine(prov, testConfig())

	turn(t, eng, "show my emails")
	turn(t, eng, "reply to #1: thanks")

	env := turn(t, eng, "yes")
	if env.Type != model.TypeError {
		t.Fatalf("type = %s, want %s", env.Type, model.TypeError)
	}
	if env.PendingAction != model.PendingSend {
		t.Fatalf("pending_action = %q, want %q after a failed send", env.PendingAction, model.PendingSend)
	}

	// A retried confirm succeeds once the provider recovers.
	prov.sendErr = nil
	env = turn(t, eng, "yes")
	if env.Type != model.TypeText {
		t.Fatalf("type = %s, want %s", env.Type, model.TypeText)
	}
	if len(prov.sent) != 1 {
		t.Errorf("sent = %v, want exactly one send", prov.sent)
	}
}

func TestPendingTimeoutExpires(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.PendingTimeout = time.Nanosecond

	prov := &fakeProvider{emails: testEmails()}
	eng := newTestEngine(prov, cfg)

	turn(t, eng, "show my emails")
	turn(t, eng, "delete #1")
	time.Sleep(time.Millisecond)

	env := turn(t, eng, "yes")
	if !strings.Contains(env.Message, "No pending action") {
		t.Errorf("message = %q, want nothing-pending after timeout", env.Message)
	}
	if len(prov.trashed) != 0 {
		t.Errorf("trashed = %v, want none", prov.trashed)
	}
}

func TestListRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	// Fails once, then recovers inside the same turn.
	prov := &fakeProvider{
		emails:    testEmails(),
		listErr:   fmt.Errorf("%w: rate limited", mailer.ErrProvider),
		failFirst: 1,
	}
	eng := newTestEngine(prov, testConfig())

	env := turn(t, eng, "show my emails")
	if env.Type != model.TypeEmails {
		t.Fatalf("type = %s, want %s", env.Type, model.TypeEmails)
	}
	if prov.listCalls != 2 {
		t.Errorf("list calls = %d, want 2", prov.listCalls)
	}
}

func TestProviderFailureReturnsErrorEnvelope(t *testing.T) {
	t.Parallel()

	prov := &fakeProvider{listErr: fmt.Errorf("%w: down", mailer.ErrProvider)}
	eng := newTestEngine(prov, testConfig())

	env := turn(t, eng, "show my emails")
	if env.Type != model.TypeError {
		t.Fatalf("type = %s, want %s", env.Type, model.TypeError)
	}
	if prov.listCalls != 3 {
		t.Errorf("list calls = %d, want 3 (initial + 2 retries)", prov.listCalls)
	}
}

func TestCategorizeTurn(t *testing.T) {
	t.Parallel()

	prov := &fakeProvider{emails: testEmails()}
	eng := newTestEngine(prov, testConfig())

	env := turn(t, eng, "organize my inbox")
	if env.Type != model.TypeCategories {
		t.Fatalf("type = %s, want %s", env.Type, model.TypeCategories)
	}
	groups, ok := env.Data.([]model.CategoryGroup)
	if !ok {
		t.Fatalf("data is %T, want []model.CategoryGroup", env.Data)
	}
	if len(groups) != 1 || groups[0].Category != "Work" || groups[0].Count != 2 {
		t.Errorf("groups = %+v", groups)
	}
}

func TestDigestTurn(t *testing.T) {
	t.Parallel()

	prov := &fakeProvider{emails: testEmails()}
	eng := newTestEngine(prov, testConfig())

	env := turn(t, eng, "daily digest")
	if env.Type != model.TypeDigest {
		t.Fatalf("type = %s, want %s", env.Type, model.TypeDigest)
	}
	payload, ok := env.Data.(model.DigestPayload)
	if !ok {
		t.Fatalf("data is %T, want model.DigestPayload", env.Data)
	}
	if payload.Summary != "Two emails today." {
		t.Errorf("summary = %q", payload.Summary)
	}
	if len(payload.KeyEmails) != 1 || payload.KeyEmails[0].Index != 1 {
		t.Errorf("key emails = %+v", payload.KeyEmails)
	}
}

func TestStatusReportsPending(t *testing.T) {
	t.Parallel()

	prov := &fakeProvider{emails: testEmails()}
	eng := newTestEngine(prov, testConfig())

	turn(t, eng, "show my emails")
	turn(t, eng, "delete #1")

	status := eng.Status(context.Background(), "u1")
	if !status.HasPending || status.PendingAction != model.PendingDelete {
		t.Errorf("status = %+v", status)
	}

	if !eng.ClearPending(context.Background(), "u1") {
		t.Fatal("ClearPending returned false with a staged action")
	}
	status = eng.Status(context.Background(), "u1")
	if status.HasPending {
		t.Error("pending action survived ClearPending")
	}
}

func TestGreetingAndHelp(t *testing.T) {
	t.Parallel()

	prov := &fakeProvider{emails: testEmails()}
	eng := newTestEngine(prov, testConfig())

	env := turn(t, eng, "hello")
	if env.Type != model.TypeText || !strings.Contains(env.Message, "email assistant") {
		t.Errorf("greeting = %+v", env)
	}

	env = turn(t, eng, "help")
	if env.Type != model.TypeText || !strings.Contains(env.Message, "Here's what I can do") {
		t.Errorf("help = %+v", env)
	}
	if prov.listCalls != 0 {
		t.Errorf("provider touched %d times for greeting/help, want 0", prov.listCalls)
	}
}
