package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"mailpilot/config"
	"mailpilot/internal/intent"
	"mailpilot/internal/llm"
	"mailpilot/internal/mailer"
	"mailpilot/internal/model"
	"mailpilot/internal/mq"
	"mailpilot/internal/resolve"
	"mailpilot/internal/session"
)

// ActionRecorder persists an audit row for every executed destructive
// action. Implementations must not fail the turn; errors are logged only.
type ActionRecorder interface {
	RecordAction(ctx context.Context, userID string, kind model.PendingKind, emailID, result string) error
}

// EventPublisher emits action events for downstream consumers.
type EventPublisher interface {
	Publish(routingKey string, payload any) error
}

// Dispatcher executes resolved intents against the mail provider and the
// language model. Read operations are retried on transient provider errors;
// Send is never retried, a failed Send is reported.
type Dispatcher struct {
	completer llm.Completer
	cfg       config.ChatConfig
	audit     ActionRecorder // optional
	events    EventPublisher // optional
	logger    *zap.Logger
}

func NewDispatcher(completer llm.Completer, cfg config.ChatConfig, audit ActionRecorder, events EventPublisher, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		completer: completer,
		cfg:       cfg,
		audit:     audit,
		events:    events,
		logger:    logger,
	}
}

// fetchWindow lists the recent window, retrying transient provider errors
// with linear backoff. Not-found and context errors are not retried.
func (d *Dispatcher) fetchWindow(ctx context.Context, prov mailer.Provider, n int) ([]model.Email, error) {
	var emails []model.Email
	var err error
	for attempt := 0; attempt <= d.cfg.ReadRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", mailer.ErrProvider, ctx.Err())
			case <-time.After(d.cfg.RetryBackoff * time.Duration(attempt)):
			}
		}
		emails, err = prov.ListRecent(ctx, n)
		if err == nil {
			return emails, nil
		}
		if !errors.Is(err, mailer.ErrProvider) {
			break
		}
		d.logger.Warn("list retry", zap.Int("attempt", attempt), zap.Error(err))
	}
	return nil, err
}

func (d *Dispatcher) clampCount(requested int) int {
	if requested <= 0 {
		return d.cfg.WindowSize
	}
	if requested > 20 {
		return 20
	}
	return requested
}

// refreshCache replaces the session cache from freshly fetched messages.
// When summarize is set each entry gets a model summary, degrading to the
// snippet per email so one model failure never fails the listing.
func (d *Dispatcher) refreshCache(ctx context.Context, sess *session.Session, emails []model.Email, summarize bool) {
	refs := make([]model.EmailRef, 0, len(emails))
	for _, e := range emails {
		summary := snippetSummary(e)
		if summarize {
			if s, err := llm.SummarizeEmail(ctx, d.completer, e); err == nil {
				summary = s
			} else {
				d.logger.Warn("summarize failed, using snippet",
					zap.String("email_id", e.ID), zap.Error(err))
			}
		}
		refs = append(refs, model.EmailRef{
			ID:          e.ID,
			SenderName:  e.SenderName,
			SenderEmail: e.SenderEmail,
			Subject:     e.Subject,
			Summary:     summary,
			Snippet:     e.Snippet,
			Body:        e.Body,
			Date:        e.Date,
		})
	}
	sess.ReplaceCache(refs)
}

func snippetSummary(e model.Email) string {
	s := e.Snippet
	if s == "" {
		s = e.Body
	}
	if len(s) > 150 {
		s = s[:150]
	}
	if s == "" {
		s = fmt.Sprintf("Email from %s about %s", e.SenderName, e.Subject)
	}
	return s
}

func (d *Dispatcher) list(ctx context.Context, prov mailer.Provider, sess *session.Session, it intent.Intent) model.ResponseEnvelope {
	count := d.clampCount(it.Count)
	emails, err := d.fetchWindow(ctx, prov, count)
	if err != nil {
		d.logger.Error("list failed", zap.Error(err))
		return errorResponse("Couldn't fetch your emails right now. Please try again.")
	}
	if len(emails) == 0 {
		return textResponse("Your inbox is empty!")
	}

	d.refreshCache(ctx, sess, emails, true)

	return model.ResponseEnvelope{
		Message: fmt.Sprintf("Here are your %d most recent emails:", len(sess.Cache)),
		Type:    model.TypeEmails,
		Data:    sess.Cache,
	}
}

func (d *Dispatcher) summarize(ctx context.Context, prov mailer.Provider, sess *session.Session, it intent.Intent) model.ResponseEnvelope {
	ref, ok := resolve.Resolve(it.Ref, sess.Cache)
	if !ok {
		return notFoundResponse(it.Ref)
	}

	email := model.Email{
		ID:          ref.ID,
		SenderName:  ref.SenderName,
		SenderEmail: ref.SenderEmail,
		Subject:     ref.Subject,
		Body:        ref.Body,
		Snippet:     ref.Snippet,
		Date:        ref.Date,
	}
	if email.Body == "" {
		if full, err := prov.GetByID(ctx, ref.ID); err == nil {
			email = full
		}
	}

	summary, err := llm.SummarizeEmail(ctx, d.completer, email)
	if err != nil {
		d.logger.Warn("summarize failed", zap.Error(err))
		summary = snippetSummary(email)
	}
	return textResponse(fmt.Sprintf("Summary of #%d from %s:\n\n%s", ref.Index, ref.SenderName, summary))
}

func (d *Dispatcher) categorize(ctx context.Context, prov mailer.Provider, sess *session.Session) model.ResponseEnvelope {
	// A larger window categorizes better; refresh when the cache is thin.
	if len(sess.Cache) < 10 {
		emails, err := d.fetchWindow(ctx, prov, 20)
		if err != nil {
			d.logger.Error("categorize fetch failed", zap.Error(err))
			return errorResponse("Couldn't fetch your emails right now. Please try again.")
		}
		d.refreshCache(ctx, sess, emails, false)
	}
	if len(sess.Cache) == 0 {
		return textResponse("No emails found to organize.")
	}

	cats, err := llm.CategorizeEmails(ctx, d.completer, sess.Cache)
	if err != nil || len(cats) == 0 {
		if err != nil {
			d.logger.Warn("categorize model failed, using single group", zap.Error(err))
		}
		cats = []llm.CategoryResult{{
			Name:         "All Emails",
			EmailIndices: allIndices(sess.Cache),
		}}
	}

	groups := make([]model.CategoryGroup, 0, len(cats))
	for _, cat := range cats {
		group := model.CategoryGroup{Category: cat.Name}
		for _, idx := range cat.EmailIndices {
			if e, ok := refByIndex(idx, sess.Cache); ok {
				group.Emails = append(group.Emails, e)
			}
		}
		group.Count = len(group.Emails)
		if group.Count > 0 {
			groups = append(groups, group)
		}
	}

	return model.ResponseEnvelope{
		Message: fmt.Sprintf("I've organized your emails into %d categories:", len(groups)),
		Type:    model.TypeCategories,
		Data:    groups,
	}
}

func (d *Dispatcher) digest(ctx context.Context, prov mailer.Provider, sess *session.Session) model.ResponseEnvelope {
	if len(sess.Cache) == 0 {
		emails, err := d.fetchWindow(ctx, prov, d.cfg.WindowSize)
		if err != nil {
			d.logger.Error("digest fetch failed", zap.Error(err))
			return errorResponse("Couldn't fetch your emails right now. Please try again.")
		}
		if len(emails) == 0 {
			return textResponse("No emails to summarize today. Your inbox is empty!")
		}
		d.refreshCache(ctx, sess, emails, false)
	}

	result, err := llm.GenerateDigest(ctx, d.completer, sess.Cache)
	if err != nil {
		d.logger.Warn("digest model failed, using fallback", zap.Error(err))
		result = llm.DigestResult{
			Summary:          fmt.Sprintf("You have %d emails today.", len(sess.Cache)),
			SuggestedActions: []string{"Review your inbox"},
		}
	}

	payload := model.DigestPayload{
		Summary:          result.Summary,
		KeyEmails:        []model.KeyEmail{},
		SuggestedActions: result.SuggestedActions,
	}
	for _, ke := range result.KeyEmails {
		if len(payload.KeyEmails) >= d.cfg.DigestKeyMax {
			break
		}
		if _, ok := refByIndex(ke.Index, sess.Cache); ok {
			payload.KeyEmails = append(payload.KeyEmails, model.KeyEmail{Index: ke.Index, Reason: ke.Reason})
		}
	}

	return model.ResponseEnvelope{
		Message: "Daily digest\n\n" + payload.Summary,
		Type:    model.TypeDigest,
		Data:    payload,
	}
}

// draft resolves the reply target, generates (or takes) the body, and
// stages a Send for confirmation. Drafting itself is not destructive; only
// the confirmed Send is.
func (d *Dispatcher) draft(ctx context.Context, sess *session.Session, it intent.Intent) model.ResponseEnvelope {
	ref, ok := resolve.Resolve(it.Ref, sess.Cache)
	if !ok {
		return notFoundResponse(it.Ref)
	}

	body := it.Body
	if body == "" {
		generated, err := llm.GenerateReply(ctx, d.completer, ref, "")
		if err != nil {
			d.logger.Warn("reply generation failed", zap.Error(err))
			return errorResponse(fmt.Sprintf(
				"Couldn't generate a reply. Please provide what you'd like to say, e.g., 'reply to #%d: Thanks for the update!'", ref.Index))
		}
		body = generated
	}

	draftReply := model.DraftReply{
		EmailID: ref.ID,
		To:      ref.SenderEmail,
		Subject: "Re: " + ref.Subject,
		Body:    body,
	}
	stagePending(sess, &session.PendingAction{
		Kind:      model.PendingSend,
		EmailID:   ref.ID,
		Email:     ref,
		Draft:     &draftReply,
		CreatedAt: time.Now(),
	})

	return model.ResponseEnvelope{
		Message: fmt.Sprintf("Here's a draft reply to %s:\n\n---\n%s\n---\n\nSend this reply? (yes/no)",
			ref.SenderName, body),
		Type: model.TypeDraft,
		Data: draftReply,
	}
}

// stageDelete resolves the target and stages a Delete for confirmation.
func (d *Dispatcher) stageDelete(sess *session.Session, it intent.Intent) model.ResponseEnvelope {
	ref, ok := resolve.Resolve(it.Ref, sess.Cache)
	if !ok {
		return notFoundResponse(it.Ref)
	}

	stagePending(sess, &session.PendingAction{
		Kind:      model.PendingDelete,
		EmailID:   ref.ID,
		Email:     ref,
		CreatedAt: time.Now(),
	})

	return model.ResponseEnvelope{
		Message: fmt.Sprintf("Delete this email?\n\nFrom: %s <%s>\nSubject: %s\n\nReply 'yes' to delete or 'no' to cancel.",
			ref.SenderName, ref.SenderEmail, ref.Subject),
		Type: model.TypeConfirmation,
	}
}

// executePending runs the confirmed action. On provider failure the pending
// action is retained and the gate stays awaiting, so a retried confirm is
// well-defined and nothing is silently lost. Send is never auto-retried.
func (d *Dispatcher) executePending(ctx context.Context, prov mailer.Provider, sess *session.Session) model.ResponseEnvelope {
	pending := sess.Pending
	if pending == nil {
		return nothingPendingResponse()
	}

	switch pending.Kind {
	case model.PendingSend:
		if pending.Draft == nil {
			clearPending(sess, "cancel")
			return errorResponse("The pending reply is missing its draft. Please start over.")
		}
		_, err := prov.SendReply(ctx, pending.Draft.To, pending.Draft.Subject, pending.Draft.Body, pending.EmailID)
		if err != nil {
			d.logger.Error("send failed", zap.Error(err))
			d.recordAction(ctx, sess.UserID, pending, "failed")
			return errorResponse(fmt.Sprintf(
				"Couldn't send the reply to %s. Reply 'yes' to try again or 'no' to cancel.", pending.Email.SenderName))
		}
		clearPending(sess, "confirm")
		d.recordAction(ctx, sess.UserID, pending, "ok")
		d.publishAction(sess.UserID, pending)
		return textResponse(fmt.Sprintf("Reply sent to %s!", pending.Email.SenderName))

	case model.PendingDelete:
		if err := prov.Trash(ctx, pending.EmailID); err != nil {
			d.logger.Error("trash failed", zap.Error(err))
			d.recordAction(ctx, sess.UserID, pending, "failed")
			return errorResponse(fmt.Sprintf(
				"Couldn't delete the email from %s. Reply 'yes' to try again or 'no' to cancel.", pending.Email.SenderName))
		}
		clearPending(sess, "confirm")
		sess.RemoveFromCache(pending.EmailID)
		d.recordAction(ctx, sess.UserID, pending, "ok")
		d.publishAction(sess.UserID, pending)
		return textResponse(fmt.Sprintf("Email from %s moved to trash.", pending.Email.SenderName))
	}

	clearPending(sess, "cancel")
	return errorResponse("Unknown pending action.")
}

func (d *Dispatcher) recordAction(ctx context.Context, userID string, p *session.PendingAction, result string) {
	if d.audit == nil {
		return
	}
	if err := d.audit.RecordAction(ctx, userID, p.Kind, p.EmailID, result); err != nil {
		d.logger.Warn("audit write failed", zap.Error(err))
	}
}

func (d *Dispatcher) publishAction(userID string, p *session.PendingAction) {
	if d.events == nil {
		return
	}
	payload := mq.ActionExecutedPayload{
		UserID:     userID,
		Action:     string(p.Kind),
		EmailID:    p.EmailID,
		ExecutedAt: time.Now(),
	}
	if err := d.events.Publish(mq.RoutingKeyActionExecuted, payload); err != nil {
		d.logger.Warn("action event publish failed", zap.Error(err))
	}
}

func refByIndex(idx int, cache []model.EmailRef) (model.EmailRef, bool) {
	for _, e := range cache {
		if e.Index == idx {
			return e, true
		}
	}
	return model.EmailRef{}, false
}

func allIndices(cache []model.EmailRef) []int {
	indices := make([]int, 0, len(cache))
	for _, e := range cache {
		indices = append(indices, e.Index)
	}
	return indices
}
