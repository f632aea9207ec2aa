package engine

import (
	"context"

	"go.uber.org/zap"

	"mailpilot/config"
	"mailpilot/internal/intent"
	"mailpilot/internal/mailer"
	"mailpilot/internal/model"
	"mailpilot/internal/session"
	"mailpilot/pkg/metrics"
)

// Engine runs one conversational turn end to end: acquire the session,
// parse the intent, route it through the confirmation gate, dispatch, and
// compose the typed envelope. Turns for the same user are serialized by the
// session store; turns for different users run concurrently.
type Engine struct {
	parser    *intent.Parser
	disp      *Dispatcher
	store     *session.Store
	providers mailer.Factory
	cfg       config.ChatConfig
	logger    *zap.Logger
}

func NewEngine(parser *intent.Parser, disp *Dispatcher, store *session.Store, providers mailer.Factory, cfg config.ChatConfig, logger *zap.Logger) *Engine {
	return &Engine{
		parser:    parser,
		disp:      disp,
		store:     store,
		providers: providers,
		cfg:       cfg,
		logger:    logger,
	}
}

// HandleTurn processes one user message and always returns a well-formed
// envelope. Unexpected failures are recovered here so a single bad turn can
// neither corrupt the session nor take the process down.
func (e *Engine) HandleTurn(ctx context.Context, userID, accessToken, message string) (env model.ResponseEnvelope) {
	sess, release := e.store.Acquire(ctx, userID)
	defer release()

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("turn panicked", zap.String("user_id", userID), zap.Any("panic", r))
			env = finalize(errorResponse("Something went wrong. Please try again."), sess)
		}
	}()

	if sess.ExpirePending(e.cfg.PendingTimeout) {
		metrics.RecordGateTransition("timeout")
		e.logger.Info("pending action expired", zap.String("user_id", userID))
	}

	sess.AddTurn("user", message)

	it := e.parser.Parse(ctx, message, sess.Pending != nil)
	env = e.route(ctx, sess, it, accessToken)
	env = finalize(env, sess)

	sess.AddTurn("assistant", env.Message)

	outcome := "ok"
	if env.Type == model.TypeError {
		outcome = "error"
	}
	metrics.RecordChatTurn(string(it.Kind), outcome)
	return env
}

func (e *Engine) route(ctx context.Context, sess *session.Session, it intent.Intent, accessToken string) model.ResponseEnvelope {
	switch Decide(sess, it.Kind) {
	case DecisionExecute:
		prov, err := e.providers.ForToken(ctx, accessToken)
		if err != nil {
			e.logger.Error("provider init failed", zap.Error(err))
			return errorResponse("Couldn't connect to your mailbox. Please try again.")
		}
		return e.disp.executePending(ctx, prov, sess)

	case DecisionCancel:
		kind := sess.Pending.Kind
		clearPending(sess, "cancel")
		if kind == model.PendingSend {
			return textResponse("Cancelled. The reply won't be sent. Anything else?")
		}
		return textResponse("Cancelled. The email stays in your inbox. Anything else?")

	case DecisionNothingPending:
		return nothingPendingResponse()

	case DecisionAbandon:
		clearPending(sess, "abandon")
	}

	return e.dispatch(ctx, sess, it, accessToken)
}

func (e *Engine) dispatch(ctx context.Context, sess *session.Session, it intent.Intent, accessToken string) model.ResponseEnvelope {
	switch it.Kind {
	case intent.KindGreeting:
		return greetingResponse()
	case intent.KindHelp:
		return helpResponse()
	case intent.KindClarify:
		return textResponse(it.Clarify)
	case intent.KindUnknown:
		return unknownResponse()
	case intent.KindDraft:
		return e.disp.draft(ctx, sess, it)
	case intent.KindDelete:
		return e.disp.stageDelete(sess, it)
	}

	prov, err := e.providers.ForToken(ctx, accessToken)
	if err != nil {
		e.logger.Error("provider init failed", zap.Error(err))
		return errorResponse("Couldn't connect to your mailbox. Please try again.")
	}

	switch it.Kind {
	case intent.KindList:
		return e.disp.list(ctx, prov, sess, it)
	case intent.KindSummarize:
		return e.disp.summarize(ctx, prov, sess, it)
	case intent.KindCategorize:
		return e.disp.categorize(ctx, prov, sess)
	case intent.KindDigest:
		return e.disp.digest(ctx, prov, sess)
	}

	return unknownResponse()
}

// Status reports the session's pending action and cache size without
// consuming a turn.
func (e *Engine) Status(ctx context.Context, userID string) model.ChatStatus {
	sess, release := e.store.Acquire(ctx, userID)
	defer release()

	if sess.ExpirePending(e.cfg.PendingTimeout) {
		metrics.RecordGateTransition("timeout")
	}

	return model.ChatStatus{
		PendingAction:    sess.PendingKind(),
		HasPending:       sess.Pending != nil,
		CachedEmailCount: len(sess.Cache),
	}
}

// ClearPending cancels any staged action out of band.
func (e *Engine) ClearPending(ctx context.Context, userID string) bool {
	sess, release := e.store.Acquire(ctx, userID)
	defer release()

	if sess.Pending == nil {
		return false
	}
	clearPending(sess, "cancel")
	return true
}
