package intent

import (
	"context"

	"go.uber.org/zap"

	"mailpilot/internal/llm"
)

// Confidence thresholds, mirrored across rule and model parsing.
const (
	confidenceHigh = 0.85
	ConfidenceLow  = 0.4
)

// Parser turns a message into an Intent: deterministic rules first, model
// fallback for anything the rules don't cover. Parse never returns an error;
// every failure path degrades to KindUnknown.
type Parser struct {
	completer llm.Completer
	logger    *zap.Logger
}

func NewParser(completer llm.Completer, logger *zap.Logger) *Parser {
	return &Parser{completer: completer, logger: logger}
}

// Parse classifies message. hasPending must reflect the session's pending
// action: with one staged, a bare "yes"/"no" is a Confirm/Cancel and is
// never reinterpreted as reply content or a new delete.
func (p *Parser) Parse(ctx context.Context, message string, hasPending bool) Intent {
	if hasPending {
		if it, ok := ruleParse(message); ok && (it.Kind == KindConfirm || it.Kind == KindCancel) {
			return it
		}
	}

	rule, ruleOK := ruleParse(message)
	if ruleOK && rule.Confidence >= confidenceHigh {
		p.logger.Debug("rule-based parse", zap.String("intent", string(rule.Kind)))
		return p.finalize(rule)
	}

	result, err := llm.ClassifyIntent(ctx, p.completer, message, hasPending)
	if err != nil {
		p.logger.Warn("model intent parse failed", zap.Error(err))
		if ruleOK {
			return p.finalize(rule)
		}
		return Intent{Kind: KindUnknown, Raw: message}
	}

	it := Intent{
		Kind:       kindFromLabel(result.Intent),
		Confidence: result.Confidence,
		Ref:        result.Params.EmailRef,
		Body:       result.Params.ReplyContent,
		Count:      result.Params.Count,
		Query:      result.Params.Query,
		Raw:        message,
	}

	// Rule-extracted slots fill gaps the model left empty.
	if ruleOK {
		if it.Ref == "" {
			it.Ref = rule.Ref
		}
		if it.Body == "" {
			it.Body = rule.Body
		}
		if it.Count == 0 {
			it.Count = rule.Count
		}
	}

	p.logger.Debug("model parse",
		zap.String("intent", string(it.Kind)),
		zap.Float64("confidence", it.Confidence))
	return p.finalize(it)
}

// finalize converts intents with missing required slots into clarification
// requests instead of guessing a target.
func (p *Parser) finalize(it Intent) Intent {
	// Summarize without a target means the whole window.
	if it.Kind == KindSummarize && it.Ref == "" {
		it.Kind = KindDigest
		return it
	}

	if it.Ref == "" {
		switch it.Kind {
		case KindDraft:
			it.Kind = KindClarify
			it.Clarify = "Which email would you like to reply to? You can say 'reply to #1' or 'reply to the email from John'."
		case KindDelete:
			it.Kind = KindClarify
			it.Clarify = "Which email would you like to delete? You can say 'delete #1' or 'delete the email from LinkedIn'."
		}
	}
	return it
}

func kindFromLabel(label string) Kind {
	switch Kind(label) {
	case KindList, KindSummarize, KindCategorize, KindDigest, KindDraft,
		KindDelete, KindConfirm, KindCancel, KindHelp, KindGreeting:
		return Kind(label)
	default:
		return KindUnknown
	}
}
