package engine

import (
	"mailpilot/internal/intent"
	"mailpilot/internal/session"
	"mailpilot/pkg/metrics"
)

// GateState is the confirmation gate's state for one session. It is derived
// from the session: a pending action means the gate awaits confirmation.
// Executing exists only transiently inside a confirmed dispatch.
type GateState int

const (
	GateIdle GateState = iota
	GateAwaitingConfirmation
	GateExecuting
)

// GateStateOf derives the gate state from the session.
func GateStateOf(sess *session.Session) GateState {
	if sess.Pending != nil {
		return GateAwaitingConfirmation
	}
	return GateIdle
}

// Decision is the gate's verdict for one incoming intent.
type Decision int

const (
	// DecisionProceed: no pending action involved; dispatch normally.
	DecisionProceed Decision = iota
	// DecisionExecute: explicit confirm of the staged action.
	DecisionExecute
	// DecisionCancel: explicit cancel of the staged action.
	DecisionCancel
	// DecisionNothingPending: confirm/cancel arrived with nothing staged.
	DecisionNothingPending
	// DecisionAbandon: a non-confirming intent implicitly abandons the
	// staged action before being dispatched normally.
	DecisionAbandon
)

// Decide routes an intent through the gate. The only path to executing a
// Send or Delete is DecisionExecute, which requires a staged action and an
// explicit confirm.
func Decide(sess *session.Session, k intent.Kind) Decision {
	awaiting := GateStateOf(sess) == GateAwaitingConfirmation

	switch k {
	case intent.KindConfirm:
		if awaiting {
			return DecisionExecute
		}
		return DecisionNothingPending
	case intent.KindCancel:
		if awaiting {
			return DecisionCancel
		}
		return DecisionNothingPending
	default:
		if awaiting {
			return DecisionAbandon
		}
		return DecisionProceed
	}
}

// stagePending puts the gate into AwaitingConfirmation.
func stagePending(sess *session.Session, p *session.PendingAction) {
	sess.Pending = p
	metrics.RecordGateTransition("stage")
}

// clearPending returns the gate to Idle.
func clearPending(sess *session.Session, transition string) {
	sess.Pending = nil
	metrics.RecordGateTransition(transition)
}
