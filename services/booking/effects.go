package booking

import "bookflow/models"

// EffectKind names a side effect the engine describes. Effects are executed
// by the transition service only after the new state is durably persisted,
// so a crash between persist and execution is recovered by retry, never by
// losing the state change.
type EffectKind string

const (
	EffectCreateCheckoutSession  EffectKind = "create_checkout_session"
	EffectIssueRefund            EffectKind = "issue_refund"
	EffectCancelSchedulingEvent  EffectKind = "cancel_scheduling_event"
	EffectSendConfirmation       EffectKind = "send_confirmation"
	EffectSendCancellationNotice EffectKind = "send_cancellation_notice"
	EffectFollowUp               EffectKind = "follow_up"
)

// Effect is a described, not executed, side effect. FollowUp effects carry
// the internal event to apply next; the rest carry the triggering payload
// for context.
type Effect struct {
	Kind    EffectKind
	Event   models.BookingEvent
	Payload models.TransitionPayload
}

func followUp(event models.BookingEvent, p models.TransitionPayload) Effect {
	return Effect{Kind: EffectFollowUp, Event: event, Payload: p}
}

func effect(kind EffectKind, p models.TransitionPayload) Effect {
	return Effect{Kind: kind, Payload: p}
}
