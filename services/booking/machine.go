package booking

import (
	"bookflow/models"
)

// rule is a single allowed edge in the booking state machine. guard
// validates payload prerequisites, apply mutates the candidate record, and
// effects describes the side effects the transition service must execute
// after persisting.
type rule struct {
	from    models.BookingState
	event   models.BookingEvent
	to      models.BookingState
	guard   func(b models.Booking, p models.TransitionPayload) error
	apply   func(b *models.Booking, p models.TransitionPayload)
	effects func(b models.Booking, p models.TransitionPayload) []Effect
}

// cancellableStates are every state a client may cancel from: all but IDLE
// (nothing to cancel), the terminals and CANCELLATION_REQUESTED itself.
var cancellableStates = []models.BookingState{
	models.StateSessionTypeSelected,
	models.StateSchedulingInitiated,
	models.StateEventScheduled,
	models.StatePaymentRequired,
	models.StatePaymentPending,
	models.StatePaymentProcessing,
	models.StatePaymentSucceeded,
	models.StatePaymentFailed,
}

var rules = buildRules()

func buildRules() []rule {
	rs := []rule{
		{
			from: models.StateIdle, event: models.EventSelectSessionType, to: models.StateSessionTypeSelected,
			guard: func(b models.Booking, p models.TransitionPayload) error {
				if p.BuilderID == "" || p.SessionTypeID == "" {
					return NewMissingPrerequisite(b.CurrentState, models.EventSelectSessionType, "builderId and sessionTypeId are required")
				}
				return nil
			},
			apply: func(b *models.Booking, p models.TransitionPayload) {
				b.BuilderID = p.BuilderID
				b.SessionTypeID = p.SessionTypeID
				if p.ClientID != "" {
					b.ClientID = p.ClientID
				}
				b.AmountDue = p.AmountDue
				b.Currency = p.Currency
			},
		},
		{
			from: models.StateSessionTypeSelected, event: models.EventInitiateScheduling, to: models.StateSchedulingInitiated,
		},
		{
			from: models.StateSchedulingInitiated, event: models.EventScheduleEvent, to: models.StateEventScheduled,
			guard: requireEventURIs,
			apply: applyScheduledEvent,
			effects: func(b models.Booking, p models.TransitionPayload) []Effect {
				// Free sessions skip the payment leg entirely.
				if b.AmountDue == 0 {
					return []Effect{followUp(models.EventConfirmBooking, models.TransitionPayload{})}
				}
				return nil
			},
		},
		{
			// Reschedule: the provider moved an already scheduled event.
			from: models.StateEventScheduled, event: models.EventScheduleEvent, to: models.StateEventScheduled,
			guard: requireEventURIs,
			apply: func(b *models.Booking, p models.TransitionPayload) {
				if b.StartTime != nil {
					prev := *b.StartTime
					b.RescheduledFrom = &prev
				} else if p.RescheduledFrom != nil {
					b.RescheduledFrom = p.RescheduledFrom
				}
				applyScheduledEvent(b, p)
			},
		},
		{
			from: models.StateEventScheduled, event: models.EventInitiatePayment, to: models.StatePaymentRequired,
			guard: func(b models.Booking, p models.TransitionPayload) error {
				if b.AmountDue == 0 {
					return NewMissingPrerequisite(b.CurrentState, models.EventInitiatePayment, "free sessions auto-confirm; payment is not applicable")
				}
				return nil
			},
			effects: func(b models.Booking, p models.TransitionPayload) []Effect {
				return []Effect{effect(EffectCreateCheckoutSession, p)}
			},
		},
		{
			// Payment retry after a failure.
			from: models.StatePaymentFailed, event: models.EventInitiatePayment, to: models.StatePaymentRequired,
			apply: func(b *models.Booking, p models.TransitionPayload) {
				b.CheckoutSessionID = ""
			},
			effects: func(b models.Booking, p models.TransitionPayload) []Effect {
				return []Effect{effect(EffectCreateCheckoutSession, p)}
			},
		},
		{
			from: models.StatePaymentRequired, event: models.EventPaymentPending, to: models.StatePaymentPending,
			guard: func(b models.Booking, p models.TransitionPayload) error {
				if p.CheckoutSessionID == "" {
					return NewMissingPrerequisite(b.CurrentState, models.EventPaymentPending, "checkout session id is required")
				}
				return nil
			},
			apply: func(b *models.Booking, p models.TransitionPayload) {
				b.CheckoutSessionID = p.CheckoutSessionID
			},
		},
		{
			from: models.StatePaymentPending, event: models.EventPaymentProcessing, to: models.StatePaymentProcessing,
		},
		{
			from: models.StatePaymentSucceeded, event: models.EventConfirmBooking, to: models.StateBookingConfirmed,
			effects: func(b models.Booking, p models.TransitionPayload) []Effect {
				return []Effect{effect(EffectSendConfirmation, p)}
			},
		},
		{
			// Free-session confirmation; guarded so a priced booking can
			// never sneak past the payment leg.
			from: models.StateEventScheduled, event: models.EventConfirmBooking, to: models.StateBookingConfirmed,
			guard: func(b models.Booking, p models.TransitionPayload) error {
				if b.AmountDue != 0 {
					return NewMissingPrerequisite(b.CurrentState, models.EventConfirmBooking, "priced sessions confirm through payment")
				}
				return nil
			},
			effects: func(b models.Booking, p models.TransitionPayload) []Effect {
				return []Effect{effect(EffectSendConfirmation, p)}
			},
		},
		{
			from: models.StateCancellationRequested, event: models.EventConfirmCancellation, to: models.StateCancelled,
			apply: func(b *models.Booking, p models.TransitionPayload) {
				at := p.OccurredAt
				b.CancelledAt = &at
				if p.Reason != "" {
					b.AppendStateData("cancellationReason", p.Reason)
				}
			},
			effects: func(b models.Booking, p models.TransitionPayload) []Effect {
				return []Effect{effect(EffectSendCancellationNotice, p)}
			},
		},
	}

	// PAYMENT_SUCCEEDED and PAYMENT_FAILED are accepted while pending or
	// processing; webhook delivery order is not guaranteed.
	for _, from := range []models.BookingState{models.StatePaymentPending, models.StatePaymentProcessing} {
		rs = append(rs, rule{
			from: from, event: models.EventPaymentSucceeded, to: models.StatePaymentSucceeded,
			guard: func(b models.Booking, p models.TransitionPayload) error {
				if b.CalendlyEventURI == "" {
					return NewMissingPrerequisite(b.CurrentState, models.EventPaymentSucceeded, "no scheduling event on record")
				}
				if p.PaymentIntentID == "" {
					return NewMissingPrerequisite(b.CurrentState, models.EventPaymentSucceeded, "payment intent id is required")
				}
				return nil
			},
			apply: func(b *models.Booking, p models.TransitionPayload) {
				b.PaymentIntentID = p.PaymentIntentID
			},
			effects: func(b models.Booking, p models.TransitionPayload) []Effect {
				return []Effect{followUp(models.EventConfirmBooking, models.TransitionPayload{})}
			},
		})
		rs = append(rs, rule{
			from: from, event: models.EventPaymentFailed, to: models.StatePaymentFailed,
			guard: func(b models.Booking, p models.TransitionPayload) error {
				if p.ErrorCode == "" || p.ErrorMessage == "" {
					return NewMissingPrerequisite(b.CurrentState, models.EventPaymentFailed, "error code and message are required")
				}
				return nil
			},
			apply: func(b *models.Booking, p models.TransitionPayload) {
				at := p.OccurredAt
				b.LastErrorCode = p.ErrorCode
				b.LastErrorMessage = p.ErrorMessage
				b.LastErrorAt = &at
				b.AppendStateData("lastPaymentError", map[string]interface{}{
					"code":    p.ErrorCode,
					"message": p.ErrorMessage,
				})
			},
		})
	}

	for _, from := range cancellableStates {
		rs = append(rs, rule{
			from: from, event: models.EventRequestCancellation, to: models.StateCancellationRequested,
			apply: func(b *models.Booking, p models.TransitionPayload) {
				if p.Reason != "" {
					b.AppendStateData("cancellationReason", p.Reason)
				}
				b.AppendStateData("cancellationRequestedAt", p.OccurredAt)
			},
			effects: cancellationEffects,
		})
	}

	return rs
}

// cloneStateData keeps the engine free of aliasing: the input snapshot is
// never mutated through the returned copy.
func cloneStateData(data map[string]interface{}) map[string]interface{} {
	if data == nil {
		return nil
	}
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}

func requireEventURIs(b models.Booking, p models.TransitionPayload) error {
	if p.EventURI == "" || p.InviteeURI == "" {
		return NewMissingPrerequisite(b.CurrentState, models.EventScheduleEvent, "event uri and invitee uri are required")
	}
	return nil
}

func applyScheduledEvent(b *models.Booking, p models.TransitionPayload) {
	b.CalendlyEventURI = p.EventURI
	b.CalendlyInviteeURI = p.InviteeURI
	// Start/end may arrive later from the provider.
	if p.StartTime != nil {
		b.StartTime = p.StartTime
	}
	if p.EndTime != nil {
		b.EndTime = p.EndTime
	}
}

// cancellationEffects decides what unwinding a booking requires: a refund
// when payment was captured, a provider-side cancel when an event exists,
// and an immediate confirmation when no external party is involved.
func cancellationEffects(b models.Booking, p models.TransitionPayload) []Effect {
	var effs []Effect
	if b.Paid() {
		effs = append(effs, effect(EffectIssueRefund, p))
	}
	if b.CalendlyEventURI != "" {
		effs = append(effs, effect(EffectCancelSchedulingEvent, p))
	}
	if len(effs) == 0 {
		effs = append(effs, followUp(models.EventConfirmCancellation, p))
	}
	return effs
}

// Transition is the pure engine: given a booking snapshot, an event and its
// payload it returns the updated snapshot plus described effects, or a
// TransitionError. It reads no clock — timestamps come in via
// payload.OccurredAt — so identical inputs always produce identical output.
func Transition(b models.Booking, event models.BookingEvent, p models.TransitionPayload) (models.Booking, []Effect, error) {
	if !models.KnownEvent(event) {
		return b, nil, NewIllegalTransition(b.CurrentState, event)
	}

	// RESET is legal from every state; it abandons the flow, never corrects
	// webhook processing.
	if event == models.EventReset {
		next := b
		next.StateData = cloneStateData(b.StateData)
		next.CurrentState = models.StateIdle
		next.CalendlyEventURI = ""
		next.CalendlyInviteeURI = ""
		next.CheckoutSessionID = ""
		next.StartTime = nil
		next.EndTime = nil
		if p.Reason != "" {
			next.AppendStateData("resetReason", p.Reason)
		}
		next.LastTransition = p.OccurredAt
		next.UpdatedAt = p.OccurredAt
		return next, nil, nil
	}

	for _, r := range rules {
		if r.from != b.CurrentState || r.event != event {
			continue
		}
		if r.guard != nil {
			if err := r.guard(b, p); err != nil {
				return b, nil, err
			}
		}
		next := b
		next.StateData = cloneStateData(b.StateData)
		if r.apply != nil {
			r.apply(&next, p)
		}
		next.CurrentState = r.to
		next.LastTransition = p.OccurredAt
		next.UpdatedAt = p.OccurredAt

		var effs []Effect
		if r.effects != nil {
			effs = r.effects(next, p)
		}
		return next, effs, nil
	}
	return b, nil, NewIllegalTransition(b.CurrentState, event)
}
