package models

// BookingState is the single authoritative discriminant of a booking's
// position in the flow. StateData never encodes state.
type BookingState string

const (
	StateIdle                  BookingState = "IDLE"
	StateSessionTypeSelected   BookingState = "SESSION_TYPE_SELECTED"
	StateSchedulingInitiated   BookingState = "CALENDLY_SCHEDULING_INITIATED"
	StateEventScheduled        BookingState = "CALENDLY_EVENT_SCHEDULED"
	StatePaymentRequired       BookingState = "PAYMENT_REQUIRED"
	StatePaymentPending        BookingState = "PAYMENT_PENDING"
	StatePaymentProcessing     BookingState = "PAYMENT_PROCESSING"
	StatePaymentSucceeded      BookingState = "PAYMENT_SUCCEEDED"
	StatePaymentFailed         BookingState = "PAYMENT_FAILED"
	StateBookingConfirmed      BookingState = "BOOKING_CONFIRMED"
	StateCancellationRequested BookingState = "CANCELLATION_REQUESTED"
	StateCancelled             BookingState = "CANCELLED"
)

// AllStates lists every state the engine knows about.
var AllStates = []BookingState{
	StateIdle,
	StateSessionTypeSelected,
	StateSchedulingInitiated,
	StateEventScheduled,
	StatePaymentRequired,
	StatePaymentPending,
	StatePaymentProcessing,
	StatePaymentSucceeded,
	StatePaymentFailed,
	StateBookingConfirmed,
	StateCancellationRequested,
	StateCancelled,
}

// Terminal reports whether no further client-driven transition is expected.
// PAYMENT_FAILED is not terminal: a fresh INITIATE_PAYMENT from it is legal.
func (s BookingState) Terminal() bool {
	return s == StateBookingConfirmed || s == StateCancelled
}

// BookingEvent names a trigger for a state transition.
type BookingEvent string

const (
	EventSelectSessionType   BookingEvent = "SELECT_SESSION_TYPE"
	EventInitiateScheduling  BookingEvent = "INITIATE_SCHEDULING"
	EventScheduleEvent       BookingEvent = "SCHEDULE_EVENT"
	EventInitiatePayment     BookingEvent = "INITIATE_PAYMENT"
	EventPaymentPending      BookingEvent = "PAYMENT_PENDING"
	EventPaymentProcessing   BookingEvent = "PAYMENT_PROCESSING"
	EventPaymentSucceeded    BookingEvent = "PAYMENT_SUCCEEDED"
	EventPaymentFailed       BookingEvent = "PAYMENT_FAILED"
	EventRequestCancellation BookingEvent = "REQUEST_CANCELLATION"
	EventReset               BookingEvent = "RESET"

	// Internal events realize the auto/async edges (payment success to
	// confirmation, provider-confirmed cancellation). They are produced by
	// follow-up effects and adapters only, never accepted from the
	// transition endpoint.
	EventConfirmBooking      BookingEvent = "CONFIRM_BOOKING"
	EventConfirmCancellation BookingEvent = "CONFIRM_CANCELLATION"
)

// PublicEvents are the events a client may submit to the transition endpoint.
var PublicEvents = []BookingEvent{
	EventSelectSessionType,
	EventInitiateScheduling,
	EventScheduleEvent,
	EventInitiatePayment,
	EventPaymentPending,
	EventPaymentProcessing,
	EventPaymentSucceeded,
	EventPaymentFailed,
	EventRequestCancellation,
	EventReset,
}

// Internal reports whether the event is reserved for follow-up effects and
// adapters.
func (e BookingEvent) Internal() bool {
	return e == EventConfirmBooking || e == EventConfirmCancellation
}

// KnownEvent reports whether e names any event, public or internal.
func KnownEvent(e BookingEvent) bool {
	if e.Internal() {
		return true
	}
	for _, pe := range PublicEvents {
		if e == pe {
			return true
		}
	}
	return false
}
