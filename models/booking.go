package models

import "time"

// Booking is the persisted booking record — the single source of truth for
// a flow. It is mutated exclusively through the transition service, one
// event at a time, guarded by an optimistic version check.
type Booking struct {
	ID            string `bson:"id" json:"bookingId"`
	BuilderID     string `bson:"builder_id" json:"builderId"`
	SessionTypeID string `bson:"session_type_id" json:"sessionTypeId"`
	ClientID      string `bson:"client_id,omitempty" json:"clientId,omitempty"` // empty until the client authenticates

	// External-system linkage. Payment fields are only populated after the
	// booking has passed through CALENDLY_EVENT_SCHEDULED.
	CalendlyEventURI   string `bson:"calendly_event_uri,omitempty" json:"calendlyEventUri,omitempty"`
	CalendlyInviteeURI string `bson:"calendly_invitee_uri,omitempty" json:"calendlyInviteeUri,omitempty"`
	CheckoutSessionID  string `bson:"checkout_session_id,omitempty" json:"checkoutSessionId,omitempty"`
	PaymentIntentID    string `bson:"payment_intent_id,omitempty" json:"paymentIntentId,omitempty"`

	// Price snapshot taken at session-type selection; zero means a free
	// session which never enters the payment leg.
	AmountDue int64  `bson:"amount_due" json:"amountDue"`
	Currency  string `bson:"currency,omitempty" json:"currency,omitempty"`

	StartTime *time.Time `bson:"start_time,omitempty" json:"startTime,omitempty"`
	EndTime   *time.Time `bson:"end_time,omitempty" json:"endTime,omitempty"`

	CurrentState   BookingState           `bson:"current_state" json:"state"`
	StateData      map[string]interface{} `bson:"state_data,omitempty" json:"stateData,omitempty"` // append-only diagnostics
	LastTransition time.Time              `bson:"last_transition" json:"lastTransition"`

	// Replay detection for the idempotent transition endpoint.
	LastEvent       BookingEvent `bson:"last_event,omitempty" json:"-"`
	LastPayloadHash string       `bson:"last_payload_hash,omitempty" json:"-"`

	// Recovery token (hashed) lets a client resume after provider redirects.
	RecoveryTokenHash string     `bson:"recovery_token_hash,omitempty" json:"-"`
	RecoveryExpiresAt *time.Time `bson:"recovery_expires_at,omitempty" json:"-"`

	LastErrorCode    string     `bson:"last_error_code,omitempty" json:"lastErrorCode,omitempty"`
	LastErrorMessage string     `bson:"last_error_message,omitempty" json:"lastErrorMessage,omitempty"`
	LastErrorAt      *time.Time `bson:"last_error_at,omitempty" json:"lastErrorAt,omitempty"`

	CancelledAt     *time.Time `bson:"cancelled_at,omitempty" json:"cancelledAt,omitempty"`
	RescheduledFrom *time.Time `bson:"rescheduled_from,omitempty" json:"rescheduledFrom,omitempty"`

	// Version backs the per-booking compare-and-swap; concurrent writers
	// lose with a retryable conflict.
	Version   int64     `bson:"version" json:"-"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// Paid reports whether a payment was captured for this booking.
func (b *Booking) Paid() bool {
	return b.PaymentIntentID != ""
}

// AppendStateData records a diagnostics entry. StateData is never read back
// to infer state.
func (b *Booking) AppendStateData(key string, value interface{}) {
	if b.StateData == nil {
		b.StateData = make(map[string]interface{})
	}
	b.StateData[key] = value
}
