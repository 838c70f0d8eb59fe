package models

import (
	"encoding/json"
	"time"
)

// SchedulingWebhook is the envelope the scheduling provider posts. The
// provider-assigned ID is the deduplication key.
type SchedulingWebhook struct {
	ID        string            `json:"id"`
	Event     string            `json:"event"` // invitee.created | invitee.canceled | invitee.rescheduled
	CreatedAt time.Time         `json:"created_at"`
	Payload   SchedulingPayload `json:"payload"`
}

// SchedulingPayload carries the invitee and scheduled-event details.
// Tracking.UTMContent echoes back the bookingId the client attached when
// it was redirected to the provider.
type SchedulingPayload struct {
	URI            string             `json:"uri"` // invitee URI
	Email          string             `json:"email,omitempty"`
	ScheduledEvent ScheduledEvent     `json:"scheduled_event"`
	Tracking       SchedulingTracking `json:"tracking"`
	Cancellation   *Cancellation      `json:"cancellation,omitempty"`
	OldInviteeURI  string             `json:"old_invitee,omitempty"` // set on invitee.rescheduled
}

// ScheduledEvent identifies the calendar event itself.
type ScheduledEvent struct {
	URI       string     `json:"uri"`
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
}

// SchedulingTracking is the UTM block round-tripped through the provider.
type SchedulingTracking struct {
	UTMSource  string `json:"utm_source,omitempty"`
	UTMContent string `json:"utm_content,omitempty"` // carries the bookingId
}

// Cancellation describes who cancelled and why.
type Cancellation struct {
	CanceledBy string `json:"canceled_by,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// DeadLetter is a webhook that exhausted its retry budget, kept for manual
// inspection and replay.
type DeadLetter struct {
	ID              string          `bson:"id" json:"id"`
	Source          string          `bson:"source" json:"source"` // "scheduling" | "payment"
	ProviderEventID string          `bson:"provider_event_id" json:"providerEventId"`
	BookingID       string          `bson:"booking_id,omitempty" json:"bookingId,omitempty"`
	Body            json.RawMessage `bson:"body" json:"body"`
	Attempts        int             `bson:"attempts" json:"attempts"`
	LastError       string          `bson:"last_error" json:"lastError"`
	CreatedAt       time.Time       `bson:"created_at" json:"createdAt"`
}
