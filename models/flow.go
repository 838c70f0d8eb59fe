package models

import "time"

// FlowSnapshot is the client-facing mirror of a booking flow. It is a
// rendering hint rebuilt from the authoritative record on every resume,
// never a source of truth for business decisions.
type FlowSnapshot struct {
	BookingID        string       `json:"bookingId"`
	Step             string       `json:"step"`
	State            BookingState `json:"state"`
	BuilderID        string       `json:"builderId,omitempty"`
	SessionTypeID    string       `json:"sessionTypeId,omitempty"`
	PaymentSessionID string       `json:"paymentSessionId,omitempty"`
	AmountDue        int64        `json:"amountDue"`
	StartTime        *time.Time   `json:"startTime,omitempty"`
	Retryable        bool         `json:"retryable"`
	Message          string       `json:"message,omitempty"`
	UpdatedAt        time.Time    `json:"updatedAt"`
}

// FlowParams are the URL query parameters a client carries across provider
// redirects so a reloaded page can resume its flow.
type FlowParams struct {
	BookingID        string `form:"bookingId" json:"bookingId"`
	Step             string `form:"step" json:"step,omitempty"`
	BuilderID        string `form:"builderId" json:"builderId,omitempty"`
	SessionTypeID    string `form:"sessionTypeId" json:"sessionTypeId,omitempty"`
	PaymentSessionID string `form:"paymentSessionId" json:"paymentSessionId,omitempty"`
	RecoveryToken    string `form:"recoveryToken" json:"recoveryToken,omitempty"`
}
