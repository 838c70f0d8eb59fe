package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// TransitionPayload carries the event-specific data for one transition.
// The engine reads from it only — all timestamps come in through
// OccurredAt so the engine itself never touches a clock.
type TransitionPayload struct {
	BuilderID     string `json:"builderId,omitempty"`
	SessionTypeID string `json:"sessionTypeId,omitempty"`
	ClientID      string `json:"clientId,omitempty"`

	EventURI   string     `json:"eventUri,omitempty"`
	InviteeURI string     `json:"inviteeUri,omitempty"`
	StartTime  *time.Time `json:"startTime,omitempty"`
	EndTime    *time.Time `json:"endTime,omitempty"`

	CheckoutSessionID string `json:"sessionId,omitempty"`
	PaymentIntentID   string `json:"paymentIntentId,omitempty"`

	ErrorCode    string `json:"errorCode,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	Reason       string `json:"reason,omitempty"`

	// ReturnURL is where the payment provider sends the client back.
	ReturnURL string `json:"returnUrl,omitempty"`

	// Filled in by the transition service, not by callers.
	AmountDue       int64      `json:"-"`
	Currency        string     `json:"-"`
	RescheduledFrom *time.Time `json:"-"`
	OccurredAt      time.Time  `json:"-"`
}

// Fingerprint hashes the identifying fields of the payload. Replaying the
// same event with the same fingerprint is a no-op; the same event with a
// different fingerprint signals a conflicting replay. OccurredAt is
// deliberately excluded — retries carry fresh timestamps.
func (p TransitionPayload) Fingerprint() string {
	parts := []string{
		p.BuilderID,
		p.SessionTypeID,
		p.EventURI,
		p.InviteeURI,
		p.CheckoutSessionID,
		p.PaymentIntentID,
		p.ErrorCode,
		p.Reason,
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
