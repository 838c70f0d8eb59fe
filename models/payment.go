package models

// PaymentStatus is the coarse status reported by the checkout status
// endpoint. Webhook delivery and client polling both converge on it.
type PaymentStatus string

const (
	PaymentStatusPaid    PaymentStatus = "PAID"
	PaymentStatusFailed  PaymentStatus = "FAILED"
	PaymentStatusPending PaymentStatus = "PENDING"
)

// CheckoutSession is the projection of a provider checkout session the
// client needs to complete payment.
type CheckoutSession struct {
	ID  string `json:"sessionId"`
	URL string `json:"url"`
}

// CheckoutStatus is the response of the status-check endpoint.
type CheckoutStatus struct {
	PaymentStatus   PaymentStatus `json:"paymentStatus"`
	PaymentIntentID string        `json:"paymentIntentId,omitempty"`
}
