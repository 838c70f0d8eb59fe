package models

import "time"

// SessionType is the bookable offering of a builder. Price is in minor
// currency units; zero marks a free session.
type SessionType struct {
	ID              string    `bson:"id" json:"id"`
	BuilderID       string    `bson:"builder_id" json:"builderId"`
	Title           string    `bson:"title" json:"title"`
	DurationMinutes int       `bson:"duration_minutes" json:"durationMinutes"`
	Price           int64     `bson:"price" json:"price"`
	Currency        string    `bson:"currency" json:"currency"`
	CreatedAt       time.Time `bson:"created_at" json:"createdAt"`
}

// Free reports whether booking this session type skips the payment leg.
func (st *SessionType) Free() bool {
	return st.Price == 0
}
