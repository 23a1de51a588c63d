// Package queue defines message payloads exchanged over the message broker
// and the publisher and consumer of booking events.
package queue

import "time"

// Booking event types.
const (
	BookingCreated       = "booking.created"
	BookingStatusChanged = "booking.status_changed"
)

// BookingEvent is published when a booking is created or changes status.
// It contains enough information for downstream consumers to log, notify,
// or trigger analytics without querying the primary database.
type BookingEvent struct {
	Type            string    `json:"type"`
	BookingID       uint64    `json:"booking_id"`
	ListingID       uint64    `json:"listing_id"`
	ListingName     string    `json:"listing_name"`
	CustomerID      uint64    `json:"customer_id"`
	OwnerID         uint64    `json:"owner_id"`
	RoomType        string    `json:"room_type,omitempty"`
	CheckIn         string    `json:"check_in"`
	CheckOut        string    `json:"check_out"`
	Nights          int       `json:"nights"`
	TotalPriceCents int64     `json:"total_price_cents"`
	Currency        string    `json:"currency"`
	OldStatus       string    `json:"old_status,omitempty"`
	Status          string    `json:"status"`
	ActorID         uint64    `json:"actor_id"`
	OccurredAt      time.Time `json:"occurred_at"`
}
