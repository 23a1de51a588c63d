package model

import "time"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

// ParseBookingStatus accepts only the four enumerated values.
func ParseBookingStatus(s string) (BookingStatus, bool) {
	switch BookingStatus(s) {
	case BookingPending, BookingConfirmed, BookingCancelled, BookingCompleted:
		return BookingStatus(s), true
	}
	return "", false
}

var bookingTransitions = map[BookingStatus]map[BookingStatus]bool{
	BookingPending:   {BookingConfirmed: true, BookingCancelled: true},
	BookingConfirmed: {BookingCompleted: true, BookingCancelled: true},
	BookingCancelled: {},
	BookingCompleted: {},
}

// CanTransition reports whether a booking may move from one status to
// another.  Cancelled and completed are terminal.
func CanTransition(from, to BookingStatus) bool {
	return bookingTransitions[from][to]
}

// Active reports whether the booking still occupies its dates.
func (s BookingStatus) Active() bool {
	return s == BookingPending || s == BookingConfirmed
}

// Booking records a customer's stay request against a lodging listing.
// Nights, PricePerNightCents, TotalPriceCents and Currency are copied
// from the listing's pricing when the booking is created and never
// follow later price changes.
//
// Fields:
//  ID                 – primary key identifier.
//  CustomerID         – account that made the booking.
//  ListingID          – booked lodging listing.
//  RoomType           – requested room type.
//  CheckIn            – first night (date).
//  CheckOut           – departure day (date, exclusive).
//  Guests             – number of guests.
//  Nights             – CheckOut - CheckIn in days.
//  PricePerNightCents – snapshot of the base rate.
//  TotalPriceCents    – Nights × PricePerNightCents.
//  Currency           – snapshot of the pricing currency.
//  Status             – pending, confirmed, cancelled or completed.
//  CreatedAt          – creation timestamp.
//  UpdatedAt          – last update timestamp.
type Booking struct {
	ID                 uint64        `db:"id" json:"id"`
	CustomerID         uint64        `db:"customer_id" json:"customer_id"`
	ListingID          uint64        `db:"listing_id" json:"listing_id"`
	RoomType           string        `db:"room_type" json:"room_type"`
	CheckIn            time.Time     `db:"check_in" json:"check_in"`
	CheckOut           time.Time     `db:"check_out" json:"check_out"`
	Guests             int           `db:"guests" json:"guests"`
	Nights             int           `db:"nights" json:"nights"`
	PricePerNightCents int64         `db:"price_per_night_cents" json:"price_per_night_cents"`
	TotalPriceCents    int64         `db:"total_price_cents" json:"total_price_cents"`
	Currency           string        `db:"currency" json:"currency"`
	Status             BookingStatus `db:"status" json:"status"`
	CreatedAt          time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time     `db:"updated_at" json:"updated_at"`
}

// BookingView is a booking joined with the listing and account details
// shown on customer and owner dashboards.
type BookingView struct {
	Booking
	ListingName   string `db:"listing_name" json:"listing_name"`
	OwnerID       uint64 `db:"owner_id" json:"owner_id"`
	CustomerEmail string `db:"customer_email" json:"customer_email"`
}
