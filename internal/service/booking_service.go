package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	"github.com/iliyamo/rental-booking/internal/model"
	"github.com/iliyamo/rental-booking/internal/queue"
	"github.com/iliyamo/rental-booking/internal/repository"
)

// BookingService manages the booking lifecycle: creation against a
// lodging listing's pricing and capacity, and status transitions.
type BookingService struct {
	Listings  ListingRepository
	Accounts  AccountRepository
	Bookings  BookingRepository
	Events    EventPublisher
	Validator *Validator
	Now       func() time.Time
}

// BookingRequest is the booking form.
type BookingRequest struct {
	RoomType string `json:"room_type" form:"room_type" validate:"max=100"`
	CheckIn  string `json:"check_in" form:"check_in" validate:"required,date"`
	CheckOut string `json:"check_out" form:"check_out" validate:"required,date"`
	Guests   int    `json:"guests" form:"guests" validate:"required,gte=1,lte=1000"`
}

// BookingForm is what a customer needs to fill in the booking form.
type BookingForm struct {
	ListingID     uint64         `json:"listing_id"`
	ListingName   string         `json:"listing_name"`
	Category      string         `json:"category"`
	RoomTypes     []string       `json:"room_types"`
	MaxGuests     int            `json:"max_guests,omitempty"`
	Pricing       *model.Pricing `json:"pricing"`
	AvailableFrom string         `json:"available_from,omitempty"`
	AvailableTo   string         `json:"available_to,omitempty"`

	Featured []repository.ListingRow `json:"featured"`
}

// featuredLimit caps the related listings shown next to a booking form.
const featuredLimit = 6

// bookable loads a visible lodging listing with pricing.
func (s *BookingService) bookable(ctx context.Context, listingID uint64) (*model.Aggregate, error) {
	agg, err := s.Listings.GetAggregate(ctx, listingID)
	if err != nil {
		return nil, err
	}
	owner, err := s.Accounts.GetByID(ctx, agg.Listing.OwnerID)
	if err != nil {
		return nil, err
	}
	if !Visible(agg.Listing, *owner) {
		return nil, ErrNotFound
	}
	if agg.Listing.Kind != model.KindLodging || agg.Pricing == nil {
		return nil, ErrNotBookable
	}
	return agg, nil
}

// Form returns the data for the booking form of a listing.
func (s *BookingService) Form(ctx context.Context, listingID uint64) (*BookingForm, error) {
	agg, err := s.bookable(ctx, listingID)
	if err != nil {
		return nil, err
	}
	f := &BookingForm{
		ListingID:   agg.Listing.ID,
		ListingName: agg.Listing.Name,
		Category:    agg.Listing.Category,
		RoomTypes:   []string{},
		Pricing:     agg.Pricing,
	}
	if agg.Setup != nil {
		f.RoomTypes = append(f.RoomTypes, agg.Setup.RoomTypes...)
		f.MaxGuests = agg.Setup.GuestsPerBooking()
	}
	if agg.Pricing.AvailableFrom != nil {
		f.AvailableFrom = agg.Pricing.AvailableFrom.Format(model.DateLayout)
	}
	if agg.Pricing.AvailableTo != nil {
		f.AvailableTo = agg.Pricing.AvailableTo.Format(model.DateLayout)
	}
	if f.Featured, err = s.featured(ctx, agg.Listing); err != nil {
		return nil, err
	}
	return f, nil
}

// featured returns up to featuredLimit other visible listings of the same
// kind and category.
func (s *BookingService) featured(ctx context.Context, l model.Listing) ([]repository.ListingRow, error) {
	rows, _, err := s.Listings.Search(ctx, repository.ListingQuery{
		Kinds:    []string{l.Kind},
		Category: l.Category,
		Page:     1,
		PageSize: featuredLimit + 1,
	})
	if err != nil {
		return nil, err
	}
	out := make([]repository.ListingRow, 0, featuredLimit)
	for _, r := range rows {
		if r.ID != l.ID && len(out) < featuredLimit {
			out = append(out, r)
		}
	}
	return out, nil
}

// Create books a visible lodging listing for the calling customer.  The
// price is computed from the listing's current base rate and stored on
// the booking; later rate changes do not affect it.
func (s *BookingService) Create(ctx context.Context, id model.Identity, listingID uint64, req BookingRequest) (*model.BookingView, error) {
	if !id.IsCustomer() {
		return nil, ErrForbidden
	}
	if err := s.Validator.Validate(&req); err != nil {
		return nil, err
	}
	checkIn, _ := model.ParseDate(req.CheckIn)
	checkOut, _ := model.ParseDate(req.CheckOut)

	agg, err := s.bookable(ctx, listingID)
	if err != nil {
		return nil, err
	}

	capacity := 1
	roomType := strings.TrimSpace(req.RoomType)
	if st := agg.Setup; st != nil {
		if st.NumberOfRooms > 0 {
			capacity = st.NumberOfRooms
		}
		if limit := st.GuestsPerBooking(); limit > 0 && req.Guests > limit {
			return nil, &ValidationError{Fields: map[string]string{"guests": fmt.Sprintf("must be at most %d", limit)}}
		}
		if len(st.RoomTypes) > 0 && !slices.Contains(st.RoomTypes, roomType) {
			return nil, ErrRoomTypeUnavailable
		}
	}

	stay, err := ComputeStay(*agg.Pricing, checkIn, checkOut)
	if err != nil {
		return nil, err
	}
	if err := checkWindow(agg.Pricing, checkIn, checkOut, stay.Nights); err != nil {
		return nil, err
	}

	b := model.Booking{
		CustomerID:         id.UserID,
		ListingID:          listingID,
		RoomType:           roomType,
		CheckIn:            checkIn,
		CheckOut:           checkOut,
		Guests:             req.Guests,
		Nights:             stay.Nights,
		PricePerNightCents: stay.PricePerNightCents,
		TotalPriceCents:    stay.TotalCents,
		Currency:           stay.Currency,
		Status:             model.BookingPending,
	}
	if err := s.Bookings.InsertIfAvailable(ctx, &b, capacity); err != nil {
		if errors.Is(err, repository.ErrNoCapacity) {
			return nil, ErrDateRangeConflict
		}
		return nil, err
	}

	v := &model.BookingView{Booking: b, ListingName: agg.Listing.Name, OwnerID: agg.Listing.OwnerID}
	s.publish(ctx, queue.BookingCreated, v, "", id.UserID)
	return v, nil
}

// checkWindow applies the listing's availability window and stay limits.
func checkWindow(p *model.Pricing, checkIn, checkOut time.Time, nights int) error {
	if p.AvailableFrom != nil && model.DayNumber(checkIn) < model.DayNumber(*p.AvailableFrom) {
		return ErrOutsideAvailability
	}
	if p.AvailableTo != nil && model.DayNumber(checkOut) > model.DayNumber(*p.AvailableTo) {
		return ErrOutsideAvailability
	}
	minNights := p.MinStayNights
	if minNights < 1 {
		minNights = 1
	}
	if nights < minNights || (p.MaxStayNights != nil && nights > *p.MaxStayNights) {
		return ErrStayLength
	}
	return nil
}

// SetStatus moves a booking along the status table.  The listing owner
// and admins may apply any allowed transition; the booking's customer may
// only cancel.  A value outside the status enum fails with
// ErrInvalidStatus and leaves the booking unchanged.
func (s *BookingService) SetStatus(ctx context.Context, id model.Identity, bookingID uint64, raw string) (*model.BookingView, error) {
	to, ok := model.ParseBookingStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !ok {
		return nil, ErrInvalidStatus
	}
	v, err := s.Bookings.GetView(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	switch {
	case id.IsAdmin(), id.UserID == v.OwnerID:
	case id.UserID == v.CustomerID:
		if to != model.BookingCancelled {
			return nil, ErrForbidden
		}
	default:
		return nil, ErrForbidden
	}
	if !model.CanTransition(v.Status, to) {
		return nil, ErrInvalidTransition
	}
	from := v.Status
	if err := s.Bookings.UpdateStatus(ctx, bookingID, from, to); err != nil {
		return nil, err
	}
	if fresh, err := s.Bookings.GetView(ctx, bookingID); err == nil {
		v = fresh
	} else {
		v.Status = to
	}
	s.publish(ctx, queue.BookingStatusChanged, v, from, id.UserID)
	return v, nil
}

// Get returns a booking to its customer, the listing owner or an admin.
// Anyone else gets ErrNotFound.
func (s *BookingService) Get(ctx context.Context, id model.Identity, bookingID uint64) (*model.BookingView, error) {
	v, err := s.Bookings.GetView(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !id.IsAdmin() && id.UserID != v.CustomerID && id.UserID != v.OwnerID {
		return nil, ErrNotFound
	}
	return v, nil
}

// GetForCustomer returns one of the caller's own bookings.
func (s *BookingService) GetForCustomer(ctx context.Context, id model.Identity, bookingID uint64) (*model.BookingView, error) {
	v, err := s.Bookings.GetView(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if v.CustomerID != id.UserID {
		return nil, ErrNotFound
	}
	return v, nil
}

// GetForOwner returns a booking made on one of the caller's listings.
func (s *BookingService) GetForOwner(ctx context.Context, id model.Identity, bookingID uint64) (*model.BookingView, error) {
	v, err := s.Bookings.GetView(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if v.OwnerID != id.UserID {
		return nil, ErrNotFound
	}
	return v, nil
}

// ListForCustomer returns the caller's bookings, newest first.
func (s *BookingService) ListForCustomer(ctx context.Context, id model.Identity) ([]model.BookingView, error) {
	return s.Bookings.ListByCustomer(ctx, id.UserID)
}

// ListForOwner returns bookings on the caller's listings, newest first.
func (s *BookingService) ListForOwner(ctx context.Context, id model.Identity) ([]model.BookingView, error) {
	return s.Bookings.ListByOwner(ctx, id.UserID)
}

// publish sends a booking event.  Failures are logged and never fail the
// request.
func (s *BookingService) publish(ctx context.Context, typ string, v *model.BookingView, from model.BookingStatus, actor uint64) {
	if s.Events == nil {
		return
	}
	ev := queue.BookingEvent{
		Type:            typ,
		BookingID:       v.ID,
		ListingID:       v.ListingID,
		ListingName:     v.ListingName,
		CustomerID:      v.CustomerID,
		OwnerID:         v.OwnerID,
		RoomType:        v.RoomType,
		CheckIn:         v.CheckIn.Format(model.DateLayout),
		CheckOut:        v.CheckOut.Format(model.DateLayout),
		Nights:          v.Nights,
		TotalPriceCents: v.TotalPriceCents,
		Currency:        v.Currency,
		OldStatus:       string(from),
		Status:          string(v.Status),
		ActorID:         actor,
		OccurredAt:      s.now(),
	}
	if err := s.Events.Publish(ctx, ev); err != nil {
		log.Printf("bookings: publish %s for booking %d: %v", typ, v.ID, err)
	}
}

func (s *BookingService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
