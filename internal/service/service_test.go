package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/rental-booking/internal/model"
	"github.com/iliyamo/rental-booking/internal/queue"
	"github.com/iliyamo/rental-booking/internal/repository"
)

func date(s string) time.Time {
	t, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestComputeStay(t *testing.T) {
	p := model.Pricing{BaseRateCents: 5000000, Currency: "TZS"}
	tests := []struct {
		name    string
		in, out time.Time
		nights  int
		total   int64
		wantErr error
	}{
		{name: "three nights", in: date("2024-06-01"), out: date("2024-06-04"), nights: 3, total: 15000000},
		{name: "one night", in: date("2024-06-01"), out: date("2024-06-02"), nights: 1, total: 5000000},
		{name: "across month", in: date("2024-01-30"), out: date("2024-02-02"), nights: 3, total: 15000000},
		{name: "leap day", in: date("2024-02-28"), out: date("2024-03-01"), nights: 2, total: 10000000},
		{name: "clock ignored", in: date("2024-06-01").Add(23 * time.Hour), out: date("2024-06-02"), nights: 1, total: 5000000},
		{name: "same day", in: date("2024-06-01"), out: date("2024-06-01"), wantErr: ErrInvalidDateRange},
		{name: "reversed", in: date("2024-06-04"), out: date("2024-06-01"), wantErr: ErrInvalidDateRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeStay(p, tt.in, tt.out)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ComputeStay error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ComputeStay: %v", err)
			}
			if got.Nights != tt.nights || got.TotalCents != tt.total {
				t.Errorf("ComputeStay = %d nights %d total, want %d nights %d total", got.Nights, got.TotalCents, tt.nights, tt.total)
			}
			if got.Currency != "TZS" || got.PricePerNightCents != p.BaseRateCents {
				t.Errorf("ComputeStay = %+v, want TZS at base rate", got)
			}
		})
	}
}

func TestComputeStayTotalIsNightsTimesBase(t *testing.T) {
	start := date("2024-01-01")
	for _, base := range []int64{1, 99, 5000000, 123456789} {
		for nights := 1; nights <= 400; nights += 37 {
			got, err := ComputeStay(model.Pricing{BaseRateCents: base}, start, start.AddDate(0, 0, nights))
			if err != nil {
				t.Fatalf("ComputeStay(base %d, %d nights): %v", base, nights, err)
			}
			if got.Nights != nights || got.TotalCents != int64(nights)*base {
				t.Errorf("base %d: got %d nights total %d, want %d nights total %d", base, got.Nights, got.TotalCents, nights, int64(nights)*base)
			}
			if got.Currency != model.DefaultCurrency {
				t.Errorf("currency = %q, want default", got.Currency)
			}
		}
	}
}

func TestComputeStayOverflow(t *testing.T) {
	p := model.Pricing{BaseRateCents: math.MaxInt64 / 2}
	if _, err := ComputeStay(p, date("2024-01-01"), date("2024-01-04")); !errors.Is(err, ErrInvalidDateRange) {
		t.Errorf("overflow error = %v, want %v", err, ErrInvalidDateRange)
	}
}

func TestVisible(t *testing.T) {
	tests := []struct {
		verified bool
		status   string
		want     bool
	}{
		{true, model.ListingOpen, true},
		{false, model.ListingOpen, false},
		{true, model.ListingHold, false},
		{true, model.ListingClosed, false},
	}
	for _, kind := range []string{model.KindLodging, model.KindResidence, model.KindVehicle} {
		for _, tt := range tests {
			l := model.Listing{Kind: kind, Status: tt.status}
			if got := Visible(l, model.Account{Verified: tt.verified}); got != tt.want {
				t.Errorf("Visible(%s, status %s, verified %v) = %v, want %v", kind, tt.status, tt.verified, got, tt.want)
			}
		}
	}
}

func TestValidNIDA(t *testing.T) {
	tests := map[string]bool{
		"19900101123456789012": true,
		"19901301123456789012": false,
		"1990010112345678901":  false,
		"1990010112345678901a": false,
	}
	for in, want := range tests {
		if got := ValidNIDA(in); got != want {
			t.Errorf("ValidNIDA(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestMustRegisterPanicsOnBadRule(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil || !strings.Contains(r.(string), `""`) {
			t.Fatalf("recover() = %v, want a registration panic", r)
		}
	}()
	mustRegister(validator.New(), "", func(validator.FieldLevel) bool { return true })
}

func TestCustomRulesRegistered(t *testing.T) {
	v := NewValidator()
	in := struct {
		Phone string `json:"phone" validate:"tzphone"`
		Price string `json:"price" validate:"amount"`
		Day   string `json:"day" validate:"date"`
	}{"0812345678", "1.234", "2026-02-30"}
	var ve *ValidationError
	if err := v.Validate(&in); !errors.As(err, &ve) || len(ve.Fields) != 3 {
		t.Fatalf("Validate = %v, want three field errors", err)
	}
}

func lodgingInput(base string) CreateListingInput {
	return CreateListingInput{
		Listing: ListingInput{
			Name:     "Kilimanjaro Lodge",
			Category: "lodge",
			Address:  "Plot 12",
			District: "Moshi",
			Region:   "Kilimanjaro",
		},
		Setup:   &SetupInput{NumberOfRooms: 1, BedsPerRoom: 2, MaxGuestsPerRoom: 2, RoomTypes: []string{"Double"}},
		Pricing: &PricingInput{BaseRate: Amount(base)},
		Legal:   &LegalInput{HouseRules: "No parties"},
	}
}

// seedLodging creates a verified owner with one open lodging listing.
func seedLodging(t *testing.T, f *fixture, base string) (model.Identity, uint64) {
	t.Helper()
	owner := f.store.addAccount(model.RoleOwner, true)
	agg, err := f.listings.Create(context.Background(), owner, model.KindLodging, lodgingInput(base), nil)
	if err != nil {
		t.Fatalf("Create listing: %v", err)
	}
	return owner, agg.Listing.ID
}

func book(f *fixture, customer model.Identity, listingID uint64, in, out string) (*model.BookingView, error) {
	return f.bookings.Create(context.Background(), customer, listingID, BookingRequest{
		RoomType: "Double", CheckIn: in, CheckOut: out, Guests: 2,
	})
}

func TestCreateListingAggregate(t *testing.T) {
	f := newFixture()
	owner := f.store.addAccount(model.RoleOwner, true)
	photos := []Upload{
		{Filename: "a.jpg", ContentType: "image/jpeg", Size: 3, Body: strings.NewReader("abc")},
		{Filename: "b.png", ContentType: "image/png", Size: 2, Body: strings.NewReader("de")},
	}
	agg, err := f.listings.Create(context.Background(), owner, model.KindLodging, lodgingInput("50,000.00"), photos)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if agg.Listing.OwnerID != owner.UserID || agg.Listing.Status != model.ListingOpen || agg.Listing.Country != "Tanzania" {
		t.Errorf("listing defaults not applied: %+v", agg.Listing)
	}
	if agg.Pricing.BaseRateCents != 5000000 || agg.Pricing.Currency != "TZS" || agg.Pricing.MinStayNights != 1 {
		t.Errorf("pricing = %+v", agg.Pricing)
	}
	if agg.Setup.TotalBeds != 2 {
		t.Errorf("total beds = %d, want rooms × beds per room = 2", agg.Setup.TotalBeds)
	}
	if len(agg.Photos) != 2 || f.blobs.len() != 2 {
		t.Errorf("photos = %d, blobs = %d, want 2 and 2", len(agg.Photos), f.blobs.len())
	}
}

func TestCreateListingFailureRemovesBlobs(t *testing.T) {
	f := newFixture()
	owner := f.store.addAccount(model.RoleOwner, true)
	f.store.failWrite = errors.New("deadlock")
	photos := []Upload{{Filename: "a.jpg", ContentType: "image/jpeg", Size: 3, Body: strings.NewReader("abc")}}
	if _, err := f.listings.Create(context.Background(), owner, model.KindLodging, lodgingInput("100"), photos); err == nil {
		t.Fatal("Create succeeded, want error")
	}
	if f.blobs.len() != 0 {
		t.Errorf("%d blobs left after failed create", f.blobs.len())
	}
	if len(f.store.listings) != 0 {
		t.Errorf("listing persisted after failed create")
	}
}

func TestCreateListingValidation(t *testing.T) {
	f := newFixture()
	owner := f.store.addAccount(model.RoleOwner, true)
	customer := f.store.addAccount(model.RoleCustomer, false)

	tests := []struct {
		name   string
		id     model.Identity
		kind   string
		mutate func(*CreateListingInput)
		field  string
	}{
		{name: "wrong category for kind", id: owner, kind: model.KindLodging, mutate: func(in *CreateListingInput) { in.Listing.Category = "apartment" }, field: "listing.category"},
		{name: "missing name", id: owner, kind: model.KindLodging, mutate: func(in *CreateListingInput) { in.Listing.Name = "" }, field: "listing.name"},
		{name: "bad phone", id: owner, kind: model.KindLodging, mutate: func(in *CreateListingInput) { in.Listing.PhoneNumber = "12345" }, field: "listing.phone_number"},
		{name: "bad amount", id: owner, kind: model.KindLodging, mutate: func(in *CreateListingInput) { in.Pricing.BaseRate = "12.345" }, field: "pricing.base_rate"},
		{name: "zero rate", id: owner, kind: model.KindLodging, mutate: func(in *CreateListingInput) { in.Pricing.BaseRate = "0" }, field: "pricing.base_rate"},
		{name: "missing pricing", id: owner, kind: model.KindLodging, mutate: func(in *CreateListingInput) { in.Pricing = nil }, field: "pricing"},
		{name: "window reversed", id: owner, kind: model.KindLodging, mutate: func(in *CreateListingInput) {
			in.Pricing.AvailableFrom, in.Pricing.AvailableTo = "2024-07-01", "2024-06-01"
		}, field: "pricing.available_to"},
		{name: "discount over 100%", id: owner, kind: model.KindLodging, mutate: func(in *CreateListingInput) { in.Pricing.WeeklyDiscount = "150" }, field: "pricing.weekly_discount"},
		{name: "vehicle needs registration", id: owner, kind: model.KindVehicle, mutate: func(in *CreateListingInput) { in.Listing.Category = "shuffle" }, field: "listing.details.registration_number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := lodgingInput("100")
			tt.mutate(&in)
			_, err := f.listings.Create(context.Background(), tt.id, tt.kind, in, nil)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("error = %v, want ValidationError", err)
			}
			if _, ok := ve.Fields[tt.field]; !ok {
				t.Errorf("fields = %v, want %q", ve.Fields, tt.field)
			}
		})
	}

	if _, err := f.listings.Create(context.Background(), customer, model.KindLodging, lodgingInput("100"), nil); !errors.Is(err, ErrForbidden) {
		t.Errorf("customer create error = %v, want %v", err, ErrForbidden)
	}
	bad := []Upload{{Filename: "x.exe", ContentType: "application/octet-stream", Size: 1, Body: strings.NewReader("x")}}
	if _, err := f.listings.Create(context.Background(), owner, model.KindLodging, lodgingInput("100"), bad); err == nil {
		t.Errorf("non-image upload accepted")
	}
}

func TestBookingScenario(t *testing.T) {
	f := newFixture()
	_, listingID := seedLodging(t, f, "50000")
	customer := f.store.addAccount(model.RoleCustomer, false)

	b, err := book(f, customer, listingID, "2024-06-01", "2024-06-04")
	if err != nil {
		t.Fatalf("Create booking: %v", err)
	}
	if b.Nights != 3 || b.TotalPriceCents != 15000000 || b.Status != model.BookingPending || b.Currency != "TZS" {
		t.Errorf("booking = %d nights, total %d, status %s, currency %s; want 3, 15000000, pending, TZS",
			b.Nights, b.TotalPriceCents, b.Status, b.Currency)
	}
	if len(f.events.events) != 1 || f.events.events[0].Type != queue.BookingCreated {
		t.Errorf("events = %+v, want one booking.created", f.events.events)
	}
}

func TestBookingStatusScenario(t *testing.T) {
	f := newFixture()
	owner, listingID := seedLodging(t, f, "50000")
	customer := f.store.addAccount(model.RoleCustomer, false)
	b, err := book(f, customer, listingID, "2024-06-01", "2024-06-04")
	if err != nil {
		t.Fatalf("Create booking: %v", err)
	}
	ctx := context.Background()

	got, err := f.bookings.SetStatus(ctx, owner, b.ID, "confirmed")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if got.Status != model.BookingConfirmed {
		t.Errorf("status = %s, want confirmed", got.Status)
	}

	if _, err := f.bookings.SetStatus(ctx, owner, b.ID, "bogus"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("bogus status error = %v, want %v", err, ErrInvalidStatus)
	}
	again, err := f.bookings.Get(ctx, customer, b.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if again.Status != model.BookingConfirmed {
		t.Errorf("status after bogus = %s, want confirmed", again.Status)
	}

	if _, err := f.bookings.SetStatus(ctx, owner, b.ID, "pending"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("confirmed->pending error = %v, want %v", err, ErrInvalidTransition)
	}
	if _, err := f.bookings.SetStatus(ctx, owner, b.ID, "completed"); err != nil {
		t.Errorf("confirmed->completed: %v", err)
	}
	if _, err := f.bookings.SetStatus(ctx, owner, b.ID, "cancelled"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("completed->cancelled error = %v, want %v", err, ErrInvalidTransition)
	}
	last := f.events.events[len(f.events.events)-1]
	if last.Type != queue.BookingStatusChanged || last.OldStatus != "confirmed" || last.Status != "completed" {
		t.Errorf("last event = %+v", last)
	}
}

func TestBookingStatusAuthorization(t *testing.T) {
	f := newFixture()
	_, listingID := seedLodging(t, f, "100")
	customer := f.store.addAccount(model.RoleCustomer, false)
	stranger := f.store.addAccount(model.RoleCustomer, false)
	admin := f.store.addAccount(model.RoleAdmin, false)
	ctx := context.Background()

	b, err := book(f, customer, listingID, "2024-06-01", "2024-06-02")
	if err != nil {
		t.Fatalf("Create booking: %v", err)
	}
	if _, err := f.bookings.SetStatus(ctx, customer, b.ID, "confirmed"); !errors.Is(err, ErrForbidden) {
		t.Errorf("customer confirm error = %v, want %v", err, ErrForbidden)
	}
	if _, err := f.bookings.SetStatus(ctx, stranger, b.ID, "cancelled"); !errors.Is(err, ErrForbidden) {
		t.Errorf("stranger cancel error = %v, want %v", err, ErrForbidden)
	}
	if _, err := f.bookings.Get(ctx, stranger, b.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("stranger get error = %v, want %v", err, ErrNotFound)
	}
	if _, err := f.bookings.SetStatus(ctx, customer, b.ID, "cancelled"); err != nil {
		t.Errorf("customer cancel: %v", err)
	}

	b2, err := book(f, customer, listingID, "2024-06-01", "2024-06-02")
	if err != nil {
		t.Fatalf("rebook after cancel: %v", err)
	}
	if _, err := f.bookings.SetStatus(ctx, admin, b2.ID, "confirmed"); err != nil {
		t.Errorf("admin confirm: %v", err)
	}
}

func TestBookingOverlapConflict(t *testing.T) {
	f := newFixture()
	_, listingID := seedLodging(t, f, "100")
	c1 := f.store.addAccount(model.RoleCustomer, false)
	c2 := f.store.addAccount(model.RoleCustomer, false)

	if _, err := book(f, c1, listingID, "2024-06-01", "2024-06-05"); err != nil {
		t.Fatalf("first booking: %v", err)
	}
	if _, err := book(f, c2, listingID, "2024-06-03", "2024-06-07"); !errors.Is(err, ErrDateRangeConflict) {
		t.Errorf("overlapping booking error = %v, want %v", err, ErrDateRangeConflict)
	}
	if _, err := book(f, c2, listingID, "2024-06-05", "2024-06-07"); err != nil {
		t.Errorf("back-to-back booking: %v", err)
	}
}

func TestBookingCapacityFollowsRooms(t *testing.T) {
	f := newFixture()
	owner := f.store.addAccount(model.RoleOwner, true)
	in := lodgingInput("100")
	in.Setup.NumberOfRooms = 2
	agg, err := f.listings.Create(context.Background(), owner, model.KindLodging, in, nil)
	if err != nil {
		t.Fatalf("Create listing: %v", err)
	}
	customer := f.store.addAccount(model.RoleCustomer, false)
	for i := 0; i < 2; i++ {
		if _, err := book(f, customer, agg.Listing.ID, "2024-06-01", "2024-06-03"); err != nil {
			t.Fatalf("booking %d: %v", i+1, err)
		}
	}
	if _, err := book(f, customer, agg.Listing.ID, "2024-06-02", "2024-06-03"); !errors.Is(err, ErrDateRangeConflict) {
		t.Errorf("third booking error = %v, want %v", err, ErrDateRangeConflict)
	}

	// Two rooms of two guests each still cap one booking at two guests.
	var ve *ValidationError
	_, err = f.bookings.Create(context.Background(), customer, agg.Listing.ID, BookingRequest{
		RoomType: "Double", CheckIn: "2024-07-01", CheckOut: "2024-07-03", Guests: 3,
	})
	if !errors.As(err, &ve) || ve.Fields["guests"] != "must be at most 2" {
		t.Errorf("three guests in one room error = %v, want guests field error", err)
	}
	form, err := f.bookings.Form(context.Background(), agg.Listing.ID)
	if err != nil {
		t.Fatalf("Form: %v", err)
	}
	if form.MaxGuests != 2 {
		t.Errorf("form max guests = %d, want 2", form.MaxGuests)
	}
}

func TestBookingRejections(t *testing.T) {
	f := newFixture()
	owner := f.store.addAccount(model.RoleOwner, true)
	in := lodgingInput("100")
	in.Pricing.AvailableFrom = "2024-06-01"
	in.Pricing.AvailableTo = "2024-06-30"
	in.Pricing.MinStayNights = 2
	maxNights := 5
	in.Pricing.MaxStayNights = &maxNights
	agg, err := f.listings.Create(context.Background(), owner, model.KindLodging, in, nil)
	if err != nil {
		t.Fatalf("Create listing: %v", err)
	}
	customer := f.store.addAccount(model.RoleCustomer, false)
	ctx := context.Background()

	tests := []struct {
		name    string
		id      model.Identity
		req     BookingRequest
		wantErr error
	}{
		{name: "reversed dates", id: customer, req: BookingRequest{RoomType: "Double", CheckIn: "2024-06-10", CheckOut: "2024-06-08", Guests: 1}, wantErr: ErrInvalidDateRange},
		{name: "same day", id: customer, req: BookingRequest{RoomType: "Double", CheckIn: "2024-06-10", CheckOut: "2024-06-10", Guests: 1}, wantErr: ErrInvalidDateRange},
		{name: "unknown room type", id: customer, req: BookingRequest{RoomType: "Suite", CheckIn: "2024-06-10", CheckOut: "2024-06-12", Guests: 1}, wantErr: ErrRoomTypeUnavailable},
		{name: "before window", id: customer, req: BookingRequest{RoomType: "Double", CheckIn: "2024-05-30", CheckOut: "2024-06-02", Guests: 1}, wantErr: ErrOutsideAvailability},
		{name: "after window", id: customer, req: BookingRequest{RoomType: "Double", CheckIn: "2024-06-29", CheckOut: "2024-07-02", Guests: 1}, wantErr: ErrOutsideAvailability},
		{name: "too short", id: customer, req: BookingRequest{RoomType: "Double", CheckIn: "2024-06-10", CheckOut: "2024-06-11", Guests: 1}, wantErr: ErrStayLength},
		{name: "too long", id: customer, req: BookingRequest{RoomType: "Double", CheckIn: "2024-06-10", CheckOut: "2024-06-20", Guests: 1}, wantErr: ErrStayLength},
		{name: "owner cannot book", id: owner, req: BookingRequest{RoomType: "Double", CheckIn: "2024-06-10", CheckOut: "2024-06-12", Guests: 1}, wantErr: ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.bookings.Create(ctx, tt.id, agg.Listing.ID, tt.req); !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	var ve *ValidationError
	_, err = f.bookings.Create(ctx, customer, agg.Listing.ID, BookingRequest{RoomType: "Double", CheckIn: "2024-06-10", CheckOut: "2024-06-12", Guests: 3})
	if !errors.As(err, &ve) || ve.Fields["guests"] == "" {
		t.Errorf("too many guests error = %v, want guests field error", err)
	}
	_, err = f.bookings.Create(ctx, customer, agg.Listing.ID, BookingRequest{RoomType: "Double", CheckIn: "2024-06-10", CheckOut: "2024-06-12"})
	if !errors.As(err, &ve) || ve.Fields["guests"] == "" {
		t.Errorf("zero guests error = %v, want guests field error", err)
	}
	if len(f.store.bookings) != 0 {
		t.Errorf("%d bookings persisted by rejected requests", len(f.store.bookings))
	}
}

func TestBookingFormFeatured(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	owner, listingID := seedLodging(t, f, "100")
	for i := 0; i < 7; i++ {
		if _, err := f.listings.Create(ctx, owner, model.KindLodging, lodgingInput("120"), nil); err != nil {
			t.Fatalf("Create listing %d: %v", i, err)
		}
	}
	other := lodgingInput("90")
	other.Listing.Category = "hotel"
	if _, err := f.listings.Create(ctx, owner, model.KindLodging, other, nil); err != nil {
		t.Fatalf("Create hotel: %v", err)
	}

	form, err := f.bookings.Form(ctx, listingID)
	if err != nil {
		t.Fatalf("Form: %v", err)
	}
	if len(form.Featured) != 6 {
		t.Fatalf("featured = %d listings, want 6", len(form.Featured))
	}
	for _, r := range form.Featured {
		if r.ID == listingID || r.Category != "lodge" || r.Kind != model.KindLodging {
			t.Errorf("unexpected featured listing %d (%s/%s)", r.ID, r.Kind, r.Category)
		}
	}
}

func TestBookingRequiresVisibleLodging(t *testing.T) {
	f := newFixture()
	customer := f.store.addAccount(model.RoleCustomer, false)
	ctx := context.Background()

	unverified := f.store.addAccount(model.RoleOwner, false)
	agg, err := f.listings.Create(ctx, unverified, model.KindLodging, lodgingInput("100"), nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := book(f, customer, agg.Listing.ID, "2024-06-01", "2024-06-02"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unverified owner error = %v, want %v", err, ErrNotFound)
	}

	owner := f.store.addAccount(model.RoleOwner, true)
	in := lodgingInput("100")
	in.Listing.Category = "apartment"
	res, err := f.listings.Create(ctx, owner, model.KindResidence, in, nil)
	if err != nil {
		t.Fatalf("Create residence: %v", err)
	}
	if _, err := book(f, customer, res.Listing.ID, "2024-06-01", "2024-06-02"); !errors.Is(err, ErrNotBookable) {
		t.Errorf("residence booking error = %v, want %v", err, ErrNotBookable)
	}

	_, held := seedLodging(t, f, "100")
	f.store.listings[held].Listing.Status = model.ListingHold
	if _, err := book(f, customer, held, "2024-06-01", "2024-06-02"); !errors.Is(err, ErrNotFound) {
		t.Errorf("held listing error = %v, want %v", err, ErrNotFound)
	}
}

func TestBookingSnapshotsPrice(t *testing.T) {
	f := newFixture()
	_, listingID := seedLodging(t, f, "50000")
	customer := f.store.addAccount(model.RoleCustomer, false)
	b, err := book(f, customer, listingID, "2024-06-01", "2024-06-04")
	if err != nil {
		t.Fatalf("Create booking: %v", err)
	}

	f.store.listings[listingID].Pricing.BaseRateCents = 9900000

	got, err := f.bookings.Get(context.Background(), customer, b.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.PricePerNightCents != 5000000 || got.TotalPriceCents != 15000000 {
		t.Errorf("booking price changed to %d/%d after rate change", got.PricePerNightCents, got.TotalPriceCents)
	}
}

func TestPublishFailureDoesNotFailBooking(t *testing.T) {
	f := newFixture()
	_, listingID := seedLodging(t, f, "100")
	customer := f.store.addAccount(model.RoleCustomer, false)
	f.events.fail = true
	if _, err := book(f, customer, listingID, "2024-06-01", "2024-06-02"); err != nil {
		t.Errorf("booking failed on publish error: %v", err)
	}
}

func TestDeleteListing(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	owner := f.store.addAccount(model.RoleOwner, true)
	other := f.store.addAccount(model.RoleOwner, true)
	photos := []Upload{{Filename: "a.jpg", ContentType: "image/jpeg", Size: 3, Body: strings.NewReader("abc")}}
	agg, err := f.listings.Create(ctx, owner, model.KindLodging, lodgingInput("100"), photos)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	customer := f.store.addAccount(model.RoleCustomer, false)
	if _, err := book(f, customer, agg.Listing.ID, "2024-06-01", "2024-06-02"); err != nil {
		t.Fatalf("book: %v", err)
	}

	if err := f.listings.Delete(ctx, other, agg.Listing.ID, ""); !errors.Is(err, ErrForbidden) {
		t.Errorf("non-owner delete error = %v, want %v", err, ErrForbidden)
	}
	if _, ok := f.store.listings[agg.Listing.ID]; !ok || f.blobs.len() != 1 || len(f.store.bookings) != 1 {
		t.Fatalf("store changed by forbidden delete")
	}
	if err := f.listings.Delete(ctx, owner, agg.Listing.ID, model.KindVehicle); !errors.Is(err, ErrNotFound) {
		t.Errorf("wrong-kind delete error = %v, want %v", err, ErrNotFound)
	}

	if err := f.listings.Delete(ctx, owner, agg.Listing.ID, model.KindLodging); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if _, err := f.listings.Get(ctx, owner, agg.Listing.ID, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete error = %v, want %v", err, ErrNotFound)
	}
	if f.blobs.len() != 0 || len(f.store.bookings) != 0 {
		t.Errorf("blobs %d bookings %d left after delete", f.blobs.len(), len(f.store.bookings))
	}
	if err := f.listings.Delete(ctx, owner, agg.Listing.ID, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete error = %v, want %v", err, ErrNotFound)
	}
}

func TestFilterAndStatus(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	owner, id := seedLodging(t, f, "100")
	seedLodging(t, f, "200")

	page, err := f.listings.Filter(ctx, Query{Kind: model.KindLodging, Page: 0, PageSize: 1000})
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if page.Total != 2 || page.PageSize != MaxPageSize || page.Page != 1 {
		t.Errorf("page = total %d size %d page %d", page.Total, page.PageSize, page.Page)
	}

	if err := f.listings.SetStatus(ctx, owner, id, "", "paused"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("bad listing status error = %v, want %v", err, ErrInvalidStatus)
	}
	if err := f.listings.SetStatus(ctx, owner, id, model.KindLodging, model.ListingClosed); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	page, _ = f.listings.Filter(ctx, Query{Kind: model.KindLodging})
	if page.Total != 1 {
		t.Errorf("closed listing still visible: total %d", page.Total)
	}
	if _, _, err := f.listings.PublicDetail(ctx, model.KindLodging, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("closed detail error = %v, want %v", err, ErrNotFound)
	}
	if _, err := f.listings.Filter(ctx, Query{Kind: model.KindLodging, Category: "apartment"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign category error = %v, want %v", err, ErrNotFound)
	}

	d, err := f.listings.Dashboard(ctx, owner)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if d.TotalListings != 1 || d.ByStatus[model.ListingClosed] != 1 || d.ByKind[model.KindLodging] != 1 || len(d.Latest) != 1 {
		t.Errorf("dashboard = %+v", d)
	}
}

func TestRegisterAndAuthenticate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	a, err := f.accounts.Register(ctx, RegisterInput{Email: " Host@Example.com", Password: "s3cretpass", Role: "owner", PhoneNumber: "0712345678"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if a.Email != "host@example.com" || a.Role != model.RoleOwner || a.Verified {
		t.Errorf("account = %+v", a)
	}
	if _, err := f.accounts.Register(ctx, RegisterInput{Email: "host@example.com", Password: "s3cretpass"}); !errors.Is(err, ErrEmailExists) {
		t.Errorf("duplicate error = %v, want %v", err, ErrEmailExists)
	}
	var ve *ValidationError
	if _, err := f.accounts.Register(ctx, RegisterInput{Email: "x@example.com", Password: "s3cretpass", Role: "ADMIN"}); !errors.As(err, &ve) {
		t.Errorf("admin self-registration error = %v, want ValidationError", err)
	}
	if _, err := f.accounts.Register(ctx, RegisterInput{Email: "y@example.com", Password: "s3cretpass", PhoneNumber: "+1555"}); !errors.As(err, &ve) {
		t.Errorf("bad phone error = %v, want ValidationError", err)
	}

	if _, err := f.accounts.Authenticate(ctx, "host@example.com", "s3cretpass"); err != nil {
		t.Errorf("Authenticate: %v", err)
	}
	if _, err := f.accounts.Authenticate(ctx, "host@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v, want %v", err, ErrInvalidCredentials)
	}
	if _, err := f.accounts.Authenticate(ctx, "nobody@example.com", "s3cretpass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email error = %v, want %v", err, ErrInvalidCredentials)
	}
}

func TestChangePassword(t *testing.T) {
	f := newFixture()
	rv := &revoker{}
	f.accounts.Tokens = rv
	ctx := context.Background()

	a, err := f.accounts.Register(ctx, RegisterInput{Email: "guest@example.com", Password: "s3cretpass"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	id := model.Identity{UserID: a.ID, Role: a.Role}

	tests := []struct {
		name  string
		in    ChangePasswordInput
		field string
	}{
		{"wrong old password", ChangePasswordInput{OldPassword: "nope-nope", NewPassword: "n3wsecret"}, "old_password"},
		{"short new password", ChangePasswordInput{OldPassword: "s3cretpass", NewPassword: "short"}, "new_password"},
		{"same as old", ChangePasswordInput{OldPassword: "s3cretpass", NewPassword: "s3cretpass"}, "new_password"},
		{"missing old password", ChangePasswordInput{NewPassword: "n3wsecret"}, "old_password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.accounts.ChangePassword(ctx, id, tt.in)
			var ve *ValidationError
			if !errors.As(err, &ve) || ve.Fields[tt.field] == "" {
				t.Fatalf("error = %v, want a %s field error", err, tt.field)
			}
		})
	}
	if len(rv.users) != 0 {
		t.Fatalf("tokens revoked on a rejected change: %v", rv.users)
	}

	if _, err := f.accounts.ChangePassword(ctx, id, ChangePasswordInput{OldPassword: "s3cretpass", NewPassword: "n3wsecret"}); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, err := f.accounts.Authenticate(ctx, "guest@example.com", "n3wsecret"); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
	if _, err := f.accounts.Authenticate(ctx, "guest@example.com", "s3cretpass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("old password error = %v, want %v", err, ErrInvalidCredentials)
	}
	if len(rv.users) != 1 || rv.users[0] != a.ID {
		t.Errorf("revoked = %v, want [%d]", rv.users, a.ID)
	}
}

// memAttachments keeps one attachment per account.
type memAttachments struct {
	store *memStore
	byID  map[uint64]*model.Attachment
}

func (m *memAttachments) Replace(_ context.Context, a *model.Attachment) (string, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	old := ""
	for id, x := range m.byID {
		if x.UserID == a.UserID {
			old = x.BlobKey
			delete(m.byID, id)
		}
	}
	a.ID = m.store.id()
	cp := *a
	m.byID[a.ID] = &cp
	m.store.accounts[a.UserID].Verified = false
	return old, nil
}

func (m *memAttachments) GetByUser(_ context.Context, userID uint64) (*model.Attachment, error) {
	for _, x := range m.byID {
		if x.UserID == userID {
			cp := *x
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memAttachments) GetByID(_ context.Context, id uint64) (*model.Attachment, error) {
	x, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *x
	return &cp, nil
}

func (m *memAttachments) List(context.Context, *bool) ([]repository.AttachmentView, error) {
	out := []repository.AttachmentView{}
	for _, x := range m.byID {
		out = append(out, repository.AttachmentView{Attachment: *x})
	}
	return out, nil
}

func (m *memAttachments) Verify(_ context.Context, id uint64) (uint64, error) {
	x, ok := m.byID[id]
	if !ok {
		return 0, ErrNotFound
	}
	x.IsVerified = true
	m.store.accounts[x.UserID].Verified = true
	return x.UserID, nil
}

func TestAttachmentVerificationPublishesListings(t *testing.T) {
	f := newFixture()
	f.accounts.Attachments = &memAttachments{store: f.store, byID: map[uint64]*model.Attachment{}}
	ctx := context.Background()
	owner := f.store.addAccount(model.RoleOwner, false)
	admin := f.store.addAccount(model.RoleAdmin, true)
	agg, err := f.listings.Create(ctx, owner, model.KindLodging, lodgingInput("100"), nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if page, _ := f.listings.Filter(ctx, Query{Kind: model.KindLodging}); page.Total != 0 {
		t.Fatalf("unverified owner's listing is visible")
	}

	doc := Upload{Filename: "id.pdf", ContentType: "application/pdf", Size: 4, Body: strings.NewReader("%PDF")}
	var ve *ValidationError
	if _, err := f.accounts.UploadAttachment(ctx, owner, AttachmentInput{AttachmentType: "nida", NIDANumber: "123"}, doc); !errors.As(err, &ve) {
		t.Errorf("bad NIDA error = %v, want ValidationError", err)
	}
	exe := Upload{Filename: "id.exe", ContentType: "application/octet-stream", Size: 1, Body: strings.NewReader("x")}
	if _, err := f.accounts.UploadAttachment(ctx, owner, AttachmentInput{AttachmentType: "passport"}, exe); !errors.As(err, &ve) {
		t.Errorf("executable upload error = %v, want ValidationError", err)
	}

	first, err := f.accounts.UploadAttachment(ctx, owner, AttachmentInput{AttachmentType: "passport"}, doc)
	if err != nil {
		t.Fatalf("UploadAttachment: %v", err)
	}
	doc.Body = strings.NewReader("%PDF")
	att, err := f.accounts.UploadAttachment(ctx, owner, AttachmentInput{AttachmentType: "nida", NIDANumber: "19900101123456789012"}, doc)
	if err != nil {
		t.Fatalf("replace attachment: %v", err)
	}
	if f.blobs.len() != 1 || first.BlobKey == att.BlobKey {
		t.Errorf("replaced document blob not removed: %d blobs", f.blobs.len())
	}

	if _, err := f.accounts.VerifyAttachment(ctx, owner, att.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("owner verify error = %v, want %v", err, ErrForbidden)
	}
	if _, err := f.accounts.ListAttachments(ctx, owner, nil); !errors.Is(err, ErrForbidden) {
		t.Errorf("owner list error = %v, want %v", err, ErrForbidden)
	}
	got, err := f.accounts.VerifyAttachment(ctx, admin, att.ID)
	if err != nil {
		t.Fatalf("VerifyAttachment: %v", err)
	}
	if !got.IsVerified {
		t.Errorf("attachment not marked verified")
	}
	if _, _, err := f.listings.PublicDetail(ctx, model.KindLodging, agg.Listing.ID); err != nil {
		t.Errorf("listing not visible after verification: %v", err)
	}
}
