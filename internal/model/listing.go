package model

import (
	"time"

	"gorm.io/datatypes"
)

// Listing kinds.  Only lodging listings accept bookings.
const (
	KindLodging   = "lodging"
	KindResidence = "residence"
	KindVehicle   = "vehicle"
)

// Listing statuses.  Only open listings are shown publicly.
const (
	ListingOpen   = "open"
	ListingHold   = "hold"
	ListingClosed = "closed"
)

// Categories lists the accepted category values for each kind.
var Categories = map[string][]string{
	KindLodging:   {"hotel", "lodge", "guest_house", "tent_or_campsite"},
	KindResidence: {"apartment", "house", "frame"},
	KindVehicle:   {"shuffle", "moving_logistic", "piki_piki_bajaji"},
}

// ValidCategory reports whether category belongs to kind.
func ValidCategory(kind, category string) bool {
	for _, c := range Categories[kind] {
		if c == category {
			return true
		}
	}
	return false
}

// ValidListingStatus reports whether s is open, hold or closed.
func ValidListingStatus(s string) bool {
	return s == ListingOpen || s == ListingHold || s == ListingClosed
}

// StringList is a JSON array column.
type StringList = datatypes.JSONSlice[string]

// Details holds the kind-specific attributes of a listing, stored as a
// JSON document in listings.details.  Lodging uses LanguagesSpoken,
// residences the building fields and vehicles the registration fields.
type Details struct {
	LanguagesSpoken []string `json:"languages_spoken,omitempty"`

	YearBuilt         *int   `json:"year_built,omitempty"`
	Floors            *int   `json:"floors,omitempty"`
	Furnished         bool   `json:"furnished,omitempty"`
	ParkingSpaces     *int   `json:"parking_spaces,omitempty"`
	ElectricityType   string `json:"electricity_type,omitempty"`
	WaterSupply       string `json:"water_supply,omitempty"`
	InternetAvailable bool   `json:"internet_available,omitempty"`
	HasCCTV           bool   `json:"has_cctv,omitempty"`
	HasSecurityGuard  bool   `json:"has_security_guard,omitempty"`
	FencedCompound    bool   `json:"fenced_compound,omitempty"`

	RegistrationNumber    string `json:"registration_number,omitempty"`
	Manufacturer          string `json:"manufacturer,omitempty"`
	ModelYear             *int   `json:"model_year,omitempty"`
	Color                 string `json:"color,omitempty"`
	Seats                 *int   `json:"seats,omitempty"`
	AirConditioning       bool   `json:"air_conditioning,omitempty"`
	AutomaticTransmission bool   `json:"automatic_transmission,omitempty"`
	FuelType              string `json:"fuel_type,omitempty"`
	MileageKm             *int   `json:"mileage_km,omitempty"`
}

// ListingDetails is the JSON column type of Listing.Details.  Use
// Data() to read and datatypes.NewJSONType to build one.
type ListingDetails = datatypes.JSONType[Details]

// Listing is the parent record of a listing aggregate.  It belongs to
// exactly one owner account.
//
// Fields:
//  ID          – primary key identifier.
//  OwnerID     – account owning the listing.
//  Kind        – lodging, residence or vehicle.
//  Category    – kind-specific type (hotel, apartment, shuffle, ...).
//  Name        – display name.
//  Description – optional long description.
//  Address     – street address or pickup point.
//  District    – district.
//  Region      – region, matched exactly by filters.
//  Country     – defaults to Tanzania.
//  PostalCode  – optional postal code.
//  PhoneNumber – optional contact number.
//  SizeSqm     – optional floor area.
//  Status      – open, hold or closed.
//  Details     – kind-specific attributes.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Listing struct {
	ID          uint64         `db:"id" json:"id"`
	OwnerID     uint64         `db:"owner_id" json:"owner_id"`
	Kind        string         `db:"kind" json:"kind"`
	Category    string         `db:"category" json:"category"`
	Name        string         `db:"name" json:"name"`
	Description string         `db:"description" json:"description"`
	Address     string         `db:"address" json:"address"`
	District    string         `db:"district" json:"district"`
	Region      string         `db:"region" json:"region"`
	Country     string         `db:"country" json:"country"`
	PostalCode  string         `db:"postal_code" json:"postal_code"`
	PhoneNumber string         `db:"phone_number" json:"phone_number"`
	SizeSqm     *int           `db:"size_sqm" json:"size_sqm,omitempty"`
	Status      string         `db:"status" json:"status"`
	Details     ListingDetails `db:"details" json:"details"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// Setup describes rooms, beds and features.  One row per listing.
type Setup struct {
	ListingID             uint64     `db:"listing_id" json:"-"`
	NumberOfRooms         int        `db:"number_of_rooms" json:"number_of_rooms"`
	BedsPerRoom           int        `db:"beds_per_room" json:"beds_per_room"`
	MaxGuestsPerRoom      int        `db:"max_guests_per_room" json:"max_guests_per_room"`
	TotalBeds             int        `db:"total_beds" json:"total_beds"`
	NumberOfBathrooms     int        `db:"number_of_bathrooms" json:"number_of_bathrooms"`
	HasKitchen            bool       `db:"has_kitchen" json:"has_kitchen"`
	HasLivingRoom         bool       `db:"has_living_room" json:"has_living_room"`
	Amenities             StringList `db:"amenities" json:"amenities"`
	RoomTypes             StringList `db:"room_types" json:"room_types"`
	AccessibilityFeatures StringList `db:"accessibility_features" json:"accessibility_features"`
	Features              StringList `db:"features" json:"features"`
}

// GuestsPerBooking is the most guests a single booking may bring, or 0
// when the setup does not say.  A booking holds one room.
func (s Setup) GuestsPerBooking() int {
	if s.MaxGuestsPerRoom <= 0 {
		return 0
	}
	return s.MaxGuestsPerRoom
}

// Pricing holds the rate card of a listing.  Amounts are integer minor
// units of Currency; percentages are basis points (1000 = 10.00%).
// AvailableFrom/AvailableTo bound the bookable dates of lodging.
type Pricing struct {
	ListingID          uint64     `db:"listing_id" json:"-"`
	BaseRateCents      int64      `db:"base_rate_cents" json:"base_rate_cents"`
	Currency           string     `db:"currency" json:"currency"`
	WeeklyDiscountBps  *int64     `db:"weekly_discount_bps" json:"weekly_discount_bps,omitempty"`
	MonthlyDiscountBps *int64     `db:"monthly_discount_bps" json:"monthly_discount_bps,omitempty"`
	CleaningFeeCents   *int64     `db:"cleaning_fee_cents" json:"cleaning_fee_cents,omitempty"`
	TaxBps             *int64     `db:"tax_bps" json:"tax_bps,omitempty"`
	AvailableFrom      *time.Time `db:"available_from" json:"available_from,omitempty"`
	AvailableTo        *time.Time `db:"available_to" json:"available_to,omitempty"`
	MinStayNights      int        `db:"min_stay_nights" json:"min_stay_nights"`
	MaxStayNights      *int       `db:"max_stay_nights" json:"max_stay_nights,omitempty"`
}

// Legal collects the policy texts of a listing.
type Legal struct {
	ListingID          uint64 `db:"listing_id" json:"-"`
	TermsAndConditions string `db:"terms_and_conditions" json:"terms_and_conditions"`
	HouseRules         string `db:"house_rules" json:"house_rules"`
	CancellationPolicy string `db:"cancellation_policy" json:"cancellation_policy"`
	CheckInPolicy      string `db:"check_in_policy" json:"check_in_policy"`
	SmokingPolicy      string `db:"smoking_policy" json:"smoking_policy"`
	PetPolicy          string `db:"pet_policy" json:"pet_policy"`
	RentalPolicy       string `db:"rental_policy" json:"rental_policy"`
	DepositPolicy      string `db:"deposit_policy" json:"deposit_policy"`
	RefundRules        string `db:"refund_rules" json:"refund_rules"`
	InsuranceDetails   string `db:"insurance_details" json:"insurance_details"`
}

// Photo links a stored image to a listing.
type Photo struct {
	ID          uint64    `db:"id" json:"id"`
	ListingID   uint64    `db:"listing_id" json:"listing_id"`
	BlobKey     string    `db:"blob_key" json:"-"`
	ContentType string    `db:"content_type" json:"content_type"`
	SizeBytes   int64     `db:"size_bytes" json:"size_bytes"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Aggregate is a listing together with its nested records.  Setup,
// Pricing and Legal are nil when the row is missing.
type Aggregate struct {
	Listing Listing  `json:"listing"`
	Setup   *Setup   `json:"setup,omitempty"`
	Pricing *Pricing `json:"pricing,omitempty"`
	Legal   *Legal   `json:"legal,omitempty"`
	Photos  []Photo  `json:"photos"`
}
