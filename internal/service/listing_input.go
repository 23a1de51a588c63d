package service

import (
	"bytes"
	"encoding/json"
	"strings"

	"gorm.io/datatypes"

	"github.com/iliyamo/rental-booking/internal/model"
)

// Amount is a decimal string such as "50000.00".  JSON numbers are
// accepted as well and kept in their literal form.
type Amount string

func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*a = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*a = Amount(n.String())
	return nil
}

// ListingInput is the common part of a listing form.
type ListingInput struct {
	Name        string        `json:"name" validate:"required,max=255"`
	Category    string        `json:"category" validate:"required,max=50"`
	Description string        `json:"description" validate:"max=5000"`
	Address     string        `json:"address" validate:"required,max=255"`
	District    string        `json:"district" validate:"required,max=100"`
	Region      string        `json:"region" validate:"required,max=50"`
	Country     string        `json:"country" validate:"max=50"`
	PostalCode  string        `json:"postal_code" validate:"max=20"`
	PhoneNumber string        `json:"phone_number" validate:"omitempty,tzphone"`
	SizeSqm     *int          `json:"size_sqm" validate:"omitempty,gte=1"`
	Status      string        `json:"status" validate:"omitempty,oneof=open hold closed"`
	Details     model.Details `json:"details"`
}

// SetupInput describes rooms and amenities.  Zero NumberOfRooms means one.
type SetupInput struct {
	NumberOfRooms         int      `json:"number_of_rooms" validate:"gte=0,lte=1000"`
	BedsPerRoom           int      `json:"beds_per_room" validate:"gte=0,lte=50"`
	MaxGuestsPerRoom      int      `json:"max_guests_per_room" validate:"gte=0,lte=50"`
	TotalBeds             *int     `json:"total_beds" validate:"omitempty,gte=0"`
	NumberOfBathrooms     int      `json:"number_of_bathrooms" validate:"gte=0,lte=100"`
	HasKitchen            bool     `json:"has_kitchen"`
	HasLivingRoom         bool     `json:"has_living_room"`
	Amenities             []string `json:"amenities" validate:"max=50,dive,required,max=100"`
	RoomTypes             []string `json:"room_types" validate:"max=50,dive,required,max=100"`
	AccessibilityFeatures []string `json:"accessibility_features" validate:"max=50,dive,required,max=100"`
	Features              []string `json:"features" validate:"max=50,dive,required,max=100"`
}

// PricingInput carries money as decimal strings and percentages as
// decimal percents ("10" or "12.5").
type PricingInput struct {
	BaseRate        Amount `json:"base_rate" validate:"required,amount"`
	Currency        string `json:"currency" validate:"omitempty,len=3,alpha"`
	WeeklyDiscount  Amount `json:"weekly_discount" validate:"omitempty,amount"`
	MonthlyDiscount Amount `json:"monthly_discount" validate:"omitempty,amount"`
	CleaningFee     Amount `json:"cleaning_fee" validate:"omitempty,amount"`
	Tax             Amount `json:"tax" validate:"omitempty,amount"`
	AvailableFrom   string `json:"available_from" validate:"omitempty,date"`
	AvailableTo     string `json:"available_to" validate:"omitempty,date"`
	MinStayNights   int    `json:"min_stay_nights" validate:"gte=0,lte=365"`
	MaxStayNights   *int   `json:"max_stay_nights" validate:"omitempty,gte=1,lte=365"`
}

// LegalInput collects the policy texts.  All are optional.
type LegalInput struct {
	TermsAndConditions string `json:"terms_and_conditions" validate:"max=10000"`
	HouseRules         string `json:"house_rules" validate:"max=10000"`
	CancellationPolicy string `json:"cancellation_policy" validate:"max=10000"`
	CheckInPolicy      string `json:"check_in_policy" validate:"max=10000"`
	SmokingPolicy      string `json:"smoking_policy" validate:"max=10000"`
	PetPolicy          string `json:"pet_policy" validate:"max=10000"`
	RentalPolicy       string `json:"rental_policy" validate:"max=10000"`
	DepositPolicy      string `json:"deposit_policy" validate:"max=10000"`
	RefundRules        string `json:"refund_rules" validate:"max=10000"`
	InsuranceDetails   string `json:"insurance_details" validate:"max=10000"`
}

// CreateListingInput is the whole multi-step listing form.
type CreateListingInput struct {
	Listing ListingInput  `json:"listing"`
	Setup   *SetupInput   `json:"setup"`
	Pricing *PricingInput `json:"pricing"`
	Legal   *LegalInput   `json:"legal"`
}

// check validates every group and the rules that span fields or depend
// on the listing kind.  All problems are reported together.
func (in *CreateListingInput) check(v *Validator, kind, defaultCurrency string) (*model.Aggregate, error) {
	fe := fieldErrors{}
	if err := fe.merge("listing", v.Validate(&in.Listing)); err != nil {
		return nil, err
	}
	if in.Listing.Category != "" && !model.ValidCategory(kind, in.Listing.Category) {
		fe.add("listing.category", "must be one of: "+strings.Join(model.Categories[kind], " "))
	}
	if kind == model.KindVehicle && strings.TrimSpace(in.Listing.Details.RegistrationNumber) == "" {
		fe.add("listing.details.registration_number", "this field is required")
	}

	if in.Setup == nil {
		if kind != model.KindVehicle {
			fe.add("setup", "this field is required")
		}
	} else if err := fe.merge("setup", v.Validate(in.Setup)); err != nil {
		return nil, err
	}

	var pricing *model.Pricing
	if in.Pricing == nil {
		fe.add("pricing", "this field is required")
	} else {
		if err := fe.merge("pricing", v.Validate(in.Pricing)); err != nil {
			return nil, err
		}
		pricing = in.Pricing.build(fe, defaultCurrency)
	}

	if in.Legal != nil {
		if err := fe.merge("legal", v.Validate(in.Legal)); err != nil {
			return nil, err
		}
	}
	if err := fe.err(); err != nil {
		return nil, err
	}

	l := in.Listing
	if kind != model.KindLodging {
		l.Details.LanguagesSpoken = nil
	}
	agg := &model.Aggregate{
		Listing: model.Listing{
			Kind:        kind,
			Category:    l.Category,
			Name:        strings.TrimSpace(l.Name),
			Description: l.Description,
			Address:     l.Address,
			District:    l.District,
			Region:      l.Region,
			Country:     l.Country,
			PostalCode:  l.PostalCode,
			PhoneNumber: l.PhoneNumber,
			SizeSqm:     l.SizeSqm,
			Status:      l.Status,
			Details:     datatypes.NewJSONType(l.Details),
		},
		Pricing: pricing,
		Photos:  []model.Photo{},
	}
	if agg.Listing.Country == "" {
		agg.Listing.Country = "Tanzania"
	}
	if agg.Listing.Status == "" {
		agg.Listing.Status = model.ListingOpen
	}
	if s := in.Setup; s != nil {
		rooms := s.NumberOfRooms
		if rooms == 0 {
			rooms = 1
		}
		totalBeds := rooms * s.BedsPerRoom
		if s.TotalBeds != nil {
			totalBeds = *s.TotalBeds
		}
		agg.Setup = &model.Setup{
			NumberOfRooms:         rooms,
			BedsPerRoom:           s.BedsPerRoom,
			MaxGuestsPerRoom:      s.MaxGuestsPerRoom,
			TotalBeds:             totalBeds,
			NumberOfBathrooms:     s.NumberOfBathrooms,
			HasKitchen:            s.HasKitchen,
			HasLivingRoom:         s.HasLivingRoom,
			Amenities:             model.StringList(trimAll(s.Amenities)),
			RoomTypes:             model.StringList(trimAll(s.RoomTypes)),
			AccessibilityFeatures: model.StringList(trimAll(s.AccessibilityFeatures)),
			Features:              model.StringList(trimAll(s.Features)),
		}
	}
	legal := model.Legal{}
	if g := in.Legal; g != nil {
		legal = model.Legal{
			TermsAndConditions: g.TermsAndConditions,
			HouseRules:         g.HouseRules,
			CancellationPolicy: g.CancellationPolicy,
			CheckInPolicy:      g.CheckInPolicy,
			SmokingPolicy:      g.SmokingPolicy,
			PetPolicy:          g.PetPolicy,
			RentalPolicy:       g.RentalPolicy,
			DepositPolicy:      g.DepositPolicy,
			RefundRules:        g.RefundRules,
			InsuranceDetails:   g.InsuranceDetails,
		}
	}
	agg.Legal = &legal
	return agg, nil
}

// build converts validated pricing fields, adding cross-field errors to fe.
func (p *PricingInput) build(fe fieldErrors, defaultCurrency string) *model.Pricing {
	out := &model.Pricing{
		Currency:      strings.ToUpper(p.Currency),
		MinStayNights: p.MinStayNights,
		MaxStayNights: p.MaxStayNights,
	}
	if out.Currency == "" {
		out.Currency = defaultCurrency
	}
	if out.MinStayNights == 0 {
		out.MinStayNights = 1
	}
	if out.MaxStayNights != nil && *out.MaxStayNights < out.MinStayNights {
		fe.add("pricing.max_stay_nights", "must not be less than min_stay_nights")
	}

	out.BaseRateCents, _ = model.ParseAmount(string(p.BaseRate))
	if out.BaseRateCents <= 0 {
		fe.add("pricing.base_rate", "must be greater than zero")
	}
	out.WeeklyDiscountBps = optionalAmount(fe, "pricing.weekly_discount", p.WeeklyDiscount, 10000)
	out.MonthlyDiscountBps = optionalAmount(fe, "pricing.monthly_discount", p.MonthlyDiscount, 10000)
	out.TaxBps = optionalAmount(fe, "pricing.tax", p.Tax, 10000)
	out.CleaningFeeCents = optionalAmount(fe, "pricing.cleaning_fee", p.CleaningFee, 0)

	if p.AvailableFrom != "" {
		if t, err := model.ParseDate(p.AvailableFrom); err == nil {
			out.AvailableFrom = &t
		}
	}
	if p.AvailableTo != "" {
		if t, err := model.ParseDate(p.AvailableTo); err == nil {
			out.AvailableTo = &t
		}
	}
	if out.AvailableFrom != nil && out.AvailableTo != nil && out.AvailableTo.Before(*out.AvailableFrom) {
		fe.add("pricing.available_to", "must not be before available_from")
	}
	return out
}

// optionalAmount parses an optional decimal.  A positive limit caps the
// value, in hundredths.
func optionalAmount(fe fieldErrors, field string, a Amount, limit int64) *int64 {
	if a == "" {
		return nil
	}
	v, err := model.ParseAmount(string(a))
	if err != nil {
		return nil
	}
	if limit > 0 && v > limit {
		fe.add(field, "must be at most "+model.FormatAmount(limit))
	}
	return &v
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
