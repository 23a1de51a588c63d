package service

import (
	"math"
	"time"

	"github.com/iliyamo/rental-booking/internal/model"
)

// Stay is the priced result of a date range against a rate card.
type Stay struct {
	Nights             int
	PricePerNightCents int64
	TotalCents         int64
	Currency           string
}

// ComputeStay prices the nights between checkIn and checkOut at the base
// rate.  Only calendar dates count; clock times are ignored.  Discounts,
// cleaning fee and tax are informational and not applied.
func ComputeStay(p model.Pricing, checkIn, checkOut time.Time) (Stay, error) {
	nights := model.DayNumber(checkOut) - model.DayNumber(checkIn)
	if nights <= 0 {
		return Stay{}, ErrInvalidDateRange
	}
	if p.BaseRateCents < 0 || nights > math.MaxInt32 {
		return Stay{}, ErrInvalidDateRange
	}
	if p.BaseRateCents > 0 && nights > math.MaxInt64/p.BaseRateCents {
		return Stay{}, ErrInvalidDateRange
	}
	currency := p.Currency
	if currency == "" {
		currency = model.DefaultCurrency
	}
	return Stay{
		Nights:             int(nights),
		PricePerNightCents: p.BaseRateCents,
		TotalCents:         nights * p.BaseRateCents,
		Currency:           currency,
	}, nil
}
