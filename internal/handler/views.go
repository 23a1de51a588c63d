package handler

import (
	"time"

	"github.com/iliyamo/rental-booking/internal/model"
	"github.com/iliyamo/rental-booking/internal/repository"
	"github.com/iliyamo/rental-booking/internal/service"
)

// Response shapes.  Money goes out both as integer minor units and as a
// formatted decimal string; dates go out as YYYY-MM-DD.

type pricingView struct {
	*model.Pricing
	BaseRate        string  `json:"base_rate"`
	CleaningFee     *string `json:"cleaning_fee,omitempty"`
	WeeklyDiscount  *string `json:"weekly_discount,omitempty"`
	MonthlyDiscount *string `json:"monthly_discount,omitempty"`
	Tax             *string `json:"tax,omitempty"`
	AvailableFrom   *string `json:"available_from,omitempty"`
	AvailableTo     *string `json:"available_to,omitempty"`
}

func newPricingView(p *model.Pricing) *pricingView {
	if p == nil {
		return nil
	}
	return &pricingView{
		Pricing:         p,
		BaseRate:        model.FormatAmount(p.BaseRateCents),
		CleaningFee:     formatOpt(p.CleaningFeeCents),
		WeeklyDiscount:  formatOpt(p.WeeklyDiscountBps),
		MonthlyDiscount: formatOpt(p.MonthlyDiscountBps),
		Tax:             formatOpt(p.TaxBps),
		AvailableFrom:   dateOpt(p.AvailableFrom),
		AvailableTo:     dateOpt(p.AvailableTo),
	}
}

func formatOpt(v *int64) *string {
	if v == nil {
		return nil
	}
	s := model.FormatAmount(*v)
	return &s
}

func dateOpt(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(model.DateLayout)
	return &s
}

type aggregateView struct {
	*model.Aggregate
	Pricing *pricingView `json:"pricing,omitempty"`
	Owner   *ownerView   `json:"owner,omitempty"`
}

// ownerView is the public face of a listing owner.
type ownerView struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Verified    bool   `json:"verified"`
}

func newAggregateView(agg *model.Aggregate, owner *model.Account) aggregateView {
	v := aggregateView{Aggregate: agg, Pricing: newPricingView(agg.Pricing)}
	if owner != nil {
		v.Owner = &ownerView{ID: owner.ID, Name: owner.FullName(), PhoneNumber: owner.PhoneNumber, Verified: owner.Verified}
	}
	return v
}

type listingRowView struct {
	repository.ListingRow
	BaseRate *string `json:"base_rate,omitempty"`
}

func newListingRows(rows []repository.ListingRow) []listingRowView {
	out := make([]listingRowView, 0, len(rows))
	for _, r := range rows {
		out = append(out, listingRowView{ListingRow: r, BaseRate: formatOpt(r.BaseRateCents)})
	}
	return out
}

type pageView struct {
	Items    []listingRowView `json:"items"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

func newPageView(p *service.Page) pageView {
	return pageView{Items: newListingRows(p.Items), Total: p.Total, Page: p.Page, PageSize: p.PageSize}
}

type bookingView struct {
	model.BookingView
	CheckIn       string `json:"check_in"`
	CheckOut      string `json:"check_out"`
	PricePerNight string `json:"price_per_night"`
	TotalPrice    string `json:"total_price"`
}

func newBookingView(v *model.BookingView) bookingView {
	return bookingView{
		BookingView:   *v,
		CheckIn:       v.CheckIn.Format(model.DateLayout),
		CheckOut:      v.CheckOut.Format(model.DateLayout),
		PricePerNight: model.FormatAmount(v.PricePerNightCents),
		TotalPrice:    model.FormatAmount(v.TotalPriceCents),
	}
}

func newBookingViews(vs []model.BookingView) []bookingView {
	out := make([]bookingView, 0, len(vs))
	for i := range vs {
		out = append(out, newBookingView(&vs[i]))
	}
	return out
}

type bookingFormView struct {
	*service.BookingForm
	Pricing *pricingView `json:"pricing"`
}
