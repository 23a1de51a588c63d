package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rental-booking/internal/service"
)

// BookingHandler serves booking creation, status changes and the customer
// and owner booking lists.
type BookingHandler struct {
	Bookings *service.BookingService
}

func NewBookingHandler(s *service.BookingService) *BookingHandler {
	if s == nil {
		panic("nil booking service passed to NewBookingHandler")
	}
	return &BookingHandler{Bookings: s}
}

// Form returns what the booking form of a lodging listing needs.
func (h *BookingHandler) Form(c echo.Context) error {
	listingID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	f, err := h.Bookings.Form(c.Request().Context(), listingID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, bookingFormView{BookingForm: f, Pricing: newPricingView(f.Pricing)})
}

// Create books the listing for the caller.  The body is JSON or a form
// with room_type, check_in, check_out and guests.
func (h *BookingHandler) Create(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	listingID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req service.BookingRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	v, err := h.Bookings.Create(c.Request().Context(), id, listingID, req)
	if err != nil {
		return respondError(c, err)
	}
	c.Response().Header().Set(echo.HeaderLocation, c.Echo().Reverse("booking-success", v.ID))
	return c.JSON(http.StatusCreated, newBookingView(v))
}

// Mine lists the caller's bookings.
func (h *BookingHandler) Mine(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	vs, err := h.Bookings.ListForCustomer(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": newBookingViews(vs)})
}

// Success shows one of the caller's bookings after it was placed.
func (h *BookingHandler) Success(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	bookingID, ok := pathID(c, "booking_id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	v, err := h.Bookings.GetForCustomer(c.Request().Context(), id, bookingID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, newBookingView(v))
}

// Get returns a booking to its customer, the listing owner or an admin.
func (h *BookingHandler) Get(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	bookingID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	v, err := h.Bookings.Get(c.Request().Context(), id, bookingID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, newBookingView(v))
}

// UpdateStatus moves a booking to the status named in the body.
func (h *BookingHandler) UpdateStatus(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	bookingID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req statusReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	v, err := h.Bookings.SetStatus(c.Request().Context(), id, bookingID, req.Status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, newBookingView(v))
}

// OwnerList lists bookings made on the caller's listings.
func (h *BookingHandler) OwnerList(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	vs, err := h.Bookings.ListForOwner(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": newBookingViews(vs)})
}

// OwnerGet returns one booking made on the caller's listings.
func (h *BookingHandler) OwnerGet(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	bookingID, ok := pathID(c, "booking_id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	v, err := h.Bookings.GetForOwner(c.Request().Context(), id, bookingID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, newBookingView(v))
}
