package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rental-booking/internal/service"
)

// ListingHandler serves the owner side of listings.  Handlers that take a
// kind are registered once per kind (lodging, residence, vehicle).
type ListingHandler struct {
	Listings *service.ListingService
}

func NewListingHandler(s *service.ListingService) *ListingHandler {
	if s == nil {
		panic("nil listing service passed to NewListingHandler")
	}
	return &ListingHandler{Listings: s}
}

type statusReq struct {
	Status string `json:"status" form:"status"`
}

// Create adds a listing of kind from a JSON or multipart body.
func (h *ListingHandler) Create(kind string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := caller(c)
		if err != nil {
			return err
		}
		in, photos, open, err := bindListingForm(c)
		defer open.Close()
		if err != nil {
			return respondError(c, err)
		}
		agg, err := h.Listings.Create(c.Request().Context(), id, kind, in, photos)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusCreated, newAggregateView(agg, nil))
	}
}

// Mine lists the caller's listings of kind.
func (h *ListingHandler) Mine(kind string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := caller(c)
		if err != nil {
			return err
		}
		rows, err := h.Listings.ListByOwner(c.Request().Context(), id, kind)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"items": newListingRows(rows)})
	}
}

// Get returns one of the caller's listings with every nested record.
func (h *ListingHandler) Get(kind string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := caller(c)
		if err != nil {
			return err
		}
		listingID, ok := pathID(c, "id")
		if !ok {
			return badRequest(c, "invalid id")
		}
		agg, err := h.Listings.Get(c.Request().Context(), id, listingID, kind)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, newAggregateView(agg, nil))
	}
}

// Delete removes one of the caller's listings together with its setup,
// pricing, legal texts, photos and bookings.
func (h *ListingHandler) Delete(kind string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := caller(c)
		if err != nil {
			return err
		}
		listingID, ok := pathID(c, "id")
		if !ok {
			return badRequest(c, "invalid id")
		}
		if err := h.Listings.Delete(c.Request().Context(), id, listingID, kind); err != nil {
			return respondError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

// SetStatus opens, holds or closes one of the caller's listings.  An empty
// kind accepts a listing of any kind.
func (h *ListingHandler) SetStatus(kind string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := caller(c)
		if err != nil {
			return err
		}
		listingID, ok := pathID(c, "id")
		if !ok {
			return badRequest(c, "invalid id")
		}
		var req statusReq
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid body")
		}
		status := strings.ToLower(strings.TrimSpace(req.Status))
		if err := h.Listings.SetStatus(c.Request().Context(), id, listingID, kind, status); err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"id": listingID, "status": status})
	}
}

// Dashboard summarizes the caller's listings and bookings.
func (h *ListingHandler) Dashboard(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	d, err := h.Listings.Dashboard(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"total_listings": d.TotalListings,
		"by_kind":        d.ByKind,
		"by_status":      d.ByStatus,
		"latest":         newListingRows(d.Latest),
		"bookings":       d.Bookings,
	})
}
