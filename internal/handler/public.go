// Package handler exposes the HTTP endpoints.  Public handlers in this
// file return only visible listings: the owner is verified and the
// listing is open.
package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rental-booking/internal/service"
)

// PublicHandler serves unauthenticated browse, detail and search.
type PublicHandler struct {
	Listings *service.ListingService
}

func NewPublicHandler(s *service.ListingService) *PublicHandler {
	if s == nil {
		panic("nil listing service passed to NewPublicHandler")
	}
	return &PublicHandler{Listings: s}
}

// Browse lists visible listings of kind.  The category comes from the
// path parameter categoryParam; typeQuery names the query parameter used
// as an additional type filter.
func (h *PublicHandler) Browse(kind, categoryParam, typeQuery string) echo.HandlerFunc {
	return func(c echo.Context) error {
		q := service.Query{
			Kind:       kind,
			TypeFilter: c.QueryParam(typeQuery),
			Region:     c.QueryParam("region"),
			Keyword:    c.QueryParam("keyword"),
			Page:       queryInt(c, "page"),
			PageSize:   queryInt(c, "page_size"),
		}
		if categoryParam != "" {
			q.Category = c.Param(categoryParam)
		}
		page, err := h.Listings.Filter(c.Request().Context(), q)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, newPageView(page))
	}
}

// Detail returns a visible listing of kind with its owner's public profile.
func (h *PublicHandler) Detail(kind string) echo.HandlerFunc {
	return func(c echo.Context) error {
		listingID, ok := pathID(c, "id")
		if !ok {
			return badRequest(c, "invalid id")
		}
		agg, owner, err := h.Listings.PublicDetail(c.Request().Context(), kind, listingID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, newAggregateView(agg, owner))
	}
}

// Search matches region and category across every kind.
func (h *PublicHandler) Search(c echo.Context) error {
	page, err := h.Listings.GlobalSearch(c.Request().Context(),
		c.QueryParam("region"), c.QueryParam("property_type"),
		queryInt(c, "page"), queryInt(c, "page_size"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, newPageView(page))
}

// CitySearch matches the city path parameter against district, region
// and country.
func (h *PublicHandler) CitySearch(c echo.Context) error {
	page, err := h.Listings.CitySearch(c.Request().Context(), c.Param("city"),
		queryInt(c, "page"), queryInt(c, "page_size"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, newPageView(page))
}

// Photo streams a photo of a visible listing.
func (h *PublicHandler) Photo(c echo.Context) error {
	photoID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	rc, ct, err := h.Listings.Photo(c.Request().Context(), photoID)
	if err != nil {
		return respondError(c, err)
	}
	defer rc.Close()
	c.Response().Header().Set("Cache-Control", "public, max-age=3600")
	return c.Stream(http.StatusOK, ct, rc)
}
