package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rental-booking/internal/service"
)

// AccountHandler serves identity document upload and the admin review
// endpoints.
type AccountHandler struct {
	Accounts *service.AccountService
}

func NewAccountHandler(s *service.AccountService) *AccountHandler {
	if s == nil {
		panic("nil account service passed to NewAccountHandler")
	}
	return &AccountHandler{Accounts: s}
}

// UploadAttachment accepts a multipart form with attachment_type,
// nida_number and a document file.
func (h *AccountHandler) UploadAttachment(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	in := service.AttachmentInput{
		AttachmentType: c.FormValue("attachment_type"),
		NIDANumber:     c.FormValue("nida_number"),
	}
	var doc service.Upload
	if fh, err := c.FormFile("document"); err == nil {
		u, cl, err := openUpload(fh)
		if err != nil {
			return respondError(c, err)
		}
		defer cl.Close()
		doc = u
	}
	a, err := h.Accounts.UploadAttachment(c.Request().Context(), id, in, doc)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, a)
}

// MyAttachment returns the caller's identity document record.
func (h *AccountHandler) MyAttachment(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	a, err := h.Accounts.MyAttachment(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

// ListAttachments is the admin review queue; ?verified=true|false filters.
func (h *AccountHandler) ListAttachments(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	var verified *bool
	if raw := c.QueryParam("verified"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return badRequest(c, "verified must be true or false")
		}
		verified = &b
	}
	items, err := h.Accounts.ListAttachments(c.Request().Context(), id, verified)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// VerifyAttachment approves a document and verifies its account.
func (h *AccountHandler) VerifyAttachment(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	attID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	a, err := h.Accounts.VerifyAttachment(c.Request().Context(), id, attID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

// ListAccounts lists accounts, optionally ?role=OWNER.
func (h *AccountHandler) ListAccounts(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	items, err := h.Accounts.ListAccounts(c.Request().Context(), id, c.QueryParam("role"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
