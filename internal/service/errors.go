// Package service implements listing, booking and account operations on
// top of the repositories.  Every operation takes the caller's identity
// explicitly; nothing here reads HTTP request state.
package service

import (
	"errors"
	"sort"
	"strings"

	"github.com/iliyamo/rental-booking/internal/repository"
)

var (
	ErrInvalidDateRange    = errors.New("check-out must be after check-in")
	ErrStayLength          = errors.New("stay length outside the listing's minimum and maximum nights")
	ErrOutsideAvailability = errors.New("requested dates are outside the listing's availability")
	ErrRoomTypeUnavailable = errors.New("room type not offered by this listing")
	ErrInvalidStatus       = errors.New("invalid status")
	ErrInvalidTransition   = errors.New("status change not allowed")
	ErrDateRangeConflict   = errors.New("listing is fully booked for the requested dates")
	ErrNotBookable         = errors.New("listing does not accept bookings")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInactiveAccount     = errors.New("account disabled")

	// Repository errors are re-exported so callers of this package need
	// not import repository.
	ErrNotFound    = repository.ErrNotFound
	ErrForbidden   = repository.ErrForbidden
	ErrConflict    = repository.ErrConflict
	ErrEmailExists = repository.ErrEmailExists
)

// ValidationError carries one message per offending field, keyed by the
// field's JSON name (prefixed with its group, e.g. "pricing.base_rate").
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// fieldErrors collects messages before turning them into a ValidationError.
type fieldErrors map[string]string

func (f fieldErrors) add(field, msg string) {
	if _, ok := f[field]; !ok {
		f[field] = msg
	}
}

func (f fieldErrors) merge(prefix string, err error) error {
	if err == nil {
		return nil
	}
	var ve *ValidationError
	if !errors.As(err, &ve) {
		return err
	}
	for k, v := range ve.Fields {
		if prefix != "" {
			k = prefix + "." + k
		}
		f.add(k, v)
	}
	return nil
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: f}
}
