package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rental-booking/internal/model"
)

// IdentityFrom returns the caller set by JWTAuth.  ok is false on routes
// that did not run JWTAuth.
func IdentityFrom(c echo.Context) (model.Identity, bool) {
	uid, _ := c.Get(KeyUserID).(uint64)
	role, _ := c.Get(KeyRole).(string)
	if uid == 0 || role == "" {
		return model.Identity{}, false
	}
	return model.Identity{UserID: uid, Role: role}, true
}

// userID returns the authenticated account id as a string, or "guest".
// It is used to partition rate limit buckets.
func userID(c echo.Context) string {
	if id, ok := IdentityFrom(c); ok {
		return strconv.FormatUint(id.UserID, 10)
	}
	return "guest"
}
