package model

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// DefaultCurrency is used when a pricing record does not name one.
const DefaultCurrency = "TZS"

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

var errAmount = errors.New("invalid amount")

// ParseAmount converts a decimal string with at most two fraction digits
// ("50000", "50000.5", "1,250.75") into integer hundredths.  It is used
// for both money (minor units) and percentages (basis points).
func ParseAmount(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return 0, errAmount
	}
	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if hasFrac && (frac == "" || len(frac) > 2) {
		return 0, errAmount
	}
	for len(frac) < 2 {
		frac += "0"
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, errAmount
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, errAmount
	}
	if w > (1<<63-1-f)/100 {
		return 0, errAmount
	}
	return w*100 + f, nil
}

// FormatAmount renders integer hundredths as a decimal string with two
// fraction digits.
func FormatAmount(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	frac := strconv.FormatInt(v%100, 10)
	if len(frac) == 1 {
		frac = "0" + frac
	}
	return sign + strconv.FormatInt(v/100, 10) + "." + frac
}

// ParseDate parses a YYYY-MM-DD calendar date at UTC midnight.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
}

// DayNumber returns the number of whole days since the Unix epoch for the
// calendar date of t, ignoring its clock time.
func DayNumber(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}
