package service

import "github.com/iliyamo/rental-booking/internal/model"

// Visible reports whether a listing is shown to the public: its owner's
// account is verified and the listing is open.  The same rule applies to
// every listing kind; repository.VisibleSQL is its SQL form.
func Visible(l model.Listing, owner model.Account) bool {
	return owner.Verified && l.Status == model.ListingOpen
}
