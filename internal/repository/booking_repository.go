package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/rental-booking/internal/model"
)

const bookingColumns = `b.id, b.customer_id, b.listing_id, b.room_type, b.check_in, b.check_out,
	b.guests, b.nights, b.price_per_night_cents, b.total_price_cents, b.currency, b.status,
	b.created_at, b.updated_at`

const bookingViewSelect = "SELECT " + bookingColumns + `,
		l.name AS listing_name, l.owner_id, u.email AS customer_email
	FROM bookings b
	JOIN listings l ON l.id = b.listing_id
	JOIN users u ON u.id = b.customer_id`

// BookingRepo stores bookings.  Inserts go through InsertIfAvailable so
// that the capacity check and the insert happen under one row lock.
type BookingRepo struct{ db *sqlx.DB }

func NewBookingRepo(db *sqlx.DB) *BookingRepo { return &BookingRepo{db: db} }

// InsertIfAvailable inserts b when fewer than capacity active bookings
// overlap its [check_in, check_out) range.  The listing row is locked for
// the duration of the transaction so concurrent inserts for the same
// listing are serialized.  ErrNotFound is returned when the listing is
// gone and ErrNoCapacity when it is fully booked.
func (r *BookingRepo) InsertIfAvailable(ctx context.Context, b *model.Booking, capacity int) (err error) {
	if capacity < 1 {
		capacity = 1
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var locked uint64
	if err = tx.GetContext(ctx, &locked, "SELECT id FROM listings WHERE id = ? FOR UPDATE", b.ListingID); err != nil {
		return notFound(err)
	}

	in := b.CheckIn.Format(model.DateLayout)
	out := b.CheckOut.Format(model.DateLayout)
	var overlapping int
	if err = tx.GetContext(ctx, &overlapping,
		`SELECT COUNT(*) FROM bookings
		 WHERE listing_id = ? AND status IN ('pending','confirmed')
		   AND check_in < ? AND check_out > ?`,
		b.ListingID, out, in); err != nil {
		return err
	}
	if overlapping >= capacity {
		return ErrNoCapacity
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO bookings (customer_id, listing_id, room_type, check_in, check_out, guests, nights,
			price_per_night_cents, total_price_cents, currency, status)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		b.CustomerID, b.ListingID, b.RoomType, in, out, b.Guests, b.Nights,
		b.PricePerNightCents, b.TotalPriceCents, b.Currency, b.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	if err = tx.GetContext(ctx, b, "SELECT "+bookingColumns+" FROM bookings b WHERE b.id = ?", b.ID); err != nil {
		return err
	}
	return tx.Commit()
}

// GetView returns a booking joined with its listing and customer.
func (r *BookingRepo) GetView(ctx context.Context, id uint64) (*model.BookingView, error) {
	var v model.BookingView
	if err := r.db.GetContext(ctx, &v, bookingViewSelect+" WHERE b.id = ?", id); err != nil {
		return nil, notFound(err)
	}
	return &v, nil
}

// UpdateStatus moves a booking from one status to another.  The update
// only applies while the stored status still equals from; otherwise
// ErrConflict is returned and the row is left untouched.
func (r *BookingRepo) UpdateStatus(ctx context.Context, id uint64, from, to model.BookingStatus) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE bookings SET status = ? WHERE id = ? AND status = ?", to, id, from)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// ListByCustomer returns the customer's bookings, newest first.
func (r *BookingRepo) ListByCustomer(ctx context.Context, customerID uint64) ([]model.BookingView, error) {
	out := []model.BookingView{}
	err := r.db.SelectContext(ctx, &out,
		bookingViewSelect+" WHERE b.customer_id = ? ORDER BY b.created_at DESC, b.id DESC", customerID)
	return out, err
}

// ListByOwner returns bookings made on the owner's listings, newest first.
func (r *BookingRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.BookingView, error) {
	out := []model.BookingView{}
	err := r.db.SelectContext(ctx, &out,
		bookingViewSelect+" WHERE l.owner_id = ? ORDER BY b.created_at DESC, b.id DESC", ownerID)
	return out, err
}

// CountByOwner groups bookings on the owner's listings by status.
func (r *BookingRepo) CountByOwner(ctx context.Context, ownerID uint64) (map[model.BookingStatus]int, error) {
	var rows []struct {
		Status model.BookingStatus `db:"status"`
		N      int                 `db:"n"`
	}
	if err := r.db.SelectContext(ctx, &rows,
		`SELECT b.status, COUNT(*) AS n FROM bookings b
		 JOIN listings l ON l.id = b.listing_id
		 WHERE l.owner_id = ? GROUP BY b.status`, ownerID); err != nil {
		return nil, err
	}
	out := make(map[model.BookingStatus]int, len(rows))
	for _, row := range rows {
		out[row.Status] = row.N
	}
	return out, nil
}
