package repository

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/rental-booking/internal/model"
)

// VisibleSQL is the SQL form of the public visibility rule: the owner's
// account is verified and the listing is open.  Every public query joins
// users as u and listings as l and filters with it.
const VisibleSQL = "u.verified = 1 AND l.status = 'open'"

const listingColumns = `l.id, l.owner_id, l.kind, l.category, l.name, l.description, l.address,
	l.district, l.region, l.country, l.postal_code, l.phone_number, l.size_sqm, l.status,
	l.details, l.created_at, l.updated_at`

// ListingRepo stores listing aggregates: the listings row plus its setup,
// pricing, legal and photo rows.
type ListingRepo struct{ db *sqlx.DB }

func NewListingRepo(db *sqlx.DB) *ListingRepo { return &ListingRepo{db: db} }

// ListingQuery filters public listings.  Empty fields are ignored; the
// supplied ones are intersected.
type ListingQuery struct {
	Kinds      []string
	Category   string
	TypeFilter string
	Region     string
	Keyword    string
	City       string
	Page       int
	PageSize   int
}

// ListingRow is a listing as shown in browse results, with its nightly
// rate and the id of its first photo.
type ListingRow struct {
	model.Listing
	BaseRateCents *int64  `db:"base_rate_cents" json:"base_rate_cents,omitempty"`
	Currency      *string `db:"currency" json:"currency,omitempty"`
	CoverPhotoID  *uint64 `db:"cover_photo_id" json:"cover_photo_id,omitempty"`
}

// StatusCount is one bucket of a GROUP BY count.
type StatusCount struct {
	Kind   string `db:"kind" json:"kind"`
	Status string `db:"status" json:"status"`
	Count  int    `db:"n" json:"count"`
}

// CreateAggregate inserts the listing and every nested record in a single
// transaction and fills in the generated ids and timestamps.  Nothing is
// stored when any insert fails.
func (r *ListingRepo) CreateAggregate(ctx context.Context, agg *model.Aggregate) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.NamedExecContext(ctx,
		`INSERT INTO listings (owner_id, kind, category, name, description, address, district,
			region, country, postal_code, phone_number, size_sqm, status, details)
		 VALUES (:owner_id, :kind, :category, :name, :description, :address, :district,
			:region, :country, :postal_code, :phone_number, :size_sqm, :status, :details)`,
		&agg.Listing)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	agg.Listing.ID = uint64(id)

	if agg.Setup != nil {
		agg.Setup.ListingID = agg.Listing.ID
		if _, err = tx.NamedExecContext(ctx,
			`INSERT INTO listing_setups (listing_id, number_of_rooms, beds_per_room, max_guests_per_room,
				total_beds, number_of_bathrooms, has_kitchen, has_living_room, amenities, room_types,
				accessibility_features, features)
			 VALUES (:listing_id, :number_of_rooms, :beds_per_room, :max_guests_per_room,
				:total_beds, :number_of_bathrooms, :has_kitchen, :has_living_room, :amenities, :room_types,
				:accessibility_features, :features)`, agg.Setup); err != nil {
			return err
		}
	}
	if agg.Pricing != nil {
		agg.Pricing.ListingID = agg.Listing.ID
		if _, err = tx.NamedExecContext(ctx,
			`INSERT INTO listing_pricing (listing_id, base_rate_cents, currency, weekly_discount_bps,
				monthly_discount_bps, cleaning_fee_cents, tax_bps, available_from, available_to,
				min_stay_nights, max_stay_nights)
			 VALUES (:listing_id, :base_rate_cents, :currency, :weekly_discount_bps,
				:monthly_discount_bps, :cleaning_fee_cents, :tax_bps, :available_from, :available_to,
				:min_stay_nights, :max_stay_nights)`, agg.Pricing); err != nil {
			return err
		}
	}
	if agg.Legal != nil {
		agg.Legal.ListingID = agg.Listing.ID
		if _, err = tx.NamedExecContext(ctx,
			`INSERT INTO listing_legal (listing_id, terms_and_conditions, house_rules, cancellation_policy,
				check_in_policy, smoking_policy, pet_policy, rental_policy, deposit_policy, refund_rules,
				insurance_details)
			 VALUES (:listing_id, :terms_and_conditions, :house_rules, :cancellation_policy,
				:check_in_policy, :smoking_policy, :pet_policy, :rental_policy, :deposit_policy, :refund_rules,
				:insurance_details)`, agg.Legal); err != nil {
			return err
		}
	}
	for i := range agg.Photos {
		p := &agg.Photos[i]
		p.ListingID = agg.Listing.ID
		res, err = tx.NamedExecContext(ctx,
			`INSERT INTO listing_photos (listing_id, blob_key, content_type, size_bytes)
			 VALUES (:listing_id, :blob_key, :content_type, :size_bytes)`, p)
		if err != nil {
			return err
		}
		var pid int64
		if pid, err = res.LastInsertId(); err != nil {
			return err
		}
		p.ID = uint64(pid)
	}

	var ts struct {
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}
	if err = tx.GetContext(ctx, &ts, "SELECT created_at, updated_at FROM listings WHERE id = ?", agg.Listing.ID); err != nil {
		return err
	}
	agg.Listing.CreatedAt, agg.Listing.UpdatedAt = ts.CreatedAt, ts.UpdatedAt
	for i := range agg.Photos {
		agg.Photos[i].CreatedAt = ts.CreatedAt
	}
	return tx.Commit()
}

// GetAggregate loads a listing and its nested records regardless of
// visibility.  Missing nested rows are left nil.
func (r *ListingRepo) GetAggregate(ctx context.Context, id uint64) (*model.Aggregate, error) {
	agg := &model.Aggregate{Photos: []model.Photo{}}
	if err := r.db.GetContext(ctx, &agg.Listing, "SELECT "+listingColumns+" FROM listings l WHERE l.id = ?", id); err != nil {
		return nil, notFound(err)
	}

	var setup model.Setup
	switch err := notFound(r.db.GetContext(ctx, &setup, "SELECT * FROM listing_setups WHERE listing_id = ?", id)); err {
	case nil:
		agg.Setup = &setup
	case ErrNotFound:
	default:
		return nil, err
	}
	var pricing model.Pricing
	switch err := notFound(r.db.GetContext(ctx, &pricing, "SELECT * FROM listing_pricing WHERE listing_id = ?", id)); err {
	case nil:
		agg.Pricing = &pricing
	case ErrNotFound:
	default:
		return nil, err
	}
	var legal model.Legal
	switch err := notFound(r.db.GetContext(ctx, &legal, "SELECT * FROM listing_legal WHERE listing_id = ?", id)); err {
	case nil:
		agg.Legal = &legal
	case ErrNotFound:
	default:
		return nil, err
	}
	if err := r.db.SelectContext(ctx, &agg.Photos,
		"SELECT id, listing_id, blob_key, content_type, size_bytes, created_at FROM listing_photos WHERE listing_id = ? ORDER BY id",
		id); err != nil {
		return nil, err
	}
	return agg, nil
}

// ListByOwner returns the owner's listings of one kind, newest first.
// An empty kind lists every kind.
func (r *ListingRepo) ListByOwner(ctx context.Context, ownerID uint64, kind string) ([]ListingRow, error) {
	where := "l.owner_id = ?"
	args := []any{ownerID}
	if kind != "" {
		where += " AND l.kind = ?"
		args = append(args, kind)
	}
	out := []ListingRow{}
	err := r.db.SelectContext(ctx, &out, rowSelect+" WHERE "+where+" ORDER BY l.created_at DESC, l.id DESC", args...)
	return out, err
}

// Latest returns the owner's n most recent listings across all kinds.
func (r *ListingRepo) Latest(ctx context.Context, ownerID uint64, n int) ([]ListingRow, error) {
	out := []ListingRow{}
	err := r.db.SelectContext(ctx, &out,
		rowSelect+" WHERE l.owner_id = ? ORDER BY l.created_at DESC, l.id DESC LIMIT ?", ownerID, n)
	return out, err
}

const rowSelect = "SELECT " + listingColumns + `,
		p.base_rate_cents, p.currency,
		(SELECT MIN(ph.id) FROM listing_photos ph WHERE ph.listing_id = l.id) AS cover_photo_id
	FROM listings l
	JOIN users u ON u.id = l.owner_id
	LEFT JOIN listing_pricing p ON p.listing_id = l.id`

// Search returns one page of visible listings matching q, newest first,
// and the total number of matches.
func (r *ListingRepo) Search(ctx context.Context, q ListingQuery) ([]ListingRow, int64, error) {
	where := []string{VisibleSQL}
	args := []any{}

	if len(q.Kinds) > 0 {
		where = append(where, "l.kind IN (?"+strings.Repeat(",?", len(q.Kinds)-1)+")")
		for _, k := range q.Kinds {
			args = append(args, k)
		}
	}
	if q.Category != "" {
		where = append(where, "l.category = ?")
		args = append(args, q.Category)
	}
	if q.TypeFilter != "" {
		where = append(where, "l.category = ?")
		args = append(args, q.TypeFilter)
	}
	if q.Region != "" {
		where = append(where, "l.region = ?")
		args = append(args, q.Region)
	}
	if kw := strings.ToLower(strings.TrimSpace(q.Keyword)); kw != "" {
		like := "%" + escapeLike(kw) + "%"
		where = append(where, "(LOWER(l.name) LIKE ? OR LOWER(l.description) LIKE ? OR LOWER(l.address) LIKE ? OR LOWER(l.district) LIKE ?)")
		args = append(args, like, like, like, like)
	}
	if city := strings.ToLower(strings.TrimSpace(q.City)); city != "" {
		like := "%" + escapeLike(city) + "%"
		where = append(where, "(LOWER(l.district) LIKE ? OR LOWER(l.region) LIKE ? OR LOWER(l.country) LIKE ?)")
		args = append(args, like, like, like)
	}
	cond := strings.Join(where, " AND ")

	var total int64
	countSQL := `SELECT COUNT(*) FROM listings l JOIN users u ON u.id = l.owner_id WHERE ` + cond
	if err := r.db.GetContext(ctx, &total, countSQL, args...); err != nil {
		return nil, 0, err
	}

	out := []ListingRow{}
	if total == 0 {
		return out, 0, nil
	}
	limit := q.PageSize
	offset := (q.Page - 1) * q.PageSize
	dataSQL := rowSelect + " WHERE " + cond + " ORDER BY l.created_at DESC, l.id DESC LIMIT ? OFFSET ?"
	if err := r.db.SelectContext(ctx, &out, dataSQL, append(args, limit, offset)...); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// DeleteByIDAndOwner removes a listing and all dependent records (setup,
// pricing, legal, photos and bookings) provided it belongs to the
// specified owner.  A non-empty kind must match the listing's kind.  If
// the listing does not exist, ErrNotFound is returned; if it exists but
// is owned by a different user, ErrForbidden is returned and nothing is
// changed.  The blob keys of the removed photos are returned so the
// caller can delete the files once the transaction has committed.
func (r *ListingRepo) DeleteByIDAndOwner(ctx context.Context, id, ownerID uint64, kind string) (blobKeys []string, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var row struct {
		OwnerID uint64 `db:"owner_id"`
		Kind    string `db:"kind"`
	}
	if err = tx.GetContext(ctx, &row, "SELECT owner_id, kind FROM listings WHERE id = ? FOR UPDATE", id); err != nil {
		return nil, notFound(err)
	}
	if kind != "" && row.Kind != kind {
		return nil, ErrNotFound
	}
	if row.OwnerID != ownerID {
		return nil, ErrForbidden
	}

	if err = tx.SelectContext(ctx, &blobKeys, "SELECT blob_key FROM listing_photos WHERE listing_id = ?", id); err != nil {
		return nil, err
	}
	for _, q := range []string{
		"DELETE FROM bookings WHERE listing_id = ?",
		"DELETE FROM listing_photos WHERE listing_id = ?",
		"DELETE FROM listing_legal WHERE listing_id = ?",
		"DELETE FROM listing_pricing WHERE listing_id = ?",
		"DELETE FROM listing_setups WHERE listing_id = ?",
		"DELETE FROM listings WHERE id = ?",
	} {
		if _, err = tx.ExecContext(ctx, q, id); err != nil {
			return nil, err
		}
	}
	return blobKeys, tx.Commit()
}

// SetStatus changes the status of a listing owned by ownerID.  It returns
// ErrNotFound or ErrForbidden like DeleteByIDAndOwner.
func (r *ListingRepo) SetStatus(ctx context.Context, id, ownerID uint64, status string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE listings SET status = ? WHERE id = ? AND owner_id = ?", status, id, ownerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	var owner uint64
	if err := r.db.GetContext(ctx, &owner, "SELECT owner_id FROM listings WHERE id = ?", id); err != nil {
		return notFound(err)
	}
	if owner != ownerID {
		return ErrForbidden
	}
	// same status already set; MySQL reports zero changed rows
	return nil
}

// CountByOwner groups the owner's listings by kind and status.
func (r *ListingRepo) CountByOwner(ctx context.Context, ownerID uint64) ([]StatusCount, error) {
	out := []StatusCount{}
	err := r.db.SelectContext(ctx, &out,
		"SELECT kind, status, COUNT(*) AS n FROM listings WHERE owner_id = ? GROUP BY kind, status ORDER BY kind, status",
		ownerID)
	return out, err
}

// GetVisiblePhoto returns a photo whose listing is publicly visible.
func (r *ListingRepo) GetVisiblePhoto(ctx context.Context, id uint64) (*model.Photo, error) {
	var p model.Photo
	err := r.db.GetContext(ctx, &p,
		`SELECT ph.id, ph.listing_id, ph.blob_key, ph.content_type, ph.size_bytes, ph.created_at
		 FROM listing_photos ph
		 JOIN listings l ON l.id = ph.listing_id
		 JOIN users u ON u.id = l.owner_id
		 WHERE ph.id = ? AND `+VisibleSQL, id)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
