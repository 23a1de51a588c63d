package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/iliyamo/rental-booking/internal/model"
	"github.com/iliyamo/rental-booking/internal/repository"
	"github.com/iliyamo/rental-booking/internal/storage"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ListingService is the listing store: creation, owner management,
// public browse and search over listing aggregates.
type ListingService struct {
	Listings        ListingRepository
	Accounts        AccountRepository
	Bookings        BookingRepository
	Blobs           storage.BlobStore
	Validator       *Validator
	DefaultCurrency string
	MaxPhotoBytes   int64
}

// Query filters the public listings of one kind.
type Query struct {
	Kind       string
	Category   string
	TypeFilter string
	Region     string
	Keyword    string
	Page       int
	PageSize   int
}

// Page is one page of browse results.
type Page struct {
	Items    []repository.ListingRow `json:"items"`
	Total    int64                   `json:"total"`
	Page     int                     `json:"page"`
	PageSize int                     `json:"page_size"`
}

// Dashboard summarizes an owner's listings and the bookings made on them.
type Dashboard struct {
	TotalListings int                         `json:"total_listings"`
	ByKind        map[string]int              `json:"by_kind"`
	ByStatus      map[string]int              `json:"by_status"`
	Latest        []repository.ListingRow     `json:"latest"`
	Bookings      map[model.BookingStatus]int `json:"bookings"`
}

// Create validates the form, stores the photos and persists the whole
// aggregate in one transaction.  Stored photos are removed again when the
// transaction fails.
func (s *ListingService) Create(ctx context.Context, id model.Identity, kind string, in CreateListingInput, photos []Upload) (*model.Aggregate, error) {
	if !id.IsOwner() {
		return nil, ErrForbidden
	}
	if _, ok := model.Categories[kind]; !ok {
		return nil, ErrNotFound
	}
	agg, err := in.check(s.Validator, kind, s.DefaultCurrency)
	if err != nil {
		return nil, err
	}
	if err := s.checkPhotos(photos); err != nil {
		return nil, err
	}
	agg.Listing.OwnerID = id.UserID

	var stored []string
	for _, p := range photos {
		key := storage.NewKey("listings", p.ContentType)
		n, err := s.Blobs.Put(ctx, key, p.ContentType, io.LimitReader(p.Body, s.maxPhotoBytes()+1))
		if err == nil && n > s.maxPhotoBytes() {
			_ = s.Blobs.Delete(ctx, key)
			err = &ValidationError{Fields: map[string]string{"image": p.Filename + " is larger than " + megabytes(s.maxPhotoBytes())}}
		}
		if err != nil {
			s.removeBlobs(stored)
			return nil, err
		}
		stored = append(stored, key)
		agg.Photos = append(agg.Photos, model.Photo{BlobKey: key, ContentType: p.ContentType, SizeBytes: n})
	}

	if err := s.Listings.CreateAggregate(ctx, agg); err != nil {
		s.removeBlobs(stored)
		return nil, fmt.Errorf("create listing: %w", err)
	}
	return agg, nil
}

func (s *ListingService) checkPhotos(photos []Upload) error {
	fe := fieldErrors{}
	for _, p := range photos {
		if !strings.HasPrefix(p.ContentType, "image/") {
			fe.add("image", p.Filename+" is not an image")
		}
		if p.Size > s.maxPhotoBytes() {
			fe.add("image", p.Filename+" is larger than "+megabytes(s.maxPhotoBytes()))
		}
	}
	return fe.err()
}

func (s *ListingService) maxPhotoBytes() int64 {
	if s.MaxPhotoBytes > 0 {
		return s.MaxPhotoBytes
	}
	return 10 << 20
}

func megabytes(n int64) string { return fmt.Sprintf("%d MB", n>>20) }

// removeBlobs deletes blobs whose rows are gone or were never written.
// It runs detached from the request context so a cancelled request still
// cleans up.
func (s *ListingService) removeBlobs(keys []string) {
	for _, k := range keys {
		if err := s.Blobs.Delete(context.Background(), k); err != nil {
			log.Printf("listings: remove blob %s: %v", k, err)
		}
	}
}

// Get returns the caller's own listing.  Listings of other owners, and
// listings of another kind when kind is set, are reported as not found.
func (s *ListingService) Get(ctx context.Context, id model.Identity, listingID uint64, kind string) (*model.Aggregate, error) {
	agg, err := s.Listings.GetAggregate(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if kind != "" && agg.Listing.Kind != kind {
		return nil, ErrNotFound
	}
	if agg.Listing.OwnerID != id.UserID && !id.IsAdmin() {
		return nil, ErrNotFound
	}
	return agg, nil
}

// ListByOwner returns the caller's listings of one kind, newest first.
func (s *ListingService) ListByOwner(ctx context.Context, id model.Identity, kind string) ([]repository.ListingRow, error) {
	return s.Listings.ListByOwner(ctx, id.UserID, kind)
}

// Filter browses visible listings of q.Kind.  An unknown category in the
// path is reported as not found.
func (s *ListingService) Filter(ctx context.Context, q Query) (*Page, error) {
	if _, ok := model.Categories[q.Kind]; !ok {
		return nil, ErrNotFound
	}
	if q.Category != "" && !model.ValidCategory(q.Kind, q.Category) {
		return nil, ErrNotFound
	}
	return s.search(ctx, repository.ListingQuery{
		Kinds:      []string{q.Kind},
		Category:   q.Category,
		TypeFilter: q.TypeFilter,
		Region:     strings.TrimSpace(q.Region),
		Keyword:    q.Keyword,
	}, q.Page, q.PageSize)
}

// GlobalSearch searches visible listings of every kind by region and
// category.
func (s *ListingService) GlobalSearch(ctx context.Context, region, category string, page, pageSize int) (*Page, error) {
	return s.search(ctx, repository.ListingQuery{
		Region:   strings.TrimSpace(region),
		Category: strings.TrimSpace(category),
	}, page, pageSize)
}

// CitySearch matches city against district, region and country of
// visible listings of every kind.
func (s *ListingService) CitySearch(ctx context.Context, city string, page, pageSize int) (*Page, error) {
	if strings.TrimSpace(city) == "" {
		return nil, &ValidationError{Fields: map[string]string{"city": "this field is required"}}
	}
	return s.search(ctx, repository.ListingQuery{City: city}, page, pageSize)
}

func (s *ListingService) search(ctx context.Context, q repository.ListingQuery, page, pageSize int) (*Page, error) {
	q.Page, q.PageSize = normalizePage(page, pageSize)
	rows, total, err := s.Listings.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	return &Page{Items: rows, Total: total, Page: q.Page, PageSize: q.PageSize}, nil
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

// PublicDetail returns a visible listing of the given kind together with
// its owner.
func (s *ListingService) PublicDetail(ctx context.Context, kind string, listingID uint64) (*model.Aggregate, *model.Account, error) {
	agg, err := s.Listings.GetAggregate(ctx, listingID)
	if err != nil {
		return nil, nil, err
	}
	if kind != "" && agg.Listing.Kind != kind {
		return nil, nil, ErrNotFound
	}
	owner, err := s.Accounts.GetByID(ctx, agg.Listing.OwnerID)
	if err != nil {
		return nil, nil, err
	}
	if !Visible(agg.Listing, *owner) {
		return nil, nil, ErrNotFound
	}
	return agg, owner, nil
}

// Delete removes the caller's listing with everything hanging off it.
// Deleting someone else's listing fails with ErrForbidden and changes
// nothing.
func (s *ListingService) Delete(ctx context.Context, id model.Identity, listingID uint64, kind string) error {
	keys, err := s.Listings.DeleteByIDAndOwner(ctx, listingID, id.UserID, kind)
	if err != nil {
		return err
	}
	s.removeBlobs(keys)
	return nil
}

// SetStatus opens, holds or closes the caller's listing.
func (s *ListingService) SetStatus(ctx context.Context, id model.Identity, listingID uint64, kind, status string) error {
	if !model.ValidListingStatus(status) {
		return ErrInvalidStatus
	}
	if kind != "" {
		agg, err := s.Listings.GetAggregate(ctx, listingID)
		if err != nil {
			return err
		}
		if agg.Listing.Kind != kind {
			return ErrNotFound
		}
	}
	return s.Listings.SetStatus(ctx, listingID, id.UserID, status)
}

// Dashboard collects counts for the owner's landing page.
func (s *ListingService) Dashboard(ctx context.Context, id model.Identity) (*Dashboard, error) {
	counts, err := s.Listings.CountByOwner(ctx, id.UserID)
	if err != nil {
		return nil, err
	}
	d := &Dashboard{
		ByKind:   map[string]int{model.KindLodging: 0, model.KindResidence: 0, model.KindVehicle: 0},
		ByStatus: map[string]int{model.ListingOpen: 0, model.ListingHold: 0, model.ListingClosed: 0},
	}
	for _, c := range counts {
		d.TotalListings += c.Count
		d.ByKind[c.Kind] += c.Count
		d.ByStatus[c.Status] += c.Count
	}
	if d.Latest, err = s.Listings.Latest(ctx, id.UserID, 3); err != nil {
		return nil, err
	}
	if d.Bookings, err = s.Bookings.CountByOwner(ctx, id.UserID); err != nil {
		return nil, err
	}
	return d, nil
}

// Photo opens the image of a photo that belongs to a visible listing.
func (s *ListingService) Photo(ctx context.Context, photoID uint64) (io.ReadCloser, string, error) {
	p, err := s.Listings.GetVisiblePhoto(ctx, photoID)
	if err != nil {
		return nil, "", err
	}
	rc, ct, err := s.Blobs.Open(ctx, p.BlobKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", err
	}
	if p.ContentType != "" {
		ct = p.ContentType
	}
	return rc, ct, nil
}
