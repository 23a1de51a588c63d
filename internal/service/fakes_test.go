package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"sync"

	"github.com/iliyamo/rental-booking/internal/model"
	"github.com/iliyamo/rental-booking/internal/queue"
	"github.com/iliyamo/rental-booking/internal/repository"
	"github.com/iliyamo/rental-booking/internal/storage"
)

// memStore backs the listing, account and booking repositories with maps.
type memStore struct {
	mu        sync.Mutex
	accounts  map[uint64]*model.Account
	listings  map[uint64]*model.Aggregate
	bookings  map[uint64]*model.Booking
	nextID    uint64
	failWrite error
}

func newMemStore() *memStore {
	return &memStore{
		accounts: map[uint64]*model.Account{},
		listings: map[uint64]*model.Aggregate{},
		bookings: map[uint64]*model.Booking{},
	}
}

func (m *memStore) id() uint64 { m.nextID++; return m.nextID }

func (m *memStore) addAccount(role string, verified bool) model.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := &model.Account{ID: m.id(), Email: "u@example.com", Role: role, Verified: verified, IsActive: true}
	m.accounts[a.ID] = a
	return model.Identity{UserID: a.ID, Role: role}
}

// memListings implements ListingRepository.
type memListings struct{ *memStore }

func (m memListings) CreateAggregate(_ context.Context, agg *model.Aggregate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite != nil {
		return m.failWrite
	}
	agg.Listing.ID = m.id()
	cp := *agg
	if agg.Pricing != nil {
		p := *agg.Pricing
		cp.Pricing = &p
	}
	m.listings[agg.Listing.ID] = &cp
	return nil
}

func (m memListings) GetAggregate(_ context.Context, id uint64) (*model.Aggregate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	agg, ok := m.listings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *agg
	return &cp, nil
}

func (m memListings) rows(keep func(*model.Aggregate) bool) []repository.ListingRow {
	out := []repository.ListingRow{}
	for _, agg := range m.listings {
		if keep(agg) {
			out = append(out, repository.ListingRow{Listing: agg.Listing})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (m memListings) ListByOwner(_ context.Context, ownerID uint64, kind string) ([]repository.ListingRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows(func(a *model.Aggregate) bool {
		return a.Listing.OwnerID == ownerID && (kind == "" || a.Listing.Kind == kind)
	}), nil
}

func (m memListings) Latest(ctx context.Context, ownerID uint64, n int) ([]repository.ListingRow, error) {
	rows, _ := m.ListByOwner(ctx, ownerID, "")
	if len(rows) > n {
		rows = rows[:n]
	}
	return rows, nil
}

func (m memListings) Search(_ context.Context, q repository.ListingQuery) ([]repository.ListingRow, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.rows(func(a *model.Aggregate) bool {
		owner := m.accounts[a.Listing.OwnerID]
		if owner == nil || !Visible(a.Listing, *owner) {
			return false
		}
		if len(q.Kinds) > 0 && a.Listing.Kind != q.Kinds[0] {
			return false
		}
		if q.Category != "" && a.Listing.Category != q.Category {
			return false
		}
		return q.Region == "" || a.Listing.Region == q.Region
	})
	total := int64(len(rows))
	start := (q.Page - 1) * q.PageSize
	if start > len(rows) {
		start = len(rows)
	}
	end := start + q.PageSize
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end], total, nil
}

func (m memListings) DeleteByIDAndOwner(_ context.Context, id, ownerID uint64, kind string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	agg, ok := m.listings[id]
	if !ok || (kind != "" && agg.Listing.Kind != kind) {
		return nil, repository.ErrNotFound
	}
	if agg.Listing.OwnerID != ownerID {
		return nil, repository.ErrForbidden
	}
	var keys []string
	for _, p := range agg.Photos {
		keys = append(keys, p.BlobKey)
	}
	delete(m.listings, id)
	for bid, b := range m.bookings {
		if b.ListingID == id {
			delete(m.bookings, bid)
		}
	}
	return keys, nil
}

func (m memListings) SetStatus(_ context.Context, id, ownerID uint64, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	agg, ok := m.listings[id]
	if !ok {
		return repository.ErrNotFound
	}
	if agg.Listing.OwnerID != ownerID {
		return repository.ErrForbidden
	}
	agg.Listing.Status = status
	return nil
}

func (m memListings) CountByOwner(_ context.Context, ownerID uint64) ([]repository.StatusCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[[2]string]int{}
	for _, a := range m.listings {
		if a.Listing.OwnerID == ownerID {
			counts[[2]string{a.Listing.Kind, a.Listing.Status}]++
		}
	}
	var out []repository.StatusCount
	for k, n := range counts {
		out = append(out, repository.StatusCount{Kind: k[0], Status: k[1], Count: n})
	}
	return out, nil
}

func (m memListings) GetVisiblePhoto(_ context.Context, id uint64) (*model.Photo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.listings {
		owner := m.accounts[a.Listing.OwnerID]
		for _, p := range a.Photos {
			if p.ID == id && owner != nil && Visible(a.Listing, *owner) {
				cp := p
				return &cp, nil
			}
		}
	}
	return nil, repository.ErrNotFound
}

// memAccounts implements AccountRepository.
type memAccounts struct{ *memStore }

func (m memAccounts) Create(_ context.Context, a *model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.accounts {
		if x.Email == a.Email {
			return repository.ErrEmailExists
		}
	}
	a.ID = m.id()
	a.IsActive = true
	cp := *a
	m.accounts[a.ID] = &cp
	return nil
}

func (m memAccounts) GetByEmail(_ context.Context, email string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m memAccounts) GetByID(_ context.Context, id uint64) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m memAccounts) List(_ context.Context, role string) ([]model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Account{}
	for _, a := range m.accounts {
		if role == "" || a.Role == role {
			out = append(out, *a)
		}
	}
	return out, nil
}

// memBookings implements BookingRepository with the same capacity rule
// as the SQL repository.
type memBookings struct{ *memStore }

func (m memBookings) InsertIfAvailable(_ context.Context, b *model.Booking, capacity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.listings[b.ListingID]; !ok {
		return repository.ErrNotFound
	}
	overlapping := 0
	for _, x := range m.bookings {
		if x.ListingID == b.ListingID && x.Status.Active() &&
			x.CheckIn.Before(b.CheckOut) && x.CheckOut.After(b.CheckIn) {
			overlapping++
		}
	}
	if overlapping >= capacity {
		return repository.ErrNoCapacity
	}
	b.ID = m.id()
	cp := *b
	m.bookings[b.ID] = &cp
	return nil
}

func (m memBookings) view(b *model.Booking) model.BookingView {
	v := model.BookingView{Booking: *b}
	if agg, ok := m.listings[b.ListingID]; ok {
		v.ListingName = agg.Listing.Name
		v.OwnerID = agg.Listing.OwnerID
	}
	return v
}

func (m memBookings) GetView(_ context.Context, id uint64) (*model.BookingView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	v := m.view(b)
	return &v, nil
}

func (m memBookings) UpdateStatus(_ context.Context, id uint64, from, to model.BookingStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.Status != from {
		return repository.ErrConflict
	}
	b.Status = to
	return nil
}

func (m memBookings) list(keep func(model.BookingView) bool) []model.BookingView {
	out := []model.BookingView{}
	for _, b := range m.bookings {
		if v := m.view(b); keep(v) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (m memBookings) ListByCustomer(_ context.Context, customerID uint64) ([]model.BookingView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list(func(v model.BookingView) bool { return v.CustomerID == customerID }), nil
}

func (m memBookings) ListByOwner(_ context.Context, ownerID uint64) ([]model.BookingView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list(func(v model.BookingView) bool { return v.OwnerID == ownerID }), nil
}

func (m memBookings) CountByOwner(ctx context.Context, ownerID uint64) (map[model.BookingStatus]int, error) {
	views, _ := m.ListByOwner(ctx, ownerID)
	out := map[model.BookingStatus]int{}
	for _, v := range views {
		out[v.Status]++
	}
	return out, nil
}

// memBlobs implements storage.BlobStore.
type memBlobs struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newMemBlobs() *memBlobs { return &memBlobs{blobs: map[string][]byte{}} }

func (b *memBlobs) Put(_ context.Context, key, _ string, r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blobs[key] = data
	return int64(len(data)), nil
}

func (b *memBlobs) Open(_ context.Context, key string) (io.ReadCloser, string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.blobs[key]
	if !ok {
		return nil, "", storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), "application/octet-stream", nil
}

func (b *memBlobs) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.blobs, key)
	return nil
}

func (b *memBlobs) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.blobs)
}

// recorder implements EventPublisher.
type recorder struct {
	mu     sync.Mutex
	events []queue.BookingEvent
	fail   bool
}

func (r *recorder) Publish(_ context.Context, ev queue.BookingEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("broker down")
	}
	r.events = append(r.events, ev)
	return nil
}

// fixture wires the services over one memStore.
func (m memAccounts) UpdatePassword(_ context.Context, id uint64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.PasswordHash = hash
	return nil
}

// revoker records RevokeAllForUser calls.
type revoker struct{ users []uint64 }

func (r *revoker) RevokeAllForUser(_ context.Context, userID uint64) error {
	r.users = append(r.users, userID)
	return nil
}

type fixture struct {
	store    *memStore
	blobs    *memBlobs
	events   *recorder
	listings *ListingService
	bookings *BookingService
	accounts *AccountService
}

func newFixture() *fixture {
	st := newMemStore()
	blobs := newMemBlobs()
	ev := &recorder{}
	v := NewValidator()
	return &fixture{
		store:  st,
		blobs:  blobs,
		events: ev,
		listings: &ListingService{
			Listings: memListings{st}, Accounts: memAccounts{st}, Bookings: memBookings{st},
			Blobs: blobs, Validator: v, DefaultCurrency: "TZS",
		},
		bookings: &BookingService{
			Listings: memListings{st}, Accounts: memAccounts{st}, Bookings: memBookings{st},
			Events: ev, Validator: v,
		},
		accounts: &AccountService{
			Accounts: memAccounts{st}, Blobs: blobs, Validator: v, BcryptCost: 4,
		},
	}
}
