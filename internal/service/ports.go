package service

import (
	"context"
	"io"

	"github.com/iliyamo/rental-booking/internal/model"
	"github.com/iliyamo/rental-booking/internal/queue"
	"github.com/iliyamo/rental-booking/internal/repository"
)

// ListingRepository is the subset of *repository.ListingRepo the services use.
type ListingRepository interface {
	CreateAggregate(ctx context.Context, agg *model.Aggregate) error
	GetAggregate(ctx context.Context, id uint64) (*model.Aggregate, error)
	ListByOwner(ctx context.Context, ownerID uint64, kind string) ([]repository.ListingRow, error)
	Latest(ctx context.Context, ownerID uint64, n int) ([]repository.ListingRow, error)
	Search(ctx context.Context, q repository.ListingQuery) ([]repository.ListingRow, int64, error)
	DeleteByIDAndOwner(ctx context.Context, id, ownerID uint64, kind string) ([]string, error)
	SetStatus(ctx context.Context, id, ownerID uint64, status string) error
	CountByOwner(ctx context.Context, ownerID uint64) ([]repository.StatusCount, error)
	GetVisiblePhoto(ctx context.Context, id uint64) (*model.Photo, error)
}

// AccountRepository is the subset of *repository.AccountRepo the services use.
type AccountRepository interface {
	Create(ctx context.Context, a *model.Account) error
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
	GetByID(ctx context.Context, id uint64) (*model.Account, error)
	List(ctx context.Context, role string) ([]model.Account, error)
	UpdatePassword(ctx context.Context, id uint64, hash string) error
}

// TokenRevoker is implemented by *repository.TokenRepo.
type TokenRevoker interface {
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// AttachmentRepository is the subset of *repository.AttachmentRepo the services use.
type AttachmentRepository interface {
	Replace(ctx context.Context, a *model.Attachment) (string, error)
	GetByUser(ctx context.Context, userID uint64) (*model.Attachment, error)
	GetByID(ctx context.Context, id uint64) (*model.Attachment, error)
	List(ctx context.Context, verified *bool) ([]repository.AttachmentView, error)
	Verify(ctx context.Context, id uint64) (uint64, error)
}

// BookingRepository is the subset of *repository.BookingRepo the services use.
type BookingRepository interface {
	InsertIfAvailable(ctx context.Context, b *model.Booking, capacity int) error
	GetView(ctx context.Context, id uint64) (*model.BookingView, error)
	UpdateStatus(ctx context.Context, id uint64, from, to model.BookingStatus) error
	ListByCustomer(ctx context.Context, customerID uint64) ([]model.BookingView, error)
	ListByOwner(ctx context.Context, ownerID uint64) ([]model.BookingView, error)
	CountByOwner(ctx context.Context, ownerID uint64) (map[model.BookingStatus]int, error)
}

// EventPublisher is implemented by *queue.Publisher and queue.NopPublisher.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.BookingEvent) error
}

// Upload is a file received from a client.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}
