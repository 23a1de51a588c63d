package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/rental-booking/internal/model"
)

const attachmentColumns = `a.id, a.user_id, a.attachment_type, a.nida_number, a.blob_key,
	a.content_type, a.is_verified, a.created_at`

// AttachmentRepo stores identity documents awaiting or past review.
type AttachmentRepo struct{ db *sqlx.DB }

func NewAttachmentRepo(db *sqlx.DB) *AttachmentRepo { return &AttachmentRepo{db: db} }

// AttachmentView is an attachment joined with the uploader's email, as
// listed to administrators.
type AttachmentView struct {
	model.Attachment
	Email        string `db:"email" json:"email"`
	UserVerified bool   `db:"user_verified" json:"user_verified"`
}

// Replace stores a as the account's only attachment.  A previous document
// is overwritten and its blob key returned so the caller can remove the
// old blob.  The new document starts unverified and so does the account,
// which hides its listings until an admin reviews the new document.
func (r *AttachmentRepo) Replace(ctx context.Context, a *model.Attachment) (oldBlobKey string, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	var prev model.Attachment
	err = tx.GetContext(ctx, &prev,
		"SELECT "+attachmentColumns+" FROM attachments a WHERE a.user_id = ? FOR UPDATE", a.UserID)
	switch notFound(err) {
	case nil:
		oldBlobKey = prev.BlobKey
		if _, err = tx.ExecContext(ctx, "DELETE FROM attachments WHERE id = ?", prev.ID); err != nil {
			return "", err
		}
	case ErrNotFound:
		err = nil
	default:
		return "", err
	}
	a.IsVerified = false
	res, err := tx.NamedExecContext(ctx,
		`INSERT INTO attachments (user_id, attachment_type, nida_number, blob_key, content_type, is_verified)
		 VALUES (:user_id, :attachment_type, :nida_number, :blob_key, :content_type, 0)`, a)
	if err != nil {
		return "", err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", err
	}
	a.ID = uint64(id)
	if err = tx.GetContext(ctx, &a.CreatedAt, "SELECT created_at FROM attachments WHERE id = ?", a.ID); err != nil {
		return "", err
	}
	if _, err = tx.ExecContext(ctx, "UPDATE users SET verified = 0 WHERE id = ?", a.UserID); err != nil {
		return "", err
	}
	return oldBlobKey, tx.Commit()
}

// GetByUser returns the account's attachment or ErrNotFound.
func (r *AttachmentRepo) GetByUser(ctx context.Context, userID uint64) (*model.Attachment, error) {
	var a model.Attachment
	if err := r.db.GetContext(ctx, &a,
		"SELECT "+attachmentColumns+" FROM attachments a WHERE a.user_id = ?", userID); err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

// GetByID returns one attachment or ErrNotFound.
func (r *AttachmentRepo) GetByID(ctx context.Context, id uint64) (*model.Attachment, error) {
	var a model.Attachment
	if err := r.db.GetContext(ctx, &a,
		"SELECT "+attachmentColumns+" FROM attachments a WHERE a.id = ?", id); err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

// List returns attachments oldest first so the review queue is worked in
// upload order.  A nil verified lists every attachment.
func (r *AttachmentRepo) List(ctx context.Context, verified *bool) ([]AttachmentView, error) {
	q := "SELECT " + attachmentColumns + `, u.email, u.verified AS user_verified
		FROM attachments a JOIN users u ON u.id = a.user_id`
	var args []any
	if verified != nil {
		q += " WHERE a.is_verified = ?"
		args = append(args, *verified)
	}
	q += " ORDER BY a.created_at, a.id"
	out := []AttachmentView{}
	if err := r.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, err
	}
	return out, nil
}

// Verify marks the attachment verified and sets the owning account's
// verified flag in the same transaction.  It returns the account id.
func (r *AttachmentRepo) Verify(ctx context.Context, id uint64) (userID uint64, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = tx.GetContext(ctx, &userID, "SELECT user_id FROM attachments WHERE id = ? FOR UPDATE", id); err != nil {
		return 0, notFound(err)
	}
	if _, err = tx.ExecContext(ctx, "UPDATE attachments SET is_verified = 1 WHERE id = ?", id); err != nil {
		return 0, err
	}
	if _, err = tx.ExecContext(ctx, "UPDATE users SET verified = 1 WHERE id = ?", userID); err != nil {
		return 0, err
	}
	return userID, tx.Commit()
}
