package service

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"

	"github.com/iliyamo/rental-booking/internal/model"
	"github.com/iliyamo/rental-booking/internal/repository"
	"github.com/iliyamo/rental-booking/internal/storage"
	"github.com/iliyamo/rental-booking/internal/utils"
)

// AccountService handles registration, sign-in checks and identity
// document verification.
type AccountService struct {
	Accounts    AccountRepository
	Attachments AttachmentRepository
	Tokens      TokenRevoker
	Blobs       storage.BlobStore
	Validator   *Validator
	BcryptCost  int
	MaxDocBytes int64
}

// RegisterInput is the sign-up form.  ADMIN cannot be chosen here.
type RegisterInput struct {
	Email       string `json:"email" validate:"required,email,max=255"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
	Role        string `json:"role" validate:"omitempty,oneof=CUSTOMER OWNER"`
	FirstName   string `json:"first_name" validate:"max=50"`
	LastName    string `json:"last_name" validate:"max=50"`
	PhoneNumber string `json:"phone_number" validate:"omitempty,tzphone"`
	Region      string `json:"region" validate:"max=50"`
}

// ChangePasswordInput is the password change form.
type ChangePasswordInput struct {
	OldPassword string `json:"old_password" form:"old_password" validate:"required"`
	NewPassword string `json:"new_password" form:"new_password" validate:"required,min=8,max=72,nefield=OldPassword"`
}

// AttachmentInput describes an identity document upload.
type AttachmentInput struct {
	AttachmentType string `json:"attachment_type" form:"attachment_type" validate:"required,oneof=nida passport driving_license voter_id"`
	NIDANumber     string `json:"nida_number" form:"nida_number" validate:"required_if=AttachmentType nida,omitempty,nida"`
}

// Register creates a CUSTOMER or OWNER account.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*model.Account, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Role = strings.ToUpper(strings.TrimSpace(in.Role))
	if err := s.Validator.Validate(&in); err != nil {
		return nil, err
	}
	if in.Role == "" {
		in.Role = model.RoleCustomer
	}
	hash, err := utils.HashPassword(in.Password, s.BcryptCost)
	if err != nil {
		return nil, err
	}
	a := &model.Account{
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		PhoneNumber:  in.PhoneNumber,
		Region:       in.Region,
	}
	if err := s.Accounts.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Authenticate checks an email and password.  Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*model.Account, error) {
	a, err := s.Accounts.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !utils.VerifyPassword(a.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if !a.IsActive {
		return nil, ErrInactiveAccount
	}
	return a, nil
}

// Get returns the account behind an identity.
func (s *AccountService) Get(ctx context.Context, id uint64) (*model.Account, error) {
	return s.Accounts.GetByID(ctx, id)
}

// ChangePassword replaces the caller's password after checking the old
// one, then revokes every refresh token of the account.
func (s *AccountService) ChangePassword(ctx context.Context, id model.Identity, in ChangePasswordInput) (*model.Account, error) {
	if err := s.Validator.Validate(&in); err != nil {
		return nil, err
	}
	a, err := s.Accounts.GetByID(ctx, id.UserID)
	if err != nil {
		return nil, err
	}
	if !utils.VerifyPassword(a.PasswordHash, in.OldPassword) {
		fe := fieldErrors{}
		fe.add("old_password", "password is incorrect")
		return nil, fe.err()
	}
	hash, err := utils.HashPassword(in.NewPassword, s.BcryptCost)
	if err != nil {
		return nil, err
	}
	if err := s.Accounts.UpdatePassword(ctx, a.ID, hash); err != nil {
		return nil, err
	}
	a.PasswordHash = hash
	if s.Tokens != nil {
		if err := s.Tokens.RevokeAllForUser(ctx, a.ID); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// UploadAttachment stores an identity document for review, replacing any
// earlier one.  The account stays or becomes unverified until an admin
// approves the new document.
func (s *AccountService) UploadAttachment(ctx context.Context, id model.Identity, in AttachmentInput, doc Upload) (*model.Attachment, error) {
	in.AttachmentType = strings.ToLower(strings.TrimSpace(in.AttachmentType))
	in.NIDANumber = strings.TrimSpace(in.NIDANumber)
	if err := s.Validator.Validate(&in); err != nil {
		return nil, err
	}
	fe := fieldErrors{}
	switch {
	case doc.Body == nil:
		fe.add("document", "this field is required")
	case !strings.HasPrefix(doc.ContentType, "image/") && doc.ContentType != "application/pdf":
		fe.add("document", "upload an image or a PDF")
	case doc.Size > s.maxDocBytes():
		fe.add("document", "file is larger than "+megabytes(s.maxDocBytes()))
	}
	if err := fe.err(); err != nil {
		return nil, err
	}

	key := storage.NewKey("documents", doc.ContentType)
	if _, err := s.Blobs.Put(ctx, key, doc.ContentType, io.LimitReader(doc.Body, s.maxDocBytes())); err != nil {
		return nil, err
	}
	a := &model.Attachment{
		UserID:         id.UserID,
		AttachmentType: in.AttachmentType,
		BlobKey:        key,
		ContentType:    doc.ContentType,
	}
	if in.AttachmentType == model.AttachmentNIDA {
		a.NIDANumber = &in.NIDANumber
	}
	old, err := s.Attachments.Replace(ctx, a)
	if err != nil {
		if derr := s.Blobs.Delete(context.Background(), key); derr != nil {
			log.Printf("accounts: remove blob %s: %v", key, derr)
		}
		return nil, err
	}
	if old != "" {
		if err := s.Blobs.Delete(ctx, old); err != nil {
			log.Printf("accounts: remove replaced blob %s: %v", old, err)
		}
	}
	return a, nil
}

func (s *AccountService) maxDocBytes() int64 {
	if s.MaxDocBytes > 0 {
		return s.MaxDocBytes
	}
	return 10 << 20
}

// MyAttachment returns the caller's identity document.
func (s *AccountService) MyAttachment(ctx context.Context, id model.Identity) (*model.Attachment, error) {
	return s.Attachments.GetByUser(ctx, id.UserID)
}

// ListAttachments is the admin review queue.  A nil verified lists all.
func (s *AccountService) ListAttachments(ctx context.Context, id model.Identity, verified *bool) ([]repository.AttachmentView, error) {
	if !id.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.Attachments.List(ctx, verified)
}

// VerifyAttachment approves a document and marks its account verified,
// which makes the account's open listings publicly visible.
func (s *AccountService) VerifyAttachment(ctx context.Context, id model.Identity, attachmentID uint64) (*model.Attachment, error) {
	if !id.IsAdmin() {
		return nil, ErrForbidden
	}
	if _, err := s.Attachments.Verify(ctx, attachmentID); err != nil {
		return nil, err
	}
	return s.Attachments.GetByID(ctx, attachmentID)
}

// ListAccounts lists accounts for admins, optionally by role.
func (s *AccountService) ListAccounts(ctx context.Context, id model.Identity, role string) ([]model.Account, error) {
	if !id.IsAdmin() {
		return nil, ErrForbidden
	}
	role = strings.ToUpper(strings.TrimSpace(role))
	if role != "" && role != model.RoleCustomer && role != model.RoleOwner && role != model.RoleAdmin {
		return nil, &ValidationError{Fields: map[string]string{"role": "must be one of: CUSTOMER OWNER ADMIN"}}
	}
	return s.Accounts.List(ctx, role)
}
