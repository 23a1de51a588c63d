package model

import "time"

// Identity document kinds accepted for verification.
const (
	AttachmentNIDA           = "nida"
	AttachmentPassport       = "passport"
	AttachmentDrivingLicense = "driving_license"
	AttachmentVoterID        = "voter_id"
)

// Attachment is an identity document uploaded by an account for review.
// The document image itself lives in blob storage under BlobKey.
//
// Fields:
//  ID             – primary key identifier.
//  UserID         – account that uploaded the document.
//  AttachmentType – one of nida, passport, driving_license, voter_id.
//  NIDANumber     – national id number, required for nida documents.
//  BlobKey        – key of the document image in blob storage.
//  ContentType    – MIME type of the stored image.
//  IsVerified     – set by an administrator after review.
//  CreatedAt      – upload timestamp.
type Attachment struct {
	ID             uint64    `db:"id" json:"id"`
	UserID         uint64    `db:"user_id" json:"user_id"`
	AttachmentType string    `db:"attachment_type" json:"attachment_type"`
	NIDANumber     *string   `db:"nida_number" json:"nida_number,omitempty"`
	BlobKey        string    `db:"blob_key" json:"-"`
	ContentType    string    `db:"content_type" json:"content_type"`
	IsVerified     bool      `db:"is_verified" json:"is_verified"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
