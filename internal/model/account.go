package model

import "time"

// Roles stored in users.role and in the "role" claim of access tokens.
const (
	RoleCustomer = "CUSTOMER"
	RoleOwner    = "OWNER"
	RoleAdmin    = "ADMIN"
)

// Account represents an application user record as stored in the
// `users` table.  Verified is the single verification flag consulted
// when deciding whether an owner's listings are publicly visible.  It is
// set when an administrator approves one of the account's identity
// attachments.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique, lower-cased email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – CUSTOMER, OWNER or ADMIN.
//  FirstName    – optional given name.
//  LastName     – optional family name.
//  PhoneNumber  – optional Tanzanian phone number.
//  Region       – optional home region.
//  Verified     – identity verified by an administrator.
//  IsActive     – whether the account may sign in.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type Account struct {
	ID           uint64    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	FirstName    string    `db:"first_name" json:"first_name"`
	LastName     string    `db:"last_name" json:"last_name"`
	PhoneNumber  string    `db:"phone_number" json:"phone_number"`
	Region       string    `db:"region" json:"region"`
	Verified     bool      `db:"verified" json:"verified"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// FullName joins the first and last name, falling back to the email.
func (a Account) FullName() string {
	name := a.FirstName
	if a.LastName != "" {
		if name != "" {
			name += " "
		}
		name += a.LastName
	}
	if name == "" {
		return a.Email
	}
	return name
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA‑256 hash of the token handed to the client is stored.
type RefreshToken struct {
	ID        uint64     `db:"id"`
	UserID    uint64     `db:"user_id"`
	TokenHash string     `db:"token_hash"`
	ExpiresAt time.Time  `db:"expires_at"`
	RevokedAt *time.Time `db:"revoked_at"`
	CreatedAt time.Time  `db:"created_at"`
}

// Identity is the authenticated caller of a core operation.  Handlers
// build it from the access token claims; services never read request
// state directly.
type Identity struct {
	UserID uint64
	Role   string
}

func (i Identity) IsAdmin() bool    { return i.Role == RoleAdmin }
func (i Identity) IsOwner() bool    { return i.Role == RoleOwner }
func (i Identity) IsCustomer() bool { return i.Role == RoleCustomer }
