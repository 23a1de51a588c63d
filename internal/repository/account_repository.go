package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/rental-booking/internal/model"
)

const accountColumns = `id, email, password_hash, role, first_name, last_name,
	phone_number, region, verified, is_active, created_at, updated_at`

// AccountRepo reads and writes the users table.
type AccountRepo struct{ db *sqlx.DB }

func NewAccountRepo(db *sqlx.DB) *AccountRepo { return &AccountRepo{db: db} }

// Create inserts a and fills in its ID.  Email is normalized to lower
// case.  A duplicate email yields ErrEmailExists.
func (r *AccountRepo) Create(ctx context.Context, a *model.Account) error {
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	res, err := r.db.NamedExecContext(ctx,
		`INSERT INTO users (email, password_hash, role, first_name, last_name, phone_number, region)
		 VALUES (:email, :password_hash, :role, :first_name, :last_name, :phone_number, :region)`, a)
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	a.IsActive = true
	return nil
}

// GetByEmail fetches an account by normalized email.
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	var a model.Account
	err := r.db.GetContext(ctx, &a,
		"SELECT "+accountColumns+" FROM users WHERE email = ? LIMIT 1",
		strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

// GetByID fetches an account by id.
func (r *AccountRepo) GetByID(ctx context.Context, id uint64) (*model.Account, error) {
	var a model.Account
	if err := r.db.GetContext(ctx, &a, "SELECT "+accountColumns+" FROM users WHERE id = ? LIMIT 1", id); err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

// UpdatePassword stores a new password hash.  A missing account yields
// ErrNotFound.
func (r *AccountRepo) UpdatePassword(ctx context.Context, id uint64, hash string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET password_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?", hash, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns accounts newest first, optionally restricted to one role.
func (r *AccountRepo) List(ctx context.Context, role string) ([]model.Account, error) {
	q := "SELECT " + accountColumns + " FROM users"
	var args []any
	if role != "" {
		q += " WHERE role = ?"
		args = append(args, role)
	}
	q += " ORDER BY created_at DESC, id DESC"
	out := []model.Account{}
	if err := r.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, err
	}
	return out, nil
}

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return strings.Contains(err.Error(), "1062")
}
