package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/medstock/medstock-backend/pkg/database"
	"github.com/medstock/medstock-backend/pkg/errors"
)

// Admin is the single clinic administrator. Password is nil until the
// voucher has been redeemed and a password set.
type Admin struct {
	ID        int64     `db:"id"`
	Email     string    `db:"email"`
	Password  *string   `db:"password"`
	Voucher   *string   `db:"voucher"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

const adminColumns = `id, email, password, voucher, created_at, updated_at`

// AdminRepository handles admin persistence
type AdminRepository struct {
	db *database.DB
}

// NewAdminRepository creates a new admin repository
func NewAdminRepository(db *database.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

// GetByEmail gets an admin by email
func (r *AdminRepository) GetByEmail(ctx context.Context, email string) (*Admin, error) {
	return r.get(ctx, `SELECT `+adminColumns+` FROM admins WHERE email = $1`, email)
}

// GetByVoucher gets and locks the admin holding an unredeemed voucher
func (r *AdminRepository) GetByVoucher(ctx context.Context, voucher string) (*Admin, error) {
	return r.get(ctx, `SELECT `+adminColumns+` FROM admins WHERE voucher = $1 FOR UPDATE`, voucher)
}

func (r *AdminRepository) get(ctx context.Context, query string, arg interface{}) (*Admin, error) {
	var a Admin
	if err := r.db.Q(ctx).GetContext(ctx, &a, query, arg); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFound("admin")
		}
		return nil, err
	}
	return &a, nil
}

// HasUnprovisioned reports whether any admin still has no password
func (r *AdminRepository) HasUnprovisioned(ctx context.Context) (bool, error) {
	var exists bool
	err := r.db.Q(ctx).GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM admins WHERE password IS NULL)`)
	return exists, err
}

// UpsertVoucher creates the admin or resets an existing one to the
// unprovisioned state with a fresh voucher.
func (r *AdminRepository) UpsertVoucher(ctx context.Context, email, voucher string) (*Admin, error) {
	a := &Admin{Email: email, Voucher: &voucher}
	query := `
		INSERT INTO admins (email, voucher)
		VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE
		SET voucher = EXCLUDED.voucher, password = NULL, updated_at = NOW()
		RETURNING id, created_at, updated_at
	`
	if err := r.db.Q(ctx).QueryRowxContext(ctx, query, email, voucher).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return a, nil
}

// ClearVoucher invalidates the admin's voucher
func (r *AdminRepository) ClearVoucher(ctx context.Context, id int64) error {
	return r.exec(ctx, `UPDATE admins SET voucher = NULL, updated_at = NOW() WHERE id = $1`, id)
}

// SetPassword stores a password hash
func (r *AdminRepository) SetPassword(ctx context.Context, id int64, hash string) error {
	return r.exec(ctx, `UPDATE admins SET password = $2, updated_at = NOW() WHERE id = $1`, id, hash)
}

func (r *AdminRepository) exec(ctx context.Context, query string, args ...interface{}) error {
	result, err := r.db.Q(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound("admin")
	}
	return nil
}
