package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/medstock/medstock-backend/pkg/database"
	"github.com/medstock/medstock-backend/pkg/errors"
)

// Category groups inventory items
type Category struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

const categoryColumns = `id, name, description, is_active, created_at, updated_at`

// CategoryRepository handles category persistence
type CategoryRepository struct {
	db *database.DB
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(db *database.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// Create inserts a category
func (r *CategoryRepository) Create(ctx context.Context, c *Category) error {
	query := `
		INSERT INTO categories (name, description, is_active)
		VALUES ($1, $2, true)
		RETURNING id, is_active, created_at, updated_at
	`
	return r.db.Q(ctx).QueryRowxContext(ctx, query, c.Name, c.Description).
		Scan(&c.ID, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
}

// GetByID gets a category by ID regardless of its active flag
func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*Category, error) {
	var c Category
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1`
	if err := r.db.Q(ctx).GetContext(ctx, &c, query, id); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFound("category")
		}
		return nil, err
	}
	return &c, nil
}

// FindByName returns the category with the exact name, or nil
func (r *CategoryRepository) FindByName(ctx context.Context, name string) (*Category, error) {
	var c Category
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE name = $1`
	if err := r.db.Q(ctx).GetContext(ctx, &c, query, name); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// List returns active categories ordered by name
func (r *CategoryRepository) List(ctx context.Context) ([]*Category, error) {
	categories := []*Category{}
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE is_active = true ORDER BY name`
	if err := r.db.Q(ctx).SelectContext(ctx, &categories, query); err != nil {
		return nil, err
	}
	return categories, nil
}

// Update writes name, description and active flag
func (r *CategoryRepository) Update(ctx context.Context, c *Category) error {
	query := `
		UPDATE categories SET name = $2, description = $3, is_active = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.Q(ctx).QueryRowxContext(ctx, query, c.ID, c.Name, c.Description, c.IsActive).Scan(&c.UpdatedAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return errors.NotFound("category")
	}
	return err
}

// SoftDelete marks a category inactive
func (r *CategoryRepository) SoftDelete(ctx context.Context, id int64) error {
	result, err := r.db.Q(ctx).ExecContext(ctx,
		`UPDATE categories SET is_active = false, updated_at = NOW() WHERE id = $1 AND is_active = true`, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound("category")
	}
	return nil
}
