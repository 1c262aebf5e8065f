package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shelfd/shelf/internal/model"
)

// ListProducts returns all products in insertion order.
func (s *Store) ListProducts(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	if err := s.db.SelectContext(ctx, &products, "SELECT * FROM products ORDER BY id"); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// GetProduct returns a product by ID.
func (s *Store) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	var p model.Product
	q := s.db.Rebind("SELECT * FROM products WHERE id = ?")
	if err := s.db.GetContext(ctx, &p, q, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// CreateProduct inserts a new product. The ID, CreatedAt, and UpdatedAt
// fields on p are populated after a successful insert. Field validation
// (required name/description, non-negative price) happens in the handler;
// the store persists what it is given.
func (s *Store) CreateProduct(ctx context.Context, p *model.Product) error {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	if s.driver == "postgres" {
		const q = `INSERT INTO products (name, description, price, image, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
		err := s.db.QueryRowxContext(ctx, q,
			p.Name, p.Description, p.Price, p.Image, p.CreatedAt, p.UpdatedAt,
		).Scan(&p.ID)
		if err != nil {
			return fmt.Errorf("insert product: %w", err)
		}
		return nil
	}

	const q = `INSERT INTO products
		(name, description, price, image, created_at, updated_at)
		VALUES
		(:name, :description, :price, :image, :created_at, :updated_at)`

	result, err := s.db.NamedExecContext(ctx, q, p)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get product id: %w", err)
	}
	p.ID = id
	return nil
}

// UpdateProduct applies a partial update: nil fields in upd keep their stored
// values. Returns the updated product, or ErrNotFound if no product has the
// given ID. An image update replaces the stored path; the previous path is
// returned so the caller can remove the file best-effort.
func (s *Store) UpdateProduct(ctx context.Context, id int64, upd model.ProductUpdate) (*model.Product, *string, error) {
	existing, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	var oldImage *string
	if upd.Name != nil {
		existing.Name = *upd.Name
	}
	if upd.Description != nil {
		existing.Description = *upd.Description
	}
	if upd.Price != nil {
		existing.Price = *upd.Price
	}
	if upd.Image != nil {
		oldImage = existing.Image
		existing.Image = upd.Image
	}
	existing.UpdatedAt = time.Now().UTC()

	q := s.db.Rebind(`UPDATE products
		SET name = ?, description = ?, price = ?, image = ?, updated_at = ?
		WHERE id = ?`)
	result, err := s.db.ExecContext(ctx, q,
		existing.Name, existing.Description, existing.Price, existing.Image, existing.UpdatedAt, id)
	if err != nil {
		return nil, nil, fmt.Errorf("update product: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return nil, nil, ErrNotFound
	}
	return existing, oldImage, nil
}

// DeleteProduct removes a product by ID, returning the stored image path (if
// any) so the caller can remove the file best-effort. Returns ErrNotFound if
// no product has the given ID.
func (s *Store) DeleteProduct(ctx context.Context, id int64) (*string, error) {
	existing, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	q := s.db.Rebind("DELETE FROM products WHERE id = ?")
	result, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return nil, fmt.Errorf("delete product: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("delete product rows affected: %w", err)
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return existing.Image, nil
}

// CountProducts returns the total number of products. Used by the seed
// command to report what it loaded.
func (s *Store) CountProducts(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM products"); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return count, nil
}
