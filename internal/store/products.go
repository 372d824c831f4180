package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type Product struct {
	ID        pgtype.UUID
	Name      string
	Category  string
	Cover     string
	Tint      string
	Badge     pgtype.Text
	Position  int32
	CreatedAt pgtype.Timestamptz
}

type ProductVariant struct {
	ID        pgtype.UUID
	ProductID pgtype.UUID
	Name      string
	Price     int64
	Note      pgtype.Text
	Position  int32
}

const listProducts = `
SELECT id, name, category, cover, tint, badge, position, created_at
FROM products
ORDER BY position, name
`

func (s *Store) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := s.db.Query(ctx, listProducts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Cover, &p.Tint, &p.Badge, &p.Position, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const getProduct = `
SELECT id, name, category, cover, tint, badge, position, created_at
FROM products
WHERE id = $1
`

func (s *Store) GetProduct(ctx context.Context, id pgtype.UUID) (Product, error) {
	var p Product
	err := s.db.QueryRow(ctx, getProduct, id).
		Scan(&p.ID, &p.Name, &p.Category, &p.Cover, &p.Tint, &p.Badge, &p.Position, &p.CreatedAt)
	return p, err
}

const listVariants = `
SELECT id, product_id, name, price, note, position
FROM product_variants
ORDER BY product_id, position, name
`

func (s *Store) ListVariants(ctx context.Context) ([]ProductVariant, error) {
	rows, err := s.db.Query(ctx, listVariants)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanVariants(rows)
}

const listVariantsByProduct = `
SELECT id, product_id, name, price, note, position
FROM product_variants
WHERE product_id = $1
ORDER BY position, name
`

func (s *Store) ListVariantsByProduct(ctx context.Context, productID pgtype.UUID) ([]ProductVariant, error) {
	rows, err := s.db.Query(ctx, listVariantsByProduct, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanVariants(rows)
}

func scanVariants(rows pgx.Rows) ([]ProductVariant, error) {
	var out []ProductVariant
	for rows.Next() {
		var v ProductVariant
		if err := rows.Scan(&v.ID, &v.ProductID, &v.Name, &v.Price, &v.Note, &v.Position); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

const insertProduct = `
INSERT INTO products (id, name, category, cover, tint, badge, position)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (name) DO UPDATE SET
  category = EXCLUDED.category,
  cover = EXCLUDED.cover,
  tint = EXCLUDED.tint,
  badge = EXCLUDED.badge,
  position = EXCLUDED.position
RETURNING id, name, category, cover, tint, badge, position, created_at
`

type InsertProductParams struct {
	Name     string
	Category string
	Cover    string
	Tint     string
	Badge    pgtype.Text
	Position int32
}

func (s *Store) InsertProduct(ctx context.Context, arg InsertProductParams) (Product, error) {
	var p Product
	err := s.db.QueryRow(ctx, insertProduct,
		NewUUID(), arg.Name, arg.Category, arg.Cover, arg.Tint, arg.Badge, arg.Position).
		Scan(&p.ID, &p.Name, &p.Category, &p.Cover, &p.Tint, &p.Badge, &p.Position, &p.CreatedAt)
	return p, err
}

const insertVariant = `
INSERT INTO product_variants (id, product_id, name, price, note, position)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (product_id, name) DO UPDATE SET
  price = EXCLUDED.price,
  note = EXCLUDED.note,
  position = EXCLUDED.position
RETURNING id
`

type InsertVariantParams struct {
	ProductID pgtype.UUID
	Name      string
	Price     int64
	Note      pgtype.Text
	Position  int32
}

func (s *Store) InsertVariant(ctx context.Context, arg InsertVariantParams) (pgtype.UUID, error) {
	var id pgtype.UUID
	err := s.db.QueryRow(ctx, insertVariant,
		NewUUID(), arg.ProductID, arg.Name, arg.Price, arg.Note, arg.Position).Scan(&id)
	return id, err
}
