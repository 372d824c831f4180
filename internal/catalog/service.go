// Package catalog serves the product grid the cashier picks from: print
// product groups with their priced variants.
package catalog

import (
	"context"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	pcache "github.com/glossydesign/pos-api/internal/cache"
	"github.com/glossydesign/pos-api/internal/common"
	"github.com/glossydesign/pos-api/internal/store"
)

const productsCacheKey = pcache.KeyProducts

type queryProvider interface {
	ListProducts(ctx context.Context) ([]store.Product, error)
	GetProduct(ctx context.Context, id pgtype.UUID) (store.Product, error)
	ListVariants(ctx context.Context) ([]store.ProductVariant, error)
	ListVariantsByProduct(ctx context.Context, productID pgtype.UUID) ([]store.ProductVariant, error)
}

// Service assembles product payloads and keeps the grid cached.
type Service struct {
	queries queryProvider
	cache   *Cache
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Queries queryProvider
	Cache   *Cache
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Queries == nil {
		return nil, errors.New("catalog: queries provider is required")
	}
	return &Service{queries: cfg.Queries, cache: cfg.Cache}, nil
}

// Variant is a priced option within a product group. Price is in satang.
type Variant struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
	Note  string `json:"note,omitempty"`
}

// Product is a product group on the cashier grid.
type Product struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Category string    `json:"category"`
	Cover    string    `json:"cover"`
	Tint     string    `json:"tint"`
	Badge    string    `json:"badge,omitempty"`
	Variants []Variant `json:"variants"`
}

// ListProducts returns every product group with its variants, cache-aside.
func (s *Service) ListProducts(ctx context.Context) ([]Product, error) {
	var cached []Product
	if ok, err := s.cache.GetJSON(ctx, productsCacheKey, &cached); err == nil && ok {
		return cached, nil
	}

	rows, err := s.queries.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	variants, err := s.queries.ListVariants(ctx)
	if err != nil {
		return nil, err
	}

	byProduct := make(map[string][]Variant, len(rows))
	for _, v := range variants {
		pid := store.UUIDString(v.ProductID)
		byProduct[pid] = append(byProduct[pid], toVariant(v))
	}

	out := make([]Product, 0, len(rows))
	for _, p := range rows {
		item := toProduct(p)
		item.Variants = byProduct[item.ID]
		if item.Variants == nil {
			item.Variants = []Variant{}
		}
		out = append(out, item)
	}

	_ = s.cache.SetJSON(ctx, productsCacheKey, out)
	return out, nil
}

// GetProduct returns a single product group with its variants.
func (s *Service) GetProduct(ctx context.Context, id string) (Product, error) {
	pid, err := store.ToUUID(id)
	if err != nil {
		return Product{}, common.NewAppError(common.CodeValidation, "invalid product id", http.StatusBadRequest, err)
	}
	row, err := s.queries.GetProduct(ctx, pid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, common.NotFound("product")
		}
		return Product{}, err
	}
	variants, err := s.queries.ListVariantsByProduct(ctx, pid)
	if err != nil {
		return Product{}, err
	}
	item := toProduct(row)
	item.Variants = make([]Variant, 0, len(variants))
	for _, v := range variants {
		item.Variants = append(item.Variants, toVariant(v))
	}
	return item, nil
}

// InvalidateCache drops the cached grid after catalog changes.
func (s *Service) InvalidateCache(ctx context.Context) error {
	return s.cache.Drop(ctx, productsCacheKey)
}

func toProduct(p store.Product) Product {
	return Product{
		ID:       store.UUIDString(p.ID),
		Name:     p.Name,
		Category: p.Category,
		Cover:    p.Cover,
		Tint:     p.Tint,
		Badge:    store.TextValue(p.Badge),
	}
}

func toVariant(v store.ProductVariant) Variant {
	return Variant{
		ID:    store.UUIDString(v.ID),
		Name:  v.Name,
		Price: v.Price,
		Note:  store.TextValue(v.Note),
	}
}
