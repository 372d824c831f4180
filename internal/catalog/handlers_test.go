package catalog_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"

	"github.com/glossydesign/pos-api/internal/catalog"
	"github.com/glossydesign/pos-api/internal/store"
)

type productsResponse struct {
	Data []catalog.Product `json:"data"`
}

type productDetailResponse struct {
	Data catalog.Product `json:"data"`
}

type fakeCatalogQueries struct {
	products []store.Product
	variants []store.ProductVariant
}

func (f *fakeCatalogQueries) ListProducts(context.Context) ([]store.Product, error) {
	return f.products, nil
}

func (f *fakeCatalogQueries) GetProduct(_ context.Context, id pgtype.UUID) (store.Product, error) {
	for _, p := range f.products {
		if p.ID == id {
			return p, nil
		}
	}
	return store.Product{}, pgx.ErrNoRows
}

func (f *fakeCatalogQueries) ListVariants(context.Context) ([]store.ProductVariant, error) {
	return f.variants, nil
}

func (f *fakeCatalogQueries) ListVariantsByProduct(_ context.Context, productID pgtype.UUID) ([]store.ProductVariant, error) {
	var out []store.ProductVariant
	for _, v := range f.variants {
		if v.ProductID == productID {
			out = append(out, v)
		}
	}
	return out, nil
}

func newFakeCatalogQueries() *fakeCatalogQueries {
	namecard := store.NewUUID()
	stamp := store.NewUUID()
	return &fakeCatalogQueries{
		products: []store.Product{
			{ID: namecard, Name: "นามบัตร", Category: "namecard", Cover: "namecard.png", Tint: "amber"},
			{ID: stamp, Name: "ตรายาง", Category: "stamp", Cover: "stamp.png", Tint: "teal",
				Badge: pgtype.Text{String: "popular", Valid: true}},
		},
		variants: []store.ProductVariant{
			{ID: store.NewUUID(), ProductID: namecard, Name: "อาร์ตการ์ด 1 หน้า", Price: 20000},
			{ID: store.NewUUID(), ProductID: namecard, Name: "อาร์ตการ์ด 2 หน้า", Price: 30000},
			{ID: store.NewUUID(), ProductID: stamp, Name: "หมึกในตัว 3x1 ซม.", Price: 25000,
				Note: pgtype.Text{String: "pre-inked", Valid: true}},
		},
	}
}

func TestCatalogHandlers(t *testing.T) {
	queries := newFakeCatalogQueries()
	svc, err := catalog.NewService(catalog.ServiceConfig{Queries: queries})
	require.NoError(t, err)

	handler := catalog.NewHandler(svc)

	t.Run("products list", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
		rec := httptest.NewRecorder()
		handler.Products(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp productsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Data, 2)
		require.Equal(t, "นามบัตร", resp.Data[0].Name)
		require.Len(t, resp.Data[0].Variants, 2)
		require.Equal(t, int64(20000), resp.Data[0].Variants[0].Price)
		require.Equal(t, "popular", resp.Data[1].Badge)
	})

	t.Run("product detail", func(t *testing.T) {
		id := store.UUIDString(queries.products[1].ID)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/products/"+id, nil)
		routeCtx := chi.NewRouteContext()
		routeCtx.URLParams.Add("productId", id)
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
		rec := httptest.NewRecorder()
		handler.ProductDetail(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp productDetailResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "ตรายาง", resp.Data.Name)
		require.Len(t, resp.Data.Variants, 1)
		require.Equal(t, "pre-inked", resp.Data.Variants[0].Note)
	})

	t.Run("product detail not found", func(t *testing.T) {
		id := store.UUIDString(store.NewUUID())
		req := httptest.NewRequest(http.MethodGet, "/api/v1/products/"+id, nil)
		routeCtx := chi.NewRouteContext()
		routeCtx.URLParams.Add("productId", id)
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
		rec := httptest.NewRecorder()
		handler.ProductDetail(rec, req)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("product detail bad id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/products/not-a-uuid", nil)
		routeCtx := chi.NewRouteContext()
		routeCtx.URLParams.Add("productId", "not-a-uuid")
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
		rec := httptest.NewRecorder()
		handler.ProductDetail(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
