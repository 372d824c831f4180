package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

type Order struct {
	ID             pgtype.UUID
	OrderRef       string
	CustomerName   pgtype.Text
	CompanyName    pgtype.Text
	Note           pgtype.Text
	TaxInvoice     bool
	Subtotal       int64
	Discount       int64
	VATAmount      int64
	GrandTotal     int64
	DepositTotal   int64
	RemainingTotal int64
	Payment        string
	Status         string
	CreatedAt      pgtype.Timestamptz
	UpdatedAt      pgtype.Timestamptz
}

type OrderItem struct {
	ID          pgtype.UUID
	OrderID     pgtype.UUID
	ItemKey     string
	Name        string
	Category    string
	Variant     pgtype.Text
	Qty         int32
	UnitPrice   int64
	Total       int64
	Deposit     int64
	Remaining   int64
	FullPayment bool
	Details     []byte
}

type OrderPayment struct {
	ID        pgtype.UUID
	OrderID   pgtype.UUID
	Amount    int64
	Method    string
	CreatedAt pgtype.Timestamptz
}

const insertOrder = `
INSERT INTO orders (
  id, order_ref, customer_name, company_name, note, tax_invoice,
  subtotal, discount, vat_amount, grand_total, deposit_total, remaining_total,
  payment, status
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
RETURNING id, order_ref, customer_name, company_name, note, tax_invoice,
  subtotal, discount, vat_amount, grand_total, deposit_total, remaining_total,
  payment, status, created_at, updated_at
`

type InsertOrderParams struct {
	OrderRef       string
	CustomerName   pgtype.Text
	CompanyName    pgtype.Text
	Note           pgtype.Text
	TaxInvoice     bool
	Subtotal       int64
	Discount       int64
	VATAmount      int64
	GrandTotal     int64
	DepositTotal   int64
	RemainingTotal int64
	Payment        string
	Status         string
}

func (s *Store) InsertOrder(ctx context.Context, arg InsertOrderParams) (Order, error) {
	var o Order
	err := s.db.QueryRow(ctx, insertOrder,
		NewUUID(), arg.OrderRef, arg.CustomerName, arg.CompanyName, arg.Note, arg.TaxInvoice,
		arg.Subtotal, arg.Discount, arg.VATAmount, arg.GrandTotal, arg.DepositTotal, arg.RemainingTotal,
		arg.Payment, arg.Status).
		Scan(orderFields(&o)...)
	return o, err
}

const insertOrderItem = `
INSERT INTO order_items (
  id, order_id, item_key, name, category, variant, qty, unit_price,
  total, deposit, remaining, full_payment, details
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
`

type InsertOrderItemParams struct {
	OrderID     pgtype.UUID
	ItemKey     string
	Name        string
	Category    string
	Variant     pgtype.Text
	Qty         int32
	UnitPrice   int64
	Total       int64
	Deposit     int64
	Remaining   int64
	FullPayment bool
	Details     []byte
}

func (s *Store) InsertOrderItem(ctx context.Context, arg InsertOrderItemParams) error {
	_, err := s.db.Exec(ctx, insertOrderItem,
		NewUUID(), arg.OrderID, arg.ItemKey, arg.Name, arg.Category, arg.Variant,
		arg.Qty, arg.UnitPrice, arg.Total, arg.Deposit, arg.Remaining, arg.FullPayment, arg.Details)
	return err
}

const getOrder = `
SELECT id, order_ref, customer_name, company_name, note, tax_invoice,
  subtotal, discount, vat_amount, grand_total, deposit_total, remaining_total,
  payment, status, created_at, updated_at
FROM orders
WHERE id = $1
`

func (s *Store) GetOrder(ctx context.Context, id pgtype.UUID) (Order, error) {
	var o Order
	err := s.db.QueryRow(ctx, getOrder, id).Scan(orderFields(&o)...)
	return o, err
}

const getOrderForUpdate = getOrder + ` FOR UPDATE`

func (s *Store) GetOrderForUpdate(ctx context.Context, id pgtype.UUID) (Order, error) {
	var o Order
	err := s.db.QueryRow(ctx, getOrderForUpdate, id).Scan(orderFields(&o)...)
	return o, err
}

const listOrders = `
SELECT id, order_ref, customer_name, company_name, note, tax_invoice,
  subtotal, discount, vat_amount, grand_total, deposit_total, remaining_total,
  payment, status, created_at, updated_at
FROM orders
WHERE ($1::text = '' OR status = $1)
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`

func (s *Store) ListOrders(ctx context.Context, status string, limit, offset int32) ([]Order, error) {
	rows, err := s.db.Query(ctx, listOrders, status, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(orderFields(&o)...); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

const countOrders = `
SELECT count(*) FROM orders WHERE ($1::text = '' OR status = $1)
`

func (s *Store) CountOrders(ctx context.Context, status string) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx, countOrders, status).Scan(&n)
	return n, err
}

const listOrderItems = `
SELECT id, order_id, item_key, name, category, variant, qty, unit_price,
  total, deposit, remaining, full_payment, details
FROM order_items
WHERE order_id = $1
ORDER BY item_key
`

func (s *Store) ListOrderItems(ctx context.Context, orderID pgtype.UUID) ([]OrderItem, error) {
	rows, err := s.db.Query(ctx, listOrderItems, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ItemKey, &it.Name, &it.Category, &it.Variant,
			&it.Qty, &it.UnitPrice, &it.Total, &it.Deposit, &it.Remaining, &it.FullPayment, &it.Details); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

const updateOrderProgress = `
UPDATE orders
SET deposit_total = $2, remaining_total = $3, status = $4, updated_at = now()
WHERE id = $1
RETURNING id, order_ref, customer_name, company_name, note, tax_invoice,
  subtotal, discount, vat_amount, grand_total, deposit_total, remaining_total,
  payment, status, created_at, updated_at
`

func (s *Store) UpdateOrderProgress(ctx context.Context, id pgtype.UUID, depositTotal, remainingTotal int64, status string) (Order, error) {
	var o Order
	err := s.db.QueryRow(ctx, updateOrderProgress, id, depositTotal, remainingTotal, status).
		Scan(orderFields(&o)...)
	return o, err
}

const updateOrderStatus = `
UPDATE orders SET status = $2, updated_at = now() WHERE id = $1
RETURNING id, order_ref, customer_name, company_name, note, tax_invoice,
  subtotal, discount, vat_amount, grand_total, deposit_total, remaining_total,
  payment, status, created_at, updated_at
`

func (s *Store) UpdateOrderStatus(ctx context.Context, id pgtype.UUID, status string) (Order, error) {
	var o Order
	err := s.db.QueryRow(ctx, updateOrderStatus, id, status).Scan(orderFields(&o)...)
	return o, err
}

const insertOrderPayment = `
INSERT INTO order_payments (id, order_id, amount, method)
VALUES ($1, $2, $3, $4)
RETURNING id, order_id, amount, method, created_at
`

func (s *Store) InsertOrderPayment(ctx context.Context, orderID pgtype.UUID, amount int64, method string) (OrderPayment, error) {
	var p OrderPayment
	err := s.db.QueryRow(ctx, insertOrderPayment, NewUUID(), orderID, amount, method).
		Scan(&p.ID, &p.OrderID, &p.Amount, &p.Method, &p.CreatedAt)
	return p, err
}

const listOrderPayments = `
SELECT id, order_id, amount, method, created_at
FROM order_payments
WHERE order_id = $1
ORDER BY created_at
`

func (s *Store) ListOrderPayments(ctx context.Context, orderID pgtype.UUID) ([]OrderPayment, error) {
	rows, err := s.db.Query(ctx, listOrderPayments, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []OrderPayment
	for rows.Next() {
		var p OrderPayment
		if err := rows.Scan(&p.ID, &p.OrderID, &p.Amount, &p.Method, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SalesSummaryRow aggregates the day's takings for the summary endpoint.
type SalesSummaryRow struct {
	SalesTotal     int64
	CashTotal      int64
	PromptPayTotal int64
	Completed      int64
}

const salesSummarySince = `
SELECT
  COALESCE(SUM(grand_total - remaining_total), 0),
  COALESCE(SUM(grand_total - remaining_total) FILTER (WHERE payment = 'cash'), 0),
  COALESCE(SUM(grand_total - remaining_total) FILTER (WHERE payment = 'promptpay'), 0),
  COUNT(*) FILTER (WHERE status = 'paid')
FROM orders
WHERE created_at >= $1 AND status <> 'cancelled'
`

func (s *Store) SalesSummarySince(ctx context.Context, from time.Time) (SalesSummaryRow, error) {
	var r SalesSummaryRow
	err := s.db.QueryRow(ctx, salesSummarySince, from).
		Scan(&r.SalesTotal, &r.CashTotal, &r.PromptPayTotal, &r.Completed)
	return r, err
}

const nextOrderSeq = `SELECT nextval('order_ref_seq')`

// NextOrderSeq reserves the next number used to build human-readable order refs.
func (s *Store) NextOrderSeq(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx, nextOrderSeq).Scan(&n)
	return n, err
}

func orderFields(o *Order) []any {
	return []any{
		&o.ID, &o.OrderRef, &o.CustomerName, &o.CompanyName, &o.Note, &o.TaxInvoice,
		&o.Subtotal, &o.Discount, &o.VATAmount, &o.GrandTotal, &o.DepositTotal, &o.RemainingTotal,
		&o.Payment, &o.Status, &o.CreatedAt, &o.UpdatedAt,
	}
}
