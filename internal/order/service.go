package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glossydesign/pos-api/internal/common"
	"github.com/glossydesign/pos-api/internal/discount"
	"github.com/glossydesign/pos-api/internal/events"
	"github.com/glossydesign/pos-api/internal/obs"
	"github.com/glossydesign/pos-api/internal/pricing"
	"github.com/glossydesign/pos-api/internal/store"
)

// DisplayPublisher pushes a freshly created or updated order to the
// customer-facing display.
type DisplayPublisher interface {
	PublishOrder(ctx context.Context, view View) error
}

// Service orchestrates order intake and payment progress.
type Service struct {
	Pool      *pgxpool.Pool
	Store     *store.Store
	Validate  *validator.Validate
	Events    *events.Bus
	Display   DisplayPublisher
	RefPrefix string
	VATBps    int
	// Now is overridable in tests.
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

var errNotConfigured = errors.New("order service not configured")

// Create validates and persists a new order in one transaction, then
// announces it to the event bus and the customer display.
func (s *Service) Create(ctx context.Context, in CreateInput) (View, error) {
	if s == nil || s.Pool == nil || s.Store == nil {
		return View{}, errNotConfigured
	}
	if s.Validate != nil {
		if err := s.Validate.Struct(in); err != nil {
			return View{}, common.Invalid("invalid order payload", validationDetails(err))
		}
	}
	for _, item := range in.Items {
		if err := item.Details.Validate(); err != nil {
			return View{}, common.Invalid(err.Error(), map[string]any{"key": item.Key})
		}
	}

	items := make([]pricing.Item, 0, len(in.Items))
	var subtotal pricing.Money
	for _, item := range in.Items {
		lineTotal := pricing.Money(item.Qty) * pricing.Money(item.UnitPrice)
		subtotal += lineTotal
		deposit := pricing.Money(item.Deposit)
		if deposit > lineTotal {
			deposit = lineTotal
		}
		items = append(items, pricing.Item{
			Qty:         item.Qty,
			UnitPrice:   pricing.Money(item.UnitPrice),
			Deposit:     deposit,
			Remaining:   lineTotal - deposit,
			FullPayment: item.FullPayment,
		})
	}
	if err := pricing.Validate(items); err != nil {
		return View{}, common.Invalid(err.Error(), nil)
	}

	discountAmt, err := discount.ResolveText(in.Discount, subtotal)
	if err != nil && !errors.Is(err, discount.ErrExceedsSubtotal) {
		return View{}, common.Invalid("invalid discount", map[string]any{"discount": in.Discount})
	}

	taxBps := 0
	if in.TaxInvoice {
		taxBps = s.VATBps
	}
	breakdown := pricing.Compute(items, discountAmt, taxBps)
	status := deriveStatus(int64(breakdown.GrandTotal), int64(breakdown.RemainingTotal))

	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return View{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	st := s.Store.WithTx(tx)

	seq, err := st.NextOrderSeq(ctx)
	if err != nil {
		return View{}, err
	}
	ref := fmt.Sprintf("%s-%s-%04d", s.refPrefix(), s.now().Format("20060102"), seq)

	row, err := st.InsertOrder(ctx, store.InsertOrderParams{
		OrderRef:       ref,
		CustomerName:   store.NullableText(&in.CustomerName),
		CompanyName:    store.NullableText(&in.CompanyName),
		Note:           store.NullableText(&in.Note),
		TaxInvoice:     in.TaxInvoice,
		Subtotal:       int64(breakdown.Subtotal),
		Discount:       int64(breakdown.Discount),
		VATAmount:      int64(breakdown.VATAmount),
		GrandTotal:     int64(breakdown.GrandTotal),
		DepositTotal:   int64(breakdown.DepositTotal),
		RemainingTotal: int64(breakdown.RemainingTotal),
		Payment:        in.Payment,
		Status:         status,
	})
	if err != nil {
		return View{}, err
	}

	itemRows := make([]store.OrderItem, 0, len(in.Items))
	for i, item := range in.Items {
		line := breakdown.Lines[i]
		details, err := json.Marshal(item.Details)
		if err != nil {
			return View{}, err
		}
		params := store.InsertOrderItemParams{
			OrderID:     row.ID,
			ItemKey:     item.Key,
			Name:        item.Name,
			Category:    item.Category,
			Variant:     store.NullableText(&item.Variant),
			Qty:         int32(item.Qty),
			UnitPrice:   item.UnitPrice,
			Total:       int64(line.Total),
			Deposit:     int64(line.Deposit),
			Remaining:   int64(line.Remaining),
			FullPayment: item.FullPayment,
			Details:     details,
		}
		if err := st.InsertOrderItem(ctx, params); err != nil {
			return View{}, err
		}
		itemRows = append(itemRows, store.OrderItem{
			OrderID:     row.ID,
			ItemKey:     params.ItemKey,
			Name:        params.Name,
			Category:    params.Category,
			Variant:     params.Variant,
			Qty:         params.Qty,
			UnitPrice:   params.UnitPrice,
			Total:       params.Total,
			Deposit:     params.Deposit,
			Remaining:   params.Remaining,
			FullPayment: params.FullPayment,
			Details:     params.Details,
		})
	}

	if in.Deposit() > 0 {
		if _, err := st.InsertOrderPayment(ctx, row.ID, int64(breakdown.DepositTotal), in.Payment); err != nil {
			return View{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return View{}, err
	}

	view := viewFromRow(row, itemRows)
	obs.IncOrderCreated(view.Payment)
	obs.IncOrderStatus(view.Status)
	if s.Events != nil {
		_, _ = s.Events.Emit(ctx, events.TopicOrderCreated, row.ID, map[string]any{
			"orderRef":   view.Ref,
			"grandTotal": view.GrandTotal,
			"status":     view.Status,
		})
	}
	if s.Display != nil {
		_ = s.Display.PublishOrder(ctx, view)
	}
	return view, nil
}

// Deposit reports the sum of item deposits in the submission, before
// proportional adjustment.
func (in CreateInput) Deposit() int64 {
	var total int64
	for _, item := range in.Items {
		if item.FullPayment {
			total += int64(item.Qty) * item.UnitPrice
		} else {
			total += item.Deposit
		}
	}
	return total
}

// Get loads a full order by id.
func (s *Service) Get(ctx context.Context, id string) (View, error) {
	if s == nil || s.Store == nil {
		return View{}, errNotConfigured
	}
	oID, err := store.ToUUID(id)
	if err != nil {
		return View{}, common.NewAppError(common.CodeValidation, "invalid order id", http.StatusBadRequest, err)
	}
	row, err := s.Store.GetOrder(ctx, oID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return View{}, common.NotFound("order")
		}
		return View{}, err
	}
	items, err := s.Store.ListOrderItems(ctx, oID)
	if err != nil {
		return View{}, err
	}
	return viewFromRow(row, items), nil
}

// List returns orders newest first, optionally filtered by status. Items are
// omitted from list rows.
func (s *Service) List(ctx context.Context, status string, page, perPage int) ([]View, int64, error) {
	if s == nil || s.Store == nil {
		return nil, 0, errNotConfigured
	}
	switch status {
	case "", StatusPending, StatusPartial, StatusPaid, StatusCancelled:
	default:
		return nil, 0, common.Invalid("unknown status filter", map[string]any{"status": status})
	}
	total, err := s.Store.CountOrders(ctx, status)
	if err != nil {
		return nil, 0, err
	}
	offset := int32((page - 1) * perPage)
	rows, err := s.Store.ListOrders(ctx, status, int32(perPage), offset)
	if err != nil {
		return nil, 0, err
	}
	out := make([]View, 0, len(rows))
	for _, row := range rows {
		out = append(out, viewFromRow(row, nil))
	}
	return out, total, nil
}

// Payments lists money received against an order.
func (s *Service) Payments(ctx context.Context, id string) ([]PaymentRecord, error) {
	if s == nil || s.Store == nil {
		return nil, errNotConfigured
	}
	oID, err := store.ToUUID(id)
	if err != nil {
		return nil, common.NewAppError(common.CodeValidation, "invalid order id", http.StatusBadRequest, err)
	}
	rows, err := s.Store.ListOrderPayments(ctx, oID)
	if err != nil {
		return nil, err
	}
	out := make([]PaymentRecord, 0, len(rows))
	for _, p := range rows {
		out = append(out, PaymentRecord{
			ID:        store.UUIDString(p.ID),
			Amount:    p.Amount,
			Method:    p.Method,
			CreatedAt: p.CreatedAt.Time,
		})
	}
	return out, nil
}

// ApplyPayment records money received against an open order. Amounts above
// the outstanding balance are clamped, and the lifecycle state flips to
// partial or paid as the balance shrinks.
func (s *Service) ApplyPayment(ctx context.Context, id string, in PaymentInput) (View, error) {
	if s == nil || s.Pool == nil || s.Store == nil {
		return View{}, errNotConfigured
	}
	if s.Validate != nil {
		if err := s.Validate.Struct(in); err != nil {
			return View{}, common.Invalid("invalid payment payload", validationDetails(err))
		}
	}
	oID, err := store.ToUUID(id)
	if err != nil {
		return View{}, common.NewAppError(common.CodeValidation, "invalid order id", http.StatusBadRequest, err)
	}

	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return View{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	st := s.Store.WithTx(tx)

	row, err := st.GetOrderForUpdate(ctx, oID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return View{}, common.NotFound("order")
		}
		return View{}, err
	}
	switch row.Status {
	case StatusCancelled:
		return View{}, common.NewAppError(common.CodeConflict, "order is cancelled", http.StatusConflict, nil)
	case StatusPaid:
		return View{}, common.NewAppError(common.CodeConflict, "order is already paid", http.StatusConflict, nil)
	}

	amount := in.Amount
	if amount > row.RemainingTotal {
		amount = row.RemainingTotal
	}
	newDeposit := row.DepositTotal + amount
	newRemaining := row.RemainingTotal - amount
	status := deriveStatus(row.GrandTotal, newRemaining)

	updated, err := st.UpdateOrderProgress(ctx, oID, newDeposit, newRemaining, status)
	if err != nil {
		return View{}, err
	}
	if _, err := st.InsertOrderPayment(ctx, oID, amount, in.Method); err != nil {
		return View{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return View{}, err
	}

	items, err := s.Store.ListOrderItems(ctx, oID)
	if err != nil {
		return View{}, err
	}
	view := viewFromRow(updated, items)
	obs.IncPaymentRecorded(in.Method)
	obs.IncOrderStatus(view.Status)
	if s.Events != nil {
		topic := events.TopicOrderPartiallyPaid
		if view.Status == StatusPaid {
			topic = events.TopicOrderPaid
		}
		_, _ = s.Events.Emit(ctx, topic, oID, map[string]any{
			"orderRef":  view.Ref,
			"amount":    amount,
			"method":    in.Method,
			"remaining": view.RemainingTotal,
		})
	}
	if s.Display != nil {
		_ = s.Display.PublishOrder(ctx, view)
	}
	return view, nil
}

// Cancel voids an order that has not been fully paid. Cancelling an already
// cancelled order is a no-op.
func (s *Service) Cancel(ctx context.Context, id string) (View, error) {
	if s == nil || s.Pool == nil || s.Store == nil {
		return View{}, errNotConfigured
	}
	oID, err := store.ToUUID(id)
	if err != nil {
		return View{}, common.NewAppError(common.CodeValidation, "invalid order id", http.StatusBadRequest, err)
	}

	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return View{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	st := s.Store.WithTx(tx)

	row, err := st.GetOrderForUpdate(ctx, oID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return View{}, common.NotFound("order")
		}
		return View{}, err
	}
	if row.Status == StatusPaid {
		return View{}, common.NewAppError(common.CodeConflict, "paid orders cannot be cancelled", http.StatusConflict, nil)
	}
	if row.Status == StatusCancelled {
		items, err := s.Store.ListOrderItems(ctx, oID)
		if err != nil {
			return View{}, err
		}
		return viewFromRow(row, items), nil
	}

	updated, err := st.UpdateOrderStatus(ctx, oID, StatusCancelled)
	if err != nil {
		return View{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return View{}, err
	}

	items, err := s.Store.ListOrderItems(ctx, oID)
	if err != nil {
		return View{}, err
	}
	view := viewFromRow(updated, items)
	obs.IncOrderStatus(StatusCancelled)
	if s.Events != nil {
		_, _ = s.Events.Emit(ctx, events.TopicOrderCancelled, oID, map[string]any{"orderRef": view.Ref})
	}
	return view, nil
}

func (s *Service) refPrefix() string {
	if s.RefPrefix != "" {
		return s.RefPrefix
	}
	return "GD"
}

func validationDetails(err error) any {
	var invalid validator.ValidationErrors
	if !errors.As(err, &invalid) {
		return nil
	}
	fields := make(map[string]string, len(invalid))
	for _, fe := range invalid {
		fields[fe.Namespace()] = fe.Tag()
	}
	return fields
}
