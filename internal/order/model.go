// Package order implements order intake, payment progress and the daily
// sales summary for the shop counter.
package order

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/glossydesign/pos-api/internal/store"
)

// Order lifecycle states.
const (
	StatusPending   = "pending"
	StatusPartial   = "partial"
	StatusPaid      = "paid"
	StatusCancelled = "cancelled"
)

// Payment methods accepted at the counter.
const (
	MethodCash      = "cash"
	MethodPromptPay = "promptpay"
)

// Detail kinds carried by cart items.
const (
	KindNone     = "none"
	KindNamecard = "namecard"
	KindStamp    = "stamp"
	KindCustom   = "custom"
)

// NamecardDetails describes a name card job.
type NamecardDetails struct {
	Material  string `json:"material"`
	Sides     int    `json:"sides" validate:"oneof=1 2"`
	ColorMode string `json:"colorMode" validate:"oneof=color mono"`
}

// StampDetails describes a rubber stamp job.
type StampDetails struct {
	Type  string `json:"type"`
	Shape string `json:"shape"`
	Size  string `json:"size"`
}

// CustomDetails describes free-size print work priced by dimensions.
type CustomDetails struct {
	WidthCM  float64 `json:"widthCm" validate:"gt=0"`
	HeightCM float64 `json:"heightCm" validate:"gt=0"`
}

// Details is the job specification attached to a cart item. Kind selects
// which branch is populated; the rest stay nil.
type Details struct {
	Kind     string           `json:"kind"`
	Namecard *NamecardDetails `json:"namecard,omitempty"`
	Stamp    *StampDetails    `json:"stamp,omitempty"`
	Custom   *CustomDetails   `json:"custom,omitempty"`
}

// Validate checks that exactly the branch named by Kind is populated.
func (d Details) Validate() error {
	switch d.Kind {
	case "", KindNone:
		if d.Namecard != nil || d.Stamp != nil || d.Custom != nil {
			return fmt.Errorf("details: kind %q must not carry a payload", d.Kind)
		}
		return nil
	case KindNamecard:
		if d.Namecard == nil || d.Stamp != nil || d.Custom != nil {
			return fmt.Errorf("details: kind namecard requires the namecard payload only")
		}
		return nil
	case KindStamp:
		if d.Stamp == nil || d.Namecard != nil || d.Custom != nil {
			return fmt.Errorf("details: kind stamp requires the stamp payload only")
		}
		return nil
	case KindCustom:
		if d.Custom == nil || d.Namecard != nil || d.Stamp != nil {
			return fmt.Errorf("details: kind custom requires the custom payload only")
		}
		return nil
	default:
		return fmt.Errorf("details: unknown kind %q", d.Kind)
	}
}

// ItemInput is one cart line in an order submission. Money fields are satang.
type ItemInput struct {
	Key         string  `json:"key" validate:"required"`
	ProductID   string  `json:"productId,omitempty"`
	Name        string  `json:"name" validate:"required"`
	Category    string  `json:"category" validate:"required"`
	Variant     string  `json:"variant,omitempty"`
	Qty         int     `json:"qty" validate:"gt=0"`
	UnitPrice   int64   `json:"unitPrice" validate:"gte=0"`
	FullPayment bool    `json:"fullPayment"`
	Deposit     int64   `json:"deposit" validate:"gte=0"`
	Details     Details `json:"details"`
}

// CreateInput is the order submission payload.
type CreateInput struct {
	CustomerName string      `json:"customerName,omitempty"`
	CompanyName  string      `json:"companyName,omitempty"`
	Note         string      `json:"note,omitempty"`
	TaxInvoice   bool        `json:"taxInvoice"`
	Discount     string      `json:"discount,omitempty"`
	Payment      string      `json:"payment" validate:"required,oneof=cash promptpay"`
	Items        []ItemInput `json:"items" validate:"required,min=1,dive"`
}

// PaymentInput records money received against an open order.
type PaymentInput struct {
	Amount int64  `json:"amount" validate:"gt=0"`
	Method string `json:"method" validate:"required,oneof=cash promptpay"`
}

// Item is a stored cart line as returned by the API.
type Item struct {
	Key         string  `json:"key"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Variant     string  `json:"variant,omitempty"`
	Qty         int     `json:"qty"`
	UnitPrice   int64   `json:"unitPrice"`
	Total       int64   `json:"total"`
	Deposit     int64   `json:"deposit"`
	Remaining   int64   `json:"remaining"`
	FullPayment bool    `json:"fullPayment"`
	Details     Details `json:"details"`
}

// View is the full order payload.
type View struct {
	ID             string    `json:"id"`
	Ref            string    `json:"ref"`
	CustomerName   string    `json:"customerName,omitempty"`
	CompanyName    string    `json:"companyName,omitempty"`
	Note           string    `json:"note,omitempty"`
	TaxInvoice     bool      `json:"taxInvoice"`
	Subtotal       int64     `json:"subtotal"`
	Discount       int64     `json:"discount"`
	VATAmount      int64     `json:"vatAmount"`
	GrandTotal     int64     `json:"grandTotal"`
	DepositTotal   int64     `json:"depositTotal"`
	RemainingTotal int64     `json:"remainingTotal"`
	Payment        string    `json:"payment"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	Items          []Item    `json:"items"`
}

// PaymentRecord is one receipt of money against an order.
type PaymentRecord struct {
	ID        string    `json:"id"`
	Amount    int64     `json:"amount"`
	Method    string    `json:"method"`
	CreatedAt time.Time `json:"createdAt"`
}

// deriveStatus maps payment progress to a lifecycle state.
func deriveStatus(grandTotal, remaining int64) string {
	switch {
	case remaining <= 0:
		return StatusPaid
	case remaining < grandTotal:
		return StatusPartial
	default:
		return StatusPending
	}
}

func viewFromRow(row store.Order, items []store.OrderItem) View {
	v := View{
		ID:             store.UUIDString(row.ID),
		Ref:            row.OrderRef,
		CustomerName:   store.TextValue(row.CustomerName),
		CompanyName:    store.TextValue(row.CompanyName),
		Note:           store.TextValue(row.Note),
		TaxInvoice:     row.TaxInvoice,
		Subtotal:       row.Subtotal,
		Discount:       row.Discount,
		VATAmount:      row.VATAmount,
		GrandTotal:     row.GrandTotal,
		DepositTotal:   row.DepositTotal,
		RemainingTotal: row.RemainingTotal,
		Payment:        row.Payment,
		Status:         row.Status,
		CreatedAt:      row.CreatedAt.Time,
		UpdatedAt:      row.UpdatedAt.Time,
		Items:          make([]Item, 0, len(items)),
	}
	for _, it := range items {
		var details Details
		if len(it.Details) > 0 {
			_ = json.Unmarshal(it.Details, &details)
		}
		v.Items = append(v.Items, Item{
			Key:         it.ItemKey,
			Name:        it.Name,
			Category:    it.Category,
			Variant:     store.TextValue(it.Variant),
			Qty:         int(it.Qty),
			UnitPrice:   it.UnitPrice,
			Total:       it.Total,
			Deposit:     it.Deposit,
			Remaining:   it.Remaining,
			FullPayment: it.FullPayment,
			Details:     details,
		})
	}
	return v
}
