// Package display drives the customer-facing second screen. The cashier
// pushes cart snapshots while ringing up, order state is pushed on save,
// and the screen polls the current snapshot over HTTP. Snapshots live in
// Redis under a TTL so an abandoned sale falls back to idle on its own.
package display

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	pcache "github.com/glossydesign/pos-api/internal/cache"
	"github.com/glossydesign/pos-api/internal/events"
	"github.com/glossydesign/pos-api/internal/obs"
	"github.com/glossydesign/pos-api/internal/order"
	"github.com/glossydesign/pos-api/internal/promptpay"
	"github.com/glossydesign/pos-api/internal/queue"
	"github.com/glossydesign/pos-api/internal/store"
)

// Display states.
const (
	StateIdle  = "idle"
	StateCart  = "cart"
	StateOrder = "order"
	StatePaid  = "paid"
)

// DefaultSession is the single-counter session name.
const DefaultSession = "main"

// Line is one row on the customer screen.
type Line struct {
	Name      string `json:"name"`
	Variant   string `json:"variant,omitempty"`
	Qty       int    `json:"qty"`
	UnitPrice int64  `json:"unitPrice"`
	Total     int64  `json:"total"`
}

// Snapshot is everything the customer screen renders. Money is satang.
type Snapshot struct {
	State        string    `json:"state"`
	OrderRef     string    `json:"orderRef,omitempty"`
	Lines        []Line    `json:"lines,omitempty"`
	Subtotal     int64     `json:"subtotal"`
	Discount     int64     `json:"discount"`
	VATAmount    int64     `json:"vatAmount"`
	GrandTotal   int64     `json:"grandTotal"`
	AmountDue    int64     `json:"amountDue"`
	PromptPayQR  string    `json:"promptPayQr,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Service stores display snapshots in Redis. When Queue is set, a paid
// snapshot schedules a delayed clear so the screen returns to idle after
// the customer has had a chance to see the receipt.
type Service struct {
	Redis       *redis.Client
	TTL         time.Duration
	PromptPayID string
	Queue       *queue.Enqueuer
	ClearAfter  time.Duration
	Events      *events.Bus
	Now         func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

var errNotConfigured = errors.New("display service not configured")

// Publish stores the snapshot, generating a PromptPay QR payload when an
// amount is due and the shop has a PromptPay target configured.
func (s *Service) Publish(ctx context.Context, session string, snap Snapshot) (Snapshot, error) {
	if s == nil || s.Redis == nil {
		return Snapshot{}, errNotConfigured
	}
	if session == "" {
		session = DefaultSession
	}
	snap.UpdatedAt = s.now()
	if snap.AmountDue > 0 && s.PromptPayID != "" {
		if payload, err := promptpay.Payload(s.PromptPayID, snap.AmountDue); err == nil {
			snap.PromptPayQR = payload
		}
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return Snapshot{}, err
	}
	if err := s.Redis.Set(ctx, pcache.KeyDisplaySession(session), data, s.TTL).Err(); err != nil {
		return Snapshot{}, err
	}
	// Wake any subscribed display; pollers still see the snapshot key.
	_ = s.Redis.Publish(ctx, pcache.KeyDisplayChannel(session), data).Err()
	obs.IncDisplayPublish(snap.State)
	if snap.State == StatePaid && s.Queue != nil {
		after := s.ClearAfter
		if after <= 0 {
			after = 2 * time.Minute
		}
		_ = s.Queue.Enqueue(ctx, queue.Task{
			Kind:           queue.KindDisplayClear,
			Payload:        []byte(session),
			IdempotencyKey: session + ":" + snap.UpdatedAt.Format(time.RFC3339Nano),
			Delay:          after,
		})
	}
	return snap, nil
}

// Current returns the active snapshot, or an idle one when nothing is live.
func (s *Service) Current(ctx context.Context, session string) (Snapshot, error) {
	if s == nil || s.Redis == nil {
		return Snapshot{}, errNotConfigured
	}
	if session == "" {
		session = DefaultSession
	}
	data, err := s.Redis.Get(ctx, pcache.KeyDisplaySession(session)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Snapshot{State: StateIdle, UpdatedAt: s.now()}, nil
		}
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// Clear drops the snapshot so the screen falls back to idle immediately.
func (s *Service) Clear(ctx context.Context, session string) error {
	if s == nil || s.Redis == nil {
		return errNotConfigured
	}
	if session == "" {
		session = DefaultSession
	}
	if err := s.Redis.Del(ctx, pcache.KeyDisplaySession(session)).Err(); err != nil {
		return err
	}
	if data, err := json.Marshal(Snapshot{State: StateIdle, UpdatedAt: s.now()}); err == nil {
		_ = s.Redis.Publish(ctx, pcache.KeyDisplayChannel(session), data).Err()
	}
	return nil
}

// PublishOrder pushes a saved order to the screen. Open balances keep a QR
// visible for the outstanding amount; settled orders show a receipt state.
func (s *Service) PublishOrder(ctx context.Context, view order.View) error {
	if s == nil || s.Redis == nil {
		return errNotConfigured
	}
	state := StateOrder
	if view.Status == order.StatusPaid {
		state = StatePaid
	}
	lines := make([]Line, 0, len(view.Items))
	for _, item := range view.Items {
		lines = append(lines, Line{
			Name:      item.Name,
			Variant:   item.Variant,
			Qty:       item.Qty,
			UnitPrice: item.UnitPrice,
			Total:     item.Total,
		})
	}
	snap := Snapshot{
		State:      state,
		OrderRef:   view.Ref,
		Lines:      lines,
		Subtotal:   view.Subtotal,
		Discount:   view.Discount,
		VATAmount:  view.VATAmount,
		GrandTotal: view.GrandTotal,
	}
	if view.Payment == order.MethodPromptPay && view.RemainingTotal > 0 {
		snap.AmountDue = view.RemainingTotal
	}
	if _, err := s.Publish(ctx, DefaultSession, snap); err != nil {
		return err
	}
	if s.Events != nil {
		if orderID, err := store.ToUUID(view.ID); err == nil {
			_, _ = s.Events.Emit(ctx, events.TopicDisplayUpdated, orderID, map[string]any{
				"session":  DefaultSession,
				"orderRef": view.Ref,
				"state":    state,
			})
		}
	}
	return nil
}
