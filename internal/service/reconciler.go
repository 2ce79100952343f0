package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/LeventeLantos/whatsapp-scheduler/internal/model"
	"github.com/LeventeLantos/whatsapp-scheduler/internal/store"
)

// Report summarizes one reconciliation pass.
type Report struct {
	Scanned int `json:"scanned"`
	Due     int `json:"due"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
}

// Reconciler scans the full record snapshot and attempts delivery for every
// row due at the given instant. Rows are processed sequentially in store
// order; a failed send is logged and counted but never stops the batch.
// There is no sent-marker, so a minute re-scanned by a later pass sends
// again.
type Reconciler struct {
	store  store.RecordStore
	sender SendClient

	onSent   func(ctx context.Context, rec model.ScheduleRecord, sid string, at time.Time) error
	onFailed func(ctx context.Context, rec model.ScheduleRecord, sendErr error) error
}

func NewReconciler(st store.RecordStore, sender SendClient) *Reconciler {
	return &Reconciler{store: st, sender: sender}
}

func (r *Reconciler) WithHooks(
	onSent func(ctx context.Context, rec model.ScheduleRecord, sid string, at time.Time) error,
	onFailed func(ctx context.Context, rec model.ScheduleRecord, sendErr error) error,
) *Reconciler {
	r.onSent = onSent
	r.onFailed = onFailed
	return r
}

// Run executes one pass at the given wall-clock instant. A store read
// failure aborts the pass; delivery failures do not.
func (r *Reconciler) Run(ctx context.Context, now time.Time) (Report, error) {
	snapshot, err := r.store.ListAll(ctx)
	if err != nil {
		return Report{}, err
	}

	rep := Report{Scanned: len(snapshot)}

	for _, rec := range snapshot {
		if !rec.DueAt(now) {
			continue
		}
		rep.Due++

		sid, err := r.sender.Send(ctx, rec.Phone, rec.Message)
		if err != nil {
			rep.Failed++
			slog.Error("delivery failed", "name", rec.Name, "phone", rec.Phone, "error", err)
			if r.onFailed != nil {
				_ = r.onFailed(ctx, rec, fmt.Errorf("%w: %v", ErrDeliveryFailed, err))
			}
			continue
		}

		rep.Sent++
		slog.Info("message sent", "name", rec.Name, "phone", rec.Phone, "sid", sid)
		if r.onSent != nil {
			_ = r.onSent(ctx, rec, sid, now)
		}
	}

	return rep, nil
}
