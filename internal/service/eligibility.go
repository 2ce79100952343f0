package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/LeventeLantos/whatsapp-scheduler/internal/model"
	"github.com/LeventeLantos/whatsapp-scheduler/internal/store"
)

// SendClient queues one message for delivery and returns the provider's
// message id. Acceptance is not delivery.
type SendClient interface {
	Send(ctx context.Context, phone, body string) (sid string, err error)
}

// ScheduleRequest is a candidate schedule submission, before any
// trial/subscription flags are resolved.
type ScheduleRequest struct {
	Name            string
	Phone           string
	Message         string
	Date            string // YYYY-MM-DD
	Time            string // HH:MM
	PaymentAsserted bool
}

// Engine decides whether a schedule request is permitted and persists the
// granted row. Trial/subscription state for a phone number comes from the
// first stored row with an exactly equal phone string; no normalization.
type Engine struct {
	store  store.RecordStore
	sender SendClient

	now           func() time.Time
	confirmations bool
}

func NewEngine(st store.RecordStore, sender SendClient) *Engine {
	return &Engine{
		store:         st,
		sender:        sender,
		now:           time.Now,
		confirmations: true,
	}
}

// WithClock overrides the wall-clock source.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// WithConfirmations toggles the post-grant confirmation message.
func (e *Engine) WithConfirmations(enabled bool) *Engine {
	e.confirmations = enabled
	return e
}

// Schedule validates the request, applies the trial/subscription policy
// against the current store snapshot and appends the granted row. After a
// grant it fires two best-effort sends: the message itself if it is due at
// this very minute, and a confirmation to the same number. Neither failure
// undoes the grant.
func (e *Engine) Schedule(ctx context.Context, req ScheduleRequest) (model.ScheduleRecord, error) {
	if err := validate(req); err != nil {
		return model.ScheduleRecord{}, err
	}

	snapshot, err := e.store.ListAll(ctx)
	if err != nil {
		return model.ScheduleRecord{}, err
	}

	now := e.now()
	today := now.Format(model.DateLayout)

	rec := model.ScheduleRecord{
		Name:      req.Name,
		Phone:     req.Phone,
		Message:   req.Message,
		Date:      req.Date,
		Time:      req.Time,
		TrialUsed: true,
	}

	if prior, found := priorFor(snapshot, req.Phone); found {
		rec.Subscribed = prior.Subscribed
		rec.LastPaymentDate = prior.LastPaymentDate

		if req.PaymentAsserted {
			rec.Subscribed = true
			rec.LastPaymentDate = today
		}

		if !rec.Subscribed && prior.TrialUsed {
			return model.ScheduleRecord{}, ErrTrialExhausted
		}
	} else {
		rec.Subscribed = req.PaymentAsserted
		if req.PaymentAsserted {
			rec.LastPaymentDate = today
		}
	}

	if err := e.store.Append(ctx, rec); err != nil {
		return model.ScheduleRecord{}, err
	}

	if rec.DueAt(now) {
		if _, err := e.sender.Send(ctx, rec.Phone, rec.Message); err != nil {
			slog.Warn("instant send failed", "phone", rec.Phone, "error", err)
		}
	}

	if e.confirmations {
		body := fmt.Sprintf("Hi %s, your message has been scheduled for %s at %s. Thank you for using the scheduler.",
			rec.Name, rec.Date, rec.Time)
		if _, err := e.sender.Send(ctx, rec.Phone, body); err != nil {
			slog.Warn("confirmation send failed", "phone", rec.Phone, "error", err)
		}
	}

	return rec, nil
}

// priorFor returns the first stored row for the phone. First-match keeps the
// original trial state instead of drifting with later rows.
func priorFor(snapshot []model.ScheduleRecord, phone string) (model.ScheduleRecord, bool) {
	for _, r := range snapshot {
		if r.Phone == phone {
			return r, true
		}
	}
	return model.ScheduleRecord{}, false
}

func validate(req ScheduleRequest) error {
	if req.Name == "" || req.Phone == "" || req.Message == "" || req.Date == "" || req.Time == "" {
		return fmt.Errorf("%w: all fields are required", ErrInvalidInput)
	}
	if _, err := time.Parse(model.DateLayout, req.Date); err != nil {
		return fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidInput)
	}
	if _, err := time.Parse(model.TimeLayout, req.Time); err != nil {
		return fmt.Errorf("%w: time must be HH:MM in 24-hour format", ErrInvalidInput)
	}
	return nil
}
