package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/LeventeLantos/whatsapp-scheduler/internal/model"
	"github.com/LeventeLantos/whatsapp-scheduler/internal/store"
)

type fakeStore struct {
	rows      []model.ScheduleRecord
	listErr   error
	appendErr error

	appended []model.ScheduleRecord
}

var _ store.RecordStore = (*fakeStore)(nil)

func (f *fakeStore) ListAll(ctx context.Context) ([]model.ScheduleRecord, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.rows, nil
}

func (f *fakeStore) Append(ctx context.Context, rec model.ScheduleRecord) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appended = append(f.appended, rec)
	return nil
}

type sentMsg struct {
	Phone string
	Body  string
}

type fakeSender struct {
	sent    []sentMsg
	failFor map[string]error // phone -> error
}

func (f *fakeSender) Send(ctx context.Context, phone, body string) (string, error) {
	if err, ok := f.failFor[phone]; ok && err != nil {
		return "", err
	}
	f.sent = append(f.sent, sentMsg{Phone: phone, Body: body})
	return fmt.Sprintf("SM%d", len(f.sent)), nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

var testNow = time.Date(2024, 1, 1, 9, 0, 0, 0, time.Local)

func validRequest() ScheduleRequest {
	return ScheduleRequest{
		Name:    "Asha",
		Phone:   "911234",
		Message: "happy birthday",
		Date:    "2024-06-01",
		Time:    "08:30",
	}
}

func TestSchedule_UnknownPhone_GrantsTrial(t *testing.T) {
	t.Parallel()

	st := &fakeStore{}
	sender := &fakeSender{}
	e := NewEngine(st, sender).WithClock(fixedClock(testNow)).WithConfirmations(false)

	rec, err := e.Schedule(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Schedule() error: %v", err)
	}

	if !rec.TrialUsed {
		t.Fatalf("expected TrialUsed=true on granted row, got %+v", rec)
	}
	if rec.Subscribed {
		t.Fatalf("expected Subscribed=false without payment, got %+v", rec)
	}
	if rec.LastPaymentDate != "" {
		t.Fatalf("expected empty LastPaymentDate, got %q", rec.LastPaymentDate)
	}
	if len(st.appended) != 1 {
		t.Fatalf("expected 1 appended row, got %d", len(st.appended))
	}
}

func TestSchedule_PriorRowWithBlankFlags_GrantsTrial(t *testing.T) {
	t.Parallel()

	// A row written before the trial columns existed: blank flags read as
	// false, so the trial is still available.
	st := &fakeStore{rows: []model.ScheduleRecord{
		model.FromRow([]string{"Asha", "911234", "old msg", "2023-12-01", "10:00", "", ""}),
	}}
	e := NewEngine(st, &fakeSender{}).WithClock(fixedClock(testNow)).WithConfirmations(false)

	rec, err := e.Schedule(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Schedule() error: %v", err)
	}
	if !rec.TrialUsed {
		t.Fatalf("expected TrialUsed=true on granted row, got %+v", rec)
	}
	if rec.Subscribed {
		t.Fatalf("expected Subscribed=false, got %+v", rec)
	}
	if len(st.appended) != 1 {
		t.Fatalf("expected 1 appended row, got %d", len(st.appended))
	}
}

func TestSchedule_TrialExhausted_Rejects(t *testing.T) {
	t.Parallel()

	st := &fakeStore{rows: []model.ScheduleRecord{
		{Phone: "911234", TrialUsed: true, Subscribed: false},
	}}
	sender := &fakeSender{}
	e := NewEngine(st, sender).WithClock(fixedClock(testNow))

	_, err := e.Schedule(context.Background(), validRequest())
	if !errors.Is(err, ErrTrialExhausted) {
		t.Fatalf("expected ErrTrialExhausted, got: %v", err)
	}
	if len(st.appended) != 0 {
		t.Fatalf("expected no appended rows on rejection, got %d", len(st.appended))
	}
	if len(sender.sent) != 0 {
		t.Fatalf("expected no sends on rejection, got %d", len(sender.sent))
	}
}

func TestSchedule_SubscribedAlwaysGrants(t *testing.T) {
	t.Parallel()

	st := &fakeStore{rows: []model.ScheduleRecord{
		{Phone: "911234", TrialUsed: true, Subscribed: true, LastPaymentDate: "2023-12-15"},
	}}
	e := NewEngine(st, &fakeSender{}).WithClock(fixedClock(testNow)).WithConfirmations(false)

	rec, err := e.Schedule(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Schedule() error: %v", err)
	}
	if !rec.Subscribed {
		t.Fatalf("expected inherited Subscribed=true, got %+v", rec)
	}
	if rec.LastPaymentDate != "2023-12-15" {
		t.Fatalf("expected inherited LastPaymentDate, got %q", rec.LastPaymentDate)
	}
}

func TestSchedule_PaymentAsserted_OverridesInheritedFlags(t *testing.T) {
	t.Parallel()

	st := &fakeStore{rows: []model.ScheduleRecord{
		{Phone: "911234", TrialUsed: true, Subscribed: false},
	}}
	e := NewEngine(st, &fakeSender{}).WithClock(fixedClock(testNow)).WithConfirmations(false)

	req := validRequest()
	req.PaymentAsserted = true

	rec, err := e.Schedule(context.Background(), req)
	if err != nil {
		t.Fatalf("Schedule() error: %v", err)
	}
	if !rec.Subscribed {
		t.Fatalf("expected Subscribed=true after payment, got %+v", rec)
	}
	if rec.LastPaymentDate != "2024-01-01" {
		t.Fatalf("expected LastPaymentDate=today, got %q", rec.LastPaymentDate)
	}

	// Prior rows stay untouched; only the new row carries the override.
	if st.rows[0].Subscribed {
		t.Fatalf("prior row must not be mutated")
	}
}

func TestSchedule_FirstMatchWins(t *testing.T) {
	t.Parallel()

	// First row for the phone says subscribed; a later row says not. The
	// first row governs.
	st := &fakeStore{rows: []model.ScheduleRecord{
		{Phone: "911234", TrialUsed: true, Subscribed: true},
		{Phone: "911234", TrialUsed: true, Subscribed: false},
	}}
	e := NewEngine(st, &fakeSender{}).WithClock(fixedClock(testNow)).WithConfirmations(false)

	rec, err := e.Schedule(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Schedule() error: %v", err)
	}
	if !rec.Subscribed {
		t.Fatalf("expected first matching row to govern, got %+v", rec)
	}
}

func TestSchedule_PhoneMatchIsExactString(t *testing.T) {
	t.Parallel()

	st := &fakeStore{rows: []model.ScheduleRecord{
		{Phone: "+91911234", TrialUsed: true, Subscribed: false},
	}}
	e := NewEngine(st, &fakeSender{}).WithClock(fixedClock(testNow)).WithConfirmations(false)

	// "911234" != "+91911234": treated as a new recipient, trial granted.
	rec, err := e.Schedule(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Schedule() error: %v", err)
	}
	if !rec.TrialUsed || rec.Subscribed {
		t.Fatalf("expected fresh trial row, got %+v", rec)
	}
}

func TestSchedule_InvalidInput(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*ScheduleRequest)
	}{
		{"missing name", func(r *ScheduleRequest) { r.Name = "" }},
		{"missing phone", func(r *ScheduleRequest) { r.Phone = "" }},
		{"missing message", func(r *ScheduleRequest) { r.Message = "" }},
		{"missing date", func(r *ScheduleRequest) { r.Date = "" }},
		{"missing time", func(r *ScheduleRequest) { r.Time = "" }},
		{"bad date", func(r *ScheduleRequest) { r.Date = "01/06/2024" }},
		{"bad time", func(r *ScheduleRequest) { r.Time = "8:30 PM" }},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			st := &fakeStore{}
			e := NewEngine(st, &fakeSender{}).WithClock(fixedClock(testNow))

			req := validRequest()
			tc.mutate(&req)

			_, err := e.Schedule(context.Background(), req)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got: %v", err)
			}
			if len(st.appended) != 0 {
				t.Fatalf("store must not be touched on invalid input")
			}
		})
	}
}

func TestSchedule_StoreErrorsPropagate(t *testing.T) {
	t.Parallel()

	t.Run("list failure", func(t *testing.T) {
		t.Parallel()

		st := &fakeStore{listErr: fmt.Errorf("%w: boom", store.ErrUnavailable)}
		e := NewEngine(st, &fakeSender{}).WithClock(fixedClock(testNow))

		_, err := e.Schedule(context.Background(), validRequest())
		if !errors.Is(err, store.ErrUnavailable) {
			t.Fatalf("expected ErrUnavailable, got: %v", err)
		}
	})

	t.Run("append failure", func(t *testing.T) {
		t.Parallel()

		st := &fakeStore{appendErr: fmt.Errorf("%w: boom", store.ErrUnavailable)}
		e := NewEngine(st, &fakeSender{}).WithClock(fixedClock(testNow))

		_, err := e.Schedule(context.Background(), validRequest())
		if !errors.Is(err, store.ErrUnavailable) {
			t.Fatalf("expected ErrUnavailable, got: %v", err)
		}
	})
}

func TestSchedule_InstantSendWhenDueNow(t *testing.T) {
	t.Parallel()

	st := &fakeStore{}
	sender := &fakeSender{}
	e := NewEngine(st, sender).WithClock(fixedClock(testNow)).WithConfirmations(false)

	req := validRequest()
	req.Date = "2024-01-01"
	req.Time = "09:00"

	if _, err := e.Schedule(context.Background(), req); err != nil {
		t.Fatalf("Schedule() error: %v", err)
	}

	if len(sender.sent) != 1 {
		t.Fatalf("expected exactly 1 instant send, got %d", len(sender.sent))
	}
	if sender.sent[0].Body != "happy birthday" {
		t.Fatalf("expected scheduled body to be sent, got %q", sender.sent[0].Body)
	}
}

func TestSchedule_ConfirmationSentAfterGrant(t *testing.T) {
	t.Parallel()

	st := &fakeStore{}
	sender := &fakeSender{}
	e := NewEngine(st, sender).WithClock(fixedClock(testNow))

	if _, err := e.Schedule(context.Background(), validRequest()); err != nil {
		t.Fatalf("Schedule() error: %v", err)
	}

	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 confirmation send, got %d", len(sender.sent))
	}
	got := sender.sent[0]
	if got.Phone != "911234" {
		t.Fatalf("expected confirmation to recipient, got %q", got.Phone)
	}
	for _, part := range []string{"Asha", "2024-06-01", "08:30"} {
		if !strings.Contains(got.Body, part) {
			t.Fatalf("expected confirmation body to mention %q, got %q", part, got.Body)
		}
	}
}

func TestSchedule_ConfirmationFailureDoesNotFailGrant(t *testing.T) {
	t.Parallel()

	st := &fakeStore{}
	sender := &fakeSender{failFor: map[string]error{"911234": errors.New("provider down")}}
	e := NewEngine(st, sender).WithClock(fixedClock(testNow))

	rec, err := e.Schedule(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Schedule() error: %v", err)
	}
	if rec.Phone != "911234" {
		t.Fatalf("expected granted record, got %+v", rec)
	}
	if len(st.appended) != 1 {
		t.Fatalf("expected row appended despite confirmation failure")
	}
}
