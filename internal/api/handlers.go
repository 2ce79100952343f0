package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/LeventeLantos/whatsapp-scheduler/internal/model"
	"github.com/LeventeLantos/whatsapp-scheduler/internal/scheduler"
	"github.com/LeventeLantos/whatsapp-scheduler/internal/service"
	"github.com/LeventeLantos/whatsapp-scheduler/internal/store"
)

type Handler struct {
	sched      *scheduler.Scheduler
	engine     *service.Engine
	reconciler *service.Reconciler
	store      store.RecordStore

	now func() time.Time
}

func NewHandler(s *scheduler.Scheduler, e *service.Engine, r *service.Reconciler, st store.RecordStore) *Handler {
	return &Handler{
		sched:      s,
		engine:     e,
		reconciler: r,
		store:      st,
		now:        time.Now,
	}
}

// WithClock overrides the wall-clock source used by the manual reconcile
// trigger.
func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	return h
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) SchedulerStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"running": h.sched.IsRunning()})
}

func (h *Handler) SchedulerStart(w http.ResponseWriter, r *http.Request) {
	h.sched.Start()
	writeJSON(w, http.StatusOK, map[string]any{"running": h.sched.IsRunning()})
}

func (h *Handler) SchedulerStop(w http.ResponseWriter, r *http.Request) {
	h.sched.Stop()
	writeJSON(w, http.StatusOK, map[string]any{"running": h.sched.IsRunning()})
}

type scheduleRequest struct {
	Name            string `json:"name"`
	Phone           string `json:"phone"`
	Message         string `json:"message"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	PaymentAsserted bool   `json:"paymentAsserted"`
}

type scheduleView struct {
	Name            string `json:"name"`
	Phone           string `json:"phone"`
	Message         string `json:"message"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	TrialUsed       bool   `json:"trialUsed"`
	Subscribed      bool   `json:"subscribed"`
	LastPaymentDate string `json:"lastPaymentDate,omitempty"`
}

func viewOf(rec model.ScheduleRecord) scheduleView {
	return scheduleView{
		Name:            rec.Name,
		Phone:           rec.Phone,
		Message:         rec.Message,
		Date:            rec.Date,
		Time:            rec.Time,
		TrialUsed:       rec.TrialUsed,
		Subscribed:      rec.Subscribed,
		LastPaymentDate: rec.LastPaymentDate,
	}
}

// CreateSchedule is the submission surface: validate, apply the trial
// policy, persist the row.
func (h *Handler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json body"})
		return
	}

	rec, err := h.engine.Schedule(r.Context(), service.ScheduleRequest{
		Name:            req.Name,
		Phone:           req.Phone,
		Message:         req.Message,
		Date:            req.Date,
		Time:            req.Time,
		PaymentAsserted: req.PaymentAsserted,
	})

	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, viewOf(rec))
	case errors.Is(err, service.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
	case errors.Is(err, service.ErrTrialExhausted):
		writeJSON(w, http.StatusForbidden, map[string]any{
			"error":   "trial_exhausted",
			"message": "Your free trial has been used. Subscribe and resubmit with paymentAsserted=true.",
		})
	case errors.Is(err, store.ErrUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
	}
}

func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	recs, err := h.store.ListAll(r.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrUnavailable) {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, map[string]any{"error": err.Error()})
		return
	}

	items := make([]scheduleView, 0, len(recs))
	for _, rec := range recs {
		items = append(items, viewOf(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// Reconcile runs one pass immediately, independent of the interval loop.
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	rep, err := h.reconciler.Run(r.Context(), h.now())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrUnavailable) {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, map[string]any{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, rep)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
