package store

import (
	"context"
	"errors"

	"github.com/LeventeLantos/whatsapp-scheduler/internal/model"
)

// ErrUnavailable wraps every read/write failure of a record store. Callers
// match it with errors.Is and abort the enclosing operation; no retries.
var ErrUnavailable = errors.New("record store unavailable")

// RecordStore is the append-only row store holding schedule requests.
// ListAll returns the full snapshot in insertion order. There are no
// partial updates, transactions or locks; concurrent appends may interleave.
type RecordStore interface {
	ListAll(ctx context.Context) ([]model.ScheduleRecord, error)
	Append(ctx context.Context, rec model.ScheduleRecord) error
}
