package cache

import (
	"context"
	"time"

	"github.com/LeventeLantos/whatsapp-scheduler/internal/model"
)

// DeliveryLog records successful dispatches for later inspection. It is an
// observability aid, not a dedup gate: reconciliation never consults it.
type DeliveryLog interface {
	RecordSent(ctx context.Context, rec model.ScheduleRecord, sid string, sentAt time.Time) error
}
