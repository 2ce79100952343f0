package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/LeventeLantos/whatsapp-scheduler/internal/model"
)

type RedisLog struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisLog(rdb *redis.Client, ttl time.Duration) *RedisLog {
	return &RedisLog{rdb: rdb, ttl: ttl}
}

type sentValue struct {
	Sid    string    `json:"sid"`
	Name   string    `json:"name"`
	SentAt time.Time `json:"sentAt"`
}

// RecordSent stores the provider sid under a phone+slot key. Later sends of
// the same slot overwrite the entry, matching the at-most-one-per-minute
// view a reader cares about.
func (l *RedisLog) RecordSent(ctx context.Context, rec model.ScheduleRecord, sid string, sentAt time.Time) error {
	key := fmt.Sprintf("sent:%s:%sT%s", rec.Phone, rec.Date, rec.Time)
	val := sentValue{
		Sid:    sid,
		Name:   rec.Name,
		SentAt: sentAt.UTC(),
	}

	b, err := json.Marshal(val)
	if err != nil {
		return err
	}

	return l.rdb.Set(ctx, key, b, l.ttl).Err()
}

var _ DeliveryLog = (*RedisLog)(nil)
