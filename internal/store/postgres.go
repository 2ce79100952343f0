package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/LeventeLantos/whatsapp-scheduler/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS schedule_records (
    id                BIGSERIAL PRIMARY KEY,
    name              TEXT NOT NULL,
    phone             TEXT NOT NULL,
    message           TEXT NOT NULL,
    scheduled_date    TEXT NOT NULL,
    scheduled_time    TEXT NOT NULL,
    trial_used        BOOLEAN NOT NULL DEFAULT FALSE,
    subscribed        BOOLEAN NOT NULL DEFAULT FALSE,
    last_payment_date TEXT NOT NULL DEFAULT '',
    created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// PostgresStore is the alternative record-store backend: the same
// append-only log of schedule requests kept in a table instead of a sheet.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the schedule_records table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("%w: ensuring schema: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]model.ScheduleRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, phone, message, scheduled_date, scheduled_time,
		       trial_used, subscribed, last_payment_date
		FROM schedule_records
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: listing records: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var out []model.ScheduleRecord
	for rows.Next() {
		var r model.ScheduleRecord
		if err := rows.Scan(
			&r.Name,
			&r.Phone,
			&r.Message,
			&r.Date,
			&r.Time,
			&r.TrialUsed,
			&r.Subscribed,
			&r.LastPaymentDate,
		); err != nil {
			return nil, fmt.Errorf("%w: scanning record: %v", ErrUnavailable, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: listing records: %v", ErrUnavailable, err)
	}
	return out, nil
}

func (s *PostgresStore) Append(ctx context.Context, rec model.ScheduleRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO schedule_records
			(name, phone, message, scheduled_date, scheduled_time,
			 trial_used, subscribed, last_payment_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		rec.Name,
		rec.Phone,
		rec.Message,
		rec.Date,
		rec.Time,
		rec.TrialUsed,
		rec.Subscribed,
		rec.LastPaymentDate,
	)
	if err != nil {
		return fmt.Errorf("%w: appending record: %v", ErrUnavailable, err)
	}
	return nil
}

var _ RecordStore = (*PostgresStore)(nil)
