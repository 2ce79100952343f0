package model

import "time"

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Columns is the fixed sheet column order. Append must write rows in this
// order; reads tolerate missing trailing columns.
var Columns = []string{
	"Name",
	"Phone Number",
	"Message",
	"Date",
	"Time",
	"Trial Used",
	"Subscribed",
	"Last Payment Date",
}

// ScheduleRecord is one row of the record store: one scheduled message for
// one recipient. Rows are append-only and never mutated; trial/subscription
// state for a phone number is derived from its first stored row.
type ScheduleRecord struct {
	Name            string
	Phone           string
	Message         string
	Date            string // YYYY-MM-DD
	Time            string // HH:MM
	TrialUsed       bool
	Subscribed      bool
	LastPaymentDate string
}

// DueAt reports whether the record's date and time equal now at minute
// granularity. Due-ness is transient and never persisted.
func (r ScheduleRecord) DueAt(now time.Time) bool {
	return r.Date == now.Format(DateLayout) && r.Time == now.Format(TimeLayout)
}

// FlagString encodes a trial/subscription flag the way the sheet stores it.
func FlagString(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// ParseFlag decodes a stored flag. Anything other than "yes" (any case) is
// false, so absent or empty cells read as false.
func ParseFlag(s string) bool {
	switch s {
	case "Yes", "yes", "YES":
		return true
	default:
		return false
	}
}

// ToRow renders the record in the fixed column order.
func (r ScheduleRecord) ToRow() []string {
	return []string{
		r.Name,
		r.Phone,
		r.Message,
		r.Date,
		r.Time,
		FlagString(r.TrialUsed),
		FlagString(r.Subscribed),
		r.LastPaymentDate,
	}
}

// FromRow builds a record from a stored row. Short rows are padded with
// empty cells so sheets without the trial/subscription columns still load.
func FromRow(cells []string) ScheduleRecord {
	cell := func(i int) string {
		if i < len(cells) {
			return cells[i]
		}
		return ""
	}
	return ScheduleRecord{
		Name:            cell(0),
		Phone:           cell(1),
		Message:         cell(2),
		Date:            cell(3),
		Time:            cell(4),
		TrialUsed:       ParseFlag(cell(5)),
		Subscribed:      ParseFlag(cell(6)),
		LastPaymentDate: cell(7),
	}
}
