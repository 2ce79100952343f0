package store

import (
	"context"
	"fmt"

	"google.golang.org/api/sheets/v4"

	"github.com/LeventeLantos/whatsapp-scheduler/internal/model"
)

// SheetsStore keeps schedule records as rows of a Google Sheets worksheet,
// columns A:H in model.Columns order. Row 1 is the header and is skipped.
type SheetsStore struct {
	svc           *sheets.Service
	spreadsheetID string
	sheetName     string
}

func NewSheetsStore(svc *sheets.Service, spreadsheetID, sheetName string) *SheetsStore {
	if sheetName == "" {
		sheetName = "Sheet1"
	}
	return &SheetsStore{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}
}

func (s *SheetsStore) dataRange() string {
	return fmt.Sprintf("%s!A2:H", s.sheetName)
}

func (s *SheetsStore) ListAll(ctx context.Context) ([]model.ScheduleRecord, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.dataRange()).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: reading sheet %s: %v", ErrUnavailable, s.sheetName, err)
	}

	var out []model.ScheduleRecord
	for _, row := range resp.Values {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = fmt.Sprint(v)
		}
		out = append(out, model.FromRow(cells))
	}
	return out, nil
}

func (s *SheetsStore) Append(ctx context.Context, rec model.ScheduleRecord) error {
	row := rec.ToRow()
	cells := make([]interface{}, len(row))
	for i, v := range row {
		cells[i] = v
	}

	vr := &sheets.ValueRange{Values: [][]interface{}{cells}}
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, s.dataRange(), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("%w: appending to sheet %s: %v", ErrUnavailable, s.sheetName, err)
	}
	return nil
}

var _ RecordStore = (*SheetsStore)(nil)
