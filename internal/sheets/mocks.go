package sheets

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/thomas-vilte/shipsheet/internal/models"
	"github.com/thomas-vilte/shipsheet/internal/reconcile"
	gsheets "google.golang.org/api/sheets/v4"
)

type MockSpreadsheetAPI struct {
	mock.Mock
}

func (m *MockSpreadsheetAPI) SheetID(ctx context.Context, spreadsheetID, title string) (int64, error) {
	args := m.Called(ctx, spreadsheetID, title)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSpreadsheetAPI) Read(ctx context.Context, spreadsheetID, rng string) ([][]interface{}, error) {
	args := m.Called(ctx, spreadsheetID, rng)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]interface{}), args.Error(1)
}

func (m *MockSpreadsheetAPI) WriteValues(ctx context.Context, spreadsheetID string, data []*gsheets.ValueRange) error {
	args := m.Called(ctx, spreadsheetID, data)
	return args.Error(0)
}

func (m *MockSpreadsheetAPI) BatchUpdate(ctx context.Context, spreadsheetID string, requests []*gsheets.Request) error {
	args := m.Called(ctx, spreadsheetID, requests)
	return args.Error(0)
}

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Snapshot(ctx context.Context) ([]models.ReportRow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ReportRow), args.Error(1)
}

func (m *MockStore) Apply(ctx context.Context, plan *reconcile.Plan) error {
	args := m.Called(ctx, plan)
	return args.Error(0)
}
