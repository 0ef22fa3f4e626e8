package sheets

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/thomas-vilte/shipsheet/internal/errors"
	"github.com/thomas-vilte/shipsheet/internal/logger"
	"github.com/thomas-vilte/shipsheet/internal/models"
	"github.com/thomas-vilte/shipsheet/internal/reconcile"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

var _ Store = (*GoogleStore)(nil)

// SpreadsheetAPI is the slice of the Sheets API the store needs.
type SpreadsheetAPI interface {
	SheetID(ctx context.Context, spreadsheetID, title string) (int64, error)
	Read(ctx context.Context, spreadsheetID, rng string) ([][]interface{}, error)
	WriteValues(ctx context.Context, spreadsheetID string, data []*gsheets.ValueRange) error
	BatchUpdate(ctx context.Context, spreadsheetID string, requests []*gsheets.Request) error
}

// GoogleStore keeps the report in one tab of a Google spreadsheet.
type GoogleStore struct {
	api           SpreadsheetAPI
	spreadsheetID string
	sheetName     string
	codec         *Codec

	needsHeader bool
}

// NewGoogleService authenticates with a service account key file, or with
// application default credentials when credentialsFile is empty.
func NewGoogleService(ctx context.Context, credentialsFile string) (SpreadsheetAPI, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	opts = append(opts, option.WithScopes(gsheets.SpreadsheetsScope))

	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, apperrors.ErrSheetRead.WithError(err).
			WithSuggestion("Point GOOGLE_APPLICATION_CREDENTIALS or sheet.credentials_file at a service account key")
	}
	return &serviceAPI{svc: svc}, nil
}

func NewGoogleStore(api SpreadsheetAPI, spreadsheetID, sheetName string, codec *Codec) *GoogleStore {
	return &GoogleStore{
		api:           api,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		codec:         codec,
	}
}

func (s *GoogleStore) Snapshot(ctx context.Context) ([]models.ReportRow, error) {
	if _, err := s.api.SheetID(ctx, s.spreadsheetID, s.sheetName); err != nil {
		return nil, err
	}

	values, err := s.api.Read(ctx, s.spreadsheetID, s.rangeFrom(models.HeaderRow))
	if err != nil {
		return nil, err
	}

	s.needsHeader = len(values) == 0 || isBlank(values[0])

	var rows []models.ReportRow
	for i := 1; i < len(values); i++ {
		rowNumber := i + models.HeaderRow
		row, ok, err := s.codec.Decode(values[i], rowNumber)
		if err != nil {
			return nil, apperrors.ErrSheetRead.WithError(err).WithContext("sheet", s.sheetName)
		}
		if ok {
			rows = append(rows, row)
		}
	}

	logger.Debug(ctx, "sheet snapshot read", "sheet", s.sheetName, "count", len(rows), "total", len(values))
	return rows, nil
}

func (s *GoogleStore) Apply(ctx context.Context, plan *reconcile.Plan) error {
	if s.needsHeader {
		if err := s.api.WriteValues(ctx, s.spreadsheetID, []*gsheets.ValueRange{
			s.valueRange(models.HeaderRow, models.HeaderRow, [][]interface{}{s.codec.Header()}),
		}); err != nil {
			return err
		}
		s.needsHeader = false
	}

	if plan.Empty() {
		return nil
	}

	if err := s.applyUpdates(ctx, plan.Operations); err != nil {
		return err
	}
	if err := s.applyInserts(ctx, plan.Operations); err != nil {
		return err
	}
	if err := s.applyReorders(ctx, plan.Reorders); err != nil {
		return err
	}

	logger.Info(ctx, "sheet updated", "sheet", s.sheetName,
		"updated", plan.Stats.Updated, "inserted", plan.Stats.Inserted, "reordered", plan.Stats.Reordered)
	return nil
}

func (s *GoogleStore) applyUpdates(ctx context.Context, ops []models.SyncOperation) error {
	var data []*gsheets.ValueRange
	for _, op := range ops {
		if op.Kind != models.OperationUpdate {
			continue
		}
		data = append(data, s.valueRange(op.TargetRowNumber, op.TargetRowNumber,
			[][]interface{}{s.codec.Encode(op.Row)}))
	}
	if len(data) == 0 {
		return nil
	}
	return s.api.WriteValues(ctx, s.spreadsheetID, data)
}

// applyInserts opens blank rows bottom-up in one batch, then fills them.
// After every insert, a batch anchored at a sits below all rows inserted at
// smaller anchors.
func (s *GoogleStore) applyInserts(ctx context.Context, ops []models.SyncOperation) error {
	batches := reconcile.InsertBatches(ops)
	if len(batches) == 0 {
		return nil
	}

	sheetID, err := s.api.SheetID(ctx, s.spreadsheetID, s.sheetName)
	if err != nil {
		return err
	}

	requests := make([]*gsheets.Request, 0, len(batches))
	for _, b := range batches {
		requests = append(requests, &gsheets.Request{
			InsertDimension: &gsheets.InsertDimensionRequest{
				Range: &gsheets.DimensionRange{
					SheetId:         sheetID,
					Dimension:       "ROWS",
					StartIndex:      int64(b.Anchor),
					EndIndex:        int64(b.Anchor + len(b.Rows)),
					ForceSendFields: []string{"SheetId"},
				},
				// rows under the header take the body formatting
				InheritFromBefore: b.Anchor > models.HeaderRow,
			},
		})
	}
	if err := s.api.BatchUpdate(ctx, s.spreadsheetID, requests); err != nil {
		return err
	}

	var data []*gsheets.ValueRange
	for _, b := range batches {
		shift := 0
		for _, other := range batches {
			if other.Anchor < b.Anchor {
				shift += len(other.Rows)
			}
		}
		first := b.Anchor + shift + 1
		values := make([][]interface{}, len(b.Rows))
		for i, row := range b.Rows {
			values[i] = s.codec.Encode(row)
		}
		data = append(data, s.valueRange(first, first+len(b.Rows)-1, values))
	}
	return s.api.WriteValues(ctx, s.spreadsheetID, data)
}

// applyReorders reads each block with formulas and writes it back permuted,
// so operator columns inside the mapped width travel with their row.
func (s *GoogleStore) applyReorders(ctx context.Context, reorders []models.BlockReorder) error {
	var data []*gsheets.ValueRange
	for _, r := range reorders {
		if err := r.Validate(); err != nil {
			return apperrors.ErrInvalidReorder.WithError(err).WithContext("repository", r.Repository)
		}

		current, err := s.api.Read(ctx, s.spreadsheetID, s.rangeOf(r.StartRow, r.EndRow))
		if err != nil {
			return err
		}

		width := s.codec.Width()
		values := make([][]interface{}, len(r.SortedOriginalRowNumbers))
		for i, from := range r.SortedOriginalRowNumbers {
			var src []interface{}
			if idx := from - r.StartRow; idx < len(current) {
				src = current[idx]
			}
			values[i] = padRow(src, width)
		}
		data = append(data, s.valueRange(r.StartRow, r.EndRow, values))
	}
	if len(data) == 0 {
		return nil
	}
	return s.api.WriteValues(ctx, s.spreadsheetID, data)
}

func (s *GoogleStore) valueRange(first, last int, values [][]interface{}) *gsheets.ValueRange {
	return &gsheets.ValueRange{
		Range:          s.rangeOf(first, last),
		MajorDimension: "ROWS",
		Values:         values,
	}
}

func (s *GoogleStore) rangeOf(first, last int) string {
	return fmt.Sprintf("%s!A%d:%s%d", quoteSheet(s.sheetName), first, s.codec.LastColumn(), last)
}

func (s *GoogleStore) rangeFrom(first int) string {
	return fmt.Sprintf("%s!A%d:%s", quoteSheet(s.sheetName), first, s.codec.LastColumn())
}

func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// padRow fills trailing cells with "" so shorter rows clear what they
// overwrite.
func padRow(cells []interface{}, width int) []interface{} {
	out := make([]interface{}, width)
	for i := range out {
		if i < len(cells) && cells[i] != nil {
			out[i] = cells[i]
		} else {
			out[i] = ""
		}
	}
	return out
}

func isBlank(cells []interface{}) bool {
	for _, c := range cells {
		if s, ok := c.(string); !ok || strings.TrimSpace(s) != "" {
			return false
		}
	}
	return true
}

type serviceAPI struct {
	svc *gsheets.Service
}

func (a *serviceAPI) SheetID(ctx context.Context, spreadsheetID, title string) (int64, error) {
	ss, err := a.svc.Spreadsheets.Get(spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, apperrors.ErrSheetRead.WithError(err).WithContext("spreadsheet", spreadsheetID)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			return sh.Properties.SheetId, nil
		}
	}
	return 0, apperrors.ErrSheetNotFound.WithContext("sheet", title)
}

func (a *serviceAPI) Read(ctx context.Context, spreadsheetID, rng string) ([][]interface{}, error) {
	resp, err := a.svc.Spreadsheets.Values.Get(spreadsheetID, rng).
		ValueRenderOption("FORMULA").
		DateTimeRenderOption("SERIAL_NUMBER").
		Context(ctx).Do()
	if err != nil {
		return nil, apperrors.ErrSheetRead.WithError(err).WithContext("range", rng)
	}
	return resp.Values, nil
}

func (a *serviceAPI) WriteValues(ctx context.Context, spreadsheetID string, data []*gsheets.ValueRange) error {
	_, err := a.svc.Spreadsheets.Values.BatchUpdate(spreadsheetID, &gsheets.BatchUpdateValuesRequest{
		ValueInputOption: "USER_ENTERED",
		Data:             data,
	}).Context(ctx).Do()
	if err != nil {
		return apperrors.ErrSheetWrite.WithError(err).WithContext("spreadsheet", spreadsheetID)
	}
	return nil
}

func (a *serviceAPI) BatchUpdate(ctx context.Context, spreadsheetID string, requests []*gsheets.Request) error {
	_, err := a.svc.Spreadsheets.BatchUpdate(spreadsheetID, &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	if err != nil {
		return apperrors.ErrSheetWrite.WithError(err).WithContext("spreadsheet", spreadsheetID)
	}
	return nil
}
