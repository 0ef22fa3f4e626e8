package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	apperrors "github.com/thomas-vilte/shipsheet/internal/errors"
	"github.com/thomas-vilte/shipsheet/internal/logger"
	"github.com/thomas-vilte/shipsheet/internal/models"
	"github.com/thomas-vilte/shipsheet/internal/reconcile"
)

var _ Store = (*FileStore)(nil)

// sheetFile is the on-disk form of a local sheet.
type sheetFile struct {
	Rows []models.ReportRow `json:"rows"`
}

// FileStore keeps the report in a JSON file, applying plans with the same
// semantics as a spreadsheet. A missing file is an empty sheet.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Snapshot(ctx context.Context) ([]models.ReportRow, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debug(ctx, "sheet file not found, starting empty", "path", s.path)
			return nil, nil
		}
		return nil, apperrors.ErrSheetRead.WithError(err).WithContext("path", s.path)
	}

	var file sheetFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, apperrors.ErrSheetRead.WithError(fmt.Errorf("error parsing sheet file: %w", err)).
			WithContext("path", s.path)
	}

	sort.SliceStable(file.Rows, func(i, j int) bool { return file.Rows[i].RowNumber < file.Rows[j].RowNumber })
	return file.Rows, nil
}

func (s *FileStore) Apply(ctx context.Context, plan *reconcile.Plan) error {
	existing, err := s.Snapshot(ctx)
	if err != nil {
		return err
	}

	rows, err := reconcile.Apply(existing, plan)
	if err != nil {
		return err
	}

	if err := s.write(rows); err != nil {
		return apperrors.ErrSheetWrite.WithError(err).WithContext("path", s.path)
	}

	logger.Info(ctx, "sheet file updated", "path", s.path,
		"updated", plan.Stats.Updated, "inserted", plan.Stats.Inserted, "reordered", plan.Stats.Reordered)
	return nil
}

// write replaces the file atomically.
func (s *FileStore) write(rows []models.ReportRow) error {
	if rows == nil {
		rows = []models.ReportRow{}
	}
	data, err := json.MarshalIndent(sheetFile{Rows: rows}, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding sheet file: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".sheet-*.json")
	if err != nil {
		return fmt.Errorf("error creating temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("error writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("error closing temp file: %w", err)
	}
	return os.Rename(tmp.Name(), s.path)
}
