// Package jsonio moves change-request records and report rows in and out of
// JSON documents, for offline runs and exports.
package jsonio

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	apperrors "github.com/thomas-vilte/shipsheet/internal/errors"
	"github.com/thomas-vilte/shipsheet/internal/models"
)

const (
	KindRecords = "records"
	KindRows    = "rows"
)

// Document is the exported envelope. Exactly one of Records or Rows is set,
// as told by Kind.
type Document struct {
	Kind        string                 `json:"kind"`
	GeneratedAt time.Time              `json:"generated_at"`
	Records     []models.ChangeRequest `json:"records,omitempty"`
	Rows        []models.ReportRow     `json:"rows,omitempty"`
}

func WriteRecords(w io.Writer, records []models.ChangeRequest, now time.Time) error {
	return write(w, Document{Kind: KindRecords, GeneratedAt: now.UTC(), Records: records})
}

func WriteRows(w io.Writer, rows []models.ReportRow, now time.Time) error {
	return write(w, Document{Kind: KindRows, GeneratedAt: now.UTC(), Rows: rows})
}

func write(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("error encoding %s: %w", doc.Kind, err)
	}
	return nil
}

// ReadRecords accepts an exported records document or a bare JSON array of
// change-requests.
func ReadRecords(r io.Reader) ([]models.ChangeRequest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("error reading records: %w", err)
	}

	var records []models.ChangeRequest
	if err := json.Unmarshal(data, &records); err == nil {
		return records, nil
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, apperrors.ErrInvalidInput.WithError(err).WithContext("detail", "not a records document")
	}
	if doc.Kind != KindRecords {
		return nil, apperrors.ErrInvalidInput.WithContext("detail",
			fmt.Sprintf("expected a %q document, got %q", KindRecords, doc.Kind))
	}
	return doc.Records, nil
}

func ReadRecordsFile(path string) ([]models.ChangeRequest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return ReadRecords(f)
}
