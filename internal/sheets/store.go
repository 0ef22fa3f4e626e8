// Package sheets reads and writes the report: a Google Sheets tab or a local
// JSON sheet file.
package sheets

import (
	"context"

	"github.com/thomas-vilte/shipsheet/internal/models"
	"github.com/thomas-vilte/shipsheet/internal/reconcile"
)

// Store is the spreadsheet a plan is reconciled against.
type Store interface {
	// Snapshot returns every report row with its 1-based row number.
	Snapshot(ctx context.Context) ([]models.ReportRow, error)
	// Apply writes updates, then inserts bottom-up, then block reorders.
	Apply(ctx context.Context, plan *reconcile.Plan) error
}
