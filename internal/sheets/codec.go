package sheets

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/thomas-vilte/shipsheet/internal/foldset"
	"github.com/thomas-vilte/shipsheet/internal/models"
	"github.com/thomas-vilte/shipsheet/internal/regex"
	"github.com/thomas-vilte/shipsheet/internal/schema"
)

const (
	// TimeLayout is how merge times are written. Sheets reads it as a date.
	TimeLayout = "2006-01-02 15:04:05"

	listSeparator = "\n"
)

// serialEpoch is day zero of spreadsheet date serial numbers.
var serialEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

var readLayouts = []string{
	TimeLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"1/2/2006 15:04:05",
	"1/2/2006",
}

// Codec converts report rows to sheet cells and back.
type Codec struct {
	cols schema.ColumnMapping
	idx  schema.Indexes
}

func NewCodec(cols schema.ColumnMapping) (*Codec, error) {
	idx, err := cols.Indexes()
	if err != nil {
		return nil, err
	}
	return &Codec{cols: cols, idx: idx}, nil
}

func (c *Codec) Width() int {
	return c.idx.Width
}

func (c *Codec) LastColumn() string {
	return c.cols.LastColumn()
}

// Header returns the title row.
func (c *Codec) Header() []interface{} {
	cells := make([]interface{}, c.idx.Width)
	for i := range cells {
		cells[i] = ""
	}
	cells[c.idx.Repository] = "Repository"
	cells[c.idx.Feature] = "Feature"
	cells[c.idx.Team] = "Team"
	cells[c.idx.Authors] = "Authors"
	cells[c.idx.Links] = "Links"
	cells[c.idx.MergedAt] = "Merged at"
	cells[c.idx.UniqueKey] = "Key"
	if c.idx.AutoSync >= 0 {
		cells[c.idx.AutoSync] = "Auto sync"
	}
	return cells
}

// Encode renders row as cell values. Columns outside the mapping are left
// as nil so writers can keep whatever an operator typed there.
func (c *Codec) Encode(row models.ReportRow) []interface{} {
	cells := make([]interface{}, c.idx.Width)
	cells[c.idx.Repository] = row.Repository
	cells[c.idx.Feature] = FeatureCell(row.Feature, row.FeatureURL)
	cells[c.idx.Team] = row.Team
	cells[c.idx.Authors] = row.Authors.Join(listSeparator)
	cells[c.idx.Links] = row.Links.Join(listSeparator)
	cells[c.idx.UniqueKey] = row.UniqueKey
	if row.MergedAt != nil {
		cells[c.idx.MergedAt] = row.MergedAt.UTC().Format(TimeLayout)
	} else {
		cells[c.idx.MergedAt] = ""
	}
	if c.idx.AutoSync >= 0 {
		cells[c.idx.AutoSync] = row.AutoSync
	}
	return cells
}

// Decode parses the cells of sheet row rowNumber. Rows without a key are
// not report rows and return ok == false.
func (c *Codec) Decode(cells []interface{}, rowNumber int) (models.ReportRow, bool, error) {
	key := cellString(cells, c.idx.UniqueKey)
	if key == "" {
		return models.ReportRow{}, false, nil
	}

	feature, featureURL := ParseFeatureCell(cellString(cells, c.idx.Feature))
	row := models.ReportRow{
		UniqueKey:  key,
		Repository: cellString(cells, c.idx.Repository),
		Feature:    feature,
		FeatureURL: featureURL,
		Team:       cellString(cells, c.idx.Team),
		Authors:    splitList(cellString(cells, c.idx.Authors)),
		Links:      splitList(cellString(cells, c.idx.Links)),
		RowNumber:  rowNumber,
		AutoSync:   true,
	}

	merged, err := parseTime(cell(cells, c.idx.MergedAt))
	if err != nil {
		return models.ReportRow{}, false, fmt.Errorf("row %d: %w", rowNumber, err)
	}
	row.MergedAt = merged

	if c.idx.AutoSync >= 0 {
		row.AutoSync = parseFlag(cell(cells, c.idx.AutoSync))
	}
	return row, true, nil
}

// FeatureCell renders a label linked to url as a HYPERLINK formula.
func FeatureCell(label, url string) string {
	if url == "" {
		return label
	}
	return fmt.Sprintf(`=HYPERLINK("%s","%s")`, quote(url), quote(label))
}

// ParseFeatureCell splits a HYPERLINK formula into label and url. Any other
// text is a plain label.
func ParseFeatureCell(text string) (string, string) {
	m := regex.HyperlinkFormula.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return text, ""
	}
	return unquote(m[2]), unquote(m[1])
}

func quote(s string) string {
	return strings.ReplaceAll(s, `"`, `""`)
}

func unquote(s string) string {
	return strings.ReplaceAll(s, `""`, `"`)
}

func cell(cells []interface{}, i int) interface{} {
	if i < 0 || i >= len(cells) {
		return nil
	}
	return cells[i]
}

func cellString(cells []interface{}, i int) string {
	switch v := cell(cells, i).(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func splitList(text string) foldset.Set {
	var s foldset.Set
	for _, part := range strings.FieldsFunc(text, func(r rune) bool { return r == '\n' || r == '\r' }) {
		s.Add(part)
	}
	return s
}

func parseTime(v interface{}) (*time.Time, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case float64:
		// whole days plus the fraction of the day, to the second
		secs := int64(t*86400 + 0.5)
		at := serialEpoch.Add(time.Duration(secs) * time.Second)
		return &at, nil
	case string:
		text := strings.TrimSpace(t)
		if text == "" {
			return nil, nil
		}
		for _, layout := range readLayouts {
			if at, err := time.Parse(layout, text); err == nil {
				at = at.UTC()
				return &at, nil
			}
		}
		return nil, fmt.Errorf("unrecognized merge time %q", text)
	default:
		return nil, fmt.Errorf("unrecognized merge time %v", v)
	}
}

// parseFlag reads the auto-sync column. Only an explicit false freezes a row.
func parseFlag(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "false", "no", "n", "0", "off":
			return false
		}
	case float64:
		return t != 0
	}
	return true
}
