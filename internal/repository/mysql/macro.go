package mysql

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"mosaic/internal/domain/sources"
	"mosaic/pkg/logger"
)

// Compile-time check
var _ sources.MacroReader = (*MacroReader)(nil)

// MacroReader pivots macro_indicators rows into one record per calendar date.
// The table is keyed by (indicator_name, indicator_date), never by symbol;
// the same pivot applies to every symbol's hours on that date.
type MacroReader struct {
	db  *sqlx.DB
	log *logger.Logger
}

// NewMacroReader creates a new macro reader
func NewMacroReader(db *sqlx.DB) *MacroReader {
	return &MacroReader{
		db:  db,
		log: logger.Get().With("component", "macro_reader"),
	}
}

type macroRow struct {
	IndicatorName string    `db:"indicator_name"`
	IndicatorDate time.Time `db:"indicator_date"`
	Value         float64   `db:"value"`
}

// PivotForDate returns the indicator pivot for the date, or nil when no
// indicator has a row for it
func (r *MacroReader) PivotForDate(ctx context.Context, date time.Time) (*sources.MacroRecord, error) {
	y, m, d := date.UTC().Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	var rows []macroRow
	query := `
		SELECT indicator_name, indicator_date, value
		FROM macro_indicators
		WHERE indicator_date = ?`

	err := r.db.SelectContext(ctx, &rows, query, day)
	if err != nil {
		return nil, translate(err, "macro_indicators")
	}

	return r.pivot(rows, day), nil
}

// pivot folds indicator rows into one record per date. Every recognized
// indicator_name lands in its own column; unknown names are logged and
// dropped.
func (r *MacroReader) pivot(rows []macroRow, day time.Time) *sources.MacroRecord {
	if len(rows) == 0 {
		return nil
	}

	record := &sources.MacroRecord{Date: day}
	for _, row := range rows {
		v := row.Value
		switch strings.ToUpper(strings.TrimSpace(row.IndicatorName)) {
		case sources.IndicatorVIX:
			record.VIX = &v
		case sources.IndicatorSPX:
			record.SPX = &v
		case sources.IndicatorDXY:
			record.DXY = &v
		case sources.IndicatorTNX:
			record.TNX = &v
		case sources.IndicatorGold:
			record.Gold = &v
		case sources.IndicatorFedFunds:
			record.FedFunds = &v
		default:
			r.log.Debugf("Ignoring unknown macro indicator %q for %s", row.IndicatorName, day.Format("2006-01-02"))
		}
	}

	if record.Empty() {
		return nil
	}

	return record
}
