package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"gsrd/internal/database"
	"gsrd/internal/errors"
	"gsrd/internal/metrics"
	"gsrd/internal/series"
)

// PostgresStore implements Store on top of the Postgres schema.
type PostgresStore struct {
	db *database.DB
}

// NewPostgresStore creates a Postgres-backed store.
func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// PriceSeries returns the close-price series for an asset symbol.
func (s *PostgresStore) PriceSeries(ctx context.Context, symbol string, start, end time.Time) (*series.Series, error) {
	query := `
		SELECT p.timestamp, p.close
		FROM prices p
		JOIN assets a ON a.id = p.asset_id
		WHERE a.symbol = $1
		  AND ($2::timestamptz IS NULL OR p.timestamp >= $2)
		  AND ($3::timestamptz IS NULL OR p.timestamp <= $3)
		ORDER BY p.timestamp
	`
	points, err := s.queryPoints(ctx, query, symbol, nullTime(start), nullTime(end))
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrCodeDBQuery, "failed to load price series").
			WithContext("symbol", symbol)
	}
	return &series.Series{Name: symbol, Points: points}, nil
}

// MacroSeries returns the value series for a macro series code.
func (s *PostgresStore) MacroSeries(ctx context.Context, code string, start, end time.Time) (*series.Series, error) {
	query := `
		SELECT v.date, v.value
		FROM macro_values v
		JOIN macro_series m ON m.id = v.macro_series_id
		WHERE m.code = $1
		  AND ($2::timestamptz IS NULL OR v.date >= $2)
		  AND ($3::timestamptz IS NULL OR v.date <= $3)
		ORDER BY v.date
	`
	points, err := s.queryPoints(ctx, query, code, nullTime(start), nullTime(end))
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrCodeDBQuery, "failed to load macro series").
			WithContext("code", code)
	}
	return &series.Series{Name: code, Points: points}, nil
}

// EnsureMetric gets or creates a derived metric as a single atomic upsert.
func (s *PostgresStore) EnsureMetric(ctx context.Context, name, description, method string) (int64, error) {
	insert := `
		INSERT INTO derived_metrics (name, description, computation_method, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (name) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, insert, name, description, method); err != nil {
		return 0, errors.WrapError(err, errors.ErrCodeDBQuery, "failed to ensure derived metric").
			WithContext("metric", name)
	}

	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM derived_metrics WHERE name = $1`, name).Scan(&id)
	if err != nil {
		return 0, errors.WrapError(err, errors.ErrCodeDBQuery, "failed to look up derived metric").
			WithContext("metric", name)
	}
	return id, nil
}

// SaveMetricValue stores one metric point idempotently. A duplicate
// (metric_id, timestamp) is skipped, keeping recomputation re-runnable.
func (s *PostgresStore) SaveMetricValue(ctx context.Context, metricID int64, t time.Time, value float64, metadata map[string]float64) (bool, error) {
	var extraData interface{}
	if len(metadata) > 0 {
		encoded, err := json.Marshal(metadata)
		if err != nil {
			return false, errors.WrapError(err, errors.ErrCodeDBQuery, "failed to encode metric metadata")
		}
		extraData = encoded
	}

	query := `
		INSERT INTO metric_values (metric_id, timestamp, value, extra_data, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (metric_id, timestamp) DO NOTHING
	`
	result, err := s.db.ExecContext(ctx, query, metricID, t, value, extraData)
	if err != nil {
		return false, errors.WrapError(err, errors.ErrCodeDBQuery, "failed to save metric value").
			WithContext("metric_id", metricID)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, errors.WrapError(err, errors.ErrCodeDBQuery, "failed to read insert result")
	}
	return rows > 0, nil
}

// MetricSeries returns a stored derived metric as a plain series.
func (s *PostgresStore) MetricSeries(ctx context.Context, name string, start, end time.Time) (*series.Series, error) {
	query := `
		SELECT v.timestamp, v.value
		FROM metric_values v
		JOIN derived_metrics m ON m.id = v.metric_id
		WHERE m.name = $1
		  AND ($2::timestamptz IS NULL OR v.timestamp >= $2)
		  AND ($3::timestamptz IS NULL OR v.timestamp <= $3)
		ORDER BY v.timestamp
	`
	points, err := s.queryPoints(ctx, query, name, nullTime(start), nullTime(end))
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrCodeDBQuery, "failed to load metric series").
			WithContext("metric", name)
	}
	return &series.Series{Name: name, Points: points}, nil
}

// RatioSeries rehydrates a ratio metric with per-point asset prices from the
// stored metadata. Points without both prices are dropped rather than
// defaulted to zero.
func (s *PostgresStore) RatioSeries(ctx context.Context, name string, start, end time.Time) (*metrics.RatioSeries, error) {
	query := `
		SELECT v.timestamp, v.value, v.extra_data
		FROM metric_values v
		JOIN derived_metrics m ON m.id = v.metric_id
		WHERE m.name = $1
		  AND ($2::timestamptz IS NULL OR v.timestamp >= $2)
		  AND ($3::timestamptz IS NULL OR v.timestamp <= $3)
		ORDER BY v.timestamp
	`
	rows, err := s.db.QueryContext(ctx, query, name, nullTime(start), nullTime(end))
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrCodeDBQuery, "failed to load ratio series").
			WithContext("metric", name)
	}
	defer rows.Close()

	ratio := &metrics.RatioSeries{Name: name}
	for rows.Next() {
		var (
			t         time.Time
			value     float64
			extraData []byte
		)
		if err := rows.Scan(&t, &value, &extraData); err != nil {
			return nil, errors.WrapError(err, errors.ErrCodeDBQuery, "failed to scan ratio row")
		}

		basePrice, quotePrice, ok := pricesFromMetadata(extraData)
		if !ok {
			continue
		}
		ratio.Points = append(ratio.Points, metrics.RatioPoint{
			Timestamp:  t,
			Ratio:      value,
			BasePrice:  basePrice,
			QuotePrice: quotePrice,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapError(err, errors.ErrCodeDBQuery, "failed to iterate ratio rows")
	}
	return ratio, nil
}

// LatestRatioAnalysis joins the latest ratio point with the latest values of
// its rolling z-score and percentile metrics for the given window.
func (s *PostgresStore) LatestRatioAnalysis(ctx context.Context, metricName string, window int) (*RatioAnalysis, error) {
	var (
		t         time.Time
		value     float64
		extraData []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT v.timestamp, v.value, v.extra_data
		FROM metric_values v
		JOIN derived_metrics m ON m.id = v.metric_id
		WHERE m.name = $1
		ORDER BY v.timestamp DESC
		LIMIT 1
	`, metricName).Scan(&t, &value, &extraData)
	if err == sql.ErrNoRows {
		return nil, errors.NewAppErrorWithDetails(
			errors.ErrCodeNoData,
			"no ratio data available",
			"metric has no stored values",
			nil,
		).WithContext("metric", metricName)
	}
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrCodeDBQuery, "failed to load latest ratio value").
			WithContext("metric", metricName)
	}

	analysis := &RatioAnalysis{Ratio: value, Timestamp: t}
	if basePrice, quotePrice, ok := pricesFromMetadata(extraData); ok {
		analysis.BasePrice = series.Float(basePrice)
		analysis.QuotePrice = series.Float(quotePrice)
	}

	analysis.ZScore = s.latestStatValue(ctx, metrics.ZScoreMetricName(metricName, window))
	analysis.Percentile = s.latestStatValue(ctx, metrics.PercentileMetricName(metricName, window))
	return analysis, nil
}

// CurrentRegime returns the label of the latest open macro regime.
func (s *PostgresStore) CurrentRegime(ctx context.Context) (string, error) {
	var label string
	err := s.db.QueryRowContext(ctx, `
		SELECT label FROM regimes
		WHERE end_date IS NULL
		ORDER BY start_date DESC
		LIMIT 1
	`).Scan(&label)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", errors.WrapError(err, errors.ErrCodeDBQuery, "failed to load current regime")
	}
	return label, nil
}

// latestStatValue returns the most recent value of a rolling-stat metric, or
// missing when the metric is absent or empty.
func (s *PostgresStore) latestStatValue(ctx context.Context, metricName string) series.NullFloat {
	var value float64
	err := s.db.QueryRowContext(ctx, `
		SELECT v.value
		FROM metric_values v
		JOIN derived_metrics m ON m.id = v.metric_id
		WHERE m.name = $1
		ORDER BY v.timestamp DESC
		LIMIT 1
	`, metricName).Scan(&value)
	if err != nil {
		return series.Null()
	}
	return series.FloatOrNull(value)
}

func (s *PostgresStore) queryPoints(ctx context.Context, query string, args ...interface{}) ([]series.Point, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []series.Point
	for rows.Next() {
		var p series.Point
		if err := rows.Scan(&p.Timestamp, &p.Value); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// pricesFromMetadata extracts the base/quote prices stored alongside a ratio
// point. Both must be present and non-zero for the point to be usable.
func pricesFromMetadata(extraData []byte) (basePrice, quotePrice float64, ok bool) {
	if len(extraData) == 0 {
		return 0, 0, false
	}
	var metadata map[string]float64
	if err := json.Unmarshal(extraData, &metadata); err != nil {
		return 0, 0, false
	}
	basePrice, quotePrice = metadata["base_price"], metadata["quote_price"]
	if basePrice == 0 || quotePrice == 0 {
		return 0, 0, false
	}
	return basePrice, quotePrice, true
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
