package services

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
)

// Analytics runs the load -> filter -> aggregate -> metrics pipeline against
// one configured source.
type Analytics struct {
	loader   *Loader
	source   string
	baseline decimal.Decimal
	logger   *slog.Logger

	mu          sync.RWMutex
	lastLoaded  time.Time
	recordCount int
	evaluations int64
	loads       int64
}

func NewAnalytics(loader *Loader, source string, baseline decimal.Decimal) *Analytics {
	return &Analytics{
		loader:   loader,
		source:   source,
		baseline: baseline,
		logger:   slog.Default(),
	}
}

func (a *Analytics) WithLogger(logger *slog.Logger) *Analytics {
	a.logger = logger
	return a
}

func (a *Analytics) Source() string {
	return a.source
}

func (a *Analytics) Baseline() decimal.Decimal {
	return a.baseline
}

// Records returns the full, unfiltered record set.
func (a *Analytics) Records(ctx context.Context) ([]models.Transaction, error) {
	records, err := a.loader.Load(ctx, a.source)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.loads++
	a.recordCount = len(records)
	if a.lastLoaded.IsZero() {
		a.lastLoaded = time.Now()
	}
	a.mu.Unlock()
	return records, nil
}

// Bounds returns the earliest and latest dates in the source. For an empty
// source both ends are today.
func (a *Analytics) Bounds(ctx context.Context) (models.DateRange, error) {
	records, err := a.Records(ctx)
	if err != nil {
		return models.DateRange{}, err
	}
	return boundsOf(records), nil
}

func boundsOf(records []models.Transaction) models.DateRange {
	minDate, maxDate, ok := DateBounds(records)
	if !ok {
		today := truncateDay(time.Now())
		return models.DateRange{Start: today, End: today}
	}
	return models.DateRange{Start: minDate, End: maxDate}
}

// Evaluate builds a fresh report for [start, end]. Load and range errors abort
// the whole evaluation; an empty window is reported through Report.Empty.
func (a *Analytics) Evaluate(ctx context.Context, start, end time.Time) (*models.Report, error) {
	ctx, span := observability.StartSpan(ctx, "analytics.evaluate")
	defer func() {
		span.Finish()
		span.Log(ctx, a.logger)
	}()

	records, err := a.Records(ctx)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	report, err := a.evaluate(ctx, records, start, end)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	span.SetTag("records", strconv.Itoa(report.RecordCount))
	return report, nil
}

// EvaluateInput parses request dates and evaluates them with a single load of
// the source. Blank ends default to the source bounds.
func (a *Analytics) EvaluateInput(ctx context.Context, startStr, endStr string) (*models.Report, error) {
	ctx, span := observability.StartSpan(ctx, "analytics.evaluate")
	defer func() {
		span.Finish()
		span.Log(ctx, a.logger)
	}()

	records, err := a.Records(ctx)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	rng, err := ParseDateRange(startStr, endStr, boundsOf(records))
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	report, err := a.evaluate(ctx, records, rng.Start, rng.End)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	span.SetTag("records", strconv.Itoa(report.RecordCount))
	return report, nil
}

func (a *Analytics) evaluate(ctx context.Context, records []models.Transaction, start, end time.Time) (*models.Report, error) {
	filtered, err := Filter(records, start, end)
	if err != nil {
		return nil, err
	}

	report := BuildReport(filtered, a.baseline)
	report.Range = models.DateRange{Start: truncateDay(start), End: truncateDay(end)}

	a.mu.Lock()
	a.evaluations++
	a.mu.Unlock()

	if report.InconsistentRows > 0 {
		a.logger.Warn("rows where profit differs from revenue minus cost",
			"source", a.source,
			"rows", report.InconsistentRows,
			"request_id", observability.GetRequestID(ctx))
	}
	a.logger.Debug("report evaluated",
		"start", report.Range.Start.Format(dateLayout),
		"end", report.Range.End.Format(dateLayout),
		"records", report.RecordCount,
		"empty", report.Empty)

	return report, nil
}

// BuildReport aggregates an already filtered set. It never fails.
func BuildReport(filtered []models.Transaction, baseline decimal.Decimal) *models.Report {
	variants := GroupByVariant(filtered)
	best, worst := BestWorstVariant(variants)

	return &models.Report{
		RecordCount:      len(filtered),
		Records:          filtered,
		Metrics:          ComputeMetrics(filtered, baseline),
		DailyTrend:       DailyTrendOf(filtered),
		Variants:         variants,
		Payments:         GroupByPaymentMethod(filtered),
		Best:             best,
		Worst:            worst,
		Empty:            len(filtered) == 0,
		InconsistentRows: countInconsistent(filtered),
		GeneratedAt:      time.Now(),
	}
}

// Reload drops the cached source and loads it again.
func (a *Analytics) Reload(ctx context.Context) error {
	a.loader.Invalidate(a.source)

	start := time.Now()
	records, err := a.loader.Load(ctx, a.source)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.recordCount = len(records)
	a.lastLoaded = time.Now()
	a.mu.Unlock()

	a.logger.Info("source reloaded", "source", a.source, "records", len(records), "duration", time.Since(start))
	return nil
}

// Stats reports pipeline state for monitoring.
func (a *Analytics) Stats() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return map[string]any{
		"source":         a.source,
		"record_count":   a.recordCount,
		"last_loaded":    a.lastLoaded,
		"evaluations":    a.evaluations,
		"record_loads":   a.loads,
		"cached_sources": a.loader.CachedSources(),
		"source_fetches": a.loader.Fetches(),
		"baseline_cost":  a.baseline.String(),
	}
}
