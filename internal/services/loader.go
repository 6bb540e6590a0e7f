package services

import (
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"sales-dashboard/internal/models"
)

const (
	batchSize       = 5000
	maxWorkers      = 8
	snapshotVersion = "v1"
)

// Source column headers.
const (
	colDate          = "Tanggal"
	colVariant       = "Varian"
	colPaymentMethod = "Metode Bayar"
	colQuantity      = "Qty"
	colRevenue       = "Total Revenue"
	colCost          = "Total HPP"
	colProfit        = "Total Profit"
)

var requiredColumns = []string{colDate, colVariant, colPaymentMethod, colQuantity, colRevenue, colCost, colProfit}

type LoaderOptions struct {
	// TTL bounds how long a loaded source is reused. Zero keeps it until invalidated.
	TTL          time.Duration
	FetchTimeout time.Duration
	// SnapshotDir enables gob snapshots of parsed local files. Empty disables them.
	SnapshotDir string
	Logger      *slog.Logger
}

// Loader reads sales tables from files or http(s) URLs and memoises them per location.
type Loader struct {
	cache       *cache.Cache
	group       singleflight.Group
	client      *http.Client
	snapshotDir string
	logger      *slog.Logger
	fetches     atomic.Int64
}

func NewLoader(opts LoaderOptions) *Loader {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ttl, cleanup := cache.NoExpiration, time.Duration(0)
	if opts.TTL > 0 {
		ttl, cleanup = opts.TTL, 2*opts.TTL
	}

	timeout := opts.FetchTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Loader{
		cache:       cache.New(ttl, cleanup),
		client:      &http.Client{Timeout: timeout},
		snapshotDir: opts.SnapshotDir,
		logger:      logger,
	}
}

// Load returns the records at location, fetching them only on a cache miss.
// Concurrent misses for one location share a single fetch, which is detached
// from any one caller's cancellation and bounded by the fetch timeout. Each
// caller still stops waiting when its own ctx is done. The returned slice is a
// copy and may be modified freely.
func (l *Loader) Load(ctx context.Context, location string) ([]models.Transaction, error) {
	if v, found := l.cache.Get(location); found {
		return slices.Clone(v.([]models.Transaction)), nil
	}

	fetchCtx := context.WithoutCancel(ctx)
	ch := l.group.DoChan(location, func() (any, error) {
		if v, found := l.cache.Get(location); found {
			return v, nil
		}
		records, err := l.fetch(fetchCtx, location)
		if err != nil {
			return nil, err
		}
		l.cache.Set(location, records, cache.DefaultExpiration)
		return records, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			l.logger.Debug("shared in-flight load", "source", location)
		}
		return slices.Clone(res.Val.([]models.Transaction)), nil
	}
}

// Invalidate drops the cached records and any snapshot for location.
func (l *Loader) Invalidate(location string) {
	l.cache.Delete(location)
	if l.snapshotDir != "" && !isRemote(location) {
		if err := os.Remove(l.snapshotPath(location)); err != nil && !errors.Is(err, os.ErrNotExist) {
			l.logger.Warn("failed to remove snapshot", "source", location, "error", err)
		}
	}
}

// Flush drops every cached source from memory. Snapshots are kept.
func (l *Loader) Flush() {
	l.cache.Flush()
}

func (l *Loader) CachedSources() int {
	return l.cache.ItemCount()
}

// Fetches counts reads that went to the underlying source.
func (l *Loader) Fetches() int64 {
	return l.fetches.Load()
}

func (l *Loader) fetch(ctx context.Context, location string) ([]models.Transaction, error) {
	start := time.Now()

	if !isRemote(location) && l.snapshotDir != "" {
		if records, err := l.loadSnapshot(location); err == nil {
			l.logger.Info("loaded from snapshot", "source", location, "records", len(records))
			return records, nil
		}
	}

	l.fetches.Add(1)
	rc, err := l.open(ctx, location)
	if err != nil {
		return nil, &DataLoadError{Source: location, Cause: err}
	}
	defer rc.Close()

	records, err := parseSales(ctx, location, rc)
	if err != nil {
		return nil, err
	}

	if !isRemote(location) && l.snapshotDir != "" {
		if err := l.saveSnapshot(location, records); err != nil {
			l.logger.Warn("failed to save snapshot", "source", location, "error", err)
		}
	}

	l.logger.Info("source loaded",
		"source", location,
		"records", len(records),
		"duration", time.Since(start))
	return records, nil
}

func isRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

func (l *Loader) open(ctx context.Context, location string) (io.ReadCloser, error) {
	if !isRemote(location) {
		return os.Open(location)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch: unexpected status %s", resp.Status)
	}
	return resp.Body, nil
}

type columnIndex map[string]int

type rawRow struct {
	line   int
	fields []string
}

func parseSales(ctx context.Context, source string, r io.Reader) ([]models.Transaction, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &DataLoadError{Source: source, Cause: errors.New("empty source")}
	}
	if err != nil {
		return nil, &DataLoadError{Source: source, Cause: fmt.Errorf("read header: %w", err)}
	}

	cols, err := indexColumns(header)
	if err != nil {
		return nil, &DataLoadError{Source: source, Line: 1, Cause: err}
	}

	var rows []rawRow
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &DataLoadError{Source: source, Cause: err}
		}
		line, _ := reader.FieldPos(0)
		rows = append(rows, rawRow{line: line, fields: fields})
	}

	records := make([]models.Transaction, len(rows))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)
	for lo := 0; lo < len(rows); lo += batchSize {
		hi := min(lo+batchSize, len(rows))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				tx, err := parseTransaction(rows[i].fields, cols)
				if err != nil {
					return &DataLoadError{Source: source, Line: rows[i].line, Cause: err}
				}
				records[i] = tx
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		var loadErr *DataLoadError
		if errors.As(err, &loadErr) {
			return nil, loadErr
		}
		return nil, &DataLoadError{Source: source, Cause: err}
	}

	return records, nil
}

func indexColumns(header []string) (columnIndex, error) {
	cols := make(columnIndex, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}

	var missing []string
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

func parseTransaction(fields []string, cols columnIndex) (models.Transaction, error) {
	get := func(name string) string {
		if i := cols[name]; i < len(fields) {
			return fields[i]
		}
		return ""
	}

	date, err := ParseDate(get(colDate))
	if err != nil {
		return models.Transaction{}, fmt.Errorf("%s: %w", colDate, err)
	}

	variant := get(colVariant)
	if strings.TrimSpace(variant) == "" {
		return models.Transaction{}, fmt.Errorf("%s: empty", colVariant)
	}

	qty, err := strconv.ParseInt(strings.TrimSpace(get(colQuantity)), 10, 64)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("%s: %w", colQuantity, err)
	}
	if qty < 0 {
		return models.Transaction{}, fmt.Errorf("%s: negative quantity %d", colQuantity, qty)
	}

	amounts := make([]decimal.Decimal, 3)
	for i, name := range []string{colRevenue, colCost, colProfit} {
		amounts[i], err = decimal.NewFromString(strings.TrimSpace(get(name)))
		if err != nil {
			return models.Transaction{}, fmt.Errorf("%s: %w", name, err)
		}
	}

	return models.Transaction{
		Date:          date,
		Variant:       variant,
		PaymentMethod: get(colPaymentMethod),
		Quantity:      qty,
		Revenue:       amounts[0],
		Cost:          amounts[1],
		Profit:        amounts[2],
	}, nil
}

// Snapshots of parsed local files

type snapshot struct {
	Location string
	Records  []models.Transaction
	SavedAt  time.Time
}

// snapshotKey is the cleaned absolute path of a local source.
func snapshotKey(location string) string {
	if abs, err := filepath.Abs(location); err == nil {
		return abs
	}
	return filepath.Clean(location)
}

func (l *Loader) snapshotPath(location string) string {
	sum := sha256.Sum256([]byte(snapshotKey(location)))
	name := strings.TrimSuffix(filepath.Base(location), filepath.Ext(location))
	return filepath.Join(l.snapshotDir, fmt.Sprintf("%s_%s_%s.gob", name, hex.EncodeToString(sum[:8]), snapshotVersion))
}

func (l *Loader) saveSnapshot(location string, records []models.Transaction) error {
	if err := os.MkdirAll(l.snapshotDir, 0o755); err != nil {
		return err
	}

	file, err := os.Create(l.snapshotPath(location))
	if err != nil {
		return err
	}
	defer file.Close()

	return gob.NewEncoder(file).Encode(snapshot{
		Location: snapshotKey(location),
		Records:  records,
		SavedAt:  time.Now(),
	})
}

// loadSnapshot only returns records saved after the source was last modified.
func (l *Loader) loadSnapshot(location string) ([]models.Transaction, error) {
	info, err := os.Stat(location)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(l.snapshotPath(location))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var snap snapshot
	if err := gob.NewDecoder(file).Decode(&snap); err != nil {
		return nil, err
	}
	if snap.Location != snapshotKey(location) {
		return nil, fmt.Errorf("snapshot belongs to %s", snap.Location)
	}
	if !info.ModTime().Before(snap.SavedAt) {
		return nil, errors.New("snapshot is stale")
	}
	return snap.Records, nil
}
