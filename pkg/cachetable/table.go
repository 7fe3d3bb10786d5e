package cachetable

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/gzip"

	"github.com/Sumatoshi-tech/blamecore/pkg/observability"
)

// Bookkeeping column names appended to every persisted table.
const (
	RevisionColumn  = "cache_revision"
	TimestampColumn = "cache_timestamp"
)

const (
	compressedExt   = ".csv.gz"
	uncompressedExt = ".csv"

	cacheFilePerm = 0o600
	cacheDirPerm  = 0o750
)

var (
	// ErrSchemaMismatch marks a persisted table whose header no longer
	// matches the declared schema.
	ErrSchemaMismatch = errors.New("cache file layout mismatch, consider removing the cache file")

	// ErrMissingSchema marks a table configured without value columns.
	ErrMissingSchema = errors.New("cache table needs at least one value column")

	// ErrMissingCacheID marks a table configured without an identifier.
	ErrMissingCacheID = errors.New("cache table needs a cache id")
)

// Config describes one on-disk incremental cache table.
type Config struct {
	// CacheID distinguishes tables of different kinds in the same
	// cache directory.
	CacheID string

	// Project scopes the table to one analyzed project.
	Project string

	// CacheDir is the directory holding the persisted table.
	CacheDir string

	// Schema lists the value columns in persisted order. Bookkeeping
	// columns are appended automatically.
	Schema []string

	// Comparator decides whether an artifact token outdates a cached
	// one. Defaults to IntegerTokenNewer.
	Comparator TokenComparator

	// Metrics receives cache counters when set.
	Metrics *observability.CacheMetrics

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// row is one cached entry: the value columns plus its identity and token.
type row struct {
	values   []string
	identity string
	token    string
}

// Table is an incrementally rebuilt, csv.gz persisted result cache keyed
// by revision identity.
type Table struct {
	cacheID    string
	project    string
	dir        string
	schema     []string
	comparator TokenComparator
	metrics    *observability.CacheMetrics
	logger     *slog.Logger

	rows   []row
	loaded bool
}

// New creates a table handle. The persisted file, if any, is read lazily
// on first use.
func New(cfg Config) (*Table, error) {
	if cfg.CacheID == "" {
		return nil, ErrMissingCacheID
	}

	if len(cfg.Schema) == 0 {
		return nil, ErrMissingSchema
	}

	comparator := cfg.Comparator
	if comparator == nil {
		comparator = IntegerTokenNewer
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Table{
		cacheID:    cfg.CacheID,
		project:    cfg.Project,
		dir:        cfg.CacheDir,
		schema:     slices.Clone(cfg.Schema),
		comparator: comparator,
		metrics:    cfg.Metrics,
		logger:     logger.With(slog.String("cache_id", cfg.CacheID), slog.String("project", cfg.Project)),
	}, nil
}

// Schema returns the value column names in persisted order.
func (t *Table) Schema() []string {
	return slices.Clone(t.schema)
}

// Path returns the compressed cache file location.
func (t *Table) Path() string {
	return filepath.Join(t.dir, t.cacheID+"-"+t.project+compressedExt)
}

// fallbackPath returns the uncompressed location honored for tables
// written before compression was introduced.
func (t *Table) fallbackPath() string {
	return filepath.Join(t.dir, t.cacheID+"-"+t.project+uncompressedExt)
}

// header returns the persisted column order including bookkeeping.
func (t *Table) header() []string {
	header := make([]string, 0, len(t.schema)+2)
	header = append(header, t.schema...)
	header = append(header, RevisionColumn, TimestampColumn)

	return header
}

// load reads the persisted table into memory. A missing file yields an
// empty table.
func (t *Table) load() error {
	if t.loaded {
		return nil
	}

	records, readErr := t.readRecords()
	if readErr != nil {
		return readErr
	}

	t.loaded = true
	if records == nil {
		return nil
	}

	if !slices.Equal(records[0], t.header()) {
		return fmt.Errorf("%w: %s", ErrSchemaMismatch, t.Path())
	}

	t.rows = make([]row, 0, len(records)-1)

	for _, record := range records[1:] {
		if len(record) != len(t.schema)+2 {
			return fmt.Errorf("%w: %s", ErrSchemaMismatch, t.Path())
		}

		t.rows = append(t.rows, row{
			values:   record[:len(t.schema)],
			identity: record[len(t.schema)],
			token:    record[len(t.schema)+1],
		})
	}

	return nil
}

// readRecords reads the compressed table, falling back to the
// uncompressed variant. A nil result means no file exists yet.
func (t *Table) readRecords() ([][]string, error) {
	file, openErr := os.Open(t.Path())
	if openErr == nil {
		defer file.Close()

		reader, gzipErr := gzip.NewReader(file)
		if gzipErr != nil {
			return nil, fmt.Errorf("open cache %s: %w", t.Path(), gzipErr)
		}
		defer reader.Close()

		return t.parseRecords(reader, t.Path())
	}

	if !os.IsNotExist(openErr) {
		return nil, fmt.Errorf("open cache %s: %w", t.Path(), openErr)
	}

	fallback, fallbackErr := os.Open(t.fallbackPath())
	if fallbackErr != nil {
		if os.IsNotExist(fallbackErr) {
			return nil, nil
		}

		return nil, fmt.Errorf("open cache %s: %w", t.fallbackPath(), fallbackErr)
	}
	defer fallback.Close()

	return t.parseRecords(fallback, t.fallbackPath())
}

// parseRecords decodes CSV records, requiring at least a header.
func (t *Table) parseRecords(r io.Reader, path string) ([][]string, error) {
	records, readErr := csv.NewReader(r).ReadAll()
	if readErr != nil {
		return nil, fmt.Errorf("read cache %s: %w", path, readErr)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrSchemaMismatch, path)
	}

	return records, nil
}

// persist writes the full table atomically: compress into a temp file in
// the cache directory, then rename over the final location.
func (t *Table) persist() error {
	if mkdirErr := os.MkdirAll(t.dir, cacheDirPerm); mkdirErr != nil {
		return fmt.Errorf("create cache dir %s: %w", t.dir, mkdirErr)
	}

	tmp, tmpErr := os.CreateTemp(t.dir, t.cacheID+"-*.tmp")
	if tmpErr != nil {
		return fmt.Errorf("create temp cache file: %w", tmpErr)
	}

	tmpPath := tmp.Name()

	if writeErr := t.writeRecords(tmp); writeErr != nil {
		tmp.Close()
		os.Remove(tmpPath)

		return writeErr
	}

	if closeErr := tmp.Close(); closeErr != nil {
		os.Remove(tmpPath)

		return fmt.Errorf("close temp cache file: %w", closeErr)
	}

	if chmodErr := os.Chmod(tmpPath, cacheFilePerm); chmodErr != nil {
		os.Remove(tmpPath)

		return fmt.Errorf("chmod cache file: %w", chmodErr)
	}

	if renameErr := os.Rename(tmpPath, t.Path()); renameErr != nil {
		os.Remove(tmpPath)

		return fmt.Errorf("rename cache file: %w", renameErr)
	}

	if info, statErr := os.Stat(t.Path()); statErr == nil {
		t.logger.Info("cache table persisted",
			slog.String("path", t.Path()),
			slog.Int("rows", len(t.rows)),
			slog.String("size", humanize.Bytes(uint64(info.Size()))))
	}

	return nil
}

// writeRecords streams the header and all rows through gzip.
func (t *Table) writeRecords(w io.Writer) error {
	gz := gzip.NewWriter(w)
	writer := csv.NewWriter(gz)

	if headerErr := writer.Write(t.header()); headerErr != nil {
		return fmt.Errorf("write cache header: %w", headerErr)
	}

	record := make([]string, len(t.schema)+2)

	for _, entry := range t.rows {
		copy(record, entry.values)
		record[len(t.schema)] = entry.identity
		record[len(t.schema)+1] = entry.token

		if rowErr := writer.Write(record); rowErr != nil {
			return fmt.Errorf("write cache row: %w", rowErr)
		}
	}

	writer.Flush()

	if flushErr := writer.Error(); flushErr != nil {
		return fmt.Errorf("flush cache rows: %w", flushErr)
	}

	if gzErr := gz.Close(); gzErr != nil {
		return fmt.Errorf("compress cache file: %w", gzErr)
	}

	return nil
}

// Rows returns the cached value rows with bookkeeping columns stripped,
// in persisted order.
func (t *Table) Rows() ([][]string, error) {
	if loadErr := t.load(); loadErr != nil {
		return nil, loadErr
	}

	rows := make([][]string, 0, len(t.rows))
	for _, entry := range t.rows {
		rows = append(rows, slices.Clone(entry.values))
	}

	return rows, nil
}
