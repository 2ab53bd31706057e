package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"media-converter/internal/filesystem"
	"media-converter/internal/logging"
	"media-converter/internal/mediatypes"
	"media-converter/internal/metrics"
)

// Default timeout for catalog operations
const defaultTimeout = 5 * time.Second

// ErrNotFound is returned when no asset has the requested identifier.
var ErrNotFound = errors.New("asset not found")

// Opener returns an asset handle for a container file.
type Opener func(path string) mediatypes.Asset

// Asset is a registered source asset.
type Asset struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	Size       int64     `json:"size"`
	TrackCount int       `json:"trackCount"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Catalog stores registered assets.
type Catalog struct {
	db     *sql.DB
	dbPath string
	open   Opener
	retry  filesystem.RetryConfig
	mu     sync.RWMutex
}

// New opens the catalog database at dbPath, creating the schema if needed.
// The parent directory must exist.
func New(ctx context.Context, dbPath string, open Opener) (*Catalog, error) {
	logging.Info("Catalog database path: %s", dbPath)

	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close catalog after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to catalog database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	c := &Catalog{
		db:     db,
		dbPath: dbPath,
		open:   open,
		retry:  filesystem.DefaultRetryConfig(),
	}

	if err := c.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close catalog after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize catalog schema: %w", err)
	}

	logging.Info("Catalog initialized successfully at %s", dbPath)
	return c, nil
}

func (c *Catalog) initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS assets (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		path TEXT NOT NULL UNIQUE,
		size INTEGER NOT NULL DEFAULT 0,
		track_count INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_assets_name ON assets(name COLLATE NOCASE);
	`

	_, err := c.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Register adds the container file at path to the catalog, or refreshes it if
// it is already registered. The file must load with at least one track.
func (c *Catalog) Register(ctx context.Context, path string) (*Asset, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("register", start, err) }()

	var abs string
	abs, err = filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	var info os.FileInfo
	info, err = filesystem.StatWithRetry(abs, c.retry)
	if err != nil {
		return nil, fmt.Errorf("register %s: %w", path, err)
	}
	if info.IsDir() {
		err = fmt.Errorf("register %s: is a directory", path)
		return nil, err
	}

	var tracks []mediatypes.Track
	tracks, err = c.open(abs).LoadTracks(ctx)
	if err != nil {
		err = fmt.Errorf("register %s: %w", path, err)
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := `
	INSERT INTO assets (id, name, path, size, track_count)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(path) DO UPDATE SET
		size = excluded.size,
		track_count = excluded.track_count,
		updated_at = strftime('%s', 'now')
	`
	_, err = c.db.ExecContext(ctx, query, uuid.NewString(), filepath.Base(abs), abs, info.Size(), len(tracks))
	if err != nil {
		return nil, err
	}

	var asset *Asset
	asset, err = c.scanOne(ctx, "path = ?", abs)
	if err != nil {
		return nil, err
	}
	logging.Info("Registered asset %s (%s, %d tracks)", asset.ID, asset.Name, asset.TrackCount)
	return asset, nil
}

// Get returns the asset with the given identifier.
func (c *Catalog) Get(ctx context.Context, id string) (*Asset, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get", start, err) }()

	c.mu.RLock()
	defer c.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var asset *Asset
	asset, err = c.scanOne(ctx, "id = ?", id)
	return asset, err
}

// List returns every registered asset ordered by name.
func (c *Catalog) List(ctx context.Context) ([]Asset, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list", start, err) }()

	c.mu.RLock()
	defer c.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var rows *sql.Rows
	rows, err = c.db.QueryContext(ctx, `
	SELECT id, name, path, size, track_count, created_at, updated_at
	FROM assets ORDER BY name COLLATE NOCASE, id
	`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			logging.Warn("failed to close rows: %v", closeErr)
		}
	}()

	assets := []Asset{}
	for rows.Next() {
		var a *Asset
		a, err = scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, *a)
	}
	err = rows.Err()
	if err != nil {
		return nil, err
	}
	return assets, nil
}

// Delete removes the asset from the catalog. The file is left in place.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("delete", start, err) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var result sql.Result
	result, err = c.db.ExecContext(ctx, "DELETE FROM assets WHERE id = ?", id)
	if err != nil {
		return err
	}
	var n int64
	n, err = result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	logging.Info("Removed asset %s from catalog", id)
	return nil
}

// Count returns the number of registered assets.
func (c *Catalog) Count(ctx context.Context) (int, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("count", start, err) }()

	c.mu.RLock()
	defer c.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var n int
	err = c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM assets").Scan(&n)
	return n, err
}

// RequestAsset resolves id to an unloaded asset handle for its file.
func (c *Catalog) RequestAsset(ctx context.Context, id string) (mediatypes.Asset, error) {
	asset, err := c.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("asset %s: %w", id, err)
	}
	return c.open(asset.Path), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAsset(row scanner) (*Asset, error) {
	var a Asset
	var created, updated int64
	if err := row.Scan(&a.ID, &a.Name, &a.Path, &a.Size, &a.TrackCount, &created, &updated); err != nil {
		return nil, err
	}
	a.CreatedAt = time.Unix(created, 0)
	a.UpdatedAt = time.Unix(updated, 0)
	return &a, nil
}

// scanOne runs a single-row lookup. Callers hold c.mu.
func (c *Catalog) scanOne(ctx context.Context, where string, arg any) (*Asset, error) {
	row := c.db.QueryRowContext(ctx, `
	SELECT id, name, path, size, track_count, created_at, updated_at
	FROM assets WHERE `+where, arg)
	a, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

// recordQuery records catalog query metrics
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil && !errors.Is(err, ErrNotFound) {
		status = "error"
	}
	metrics.CatalogQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.CatalogQueryDuration.WithLabelValues(operation).Observe(duration)
}
