package kernel

import (
	"database/sql"
	"fmt"

	"github.com/arborlang/tvmcore/pkg/ir"
	_ "modernc.org/sqlite"
)

// Cache is a SQLite-backed cache from (primitive digest, target) to a
// previously lowered Kernel, so that repeated compilations for the same
// target skip re-lowering primitives the oracle has already lowered once. It is a pure optimization: a cache miss falls through to
// Oracle.Lower exactly as if the cache were absent.
type Cache struct {
	db *sql.DB
}

// OpenCache opens (creating if necessary) a kernel cache backed by the
// SQLite database at path. Use ":memory:" for a process-local cache with no
// persistence across runs.
func OpenCache(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("kernel: opening cache: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kernels (
		digest TEXT NOT NULL,
		target TEXT NOT NULL,
		name TEXT NOT NULL,
		kernel_digest TEXT NOT NULL,
		PRIMARY KEY (digest, target)
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("kernel: creating cache table: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close closes the underlying database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Lookup returns the cached kernel for (digest, target), if present.
func (c *Cache) Lookup(digest string, target Target) (Kernel, bool, error) {
	var k Kernel
	err := c.db.QueryRow(
		`SELECT name, kernel_digest FROM kernels WHERE digest = ? AND target = ?`,
		digest, target.Triple,
	).Scan(&k.Name, &k.Digest)
	if err == sql.ErrNoRows {
		return Kernel{}, false, nil
	}
	if err != nil {
		return Kernel{}, false, fmt.Errorf("kernel: cache lookup: %w", err)
	}
	return k, true, nil
}

// Store records a lowered kernel under (digest, target), overwriting any
// existing entry.
func (c *Cache) Store(digest string, target Target, k Kernel) error {
	_, err := c.db.Exec(
		`INSERT OR REPLACE INTO kernels (digest, target, name, kernel_digest) VALUES (?, ?, ?, ?)`,
		digest, target.Triple, k.Name, k.Digest,
	)
	if err != nil {
		return fmt.Errorf("kernel: cache store: %w", err)
	}
	return nil
}

// CachedOracle wraps an Oracle, consulting a Cache before delegating Lower
// to the wrapped oracle. Build always delegates directly: linking is not
// cached, only individual kernel lowering.
type CachedOracle struct {
	Oracle Oracle
	Cache  *Cache
}

func (c CachedOracle) Lower(fn *ir.Function, target Target) ([]Kernel, error) {
	digest := Digest(fn)
	if k, ok, err := c.Cache.Lookup(digest, target); err != nil {
		return nil, err
	} else if ok {
		return []Kernel{k}, nil
	}
	kernels, err := c.Oracle.Lower(fn, target)
	if err != nil {
		return nil, err
	}
	if len(kernels) == 1 {
		if err := c.Cache.Store(digest, target, kernels[0]); err != nil {
			return nil, err
		}
	}
	return kernels, nil
}

// Build delegates directly to the wrapped oracle: linking is not cached,
// only individual kernel lowering.
func (c CachedOracle) Build(kernels []Kernel, target Target) (NativeModule, error) {
	return c.Oracle.Build(kernels, target)
}
