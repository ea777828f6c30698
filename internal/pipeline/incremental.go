package pipeline

import (
	"os"
	"path/filepath"

	"github.com/theirongolddev/ledgercast/internal/source"
	"github.com/theirongolddev/ledgercast/internal/store"
)

// LoadWithCache returns the cached table for path when the file's mtime,
// size, and read options are unchanged; otherwise it reads the file and
// refreshes the cache entry.
func LoadWithCache(path string, opts source.Options, cache *store.Cache) (*LoadResult, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}

	// A cache read failure falls through to a fresh parse.
	if cached, ok, err := cache.LoadTable(abs); err == nil && ok {
		if cached.File.Matches(info) && cached.Options == opts.Key() {
			return &LoadResult{Path: abs, Table: cached.Table, CacheHit: true}, nil
		}
	}

	lr, err := Load(abs, opts)
	if err != nil {
		return nil, err
	}
	_ = cache.SaveTable(abs, opts.Key(), lr.Table, info.ModTime().UnixNano(), info.Size())
	return lr, nil
}

// CacheDir returns the platform-appropriate cache directory.
func CacheDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "ledgercast")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", "ledgercast")
}

// CachePath returns the full path to the cache database.
func CachePath() string {
	return filepath.Join(CacheDir(), "tables.db")
}
