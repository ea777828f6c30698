package pipeline

import (
	"context"
	"fmt"

	"github.com/theirongolddev/ledgercast/internal/model"
	"github.com/theirongolddev/ledgercast/internal/source"
	"github.com/theirongolddev/ledgercast/internal/store"
)

// Dataset names one input export.
type Dataset struct {
	Name string
	Path string
}

// LoadResult holds a raw table and where it came from.
type LoadResult struct {
	Path     string
	Table    model.RawTable
	CacheHit bool
}

// Load reads an export directly from disk.
func Load(path string, opts source.Options) (*LoadResult, error) {
	table, err := source.ReadFile(path, opts)
	if err != nil {
		return nil, err
	}
	return &LoadResult{Path: path, Table: table}, nil
}

// Loader reads exports, through the table cache when one is set.
type Loader struct {
	Source source.Options
	Cache  *store.Cache
}

// Load reads path with the loader's source options.
func (l Loader) Load(path string) (*LoadResult, error) {
	if l.Cache == nil {
		return Load(path, l.Source)
	}
	return LoadWithCache(path, l.Source, l.Cache)
}

// Outcome is the result of running one dataset end to end. Exactly one of
// Result and Err is set.
type Outcome struct {
	Dataset  Dataset
	Result   *model.Result
	Err      error
	CacheHit bool
}

// RunAll loads and forecasts each dataset in turn. A fatal error in one
// dataset is recorded in its Outcome and does not stop the others.
func RunAll(ctx context.Context, datasets []Dataset, loader Loader, opts Options) []Outcome {
	outcomes := make([]Outcome, len(datasets))
	for i, ds := range datasets {
		outcomes[i] = RunOne(ctx, ds, loader, opts)
	}
	return outcomes
}

// RunOne loads and forecasts a single dataset.
func RunOne(ctx context.Context, ds Dataset, loader Loader, opts Options) Outcome {
	out := Outcome{Dataset: ds}
	if ds.Path == "" {
		out.Err = &DatasetError{Dataset: ds.Name, Err: ErrNoInput}
		return out
	}

	lr, err := loader.Load(ds.Path)
	if err != nil {
		out.Err = &DatasetError{Dataset: ds.Name, Err: fmt.Errorf("loading: %w", err)}
		return out
	}
	out.CacheHit = lr.CacheHit

	out.Result, out.Err = RunDataset(ctx, ds.Name, lr.Table, opts)
	return out
}
