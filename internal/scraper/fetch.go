// Package scraper fetches raw items from RSS/Atom feeds and the headline API
// for the story pipeline.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shiftnews/shift/internal/story"
)

// Source is one place raw items come from.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]story.RawItem, error)
}

// SourceError records why one source contributed nothing.
type SourceError struct {
	Source string
	Err    error
}

func (e SourceError) Error() string {
	return e.Source + ": " + e.Err.Error()
}

func (e SourceError) Unwrap() error {
	return e.Err
}

// FetchResult is the flattened outcome of one FetchAll call.
type FetchResult struct {
	// Items are in source order, then feed order.
	Items []story.RawItem
	// Counts holds the item count per source, indexed like the input.
	Counts []int
	Errors []SourceError
}

// FetchAll fetches every source concurrently, each under its own timeout,
// and waits for all of them. A failing or panicking source contributes no
// items and never aborts the others.
func FetchAll(ctx context.Context, sources []Source, timeout time.Duration) FetchResult {
	var (
		wg      sync.WaitGroup
		batches = make([][]story.RawItem, len(sources))
		errs    = make([]error, len(sources))
	)

	for i, src := range sources {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errs[i] = fmt.Errorf("panic: %v", r)
				}
			}()

			fctx := ctx
			if timeout > 0 {
				var cancel context.CancelFunc
				fctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			batches[i], errs[i] = src.Fetch(fctx)
		}(i, src)
	}
	wg.Wait()

	result := FetchResult{Counts: make([]int, len(sources))}
	for i, src := range sources {
		if errs[i] != nil {
			slog.Warn("source fetch failed", "source", src.Name(), "err", errs[i])
			result.Errors = append(result.Errors, SourceError{Source: src.Name(), Err: errs[i]})
			continue
		}
		result.Counts[i] = len(batches[i])
		result.Items = append(result.Items, batches[i]...)
		slog.Debug("source fetched", "source", src.Name(), "count", len(batches[i]))
	}
	return result
}
