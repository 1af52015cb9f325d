// Package batch runs a function over a slice of items with bounded fan-out.
package batch

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Result pairs an input item with the value or error its call produced.
type Result[T, R any] struct {
	Item  T
	Value R
	Err   error
}

// Run calls fn for every item with at most limit calls in flight and returns
// one Result per item, in input order. A failing call never cancels its
// siblings; errors are reported per item. Items not yet started when ctx is
// cancelled get ctx.Err() without fn being called.
func Run[T, R any](ctx context.Context, items []T, limit int, fn func(context.Context, T) (R, error)) []Result[T, R] {
	if limit < 1 {
		limit = 1
	}

	results := make([]Result[T, R], len(items))

	var g errgroup.Group
	g.SetLimit(limit)

	for i, item := range items {
		results[i].Item = item
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			results[i].Value, results[i].Err = fn(ctx, item)
			return nil
		})
	}

	_ = g.Wait()
	return results
}

// Chunk splits items into consecutive slices of at most size elements.
func Chunk[T any](items []T, size int) [][]T {
	if size < 1 {
		size = 1
	}
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for size < len(items) {
		items, chunks = items[size:], append(chunks, items[:size:size])
	}
	if len(items) > 0 {
		chunks = append(chunks, items)
	}
	return chunks
}
