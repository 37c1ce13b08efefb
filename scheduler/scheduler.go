// Package scheduler partitions large feature lists in parallel. The input is split into
// contiguous chunks, each chunk is partitioned by its own worker goroutine, and the
// partial results are merged as the workers finish.
package scheduler

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/ONSdigital/dp-glify-layer/health"
	"github.com/ONSdigital/dp-glify-layer/partition"
	"github.com/ONSdigital/go-ns/log"
	"github.com/paulmach/go.geojson"
	"golang.org/x/sync/errgroup"
)

// Options control a scheduler run.
type Options struct {
	// Workers is the number of chunks (and goroutines). Zero means runtime.NumCPU().
	Workers int
	Policy  partition.Policy
	// Timeout bounds the whole run. Zero means no timeout beyond the context's own.
	Timeout time.Duration
}

// DefaultWorkers returns the host-reported parallelism.
func DefaultWorkers() int {
	return runtime.NumCPU()
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return DefaultWorkers()
}

// Buckets are the merged results of a run. Feature order within Shapes and Lines follows
// worker completion order, not input order.
type Buckets struct {
	Shapes *geojson.FeatureCollection
	Lines  *geojson.FeatureCollection
	Points [][]float64
	// Errors holds per-feature diagnostics under the Skip policy, indexed against the full input.
	Errors []*partition.FeatureError
}

func newBuckets() *Buckets {
	return &Buckets{
		Shapes: geojson.NewFeatureCollection(),
		Lines:  geojson.NewFeatureCollection(),
		Points: [][]float64{},
	}
}

func (b *Buckets) merge(res *Response, offset int) {
	b.Shapes.Features = append(b.Shapes.Features, res.Shapes...)
	b.Lines.Features = append(b.Lines.Features, res.Lines...)
	b.Points = append(b.Points, res.Points...)
	for _, fe := range res.Errors {
		b.Errors = append(b.Errors, &partition.FeatureError{Index: fe.Index + offset, Reason: fe.Reason})
	}
}

// ChunkError is the failure of the worker that owned one chunk.
type ChunkError struct {
	Chunk int
	Err   error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %d: %v", e.Chunk, e.Err)
}

func (e *ChunkError) Unwrap() error { return e.Err }

// PartialError is returned alongside the buckets when some workers failed.
// The buckets then only hold the output of the workers that succeeded.
type PartialError struct {
	Chunks int
	Failed []*ChunkError
}

func (e *PartialError) Error() string {
	msgs := make([]string, len(e.Failed))
	for i, f := range e.Failed {
		msgs[i] = f.Error()
	}
	return fmt.Sprintf("%d of %d chunks failed: %s", len(e.Failed), e.Chunks, strings.Join(msgs, "; "))
}

func (e *PartialError) Unwrap() []error {
	errs := make([]error, len(e.Failed))
	for i, f := range e.Failed {
		errs[i] = f
	}
	return errs
}

type outcome struct {
	chunk  int
	offset int
	res    *Response
	err    error
}

// Run partitions features across opts.Workers goroutines and waits for all of them.
//
// If every worker succeeds the error is nil. If some fail, the buckets hold the merged
// output of the rest and the error is a *PartialError. If the context is done first,
// the returned buckets are nil.
func Run(ctx context.Context, features []*geojson.Feature, opts Options) (*Buckets, error) {
	n := opts.workers()
	defer health.TrackTime(time.Now(), "scheduler.Run", log.Data{"features": len(features), "workers": n})

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("partitioning abandoned: %w", err)
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	chunks := Chunk(features, n)
	outcomes := make(chan outcome, len(chunks))

	var g errgroup.Group
	offset := 0
	for i, c := range chunks {
		i, c, off := i, c, offset
		offset += len(c)
		g.Go(func() error {
			res, err := work(ctx, c, opts.Policy)
			outcomes <- outcome{chunk: i, offset: off, res: res, err: err}
			return err
		})
	}
	go func() {
		g.Wait()
		close(outcomes)
	}()

	buckets := newBuckets()
	var failed []*ChunkError
	for {
		select {
		case <-ctx.Done():
			log.Error(ctx.Err(), log.Data{"_message": "partitioning abandoned", "features": len(features)})
			return nil, fmt.Errorf("partitioning abandoned: %w", ctx.Err())
		case o, ok := <-outcomes:
			if !ok {
				if len(failed) > 0 {
					return buckets, &PartialError{Chunks: len(chunks), Failed: failed}
				}
				return buckets, nil
			}
			if o.err != nil {
				log.ErrorC("partition worker failed", o.err, log.Data{"chunk": o.chunk})
				failed = append(failed, &ChunkError{Chunk: o.chunk, Err: o.err})
				continue
			}
			buckets.merge(o.res, o.offset)
		}
	}
}

// Dispatch starts Run in the background and calls done exactly once with its result.
func Dispatch(ctx context.Context, features []*geojson.Feature, opts Options, done func(*Buckets, error)) {
	go func() {
		done(Run(ctx, features, opts))
	}()
}

// work runs a single worker, converting a panic into an error so one bad chunk cannot take the process down.
func work(ctx context.Context, features []*geojson.Feature, policy partition.Policy) (res *Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("worker panic: %v", r)
		}
	}()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Work(&Request{Features: features}, policy)
}
