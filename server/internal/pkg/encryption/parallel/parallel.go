// Package parallel runs independent per-block work across a shared worker
// budget while keeping the output in block order.
package parallel

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/golang/glog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// BatchBlocks is the number of consecutive blocks handled by one task
const BatchBlocks = 64

var (
	ErrNotAligned = errors.New("parallel: input is not a multiple of block size")
	ErrCanceled   = errors.New("parallel: canceled while waiting for batches")
	ErrBlockSize  = errors.New("parallel: block function returned a short block")
)

// BlockFunc transforms the block at index. It must return exactly
// len(block) bytes and must not retain block.
type BlockFunc func(index int, block []byte) ([]byte, error)

// Pool is a worker budget shared by every cipher operation in the process.
// Each Map call borrows slots for its batches and returns them when the batch
// finishes, so a Pool is safe for concurrent use. A nil *Pool runs everything
// on the calling goroutine.
type Pool struct {
	workers int
	sem     *semaphore.Weighted
}

// NewPool creates a pool running at most workers batches at once.
// workers <= 0 means GOMAXPROCS.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Pool{
		workers: workers,
		sem:     semaphore.NewWeighted(int64(workers)),
	}
}

// Workers returns the number of batches that may run concurrently
func (p *Pool) Workers() int {
	if p == nil {
		return 1
	}
	return p.workers
}

// Map applies fn to every blockSize-long block of data and returns the
// results concatenated in block order. Inputs that fit into a single batch
// are processed synchronously.
func (p *Pool) Map(ctx context.Context, data []byte, blockSize int, fn BlockFunc) ([]byte, error) {
	blocks, err := count(data, blockSize)
	if err != nil {
		return nil, err
	}
	if p == nil || blocks <= BatchBlocks {
		return MapSequential(ctx, data, blockSize, fn)
	}

	out := make([]byte, len(data))
	batches := (blocks + BatchBlocks - 1) / BatchBlocks
	if glog.V(2) {
		glog.Infof("parallel: %d blocks in %d batches over %d workers", blocks, batches, p.workers)
	}

	g, gctx := errgroup.WithContext(ctx)
	for b := 0; b < batches; b++ {
		first := b * BatchBlocks
		last := min(first+BatchBlocks, blocks)

		if err := p.sem.Acquire(gctx, 1); err != nil {
			// gctx is only done early when a batch failed or ctx ended
			break
		}
		g.Go(func() error {
			defer p.sem.Release(1)
			return runBatch(gctx, data, out, blockSize, first, last, fn)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, canceled(ctx, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, canceled(ctx, err)
	}
	return out, nil
}

// MapSequential is Map restricted to the calling goroutine. ctx is checked
// at every batch boundary.
func MapSequential(ctx context.Context, data []byte, blockSize int, fn BlockFunc) ([]byte, error) {
	blocks, err := count(data, blockSize)
	if err != nil {
		return nil, err
	}

	out := make([]byte, len(data))
	for first := 0; first < blocks; first += BatchBlocks {
		if err := runBatch(ctx, data, out, blockSize, first, min(first+BatchBlocks, blocks), fn); err != nil {
			return nil, canceled(ctx, err)
		}
	}
	return out, nil
}

func count(data []byte, blockSize int) (int, error) {
	if blockSize <= 0 || len(data)%blockSize != 0 {
		return 0, fmt.Errorf("%w: %d bytes, block size %d", ErrNotAligned, len(data), blockSize)
	}
	return len(data) / blockSize, nil
}

func runBatch(ctx context.Context, src, dst []byte, blockSize, first, last int, fn BlockFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for i := first; i < last; i++ {
		off := i * blockSize
		res, err := fn(i, src[off:off+blockSize])
		if err != nil {
			return err
		}
		if len(res) != blockSize {
			return fmt.Errorf("%w: block %d has %d bytes", ErrBlockSize, i, len(res))
		}
		copy(dst[off:], res)
	}
	return nil
}

// canceled tags context failures so callers can match both ErrCanceled and
// the context's own error.
func canceled(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return fmt.Errorf("%w: %w", ErrCanceled, ctxErr)
	}
	return err
}

// Checkpoint returns a cancellation error once ctx is done. Sequential
// chaining code calls it at batch boundaries.
func Checkpoint(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCanceled, err)
	}
	return nil
}
