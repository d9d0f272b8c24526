package parallel

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

const testBlockSize = 16

func testData(blocks int) []byte {
	data := make([]byte, blocks*testBlockSize)
	for i := range data {
		data[i] = byte(i * 7)
	}
	return data
}

// tagBlock makes every output depend on both the index and the input
func tagBlock(index int, block []byte) ([]byte, error) {
	out := make([]byte, len(block))
	for i, b := range block {
		out[i] = b ^ byte(index) ^ byte(index>>8)
	}
	return out, nil
}

func TestMapMatchesSequential(t *testing.T) {
	pool := NewPool(4)
	for _, blocks := range []int{0, 1, BatchBlocks - 1, BatchBlocks, BatchBlocks + 1, 10*BatchBlocks + 3} {
		data := testData(blocks)

		want, err := MapSequential(context.Background(), data, testBlockSize, tagBlock)
		require.NoError(t, err)

		got, err := pool.Map(context.Background(), data, testBlockSize, tagBlock)
		require.NoError(t, err)
		require.Equal(t, want, got, "blocks=%d", blocks)
	}
}

func TestMapVisitsEveryBlockOnce(t *testing.T) {
	const blocks = 5*BatchBlocks + 7
	seen := make([]int32, blocks)

	_, err := NewPool(3).Map(context.Background(), testData(blocks), testBlockSize, func(i int, b []byte) ([]byte, error) {
		atomic.AddInt32(&seen[i], 1)
		return b, nil
	})
	require.NoError(t, err)
	for i, n := range seen {
		require.EqualValues(t, 1, n, "block %d", i)
	}
}

func TestMapRejectsUnaligned(t *testing.T) {
	_, err := NewPool(2).Map(context.Background(), make([]byte, 17), testBlockSize, tagBlock)
	require.ErrorIs(t, err, ErrNotAligned)

	_, err = MapSequential(context.Background(), make([]byte, 16), 0, tagBlock)
	require.ErrorIs(t, err, ErrNotAligned)
}

func TestMapPropagatesBlockError(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewPool(4).Map(context.Background(), testData(8*BatchBlocks), testBlockSize, func(i int, b []byte) ([]byte, error) {
		if i == 3*BatchBlocks+1 {
			return nil, boom
		}
		return b, nil
	})
	require.ErrorIs(t, err, boom)
	require.NotErrorIs(t, err, ErrCanceled)
}

func TestMapRejectsShortBlock(t *testing.T) {
	_, err := MapSequential(context.Background(), testData(2), testBlockSize, func(i int, b []byte) ([]byte, error) {
		return b[:1], nil
	})
	require.ErrorIs(t, err, ErrBlockSize)
}

func TestMapCanceledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, blocks := range []int{1, 4 * BatchBlocks} {
		_, err := NewPool(2).Map(ctx, testData(blocks), testBlockSize, tagBlock)
		require.ErrorIs(t, err, ErrCanceled)
		require.ErrorIs(t, err, context.Canceled)
	}
}

func TestMapCanceledWhileRunning(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := NewPool(1).Map(ctx, testData(20*BatchBlocks), testBlockSize, func(i int, b []byte) ([]byte, error) {
		if i == BatchBlocks+5 {
			cancel()
		}
		return b, nil
	})
	require.ErrorIs(t, err, ErrCanceled)
	require.ErrorIs(t, err, context.Canceled)
}

func TestNilPoolRunsSequentially(t *testing.T) {
	var pool *Pool
	require.Equal(t, 1, pool.Workers())

	data := testData(3 * BatchBlocks)
	want, err := MapSequential(context.Background(), data, testBlockSize, tagBlock)
	require.NoError(t, err)

	got, err := pool.Map(context.Background(), data, testBlockSize, tagBlock)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestPoolSharedAcrossGoroutines(t *testing.T) {
	pool := NewPool(2)
	data := testData(6 * BatchBlocks)
	want, _ := MapSequential(context.Background(), data, testBlockSize, tagBlock)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := pool.Map(context.Background(), data, testBlockSize, tagBlock)
			if err != nil {
				t.Errorf("Map failed: %v", err)
				return
			}
			if string(got) != string(want) {
				t.Errorf("concurrent Map produced different output")
			}
		}()
	}
	wg.Wait()
}

func TestNewPoolDefaultsWorkers(t *testing.T) {
	require.Positive(t, NewPool(0).Workers())
	require.Equal(t, 3, NewPool(3).Workers())
}
