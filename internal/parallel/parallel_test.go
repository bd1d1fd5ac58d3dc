package parallel

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFor_CoversEveryIndexOnce(t *testing.T) {
	for _, n := range []int{0, 1, 255, 256, 1000, 4097} {
		hits := make([]int32, n)
		err := For(context.Background(), n, 4, func(lo, hi int) {
			for i := lo; i < hi; i++ {
				atomic.AddInt32(&hits[i], 1)
			}
		})
		require.NoError(t, err)
		for i, h := range hits {
			assert.Equal(t, int32(1), h, "n=%d index %d", n, i)
		}
	}
}

func TestFor_DefaultWorkers(t *testing.T) {
	var sum atomic.Int64
	err := For(context.Background(), 10000, 0, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			sum.Add(int64(i))
		}
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10000*9999/2), sum.Load())
}

func TestFor_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := For(ctx, 10, 2, func(lo, hi int) {})
	assert.ErrorIs(t, err, context.Canceled)
}
