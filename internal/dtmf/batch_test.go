package dtmf

import (
	"context"
	"testing"

	"github.com/ColonelBlimp/dtmf/internal/random"
	"github.com/ColonelBlimp/dtmf/internal/spectral"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectBatch_MatchesSequential(t *testing.T) {
	det := newTestDetector(t, spectral.DefaultBackend, DefaultConfig())
	keys := []rune(Keys + Keys)

	items, err := det.DetectBatch(context.Background(), keys, 777, 4)
	require.NoError(t, err)
	require.Len(t, items, len(keys))

	for i, item := range items {
		assert.Equal(t, i, item.Index)
		assert.Equal(t, random.Derive(777, i), item.Seed)
		require.NoError(t, item.Err)

		want, err := det.Detect(keys[i], random.New(item.Seed))
		require.NoError(t, err)
		assert.Equal(t, want, item.Result, "key %d", i)
	}
}

func TestDetectBatch_WorkerCountDoesNotChangeResults(t *testing.T) {
	det := newTestDetector(t, spectral.BackendGonum, DefaultConfig())
	keys := []rune("159D*#0")

	one, err := det.DetectBatch(context.Background(), keys, 5, 1)
	require.NoError(t, err)
	many, err := det.DetectBatch(context.Background(), keys, 5, 8)
	require.NoError(t, err)

	assert.Equal(t, one, many)
}

func TestDetectBatch_UnknownKeyDoesNotAbort(t *testing.T) {
	det := newTestDetector(t, spectral.DefaultBackend, DefaultConfig())

	items, err := det.DetectBatch(context.Background(), []rune("1x2"), 1, 0)
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.NoError(t, items[0].Err)
	assert.ErrorIs(t, items[1].Err, ErrUnknownKey)
	assert.NoError(t, items[2].Err)
	assert.Equal(t, '2', items[2].Result.Key)
}

func TestDetectBatch_CanceledContext(t *testing.T) {
	det := newTestDetector(t, spectral.DefaultBackend, DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := det.DetectBatch(ctx, []rune(Keys), 1, 2)
	assert.ErrorIs(t, err, context.Canceled)
}
