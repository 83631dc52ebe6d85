package sim

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingUpdater struct {
	deltas []float64
	err    error
}

func (r *recordingUpdater) Once(dt float64) error {
	r.deltas = append(r.deltas, dt)
	return r.err
}

func newAdapter(t *testing.T, target Updater, scale float64) *Adapter {
	t.Helper()
	adapter, err := NewAdapter(target, scale)
	require.NoError(t, err)
	return adapter
}

func TestAdapter(t *testing.T) {
	t.Run("first step records the baseline", func(t *testing.T) {
		target := &recordingUpdater{}
		adapter := newAdapter(t, target, SecondsToSeconds)

		require.NoError(t, adapter.Step(5.0))
		assert.Empty(t, target.deltas)

		require.NoError(t, adapter.Step(8.0))
		assert.Equal(t, []float64{3.0}, target.deltas)
		assert.Equal(t, uint64(1), adapter.Ticks())
	})

	t.Run("minutes scaling", func(t *testing.T) {
		target := &recordingUpdater{}
		adapter := newAdapter(t, target, SecondsToMinutes)

		require.NoError(t, adapter.Step(0))
		require.NoError(t, adapter.Step(90))
		require.Len(t, target.deltas, 1)
		assert.InDelta(t, 1.5, target.deltas[0], 1e-12)
	})

	t.Run("equal readings give a zero tick", func(t *testing.T) {
		target := &recordingUpdater{}
		adapter := newAdapter(t, target, SecondsToSeconds)
		require.NoError(t, adapter.Step(2))
		require.NoError(t, adapter.Step(2))
		assert.Equal(t, []float64{0}, target.deltas)
	})

	t.Run("regression keeps the baseline", func(t *testing.T) {
		target := &recordingUpdater{}
		adapter := newAdapter(t, target, SecondsToSeconds)

		require.NoError(t, adapter.Step(10))
		assert.ErrorIs(t, adapter.Step(9), ErrClockRegression)
		assert.ErrorIs(t, adapter.Step(math.NaN()), ErrClockRegression)
		assert.Empty(t, target.deltas)

		last, ok := adapter.Last()
		assert.True(t, ok)
		assert.Equal(t, 10.0, last)

		require.NoError(t, adapter.Step(12))
		assert.Equal(t, []float64{2}, target.deltas)
	})

	t.Run("reset", func(t *testing.T) {
		target := &recordingUpdater{}
		adapter := newAdapter(t, target, SecondsToSeconds)
		require.NoError(t, adapter.Step(100))

		adapter.Reset()
		_, ok := adapter.Last()
		assert.False(t, ok)
		require.NoError(t, adapter.Step(1))
		require.NoError(t, adapter.Step(4))
		assert.Equal(t, []float64{3}, target.deltas)
	})

	t.Run("monotonic clock never yields negative deltas", func(t *testing.T) {
		target := &recordingUpdater{}
		adapter := newAdapter(t, target, SecondsToMinutes)
		for _, now := range []float64{0, 0, 0.5, 0.5, 3, 3.25, 100} {
			require.NoError(t, adapter.Step(now))
		}
		for _, dt := range target.deltas {
			assert.GreaterOrEqual(t, dt, 0.0)
		}
	})

	t.Run("target error is wrapped", func(t *testing.T) {
		boom := errors.New("boom")
		adapter := newAdapter(t, &recordingUpdater{err: boom}, SecondsToSeconds)
		require.NoError(t, adapter.Step(0))
		assert.ErrorIs(t, adapter.Step(1), boom)
	})
}

func TestNewAdapterRejectsBadScale(t *testing.T) {
	for _, scale := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		adapter, err := NewAdapter(&recordingUpdater{}, scale)
		assert.Error(t, err, "scale %v", scale)
		assert.Nil(t, adapter)
	}
}

func TestTimeScale(t *testing.T) {
	scale, err := TimeScale("seconds")
	require.NoError(t, err)
	assert.Equal(t, SecondsToSeconds, scale)

	scale, err = TimeScale("minutes")
	require.NoError(t, err)
	assert.Equal(t, SecondsToMinutes, scale)

	_, err = TimeScale("fortnights")
	assert.Error(t, err)
}
