package trend

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerfectLineSlopeAndIntercept(t *testing.T) {
	tr := New("test", 0)
	for x := 0.0; x < 10; x++ {
		tr.Insert(x, 2*x+5)
	}
	snap := tr.CloneSnapshot()
	assert.InDelta(t, 2.0, snap.Slope(), 1e-9)
	assert.InDelta(t, 5.0, snap.Intercept(), 1e-9)
	assert.InDelta(t, 1.0, snap.RSquared(), 1e-9)
}

func TestEvictionKeepsSumsExact(t *testing.T) {
	const capacity = 4
	tr := New("ring", capacity)

	// Insert more than capacity; the trend should reflect only the last
	// `capacity` samples, matching a freshly built trend over that tail.
	for i := 0; i < 10; i++ {
		tr.Insert(float64(i), float64(i)*3)
	}
	assert.Equal(t, capacity, tr.Count())

	fresh := New("fresh", capacity)
	for i := 6; i < 10; i++ {
		fresh.Insert(float64(i), float64(i)*3)
	}

	got := tr.CloneSnapshot()
	want := fresh.CloneSnapshot()
	assert.InDelta(t, want.SumX, got.SumX, 1e-9)
	assert.InDelta(t, want.SumY, got.SumY, 1e-9)
	assert.InDelta(t, want.SumXX, got.SumXX, 1e-9)
	assert.InDelta(t, want.SumXY, got.SumXY, 1e-9)
	assert.InDelta(t, want.SumYY, got.SumYY, 1e-9)
}

func TestEmptyTrendIsInert(t *testing.T) {
	tr := New("empty", 10)
	snap := tr.CloneSnapshot()
	assert.Equal(t, 0, snap.Count)
	assert.Equal(t, 0.0, snap.Slope())
	assert.Equal(t, 0.0, snap.Intercept())
	assert.Equal(t, 0.0, snap.RSquared())
	assert.Equal(t, 0.0, snap.Deviation())
}

func TestSamplesReturnsOldestFirstAfterWraparound(t *testing.T) {
	const capacity = 4
	tr := New("wrap", capacity)
	for i := 0; i < 6; i++ {
		tr.Insert(float64(i), float64(i))
	}

	samples := tr.Samples()
	require.Len(t, samples, capacity)
	for i, s := range samples {
		want := float64(i + 2) // samples 0,1 were evicted
		assert.Equal(t, want, s.X)
		assert.Equal(t, want, s.Y)
	}
}

func TestSamplesBeforeCapacityReached(t *testing.T) {
	tr := New("partial", 10)
	tr.Insert(1, 10)
	tr.Insert(2, 20)

	samples := tr.Samples()
	require.Len(t, samples, 2)
	assert.Equal(t, Sample{X: 1, Y: 10}, samples[0])
	assert.Equal(t, Sample{X: 2, Y: 20}, samples[1])
}

func TestDeviationMatchesPopulationStdDev(t *testing.T) {
	tr := New("dev", 0)
	vals := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	for i, y := range vals {
		tr.Insert(float64(i), y)
	}
	snap := tr.CloneSnapshot()

	var sum float64
	for _, y := range vals {
		sum += y
	}
	mean := sum / float64(len(vals))
	var ss float64
	for _, y := range vals {
		ss += (y - mean) * (y - mean)
	}
	want := math.Sqrt(ss / float64(len(vals)))

	assert.InDelta(t, want, snap.Deviation(), 1e-9)
}
