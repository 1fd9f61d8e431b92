package quality

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScoreWeightSegmentEndpoints(t *testing.T) {
	require.InDelta(t, 0.1, ScoreWeight(0), 1e-9)
	require.InDelta(t, 0.55, ScoreWeight(9), 1e-9)  // just below the n=10 seam
	require.InDelta(t, 0.5, ScoreWeight(10), 1e-9)   // second segment starts at 10
	require.InDelta(t, 0.95, ScoreWeight(19), 1e-9)
	require.InDelta(t, 1.0, ScoreWeight(20), 1e-9)
	require.InDelta(t, 1.2, ScoreWeight(200), 1e-9)
	require.InDelta(t, 1.2, ScoreWeight(10000), 1e-9)
}

func TestScoreWeightMonotonicWithinSegments(t *testing.T) {
	prev := ScoreWeight(10)
	for n := 11; n <= 400; n++ {
		cur := ScoreWeight(n)
		require.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
}

func TestScoreWeightAlwaysInBounds(t *testing.T) {
	for n := -5; n <= 500; n++ {
		w := ScoreWeight(n)
		require.GreaterOrEqual(t, w, MinWeight)
		require.LessOrEqual(t, w, MaxWeight)
	}
}
