package atg

import (
	"testing"
	"time"

	"github.com/evstack/stationsim/internal/station"
	"github.com/stretchr/testify/require"
)

func TestPolicyFromTemplateConvertsSecondsToDuration(t *testing.T) {
	p := PolicyFromTemplate(station.ATGPolicy{
		MinDelayBetweenTwoTransactions: 10,
		MaxDelayBetweenTwoTransactions: 30,
		MinDurationOfTransaction:       60,
		MaxDurationOfTransaction:       120,
		RequireAuthorize:               true,
	})
	require.Equal(t, 10*time.Second, p.MinDelayBetweenTwoTransactions)
	require.Equal(t, 30*time.Second, p.MaxDelayBetweenTwoTransactions)
	require.True(t, p.RequireAuthorize)
}

func TestRandDurationStaysWithinBounds(t *testing.T) {
	min, max := 5*time.Second, 15*time.Second
	for i := 0; i < 50; i++ {
		d := randDuration(min, max)
		require.GreaterOrEqual(t, d, min)
		require.Less(t, d, max)
	}
}

func TestRandDurationHandlesDegenerateRange(t *testing.T) {
	require.Equal(t, 5*time.Second, randDuration(5*time.Second, 5*time.Second))
	require.Equal(t, 5*time.Second, randDuration(5*time.Second, 1*time.Second))
}
