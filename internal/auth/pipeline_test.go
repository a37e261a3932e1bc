package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPipelinePrefersLocalListOverRemote(t *testing.T) {
	calledRemote := false
	p := NewPipeline(Options{
		LocalList: func(id string) bool { return id == "known" },
		Remote: func(ctx context.Context, id string, timeout time.Duration) (Decision, error) {
			calledRemote = true
			return DecisionAccepted, nil
		},
	})

	res := p.Evaluate(context.Background(), Request{Identifier: "known", Context: ContextTransactionStart})
	require.True(t, res.Accepted())
	require.False(t, calledRemote)
}

func TestPipelineCachesAcceptedDecision(t *testing.T) {
	remoteCalls := 0
	p := NewPipeline(Options{
		Remote: func(ctx context.Context, id string, timeout time.Duration) (Decision, error) {
			remoteCalls++
			return DecisionAccepted, nil
		},
	})

	req := Request{Identifier: "tag-1", Context: ContextTransactionStart}
	r1 := p.Evaluate(context.Background(), req)
	r2 := p.Evaluate(context.Background(), req)

	require.True(t, r1.Accepted())
	require.True(t, r2.Accepted())
	require.Equal(t, 1, remoteCalls)
}

func TestPipelineFallsBackOfflineOnRemoteError(t *testing.T) {
	p := NewPipeline(Options{
		Remote: func(ctx context.Context, id string, timeout time.Duration) (Decision, error) {
			return "", errors.New("dial timeout")
		},
		AllowOfflineForUnknown: true,
	})

	res := p.Evaluate(context.Background(), Request{Identifier: "tag-2", Context: ContextTransactionStart, AllowOffline: true})
	require.True(t, res.Accepted())
	require.True(t, res.IsOffline)
}

func TestPipelineInvalidWithoutOfflineAllowance(t *testing.T) {
	p := NewPipeline(Options{
		Remote: func(ctx context.Context, id string, timeout time.Duration) (Decision, error) {
			return DecisionInvalid, nil
		},
	})

	res := p.Evaluate(context.Background(), Request{Identifier: "tag-3", Context: ContextTransactionStart})
	require.Equal(t, DecisionInvalid, res.Decision)
}

func TestInMemoryAuthCacheNeverCachesInvalid(t *testing.T) {
	c := NewInMemoryAuthCache(10)
	c.Store("x", Result{Decision: DecisionInvalid})
	_, ok := c.Lookup("x")
	require.False(t, ok)
}

func TestInMemoryAuthCacheRateLimitsBurstsAsMiss(t *testing.T) {
	c := NewInMemoryAuthCache(10)
	c.Store("y", Result{Decision: DecisionAccepted})

	hits := 0
	for i := 0; i < 10; i++ {
		if _, ok := c.Lookup("y"); ok {
			hits++
		}
	}
	require.LessOrEqual(t, hits, 3)
	require.Greater(t, c.Stats().RateLimit.BlockedRequests, int64(0))
}

func TestIdentifierAdapterTruncatesToVersionLimit(t *testing.T) {
	long16 := "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	u16 := OCPP16AuthAdapter(long16)
	require.LessOrEqual(t, len(u16.Value), 20)

	long20 := "ABCDEFGHIJKLMNOPQRSTUVWXYZABCDEFGHIJKLMNOP"
	u20 := OCPP20AuthAdapter(long20, "")
	require.LessOrEqual(t, len(u20.Value), 36)
	require.Equal(t, TypeCentral, u20.Type)
}
