package auth

import (
	"context"
	"fmt"
	"time"
)

// Strategy is one link of the §4.G chain: [Cache, LocalList, Remote,
// OfflineFallback]. The first strategy to return a non-Invalid decision
// wins; only the tail strategy's non-Accepted decision is returned as-is.
type Strategy interface {
	Evaluate(ctx context.Context, req Request) Result
}

// RemoteAuthorizer is the seam into the station's outbound Authorize /
// TransactionEvent(Started) call, implemented by station.Runtime's
// sendRequest plumbing via a small adapter so this package never imports
// internal/station directly.
type RemoteAuthorizer func(ctx context.Context, identifier string, timeout time.Duration) (Decision, error)

// LocalListChecker is the seam into component A's tag file membership
// check (idtag.Cache.Contains).
type LocalListChecker func(identifier string) bool

// Pipeline is the concrete §4.G strategy chain.
type Pipeline struct {
	cache            *InMemoryAuthCache
	localList        LocalListChecker
	remote           RemoteAuthorizer
	remoteTimeout    time.Duration
	allowOfflineForUnknown bool
	localAuthorizeOffline bool
}

// Options configures Pipeline construction.
type Options struct {
	Cache                  *InMemoryAuthCache
	LocalList              LocalListChecker
	Remote                 RemoteAuthorizer
	RemoteTimeout          time.Duration
	AllowOfflineForUnknown bool // AllowOfflineTxForUnknownId
	LocalAuthorizeOffline  bool
}

// NewPipeline builds the ordered strategy chain from opts.
func NewPipeline(opts Options) *Pipeline {
	if opts.Cache == nil {
		opts.Cache = NewInMemoryAuthCache(0)
	}
	if opts.RemoteTimeout <= 0 {
		opts.RemoteTimeout = 60 * time.Second
	}
	return &Pipeline{
		cache:                 opts.Cache,
		localList:             opts.LocalList,
		remote:                opts.Remote,
		remoteTimeout:         opts.RemoteTimeout,
		allowOfflineForUnknown: opts.AllowOfflineForUnknown,
		localAuthorizeOffline: opts.LocalAuthorizeOffline,
	}
}

// Evaluate runs req through [Cache, LocalList, Remote, OfflineFallback],
// stopping at the first non-Invalid decision.
func (p *Pipeline) Evaluate(ctx context.Context, req Request) Result {
	if res, ok := p.cache.Lookup(req.Identifier); ok {
		return res
	}

	if p.localList != nil && p.localList(req.Identifier) {
		res := Result{Decision: DecisionAccepted}
		p.cache.Store(req.Identifier, res)
		return res
	}

	if p.remote != nil {
		decision, err := p.remote(ctx, req.Identifier, p.remoteTimeout)
		if err != nil {
			res := Result{Decision: DecisionInvalid, AdditionalInfo: map[string]any{"error": err.Error()}}
			return p.maybeFallback(req, res)
		}
		if decision != DecisionInvalid {
			res := Result{Decision: decision}
			p.cache.Store(req.Identifier, res)
			return res
		}
		return p.maybeFallback(req, Result{Decision: DecisionInvalid})
	}

	return p.offlineFallback(req)
}

// maybeFallback runs the OfflineFallback tail strategy when an upstream
// strategy terminated Invalid, returning that Invalid result untouched if
// offline fallback also declines.
func (p *Pipeline) maybeFallback(req Request, upstream Result) Result {
	fb := p.offlineFallback(req)
	if fb.Decision == DecisionAccepted {
		return fb
	}
	return upstream
}

// offlineFallback implements §4.G's final strategy: Accepted+isOffline
// iff allowOffline and (AllowOfflineTxForUnknownId or LocalAuthorizeOffline).
func (p *Pipeline) offlineFallback(req Request) Result {
	if req.AllowOffline && (p.allowOfflineForUnknown || p.localAuthorizeOffline) {
		return Result{Decision: DecisionAccepted, IsOffline: true}
	}
	return Result{Decision: DecisionInvalid}
}

// Stats exposes the cache's accounting block for the diagnostics surface.
func (p *Pipeline) Stats() CacheStats {
	return p.cache.Stats()
}

var _ fmt.Stringer = Decision("")

// String satisfies fmt.Stringer so Decision prints as its bare wire value
// in logs instead of Go's default quoted-string verb.
func (d Decision) String() string { return string(d) }
