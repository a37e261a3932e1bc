package auth

import "context"

// StationAdapter satisfies station.AuthChecker without this package
// importing internal/station (which would create an import cycle once
// station wires an auth.Pipeline into its Runtime.Options).
type StationAdapter struct {
	pipeline     *Pipeline
	allowOffline bool
}

// NewStationAdapter wraps pipeline for station.Runtime's AuthChecker seam.
func NewStationAdapter(pipeline *Pipeline, allowOffline bool) *StationAdapter {
	return &StationAdapter{pipeline: pipeline, allowOffline: allowOffline}
}

// Authorize implements station.AuthChecker.
func (a *StationAdapter) Authorize(ctx context.Context, identifier string, connectorID int) (accepted bool, isOffline bool) {
	res := a.pipeline.Evaluate(ctx, Request{
		Identifier:   identifier,
		ConnectorID:  connectorID,
		Context:      ContextTransactionStart,
		AllowOffline: a.allowOffline,
	})
	return res.Accepted(), res.IsOffline
}
