package ocpp201

import "github.com/evstack/stationsim/internal/configstore"

// NewBinding builds a ready-to-use 2.0.1 station.Binding, seeding its
// Device Model against cfg and running the startup self-check (§4.F) so
// Persistent defaults are mirrored into the shared config store before the
// boot sequence's BootNotification goes out.
func NewBinding(cfg *configstore.Store) *Binding {
	vars := NewManager(cfg)
	seedDeviceModel(vars)
	vars.SelfCheck()
	return New(vars)
}
