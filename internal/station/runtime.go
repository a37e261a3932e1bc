package station

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/evstack/stationsim/internal/configstore"
	"github.com/evstack/stationsim/internal/correlator"
	"github.com/evstack/stationsim/internal/ocpp"
	"github.com/evstack/stationsim/internal/transport"
)

// AuthChecker is the seam the runtime calls into component G without
// importing it directly (§9 constructor-injected handles instead of
// back-references).
type AuthChecker interface {
	Authorize(ctx context.Context, identifier string, connectorID int) (accepted bool, isOffline bool)
}

// ATGController is the seam the runtime uses to start/stop component I.
type ATGController interface {
	Start(ctx context.Context)
	Stop()
}

// IDTagSource is the seam into component A.
type IDTagSource func(connectorID int) string

// ProfileLimit is a version-agnostic effective charging limit, as returned
// by the seam into component M (the Charging-Profile Evaluator).
type ProfileLimit struct {
	Limit float64
	Unit  ChargingRateUnit
}

// ProfileEvaluator is the seam into component M. Taking and returning only
// station types keeps this package free of a dependency on internal/profile,
// which itself depends on station's ChargingProfile type — wiring the
// concrete evaluator happens one layer up, in the harness that constructs
// both packages (§9 pattern).
type ProfileEvaluator func(connectorProfiles, connectorZeroProfiles []ChargingProfile, now time.Time) (ProfileLimit, bool)

// Runtime is one station's full OCPP runtime: connection, correlator,
// connectors, configuration, and the boot/heartbeat/meter schedulers. All
// mutation happens from its own goroutines serialized through mu, matching
// the "single logical thread of control" contract in §5.
type Runtime struct {
	mu sync.Mutex

	Template *Template
	Info     *Info
	Version  ocpp.Version

	Connectors   map[int]*Connector
	connectorIDs []int // stable iteration order
	EVSEs        map[int]*EVSE

	Config     *configstore.Store
	Correlator *correlator.Correlator
	Transport  *transport.Manager
	Binding    Binding
	dispatcher *ocpp.Dispatcher

	Auth AuthChecker
	ATG  ATGController
	IDTagSource IDTagSource
	ProfileEvaluator ProfileEvaluator

	log *slog.Logger

	heartbeatStop          chan struct{}
	heartbeatDone          chan struct{}
	heartbeatIntervalValue time.Duration

	meterStop map[int]chan struct{}

	powerDivider int
	maxPower     float64

	registered bool
	stopped    bool
}

// Options bundles the constructor-injected collaborators (§9: resolve
// cyclic references with interfaces passed at construction).
type Options struct {
	Template *Template
	Info     *Info
	Version  ocpp.Version
	Binding  Binding
	Config   *configstore.Store
	Log      *slog.Logger
	Auth     AuthChecker
	IDTagSource IDTagSource
	ProfileEvaluator ProfileEvaluator
}

// New builds a Runtime and its transport.Manager together: the manager's
// open/close/message hooks are method values bound to the not-yet-fully
// populated Runtime pointer, which is safe because they only run once
// Start is called, by which time construction has finished. This avoids
// the cyclic-reference problem (§9) without either side needing a setter.
func New(opts Options, tcfg transport.Config) *Runtime {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	rt := &Runtime{
		Template:    opts.Template,
		Info:        opts.Info,
		Version:     opts.Version,
		Connectors:  make(map[int]*Connector),
		EVSEs:       make(map[int]*EVSE),
		Config:      opts.Config,
		Binding:     opts.Binding,
		Auth:        opts.Auth,
		IDTagSource: opts.IDTagSource,
		ProfileEvaluator: opts.ProfileEvaluator,
		log:         log.With("station", opts.Info.Name),
		meterStop:   make(map[int]chan struct{}),
	}
	rt.buildConnectors()
	rt.maxPower = rt.totalMaxPower()

	tcfg.StationName = opts.Info.Name
	tcfg.Version = opts.Version
	rt.Transport = transport.New(tcfg, log, rt.onOpen, rt.onClose, rt.HandleInbound)
	rt.Correlator = correlator.New(rt.Transport.Send, rt.log)
	rt.dispatcher = opts.Binding.NewDispatcher(rt)
	rt.recomputePowerDivider()
	return rt
}

func (rt *Runtime) totalMaxPower() float64 {
	var sum float64
	for i := range rt.ConnectorIDs() {
		sum += rt.Template.ResolvedPower(i)
	}
	return sum
}

func (rt *Runtime) buildConnectors() {
	n := rt.numberOfConnectors()
	if rt.Template.UseConnectorID0 {
		rt.Connectors[0] = NewConnector(0, StatusAvailable)
		rt.connectorIDs = append(rt.connectorIDs, 0)
	}
	for i := 1; i <= n; i++ {
		boot := StatusAvailable
		if spec, ok := rt.Template.Connectors[fmt.Sprintf("%d", i)]; ok && spec.BootStatus != "" {
			boot = ConnectorStatus(spec.BootStatus)
		}
		rt.Connectors[i] = NewConnector(i, boot)
		rt.connectorIDs = append(rt.connectorIDs, i)
	}
}

func (rt *Runtime) numberOfConnectors() int {
	switch v := rt.Template.NumberOfConnectors.(type) {
	case float64:
		return int(v)
	case []any:
		return len(v)
	default:
		return 1
	}
}

// ConnectorIDs returns non-zero connector ids in ascending order.
func (rt *Runtime) ConnectorIDs() []int {
	out := make([]int, 0, len(rt.connectorIDs))
	for _, id := range rt.connectorIDs {
		if id != 0 {
			out = append(out, id)
		}
	}
	return out
}

// Connector returns the connector for id, or nil.
func (rt *Runtime) Connector(id int) *Connector {
	return rt.Connectors[id]
}

// recomputePowerDivider implements §4.D's powerDivider rule: the number of
// sharing connectors (connector 0 is never counted), or the count of
// active transactions when powerSharedByConnectors is set.
func (rt *Runtime) recomputePowerDivider() {
	if rt.Template.PowerSharedByConnectors {
		active := 0
		for _, c := range rt.Connectors {
			if c.ID != 0 && c.IsActive() {
				active++
			}
		}
		if active == 0 {
			active = 1
		}
		rt.powerDivider = active
		return
	}
	n := len(rt.ConnectorIDs())
	if n == 0 {
		n = 1
	}
	rt.powerDivider = n
}

// PowerDivider returns the current power-sharing divisor.
func (rt *Runtime) PowerDivider() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.powerDivider
}

// StationState aggregates connector statuses per the supplemented feature.
func (rt *Runtime) StationState() State {
	conns := make([]*Connector, 0, len(rt.Connectors))
	for _, c := range rt.Connectors {
		conns = append(conns, c)
	}
	return AggregateState(conns)
}

// HashID returns the station's stable identity hash, used by the
// worker-pool and broadcast-channel control plane to address it.
func (rt *Runtime) HashID() string {
	return rt.Info.HashID
}

// ConnectorSnapshot is the diagnostics-facing view of one connector.
type ConnectorSnapshot struct {
	ID             int             `json:"id"`
	Availability   Availability    `json:"availability"`
	Status         ConnectorStatus `json:"status"`
	TransactionID  int             `json:"transactionId,omitempty"`
	EnergyRegister float64         `json:"energyActiveImportRegister"`
}

// Snapshot is the serialized view posted back with lifecycle events and
// served by the diagnostics HTTP surface (§4.J, /stations route).
type Snapshot struct {
	HashID      string              `json:"hashId"`
	Name        string              `json:"name"`
	Vendor      string              `json:"vendor"`
	Model       string              `json:"model"`
	Version     ocpp.Version        `json:"ocppVersion"`
	State       State               `json:"state"`
	Connected   bool                `json:"connected"`
	Connectors  []ConnectorSnapshot `json:"connectors"`
}

// Snapshot builds the current point-in-time Snapshot. Connector reads use
// each connector's own RWMutex, so this is safe to call from any goroutine
// while the runtime is live.
func (rt *Runtime) Snapshot() any {
	ids := rt.connectorIDsAll()
	conns := make([]ConnectorSnapshot, 0, len(ids))
	for _, id := range ids {
		c := rt.Connector(id)
		if c == nil {
			continue
		}
		c.mu.RLock()
		conns = append(conns, ConnectorSnapshot{
			ID:             c.ID,
			Availability:   c.Availability,
			Status:         c.Status,
			TransactionID:  c.Transaction.TransactionID,
			EnergyRegister: c.EnergyActiveImportRegister,
		})
		c.mu.RUnlock()
	}
	return Snapshot{
		HashID:     rt.Info.HashID,
		Name:       rt.Info.Name,
		Vendor:     rt.Info.ChargePointVendor,
		Model:      rt.Info.ChargePointModel,
		Version:    rt.Version,
		State:      rt.StationState(),
		Connected:  rt.Transport.State() == transport.Open,
		Connectors: conns,
	}
}

// connectorIDsAll includes connector 0 when present, unlike ConnectorIDs.
func (rt *Runtime) connectorIDsAll() []int {
	out := make([]int, len(rt.connectorIDs))
	copy(out, rt.connectorIDs)
	return out
}

// Start dials the transport, wiring the boot/reconnect sequence as the
// connection manager's open hook.
func (rt *Runtime) Start(ctx context.Context) error {
	return rt.Transport.Start(ctx)
}

// sendRequest is the normal (buffered-if-not-ready) outbound path used by
// ordinary runtime-initiated traffic (heartbeat, meter values, ATG).
func (rt *Runtime) sendRequest(ctx context.Context, logicalName string, args any, timeout time.Duration) (json.RawMessage, error) {
	action, payload, err := rt.Binding.Build(logicalName, args)
	if err != nil {
		return nil, err
	}
	return rt.Correlator.SendRequestVia(ctx, action, payload, timeout, rt.Transport.Send)
}

// sendImmediate is used for the reconnect-open boot sequence, bypassing
// the pre-connect backlog buffer per §4.C/§8 scenario 3.
func (rt *Runtime) sendImmediate(ctx context.Context, send func([]byte) error, logicalName string, args any, timeout time.Duration) (json.RawMessage, error) {
	action, payload, err := rt.Binding.Build(logicalName, args)
	if err != nil {
		return nil, err
	}
	return rt.Correlator.SendRequestVia(ctx, action, payload, timeout, correlator.Sender(send))
}

// HandleInbound decodes one inbound frame and dispatches/resolves it.
// Malformed frames are logged and dropped, never panic (§7).
func (rt *Runtime) HandleInbound(raw []byte) {
	frame, err := ocpp.Decode(raw)
	if err != nil {
		rt.log.Error("dropping malformed frame", "error", err)
		return
	}
	switch f := frame.(type) {
	case *ocpp.Call:
		rt.handleCall(f)
	case *ocpp.CallResult:
		rt.Correlator.ResolveResult(f.MessageID, f.Payload)
	case *ocpp.CallErrorFrame:
		rt.Correlator.ResolveError(f.MessageID, ocpp.New(f.ErrorCode, f.Description).WithDetails(f.Details))
	}
}

func (rt *Runtime) handleCall(call *ocpp.Call) {
	ctx := context.Background()
	resp, ocppErr := rt.dispatcher.Dispatch(ctx, call.Action, call.Payload)
	var frame []byte
	var err error
	if ocppErr != nil {
		frame, err = ocpp.EncodeCallError(call.MessageID, ocppErr)
	} else {
		frame, err = ocpp.EncodeCallResult(call.MessageID, resp)
	}
	if err != nil {
		rt.log.Error("failed to encode response", "action", call.Action, "error", err)
		return
	}
	if err := rt.Transport.Send(frame); err != nil {
		rt.log.Error("failed to send response", "action", call.Action, "error", err)
	}
}

// Stop runs the §4.C stop sequence: stop heartbeat/meter timers and ATG,
// send StopTransaction for every active transaction, send
// StatusNotification(Unavailable) per connector, then close the socket.
func (rt *Runtime) Stop(ctx context.Context, reasonType string) error {
	rt.mu.Lock()
	if rt.stopped {
		rt.mu.Unlock()
		return nil
	}
	rt.stopped = true
	rt.mu.Unlock()

	rt.stopHeartbeat()
	rt.stopAllMeterTimers()
	if rt.ATG != nil {
		rt.ATG.Stop()
	}

	reason := fmt.Sprintf("%sReset", reasonType)
	if reasonType == "" {
		reason = "Other"
	}
	for _, id := range rt.ConnectorIDs() {
		c := rt.Connector(id)
		if c.IsActive() {
			rt.stopTransactionOn(ctx, c, reason)
		}
	}
	for _, id := range rt.ConnectorIDs() {
		rt.emitStatusNotification(ctx, id, StatusUnavailable)
	}
	return rt.Transport.Stop()
}

func (rt *Runtime) stopTransactionOn(ctx context.Context, c *Connector, reason string) {
	result, err := rt.sendRequest(ctx, LogicalStopTransaction, StopTxArgs{
		ConnectorID:   c.ID,
		TransactionID: c.Transaction.TransactionID,
		IDTag:         c.Transaction.IDTag,
		MeterStop:     c.TransactionEnergyActiveImportRegister,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Reason:        reason,
	}, correlator.DefaultTimeout)
	if err != nil {
		rt.log.Warn("stop transaction request failed during shutdown", "connector", c.ID, "error", err)
	}
	_ = result
	c.StopTransaction()
}

func (rt *Runtime) emitStatusNotification(ctx context.Context, connectorID int, status ConnectorStatus) {
	c := rt.Connector(connectorID)
	if c != nil {
		c.SetStatus(status)
	}
	_, err := rt.sendRequest(ctx, LogicalStatusNotification, StatusNotificationArgs{
		ConnectorID: connectorID,
		Status:      status,
		ErrorCode:   "NoError",
	}, correlator.DefaultTimeout)
	if err != nil {
		rt.log.Warn("status notification failed", "connector", connectorID, "error", err)
	}
}
