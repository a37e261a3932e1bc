package station

import "sync"

// Availability is a connector's operative flag (§3 Connector).
type Availability string

const (
	Operative   Availability = "Operative"
	Inoperative Availability = "Inoperative"
)

// ConnectorStatus is the OCPP status enum, version-agnostic.
type ConnectorStatus string

const (
	StatusAvailable     ConnectorStatus = "Available"
	StatusPreparing     ConnectorStatus = "Preparing"
	StatusCharging      ConnectorStatus = "Charging"
	StatusSuspendedEV   ConnectorStatus = "SuspendedEV"
	StatusSuspendedEVSE ConnectorStatus = "SuspendedEVSE"
	StatusFinishing     ConnectorStatus = "Finishing"
	StatusReserved      ConnectorStatus = "Reserved"
	StatusUnavailable   ConnectorStatus = "Unavailable"
	StatusFaulted       ConnectorStatus = "Faulted"
	StatusOccupied      ConnectorStatus = "Occupied"
)

// TransactionBlock tracks the connector's active-transaction sub-machine.
type TransactionBlock struct {
	Started       bool
	TransactionID int
	IDTag         string
	StartTs       int64 // unix seconds
	RemoteStarted bool
}

// AuthorizeCache is the connector-local memo of the last authorization
// decision (distinct from the process-wide auth cache in component G).
type AuthorizeCache struct {
	LocalAuthorized  *bool
	RemoteAuthorized *bool
	IDTag            string
}

// Connector is one physical (or pseudo, for id 0) outlet. All mutation
// happens under the owning Runtime's single logical thread of control
// (§5); the mutex here only guards reads from the diagnostics surface.
type Connector struct {
	mu sync.RWMutex

	ID           int
	Availability Availability
	Status       ConnectorStatus
	BootStatus   ConnectorStatus

	Transaction TransactionBlock
	AuthCache   AuthorizeCache

	EnergyActiveImportRegister            float64 // Wh, monotonic across transactions
	TransactionEnergyActiveImportRegister float64 // Wh, reset at transaction start
	LastEnergyActiveImportRegisterValue   float64 // preserved across samples; -1 sentinel on re-init

	Profiles []ChargingProfile
}

// NewConnector creates a connector in its boot-derived status.
func NewConnector(id int, bootStatus ConnectorStatus) *Connector {
	if bootStatus == "" {
		bootStatus = StatusAvailable
	}
	return &Connector{
		ID:                                   id,
		Availability:                         Operative,
		Status:                               bootStatus,
		BootStatus:                           bootStatus,
		LastEnergyActiveImportRegisterValue: -1,
	}
}

// SetStatus updates the reported status (caller already holds the
// station's logical thread; this just mirrors under lock for readers).
func (c *Connector) SetStatus(s ConnectorStatus) {
	c.mu.Lock()
	c.Status = s
	c.mu.Unlock()
}

// SnapshotStatus returns the current status for concurrent readers
// (diagnostics HTTP surface, performance sink).
func (c *Connector) SnapshotStatus() ConnectorStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Status
}

// IsActive reports whether a transaction is currently started, enforcing
// the "at most one active per connector" invariant implicitly — callers
// never construct a second TransactionBlock while this is true.
func (c *Connector) IsActive() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Transaction.Started
}

// StartTransaction installs a fresh TransactionBlock and resets the
// transaction energy register to zero, per §4.D.
func (c *Connector) StartTransaction(transactionID int, idTag string, startTs int64, remoteStarted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Transaction = TransactionBlock{
		Started:       true,
		TransactionID: transactionID,
		IDTag:         idTag,
		StartTs:       startTs,
		RemoteStarted: remoteStarted,
	}
	c.TransactionEnergyActiveImportRegister = 0
}

// StopTransaction clears the active TransactionBlock.
func (c *Connector) StopTransaction() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Transaction = TransactionBlock{}
}

// EVSE groups connectors for 2.0.1 (§3 EVSE).
type EVSE struct {
	ID           int
	Availability Availability
	Connectors   []int // connector ids belonging to this EVSE
}

// State is the overall station aggregate derived from connector statuses.
// This is a supplemented feature (not literally named in the distilled
// spec) grounded on a session-manager's aggregate-state computation: it
// feeds the diagnostics surface and the statistics sink's gauges.
type State string

const (
	StateAvailable   State = "Available"
	StateCharging    State = "Charging"
	StateUnavailable State = "Unavailable"
	StateFaulted     State = "Faulted"
	StateUnknown     State = "Unknown"
)

// AggregateState derives one overall State from a set of connector
// statuses, skipping connector 0 (station-wide pseudo-connector has no
// vote). Faulted anywhere wins, then Charging, then Unavailable-everywhere,
// else Available.
func AggregateState(connectors []*Connector) State {
	if len(connectors) == 0 {
		return StateUnknown
	}
	sawCharging := false
	allUnavailable := true
	for _, c := range connectors {
		if c.ID == 0 {
			continue
		}
		switch c.SnapshotStatus() {
		case StatusFaulted:
			return StateFaulted
		case StatusCharging:
			sawCharging = true
			allUnavailable = false
		case StatusUnavailable:
			// stays allUnavailable
		default:
			allUnavailable = false
		}
	}
	if sawCharging {
		return StateCharging
	}
	if allUnavailable {
		return StateUnavailable
	}
	return StateAvailable
}
