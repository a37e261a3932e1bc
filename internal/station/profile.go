package station

// ProfileKind and ProfilePurpose are the ChargingProfile taxonomy from §3/§4.M.
type ProfileKind string
type ProfilePurpose string
type RecurrencyKind string
type ChargingRateUnit string

const (
	KindAbsolute ProfileKind = "Absolute"
	KindRecurring ProfileKind = "Recurring"
	KindRelative ProfileKind = "Relative"

	RecurrencyDaily  RecurrencyKind = "Daily"
	RecurrencyWeekly RecurrencyKind = "Weekly"

	RateUnitW ChargingRateUnit = "W"
	RateUnitA ChargingRateUnit = "A"
)

// SchedulePeriod is one (startPeriodSeconds, limit, numberPhases?) entry.
type SchedulePeriod struct {
	StartPeriod   int // seconds relative to the schedule's startSchedule
	Limit         float64
	NumberPhases  *int
}

// ChargingProfile is sorted by StackLevel (descending) at the connector.
type ChargingProfile struct {
	ID             int
	StackLevel     int
	Purpose        ProfilePurpose
	Kind           ProfileKind
	Recurrency     RecurrencyKind // only meaningful when Kind == KindRecurring
	StartSchedule  int64          // unix seconds
	DurationSeconds int64
	Unit           ChargingRateUnit
	Schedule       []SchedulePeriod
}
