// Package profile implements component M: the Charging-Profile Evaluator,
// resolving the effective power/current limit for a connector at a given
// instant from its and connector 0's active ChargingProfiles.
package profile

import (
	"sort"
	"time"

	"github.com/evstack/stationsim/internal/station"
)

// Result is the evaluator's outcome: the effective limit and the profile
// that produced it, or a nil Result if nothing is active.
type Result struct {
	Limit                  float64
	Unit                   station.ChargingRateUnit
	MatchingChargingProfile station.ChargingProfile
}

const daySeconds = 24 * 60 * 60

// Evaluate sorts copies of connectorProfiles and connectorZeroProfiles by
// stackLevel descending (highest first), merges them and returns the first
// active profile's computed limit at now, per §4.M.
func Evaluate(connectorProfiles, connectorZeroProfiles []station.ChargingProfile, now time.Time) *Result {
	byLevel := func(ps []station.ChargingProfile) []station.ChargingProfile {
		out := append([]station.ChargingProfile(nil), ps...)
		sort.SliceStable(out, func(i, j int) bool { return out[i].StackLevel > out[j].StackLevel })
		return out
	}
	merged := mergeByStackLevel(byLevel(connectorProfiles), byLevel(connectorZeroProfiles))

	for _, p := range merged {
		start, ok := effectiveWindowStart(p, now)
		if !ok {
			continue
		}
		end := start + p.DurationSeconds
		nowSec := now.Unix()
		if nowSec < start || nowSec >= end {
			continue
		}
		limit, ok := scanPeriods(p, start, nowSec)
		if !ok {
			continue
		}
		return &Result{Limit: limit, Unit: p.Unit, MatchingChargingProfile: p}
	}
	return nil
}

// mergeByStackLevel interleaves two already-sorted (descending) lists,
// preserving overall descending stackLevel order.
func mergeByStackLevel(a, b []station.ChargingProfile) []station.ChargingProfile {
	out := make([]station.ChargingProfile, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i].StackLevel >= b[j].StackLevel {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

// effectiveWindowStart computes the profile's effective startSchedule per
// kind: Recurring+Daily shifts to today, rewinding a day if the shifted
// start is still in the future; Absolute/Relative use startSchedule as-is
// and are inactive if it lies in the future.
func effectiveWindowStart(p station.ChargingProfile, now time.Time) (int64, bool) {
	switch p.Kind {
	case station.KindRecurring:
		if p.Recurrency != station.RecurrencyDaily {
			// Weekly recurrence is accepted by the data model but not
			// exercised by this evaluator; treat as a static window like
			// Absolute until a concrete need for weekly shift arises.
			if p.StartSchedule > now.Unix() {
				return 0, false
			}
			return p.StartSchedule, true
		}
		orig := time.Unix(p.StartSchedule, 0).UTC()
		today := time.Date(now.Year(), now.Month(), now.Day(), orig.Hour(), orig.Minute(), orig.Second(), 0, time.UTC)
		shifted := today.Unix()
		if shifted > now.Unix() {
			shifted -= daySeconds
		}
		return shifted, true
	default: // Absolute, Relative
		if p.StartSchedule > now.Unix() {
			return 0, false
		}
		return p.StartSchedule, true
	}
}

// scanPeriods finds the effective limit within an active profile's
// schedule, per §4.M: a single startPeriod=0 period wins outright;
// otherwise the last period whose start is <= now wins.
func scanPeriods(p station.ChargingProfile, windowStart, nowSec int64) (float64, bool) {
	if len(p.Schedule) == 0 {
		return 0, false
	}
	if len(p.Schedule) == 1 && p.Schedule[0].StartPeriod == 0 {
		return p.Schedule[0].Limit, true
	}

	best := -1
	for i, period := range p.Schedule {
		periodStart := windowStart + int64(period.StartPeriod)
		if periodStart > nowSec {
			break
		}
		best = i
	}
	if best == -1 {
		// No period has started yet; the last period in the list applies
		// per §4.M's "if no period is after now" fallback, read together
		// with the loop above meaning every period is in the future only
		// when windowStart itself is in the future, which effectiveWindowStart
		// already excludes for Absolute/Relative. Recurring can still reach
		// here if all periods start later than the shifted window start.
		best = len(p.Schedule) - 1
	}
	return p.Schedule[best].Limit, true
}
