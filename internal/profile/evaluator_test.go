package profile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evstack/stationsim/internal/station"
)

func TestEvaluateSinglePeriodProfile(t *testing.T) {
	now := time.Now().UTC()
	p := station.ChargingProfile{
		ID:              1,
		StackLevel:      1,
		Kind:            station.KindAbsolute,
		StartSchedule:   now.Add(-10 * time.Second).Unix(),
		DurationSeconds: 3600,
		Unit:            station.RateUnitA,
		Schedule: []station.SchedulePeriod{
			{StartPeriod: 0, Limit: 16},
		},
	}

	res := Evaluate([]station.ChargingProfile{p}, nil, now)
	require.NotNil(t, res)
	assert.Equal(t, 16.0, res.Limit)

	watts := ACPowerTotal(1, 230, res.Limit)
	assert.Equal(t, 3680.0, watts)
}

func TestEvaluateReturnsNilWhenFutureAbsoluteProfile(t *testing.T) {
	now := time.Now().UTC()
	p := station.ChargingProfile{
		Kind:            station.KindAbsolute,
		StartSchedule:   now.Add(time.Hour).Unix(),
		DurationSeconds: 3600,
		Schedule:        []station.SchedulePeriod{{StartPeriod: 0, Limit: 10}},
	}
	assert.Nil(t, Evaluate([]station.ChargingProfile{p}, nil, now))
}

func TestEvaluateMultiPeriodPicksPreviousPeriod(t *testing.T) {
	now := time.Now().UTC()
	windowStart := now.Add(-100 * time.Second)
	p := station.ChargingProfile{
		Kind:            station.KindAbsolute,
		StartSchedule:   windowStart.Unix(),
		DurationSeconds: 3600,
		Schedule: []station.SchedulePeriod{
			{StartPeriod: 0, Limit: 10},
			{StartPeriod: 50, Limit: 20},
			{StartPeriod: 200, Limit: 30}, // in the future relative to now
		},
	}
	res := Evaluate([]station.ChargingProfile{p}, nil, now)
	require.NotNil(t, res)
	assert.Equal(t, 20.0, res.Limit)
}

func TestHigherStackLevelWins(t *testing.T) {
	now := time.Now().UTC()
	low := station.ChargingProfile{
		StackLevel: 1, Kind: station.KindAbsolute,
		StartSchedule: now.Add(-time.Minute).Unix(), DurationSeconds: 3600,
		Schedule: []station.SchedulePeriod{{StartPeriod: 0, Limit: 10}},
	}
	high := station.ChargingProfile{
		StackLevel: 5, Kind: station.KindAbsolute,
		StartSchedule: now.Add(-time.Minute).Unix(), DurationSeconds: 3600,
		Schedule: []station.SchedulePeriod{{StartPeriod: 0, Limit: 32}},
	}
	res := Evaluate([]station.ChargingProfile{low, high}, nil, now)
	require.NotNil(t, res)
	assert.Equal(t, 32.0, res.Limit)
}

func TestClampToStationMax(t *testing.T) {
	assert.Equal(t, 100.0, ClampToStationMax(150, 200, 2))
	assert.Equal(t, 90.0, ClampToStationMax(90, 200, 2))
}
