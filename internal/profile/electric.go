package profile

// ACPowerTotal converts an amperage limit to watts for an AC connector,
// mirroring ACElectricUtils.powerTotal(phases, voltage, amps) from §4.M.
func ACPowerTotal(numberOfPhases int, voltage, amps float64) float64 {
	if numberOfPhases <= 0 {
		numberOfPhases = 1
	}
	return float64(numberOfPhases) * voltage * amps
}

// DCPower converts an amperage limit to watts for a DC connector,
// mirroring DCElectricUtils.power(voltage, amps).
func DCPower(voltage, amps float64) float64 {
	return voltage * amps
}

// ClampToStationMax clamps limit to stationMaximumPower/powerDivider when
// that bound is lower, per §4.M's final clamping step.
func ClampToStationMax(limitWatts, stationMaximumPower float64, powerDivider int) float64 {
	if powerDivider <= 0 {
		powerDivider = 1
	}
	bound := stationMaximumPower / float64(powerDivider)
	if bound > 0 && limitWatts > bound {
		return bound
	}
	return limitWatts
}
