package model

import (
	"errors"
	"math"
	"time"
)

// ErrEmptyDataset is returned when a profile is built from zero usable
// samples. Callers must supply a fallback profile in that case.
var ErrEmptyDataset = errors.New("empty consumption dataset")

// FallbackLoadKW fills hours with no observations in a built profile.
const FallbackLoadKW = 0.5

// ConsumptionSample is one timestamped background-load reading.
type ConsumptionSample struct {
	Timestamp time.Time
	PowerKW   float64
}

// HourlyProfile holds the average background (non-appliance) load in kW per
// hour of day. Immutable for the duration of one optimization run.
type HourlyProfile [HoursPerDay]float64

// FlatProfile returns a profile with the same load at every hour.
func FlatProfile(loadKW float64) HourlyProfile {
	var p HourlyProfile
	for h := range p {
		p[h] = loadKW
	}
	return p
}

// BuildHourlyProfile reduces raw consumption records to a 24-value average
// baseline. Samples with a negative reading are skipped; they do not abort
// the batch. Hours without observations take FallbackLoadKW. The mean is
// rounded to two decimals. Returns ErrEmptyDataset only when no hour has a
// usable sample.
func BuildHourlyProfile(samples []ConsumptionSample) (HourlyProfile, error) {
	var sums [HoursPerDay]float64
	var counts [HoursPerDay]int
	for _, s := range samples {
		if s.PowerKW < 0 {
			continue
		}
		h := s.Timestamp.Hour()
		sums[h] += s.PowerKW
		counts[h]++
	}

	var p HourlyProfile
	usable := false
	for h := range p {
		if counts[h] == 0 {
			p[h] = FallbackLoadKW
			continue
		}
		usable = true
		p[h] = math.Round(sums[h]/float64(counts[h])*100) / 100
	}
	if !usable {
		return HourlyProfile{}, ErrEmptyDataset
	}
	return p, nil
}
