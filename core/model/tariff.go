package model

// HoursPerDay is the number of hour-of-day slots in every profile and tariff.
const HoursPerDay = 24

// Tier is a named pricing band of the time-of-use tariff.
type Tier int

const (
	TierOffPeak Tier = iota
	TierNormal
	TierPeak
)

// String returns a human-readable representation of the tier.
func (t Tier) String() string {
	switch t {
	case TierOffPeak:
		return "off-peak"
	case TierNormal:
		return "normal"
	case TierPeak:
		return "peak"
	default:
		return "unknown"
	}
}

// ParseTier maps a tier label to its Tier value. Unknown labels map to
// TierNormal, matching the default applied to unlisted hours.
func ParseTier(s string) Tier {
	switch s {
	case "off-peak", "offpeak":
		return TierOffPeak
	case "peak":
		return TierPeak
	default:
		return TierNormal
	}
}

// TariffRate is the price and tier applied during one hour of day.
type TariffRate struct {
	PriceKWh float64
	Tier     Tier
}

// TariffRecord is one entry of a tariff schedule as supplied by the caller.
type TariffRecord struct {
	Hour     int
	PriceKWh float64
	Tier     Tier
}

// DefaultNormalPrice is applied to hours absent from a tariff schedule.
const DefaultNormalPrice = 6.00

// TariffTable maps each hour of day to a rate. Immutable after construction.
type TariffTable [HoursPerDay]TariffRate

// NewTariffTable builds a table from an unordered schedule. The last record
// wins if an hour appears more than once; out-of-range hours are ignored.
// Unlisted hours default to the normal tier at DefaultNormalPrice.
func NewTariffTable(records []TariffRecord) TariffTable {
	var t TariffTable
	for h := range t {
		t[h] = TariffRate{PriceKWh: DefaultNormalPrice, Tier: TierNormal}
	}
	for _, r := range records {
		if r.Hour < 0 || r.Hour >= HoursPerDay {
			continue
		}
		t[r.Hour] = TariffRate{PriceKWh: r.PriceKWh, Tier: r.Tier}
	}
	return t
}

// DefaultTariff returns the reference time-of-use tariff: off-peak 4.50
// from 22:00 to 05:00, peak 8.50 from 18:00 to 21:00, normal 6.00 otherwise.
func DefaultTariff() TariffTable {
	var t TariffTable
	for h := 0; h < HoursPerDay; h++ {
		switch {
		case h >= 22 || h < 6:
			t[h] = TariffRate{PriceKWh: 4.50, Tier: TierOffPeak}
		case h >= 18 && h < 22:
			t[h] = TariffRate{PriceKWh: 8.50, Tier: TierPeak}
		default:
			t[h] = TariffRate{PriceKWh: 6.00, Tier: TierNormal}
		}
	}
	return t
}

// RunCost is the cost of drawing powerKW over a contiguous run starting at
// start for duration hours, wrapping past midnight.
func (t TariffTable) RunCost(powerKW float64, start, duration int) float64 {
	var sum float64
	for _, h := range RunHours(start, duration) {
		sum += t[h].PriceKWh
	}
	return powerKW * sum
}

// HoursByTier returns the hours carrying the given tier in ascending order.
func (t TariffTable) HoursByTier(tier Tier) []int {
	var hours []int
	for h := 0; h < HoursPerDay; h++ {
		if t[h].Tier == tier {
			hours = append(hours, h)
		}
	}
	return hours
}
