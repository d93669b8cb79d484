package config

import (
	"fmt"

	"github.com/kilianp07/optiwatt/core/model"
)

// TariffRateConfig is one tariff schedule entry.
type TariffRateConfig struct {
	Hour  int     `json:"hour"`
	Price float64 `json:"price"`
	Tier  string  `json:"tier"`
}

// TariffConfig declares the time-of-use schedule. An empty rate list selects
// the built-in default tariff.
type TariffConfig struct {
	Rates []TariffRateConfig `json:"rates"`
}

// Validate checks the declared rates.
func (c TariffConfig) Validate() error {
	for _, r := range c.Rates {
		if r.Hour < 0 || r.Hour >= model.HoursPerDay {
			return fmt.Errorf("tariff hour %d out of range", r.Hour)
		}
		if r.Price <= 0 {
			return fmt.Errorf("tariff price for hour %d must be positive", r.Hour)
		}
	}
	return nil
}

// Table builds the TariffTable described by the configuration.
func (c TariffConfig) Table() model.TariffTable {
	if len(c.Rates) == 0 {
		return model.DefaultTariff()
	}
	records := make([]model.TariffRecord, 0, len(c.Rates))
	for _, r := range c.Rates {
		records = append(records, model.TariffRecord{
			Hour:     r.Hour,
			PriceKWh: r.Price,
			Tier:     model.ParseTier(r.Tier),
		})
	}
	return model.NewTariffTable(records)
}
