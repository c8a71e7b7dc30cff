// Package normalize derives comparable per-cycle cost metrics from raw
// hourly prices. All functions are pure.
package normalize

import (
	"github.com/shopspring/decimal"

	"github.com/spotwatch/spotwatch/internal/model"
)

// femtoPerUSD scales USD to femto-USD (1e15).
const femtoPerUSD = 1e15

// Metrics computes femto-USD per physical-core cycle and per virtual-core
// cycle for an hourly price. Either result is nil when the corresponding
// cycles-per-hour figure is unknown or zero; a zero figure is treated as
// underivable, not as an error.
func Metrics(priceUSDHourly decimal.Decimal, spec model.InstanceTypeSpec) (femtoPerPCycle, femtoPerVCycle *float64) {
	price := priceUSDHourly.InexactFloat64()
	return perCycle(price, spec.PCoreCyclesPerHour()), perCycle(price, spec.VCoreCyclesPerHour())
}

func perCycle(priceUSDHourly float64, cyclesPerHour *float64) *float64 {
	if cyclesPerHour == nil || *cyclesPerHour == 0 {
		return nil
	}
	femto := femtoPerUSD * priceUSDHourly / *cyclesPerHour
	return &femto
}

// Round4 rounds a derived metric to 4 decimal places for presentation.
// Internally metrics keep full float64 precision; rounding happens only at
// the response boundary.
func Round4(v *float64) *float64 {
	if v == nil {
		return nil
	}
	rounded, _ := decimal.NewFromFloat(*v).Round(4).Float64()
	return &rounded
}
