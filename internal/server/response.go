package server

import (
	"time"

	"github.com/spotwatch/spotwatch/internal/database"
	"github.com/spotwatch/spotwatch/internal/normalize"
)

// currentPriceResponse is one row of the /current payload. Normalized
// metrics are rounded to four decimals at this boundary only; storage keeps
// full precision.
type currentPriceResponse struct {
	InstanceType           string   `json:"instance_type"`
	ProductDescription     string   `json:"product_description"`
	Region                 string   `json:"region"`
	AvailabilityZone       string   `json:"availability_zone"`
	Timestamp              string   `json:"timestamp"`
	PriceUSDHourly         string   `json:"price_usd_hourly"`
	FemtoUSDPerPCoreCycle  *float64 `json:"femto_usd_per_p_core_cycle"`
	FemtoUSDPerVCoreCycle  *float64 `json:"femto_usd_per_v_core_cycle"`
	PCores                 *int     `json:"p_cores"`
	VCores                 *int     `json:"v_cores"`
	SustainedClockSpeedGHz *float64 `json:"sustained_clock_speed_ghz"`
}

type currentPricesEnvelope struct {
	Prices []currentPriceResponse `json:"prices"`
	Count  int                    `json:"count"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
}

func toResponse(row database.CurrentPriceRow) currentPriceResponse {
	return currentPriceResponse{
		InstanceType:           row.InstanceType,
		ProductDescription:     row.ProductDescription,
		Region:                 row.Region,
		AvailabilityZone:       row.AvailabilityZone,
		Timestamp:              row.Timestamp.UTC().Format(time.RFC3339),
		PriceUSDHourly:         row.PriceUSDHourly.String(),
		FemtoUSDPerPCoreCycle:  normalize.Round4(row.FemtoUSDPerPCoreCycle),
		FemtoUSDPerVCoreCycle:  normalize.Round4(row.FemtoUSDPerVCoreCycle),
		PCores:                 row.PCores,
		VCores:                 row.VCores,
		SustainedClockSpeedGHz: row.SustainedClockSpeedGHz,
	}
}
