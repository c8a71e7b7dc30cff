package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CyclesPerGHzHour is the number of core cycles per hour contributed by
// one core running at 1 GHz (3600 s/h × 1e9 Hz).
const CyclesPerGHzHour = 3.6e12

// InstanceTypeSpec describes the hardware of one compute instance type.
// Rows are created and updated only by catalog sync.
type InstanceTypeSpec struct {
	Name                   string   // Primary key (e.g., "m5.xlarge")
	PCores                 int      // Physical core count
	VCores                 *int     // Virtual core (vCPU) count, nil if unknown
	SustainedClockSpeedGHz *float64 // Sustained clock speed, nil if unpublished
}

// PCoreCyclesPerHour returns physical-core cycles per hour, or nil when the
// clock speed is unknown.
func (s InstanceTypeSpec) PCoreCyclesPerHour() *float64 {
	if s.SustainedClockSpeedGHz == nil {
		return nil
	}
	cycles := float64(s.PCores) * *s.SustainedClockSpeedGHz * CyclesPerGHzHour
	return &cycles
}

// VCoreCyclesPerHour returns virtual-core cycles per hour, or nil when the
// clock speed or vCPU count is unknown.
func (s InstanceTypeSpec) VCoreCyclesPerHour() *float64 {
	if s.SustainedClockSpeedGHz == nil || s.VCores == nil {
		return nil
	}
	cycles := float64(*s.VCores) * *s.SustainedClockSpeedGHz * CyclesPerGHzHour
	return &cycles
}

// PriceObservation is one immutable, append-only price sample.
// Logically unique per (instance type, product description, zone, timestamp);
// the surrogate ID allows multiple rows sharing a timestamp.
type PriceObservation struct {
	ID                    uuid.UUID
	Timestamp             time.Time // UTC
	InstanceType          string
	ProductDescription    string // OS/product variant, "" when absent
	Region                string
	AvailabilityZone      string
	PriceUSDHourly        decimal.Decimal
	FemtoUSDPerPCoreCycle *float64
	FemtoUSDPerVCoreCycle *float64
}

// Key returns the identity under which the current-price projection tracks
// this observation.
func (o PriceObservation) Key() CurrentPriceKey {
	return CurrentPriceKey{
		InstanceType:       o.InstanceType,
		ProductDescription: o.ProductDescription,
		AvailabilityZone:   o.AvailabilityZone,
	}
}

// CurrentPriceKey identifies one row of the current-price projection.
// ProductDescription participates in the key even when empty.
type CurrentPriceKey struct {
	InstanceType       string
	ProductDescription string
	AvailabilityZone   string
}

// CurrentPrice is the latest-wins projection row for one key. Its fields
// mirror the most recent PriceObservation for that key.
type CurrentPrice struct {
	InstanceType          string
	ProductDescription    string
	AvailabilityZone      string
	Region                string
	Timestamp             time.Time // UTC
	PriceUSDHourly        decimal.Decimal
	FemtoUSDPerPCoreCycle *float64
	FemtoUSDPerVCoreCycle *float64
}

// Key returns the projection key of this row.
func (c CurrentPrice) Key() CurrentPriceKey {
	return CurrentPriceKey{
		InstanceType:       c.InstanceType,
		ProductDescription: c.ProductDescription,
		AvailabilityZone:   c.AvailabilityZone,
	}
}

// FromObservation builds a projection row mirroring obs.
func FromObservation(obs PriceObservation) CurrentPrice {
	return CurrentPrice{
		InstanceType:          obs.InstanceType,
		ProductDescription:    obs.ProductDescription,
		AvailabilityZone:      obs.AvailabilityZone,
		Region:                obs.Region,
		Timestamp:             obs.Timestamp,
		PriceUSDHourly:        obs.PriceUSDHourly,
		FemtoUSDPerPCoreCycle: obs.FemtoUSDPerPCoreCycle,
		FemtoUSDPerVCoreCycle: obs.FemtoUSDPerVCoreCycle,
	}
}

// RegionQuery bounds one region's price-history fetch.
type RegionQuery struct {
	Region string
	Start  time.Time // UTC, inclusive
	End    time.Time // UTC, inclusive
}
