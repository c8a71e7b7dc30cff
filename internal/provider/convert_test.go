package provider

import (
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

func TestSpecFromAWS(t *testing.T) {
	info := types.InstanceTypeInfo{
		InstanceType: types.InstanceType("m5.xlarge"),
		VCpuInfo: &types.VCpuInfo{
			DefaultCores: aws.Int32(2),
			DefaultVCpus: aws.Int32(4),
		},
		ProcessorInfo: &types.ProcessorInfo{
			SustainedClockSpeedInGhz: aws.Float64(2.5),
		},
	}

	spec := specFromAWS(info)

	if spec.Name != "m5.xlarge" {
		t.Errorf("Name = %q, want m5.xlarge", spec.Name)
	}
	if spec.PCores != 2 {
		t.Errorf("PCores = %d, want 2", spec.PCores)
	}
	if spec.VCores == nil || *spec.VCores != 4 {
		t.Errorf("VCores = %v, want 4", spec.VCores)
	}
	if spec.SustainedClockSpeedGHz == nil || *spec.SustainedClockSpeedGHz != 2.5 {
		t.Errorf("SustainedClockSpeedGHz = %v, want 2.5", spec.SustainedClockSpeedGHz)
	}
}

func TestSpecFromAWS_MissingFields(t *testing.T) {
	// Some catalog entries omit processor info or vCPU details entirely.
	info := types.InstanceTypeInfo{
		InstanceType: types.InstanceType("a1.medium"),
	}

	spec := specFromAWS(info)

	if spec.Name != "a1.medium" {
		t.Errorf("Name = %q, want a1.medium", spec.Name)
	}
	if spec.PCores != 0 {
		t.Errorf("PCores = %d, want 0", spec.PCores)
	}
	if spec.VCores != nil {
		t.Errorf("VCores = %v, want nil", spec.VCores)
	}
	if spec.SustainedClockSpeedGHz != nil {
		t.Errorf("SustainedClockSpeedGHz = %v, want nil", spec.SustainedClockSpeedGHz)
	}
}

func TestEntryFromAWS(t *testing.T) {
	ts := time.Date(2024, 12, 14, 9, 0, 0, 0, time.FixedZone("PST", -8*3600))

	sp := types.SpotPrice{
		InstanceType:       types.InstanceType("m5.large"),
		ProductDescription: types.RIProductDescription("Linux/UNIX"),
		AvailabilityZone:   aws.String("us-east-1a"),
		SpotPrice:          aws.String("0.033"),
		Timestamp:          aws.Time(ts),
	}

	entry := entryFromAWS(sp)

	if entry.InstanceType != "m5.large" {
		t.Errorf("InstanceType = %q, want m5.large", entry.InstanceType)
	}
	if entry.ProductDescription != "Linux/UNIX" {
		t.Errorf("ProductDescription = %q, want Linux/UNIX", entry.ProductDescription)
	}
	if entry.AvailabilityZone != "us-east-1a" {
		t.Errorf("AvailabilityZone = %q, want us-east-1a", entry.AvailabilityZone)
	}
	if entry.SpotPrice != "0.033" {
		t.Errorf("SpotPrice = %q, want 0.033", entry.SpotPrice)
	}
	if entry.Timestamp.Location() != time.UTC {
		t.Errorf("Timestamp location = %v, want UTC", entry.Timestamp.Location())
	}
	if !entry.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want instant %v", entry.Timestamp, ts)
	}
}

func TestEntryFromAWS_NilTimestamp(t *testing.T) {
	entry := entryFromAWS(types.SpotPrice{
		InstanceType: types.InstanceType("m5.large"),
	})
	if !entry.Timestamp.IsZero() {
		t.Errorf("Timestamp = %v, want zero", entry.Timestamp)
	}
}
