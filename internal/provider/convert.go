package provider

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/spotwatch/spotwatch/internal/model"
)

// specFromAWS converts an EC2 instance type description to a spec.
// DefaultCores is the physical core count, DefaultVCpus the vCPU count;
// either may be absent for older or exotic types, as may the clock speed.
func specFromAWS(info types.InstanceTypeInfo) model.InstanceTypeSpec {
	spec := model.InstanceTypeSpec{
		Name: string(info.InstanceType),
	}

	if info.VCpuInfo != nil {
		if info.VCpuInfo.DefaultCores != nil {
			spec.PCores = int(*info.VCpuInfo.DefaultCores)
		}
		if info.VCpuInfo.DefaultVCpus != nil {
			v := int(*info.VCpuInfo.DefaultVCpus)
			spec.VCores = &v
		}
	}

	if info.ProcessorInfo != nil && info.ProcessorInfo.SustainedClockSpeedInGhz != nil {
		ghz := *info.ProcessorInfo.SustainedClockSpeedInGhz
		spec.SustainedClockSpeedGHz = &ghz
	}

	return spec
}

// entryFromAWS converts one EC2 spot price record to a raw entry.
func entryFromAWS(sp types.SpotPrice) RawPriceEntry {
	entry := RawPriceEntry{
		InstanceType:       string(sp.InstanceType),
		ProductDescription: string(sp.ProductDescription),
		AvailabilityZone:   aws.ToString(sp.AvailabilityZone),
		SpotPrice:          aws.ToString(sp.SpotPrice),
	}
	if sp.Timestamp != nil {
		entry.Timestamp = sp.Timestamp.UTC()
	}
	return entry
}
