package gpu

import "github.com/NVIDIA/go-nvml/pkg/nvml"

// Monitor reports how busy the GPU is while frames are being produced.
type Monitor interface {
	Initialize() error
	Shutdown() error
	Sample() (Reading, error)
	AverageUtilization() Utilization
}

// device is the part of nvml.Device the monitor reads.
type device interface {
	GetName() (string, nvml.Return)
	GetUtilizationRates() (nvml.Utilization, nvml.Return)
	GetTemperature(sensor nvml.TemperatureSensors) (uint32, nvml.Return)
	GetPowerUsage() (uint32, nvml.Return)
}

type (
	Utilization int
	Temperature int
	Power       int

	// Reading is one GPU sample. Power is in watts.
	Reading struct {
		Utilization Utilization
		Memory      Utilization
		Temperature Temperature
		Power       Power
	}
)
