package gpu

import (
	"sync"

	"codeberg.org/mutker/pipdrain/internal/errors"
	"codeberg.org/mutker/pipdrain/internal/logger"
	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

const (
	utilizationWindowSize = 10
	milliWattsToWatts     = 1000
)

var _ Monitor = (*GPU)(nil)

type GPU struct {
	lib    library
	device device
	name   string
	log    logger.Logger

	mu      sync.RWMutex
	history []int
}

// New returns a monitor for the first NVML device. Call Initialize before
// sampling.
func New(log logger.Logger) *GPU {
	return newGPU(&nvmlLibrary{}, log)
}

func newGPU(lib library, log logger.Logger) *GPU {
	if log == nil {
		log = logger.New("gpu")
	}
	return &GPU{lib: lib, log: log}
}

func (g *GPU) Initialize() error {
	errFactory := errors.New()

	if err := g.lib.Initialize(); err != nil {
		return err
	}

	count, err := g.lib.DeviceCount()
	if err != nil {
		return err
	}
	if count == 0 {
		return errFactory.New(ErrNoDevices)
	}

	dev, err := g.lib.Device(0)
	if err != nil {
		return err
	}
	g.device = dev

	if name, ret := dev.GetName(); IsNVMLSuccess(ret) {
		g.name = name
		g.log.Info().Str("name", name).Int("devices", count).Msg("Detected GPU")
	} else {
		g.log.Warn().Err(newNVMLError(ret)).Msg("Failed to get GPU name")
	}

	return nil
}

func (g *GPU) Shutdown() error {
	return g.lib.Shutdown()
}

func (g *GPU) Name() string {
	return g.name
}

// Sample reads utilisation, temperature and power draw. Temperature and
// power are optional on many boards, so only a utilisation failure fails
// the sample.
func (g *GPU) Sample() (Reading, error) {
	errFactory := errors.New()

	if g.device == nil {
		return Reading{}, errFactory.New(ErrNotInitialized)
	}

	util, ret := g.device.GetUtilizationRates()
	if !IsNVMLSuccess(ret) {
		return Reading{}, errFactory.Wrap(ErrUtilizationReadFailed, newNVMLError(ret))
	}
	reading := Reading{
		Utilization: Utilization(util.Gpu),
		Memory:      Utilization(util.Memory),
	}

	if temp, ret := g.device.GetTemperature(nvml.TEMPERATURE_GPU); IsNVMLSuccess(ret) {
		reading.Temperature = Temperature(temp)
	} else {
		g.log.Debug().Err(errFactory.Wrap(ErrTemperatureReadFailed, newNVMLError(ret))).Send()
	}

	if mw, ret := g.device.GetPowerUsage(); IsNVMLSuccess(ret) {
		reading.Power = Power(mw / milliWattsToWatts)
	} else {
		g.log.Debug().Err(errFactory.Wrap(ErrPowerReadFailed, newNVMLError(ret))).Send()
	}

	g.updateHistory(int(reading.Utilization))

	return reading, nil
}

// AverageUtilization is the mean over the last few samples.
func (g *GPU) AverageUtilization() Utilization {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if len(g.history) == 0 {
		return 0
	}

	sum := 0
	for _, u := range g.history {
		sum += u
	}

	return Utilization(sum / len(g.history))
}

func (g *GPU) updateHistory(u int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.history = append(g.history, u)
	if len(g.history) > utilizationWindowSize {
		g.history = g.history[1:]
	}
}
