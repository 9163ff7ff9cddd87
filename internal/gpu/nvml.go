package gpu

import (
	"codeberg.org/mutker/pipdrain/internal/errors"
	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

// library abstracts the NVML entry points for testing
type library interface {
	Initialize() error
	Shutdown() error
	DeviceCount() (int, error)
	Device(index int) (device, error)
}

type nvmlLibrary struct {
	initialized bool
}

func (l *nvmlLibrary) Initialize() error {
	if l.initialized {
		return nil
	}

	if ret := nvml.Init(); !IsNVMLSuccess(ret) {
		return errors.New().Wrap(ErrInitFailed, newNVMLError(ret))
	}
	l.initialized = true

	return nil
}

func (l *nvmlLibrary) Shutdown() error {
	if !l.initialized {
		return nil
	}

	if ret := nvml.Shutdown(); !IsNVMLSuccess(ret) {
		return errors.New().Wrap(ErrShutdownFailed, newNVMLError(ret))
	}
	l.initialized = false

	return nil
}

func (l *nvmlLibrary) DeviceCount() (int, error) {
	errFactory := errors.New()
	if !l.initialized {
		return 0, errFactory.New(ErrNotInitialized)
	}

	count, ret := nvml.DeviceGetCount()
	if !IsNVMLSuccess(ret) {
		return 0, errFactory.Wrap(ErrDeviceCountFailed, newNVMLError(ret))
	}

	return count, nil
}

func (l *nvmlLibrary) Device(index int) (device, error) {
	errFactory := errors.New()
	if !l.initialized {
		return nil, errFactory.New(ErrNotInitialized)
	}

	dev, ret := nvml.DeviceGetHandleByIndex(index)
	if !IsNVMLSuccess(ret) {
		return nil, errFactory.Wrap(ErrDeviceNotFound, newNVMLError(ret))
	}

	return dev, nil
}
