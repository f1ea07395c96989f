package culite

import (
	"fmt"
	"runtime"
	"sync"
)

// Device represents a compute device. In culite, this is the host CPU with
// its cores and available memory. Each device has a unique ID and capabilities.
type Device struct {
	ID       int    // Unique device identifier
	Name     string // Human-readable device name
	TotalMem uint64 // Total available memory in bytes
	NumCores int    // Number of CPU cores
}

// DeviceAttribute identifies a queryable device property, mirroring the
// attribute enumeration of the GPU driver APIs.
type DeviceAttribute int

const (
	// AttrComputeCapabilityMajor is the major compute capability version
	AttrComputeCapabilityMajor DeviceAttribute = iota
	// AttrComputeCapabilityMinor is the minor compute capability version
	AttrComputeCapabilityMinor
	// AttrMaxBlockDimX is the maximum X dimension of a block
	AttrMaxBlockDimX
	// AttrMaxThreadsPerBlock is the maximum number of threads per block
	AttrMaxThreadsPerBlock
	// AttrUnifiedAddressing reports whether host and device share an address space
	AttrUnifiedAddressing
	// AttrMultiprocessorCount is the number of parallel processors
	AttrMultiprocessorCount
)

// Global runtime state
var (
	initOnce    sync.Once
	initialized bool
	devices     []*Device
	stateMu     sync.RWMutex
)

// Init initializes the culite runtime and enumerates devices. It must be
// called before any other API function. Calling Init more than once is a
// no-op and always succeeds.
func Init() error {
	initOnce.Do(func() {
		dev := &Device{
			ID:       0,
			Name:     fmt.Sprintf("CPU (%s, %d cores)", runtime.GOARCH, runtime.NumCPU()),
			TotalMem: getSystemMemory(),
			NumCores: runtime.NumCPU(),
		}
		stateMu.Lock()
		devices = []*Device{dev}
		initialized = true
		stateMu.Unlock()
	})
	return nil
}

// DeviceGetCount returns the number of available devices. culite always
// reports one device, the host CPU.
func DeviceGetCount() (int, error) {
	stateMu.RLock()
	defer stateMu.RUnlock()
	if !initialized {
		return 0, ErrNotInitialized
	}
	return len(devices), nil
}

// DeviceGet returns a handle to the device with the given ordinal.
func DeviceGet(id int) (*Device, error) {
	stateMu.RLock()
	defer stateMu.RUnlock()
	if !initialized {
		return nil, ErrNotInitialized
	}
	if id < 0 || id >= len(devices) {
		return nil, ErrInvalidDevice
	}
	return devices[id], nil
}

// Attribute queries a device property.
//
// Example:
//
//	blockSize, _ := dev.Attribute(culite.AttrMaxBlockDimX)
//	grid := (n + blockSize - 1) / blockSize
func (d *Device) Attribute(attr DeviceAttribute) (int, error) {
	switch attr {
	case AttrComputeCapabilityMajor:
		return ComputeCapabilityMajor, nil
	case AttrComputeCapabilityMinor:
		return ComputeCapabilityMinor, nil
	case AttrMaxBlockDimX:
		return MaxBlockDimX, nil
	case AttrMaxThreadsPerBlock:
		return MaxThreadsPerBlock, nil
	case AttrUnifiedAddressing:
		// Host and device memory are the same memory on a CPU.
		return 1, nil
	case AttrMultiprocessorCount:
		return d.NumCores, nil
	default:
		return 0, NewInvalidArgError("Attribute", fmt.Sprintf("unknown attribute: %d", attr))
	}
}
