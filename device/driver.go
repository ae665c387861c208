// Package device defines the driver interface and the registry that drivers
// use to announce themselves to the probe loop.
package device

import (
	"io"
	"sync"
)

// Driver is an interface implemented by all drivers.
type Driver interface {
	// DriverName returns the name of the driver.
	DriverName() string

	// DriverVersion returns the driver version.
	DriverVersion() (major uint16, minor uint16, patch uint16)

	// DriverInit initializes the device driver. Any diagnostic output
	// should be written to the supplied io.Writer.
	DriverInit(io.Writer) error
}

// ProbeFn is a function that scans for the presence of a particular
// piece of hardware and returns a driver for it.
type ProbeFn func() Driver

// DetectOrder specifies when each driver's probe function will be invoked.
type DetectOrder int8

// The list of supported detection orders.
const (
	// DetectOrderEarly drivers are probed before anything else.
	DetectOrderEarly DetectOrder = -128

	// DetectOrderBeforeACPI drivers are probed before the ACPI tables
	// have been enumerated.
	DetectOrderBeforeACPI DetectOrder = -127

	// DetectOrderACPI is used by the ACPI table driver.
	DetectOrderACPI DetectOrder = 0

	// DetectOrderLast drivers are probed once everything else has been
	// detected.
	DetectOrderLast DetectOrder = 127
)

// DriverInfo is a driver-defined struct that is passed to RegisterDriver.
type DriverInfo struct {
	// Order specifies at which stage the probe function is invoked.
	Order DetectOrder

	// Probe is invoked to check for the presence of the driver's device.
	Probe ProbeFn
}

// DriverInfoList is a list of registered drivers that implements
// sort.Interface.
type DriverInfoList []*DriverInfo

// Len returns the length of the driver info list.
func (l DriverInfoList) Len() int { return len(l) }

// Swap exchanges 2 elements in the driver info list.
func (l DriverInfoList) Swap(i, j int) { l[i], l[j] = l[j], l[i] }

// Less compares 2 elements of the driver info list.
func (l DriverInfoList) Less(i, j int) bool { return l[i].Order < l[j].Order }

var (
	registryMu        sync.Mutex
	registeredDrivers DriverInfoList
)

// RegisterDriver adds the supplied driver info entry to the registry.
func RegisterDriver(info *DriverInfo) {
	registryMu.Lock()
	registeredDrivers = append(registeredDrivers, info)
	registryMu.Unlock()
}

// DriverList returns a copy of the list of registered drivers.
func DriverList() DriverInfoList {
	registryMu.Lock()
	defer registryMu.Unlock()

	list := make(DriverInfoList, len(registeredDrivers))
	copy(list, registeredDrivers)
	return list
}
