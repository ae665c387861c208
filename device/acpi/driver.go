package acpi

import (
	"fmt"
	"io"

	"github.com/gopher-os/acpitables/device"
)

// Driver exposes the table directory through the device driver interface.
type Driver struct {
	cfg Config
	dir *Directory
}

// NewDriver returns a driver that builds its directory from cfg.
func NewDriver(cfg Config) *Driver {
	return &Driver{cfg: cfg}
}

// DriverInit initializes this driver.
func (drv *Driver) DriverInit(w io.Writer) error {
	dir, err := Init(drv.cfg)
	if err != nil {
		return err
	}

	drv.dir = dir
	drv.printTableInfo(w)

	return nil
}

// DriverName returns the name of this driver.
func (*Driver) DriverName() string {
	return "ACPI"
}

// DriverVersion returns the version of this driver.
func (*Driver) DriverVersion() (uint16, uint16, uint16) {
	return 0, 1, 0
}

// Directory returns the table directory populated by DriverInit.
func (drv *Driver) Directory() *Directory {
	return drv.dir
}

func (drv *Driver) printTableInfo(w io.Writer) {
	for _, info := range drv.dir.Tables() {
		fmt.Fprintf(w, "%s at 0x%16x %6x (%6s %8s) %s\n",
			info.Signature.String(),
			info.PhysAddr,
			info.Length,
			info.OEMID,
			info.OEMTableID,
			info.Origin.String(),
		)
	}
}

// Probe returns a driver if an RSDP can be located through cfg. When cfg
// does not supply a root pointer function, the legacy BIOS areas are scanned
// through cfg.Mapper.
func Probe(cfg Config) device.ProbeFn {
	return func() device.Driver {
		if cfg.RootPointer == nil {
			if cfg.Mapper == nil {
				return nil
			}

			rsdpAddr, err := FindRSDP(cfg.Mapper)
			if err != nil {
				return nil
			}

			cfg.RootPointer = func() (uint64, error) { return rsdpAddr, nil }
		}

		return NewDriver(cfg)
	}
}

// RegisterDriver registers the ACPI driver with the device registry.
func RegisterDriver(cfg Config) {
	device.RegisterDriver(&device.DriverInfo{
		Order: device.DetectOrderACPI,
		Probe: Probe(cfg),
	})
}
