// Package devmem provides access to the physical memory of the running
// system through /dev/mem together with helpers that locate the RSDP using
// the information exported by the firmware through sysfs.
package devmem

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gopher-os/acpitables/kernel"
	"github.com/twpayne/go-vfs"
)

// SystabPath is the location of the EFI system table summary exported by
// the kernel.
const SystabPath = "/sys/firmware/efi/systab"

var (
	// ErrNoRSDPEntry is returned when the EFI system table does not list
	// an ACPI entry.
	ErrNoRSDPEntry = &kernel.Error{Module: "devmem", Message: "EFI system table does not reference an RSDP"}
)

// SystabRootPointer returns a function that reads the RSDP address from the
// EFI system table summary in fs. The ACPI 2.0 entry is preferred over the
// ACPI 1.0 one.
func SystabRootPointer(fs vfs.FS) func() (uint64, error) {
	return func() (uint64, error) {
		data, err := fs.ReadFile(SystabPath)
		if err != nil {
			return 0, errors.Wrap(err, "read EFI system table")
		}

		return parseSystab(data)
	}
}

func parseSystab(data []byte) (uint64, error) {
	var (
		acpi1, acpi2       uint64
		hasACPI1, hasACPI2 bool
	)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok || (key != "ACPI" && key != "ACPI20") {
			continue
		}

		addr, err := strconv.ParseUint(value, 0, 64)
		if err != nil {
			return 0, errors.Wrapf(err, "parse %s entry", key)
		}

		if key == "ACPI20" {
			acpi2, hasACPI2 = addr, true
		} else {
			acpi1, hasACPI1 = addr, true
		}
	}

	switch {
	case hasACPI2:
		return acpi2, nil
	case hasACPI1:
		return acpi1, nil
	}

	return 0, ErrNoRSDPEntry
}
