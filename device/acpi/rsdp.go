package acpi

import (
	"bytes"
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/gopher-os/acpitables/device/acpi/table"
)

var (
	// RDSP must be located in the physical memory region 0xe0000 to 0xfffff
	// or within the first KiB of the extended BIOS data area.
	rsdpLocationLow uint64 = 0xe0000
	rsdpLocationHi  uint64 = 0xfffff
	rsdpAlignment   uint64 = 16

	// ebdaSegmentPtr holds the physical address of the real-mode segment
	// of the extended BIOS data area.
	ebdaSegmentPtr uint64 = 0x40e
	ebdaScanLength uint64 = 1024
)

// FindRSDP looks for the RSDP in the extended BIOS data area and then in
// the legacy BIOS read-only memory area.
func FindRSDP(m Mapper) (uint64, error) {
	if ebda, ok := ebdaAddress(m); ok {
		if addr, err := LocateRSDP(m, ebda, ebda+ebdaScanLength-1); err == nil {
			return addr, nil
		}
	}

	return LocateRSDP(m, rsdpLocationLow, rsdpLocationHi)
}

// LocateRSDP scans the physical memory region [low, high] looking for the
// signature of the root system descriptor pointer (RSDP) at 16-byte aligned
// addresses. It returns the physical address of the first RSDP whose
// checksums are valid.
func LocateRSDP(m Mapper, low, high uint64) (uint64, error) {
	low = (low + rsdpAlignment - 1) &^ (rsdpAlignment - 1)
	if high < low {
		return 0, errors.Wrapf(ErrInvalidArgument, "empty RSDP search region [0x%x, 0x%x]", low, high)
	}

	region, err := m.Map(low, int(high-low+1))
	if err != nil {
		return 0, errors.Wrapf(err, "map RSDP search region [0x%x, 0x%x]", low, high)
	}
	defer func() { _ = m.Unmap(region) }()

	for offset := 0; offset+table.SizeofRSDP <= len(region); offset += int(rsdpAlignment) {
		candidate := region[offset:]
		if !bytes.HasPrefix(candidate, table.RSDPSignature[:]) {
			continue
		}

		if validRSDP(candidate) {
			return low + uint64(offset), nil
		}
	}

	return 0, ErrMissingRSDP
}

// validRSDP checks the ACPI 1.0 checksum of the RSDP at the start of b and,
// for revision 2+ descriptors, the extended checksum.
func validRSDP(b []byte) bool {
	if !table.ValidChecksum(b[:table.SizeofRSDP]) {
		return false
	}

	rsdp, extended, _ := table.DecodeRSDP(b)
	if rsdp.Revision < acpiRev2Plus {
		return true
	}

	if !extended || rsdp.Length < table.SizeofExtRSDP || uint64(rsdp.Length) > uint64(len(b)) {
		return false
	}

	return table.ValidChecksum(b[:rsdp.Length])
}

func ebdaAddress(m Mapper) (uint64, bool) {
	region, err := m.Map(ebdaSegmentPtr, 2)
	if err != nil {
		return 0, false
	}
	defer func() { _ = m.Unmap(region) }()

	if len(region) < 2 {
		return 0, false
	}

	segment := binary.LittleEndian.Uint16(region)
	return uint64(segment) << 4, segment != 0
}
