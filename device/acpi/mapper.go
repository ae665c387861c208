package acpi

import (
	"github.com/cockroachdb/errors"
	"github.com/gopher-os/acpitables/device/acpi/table"
)

// Mapper turns a physical address range into an accessible byte slice and
// back. Mapping identical or overlapping ranges must be supported; each Map
// call is paired with exactly one Unmap call for the returned slice.
type Mapper interface {
	// Map returns a slice that provides access to length bytes starting
	// at the physical address phys.
	Map(phys uint64, length int) ([]byte, error)

	// Unmap releases a slice previously returned by Map.
	Unmap(region []byte) error
}

// RootPointerFn returns the physical address of the RSDP.
type RootPointerFn func() (uint64, error)

// peekHeader maps just enough memory to decode the table header at phys and
// releases the mapping before returning.
func peekHeader(m Mapper, phys uint64) (table.SDTHeader, error) {
	region, err := m.Map(phys, table.SizeofSDTHeader)
	if err != nil {
		return table.SDTHeader{}, errors.Wrapf(err, "map table header at 0x%x", phys)
	}

	hdr, ok := table.DecodeSDTHeader(region)
	unmapErr := m.Unmap(region)
	if !ok {
		return hdr, errors.Wrapf(ErrInvalidTableLength, "mapper returned %d bytes for table header at 0x%x", len(region), phys)
	}

	return hdr, errors.Wrapf(unmapErr, "unmap table header at 0x%x", phys)
}

// mapTable maps the table header at phys to learn its declared length and
// then maps the full table. The header mapping is released before the full
// mapping is requested. The returned slice covers exactly the declared
// length of the table.
func mapTable(m Mapper, phys uint64) ([]byte, error) {
	hdr, err := peekHeader(m, phys)
	if err != nil {
		return nil, err
	}

	if hdr.Length < table.SizeofSDTHeader {
		return nil, errors.Wrapf(ErrInvalidTableLength, "table %q at 0x%x declares length %d", hdr.Signature.String(), phys, hdr.Length)
	}

	region, err := m.Map(phys, int(hdr.Length))
	if err != nil {
		return nil, errors.Wrapf(err, "map %d bytes of table %q at 0x%x", hdr.Length, hdr.Signature.String(), phys)
	}

	// The length is re-read from the full mapping as firmware memory is
	// not guaranteed to stay unchanged between the two mappings.
	length, ok := table.DeclaredLength(region)
	if !ok || len(region) < int(hdr.Length) || length != hdr.Length {
		_ = m.Unmap(region)
		return nil, errors.Wrapf(ErrInvalidTableLength, "table %q at 0x%x changed length while being mapped", hdr.Signature.String(), phys)
	}

	return region[:hdr.Length:hdr.Length], nil
}
