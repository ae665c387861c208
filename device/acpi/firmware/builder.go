// Package firmware lays out a set of ACPI tables inside a simulated physical
// address space the same way a PC firmware does: the tables are placed in
// memory, referenced by an XSDT and/or RSDT and the RSDP is stored in the
// legacy BIOS area where it can be found by scanning.
package firmware

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/gopher-os/acpitables/device/acpi/table"
	"github.com/gopher-os/acpitables/kernel"
	"github.com/gopher-os/acpitables/mem/physmem"
)

const (
	// BIOSAreaBase is the start of the legacy BIOS read-only memory area.
	BIOSAreaBase uint64 = 0xe0000

	// BIOSAreaSize is the size of the legacy BIOS read-only memory area.
	BIOSAreaSize = 0x20000

	// RSDPOffset is the offset of the RSDP from BIOSAreaBase.
	RSDPOffset = 0x9a0

	tableAlignment = 16
)

var (
	// ErrInvalidTable is returned when a table passed to the builder does
	// not start with a well-formed header.
	ErrInvalidTable = &kernel.Error{Module: "firmware", Message: "invalid table"}

	defaultOEMID      = [6]byte{'G', 'O', 'P', 'H', 'E', 'R'}
	defaultOEMTableID = [8]byte{'A', 'C', 'P', 'I', 'T', 'B', 'L', 'S'}
)

// Image describes the physical layout produced by Builder.Build.
type Image struct {
	// RSDP is the physical address of the root system description
	// pointer.
	RSDP uint64

	// RSDT and XSDT hold the physical addresses of the root tables. XSDT
	// is zero for ACPI 1.0 images.
	RSDT uint64
	XSDT uint64

	// FADT and DSDT are zero if the image does not contain them.
	FADT uint64
	DSDT uint64

	// Entries lists the addresses stored in the root tables in order.
	Entries []uint64
}

// RootPointer returns the RSDP address. It can be used as the root pointer
// function of the table directory.
func (img *Image) RootPointer() (uint64, error) {
	return img.RSDP, nil
}

// Builder assembles a firmware image. Tables are placed in the order they
// are added. A DSDT is never listed in the root tables; it is referenced
// through the FADT instead. If a DSDT is added without a FADT, a FADT is
// generated.
type Builder struct {
	revision   uint8
	oemID      [6]byte
	oemTableID [8]byte

	tables [][]byte

	// extraEntries are appended verbatim to the root tables.
	extraEntries []uint64
}

// NewBuilder returns a builder for an ACPI 2.0+ image.
func NewBuilder() *Builder {
	return &Builder{
		revision:   2,
		oemID:      defaultOEMID,
		oemTableID: defaultOEMTableID,
	}
}

// Revision sets the RSDP revision. Revisions lower than 2 produce an RSDT
// only image.
func (b *Builder) Revision(rev uint8) *Builder {
	b.revision = rev
	return b
}

// Add queues a table for placement.
func (b *Builder) Add(tables ...[]byte) *Builder {
	b.tables = append(b.tables, tables...)
	return b
}

// AddRootEntry appends addr to the root tables without placing anything at
// that address.
func (b *Builder) AddRootEntry(addr uint64) *Builder {
	b.extraEntries = append(b.extraEntries, addr)
	return b
}

// Build places the queued tables in m and returns the resulting layout. Only
// one image can be built per address space as the RSDP occupies the legacy
// BIOS area.
func (b *Builder) Build(m *physmem.Memory) (*Image, error) {
	var (
		img  Image
		fadt []byte
	)

	for _, raw := range b.tables {
		hdr, ok := table.DecodeSDTHeader(raw)
		if !ok || hdr.Length < table.SizeofSDTHeader || uint64(hdr.Length) > uint64(len(raw)) {
			return nil, errors.Wrapf(ErrInvalidTable, "table of %d bytes", len(raw))
		}

		switch hdr.Signature {
		case table.SigFADT:
			// Placed last so that it can point to the DSDT.
			fadt = append([]byte(nil), raw[:hdr.Length]...)
		case table.SigDSDT:
			addr, err := place(m, raw[:hdr.Length])
			if err != nil {
				return nil, err
			}
			img.DSDT = addr
		default:
			addr, err := place(m, raw[:hdr.Length])
			if err != nil {
				return nil, err
			}
			img.Entries = append(img.Entries, addr)
		}
	}

	if fadt == nil && img.DSDT != 0 {
		var err error
		if fadt, err = b.encodeFADT(); err != nil {
			return nil, err
		}
	}

	if fadt != nil {
		patchDSDTAddress(fadt, img.DSDT, b.revision >= 2)

		addr, err := place(m, fadt)
		if err != nil {
			return nil, err
		}
		img.FADT = addr
		img.Entries = append([]uint64{addr}, img.Entries...)
	}

	img.Entries = append(img.Entries, b.extraEntries...)

	if err := b.placeRootTables(m, &img); err != nil {
		return nil, err
	}

	return &img, b.placeRSDP(m, &img)
}

func (b *Builder) header(sig table.Signature, revision uint8) table.SDTHeader {
	return table.SDTHeader{
		Signature:       sig,
		Revision:        revision,
		OEMID:           b.oemID,
		OEMTableID:      b.oemTableID,
		OEMRevision:     1,
		CreatorID:       binary.LittleEndian.Uint32([]byte("GOPH")),
		CreatorRevision: 1,
	}
}

func (b *Builder) encodeFADT() ([]byte, error) {
	fadtRev := uint8(1)
	if b.revision >= 2 {
		fadtRev = 6
	}

	fadt := table.FADT{
		SDTHeader:                       b.header(table.SigFADT, fadtRev),
		PreferredPowerManagementProfile: table.PowerProfileDesktop,
		SCIInterrupt:                    9,
	}

	return table.EncodeTable(&fadt)
}

// patchDSDTAddress stores addr in the DSDT pointers of the FADT in raw and
// updates its checksum. The 64-bit pointer is only written for ext images.
func patchDSDTAddress(raw []byte, addr uint64, ext bool) {
	if ext && len(raw) >= table.FADTXDsdtOffset+8 {
		binary.LittleEndian.PutUint64(raw[table.FADTXDsdtOffset:], addr)
	}

	if len(raw) >= table.FADTDsdtOffset+4 && addr <= 0xffffffff {
		binary.LittleEndian.PutUint32(raw[table.FADTDsdtOffset:], uint32(addr))
	}

	table.UpdateChecksum(raw, table.HeaderChecksumOffset)
}

func (b *Builder) placeRootTables(m *physmem.Memory, img *Image) error {
	rsdtBody := make([]byte, 4*len(img.Entries))
	for i, addr := range img.Entries {
		binary.LittleEndian.PutUint32(rsdtBody[4*i:], uint32(addr))
	}

	rsdt, err := table.Encode(b.header(table.SigRSDT, 1), rsdtBody)
	if err != nil {
		return err
	}

	if img.RSDT, err = place(m, rsdt); err != nil {
		return err
	}

	if b.revision < 2 {
		return nil
	}

	xsdtBody := make([]byte, 8*len(img.Entries))
	for i, addr := range img.Entries {
		binary.LittleEndian.PutUint64(xsdtBody[8*i:], addr)
	}

	xsdt, err := table.Encode(b.header(table.SigXSDT, 1), xsdtBody)
	if err != nil {
		return err
	}

	img.XSDT, err = place(m, xsdt)
	return err
}

func (b *Builder) placeRSDP(m *physmem.Memory, img *Image) error {
	rsdp := table.ExtRSDPDescriptor{
		RSDPDescriptor: table.RSDPDescriptor{
			Signature: table.RSDPSignature,
			OEMID:     b.oemID,
			Revision:  b.revision,
			RSDTAddr:  uint32(img.RSDT),
		},
		XSDTAddr: img.XSDT,
	}

	area := make([]byte, BIOSAreaSize)
	copy(area[RSDPOffset:], table.EncodeRSDP(rsdp))
	if err := m.Place(BIOSAreaBase, area); err != nil {
		return errors.Wrap(err, "place BIOS area")
	}

	img.RSDP = BIOSAreaBase + RSDPOffset
	return nil
}

func place(m *physmem.Memory, raw []byte) (uint64, error) {
	addr, data, err := m.Alloc(len(raw), tableAlignment)
	if err != nil {
		return 0, errors.Wrap(err, "allocate table storage")
	}

	copy(data, raw)
	return addr, nil
}
