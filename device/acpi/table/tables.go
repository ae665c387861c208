// Package table defines the bit-exact framing of the ACPI structures consumed
// by the table directory: the common system description table header, the
// root system description pointer and the layouts that the directory needs to
// peek into while resolving the table chain.
//
// All multi-byte fields are little-endian. The structures in this package are
// laid out so that they can be decoded and encoded with encoding/binary; none
// of them is ever overlaid on top of firmware memory.
package table

import (
	"bytes"
	"encoding/binary"
)

// Signature is the 4-byte ASCII identifier at the start of every table. It is
// not null-terminated and is compared by exact 4-byte match.
type Signature [4]byte

// Well-known table signatures.
var (
	SigRSDT = Signature{'R', 'S', 'D', 'T'}
	SigXSDT = Signature{'X', 'S', 'D', 'T'}
	SigFADT = Signature{'F', 'A', 'C', 'P'}
	SigDSDT = Signature{'D', 'S', 'D', 'T'}
	SigSSDT = Signature{'S', 'S', 'D', 'T'}
	SigMADT = Signature{'A', 'P', 'I', 'C'}
	SigMCFG = Signature{'M', 'C', 'F', 'G'}
)

// ParseSignature converts s into a Signature. It returns false if s is not
// exactly 4 bytes long.
func ParseSignature(s string) (Signature, bool) {
	var sig Signature
	if len(s) != len(sig) {
		return sig, false
	}

	copy(sig[:], s)
	return sig, true
}

// String implements fmt.Stringer.
func (s Signature) String() string {
	return string(s[:])
}

// Printable returns true if all signature bytes are printable ASCII
// characters.
func (s Signature) Printable() bool {
	for _, b := range s {
		if b < 0x20 || b > 0x7e {
			return false
		}
	}

	return true
}

// RSDPSignature is the signature of the root system description pointer
// ("RSD PTR ", the last byte is a space).
var RSDPSignature = [8]byte{'R', 'S', 'D', ' ', 'P', 'T', 'R', ' '}

// RSDPDescriptor defines the root system descriptor pointer for ACPI 1.0. This
// is used as the entry-point for parsing ACPI data.
type RSDPDescriptor struct {
	// The signature must contain "RSD PTR " (last byte is a space).
	Signature [8]byte

	// A value that when added to the sum of all other bytes contained in
	// this descriptor should result in the value 0.
	Checksum uint8

	OEMID [6]byte

	// ACPI revision number. It is 0 for ACPI1.0 and 2 for versions 2.0 to 6.2.
	Revision uint8

	// Physical address of 32-bit root system descriptor table.
	RSDTAddr uint32
}

// ExtRSDPDescriptor extends RSDPDescriptor with additional fields. It is used
// when RSDPDescriptor.revision > 1.
type ExtRSDPDescriptor struct {
	RSDPDescriptor

	// The size of the extended descriptor.
	Length uint32

	// Physical address of 64-bit root system descriptor table.
	XSDTAddr uint64

	// A value that when added to the sum of all other bytes contained in
	// this descriptor should result in the value 0.
	ExtendedChecksum uint8

	_ [3]byte
}

// Encoded sizes of the structures defined in this package.
const (
	SizeofRSDP      = 20
	SizeofExtRSDP   = 36
	SizeofSDTHeader = 36
)

// Offsets of header fields that are patched in place.
const (
	HeaderLengthOffset    = 4
	HeaderChecksumOffset  = 9
	RSDPChecksumOffset    = 8
	RSDPExtChecksumOffset = 32
)

// SDTHeader defines the common header for all ACPI-related tables.
type SDTHeader struct {
	// The signature defines the table type.
	Signature Signature

	// The length of the table including the header.
	Length uint32

	// If this header belongs to a DSDT/SSDT table, the revision is also
	// used to indicate whether the AML VM should treat integers as 32-bits
	// (revision < 2) or 64-bits (revision >= 2).
	Revision uint8

	// A value that when added to the sum of all other bytes in the table
	// should result in the value 0.
	Checksum uint8

	// OEM specific information
	OEMID       [6]byte
	OEMTableID  [8]byte
	OEMRevision uint32

	// Information about the ASL compiler that generated this table
	CreatorID       uint32
	CreatorRevision uint32
}

// DecodeSDTHeader decodes the table header at the start of b. It returns false
// if b is too short to contain a header.
func DecodeSDTHeader(b []byte) (SDTHeader, bool) {
	var hdr SDTHeader
	if len(b) < SizeofSDTHeader {
		return hdr, false
	}

	copy(hdr.Signature[:], b[0:4])
	hdr.Length = binary.LittleEndian.Uint32(b[4:8])
	hdr.Revision = b[8]
	hdr.Checksum = b[9]
	copy(hdr.OEMID[:], b[10:16])
	copy(hdr.OEMTableID[:], b[16:24])
	hdr.OEMRevision = binary.LittleEndian.Uint32(b[24:28])
	hdr.CreatorID = binary.LittleEndian.Uint32(b[28:32])
	hdr.CreatorRevision = binary.LittleEndian.Uint32(b[32:36])
	return hdr, true
}

// DeclaredLength returns the little-endian length field of the table header
// at the start of b. It returns false if b cannot hold the length field.
func DeclaredLength(b []byte) (uint32, bool) {
	if len(b) < HeaderLengthOffset+4 {
		return 0, false
	}

	return binary.LittleEndian.Uint32(b[HeaderLengthOffset:]), true
}

// OEMIDString returns the OEM ID with trailing spaces and NULs removed.
func (h SDTHeader) OEMIDString() string {
	return string(bytes.TrimRight(h.OEMID[:], " \x00"))
}

// OEMTableIDString returns the OEM table ID with trailing spaces and NULs
// removed.
func (h SDTHeader) OEMTableIDString() string {
	return string(bytes.TrimRight(h.OEMTableID[:], " \x00"))
}

// DecodeRSDP decodes a root system description pointer. If the descriptor
// revision is 2 or higher and b is large enough, the extended fields are also
// decoded and the returned bool is true.
func DecodeRSDP(b []byte) (rsdp ExtRSDPDescriptor, extended bool, ok bool) {
	if len(b) < SizeofRSDP {
		return rsdp, false, false
	}

	copy(rsdp.Signature[:], b[0:8])
	rsdp.Checksum = b[8]
	copy(rsdp.OEMID[:], b[9:15])
	rsdp.Revision = b[15]
	rsdp.RSDTAddr = binary.LittleEndian.Uint32(b[16:20])

	if rsdp.Revision < 2 || len(b) < SizeofExtRSDP {
		return rsdp, false, true
	}

	rsdp.Length = binary.LittleEndian.Uint32(b[20:24])
	rsdp.XSDTAddr = binary.LittleEndian.Uint64(b[24:32])
	rsdp.ExtendedChecksum = b[32]
	return rsdp, true, true
}

// AddressSpace defines the location where a set of registers resides.
type AddressSpace uint8

// The list of supported address space types.
const (
	AddressSpaceSysMemory AddressSpace = iota
	AddressSpaceSysIO
	AddressSpacePCI
	AddressSpaceEmbController
	AddressSpaceSMBus
	AddressSpaceFuncFixedHW = 0x7f
)

// GenericAddress specifies a register range located in a particular address
// space.
type GenericAddress struct {
	Space      AddressSpace
	BitWidth   uint8
	BitOffset  uint8
	AccessSize uint8
	Address    uint64
}

// PowerProfileType describes a power profile referenced by the FADT table.
type PowerProfileType uint8

// The list of supported power profile types
const (
	PowerProfileUnspecified PowerProfileType = iota
	PowerProfileDesktop
	PowerProfileMobile
	PowerProfileWorkstation
	PowerProfileEnterpriseServer
	PowerProfileSOHOServer
	PowerProfileAppliancePC
	PowerProfilePerformanceServer
)

// Byte offsets of the DSDT pointers inside the FADT. Older FADT revisions are
// shorter than the extended layout so the 64-bit pointer may be absent.
const (
	FADTDsdtOffset  = 40
	FADTXDsdtOffset = 140

	// SizeofFADT is the encoded size of the ACPI 2.0+ FADT layout.
	SizeofFADT = 244
)

// FADT64 contains the 64-bit FADT extensions which are used by ACPI2+
type FADT64 struct {
	FirmwareControl uint64

	Dsdt uint64

	PM1aEventBlock   GenericAddress
	PM1bEventBlock   GenericAddress
	PM1aControlBlock GenericAddress
	PM1bControlBlock GenericAddress
	PM2ControlBlock  GenericAddress
	PMTimerBlock     GenericAddress
	GPE0Block        GenericAddress
	GPE1Block        GenericAddress
}

// FADT (Fixed ACPI Description Table) is an ACPI table containing information
// about fixed register blocks used for power management.
type FADT struct {
	SDTHeader

	FirmwareCtrl uint32
	Dsdt         uint32

	_ uint8

	PreferredPowerManagementProfile PowerProfileType
	SCIInterrupt                    uint16
	SMICommandPort                  uint32
	AcpiEnable                      uint8
	AcpiDisable                     uint8
	S4BIOSReq                       uint8
	PSTATEControl                   uint8
	PM1aEventBlock                  uint32
	PM1bEventBlock                  uint32
	PM1aControlBlock                uint32
	PM1bControlBlock                uint32
	PM2ControlBlock                 uint32
	PMTimerBlock                    uint32
	GPE0Block                       uint32
	GPE1Block                       uint32
	PM1EventLength                  uint8
	PM1ControlLength                uint8
	PM2ControlLength                uint8
	PMTimerLength                   uint8
	GPE0Length                      uint8
	GPE1Length                      uint8
	GPE1Base                        uint8
	CStateControl                   uint8
	WorstC2Latency                  uint16
	WorstC3Latency                  uint16
	FlushSize                       uint16
	FlushStride                     uint16
	DutyOffset                      uint8
	DutyWidth                       uint8
	DayAlarm                        uint8
	MonthAlarm                      uint8
	Century                         uint8

	// Reserved in ACPI 1.0; used since ACPI 2.0+
	BootArchitectureFlags uint16

	_     uint8
	Flags uint32

	ResetReg GenericAddress

	ResetValue uint8
	_          [3]uint8

	// 64-bit pointers to the above structures used by ACPI 2.0+
	Ext FADT64
}

// DSDTAddress returns the physical address of the DSDT referenced by the raw
// FADT contents in b. The 64-bit pointer is preferred when the table is long
// enough to contain it and it is non-zero. The function returns false if b is
// too short to contain either pointer or both pointers are zero.
func DSDTAddress(b []byte) (uint64, bool) {
	if len(b) >= FADTXDsdtOffset+8 {
		if addr := binary.LittleEndian.Uint64(b[FADTXDsdtOffset:]); addr != 0 {
			return addr, true
		}
	}

	if len(b) >= FADTDsdtOffset+4 {
		if addr := binary.LittleEndian.Uint32(b[FADTDsdtOffset:]); addr != 0 {
			return uint64(addr), true
		}
	}

	return 0, false
}
