package table

import (
	"bytes"
	"encoding/binary"
)

// SizeofMADT is the encoded size of the MADT fields that precede its entry
// list.
const SizeofMADT = SizeofSDTHeader + 8

// MADT (Multiple APIC Description Table) is an ACPI table containing
// information about the interrupt controllers and the number of installed
// CPUs. Following the table header are a series of variable sized records
// (MADTEntry) which contain additional information.
type MADT struct {
	SDTHeader

	LocalControllerAddress uint32
	Flags                  uint32
}

// MADTEntryType describes the type of a MADT record.
type MADTEntryType uint8

// The list of supported MADT entry types.
const (
	MADTEntryTypeLocalAPIC MADTEntryType = iota
	MADTEntryTypeIOAPIC
	MADTEntryTypeIntSrcOverride
	MADTEntryTypeNMISource
	MADTEntryTypeLocalAPICNMI
)

// MADTEntry describes the prefix shared by all MADT records. As MADT entries
// are variable sized records, the consumer must check the type value before
// decoding the rest of the record.
type MADTEntry struct {
	Type   MADTEntryType
	Length uint8
}

// MADTEntryLocalAPIC describes a single physical processor and its local
// interrupt controller.
type MADTEntryLocalAPIC struct {
	MADTEntry

	ProcessorID uint8
	APICID      uint8
	Flags       uint32
}

// MADTEntryIOAPIC describes an I/O Advanced Programmable Interrupt Controller.
type MADTEntryIOAPIC struct {
	MADTEntry

	APICID uint8
	_      uint8

	// Address contains the address of the controller.
	Address uint32

	// SysInterruptBase defines the first interrupt number that this
	// controller handles.
	SysInterruptBase uint32
}

// MADTEntryInterruptSrcOverride contains the data for an Interrupt Source
// Override.  This mechanism is used to map IRQ sources to global system
// interrupts.
type MADTEntryInterruptSrcOverride struct {
	MADTEntry

	BusSrc          uint8
	IRQSrc          uint8
	GlobalInterrupt uint32
	Flags           uint16
}

// MADTEntryLocalAPICNMI describes a non-maskable interrupt that we need to
// set up for a single processor or all processors.
type MADTEntryLocalAPICNMI struct {
	MADTEntry

	// Processor specifies the ACPI processor UID that we need to configure
	// for this NMI. If set to 0xff we need to configure all processors.
	Processor uint8

	Flags uint16

	// This value will be either 0 or 1 and specifies which entry in the
	// local vector table of the processor's local APIC we need to setup.
	LINT uint8
}

// DecodeMADTEntry decodes the MADT record in b into the entry struct that
// matches its type. Records of unknown type are decoded as a bare MADTEntry.
// It returns false if b is shorter than the layout implied by the type.
func DecodeMADTEntry(b []byte) (interface{}, bool) {
	if len(b) < 2 {
		return nil, false
	}

	var entry interface{}
	switch MADTEntryType(b[0]) {
	case MADTEntryTypeLocalAPIC:
		entry = &MADTEntryLocalAPIC{}
	case MADTEntryTypeIOAPIC:
		entry = &MADTEntryIOAPIC{}
	case MADTEntryTypeIntSrcOverride:
		entry = &MADTEntryInterruptSrcOverride{}
	case MADTEntryTypeLocalAPICNMI:
		entry = &MADTEntryLocalAPICNMI{}
	default:
		entry = &MADTEntry{}
	}

	if binary.Size(entry) > len(b) {
		return nil, false
	}

	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, entry); err != nil {
		return nil, false
	}

	return entry, true
}

// SizeofMCFG is the encoded size of the MCFG fields that precede its
// allocation list.
const SizeofMCFG = SizeofSDTHeader + 8

// MCFGAllocation describes the enhanced configuration space base address of
// a PCI segment group bus range.
type MCFGAllocation struct {
	BaseAddress uint64
	Segment     uint16
	StartBus    uint8
	EndBus      uint8
	_           uint32
}
