package acpi

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/gopher-os/acpitables/device/acpi/table"
)

// IterationDecision is returned by a SubtableFn to control iteration.
type IterationDecision uint8

// The list of supported iteration decisions.
const (
	IterationContinue IterationDecision = iota
	IterationBreak
)

// Subtable is a bounds-checked view of a single record inside a table.
type Subtable struct {
	Type   uint8
	Length int

	// Data contains exactly Length bytes including the record prefix.
	Data []byte
}

// SubtableFn is invoked by ForEachSubtable for every record.
type SubtableFn func(Subtable) IterationDecision

// RecordShape describes the {type, length} prefix shared by the records of
// a table. The type is always a single byte and is immediately followed by a
// little-endian length field that is LengthWidth bytes wide.
type RecordShape struct {
	LengthWidth int
}

// Record shapes used by the standard tables.
var (
	// ShapeByteLength is used by MADT, SRAT and most other tables.
	ShapeByteLength = RecordShape{LengthWidth: 1}

	// ShapeWordLength is used by tables such as the IORT and HMAT.
	ShapeWordLength = RecordShape{LengthWidth: 2}
)

func (s RecordShape) prefixSize() int { return 1 + s.LengthWidth }

func (s RecordShape) recordLength(b []byte) int {
	if s.LengthWidth == 1 {
		return int(b[1])
	}

	return int(binary.LittleEndian.Uint16(b[1:3]))
}

// ForEachSubtable walks the records that follow the first headerSkip bytes
// of tbl using the ShapeByteLength record prefix.
func ForEachSubtable(tbl []byte, headerSkip int, fn SubtableFn) error {
	return ForEachSubtableShape(tbl, headerSkip, ShapeByteLength, fn)
}

// ForEachSubtableShape walks the records that follow the first headerSkip
// bytes of tbl and invokes fn for each one of them. The end of the record
// stream is the declared length of the table clamped to len(tbl).
//
// Iteration stops successfully when the remaining bytes are too few to hold
// a record prefix or when fn returns IterationBreak. A record whose length
// is smaller than its prefix or extends past the end of the record stream
// causes ErrInvalidTableLength to be returned; fn is never invoked with
// bytes that lie outside of tbl.
func ForEachSubtableShape(tbl []byte, headerSkip int, shape RecordShape, fn SubtableFn) error {
	if shape.LengthWidth != 1 && shape.LengthWidth != 2 {
		return errors.Wrapf(ErrInvalidArgument, "unsupported record length width %d", shape.LengthWidth)
	}

	if fn == nil || headerSkip < 0 {
		return ErrInvalidArgument
	}

	declared, ok := table.DeclaredLength(tbl)
	if !ok {
		return errors.Wrapf(ErrInvalidTableLength, "table is %d bytes long", len(tbl))
	}

	end := len(tbl)
	if uint64(declared) < uint64(end) {
		end = int(declared)
	}

	if end < headerSkip {
		return errors.Wrapf(ErrInvalidTableLength, "declared length %d is smaller than the %d byte table header", declared, headerSkip)
	}

	prefix := shape.prefixSize()
	for offset := headerSkip; end-offset >= prefix; {
		remaining := end - offset
		length := shape.recordLength(tbl[offset:])
		if length < prefix || length > remaining {
			return errors.Wrapf(ErrInvalidTableLength, "record at offset %d declares length %d; %d bytes remain", offset, length, remaining)
		}

		record := tbl[offset : offset+length : offset+length]
		if fn(Subtable{Type: record[0], Length: length, Data: record}) == IterationBreak {
			return nil
		}

		offset += length
	}

	return nil
}
