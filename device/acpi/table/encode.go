package table

import (
	"bytes"
	"encoding/binary"

	"github.com/cockroachdb/errors"
)

// Sum returns the 8-bit sum of all bytes in b.
func Sum(b []byte) uint8 {
	var sum uint8
	for _, v := range b {
		sum += v
	}

	return sum
}

// ValidChecksum returns true if the bytes in b add up to zero.
func ValidChecksum(b []byte) bool {
	return Sum(b) == 0
}

// UpdateChecksum rewrites the checksum byte at offset so that the bytes in b
// add up to zero.
func UpdateChecksum(b []byte, offset int) {
	b[offset] = 0
	b[offset] = -Sum(b)
}

// Encode serializes hdr followed by the binary encoding of each body value.
// The length field of the emitted header is set to the total encoded size and
// the checksum is updated so the emitted table is valid.
func Encode(hdr SDTHeader, body ...interface{}) ([]byte, error) {
	var buf bytes.Buffer

	hdr.Checksum = 0
	if err := binary.Write(&buf, binary.LittleEndian, hdr); err != nil {
		return nil, err
	}

	for _, v := range body {
		if raw, ok := v.([]byte); ok {
			buf.Write(raw)
			continue
		}

		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			return nil, err
		}
	}

	return seal(buf.Bytes()), nil
}

// EncodeTable serializes v, which must be a struct whose first field is an
// SDTHeader, and fixes up the length and checksum of the emitted table.
func EncodeTable(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
		return nil, err
	}

	if buf.Len() < SizeofSDTHeader {
		return nil, errors.New("table: encoded value is smaller than a table header")
	}

	return seal(buf.Bytes()), nil
}

func seal(data []byte) []byte {
	binary.LittleEndian.PutUint32(data[HeaderLengthOffset:], uint32(len(data)))
	UpdateChecksum(data, HeaderChecksumOffset)
	return data
}

// EncodeRSDP serializes rsdp and fills in both checksums. If the descriptor
// revision is lower than 2 only the ACPI 1.0 portion is emitted.
func EncodeRSDP(rsdp ExtRSDPDescriptor) []byte {
	size := SizeofRSDP
	if rsdp.Revision >= 2 {
		size = SizeofExtRSDP
	}

	b := make([]byte, size)
	copy(b[0:8], rsdp.Signature[:])
	copy(b[9:15], rsdp.OEMID[:])
	b[15] = rsdp.Revision
	binary.LittleEndian.PutUint32(b[16:20], rsdp.RSDTAddr)
	UpdateChecksum(b[:SizeofRSDP], RSDPChecksumOffset)

	if size == SizeofExtRSDP {
		binary.LittleEndian.PutUint32(b[20:24], uint32(SizeofExtRSDP))
		binary.LittleEndian.PutUint64(b[24:32], rsdp.XSDTAddr)
		UpdateChecksum(b, RSDPExtChecksumOffset)
	}

	return b
}
