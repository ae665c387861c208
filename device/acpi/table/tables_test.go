package table

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodedSizes(t *testing.T) {
	specs := []struct {
		name string
		v    interface{}
		exp  int
	}{
		{"SDTHeader", SDTHeader{}, SizeofSDTHeader},
		{"RSDPDescriptor", RSDPDescriptor{}, SizeofRSDP},
		{"ExtRSDPDescriptor", ExtRSDPDescriptor{}, SizeofExtRSDP},
		{"FADT", FADT{}, SizeofFADT},
		{"MADT", MADT{}, SizeofMADT},
		{"MADTEntryLocalAPIC", MADTEntryLocalAPIC{}, 8},
		{"MADTEntryIOAPIC", MADTEntryIOAPIC{}, 12},
		{"MADTEntryInterruptSrcOverride", MADTEntryInterruptSrcOverride{}, 10},
		{"MADTEntryLocalAPICNMI", MADTEntryLocalAPICNMI{}, 6},
		{"MCFGAllocation", MCFGAllocation{}, 16},
	}

	for _, spec := range specs {
		t.Run(spec.name, func(t *testing.T) {
			require.Equal(t, spec.exp, binary.Size(spec.v))
		})
	}
}

func TestParseSignature(t *testing.T) {
	sig, ok := ParseSignature("APIC")
	require.True(t, ok)
	require.Equal(t, SigMADT, sig)
	require.Equal(t, "APIC", sig.String())
	require.True(t, sig.Printable())

	for _, bad := range []string{"", "API", "APICS"} {
		_, ok = ParseSignature(bad)
		require.False(t, ok, "expected %q to be rejected", bad)
	}

	require.False(t, Signature{'A', 0, 'I', 'C'}.Printable())
}

func TestEncodeAndDecodeHeader(t *testing.T) {
	hdr := SDTHeader{
		Signature:   SigMCFG,
		Revision:    1,
		OEMID:       [6]byte{'H', 'P', 'Q', 'O', 'E', 'M'},
		OEMTableID:  [8]byte{'8', '5', '4', '9', ' ', ' ', ' ', ' '},
		OEMRevision: 1,
	}

	data, err := Encode(hdr, [8]byte{}, MCFGAllocation{BaseAddress: 0xf0000000, EndBus: 0x7f})
	require.NoError(t, err)
	require.Len(t, data, SizeofMCFG+16)
	require.True(t, ValidChecksum(data))

	got, ok := DecodeSDTHeader(data)
	require.True(t, ok)
	require.Equal(t, SigMCFG, got.Signature)
	require.Equal(t, uint32(len(data)), got.Length)
	require.Equal(t, "HPQOEM", got.OEMIDString())
	require.Equal(t, "8549", got.OEMTableIDString())

	header := func(b []byte) SDTHeader {
		hdr, _ := DecodeSDTHeader(b)
		return hdr
	}
	require.Equal(t, "HPQOEM", header(data).OEMIDString())
	require.Equal(t, "8549", header(data).OEMTableIDString())

	length, ok := DeclaredLength(data)
	require.True(t, ok)
	require.Equal(t, got.Length, length)

	_, ok = DecodeSDTHeader(data[:SizeofSDTHeader-1])
	require.False(t, ok)

	_, ok = DeclaredLength(data[:7])
	require.False(t, ok)
}

func TestEncodeRawBody(t *testing.T) {
	data, err := Encode(SDTHeader{Signature: SigDSDT}, []byte{0x08, 0x56, 0x41, 0x4c})
	require.NoError(t, err)
	require.Len(t, data, SizeofSDTHeader+4)
	require.Equal(t, []byte{0x08, 0x56, 0x41, 0x4c}, data[SizeofSDTHeader:])
	require.True(t, ValidChecksum(data))
}

func TestRSDP(t *testing.T) {
	t.Run("ACPI1", func(t *testing.T) {
		b := EncodeRSDP(ExtRSDPDescriptor{
			RSDPDescriptor: RSDPDescriptor{Signature: RSDPSignature, RSDTAddr: 0xbadf00},
		})
		require.Len(t, b, SizeofRSDP)
		require.True(t, ValidChecksum(b))

		rsdp, extended, ok := DecodeRSDP(b)
		require.True(t, ok)
		require.False(t, extended)
		require.Equal(t, uint32(0xbadf00), rsdp.RSDTAddr)
	})

	t.Run("ACPI2+", func(t *testing.T) {
		b := EncodeRSDP(ExtRSDPDescriptor{
			RSDPDescriptor: RSDPDescriptor{Signature: RSDPSignature, Revision: 2, RSDTAddr: 0xbadf00},
			XSDTAddr:       0xc0ffee,
		})
		require.Len(t, b, SizeofExtRSDP)
		require.True(t, ValidChecksum(b[:SizeofRSDP]))
		require.True(t, ValidChecksum(b))

		rsdp, extended, ok := DecodeRSDP(b)
		require.True(t, ok)
		require.True(t, extended)
		require.Equal(t, uint64(0xc0ffee), rsdp.XSDTAddr)
		require.Equal(t, uint32(SizeofExtRSDP), rsdp.Length)
	})

	t.Run("short", func(t *testing.T) {
		_, _, ok := DecodeRSDP(make([]byte, SizeofRSDP-1))
		require.False(t, ok)
	})
}

func TestDSDTAddress(t *testing.T) {
	full := make([]byte, 244)
	binary.LittleEndian.PutUint32(full[FADTDsdtOffset:], 0x1000)

	addr, ok := DSDTAddress(full)
	require.True(t, ok)
	require.Equal(t, uint64(0x1000), addr, "expected 32-bit pointer when X_DSDT is zero")

	binary.LittleEndian.PutUint64(full[FADTXDsdtOffset:], 0x2000)
	addr, ok = DSDTAddress(full)
	require.True(t, ok)
	require.Equal(t, uint64(0x2000), addr, "expected X_DSDT to take precedence")

	addr, ok = DSDTAddress(full[:116])
	require.True(t, ok)
	require.Equal(t, uint64(0x1000), addr, "expected ACPI 1.0 FADT to use the 32-bit pointer")

	_, ok = DSDTAddress(full[:FADTDsdtOffset+3])
	require.False(t, ok)

	_, ok = DSDTAddress(make([]byte, 244))
	require.False(t, ok)
}

func TestEncodeTable(t *testing.T) {
	fadt := FADT{
		SDTHeader: SDTHeader{Signature: SigFADT, Revision: 6},
		Dsdt:      0x1000,
	}
	fadt.Ext.Dsdt = 0x2000

	data, err := EncodeTable(&fadt)
	require.NoError(t, err)
	require.Len(t, data, SizeofFADT)
	require.True(t, ValidChecksum(data))

	addr, ok := DSDTAddress(data)
	require.True(t, ok)
	require.Equal(t, uint64(0x2000), addr)

	_, err = EncodeTable(uint32(0))
	require.Error(t, err)
}

func TestDecodeMADTEntry(t *testing.T) {
	specs := []struct {
		name string
		in   []byte
		exp  interface{}
	}{
		{
			"local APIC",
			[]byte{0x00, 0x08, 0x01, 0x02, 0x01, 0x00, 0x00, 0x00},
			&MADTEntryLocalAPIC{
				MADTEntry:   MADTEntry{Type: MADTEntryTypeLocalAPIC, Length: 8},
				ProcessorID: 1,
				APICID:      2,
				Flags:       1,
			},
		},
		{
			"I/O APIC",
			[]byte{0x01, 0x0c, 0x05, 0x00, 0x00, 0x10, 0xc0, 0xfe, 0x18, 0x00, 0x00, 0x00},
			&MADTEntryIOAPIC{
				MADTEntry:        MADTEntry{Type: MADTEntryTypeIOAPIC, Length: 12},
				APICID:           5,
				Address:          0xfec01000,
				SysInterruptBase: 0x18,
			},
		},
		{
			"interrupt source override",
			[]byte{0x02, 0x0a, 0x00, 0x09, 0x09, 0x00, 0x00, 0x00, 0x0f, 0x00},
			&MADTEntryInterruptSrcOverride{
				MADTEntry:       MADTEntry{Type: MADTEntryTypeIntSrcOverride, Length: 10},
				IRQSrc:          9,
				GlobalInterrupt: 9,
				Flags:           0x0f,
			},
		},
		{
			"local APIC NMI",
			[]byte{0x04, 0x06, 0x03, 0x05, 0x00, 0x01},
			&MADTEntryLocalAPICNMI{
				MADTEntry: MADTEntry{Type: MADTEntryTypeLocalAPICNMI, Length: 6},
				Processor: 3,
				Flags:     5,
				LINT:      1,
			},
		},
		{
			"unknown type",
			[]byte{0x7f, 0x04, 0xaa, 0xbb},
			&MADTEntry{Type: 0x7f, Length: 4},
		},
	}

	for _, spec := range specs {
		t.Run(spec.name, func(t *testing.T) {
			got, ok := DecodeMADTEntry(spec.in)
			require.True(t, ok)
			require.Equal(t, spec.exp, got)
		})
	}

	_, ok := DecodeMADTEntry([]byte{0x00, 0x08, 0x01})
	require.False(t, ok)
	_, ok = DecodeMADTEntry(nil)
	require.False(t, ok)
}
