package acpi

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/gopher-os/acpitables/device/acpi/table"
	"github.com/sirupsen/logrus"
)

const acpiRev2Plus uint8 = 2

// rootTable describes the root system description table selected by the
// RSDP.
type rootTable struct {
	sig       table.Signature
	phys      uint64
	entrySize int
}

// resolve walks the table chain that starts at the RSDP located at rsdpAddr
// and registers a lazy firmware entry for every table it references.
func (d *Directory) resolve(rsdpAddr uint64) error {
	root, err := d.readRSDP(rsdpAddr)
	if err != nil {
		return err
	}

	region, err := mapTable(d.mapper, root.phys)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "map %s", root.sig.String()), ErrInvalidRootTable)
	}
	defer func() { _ = d.mapper.Unmap(region) }()

	hdr, _ := table.DecodeSDTHeader(region)
	switch {
	case hdr.Signature != root.sig:
		return errors.Wrapf(ErrInvalidRootTable, "expected %q at 0x%x; found %q", root.sig.String(), root.phys, hdr.Signature.String())
	case !table.ValidChecksum(region):
		return errors.Wrapf(ErrInvalidRootTable, "%s checksum mismatch", root.sig.String())
	}

	d.log.WithFields(logrus.Fields{
		"signature": root.sig.String(),
		"phys":      fmt.Sprintf("0x%x", root.phys),
		"length":    hdr.Length,
		"oemID":     hdr.OEMIDString(),
	}).Info("found root system description table")

	// RSDT uses 4-byte long pointers whereas the XSDT uses 8-byte long.
	// A trailing partial entry is ignored.
	payload := region[table.SizeofSDTHeader:]
	for offset := 0; offset+root.entrySize <= len(payload); offset += root.entrySize {
		var addr uint64
		if root.entrySize == 8 {
			addr = binary.LittleEndian.Uint64(payload[offset:])
		} else {
			addr = uint64(binary.LittleEndian.Uint32(payload[offset:]))
		}

		if addr == 0 {
			continue
		}

		if sig, ok := d.registerFirmware(addr); ok && sig == table.SigFADT {
			d.followFADT(addr)
		}
	}

	return nil
}

// readRSDP validates the RSDP at phys and selects the root table. The XSDT
// is preferred when the RSDP revision is 2 or higher and the XSDT address is
// non-zero.
func (d *Directory) readRSDP(phys uint64) (rootTable, error) {
	region, err := d.mapper.Map(phys, table.SizeofRSDP)
	if err != nil {
		return rootTable{}, errors.Mark(errors.Wrapf(err, "map RSDP at 0x%x", phys), ErrInvalidRootTable)
	}

	rsdp, _, ok := table.DecodeRSDP(region)
	valid := ok && table.ValidChecksum(region[:table.SizeofRSDP])
	_ = d.mapper.Unmap(region)

	switch {
	case !ok:
		return rootTable{}, errors.Wrapf(ErrInvalidRootTable, "mapper returned %d bytes for RSDP", len(region))
	case !bytes.Equal(rsdp.Signature[:], table.RSDPSignature[:]):
		return rootTable{}, errors.Wrapf(ErrInvalidRootTable, "no RSDP signature at 0x%x", phys)
	case !valid:
		return rootTable{}, errors.Wrap(ErrInvalidRootTable, "RSDP checksum mismatch")
	}

	logger := d.log.WithFields(logrus.Fields{
		"phys":     fmt.Sprintf("0x%x", phys),
		"revision": rsdp.Revision,
	})

	if rsdp.Revision >= acpiRev2Plus {
		if rsdp, err = d.readExtRSDP(phys); err != nil {
			return rootTable{}, err
		}

		if rsdp.XSDTAddr != 0 {
			logger.Debug("using XSDT")
			return rootTable{sig: table.SigXSDT, phys: rsdp.XSDTAddr, entrySize: 8}, nil
		}
	}

	if rsdp.RSDTAddr == 0 {
		return rootTable{}, errors.Wrap(ErrInvalidRootTable, "RSDP does not reference a root table")
	}

	logger.Debug("using RSDT")
	return rootTable{sig: table.SigRSDT, phys: uint64(rsdp.RSDTAddr), entrySize: 4}, nil
}

// readExtRSDP maps the extended RSDP at phys and verifies its extended
// checksum over the length declared by the descriptor.
func (d *Directory) readExtRSDP(phys uint64) (table.ExtRSDPDescriptor, error) {
	region, err := d.mapper.Map(phys, table.SizeofExtRSDP)
	if err != nil {
		return table.ExtRSDPDescriptor{}, errors.Mark(errors.Wrapf(err, "map extended RSDP at 0x%x", phys), ErrInvalidRootTable)
	}

	rsdp, extended, _ := table.DecodeRSDP(region)
	if !extended {
		_ = d.mapper.Unmap(region)
		return rsdp, errors.Wrapf(ErrInvalidRootTable, "mapper returned %d bytes for extended RSDP", len(region))
	}

	length := rsdp.Length
	if length < table.SizeofExtRSDP {
		_ = d.mapper.Unmap(region)
		return rsdp, errors.Wrapf(ErrInvalidRootTable, "extended RSDP declares length %d", length)
	}
	_ = d.mapper.Unmap(region)

	if region, err = d.mapper.Map(phys, int(length)); err != nil {
		return rsdp, errors.Mark(errors.Wrapf(err, "map %d bytes of extended RSDP at 0x%x", length, phys), ErrInvalidRootTable)
	}
	defer func() { _ = d.mapper.Unmap(region) }()

	if len(region) < int(length) || !table.ValidChecksum(region[:length]) {
		return rsdp, errors.Wrap(ErrInvalidRootTable, "extended RSDP checksum mismatch")
	}

	return rsdp, nil
}

// registerFirmware peeks at the header of the table at phys and registers a
// lazy firmware entry for it. Tables with an unreadable header, a length
// smaller than the header or a non-printable signature are skipped.
func (d *Directory) registerFirmware(phys uint64) (table.Signature, bool) {
	logger := d.log.WithField("phys", fmt.Sprintf("0x%x", phys))

	hdr, err := peekHeader(d.mapper, phys)
	switch {
	case err != nil:
		logger.WithError(err).Warn("skipping unreadable firmware table")
		return hdr.Signature, false
	case !hdr.Signature.Printable():
		logger.Warn("skipping firmware table with invalid signature")
		return hdr.Signature, false
	case hdr.Length < table.SizeofSDTHeader:
		logger.WithFields(logrus.Fields{
			"signature": hdr.Signature.String(),
			"length":    hdr.Length,
		}).Warn("skipping firmware table with invalid length")
		return hdr.Signature, false
	}

	d.lock.Acquire()
	defer d.lock.Release()

	for _, t := range d.order {
		if t.origin == OriginFirmware && t.phys == phys {
			logger.WithField("signature", hdr.Signature.String()).Debug("firmware table referenced more than once")
			return hdr.Signature, false
		}
	}

	d.registerLocked(&Table{
		sig:         hdr.Signature,
		phys:        phys,
		length:      hdr.Length,
		origin:      OriginFirmware,
		earlyOffset: -1,
	})

	logger.WithFields(logrus.Fields{
		"signature": hdr.Signature.String(),
		"length":    hdr.Length,
	}).Debug("registered firmware table")

	return hdr.Signature, true
}

// followFADT registers the DSDT referenced by the FADT at phys.
func (d *Directory) followFADT(phys uint64) {
	region, err := mapTable(d.mapper, phys)
	if err != nil {
		d.log.WithError(err).Warn("unable to map FADT")
		return
	}

	dsdtAddr, ok := table.DSDTAddress(region)
	_ = d.mapper.Unmap(region)

	if !ok {
		d.log.Warn("FADT does not reference a DSDT")
		return
	}

	d.registerFirmware(dsdtAddr)
}
