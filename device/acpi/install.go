package acpi

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/gopher-os/acpitables/device/acpi/table"
	"github.com/sirupsen/logrus"
)

// Install copies the table contained in buf into storage owned by the
// directory and registers it ahead of any table sharing its signature. The
// returned table holds a single reference.
//
// The copy is allocated from the heap when dynamic allocation is enabled
// and from the early table store otherwise.
func (d *Directory) Install(buf []byte) (*Table, error) {
	hdr, err := validateInstallBuffer(buf)
	if err != nil {
		return nil, err
	}

	logger := d.log.WithFields(logrus.Fields{
		"signature": hdr.Signature.String(),
		"length":    hdr.Length,
	})

	if err = d.checkChecksum(buf[:hdr.Length], logger); err != nil {
		return nil, err
	}

	d.lock.Acquire()
	defer d.lock.Release()

	if d.torndown {
		return nil, ErrNotInitialized
	}

	t := &Table{
		sig:         hdr.Signature,
		length:      hdr.Length,
		origin:      OriginInstalledBuffer,
		refs:        1,
		hdr:         hdr,
		earlyOffset: -1,
	}

	switch {
	case d.dynamic:
		t.data = make([]byte, hdr.Length)
	case d.early != nil:
		if t.data, t.earlyOffset, err = d.early.alloc(int(hdr.Length)); err != nil {
			return nil, err
		}
	default:
		return nil, errors.Wrapf(ErrOutOfSpace, "install %q: dynamic allocation is disabled and no early table buffer is configured", hdr.Signature.String())
	}

	copy(t.data, buf[:hdr.Length])
	d.registerLocked(t)
	logger.WithField("early", t.earlyOffset >= 0).Info("installed table")

	return t, nil
}

// InstallPhysical maps the table at the physical address phys and registers
// it ahead of any table sharing its signature. The table remains mapped until
// its last reference is released.
func (d *Directory) InstallPhysical(phys uint64) (*Table, error) {
	if d.mapper == nil {
		return nil, errors.Wrap(ErrInvalidArgument, "physical table installation requires a mapper")
	}

	region, err := mapTable(d.mapper, phys)
	if err != nil {
		return nil, err
	}

	hdr, _ := table.DecodeSDTHeader(region)
	logger := d.log.WithFields(logrus.Fields{
		"signature": hdr.Signature.String(),
		"phys":      fmt.Sprintf("0x%x", phys),
		"length":    hdr.Length,
	})

	if !hdr.Signature.Printable() {
		err = errors.Wrapf(ErrInvalidSignature, "table at 0x%x", phys)
	} else {
		err = d.checkChecksum(region, logger)
	}

	if err != nil {
		_ = d.mapper.Unmap(region)
		return nil, err
	}

	d.lock.Acquire()
	defer d.lock.Release()

	if d.torndown {
		_ = d.mapper.Unmap(region)
		return nil, ErrNotInitialized
	}

	t := &Table{
		sig:         hdr.Signature,
		phys:        phys,
		length:      hdr.Length,
		origin:      OriginInstalledPhysical,
		refs:        1,
		hdr:         hdr,
		data:        region,
		region:      region,
		earlyOffset: -1,
	}

	d.registerLocked(t)
	logger.Info("installed physical table")

	return t, nil
}

// EnableDynamicAllocation moves every installed table copy out of the early
// table store onto the heap and makes subsequent installs allocate from the
// heap. Slices previously obtained through Table.Bytes for migrated tables
// keep referring to the early table buffer and must not be used once the
// store is reused.
func (d *Directory) EnableDynamicAllocation() error {
	d.lock.Acquire()
	defer d.lock.Release()

	if d.torndown {
		return ErrNotInitialized
	}

	if d.dynamic {
		return nil
	}

	var migrated int
	for _, t := range d.order {
		if t.earlyOffset < 0 {
			continue
		}

		data := make([]byte, len(t.data))
		copy(data, t.data)
		t.data = data
		t.earlyOffset = -1
		migrated++
	}

	if d.early != nil {
		d.early.reset()
	}

	d.dynamic = true
	d.log.WithField("migrated", migrated).Debug("enabled dynamic table allocation")

	return nil
}

func validateInstallBuffer(buf []byte) (table.SDTHeader, error) {
	hdr, ok := table.DecodeSDTHeader(buf)
	switch {
	case !ok:
		return hdr, errors.Wrapf(ErrInvalidTableLength, "buffer of %d bytes cannot hold a table header", len(buf))
	case hdr.Length < table.SizeofSDTHeader:
		return hdr, errors.Wrapf(ErrInvalidTableLength, "table %q declares length %d", hdr.Signature.String(), hdr.Length)
	case uint64(hdr.Length) > uint64(len(buf)):
		return hdr, errors.Wrapf(ErrInvalidTableLength, "table %q declares length %d; buffer holds %d bytes", hdr.Signature.String(), hdr.Length, len(buf))
	case !hdr.Signature.Printable():
		return hdr, errors.Wrapf(ErrInvalidSignature, "table signature %q", hdr.Signature.String())
	}

	return hdr, nil
}
