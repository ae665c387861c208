// Package acpi implements the ACPI table directory: discovery of the firmware
// tables through the RSDP → RSDT/XSDT chain, installation of tables supplied
// by the embedder, reference counted lookups and a bounds-checked iterator
// over the variable-length records that follow a table's fixed header.
//
// Every byte read from firmware memory is treated as untrusted. Declared
// lengths are validated against the number of bytes actually mapped before
// any access that depends on them.
package acpi

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/gopher-os/acpitables/device/acpi/table"
	"github.com/gopher-os/acpitables/kernel/sync"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
)

// Origin describes how a table entered the directory.
type Origin uint8

// The list of supported table origins.
const (
	OriginFirmware Origin = iota
	OriginInstalledBuffer
	OriginInstalledPhysical
)

var originNames = map[Origin]string{
	OriginFirmware:          "firmware",
	OriginInstalledBuffer:   "installed-buffer",
	OriginInstalledPhysical: "installed-physical",
}

// String implements fmt.Stringer.
func (o Origin) String() string {
	if name, ok := originNames[o]; ok {
		return name
	}

	return "unknown"
}

// Table is a handle to a table registered with a Directory. Handles returned
// by the lookup and install methods carry a reference that must be released
// with Directory.Unref once the caller is done with the table.
type Table struct {
	dir *Directory

	sig    table.Signature
	phys   uint64
	length uint32
	origin Origin
	refs   int

	// hdr and data are only valid once the table has been loaded.
	hdr  table.SDTHeader
	data []byte

	// region is the slice returned by the mapper; nil for tables that do
	// not own a mapping.
	region []byte

	// earlyOffset is the offset of the table copy inside the early table
	// store or -1 if the copy lives on the heap.
	earlyOffset int

	// invalid is set when the table failed validation while being loaded.
	invalid bool
}

// Signature returns the table signature.
func (t *Table) Signature() table.Signature { return t.sig }

// Header returns a copy of the table header.
func (t *Table) Header() table.SDTHeader { return t.hdr }

// Bytes returns the table contents including the header. The returned slice
// is exactly as long as the declared table length and must not be used
// after the last reference to the table has been released.
func (t *Table) Bytes() []byte { return t.data }

// Origin returns the origin of the table.
func (t *Table) Origin() Origin { return t.origin }

// PhysAddr returns the physical address of the table. It is zero for tables
// installed from a buffer.
func (t *Table) PhysAddr() uint64 { return t.phys }

// Length returns the declared length of the table including the header.
func (t *Table) Length() uint32 { return t.length }

// RefCount returns the number of outstanding references to the table.
func (t *Table) RefCount() int {
	t.dir.lock.Acquire()
	defer t.dir.lock.Release()
	return t.refs
}

// ForEachSubtable iterates the records that follow the first headerSkip
// bytes of the table. See ForEachSubtable.
func (t *Table) ForEachSubtable(headerSkip int, fn SubtableFn) error {
	if t.data == nil {
		return errors.Wrapf(ErrInvalidArgument, "table %q has been released", t.sig.String())
	}

	return ForEachSubtable(t.data, headerSkip, fn)
}

// TableInfo is a point-in-time description of a registered table.
type TableInfo struct {
	Signature  table.Signature
	Origin     Origin
	PhysAddr   uint64
	Length     uint32
	RefCount   int
	Loaded     bool
	Invalid    bool
	OEMID      string
	OEMTableID string
	Revision   uint8
}

// Directory is the registry of all tables known to the system. All methods
// are safe for concurrent use.
type Directory struct {
	lock sync.Spinlock

	mapper  Mapper
	log     logrus.FieldLogger
	policy  ChecksumPolicy
	dynamic bool
	early   *earlyStore

	// index maps a signature to its tables in lookup order: installed
	// tables (newest first) followed by firmware tables in discovery
	// order.
	index *swiss.Map[table.Signature, []*Table]

	// order holds all tables in registration order.
	order []*Table

	torndown bool
}

// Init creates a Directory from cfg. If cfg.RootPointer is set, it is invoked
// exactly once and the firmware tables reachable from the RSDP are
// registered. A failure to resolve the root pointer is returned to the
// caller, which should treat it as "no ACPI tables available".
func Init(cfg Config) (*Directory, error) {
	d := &Directory{
		mapper:  cfg.Mapper,
		log:     cfg.logger(),
		policy:  cfg.ChecksumPolicy,
		dynamic: cfg.DynamicAllocation,
		index:   swiss.NewMap[table.Signature, []*Table](16),
	}

	if len(cfg.EarlyTableBuffer) != 0 {
		d.early = newEarlyStore(cfg.EarlyTableBuffer)
	}

	if cfg.RootPointer == nil {
		return d, nil
	}

	if d.mapper == nil {
		return nil, errors.Wrap(ErrInvalidArgument, "firmware table discovery requires a mapper")
	}

	rsdpAddr, err := cfg.RootPointer()
	if err != nil {
		return nil, errors.Wrap(err, "obtain RSDP address")
	}

	if err = d.resolve(rsdpAddr); err != nil {
		_ = d.Teardown()
		return nil, err
	}

	return d, nil
}

// Teardown releases all tables including firmware table mappings. Any
// directory operation invoked after Teardown returns ErrNotInitialized.
func (d *Directory) Teardown() error {
	d.lock.Acquire()
	defer d.lock.Release()

	if d.torndown {
		return ErrNotInitialized
	}

	var err error
	for _, t := range d.order {
		err = errors.CombineErrors(err, d.releaseStorageLocked(t))
	}

	d.order = nil
	d.index = swiss.NewMap[table.Signature, []*Table](16)
	if d.early != nil {
		d.early.reset()
	}
	d.torndown = true

	return err
}

// Find returns the first table in lookup order whose signature matches sig
// and increments its reference count.
func (d *Directory) Find(sig string) (*Table, error) {
	return d.FindNth(sig, 0)
}

// FindNth returns the n-th (zero-based) table in lookup order whose
// signature matches sig and increments its reference count.
func (d *Directory) FindNth(sig string, n int) (*Table, error) {
	if n < 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "negative table index %d", n)
	}

	return d.find(sig, n, nil)
}

// FindOEM returns the first table in lookup order whose signature matches
// sig and whose OEM ID and OEM table ID match the supplied values. An empty
// oemID or oemTableID matches any value.
func (d *Directory) FindOEM(sig, oemID, oemTableID string) (*Table, error) {
	return d.find(sig, 0, func(t *Table) bool {
		return (oemID == "" || t.hdr.OEMIDString() == oemID) &&
			(oemTableID == "" || t.hdr.OEMTableIDString() == oemTableID)
	})
}

func (d *Directory) find(sigName string, n int, match func(*Table) bool) (*Table, error) {
	sig, ok := table.ParseSignature(sigName)
	if !ok {
		return nil, errors.Wrapf(ErrInvalidSignature, "lookup signature %q", sigName)
	}

	d.lock.Acquire()
	defer d.lock.Release()

	if d.torndown {
		return nil, ErrNotInitialized
	}

	candidates, _ := d.index.Get(sig)
	for _, t := range candidates {
		if err := d.loadLocked(t); err != nil {
			continue
		}

		if match != nil && !match(t) {
			continue
		}

		if n > 0 {
			n--
			continue
		}

		t.refs++
		return t, nil
	}

	return nil, errors.Wrapf(ErrNotFound, "signature %q", sigName)
}

// Unref releases a reference obtained from a lookup or install. When the last
// reference to an installed table is released, its backing storage is
// released, its mapping is removed and the table is evicted from the
// directory. Firmware tables remain mapped and registered.
func (d *Directory) Unref(t *Table) error {
	if t == nil || t.dir != d {
		return errors.Wrap(ErrInvalidArgument, "table does not belong to this directory")
	}

	d.lock.Acquire()
	defer d.lock.Release()

	if d.torndown {
		return ErrNotInitialized
	}

	if t.refs == 0 {
		return errors.Wrapf(ErrInvalidArgument, "table %q holds no references", t.sig.String())
	}

	t.refs--
	if t.refs > 0 || t.origin == OriginFirmware {
		return nil
	}

	d.evictLocked(t)
	err := d.releaseStorageLocked(t)
	d.log.WithFields(logrus.Fields{
		"signature": t.sig.String(),
		"origin":    t.origin.String(),
	}).Debug("released installed table")

	return err
}

// Tables returns a description of every registered table in registration
// order.
func (d *Directory) Tables() []TableInfo {
	d.lock.Acquire()
	defer d.lock.Release()

	infos := make([]TableInfo, 0, len(d.order))
	for _, t := range d.order {
		info := TableInfo{
			Signature: t.sig,
			Origin:    t.origin,
			PhysAddr:  t.phys,
			Length:    t.length,
			RefCount:  t.refs,
			Loaded:    t.data != nil,
			Invalid:   t.invalid,
		}

		if info.Loaded {
			info.OEMID = t.hdr.OEMIDString()
			info.OEMTableID = t.hdr.OEMTableIDString()
			info.Revision = t.hdr.Revision
		}

		infos = append(infos, info)
	}

	return infos
}

// WriteJSON emits a JSON object describing the directory contents and the
// early table store usage.
func (d *Directory) WriteJSON(w *jwriter.Writer) {
	infos := d.Tables()

	d.lock.Acquire()
	early := d.early
	var earlyCapacity, earlyUsed int
	if early != nil {
		earlyCapacity, earlyUsed = early.capacity(), early.used()
	}
	dynamic := d.dynamic
	d.lock.Release()

	obj := w.Object()
	defer obj.End()

	obj.Name("dynamicAllocation").Bool(dynamic)

	earlyObj := obj.Name("earlyStore").Object()
	earlyObj.Name("capacity").Int(earlyCapacity)
	earlyObj.Name("used").Int(earlyUsed)
	earlyObj.End()

	arr := obj.Name("tables").Array()
	for _, info := range infos {
		tblObj := arr.Object()
		tblObj.Name("signature").String(info.Signature.String())
		tblObj.Name("origin").String(info.Origin.String())
		tblObj.Name("phys").String(fmt.Sprintf("0x%x", info.PhysAddr))
		tblObj.Name("length").Int(int(info.Length))
		tblObj.Name("refs").Int(info.RefCount)
		tblObj.Name("loaded").Bool(info.Loaded)
		if info.Invalid {
			tblObj.Name("invalid").Bool(true)
		}
		if info.Loaded {
			tblObj.Name("oemID").String(info.OEMID)
			tblObj.Name("oemTableID").String(info.OEMTableID)
			tblObj.Name("revision").Int(int(info.Revision))
		}
		tblObj.End()
	}
	arr.End()
}

// registerLocked adds t to the directory. Installed tables are placed ahead
// of every table that shares their signature so that lookups see the newest
// install first.
func (d *Directory) registerLocked(t *Table) {
	t.dir = d

	list, _ := d.index.Get(t.sig)
	if t.origin == OriginFirmware {
		list = append(list, t)
	} else {
		list = slices.Insert(list, 0, t)
	}
	d.index.Put(t.sig, list)

	d.order = append(d.order, t)
}

// evictLocked removes t from the directory.
func (d *Directory) evictLocked(t *Table) {
	if list, ok := d.index.Get(t.sig); ok {
		if index := slices.Index(list, t); index >= 0 {
			list = slices.Delete(list, index, index+1)
		}

		if len(list) == 0 {
			d.index.Delete(t.sig)
		} else {
			d.index.Put(t.sig, list)
		}
	}

	if index := slices.Index(d.order, t); index >= 0 {
		d.order = slices.Delete(d.order, index, index+1)
	}
}

// releaseStorageLocked unmaps the table or returns its copy to the early
// table store.
func (d *Directory) releaseStorageLocked(t *Table) error {
	var err error

	switch {
	case t.region != nil:
		err = errors.Wrapf(d.mapper.Unmap(t.region), "unmap table %q at 0x%x", t.sig.String(), t.phys)
		t.region = nil
	case t.earlyOffset >= 0 && d.early != nil:
		err = d.early.free(t.earlyOffset)
		t.earlyOffset = -1
	}

	t.data = nil
	return err
}

// loadLocked maps a lazily registered firmware table and validates it.
// Tables that fail validation are flagged and never loaded again.
func (d *Directory) loadLocked(t *Table) error {
	switch {
	case t.invalid:
		return ErrInvalidTableLength
	case t.data != nil:
		return nil
	}

	logger := d.log.WithFields(logrus.Fields{
		"signature": t.sig.String(),
		"phys":      fmt.Sprintf("0x%x", t.phys),
	})

	region, err := mapTable(d.mapper, t.phys)
	if err == nil {
		if hdr, _ := table.DecodeSDTHeader(region); hdr.Signature != t.sig {
			_ = d.mapper.Unmap(region)
			err = errors.Wrapf(ErrInvalidSignature, "expected %q; found %q", t.sig.String(), hdr.Signature.String())
		}
	}

	if err == nil {
		if err = d.checkChecksum(region, logger); err != nil {
			_ = d.mapper.Unmap(region)
		}
	}

	if err != nil {
		t.invalid = true
		logger.WithError(err).Warn("skipping firmware table")
		return err
	}

	t.hdr, _ = table.DecodeSDTHeader(region)
	t.length = t.hdr.Length
	t.data = region
	t.region = region
	logger.WithField("length", t.length).Debug("mapped firmware table")
	return nil
}

// checkChecksum applies the configured checksum policy to the table in b.
func (d *Directory) checkChecksum(b []byte, logger logrus.FieldLogger) error {
	if table.ValidChecksum(b) {
		return nil
	}

	if d.policy == ChecksumEnforce {
		return errors.Wrapf(ErrBadChecksum, "sum 0x%02x", table.Sum(b))
	}

	logger.WithField("sum", fmt.Sprintf("0x%02x", table.Sum(b))).Warn("table checksum mismatch")
	return nil
}
