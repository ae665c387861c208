//go:build linux

package devmem

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/gopher-os/acpitables/kernel"
	"github.com/gopher-os/acpitables/kernel/mem"
	"github.com/gopher-os/acpitables/kernel/sync"
	"golang.org/x/sys/unix"
)

// DefaultPath is the memory device used by Open when no path is given.
const DefaultPath = "/dev/mem"

var (
	// ErrNotMapped is returned when unmapping a slice that was not
	// returned by Map.
	ErrNotMapped = &kernel.Error{Module: "devmem", Message: "slice is not mapped"}

	mmapFn   = unix.Mmap
	munmapFn = unix.Munmap
)

type mapping struct {
	// pages is the page-aligned region returned by mmap.
	pages []byte
}

// Mapper maps physical memory through a memory device such as /dev/mem.
// Mappings are read-only.
type Mapper struct {
	lock sync.Spinlock
	f    *os.File

	// live is keyed by the first byte of the slices returned by Map.
	live map[*byte]*mapping
}

// Open opens the memory device at path.
func Open(path string) (*Mapper, error) {
	if path == "" {
		path = DefaultPath
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open memory device %q", path)
	}

	return &Mapper{f: f, live: make(map[*byte]*mapping)}, nil
}

// Map maps length bytes starting at the physical address phys.
func (m *Mapper) Map(phys uint64, length int) ([]byte, error) {
	if length <= 0 {
		return nil, errors.Newf("devmem: invalid mapping length %d", length)
	}

	start, size := mem.PageSpan(phys, mem.Size(length))
	pages, err := mmapFn(int(m.f.Fd()), int64(start), int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, errors.Wrapf(err, "mmap [0x%x, 0x%x)", start, start+uint64(size))
	}

	offset := phys - start
	region := pages[offset : offset+uint64(length) : offset+uint64(length)]

	m.lock.Acquire()
	defer m.lock.Release()

	// Identical ranges may be mapped more than once; the kernel returns
	// a fresh address each time so the key is unique per call.
	m.live[&region[0]] = &mapping{pages: pages}

	return region, nil
}

// Unmap releases a slice returned by Map.
func (m *Mapper) Unmap(region []byte) error {
	if len(region) == 0 {
		return ErrNotMapped
	}

	m.lock.Acquire()
	entry, ok := m.live[&region[0]]
	if ok {
		delete(m.live, &region[0])
	}
	m.lock.Release()

	if !ok {
		return ErrNotMapped
	}

	return errors.Wrap(munmapFn(entry.pages), "munmap")
}

// Close releases all outstanding mappings and closes the memory device.
func (m *Mapper) Close() error {
	m.lock.Acquire()
	live := m.live
	m.live = make(map[*byte]*mapping)
	m.lock.Release()

	var err error
	for _, entry := range live {
		err = errors.CombineErrors(err, munmapFn(entry.pages))
	}

	return errors.CombineErrors(err, m.f.Close())
}
