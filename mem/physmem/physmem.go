// Package physmem provides a sparse simulated physical address space. It
// implements the mapper interface consumed by the ACPI table directory and
// keeps track of every outstanding mapping so that callers can verify that
// each Map call is balanced by an Unmap call.
package physmem

import (
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/gopher-os/acpitables/kernel"
	"github.com/gopher-os/acpitables/kernel/mem"
	"github.com/gopher-os/acpitables/kernel/sync"
)

var (
	// ErrOverlap is returned when placing a region that overlaps with an
	// existing region.
	ErrOverlap = &kernel.Error{Module: "physmem", Message: "region overlaps with an existing region"}

	// ErrUnbacked is returned when mapping a range that is not fully
	// contained in a single region.
	ErrUnbacked = &kernel.Error{Module: "physmem", Message: "physical range is not backed by memory"}

	// ErrNotMapped is returned when unmapping a slice that was not
	// returned by Map.
	ErrNotMapped = &kernel.Error{Module: "physmem", Message: "slice is not mapped"}

	// ErrInvalidSize is returned for zero or negative sizes.
	ErrInvalidSize = &kernel.Error{Module: "physmem", Message: "invalid size"}
)

// DefaultAllocBase is the physical address where Alloc starts placing
// regions.
const DefaultAllocBase uint64 = 0x100000

type region struct {
	base uint64
	data []byte
}

func (r *region) end() uint64 { return r.base + uint64(len(r.data)) }

// Memory is a sparse physical address space made of non-overlapping
// regions. The zero value is not usable; use New.
type Memory struct {
	lock sync.Spinlock

	// regions is sorted by base address.
	regions []*region

	// next is the address where Alloc looks for free space.
	next uint64

	live     map[*byte]int
	liveCnt  int
	mapCalls int
}

// New returns an empty physical address space.
func New() *Memory {
	return &Memory{
		next: DefaultAllocBase,
		live: make(map[*byte]int),
	}
}

// Place backs the physical range [base, base+len(data)) with data. The
// supplied slice is used directly so later modifications to data are
// visible through Map.
func (m *Memory) Place(base uint64, data []byte) error {
	if len(data) == 0 {
		return errors.Wrapf(ErrInvalidSize, "place empty region at 0x%x", base)
	}

	m.lock.Acquire()
	defer m.lock.Release()

	return m.placeLocked(&region{base: base, data: data})
}

func (m *Memory) placeLocked(r *region) error {
	index := sort.Search(len(m.regions), func(i int) bool { return m.regions[i].base >= r.base })
	if index > 0 && m.regions[index-1].end() > r.base {
		return errors.Wrapf(ErrOverlap, "[0x%x, 0x%x) overlaps [0x%x, 0x%x)", r.base, r.end(), m.regions[index-1].base, m.regions[index-1].end())
	}
	if index < len(m.regions) && r.end() > m.regions[index].base {
		return errors.Wrapf(ErrOverlap, "[0x%x, 0x%x) overlaps [0x%x, 0x%x)", r.base, r.end(), m.regions[index].base, m.regions[index].end())
	}

	m.regions = append(m.regions, nil)
	copy(m.regions[index+1:], m.regions[index:])
	m.regions[index] = r
	return nil
}

// Alloc reserves size zeroed bytes at the lowest free address above the
// allocation cursor that satisfies align and returns the physical address
// together with the backing slice.
func (m *Memory) Alloc(size int, align uint64) (uint64, []byte, error) {
	if size <= 0 {
		return 0, nil, errors.Wrapf(ErrInvalidSize, "allocate %d bytes", size)
	}

	if align == 0 {
		align = 1
	}

	m.lock.Acquire()
	defer m.lock.Release()

	base := alignUp(m.next, align)
	for _, r := range m.regions {
		if r.end() <= base {
			continue
		}

		if base+uint64(size) <= r.base {
			break
		}

		base = alignUp(r.end(), align)
	}

	reg := &region{base: base, data: make([]byte, size)}
	if err := m.placeLocked(reg); err != nil {
		return 0, nil, err
	}

	m.next = reg.end()
	return base, reg.data, nil
}

// AllocPages is like Alloc but rounds the allocation to whole pages.
func (m *Memory) AllocPages(size mem.Size) (uint64, []byte, error) {
	pages := (uint64(size) + uint64(mem.PageSize) - 1) >> mem.PageShift
	return m.Alloc(int(pages<<mem.PageShift), uint64(mem.PageSize))
}

// Map returns a slice that aliases length bytes at phys. The range must be
// contained in a single region.
func (m *Memory) Map(phys uint64, length int) ([]byte, error) {
	if length <= 0 {
		return nil, errors.Wrapf(ErrInvalidSize, "map %d bytes at 0x%x", length, phys)
	}

	m.lock.Acquire()
	defer m.lock.Release()

	m.mapCalls++

	r := m.lookupLocked(phys)
	if r == nil || phys+uint64(length) > r.end() {
		return nil, errors.Wrapf(ErrUnbacked, "[0x%x, 0x%x)", phys, phys+uint64(length))
	}

	offset := phys - r.base
	mapping := r.data[offset : offset+uint64(length) : offset+uint64(length)]
	m.live[&mapping[0]]++
	m.liveCnt++

	return mapping, nil
}

// Unmap releases a slice returned by Map.
func (m *Memory) Unmap(mapping []byte) error {
	if len(mapping) == 0 {
		return errors.Wrap(ErrNotMapped, "unmap empty slice")
	}

	m.lock.Acquire()
	defer m.lock.Release()

	key := &mapping[0]
	if m.live[key] == 0 {
		return ErrNotMapped
	}

	if m.live[key]--; m.live[key] == 0 {
		delete(m.live, key)
	}
	m.liveCnt--

	return nil
}

// LiveMappings returns the number of Map calls that have not been balanced
// by an Unmap call.
func (m *Memory) LiveMappings() int {
	m.lock.Acquire()
	defer m.lock.Release()
	return m.liveCnt
}

// MapCalls returns the total number of Map calls.
func (m *Memory) MapCalls() int {
	m.lock.Acquire()
	defer m.lock.Release()
	return m.mapCalls
}

func (m *Memory) lookupLocked(phys uint64) *region {
	index := sort.Search(len(m.regions), func(i int) bool { return m.regions[i].end() > phys })
	if index == len(m.regions) || m.regions[index].base > phys {
		return nil
	}

	return m.regions[index]
}

func alignUp(v, align uint64) uint64 {
	if rem := v % align; rem != 0 {
		return v + align - rem
	}

	return v
}
