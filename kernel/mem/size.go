// Package mem provides memory size units and the page rounding helpers used
// by the physical memory mappers.
package mem

// Size represents a memory block size in bytes.
type Size uint64

// Common memory block sizes.
const (
	Byte Size = 1
	Kb        = 1024 * Byte
	Mb        = 1024 * Kb
	Gb        = 1024 * Mb
)

const (
	// PageShift is equal to log2(PageSize). This constant is used when
	// we need to convert a physical address to a page number (shift right by PageShift)
	// and vice-versa.
	PageShift = 12

	// PageSize defines the system's page size in bytes.
	PageSize = Size(1 << PageShift)
)

// PageAlignDown rounds addr down to the start of the page that contains it.
func PageAlignDown(addr uint64) uint64 {
	return addr &^ uint64(PageSize-1)
}

// PageAlignUp rounds addr up to the nearest page boundary.
func PageAlignUp(addr uint64) uint64 {
	return (addr + uint64(PageSize-1)) &^ uint64(PageSize-1)
}

// PageOffset returns the offset of addr from the start of its page.
func PageOffset(addr uint64) uint64 {
	return addr & uint64(PageSize-1)
}

// PageSpan returns the page-aligned start address and the size of the
// smallest page-aligned region that covers [addr, addr+size).
func PageSpan(addr uint64, size Size) (uint64, Size) {
	start := PageAlignDown(addr)
	end := PageAlignUp(addr + uint64(size))
	return start, Size(end - start)
}
