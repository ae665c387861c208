package acpi

import (
	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slices"
)

// earlyAlignment is the alignment of every span handed out by the early
// table store.
const earlyAlignment = 8

type earlySpan struct {
	offset, size int
	live         bool
}

// earlyStore implements a stack-like arena on top of a fixed-capacity buffer
// supplied by the embedder. Spans are carved from the top of the arena; freed
// spans are only reclaimed once every span above them has also been freed.
type earlyStore struct {
	buf []byte

	// top is the offset of the first byte past the last live span.
	top int

	// spans is sorted by offset.
	spans []earlySpan
}

func newEarlyStore(buf []byte) *earlyStore {
	return &earlyStore{buf: buf}
}

// alloc reserves size bytes and returns the reserved slice and its offset
// inside the arena.
func (s *earlyStore) alloc(size int) ([]byte, int, error) {
	offset := (s.top + earlyAlignment - 1) &^ (earlyAlignment - 1)
	if size <= 0 || offset+size > len(s.buf) {
		return nil, -1, errors.Wrapf(ErrOutOfSpace, "early table store: requested %d bytes; %d of %d bytes in use", size, s.top, len(s.buf))
	}

	s.spans = append(s.spans, earlySpan{offset: offset, size: size, live: true})
	s.top = offset + size

	region := s.buf[offset : offset+size : offset+size]
	for i := range region {
		region[i] = 0
	}

	return region, offset, nil
}

// free releases the span that starts at offset.
func (s *earlyStore) free(offset int) error {
	index := slices.IndexFunc(s.spans, func(span earlySpan) bool { return span.offset == offset && span.live })
	if index < 0 {
		return errors.Wrapf(ErrInvalidArgument, "early table store: no live span at offset %d", offset)
	}

	s.spans[index].live = false

	// Pop every trailing freed span so their space can be reused.
	for len(s.spans) > 0 && !s.spans[len(s.spans)-1].live {
		s.spans = s.spans[:len(s.spans)-1]
	}

	s.top = 0
	if last := len(s.spans) - 1; last >= 0 {
		s.top = s.spans[last].offset + s.spans[last].size
	}

	return nil
}

// reset releases all spans.
func (s *earlyStore) reset() {
	s.spans = s.spans[:0]
	s.top = 0
}

// liveSpans returns the number of spans that have not been freed.
func (s *earlyStore) liveSpans() int {
	var count int
	for _, span := range s.spans {
		if span.live {
			count++
		}
	}

	return count
}

func (s *earlyStore) capacity() int { return len(s.buf) }

func (s *earlyStore) used() int { return s.top }
