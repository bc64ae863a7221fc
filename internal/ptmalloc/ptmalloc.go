// Package ptmalloc walks a raw glibc heap dump and classifies each chunk the
// way pwndbg's heap-explorer does, without attaching to a live allocator.
//
// The constants and index formulas below are derived straight from glibc's
// malloc.c (PREV_INUSE/IS_MMAPPED/NON_MAIN_ARENA, request2size, the small-
// and large-bin index tables): they are fixed by the allocator's ABI, not a
// design choice, so they are never configurable.
package ptmalloc

// Ptmalloc holds the pointer-width-derived constants used to walk and
// classify chunks in a heap byte dump. Two pointer widths are supported:
// SizeSZ 8 (x86-64/arm64) and SizeSZ 4 (i386/arm).
type Ptmalloc struct {
	SizeSZ int // size_t width in bytes: 8 or 4

	NBins        int
	NSmallBins   int
	BinMapShift  int
	HeapMinSize  int
	HeapMaxSize  int
	BitsPerMap   int
	BinMapSize   int

	PrevInuse    uint64
	IsMmapped    uint64
	NonMainArena uint64
	SizeBits     uint64

	MinChunkSize   int
	MallocAlignment int
	MallocAlignMask int
	MinSize         int
	SmallBinWidth   int
	MinLargeSize    int
	MaxFastSize     int
	NFastBins       int
}

// New builds a Ptmalloc for the given size_t width (4 or 8 bytes).
func New(sizeSZ int) *Ptmalloc {
	p := &Ptmalloc{
		SizeSZ:      sizeSZ,
		NBins:       128,
		NSmallBins:  64,
		BinMapShift: 5,
		HeapMinSize: 32 * 1024,
		HeapMaxSize: 1024 * 1024,
	}
	p.BitsPerMap = 1 << p.BinMapShift
	p.BinMapSize = p.NBins / p.BitsPerMap

	p.PrevInuse = 1
	p.IsMmapped = 2
	p.NonMainArena = 4
	p.SizeBits = p.PrevInuse | p.IsMmapped | p.NonMainArena

	p.setGlobals()
	return p
}

func (p *Ptmalloc) setGlobals() {
	p.MinChunkSize = 4 * p.SizeSZ
	p.MallocAlignment = 2 * p.SizeSZ
	p.MallocAlignMask = p.MallocAlignment - 1
	p.MinSize = (p.MinChunkSize + p.MallocAlignMask) &^ p.MallocAlignMask

	p.SmallBinWidth = p.MallocAlignment
	p.MinLargeSize = p.NSmallBins * p.SmallBinWidth

	p.MaxFastSize = 80 * p.SizeSZ / 4
	size := p.Request2Size(p.MaxFastSize)
	p.NFastBins = p.FastBinIndex(size) + 1
}

// Request2Size rounds a requested allocation size up to the chunk size
// ptmalloc would actually carve out of the heap for it.
func (p *Ptmalloc) Request2Size(req int) int {
	if req+p.SizeSZ+p.MallocAlignMask < p.MinSize {
		return p.MinSize
	}
	return (req + p.SizeSZ + p.MallocAlignMask) &^ p.MallocAlignMask
}

// FastBinIndex returns the fastbin slot for a given chunk size.
func (p *Ptmalloc) FastBinIndex(sz int) int {
	switch p.SizeSZ {
	case 8:
		return (sz >> 4) - 2
	case 4:
		return (sz >> 3) - 2
	default:
		return 0
	}
}

// HeapForPtr masks an address down to the heap region it falls in.
func (p *Ptmalloc) HeapForPtr(ptr uint64) uint64 {
	return ptr &^ (uint64(p.HeapMaxSize) - 1)
}

// ChunkSize masks the flag bits out of a chunk's raw size field.
func (p *Ptmalloc) ChunkSize(rawSize uint64) uint64 {
	return rawSize &^ p.SizeBits
}

// PrevInuseBit reports whether the PREV_INUSE flag is set in a raw size.
func (p *Ptmalloc) PrevInuseBit(rawSize uint64) bool {
	return rawSize&p.PrevInuse != 0
}

// IsMmappedBit reports whether the IS_MMAPPED flag is set in a raw size.
func (p *Ptmalloc) IsMmappedBit(rawSize uint64) bool {
	return rawSize&p.IsMmapped != 0
}

// NonMainArenaBit reports whether the NON_MAIN_ARENA flag is set.
func (p *Ptmalloc) NonMainArenaBit(rawSize uint64) bool {
	return rawSize&p.NonMainArena != 0
}

// InSmallBinRange reports whether a chunk size falls in the smallbin range.
func (p *Ptmalloc) InSmallBinRange(sz int) bool {
	return sz < p.MinLargeSize
}

// SmallBinIndex returns the smallbin slot for a chunk size already known
// to be in smallbin range.
func (p *Ptmalloc) SmallBinIndex(sz int) int {
	if p.SmallBinWidth == 16 {
		return sz >> 4
	}
	return sz >> 3
}

// LargeBinIndex32 is the i386/arm largebin threshold table.
func LargeBinIndex32(sz int) int {
	switch {
	case sz>>6 <= 38:
		return 56 + (sz >> 6)
	case sz>>9 <= 20:
		return 91 + (sz >> 9)
	case sz>>12 <= 10:
		return 110 + (sz >> 12)
	case sz>>15 <= 4:
		return 119 + (sz >> 15)
	case sz>>18 <= 2:
		return 124 + (sz >> 18)
	default:
		return 126
	}
}

// LargeBinIndex64 is the x86-64/arm64 largebin threshold table.
func LargeBinIndex64(sz int) int {
	switch {
	case sz>>6 <= 48:
		return 48 + (sz >> 6)
	case sz>>9 <= 20:
		return 91 + (sz >> 9)
	case sz>>12 <= 10:
		return 110 + (sz >> 12)
	case sz>>15 <= 4:
		return 119 + (sz >> 15)
	case sz>>18 <= 2:
		return 124 + (sz >> 18)
	default:
		return 126
	}
}

// LargeBinIndex dispatches to the width-appropriate table.
func (p *Ptmalloc) LargeBinIndex(sz int) int {
	switch p.SizeSZ {
	case 8:
		return LargeBinIndex64(sz)
	case 4:
		return LargeBinIndex32(sz)
	default:
		return 0
	}
}

// BinIndex returns the bin slot (small or large) a chunk of this size
// belongs to when free.
func (p *Ptmalloc) BinIndex(sz int) int {
	if p.InSmallBinRange(sz) {
		return p.SmallBinIndex(sz)
	}
	return p.LargeBinIndex(sz)
}
