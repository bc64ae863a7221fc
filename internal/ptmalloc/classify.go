package ptmalloc

// ChunkType is the pwndbg-style bucket a chunk is displayed under.
type ChunkType int

const (
	Allocated ChunkType = iota
	Free
	FreeUnsortedbin
	Top
)

func (t ChunkType) String() string {
	switch t {
	case Allocated:
		return "Allocated"
	case Free:
		return "Free"
	case FreeUnsortedbin:
		return "FreeUnsortedbin"
	case Top:
		return "Top"
	default:
		return "Unknown"
	}
}

// ChunkInfo is the classified, display-ready view of a walked MallocChunk.
type ChunkInfo struct {
	ChunkType ChunkType
	Address   uint64
	Size      uint64 // masked (flag bits stripped)
	RawSize   uint64 // as stored in the chunk header
	PrevInuse bool
	FD        *uint64
	BK        *uint64
}

// unsortedBinThreshold is the size at or above which a free, non-top chunk is
// shown as resting in the unsorted bin rather than a plain free chunk —
// matches pwndbg's heap-explorer cutoff.
const unsortedBinThreshold = 0x400

// AnalyzeHeap walks the heap and classifies every chunk found. The last
// chunk walked is always the top chunk; any other chunk is free iff its
// successor's PREV_INUSE bit is clear.
func (p *Ptmalloc) AnalyzeHeap(data []byte, heapStartAddr uint64) []ChunkInfo {
	chunks := p.WalkHeap(data, heapStartAddr)
	infos := make([]ChunkInfo, 0, len(chunks))

	for i, chunk := range chunks {
		isLast := i == len(chunks)-1

		var isFree bool
		switch {
		case isLast:
			isFree = false
		case i+1 < len(chunks):
			isFree = !p.PrevInuseBit(chunks[i+1].Size)
		default:
			isFree = chunk.FD != nil && chunk.BK != nil
		}

		var chunkType ChunkType
		switch {
		case isLast:
			chunkType = Top
		case isFree:
			if p.ChunkSize(chunk.Size) >= unsortedBinThreshold {
				chunkType = FreeUnsortedbin
			} else {
				chunkType = Free
			}
		default:
			chunkType = Allocated
		}

		infos = append(infos, ChunkInfo{
			ChunkType: chunkType,
			Address:   chunk.Address,
			Size:      p.ChunkSize(chunk.Size),
			RawSize:   chunk.Size,
			PrevInuse: p.PrevInuseBit(chunk.Size),
			FD:        chunk.FD,
			BK:        chunk.BK,
		})
	}

	return infos
}
