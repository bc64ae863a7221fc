package ptmalloc

import "encoding/binary"

// MallocChunk mirrors ptmalloc's malloc_chunk layout as read off the wire:
// an 8-byte prev_size field, an 8-byte size field (flag bits included), and
// — only populated for chunks the walker proves are free — the fd/bk
// freelist pointers.
type MallocChunk struct {
	Address  uint64
	PrevSize uint64
	Size     uint64
	FD       *uint64
	BK       *uint64
}

const maxWalkChunks = 100

func readU64(data []byte, offset int) (uint64, bool) {
	if offset < 0 || offset+8 > len(data) {
		return 0, false
	}
	return binary.LittleEndian.Uint64(data[offset : offset+8]), true
}

// FindHeapBaseOffset locates where chunk walking should begin within a raw
// heap dump. It first looks for the arena-header fingerprint pwndbg relies
// on (a chunk of raw size 0x411 immediately followed, 0x410 bytes later, by
// one of raw size 0x301); if that signature is absent it falls back to the
// first 8-byte-aligned offset that looks like a plausible first chunk:
// zero prev_size, PREV_INUSE set, and a masked size within [MinSize, 1MiB).
func (p *Ptmalloc) FindHeapBaseOffset(data []byte) (int, bool) {
	limit := len(data) - 0x420
	for offset := 0; offset < limit; offset += 8 {
		prev1, ok1 := readU64(data, offset)
		size1, ok2 := readU64(data, offset+8)
		if !ok1 || !ok2 {
			continue
		}
		if prev1 != 0 || size1 != 0x411 {
			continue
		}
		nextOffset := offset + 0x410
		if nextSize, ok := readU64(data, nextOffset+8); ok && nextSize == 0x301 {
			return offset, true
		}
	}

	limit = len(data) - 16
	for offset := 0; offset <= limit; offset += 8 {
		prevSize, ok1 := readU64(data, offset)
		size, ok2 := readU64(data, offset+8)
		if !ok1 || !ok2 {
			continue
		}
		if prevSize != 0 || size == 0 || !p.PrevInuseBit(size) {
			continue
		}
		chunkSize := p.ChunkSize(size)
		if chunkSize >= uint64(p.MinSize) && chunkSize < 0x100000 {
			return offset, true
		}
	}

	return 0, false
}

// WalkHeap walks chunks sequentially from the located heap base, stopping
// at a zero-size or PREV_INUSE-only fence word, a chunk size outside
// [MinSize, 1MiB], truncated data, or once more than maxWalkChunks chunks
// have been collected, so at most maxWalkChunks+1 are returned (whichever
// comes first — the walker never trusts the dump to be infinite or the
// allocator state to be consistent).
func (p *Ptmalloc) WalkHeap(data []byte, heapStartAddr uint64) []MallocChunk {
	var chunks []MallocChunk

	baseOffset, ok := p.FindHeapBaseOffset(data)
	if !ok {
		return chunks
	}

	currentOffset := baseOffset
	currentAddr := heapStartAddr

	for {
		prevSize, ok1 := readU64(data, currentOffset)
		size, ok2 := readU64(data, currentOffset+8)
		if !ok1 || !ok2 {
			break
		}
		if size == 0 || size == p.PrevInuse {
			break
		}

		chunkSize := p.ChunkSize(size)
		if chunkSize < uint64(p.MinSize) || chunkSize > 0x100000 {
			break
		}

		chunk := MallocChunk{Address: currentAddr, PrevSize: prevSize, Size: size}

		nextOffset := currentOffset + int(chunkSize)
		if nextSize, ok := readU64(data, nextOffset+8); ok {
			if !p.PrevInuseBit(nextSize) && chunkSize >= uint64(p.MinSize) {
				if fd, ok := readU64(data, currentOffset+16); ok {
					chunk.FD = &fd
				}
				if bk, ok := readU64(data, currentOffset+24); ok {
					chunk.BK = &bk
				}
			}
		}

		chunks = append(chunks, chunk)

		currentAddr += chunkSize
		currentOffset += int(chunkSize)

		if len(chunks) > maxWalkChunks {
			break
		}
	}

	return chunks
}
