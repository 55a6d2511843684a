package models

// Line is one raw input line tagged with its 1-based ordinal. The tag is
// assigned before any chunking so failures stay attributable after workers
// run out of order.
type Line struct {
	Num int
	Raw string
}

// Chunk is a bounded, ordered, non-overlapping slice of lines assigned to
// one worker. Chunks share no state and can be parsed in any order.
type Chunk []Line

// SplitChunks splits lines into contiguous chunks of at most size lines.
// The last chunk may be short.
func SplitChunks(lines []Line, size int) []Chunk {
	if size <= 0 || len(lines) == 0 {
		return nil
	}

	chunks := make([]Chunk, 0, (len(lines)+size-1)/size)
	for head := 0; head < len(lines); head += size {
		tail := head + size
		if tail > len(lines) {
			tail = len(lines)
		}
		chunks = append(chunks, Chunk(lines[head:tail]))
	}

	return chunks
}
