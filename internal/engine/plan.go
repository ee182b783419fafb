package engine

import "math"

// DefaultChunkSeconds is the chunk length used for long recordings.
const DefaultChunkSeconds = 600

// Chunk is one slice of a long recording.
type Chunk struct {
	Index  int
	Offset float64
	Length float64
}

// Plan splits duration seconds into ceil(duration/chunkSeconds) chunks. The
// last chunk carries the remainder.
func Plan(duration float64, chunkSeconds int) []Chunk {
	if chunkSeconds <= 0 {
		chunkSeconds = DefaultChunkSeconds
	}
	if duration <= 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		return nil
	}
	size := float64(chunkSeconds)
	n := int(math.Ceil(duration / size))
	chunks := make([]Chunk, 0, n)
	for i := 0; i < n; i++ {
		offset := float64(i) * size
		chunks = append(chunks, Chunk{
			Index:  i,
			Offset: offset,
			Length: math.Min(size, duration-offset),
		})
	}
	return chunks
}

// chunkPercent is the midpoint estimate for chunk i of n.
func chunkPercent(i, n int) int {
	if n <= 0 {
		return 0
	}
	return int((float64(i) + 0.5) / float64(n) * 100)
}

// estimatePercent is elapsed over multiplier*duration, capped at 98 until the
// worker reports completion.
func estimatePercent(elapsedSeconds, duration, multiplier float64) int {
	if duration <= 0 {
		return 0
	}
	if multiplier < 1 {
		multiplier = 1
	}
	pct := int(elapsedSeconds / (multiplier * duration) * 100)
	if pct > 98 {
		return 98
	}
	if pct < 0 {
		return 0
	}
	return pct
}
