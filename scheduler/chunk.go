package scheduler

import "github.com/paulmach/go.geojson"

// Chunk divides features into n contiguous chunks. At step i, counting down from n to 1,
// the next ceil(remaining/i) features are taken, so no feature is dropped when the length
// does not divide evenly and earlier chunks are never smaller than later ones.
// Chunks are sub-slices of features. A value of n below 1 is treated as 1.
func Chunk(features []*geojson.Feature, n int) [][]*geojson.Feature {
	if n < 1 {
		n = 1
	}
	chunks := make([][]*geojson.Feature, 0, n)
	remaining := features
	for i := n; i > 0; i-- {
		size := (len(remaining) + i - 1) / i
		chunks = append(chunks, remaining[:size:size])
		remaining = remaining[size:]
	}
	return chunks
}
