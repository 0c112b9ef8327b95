package hatch

import "ink-hatch/pkg/geometry"

// LabelStats summarizes the polylines sharing one label.
type LabelStats struct {
	Label     string
	Polylines int
	Vertices  int
	LengthMM  float64 // Summed ink length, gaps bridged by merging included
}

// Summarize groups a document's polylines by label, in first-seen order.
func Summarize(doc *Document) []LabelStats {
	var stats []LabelStats
	index := make(map[string]int)

	for _, pl := range doc.Polylines {
		i, ok := index[pl.Label]
		if !ok {
			i = len(stats)
			index[pl.Label] = i
			stats = append(stats, LabelStats{Label: pl.Label})
		}
		stats[i].Polylines++
		stats[i].Vertices += len(pl.Points)
		stats[i].LengthMM += geometry.PathLength(pl.Points)
	}
	return stats
}

// Bounds returns the bounding box of every point in the document.
func Bounds(doc *Document) geometry.Rect {
	var all []geometry.Point2D
	for _, pl := range doc.Polylines {
		all = append(all, pl.Points...)
	}
	return geometry.BoundingBox(all)
}
