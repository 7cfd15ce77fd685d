package series

import (
	"sort"
	"time"
)

// Point is a single observation in a time series.
type Point struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Series is a named, timestamp-ordered sequence of points.
// Timestamps are unique within a series.
type Series struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// New creates a series from points, sorting by timestamp and dropping
// duplicate timestamps (the first occurrence wins).
func New(name string, points []Point) *Series {
	sorted := make([]Point, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	deduped := sorted[:0]
	for _, p := range sorted {
		if len(deduped) > 0 && deduped[len(deduped)-1].Timestamp.Equal(p.Timestamp) {
			continue
		}
		deduped = append(deduped, p)
	}

	return &Series{Name: name, Points: deduped}
}

// Len returns the number of points in the series.
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Points)
}

// Empty reports whether the series has no points.
func (s *Series) Empty() bool {
	return s.Len() == 0
}

// Values returns the point values in timestamp order.
func (s *Series) Values() []float64 {
	values := make([]float64, len(s.Points))
	for i, p := range s.Points {
		values[i] = p.Value
	}
	return values
}

// AlignedPair is a pair of values observed at the same timestamp.
type AlignedPair struct {
	Timestamp time.Time
	A         float64
	B         float64
}

// Align inner-joins two series on exact timestamp match. Points present in
// only one series are dropped; no interpolation is performed. Both inputs
// must already be timestamp-ordered.
func Align(a, b *Series) []AlignedPair {
	if a.Empty() || b.Empty() {
		return nil
	}

	pairs := make([]AlignedPair, 0, min(len(a.Points), len(b.Points)))
	i, j := 0, 0
	for i < len(a.Points) && j < len(b.Points) {
		ta, tb := a.Points[i].Timestamp, b.Points[j].Timestamp
		switch {
		case ta.Equal(tb):
			pairs = append(pairs, AlignedPair{
				Timestamp: ta,
				A:         a.Points[i].Value,
				B:         b.Points[j].Value,
			})
			i++
			j++
		case ta.Before(tb):
			i++
		default:
			j++
		}
	}
	return pairs
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
