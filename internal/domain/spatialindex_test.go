package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bruteNearest(coords []Geo, q Geo) (int, float64) {
	best := 0
	bestDist := math.Inf(1)
	for i, c := range coords {
		d := math.Hypot(c.Lat-q.Lat, c.Lon-q.Lon)
		if d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best, bestDist
}

func TestSpatialIndex_Nearest(t *testing.T) {
	coords := []Geo{
		{Lat: 35.0, Lon: -97.0},
		{Lat: 32.7, Lon: -96.8},
		{Lat: 29.7, Lon: -95.4},
		{Lat: 30.3, Lon: -97.7},
		{Lat: 31.8, Lon: -106.4},
	}
	index := NewSpatialIndex(coords)
	require.Equal(t, 5, index.Len())

	queries := []Geo{
		{Lat: 35.1, Lon: -97.1},
		{Lat: 29.5, Lon: -95.0},
		{Lat: 31.0, Lon: -100.0},
		{Lat: 30.0, Lon: -97.0},
	}
	for _, q := range queries {
		wantPos, wantDist := bruteNearest(coords, q)
		pos, dist, err := index.Nearest(q)
		require.NoError(t, err)
		assert.Equal(t, wantPos, pos, "query %+v", q)
		assert.InDelta(t, wantDist, dist, 1e-12, "query %+v", q)
	}
}

func TestSpatialIndex_RepeatedQueries(t *testing.T) {
	coords := []Geo{{Lat: 0, Lon: 0}, {Lat: 10, Lon: 10}}
	index := NewSpatialIndex(coords)

	for i := 0; i < 3; i++ {
		pos, dist, err := index.Nearest(Geo{Lat: 1, Lon: 0})
		require.NoError(t, err)
		assert.Equal(t, 0, pos)
		assert.InDelta(t, 1.0, dist, 1e-12)
	}
}

func TestSpatialIndex_SinglePoint(t *testing.T) {
	index := NewSpatialIndex([]Geo{{Lat: 40.0, Lon: -105.0}})

	pos, dist, err := index.Nearest(Geo{Lat: 43.0, Lon: -109.0})
	require.NoError(t, err)
	assert.Equal(t, 0, pos)
	assert.InDelta(t, 5.0, dist, 1e-12)
}

func TestSpatialIndex_Empty(t *testing.T) {
	index := NewSpatialIndex(nil)
	require.Equal(t, 0, index.Len())

	_, _, err := index.Nearest(Geo{Lat: 1, Lon: 1})
	assert.ErrorIs(t, err, ErrEmptyIndex)
}

func TestSpatialIndex_DuplicatePoints(t *testing.T) {
	// Duplicate coordinates are legal; either copy is an acceptable result.
	coords := []Geo{{Lat: 5, Lon: 5}, {Lat: 5, Lon: 5}, {Lat: 50, Lon: 50}}
	index := NewSpatialIndex(coords)

	pos, dist, err := index.Nearest(Geo{Lat: 5, Lon: 6})
	require.NoError(t, err)
	assert.Contains(t, []int{0, 1}, pos)
	assert.InDelta(t, 1.0, dist, 1e-12)
}
