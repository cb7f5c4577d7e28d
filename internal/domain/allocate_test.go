package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const capacityTolerance = 1e-9

// checkInvariants asserts the conservation and completion properties: no
// site is drawn past its total capacity, and every node's assignments sum
// to its original demand.
func checkInvariants(t *testing.T, nodes []GeneratorNode, sites []ResourceSite, allocs []PowerAllocation) {
	t.Helper()

	siteCap := make(map[string]float64, len(sites))
	for _, s := range sites {
		siteCap[s.ID] = s.Capacity
	}

	drawn := make(map[string]float64)
	for _, a := range allocs {
		var served float64
		for _, as := range a.Assignments {
			capTotal, ok := siteCap[as.SiteID]
			require.True(t, ok, "node %s assigned unknown site %s", a.NodeID, as.SiteID)
			served += as.Fraction * capTotal
			drawn[as.SiteID] += as.Fraction * capTotal
		}
		assert.InDelta(t, a.Capacity, served, capacityTolerance,
			"node %s should be fully served", a.NodeID)
	}

	for id, d := range drawn {
		assert.LessOrEqual(t, d, siteCap[id]+capacityTolerance,
			"site %s drawn past its capacity", id)
	}
}

func TestAllocatePower_SingleNodeSingleSite(t *testing.T) {
	nodes := []GeneratorNode{{ID: "n1", Geo: Geo{Lat: 1, Lon: 1}, Capacity: 30}}
	sites := []ResourceSite{{ID: "s1", Geo: Geo{Lat: 2, Lon: 2}, Capacity: 120}}

	allocs, err := AllocatePower(nodes, sites)
	require.NoError(t, err)
	require.Len(t, allocs, 1)
	require.Len(t, allocs[0].Assignments, 1)
	assert.Equal(t, "s1", allocs[0].Assignments[0].SiteID)
	assert.InDelta(t, 0.25, allocs[0].Assignments[0].Fraction, capacityTolerance)
}

func TestAllocatePower_CloserNodeWinsConflict(t *testing.T) {
	// Both nodes nominate the only site; the closer one (distance 3) is
	// served in pass 1, the farther (distance 7) in pass 2 from the same
	// site's remaining capacity.
	nodes := []GeneratorNode{
		{ID: "far", Geo: Geo{Lat: 0, Lon: 7}, Capacity: 40},
		{ID: "near", Geo: Geo{Lat: 0, Lon: 3}, Capacity: 40},
	}
	sites := []ResourceSite{{ID: "s1", Geo: Geo{Lat: 0, Lon: 0}, Capacity: 100}}

	allocs, passes, err := allocatePower(nodes, sites)
	require.NoError(t, err)
	assert.Equal(t, 2, passes)

	require.Len(t, allocs, 2)
	assert.Equal(t, "far", allocs[0].NodeID)
	require.Len(t, allocs[0].Assignments, 1)
	assert.InDelta(t, 0.4, allocs[0].Assignments[0].Fraction, capacityTolerance)
	require.Len(t, allocs[1].Assignments, 1)
	assert.InDelta(t, 0.4, allocs[1].Assignments[0].Fraction, capacityTolerance)

	checkInvariants(t, nodes, sites, allocs)
}

func TestAllocatePower_SpillsToSecondSite(t *testing.T) {
	// Spec'd scenario: R1 near both nodes, R2 far away. N1 and N2 tie on
	// distance to R1, so input order decides pass 1; N1 drains 8 of R1's
	// 10 MW, N2 then takes R1's remaining 2 and spills to R2 for the rest.
	nodes := []GeneratorNode{
		{ID: "n1", Geo: Geo{Lat: 0, Lon: 1}, Capacity: 8},
		{ID: "n2", Geo: Geo{Lat: 1, Lon: 0}, Capacity: 4},
	}
	sites := []ResourceSite{
		{ID: "r1", Geo: Geo{Lat: 0, Lon: 0}, Capacity: 10},
		{ID: "r2", Geo: Geo{Lat: 10, Lon: 10}, Capacity: 5},
	}

	allocs, passes, err := allocatePower(nodes, sites)
	require.NoError(t, err)
	assert.Equal(t, 3, passes)

	n1, n2 := allocs[0], allocs[1]
	require.Len(t, n1.Assignments, 1)
	assert.Equal(t, SiteAssignment{SiteID: "r1", Fraction: 0.8}, n1.Assignments[0])

	require.Len(t, n2.Assignments, 2)
	assert.Equal(t, "r1", n2.Assignments[0].SiteID)
	assert.InDelta(t, 0.2, n2.Assignments[0].Fraction, capacityTolerance)
	assert.Equal(t, "r2", n2.Assignments[1].SiteID)
	assert.InDelta(t, 0.4, n2.Assignments[1].Fraction, capacityTolerance)

	checkInvariants(t, nodes, sites, allocs)
}

func TestAllocatePower_ExactCapacityMatch(t *testing.T) {
	// need == remaining capacity exhausts the site and satisfies the node
	// in one pass.
	nodes := []GeneratorNode{{ID: "n1", Geo: Geo{Lat: 0, Lon: 0}, Capacity: 50}}
	sites := []ResourceSite{{ID: "s1", Geo: Geo{Lat: 1, Lon: 1}, Capacity: 50}}

	allocs, passes, err := allocatePower(nodes, sites)
	require.NoError(t, err)
	assert.Equal(t, 1, passes)
	require.Len(t, allocs[0].Assignments, 1)
	assert.InDelta(t, 1.0, allocs[0].Assignments[0].Fraction, capacityTolerance)
}

func TestAllocatePower_ManyNodesManySites(t *testing.T) {
	nodes := []GeneratorNode{
		{ID: "n1", Geo: Geo{Lat: 35.2, Lon: -101.8}, Capacity: 120},
		{ID: "n2", Geo: Geo{Lat: 32.8, Lon: -96.8}, Capacity: 45},
		{ID: "n3", Geo: Geo{Lat: 29.8, Lon: -95.4}, Capacity: 80},
		{ID: "n4", Geo: Geo{Lat: 30.3, Lon: -97.7}, Capacity: 15},
		{ID: "n5", Geo: Geo{Lat: 31.8, Lon: -106.4}, Capacity: 60},
	}
	sites := []ResourceSite{
		{ID: "s1", Geo: Geo{Lat: 35.0, Lon: -102.0}, Capacity: 100},
		{ID: "s2", Geo: Geo{Lat: 33.0, Lon: -97.0}, Capacity: 90},
		{ID: "s3", Geo: Geo{Lat: 30.0, Lon: -95.0}, Capacity: 75},
		{ID: "s4", Geo: Geo{Lat: 30.0, Lon: -98.0}, Capacity: 50},
		{ID: "s5", Geo: Geo{Lat: 32.0, Lon: -106.0}, Capacity: 40},
	}

	allocs, err := AllocatePower(nodes, sites)
	require.NoError(t, err)
	checkInvariants(t, nodes, sites, allocs)
}

func TestAllocatePower_Infeasible(t *testing.T) {
	// 5 MW of supply against 20 MW of demand. The closer node is partially
	// served before supply runs out; both nodes must appear in the error.
	nodes := []GeneratorNode{
		{ID: "near", Geo: Geo{Lat: 0, Lon: 1}, Capacity: 10},
		{ID: "far", Geo: Geo{Lat: 0, Lon: 5}, Capacity: 10},
	}
	sites := []ResourceSite{{ID: "s1", Geo: Geo{Lat: 0, Lon: 0}, Capacity: 5}}

	allocs, err := AllocatePower(nodes, sites)
	assert.Nil(t, allocs, "no partial result on failure")

	var exhaust *CapacityExhaustedError
	require.ErrorAs(t, err, &exhaust)
	require.Len(t, exhaust.Unmet, 2)

	remaining := make(map[string]float64, 2)
	for _, u := range exhaust.Unmet {
		remaining[u.NodeID] = u.Remaining
	}
	assert.InDelta(t, 5.0, remaining["near"], capacityTolerance, "near node was partially served")
	assert.InDelta(t, 10.0, remaining["far"], capacityTolerance)
}

func TestAllocatePower_NoSites(t *testing.T) {
	nodes := []GeneratorNode{{ID: "n1", Geo: Geo{Lat: 0, Lon: 0}, Capacity: 10}}

	_, err := AllocatePower(nodes, nil)
	var exhaust *CapacityExhaustedError
	require.ErrorAs(t, err, &exhaust)
	require.Len(t, exhaust.Unmet, 1)
	assert.Equal(t, UnmetDemand{NodeID: "n1", Remaining: 10}, exhaust.Unmet[0])
}

func TestAllocatePower_NoNodes(t *testing.T) {
	sites := []ResourceSite{{ID: "s1", Geo: Geo{Lat: 0, Lon: 0}, Capacity: 5}}

	allocs, passes, err := allocatePower(nil, sites)
	require.NoError(t, err)
	assert.Empty(t, allocs)
	assert.Zero(t, passes)
}

func TestMatchWeather_NearestSite(t *testing.T) {
	nodes := []WeatherNode{
		{ID: "w1", Geo: Geo{Lat: 35.1, Lon: -97.1}},
		{ID: "w2", Geo: Geo{Lat: 29.5, Lon: -95.0}},
	}
	sites := []ResourceSite{
		{ID: "m1", Geo: Geo{Lat: 35.0, Lon: -97.0}},
		{ID: "m2", Geo: Geo{Lat: 29.7, Lon: -95.4}},
		{ID: "m3", Geo: Geo{Lat: 45.0, Lon: -120.0}},
	}

	matches, err := MatchWeather(nodes, sites)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "m1", matches[0].SiteID)
	assert.Equal(t, "m2", matches[1].SiteID)
}

func TestMatchWeather_SharedSite(t *testing.T) {
	// No capacity concept: every node may map to the same site.
	nodes := []WeatherNode{
		{ID: "w1", Geo: Geo{Lat: 1, Lon: 0}},
		{ID: "w2", Geo: Geo{Lat: 0, Lon: 1}},
		{ID: "w3", Geo: Geo{Lat: 1, Lon: 1}},
	}
	sites := []ResourceSite{
		{ID: "m1", Geo: Geo{Lat: 0, Lon: 0}},
		{ID: "m2", Geo: Geo{Lat: 100, Lon: 100}},
	}

	matches, err := MatchWeather(nodes, sites)
	require.NoError(t, err)
	for _, m := range matches {
		assert.Equal(t, "m1", m.SiteID)
	}
}

func TestMatchWeather_NoSites(t *testing.T) {
	nodes := []WeatherNode{{ID: "w1", Geo: Geo{Lat: 0, Lon: 0}}}

	_, err := MatchWeather(nodes, nil)
	assert.ErrorIs(t, err, ErrEmptyIndex)
}

func TestMatchWeather_NoNodesNoSites(t *testing.T) {
	// An empty catalog is an error regardless of how many nodes asked.
	_, err := MatchWeather(nil, nil)
	assert.ErrorIs(t, err, ErrEmptyIndex)
}
