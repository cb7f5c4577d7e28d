package domain

// AllocatePower assigns each generator node to its nearest resource site(s),
// apportioning limited site capacity across nodes until every node's demand
// is met. Inputs are not mutated; all running state lives in local working
// arrays. Callers must have validated inputs beforehand (see ParseRawEvent):
// every demand and every site capacity must be positive.
//
// The returned allocations preserve node input order. A node's assignment
// list is ordered by the pass in which each assignment was made.
func AllocatePower(nodes []GeneratorNode, sites []ResourceSite) ([]PowerAllocation, error) {
	allocs, _, err := allocatePower(nodes, sites)
	return allocs, err
}

func allocatePower(nodes []GeneratorNode, sites []ResourceSite) ([]PowerAllocation, int, error) {
	need := make([]float64, len(nodes)) // remaining unmet demand per node
	for i, n := range nodes {
		need[i] = n.Capacity
	}
	left := make([]float64, len(sites)) // remaining capacity per site
	for i, s := range sites {
		left[i] = s.Capacity
	}
	assignments := make([][]SiteAssignment, len(nodes))

	passes := 0
	for {
		var unmet []int
		for i := range nodes {
			if need[i] > 0 {
				unmet = append(unmet, i)
			}
		}
		if len(unmet) == 0 {
			break
		}

		var avail []int
		for i := range sites {
			if left[i] > 0 {
				avail = append(avail, i)
			}
		}
		if len(avail) == 0 {
			// Supply ran out with demand outstanding. Fail fast rather
			// than loop forever against an empty index.
			return nil, passes, exhausted(nodes, need)
		}
		passes++

		coords := make([]Geo, len(avail))
		for i, s := range avail {
			coords[i] = sites[s].Geo
		}
		index := NewSpatialIndex(coords)

		// Group nominations by site and keep the arg-min node per site:
		// only the closest nominator draws from a site this pass, the rest
		// are deferred. Distance ties keep the first node in input order.
		winner := make(map[int]int, len(unmet))
		winDist := make(map[int]float64, len(unmet))
		for _, n := range unmet {
			pos, dist, err := index.Nearest(nodes[n].Geo)
			if err != nil {
				return nil, passes, err
			}
			if _, claimed := winner[pos]; !claimed || dist < winDist[pos] {
				winner[pos] = n
				winDist[pos] = dist
			}
		}

		// Apportion. Winning pairs within a pass touch disjoint nodes and
		// sites, so processing order does not matter.
		for pos, n := range winner {
			s := avail[pos]
			have := left[s]
			if need[n] < have {
				frac := need[n] / sites[s].Capacity
				left[s] -= need[n]
				need[n] = 0
				assignments[n] = append(assignments[n], SiteAssignment{SiteID: sites[s].ID, Fraction: frac})
			} else {
				// Site is the limiting factor (equality included).
				frac := have / sites[s].Capacity
				need[n] -= have
				left[s] = 0
				assignments[n] = append(assignments[n], SiteAssignment{SiteID: sites[s].ID, Fraction: frac})
			}
		}
	}

	out := make([]PowerAllocation, len(nodes))
	for i, n := range nodes {
		out[i] = PowerAllocation{
			NodeID:      n.ID,
			Geo:         n.Geo,
			Capacity:    n.Capacity,
			Assignments: assignments[i],
		}
	}
	return out, passes, nil
}

func exhausted(nodes []GeneratorNode, need []float64) *CapacityExhaustedError {
	var unmet []UnmetDemand
	for i, n := range nodes {
		if need[i] > 0 {
			unmet = append(unmet, UnmetDemand{NodeID: n.ID, Remaining: need[i]})
		}
	}
	return &CapacityExhaustedError{Unmet: unmet}
}

// MatchWeather assigns each weather node the single nearest site. No
// capacity concept, no conflict resolution: any number of nodes may map to
// the same site. Site capacity, if present, is ignored. Returns
// ErrEmptyIndex when sites is empty.
func MatchWeather(nodes []WeatherNode, sites []ResourceSite) ([]WeatherMatch, error) {
	coords := make([]Geo, len(sites))
	for i, s := range sites {
		coords[i] = s.Geo
	}
	index := NewSpatialIndex(coords)
	if index.Len() == 0 {
		// An empty catalog is an error even when no nodes were requested.
		return nil, ErrEmptyIndex
	}

	out := make([]WeatherMatch, len(nodes))
	for i, n := range nodes {
		pos, _, err := index.Nearest(n.Geo)
		if err != nil {
			return nil, err
		}
		out[i] = WeatherMatch{NodeID: n.ID, Geo: n.Geo, SiteID: sites[pos].ID}
	}
	return out, nil
}
