// Package domain models renewable-resource allocation for power system studies.
//
// # Problem
//
// A modeler requests a set of grid nodes — generator buses that need wind or
// solar capacity, or observation points that need weather data — and the
// allocator matches each node to the nearest resource site(s) in a site
// catalog. Wind and solar sites carry a finite nameplate capacity in MW, so a
// single site can serve several nodes (and a single node can draw from
// several sites) until demand is met. Weather ("met") nodes have no capacity
// concept and simply take the single nearest site.
//
// # Distance Convention
//
// Nearest-neighbor search runs over raw latitude/longitude treated as planar
// Euclidean coordinates, matching the site catalogs this service consumes
// (CONUS-scale datasets where the distortion is acceptable for site
// selection). No great-circle correction is applied.
//
// # Allocation Passes
//
// Power allocation is iterative. Each pass rebuilds a spatial index over the
// sites that still have capacity, finds every unmet node's nearest available
// site, and resolves conflicts when several nodes nominate the same site: only
// the closest nominator draws from the site that pass, the rest are deferred
// and re-evaluated against whatever capacity remains. Each pass either
// exhausts a site or fully satisfies a node, so the loop finishes in at most
// nodes+sites passes when total supply covers total demand. When it does not,
// allocation fails fast with [CapacityExhaustedError] listing every node still
// short of capacity.
//
// # Fractions
//
// An assignment records the fraction of the site's total nameplate capacity
// consumed, not the fraction of the node's demand. Downstream tooling scales
// the site's power timeseries by this fraction, so for any site the assigned
// fractions sum to at most 1.
//
// # Tie-breaking
//
// Two ties are implementation-defined and deliberately not guaranteed:
// exact-distance ties inside the nearest-neighbor search resolve to whichever
// point the kd-tree settles on, and conflict-resolution distance ties between
// nodes keep the first node in input order.
//
// # Site Catalogs
//
// Site metadata arrives inline with a request or from the external site
// registry (see the registry adapter), keyed by technology ("wind", "solar",
// "met") and region.
package domain
