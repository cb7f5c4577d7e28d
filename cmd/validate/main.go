// Command validate performs end-to-end integrity checks across allocation
// mock data fixtures: request JSON and result JSON. It verifies request
// well-formedness, cross-references results against requests, checks the
// allocation invariants (capacity conservation, site limits, nearest-site
// matching), and reproduces every result through the actual domain code.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -requests-json data/mock/allocation_requests.json \
//	  -results-json data/mock/allocation_results.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/couchcryptid/grid-allocation-service/internal/domain"
	"github.com/jonboulle/clockwork"
)

const capTolerance = 1e-9

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	requestsJSON := flag.String("requests-json", "", "path to request JSON fixture")
	resultsJSON := flag.String("results-json", "", "path to expected result JSON fixture")
	flag.Parse()

	if *requestsJSON == "" || *resultsJSON == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*requestsJSON, *resultsJSON); code != 0 {
		os.Exit(code)
	}
}

func run(requestsPath, resultsPath string) int {
	// Fixed clock matching genmock so reproduced timestamps line up.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	fmt.Println("=== Allocation Fixture Integrity Validation ===")
	fmt.Println()

	rawRequests, err := loadJSON[domain.RawRequestRecord](requestsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load request JSON: %v\n", err)
		return 1
	}

	results, err := loadJSON[domain.AllocationResult](resultsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load result JSON: %v\n", err)
		return 1
	}

	requests, reqPhase := parseRequests(rawRequests)

	phases := []*phase{
		reqPhase,
		validateCrossReference(requests, results),
		validateInvariants(requests, results),
		validateReproduction(requests, results),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d requests, %d results\n", len(rawRequests), len(results))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Request Integrity ──
// Validates that every raw request parses through the real ingestion path
// and that request IDs are unique.

func parseRequests(raw []domain.RawRequestRecord) (map[string]domain.AllocationRequest, *phase) {
	p := &phase{name: "Phase 1: Request Integrity"}
	requests := make(map[string]domain.AllocationRequest, len(raw))

	for i, rec := range raw {
		rawJSON, err := json.Marshal(rec)
		if err != nil {
			p.errorf("record %d: marshal: %v", i, err)
			continue
		}
		req, err := domain.ParseRawEvent(domain.RawEvent{Value: rawJSON})
		if err != nil {
			p.errorf("record %d (%s): %v", i, rec.RequestID, err)
			continue
		}
		if _, exists := requests[req.ID]; exists {
			p.errorf("record %d: duplicate request_id %q", i, req.ID)
			continue
		}
		requests[req.ID] = req
	}
	return requests, p
}

// ── Phase 2: Result Cross-Reference ──
// Validates that requests and results pair up one-to-one and agree on
// technology, region, and status vocabulary.

func validateCrossReference(requests map[string]domain.AllocationRequest, results []domain.AllocationResult) *phase {
	p := &phase{name: "Phase 2: Result Cross-Reference"}

	validStatuses := map[string]bool{
		domain.StatusAllocated:  true,
		domain.StatusInfeasible: true,
		domain.StatusInvalid:    true,
	}

	seen := map[string]bool{}
	for i := range results {
		r := &results[i]
		if seen[r.RequestID] {
			p.errorf("result %d: duplicate request_id %q", i, r.RequestID)
			continue
		}
		seen[r.RequestID] = true

		req, ok := requests[r.RequestID]
		if !ok {
			p.errorf("result %d: request_id %q has no matching request", i, r.RequestID)
			continue
		}
		if r.Technology != req.Technology {
			p.errorf("%s: technology mismatch: request=%q, result=%q", r.RequestID, req.Technology, r.Technology)
		}
		if r.Region != req.Region {
			p.errorf("%s: region mismatch: request=%q, result=%q", r.RequestID, req.Region, r.Region)
		}
		if !validStatuses[r.Status] {
			p.errorf("%s: status %q not in {allocated, infeasible, invalid}", r.RequestID, r.Status)
		}
		if r.ProcessedAt.IsZero() {
			p.errorf("%s: processed_at is zero", r.RequestID)
		}
	}

	for id := range requests {
		if !seen[id] {
			p.errorf("request %q has no result", id)
		}
	}
	return p
}

// ── Phase 3: Allocation Invariants ──
// Validates capacity conservation, site capacity limits, and nearest-site
// matching against the paired requests.

func validateInvariants(requests map[string]domain.AllocationRequest, results []domain.AllocationResult) *phase {
	p := &phase{name: "Phase 3: Allocation Invariants"}

	for i := range results {
		r := &results[i]
		req, ok := requests[r.RequestID]
		if !ok {
			continue // reported in phase 2
		}
		if req.IsWeather() {
			checkWeatherInvariants(p, req, r)
		} else {
			checkPowerInvariants(p, req, r)
		}
	}
	return p
}

func checkPowerInvariants(p *phase, req domain.AllocationRequest, r *domain.AllocationResult) {
	siteCap := make(map[string]float64, len(req.Sites))
	for _, s := range req.Sites {
		siteCap[s.ID] = s.Capacity
	}

	siteFractions := map[string]float64{}

	switch r.Status {
	case domain.StatusAllocated:
		if len(r.Allocations) != len(req.GeneratorNodes) {
			p.errorf("%s: %d allocations for %d nodes", r.RequestID, len(r.Allocations), len(req.GeneratorNodes))
		}
		for j := range r.Allocations {
			a := &r.Allocations[j]

			// Conservation: assigned MW must sum to the node's capacity.
			var delivered float64
			for _, asn := range a.Assignments {
				total, ok := siteCap[asn.SiteID]
				if !ok {
					p.errorf("%s node %s: unknown site %q", r.RequestID, a.NodeID, asn.SiteID)
					continue
				}
				if asn.Fraction <= 0 || asn.Fraction > 1+capTolerance {
					p.errorf("%s node %s: fraction %g outside (0, 1]", r.RequestID, a.NodeID, asn.Fraction)
				}
				delivered += asn.Fraction * total
				siteFractions[asn.SiteID] += asn.Fraction
			}
			if !floatEq(delivered, a.Capacity) {
				p.errorf("%s node %s: delivered %g MW, capacity is %g MW", r.RequestID, a.NodeID, delivered, a.Capacity)
			}
		}

		// Site limit: fractions drawn from one site must not exceed its whole.
		for siteID, total := range siteFractions {
			if total > 1+capTolerance {
				p.errorf("%s site %s: total fraction %g exceeds 1", r.RequestID, siteID, total)
			}
		}

	case domain.StatusInfeasible:
		if len(r.Allocations) != 0 {
			p.errorf("%s: infeasible result carries %d allocations", r.RequestID, len(r.Allocations))
		}
		if len(r.Unmet) == 0 {
			p.errorf("%s: infeasible result has no unmet nodes", r.RequestID)
		}
		for _, u := range r.Unmet {
			if u.Remaining <= 0 {
				p.errorf("%s: unmet node %s has non-positive remaining %g", r.RequestID, u.NodeID, u.Remaining)
			}
		}
	}
}

func checkWeatherInvariants(p *phase, req domain.AllocationRequest, r *domain.AllocationResult) {
	if r.Status != domain.StatusAllocated {
		return
	}
	if len(r.Matches) != len(req.WeatherNodes) {
		p.errorf("%s: %d matches for %d nodes", r.RequestID, len(r.Matches), len(req.WeatherNodes))
		return
	}

	nodeGeo := make(map[string]domain.Geo, len(req.WeatherNodes))
	for _, n := range req.WeatherNodes {
		nodeGeo[n.ID] = n.Geo
	}
	siteGeo := make(map[string]domain.Geo, len(req.Sites))
	for _, s := range req.Sites {
		siteGeo[s.ID] = s.Geo
	}

	for _, m := range r.Matches {
		ng, ok := nodeGeo[m.NodeID]
		if !ok {
			p.errorf("%s: match references unknown node %q", r.RequestID, m.NodeID)
			continue
		}
		sg, ok := siteGeo[m.SiteID]
		if !ok {
			p.errorf("%s: match references unknown site %q", r.RequestID, m.SiteID)
			continue
		}

		// Minimality: no site may be strictly closer than the matched one.
		matched := euclid(ng, sg)
		for _, s := range req.Sites {
			if d := euclid(ng, s.Geo); d < matched-capTolerance {
				p.errorf("%s node %s: site %s at %g is closer than matched %s at %g",
					r.RequestID, m.NodeID, s.ID, d, m.SiteID, matched)
			}
		}
	}
}

// ── Phase 4: Reproduction ──
// Re-runs every request through the allocator and compares with the fixture.

func validateReproduction(requests map[string]domain.AllocationRequest, results []domain.AllocationResult) *phase {
	p := &phase{name: "Phase 4: Reproduction (re-run allocator)"}

	for i := range results {
		r := &results[i]
		req, ok := requests[r.RequestID]
		if !ok {
			continue
		}

		fresh := domain.AllocateRequest(req, req.Sites)

		if fresh.Status != r.Status {
			p.errorf("%s: status: expected %q, reproduced %q", r.RequestID, r.Status, fresh.Status)
			continue
		}
		if fresh.Passes != r.Passes {
			p.errorf("%s: passes: expected %d, reproduced %d", r.RequestID, r.Passes, fresh.Passes)
		}
		compareAllocations(p, r, &fresh)
		compareMatches(p, r, &fresh)
	}
	return p
}

func compareAllocations(p *phase, want, got *domain.AllocationResult) {
	if len(want.Allocations) != len(got.Allocations) {
		p.errorf("%s: allocation count: expected %d, reproduced %d", want.RequestID, len(want.Allocations), len(got.Allocations))
		return
	}
	for i := range want.Allocations {
		w, g := &want.Allocations[i], &got.Allocations[i]
		if w.NodeID != g.NodeID {
			p.errorf("%s allocation %d: node: expected %s, reproduced %s", want.RequestID, i, w.NodeID, g.NodeID)
			continue
		}
		if len(w.Assignments) != len(g.Assignments) {
			p.errorf("%s node %s: assignment count: expected %d, reproduced %d", want.RequestID, w.NodeID, len(w.Assignments), len(g.Assignments))
			continue
		}
		for j := range w.Assignments {
			if w.Assignments[j].SiteID != g.Assignments[j].SiteID {
				p.errorf("%s node %s assignment %d: site: expected %s, reproduced %s",
					want.RequestID, w.NodeID, j, w.Assignments[j].SiteID, g.Assignments[j].SiteID)
			}
			if !floatEq(w.Assignments[j].Fraction, g.Assignments[j].Fraction) {
				p.errorf("%s node %s assignment %d: fraction: expected %g, reproduced %g",
					want.RequestID, w.NodeID, j, w.Assignments[j].Fraction, g.Assignments[j].Fraction)
			}
		}
	}
}

func compareMatches(p *phase, want, got *domain.AllocationResult) {
	if len(want.Matches) != len(got.Matches) {
		p.errorf("%s: match count: expected %d, reproduced %d", want.RequestID, len(want.Matches), len(got.Matches))
		return
	}
	for i := range want.Matches {
		w, g := &want.Matches[i], &got.Matches[i]
		if w.NodeID != g.NodeID || w.SiteID != g.SiteID {
			p.errorf("%s match %d: expected %s→%s, reproduced %s→%s",
				want.RequestID, i, w.NodeID, w.SiteID, g.NodeID, g.SiteID)
		}
	}
}

// ── Helpers ──

func loadJSON[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func euclid(a, b domain.Geo) float64 {
	dLat := a.Lat - b.Lat
	dLon := a.Lon - b.Lon
	return math.Sqrt(dLat*dLat + dLon*dLon)
}

func floatEq(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
