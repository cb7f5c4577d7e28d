// Command genmock generates mock allocation request fixtures and their
// expected results. It runs the actual allocation domain code so the result
// fixture matches real pipeline behavior, with a fixed clock for
// reproducible processed_at timestamps.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -requests-out data/mock/allocation_requests.json \
//	  -results-out data/mock/allocation_results.json \
//	  -requests 20 -nodes 8 -sites 12 -seed 42
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/grid-allocation-service/internal/domain"
	"github.com/jonboulle/clockwork"
)

// Texas interconnect bounding box, roughly.
const (
	latMin = 28.0
	latMax = 34.5
	lonMin = -102.0
	lonMax = -95.0
)

var technologies = []string{"wind", "solar", "met"}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	requestsOut := flag.String("requests-out", "", "output path for request JSON fixture")
	resultsOut := flag.String("results-out", "", "output path for expected result JSON fixture")
	numRequests := flag.Int("requests", 20, "number of requests to generate")
	numNodes := flag.Int("nodes", 8, "nodes per request")
	numSites := flag.Int("sites", 12, "sites per request")
	seed := flag.Int64("seed", 42, "PRNG seed for reproducible fixtures")
	flag.Parse()

	if *requestsOut == "" || *resultsOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -requests-out, -results-out")
	}

	// Fix the clock so processed_at is reproducible across runs.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	rng := rand.New(rand.NewSource(*seed)) //nolint:gosec // fixture generation, not crypto

	requests := make([]domain.RawRequestRecord, 0, *numRequests)
	results := make([]domain.AllocationResult, 0, *numRequests)

	for i := 0; i < *numRequests; i++ {
		rec := generateRequest(rng, i, *numNodes, *numSites)
		requests = append(requests, rec)

		res, err := process(rec)
		if err != nil {
			return fmt.Errorf("request %s: %w", rec.RequestID, err)
		}
		results = append(results, res)
	}

	if err := writeJSON(*requestsOut, requests); err != nil {
		return fmt.Errorf("writing request fixture: %w", err)
	}
	log.Printf("wrote request fixture: %s", *requestsOut)

	if err := writeJSON(*resultsOut, results); err != nil {
		return fmt.Errorf("writing result fixture: %w", err)
	}
	log.Printf("wrote result fixture: %s", *resultsOut)

	printStats(results)
	return nil
}

// generateRequest builds one random request. Total site capacity is scaled
// so most requests are feasible but a minority exhaust their sites, giving
// the result fixture both allocated and infeasible entries.
func generateRequest(rng *rand.Rand, idx, numNodes, numSites int) domain.RawRequestRecord {
	tech := technologies[idx%len(technologies)]

	rec := domain.RawRequestRecord{
		RequestID:  fmt.Sprintf("req-%04d", idx+1),
		Technology: tech,
		Region:     "ercot",
	}

	var totalNeed float64
	for n := 0; n < numNodes; n++ {
		node := domain.RawNodeRecord{
			NodeID:    fmt.Sprintf("bus-%04d-%02d", idx+1, n+1),
			Latitude:  latMin + rng.Float64()*(latMax-latMin),
			Longitude: lonMin + rng.Float64()*(lonMax-lonMin),
		}
		if tech != "met" {
			node.Capacity = 20 + rng.Float64()*180 // 20-200 MW
			totalNeed += node.Capacity
		}
		rec.Nodes = append(rec.Nodes, node)
	}

	// Aim for ~1.3x headroom on average; the spread dips below 1.0 often
	// enough that some power requests come out infeasible.
	capScale := 0.7 + rng.Float64()*1.2
	perSite := totalNeed * capScale / float64(numSites)

	for s := 0; s < numSites; s++ {
		site := domain.RawSiteRecord{
			SiteID:    fmt.Sprintf("wtk-%04d-%02d", idx+1, s+1),
			Latitude:  latMin + rng.Float64()*(latMax-latMin),
			Longitude: lonMin + rng.Float64()*(lonMax-lonMin),
		}
		if tech != "met" {
			site.Capacity = perSite * (0.5 + rng.Float64())
		}
		rec.Sites = append(rec.Sites, site)
	}

	return rec
}

// process runs a generated request through the real parse and allocation
// paths.
func process(rec domain.RawRequestRecord) (domain.AllocationResult, error) {
	rawJSON, err := json.Marshal(rec)
	if err != nil {
		return domain.AllocationResult{}, fmt.Errorf("marshal record: %w", err)
	}

	req, err := domain.ParseRawEvent(domain.RawEvent{Value: rawJSON})
	if err != nil {
		return domain.AllocationResult{}, fmt.Errorf("parse raw event: %w", err)
	}

	return domain.AllocateRequest(req, req.Sites), nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(results []domain.AllocationResult) {
	statusCounts := map[string]int{}
	techCounts := map[string]int{}
	var totalPasses, maxPasses, totalAssignments int

	for i := range results {
		r := &results[i]
		statusCounts[r.Status]++
		techCounts[r.Technology]++
		totalPasses += r.Passes
		if r.Passes > maxPasses {
			maxPasses = r.Passes
		}
		for j := range r.Allocations {
			totalAssignments += len(r.Allocations[j].Assignments)
		}
	}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total: %d\n", len(results))
	fmt.Printf("By status: allocated=%d, infeasible=%d, invalid=%d\n",
		statusCounts["allocated"], statusCounts["infeasible"], statusCounts["invalid"])
	fmt.Printf("By technology: wind=%d, solar=%d, met=%d\n",
		techCounts["wind"], techCounts["solar"], techCounts["met"])
	fmt.Printf("Passes: total=%d, max=%d\n", totalPasses, maxPasses)
	fmt.Printf("Site assignments: %d\n", totalAssignments)
}
