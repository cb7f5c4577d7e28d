package domain

import (
	"context"
	"time"
)

// Technology identifiers accepted in allocation requests.
const (
	TechWind  = "wind"
	TechSolar = "solar"
	TechMet   = "met"
)

// Result statuses published to the sink topic.
const (
	StatusAllocated  = "allocated"
	StatusInfeasible = "infeasible"
	StatusInvalid    = "invalid"
)

// Geo is a latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// GeneratorNode is a requested grid node that needs generation capacity.
type GeneratorNode struct {
	ID       string  `json:"node_id"`
	Geo      Geo     `json:"geo"`
	Capacity float64 `json:"capacity"` // demanded capacity, MW
}

// WeatherNode is a requested observation point. No capacity concept.
type WeatherNode struct {
	ID  string `json:"node_id"`
	Geo Geo    `json:"geo"`
}

// ResourceSite is a supplier record from a site catalog. Capacity is the
// site's total nameplate capacity in MW; it is zero for met sites.
type ResourceSite struct {
	ID       string  `json:"site_id"`
	Geo      Geo     `json:"geo"`
	Capacity float64 `json:"capacity,omitempty"`
}

// SiteAssignment records one draw from a site: Fraction is the share of the
// site's total capacity consumed, not the share of the node's demand.
type SiteAssignment struct {
	SiteID   string  `json:"site_id"`
	Fraction float64 `json:"fraction"`
}

// PowerAllocation is the allocation outcome for one generator node.
// Assignments are ordered by the pass in which they were made.
type PowerAllocation struct {
	NodeID      string           `json:"node_id"`
	Geo         Geo              `json:"geo"`
	Capacity    float64          `json:"capacity"`
	Assignments []SiteAssignment `json:"assignments"`
}

// WeatherMatch is the match outcome for one weather node.
type WeatherMatch struct {
	NodeID string `json:"node_id"`
	Geo    Geo    `json:"geo"`
	SiteID string `json:"site_id"`
}

// AllocationRequest is a parsed, validated request from the source topic.
// Exactly one of GeneratorNodes or WeatherNodes is populated, depending on
// the technology. Sites may be empty when a catalog supplies them.
type AllocationRequest struct {
	ID             string
	Technology     string
	Region         string
	GeneratorNodes []GeneratorNode
	WeatherNodes   []WeatherNode
	Sites          []ResourceSite
}

// IsWeather reports whether the request asks for weather matching rather
// than capacity-constrained power allocation.
func (r AllocationRequest) IsWeather() bool {
	return r.Technology == TechMet
}

// AllocationResult is the outcome published to the sink topic. Exactly one
// of Allocations or Matches is populated on success; Unmet is populated when
// the request is infeasible.
type AllocationResult struct {
	RequestID   string            `json:"request_id"`
	Technology  string            `json:"technology"`
	Region      string            `json:"region,omitempty"`
	Status      string            `json:"status"`
	Allocations []PowerAllocation `json:"allocations,omitempty"`
	Matches     []WeatherMatch    `json:"matches,omitempty"`
	Unmet       []UnmetDemand     `json:"unmet,omitempty"`
	Passes      int               `json:"passes,omitempty"`
	Error       string            `json:"error,omitempty"`
	ProcessedAt time.Time         `json:"processed_at"`
}

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// SiteCatalog provides resource site metadata for a technology and region.
type SiteCatalog interface {
	Sites(ctx context.Context, technology, region string) ([]ResourceSite, error)
}
