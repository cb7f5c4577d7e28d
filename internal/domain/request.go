package domain

import (
	"encoding/json"
	"fmt"
)

// RawRequestRecord is the flat JSON structure published to the source topic
// by requesting systems.
type RawRequestRecord struct {
	RequestID  string          `json:"request_id"`
	Technology string          `json:"technology"` // "wind", "solar", or "met"
	Region     string          `json:"region,omitempty"`
	Nodes      []RawNodeRecord `json:"nodes"`
	Sites      []RawSiteRecord `json:"sites,omitempty"`
}

// RawNodeRecord is one requested node. Capacity is required for power
// technologies and ignored for "met".
type RawNodeRecord struct {
	NodeID    string  `json:"node_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Capacity  float64 `json:"capacity,omitempty"`
}

// RawSiteRecord is one resource site supplied inline with a request.
type RawSiteRecord struct {
	SiteID    string  `json:"site_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Capacity  float64 `json:"capacity,omitempty"`
}

// ParseRawEvent deserializes and validates a source-topic message into an
// AllocationRequest. Malformed JSON is reported as a wrapped unmarshal
// error; structurally well-formed but invalid requests are reported as a
// wrapped *InvalidInputError.
func ParseRawEvent(raw RawEvent) (AllocationRequest, error) {
	var rec RawRequestRecord
	if err := json.Unmarshal(raw.Value, &rec); err != nil {
		return AllocationRequest{}, fmt.Errorf("parse allocation request: %w", err)
	}
	req, err := buildRequest(rec)
	if err != nil {
		return AllocationRequest{}, fmt.Errorf("request %q: %w", rec.RequestID, err)
	}
	return req, nil
}

func buildRequest(rec RawRequestRecord) (AllocationRequest, error) {
	if rec.RequestID == "" {
		return AllocationRequest{}, invalidf("missing request_id")
	}
	switch rec.Technology {
	case TechWind, TechSolar, TechMet:
	default:
		return AllocationRequest{}, invalidf("unknown technology %q", rec.Technology)
	}
	if len(rec.Nodes) == 0 {
		return AllocationRequest{}, invalidf("no nodes requested")
	}

	req := AllocationRequest{
		ID:         rec.RequestID,
		Technology: rec.Technology,
		Region:     rec.Region,
	}

	seenNodes := make(map[string]bool, len(rec.Nodes))
	for _, n := range rec.Nodes {
		if n.NodeID == "" {
			return AllocationRequest{}, invalidf("node with empty node_id")
		}
		if seenNodes[n.NodeID] {
			return AllocationRequest{}, invalidf("duplicate node_id %q", n.NodeID)
		}
		seenNodes[n.NodeID] = true

		geo := Geo{Lat: n.Latitude, Lon: n.Longitude}
		if req.IsWeather() {
			req.WeatherNodes = append(req.WeatherNodes, WeatherNode{ID: n.NodeID, Geo: geo})
			continue
		}
		if n.Capacity <= 0 {
			return AllocationRequest{}, invalidf("node %q: capacity must be positive, got %g", n.NodeID, n.Capacity)
		}
		req.GeneratorNodes = append(req.GeneratorNodes, GeneratorNode{ID: n.NodeID, Geo: geo, Capacity: n.Capacity})
	}

	seenSites := make(map[string]bool, len(rec.Sites))
	for _, s := range rec.Sites {
		if s.SiteID == "" {
			return AllocationRequest{}, invalidf("site with empty site_id")
		}
		if seenSites[s.SiteID] {
			return AllocationRequest{}, invalidf("duplicate site_id %q", s.SiteID)
		}
		seenSites[s.SiteID] = true

		if !req.IsWeather() && s.Capacity <= 0 {
			return AllocationRequest{}, invalidf("site %q: capacity must be positive, got %g", s.SiteID, s.Capacity)
		}
		req.Sites = append(req.Sites, ResourceSite{
			ID:       s.SiteID,
			Geo:      Geo{Lat: s.Latitude, Lon: s.Longitude},
			Capacity: s.Capacity,
		})
	}

	return req, nil
}
