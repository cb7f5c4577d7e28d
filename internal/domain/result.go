package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// AllocateRequest runs the matcher for the request's technology against the
// given sites and folds domain errors into the result status:
//
//   - success → StatusAllocated with Allocations or Matches
//   - CapacityExhaustedError → StatusInfeasible with Unmet populated
//   - ErrEmptyIndex (weather request with zero sites) → StatusInvalid
//
// A non-nil result is always produced; the request is never silently
// dropped.
func AllocateRequest(req AllocationRequest, sites []ResourceSite) AllocationResult {
	res := AllocationResult{
		RequestID:   req.ID,
		Technology:  req.Technology,
		Region:      req.Region,
		Status:      StatusAllocated,
		ProcessedAt: clock.Now(),
	}

	if req.IsWeather() {
		matches, err := MatchWeather(req.WeatherNodes, sites)
		if err != nil {
			if errors.Is(err, ErrEmptyIndex) {
				res.Status = StatusInvalid
				res.Error = "no sites available for weather matching"
				return res
			}
			res.Status = StatusInvalid
			res.Error = err.Error()
			return res
		}
		res.Matches = matches
		return res
	}

	allocs, passes, err := allocatePower(req.GeneratorNodes, sites)
	res.Passes = passes
	if err != nil {
		var exhaust *CapacityExhaustedError
		if errors.As(err, &exhaust) {
			res.Status = StatusInfeasible
			res.Unmet = exhaust.Unmet
			res.Error = exhaust.Error()
			return res
		}
		res.Status = StatusInvalid
		res.Error = err.Error()
		return res
	}
	res.Allocations = allocs
	return res
}

// InvalidResult builds a StatusInvalid result for a request that failed
// validation before allocation could run. requestID may be empty when the
// payload was unparseable.
func InvalidResult(requestID string, err error) AllocationResult {
	return AllocationResult{
		RequestID:   requestID,
		Status:      StatusInvalid,
		Error:       err.Error(),
		ProcessedAt: clock.Now(),
	}
}

// MarshalOutput serializes a result into the sink-topic wire form, keyed by
// request ID with routing headers.
func (r AllocationResult) MarshalOutput() (OutputEvent, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize allocation result: %w", err)
	}
	return OutputEvent{
		Key:   []byte(r.RequestID),
		Value: data,
		Headers: map[string]string{
			"technology":   r.Technology,
			"status":       r.Status,
			"processed_at": r.ProcessedAt.Format(time.RFC3339),
		},
	}, nil
}
