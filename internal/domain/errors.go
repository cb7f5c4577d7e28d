package domain

import (
	"errors"
	"fmt"
)

// ErrEmptyIndex is returned when a nearest-neighbor query is attempted
// against a spatial index built over zero points.
var ErrEmptyIndex = errors.New("spatial index has no points")

// InvalidInputError reports a malformed request: missing fields, duplicate
// identifiers, or non-positive capacity where positive is required.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "invalid input: " + e.Reason
}

func invalidf(format string, args ...any) *InvalidInputError {
	return &InvalidInputError{Reason: fmt.Sprintf(format, args...)}
}

// UnmetDemand identifies a node whose demand could not be fully served and
// how much capacity it is still short.
type UnmetDemand struct {
	NodeID    string  `json:"node_id"`
	Remaining float64 `json:"remaining_mw"`
}

// CapacityExhaustedError is returned when every site's remaining capacity
// reaches zero while nodes still have unmet demand. Unmet enumerates all
// such nodes, partially served ones included, so the caller can relax
// constraints or report infeasibility; demand is never silently dropped.
type CapacityExhaustedError struct {
	Unmet []UnmetDemand
}

func (e *CapacityExhaustedError) Error() string {
	var total float64
	for _, u := range e.Unmet {
		total += u.Remaining
	}
	return fmt.Sprintf("resource capacity exhausted: %d nodes with %.3f MW unmet demand", len(e.Unmet), total)
}
