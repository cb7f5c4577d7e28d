package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/grid-allocation-service/internal/domain"
	"github.com/couchcryptid/grid-allocation-service/internal/observability"
)

// AllocationTransformer implements Transformer: it parses a raw allocation
// request, resolves the site catalog, runs the matcher for the request's
// technology, and serializes the result.
//
// Invalid and infeasible requests are not transform failures: they produce
// result events with status "invalid" or "infeasible" so callers always see
// an outcome for every request. Only unparseable payloads and catalog
// outages surface as errors (and are skipped by the pipeline).
type AllocationTransformer struct {
	catalog domain.SiteCatalog
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewTransformer creates an AllocationTransformer. Pass a nil catalog when
// every request carries its sites inline.
func NewTransformer(catalog domain.SiteCatalog, logger *slog.Logger, metrics *observability.Metrics) *AllocationTransformer {
	return &AllocationTransformer{
		catalog: catalog,
		logger:  logger,
		metrics: metrics,
	}
}

func (t *AllocationTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	req, err := domain.ParseRawEvent(raw)
	if err != nil {
		var invalid *domain.InvalidInputError
		if !errors.As(err, &invalid) {
			return domain.OutputEvent{}, err
		}
		t.logger.Warn("rejecting invalid request", "error", err, "offset", raw.Offset)
		return t.finish(domain.InvalidResult(requestID(raw), err))
	}

	sites, err := t.resolveSites(ctx, req)
	if err != nil {
		return domain.OutputEvent{}, err
	}

	result := domain.AllocateRequest(req, sites)
	switch result.Status {
	case domain.StatusInfeasible:
		t.logger.Warn("request infeasible",
			"request_id", req.ID,
			"technology", req.Technology,
			"unmet_nodes", len(result.Unmet),
		)
	case domain.StatusInvalid:
		t.logger.Warn("request could not be allocated",
			"request_id", req.ID,
			"error", result.Error,
		)
	default:
		t.metrics.AllocationPasses.Observe(float64(result.Passes))
	}
	return t.finish(result)
}

// resolveSites prefers sites supplied inline with the request and falls
// back to the external registry.
func (t *AllocationTransformer) resolveSites(ctx context.Context, req domain.AllocationRequest) ([]domain.ResourceSite, error) {
	if len(req.Sites) > 0 {
		return req.Sites, nil
	}
	if t.catalog == nil {
		return nil, nil
	}
	sites, err := t.catalog.Sites(ctx, req.Technology, req.Region)
	if err != nil {
		return nil, fmt.Errorf("fetch sites for %s/%s: %w", req.Technology, req.Region, err)
	}
	return sites, nil
}

func (t *AllocationTransformer) finish(result domain.AllocationResult) (domain.OutputEvent, error) {
	t.metrics.AllocationResults.WithLabelValues(result.Status).Inc()
	return result.MarshalOutput()
}

// requestID makes a best-effort attempt to recover the request ID from the
// message key when the payload itself failed validation.
func requestID(raw domain.RawEvent) string {
	return string(raw.Key)
}
