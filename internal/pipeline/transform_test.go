package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/couchcryptid/grid-allocation-service/internal/domain"
	"github.com/couchcryptid/grid-allocation-service/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCatalog struct {
	sites []domain.ResourceSite
	err   error
	calls int
}

func (m *mockCatalog) Sites(_ context.Context, _, _ string) ([]domain.ResourceSite, error) {
	m.calls++
	return m.sites, m.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeResult(t *testing.T, out domain.OutputEvent) domain.AllocationResult {
	t.Helper()
	var res domain.AllocationResult
	require.NoError(t, json.Unmarshal(out.Value, &res))
	return res
}

func TestTransform_InlineSites(t *testing.T) {
	catalog := &mockCatalog{}
	tfm := NewTransformer(catalog, testLogger(), observability.NewMetricsForTesting())

	raw := domain.RawEvent{Value: []byte(`{
		"request_id": "req-1",
		"technology": "wind",
		"nodes": [{"node_id": "n1", "latitude": 0, "longitude": 1, "capacity": 8}],
		"sites": [{"site_id": "s1", "latitude": 0, "longitude": 0, "capacity": 10}]
	}`)}

	out, err := tfm.Transform(context.Background(), raw)
	require.NoError(t, err)

	res := decodeResult(t, out)
	assert.Equal(t, domain.StatusAllocated, res.Status)
	require.Len(t, res.Allocations, 1)
	assert.Equal(t, "s1", res.Allocations[0].Assignments[0].SiteID)
	assert.Zero(t, catalog.calls, "inline sites should not hit the registry")

	assert.Equal(t, []byte("req-1"), out.Key)
	assert.Equal(t, domain.StatusAllocated, out.Headers["status"])
	assert.Equal(t, domain.TechWind, out.Headers["technology"])
}

func TestTransform_CatalogSites(t *testing.T) {
	catalog := &mockCatalog{sites: []domain.ResourceSite{
		{ID: "s1", Geo: domain.Geo{Lat: 0, Lon: 0}, Capacity: 50},
	}}
	tfm := NewTransformer(catalog, testLogger(), observability.NewMetricsForTesting())

	raw := domain.RawEvent{Value: []byte(`{
		"request_id": "req-2",
		"technology": "solar",
		"region": "tx",
		"nodes": [{"node_id": "n1", "latitude": 1, "longitude": 1, "capacity": 25}]
	}`)}

	out, err := tfm.Transform(context.Background(), raw)
	require.NoError(t, err)

	res := decodeResult(t, out)
	assert.Equal(t, domain.StatusAllocated, res.Status)
	assert.Equal(t, 1, catalog.calls)
}

func TestTransform_CatalogError(t *testing.T) {
	catalog := &mockCatalog{err: errors.New("registry down")}
	tfm := NewTransformer(catalog, testLogger(), observability.NewMetricsForTesting())

	raw := domain.RawEvent{Value: []byte(`{
		"request_id": "req-3",
		"technology": "wind",
		"nodes": [{"node_id": "n1", "latitude": 1, "longitude": 1, "capacity": 25}]
	}`)}

	_, err := tfm.Transform(context.Background(), raw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registry down")
}

func TestTransform_InvalidRequestProducesResult(t *testing.T) {
	tfm := NewTransformer(nil, testLogger(), observability.NewMetricsForTesting())

	raw := domain.RawEvent{
		Key: []byte("req-4"),
		Value: []byte(`{
			"request_id": "req-4",
			"technology": "tidal",
			"nodes": [{"node_id": "n1", "capacity": 1}]
		}`),
	}

	out, err := tfm.Transform(context.Background(), raw)
	require.NoError(t, err, "invalid requests become results, not transform failures")

	res := decodeResult(t, out)
	assert.Equal(t, domain.StatusInvalid, res.Status)
	assert.Contains(t, res.Error, "technology")
}

func TestTransform_UnparseablePayloadFails(t *testing.T) {
	tfm := NewTransformer(nil, testLogger(), observability.NewMetricsForTesting())

	_, err := tfm.Transform(context.Background(), domain.RawEvent{Value: []byte(`not-json{{{`)})
	require.Error(t, err)
}

func TestTransform_InfeasibleRequestProducesResult(t *testing.T) {
	tfm := NewTransformer(nil, testLogger(), observability.NewMetricsForTesting())

	raw := domain.RawEvent{Value: []byte(`{
		"request_id": "req-5",
		"technology": "wind",
		"nodes": [{"node_id": "n1", "latitude": 0, "longitude": 1, "capacity": 100}],
		"sites": [{"site_id": "s1", "latitude": 0, "longitude": 0, "capacity": 10}]
	}`)}

	out, err := tfm.Transform(context.Background(), raw)
	require.NoError(t, err)

	res := decodeResult(t, out)
	assert.Equal(t, domain.StatusInfeasible, res.Status)
	require.Len(t, res.Unmet, 1)
	assert.Equal(t, "n1", res.Unmet[0].NodeID)
	assert.InDelta(t, 90.0, res.Unmet[0].Remaining, 1e-9)
	assert.Equal(t, domain.StatusInfeasible, out.Headers["status"])
}

func TestTransform_WeatherRequest(t *testing.T) {
	tfm := NewTransformer(nil, testLogger(), observability.NewMetricsForTesting())

	raw := domain.RawEvent{Value: []byte(`{
		"request_id": "req-6",
		"technology": "met",
		"nodes": [{"node_id": "w1", "latitude": 1, "longitude": 1}],
		"sites": [{"site_id": "m1", "latitude": 0, "longitude": 0}, {"site_id": "m2", "latitude": 9, "longitude": 9}]
	}`)}

	out, err := tfm.Transform(context.Background(), raw)
	require.NoError(t, err)

	res := decodeResult(t, out)
	assert.Equal(t, domain.StatusAllocated, res.Status)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, "m1", res.Matches[0].SiteID)
}
