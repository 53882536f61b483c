package pipeline_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/couchcryptid/rain-station-coding/internal/domain"
	"github.com/couchcryptid/rain-station-coding/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerator_EmptyQuadrantStartsAtOne(t *testing.T) {
	g := pipeline.NewGenerator(&fakeStore{}, slog.Default(), newTestMetrics())
	cache := domain.NewSequenceCache()

	code, err := g.Generate(context.Background(), -20.5, -43.2, cache)
	require.NoError(t, err)
	assert.Equal(t, "02043001", code)
	assert.Equal(t, []int{1}, cache.Sequences("02043"))
}

func TestGenerator_NorthernHemisphere(t *testing.T) {
	g := pipeline.NewGenerator(&fakeStore{}, slog.Default(), newTestMetrics())

	code, err := g.Generate(context.Background(), 5.2, -60.9, domain.NewSequenceCache())
	require.NoError(t, err)
	assert.Equal(t, "08560001", code)
}

func TestGenerator_ContinuesAfterHighestPersisted(t *testing.T) {
	store := &fakeStore{codes: []int64{2043005, 2043017, 2044900}}
	g := pipeline.NewGenerator(store, slog.Default(), newTestMetrics())

	code, err := g.Generate(context.Background(), -20.5, -43.2, domain.NewSequenceCache())
	require.NoError(t, err)
	assert.Equal(t, "02043018", code)
}

func TestGenerator_ContiguousWithinRun(t *testing.T) {
	store := &fakeStore{codes: []int64{2043001, 2043002, 2043003}}
	metrics := newTestMetrics()
	g := pipeline.NewGenerator(store, slog.Default(), metrics)
	cache := domain.NewSequenceCache()

	var codes []string
	for range 5 {
		code, err := g.Generate(context.Background(), -20.1, -43.9, cache)
		require.NoError(t, err)
		codes = append(codes, code)
	}

	assert.Equal(t, []string{"02043004", "02043005", "02043006", "02043007", "02043008"}, codes)
	assert.InDelta(t, 5, testutil.ToFloat64(metrics.CodesGenerated), 0)
}

func TestGenerator_QuadrantsAreIndependent(t *testing.T) {
	g := pipeline.NewGenerator(&fakeStore{}, slog.Default(), newTestMetrics())
	cache := domain.NewSequenceCache()
	ctx := context.Background()

	a, err := g.Generate(ctx, -20.5, -43.2, cache)
	require.NoError(t, err)
	b, err := g.Generate(ctx, -21.5, -43.2, cache)
	require.NoError(t, err)
	c, err := g.Generate(ctx, -20.5, -43.2, cache)
	require.NoError(t, err)

	assert.Equal(t, "02043001", a)
	assert.Equal(t, "02143001", b)
	assert.Equal(t, "02043002", c)
}

func TestGenerator_ExhaustedQuadrant(t *testing.T) {
	store := &fakeStore{codes: []int64{2043999}}
	metrics := newTestMetrics()
	g := pipeline.NewGenerator(store, slog.Default(), metrics)
	cache := domain.NewSequenceCache()

	_, err := g.Generate(context.Background(), -20.5, -43.2, cache)
	require.ErrorIs(t, err, domain.ErrQuadrantExhausted)
	assert.Empty(t, cache.Sequences("02043"))
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.QuadrantExhausted), 0)
}

func TestGenerator_WideBands(t *testing.T) {
	store := &fakeStore{codes: []int64{105120003, 10512001}}
	g := pipeline.NewGenerator(store, slog.Default(), newTestMetrics())
	cache := domain.NewSequenceCache()

	code, err := g.Generate(context.Background(), 25, -120.4, cache)
	require.NoError(t, err)
	assert.Equal(t, "0105120004", code)

	code, err = g.Generate(context.Background(), 25.5, -60.2, cache)
	require.NoError(t, err)
	assert.Equal(t, "010560001", code)

	usage, err := g.Inspect(context.Background(), "0105120")
	require.NoError(t, err)
	assert.Equal(t, []string{"0105120003"}, usage.Codes)
}

func TestGenerator_InvalidCoordinate(t *testing.T) {
	g := pipeline.NewGenerator(&fakeStore{}, slog.Default(), newTestMetrics())

	_, err := g.Generate(context.Background(), 200, 0, domain.NewSequenceCache())

	var coordErr *domain.CoordinateError
	require.ErrorAs(t, err, &coordErr)
	assert.Equal(t, "latitude", coordErr.Axis)
}

func TestGenerator_StoreErrorPropagates(t *testing.T) {
	store := &fakeStore{err: errors.Join(domain.ErrConnection, errors.New("dial tcp: refused"))}
	g := pipeline.NewGenerator(store, slog.Default(), newTestMetrics())

	_, err := g.Generate(context.Background(), -20.5, -43.2, domain.NewSequenceCache())
	require.ErrorIs(t, err, domain.ErrConnection)
	assert.Contains(t, err.Error(), "02043")
}

func TestGenerator_Inspect(t *testing.T) {
	store := &fakeStore{
		codes:     []int64{2043001, 2043007, 2044002},
		malformed: []string{"02043xyz"},
	}
	g := pipeline.NewGenerator(store, slog.Default(), newTestMetrics())

	usage, err := g.Inspect(context.Background(), "02043")
	require.NoError(t, err)
	assert.Equal(t, "02043", usage.Prefix)
	assert.Equal(t, []string{"02043001", "02043007", "02043xyz"}, usage.Codes)
	assert.Equal(t, 7, usage.LastSequence)
	assert.Equal(t, 992, usage.Remaining)
}

func TestGenerator_InspectRejectsBadPrefix(t *testing.T) {
	g := pipeline.NewGenerator(&fakeStore{}, slog.Default(), newTestMetrics())

	for _, prefix := range []string{"", "2043", "12043", "0204a", "020430"} {
		_, err := g.Inspect(context.Background(), prefix)
		assert.ErrorIs(t, err, domain.ErrValidation, prefix)
	}
}
