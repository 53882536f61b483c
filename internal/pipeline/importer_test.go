package pipeline_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/rain-station-coding/internal/domain"
	"github.com/couchcryptid/rain-station-coding/internal/pipeline"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 14, 9, 30, 0, 0, time.UTC)

func freezeClock(t *testing.T) {
	t.Helper()
	domain.SetClock(clockwork.NewFakeClockAt(fixedNow))
	t.Cleanup(func() { domain.SetClock(nil) })
}

func intakeTable() *fakeTable {
	return &fakeTable{
		name: "Estacoes_Novas",
		columns: []string{
			"Nome", "Latitude", "Longitude", "Codigo", "Descarga Liquida", "Escala",
			"BaciaCodigo", "TipoRedeBasica", "Observacao",
		},
		rows: [][]any{
			{"Fazenda Boa Vista", "-20,5", -43.2, nil, "SIM", "não", "12", "S", "beside the road"},
			{"Already Coded", -20.5, -43.2, "02043001", "S", "S", nil, nil, nil},
			{"Sitio Novo", -20.7, -43.9, "", "N", int64(1), "abc", "x", ""},
		},
	}
}

func TestImporter_CodesPendingRows(t *testing.T) {
	freezeClock(t)
	store := &fakeStore{codes: []int64{2043004}, maxID: 100}
	metrics := newTestMetrics()
	im := pipeline.NewImporter(store, nil, 0, slog.Default(), metrics)

	records, err := im.Import(context.Background(), intakeTable(), domain.NewSequenceCache())
	require.NoError(t, err)
	require.Len(t, records, 2)

	first, second := records[0], records[1]
	assert.Equal(t, "Fazenda Boa Vista", first.Name)
	assert.Equal(t, "02043005", first.Code)
	assert.Equal(t, "02043006", second.Code)
	assert.Equal(t, int64(101), first.RegistryID)
	assert.Equal(t, int64(102), second.RegistryID)
	assert.Equal(t, pipeline.DefaultCategory, first.Category)
	assert.Equal(t, fixedNow, first.CodedAt)
	assert.InDelta(t, -20.5, first.Latitude, 1e-9)

	assert.Equal(t, ptr(true), first.Flags.Discharge)
	assert.Equal(t, ptr(false), first.Flags.Gauge)
	assert.Equal(t, ptr(false), second.Flags.Discharge)
	assert.Equal(t, ptr(true), second.Flags.Gauge)
	assert.Nil(t, first.Flags.Sediment)

	assert.Equal(t, ptr(int64(12)), first.Codes.Basin)
	assert.Nil(t, second.Codes.Basin)

	v, ok := first.Extra("TipoRedeBasica")
	require.True(t, ok)
	assert.Equal(t, true, v)
	v, _ = second.Extra("TipoRedeBasica")
	assert.Nil(t, v)
	v, _ = first.Extra("Observacao")
	assert.Equal(t, "beside the road", v)
	v, _ = second.Extra("Observacao")
	assert.Nil(t, v)

	assert.InDelta(t, 2, testutil.ToFloat64(metrics.StationsImported), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.Enrichment.WithLabelValues("sub_basin", domain.OutcomeDisabled)), 0)
}

func TestImporter_EnrichesWithoutOverwriting(t *testing.T) {
	bounds := fakeBoundaries{subBasin: &domain.Area{Name: "Rio Doce", Code: ptr(int64(56)), ParentCode: ptr(int64(5))}}
	im := pipeline.NewImporter(&fakeStore{}, bounds, 2, slog.Default(), newTestMetrics())

	records, err := im.Import(context.Background(), intakeTable(), domain.NewSequenceCache())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, ptr(int64(12)), records[0].Codes.Basin, "supplied basin kept")
	assert.Equal(t, ptr(int64(56)), records[0].Codes.SubBasin)
	assert.Equal(t, ptr(int64(5)), records[1].Codes.Basin)
	assert.Equal(t, "Rio Doce", records[1].Names.SubBasin)
	assert.Nil(t, records[1].Codes.Municipality)
}

func TestImporter_ResetsCache(t *testing.T) {
	cache := domain.NewSequenceCache()
	cache.Add("02043", 50)
	im := pipeline.NewImporter(&fakeStore{}, nil, 2, slog.Default(), newTestMetrics())

	records, err := im.Import(context.Background(), intakeTable(), cache)
	require.NoError(t, err)
	assert.Equal(t, "02043001", records[0].Code)
	assert.Equal(t, []int{1, 2}, cache.Sequences("02043"))
}

func TestImporter_InvalidLatitudeAborts(t *testing.T) {
	table := intakeTable()
	table.rows = append(table.rows, []any{"Serra Alta", "200", -43.0, nil, nil, nil, nil, nil, nil})
	metrics := newTestMetrics()
	im := pipeline.NewImporter(&fakeStore{}, nil, 2, slog.Default(), metrics)

	records, err := im.Import(context.Background(), table, domain.NewSequenceCache())
	require.Error(t, err)
	assert.Nil(t, records)
	require.ErrorIs(t, err, domain.ErrValidation)

	var stationErr *domain.StationError
	require.ErrorAs(t, err, &stationErr)
	assert.Equal(t, "Serra Alta", stationErr.Station)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ImportFailures), 0)
}

func TestImporter_MalformedCoordinateNamesRow(t *testing.T) {
	table := &fakeTable{
		name:    "Estacoes_Novas",
		columns: []string{"Nome", "Latitude", "Longitude"},
		rows:    [][]any{{nil, "abc", "-43"}},
	}
	im := pipeline.NewImporter(&fakeStore{}, nil, 2, slog.Default(), newTestMetrics())

	_, err := im.Import(context.Background(), table, domain.NewSequenceCache())

	var stationErr *domain.StationError
	require.ErrorAs(t, err, &stationErr)
	assert.Equal(t, "row 1", stationErr.Station)
}

func TestImporter_MissingRequiredColumns(t *testing.T) {
	table := &fakeTable{name: "Estacoes_Novas", columns: []string{"Nome", "Latitude"}}
	im := pipeline.NewImporter(&fakeStore{}, nil, 2, slog.Default(), newTestMetrics())

	records, err := im.Import(context.Background(), table, domain.NewSequenceCache())
	require.ErrorIs(t, err, domain.ErrSchema)
	assert.Contains(t, err.Error(), "Longitude")
	assert.Nil(t, records)
}

func TestImporter_MissingTable(t *testing.T) {
	table := &fakeTable{name: "Estacoes_Novas", colErr: fmt.Errorf("%w: table Estacoes_Novas not found", domain.ErrSchema)}
	im := pipeline.NewImporter(&fakeStore{}, nil, 2, slog.Default(), newTestMetrics())

	_, err := im.Import(context.Background(), table, domain.NewSequenceCache())
	require.ErrorIs(t, err, domain.ErrSchema)
	assert.NotErrorIs(t, err, domain.ErrImport)
}

func TestImporter_ReadFailure(t *testing.T) {
	table := intakeTable()
	table.rowErr = io.ErrUnexpectedEOF
	im := pipeline.NewImporter(&fakeStore{}, nil, 2, slog.Default(), newTestMetrics())

	_, err := im.Import(context.Background(), table, domain.NewSequenceCache())
	require.ErrorIs(t, err, domain.ErrImport)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestImporter_StoreUnreachable(t *testing.T) {
	store := &fakeStore{err: fmt.Errorf("%w: connection refused", domain.ErrConnection)}
	im := pipeline.NewImporter(store, nil, 2, slog.Default(), newTestMetrics())

	records, err := im.Import(context.Background(), intakeTable(), domain.NewSequenceCache())
	require.ErrorIs(t, err, domain.ErrConnection)
	assert.Nil(t, records)
}

func TestImporter_CarriedRegistryIDs(t *testing.T) {
	table := &fakeTable{
		name:    "Estacoes_Novas",
		columns: []string{"RegistroID", "Nome", "Latitude", "Longitude"},
		rows: [][]any{
			{nil, "A", -20.5, -43.2},
			{int64(500), "B", -20.5, -43.2},
			{"", "C", -20.5, -43.2},
		},
	}
	im := pipeline.NewImporter(&fakeStore{maxID: 10}, nil, 2, slog.Default(), newTestMetrics())

	records, err := im.Import(context.Background(), table, domain.NewSequenceCache())
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, int64(501), records[0].RegistryID)
	assert.Equal(t, int64(500), records[1].RegistryID)
	assert.Equal(t, int64(502), records[2].RegistryID)
}

func TestImporter_FreshIDsSkipLaterCarriedID(t *testing.T) {
	table := &fakeTable{
		name:    "Estacoes_Novas",
		columns: []string{"RegistroID", "Nome", "Latitude", "Longitude"},
		rows: [][]any{
			{nil, "A", -20.5, -43.2},
			{int64(11), "B", -20.5, -43.2},
		},
	}
	im := pipeline.NewImporter(&fakeStore{maxID: 10}, nil, 2, slog.Default(), newTestMetrics())

	records, err := im.Import(context.Background(), table, domain.NewSequenceCache())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(12), records[0].RegistryID)
	assert.Equal(t, int64(11), records[1].RegistryID)
}

func TestImporter_RepeatedCarriedIDAborts(t *testing.T) {
	table := &fakeTable{
		name:    "Estacoes_Novas",
		columns: []string{"RegistroID", "Nome", "Latitude", "Longitude"},
		rows: [][]any{
			{int64(40), "A", -20.5, -43.2},
			{int64(40), "B", -20.7, -43.9},
		},
	}
	im := pipeline.NewImporter(&fakeStore{maxID: 10}, nil, 2, slog.Default(), newTestMetrics())

	records, err := im.Import(context.Background(), table, domain.NewSequenceCache())
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), `"B"`)
	assert.Contains(t, err.Error(), "registry id 40")
	assert.Nil(t, records)
}

func TestImporter_ExhaustedQuadrantAborts(t *testing.T) {
	store := &fakeStore{codes: []int64{2043998}}
	im := pipeline.NewImporter(store, nil, 2, slog.Default(), newTestMetrics())

	records, err := im.Import(context.Background(), intakeTable(), domain.NewSequenceCache())
	require.ErrorIs(t, err, domain.ErrQuadrantExhausted)
	assert.Nil(t, records)
}

func TestImporter_NothingPending(t *testing.T) {
	table := &fakeTable{
		name:    "Estacoes_Novas",
		columns: []string{"Nome", "Latitude", "Longitude", "Codigo"},
		rows:    [][]any{{"A", -20.5, -43.2, "02043001"}},
	}
	im := pipeline.NewImporter(&fakeStore{}, nil, 2, slog.Default(), newTestMetrics())

	records, err := im.Import(context.Background(), table, domain.NewSequenceCache())
	require.NoError(t, err)
	assert.Empty(t, records)
}
