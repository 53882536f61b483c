package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var intakeHeader = []string{
	"RegistroID", "Codigo", "Nome", "Latitude", "Longitude", "Altitude", "AreaDrenagem",
	"CodigoAdicional", "Escala", "TipoEstacaoEscala", "Descarga Liquida", "Telemetrica",
	"BaciaCodigo", "MunicipioNome", "Importado", "ResponsavelCodigoAlternativo", "TipoEstacaoEscalaDataIns",
	"Observacao",
}

func TestParseIntakeRow(t *testing.T) {
	idx := MakeHeaderIndex(intakeHeader)
	row := []any{
		int64(42), nil, " Fazenda Boa Vista ", "-20,5", -43.2, "812", "bad",
		"ABC-1", "SIM", "N", "nao", "talvez",
		"5.0", "Ouro Preto", "0", "17", "2020-01-01",
		"  ",
	}

	rec, err := ParseIntakeRow(row, idx)
	require.NoError(t, err)

	assert.Equal(t, int64(42), rec.RegistryID)
	assert.Empty(t, rec.Code)
	assert.Equal(t, "Fazenda Boa Vista", rec.Name)
	assert.InDelta(t, -20.5, rec.Latitude, 1e-9)
	assert.InDelta(t, -43.2, rec.Longitude, 1e-9)
	assert.Equal(t, ptrTo(812.0), rec.Altitude)
	assert.Nil(t, rec.DrainageArea)
	assert.Equal(t, "ABC-1", rec.SecondCode)

	// first present alias wins
	require.NotNil(t, rec.Flags.Gauge)
	assert.True(t, *rec.Flags.Gauge)
	require.NotNil(t, rec.Flags.Discharge)
	assert.False(t, *rec.Flags.Discharge)
	assert.Nil(t, rec.Flags.Telemetry)
	assert.Nil(t, rec.Flags.Operating)

	assert.Equal(t, ptrTo(int64(5)), rec.Codes.Basin)
	assert.Nil(t, rec.Codes.Municipality)
	assert.Equal(t, "Ouro Preto", rec.Names.Municipality)

	imported, ok := rec.Extra("Importado")
	require.True(t, ok)
	assert.Equal(t, false, imported)

	alt, ok := rec.Extra("ResponsavelCodigoAlternativo")
	require.True(t, ok)
	assert.Equal(t, int64(17), alt)

	ins, ok := rec.Extra("TipoEstacaoEscalaDataIns")
	require.True(t, ok)
	assert.Equal(t, "2020-01-01", ins)

	obs, ok := rec.Extra("Observacao")
	require.True(t, ok)
	assert.Nil(t, obs)

	_, ok = rec.Extra("Escala")
	assert.False(t, ok, "consumed columns are not extras")
	_, ok = rec.Extra("TipoEstacaoEscala")
	assert.False(t, ok)
}

func TestParseIntakeRow_InvalidCoordinates(t *testing.T) {
	idx := MakeHeaderIndex([]string{"Nome", "Latitude", "Longitude"})

	_, err := ParseIntakeRow([]any{"A", "norte", "-43"}, idx)
	require.ErrorIs(t, err, ErrValidation)

	_, err = ParseIntakeRow([]any{"A", "-20", nil}, idx)
	require.ErrorIs(t, err, ErrValidation)

	_, err = ParseIntakeRow([]any{"A", "95", "-43"}, idx)
	var ce *CoordinateError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "latitude", ce.Axis)
}

func TestParseIntakeRow_IgnoresNonPositiveRegistryID(t *testing.T) {
	idx := MakeHeaderIndex([]string{"RegistroID", "Nome", "Latitude", "Longitude"})

	rec, err := ParseIntakeRow([]any{int64(0), "A", -20.0, -43.0}, idx)
	require.NoError(t, err)
	assert.Zero(t, rec.RegistryID)
}

func TestIsPending(t *testing.T) {
	idx := MakeHeaderIndex([]string{"Nome", "Codigo"})

	assert.True(t, IsPending([]any{"A", nil}, idx))
	assert.True(t, IsPending([]any{"A", "  "}, idx))
	assert.True(t, IsPending([]any{"A"}, idx))
	assert.False(t, IsPending([]any{"A", "02043001"}, idx))
	assert.True(t, IsPending([]any{"A"}, MakeHeaderIndex([]string{"Nome"})))
}

func TestDescribeRow(t *testing.T) {
	idx := MakeHeaderIndex([]string{"Nome"})

	assert.Equal(t, "Serra", DescribeRow([]any{"Serra"}, idx, 3))
	assert.Equal(t, "row 3", DescribeRow([]any{nil}, idx, 3))
}

func TestIntakeColumns(t *testing.T) {
	cols := IntakeColumns()

	idx := MakeHeaderIndex(cols)
	assert.Empty(t, idx.Missing(RequiredIntakeColumns...))
	assert.Len(t, idx, len(cols), "no duplicate columns")
	assert.Contains(t, cols, "Escala")
	assert.NotContains(t, cols, "TipoEstacaoEscala")
	assert.Contains(t, cols, "MunicipioCodigo")
}
