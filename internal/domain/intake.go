package domain

import "fmt"

// flagColumns lists, per facility, the intake column names that may carry it.
// The first present column wins.
var flagColumns = []struct {
	names []string
	field func(*Facilities) **bool
}{
	{[]string{"Escala", "TipoEstacaoEscala"}, func(f *Facilities) **bool { return &f.Gauge }},
	{[]string{"Descarga Liquida", "DescLiquida", "TipoEstacaoDescLiquida"}, func(f *Facilities) **bool { return &f.Discharge }},
	{[]string{"Sedimentos", "TipoEstacaoSedimentos"}, func(f *Facilities) **bool { return &f.Sediment }},
	{[]string{"QualidadeAgua", "QualAgua", "TipoEstacaoQualAgua"}, func(f *Facilities) **bool { return &f.WaterQuality }},
	{[]string{"Pluviometro", "TipoEstacaoPluviometro"}, func(f *Facilities) **bool { return &f.RainGauge }},
	{[]string{"Telemetrica", "TipoEstacaoTelemetrica"}, func(f *Facilities) **bool { return &f.Telemetry }},
	{[]string{"Operando"}, func(f *Facilities) **bool { return &f.Operating }},
}

var codeColumns = []struct {
	name  string
	field func(*AdminCodes) **int64
}{
	{"BaciaCodigo", func(c *AdminCodes) **int64 { return &c.Basin }},
	{"SubBaciaCodigo", func(c *AdminCodes) **int64 { return &c.SubBasin }},
	{"RioCodigo", func(c *AdminCodes) **int64 { return &c.River }},
	{"EstadoCodigo", func(c *AdminCodes) **int64 { return &c.State }},
	{"MunicipioCodigo", func(c *AdminCodes) **int64 { return &c.Municipality }},
	{"ResponsavelCodigo", func(c *AdminCodes) **int64 { return &c.Responsible }},
	{"OperadoraCodigo", func(c *AdminCodes) **int64 { return &c.Operator }},
}

var nameColumns = []struct {
	name  string
	field func(*AdminNames) *string
}{
	{"BaciaNome", func(n *AdminNames) *string { return &n.Basin }},
	{"SubBaciaNome", func(n *AdminNames) *string { return &n.SubBasin }},
	{"RioNome", func(n *AdminNames) *string { return &n.River }},
	{"EstadoSigla", func(n *AdminNames) *string { return &n.StateAcronym }},
	{"MunicipioNome", func(n *AdminNames) *string { return &n.Municipality }},
	{"ResponsavelNome", func(n *AdminNames) *string { return &n.Responsible }},
	{"ResponsavelSigla", func(n *AdminNames) *string { return &n.ResponsibleAcronym }},
}

// scalarColumns are consumed directly into StationRecord fields.
var scalarColumns = []string{
	ColRegistryID, ColCode, ColName, ColLatitude, ColLongitude,
	"CodigoAdicional", "Altitude", "AreaDrenagem",
}

// IntakeColumns returns the column layout of a blank intake table: the scalar
// columns, the preferred name of each facility flag, then the code and name
// columns.
func IntakeColumns() []string {
	cols := append([]string(nil), scalarColumns...)
	for _, fc := range flagColumns {
		cols = append(cols, fc.names[0])
	}
	for _, cc := range codeColumns {
		cols = append(cols, cc.name)
	}
	for _, nc := range nameColumns {
		cols = append(cols, nc.name)
	}
	return cols
}

// IsPending reports whether an intake row still lacks a station code.
func IsPending(row []any, idx HeaderIndex) bool {
	return CellString(idx.Cell(row, ColCode)) == ""
}

// ParseIntakeRow builds a StationRecord from one intake row. Coordinates are
// parsed and validated; every auxiliary column degrades to nil when it cannot
// be coerced. Columns without a dedicated field are kept in Extras, with flag
// and code columns normalized.
func ParseIntakeRow(row []any, idx HeaderIndex) (StationRecord, error) {
	rec := StationRecord{
		Name:       CellString(idx.Cell(row, ColName)),
		SecondCode: CellString(idx.Cell(row, "CodigoAdicional")),
	}

	lat, err := ParseCoordinate("latitude", idx.Cell(row, ColLatitude))
	if err != nil {
		return rec, err
	}
	lon, err := ParseCoordinate("longitude", idx.Cell(row, ColLongitude))
	if err != nil {
		return rec, err
	}
	if err := ValidateCoordinates(lat, lon); err != nil {
		return rec, err
	}
	rec.Latitude, rec.Longitude = lat, lon

	if id := ParseIntCode(idx.Cell(row, ColRegistryID)); id != nil && *id > 0 {
		rec.RegistryID = *id
	}
	rec.Altitude = ParseOptionalFloat(idx.Cell(row, "Altitude"))
	rec.DrainageArea = ParseOptionalFloat(idx.Cell(row, "AreaDrenagem"))

	consumed := make(map[string]struct{})
	for _, c := range scalarColumns {
		consumed[normalizeColumnKey(c)] = struct{}{}
	}

	for _, fc := range flagColumns {
		for _, name := range fc.names {
			consumed[normalizeColumnKey(name)] = struct{}{}
			if *fc.field(&rec.Flags) == nil && idx.Has(name) {
				*fc.field(&rec.Flags) = ParseFlag(idx.Cell(row, name))
			}
		}
	}
	for _, cc := range codeColumns {
		consumed[normalizeColumnKey(cc.name)] = struct{}{}
		*cc.field(&rec.Codes) = ParseIntCode(idx.Cell(row, cc.name))
	}
	for _, nc := range nameColumns {
		consumed[normalizeColumnKey(nc.name)] = struct{}{}
		*nc.field(&rec.Names) = CellString(idx.Cell(row, nc.name))
	}

	for key, i := range idx {
		if _, ok := consumed[key]; ok || i >= len(row) {
			continue
		}
		rec.SetExtra(key, normalizeExtra(key, row[i]))
	}

	return rec, nil
}

func normalizeExtra(column string, v any) any {
	switch {
	case IsBooleanColumn(column):
		if b := ParseFlag(v); b != nil {
			return *b
		}
		return nil
	case IsCodeColumn(column):
		if n := ParseIntCode(v); n != nil {
			return *n
		}
		return nil
	}
	if s, ok := v.(string); ok && CellString(s) == "" {
		return nil
	}
	return v
}

// DescribeRow names a row for error messages: its station name when present,
// otherwise its 1-based position.
func DescribeRow(row []any, idx HeaderIndex, position int) string {
	if name := CellString(idx.Cell(row, ColName)); name != "" {
		return name
	}
	return fmt.Sprintf("row %d", position)
}
