package domain

import "strings"

// Intake column names.
const (
	ColRegistryID = "RegistroID"
	ColCode       = "Codigo"
	ColName       = "Nome"
	ColLatitude   = "Latitude"
	ColLongitude  = "Longitude"
)

// RequiredIntakeColumns must be present in every intake table.
var RequiredIntakeColumns = []string{ColName, ColLatitude, ColLongitude}

// facilityTypes are the station types that carry a flag plus an install and
// removal date in the canonical schema, in canonical order.
var facilityTypes = []string{
	"Escala", "RegistradorNivel", "DescLiquida", "Sedimentos", "QualAgua",
	"Pluviometro", "RegistradorChuva", "TanqueEvapo", "Climatologica",
	"Piezometria", "Telemetrica",
}

var statusFlagColumns = []string{"Importado", "Temporario", "Removido", "ImportadoRepetido"}

var networkFlagColumns = []string{
	"TipoRedeBasica", "TipoRedeEnergetica", "TipoRedeNavegacao", "TipoRedeCursoDagua",
	"TipoRedeEstrategica", "TipoRedeCaptacao", "TipoRedeSedimentos", "TipoRedeQualAgua",
	"TipoRedeClasseVazao",
}

// CanonicalColumns is the fixed, ordered column list of the export schema.
var CanonicalColumns = buildCanonicalColumns()

func buildCanonicalColumns() []string {
	cols := []string{ColRegistryID}
	cols = append(cols, statusFlagColumns...)
	cols = append(cols,
		"BaciaCodigo", "SubBaciaCodigo", "RioCodigo", "EstadoCodigo", "MunicipioCodigo",
		"ResponsavelCodigo", "ResponsavelUnidade", "ResponsavelJurisdicao",
		"OperadoraCodigo", "OperadoraUnidade", "OperadoraSubUnidade",
		"TipoEstacao", ColCode, ColName, "CodigoAdicional",
		ColLatitude, ColLongitude, "Altitude", "AreaDrenagem",
	)
	for _, f := range facilityTypes {
		cols = append(cols, "TipoEstacao"+f, "TipoEstacao"+f+"DataIns", "TipoEstacao"+f+"DataExt")
	}
	cols = append(cols, networkFlagColumns...)
	return append(cols, "ResponsavelCodigoAlternativo")
}

// integerColumns are exported as integers to the structured-file template. The
// station code itself stays text so its leading zero survives.
var integerColumns = map[string]struct{}{
	"RegistroID": {}, "BaciaCodigo": {}, "SubBaciaCodigo": {}, "RioCodigo": {},
	"EstadoCodigo": {}, "MunicipioCodigo": {}, "ResponsavelCodigo": {},
	"OperadoraCodigo": {}, "TipoEstacao": {}, "ResponsavelCodigoAlternativo": {},
}

// IsIntegerColumn reports whether column is coerced to an integer on
// structured-file export.
func IsIntegerColumn(column string) bool {
	_, ok := integerColumns[column]
	return ok
}

// booleanColumns lists passthrough columns normalized with ParseFlag on import.
var booleanColumns = func() map[string]struct{} {
	m := make(map[string]struct{})
	for _, c := range statusFlagColumns {
		m[normalizeColumnKey(c)] = struct{}{}
	}
	for _, c := range networkFlagColumns {
		m[normalizeColumnKey(c)] = struct{}{}
	}
	for _, f := range facilityTypes {
		m[normalizeColumnKey("TipoEstacao"+f)] = struct{}{}
	}
	return m
}()

// IsBooleanColumn reports whether a passthrough column holds a flag.
func IsBooleanColumn(column string) bool {
	_, ok := booleanColumns[normalizeColumnKey(column)]
	return ok
}

// codeColumnKeys holds the normalized names of integerColumns.
var codeColumnKeys = func() map[string]struct{} {
	m := make(map[string]struct{}, len(integerColumns))
	for c := range integerColumns {
		m[normalizeColumnKey(c)] = struct{}{}
	}
	return m
}()

// IsCodeColumn reports whether a passthrough column holds a numeric code.
func IsCodeColumn(column string) bool {
	key := normalizeColumnKey(column)
	if key == normalizeColumnKey(ColCode) {
		return false
	}
	if _, ok := codeColumnKeys[key]; ok {
		return true
	}
	return strings.HasSuffix(key, "codigo")
}

// CanonicalRow lays a record out in CanonicalColumns order. Columns the record
// does not carry are nil.
func CanonicalRow(r StationRecord) []any {
	row := make([]any, len(CanonicalColumns))
	for i, col := range CanonicalColumns {
		row[i] = canonicalValue(r, col)
	}
	return row
}

func canonicalValue(r StationRecord, col string) any {
	switch col {
	case ColRegistryID:
		if r.RegistryID == 0 {
			return nil
		}
		return r.RegistryID
	case "BaciaCodigo":
		return intValue(r.Codes.Basin)
	case "SubBaciaCodigo":
		return intValue(r.Codes.SubBasin)
	case "RioCodigo":
		return intValue(r.Codes.River)
	case "EstadoCodigo":
		return intValue(r.Codes.State)
	case "MunicipioCodigo":
		return intValue(r.Codes.Municipality)
	case "ResponsavelCodigo":
		return intValue(r.Codes.Responsible)
	case "OperadoraCodigo":
		return intValue(r.Codes.Operator)
	case "TipoEstacao":
		if r.Category == 0 {
			return nil
		}
		return int64(r.Category)
	case ColCode:
		return stringValue(r.Code)
	case ColName:
		return stringValue(r.Name)
	case "CodigoAdicional":
		return stringValue(r.SecondCode)
	case ColLatitude:
		return r.Latitude
	case ColLongitude:
		return r.Longitude
	case "Altitude":
		return floatValue(r.Altitude)
	case "AreaDrenagem":
		return floatValue(r.DrainageArea)
	case "TipoEstacaoEscala":
		return flagOrExtra(r, r.Flags.Gauge, col)
	case "TipoEstacaoDescLiquida":
		return flagOrExtra(r, r.Flags.Discharge, col)
	case "TipoEstacaoSedimentos":
		return flagOrExtra(r, r.Flags.Sediment, col)
	case "TipoEstacaoQualAgua":
		return flagOrExtra(r, r.Flags.WaterQuality, col)
	case "TipoEstacaoPluviometro":
		return flagOrExtra(r, r.Flags.RainGauge, col)
	case "TipoEstacaoTelemetrica":
		return flagOrExtra(r, r.Flags.Telemetry, col)
	}
	v, _ := r.Extra(col)
	return v
}

func flagOrExtra(r StationRecord, flag *bool, col string) any {
	if flag != nil {
		return *flag
	}
	v, _ := r.Extra(col)
	return v
}

func intValue(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func floatValue(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func stringValue(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// CoerceForTemplate converts a canonical cell for insertion into the
// structured-file template: integer columns become int64 (nil when not
// integral), other populated cells become text, nil stays nil.
func CoerceForTemplate(column string, v any) any {
	if v == nil {
		return nil
	}
	if IsIntegerColumn(column) {
		if n := ParseIntCode(v); n != nil {
			return *n
		}
		return nil
	}
	if b, ok := v.(bool); ok {
		if b {
			return "1"
		}
		return "0"
	}
	return CellString(v)
}
