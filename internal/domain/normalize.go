package domain

// normalize.go coerces loosely typed intake cells into record fields.
//
// Intake tables are filled by hand and arrive with whatever the source driver
// returns: strings with stray whitespace, integers standing in for booleans,
// comma decimal separators, blank cells. Auxiliary attributes degrade to nil on
// anything unrecognized; only coordinates are strict, because the code depends
// on them.

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	truthyTokens = map[string]struct{}{"SIM": {}, "S": {}, "TRUE": {}, "1": {}, "YES": {}}
	falsyTokens  = map[string]struct{}{"NÃO": {}, "NAO": {}, "N": {}, "FALSE": {}, "0": {}, "NO": {}}
)

// HeaderIndex maps normalized column names to their position in a source row.
type HeaderIndex map[string]int

// MakeHeaderIndex builds a case-insensitive index over a header row.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		idx[normalizeColumnKey(h)] = i
	}
	return idx
}

// Has reports whether column is present.
func (h HeaderIndex) Has(column string) bool {
	_, ok := h[normalizeColumnKey(column)]
	return ok
}

// Cell returns the value of column in row, or nil when the column is absent.
func (h HeaderIndex) Cell(row []any, column string) any {
	i, ok := h[normalizeColumnKey(column)]
	if !ok || i >= len(row) {
		return nil
	}
	return row[i]
}

// Missing returns the columns from required that are absent, in input order.
func (h HeaderIndex) Missing(required ...string) []string {
	var missing []string
	for _, col := range required {
		if !h.Has(col) {
			missing = append(missing, col)
		}
	}
	return missing
}

func normalizeColumnKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.ReplaceAll(s, " ", "")
}

// CellString renders a cell as trimmed text. nil becomes "".
func CellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case []byte:
		return strings.TrimSpace(string(t))
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case time.Time:
		return t.Format(time.DateOnly)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// ParseFlag maps a cell onto the boolean token vocabulary. Unknown tokens and
// blanks return nil; the function never fails.
func ParseFlag(v any) *bool {
	if b, ok := v.(bool); ok {
		return &b
	}
	token := strings.ToUpper(CellString(v))
	if _, ok := truthyTokens[token]; ok {
		t := true
		return &t
	}
	if _, ok := falsyTokens[token]; ok {
		f := false
		return &f
	}
	return nil
}

// ParseIntCode coerces a numeric-code cell to an integer. Integral floats
// ("12.0") are accepted; anything else non-numeric returns nil.
func ParseIntCode(v any) *int64 {
	switch t := v.(type) {
	case int64:
		return &t
	case int:
		n := int64(t)
		return &n
	case int32:
		n := int64(t)
		return &n
	case float64:
		return integralFloat(t)
	}

	s := CellString(v)
	if s == "" {
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return &n
	}
	if f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64); err == nil {
		return integralFloat(f)
	}
	return nil
}

func integralFloat(f float64) *int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil
	}
	n := int64(f)
	return &n
}

// ParseOptionalFloat coerces a descriptive numeric cell, returning nil when it
// is blank or malformed.
func ParseOptionalFloat(v any) *float64 {
	f, err := parseFloat(v)
	if err != nil {
		return nil
	}
	return &f
}

// ParseCoordinate coerces a latitude or longitude cell. Unlike the auxiliary
// parsers it reports failure, since the station code is derived from it.
func ParseCoordinate(axis string, v any) (float64, error) {
	f, err := parseFloat(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not a number", ErrValidation, axis, CellString(v))
	}
	return f, nil
}

func parseFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case int:
		return float64(t), nil
	}
	s := CellString(v)
	if s == "" {
		return 0, errors.New("empty value")
	}
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
}
