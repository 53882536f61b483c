package domain

import (
	"fmt"
	"math"
	"strconv"
)

const (
	// LeadingDigit is the fixed first digit of every rainfall station code
	// ("off the watercourse" stations).
	LeadingDigit = "0"

	// MinPrefixLen and MaxPrefixLen bound the length of LeadingDigit +
	// latitude band + longitude band. Bands are zero-padded to two digits and
	// widen to three past 99 (latitude up to 170, longitude up to 180).
	MinPrefixLen = 5
	MaxPrefixLen = 7

	// SequenceLen is the width of the per-quadrant sequence.
	SequenceLen = 3

	// MinCodeLen and MaxCodeLen bound the full code length.
	MinCodeLen = MinPrefixLen + SequenceLen
	MaxCodeLen = MaxPrefixLen + SequenceLen

	// MaxSequence caps the number of stations per quadrant.
	MaxSequence = 999

	// northOffset is added to the latitude band of stations at or north of the equator.
	northOffset = 80
)

// ValidateCoordinates checks a coordinate pair against geographic bounds. It
// must run before any band is computed from the pair.
func ValidateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return &CoordinateError{Axis: "latitude", Value: lat, Min: -90, Max: 90}
	}
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		return &CoordinateError{Axis: "longitude", Value: lon, Min: -180, Max: 180}
	}
	return nil
}

// LatitudeBand returns the latitude component of a code. North of the
// equator (lat >= 0) the band is offset by 80.
func LatitudeBand(lat float64) string {
	band := int(math.Floor(math.Abs(lat)))
	if lat >= 0 {
		band += northOffset
	}
	return renderBand(band)
}

// LongitudeBand returns the longitude component of a code.
func LongitudeBand(lon float64) string {
	return renderBand(int(math.Floor(math.Abs(lon))))
}

func renderBand(band int) string {
	return fmt.Sprintf("%02d", band)
}

// QuadrantPrefix derives the prefix "0" + latBand + lonBand for a validated
// coordinate pair.
func QuadrantPrefix(lat, lon float64) (string, error) {
	if err := ValidateCoordinates(lat, lon); err != nil {
		return "", err
	}
	return LeadingDigit + LatitudeBand(lat) + LongitudeBand(lon), nil
}

// QuadrantOf returns the prefix of a rendered code, or "" when code is too
// short to carry one.
func QuadrantOf(code string) string {
	if len(code) < MinCodeLen {
		return ""
	}
	return code[:len(code)-SequenceLen]
}

// QuadrantRange returns the half-open numeric interval [lo, hi) covering every
// code that shares prefix.
func QuadrantRange(prefix string) (lo, hi int64, err error) {
	p, err := parsePrefix(prefix)
	if err != nil {
		return 0, 0, err
	}
	return p * 1000, (p + 1) * 1000, nil
}

// RenderCode concatenates a quadrant prefix and a sequence number.
func RenderCode(prefix string, seq int) (string, error) {
	if _, err := parsePrefix(prefix); err != nil {
		return "", err
	}
	if seq < 1 || seq > MaxSequence {
		return "", fmt.Errorf("%w: sequence %d for quadrant %s", ErrQuadrantExhausted, seq, prefix)
	}
	return fmt.Sprintf("%s%0*d", prefix, SequenceLen, seq), nil
}

// SequenceOf extracts the sequence component (last three digits) of a numeric code.
func SequenceOf(code int64) int {
	return int(code % 1000)
}

// ParseCode converts a stored station code into its numeric value.
func ParseCode(code string) (int64, error) {
	n, err := strconv.ParseInt(code, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: station code %q is not numeric", ErrValidation, code)
	}
	return n, nil
}

func parsePrefix(prefix string) (int64, error) {
	if len(prefix) < MinPrefixLen || len(prefix) > MaxPrefixLen || prefix[:1] != LeadingDigit {
		return 0, fmt.Errorf("%w: quadrant prefix %q", ErrValidation, prefix)
	}
	p, err := strconv.ParseUint(prefix, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: quadrant prefix %q", ErrValidation, prefix)
	}
	return int64(p), nil
}
