package domain

import "log/slog"

// Enrichment outcome labels, one per layer lookup.
const (
	OutcomeFilled   = "filled"   // at least one null field was filled
	OutcomeKept     = "kept"     // a polygon matched but every field was already set
	OutcomeNoMatch  = "no_match" // the point lies outside every polygon of the layer
	OutcomeDisabled = "disabled" // no boundaries configured
)

// EnrichmentResult reports what each layer lookup did.
type EnrichmentResult struct {
	SubBasin     string
	Municipality string
}

// EnrichWithBoundaries fills missing sub-basin, basin, municipality and state
// codes from the polygons containing the record's coordinates. Fields already
// present are never overwritten. A nil boundaries value disables enrichment and
// a point outside every polygon leaves the fields nil; neither is an error.
func EnrichWithBoundaries(record StationRecord, boundaries Boundaries, logger *slog.Logger) (StationRecord, EnrichmentResult) {
	if boundaries == nil {
		return record, EnrichmentResult{SubBasin: OutcomeDisabled, Municipality: OutcomeDisabled}
	}

	var result EnrichmentResult

	if area, ok := boundaries.SubBasinAt(record.Latitude, record.Longitude); ok {
		filled := fillCode(&record.Codes.SubBasin, area.Code)
		filled = fillCode(&record.Codes.Basin, area.ParentCode) || filled
		filled = fillName(&record.Names.SubBasin, area.Name) || filled
		result.SubBasin = outcome(filled)
	} else {
		result.SubBasin = OutcomeNoMatch
	}

	if area, ok := boundaries.MunicipalityAt(record.Latitude, record.Longitude); ok {
		filled := fillCode(&record.Codes.Municipality, area.Code)
		filled = fillCode(&record.Codes.State, area.ParentCode) || filled
		filled = fillName(&record.Names.Municipality, area.Name) || filled
		result.Municipality = outcome(filled)
	} else {
		result.Municipality = OutcomeNoMatch
	}

	if result.SubBasin == OutcomeNoMatch || result.Municipality == OutcomeNoMatch {
		logger.Debug("station outside reference polygons",
			"station", record.Name,
			"lat", record.Latitude,
			"lon", record.Longitude,
			"sub_basin", result.SubBasin,
			"municipality", result.Municipality,
		)
	}

	return record, result
}

func fillCode(dst **int64, src *int64) bool {
	if *dst != nil || src == nil {
		return false
	}
	v := *src
	*dst = &v
	return true
}

func fillName(dst *string, src string) bool {
	if *dst != "" || src == "" {
		return false
	}
	*dst = src
	return true
}

func outcome(filled bool) string {
	if filled {
		return OutcomeFilled
	}
	return OutcomeKept
}
