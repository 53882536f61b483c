package domain

import "time"

// StationRecord is one rainfall station moving through import, enrichment and
// export. Nullable attributes are pointers; nil means unknown.
type StationRecord struct {
	RegistryID int64  `json:"registry_id"`
	Code       string `json:"code"`
	Name       string `json:"name"`
	SecondCode string `json:"secondary_code,omitempty"`
	Category   int    `json:"category"`

	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Altitude  *float64 `json:"altitude,omitempty"`
	// DrainageArea is in square kilometres.
	DrainageArea *float64 `json:"drainage_area,omitempty"`

	Codes  AdminCodes     `json:"codes"`
	Names  AdminNames     `json:"names"`
	Flags  Facilities     `json:"facilities"`
	Extras map[string]any `json:"-"`

	CodedAt time.Time `json:"coded_at"`
}

// AdminCodes holds the hydrographic and administrative codes of a station.
type AdminCodes struct {
	Basin        *int64 `json:"basin,omitempty"`
	SubBasin     *int64 `json:"sub_basin,omitempty"`
	River        *int64 `json:"river,omitempty"`
	State        *int64 `json:"state,omitempty"`
	Municipality *int64 `json:"municipality,omitempty"`
	Responsible  *int64 `json:"responsible,omitempty"`
	Operator     *int64 `json:"operator,omitempty"`
}

// AdminNames holds the human-readable counterparts of AdminCodes.
type AdminNames struct {
	Basin              string `json:"basin,omitempty"`
	SubBasin           string `json:"sub_basin,omitempty"`
	River              string `json:"river,omitempty"`
	StateAcronym       string `json:"state_acronym,omitempty"`
	Municipality       string `json:"municipality,omitempty"`
	Responsible        string `json:"responsible,omitempty"`
	ResponsibleAcronym string `json:"responsible_acronym,omitempty"`
}

// Facilities lists what the station is equipped with. Each flag is tri-state.
type Facilities struct {
	Gauge        *bool `json:"gauge,omitempty"`
	Discharge    *bool `json:"discharge,omitempty"`
	Sediment     *bool `json:"sediment,omitempty"`
	WaterQuality *bool `json:"water_quality,omitempty"`
	RainGauge    *bool `json:"rain_gauge,omitempty"`
	Telemetry    *bool `json:"telemetry,omitempty"`
	Operating    *bool `json:"operating,omitempty"`
}

// Quadrant returns the prefix of the station's code, or "" when no code has
// been assigned yet.
func (r StationRecord) Quadrant() string {
	return QuadrantOf(r.Code)
}

// Extra returns a passthrough source column, matched case-insensitively.
func (r StationRecord) Extra(column string) (any, bool) {
	if r.Extras == nil {
		return nil, false
	}
	v, ok := r.Extras[normalizeColumnKey(column)]
	return v, ok
}

// SetExtra stores a passthrough source column under its normalized key.
func (r *StationRecord) SetExtra(column string, value any) {
	if r.Extras == nil {
		r.Extras = make(map[string]any)
	}
	r.Extras[normalizeColumnKey(column)] = value
}
