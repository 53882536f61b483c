package domain

// Area is a polygon matched by a containment lookup, reduced to the attributes
// enrichment needs. Nil codes mean the polygon does not carry that attribute.
type Area struct {
	Name       string
	Code       *int64 // sub-basin or municipality code
	ParentCode *int64 // basin code for sub-basins, state code for municipalities
}

// Boundaries resolves which reference polygons contain a point. It is built
// once and read concurrently; implementations must not mutate after construction.
type Boundaries interface {
	// SubBasinAt returns the first sub-basin polygon containing the point.
	SubBasinAt(lat, lon float64) (Area, bool)

	// MunicipalityAt returns the first municipality polygon containing the point.
	MunicipalityAt(lat, lon float64) (Area, bool)
}
