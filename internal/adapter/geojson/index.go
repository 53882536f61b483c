// Package geojson loads reference polygons (sub-basins, municipalities) from
// GeoJSON files and answers point-in-polygon lookups.
package geojson

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/couchcryptid/rain-station-coding/internal/domain"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// Properties names the feature properties read from a layer.
type Properties struct {
	Name   string
	Code   string
	Parent string // code of the enclosing area: basin for sub-basins, state for municipalities
}

// Default property names.
var (
	SubBasinProperties     = Properties{Name: "name", Code: "subbasin_code", Parent: "basin_code"}
	MunicipalityProperties = Properties{Name: "name", Code: "municipality_code", Parent: "state_code"}
)

type polygon struct {
	bound orb.Bound
	geom  orb.Geometry
	area  domain.Area
}

// Layer is an immutable, ordered list of polygons. When polygons overlap the
// first one in file order wins.
type Layer struct {
	name     string
	polygons []polygon
}

// LoadLayer reads a FeatureCollection from path. Features that are not
// polygons or multipolygons are skipped.
func LoadLayer(path string, props Properties, logger *slog.Logger) (*Layer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read layer %s: %w", path, err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode layer %s: %w", path, err)
	}
	layer := NewLayer(path, fc, props)
	logger.Info("boundary layer loaded",
		"path", path,
		"features", len(fc.Features),
		"polygons", layer.Len(),
	)
	return layer, nil
}

// NewLayer builds a layer from a decoded collection.
func NewLayer(name string, fc *geojson.FeatureCollection, props Properties) *Layer {
	layer := &Layer{name: name}
	for _, f := range fc.Features {
		switch f.Geometry.(type) {
		case orb.Polygon, orb.MultiPolygon:
		default:
			continue
		}
		layer.polygons = append(layer.polygons, polygon{
			bound: f.Geometry.Bound(),
			geom:  f.Geometry,
			area: domain.Area{
				Name:       domain.CellString(f.Properties[props.Name]),
				Code:       domain.ParseIntCode(f.Properties[props.Code]),
				ParentCode: domain.ParseIntCode(f.Properties[props.Parent]),
			},
		})
	}
	return layer
}

// Len reports the number of polygons in the layer.
func (l *Layer) Len() int {
	if l == nil {
		return 0
	}
	return len(l.polygons)
}

// Locate returns the first area containing (lat, lon).
func (l *Layer) Locate(lat, lon float64) (domain.Area, bool) {
	if l == nil {
		return domain.Area{}, false
	}
	pt := orb.Point{lon, lat}
	for _, p := range l.polygons {
		if !p.bound.Contains(pt) {
			continue
		}
		if contains(p.geom, pt) {
			return p.area, true
		}
	}
	return domain.Area{}, false
}

func contains(g orb.Geometry, pt orb.Point) bool {
	switch geom := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(geom, pt)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(geom, pt)
	}
	return false
}

// Index answers both boundary lookups. Either layer may be nil, in which case
// its lookups never match.
type Index struct {
	subBasins      *Layer
	municipalities *Layer
}

// NewIndex combines the two reference layers.
func NewIndex(subBasins, municipalities *Layer) *Index {
	return &Index{subBasins: subBasins, municipalities: municipalities}
}

// SubBasinAt implements domain.Boundaries.
func (ix *Index) SubBasinAt(lat, lon float64) (domain.Area, bool) {
	return ix.subBasins.Locate(lat, lon)
}

// MunicipalityAt implements domain.Boundaries.
func (ix *Index) MunicipalityAt(lat, lon float64) (domain.Area, bool) {
	return ix.municipalities.Locate(lat, lon)
}

// LoadIndex reads whichever layer paths are set. It returns nil when neither
// is, which disables enrichment.
func LoadIndex(subBasinPath string, subBasinProps Properties, municipalityPath string, municipalityProps Properties, logger *slog.Logger) (domain.Boundaries, error) {
	if subBasinPath == "" && municipalityPath == "" {
		return nil, nil
	}
	var ix Index
	if subBasinPath != "" {
		layer, err := LoadLayer(subBasinPath, subBasinProps, logger)
		if err != nil {
			return nil, err
		}
		ix.subBasins = layer
	}
	if municipalityPath != "" {
		layer, err := LoadLayer(municipalityPath, municipalityProps, logger)
		if err != nil {
			return nil, err
		}
		ix.municipalities = layer
	}
	return &ix, nil
}
