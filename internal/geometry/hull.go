// Package geometry outlines zip code areas from the coordinates of the
// records that fall in them.
package geometry

import (
	"cmp"
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"github.com/JeffBrines/RealEstateInsightsPub/internal/models"
	"github.com/JeffBrines/RealEstateInsightsPub/internal/stats"
)

// MinHullPoints is the number of distinct located records an area needs
// before it gets an outline.
const MinHullPoints = 3

// AreaHulls returns one polygon feature per zip code, ordered by zip code.
// Areas with too few located records, or whose records are collinear, are
// left out.
func AreaHulls(records []models.Property) *geojson.FeatureCollection {
	points := make(map[string][]orb.Point)
	for i := range records {
		p := &records[i]
		if p.ZipCode == "" || !p.HasCoordinates() {
			continue
		}
		points[p.ZipCode] = append(points[p.ZipCode], orb.Point{*p.Longitude, *p.Latitude})
	}

	fc := geojson.NewFeatureCollection()
	for _, area := range stats.ByArea(records) {
		hull := ConvexHull(points[area.ZipCode])
		if hull == nil {
			continue
		}

		feature := geojson.NewFeature(orb.Polygon{hull})
		feature.Properties = geojson.Properties{
			"zipCode":         area.ZipCode,
			"pointCount":      len(points[area.ZipCode]),
			"propertyCount":   area.PropertyCount,
			"soldCount":       area.SoldCount,
			"medianPrice":     area.MedianPrice,
			"avgPricePerSqft": area.AvgPricePerSqft,
			"areaSqDeg":       planar.Area(hull),
		}
		fc.Append(feature)
	}
	return fc
}

// ConvexHull returns the closed counter-clockwise hull of points, or nil
// when fewer than three distinct points remain or they are collinear.
// The input is not modified.
func ConvexHull(points []orb.Point) orb.Ring {
	pts := slices.Clone(points)
	slices.SortFunc(pts, func(a, b orb.Point) int {
		if c := cmp.Compare(a[0], b[0]); c != 0 {
			return c
		}
		return cmp.Compare(a[1], b[1])
	})
	pts = slices.Compact(pts)
	if len(pts) < MinHullPoints {
		return nil
	}

	// Monotone chain: lower half left to right, upper half right to left
	lower := make([]orb.Point, 0, len(pts))
	for _, p := range pts {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}
	upper := make([]orb.Point, 0, len(pts))
	for i := len(pts) - 1; i >= 0; i-- {
		p := pts[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}

	hull := append(lower[:len(lower)-1], upper[:len(upper)-1]...)
	if len(hull) < MinHullPoints {
		return nil
	}
	return orb.Ring(append(hull, hull[0]))
}

// cross is positive when o, a, b turn counter-clockwise.
func cross(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}
