package export

import (
	"fmt"
	"io"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/JeffBrines/RealEstateInsightsPub/internal/models"
)

// FeatureCollection builds point features for every record that has
// coordinates. Records without coordinates are left out.
func (e *Exporter) FeatureCollection(records []models.Property) *geojson.FeatureCollection {
	columns := e.resolveColumns(records)
	fc := geojson.NewFeatureCollection()
	for i := range records {
		p := &records[i]
		if !p.HasCoordinates() {
			continue
		}
		feature := geojson.NewFeature(orb.Point{*p.Longitude, *p.Latitude})
		feature.ID = p.ID
		for _, f := range columns {
			if f == models.FieldLatitude || f == models.FieldLongitude {
				continue
			}
			if v := xlsxValue(p, f); v != nil && v != "" {
				feature.Properties[string(f)] = v
			}
		}
		fc.Append(feature)
	}
	return fc
}

// WriteGeoJSON writes the feature collection.
func (e *Exporter) WriteGeoJSON(w io.Writer, records []models.Property) error {
	data, err := e.FeatureCollection(records).MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode geojson: %w", err)
	}
	_, err = w.Write(data)
	return err
}
