package geo

import "encoding/json"

// Coordinates is a WGS84 latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// HeatPoint is one weighted sample for a heat map layer.
// It marshals as the [lat, lng, intensity] triple map layers consume.
type HeatPoint struct {
	Lat       float64
	Lng       float64
	Intensity float64
}

func (p HeatPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]float64{p.Lat, p.Lng, p.Intensity})
}
