package model

import "time"

// SeriesMetadata is collected from the direct children of one TimeSeries
// element. Every DataPoint produced by that series points at the same value.
type SeriesMetadata struct {
	MRID               string `json:"mrid,omitempty"`
	BusinessType       string `json:"business_type,omitempty"`
	ObjectAggregation  string `json:"object_aggregation,omitempty"`
	InDomain           string `json:"in_domain,omitempty"`
	OutDomain          string `json:"out_domain,omitempty"`
	PSRType            string `json:"psr_type,omitempty"`
	RegisteredResource string `json:"registered_resource,omitempty"`
	Unit               string `json:"unit,omitempty"`
	PriceUnit          string `json:"price_unit,omitempty"`
	Currency           string `json:"currency,omitempty"`
}

// DataPoint is one observation flattened out of a TimeSeries/Period/Point grid.
//
// Timestamp is derived: period start + (Position-1) * resolution.
type DataPoint struct {
	Timestamp    time.Time       `json:"timestamp"`
	Position     int             `json:"position"`
	Value        float64         `json:"value"`
	Unit         string          `json:"unit"`
	Resolution   int             `json:"resolution_minutes"`
	ForecastType string          `json:"forecast_type,omitempty"`
	Metadata     *SeriesMetadata `json:"metadata,omitempty"`
}

// End returns the end of the interval the point covers.
func (p DataPoint) End() time.Time {
	return p.Timestamp.Add(p.Duration())
}

func (p DataPoint) Duration() time.Duration {
	if p.Resolution <= 0 {
		return time.Hour
	}
	return time.Duration(p.Resolution) * time.Minute
}

// Values extracts the numeric values of points in order.
func Values(points []DataPoint) []float64 {
	out := make([]float64, 0, len(points))
	for _, p := range points {
		out = append(out, p.Value)
	}
	return out
}
