package analysis

import (
	"math"
	"sort"
	"time"

	"entsoe-agent/internal/model"
)

// Summary is a product-agnostic description of one series of values.
// It does not care whether values are MW or EUR/MWh; Unit says which.
type Summary struct {
	Unit       string    `json:"unit,omitempty"`
	Average    float64   `json:"average"`
	Peak       float64   `json:"peak"`
	Minimum    float64   `json:"minimum"`
	Variation  float64   `json:"variation"`
	P05        float64   `json:"p05"`
	P95        float64   `json:"p95"`
	DataPoints int       `json:"data_points"`
	Start      time.Time `json:"start,omitempty"`
	End        time.Time `json:"end,omitempty"`

	Error string `json:"error,omitempty"`
}

func (s Summary) OK() bool { return s.Error == "" }

// Summarize computes stats over points. The average is rounded to 2 decimals.
func Summarize(points []model.DataPoint) Summary {
	s := Summary{}
	if len(points) == 0 {
		return s
	}
	s.Unit = points[0].Unit
	s.DataPoints = len(points)
	s.Start = points[0].Timestamp
	s.End = points[len(points)-1].End()

	sum := 0.0
	minv := math.Inf(1)
	maxv := math.Inf(-1)
	vals := make([]float64, 0, len(points))
	for _, p := range points {
		v := p.Value
		vals = append(vals, v)
		sum += v
		if v < minv {
			minv = v
		}
		if v > maxv {
			maxv = v
		}
	}
	sort.Float64s(vals)
	s.Minimum = minv
	s.Peak = maxv
	s.Average = Round(sum/float64(len(vals)), 2)
	s.Variation = maxv - minv
	s.P05 = percentileSorted(vals, 0.05)
	s.P95 = percentileSorted(vals, 0.95)
	return s
}

// SummarizeResult summarizes a product result, or reports why it cannot.
// label names the data in the error message ("load", "price", ...).
func SummarizeResult(r *model.Result, label string) Summary {
	if !r.OK() || len(r.DataPoints) == 0 {
		return Summary{Error: "No valid " + label + " data"}
	}
	return Summarize(r.DataPoints)
}

// FlowSummary describes a cross-border flow series. Positive values are
// exports from the source country.
type FlowSummary struct {
	AverageFlowMW float64 `json:"average_flow_mw"`
	MaxExportMW   float64 `json:"max_export_mw"`
	MaxImportMW   float64 `json:"max_import_mw"`
	NetFlowMW     float64 `json:"net_flow_mw"`
	DataPoints    int     `json:"data_points"`
	Error         string  `json:"error,omitempty"`
}

func SummarizeFlow(r *model.Result) FlowSummary {
	if r == nil || len(r.DataPoints) == 0 {
		return FlowSummary{Error: "No flow data"}
	}
	s := Summarize(r.DataPoints)
	out := FlowSummary{
		AverageFlowMW: s.Average,
		NetFlowMW:     s.Average,
		DataPoints:    s.DataPoints,
	}
	if s.Peak > 0 {
		out.MaxExportMW = s.Peak
	}
	if s.Minimum < 0 {
		out.MaxImportMW = math.Abs(s.Minimum)
	}
	return out
}

// RenewableSummary describes a wind/solar forecast. CapacityFactor is the
// average as a percentage of the peak, 0 when the peak is not positive.
type RenewableSummary struct {
	AverageMW      float64 `json:"average_renewable_mw"`
	PeakMW         float64 `json:"peak_renewable_mw"`
	MinimumMW      float64 `json:"minimum_renewable_mw"`
	CapacityFactor float64 `json:"renewable_capacity_factor"`
	ForecastPoints int     `json:"forecast_points"`
	Error          string  `json:"error,omitempty"`
}

func SummarizeRenewable(r *model.Result) RenewableSummary {
	if r == nil || len(r.DataPoints) == 0 {
		return RenewableSummary{Error: "No forecast data"}
	}
	values := model.Values(r.DataPoints)
	sum, peak, low := 0.0, math.Inf(-1), math.Inf(1)
	for _, v := range values {
		sum += v
		peak = math.Max(peak, v)
		low = math.Min(low, v)
	}
	avg := sum / float64(len(values))
	out := RenewableSummary{
		AverageMW:      Round(avg, 2),
		PeakMW:         peak,
		MinimumMW:      low,
		ForecastPoints: len(values),
	}
	if peak > 0 {
		out.CapacityFactor = Round(avg/peak*100, 1)
	}
	return out
}

// Round rounds half away from zero to the given number of decimals.
func Round(x float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(x*p) / p
}

func percentileSorted(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	// Linear interpolation between order stats.
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
