package export

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"entsoe-agent/internal/model"
)

var pointHeader = []string{
	"timestamp",
	"timestamp_utc",
	"position",
	"value",
	"unit",
	"resolution_minutes",
	"forecast_type",
	"business_type",
	"psr_type",
	"in_domain",
	"out_domain",
	"registered_resource",
}

// WritePointsCSV writes one row per data point.
func WritePointsCSV(out io.Writer, points []model.DataPoint) error {
	w := csv.NewWriter(out)

	if err := w.Write(pointHeader); err != nil {
		return err
	}
	for _, p := range points {
		meta := p.Metadata
		if meta == nil {
			meta = &model.SeriesMetadata{}
		}
		row := []string{
			fmtTime(p.Timestamp),
			fmtTime(p.Timestamp.UTC()),
			strconv.Itoa(p.Position),
			fmtFloat(p.Value),
			p.Unit,
			strconv.Itoa(p.Resolution),
			p.ForecastType,
			meta.BusinessType,
			meta.PSRType,
			meta.InDomain,
			meta.OutDomain,
			meta.RegisteredResource,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// SavePointsCSV writes points to path, creating the parent directory.
func SavePointsCSV(path string, points []model.DataPoint) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return WritePointsCSV(f, points)
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
