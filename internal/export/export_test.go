package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"entsoe-agent/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePoints(t *testing.T) []model.DataPoint {
	t.Helper()
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	meta := &model.SeriesMetadata{BusinessType: "A01", PSRType: "B16", InDomain: "10Y1001A1001A83F"}
	return []model.DataPoint{
		{Timestamp: time.Date(2024, 6, 1, 2, 0, 0, 0, berlin), Position: 1, Value: 1250.5, Unit: "MW", Resolution: 15, ForecastType: "day_ahead", Metadata: meta},
		{Timestamp: time.Date(2024, 6, 1, 2, 15, 0, 0, berlin), Position: 2, Value: -3, Unit: "MW", Resolution: 15},
	}
}

func TestWritePointsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePointsCSV(&buf, samplePoints(t)))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, pointHeader, rows[0])
	assert.Equal(t, []string{
		"2024-06-01T02:00:00+02:00", "2024-06-01T00:00:00Z", "1", "1250.5", "MW", "15",
		"day_ahead", "A01", "B16", "10Y1001A1001A83F", "", "",
	}, rows[1])
	assert.Equal(t, "-3", rows[2][3])
	assert.Equal(t, "", rows[2][7])
}

func TestWritePointsCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePointsCSV(&buf, nil))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestSavePointsCSV_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "points.csv")
	require.NoError(t, SavePointsCSV(path, samplePoints(t)))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "timestamp,timestamp_utc,position")
}

func TestSaveAndLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots", "result.json")
	in := &model.Result{Status: model.StatusSuccess, DataPoints: samplePoints(t), TotalPoints: 2, CountryCode: "DE"}
	require.NoError(t, SaveJSON(path, in))

	var out model.Result
	require.NoError(t, LoadJSON(path, &out))
	assert.Equal(t, "DE", out.CountryCode)
	require.Len(t, out.DataPoints, 2)
	assert.True(t, in.DataPoints[0].Timestamp.Equal(out.DataPoints[0].Timestamp))
	assert.Equal(t, "B16", out.DataPoints[0].Metadata.PSRType)
}

func TestLoadJSON_Errors(t *testing.T) {
	dir := t.TempDir()
	var v map[string]any

	err := LoadJSON(filepath.Join(dir, "missing.json"), &v)
	assert.ErrorContains(t, err, "failed to read")

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0644))
	assert.ErrorContains(t, LoadJSON(bad, &v), "failed to parse")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, map[string]int{"a": 1}))
	assert.Equal(t, "{\n  \"a\": 1\n}\n", buf.String())
}
