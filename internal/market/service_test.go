package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"entsoe-agent/internal/entsoe"
	"entsoe-agent/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	calls   []url.Values
	respond func(params url.Values) (*entsoe.ParseResult, error)
	noToken bool
}

func (f *fakeFetcher) Fetch(_ context.Context, params url.Values) (*entsoe.ParseResult, error) {
	f.calls = append(f.calls, params)
	if f.respond == nil {
		return document("MW", 1, 2, 3), nil
	}
	return f.respond(params)
}

func (f *fakeFetcher) HasToken() bool { return !f.noToken }

func document(unit string, values ...float64) *entsoe.ParseResult {
	start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	pts := make([]model.DataPoint, len(values))
	for i, v := range values {
		pts[i] = model.DataPoint{
			Timestamp:  start.Add(time.Duration(i) * time.Hour),
			Position:   i + 1,
			Value:      v,
			Unit:       unit,
			Resolution: 60,
		}
	}
	return &entsoe.ParseResult{Status: model.StatusSuccess, DataPoints: pts, TotalPoints: len(pts)}
}

var testNow = time.Date(2024, 1, 15, 10, 37, 0, 0, time.UTC)

func newTestService(f *fakeFetcher) *Service {
	calc := entsoe.NewCalculator(entsoe.WithClock(func() time.Time { return testNow }))
	return NewService(f, calc, nil)
}

func areaCode(t *testing.T, country string) string {
	t.Helper()
	a, err := entsoe.LookupArea(country)
	require.NoError(t, err)
	return a.Code
}

func TestGet_UnsupportedCountry(t *testing.T) {
	f := &fakeFetcher{}
	svc := newTestService(f)

	for _, id := range entsoe.ProductIDs() {
		res := svc.Get(context.Background(), Query{Product: id, Country: "XX", From: "XX", To: "FR"})

		assert.Equal(t, model.StatusError, res.Status, id)
		assert.Equal(t, model.KindUnsupportedCountry, res.ErrorKind, id)
		assert.Equal(t, entsoe.SupportedCountries(), res.SupportedCountries, id)
		assert.NotNil(t, res.DataPoints, id)
		assert.Zero(t, res.TotalPoints, id)
	}
	assert.Empty(t, f.calls)
}

func TestGet_UnknownProduct(t *testing.T) {
	res := newTestService(&fakeFetcher{}).Get(context.Background(), Query{Product: "weather", Country: "DE"})

	assert.Equal(t, model.KindInvalidRequest, res.ErrorKind)
	assert.Contains(t, res.Suggestions, "day_ahead_price")
}

func TestLoad(t *testing.T) {
	f := &fakeFetcher{}
	res := newTestService(f).Load(context.Background(), "de", 0)

	require.True(t, res.OK(), res.Error)
	assert.Equal(t, 3, res.TotalPoints)
	assert.Equal(t, "DE", res.CountryCode)
	assert.Equal(t, "electricity_load", res.DataType)
	assert.Equal(t, "A65", res.DocumentType)
	assert.Equal(t, "MW", res.Unit)
	assert.Equal(t, "Data delayed by 0 hours due to publication schedule", res.Note)
	require.NotNil(t, res.TimeRange)
	assert.Equal(t, 6, res.TimeRange.HoursRequested)

	require.Len(t, f.calls, 1)
	assert.Equal(t, areaCode(t, "DE"), f.calls[0].Get("outBiddingZone_Domain"))
	assert.Equal(t, "A16", f.calls[0].Get("processType"))
}

func TestLoad_FetchFailure(t *testing.T) {
	f := &fakeFetcher{respond: func(url.Values) (*entsoe.ParseResult, error) {
		return nil, &entsoe.Error{Kind: entsoe.KindMissingCredential, Message: "ENTSO-E API token not found"}
	}}
	res := newTestService(f).Load(context.Background(), "FR", 12)

	assert.False(t, res.OK())
	assert.Equal(t, model.KindMissingCredential, res.ErrorKind)
	assert.Equal(t, "ENTSO-E API token not found", res.Error)
	assert.Empty(t, res.SupportedCountries)
	assert.Empty(t, res.Note)
}

func TestDayAheadPrices(t *testing.T) {
	f := &fakeFetcher{respond: func(url.Values) (*entsoe.ParseResult, error) {
		doc := document("EUR/MWH", 50, 60)
		doc.DataPoints[1].Unit = ""
		return doc, nil
	}}
	res := newTestService(f).DayAheadPrices(context.Background(), "FR", 1)

	require.True(t, res.OK())
	assert.Equal(t, "EUR", res.Currency)
	assert.Equal(t, "EUR/MWh", res.DataPoints[0].Unit)
	assert.Equal(t, "EUR/MWh", res.DataPoints[1].Unit)
	assert.Equal(t, "2024-01-14", res.TimeRange.TargetDate)
	assert.Contains(t, res.Note, "2024-01-14")

	params := f.calls[0]
	assert.Empty(t, params.Get("processType"))
	assert.Equal(t, areaCode(t, "FR"), params.Get("in_Domain"))
	assert.Equal(t, areaCode(t, "FR"), params.Get("out_Domain"))
}

func TestGenerationForecast(t *testing.T) {
	f := &fakeFetcher{respond: func(url.Values) (*entsoe.ParseResult, error) {
		return document("", 5), nil
	}}
	svc := newTestService(f)

	res := svc.GenerationForecast(context.Background(), "ES", 2)
	require.True(t, res.OK())
	assert.Equal(t, "MW", res.DataPoints[0].Unit)
	assert.Equal(t, "day_ahead", res.DataPoints[0].ForecastType)
	assert.Equal(t, 2, res.TimeRange.DaysAhead)

	bad := svc.GenerationForecast(context.Background(), "ES", 8)
	assert.Equal(t, model.KindInvalidRequest, bad.ErrorKind)
	assert.Len(t, f.calls, 1)
}

func TestRenewableForecast_FailureHints(t *testing.T) {
	f := &fakeFetcher{respond: func(url.Values) (*entsoe.ParseResult, error) {
		return nil, &entsoe.Error{Kind: entsoe.KindNoDataFound, Message: "No data found for the requested parameters"}
	}}
	res := newTestService(f).RenewableForecast(context.Background(), "DK", 100)

	assert.False(t, res.OK())
	assert.True(t, strings.HasPrefix(res.Error, "Failed to retrieve renewable forecast: No data found"))
	assert.NotEmpty(t, res.Suggestions)
	assert.NotEmpty(t, res.AlternativeFunctions)
	assert.Equal(t, 72, res.TimeRange.HoursAhead)
}

func TestUnavailability(t *testing.T) {
	f := &fakeFetcher{respond: func(url.Values) (*entsoe.ParseResult, error) {
		doc := document("MW", 400, 250, 100)
		doc.DataPoints[0].Metadata = &model.SeriesMetadata{BusinessType: "A53", RegisteredResource: "unit-1"}
		doc.DataPoints[1].Metadata = &model.SeriesMetadata{BusinessType: "A54", RegisteredResource: "unit-2"}
		doc.DataPoints[2].Metadata = &model.SeriesMetadata{BusinessType: "A53", RegisteredResource: "unit-1"}
		return doc, nil
	}}
	res := newTestService(f).Unavailability(context.Background(), "DE", 60)

	require.True(t, res.OK())
	assert.Equal(t, []string{"A53", "A54"}, res.UnavailabilityTypes)
	assert.Equal(t, []string{"unit-1", "unit-2"}, res.AffectedUnits)
	assert.Equal(t, 30, res.TimeRange.DaysRequested)
	assert.Equal(t, areaCode(t, "DE"), f.calls[0].Get("biddingZone_Domain"))
}

func TestUnavailability_FailureAnalysis(t *testing.T) {
	f := &fakeFetcher{respond: func(url.Values) (*entsoe.ParseResult, error) {
		return nil, &entsoe.Error{Kind: entsoe.KindMalformedDocument, Message: "XML parsing failed: EOF"}
	}}
	res := newTestService(f).Unavailability(context.Background(), "NL", 7)

	assert.Equal(t, "API returned invalid XML response (likely HTML error page)", res.ErrorAnalysis)
	assert.True(t, strings.HasPrefix(res.Error, "Failed to retrieve unavailability data. Last error: "))
	assert.Contains(t, res.Suggestions, "Contact the TSO directly for unavailability information")
}

func TestCrossBorderFlows_Direct(t *testing.T) {
	f := &fakeFetcher{respond: func(url.Values) (*entsoe.ParseResult, error) {
		return document("MW", 100, -50), nil
	}}
	res := newTestService(f).CrossBorderFlows(context.Background(), "DE", "fr", 0)

	require.True(t, res.OK())
	assert.Equal(t, []float64{100, -50}, model.Values(res.DataPoints))
	assert.Equal(t, "DE -> FR", res.FlowDirection)
	assert.Equal(t, "Parameter combination 1 (direct)", res.MethodUsed)
	assert.Equal(t, 24, res.TimeRange.HoursRequested)
	assert.Equal(t, 1, res.TimeRange.DelayHours)

	require.Len(t, f.calls, 1)
	assert.Equal(t, areaCode(t, "DE"), f.calls[0].Get("in_Domain"))
	assert.Equal(t, areaCode(t, "FR"), f.calls[0].Get("out_Domain"))
}

func TestCrossBorderFlows_ReverseInverts(t *testing.T) {
	f := &fakeFetcher{}
	f.respond = func(url.Values) (*entsoe.ParseResult, error) {
		if len(f.calls) == 1 {
			return nil, &entsoe.Error{Kind: entsoe.KindNoDataFound, Message: "No data found for the requested parameters"}
		}
		return document("MW", 100, -50), nil
	}
	res := newTestService(f).CrossBorderFlows(context.Background(), "DE", "FR", 12)

	require.True(t, res.OK(), res.Error)
	assert.Equal(t, []float64{-100, 50}, model.Values(res.DataPoints))
	assert.Equal(t, "Parameter combination 2 (reverse)", res.MethodUsed)
	assert.Equal(t, "Data retrieved in reverse direction and values inverted", res.Note)

	require.Len(t, f.calls, 2)
	assert.Equal(t, areaCode(t, "FR"), f.calls[1].Get("in_Domain"))
	assert.Equal(t, areaCode(t, "DE"), f.calls[1].Get("out_Domain"))
}

func TestCrossBorderFlows_AllShapesFail(t *testing.T) {
	f := &fakeFetcher{respond: func(url.Values) (*entsoe.ParseResult, error) {
		return nil, &entsoe.Error{Kind: entsoe.KindBadParameters, Message: "Bad Request: Invalid domain"}
	}}
	res := newTestService(f).CrossBorderFlows(context.Background(), "ES", "PT", 24)

	assert.False(t, res.OK())
	assert.Len(t, f.calls, 2)
	assert.Equal(t, model.KindBadParameters, res.ErrorKind)
	assert.Equal(t, "Failed to retrieve cross-border flows after trying multiple methods. Last error: Bad Request: Invalid domain", res.Error)
}

func TestCrossBorderFlows_StopsOnCredentialFailure(t *testing.T) {
	f := &fakeFetcher{respond: func(url.Values) (*entsoe.ParseResult, error) {
		return nil, &entsoe.Error{Kind: entsoe.KindUnauthorized, Message: "Unauthorized - Invalid API token"}
	}}
	res := newTestService(f).CrossBorderFlows(context.Background(), "DE", "PL", 24)

	assert.Equal(t, model.KindUnauthorized, res.ErrorKind)
	assert.Len(t, f.calls, 1)
}

func TestCrossBorderFlows_InvalidPairs(t *testing.T) {
	f := &fakeFetcher{}
	svc := newTestService(f)

	same := svc.CrossBorderFlows(context.Background(), "DE", "de", 24)
	assert.Equal(t, model.KindInvalidRequest, same.ErrorKind)
	assert.Equal(t, "Cannot get cross-border flows for the same country", same.Error)

	unknown := svc.CrossBorderFlows(context.Background(), "DE", "US", 24)
	assert.Equal(t, model.KindUnsupportedCountry, unknown.ErrorKind)
	assert.NotEmpty(t, unknown.SupportedCountries)

	assert.Empty(t, f.calls)
}

func upstream(t *testing.T, status int, body string, headers map[string]string) *Service {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for k, v := range headers {
			w.Header().Set(k, v)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	client := entsoe.NewClient("test-token", srv.URL, 5*time.Second, nil)
	calc := entsoe.NewCalculator(entsoe.WithClock(func() time.Time { return testNow }))
	return NewService(client, calc, nil)
}

func TestLoad_MalformedDocumentKeepsRawContent(t *testing.T) {
	body := "<html><body>Service temporarily unavailable</body></html><"
	res := upstream(t, http.StatusOK, body, nil).Load(context.Background(), "DE", 6)

	assert.Equal(t, model.KindMalformedDocument, res.ErrorKind)
	assert.Equal(t, body, res.RawContent)

	raw, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Service temporarily unavailable")
}

func TestLoad_MalformedDocumentTruncatesRawContent(t *testing.T) {
	body := "<" + strings.Repeat("x", 2000)
	res := upstream(t, http.StatusOK, body, nil).Load(context.Background(), "DE", 6)

	assert.Equal(t, model.KindMalformedDocument, res.ErrorKind)
	assert.Len(t, res.RawContent, 500)
	assert.True(t, strings.HasPrefix(body, res.RawContent))
}

func TestLoad_RateLimitedKeepsRetryAfter(t *testing.T) {
	res := upstream(t, http.StatusTooManyRequests, "", map[string]string{"Retry-After": "120"}).Load(context.Background(), "FR", 6)

	assert.Equal(t, model.KindRateLimited, res.ErrorKind)
	assert.Equal(t, "120", res.RetryAfter)
	assert.Empty(t, res.RawContent)
}

func TestCrossBorderFlows_StopsOnRateLimit(t *testing.T) {
	f := &fakeFetcher{respond: func(url.Values) (*entsoe.ParseResult, error) {
		return nil, fmt.Errorf("fetch: %w", &entsoe.Error{Kind: entsoe.KindRateLimited, Message: "Rate limit exceeded - Too many requests", RetryAfter: "60"})
	}}
	res := newTestService(f).CrossBorderFlows(context.Background(), "FR", "ES", 24)

	assert.Equal(t, model.KindRateLimited, res.ErrorKind)
	assert.Equal(t, "60", res.RetryAfter)
	assert.Len(t, f.calls, 1)
}

func TestImbalancePrices_NormalizesUnits(t *testing.T) {
	f := &fakeFetcher{respond: func(url.Values) (*entsoe.ParseResult, error) {
		doc := document("EUR/MWH", 120, -40, 80)
		doc.DataPoints[2].Unit = "MW"
		return doc, nil
	}}
	res := newTestService(f).ImbalancePrices(context.Background(), "NL", 0)

	require.True(t, res.OK())
	assert.Equal(t, "EUR/MWh", res.Unit)
	assert.Equal(t, "EUR", res.Currency)
	for _, dp := range res.DataPoints {
		assert.Equal(t, res.Unit, dp.Unit)
	}
	assert.Equal(t, areaCode(t, "NL"), f.calls[0].Get("controlArea_Domain"))
	assert.Equal(t, 24, res.TimeRange.HoursRequested)
}
