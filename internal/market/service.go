package market

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"entsoe-agent/internal/entsoe"
	"entsoe-agent/internal/model"

	"go.uber.org/zap"
)

// Fetcher performs one request against the platform.
type Fetcher interface {
	Fetch(ctx context.Context, params url.Values) (*entsoe.ParseResult, error)
	HasToken() bool
}

// Service exposes every market product as a function returning a
// model.Result. Failures never escape as Go errors.
type Service struct {
	BaseURL string

	fetcher Fetcher
	calc    *entsoe.Calculator
	logger  *zap.Logger
}

func NewService(f Fetcher, calc *entsoe.Calculator, logger *zap.Logger) *Service {
	if calc == nil {
		calc = entsoe.NewCalculator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		BaseURL: entsoe.DefaultBaseURL,
		fetcher: f,
		calc:    calc,
		logger:  logger,
	}
}

func (s *Service) Calculator() *entsoe.Calculator { return s.calc }

// Query is a product request in relative terms. Span is hours or days
// depending on the product's window shape; zero selects the product default.
type Query struct {
	Product entsoe.ProductID
	Country string
	From    string
	To      string
	Span    int
}

// Get dispatches a query to its product function.
func (s *Service) Get(ctx context.Context, q Query) *model.Result {
	switch q.Product {
	case entsoe.ProductCrossBorderFlow:
		return s.CrossBorderFlows(ctx, q.From, q.To, q.Span)
	case entsoe.ProductDayAheadPrice:
		return s.DayAheadPrices(ctx, q.Country, q.Span)
	case entsoe.ProductRenewableForecast:
		return s.RenewableForecast(ctx, q.Country, q.Span)
	case entsoe.ProductUnavailability:
		return s.Unavailability(ctx, q.Country, q.Span)
	case entsoe.ProductGenerationForecast:
		return s.GenerationForecast(ctx, q.Country, q.Span)
	}
	p, err := entsoe.LookupProduct(q.Product)
	if err != nil {
		r := s.failure(err, &model.Result{DataType: string(q.Product)})
		r.Suggestions = productNames()
		return r
	}
	res, _ := s.fetchProduct(ctx, p, q.Country, q.Span)
	return res
}

func (s *Service) Load(ctx context.Context, country string, hoursBack int) *model.Result {
	return s.historical(ctx, entsoe.ProductLoad, country, hoursBack)
}

func (s *Service) Generation(ctx context.Context, country string, hoursBack int) *model.Result {
	return s.historical(ctx, entsoe.ProductGeneration, country, hoursBack)
}

func (s *Service) ImbalancePrices(ctx context.Context, country string, hoursBack int) *model.Result {
	res := s.historical(ctx, entsoe.ProductImbalancePrice, country, hoursBack)
	if res.OK() {
		normalizePriceUnits(res)
	}
	return res
}

// normalizePriceUnits gives every point the result's EUR/MWh unit unless the
// document named a EUR unit of its own, and sets the currency.
func normalizePriceUnits(res *model.Result) {
	for i := range res.DataPoints {
		if u := res.DataPoints[i].Unit; !strings.Contains(strings.ToUpper(u), "EUR") || strings.EqualFold(u, res.Unit) {
			res.DataPoints[i].Unit = res.Unit
		}
	}
	res.Currency = "EUR"
}

func (s *Service) historical(ctx context.Context, id entsoe.ProductID, country string, hoursBack int) *model.Result {
	p, _ := entsoe.LookupProduct(id)
	res, w := s.fetchProduct(ctx, p, country, hoursBack)
	if res.OK() {
		res.Note = fmt.Sprintf("Data delayed by %d hours due to publication schedule", w.DelayHours)
	}
	return res
}

// GenerationForecast returns the day-ahead generation forecast from today's
// midnight over daysAhead whole days (1..7).
func (s *Service) GenerationForecast(ctx context.Context, country string, daysAhead int) *model.Result {
	p, _ := entsoe.LookupProduct(entsoe.ProductGenerationForecast)
	res, _ := s.fetchProduct(ctx, p, country, daysAhead)
	if res.OK() {
		for i := range res.DataPoints {
			if res.DataPoints[i].Unit == "" {
				res.DataPoints[i].Unit = "MW"
			}
			res.DataPoints[i].ForecastType = p.ForecastType
		}
		res.Note = "Day-ahead generation forecast by production type. Times in CET/CEST."
	}
	return res
}

// DayAheadPrices returns the whole-day price curve of
// (now - delay).date - (daysBack - 1).
func (s *Service) DayAheadPrices(ctx context.Context, country string, daysBack int) *model.Result {
	p, _ := entsoe.LookupProduct(entsoe.ProductDayAheadPrice)
	res, w := s.fetchProduct(ctx, p, country, daysBack)
	if res.OK() {
		normalizePriceUnits(res)
		res.Note = fmt.Sprintf("Day-ahead prices for %s. Data delayed by %d hours.", w.TargetDate, w.DelayHours)
	}
	return res
}

// RenewableForecast returns the wind and solar forecast over hoursAhead
// (capped at 72) from now minus the forecast delay.
func (s *Service) RenewableForecast(ctx context.Context, country string, hoursAhead int) *model.Result {
	p, _ := entsoe.LookupProduct(entsoe.ProductRenewableForecast)
	res, _ := s.fetchProduct(ctx, p, country, hoursAhead)
	if res.OK() {
		res.Note = "Renewable energy forecast (wind and solar) for the bidding zone"
		return res
	}
	if res.ErrorKind == model.KindUnsupportedCountry || res.ErrorKind == model.KindInvalidRequest {
		return res
	}
	res.Error = fmt.Sprintf("Failed to retrieve renewable forecast: %s. Renewable forecasts may have limited availability or different publication schedules.", res.Error)
	res.Note = "Renewable forecasts (A69) have specific publication schedules and may not be available for all countries."
	res.Suggestions = []string{
		"Try a different country (DE, DK, ES are more likely to have renewable forecasts)",
		"Use shorter forecast horizons (24 hours instead of 48+)",
		"Try during European business hours when forecasts are typically updated",
		"Check if the country has significant renewable capacity",
		"Some countries may only provide aggregated generation forecasts",
	}
	res.AlternativeFunctions = []string{
		"get_generation_forecast_day_ahead - total generation forecasts",
		"get_electricity_generation - actual generation data",
		"get_day_ahead_prices - prices often reflect renewable forecast impacts",
	}
	return res
}

// Unavailability lists generation unit outages over the last daysBack
// (capped at 30) whole days.
func (s *Service) Unavailability(ctx context.Context, country string, daysBack int) *model.Result {
	p, _ := entsoe.LookupProduct(entsoe.ProductUnavailability)
	res, w := s.fetchProduct(ctx, p, country, daysBack)
	if res.OK() {
		types := map[string]bool{}
		units := map[string]bool{}
		for _, dp := range res.DataPoints {
			if dp.Metadata == nil {
				continue
			}
			if bt := dp.Metadata.BusinessType; bt != "" && !types[bt] {
				types[bt] = true
				res.UnavailabilityTypes = append(res.UnavailabilityTypes, bt)
			}
			if rr := dp.Metadata.RegisteredResource; rr != "" && !units[rr] {
				units[rr] = true
				res.AffectedUnits = append(res.AffectedUnits, rr)
			}
		}
		res.MethodUsed = "biddingZone_Domain"
		res.Note = fmt.Sprintf("Includes both planned maintenance and unplanned outages. Data delayed by %d hours.", w.DelayHours)
		return res
	}
	if res.ErrorKind == model.KindUnsupportedCountry || res.ErrorKind == model.KindInvalidRequest {
		return res
	}
	analysis, specific := unavailabilityHints(res, res.CountryCode)
	res.Error = "Failed to retrieve unavailability data. Last error: " + res.Error
	res.ErrorAnalysis = analysis
	res.Note = "Unavailability data (A77) has extremely limited availability. Most TSOs do not provide this data publicly."
	res.Suggestions = append(specific,
		"Consider using alternative data types for generation analysis",
		"Contact the TSO directly for unavailability information",
	)
	res.AlternativeFunctions = []string{
		"get_electricity_generation - actual generation by type",
		"get_electricity_load - consumption data",
		"get_generation_forecast_day_ahead - planned generation",
		"get_renewable_forecast - renewable generation forecasts",
	}
	return res
}

func unavailabilityHints(res *model.Result, country string) (string, []string) {
	switch res.ErrorKind {
	case model.KindNoDataFound:
		return "No unavailability data available for the requested period", []string{
			country + " TSO may not publish unavailability data publicly",
			"Try a different time period (some countries only report during maintenance seasons)",
			"Try a different country (DE, FR, NL often have better data availability)",
			"This data type may require market participant registration",
		}
	case model.KindMalformedDocument:
		return "API returned invalid XML response (likely HTML error page)", []string{
			"The API may be returning an error page instead of XML",
			"Try again later - the API may be temporarily unavailable",
			"Check if your API token has access to unavailability data",
		}
	case model.KindBadParameters:
		return "Invalid API parameters for unavailability data", []string{
			"The country may not support unavailability data queries",
			"Try different time periods or parameters",
		}
	}
	return "Unknown error", nil
}

type flowShape struct {
	name   string
	from   entsoe.Area
	to     entsoe.Area
	invert bool
}

// CrossBorderFlows tries the direct direction, then the reverse direction
// with the sign of every value flipped, stopping at the first success.
// Positive values are exports from `from` to `to`.
func (s *Service) CrossBorderFlows(ctx context.Context, from, to string, hoursBack int) *model.Result {
	p, _ := entsoe.LookupProduct(entsoe.ProductCrossBorderFlow)
	base := &model.Result{
		DataType:     p.DataType,
		FromCountry:  entsoe.NormalizeCountry(from),
		ToCountry:    entsoe.NormalizeCountry(to),
		DocumentType: p.DocumentType,
	}

	fromArea, errFrom := entsoe.LookupArea(from)
	toArea, errTo := entsoe.LookupArea(to)
	if errFrom != nil || errTo != nil {
		return s.failure(&entsoe.Error{
			Kind:    entsoe.KindUnsupportedCountry,
			Message: fmt.Sprintf("Unsupported country code(s): %s, %s", from, to),
		}, base)
	}
	if fromArea.Country == toArea.Country {
		return s.failure(&entsoe.Error{
			Kind:    entsoe.KindInvalidRequest,
			Message: "Cannot get cross-border flows for the same country",
		}, base)
	}

	span, err := p.NormalizeSpan(hoursBack)
	if err != nil {
		return s.failure(err, base)
	}
	w, err := s.calc.For(p, fromArea.Country, span)
	if err != nil {
		return s.failure(err, base)
	}
	base.TimeRange = timeRange(w)
	base.TimeRange.Timezone = "CET/CEST"

	shapes := []flowShape{
		{name: "direct", from: fromArea, to: toArea},
		{name: "reverse", from: toArea, to: fromArea, invert: true},
	}
	var lastErr error
	for i, shape := range shapes {
		params := entsoe.BuildParams(p, entsoe.Area{}, shape.from, shape.to, w)
		doc, err := s.fetcher.Fetch(ctx, params)
		if err != nil {
			lastErr = err
			s.logger.Debug("cross-border flow shape failed",
				zap.String("shape", shape.name),
				zap.String("from", fromArea.Country),
				zap.String("to", toArea.Country),
				zap.Error(err))
			if !retryableShape(err) {
				break
			}
			continue
		}

		res := base
		res.Status = model.StatusSuccess
		res.DataPoints = doc.DataPoints
		res.TotalPoints = doc.TotalPoints
		res.Unit = p.Unit
		res.MethodUsed = fmt.Sprintf("Parameter combination %d (%s)", i+1, shape.name)
		res.FlowDirection = fmt.Sprintf("%s -> %s", fromArea.Country, toArea.Country)
		if shape.invert {
			for j := range res.DataPoints {
				res.DataPoints[j].Value = -res.DataPoints[j].Value
			}
			res.Note = "Data retrieved in reverse direction and values inverted"
		} else {
			res.Note = "Positive = export from source to destination, Negative = import to source from destination"
		}
		return res
	}

	res := s.failure(lastErr, base)
	res.Error = fmt.Sprintf("Failed to retrieve cross-border flows after trying multiple methods. Last error: %s", res.Error)
	res.Note = "Cross-border flow data may not be available for this country pair or time period"
	return res
}

// retryableShape is false for failures another parameter shape cannot fix.
func retryableShape(err error) bool {
	for _, kind := range []model.ErrorKind{model.KindMissingCredential, model.KindUnauthorized, model.KindRateLimited} {
		if entsoe.IsKind(err, kind) {
			return false
		}
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// fetchProduct is the single request flow shared by every area product:
// resolve the area, size and compute the window, build parameters, fetch.
func (s *Service) fetchProduct(ctx context.Context, p entsoe.Product, country string, span int) (*model.Result, entsoe.Window) {
	base := &model.Result{
		DataType:     p.DataType,
		CountryCode:  entsoe.NormalizeCountry(country),
		DocumentType: p.DocumentType,
		ProcessType:  p.ProcessType,
	}
	area, err := entsoe.LookupArea(country)
	if err != nil {
		return s.failure(err, base), entsoe.Window{}
	}
	base.AreaCode = area.Code

	span, err = p.NormalizeSpan(span)
	if err != nil {
		return s.failure(err, base), entsoe.Window{}
	}
	w, err := s.calc.For(p, area.Country, span)
	if err != nil {
		return s.failure(err, base), entsoe.Window{}
	}
	base.TimeRange = timeRange(w)

	s.logger.Info("fetching product",
		zap.String("product", string(p.ID)),
		zap.String("country", area.Country),
		zap.Int("delay_hours", w.DelayHours),
		zap.Time("start", w.Start),
		zap.Time("end", w.End))

	doc, err := s.fetcher.Fetch(ctx, entsoe.BuildParams(p, area, area, area, w))
	if err != nil {
		s.logger.Warn("product request failed",
			zap.String("product", string(p.ID)),
			zap.String("country", area.Country),
			zap.String("kind", string(entsoe.KindOf(err))),
			zap.Error(err))
		return s.failure(err, base), w
	}

	res := base
	res.Status = model.StatusSuccess
	res.DataPoints = doc.DataPoints
	res.TotalPoints = doc.TotalPoints
	res.Unit = p.Unit
	return res, w
}

// failure converts err into an error result on top of base.
func (s *Service) failure(err error, base *model.Result) *model.Result {
	res := base
	if res == nil {
		res = &model.Result{}
	}
	res.Status = model.StatusError
	res.DataPoints = []model.DataPoint{}
	res.TotalPoints = 0
	res.ErrorKind = entsoe.KindOf(err)
	if err != nil {
		res.Error = err.Error()
	} else {
		res.Error = "Unknown error"
	}
	var e *entsoe.Error
	if errors.As(err, &e) {
		res.ErrorCode = e.Code
		res.RetryAfter = e.RetryAfter
		res.RawContent = e.Snippet
	}
	if res.ErrorKind == model.KindUnsupportedCountry {
		res.SupportedCountries = entsoe.SupportedCountries()
	}
	return res
}

func timeRange(w entsoe.Window) *model.TimeRange {
	tr := &model.TimeRange{
		Start:      w.Start,
		End:        w.End,
		DelayHours: w.DelayHours,
		TargetDate: w.TargetDate,
	}
	switch w.Shape {
	case entsoe.WindowHoursBack:
		tr.HoursRequested = w.Span
	case entsoe.WindowDayBack, entsoe.WindowDaysSpan:
		tr.DaysRequested = w.Span
	case entsoe.WindowHoursAhead:
		tr.HoursAhead = w.Span
	case entsoe.WindowDaysAhead:
		tr.DaysAhead = w.Span
	}
	return tr
}

func productNames() []string {
	ids := entsoe.ProductIDs()
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
