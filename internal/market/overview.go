package market

import (
	"context"
	"fmt"
	"strings"
	"time"

	"entsoe-agent/internal/analysis"
	"entsoe-agent/internal/entsoe"
	"entsoe-agent/internal/model"

	"go.uber.org/zap"
)

// DefaultInsightCountries are the major markets analyzed when none are given.
var DefaultInsightCountries = []string{"DE", "FR", "IT", "ES", "NL"}

// overviewPriceDays covers yesterday and today.
const overviewPriceDays = 2

type RawData struct {
	Load       *model.Result `json:"load"`
	Generation *model.Result `json:"generation"`
	Prices     *model.Result `json:"prices"`
}

// Overview combines load, generation and prices for one country.
type Overview struct {
	Country           string           `json:"country"`
	PeriodHours       int              `json:"period_hours"`
	DataTimestamp     time.Time        `json:"data_timestamp"`
	LoadSummary       analysis.Summary `json:"load_summary"`
	GenerationSummary analysis.Summary `json:"generation_summary"`
	PriceSummary      analysis.Summary `json:"price_summary"`
	RawData           *RawData         `json:"raw_data,omitempty"`

	Error              string   `json:"error,omitempty"`
	SupportedCountries []string `json:"supported_countries,omitempty"`
}

func (o *Overview) OK() bool { return o != nil && o.Error == "" }

func (s *Service) Overview(ctx context.Context, country string, hoursBack int) *Overview {
	if hoursBack <= 0 {
		hoursBack = 24
	}
	o := &Overview{
		Country:       entsoe.NormalizeCountry(country),
		PeriodHours:   hoursBack,
		DataTimestamp: s.calc.Now(),
	}
	if _, err := entsoe.LookupArea(country); err != nil {
		o.Error = "Failed to get electricity overview: " + err.Error()
		o.SupportedCountries = entsoe.SupportedCountries()
		return o
	}

	s.logger.Info("building country overview", zap.String("country", o.Country), zap.Int("hours_back", hoursBack))
	load := s.Load(ctx, country, hoursBack)
	gen := s.Generation(ctx, country, hoursBack)
	prices := s.DayAheadPrices(ctx, country, overviewPriceDays)

	o.LoadSummary = analysis.SummarizeResult(load, "load")
	o.GenerationSummary = analysis.SummarizeResult(gen, "generation")
	o.PriceSummary = analysis.SummarizeResult(prices, "price")
	o.RawData = &RawData{Load: load, Generation: gen, Prices: prices}
	return o
}

type ComparisonMetrics struct {
	LoadComparison       map[string]float64 `json:"load_comparison"`
	PriceComparison      map[string]float64 `json:"price_comparison"`
	GenerationComparison map[string]float64 `json:"generation_comparison"`
	PriceRanking         []analysis.Ranked  `json:"price_ranking"`
	LoadRanking          []analysis.Ranked  `json:"load_ranking"`
}

type Comparison struct {
	Countries           []string             `json:"countries"`
	PeriodHours         int                  `json:"period_hours"`
	ComparisonTimestamp time.Time            `json:"comparison_timestamp"`
	CountryData         map[string]*Overview `json:"country_data"`
	ComparisonMetrics   ComparisonMetrics    `json:"comparison_metrics"`
}

// Compare fetches an overview per country, one after another, and compares
// their average load, price and generation.
func (s *Service) Compare(ctx context.Context, countries []string, hoursBack int) *Comparison {
	if hoursBack <= 0 {
		hoursBack = 24
	}
	c := &Comparison{
		Countries:           normalizeAll(countries),
		PeriodHours:         hoursBack,
		ComparisonTimestamp: s.calc.Now(),
		CountryData:         make(map[string]*Overview, len(countries)),
	}
	for _, cc := range c.Countries {
		c.CountryData[cc] = s.Overview(ctx, cc, hoursBack)
	}
	c.ComparisonMetrics = comparisonMetrics(c.CountryData)
	return c
}

func comparisonMetrics(data map[string]*Overview) ComparisonMetrics {
	m := ComparisonMetrics{
		LoadComparison:       map[string]float64{},
		PriceComparison:      map[string]float64{},
		GenerationComparison: map[string]float64{},
	}
	for cc, o := range data {
		if !o.OK() {
			continue
		}
		if o.LoadSummary.OK() {
			m.LoadComparison[cc] = o.LoadSummary.Average
		}
		if o.PriceSummary.OK() {
			m.PriceComparison[cc] = o.PriceSummary.Average
		}
		if o.GenerationSummary.OK() {
			m.GenerationComparison[cc] = o.GenerationSummary.Average
		}
	}
	m.PriceRanking = analysis.RankCountries(m.PriceComparison)
	m.LoadRanking = analysis.RankCountries(m.LoadComparison)
	return m
}

type FlowAnalysis struct {
	CountryPairs      [][2]string                     `json:"country_pairs"`
	PeriodHours       int                             `json:"period_hours"`
	AnalysisTimestamp time.Time                       `json:"analysis_timestamp"`
	Flows             map[string]*model.Result        `json:"flows"`
	FlowSummary       map[string]analysis.FlowSummary `json:"flow_summary"`
	Skipped           []string                        `json:"skipped,omitempty"`
}

// ParsePairs reads pairs written as "DE-FR" or "DE>FR". Entries that are
// not exactly two codes are returned in skipped.
func ParsePairs(raw []string) (pairs [][2]string, skipped []string) {
	for _, item := range raw {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.FieldsFunc(item, func(r rune) bool { return r == '-' || r == '>' || r == ':' })
		if len(parts) != 2 {
			skipped = append(skipped, item)
			continue
		}
		pairs = append(pairs, [2]string{entsoe.NormalizeCountry(parts[0]), entsoe.NormalizeCountry(parts[1])})
	}
	return pairs, skipped
}

// AnalyzeFlows fetches each pair and summarizes the successful ones.
func (s *Service) AnalyzeFlows(ctx context.Context, pairs [][2]string, hoursBack int) *FlowAnalysis {
	if hoursBack <= 0 {
		hoursBack = 24
	}
	fa := &FlowAnalysis{
		CountryPairs:      pairs,
		PeriodHours:       hoursBack,
		AnalysisTimestamp: s.calc.Now(),
		Flows:             map[string]*model.Result{},
		FlowSummary:       map[string]analysis.FlowSummary{},
	}
	for _, pair := range pairs {
		key := fmt.Sprintf("%s->%s", pair[0], pair[1])
		res := s.CrossBorderFlows(ctx, pair[0], pair[1], hoursBack)
		fa.Flows[key] = res
		if res.OK() {
			fa.FlowSummary[key] = analysis.SummarizeFlow(res)
		}
	}
	return fa
}

type RenewableOutlook struct {
	Country           string                     `json:"country"`
	ForecastHours     int                        `json:"forecast_hours"`
	ForecastTimestamp time.Time                  `json:"forecast_timestamp"`
	ForecastSummary   *analysis.RenewableSummary `json:"forecast_summary,omitempty"`
	RawForecast       *model.Result              `json:"raw_forecast"`
}

// RenewableOutlook wraps the renewable forecast with a capacity-factor summary.
func (s *Service) RenewableOutlook(ctx context.Context, country string, hoursAhead int) *RenewableOutlook {
	res := s.RenewableForecast(ctx, country, hoursAhead)
	out := &RenewableOutlook{
		Country:           entsoe.NormalizeCountry(country),
		ForecastHours:     hoursAhead,
		ForecastTimestamp: s.calc.Now(),
		RawForecast:       res,
	}
	if res.TimeRange != nil {
		out.ForecastHours = res.TimeRange.HoursAhead
	}
	if res.OK() {
		sum := analysis.SummarizeRenewable(res)
		out.ForecastSummary = &sum
	}
	return out
}

type MarketOverview struct {
	TotalCountriesAnalyzed int    `json:"total_countries_analyzed"`
	CountriesWithData      int    `json:"countries_with_data"`
	AnalysisStatus         string `json:"analysis_status"`
}

type Insights struct {
	AnalysisTimestamp time.Time       `json:"analysis_timestamp"`
	CountriesAnalyzed []string        `json:"countries_analyzed"`
	PeriodHours       int             `json:"period_hours"`
	MarketOverview    MarketOverview  `json:"market_overview"`
	KeyInsights       []string        `json:"key_insights"`
	PriceAnalysis     analysis.Spread `json:"price_analysis"`
	LoadAnalysis      analysis.Spread `json:"load_analysis"`
	Recommendations   []string        `json:"recommendations"`
}

var recommendations = []string{
	"Monitor cross-border flows for optimization opportunities",
	"Consider renewable energy integration based on forecast data",
	"Analyze price volatility for trading strategies",
}

// MarketInsights analyzes several markets. With no countries given it uses
// DefaultInsightCountries.
func (s *Service) MarketInsights(ctx context.Context, countries []string, hoursBack int) *Insights {
	if len(countries) == 0 {
		countries = DefaultInsightCountries
	}
	if hoursBack <= 0 {
		hoursBack = 24
	}
	countries = normalizeAll(countries)
	data := make(map[string]*Overview, len(countries))
	for _, cc := range countries {
		data[cc] = s.Overview(ctx, cc, hoursBack)
	}
	m := comparisonMetrics(data)

	withData := 0
	for _, o := range data {
		if o.OK() {
			withData++
		}
	}

	in := &Insights{
		AnalysisTimestamp: s.calc.Now(),
		CountriesAnalyzed: countries,
		PeriodHours:       hoursBack,
		MarketOverview: MarketOverview{
			TotalCountriesAnalyzed: len(data),
			CountriesWithData:      withData,
			AnalysisStatus:         "completed",
		},
		KeyInsights:     keyInsights(m),
		PriceAnalysis:   analysis.CompareAcross(m.PriceComparison, "price"),
		LoadAnalysis:    analysis.CompareAcross(m.LoadComparison, "load"),
		Recommendations: recommendations,
	}
	return in
}

func keyInsights(m ComparisonMetrics) []string {
	out := []string{}
	if len(m.LoadRanking) > 0 && m.LoadRanking[0].Value > 0 {
		top := m.LoadRanking[0]
		out = append(out, fmt.Sprintf("%s has the highest average electricity load at %.0f MW", top.Country, top.Value))
	}
	if len(m.PriceRanking) > 1 {
		hi, lo := m.PriceRanking[0], m.PriceRanking[len(m.PriceRanking)-1]
		out = append(out, fmt.Sprintf("%s has the highest average day-ahead price at %.2f EUR/MWh, %s the lowest at %.2f EUR/MWh",
			hi.Country, hi.Value, lo.Country, lo.Value))
	}
	return out
}

func normalizeAll(countries []string) []string {
	out := make([]string, 0, len(countries))
	for _, c := range countries {
		c = entsoe.NormalizeCountry(c)
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}
