package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"entsoe-agent/internal/market"
)

var ErrUnknownTool = errors.New("unknown tool")

// Param describes one named tool argument.
type Param struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
	Default     any    `json:"default,omitempty"`
	Description string `json:"description"`
}

// Tool is one market operation exposed under a stable name.
type Tool struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Params      []Param `json:"parameters"`

	invoke func(ctx context.Context, a args) any
}

// args is the union of every tool's parameters. Defaults are filled in
// before the caller's JSON is decoded over them.
type args struct {
	CountryCode  string     `json:"country_code"`
	FromCountry  string     `json:"from_country"`
	ToCountry    string     `json:"to_country"`
	DataType     string     `json:"data_type"`
	Countries    []string   `json:"countries"`
	CountryPairs [][]string `json:"country_pairs"`
	HoursBack    int        `json:"hours_back"`
	DaysBack     int        `json:"days_back"`
	HoursAhead   int        `json:"hours_ahead"`
	DaysAhead    int        `json:"days_ahead"`
}

// Registry maps tool names to market operations.
type Registry struct {
	svc   *market.Service
	tools map[string]Tool
}

func NewRegistry(svc *market.Service) *Registry {
	r := &Registry{svc: svc, tools: map[string]Tool{}}
	for _, t := range r.definitions() {
		r.tools[t.Name] = t
	}
	return r
}

// Tools lists every tool sorted by name.
func (r *Registry) Tools() []Tool {
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *Registry) Lookup(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Invoke runs the named tool with JSON object arguments. Errors are only
// returned for an unknown tool or unusable arguments; market failures come
// back inside the result.
func (r *Registry) Invoke(ctx context.Context, name string, raw json.RawMessage) (any, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	a := t.defaults()
	if len(bytes.TrimSpace(raw)) > 0 {
		var given map[string]json.RawMessage
		if err := json.Unmarshal(raw, &given); err != nil {
			return nil, fmt.Errorf("%s: arguments must be a JSON object: %w", name, err)
		}
		for key := range given {
			if !t.accepts(key) {
				return nil, fmt.Errorf("%s: unexpected argument %q", name, key)
			}
		}
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, fmt.Errorf("%s: invalid arguments: %w", name, err)
		}
		for _, p := range t.Params {
			if _, present := given[p.Name]; p.Required && !present {
				return nil, fmt.Errorf("%s: missing required argument %q", name, p.Name)
			}
		}
	} else {
		for _, p := range t.Params {
			if p.Required {
				return nil, fmt.Errorf("%s: missing required argument %q", name, p.Name)
			}
		}
	}
	return t.invoke(ctx, a), nil
}

func (t Tool) accepts(name string) bool {
	for _, p := range t.Params {
		if p.Name == name {
			return true
		}
	}
	return false
}

func (t Tool) defaults() args {
	var a args
	for _, p := range t.Params {
		switch def := p.Default.(type) {
		case int:
			switch p.Name {
			case "hours_back":
				a.HoursBack = def
			case "days_back":
				a.DaysBack = def
			case "hours_ahead":
				a.HoursAhead = def
			case "days_ahead":
				a.DaysAhead = def
			}
		case string:
			if p.Name == "data_type" {
				a.DataType = def
			}
		}
	}
	return a
}

func country() Param {
	return Param{Name: "country_code", Type: "string", Required: true, Description: "Two-letter country code, e.g. DE or FR"}
}

func intParam(name string, def int, desc string) Param {
	return Param{Name: name, Type: "integer", Default: def, Description: desc}
}

func (r *Registry) definitions() []Tool {
	s := r.svc
	return []Tool{
		{
			Name:        "get_electricity_load",
			Description: "Actual electricity load (consumption) in MW for a European country.",
			Params:      []Param{country(), intParam("hours_back", 6, "Hours of data to fetch")},
			invoke: func(ctx context.Context, a args) any {
				return s.Load(ctx, a.CountryCode, a.HoursBack)
			},
		},
		{
			Name:        "get_electricity_generation",
			Description: "Actual electricity generation per production type in MW.",
			Params:      []Param{country(), intParam("hours_back", 6, "Hours of data to fetch")},
			invoke: func(ctx context.Context, a args) any {
				return s.Generation(ctx, a.CountryCode, a.HoursBack)
			},
		},
		{
			Name:        "get_generation_forecast_day_ahead",
			Description: "Day-ahead generation forecast from today's midnight.",
			Params:      []Param{country(), intParam("days_ahead", 1, "Days to forecast, 1 to 7")},
			invoke: func(ctx context.Context, a args) any {
				return s.GenerationForecast(ctx, a.CountryCode, a.DaysAhead)
			},
		},
		{
			Name:        "get_day_ahead_prices",
			Description: "Whole-day day-ahead market prices in EUR/MWh.",
			Params:      []Param{country(), intParam("days_back", 1, "Which day to fetch, 1 is the latest published day")},
			invoke: func(ctx context.Context, a args) any {
				return s.DayAheadPrices(ctx, a.CountryCode, a.DaysBack)
			},
		},
		{
			Name:        "get_cross_border_flows",
			Description: "Physical flows between two countries. Positive values are exports from from_country.",
			Params: []Param{
				{Name: "from_country", Type: "string", Required: true, Description: "Source country code"},
				{Name: "to_country", Type: "string", Required: true, Description: "Destination country code"},
				intParam("hours_back", 24, "Hours of data to fetch"),
			},
			invoke: func(ctx context.Context, a args) any {
				return s.CrossBorderFlows(ctx, a.FromCountry, a.ToCountry, a.HoursBack)
			},
		},
		{
			Name:        "get_renewable_forecast",
			Description: "Wind and solar generation forecast.",
			Params:      []Param{country(), intParam("hours_ahead", 48, "Hours to forecast, at most 72")},
			invoke: func(ctx context.Context, a args) any {
				return s.RenewableForecast(ctx, a.CountryCode, a.HoursAhead)
			},
		},
		{
			Name:        "get_imbalance_prices",
			Description: "Imbalance prices for the control area.",
			Params:      []Param{country(), intParam("hours_back", 24, "Hours of data to fetch")},
			invoke: func(ctx context.Context, a args) any {
				return s.ImbalancePrices(ctx, a.CountryCode, a.HoursBack)
			},
		},
		{
			Name:        "get_unavailability_production_units",
			Description: "Planned and forced outages of generation units.",
			Params:      []Param{country(), intParam("days_back", 7, "Days of data to fetch, at most 30")},
			invoke: func(ctx context.Context, a args) any {
				return s.Unavailability(ctx, a.CountryCode, a.DaysBack)
			},
		},
		{
			Name:        "get_supported_countries",
			Description: "Supported country codes and names.",
			invoke: func(context.Context, args) any {
				return market.SupportedCountries()
			},
		},
		{
			Name:        "get_entsoe_api_info",
			Description: "Platform endpoint, document and process type codes, and token status.",
			invoke: func(context.Context, args) any {
				return s.APIInfo()
			},
		},
		{
			Name:        "debug_entsoe_request",
			Description: "Show the exact request parameters for a product without sending the request.",
			Params: []Param{
				country(),
				{Name: "data_type", Type: "string", Default: "load", Description: "Product id or alias, e.g. load, prices, flows"},
				{Name: "to_country", Type: "string", Description: "Destination country for flows"},
			},
			invoke: func(_ context.Context, a args) any {
				return s.DebugRequest(a.CountryCode, a.DataType, a.ToCountry)
			},
		},
		{
			Name:        "get_country_electricity_overview",
			Description: "Load, generation and price summary for one country.",
			Params:      []Param{country(), intParam("hours_back", 24, "Hours of load and generation data")},
			invoke: func(ctx context.Context, a args) any {
				return s.Overview(ctx, a.CountryCode, a.HoursBack)
			},
		},
		{
			Name:        "compare_country_electricity",
			Description: "Compare average load, generation and prices between countries.",
			Params: []Param{
				{Name: "countries", Type: "array", Required: true, Description: "Country codes to compare"},
				intParam("hours_back", 24, "Hours of data per country"),
			},
			invoke: func(ctx context.Context, a args) any {
				return s.Compare(ctx, a.Countries, a.HoursBack)
			},
		},
		{
			Name:        "analyze_cross_border_electricity_flows",
			Description: "Flow summaries for several country pairs.",
			Params: []Param{
				{Name: "country_pairs", Type: "array", Required: true, Description: "Pairs such as [[\"DE\",\"FR\"],[\"FR\",\"ES\"]]"},
				intParam("hours_back", 24, "Hours of data per pair"),
			},
			invoke: func(ctx context.Context, a args) any {
				raw := make([]string, 0, len(a.CountryPairs))
				for _, p := range a.CountryPairs {
					if len(p) != 2 {
						raw = append(raw, fmt.Sprint(p))
						continue
					}
					raw = append(raw, p[0]+"-"+p[1])
				}
				pairs, skipped := market.ParsePairs(raw)
				fa := s.AnalyzeFlows(ctx, pairs, a.HoursBack)
				fa.Skipped = append(fa.Skipped, skipped...)
				return fa
			},
		},
		{
			Name:        "get_renewable_energy_forecast",
			Description: "Renewable forecast with a capacity factor summary.",
			Params:      []Param{country(), intParam("hours_ahead", 48, "Hours to forecast, at most 72")},
			invoke: func(ctx context.Context, a args) any {
				return s.RenewableOutlook(ctx, a.CountryCode, a.HoursAhead)
			},
		},
		{
			Name:        "get_electricity_market_insights",
			Description: "Cross-market insights, price and load analysis for several countries.",
			Params: []Param{
				{Name: "countries", Type: "array", Description: "Country codes, defaults to DE, FR, IT, ES and NL"},
				intParam("hours_back", 24, "Hours of data per country"),
			},
			invoke: func(ctx context.Context, a args) any {
				return s.MarketInsights(ctx, a.Countries, a.HoursBack)
			},
		},
	}
}
