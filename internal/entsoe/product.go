package entsoe

import (
	"fmt"
	"sort"
)

// ProductID names one market data product served by the platform.
type ProductID string

const (
	ProductLoad               ProductID = "load"
	ProductGeneration         ProductID = "generation"
	ProductGenerationForecast ProductID = "generation_forecast"
	ProductDayAheadPrice      ProductID = "day_ahead_price"
	ProductCrossBorderFlow    ProductID = "cross_border_flow"
	ProductRenewableForecast  ProductID = "renewable_forecast"
	ProductImbalancePrice     ProductID = "imbalance_price"
	ProductUnavailability     ProductID = "unavailability"
)

// WindowShape selects how the calculator turns a relative span into a window.
type WindowShape int

const (
	WindowHoursBack  WindowShape = iota // rolling hours ending at now - delay
	WindowDayBack                       // one whole calendar day, N days back
	WindowHoursAhead                    // rolling hours starting at now - delay
	WindowDaysAhead                     // whole days starting at today's midnight
	WindowDaysSpan                      // whole days ending at now - delay
)

func (s WindowShape) String() string {
	switch s {
	case WindowHoursBack:
		return "hours_back"
	case WindowDayBack:
		return "days_back"
	case WindowHoursAhead:
		return "hours_ahead"
	case WindowDaysAhead:
		return "days_ahead"
	case WindowDaysSpan:
		return "days_span"
	default:
		return fmt.Sprintf("WindowShape(%d)", int(s))
	}
}

// DomainRole says which area a domain parameter receives.
type DomainRole int

const (
	RoleArea DomainRole = iota
	RoleFrom
	RoleTo
)

type DomainParam struct {
	Name string
	Role DomainRole
}

// Product is one row of the product table: the codes and parameter names
// needed to ask the platform for a product, and the window it is asked over.
type Product struct {
	ID           ProductID
	DataType     string
	Description  string
	DocumentType string
	ProcessType  string // empty means the parameter is not sent
	Domains      []DomainParam
	Window       WindowShape
	DefaultSpan  int
	MaxSpan      int  // 0 means unbounded
	RejectAbove  bool // reject spans above MaxSpan instead of capping them
	Unit         string
	ForecastType string
}

// Document type codes used by the platform.
var DocumentTypes = map[string]string{
	"load_actual":                 "A65",
	"generation_actual":           "A75",
	"generation_forecast":         "A71",
	"actual_generation":           "A73",
	"generation_per_unit":         "A74",
	"day_ahead_prices":            "A44",
	"cross_border_flows":          "A11",
	"wind_solar_forecast":         "A69",
	"imbalance_prices":            "A85",
	"balancing_energy":            "A86",
	"unavailability_generation":   "A77",
	"unavailability_transmission": "A78",
}

// Process type codes used by the platform.
var ProcessTypes = map[string]string{
	"day_ahead":               "A01",
	"intraday":                "A02",
	"realtime":                "A16",
	"week_ahead":              "A31",
	"month_ahead":             "A32",
	"year_ahead":              "A33",
	"synchronisation_process": "A39",
	"intraday_total":          "A18",
}

var products = map[ProductID]Product{
	ProductLoad: {
		ID:           ProductLoad,
		DataType:     "electricity_load",
		Description:  "Actual total load (consumption)",
		DocumentType: DocumentTypes["load_actual"],
		ProcessType:  ProcessTypes["realtime"],
		Domains:      []DomainParam{{Name: "outBiddingZone_Domain", Role: RoleArea}},
		Window:       WindowHoursBack,
		DefaultSpan:  6,
		Unit:         "MW",
	},
	ProductGeneration: {
		ID:           ProductGeneration,
		DataType:     "electricity_generation",
		Description:  "Actual generation per production type",
		DocumentType: DocumentTypes["generation_actual"],
		ProcessType:  ProcessTypes["realtime"],
		Domains:      []DomainParam{{Name: "in_Domain", Role: RoleArea}},
		Window:       WindowHoursBack,
		DefaultSpan:  6,
		Unit:         "MW",
	},
	ProductGenerationForecast: {
		ID:           ProductGenerationForecast,
		DataType:     "generation_forecast_day_ahead",
		Description:  "Day-ahead generation forecast",
		DocumentType: DocumentTypes["generation_forecast"],
		ProcessType:  ProcessTypes["day_ahead"],
		Domains:      []DomainParam{{Name: "in_Domain", Role: RoleArea}},
		Window:       WindowDaysAhead,
		DefaultSpan:  1,
		MaxSpan:      7,
		RejectAbove:  true,
		Unit:         "MW",
		ForecastType: "day_ahead",
	},
	ProductDayAheadPrice: {
		ID:           ProductDayAheadPrice,
		DataType:     "day_ahead_prices",
		Description:  "Day-ahead market prices",
		DocumentType: DocumentTypes["day_ahead_prices"],
		Domains: []DomainParam{
			{Name: "in_Domain", Role: RoleArea},
			{Name: "out_Domain", Role: RoleArea},
		},
		Window:      WindowDayBack,
		DefaultSpan: 1,
		Unit:        "EUR/MWh",
	},
	ProductCrossBorderFlow: {
		ID:           ProductCrossBorderFlow,
		DataType:     "cross_border_flows",
		Description:  "Physical cross-border flows",
		DocumentType: DocumentTypes["cross_border_flows"],
		Domains: []DomainParam{
			{Name: "in_Domain", Role: RoleFrom},
			{Name: "out_Domain", Role: RoleTo},
		},
		Window:      WindowHoursBack,
		DefaultSpan: 24,
		Unit:        "MW",
	},
	ProductRenewableForecast: {
		ID:           ProductRenewableForecast,
		DataType:     "renewable_forecast",
		Description:  "Wind and solar generation forecast",
		DocumentType: DocumentTypes["wind_solar_forecast"],
		ProcessType:  ProcessTypes["day_ahead"],
		Domains:      []DomainParam{{Name: "in_Domain", Role: RoleArea}},
		Window:       WindowHoursAhead,
		DefaultSpan:  48,
		MaxSpan:      72,
		Unit:         "MW",
		ForecastType: "day_ahead",
	},
	ProductImbalancePrice: {
		ID:           ProductImbalancePrice,
		DataType:     "imbalance_prices",
		Description:  "Imbalance prices",
		DocumentType: DocumentTypes["imbalance_prices"],
		ProcessType:  ProcessTypes["realtime"],
		Domains:      []DomainParam{{Name: "controlArea_Domain", Role: RoleArea}},
		Window:       WindowHoursBack,
		DefaultSpan:  24,
		Unit:         "EUR/MWh",
	},
	ProductUnavailability: {
		ID:           ProductUnavailability,
		DataType:     "unavailability_production_units",
		Description:  "Unavailability of generation units (planned and forced outages)",
		DocumentType: DocumentTypes["unavailability_generation"],
		Domains:      []DomainParam{{Name: "biddingZone_Domain", Role: RoleArea}},
		Window:       WindowDaysSpan,
		DefaultSpan:  7,
		MaxSpan:      30,
		Unit:         "MW",
	},
}

// LookupProduct returns the table row for id.
func LookupProduct(id ProductID) (Product, error) {
	p, ok := products[id]
	if !ok {
		return Product{}, invalidRequest("Unsupported data type: %s", id)
	}
	return p, nil
}

// Products lists the product table sorted by id.
func Products() []Product {
	out := make([]Product, 0, len(products))
	for _, p := range products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ProductIDs lists product ids sorted.
func ProductIDs() []ProductID {
	ps := Products()
	out := make([]ProductID, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

// NormalizeSpan substitutes the product default for a zero span and applies
// the product maximum, either capping or rejecting.
func (p Product) NormalizeSpan(span int) (int, error) {
	if span < 0 {
		return 0, invalidRequest("%s must be a positive integer", p.Window)
	}
	if span == 0 {
		span = p.DefaultSpan
	}
	if p.MaxSpan > 0 && span > p.MaxSpan {
		if p.RejectAbove {
			return 0, invalidRequest("%s must be an integer between 1 and %d", p.Window, p.MaxSpan)
		}
		span = p.MaxSpan
	}
	return span, nil
}

// IsForecast reports whether the product looks forward from now.
func (p Product) IsForecast() bool {
	return p.Window == WindowHoursAhead || p.Window == WindowDaysAhead
}
