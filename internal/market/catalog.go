package market

import (
	"strings"
	"time"

	"entsoe-agent/internal/entsoe"
	"entsoe-agent/internal/model"
)

type CountryList struct {
	SupportedCountries map[string]string `json:"supported_countries"`
	CountryCodes       []string          `json:"country_codes"`
	TotalCountries     int               `json:"total_countries"`
	Status             model.Status      `json:"status"`
}

func SupportedCountries() CountryList {
	names := map[string]string{}
	for _, a := range entsoe.Areas() {
		names[a.Country] = a.Name
	}
	codes := entsoe.SupportedCountries()
	return CountryList{
		SupportedCountries: names,
		CountryCodes:       codes,
		TotalCountries:     len(codes),
		Status:             model.StatusSuccess,
	}
}

type ProductInfo struct {
	ID           entsoe.ProductID `json:"id"`
	Description  string           `json:"description"`
	DocumentType string           `json:"document_type"`
	ProcessType  string           `json:"process_type,omitempty"`
	Window       string           `json:"window"`
	DefaultSpan  int              `json:"default_span"`
	MaxSpan      int              `json:"max_span,omitempty"`
	Forecast     bool             `json:"forecast"`
	DelayHours   map[string]int   `json:"delay_hours"`
}

type APIInfo struct {
	APIName             string            `json:"api_name"`
	Description         string            `json:"description"`
	BaseURL             string            `json:"base_url"`
	Documentation       string            `json:"documentation"`
	RegistrationURL     string            `json:"registration_url"`
	DocumentTypes       map[string]string `json:"document_types"`
	ProcessTypes        map[string]string `json:"process_types"`
	Products            []ProductInfo     `json:"products"`
	SupportedCountries  []string          `json:"supported_countries"`
	APITokenRequired    bool              `json:"api_token_required"`
	APITokenSet         bool              `json:"api_token_set"`
	EnvironmentVariable []string          `json:"environment_variables"`
	Timezone            string            `json:"timezone"`
	Status              model.Status      `json:"status"`
}

func (s *Service) APIInfo() APIInfo {
	ps := entsoe.Products()
	infos := make([]ProductInfo, 0, len(ps))
	for _, p := range ps {
		infos = append(infos, ProductInfo{
			ID:           p.ID,
			Description:  p.Description,
			DocumentType: p.DocumentType,
			ProcessType:  p.ProcessType,
			Window:       p.Window.String(),
			DefaultSpan:  p.DefaultSpan,
			MaxSpan:      p.MaxSpan,
			Forecast:     p.IsForecast(),
			DelayHours:   s.calc.Delays().Row(p.ID),
		})
	}
	return APIInfo{
		APIName:             "ENTSO-E Transparency Platform API",
		Description:         "European electricity market data including generation, consumption, prices, and flows",
		BaseURL:             s.BaseURL,
		Documentation:       "https://documenter.getpostman.com/view/7009892/2s93JtP3F6",
		RegistrationURL:     "https://transparency.entsoe.eu/",
		DocumentTypes:       entsoe.DocumentTypes,
		ProcessTypes:        entsoe.ProcessTypes,
		Products:            infos,
		SupportedCountries:  entsoe.SupportedCountries(),
		APITokenRequired:    true,
		APITokenSet:         s.fetcher != nil && s.fetcher.HasToken(),
		EnvironmentVariable: entsoe.TokenEnvVars,
		Timezone:            s.calc.Location().String(),
		Status:              model.StatusSuccess,
	}
}

type DebugInfo struct {
	Country           string            `json:"country,omitempty"`
	ToCountry         string            `json:"to_country,omitempty"`
	DataType          string            `json:"data_type"`
	AreaCode          string            `json:"area_code,omitempty"`
	RequestParameters map[string]string `json:"request_parameters,omitempty"`
	BaseURL           string            `json:"base_url,omitempty"`
	FullURLExample    string            `json:"full_url_example,omitempty"`
	PeriodStart       time.Time         `json:"period_start,omitempty"`
	PeriodEnd         time.Time         `json:"period_end,omitempty"`
	DelayHours        int               `json:"data_delay_hours"`
	APITokenSet       bool              `json:"api_token_set"`
	Status            model.Status      `json:"status"`
	Error             string            `json:"error,omitempty"`
	ErrorKind         model.ErrorKind   `json:"error_kind,omitempty"`
	SupportedTypes    []string          `json:"supported_types,omitempty"`
	Supported         []string          `json:"supported_countries,omitempty"`
}

var dataTypeAliases = map[string]entsoe.ProductID{
	"prices":     entsoe.ProductDayAheadPrice,
	"price":      entsoe.ProductDayAheadPrice,
	"flows":      entsoe.ProductCrossBorderFlow,
	"flow":       entsoe.ProductCrossBorderFlow,
	"renewables": entsoe.ProductRenewableForecast,
	"imbalance":  entsoe.ProductImbalancePrice,
	"outages":    entsoe.ProductUnavailability,
}

// ResolveProduct accepts a product id or one of the short aliases.
func ResolveProduct(dataType string) (entsoe.ProductID, bool) {
	key := strings.ToLower(strings.TrimSpace(dataType))
	if id, ok := dataTypeAliases[key]; ok {
		return id, true
	}
	if _, err := entsoe.LookupProduct(entsoe.ProductID(key)); err == nil {
		return entsoe.ProductID(key), true
	}
	return "", false
}

// DebugRequest shows the parameters a product request would send, without
// sending it. toCountry is only used for cross-border flows.
func (s *Service) DebugRequest(country, dataType, toCountry string) DebugInfo {
	info := DebugInfo{
		Country:     entsoe.NormalizeCountry(country),
		DataType:    strings.ToLower(dataType),
		APITokenSet: s.fetcher != nil && s.fetcher.HasToken(),
	}
	fail := func(err error) DebugInfo {
		info.Status = model.StatusError
		info.Error = err.Error()
		info.ErrorKind = entsoe.KindOf(err)
		if info.ErrorKind == model.KindUnsupportedCountry {
			info.Supported = entsoe.SupportedCountries()
		}
		return info
	}

	area, err := entsoe.LookupArea(country)
	if err != nil {
		return fail(err)
	}
	info.AreaCode = area.Code

	id, ok := ResolveProduct(dataType)
	if !ok {
		info.SupportedTypes = productNames()
		return fail(&entsoe.Error{Kind: entsoe.KindInvalidRequest, Message: "Unsupported data type: " + dataType})
	}
	p, _ := entsoe.LookupProduct(id)
	info.DataType = string(id)

	to := area
	if id == entsoe.ProductCrossBorderFlow {
		to, err = entsoe.LookupArea(toCountry)
		if err != nil {
			return fail(err)
		}
		if to.Country == area.Country {
			return fail(&entsoe.Error{Kind: entsoe.KindInvalidRequest, Message: "Cannot get cross-border flows for the same country"})
		}
		info.ToCountry = to.Country
	}

	span, _ := p.NormalizeSpan(0)
	w, err := s.calc.For(p, area.Country, span)
	if err != nil {
		return fail(err)
	}
	params := entsoe.BuildParams(p, area, area, to, w)
	info.RequestParameters = make(map[string]string, len(params))
	for k := range params {
		info.RequestParameters[k] = params.Get(k)
	}
	info.BaseURL = s.BaseURL
	info.FullURLExample = entsoe.ExampleURL(s.BaseURL, params)
	info.PeriodStart = w.Start
	info.PeriodEnd = w.End
	info.DelayHours = w.DelayHours
	info.Status = model.StatusSuccess
	return info
}
