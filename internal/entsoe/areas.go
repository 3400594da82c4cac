package entsoe

import (
	"fmt"
	"strings"
)

// Area is a country's bidding zone as the transparency platform knows it.
type Area struct {
	Country string `json:"country" yaml:"country"` // two-letter code, e.g. "DE"
	Name    string `json:"name" yaml:"name"`
	Code    string `json:"code" yaml:"code"` // EIC area code
}

var areas = []Area{
	{Country: "DE", Name: "Germany", Code: "10Y1001A1001A83F"},
	{Country: "FR", Name: "France", Code: "10YFR-RTE------C"},
	{Country: "IT", Name: "Italy", Code: "10YIT-GRTN-----B"},
	{Country: "ES", Name: "Spain", Code: "10YES-REE------0"},
	{Country: "NL", Name: "Netherlands", Code: "10YNL----------L"},
	{Country: "BE", Name: "Belgium", Code: "10YBE----------2"},
	{Country: "AT", Name: "Austria", Code: "10YAT-APG------L"},
	{Country: "CH", Name: "Switzerland", Code: "10YCH-SWISSGRIDZ"},
	{Country: "PL", Name: "Poland", Code: "10YPL-AREA-----S"},
	{Country: "CZ", Name: "Czech Republic", Code: "10YCZ-CEPS-----N"},
	{Country: "DK", Name: "Denmark", Code: "10Y1001A1001A65H"},
	{Country: "SE", Name: "Sweden", Code: "10YSE-1--------K"},
	{Country: "NO", Name: "Norway", Code: "10YNO-0--------C"},
	{Country: "FI", Name: "Finland", Code: "10YFI-1--------U"},
	{Country: "GB", Name: "Great Britain", Code: "10Y1001A1001A92E"},
	{Country: "IE", Name: "Ireland", Code: "10YIE-1001A00010"},
	{Country: "PT", Name: "Portugal", Code: "10YPT-REN------W"},
}

var areasByCountry = func() map[string]Area {
	m := make(map[string]Area, len(areas))
	for _, a := range areas {
		m[a.Country] = a
	}
	return m
}()

// LookupArea resolves a two-letter country code, case-insensitively.
func LookupArea(country string) (Area, error) {
	cc := NormalizeCountry(country)
	a, ok := areasByCountry[cc]
	if !ok {
		return Area{}, &Error{
			Kind:    KindUnsupportedCountry,
			Message: fmt.Sprintf("Unsupported country code: %s", country),
		}
	}
	return a, nil
}

func NormalizeCountry(country string) string {
	return strings.ToUpper(strings.TrimSpace(country))
}

// Areas returns every supported area in registry order.
func Areas() []Area {
	out := make([]Area, len(areas))
	copy(out, areas)
	return out
}

// SupportedCountries returns the supported two-letter codes in registry order.
func SupportedCountries() []string {
	out := make([]string, 0, len(areas))
	for _, a := range areas {
		out = append(out, a.Country)
	}
	return out
}
