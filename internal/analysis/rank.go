package analysis

import "sort"

type Ranked struct {
	Rank    int     `json:"rank"`
	Country string  `json:"country"`
	Value   float64 `json:"value"`
}

// RankCountries sorts a country->value map descending by value.
// Ties are broken by country code so the order is stable.
func RankCountries(byCountry map[string]float64) []Ranked {
	out := make([]Ranked, 0, len(byCountry))
	for cc, v := range byCountry {
		out = append(out, Ranked{Country: cc, Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Country < out[j].Country
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// Spread summarizes one metric across countries.
type Spread struct {
	Highest string  `json:"highest_country"`
	Lowest  string  `json:"lowest_country"`
	Range   float64 `json:"spread"`
	Total   float64 `json:"total"`
	Average float64 `json:"average"`
	Error   string  `json:"error,omitempty"`
}

// CompareAcross returns the highest/lowest country, the spread between them,
// and the total and average of the per-country values.
func CompareAcross(byCountry map[string]float64, label string) Spread {
	if len(byCountry) == 0 {
		return Spread{Error: "No " + label + " data available"}
	}
	ranked := RankCountries(byCountry)
	total := 0.0
	for _, r := range ranked {
		total += r.Value
	}
	hi, lo := ranked[0], ranked[len(ranked)-1]
	return Spread{
		Highest: hi.Country,
		Lowest:  lo.Country,
		Range:   hi.Value - lo.Value,
		Total:   total,
		Average: Round(total/float64(len(ranked)), 2),
	}
}
