package entsoe

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed delays.yaml
var defaultDelaysYAML []byte

// DelayTable holds publication delays in hours keyed by (product, country).
// Every product in the product table has an entry for every supported country.
type DelayTable struct {
	hours map[ProductID]map[string]int
}

type delayFile struct {
	Products map[string]delayRow `yaml:"products"`
}

type delayRow struct {
	Default   *int           `yaml:"default"`
	Overrides map[string]int `yaml:"overrides"`
}

// DefaultDelayTable returns the table compiled into the binary.
func DefaultDelayTable() *DelayTable {
	t, err := ParseDelayTable(defaultDelaysYAML)
	if err != nil {
		panic(fmt.Errorf("embedded delay table invalid: %w", err))
	}
	return t
}

// LoadDelayTable reads a delay table from a YAML file.
func LoadDelayTable(path string) (*DelayTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read delay table: %w", err)
	}
	return ParseDelayTable(raw)
}

// ParseDelayTable decodes and resolves a delay table. It fails when a product
// has no default, or when a product or country is unknown, so the resolved
// table is total over products x countries.
func ParseDelayTable(raw []byte) (*DelayTable, error) {
	var f delayFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse delay table: %w", err)
	}

	var problems []string
	for name := range f.Products {
		if _, ok := products[ProductID(name)]; !ok {
			problems = append(problems, fmt.Sprintf("unknown product %q", name))
		}
	}

	t := &DelayTable{hours: make(map[ProductID]map[string]int, len(products))}
	for _, id := range ProductIDs() {
		row, ok := f.Products[string(id)]
		if !ok || row.Default == nil {
			problems = append(problems, fmt.Sprintf("product %q has no default delay", id))
			continue
		}
		if *row.Default < 0 {
			problems = append(problems, fmt.Sprintf("product %q has a negative default delay", id))
		}
		byCountry := make(map[string]int, len(areas))
		for _, a := range areas {
			byCountry[a.Country] = *row.Default
		}
		for cc, h := range row.Overrides {
			cc = NormalizeCountry(cc)
			if _, ok := areasByCountry[cc]; !ok {
				problems = append(problems, fmt.Sprintf("product %q overrides unknown country %q", id, cc))
				continue
			}
			if h < 0 {
				problems = append(problems, fmt.Sprintf("product %q has a negative delay for %s", id, cc))
			}
			byCountry[cc] = h
		}
		t.hours[id] = byCountry
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return nil, errors.New("invalid delay table: " + strings.Join(problems, "; "))
	}
	return t, nil
}

// Hours returns the publication delay for a product in a country.
func (t *DelayTable) Hours(product ProductID, country string) (int, error) {
	a, err := LookupArea(country)
	if err != nil {
		return 0, err
	}
	row, ok := t.hours[product]
	if !ok {
		return 0, invalidRequest("Unsupported data type: %s", product)
	}
	return row[a.Country], nil
}

// Set overrides a single entry. It is meant for tests and tooling.
func (t *DelayTable) Set(product ProductID, country string, hours int) {
	if t.hours[product] == nil {
		t.hours[product] = map[string]int{}
	}
	t.hours[product][NormalizeCountry(country)] = hours
}

// Row returns a copy of the per-country delays of one product.
func (t *DelayTable) Row(product ProductID) map[string]int {
	out := make(map[string]int, len(t.hours[product]))
	for k, v := range t.hours[product] {
		out[k] = v
	}
	return out
}
