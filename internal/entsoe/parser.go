package entsoe

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"entsoe-agent/internal/model"

	"github.com/beevik/etree"
	"go.uber.org/zap"
)

const snippetLimit = 500

// Namespaces tried after the root element's own namespace yields no TimeSeries.
var FallbackNamespaces = []string{
	"urn:iec62325.351:tc57wg16:451-6:generationloaddocument:3:0",
	"urn:iec62325.351:tc57wg16:451-3:publicationdocument:7:0",
	"urn:iec62325.351:tc57wg16:451-6:publicationdocument:7:0",
}

// ParseResult is either a success carrying the flattened points, or an
// error built from an acknowledgement document.
type ParseResult struct {
	Status      model.Status
	DataPoints  []model.DataPoint
	TotalPoints int
	Error       string
	ReasonCode  string
	Namespace   string
}

// Parser flattens market documents into data points.
type Parser struct {
	logger *zap.Logger
}

func NewParser(logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{logger: logger}
}

// Parse reads one XML document. Malformed XML is returned as a
// malformed_document *Error carrying at most 500 characters of the input.
// A well-formed acknowledgement document is not an error: it yields a
// ParseResult with StatusError and no points.
func (p *Parser) Parse(raw []byte) (*ParseResult, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, &Error{
			Kind:    KindMalformedDocument,
			Message: fmt.Sprintf("XML parsing failed: %v", err),
			Snippet: truncate(string(raw), snippetLimit),
			Err:     err,
		}
	}
	root := doc.Root()
	if root == nil {
		return nil, &Error{
			Kind:    KindMalformedDocument,
			Message: "XML parsing failed: no root element",
			Snippet: truncate(string(raw), snippetLimit),
		}
	}

	if strings.Contains(root.Tag, "Acknowledgement_MarketDocument") {
		return acknowledgement(root), nil
	}

	ns, series := p.timeSeries(root)
	points := make([]model.DataPoint, 0)
	for _, ts := range series {
		points = append(points, p.flattenSeries(ts, ns)...)
	}

	p.logger.Debug("parsed market document",
		zap.String("root", root.Tag),
		zap.String("namespace", ns),
		zap.Int("series", len(series)),
		zap.Int("points", len(points)))

	return &ParseResult{
		Status:      model.StatusSuccess,
		DataPoints:  points,
		TotalPoints: len(points),
		Namespace:   ns,
	}, nil
}

func acknowledgement(root *etree.Element) *ParseResult {
	code, text := "Unknown", "No error message"
	if reason := firstDescendant(root, "Reason"); reason != nil {
		if el := firstDescendant(reason, "code"); el != nil {
			code = strings.TrimSpace(el.Text())
		}
		if el := firstDescendant(reason, "text"); el != nil {
			text = strings.TrimSpace(el.Text())
		}
	}
	return &ParseResult{
		Status:     model.StatusError,
		DataPoints: []model.DataPoint{},
		Error:      fmt.Sprintf("ENTSO-E API Error %s: %s", code, text),
		ReasonCode: code,
	}
}

// timeSeries resolves the document namespace: the root's own first, then the
// fallbacks, stopping at the first one that has TimeSeries elements.
func (p *Parser) timeSeries(root *etree.Element) (string, []*etree.Element) {
	rootNS := root.NamespaceURI()
	candidates := []string{rootNS}
	for _, ns := range FallbackNamespaces {
		if ns != rootNS {
			candidates = append(candidates, ns)
		}
	}
	for i, ns := range candidates {
		found := descendantsNamed(root, "TimeSeries", ns)
		if len(found) > 0 {
			if i > 0 {
				p.logger.Debug("time series found under fallback namespace",
					zap.String("root_namespace", rootNS), zap.String("namespace", ns))
			}
			return ns, found
		}
	}
	return rootNS, nil
}

func (p *Parser) flattenSeries(ts *etree.Element, ns string) []model.DataPoint {
	meta := seriesMetadata(ts)
	var out []model.DataPoint
	for _, period := range childrenNamed(ts, "Period", ns) {
		start, err := periodStart(period, ns)
		if err != nil {
			p.logger.Warn("skipping period without a usable start",
				zap.String("series", meta.MRID), zap.Error(err))
			continue
		}
		res := ResolutionMinutes(childText(period, "resolution", ns))

		for _, pt := range childrenNamed(period, "Point", ns) {
			raw := childText(pt, "position", ns)
			pos, err := strconv.Atoi(raw)
			if err != nil || pos < 1 {
				p.logger.Debug("dropping point with invalid position", zap.String("position", raw))
				continue
			}
			value, unit, ok := pointValue(pt, ns, meta)
			if !ok {
				continue
			}
			out = append(out, model.DataPoint{
				Timestamp:  PointTimestamp(start, pos, res),
				Position:   pos,
				Value:      value,
				Unit:       unit,
				Resolution: res,
				Metadata:   meta,
			})
		}
	}
	return out
}

// PointTimestamp is start + (position-1) * resolution minutes.
func PointTimestamp(start time.Time, position, resolutionMinutes int) time.Time {
	return start.Add(time.Duration(position-1) * time.Duration(resolutionMinutes) * time.Minute)
}

// ResolutionMinutes maps an ISO-8601 duration token to minutes by substring.
// Anything unrecognized is treated as hourly.
func ResolutionMinutes(token string) int {
	switch {
	case strings.Contains(token, "PT15M"):
		return 15
	case strings.Contains(token, "PT30M"):
		return 30
	case strings.Contains(token, "PT1H"), strings.Contains(token, "PT60M"):
		return 60
	default:
		return 60
	}
}

var timestampLayouts = []string{
	"2006-01-02T15:04-07:00",
	"2006-01-02T15:04:05-07:00",
	time.RFC3339Nano,
}

// ParseTimestamp accepts the platform's minute-precision ISO-8601 stamps.
// A trailing Z is normalized to +00:00 first.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "Z") {
		s = strings.TrimSuffix(s, "Z") + "+00:00"
	}
	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func periodStart(period *etree.Element, ns string) (time.Time, error) {
	ti := childNamed(period, "timeInterval", ns)
	if ti == nil {
		return time.Time{}, fmt.Errorf("period has no timeInterval")
	}
	start := childNamed(ti, "start", ns)
	if start == nil {
		return time.Time{}, fmt.Errorf("timeInterval has no start")
	}
	return ParseTimestamp(start.Text())
}

// pointValue reads quantity, falling back to price.amount.
func pointValue(pt *etree.Element, ns string, meta *model.SeriesMetadata) (float64, string, bool) {
	if q := childNamed(pt, "quantity", ns); q != nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(q.Text()), 64); err == nil {
			unit := meta.Unit
			if unit == "" {
				unit = "MW"
			}
			return v, unit, true
		}
	}
	if pa := childNamed(pt, "price.amount", ns); pa != nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(pa.Text()), 64); err == nil {
			return v, priceUnit(meta), true
		}
	}
	return 0, "", false
}

func priceUnit(meta *model.SeriesMetadata) string {
	currency := meta.Currency
	if currency == "" {
		currency = "EUR"
	}
	energy := meta.PriceUnit
	if energy == "" {
		energy = meta.Unit
	}
	if energy == "" {
		energy = "MWh"
	}
	return currency + "/" + energy
}

// seriesMetadata scans the direct children of a TimeSeries by local name.
// Unrecognized children are ignored.
func seriesMetadata(ts *etree.Element) *model.SeriesMetadata {
	m := &model.SeriesMetadata{}
	for _, el := range ts.ChildElements() {
		text := strings.TrimSpace(el.Text())
		switch el.Tag {
		case "mRID":
			m.MRID = text
		case "businessType":
			m.BusinessType = text
		case "objectAggregation":
			m.ObjectAggregation = text
		case "in_Domain.mRID", "inBiddingZone_Domain.mRID", "biddingZone_Domain.mRID":
			m.InDomain = text
		case "out_Domain.mRID", "outBiddingZone_Domain.mRID":
			m.OutDomain = text
		case "quantity_Measure_Unit.name":
			m.Unit = text
		case "price_Measure_Unit.name":
			m.PriceUnit = text
		case "currency_Unit.name":
			m.Currency = text
		case "registeredResource.mRID":
			m.RegisteredResource = text
		case "MktPSRType":
			if psr := firstDescendant(el, "psrType"); psr != nil {
				m.PSRType = strings.TrimSpace(psr.Text())
			}
		}
	}
	return m
}

func childNamed(el *etree.Element, local, ns string) *etree.Element {
	for _, c := range el.ChildElements() {
		if c.Tag == local && c.NamespaceURI() == ns {
			return c
		}
	}
	return nil
}

func childrenNamed(el *etree.Element, local, ns string) []*etree.Element {
	var out []*etree.Element
	for _, c := range el.ChildElements() {
		if c.Tag == local && c.NamespaceURI() == ns {
			out = append(out, c)
		}
	}
	return out
}

func childText(el *etree.Element, local, ns string) string {
	c := childNamed(el, local, ns)
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.Text())
}

// descendantsNamed walks the subtree in document order.
func descendantsNamed(el *etree.Element, local, ns string) []*etree.Element {
	var out []*etree.Element
	for _, c := range el.ChildElements() {
		if c.Tag == local && c.NamespaceURI() == ns {
			out = append(out, c)
		}
		out = append(out, descendantsNamed(c, local, ns)...)
	}
	return out
}

// firstDescendant matches on local name in any namespace.
func firstDescendant(el *etree.Element, local string) *etree.Element {
	for _, c := range el.ChildElements() {
		if c.Tag == local {
			return c
		}
		if found := firstDescendant(c, local); found != nil {
			return found
		}
	}
	return nil
}
