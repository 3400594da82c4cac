package entsoe

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

// WireLayout is the periodStart/periodEnd format, in local time.
const WireLayout = "200601021504"

// DefaultTimezone is the civil timezone all windows are expressed in.
const DefaultTimezone = "Europe/Berlin"

// Window is an absolute [Start, End) request window.
type Window struct {
	Start      time.Time
	End        time.Time
	DelayHours int
	Shape      WindowShape
	Span       int
	TargetDate string // set for whole-day windows
}

func (w Window) PeriodStart() string { return w.Start.Format(WireLayout) }
func (w Window) PeriodEnd() string   { return w.End.Format(WireLayout) }

// Calculator turns relative spans into windows. It holds no mutable state,
// so one instance can be shared.
type Calculator struct {
	loc    *time.Location
	delays *DelayTable
	now    func() time.Time
}

type CalculatorOption func(*Calculator)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) CalculatorOption {
	return func(c *Calculator) { c.now = now }
}

func WithDelays(t *DelayTable) CalculatorOption {
	return func(c *Calculator) {
		if t != nil {
			c.delays = t
		}
	}
}

func WithLocation(loc *time.Location) CalculatorOption {
	return func(c *Calculator) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// NewCalculator builds a calculator in Europe/Berlin with the embedded delay table.
func NewCalculator(opts ...CalculatorOption) *Calculator {
	c := &Calculator{now: time.Now, delays: DefaultDelayTable()}
	for _, opt := range opts {
		opt(c)
	}
	if c.loc == nil {
		loc, err := time.LoadLocation(DefaultTimezone)
		if err != nil {
			panic(fmt.Errorf("load %s: %w", DefaultTimezone, err))
		}
		c.loc = loc
	}
	return c
}

func (c *Calculator) Location() *time.Location { return c.loc }
func (c *Calculator) Delays() *DelayTable     { return c.delays }

// Now returns the current instant in the calculator's timezone.
func (c *Calculator) Now() time.Time { return c.now().In(c.loc) }

// For computes the window for a product using the product's window shape.
// span is hours or days depending on the shape and must already be normalized.
func (c *Calculator) For(p Product, country string, span int) (Window, error) {
	switch p.Window {
	case WindowHoursBack:
		return c.HoursBack(p.ID, country, span)
	case WindowDayBack:
		return c.DayBack(p.ID, country, span)
	case WindowHoursAhead:
		return c.HoursAhead(p.ID, country, span)
	case WindowDaysAhead:
		return c.DaysAhead(p.ID, country, span)
	case WindowDaysSpan:
		return c.DaysSpan(p.ID, country, span)
	}
	return Window{}, invalidRequest("unknown window shape %s", p.Window)
}

// HoursBack: end = now - delay, start = end - hours, both on the hour.
func (c *Calculator) HoursBack(product ProductID, country string, hours int) (Window, error) {
	delay, err := c.lookup(product, country, hours)
	if err != nil {
		return Window{}, err
	}
	end := c.floorHour(c.Now().Add(-time.Duration(delay) * time.Hour))
	start := end.Add(-time.Duration(hours) * time.Hour)
	return Window{Start: start, End: end, DelayHours: delay, Shape: WindowHoursBack, Span: hours}, nil
}

// DayBack returns the whole local day (now - delay).date - (days-1).
func (c *Calculator) DayBack(product ProductID, country string, days int) (Window, error) {
	delay, err := c.lookup(product, country, days)
	if err != nil {
		return Window{}, err
	}
	ref := c.Now().Add(-time.Duration(delay) * time.Hour)
	start := time.Date(ref.Year(), ref.Month(), ref.Day()-(days-1), 0, 0, 0, 0, c.loc)
	end := start.AddDate(0, 0, 1)
	return Window{
		Start:      start,
		End:        end,
		DelayHours: delay,
		Shape:      WindowDayBack,
		Span:       days,
		TargetDate: start.Format("2006-01-02"),
	}, nil
}

// HoursAhead: start = now - forecast delay, end = start + hours, both on the hour.
func (c *Calculator) HoursAhead(product ProductID, country string, hours int) (Window, error) {
	delay, err := c.lookup(product, country, hours)
	if err != nil {
		return Window{}, err
	}
	start := c.floorHour(c.Now().Add(-time.Duration(delay) * time.Hour))
	end := start.Add(time.Duration(hours) * time.Hour)
	return Window{Start: start, End: end, DelayHours: delay, Shape: WindowHoursAhead, Span: hours}, nil
}

// DaysAhead starts at today's local midnight and spans whole days.
func (c *Calculator) DaysAhead(product ProductID, country string, days int) (Window, error) {
	delay, err := c.lookup(product, country, days)
	if err != nil {
		return Window{}, err
	}
	now := c.Now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, c.loc)
	end := start.AddDate(0, 0, days)
	return Window{Start: start, End: end, DelayHours: delay, Shape: WindowDaysAhead, Span: days}, nil
}

// DaysSpan ends at now - delay and reaches back whole days. The start is
// moved to local midnight and the end to 23:59 of its day.
func (c *Calculator) DaysSpan(product ProductID, country string, days int) (Window, error) {
	delay, err := c.lookup(product, country, days)
	if err != nil {
		return Window{}, err
	}
	ref := c.Now().Add(-time.Duration(delay) * time.Hour)
	from := ref.AddDate(0, 0, -days)
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, c.loc)
	end := time.Date(ref.Year(), ref.Month(), ref.Day(), 23, 59, 0, 0, c.loc)
	return Window{Start: start, End: end, DelayHours: delay, Shape: WindowDaysSpan, Span: days}, nil
}

func (c *Calculator) lookup(product ProductID, country string, span int) (int, error) {
	delay, err := c.delays.Hours(product, country)
	if err != nil {
		return 0, err
	}
	if span < 1 {
		return 0, invalidRequest("window span must be at least 1, got %d", span)
	}
	return delay, nil
}

// floorHour zeroes minutes and seconds. Central European offsets are whole
// hours, so truncating the absolute instant is the same as a local floor.
func (c *Calculator) floorHour(t time.Time) time.Time {
	return t.Truncate(time.Hour).In(c.loc)
}
