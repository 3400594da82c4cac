package entsoe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func berlin(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(DefaultTimezone)
	require.NoError(t, err)
	return loc
}

func fixedCalculator(t *testing.T, now time.Time, opts ...CalculatorOption) *Calculator {
	t.Helper()
	opts = append([]CalculatorOption{
		WithClock(func() time.Time { return now }),
		WithLocation(now.Location()),
	}, opts...)
	return NewCalculator(opts...)
}

func assertInstant(t *testing.T, want, got time.Time) {
	t.Helper()
	assert.True(t, want.Equal(got), "want %s, got %s", want, got)
	assert.Equal(t, want.Format(time.RFC3339), got.Format(time.RFC3339))
}

func TestHoursBack_AppliesDelayAndFloors(t *testing.T) {
	loc := berlin(t)
	delays := DefaultDelayTable()
	delays.Set(ProductLoad, "DE", 2)
	calc := fixedCalculator(t, time.Date(2024, 1, 15, 10, 37, 12, 0, loc), WithDelays(delays))

	w, err := calc.HoursBack(ProductLoad, "de", 24)
	require.NoError(t, err)

	assertInstant(t, time.Date(2024, 1, 15, 8, 0, 0, 0, loc), w.End)
	assertInstant(t, time.Date(2024, 1, 14, 8, 0, 0, 0, loc), w.Start)
	assert.Equal(t, 2, w.DelayHours)
	assert.Equal(t, WindowHoursBack, w.Shape)
	assert.Equal(t, "202401140800", w.PeriodStart())
	assert.Equal(t, "202401150800", w.PeriodEnd())
	assert.True(t, w.Start.Before(w.End))
}

func TestDayBack_WholeDay(t *testing.T) {
	loc := berlin(t)
	calc := fixedCalculator(t, time.Date(2024, 3, 2, 10, 0, 0, 0, loc))

	w, err := calc.DayBack(ProductDayAheadPrice, "DE", 1)
	require.NoError(t, err)

	assert.Equal(t, "2024-03-01", w.TargetDate)
	assertInstant(t, time.Date(2024, 3, 1, 0, 0, 0, 0, loc), w.Start)
	assertInstant(t, time.Date(2024, 3, 2, 0, 0, 0, 0, loc), w.End)
	assert.Equal(t, 24, w.DelayHours)
	assert.Equal(t, "202403010000", w.PeriodStart())
	assert.Equal(t, "202403020000", w.PeriodEnd())
}

func TestDayBack_CountryDelayAndDaysBack(t *testing.T) {
	loc := berlin(t)
	calc := fixedCalculator(t, time.Date(2024, 3, 2, 13, 0, 0, 0, loc))

	// Italy publishes 12 hours after the fact
	w, err := calc.DayBack(ProductDayAheadPrice, "IT", 1)
	require.NoError(t, err)
	assert.Equal(t, 12, w.DelayHours)
	assert.Equal(t, "2024-03-02", w.TargetDate)

	w, err = calc.DayBack(ProductDayAheadPrice, "FR", 3)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-28", w.TargetDate)
	assert.Equal(t, 24*time.Hour, w.End.Sub(w.Start))
}

func TestDayBack_DaylightSavingDay(t *testing.T) {
	loc := berlin(t)
	calc := fixedCalculator(t, time.Date(2024, 4, 1, 10, 0, 0, 0, loc))

	w, err := calc.DayBack(ProductDayAheadPrice, "DE", 1)
	require.NoError(t, err)

	assert.Equal(t, "2024-03-31", w.TargetDate)
	assert.Equal(t, 23*time.Hour, w.End.Sub(w.Start))
	assert.Equal(t, "202403310000", w.PeriodStart())
	assert.Equal(t, "202404010000", w.PeriodEnd())
}

func TestHoursAhead(t *testing.T) {
	loc := berlin(t)
	calc := fixedCalculator(t, time.Date(2024, 1, 15, 10, 37, 0, 0, loc))

	w, err := calc.HoursAhead(ProductRenewableForecast, "DK", 48)
	require.NoError(t, err)

	assert.Equal(t, 4, w.DelayHours)
	assertInstant(t, time.Date(2024, 1, 15, 6, 0, 0, 0, loc), w.Start)
	assertInstant(t, time.Date(2024, 1, 17, 6, 0, 0, 0, loc), w.End)
}

func TestDaysAhead(t *testing.T) {
	loc := berlin(t)
	calc := fixedCalculator(t, time.Date(2024, 1, 15, 10, 37, 0, 0, loc))

	w, err := calc.DaysAhead(ProductGenerationForecast, "ES", 2)
	require.NoError(t, err)

	assertInstant(t, time.Date(2024, 1, 15, 0, 0, 0, 0, loc), w.Start)
	assertInstant(t, time.Date(2024, 1, 17, 0, 0, 0, 0, loc), w.End)
}

func TestDaysSpan(t *testing.T) {
	loc := berlin(t)
	calc := fixedCalculator(t, time.Date(2024, 1, 15, 10, 37, 0, 0, loc))

	w, err := calc.DaysSpan(ProductUnavailability, "DE", 7)
	require.NoError(t, err)

	assert.Equal(t, 72, w.DelayHours)
	assertInstant(t, time.Date(2024, 1, 5, 0, 0, 0, 0, loc), w.Start)
	assertInstant(t, time.Date(2024, 1, 12, 23, 59, 0, 0, loc), w.End)
	assert.Equal(t, "202401122359", w.PeriodEnd())
}

func TestCalculator_UnsupportedCountry(t *testing.T) {
	calc := fixedCalculator(t, time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC))

	for _, p := range Products() {
		w, err := calc.For(p, "XX", p.DefaultSpan)
		require.Error(t, err, p.ID)
		assert.Equal(t, KindUnsupportedCountry, KindOf(err))
		assert.Equal(t, Window{}, w)
	}
}

func TestCalculator_RejectsEmptySpan(t *testing.T) {
	calc := fixedCalculator(t, time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC))

	_, err := calc.HoursBack(ProductLoad, "DE", 0)
	assert.Equal(t, KindInvalidRequest, KindOf(err))
}

func TestCalculator_StartBeforeEnd(t *testing.T) {
	loc := berlin(t)
	// walk across both daylight saving transitions of 2024
	for _, now := range []time.Time{
		time.Date(2024, 3, 31, 1, 30, 0, 0, loc),
		time.Date(2024, 3, 31, 3, 30, 0, 0, loc),
		time.Date(2024, 10, 27, 2, 30, 0, 0, loc),
		time.Date(2024, 10, 27, 23, 59, 0, 0, loc),
		time.Date(2024, 12, 31, 23, 0, 0, 0, loc),
	} {
		calc := fixedCalculator(t, now)
		for _, p := range Products() {
			for _, span := range []int{1, 2, 7, 24} {
				w, err := calc.For(p, "DE", span)
				require.NoError(t, err)
				assert.True(t, w.Start.Before(w.End), "%s span %d at %s: %s >= %s", p.ID, span, now, w.Start, w.End)
				assert.Equal(t, loc, w.Start.Location())
			}
		}
	}
}
