// Performance Metrics Unit Tests
package metrics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guitrading/tearsheet/pkg/series"
)

func makeReturns(values []float64, step time.Duration) series.ReturnSeries {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	returns := make(series.ReturnSeries, len(values))
	for i, v := range values {
		returns[i] = series.Point{Time: base.Add(time.Duration(i+1) * step), Value: v}
	}
	return returns
}

func TestComputeEmpty(t *testing.T) {
	_, err := Compute(nil, HourlyPeriodsPerYear)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptySeries)
}

func TestComputeAllZeroReturns(t *testing.T) {
	returns := makeReturns(make([]float64, 100), 24*time.Hour)

	report, err := Compute(returns, 252)
	require.NoError(t, err)

	assert.Equal(t, 0.0, report.TotalReturn)
	assert.Equal(t, 0.0, report.SharpeRatio)
	assert.Equal(t, 0.0, report.SortinoRatio)
	assert.Equal(t, 0.0, report.WinRate)
	assert.Equal(t, 0.0, report.MaxDrawdown)
	assert.Equal(t, 0.0, report.CalmarRatio)
}

func TestComputeWinRate(t *testing.T) {
	returns := makeReturns([]float64{0.01, -0.02, 0.03, -0.01, 0.02}, 24*time.Hour)

	report, err := Compute(returns, 252)
	require.NoError(t, err)

	assert.InDelta(t, 0.6, report.WinRate, 1e-12)
	assert.Equal(t, 3, report.WinningTrades)
	assert.Equal(t, 2, report.LosingTrades)
	assert.Equal(t, 5, report.TotalTrades)
}

func TestComputeZeroReturnsExcludedFromWinRate(t *testing.T) {
	returns := makeReturns([]float64{0.01, 0, 0, -0.01}, 24*time.Hour)

	report, err := Compute(returns, 252)
	require.NoError(t, err)

	assert.Equal(t, 1, report.WinningTrades)
	assert.Equal(t, 1, report.LosingTrades)
	assert.Equal(t, 2, report.TotalTrades)
	assert.InDelta(t, 0.5, report.WinRate, 1e-12)
}

func TestComputeTotalReturn(t *testing.T) {
	returns := makeReturns([]float64{0.10, 0.10}, 24*time.Hour)

	report, err := Compute(returns, 252)
	require.NoError(t, err)

	// (1.10 * 1.10) - 1
	assert.InDelta(t, 0.21, report.TotalReturn, 1e-12)
}

func TestComputeSingleReturnZeroSpan(t *testing.T) {
	// One return has identical first and last instants, so annualization is
	// undefined; the total return must still come through.
	returns := makeReturns([]float64{0.10}, time.Hour)

	report, err := Compute(returns, HourlyPeriodsPerYear)
	require.NoError(t, err)

	assert.InDelta(t, 0.10, report.TotalReturn, 1e-12)
	assert.Equal(t, 0.0, report.AnnualReturn)
	assert.Equal(t, 0.0, report.SharpeRatio)
}

func TestComputeAnnualReturn(t *testing.T) {
	// Two returns 365.25 days apart halved: total return annualizes over the
	// whole-day span between the first and last return instants.
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	returns := series.ReturnSeries{
		{Time: base, Value: 0.10},
		{Time: base.Add(365*24*time.Hour + 6*time.Hour), Value: 0.05},
	}

	report, err := Compute(returns, HourlyPeriodsPerYear)
	require.NoError(t, err)

	total := 1.10*1.05 - 1
	expected := math.Pow(1+total, 365.25/365.0) - 1
	assert.InDelta(t, expected, report.AnnualReturn, 1e-9)
}

func TestComputeVolatility(t *testing.T) {
	values := []float64{0.01, -0.02, 0.03, -0.01, 0.02}
	returns := makeReturns(values, 24*time.Hour)

	report, err := Compute(returns, 252)
	require.NoError(t, err)

	// Sample standard deviation of the raw returns, annualized.
	expected := stdDev(values) * math.Sqrt(252)
	assert.InDelta(t, expected, report.Volatility, 1e-12)
	assert.Greater(t, report.Volatility, 0.0)

	assert.InDelta(t, report.AnnualReturn/report.Volatility, report.SharpeRatio, 1e-12)
}

func TestComputeSortinoNoLosses(t *testing.T) {
	returns := makeReturns([]float64{0.01, 0.02, 0.03}, 24*time.Hour)

	report, err := Compute(returns, 252)
	require.NoError(t, err)

	// No negative returns means no downside deviation.
	assert.Equal(t, 0.0, report.SortinoRatio)
}

func TestComputeSortinoSingleLoss(t *testing.T) {
	// A lone negative return leaves the downside deviation undefined.
	returns := makeReturns([]float64{0.01, -0.02, 0.03}, 24*time.Hour)

	report, err := Compute(returns, 252)
	require.NoError(t, err)

	assert.Equal(t, 0.0, report.SortinoRatio)
}

func TestComputeMaxDrawdownBounds(t *testing.T) {
	returns := makeReturns([]float64{0.05, -0.10, 0.02, -0.03, 0.08, -0.01}, 24*time.Hour)

	report, err := Compute(returns, 252)
	require.NoError(t, err)

	assert.LessOrEqual(t, report.MaxDrawdown, 0.0)
	assert.GreaterOrEqual(t, report.WinRate, 0.0)
	assert.LessOrEqual(t, report.WinRate, 1.0)

	if report.MaxDrawdown < 0 {
		expected := report.AnnualReturn / math.Abs(report.MaxDrawdown)
		assert.InDelta(t, expected, report.CalmarRatio, 1e-12)
	}
}

func TestComputeCalmarZeroDrawdown(t *testing.T) {
	returns := makeReturns([]float64{0.01, 0.02}, 24*time.Hour)

	report, err := Compute(returns, 252)
	require.NoError(t, err)

	assert.Equal(t, 0.0, report.MaxDrawdown)
	assert.Equal(t, 0.0, report.CalmarRatio)
}

// ============================================================================
// DERIVED SERIES TESTS
// ============================================================================

func TestDrawdowns(t *testing.T) {
	returns := makeReturns([]float64{0.10, -0.20, 0.05}, time.Hour)

	drawdowns := Drawdowns(returns)
	require.Len(t, drawdowns, len(returns))

	// Cumulative curve: 1.10, 0.88, 0.924; running peak stays 1.10.
	assert.InDelta(t, 0.0, drawdowns[0].Value, 1e-12)
	assert.InDelta(t, (0.88-1.10)/1.10, drawdowns[1].Value, 1e-12)
	assert.InDelta(t, (0.924-1.10)/1.10, drawdowns[2].Value, 1e-9)

	for i, d := range drawdowns {
		assert.LessOrEqual(t, d.Value, 0.0)
		assert.Equal(t, returns[i].Time, d.Time)
	}
}

func TestDrawdownsMinMatchesMaxDrawdown(t *testing.T) {
	returns := makeReturns([]float64{0.05, -0.10, 0.02, -0.03, 0.08}, time.Hour)

	min := 0.0
	for _, d := range Drawdowns(returns) {
		if d.Value < min {
			min = d.Value
		}
	}
	assert.Equal(t, min, maxDrawdown(returns))
}

func TestRollingSharpeLeadingGap(t *testing.T) {
	returns := makeReturns([]float64{0.01, -0.02, 0.03, -0.01, 0.02, 0.01}, time.Hour)
	window := 3

	rolling := RollingSharpe(returns, window, 252)
	require.Len(t, rolling, len(returns))

	for i := 0; i < window-1; i++ {
		assert.True(t, math.IsNaN(rolling[i].Value), "entry %d should be absent", i)
	}
	for i := window - 1; i < len(rolling); i++ {
		assert.False(t, math.IsNaN(rolling[i].Value), "entry %d should be defined", i)
	}
}

func TestRollingSharpeIndependentWindows(t *testing.T) {
	values := []float64{0.01, -0.02, 0.03, -0.01, 0.02, 0.01, -0.03}
	returns := makeReturns(values, time.Hour)
	window := 3

	rolling := RollingSharpe(returns, window, 252)

	// Each defined entry recomputes from its trailing window alone.
	for i := window - 1; i < len(values); i++ {
		trailing := values[i+1-window : i+1]
		expected := mean(trailing) / stdDev(trailing) * math.Sqrt(252)
		assert.InDelta(t, expected, rolling[i].Value, 1e-12, "entry %d", i)
	}
}

func TestDefaultWindow(t *testing.T) {
	// 30 calendar days of hourly samples.
	assert.Equal(t, 720, DefaultWindow(HourlyPeriodsPerYear))
	// 30 calendar days of daily samples.
	assert.Equal(t, 20, DefaultWindow(252))
}

// ============================================================================
// HELPER TESTS
// ============================================================================

func TestStdDev(t *testing.T) {
	// Sample variance of {2, 4, 4, 4, 5, 5, 7, 9} is 32/7.
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	assert.InDelta(t, math.Sqrt(32.0/7.0), stdDev(values), 1e-12)
}

func TestStdDevDegenerate(t *testing.T) {
	assert.Equal(t, 0.0, stdDev(nil))
	assert.Equal(t, 0.0, stdDev([]float64{0.5}))
}

func TestMean(t *testing.T) {
	assert.Equal(t, 0.0, mean(nil))
	assert.InDelta(t, 2.0, mean([]float64{1, 2, 3}), 1e-12)
}
