// Performance metrics over a return series
package metrics

import (
	"errors"
	"fmt"
	"math"

	"github.com/guitrading/tearsheet/pkg/series"
)

// ErrEmptySeries indicates there are no returns to compute over
var ErrEmptySeries = errors.New("empty return series")

// HourlyPeriodsPerYear is the annualization constant for hourly samples.
const HourlyPeriodsPerYear = 365.25 * 24

// Report holds the summary statistics for one return series. Strategy and
// benchmark reports share the same fields, enabling side-by-side comparison.
// Return, volatility, drawdown and win-rate fields are fractions, not
// percentages.
type Report struct {
	TotalReturn  float64 `json:"total_return"`
	AnnualReturn float64 `json:"annual_return"`
	Volatility   float64 `json:"volatility"`
	SharpeRatio  float64 `json:"sharpe_ratio"`
	SortinoRatio float64 `json:"sortino_ratio"`
	CalmarRatio  float64 `json:"calmar_ratio"`
	MaxDrawdown  float64 `json:"max_drawdown"`
	WinRate      float64 `json:"win_rate"`

	// Per-period return signs used as trade proxies, not actual trade
	// records. A known simplification of the sampling approach.
	TotalTrades   int `json:"total_trades"`
	WinningTrades int `json:"winning_trades"`
	LosingTrades  int `json:"losing_trades"`
}

// Compute calculates all summary statistics for a return series.
//
// periodsPerYear is a caller-supplied sampling-frequency constant (hourly
// data uses HourlyPeriodsPerYear); it is never inferred from timestamps.
// Annualization uses the whole-day span between the first and last return
// instants; a zero-day span leaves AnnualReturn and the ratios derived from
// it at 0.
func Compute(returns series.ReturnSeries, periodsPerYear float64) (*Report, error) {
	if len(returns) == 0 {
		return nil, fmt.Errorf("%w: nothing to compute", ErrEmptySeries)
	}

	report := &Report{}

	cumulative := 1.0
	for _, r := range returns {
		cumulative *= 1 + r.Value
	}
	report.TotalReturn = cumulative - 1

	elapsedDays := int(returns[len(returns)-1].Time.Sub(returns[0].Time).Hours() / 24)
	if elapsedDays > 0 {
		report.AnnualReturn = math.Pow(1+report.TotalReturn, 365.25/float64(elapsedDays)) - 1
	}

	report.Volatility = stdDev(returns.Values()) * math.Sqrt(periodsPerYear)
	if report.Volatility > 0 {
		report.SharpeRatio = report.AnnualReturn / report.Volatility
	}

	report.MaxDrawdown = maxDrawdown(returns)
	if report.MaxDrawdown < 0 {
		report.CalmarRatio = report.AnnualReturn / math.Abs(report.MaxDrawdown)
	}

	var downside []float64
	wins, losses := 0, 0
	for _, r := range returns {
		switch {
		case r.Value > 0:
			wins++
		case r.Value < 0:
			losses++
			downside = append(downside, r.Value)
		}
	}

	downsideDev := stdDev(downside) * math.Sqrt(periodsPerYear)
	if downsideDev > 0 {
		report.SortinoRatio = report.AnnualReturn / downsideDev
	}

	// Zero-valued returns are excluded from both counts.
	report.WinningTrades = wins
	report.LosingTrades = losses
	report.TotalTrades = wins + losses
	if report.TotalTrades > 0 {
		report.WinRate = float64(wins) / float64(report.TotalTrades)
	}

	return report, nil
}

// Drawdowns returns the fractional decline from the running peak of the
// cumulative-product-of-returns curve, aligned index-for-index with the
// input. Every value is <= 0.
func Drawdowns(returns series.ReturnSeries) series.ReturnSeries {
	drawdowns := make(series.ReturnSeries, len(returns))
	cumulative := 1.0
	peak := math.Inf(-1)

	for i, r := range returns {
		cumulative *= 1 + r.Value
		if cumulative > peak {
			peak = cumulative
		}
		drawdowns[i] = series.Point{Time: r.Time, Value: (cumulative - peak) / peak}
	}

	return drawdowns
}

// RollingSharpe computes mean/stddev over the trailing window, annualized by
// sqrt(periodsPerYear), aligned index-for-index with the input. Entries with
// fewer than window prior returns are absent (NaN), never zero.
func RollingSharpe(returns series.ReturnSeries, window int, periodsPerYear float64) series.ReturnSeries {
	rolling := make(series.ReturnSeries, len(returns))
	values := returns.Values()

	for i, r := range returns {
		rolling[i] = series.Point{Time: r.Time, Value: math.NaN()}
		if i+1 < window {
			continue
		}
		trailing := values[i+1-window : i+1]
		sd := stdDev(trailing)
		if sd == 0 {
			continue
		}
		rolling[i].Value = mean(trailing) / sd * math.Sqrt(periodsPerYear)
	}

	return rolling
}

// DefaultWindow is the rolling window covering 30 calendar days at the given
// sampling frequency.
func DefaultWindow(periodsPerYear float64) int {
	return int(30 * periodsPerYear / 365.25)
}

func maxDrawdown(returns series.ReturnSeries) float64 {
	min := 0.0
	for _, d := range Drawdowns(returns) {
		if d.Value < min {
			min = d.Value
		}
	}
	return min
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stdDev is the sample standard deviation (n-1 denominator), 0 when fewer
// than 2 observations exist.
func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	m := mean(values)
	var sumSquaredDiff float64
	for _, v := range values {
		diff := v - m
		sumSquaredDiff += diff * diff
	}

	return math.Sqrt(sumSquaredDiff / float64(len(values)-1))
}
