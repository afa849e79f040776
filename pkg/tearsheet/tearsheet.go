// Tearsheet assembly from a LEAN backtest result
package tearsheet

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/guitrading/tearsheet/internal/benchmark"
	"github.com/guitrading/tearsheet/internal/lean"
	"github.com/guitrading/tearsheet/pkg/metrics"
	"github.com/guitrading/tearsheet/pkg/series"
)

// Options control series derivation and annualization.
type Options struct {
	// PeriodsPerYear is the caller-supplied sampling-frequency constant;
	// it is never inferred from the data.
	PeriodsPerYear float64
	// RollingWindow is the rolling Sharpe window in periods.
	RollingWindow int
	// BenchmarkPath optionally points at a benchmark price archive.
	BenchmarkPath string
}

// Tearsheet bundles the computed reports and derived series for rendering.
// Everything here is derived and read-only.
type Tearsheet struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`

	Strategy  *metrics.Report `json:"strategy"`
	Benchmark *metrics.Report `json:"benchmark,omitempty"`

	Equity        series.ValueSeries  `json:"equity"`
	Returns       series.ReturnSeries `json:"returns"`
	Drawdowns     series.ReturnSeries `json:"drawdowns"`
	RollingSharpe series.ReturnSeries `json:"rolling_sharpe"`

	BenchmarkReturns       series.ReturnSeries `json:"benchmark_returns,omitempty"`
	BenchmarkDrawdowns     series.ReturnSeries `json:"benchmark_drawdowns,omitempty"`
	BenchmarkRollingSharpe series.ReturnSeries `json:"benchmark_rolling_sharpe,omitempty"`
}

// Generate loads a backtest result directory and derives the full tearsheet.
func Generate(dir string, opts Options) (*Tearsheet, error) {
	result, err := lean.Load(dir)
	if err != nil {
		return nil, err
	}

	samples, err := result.EquitySamples()
	if err != nil {
		return nil, err
	}

	equity, err := series.Extract(samples)
	if err != nil {
		return nil, err
	}
	returns := series.Returns(equity)

	strategy, err := metrics.Compute(returns, opts.PeriodsPerYear)
	if err != nil {
		return nil, fmt.Errorf("strategy metrics: %w", err)
	}

	log.Debug().
		Int("samples", len(samples)).
		Float64("total_return", strategy.TotalReturn).
		Msg("Computed strategy metrics")

	sheet := &Tearsheet{
		StartDate:     result.AlgorithmConfiguration.StartDate,
		EndDate:       result.AlgorithmConfiguration.EndDate,
		Strategy:      strategy,
		Equity:        equity,
		Returns:       returns,
		Drawdowns:     metrics.Drawdowns(returns),
		RollingSharpe: metrics.RollingSharpe(returns, opts.RollingWindow, opts.PeriodsPerYear),
	}

	if opts.BenchmarkPath != "" {
		if err := sheet.attachBenchmark(result, returns, opts); err != nil {
			return nil, err
		}
	}

	return sheet, nil
}

// attachBenchmark feeds the benchmark through the same metrics path as the
// strategy, after aligning its returns onto the strategy instants.
func (t *Tearsheet) attachBenchmark(result *lean.Result, strategy series.ReturnSeries, opts Options) error {
	start, end, err := result.AlgorithmConfiguration.Period()
	if err != nil {
		return err
	}

	prices, err := benchmark.Load(opts.BenchmarkPath, start, end)
	if err != nil {
		return fmt.Errorf("load benchmark: %w", err)
	}

	aligned := benchmark.AlignedReturns(prices, strategy)
	report, err := metrics.Compute(aligned, opts.PeriodsPerYear)
	if err != nil {
		return fmt.Errorf("benchmark metrics: %w", err)
	}

	log.Debug().
		Int("prices", len(prices)).
		Int("aligned", len(aligned)).
		Msg("Aligned benchmark returns")

	t.Benchmark = report
	t.BenchmarkReturns = aligned
	t.BenchmarkDrawdowns = metrics.Drawdowns(aligned)
	t.BenchmarkRollingSharpe = metrics.RollingSharpe(aligned, opts.RollingWindow, opts.PeriodsPerYear)
	return nil
}
