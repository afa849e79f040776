// LEAN backtest result discovery and decoding
package lean

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/guitrading/tearsheet/pkg/series"
)

var (
	// ErrNoResults indicates no backtest result JSON was located
	ErrNoResults = errors.New("no backtest results found")
	// ErrBadFormat indicates a result file missing expected fields
	ErrBadFormat = errors.New("malformed backtest result")
)

const (
	equityChart  = "Strategy Equity"
	equitySeries = "Equity"
)

// AlgorithmConfiguration carries the run parameters LEAN stores alongside
// the charts. Dates are consumed for display labels and benchmark filtering,
// never for metric computation.
type AlgorithmConfiguration struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// Result is a decoded LEAN backtest result file.
type Result struct {
	Charts                 map[string]chart       `json:"charts"`
	AlgorithmConfiguration AlgorithmConfiguration `json:"algorithmConfiguration"`
}

type chart struct {
	Series map[string]chartSeries `json:"series"`
}

type chartSeries struct {
	// Each entry is [timestamp_seconds, open, high, low, close].
	Values [][]float64 `json:"values"`
}

// Load finds the numbered result JSON in a backtest directory and decodes
// it. LEAN names the result file after the backtest ID, so the lookup
// matches [0-9]*.json and takes the first in lexical order.
func Load(dir string) (*Result, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "[0-9]*.json"))
	if err != nil {
		return nil, fmt.Errorf("scan backtest dir: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoResults, dir)
	}
	sort.Strings(matches)

	data, err := os.ReadFile(matches[0])
	if err != nil {
		return nil, fmt.Errorf("read backtest result: %w", err)
	}

	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBadFormat, err)
	}

	return &result, nil
}

// EquitySamples returns the "Strategy Equity" chart entries as raw samples.
func (r *Result) EquitySamples() ([]series.Sample, error) {
	c, ok := r.Charts[equityChart]
	if !ok {
		return nil, fmt.Errorf("%w: missing %q chart", ErrBadFormat, equityChart)
	}
	s, ok := c.Series[equitySeries]
	if !ok {
		return nil, fmt.Errorf("%w: missing %q series", ErrBadFormat, equitySeries)
	}

	samples := make([]series.Sample, len(s.Values))
	for i, v := range s.Values {
		if len(v) != 5 {
			return nil, fmt.Errorf("%w: equity entry %d has %d fields, want 5", ErrBadFormat, i, len(v))
		}
		samples[i] = series.Sample{
			Timestamp: int64(v[0]),
			Open:      v[1],
			High:      v[2],
			Low:       v[3],
			Close:     v[4],
		}
	}

	return samples, nil
}

// Period parses the configured start and end dates.
func (c AlgorithmConfiguration) Period() (time.Time, time.Time, error) {
	start, err := parseDate(c.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseDate(c.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// LEAN emits local-naive ISO-8601 timestamps; older results carry bare dates.
func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unparseable date %q", ErrBadFormat, s)
}
