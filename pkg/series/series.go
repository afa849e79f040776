// Equity curve extraction and return series derivation
package series

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrBadData indicates empty or malformed raw samples
var ErrBadData = errors.New("bad sample data")

// Sample is one raw equity chart observation: a POSIX timestamp (seconds,
// UTC) and OHLC values. Only Timestamp and Close are used downstream.
type Sample struct {
	Timestamp int64
	Open      float64
	High      float64
	Low       float64
	Close     float64
}

// Point pairs an instant with a value. A NaN value marks an absent entry
// (leading gap of a rolling window); it marshals to JSON null.
type Point struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// MarshalJSON emits null for absent (NaN) values, which encoding/json
// cannot represent as a number.
func (p Point) MarshalJSON() ([]byte, error) {
	out := struct {
		Time  time.Time `json:"time"`
		Value *float64  `json:"value"`
	}{Time: p.Time}
	if !math.IsNaN(p.Value) {
		out.Value = &p.Value
	}
	return json.Marshal(out)
}

// ValueSeries is portfolio mark-to-market over time, ordered by instant,
// all values positive. Immutable once derived.
type ValueSeries []Point

// ReturnSeries holds fractional period-over-period changes, ordered by
// instant.
type ReturnSeries []Point

// Extract maps raw samples to a value series, taking each sample's close as
// the value and its timestamp as the instant.
func Extract(samples []Sample) (ValueSeries, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: empty sample set", ErrBadData)
	}

	values := make(ValueSeries, len(samples))
	for i, s := range samples {
		if s.Close <= 0 {
			return nil, fmt.Errorf("%w: non-positive close %g at index %d", ErrBadData, s.Close, i)
		}
		values[i] = Point{Time: time.Unix(s.Timestamp, 0).UTC(), Value: s.Close}
	}

	return values, nil
}

// Returns computes the percentage change between consecutive values, in
// timestamp order. The first instant has no prior value to compare against
// and is dropped, so the result is one element shorter than the input.
// Fewer than 2 points yields an empty series, not an error.
func Returns(values ValueSeries) ReturnSeries {
	if len(values) < 2 {
		return ReturnSeries{}
	}

	returns := make(ReturnSeries, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		returns = append(returns, Point{
			Time:  values[i].Time,
			Value: values[i].Value/values[i-1].Value - 1,
		})
	}

	return returns
}

// ForwardFill reindexes a return series onto the given instants, carrying
// the last known value forward. Target instants that precede the first
// observation have nothing to carry and are dropped.
func ForwardFill(returns ReturnSeries, onto []time.Time) ReturnSeries {
	aligned := make(ReturnSeries, 0, len(onto))
	j := -1
	for _, t := range onto {
		for j+1 < len(returns) && !returns[j+1].Time.After(t) {
			j++
		}
		if j < 0 {
			continue
		}
		aligned = append(aligned, Point{Time: t, Value: returns[j].Value})
	}
	return aligned
}

// Instants returns the time column of the series.
func (r ReturnSeries) Instants() []time.Time {
	ts := make([]time.Time, len(r))
	for i, p := range r {
		ts[i] = p.Time
	}
	return ts
}

// Values returns the value column of the series.
func (r ReturnSeries) Values() []float64 {
	vs := make([]float64, len(r))
	for i, p := range r {
		vs[i] = p.Value
	}
	return vs
}
