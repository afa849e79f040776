// Benchmark price ingestion and alignment
//
// Benchmark data arrives as a zip archive holding one CSV of
// (datetime, open, high, low, close, volume) rows, the layout LEAN uses for
// downloaded trade data. Rows are filtered to the backtest period, pushed
// through the same extraction/returns path as the strategy equity, and
// forward-filled onto the strategy return instants.
package benchmark

import (
	"archive/zip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/guitrading/tearsheet/pkg/series"
)

// ErrNoData indicates the archive holds no usable rows for the period
var ErrNoData = errors.New("no benchmark data")

const rowLayout = "20060102 15:04"

// Load reads the first CSV member of a benchmark archive and returns the
// close prices inside [start, end] as a value series.
func Load(path string, start, end time.Time) (series.ValueSeries, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open benchmark archive: %w", err)
	}
	defer archive.Close()

	var member *zip.File
	for _, f := range archive.File {
		if strings.HasSuffix(f.Name, ".csv") {
			member = f
			break
		}
	}
	if member == nil {
		return nil, fmt.Errorf("%w: no csv member in %s", ErrNoData, path)
	}

	rc, err := member.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", member.Name, err)
	}
	defer rc.Close()

	samples, err := readRows(rc, start, end)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w between %s and %s", ErrNoData,
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	return series.Extract(samples)
}

// AlignedReturns derives benchmark returns and forward-fills them onto the
// strategy return instants, dropping instants before the first benchmark
// observation.
func AlignedReturns(prices series.ValueSeries, strategy series.ReturnSeries) series.ReturnSeries {
	return series.ForwardFill(series.Returns(prices), strategy.Instants())
}

func readRows(r io.Reader, start, end time.Time) ([]series.Sample, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 6

	var samples []series.Sample
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read benchmark csv: %w", err)
		}

		ts, err := time.Parse(rowLayout, record[0])
		if err != nil {
			return nil, fmt.Errorf("benchmark row datetime %q: %w", record[0], err)
		}
		if ts.Before(start) || ts.After(end) {
			continue
		}

		closePrice, err := strconv.ParseFloat(record[4], 64)
		if err != nil {
			return nil, fmt.Errorf("benchmark row close %q: %w", record[4], err)
		}

		samples = append(samples, series.Sample{Timestamp: ts.Unix(), Close: closePrice})
	}

	return samples, nil
}
