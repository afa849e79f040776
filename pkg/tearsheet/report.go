// HTML and JSON rendering for tearsheets
package tearsheet

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"math"
	"os"
	"time"

	"github.com/guitrading/tearsheet/pkg/metrics"
	"github.com/guitrading/tearsheet/pkg/series"
)

// ============================================================================
// JSON OUTPUT
// ============================================================================

// WriteJSON writes the full tearsheet as indented JSON. Absent rolling
// entries come out as null.
func (t *Tearsheet) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(t)
}

// SaveJSON writes the JSON tearsheet to a file.
func (t *Tearsheet) SaveJSON(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return t.WriteJSON(f)
}

// ============================================================================
// HTML OUTPUT
// ============================================================================

// RenderHTML generates the complete HTML tearsheet.
func (t *Tearsheet) RenderHTML() (string, error) {
	tmpl, err := template.New("tearsheet").Parse(tearsheetTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, t.prepareTemplateData()); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

// SaveHTML writes the HTML tearsheet to a file.
func (t *Tearsheet) SaveHTML(path string) error {
	html, err := t.RenderHTML()
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(html), 0644)
}

// prepareTemplateData prepares all data needed for the HTML template
func (t *Tearsheet) prepareTemplateData() map[string]interface{} {
	return map[string]interface{}{
		"Title":             "Strategy Tearsheet",
		"StartDate":         displayDate(t.StartDate),
		"EndDate":           displayDate(t.EndDate),
		"GeneratedAt":       time.Now().Format("2006-01-02 15:04:05"),
		"HasBenchmark":      t.Benchmark != nil,
		"MetricRows":        t.metricRows(),
		"EquityData":        template.JS(t.prepareEquityData()),
		"DrawdownData":      template.JS(t.prepareDrawdownData()),
		"RollingSharpeData": template.JS(t.prepareRollingSharpeData()),
	}
}

// metricRow is one line of the strategy/benchmark comparison table.
type metricRow struct {
	Name      string
	Strategy  string
	Benchmark string
}

func (t *Tearsheet) metricRows() []metricRow {
	if t.Strategy == nil {
		return nil
	}

	format := func(r *metrics.Report) []string {
		if r == nil {
			return nil
		}
		return []string{
			fmt.Sprintf("%.2f%%", r.TotalReturn*100),
			fmt.Sprintf("%.2f%%", r.AnnualReturn*100),
			fmt.Sprintf("%.2f%%", r.Volatility*100),
			fmt.Sprintf("%.2f", r.SharpeRatio),
			fmt.Sprintf("%.2f", r.SortinoRatio),
			fmt.Sprintf("%.2f", r.CalmarRatio),
			fmt.Sprintf("%.2f%%", r.MaxDrawdown*100),
			fmt.Sprintf("%.1f%%", r.WinRate*100),
			fmt.Sprintf("%d", r.TotalTrades),
			fmt.Sprintf("%d", r.WinningTrades),
			fmt.Sprintf("%d", r.LosingTrades),
		}
	}

	names := []string{
		"Total Return", "Annual Return", "Volatility", "Sharpe Ratio",
		"Sortino Ratio", "Calmar Ratio", "Max Drawdown", "Win Rate",
		"Total Trades", "Winning Trades", "Losing Trades",
	}

	strategy := format(t.Strategy)
	bench := format(t.Benchmark)

	rows := make([]metricRow, len(names))
	for i, name := range names {
		rows[i] = metricRow{Name: name, Strategy: strategy[i]}
		if bench != nil {
			rows[i].Benchmark = bench[i]
		}
	}
	return rows
}

// ============================================================================
// CHART DATA PREPARATION
// ============================================================================

// prepareEquityData prepares the cumulative-return comparison for Chart.js,
// both curves normalized to a 100 start.
func (t *Tearsheet) prepareEquityData() string {
	if len(t.Equity) == 0 {
		return "{labels: [], datasets: []}"
	}

	labels := make([]string, len(t.Equity))
	values := make([]float64, len(t.Equity))
	first := t.Equity[0].Value
	for i, p := range t.Equity {
		labels[i] = p.Time.Format("2006-01-02 15:04")
		values[i] = p.Value / first * 100
	}

	labelsJSON, _ := json.Marshal(labels)
	valuesJSON, _ := json.Marshal(values)

	datasets := fmt.Sprintf(`{
			label: 'Strategy',
			data: %s,
			borderColor: 'rgb(54, 99, 235)',
			backgroundColor: 'rgba(54, 99, 235, 0.1)',
			pointRadius: 0,
			tension: 0.1
		}`, valuesJSON)

	if t.Benchmark != nil {
		bench := make([]*float64, len(t.Equity))
		cumulative := 100.0
		offset := len(t.Equity) - len(t.BenchmarkReturns)
		for i, r := range t.BenchmarkReturns {
			cumulative *= 1 + r.Value
			v := cumulative
			bench[offset+i] = &v
		}
		benchJSON, _ := json.Marshal(bench)
		datasets += fmt.Sprintf(`, {
			label: 'Benchmark',
			data: %s,
			borderColor: 'rgb(255, 159, 64)',
			pointRadius: 0,
			tension: 0.1
		}`, benchJSON)
	}

	return fmt.Sprintf("{labels: %s, datasets: [%s]}", labelsJSON, datasets)
}

// prepareDrawdownData prepares the drawdown comparison chart.
func (t *Tearsheet) prepareDrawdownData() string {
	if len(t.Drawdowns) == 0 {
		return "{labels: [], datasets: []}"
	}

	labels := make([]string, len(t.Drawdowns))
	values := make([]float64, len(t.Drawdowns))
	for i, p := range t.Drawdowns {
		labels[i] = p.Time.Format("2006-01-02 15:04")
		values[i] = p.Value * 100
	}

	labelsJSON, _ := json.Marshal(labels)
	valuesJSON, _ := json.Marshal(values)

	datasets := fmt.Sprintf(`{
			label: 'Strategy DD (%%)',
			data: %s,
			borderColor: 'rgb(255, 99, 132)',
			backgroundColor: 'rgba(255, 99, 132, 0.2)',
			pointRadius: 0,
			fill: true
		}`, valuesJSON)

	if t.Benchmark != nil {
		benchJSON := paddedPercent(t.BenchmarkDrawdowns, len(t.Drawdowns))
		datasets += fmt.Sprintf(`, {
			label: 'Benchmark DD (%%)',
			data: %s,
			borderColor: 'rgb(54, 99, 235)',
			pointRadius: 0
		}`, benchJSON)
	}

	return fmt.Sprintf("{labels: %s, datasets: [%s]}", labelsJSON, datasets)
}

// prepareRollingSharpeData prepares the rolling Sharpe chart; absent leading
// entries become nulls so Chart.js leaves the gap.
func (t *Tearsheet) prepareRollingSharpeData() string {
	if len(t.RollingSharpe) == 0 {
		return "{labels: [], datasets: []}"
	}

	labels := make([]string, len(t.RollingSharpe))
	for i, p := range t.RollingSharpe {
		labels[i] = p.Time.Format("2006-01-02 15:04")
	}

	labelsJSON, _ := json.Marshal(labels)
	valuesJSON := paddedValues(t.RollingSharpe, len(t.RollingSharpe))

	datasets := fmt.Sprintf(`{
			label: 'Strategy',
			data: %s,
			borderColor: 'rgb(54, 99, 235)',
			pointRadius: 0,
			tension: 0.1
		}`, valuesJSON)

	if t.Benchmark != nil {
		benchJSON := paddedValues(t.BenchmarkRollingSharpe, len(t.RollingSharpe))
		datasets += fmt.Sprintf(`, {
			label: 'Benchmark',
			data: %s,
			borderColor: 'rgb(255, 159, 64)',
			pointRadius: 0,
			tension: 0.1
		}`, benchJSON)
	}

	return fmt.Sprintf("{labels: %s, datasets: [%s]}", labelsJSON, datasets)
}

// paddedValues marshals a series as nullable numbers left-padded to width.
func paddedValues(points series.ReturnSeries, width int) string {
	out := make([]*float64, width)
	offset := width - len(points)
	for i, p := range points {
		if math.IsNaN(p.Value) {
			continue
		}
		v := p.Value
		out[offset+i] = &v
	}
	data, _ := json.Marshal(out)
	return string(data)
}

// paddedPercent is paddedValues scaled to percentages.
func paddedPercent(points series.ReturnSeries, width int) string {
	scaled := make(series.ReturnSeries, len(points))
	for i, p := range points {
		scaled[i] = series.Point{Time: p.Time, Value: p.Value * 100}
	}
	return paddedValues(scaled, width)
}

func displayDate(iso string) string {
	if len(iso) >= 10 {
		return iso[:10]
	}
	return iso
}

// ============================================================================
// HTML TEMPLATE
// ============================================================================

const tearsheetTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{ .Title }}</title>
    <script src="https://cdn.jsdelivr.net/npm/chart.js@4.4.0/dist/chart.umd.min.js"></script>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }

        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            background: #f5f5f5;
            color: #333;
            line-height: 1.6;
        }

        .container { max-width: 1200px; margin: 0 auto; padding: 20px; }

        header {
            background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
            color: white;
            padding: 30px;
            border-radius: 10px;
            margin-bottom: 30px;
            box-shadow: 0 4px 6px rgba(0, 0, 0, 0.1);
        }

        header h1 { font-size: 2.2em; margin-bottom: 10px; }
        header p { opacity: 0.9; font-size: 1.1em; }

        .section {
            background: white;
            padding: 25px;
            margin-bottom: 25px;
            border-radius: 8px;
            box-shadow: 0 2px 4px rgba(0, 0, 0, 0.1);
        }

        .section h2 {
            color: #667eea;
            margin-bottom: 20px;
            padding-bottom: 10px;
            border-bottom: 2px solid #f0f0f0;
        }

        table { width: 100%; border-collapse: collapse; }
        th, td { padding: 10px 14px; text-align: left; border-bottom: 1px solid #f0f0f0; }
        th { background: #fafafa; color: #667eea; }
        td.value { font-variant-numeric: tabular-nums; }

        .chart-container { position: relative; height: 360px; }
    </style>
</head>
<body>
    <div class="container">
        <header>
            <h1>{{ .Title }}</h1>
            <p>{{ .StartDate }} to {{ .EndDate }} &middot; generated {{ .GeneratedAt }}</p>
        </header>

        <div class="section">
            <h2>Performance Metrics</h2>
            <table>
                <tr>
                    <th>Metric</th>
                    <th>Strategy</th>
                    {{ if .HasBenchmark }}<th>Benchmark</th>{{ end }}
                </tr>
                {{ range .MetricRows }}
                <tr>
                    <td>{{ .Name }}</td>
                    <td class="value">{{ .Strategy }}</td>
                    {{ if $.HasBenchmark }}<td class="value">{{ .Benchmark }}</td>{{ end }}
                </tr>
                {{ end }}
            </table>
        </div>

        <div class="section">
            <h2>Cumulative Returns (100 start)</h2>
            <div class="chart-container"><canvas id="equityChart"></canvas></div>
        </div>

        <div class="section">
            <h2>Drawdown</h2>
            <div class="chart-container"><canvas id="drawdownChart"></canvas></div>
        </div>

        <div class="section">
            <h2>Rolling Sharpe Ratio</h2>
            <div class="chart-container"><canvas id="rollingSharpeChart"></canvas></div>
        </div>
    </div>

    <script>
        const lineOptions = {
            responsive: true,
            maintainAspectRatio: false,
            interaction: { mode: 'index', intersect: false },
            plugins: { legend: { position: 'top' } },
            scales: { x: { ticks: { maxTicksLimit: 12 } } }
        };

        new Chart(document.getElementById('equityChart'), {
            type: 'line',
            data: {{ .EquityData }},
            options: lineOptions
        });

        new Chart(document.getElementById('drawdownChart'), {
            type: 'line',
            data: {{ .DrawdownData }},
            options: lineOptions
        });

        new Chart(document.getElementById('rollingSharpeChart'), {
            type: 'line',
            data: {{ .RollingSharpeData }},
            options: lineOptions
        });
    </script>
</body>
</html>
`
