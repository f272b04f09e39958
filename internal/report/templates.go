package report

// htmlTemplate is the self-contained HTML report. It loads no external
// assets so it can be opened offline or attached to a ticket.
const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}} - Latency Report</title>
    <style>
        :root {
            --bg: #f8fafc;
            --card: #ffffff;
            --text: #1e293b;
            --muted: #64748b;
            --border: #e2e8f0;
            --ok: #22c55e;
            --warn: #f59e0b;
            --error: #ef4444;
        }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif;
            background: var(--bg);
            color: var(--text);
            margin: 0;
            padding: 2rem;
        }
        .card {
            background: var(--card);
            border: 1px solid var(--border);
            border-radius: 8px;
            padding: 1.5rem;
            margin-bottom: 1.5rem;
        }
        .meta { color: var(--muted); font-size: 0.9rem; }
        table { width: 100%; border-collapse: collapse; }
        th, td { text-align: left; padding: 0.4rem 0.6rem; border-bottom: 1px solid var(--border); }
        th { color: var(--muted); font-weight: 600; }
        .ok { color: var(--ok); }
        .warn { color: var(--warn); }
        .error { color: var(--error); }
        details { margin-top: 0.75rem; }
    </style>
</head>
<body>
    <div class="card">
        <h1>{{.Title}}</h1>
        <p class="meta">Checked at {{.CheckedAt}} &middot; run {{.RunID}} &middot; {{.Duration}} &middot; max in flight {{.Limiter}}</p>
    </div>

    <div class="card">
        <h2>Summary</h2>
        <table>
            <thead>
                <tr><th>URL</th><th>Samples</th><th>Successes</th><th>Min</th><th>Avg</th><th>Max</th><th>Stdev</th><th>P95</th></tr>
            </thead>
            <tbody>
            {{- range .Targets}}
                {{- with .Summary}}
                <tr>
                    <td>{{.Target}}</td>
                    <td>{{.Total}}</td>
                    <td>{{.SuccessCount}} ({{successRate .}}%)</td>
                    {{- if .Latency}}
                    <td>{{ms .Latency.Min}} ms</td>
                    <td>{{ms .Latency.Mean}} ms</td>
                    <td>{{ms .Latency.Max}} ms</td>
                    <td>{{ms .Latency.StdDev}} ms</td>
                    <td>{{ms .Latency.P95}} ms</td>
                    {{- else}}
                    <td colspan="5" class="error">no successful requests</td>
                    {{- end}}
                </tr>
                {{- end}}
            {{- end}}
            </tbody>
        </table>
    </div>

    {{- range .Targets}}
    <div class="card">
        <h3>{{.Summary.Target}}</h3>
        <details>
            <summary>{{len .Probes}} probes</summary>
            <table>
                <thead>
                    <tr><th>#</th><th>Outcome</th><th>Latency</th><th>Size</th><th>Error</th></tr>
                </thead>
                <tbody>
                {{- range .Probes}}
                    <tr>
                        <td>{{.Sequence}}</td>
                        <td class="{{statusClass .Outcome}}">{{.Outcome}}</td>
                        <td>{{ms .Latency}} ms</td>
                        <td>{{formatBytes .BytesReceived}}</td>
                        <td>{{.Outcome.Message}}</td>
                    </tr>
                {{- end}}
                </tbody>
            </table>
        </details>
    </div>
    {{- end}}
</body>
</html>
`
