package dashboard

import (
	"fmt"
	"net/http"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, indexHTML)
}

const indexHTML = `<!DOCTYPE html>
<html>
<head>
	<title>queuectl</title>
	<style>
	body { font-family: -apple-system, 'Segoe UI', sans-serif; margin: 0; padding: 24px; background: #f6f8fa; color: #1f2328; }
	.wrap { max-width: 1080px; margin: 0 auto; }
	h1 { font-size: 22px; border-bottom: 1px solid #d0d7de; padding-bottom: 8px; }
	h2 { font-size: 16px; margin-top: 32px; }
	.cards { display: grid; grid-template-columns: repeat(auto-fit, minmax(160px, 1fr)); gap: 12px; margin: 20px 0; }
	.card { background: #fff; border: 1px solid #d0d7de; border-radius: 6px; padding: 12px 16px; }
	.card .label { font-size: 11px; color: #656d76; text-transform: uppercase; }
	.card .value { font-size: 22px; font-weight: 600; margin-top: 4px; }
	table { width: 100%; border-collapse: collapse; background: #fff; border: 1px solid #d0d7de; border-radius: 6px; }
	th, td { padding: 8px 10px; text-align: left; border-bottom: 1px solid #d0d7de; font-size: 13px; }
	th { background: #f6f8fa; color: #656d76; text-transform: uppercase; font-size: 11px; }
	.ok { color: #1a7f37; } .bad { color: #cf222e; } .warn { color: #9a6700; }
	.note { color: #656d76; font-size: 11px; margin-top: 12px; text-align: right; }
	</style>
</head>
<body>
	<div class="wrap">
		<h1>queuectl</h1>
		<div class="cards">
			<div class="card"><div class="label">Processed</div><div class="value" id="processed">-</div></div>
			<div class="card"><div class="label">Succeeded</div><div class="value ok" id="succeeded">-</div></div>
			<div class="card"><div class="label">Failed</div><div class="value bad" id="failed">-</div></div>
			<div class="card"><div class="label">Timeouts</div><div class="value warn" id="timeouts">-</div></div>
			<div class="card"><div class="label">Success rate</div><div class="value" id="rate">-</div></div>
			<div class="card"><div class="label">Avg duration</div><div class="value" id="avg">-</div></div>
		</div>

		<h2>Queue</h2>
		<table><thead><tr><th>State</th><th>Count</th></tr></thead><tbody id="queue"></tbody></table>

		<h2>Recent executions</h2>
		<table>
			<thead><tr><th>Job</th><th>Command</th><th>Started</th><th>Duration</th><th>Result</th></tr></thead>
			<tbody id="executions"></tbody>
		</table>
		<div class="note">refreshes every 5s</div>
	</div>

	<script>
	function refresh() {
		fetch('/api/stats').then(r => r.json()).then(d => {
			document.getElementById('processed').textContent = d.total_processed || 0;
			document.getElementById('succeeded').textContent = d.total_succeeded || 0;
			document.getElementById('failed').textContent = d.total_failed || 0;
			document.getElementById('timeouts').textContent = d.total_timeout || 0;
			document.getElementById('rate').textContent = (d.success_rate || 0).toFixed(1) + '%';
			document.getElementById('avg').textContent = (d.avg_duration_ms || 0).toFixed(0) + 'ms';
		});
		fetch('/api/jobs').then(r => r.json()).then(d => {
			const tbody = document.getElementById('queue');
			tbody.innerHTML = '';
			['pending', 'processing', 'completed', 'failed', 'dead'].forEach(state => {
				const row = document.createElement('tr');
				row.innerHTML = '<td>' + state + '</td><td>' + (d[state] || 0) + '</td>';
				tbody.appendChild(row);
			});
		});
		fetch('/api/executions').then(r => r.json()).then(d => {
			const tbody = document.getElementById('executions');
			tbody.innerHTML = '';
			d.forEach(e => {
				const result = e.success ? '<span class="ok">ok</span>'
					: (e.timeout ? '<span class="warn">timeout</span>' : '<span class="bad">failed</span>');
				const row = document.createElement('tr');
				row.innerHTML = '<td>' + e.job_id + '</td><td>' + e.command + '</td><td>' +
					new Date(e.started_at).toLocaleString() + '</td><td>' + e.duration_ms + 'ms</td><td>' + result + '</td>';
				tbody.appendChild(row);
			});
		});
	}
	refresh();
	setInterval(refresh, 5000);
	</script>
</body>
</html>`
