package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/pir-stairs/internal/history"
	"github.com/sweeney/pir-stairs/internal/stairs"
	"github.com/sweeney/pir-stairs/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"pin": func(p int8) string {
		if p < 0 {
			return "disabled"
		}
		return fmt.Sprintf("GPIO%d", p)
	},
	"preset": func(id uint8) string {
		if id == stairs.NoPreset {
			return "disabled"
		}
		return fmt.Sprintf("#%d", id)
	},
	"utc": func(t time.Time) string {
		return t.UTC().Format("2006-01-02T15:04:05Z")
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="5">
<title>PIR Stairs</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.armed { color: green; font-weight: bold; }
.idle { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>PIR Stairs</h1>

<h2>State</h2>
<table>
<tr><th>Controller</th><td id="state" class="{{if eq .State "ARMED"}}armed{{else}}idle{{end}}">{{.State}}</td></tr>
{{if .LockoutRemaining}}<tr><th>Lockout remaining</th><td>{{.LockoutRemaining}}</td></tr>{{end}}
{{with .LastTrigger}}<tr><th>Last trigger</th><td>{{.Direction}} preset #{{.PresetID}} at {{utc .Time}}</td></tr>{{end}}
</table>

<h2>Sensors</h2>
<table>
<tr><th>Up sensor</th><td>{{pin .Stairs.PinUp}}</td></tr>
<tr><th>Up preset</th><td>{{preset .Stairs.PresetUp}}</td></tr>
<tr><th>Down sensor</th><td>{{pin .Stairs.PinDown}}</td></tr>
<tr><th>Down preset</th><td>{{preset .Stairs.PresetDown}}</td></tr>
<tr><th>Lockout</th><td>{{.Stairs.LockoutSec}}s</td></tr>
</table>

<h2>Counts</h2>
<table>
<tr><th>Up</th><td>{{.Counts.Up}}</td></tr>
<tr><th>Down</th><td>{{.Counts.Down}}</td></tr>
<tr><th>Read errors</th><td>{{.Counts.ReadErrors}}</td></tr>
<tr><th>Preset errors</th><td>{{.Counts.PresetErrors}}</td></tr>
</table>

{{if .Recent}}<h2>Recent triggers</h2>
<table>
{{range .Recent}}<tr><th>{{utc .Time}}</th><td>{{.Direction}} preset #{{.PresetID}}</td></tr>
{{end}}</table>{{end}}

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>WLED topic</th><td>{{.Config.WLEDTopic}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{utc .StartTime}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>GPIO</th><td>{{.Config.GPIOBackend}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> · <a href="/config.json">config</a> · <a href="/history.json">history</a> · <a href="/metrics">metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot, recent []*history.Record) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Recent []*history.Record
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Recent:   recent,
	}
	return indexTmpl.Execute(w, data)
}
