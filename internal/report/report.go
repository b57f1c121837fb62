package report

import (
	"encoding/json"
	"fmt"
	htmltemplate "html/template"
	"io"
	"text/template"
	"time"

	"github.com/FranksOps/linkscout/internal/storage"
)

// Summary condenses one discovery run for display.
type Summary struct {
	RunID         string
	Topic         string
	Level         string
	Reranked      bool
	StartTime     time.Time
	Duration      time.Duration
	Queries       int
	FailedQueries int
	TotalHits     int
	Rejected      map[string]int
	TotalRejected int
	Candidates    int
	Links         []storage.RankedLink
	Excluded      []storage.RankedLink
}

// Summarize builds a Summary from a run record. A nil record gives an empty
// summary.
func Summarize(rec *storage.RunRecord) Summary {
	s := Summary{Rejected: make(map[string]int)}
	if rec == nil {
		return s
	}

	s.RunID = rec.ID
	s.Topic = rec.Topic
	s.Level = rec.Level
	s.Reranked = rec.Reranked
	s.StartTime = rec.CreatedAt
	s.Duration = rec.Duration
	s.Candidates = rec.Candidates
	s.Links = rec.Links
	s.Excluded = rec.Excluded

	for _, q := range rec.Queries {
		s.Queries++
		if q.Error != "" {
			s.FailedQueries++
		}
		s.TotalHits += q.Hits
	}
	for reason, n := range rec.Rejected {
		s.Rejected[reason] += n
		s.TotalRejected += n
	}
	return s
}

// WriteJSON writes the summary to the provided writer in JSON format.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("context: %w", err)
	}
	return nil
}

// WriteText writes a human-readable text summary to the provided writer.
func WriteText(w io.Writer, summary Summary) error {
	const textTmpl = `Link Discovery: {{.Topic}} ({{.Level}})
------------------
Run:           {{.RunID}}
Time:          {{.StartTime.Format "2006-01-02 15:04:05"}} ({{.Duration}})
Queries:       {{.Queries}} ({{.FailedQueries}} failed, {{.TotalHits}} hits)
Rejected:      {{.TotalRejected}}
{{- range $reason, $count := .Rejected}}
  {{$reason}}: {{$count}}
{{- end}}
Candidates:    {{.Candidates}}
Reranked:      {{.Reranked}}

Links:
{{- range $i, $l := .Links}}
  {{inc $i}}. [{{$l.Score}}] {{$l.URL}}
{{- else}}
  None
{{- end}}
{{- if .Excluded}}

Excluded:
{{- range .Excluded}}
  {{.URL}}: {{.Excluded}}
{{- end}}
{{- end}}
`

	t, err := template.New("textReport").Funcs(template.FuncMap{"inc": inc}).Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("context: %w", err)
	}

	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("context: %w", err)
	}

	return nil
}

// WriteHTML writes a basic HTML report to the provided writer. Page URLs
// come from the web, so the template escapes them.
func WriteHTML(w io.Writer, summary Summary) error {
	const htmlTmpl = `<!DOCTYPE html>
<html>
<head>
<title>Link Discovery Report</title>
<style>
  body { font-family: sans-serif; margin: 40px; color: #333; }
  h1 { border-bottom: 2px solid #ccc; padding-bottom: 10px; }
  .stat-card { display: inline-block; padding: 20px; margin: 10px 10px 10px 0; background: #f4f4f4; border-radius: 5px; min-width: 150px; }
  .stat-val { font-size: 24px; font-weight: bold; }
  table { border-collapse: collapse; margin-top: 10px; }
  th, td { padding: 8px 12px; border: 1px solid #ccc; text-align: left; }
  th { background: #eaeaea; }
</style>
</head>
<body>
  <h1>{{.Topic}} ({{.Level}})</h1>
  <p><strong>Run:</strong> {{.RunID}} at {{.StartTime.Format "2006-01-02 15:04:05"}} ({{.Duration}})</p>

  <div class="stat-card">
    <div>Queries</div>
    <div class="stat-val">{{.Queries}}</div>
  </div>
  <div class="stat-card">
    <div>Failed Queries</div>
    <div class="stat-val" style="color: {{if gt .FailedQueries 0}}red{{else}}green{{end}};">{{.FailedQueries}}</div>
  </div>
  <div class="stat-card">
    <div>Candidates</div>
    <div class="stat-val">{{.Candidates}}</div>
  </div>
  <div class="stat-card">
    <div>Rejected</div>
    <div class="stat-val">{{.TotalRejected}}</div>
  </div>

  <h3>Links{{if .Reranked}} (reranked){{end}}</h3>
  <table>
    <tr><th>Score</th><th>URL</th><th>Host</th></tr>
    {{- range .Links}}
    <tr><td>{{.Score}}</td><td><a href="{{.URL}}">{{.URL}}</a></td><td>{{.Host}}</td></tr>
    {{- else}}
    <tr><td colspan="3">None</td></tr>
    {{- end}}
  </table>

  <h3>Rejected By Reason</h3>
  <table>
    <tr><th>Reason</th><th>Count</th></tr>
    {{- range $reason, $count := .Rejected}}
    <tr><td>{{$reason}}</td><td>{{$count}}</td></tr>
    {{- else}}
    <tr><td colspan="2">None</td></tr>
    {{- end}}
  </table>

  {{- if .Excluded}}

  <h3>Excluded By Rerank</h3>
  <table>
    <tr><th>URL</th><th>Reason</th></tr>
    {{- range .Excluded}}
    <tr><td>{{.URL}}</td><td>{{.Excluded}}</td></tr>
    {{- end}}
  </table>
  {{- end}}
</body>
</html>
`
	t, err := htmltemplate.New("htmlReport").Parse(htmlTmpl)
	if err != nil {
		return fmt.Errorf("context: %w", err)
	}

	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("context: %w", err)
	}

	return nil
}

func inc(i int) int { return i + 1 }
