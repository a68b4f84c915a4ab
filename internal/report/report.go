// Package report aggregates per-article outcomes into a run summary and
// renders it for people (text, HTML) and machines (JSON).
package report

import (
	"encoding/json"
	"fmt"
	htmltemplate "html/template"
	"io"
	"text/tabwriter"
	"text/template"
	"time"

	"github.com/FranksOps/quill/internal/storage"
)

// Summary is the report of one pipeline run.
type Summary struct {
	RunID      string             `json:"run_id"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
	Duration   time.Duration      `json:"duration"`
	Total      int                `json:"total"`
	Enhanced   int                `json:"enhanced"`
	Failed     int                `json:"failed"`
	Skipped    int                `json:"skipped"`
	Outcomes   []*storage.Outcome `json:"articles"`
}

// NewSummary starts an empty summary for runID.
func NewSummary(runID string, started time.Time) *Summary {
	return &Summary{RunID: runID, StartedAt: started, Outcomes: []*storage.Outcome{}}
}

// Add records o and bumps the matching counter.
func (s *Summary) Add(o *storage.Outcome) {
	s.Outcomes = append(s.Outcomes, o)
	switch o.Status {
	case storage.StatusEnhanced:
		s.Enhanced++
	case storage.StatusFailed:
		s.Failed++
	case storage.StatusSkipped:
		s.Skipped++
	}
}

// Finish stamps the end of the run.
func (s *Summary) Finish(at time.Time) {
	s.FinishedAt = at
	s.Duration = at.Sub(s.StartedAt)
}

// ByStatus returns the outcomes with status st in processing order.
func (s *Summary) ByStatus(st storage.Status) []*storage.Outcome {
	var out []*storage.Outcome
	for _, o := range s.Outcomes {
		if o.Status == st {
			out = append(out, o)
		}
	}
	return out
}

// FirstEnhanced returns the first enhanced outcome, or nil.
func (s *Summary) FirstEnhanced() *storage.Outcome {
	for _, o := range s.Outcomes {
		if o.Status == storage.StatusEnhanced {
			return o
		}
	}
	return nil
}

// GenerateSummary rebuilds a summary from stored outcomes, e.g. a run read
// back from the history ledger. Outcomes may be in any order.
func GenerateSummary(outcomes []*storage.Outcome) Summary {
	s := Summary{Outcomes: []*storage.Outcome{}}
	if len(outcomes) == 0 {
		return s
	}

	s.RunID = outcomes[0].RunID
	s.StartedAt = outcomes[0].CreatedAt.Add(-outcomes[0].Duration)
	s.FinishedAt = outcomes[0].CreatedAt

	for _, o := range outcomes {
		s.Total++
		s.Add(o)

		if start := o.CreatedAt.Add(-o.Duration); start.Before(s.StartedAt) {
			s.StartedAt = start
		}
		if o.CreatedAt.After(s.FinishedAt) {
			s.FinishedAt = o.CreatedAt
		}
	}

	s.Duration = s.FinishedAt.Sub(s.StartedAt)
	return s
}

// WriteJSON writes the summary to the provided writer in JSON format.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("report json: %w", err)
	}
	return nil
}

var funcs = template.FuncMap{
	"enhanced": func(s Summary) []*storage.Outcome { return s.ByStatus(storage.StatusEnhanced) },
	"failed":   func(s Summary) []*storage.Outcome { return s.ByStatus(storage.StatusFailed) },
	"skipped":  func(s Summary) []*storage.Outcome { return s.ByStatus(storage.StatusSkipped) },
	"inc":      func(i int) int { return i + 1 },
}

// WriteText writes a human-readable text summary to the provided writer.
func WriteText(w io.Writer, summary Summary) error {
	const textTmpl = `==================================================
PIPELINE SUMMARY
==================================================
Run:            {{.RunID}}
Duration:       {{.Duration}}
Total Articles: {{.Total}}
Enhanced:       {{.Enhanced}}
Failed:         {{.Failed}}
Skipped:        {{.Skipped}}
==================================================
{{- with enhanced .}}

Successfully Enhanced Articles:
{{- range $i, $o := .}}

{{inc $i}}. {{$o.Title}}
   Slug: {{$o.Slug}}
   Citations: {{len $o.Citations}}
   Length: {{$o.OriginalLength}} → {{$o.EnhancedLength}} chars
{{- end}}
{{- end}}
{{- with failed .}}

Failed Articles:
{{- range $i, $o := .}}

{{inc $i}}. {{$o.Title}}
   Error: {{$o.Error}}
{{- end}}
{{- end}}
{{- with skipped .}}

Skipped Articles:
{{- range $i, $o := .}}

{{inc $i}}. {{$o.Title}}
   Reason: {{$o.Error}}
{{- end}}
{{- end}}
`

	t, err := template.New("textReport").Funcs(funcs).Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("report text template: %w", err)
	}

	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("report text: %w", err)
	}

	return nil
}

// WriteHTML writes a basic HTML report to the provided writer.
func WriteHTML(w io.Writer, summary Summary) error {
	const htmlTmpl = `<!DOCTYPE html>
<html>
<head>
<title>Quill Enhancement Report</title>
<style>
  body { font-family: sans-serif; margin: 40px; color: #333; }
  h1 { border-bottom: 2px solid #ccc; padding-bottom: 10px; }
  .stat-card { display: inline-block; padding: 20px; margin: 10px 10px 10px 0; background: #f4f4f4; border-radius: 5px; min-width: 150px; }
  .stat-val { font-size: 24px; font-weight: bold; }
  table { border-collapse: collapse; margin-top: 10px; }
  th, td { padding: 8px 12px; border: 1px solid #ccc; text-align: left; vertical-align: top; }
  th { background: #eaeaea; }
  .enhanced { color: green; }
  .failed { color: red; }
  .skipped { color: #888; }
</style>
</head>
<body>
  <h1>Quill Enhancement Report</h1>
  <p><strong>Run:</strong> {{.RunID}}<br>
  <strong>Time:</strong> {{.StartedAt.Format "2006-01-02 15:04:05"}} to {{.FinishedAt.Format "2006-01-02 15:04:05"}} ({{.Duration}})</p>

  <div class="stat-card">
    <div>Total Articles</div>
    <div class="stat-val">{{.Total}}</div>
  </div>
  <div class="stat-card">
    <div>Enhanced</div>
    <div class="stat-val enhanced">{{.Enhanced}}</div>
  </div>
  <div class="stat-card">
    <div>Failed</div>
    <div class="stat-val" style="color: {{if gt .Failed 0}}red{{else}}green{{end}};">{{.Failed}}</div>
  </div>
  <div class="stat-card">
    <div>Skipped</div>
    <div class="stat-val skipped">{{.Skipped}}</div>
  </div>

  <h3>Articles</h3>
  <table>
    <tr><th>Title</th><th>Slug</th><th>Status</th><th>Length</th><th>Citations</th><th>Error</th></tr>
    {{- range .Outcomes}}
    <tr>
      <td>{{.Title}}</td>
      <td>{{.Slug}}</td>
      <td class="{{.Status}}">{{.Status}}</td>
      <td>{{if eq .Status "enhanced"}}{{.OriginalLength}} → {{.EnhancedLength}}{{end}}</td>
      <td>{{range .Citations}}<a href="{{.}}">{{.}}</a><br>{{end}}</td>
      <td>{{.Error}}</td>
    </tr>
    {{- else}}
    <tr><td colspan="6">None</td></tr>
    {{- end}}
  </table>
</body>
</html>
`
	t, err := htmltemplate.New("htmlReport").Parse(htmlTmpl)
	if err != nil {
		return fmt.Errorf("report html template: %w", err)
	}

	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("report html: %w", err)
	}

	return nil
}

// WriteHistory writes ledger outcomes as an aligned table, newest first as given.
func WriteHistory(w io.Writer, outcomes []*storage.Outcome) error {
	const historyTmpl = `WHEN	RUN	SLUG	STATUS	STAGE	LENGTH	CITATIONS	ERROR
{{- range .}}
{{.CreatedAt.Local.Format "2006-01-02 15:04"}}	{{short .RunID}}	{{.Slug}}	{{.Status}}	{{.Stage}}	{{if eq .Status "enhanced"}}{{.OriginalLength}}→{{.EnhancedLength}}{{else}}-{{end}}	{{len .Citations}}	{{.Error}}
{{- end}}
`
	t, err := template.New("history").Funcs(template.FuncMap{
		"short": func(id string) string {
			if len(id) > 8 {
				return id[:8]
			}
			return id
		},
	}).Parse(historyTmpl)
	if err != nil {
		return fmt.Errorf("report history template: %w", err)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if err := t.Execute(tw, outcomes); err != nil {
		return fmt.Errorf("report history: %w", err)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("report history: %w", err)
	}
	return nil
}
