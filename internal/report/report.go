package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/template"
	"time"

	"github.com/FranksOps/pilotjobs/internal/jobs"
	"github.com/FranksOps/pilotjobs/internal/serp"
)

// UpdatedLayout is the timestamp format shown on the page and in the summary line.
const UpdatedLayout = "2006-01-02 15:04"

// Failure is one keyword/provider search that produced no results.
type Failure struct {
	Keyword    string `json:"keyword"`
	Provider   string `json:"provider"`
	StatusCode int    `json:"status_code,omitempty"`
	Error      string `json:"error"`
}

// Summary contains aggregated counts about one generation run.
type Summary struct {
	RunID       string         `json:"run_id,omitempty"`
	Output      string         `json:"output"`
	GeneratedAt time.Time      `json:"generated_at"`
	Collected   int            `json:"collected"`
	Unique      int            `json:"unique"`
	Duplicates  int            `json:"duplicates"`
	New         int            `json:"new"`
	ByProvider  map[string]int `json:"by_provider"`
	ByKeyword   map[string]int `json:"by_keyword"`
	Failures    []Failure      `json:"failures"`
}

// GenerateSummary counts the unique postings of a run against the number of
// records collected before deduplication.
func GenerateSummary(collected int, postings []jobs.Posting, failures []*serp.SearchFailure) Summary {
	s := Summary{
		Collected:  collected,
		Unique:     len(postings),
		Duplicates: collected - len(postings),
		ByProvider: make(map[string]int),
		ByKeyword:  make(map[string]int),
		Failures:   make([]Failure, 0, len(failures)),
	}
	if s.Duplicates < 0 {
		s.Duplicates = 0
	}

	for _, p := range postings {
		s.ByProvider[p.Provider]++
		s.ByKeyword[p.Keyword]++
		if p.New {
			s.New++
		}
	}

	for _, f := range failures {
		if f == nil {
			continue
		}
		msg := ""
		if f.Err != nil {
			msg = f.Err.Error()
		}
		s.Failures = append(s.Failures, Failure{
			Keyword:    f.Keyword,
			Provider:   f.Provider,
			StatusCode: f.StatusCode,
			Error:      msg,
		})
	}
	return s
}

// SummaryLine is the one-line message printed after the page is written.
func SummaryLine(output string, unique int, at time.Time) string {
	return fmt.Sprintf("Generated %s with %d unique results (Updated on %s UTC)",
		output, unique, at.UTC().Format(UpdatedLayout))
}

// WriteJSON writes the summary to the provided writer in JSON format.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}

type count struct {
	Name  string
	Count int
}

func sortedCounts(m map[string]int) []count {
	out := make([]count, 0, len(m))
	for k, v := range m {
		out = append(out, count{Name: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

var textTmpl = template.Must(template.New("textReport").Parse(`{{.Line}}
------------------
Collected:   {{.S.Collected}} results
Unique:      {{.S.Unique}}
Duplicates:  {{.S.Duplicates}}
New:         {{.S.New}}

By Provider:
{{- range .Providers}}
  {{.Name}}: {{.Count}}
{{- else}}
  None
{{- end}}

By Keyword:
{{- range .Keywords}}
  {{.Name}}: {{.Count}}
{{- else}}
  None
{{- end}}

Failures: {{len .S.Failures}}
{{- range .S.Failures}}
  {{.Provider}} {{printf "%q" .Keyword}}: {{.Error}}
{{- end}}
`))

// WriteText writes a human-readable text summary to the provided writer. The
// first line is SummaryLine.
func WriteText(w io.Writer, summary Summary) error {
	data := struct {
		Line      string
		S         Summary
		Providers []count
		Keywords  []count
	}{
		Line:      SummaryLine(summary.Output, summary.Unique, summary.GeneratedAt),
		S:         summary,
		Providers: sortedCounts(summary.ByProvider),
		Keywords:  sortedCounts(summary.ByKeyword),
	}
	if err := textTmpl.Execute(w, data); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}
