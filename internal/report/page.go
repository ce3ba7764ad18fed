package report

import (
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/FranksOps/pilotjobs/internal/jobs"
	"github.com/FranksOps/pilotjobs/internal/serp"
)

// Page defaults.
const (
	DefaultTitle   = "Pilot Jobs"
	DefaultHeading = "Aviation Pilot Jobs"
)

// Page is everything rendered into the static job board.
type Page struct {
	Title       string
	Heading     string
	GeneratedAt time.Time
	Postings    []jobs.Posting
	// Failures are listed in a footer so a reader knows coverage was partial.
	Failures []*serp.SearchFailure
}

const htmlTmpl = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
  body { font-family: sans-serif; margin: 40px auto; max-width: 860px; color: #333; }
  h1 { border-bottom: 2px solid #ccc; padding-bottom: 10px; }
  .meta { color: #666; }
  ul.jobs { list-style: none; padding: 0; }
  .job-card { padding: 16px; margin: 10px 0; background: #f4f4f4; border-radius: 5px; }
  .job-card a { font-size: 18px; font-weight: bold; color: #1a4d8f; text-decoration: none; }
  .job-card p { margin: 6px 0 0; }
  .badge { display: inline-block; font-size: 12px; padding: 2px 6px; margin-right: 4px; border-radius: 3px; background: #dde6f3; }
  .badge.new { background: #2e7d32; color: #fff; }
  .source { font-size: 12px; color: #888; }
  .failures { margin-top: 30px; font-size: 13px; color: #a33; }
</style>
</head>
<body>
  <h1>{{.Heading}}</h1>
  <p class="meta">Updated on: {{updated .GeneratedAt}} UTC</p>
  <p class="meta"><strong>{{len .Postings}} jobs</strong></p>
  <ul class="jobs">
  {{- range .Postings}}
    <li class="job-card">
      {{if .New}}<span class="badge new">new</span>{{end}}
      <a href="{{.URL}}" target="_blank" rel="noopener">{{.Title}}</a>
      {{- if .Snippet}}
      <p>{{.Snippet}}</p>
      {{- end}}
      <p class="source">{{.Keyword}} via {{.Provider}}{{range .Tags}} <span class="badge">{{.}}</span>{{end}}</p>
    </li>
  {{- end}}
  </ul>
  {{- if .Failures}}
  <div class="failures">
    <p>Some searches failed:</p>
    <ul>
    {{- range .Failures}}
      <li>{{.Provider}}: {{.Keyword}}</li>
    {{- end}}
    </ul>
  </div>
  {{- end}}
</body>
</html>
`

var pageTmpl = template.Must(template.New("page").Funcs(template.FuncMap{
	"updated": func(t time.Time) string { return t.UTC().Format(UpdatedLayout) },
}).Parse(htmlTmpl))

// WriteHTML renders the job board to w. Every value is escaped for its
// context, so titles and snippets cannot inject markup.
func WriteHTML(w io.Writer, page Page) error {
	if page.Title == "" {
		page.Title = DefaultTitle
	}
	if page.Heading == "" {
		page.Heading = DefaultHeading
	}
	if err := pageTmpl.Execute(w, page); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}

// WriteFile renders page to path, replacing any previous file. The page is
// written to a temporary file in the same directory and renamed into place.
func WriteFile(path string, page Page) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".pilotjobs-*.html")
	if err != nil {
		return fmt.Errorf("report: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := WriteHTML(tmp, page); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("report: close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("report: chmod: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("report: write %s: %w", path, err)
	}
	return nil
}
