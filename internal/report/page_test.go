package report

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/FranksOps/pilotjobs/internal/jobs"
	"github.com/FranksOps/pilotjobs/internal/serp"
)

func TestWriteHTML(t *testing.T) {
	page := Page{
		GeneratedAt: time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC),
		Postings: []jobs.Posting{
			posting("Caravan Captain", "http://a.example/job1", "google", "Caravan", true),
			posting("PC-12 FO", "http://b.example/job2", "bing", "PC-12", false),
		},
	}
	page.Postings[1].Tags = []string{"PC-12"}

	var buf bytes.Buffer
	if err := WriteHTML(&buf, page); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "<!DOCTYPE html>") || !strings.Contains(out, "</html>") {
		t.Errorf("expected a complete document")
	}
	if n := strings.Count(out, `<li class="job-card">`); n != 2 {
		t.Errorf("expected 2 job cards, got %d", n)
	}
	if !strings.Contains(out, "Updated on: 2024-05-01 12:30 UTC") {
		t.Errorf("expected update timestamp")
	}
	if !strings.Contains(out, "2 jobs") {
		t.Errorf("expected job count")
	}
	if !strings.Contains(out, `<a href="http://a.example/job1" target="_blank" rel="noopener">Caravan Captain</a>`) {
		t.Errorf("expected hyperlinked title, got %s", out)
	}
	if !strings.Contains(out, "<title>"+DefaultTitle+"</title>") || !strings.Contains(out, "<h1>"+DefaultHeading+"</h1>") {
		t.Errorf("expected default title and heading")
	}
	if strings.Count(out, `class="badge new"`) != 1 {
		t.Errorf("expected exactly one new badge")
	}
	if !strings.Contains(out, `<span class="badge">PC-12</span>`) {
		t.Errorf("expected tag badge")
	}
	if strings.Contains(out, "Some searches failed") {
		t.Errorf("expected no failure footer")
	}
}

func TestWriteHTML_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHTML(&buf, Page{Title: "Jobs", Heading: "Jobs", GeneratedAt: time.Now()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "<html") || !strings.Contains(out, "</html>") {
		t.Errorf("expected a complete document")
	}
	if strings.Contains(out, `class="job-card"`) {
		t.Errorf("expected no job cards")
	}
	if !strings.Contains(out, "0 jobs") {
		t.Errorf("expected 0 jobs")
	}
}

func TestWriteHTML_Escapes(t *testing.T) {
	page := Page{
		Postings: []jobs.Posting{{Record: jobs.Record{
			Title:   `<script>alert("x")</script>`,
			URL:     "javascript:alert(1)",
			Snippet: "Pay & benefits <b>",
		}}},
		Failures: []*serp.SearchFailure{{Keyword: "PC-12", Provider: "google", Err: errors.New("boom")}},
	}

	var buf bytes.Buffer
	if err := WriteHTML(&buf, page); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if strings.Contains(out, "<script>") {
		t.Errorf("expected title to be escaped")
	}
	if strings.Contains(out, "javascript:alert") {
		t.Errorf("expected unsafe URL to be filtered")
	}
	if !strings.Contains(out, "Pay &amp; benefits &lt;b&gt;") {
		t.Errorf("expected snippet to be escaped")
	}
	if !strings.Contains(out, "google: PC-12") {
		t.Errorf("expected failure footer")
	}
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteHTML_WriterError(t *testing.T) {
	if err := WriteHTML(failWriter{}, Page{}); err == nil {
		t.Fatal("expected writer error")
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.html")
	if err := os.WriteFile(path, []byte("stale content that is much longer than nothing"), 0o644); err != nil {
		t.Fatal(err)
	}

	page := Page{Postings: []jobs.Posting{posting("A", "http://a.example/1", "google", "Caravan", false)}}
	if err := WriteFile(path, page); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "stale") || !strings.HasPrefix(string(data), "<!DOCTYPE html>") {
		t.Errorf("expected file to be fully replaced")
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("expected no leftover temp files, found %d entries", len(entries))
	}
}

func TestWriteFile_MissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "index.html")
	if err := WriteFile(path, Page{}); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
