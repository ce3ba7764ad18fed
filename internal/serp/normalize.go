package serp

import (
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/FranksOps/pilotjobs/internal/jobs"
)

// Normalize flattens a provider payload into records, in the provider's
// result order. Entries without a URL are skipped; a missing snippet becomes
// the empty string. Unknown or nil payloads yield no records.
func Normalize(raw Raw) []jobs.Record {
	switch r := raw.(type) {
	case *GoogleResponse:
		return normalizeGoogle(r)
	case *BingResponse:
		return normalizeBing(r)
	case *SerpAPIResponse:
		return normalizeSerpAPI(r)
	default:
		return nil
	}
}

func normalizeGoogle(r *GoogleResponse) []jobs.Record {
	if r == nil {
		return nil
	}
	out := make([]jobs.Record, 0, len(r.Items))
	for _, item := range r.Items {
		out = appendRecord(out, item.Title, item.Link, item.Snippet, r.providerName(), r.Keyword)
	}
	return out
}

func normalizeBing(r *BingResponse) []jobs.Record {
	if r == nil || r.WebPages == nil {
		return nil
	}
	out := make([]jobs.Record, 0, len(r.WebPages.Value))
	for _, page := range r.WebPages.Value {
		out = appendRecord(out, page.Name, page.URL, page.Snippet, r.providerName(), r.Keyword)
	}
	return out
}

func normalizeSerpAPI(r *SerpAPIResponse) []jobs.Record {
	if r == nil {
		return nil
	}
	organic, ok := r.Data["organic_results"].([]interface{})
	if !ok {
		return nil
	}
	out := make([]jobs.Record, 0, len(organic))
	for _, item := range organic {
		res, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		title, _ := res["title"].(string)
		link, _ := res["link"].(string)
		snippet, _ := res["snippet"].(string)
		out = appendRecord(out, title, link, snippet, r.providerName(), r.Keyword)
	}
	return out
}

func appendRecord(out []jobs.Record, title, link, snippet, provider, keyword string) []jobs.Record {
	link = strings.TrimSpace(link)
	if link == "" {
		return out
	}
	return append(out, jobs.Record{
		Title:    cleanText(title),
		URL:      link,
		Snippet:  cleanText(snippet),
		Provider: provider,
		Keyword:  keyword,
	})
}

// cleanText strips markup and entities providers embed in titles and
// snippets and collapses whitespace.
func cleanText(s string) string {
	if strings.ContainsAny(s, "<&") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
		if err == nil {
			s = doc.Text()
		} else {
			s = html.UnescapeString(s)
		}
	}
	return strings.Join(strings.Fields(s), " ")
}
