package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/FranksOps/pilotjobs/internal/storage"
)

type historyOptions struct {
	url      string
	provider string
	runID    string
	since    string
	limit    int
	offset   int
	asJSON   bool
}

func newHistoryCmd(opts *globalOptions) *cobra.Command {
	h := &historyOptions{}
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List postings archived by previous runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, opts, h)
		},
	}

	f := cmd.Flags()
	f.StringVar(&h.url, "url", "", "only postings with this exact URL")
	f.StringVar(&h.provider, "provider", "", "only postings from this provider")
	f.StringVar(&h.runID, "run", "", "only postings from this run ID")
	f.StringVar(&h.since, "since", "", "only postings newer than a duration (72h) or date (2006-01-02)")
	f.IntVar(&h.limit, "limit", 50, "maximum postings to list (0 for all)")
	f.IntVar(&h.offset, "offset", 0, "postings to skip")
	f.BoolVar(&h.asJSON, "json", false, "print entries as JSON")
	return cmd
}

// parseSince accepts a look-back duration or an absolute date/time.
func parseSince(s string, now time.Time) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		t := now.Add(-d).UTC()
		return &t, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid --since %q: want a duration like 72h or a date like 2006-01-02", s)
}

func runHistory(cmd *cobra.Command, opts *globalOptions, h *historyOptions) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	if h.limit < 0 || h.offset < 0 {
		return errors.New("--limit and --offset cannot be negative")
	}

	since, err := parseSince(h.since, time.Now())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	backend, err := openStorage(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	if backend == nil {
		return errors.New("no archive configured: set storage.kind and storage.dsn")
	}
	defer backend.Close()

	entries, err := backend.Query(ctx, storage.Filter{
		URL:      h.url,
		Provider: h.provider,
		RunID:    h.runID,
		Since:    since,
		Limit:    h.limit,
		Offset:   h.offset,
	})
	if err != nil {
		return fmt.Errorf("failed to query archive: %w", err)
	}

	if h.asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if entries == nil {
			entries = []*storage.Entry{}
		}
		return enc.Encode(entries)
	}
	return writeHistoryTable(cmd.OutOrStdout(), entries)
}

func writeHistoryTable(w io.Writer, entries []*storage.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tPROVIDER\tKEYWORD\tTITLE\tURL")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.CreatedAt.UTC().Format("2006-01-02 15:04"),
			e.Provider,
			e.Keyword,
			truncate(e.Title, 60),
			e.URL,
		)
	}
	return tw.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
