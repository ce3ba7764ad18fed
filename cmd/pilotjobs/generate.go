package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/FranksOps/pilotjobs/internal/metrics"
	"github.com/FranksOps/pilotjobs/internal/pipeline"
	"github.com/FranksOps/pilotjobs/internal/report"
	"github.com/FranksOps/pilotjobs/pkg/ratelimit"
)

// Summary formats accepted by --summary-format.
const (
	summaryLine = "line"
	summaryText = "text"
	summaryJSON = "json"
)

type generateOptions struct {
	summaryFormat string
}

func addGenerateFlags(cmd *cobra.Command, gen *generateOptions) {
	f := cmd.Flags()
	f.StringP("output", "o", "index.html", "path of the generated HTML page")
	f.StringSlice("keywords", nil, "aircraft keywords to search (default Caravan,PC-12,Navajo,Comanche)")
	f.StringSlice("providers", nil, "search providers in order: google, bing, serpapi (default google,bing)")
	f.Int("concurrency", 1, "maximum searches in flight")
	f.Bool("canonicalize", false, "deduplicate and archive on canonicalized URLs instead of exact URLs")
	f.StringVar(&gen.summaryFormat, "summary-format", summaryLine, "summary printed after generation: line, text or json")
}

func newGenerateCmd(opts *globalOptions) *cobra.Command {
	gen := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Search every keyword and write the job page",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, opts, gen)
		},
	}
	addGenerateFlags(cmd, gen)
	return cmd
}

func runGenerate(cmd *cobra.Command, opts *globalOptions, gen *generateOptions) error {
	switch gen.summaryFormat {
	case summaryLine, summaryText, summaryJSON:
	default:
		return fmt.Errorf("unknown summary format %q", gen.summaryFormat)
	}

	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	logger, err := newLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	if cfg.Metrics.Port > 0 {
		srv := metrics.Start(cfg.Metrics.Port)
		defer srv.Stop(ctx)
		logger.Info("metrics server started", "port", cfg.Metrics.Port)
	}

	backend, err := openStorage(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	if backend != nil {
		defer backend.Close()
	}

	client, err := newHTTPClient(cfg.HTTP)
	if err != nil {
		return err
	}

	p := &pipeline.Pipeline{
		Providers:    buildProviders(cfg, client),
		Keywords:     cfg.Keywords,
		Concurrency:  cfg.Search.Concurrency,
		Limiter:      ratelimit.NewLimiter(cfg.Search.RPS, cfg.Search.Jitter),
		Canonicalize: cfg.Dedup.Canonicalize,
		Backend:      backend,
		Logger:       logger,
	}
	defer p.Limiter.Stop()

	res, err := p.Run(ctx)
	if err != nil {
		return err
	}

	page := report.Page{
		Title:       cfg.Output.Title,
		Heading:     cfg.Output.Heading,
		GeneratedAt: res.GeneratedAt,
		Postings:    res.Postings,
		Failures:    res.Failures,
	}
	if err := report.WriteFile(cfg.Output.Path, page); err != nil {
		return err
	}

	summary := report.GenerateSummary(res.Collected, res.Postings, res.Failures)
	summary.RunID = res.RunID
	summary.Output = cfg.Output.Path
	summary.GeneratedAt = res.GeneratedAt

	out := cmd.OutOrStdout()
	switch gen.summaryFormat {
	case summaryText:
		return report.WriteText(out, summary)
	case summaryJSON:
		return report.WriteJSON(out, summary)
	default:
		_, err := fmt.Fprintln(out, report.SummaryLine(summary.Output, summary.Unique, summary.GeneratedAt))
		return err
	}
}
