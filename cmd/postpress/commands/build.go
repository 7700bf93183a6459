package commands

import (
	"log/slog"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/postpress/internal/config"
	ferrors "git.home.luguber.info/inful/postpress/internal/foundation/errors"
	"git.home.luguber.info/inful/postpress/internal/logfields"
	"git.home.luguber.info/inful/postpress/internal/metrics"
	"git.home.luguber.info/inful/postpress/internal/pipeline"
	"git.home.luguber.info/inful/postpress/internal/site"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Source      string `short:"s" help:"Directory containing the posts" default:"." type:"path"`
	Output      string `short:"o" help:"Directory the site is written to" default:"site" type:"path"`
	Drafts      bool   `help:"Render drafts to drafts/ (never listed)"`
	Workers     int    `help:"Render worker count (0 uses the configured value or the CPU count)" default:"0"`
	ReportFile  string `name:"report-file" help:"Write the JSON run report to this path (outside the output directory)" type:"path"`
	MetricsFile string `name:"metrics-file" help:"Write Prometheus metrics in textfile format to this path" type:"path"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	if b.ReportFile != "" && within(b.Output, b.ReportFile) {
		return ferrors.ValidationError("report file must be outside the output directory").
			WithContext("report_file", b.ReportFile).
			WithContext("output", b.Output).
			Build()
	}
	return execute(g, root, runRequest{
		source:      b.Source,
		output:      b.Output,
		drafts:      b.Drafts,
		workers:     b.Workers,
		reportFile:  b.ReportFile,
		metricsFile: b.MetricsFile,
	})
}

type runRequest struct {
	source      string
	output      string
	dryRun      bool
	drafts      bool
	workers     int
	reportFile  string
	metricsFile string
}

// execute loads configuration, runs the pipeline and prints the summary.
// Report and metrics persistence failures are logged but never change the
// outcome of the run.
func execute(g *Global, root *CLI, req runRequest) error {
	cfg, err := config.Load(config.Resolve(root.Config, req.source))
	if err != nil {
		return err
	}
	root.applyConfigLogging(cfg)

	workers := req.workers
	if workers <= 0 {
		workers = cfg.Workers()
	}

	var rec metrics.Recorder = metrics.NoopRecorder{}
	var prom *metrics.PrometheusRecorder
	if req.metricsFile != "" {
		prom = metrics.NewPrometheusRecorder(nil)
		rec = prom
	}

	p, err := pipeline.New(pipeline.Options{
		Source:   req.source,
		Output:   req.output,
		DryRun:   req.dryRun,
		Drafts:   req.drafts || cfg.Build.Drafts,
		Workers:  workers,
		Location: cfg.Location(),
		Site:     siteConfig(cfg),
		Recorder: rec,
	})
	if err != nil {
		return err
	}

	rep, runErr := p.Run(g.context())
	if err := rep.WriteSummary(g.stdout(), root.Verbose); err != nil {
		slog.Warn("Failed to print run summary", logfields.Error(err))
	}
	if req.reportFile != "" {
		if err := rep.Persist(req.reportFile); err != nil {
			slog.Warn("Failed to write run report", logfields.Path(req.reportFile), logfields.Error(err))
		}
	}
	if prom != nil {
		if err := prom.WriteTextfile(req.metricsFile); err != nil {
			slog.Warn("Failed to write metrics", logfields.Path(req.metricsFile), logfields.Error(err))
		}
	}
	return runErr
}

func siteConfig(cfg *config.Config) site.Config {
	links := make([]site.Link, 0, len(cfg.Links))
	for _, l := range cfg.Links {
		links = append(links, site.Link{Label: l.Label, URL: l.URL})
	}
	return site.Config{
		Title:       cfg.Title,
		Description: cfg.Description,
		BaseURL:     cfg.BaseURL,
		Author:      cfg.Author,
		Links:       links,
	}
}

// within reports whether path lies inside dir.
func within(dir, path string) bool {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
