// Package pipeline runs one publishing pass: discover, load, render,
// assemble and write.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/postpress/internal/content"
	ferrors "git.home.luguber.info/inful/postpress/internal/foundation/errors"
	"git.home.luguber.info/inful/postpress/internal/logfields"
	"git.home.luguber.info/inful/postpress/internal/metrics"
	"git.home.luguber.info/inful/postpress/internal/output"
	"git.home.luguber.info/inful/postpress/internal/render"
	"git.home.luguber.info/inful/postpress/internal/report"
	"git.home.luguber.info/inful/postpress/internal/site"
)

// Stage names used for logging and metrics.
const (
	StageDiscover = "discover"
	StageLoad     = "load"
	StageRender   = "render"
	StageAssemble = "assemble"
	StageWrite    = "write"
)

// Options configures a run.
type Options struct {
	Source string
	Output string
	// DryRun stops after assembly; nothing is written.
	DryRun   bool
	Drafts   bool
	Workers  int // <= 0 means runtime.NumCPU()
	Location *time.Location
	Site     site.Config
	Recorder metrics.Recorder
}

// Pipeline is the configured set of components for a run.
type Pipeline struct {
	opts      Options
	loader    *content.Loader
	renderer  *render.Renderer
	assembler *site.Assembler
	writer    *output.Writer
	recorder  metrics.Recorder
}

// New wires the components for opts.
func New(opts Options) (*Pipeline, error) {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	rec := opts.Recorder
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	asm, err := site.New(opts.Site)
	if err != nil {
		return nil, ferrors.InternalError("cannot load page templates").WithCause(err).Build()
	}
	return &Pipeline{
		opts:      opts,
		loader:    content.NewLoader(opts.Source, content.Options{IncludeDrafts: opts.Drafts, Location: opts.Location}),
		renderer:  render.New(),
		assembler: asm,
		writer:    output.NewWriter(opts.Output),
		recorder:  rec,
	}, nil
}

// Run executes one pass. Per-post problems are collected in the returned
// report and never fail the run; the error is non-nil only for fatal
// conditions, in which case the report records it as well.
func (p *Pipeline) Run(ctx context.Context) (*report.Report, error) {
	rep := report.New(p.opts.Source, p.opts.Output)
	log := slog.With(logfields.RunID(rep.RunID))
	start := time.Now()
	log.Info("Run started", logfields.Source(p.opts.Source), logfields.Output(p.opts.Output),
		logfields.Workers(p.opts.Workers), slog.Bool("dry_run", p.opts.DryRun))

	err := p.run(ctx, rep, log)
	if err != nil {
		rep.SetFatal(err)
	}
	rep.Finish()

	p.recorder.ObserveBuildDuration(time.Since(start))
	p.recorder.IncBuildOutcome(string(rep.Outcome))
	for _, is := range rep.Issues {
		p.recorder.IncIssue(string(is.Kind))
	}
	log.Info("Run finished", slog.String("outcome", string(rep.Outcome)),
		logfields.Elapsed(time.Since(start)), logfields.Count(len(rep.Issues)))
	return rep, err
}

func (p *Pipeline) run(ctx context.Context, rep *report.Report, log *slog.Logger) error {
	var files []string
	if err := p.stage(StageDiscover, log, func() (err error) {
		files, err = content.Discover(p.opts.Source)
		return err
	}); err != nil {
		return err
	}
	rep.PostsFound = len(files)

	var posts []*content.Post
	_ = p.stage(StageLoad, log, func() error {
		skipped := 0
		for res := range p.loader.Posts(files) {
			rep.Add(res.Issues...)
			logIssues(log, res.Issues)
			if res.Post == nil {
				skipped++
				log.Log(ctx, skipLevel(res.Err), "Skipped post",
					logfields.Path(res.Path), logfields.Error(res.Err))
				continue
			}
			posts = append(posts, res.Post)
		}
		p.recorder.AddPosts(metrics.PostsSkipped, skipped)
		return nil
	})

	var rendered []render.Rendered
	if err := p.stage(StageRender, log, func() (err error) {
		rendered, err = p.renderAll(ctx, posts, rep)
		return err
	}); err != nil {
		return err
	}

	var built *site.Site
	if err := p.stage(StageAssemble, log, func() (err error) {
		built, err = p.assembler.Assemble(rendered)
		if err != nil {
			return ferrors.InternalError("site assembly failed").WithCause(err).Build()
		}
		return nil
	}); err != nil {
		return err
	}
	for _, c := range built.Categories {
		log.Debug("Category assembled", logfields.Category(c.Slug), logfields.Count(len(c.Posts)))
	}
	rep.PostsPublished = len(built.Published)
	rep.DraftsRendered = len(built.Drafts)
	rep.Categories = len(built.Categories)
	p.recorder.AddPosts(metrics.PostsPublished, rep.PostsPublished)
	p.recorder.AddPosts(metrics.PostsDrafts, rep.DraftsRendered)

	if p.opts.DryRun {
		log.Info("Dry run, skipping write", logfields.Count(len(built.Pages)))
		return nil
	}
	if err := ctx.Err(); err != nil {
		return ferrors.CanceledError("run canceled before writing output").WithCause(err).Build()
	}

	return p.stage(StageWrite, log, func() error {
		sources := make([]output.Source, 0, len(built.Published)+len(built.Drafts))
		for _, post := range append(append([]*content.Post{}, built.Published...), built.Drafts...) {
			sources = append(sources, output.Source{Path: post.SourcePath, Fingerprint: post.Fingerprint})
		}
		res, err := p.writer.Write(ctx, built.Pages, sources)
		rep.PagesWritten, rep.PagesUnchanged, rep.PagesRemoved = res.Written, res.Unchanged, res.Removed
		p.recorder.AddPages(metrics.PagesWritten, res.Written)
		p.recorder.AddPages(metrics.PagesUnchanged, res.Unchanged)
		p.recorder.AddPages(metrics.PagesRemoved, res.Removed)
		return err
	})
}

// renderAll renders posts on a bounded worker pool. Each worker writes only
// its own slot of the result slice. A post that fails to render is reported
// and dropped; only cancellation aborts the stage.
func (p *Pipeline) renderAll(ctx context.Context, posts []*content.Post, rep *report.Report) ([]render.Rendered, error) {
	p.recorder.SetWorkers(p.opts.Workers)
	results := make([]render.Rendered, len(posts))
	failures := make([]error, len(posts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for i, post := range posts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			started := time.Now()
			r, err := p.renderer.Render(post)
			p.recorder.ObservePostRenderDuration(time.Since(started))
			if err != nil {
				failures[i] = err
				return nil
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, ferrors.CanceledError("render canceled").WithCause(err).Build()
	}

	out := make([]render.Rendered, 0, len(posts))
	for i, post := range posts {
		if failures[i] != nil {
			slog.Warn("Failed to render post", logfields.Post(post.ID), logfields.Error(failures[i]))
			msg := failures[i].Error()
			if ce, ok := ferrors.AsClassified(failures[i]); ok && ce.Cause() != nil {
				msg = ce.Message() + ": " + ce.Cause().Error()
			}
			rep.Add(report.Issue{
				Kind:    report.KindRenderWarning,
				Code:    report.CodeRenderFailed,
				Post:    post.ID,
				Path:    post.SourcePath,
				Message: msg,
				Skipped: true,
			})
			continue
		}
		rep.Add(results[i].Issues...)
		logIssues(slog.Default(), results[i].Issues)
		out = append(out, results[i])
	}
	return out, nil
}

// logIssues emits one debug record per reported issue.
func logIssues(log *slog.Logger, issues []report.Issue) {
	for _, is := range issues {
		log.Debug(is.Message, logfields.Kind(string(is.Kind)), logfields.Code(string(is.Code)),
			logfields.Path(is.Path))
	}
}

// skipLevel maps the severity of a skip reason onto a log level.
func skipLevel(err error) slog.Level {
	switch ferrors.GetSeverity(err) {
	case ferrors.SeverityInfo:
		return slog.LevelDebug
	case ferrors.SeverityWarning:
		return slog.LevelInfo
	default:
		return slog.LevelWarn
	}
}

// stage runs fn, recording its duration and result.
func (p *Pipeline) stage(name string, log *slog.Logger, fn func() error) error {
	started := time.Now()
	err := fn()
	elapsed := time.Since(started)
	p.recorder.ObserveStageDuration(name, elapsed)

	result := metrics.ResultSuccess
	switch {
	case err == nil:
	case ferrors.HasCategory(err, ferrors.CategoryCanceled):
		result = metrics.ResultCanceled
	default:
		result = metrics.ResultFatal
	}
	p.recorder.IncStageResult(name, result)

	if err != nil {
		log.Error("Stage failed", logfields.Phase(name), logfields.Elapsed(elapsed), logfields.Error(err))
		return fmt.Errorf("%s: %w", name, err)
	}
	log.Debug("Stage completed", logfields.Phase(name), logfields.Elapsed(elapsed))
	return nil
}
