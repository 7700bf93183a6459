// Package report collects per-post issues and run statistics for one pipeline run.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind is the top-level issue taxonomy.
type Kind string

const (
	KindMalformedMetadata Kind = "MalformedMetadata"
	KindRenderWarning     Kind = "RenderWarning"
	KindSourceUnreadable  Kind = "SourceUnreadable"
	KindInfo              Kind = "Info"
)

// Code is a stable, machine-parseable identifier refining a Kind.
// Codes are appended only; never reuse a removed one.
type Code string

const (
	CodeMissingKey        Code = "MISSING_KEY"
	CodeInvalidDate       Code = "INVALID_DATE"
	CodeInvalidHeader     Code = "INVALID_HEADER"
	CodeDuplicateID       Code = "DUPLICATE_ID"
	CodePathCollision     Code = "PATH_COLLISION"
	CodeReadFailed        Code = "READ_FAILED"
	CodeUnterminatedFence Code = "UNTERMINATED_FENCE"
	CodeDanglingFootnote  Code = "DANGLING_FOOTNOTE"
	CodeDuplicateFootnote Code = "DUPLICATE_FOOTNOTE"
	CodeRenderFailed      Code = "RENDER_FAILED"
	CodeUnrecognizedKeys  Code = "UNRECOGNIZED_KEYS"
	CodeDraftSkipped      Code = "DRAFT_SKIPPED"
	CodeUnresolvedAnchor  Code = "UNRESOLVED_ANCHOR"
)

// Issue is one reported condition. Skipped is true when the post was excluded from output.
type Issue struct {
	Kind    Kind   `json:"kind"`
	Code    Code   `json:"code"`
	Post    string `json:"post,omitempty"`
	Path    string `json:"path"`
	Line    int    `json:"line,omitempty"`
	Message string `json:"message"`
	Skipped bool   `json:"skipped"`
}

func (i Issue) String() string {
	loc := i.Path
	if i.Line > 0 {
		loc = fmt.Sprintf("%s:%d", i.Path, i.Line)
	}
	return fmt.Sprintf("%s [%s/%s] %s", loc, i.Kind, i.Code, i.Message)
}

// Outcome is the derived overall result of a run.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeWarning Outcome = "warning"
	OutcomeFailed  Outcome = "failed"
)

// Report captures statistics and issues for a run. Add is safe for concurrent use.
type Report struct {
	SchemaVersion  int       `json:"schema_version"`
	RunID          string    `json:"run_id"`
	Source         string    `json:"source"`
	Output         string    `json:"output,omitempty"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	PostsFound     int       `json:"posts_found"`
	PostsPublished int       `json:"posts_published"`
	DraftsRendered int       `json:"drafts_rendered"`
	Categories     int       `json:"categories"`
	PagesWritten   int       `json:"pages_written"`
	PagesUnchanged int       `json:"pages_unchanged"`
	PagesRemoved   int       `json:"pages_removed"`
	Issues         []Issue   `json:"issues"`
	Fatal          string    `json:"fatal,omitempty"`
	Outcome        Outcome   `json:"outcome"`

	mu sync.Mutex
}

// New starts a report for a run over source writing to output.
func New(source, output string) *Report {
	return &Report{
		SchemaVersion: 1,
		RunID:         uuid.NewString(),
		Source:        source,
		Output:        output,
		Start:         time.Now(),
		Issues:        []Issue{},
	}
}

// Add records issues.
func (r *Report) Add(issues ...Issue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Issues = append(r.Issues, issues...)
}

// SetFatal records the error that aborted the run.
func (r *Report) SetFatal(err error) {
	if err == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Fatal = err.Error()
}

// Finish stamps the end time, orders issues deterministically and derives the outcome.
func (r *Report) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.End = time.Now()
	sort.SliceStable(r.Issues, func(i, j int) bool {
		a, b := r.Issues[i], r.Issues[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.Code < b.Code
	})
	r.Outcome = r.deriveOutcome()
}

func (r *Report) deriveOutcome() Outcome {
	if r.Fatal != "" {
		return OutcomeFailed
	}
	for _, is := range r.Issues {
		if is.Skipped && is.Code != CodeDraftSkipped {
			return OutcomeWarning
		}
		if is.Kind == KindRenderWarning {
			return OutcomeWarning
		}
	}
	return OutcomeSuccess
}

// Count returns the number of issues of kind.
func (r *Report) Count(kind Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, is := range r.Issues {
		if is.Kind == kind {
			n++
		}
	}
	return n
}

// Skipped returns issues that excluded a post from output.
func (r *Report) Skipped() []Issue {
	return r.filter(func(is Issue) bool { return is.Skipped })
}

// Warnings returns render warnings and other non-excluding, non-informational issues.
func (r *Report) Warnings() []Issue {
	return r.filter(func(is Issue) bool { return !is.Skipped && is.Kind != KindInfo })
}

// Notes returns informational issues that did not exclude a post.
func (r *Report) Notes() []Issue {
	return r.filter(func(is Issue) bool { return !is.Skipped && is.Kind == KindInfo })
}

func (r *Report) filter(keep func(Issue) bool) []Issue {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Issue
	for _, is := range r.Issues {
		if keep(is) {
			out = append(out, is)
		}
	}
	return out
}

// Summary returns a human-readable single-line summary.
func (r *Report) Summary() string {
	dur := r.End.Sub(r.Start)
	if r.End.IsZero() {
		dur = 0
	}
	return fmt.Sprintf("posts=%d published=%d drafts=%d categories=%d written=%d unchanged=%d removed=%d skipped=%d warnings=%d duration=%s outcome=%s",
		r.PostsFound, r.PostsPublished, r.DraftsRendered, r.Categories, r.PagesWritten, r.PagesUnchanged, r.PagesRemoved,
		len(r.Skipped()), len(r.Warnings()), dur.Truncate(time.Millisecond), r.Outcome)
}

// WriteSummary prints the end-of-run summary listing skipped posts and warnings.
// Informational notes are listed only when verbose is set.
func (r *Report) WriteSummary(w io.Writer, verbose bool) error {
	var b strings.Builder
	fmt.Fprintln(&b, r.Summary())
	section := func(title string, issues []Issue) {
		if len(issues) == 0 {
			return
		}
		fmt.Fprintf(&b, "%s (%d):\n", title, len(issues))
		for _, is := range issues {
			fmt.Fprintf(&b, "  %s\n", is)
		}
	}
	section("Skipped posts", r.Skipped())
	section("Warnings", r.Warnings())
	if verbose {
		section("Notes", r.Notes())
	}
	if r.Fatal != "" {
		fmt.Fprintf(&b, "Fatal: %s\n", r.Fatal)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Persist writes the report as JSON to path atomically.
func (r *Report) Persist(path string) error {
	if r.End.IsZero() {
		r.Finish()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure report dir: %w", err)
	}
	r.mu.Lock()
	data, err := json.MarshalIndent(r, "", "  ")
	r.mu.Unlock()
	if err != nil {
		return fmt.Errorf("marshal report json: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp report json: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("atomic rename report json: %w", err)
	}
	return nil
}
