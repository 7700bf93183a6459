package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultWarning  ResultLabel = "warning"
	ResultFatal    ResultLabel = "fatal"
	ResultCanceled ResultLabel = "canceled"
)

// Post states counted by AddPosts.
const (
	PostsPublished = "published"
	PostsDrafts    = "drafts"
	PostsSkipped   = "skipped"
)

// Page results counted by AddPages.
const (
	PagesWritten   = "written"
	PagesUnchanged = "unchanged"
	PagesRemoved   = "removed"
)

// Recorder defines observability hooks for pipeline runs. Implementations
// must be safe for concurrent use.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveBuildDuration(d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	IncBuildOutcome(outcome string) // outcome: success|warning|failed
	ObservePostRenderDuration(d time.Duration)
	IncIssue(kind string)
	AddPosts(state string, n int)
	AddPages(result string, n int)
	SetWorkers(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)         {}
func (NoopRecorder) IncStageResult(string, ResultLabel)         {}
func (NoopRecorder) IncBuildOutcome(string)                     {}
func (NoopRecorder) ObservePostRenderDuration(time.Duration)    {}
func (NoopRecorder) IncIssue(string)                            {}
func (NoopRecorder) AddPosts(string, int)                       {}
func (NoopRecorder) AddPages(string, int)                       {}
func (NoopRecorder) SetWorkers(int)                             {}
