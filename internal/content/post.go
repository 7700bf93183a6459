// Package content discovers post files and loads them into immutable Post records.
package content

import (
	"path"
	"time"
)

// DraftDir is the directory name that marks every post beneath it as a draft.
const DraftDir = "in_progress"

// Post is one loaded source file. Posts are not modified after loading.
type Post struct {
	ID         string    // lower-cased file stem, unique across a run
	Title      string
	Date       time.Time // zero when HasDate is false
	HasDate    bool
	Categories []string // sorted, de-duplicated
	Draft      bool
	Slug       string
	Summary    string
	Body       []byte

	SourcePath  string // slash-separated, relative to the source root
	BodyLine    int    // 1-based line in the source file where Body starts
	Fingerprint string
}

// OutputPath returns the slash-separated page path for the post,
// YYYY/MM/DD/<slug>.html for published posts and drafts/<slug>.html for drafts.
func (p *Post) OutputPath() string {
	if p.Draft {
		return path.Join("drafts", p.Slug+".html")
	}
	return path.Join(p.Date.Format("2006"), p.Date.Format("01"), p.Date.Format("02"), p.Slug+".html")
}
