package content

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/inful/mdfp"

	cerrors "git.home.luguber.info/inful/postpress/internal/content/errors"
	ferrors "git.home.luguber.info/inful/postpress/internal/foundation/errors"
	"git.home.luguber.info/inful/postpress/internal/frontmatter"
	"git.home.luguber.info/inful/postpress/internal/logfields"
	"git.home.luguber.info/inful/postpress/internal/report"
)

// Extensions lists the file extensions treated as posts.
var Extensions = []string{".md", ".markdown", ".mdown"}

// Options controls how posts are loaded.
type Options struct {
	// IncludeDrafts loads drafts as renderable posts instead of skipping them.
	IncludeDrafts bool
	// Location interprets dates that carry no zone. Nil means UTC.
	Location *time.Location
}

// Loaded is the result of loading one file. Post is nil when the file was
// skipped, and Err then holds the classified reason.
type Loaded struct {
	Path   string
	Post   *Post
	Issues []report.Issue
	Err    error
}

// Loader reads posts below a source root.
type Loader struct {
	root string
	opts Options
	read func(string) ([]byte, error)
}

// NewLoader creates a loader for root.
func NewLoader(root string, opts Options) *Loader {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Loader{root: root, opts: opts, read: os.ReadFile}
}

// Root returns the source root.
func (l *Loader) Root() string { return l.root }

// Discover walks root and returns the slash-separated relative paths of every
// post file in lexical order. Hidden files and directories are skipped.
// An unreadable root is a fatal filesystem error.
func Discover(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, rootError(root, err)
	}
	if !info.IsDir() {
		return nil, rootError(root, fmt.Errorf("%s is not a directory", root))
	}

	var files []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if p == root {
				return walkErr
			}
			slog.Warn("Skipping unreadable entry", logfields.Path(p), logfields.Error(walkErr))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		name := d.Name()
		if p != root && strings.HasPrefix(name, ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !isPostFile(name) {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, rootError(root, err)
	}
	sort.Strings(files)
	slog.Debug("Discovered post files", logfields.Source(root), logfields.Count(len(files)))
	return files, nil
}

func rootError(root string, err error) error {
	return ferrors.FileSystemError("cannot read source root").
		WithCause(fmt.Errorf("%w: %w", cerrors.ErrSourceRootUnreadable, err)).
		WithContext("path", root).
		Build()
}

func isPostFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Posts returns a lazy sequence of load results for files, in the given order.
// Identifier and output path collisions are resolved in favor of the earlier
// file. Each iteration starts from fresh collision state, so the sequence can
// be ranged over more than once.
func (l *Loader) Posts(files []string) iter.Seq[Loaded] {
	return func(yield func(Loaded) bool) {
		ids := make(map[string]string)
		outputs := make(map[string]string)
		for _, rel := range files {
			res := l.Load(rel)
			if res.Post != nil {
				res = claim(res, ids, outputs)
			}
			if !yield(res) {
				return
			}
		}
	}
}

func claim(res Loaded, ids, outputs map[string]string) Loaded {
	p := res.Post
	reject := func(code report.Code, msg string) Loaded {
		res.Issues = append(res.Issues, report.Issue{
			Kind:    report.KindMalformedMetadata,
			Code:    code,
			Post:    p.ID,
			Path:    p.SourcePath,
			Message: msg,
			Skipped: true,
		})
		res.Err = ferrors.MetadataError(msg).
			WithContextMap(ferrors.ErrorContext{"post": p.ID, "path": p.SourcePath}).Build()
		res.Post = nil
		return res
	}
	if first, dup := ids[p.ID]; dup {
		return reject(report.CodeDuplicateID, fmt.Sprintf("%v: %q already defined by %s", cerrors.ErrDuplicateID, p.ID, first))
	}
	out := p.OutputPath()
	if first, dup := outputs[out]; dup {
		return reject(report.CodePathCollision, fmt.Sprintf("%v: %s already produced by %s", cerrors.ErrPathCollision, out, first))
	}
	ids[p.ID] = p.SourcePath
	outputs[out] = p.SourcePath
	return res
}

// Load reads and decodes a single file relative to the source root.
// It does not check for collisions with other files.
func (l *Loader) Load(rel string) Loaded {
	id := strings.ToLower(strings.TrimSuffix(path.Base(rel), path.Ext(rel)))
	res := Loaded{Path: rel}
	skip := func(kind report.Kind, code report.Code, msg string, reason *ferrors.ErrorBuilder) Loaded {
		res.Issues = append(res.Issues, report.Issue{
			Kind: kind, Code: code, Post: id, Path: rel, Message: msg, Skipped: true,
		})
		res.Err = reason.WithContextMap(ferrors.ErrorContext{"post": id, "path": rel}).Build()
		return res
	}

	data, err := l.read(filepath.Join(l.root, filepath.FromSlash(rel)))
	if err != nil {
		return skip(report.KindSourceUnreadable, report.CodeReadFailed,
			fmt.Sprintf("%v: %v", cerrors.ErrFileReadFailed, err),
			ferrors.WrapError(err, ferrors.CategoryFileSystem, "cannot read post").WithSeverity(ferrors.SeverityError))
	}

	block, body, err := frontmatter.Extract(data)
	if err != nil {
		msg := fmt.Sprintf("%v: %v", cerrors.ErrInvalidHeader, err)
		return skip(report.KindMalformedMetadata, report.CodeInvalidHeader, msg,
			ferrors.MetadataError(msg).WithCause(err))
	}

	md, problems := decodeMetadata(block.Fields, block.Keys, l.opts.Location)
	if len(md.Unrecognized) > 0 {
		res.Issues = append(res.Issues, report.Issue{
			Kind:    report.KindInfo,
			Code:    report.CodeUnrecognizedKeys,
			Post:    id,
			Path:    rel,
			Message: "ignored keys: " + strings.Join(md.Unrecognized, ", "),
		})
	}

	draft := isDraftPath(rel) || md.Status == StatusDraft
	if md.Title == "" {
		problems = append(problems, missing(KeyTitle))
	}
	dateRequired := !(draft && l.opts.IncludeDrafts)
	if dateRequired && !md.HasDate && !hasCode(problems, report.CodeInvalidDate) {
		problems = append(problems, missing(KeyDate))
	}
	if len(problems) > 0 {
		sortProblems(problems)
		msgs := make([]string, len(problems))
		for i, pr := range problems {
			msgs[i] = pr.err.Error()
		}
		msg := strings.Join(msgs, "; ")
		return skip(report.KindMalformedMetadata, problems[0].code, msg,
			ferrors.MetadataError(msg).WithCause(problems[0].err))
	}

	if draft && !l.opts.IncludeDrafts {
		return skip(report.KindInfo, report.CodeDraftSkipped, "draft not published",
			ferrors.MetadataError("draft not published").Info())
	}

	res.Post = &Post{
		ID:          id,
		Title:       md.Title,
		Date:        md.Date,
		HasDate:     md.HasDate,
		Categories:  md.Categories,
		Draft:       draft,
		Slug:        chooseSlug(md, id),
		Summary:     md.Summary,
		Body:        body,
		SourcePath:  rel,
		BodyLine:    bytes.Count(data[:len(data)-len(body)], []byte("\n")) + 1,
		Fingerprint: mdfp.CalculateFingerprintFromParts(string(block.Raw), string(body)),
	}
	slog.Debug("Loaded post", logfields.Post(id), logfields.Path(rel), slog.Bool("draft", draft))
	return res
}

func missing(key string) problem {
	return problem{code: report.CodeMissingKey, err: fmt.Errorf("%w: %q", cerrors.ErrMissingKey, key)}
}

func hasCode(problems []problem, code report.Code) bool {
	for _, p := range problems {
		if p.code == code {
			return true
		}
	}
	return false
}

// sortProblems puts missing keys ahead of unparsable values.
func sortProblems(problems []problem) {
	sort.SliceStable(problems, func(i, j int) bool {
		return problems[i].code == report.CodeMissingKey && problems[j].code != report.CodeMissingKey
	})
}

func isDraftPath(rel string) bool {
	for _, part := range strings.Split(path.Dir(rel), "/") {
		if part == DraftDir {
			return true
		}
	}
	return false
}

func chooseSlug(md Metadata, id string) string {
	for _, candidate := range []string{md.Slug, md.Title, id} {
		if s := Slugify(candidate); s != "" {
			return s
		}
	}
	return "untitled"
}

// IsRootError reports whether err came from an unreadable source root.
func IsRootError(err error) bool {
	return errors.Is(err, cerrors.ErrSourceRootUnreadable)
}
