package content

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/postpress/internal/foundation/errors"
	"git.home.luguber.info/inful/postpress/internal/report"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func collect(l *Loader, files []string) []Loaded {
	var out []Loaded
	for res := range l.Posts(files) {
		out = append(out, res)
	}
	return out
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Decorators Explained", "decorators-explained"},
		{"Blog_Post Draft", "blog-post-draft"},
		{"Café Crème", "cafe-creme"},
		{"   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "b.md", "Title: B\n")
	writeFile(t, root, "a.markdown", "Title: A\n")
	writeFile(t, root, "in_progress/c.mdown", "Title: C\n")
	writeFile(t, root, "notes.txt", "ignored")
	writeFile(t, root, ".hidden.md", "ignored")
	writeFile(t, root, ".git/x.md", "ignored")

	files, err := Discover(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.markdown", "b.md", "in_progress/c.mdown"}, files)
}

func TestDiscover_UnreadableRootIsFatal(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.True(t, IsRootError(err))
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryFileSystem))
	assert.True(t, ferrors.HasSeverity(err, ferrors.SeverityFatal))
}

func TestLoad_KeyValueHeader(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "2013/Decorators.md", "Title: Decorators Explained\nDate: 2013-11-29 10:30\nCategories: python decorators python\nAuthor: someone\n\n# Intro\n\nBody text.\n")

	res := NewLoader(root, Options{}).Load("2013/Decorators.md")
	require.NotNil(t, res.Post)
	p := res.Post
	assert.Equal(t, "decorators", p.ID)
	assert.Equal(t, "Decorators Explained", p.Title)
	assert.Equal(t, time.Date(2013, 11, 29, 10, 30, 0, 0, time.UTC), p.Date)
	assert.Equal(t, []string{"decorators", "python"}, p.Categories)
	assert.Equal(t, "decorators-explained", p.Slug)
	assert.Equal(t, "2013/11/29/decorators-explained.html", p.OutputPath())
	assert.Equal(t, "# Intro\n\nBody text.\n", string(p.Body))
	assert.Equal(t, 6, p.BodyLine)
	assert.NotEmpty(t, p.Fingerprint)
	assert.False(t, p.Draft)

	require.Len(t, res.Issues, 1)
	assert.Equal(t, report.KindInfo, res.Issues[0].Kind)
	assert.Equal(t, report.CodeUnrecognizedKeys, res.Issues[0].Code)
	assert.Contains(t, res.Issues[0].Message, "author")
	assert.False(t, res.Issues[0].Skipped)
}

func TestLoad_YAMLFrontMatter(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "gen.md", "---\ntitle: Generators\ndate: 2014-01-05\ncategories: [python, iterators]\nslug: all-about-generators\nsummary: Lazy sequences.\n---\nBody\n")

	l := NewLoader(root, Options{Location: time.FixedZone("CET", 3600)})
	res := l.Load("gen.md")
	require.NotNil(t, res.Post)
	assert.Empty(t, res.Issues)
	assert.Equal(t, "all-about-generators", res.Post.Slug)
	assert.Equal(t, "Lazy sequences.", res.Post.Summary)
	assert.Equal(t, []string{"iterators", "python"}, res.Post.Categories)
	assert.Equal(t, "2014-01-05T00:00:00+01:00", res.Post.Date.Format(time.RFC3339))
	assert.Equal(t, "Body\n", string(res.Post.Body))
}

func TestLoad_YAMLAndHeaderDatesShareZone(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "midnight.md", "---\ntitle: Midnight\ndate: 2014-01-05\n---\nBody\n")
	writeFile(t, root, "late.md", "Title: Late\nDate: 2014-01-05 00:30\n\nBody\n")
	writeFile(t, root, "offset.md", "---\ntitle: Offset\ndate: 2014-01-05T00:15:00+01:00\n---\nBody\n")
	writeFile(t, root, "local.md", "---\ntitle: Local\ndate: 2014-01-05T00:10:00\n---\nBody\n")

	cet := time.FixedZone("CET", 3600)
	l := NewLoader(root, Options{Location: cet})
	dates := map[string]time.Time{}
	for _, name := range []string{"midnight.md", "late.md", "offset.md", "local.md"} {
		res := l.Load(name)
		require.NotNil(t, res.Post, name)
		dates[res.Post.ID] = res.Post.Date
	}

	assert.Equal(t, "2014-01-05T00:00:00+01:00", dates["midnight"].Format(time.RFC3339))
	assert.Equal(t, "2014-01-05T00:10:00+01:00", dates["local"].Format(time.RFC3339))
	assert.True(t, dates["late"].After(dates["midnight"]))
	assert.True(t, dates["late"].After(dates["offset"]))
	assert.True(t, dates["offset"].After(dates["local"]))
}

func TestLoad_MalformedMetadataExactlyOnce(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    report.Code
	}{
		{"missing date", "Title: No Date\n\nbody\n", report.CodeMissingKey},
		{"missing both", "Categories: x\n\nbody\n", report.CodeMissingKey},
		{"bad date", "Title: T\nDate: 29/11/2013\n\nbody\n", report.CodeInvalidDate},
		{"missing title bad date", "Date: soon\n\nbody\n", report.CodeMissingKey},
		{"no header", "# Just markdown\n", report.CodeMissingKey},
		{"unclosed yaml", "---\ntitle: x\n", report.CodeInvalidHeader},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			writeFile(t, root, "post.md", tt.content)

			res := NewLoader(root, Options{}).Load("post.md")
			assert.Nil(t, res.Post)
			var malformed []report.Issue
			for _, is := range res.Issues {
				if is.Kind == report.KindMalformedMetadata {
					malformed = append(malformed, is)
				}
			}
			require.Len(t, malformed, 1)
			assert.Equal(t, tt.code, malformed[0].Code)
			assert.True(t, malformed[0].Skipped)

			ce, ok := ferrors.AsClassified(res.Err)
			require.True(t, ok)
			assert.Equal(t, ferrors.CategoryMetadata, ce.Category())
			assert.Equal(t, ferrors.SeverityError, ce.Severity())
			path, _ := ce.Context().GetString("path")
			assert.Equal(t, "post.md", path)
		})
	}
}

func TestLoad_Drafts(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "in_progress/coroutines.md", "Title: Coroutines\n\nwip\n")
	writeFile(t, root, "in_progress/complete.md", "Title: Complete\nDate: 2014-02-01\n\nwip\n")
	writeFile(t, root, "flagged.md", "Title: Flagged\nStatus: draft\n\nwip\n")

	t.Run("excluded without drafts", func(t *testing.T) {
		l := NewLoader(root, Options{})

		res := l.Load("in_progress/coroutines.md")
		assert.Nil(t, res.Post)
		require.Len(t, res.Issues, 1)
		assert.Equal(t, report.KindMalformedMetadata, res.Issues[0].Kind)

		res = l.Load("in_progress/complete.md")
		assert.Nil(t, res.Post)
		require.Len(t, res.Issues, 1)
		assert.Equal(t, report.KindInfo, res.Issues[0].Kind)
		assert.Equal(t, report.CodeDraftSkipped, res.Issues[0].Code)
		assert.True(t, res.Issues[0].Skipped)
		assert.True(t, ferrors.HasSeverity(res.Err, ferrors.SeverityInfo))
	})

	t.Run("rendered with drafts", func(t *testing.T) {
		l := NewLoader(root, Options{IncludeDrafts: true})

		res := l.Load("in_progress/coroutines.md")
		require.NotNil(t, res.Post)
		assert.NoError(t, res.Err)
		assert.True(t, res.Post.Draft)
		assert.False(t, res.Post.HasDate)
		assert.Equal(t, "drafts/coroutines.html", res.Post.OutputPath())

		res = l.Load("flagged.md")
		require.NotNil(t, res.Post)
		assert.True(t, res.Post.Draft)
	})
}

func TestPosts_Collisions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a/hello.md", "Title: Hello\nDate: 2013-01-01\n\none\n")
	writeFile(t, root, "b/Hello.md", "Title: Hello Again\nDate: 2013-01-02\n\ntwo\n")
	writeFile(t, root, "c.md", "Title: Other\nDate: 2013-01-01\nSlug: hello\n\nthree\n")

	files, err := Discover(root)
	require.NoError(t, err)
	l := NewLoader(root, Options{})

	for range 2 {
		results := collect(l, files)
		require.Len(t, results, 3)

		assert.NotNil(t, results[0].Post, "first in lexical order wins")
		assert.Nil(t, results[1].Post)
		require.Len(t, results[1].Issues, 1)
		assert.Equal(t, report.CodeDuplicateID, results[1].Issues[0].Code)
		assert.Equal(t, report.KindMalformedMetadata, results[1].Issues[0].Kind)
		assert.True(t, ferrors.HasCategory(results[1].Err, ferrors.CategoryMetadata))

		assert.Nil(t, results[2].Post)
		require.Len(t, results[2].Issues, 1)
		assert.Equal(t, report.CodePathCollision, results[2].Issues[0].Code)
	}
}

func TestPosts_StopsWhenConsumerBreaks(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.md", "Title: A\nDate: 2013-01-01\n\n")
	writeFile(t, root, "b.md", "Title: B\nDate: 2013-01-01\n\n")

	n := 0
	for range NewLoader(root, Options{}).Posts([]string{"a.md", "b.md"}) {
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestLoad_UnreadableFile(t *testing.T) {
	l := NewLoader(t.TempDir(), Options{})
	l.read = func(string) ([]byte, error) { return nil, errors.New("permission denied") }

	res := l.Load("x.md")
	assert.Nil(t, res.Post)
	require.Len(t, res.Issues, 1)
	assert.Equal(t, report.KindSourceUnreadable, res.Issues[0].Kind)
	assert.True(t, res.Issues[0].Skipped)
	assert.True(t, ferrors.HasCategory(res.Err, ferrors.CategoryFileSystem))
	assert.False(t, ferrors.HasSeverity(res.Err, ferrors.SeverityFatal))
}
