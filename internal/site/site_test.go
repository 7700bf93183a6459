package site

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/postpress/internal/content"
	"git.home.luguber.info/inful/postpress/internal/render"
)

func day(y, m, d int) time.Time { return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC) }

func mkPost(id, title string, date time.Time, cats ...string) *content.Post {
	return &content.Post{
		ID: id, Title: title, Date: date, HasDate: !date.IsZero(),
		Categories: cats, Slug: content.Slugify(title), SourcePath: id + ".md",
	}
}

func rendered(posts ...*content.Post) []render.Rendered {
	out := make([]render.Rendered, len(posts))
	for i, p := range posts {
		out[i] = render.Rendered{Post: p, HTML: []byte("<p>" + p.Title + " body</p>\n"), Excerpt: p.Title + " excerpt"}
	}
	return out
}

func pageMap(s *Site) map[string]string {
	m := make(map[string]string, len(s.Pages))
	for _, p := range s.Pages {
		m[p.Path] = string(p.Data)
	}
	return m
}

func TestSortPosts_DateDescendingThenID(t *testing.T) {
	posts := []*content.Post{
		mkPost("b", "B", day(2013, 11, 29)),
		mkPost("c", "C", day(2014, 1, 1)),
		mkPost("a", "A", day(2013, 11, 29)),
		mkPost("d", "D", day(2012, 5, 5)),
	}
	SortPosts(posts)

	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	assert.Equal(t, []string{"c", "a", "b", "d"}, ids)
	for i := 1; i < len(posts); i++ {
		assert.False(t, posts[i].Date.After(posts[i-1].Date), "non-increasing dates")
	}
}

func TestGroupCategories(t *testing.T) {
	p1 := mkPost("p1", "One", day(2014, 1, 1), "Python", "go")
	p2 := mkPost("p2", "Two", day(2013, 1, 1), "python")
	p3 := mkPost("p3", "Three", day(2012, 1, 1), "!!!")

	cats := GroupCategories([]*content.Post{p1, p2, p3})
	require.Len(t, cats, 2)
	assert.Equal(t, "go", cats[0].Slug)
	assert.Equal(t, "python", cats[1].Slug)
	assert.Equal(t, "Python", cats[1].Label, "lexically smallest label is displayed")
	assert.Equal(t, []*content.Post{p1, p2}, cats[1].Posts)
	assert.Equal(t, "category/python.html", cats[1].Path())
}

func TestAssemble_Pages(t *testing.T) {
	a, err := New(Config{Title: "Notes", Links: []Link{{Label: "Source", URL: "https://example.org/repo"}}})
	require.NoError(t, err)

	older := mkPost("decorators", "Decorators Explained", day(2013, 11, 29), "python")
	newer := mkPost("generators", "Generators", day(2014, 2, 1), "python", "iterators")
	draft := mkPost("coroutines", "Coroutines", time.Time{})
	draft.Draft = true

	s, err := a.Assemble(rendered(older, draft, newer))
	require.NoError(t, err)
	pages := pageMap(s)

	paths := make([]string, 0, len(s.Pages))
	for _, p := range s.Pages {
		paths = append(paths, p.Path)
	}
	assert.Equal(t, []string{
		"2013/11/29/decorators-explained.html",
		"2014/02/01/generators.html",
		"categories.html",
		"category/iterators.html",
		"category/python.html",
		"drafts/coroutines.html",
		"index.html",
	}, paths)

	index := pages["index.html"]
	assert.Less(t, strings.Index(index, "Generators"), strings.Index(index, "Decorators Explained"))
	assert.Contains(t, index, `href="2013/11/29/decorators-explained.html"`)
	assert.NotContains(t, index, "Coroutines")
	assert.Contains(t, index, `href="https://example.org/repo"`)
	assert.NotContains(t, index, "feed.xml")

	post := pages["2013/11/29/decorators-explained.html"]
	assert.Contains(t, post, "<p>Decorators Explained body</p>")
	assert.Contains(t, post, `href="../../../index.html"`)
	assert.Contains(t, post, `href="../../../category/python.html"`)
	assert.Contains(t, post, `href="../../../2014/02/01/generators.html" rel="prev"`)
	assert.Contains(t, post, "November 29, 2013")

	cat := pages["category/python.html"]
	assert.Less(t, strings.Index(cat, "Generators"), strings.Index(cat, "Decorators Explained"))
	assert.Contains(t, cat, `href="../2014/02/01/generators.html"`)

	assert.Contains(t, pages["categories.html"], "(2)")
	assert.Contains(t, pages["drafts/coroutines.html"], "Draft. Not listed")
	assert.NotContains(t, pages["category/python.html"], "Coroutines")

	assert.Len(t, s.Published, 2)
	assert.Len(t, s.Drafts, 1)
	assert.Len(t, s.Categories, 2)
}

func TestAssemble_FeedAndSitemap(t *testing.T) {
	a, err := New(Config{Title: "Notes", BaseURL: "https://blog.example.org/"})
	require.NoError(t, err)

	p := mkPost("decorators", "Decorators Explained", day(2013, 11, 29), "python")
	draft := mkPost("wip", "Work In Progress", time.Time{})
	draft.Draft = true

	s, err := a.Assemble(rendered(p, draft))
	require.NoError(t, err)
	pages := pageMap(s)

	feed := pages["feed.xml"]
	require.NotEmpty(t, feed)
	assert.True(t, strings.HasPrefix(feed, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, feed, `<rss version="2.0">`)
	assert.Contains(t, feed, "<link>https://blog.example.org/2013/11/29/decorators-explained.html</link>")
	assert.Contains(t, feed, "<description>Decorators Explained excerpt</description>")
	assert.Contains(t, feed, "<pubDate>Fri, 29 Nov 2013 00:00:00 +0000</pubDate>")
	assert.NotContains(t, feed, "Work In Progress")

	sitemap := pages["sitemap.xml"]
	assert.Contains(t, sitemap, "<loc>https://blog.example.org/</loc>")
	assert.Contains(t, sitemap, "<loc>https://blog.example.org/category/python.html</loc>")
	assert.NotContains(t, sitemap, "drafts/")

	assert.Contains(t, pages["index.html"], `href="feed.xml"`)
}

func TestAssemble_Deterministic(t *testing.T) {
	a, err := New(Config{Title: "Notes", BaseURL: "https://blog.example.org"})
	require.NoError(t, err)
	posts := rendered(
		mkPost("a", "Alpha", day(2013, 1, 1), "x"),
		mkPost("b", "Beta", day(2013, 1, 1), "y"),
	)

	first, err := a.Assemble(posts)
	require.NoError(t, err)
	second, err := a.Assemble(posts)
	require.NoError(t, err)
	assert.Equal(t, first.Pages, second.Pages)
}

func TestAssemble_EmptySite(t *testing.T) {
	a, err := New(Config{})
	require.NoError(t, err)
	s, err := a.Assemble(nil)
	require.NoError(t, err)
	pages := pageMap(s)
	assert.Contains(t, pages["index.html"], "No posts yet.")
	assert.Contains(t, pages["index.html"], "<title>Posts</title>")
	assert.Contains(t, pages["categories.html"], "No categories.")
}
