// Package site assembles rendered posts into the pages of a static site.
package site

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"path"
	"sort"
	"strings"

	"git.home.luguber.info/inful/postpress/internal/content"
	"git.home.luguber.info/inful/postpress/internal/render"
)

// Well-known page paths, relative to the output root.
const (
	IndexPage      = "index.html"
	CategoriesPage = "categories.html"
	FeedPage       = "feed.xml"
	SitemapPage    = "sitemap.xml"
	CategoryDir    = "category"
)

// FeedLimit caps the number of items in feed.xml.
const FeedLimit = 20

const displayDate = "January 2, 2006"

// Link is an external service linked from the page footer.
type Link struct {
	Label string `yaml:"label"`
	URL   string `yaml:"url"`
}

// Config describes the site as a whole.
type Config struct {
	Title       string
	Description string
	BaseURL     string // absolute site URL; feed and sitemap are only produced when set
	Author      string
	Links       []Link
}

// Page is one generated file.
type Page struct {
	Path string // slash-separated, relative to the output root
	Data []byte
}

// Category groups published posts sharing a category slug.
type Category struct {
	Slug  string
	Label string
	Posts []*content.Post
}

// Path returns the category page path.
func (c Category) Path() string { return path.Join(CategoryDir, c.Slug+".html") }

// Site is the assembled output.
type Site struct {
	Pages      []Page
	Published  []*content.Post
	Drafts     []*content.Post
	Categories []Category
}

//go:embed templates/*.html
var embeddedTemplates embed.FS

var pageKinds = []string{"index", "post", "category", "categories"}

// Assembler builds Sites from rendered posts.
type Assembler struct {
	cfg       Config
	templates map[string]*template.Template
}

// New parses the embedded layout and returns an Assembler for cfg.
func New(cfg Config) (*Assembler, error) {
	if strings.TrimSpace(cfg.Title) == "" {
		cfg.Title = "Posts"
	}
	a := &Assembler{cfg: cfg, templates: make(map[string]*template.Template, len(pageKinds))}
	for _, kind := range pageKinds {
		t, err := template.New(kind).ParseFS(embeddedTemplates, "templates/base.html", "templates/"+kind+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", kind, err)
		}
		a.templates[kind] = t
	}
	return a, nil
}

// Assemble lays out the site. Published posts are listed newest first; drafts
// get their own pages under drafts/ and are never listed.
func (a *Assembler) Assemble(rendered []render.Rendered) (*Site, error) {
	bodies := make(map[*content.Post]template.HTML, len(rendered))
	excerpts := make(map[*content.Post]string, len(rendered))
	s := &Site{}
	for _, r := range rendered {
		if r.Post == nil {
			continue
		}
		bodies[r.Post] = template.HTML(r.HTML) //nolint:gosec // Markdown renderer output.
		excerpts[r.Post] = r.Excerpt
		if r.Post.Draft {
			s.Drafts = append(s.Drafts, r.Post)
		} else {
			s.Published = append(s.Published, r.Post)
		}
	}
	SortPosts(s.Published)
	SortPosts(s.Drafts)
	s.Categories = GroupCategories(s.Published)

	summary := func(p *content.Post) string {
		if p.Summary != "" {
			return p.Summary
		}
		return excerpts[p]
	}
	entries := make([]entry, len(s.Published))
	for i, p := range s.Published {
		entries[i] = newEntry(p, summary(p))
	}

	add := func(kind, pagePath string, data pageData) error {
		data.Site = a.cfg
		data.Root = relativeRoot(pagePath)
		data.Feed = a.cfg.BaseURL != ""
		var buf bytes.Buffer
		if err := a.templates[kind].ExecuteTemplate(&buf, "base", data); err != nil {
			return fmt.Errorf("execute %s template for %s: %w", kind, pagePath, err)
		}
		s.Pages = append(s.Pages, Page{Path: pagePath, Data: buf.Bytes()})
		return nil
	}

	if err := add("index", IndexPage, pageData{Posts: entries}); err != nil {
		return nil, err
	}
	for i, p := range s.Published {
		e := entries[i]
		e.Body = bodies[p]
		data := pageData{Title: p.Title, Post: &e}
		if i > 0 {
			data.Newer = &entries[i-1]
		}
		if i+1 < len(entries) {
			data.Older = &entries[i+1]
		}
		if err := add("post", p.OutputPath(), data); err != nil {
			return nil, err
		}
	}
	for _, p := range s.Drafts {
		e := newEntry(p, summary(p))
		e.Body = bodies[p]
		if err := add("post", p.OutputPath(), pageData{Title: p.Title, Post: &e}); err != nil {
			return nil, err
		}
	}

	cats := make([]categoryEntry, len(s.Categories))
	for i, c := range s.Categories {
		cats[i] = categoryEntry{Label: c.Label, Path: c.Path(), Count: len(c.Posts)}
		list := make([]entry, len(c.Posts))
		for j, p := range c.Posts {
			list[j] = newEntry(p, summary(p))
		}
		if err := add("category", c.Path(), pageData{Title: c.Label, Category: &cats[i], Posts: list}); err != nil {
			return nil, err
		}
	}
	if err := add("categories", CategoriesPage, pageData{Title: "Categories", Categories: cats}); err != nil {
		return nil, err
	}

	if a.cfg.BaseURL != "" {
		feed, err := buildFeed(a.cfg, s.Published, summary)
		if err != nil {
			return nil, err
		}
		sitemap, err := buildSitemap(a.cfg, s)
		if err != nil {
			return nil, err
		}
		s.Pages = append(s.Pages, Page{Path: FeedPage, Data: feed}, Page{Path: SitemapPage, Data: sitemap})
	}

	sort.Slice(s.Pages, func(i, j int) bool { return s.Pages[i].Path < s.Pages[j].Path })
	return s, nil
}

type pageData struct {
	Site       Config
	Title      string
	Root       string
	Feed       bool
	Posts      []entry
	Post       *entry
	Newer      *entry
	Older      *entry
	Category   *categoryEntry
	Categories []categoryEntry
}

type entry struct {
	Title      string
	Path       string
	Date       string
	DateISO    string
	Draft      bool
	Summary    string
	Categories []categoryEntry
	Body       template.HTML
}

type categoryEntry struct {
	Label string
	Path  string
	Count int
}

func newEntry(p *content.Post, summary string) entry {
	e := entry{Title: p.Title, Path: p.OutputPath(), Draft: p.Draft, Summary: summary}
	if p.HasDate {
		e.Date = p.Date.Format(displayDate)
		e.DateISO = p.Date.Format("2006-01-02T15:04:05Z07:00")
	}
	for _, label := range p.Categories {
		slug := content.Slugify(label)
		if slug == "" {
			continue
		}
		e.Categories = append(e.Categories, categoryEntry{Label: label, Path: Category{Slug: slug}.Path()})
	}
	return e
}

// relativeRoot returns the prefix leading from pagePath back to the output root.
func relativeRoot(pagePath string) string {
	return strings.Repeat("../", strings.Count(pagePath, "/"))
}
