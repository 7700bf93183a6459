package site

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"
	"time"

	"git.home.luguber.info/inful/postpress/internal/content"
)

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	LastBuild   string    `xml:"lastBuildDate,omitempty"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	Description string   `xml:"description,omitempty"`
	PubDate     string   `xml:"pubDate"`
	GUID        string   `xml:"guid"`
	Categories  []string `xml:"category,omitempty"`
}

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// absURL joins a slash-separated page path onto the site base URL.
func absURL(base, pagePath string) string {
	if pagePath == "" {
		return strings.TrimRight(base, "/") + "/"
	}
	u, err := url.JoinPath(base, pagePath)
	if err != nil {
		return strings.TrimRight(base, "/") + "/" + pagePath
	}
	return u
}

// buildFeed renders an RSS 2.0 document for the newest published posts.
// The build date is the newest post date, never the wall clock.
func buildFeed(cfg Config, posts []*content.Post, summary func(*content.Post) string) ([]byte, error) {
	n := len(posts)
	if n > FeedLimit {
		n = FeedLimit
	}
	items := make([]rssItem, 0, n)
	for _, p := range posts[:n] {
		link := absURL(cfg.BaseURL, p.OutputPath())
		items = append(items, rssItem{
			Title:       p.Title,
			Link:        link,
			Description: summary(p),
			PubDate:     p.Date.Format(time.RFC1123Z),
			GUID:        link,
			Categories:  p.Categories,
		})
	}
	feed := rssXML{
		Version: "2.0",
		Channel: rssChannel{
			Title:       cfg.Title,
			Link:        absURL(cfg.BaseURL, ""),
			Description: cfg.Description,
			Items:       items,
		},
	}
	if len(posts) > 0 {
		feed.Channel.LastBuild = posts[0].Date.Format(time.RFC1123Z)
	}
	return encodeXML(feed)
}

// buildSitemap lists every public page; drafts are excluded.
func buildSitemap(cfg Config, s *Site) ([]byte, error) {
	urls := []sitemapURL{{Loc: absURL(cfg.BaseURL, "")}}
	if len(s.Published) > 0 {
		urls[0].LastMod = s.Published[0].Date.Format("2006-01-02")
	}
	for _, p := range s.Published {
		urls = append(urls, sitemapURL{
			Loc:     absURL(cfg.BaseURL, p.OutputPath()),
			LastMod: p.Date.Format("2006-01-02"),
		})
	}
	urls = append(urls, sitemapURL{Loc: absURL(cfg.BaseURL, CategoriesPage)})
	for _, c := range s.Categories {
		u := sitemapURL{Loc: absURL(cfg.BaseURL, c.Path())}
		if len(c.Posts) > 0 {
			u.LastMod = c.Posts[0].Date.Format("2006-01-02")
		}
		urls = append(urls, u)
	}
	return encodeXML(sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	})
}

func encodeXML(v any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode xml: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
