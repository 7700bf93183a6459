package site

import (
	"sort"

	"git.home.luguber.info/inful/postpress/internal/content"
)

// SortPosts orders posts newest first; equal dates fall back to ascending ID.
func SortPosts(posts []*content.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		a, b := posts[i], posts[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		return a.ID < b.ID
	})
}

// GroupCategories groups posts by category slug, preserving the order of
// posts. Categories are returned sorted by slug. When several labels share a
// slug the lexically smallest one is displayed.
func GroupCategories(posts []*content.Post) []Category {
	bySlug := make(map[string]*Category)
	for _, p := range posts {
		seen := make(map[string]bool, len(p.Categories))
		for _, label := range p.Categories {
			slug := content.Slugify(label)
			if slug == "" || seen[slug] {
				continue
			}
			seen[slug] = true
			c, ok := bySlug[slug]
			if !ok {
				c = &Category{Slug: slug, Label: label}
				bySlug[slug] = c
			} else if label < c.Label {
				c.Label = label
			}
			c.Posts = append(c.Posts, p)
		}
	}

	out := make([]Category, 0, len(bySlug))
	for _, c := range bySlug {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}
