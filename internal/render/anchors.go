package render

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/postpress/internal/report"
)

// unresolvedAnchors reports in-page links (href="#name") whose target has no
// matching id or name attribute in the fragment. Cross-page links are not checked.
func unresolvedAnchors(fragment []byte) []finding {
	targets := make(map[string]struct{})
	var links []string
	seen := make(map[string]struct{})

	z := html.NewTokenizer(bytes.NewReader(fragment))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if z.Err() != io.EOF {
				return nil
			}
			break
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		tok := z.Token()
		for _, a := range tok.Attr {
			switch a.Key {
			case "id", "name":
				if a.Val != "" {
					targets[a.Val] = struct{}{}
				}
			case "href":
				if tok.Data != "a" || !strings.HasPrefix(a.Val, "#") || len(a.Val) == 1 {
					continue
				}
				name := a.Val[1:]
				if unescaped, err := url.PathUnescape(name); err == nil {
					name = unescaped
				}
				if _, dup := seen[name]; !dup {
					seen[name] = struct{}{}
					links = append(links, name)
				}
			}
		}
	}

	var out []finding
	for _, name := range links {
		if _, ok := targets[name]; ok {
			continue
		}
		out = append(out, finding{
			kind:    report.KindInfo,
			code:    report.CodeUnresolvedAnchor,
			message: fmt.Sprintf("link to #%s has no matching anchor in this post", name),
		})
	}
	return out
}
