// Package render converts post bodies to HTML fragments and reports content
// problems found along the way.
package render

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"git.home.luguber.info/inful/postpress/internal/content"
	ferrors "git.home.luguber.info/inful/postpress/internal/foundation/errors"
	"git.home.luguber.info/inful/postpress/internal/report"
)

// excerptLimit bounds the plain-text excerpt length in runes.
const excerptLimit = 280

// Rendered is the output of rendering one post.
type Rendered struct {
	Post    *content.Post
	HTML    []byte
	Excerpt string
	Issues  []report.Issue
}

// Renderer turns Markdown into HTML. A Renderer is safe for concurrent use;
// all per-document state lives in the parser context created for each call.
type Renderer struct {
	md goldmark.Markdown
}

// New creates a Renderer with GFM, footnotes, heading IDs and heading attributes enabled.
func New() *Renderer {
	return &Renderer{md: goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Footnote),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithAttribute(),
		),
		goldmark.WithRendererOptions(
			html.WithUnsafe(),
			renderer.WithNodeRenderers(util.Prioritized(&codeBlockRenderer{}, 100)),
		),
	)}
}

// Render converts p.Body into an HTML fragment. Rendering the same post twice
// yields identical bytes.
func (r *Renderer) Render(p *content.Post) (Rendered, error) {
	out := Rendered{Post: p}
	frag, doc, err := r.convert(p.Body)
	if err != nil {
		return out, ferrors.RenderError("cannot render post").WithCause(err).
			WithContextMap(ferrors.ErrorContext{"post": p.ID, "path": p.SourcePath}).Build()
	}
	out.HTML = frag
	out.Excerpt = excerpt(doc, p.Body)

	offset := p.BodyLine - 1
	if offset < 0 {
		offset = 0
	}
	for _, f := range findings(doc, p.Body, frag) {
		line := 0
		if f.line > 0 {
			line = f.line + offset
		}
		out.Issues = append(out.Issues, report.Issue{
			Kind:    f.kind,
			Code:    f.code,
			Post:    p.ID,
			Path:    p.SourcePath,
			Line:    line,
			Message: f.message,
		})
	}
	return out, nil
}

func (r *Renderer) convert(source []byte) ([]byte, ast.Node, error) {
	ctx := parser.NewContext()
	doc := r.md.Parser().Parse(text.NewReader(source), parser.WithContext(ctx))
	var buf bytes.Buffer
	if err := r.md.Renderer().Render(&buf, source, doc); err != nil {
		return nil, nil, err
	}
	return buf.Bytes(), doc, nil
}

// finding is a problem located in the body, line 0 meaning unknown.
type finding struct {
	kind    report.Kind
	code    report.Code
	line    int
	message string
}

func findings(doc ast.Node, source, frag []byte) []finding {
	var out []finding
	out = append(out, unterminatedFences(doc, source)...)
	out = append(out, footnoteProblems(doc, source)...)
	out = append(out, unresolvedAnchors(frag)...)
	return out
}

// excerpt returns the plain text of the first paragraph.
func excerpt(doc ast.Node, source []byte) string {
	var para ast.Node
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if para != nil {
			return ast.WalkStop, nil
		}
		if n.Kind() == ast.KindParagraph {
			para = n
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	if para == nil {
		return ""
	}

	var b strings.Builder
	_ = ast.Walk(para, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := n.(*ast.Text); ok {
			b.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})
	s := strings.Join(strings.Fields(b.String()), " ")
	if r := []rune(s); len(r) > excerptLimit {
		s = strings.TrimSpace(string(r[:excerptLimit])) + "…"
	}
	return s
}
