package render

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/yuin/goldmark/ast"

	"git.home.luguber.info/inful/postpress/internal/report"
)

// unterminatedFences reports fenced code blocks whose closing fence is missing.
// Such blocks are closed by the parser at the end of their container; the
// rendered output is therefore always balanced.
func unterminatedFences(doc ast.Node, source []byte) []finding {
	var out []finding
	// cursor is the furthest source offset covered by blocks visited so far.
	cursor := 0
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || n.Type() != ast.TypeBlock {
			return ast.WalkContinue, nil
		}
		fcb, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			if lines := n.Lines(); lines.Len() > 0 {
				cursor = max(cursor, lines.At(lines.Len()-1).Stop)
			}
			return ast.WalkContinue, nil
		}
		openStart, ok := fenceOpener(fcb, source, cursor)
		if !ok {
			return ast.WalkSkipChildren, nil
		}
		openEnd := lineEnd(source, openStart)
		char, length := fenceRun(source[openStart:openEnd])
		if length < 3 {
			return ast.WalkSkipChildren, nil
		}

		after := nextLineStart(source, openEnd)
		if lines := fcb.Lines(); lines.Len() > 0 {
			after = lines.At(lines.Len() - 1).Stop
		}
		if isClosingFence(source, after, char, length) {
			cursor = max(cursor, nextLineStart(source, lineEnd(source, after)))
		} else {
			cursor = max(cursor, after)
			out = append(out, finding{
				kind:    report.KindRenderWarning,
				code:    report.CodeUnterminatedFence,
				line:    lineOf(source, openStart),
				message: fmt.Sprintf("code fence %s opened here is never closed; closed at end of body", strings.Repeat(string(char), length)),
			})
		}
		return ast.WalkSkipChildren, nil
	})
	return out
}

// fenceOpener returns the offset of the start of the line holding the opening fence.
// A block with neither an info string nor content is located by scanning
// forward from from, the end of the preceding blocks.
func fenceOpener(fcb *ast.FencedCodeBlock, source []byte, from int) (int, bool) {
	if fcb.Info != nil {
		return lineStart(source, fcb.Info.Segment.Start), true
	}
	if lines := fcb.Lines(); lines.Len() > 0 {
		first := lineStart(source, lines.At(0).Start)
		if first == 0 {
			return 0, false
		}
		return lineStart(source, first-1), true
	}
	for pos := lineStart(source, from); pos < len(source); pos = nextLineStart(source, lineEnd(source, pos)) {
		if isFenceLine(source[pos:lineEnd(source, pos)]) {
			return pos, true
		}
	}
	return 0, false
}

var listMarker = regexp.MustCompile(`^(?:[-*+]|\d{1,9}[.)])[ \t]+`)

// isFenceLine reports whether line opens a fence once container prefixes
// (indentation, blockquote markers, list bullets) are stripped.
func isFenceLine(line []byte) bool {
	line = bytes.TrimLeft(line, " \t>")
	line = listMarker.ReplaceAll(line, nil)
	line = bytes.TrimLeft(line, " \t")
	return bytes.HasPrefix(line, []byte("```")) || bytes.HasPrefix(line, []byte("~~~"))
}

// fenceRun finds the first run of backticks or tildes in an opener line,
// skipping container prefixes such as indentation, blockquote markers and list bullets.
func fenceRun(line []byte) (byte, int) {
	i := bytes.IndexAny(line, "`~")
	if i < 0 {
		return 0, 0
	}
	c := line[i]
	n := 0
	for i+n < len(line) && line[i+n] == c {
		n++
	}
	return c, n
}

func isClosingFence(source []byte, at int, char byte, length int) bool {
	if at >= len(source) {
		return false
	}
	line := source[at:lineEnd(source, at)]
	line = bytes.TrimLeft(line, " \t>")
	n := 0
	for n < len(line) && line[n] == char {
		n++
	}
	if n < length {
		return false
	}
	return len(bytes.TrimSpace(line[n:])) == 0
}

var (
	footnoteDef = regexp.MustCompile(`(?m)^[ \t>]*\[\^([^\]\s]+)\]:`)
	footnoteRef = regexp.MustCompile(`\[\^([^\]\s]+)\]`)
)

// footnoteProblems reports references without a definition and labels
// defined more than once. Code spans and code blocks are ignored.
func footnoteProblems(doc ast.Node, source []byte) []finding {
	masked := maskCode(doc, source)

	type def struct{ start, end int }
	defs := make(map[string][]int)
	var defSpans []def
	for _, m := range footnoteDef.FindAllSubmatchIndex(masked, -1) {
		label := strings.ToLower(string(masked[m[2]:m[3]]))
		defs[label] = append(defs[label], m[2])
		defSpans = append(defSpans, def{start: m[2] - 2, end: m[3] + 1})
	}

	inDef := func(pos int) bool {
		for _, d := range defSpans {
			if pos >= d.start && pos < d.end {
				return true
			}
		}
		return false
	}

	var out []finding
	reported := make(map[string]bool)
	for _, m := range footnoteRef.FindAllSubmatchIndex(masked, -1) {
		if inDef(m[0]) || (m[0] > 0 && masked[m[0]-1] == '\\') {
			continue
		}
		label := strings.ToLower(string(masked[m[2]:m[3]]))
		if _, ok := defs[label]; ok || reported[label] {
			continue
		}
		reported[label] = true
		out = append(out, finding{
			kind:    report.KindRenderWarning,
			code:    report.CodeDanglingFootnote,
			line:    lineOf(source, m[0]),
			message: fmt.Sprintf("footnote reference [^%s] has no definition", label),
		})
	}

	labels := make([]string, 0, len(defs))
	for label := range defs {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		offsets := defs[label]
		for _, off := range offsets[1:] {
			out = append(out, finding{
				kind:    report.KindRenderWarning,
				code:    report.CodeDuplicateFootnote,
				line:    lineOf(source, off),
				message: fmt.Sprintf("footnote [^%s] is defined %d times; the first definition is used", label, len(offsets)),
			})
		}
	}
	return out
}

// maskCode returns a copy of source with code span and code block content
// replaced by spaces. Newlines are kept so offsets and line numbers still match.
func maskCode(doc ast.Node, source []byte) []byte {
	masked := bytes.Clone(source)
	blank := func(start, stop int) {
		for i := start; i < stop && i < len(masked); i++ {
			if masked[i] != '\n' {
				masked[i] = ' '
			}
		}
	}
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindFencedCodeBlock, ast.KindCodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				blank(seg.Start, seg.Stop)
			}
			return ast.WalkSkipChildren, nil
		case ast.KindCodeSpan:
			for c := n.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*ast.Text); ok {
					blank(t.Segment.Start, t.Segment.Stop)
				}
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return masked
}

func lineStart(source []byte, pos int) int {
	if pos > len(source) {
		pos = len(source)
	}
	return bytes.LastIndexByte(source[:pos], '\n') + 1
}

func lineEnd(source []byte, pos int) int {
	if i := bytes.IndexByte(source[pos:], '\n'); i >= 0 {
		return pos + i
	}
	return len(source)
}

func nextLineStart(source []byte, end int) int {
	if end < len(source) {
		return end + 1
	}
	return len(source)
}

func lineOf(source []byte, pos int) int {
	if pos > len(source) {
		pos = len(source)
	}
	return bytes.Count(source[:pos], []byte("\n")) + 1
}
