// Package frontmatter separates a post's metadata header from its Markdown body.
//
// Two header shapes are recognized: a key/value block ("Title: ...") that
// ends at the first blank line, and a `---` delimited YAML block.
package frontmatter

import (
	"bytes"
	"errors"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format identifies which header shape a document used.
type Format string

const (
	FormatNone   Format = "none"
	FormatHeader Format = "header"
	FormatYAML   Format = "yaml"
)

// ErrMissingClosingDelimiter indicates the document started with a YAML
// frontmatter delimiter but did not contain a closing delimiter.
var ErrMissingClosingDelimiter = errors.New("yaml frontmatter start delimiter found but closing delimiter is missing")

// Block is a parsed metadata header.
//
// Field values are either string or []string (YAML sequences); YAML scalars of
// other types are kept as decoded by yaml.v3. Keys are lower-cased.
type Block struct {
	Format Format
	Raw    []byte
	Fields map[string]any
	// Keys lists field keys in order of first appearance.
	Keys []string
}

// Extract detects the header shape of content and returns the parsed block and the body.
func Extract(content []byte) (Block, []byte, error) {
	if fm, body, had, err := Split(content); err != nil {
		return Block{Format: FormatYAML}, nil, err
	} else if had {
		fields, keys, err := parseYAMLOrdered(fm)
		if err != nil {
			return Block{Format: FormatYAML, Raw: fm}, nil, err
		}
		return Block{Format: FormatYAML, Raw: fm, Fields: fields, Keys: keys}, body, nil
	}

	header, body, had := SplitHeader(content)
	if !had {
		return Block{Format: FormatNone, Fields: map[string]any{}}, content, nil
	}
	fields, keys := ParseHeader(header)
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return Block{Format: FormatHeader, Raw: header, Fields: out, Keys: keys}, body, nil
}

// Split separates YAML frontmatter (`---` delimited) from the Markdown body.
//
// If the document does not start with a YAML frontmatter delimiter, had is false
// and body is the full input.
func Split(content []byte) (frontmatter []byte, body []byte, had bool, err error) {
	nl := detectNewline(content)
	open := []byte("---" + nl)
	if !bytes.HasPrefix(content, open) {
		return nil, content, false, nil
	}

	start := len(open)
	if bytes.HasPrefix(content[start:], open) {
		return []byte{}, content[start+len(open):], true, nil
	}

	closeSeq := []byte(nl + "---" + nl)
	idx := bytes.Index(content[start:], closeSeq)
	if idx < 0 {
		// A closing delimiter on the very last line has no trailing newline.
		if bytes.HasSuffix(content, []byte(nl+"---")) {
			end := len(content) - len(nl+"---")
			return content[start : end+len(nl)], []byte{}, true, nil
		}
		return nil, nil, false, ErrMissingClosingDelimiter
	}
	end := start + idx + len(nl)
	return content[start:end], content[start+idx+len(closeSeq):], true, nil
}

// ParseYAML parses raw YAML frontmatter (without --- delimiters) into a map.
func ParseYAML(frontmatter []byte) (map[string]any, error) {
	fields, _, err := parseYAMLOrdered(frontmatter)
	return fields, err
}

func parseYAMLOrdered(frontmatter []byte) (map[string]any, []string, error) {
	if len(bytes.TrimSpace(frontmatter)) == 0 {
		return map[string]any{}, nil, nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(frontmatter, &doc); err != nil {
		return nil, nil, err
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, nil, errors.New("yaml frontmatter must be a mapping")
	}

	mapping := doc.Content[0]
	fields := make(map[string]any, len(mapping.Content)/2)
	var keys []string
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		key := strings.ToLower(strings.TrimSpace(mapping.Content[i].Value))
		node := mapping.Content[i+1]
		if _, seen := fields[key]; !seen {
			keys = append(keys, key)
		}
		// Timestamps stay text so zone-less dates resolve in the site time zone.
		if node.Kind == yaml.ScalarNode && node.ShortTag() == "!!timestamp" {
			fields[key] = node.Value
			continue
		}
		var value any
		if err := node.Decode(&value); err != nil {
			return nil, nil, err
		}
		fields[key] = normalizeYAMLValue(value)
	}
	return fields, keys, nil
}

// normalizeYAMLValue turns sequences of scalars into []string so callers see
// the same shapes regardless of header format.
func normalizeYAMLValue(v any) any {
	seq, ok := v.([]any)
	if !ok {
		return v
	}
	out := make([]string, 0, len(seq))
	for _, item := range seq {
		switch s := item.(type) {
		case string:
			out = append(out, s)
		case nil:
		default:
			out = append(out, strings.TrimSpace(yamlScalar(s)))
		}
	}
	return out
}

func yamlScalar(v any) string {
	b, err := yaml.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func detectNewline(content []byte) string {
	if i := bytes.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}
