package frontmatter

import (
	"bytes"
	"regexp"
	"strings"
)

var headerLine = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9_-]*)[ \t]*:(.*)$`)

// SplitHeader separates a key/value metadata header from the body.
//
// The header is the run of lines at the top of content, the first of which
// must look like "Key: value", up to the first blank line. Indented lines
// continue the previous value. had is false when the first line is not a
// header line.
func SplitHeader(content []byte) (header []byte, body []byte, had bool) {
	first, _, _ := bytes.Cut(content, []byte("\n"))
	if !headerLine.Match(bytes.TrimRight(first, "\r")) {
		return nil, content, false
	}

	pos := 0
	for pos < len(content) {
		end := bytes.IndexByte(content[pos:], '\n')
		next := len(content)
		if end >= 0 {
			next = pos + end + 1
		}
		line := bytes.TrimRight(content[pos:next], "\r\n")
		if len(bytes.TrimSpace(line)) == 0 {
			return content[:pos], content[next:], true
		}
		if !headerLine.Match(line) && !isContinuation(line) {
			return content[:pos], content[pos:], true
		}
		pos = next
	}
	return content, []byte{}, true
}

// ParseHeader parses a key/value header into lower-cased keys and trimmed
// values. Later duplicates replace earlier values.
func ParseHeader(header []byte) (map[string]string, []string) {
	fields := make(map[string]string)
	var keys []string
	last := ""
	for _, raw := range strings.Split(string(header), "\n") {
		line := strings.TrimRight(raw, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if m := headerLine.FindStringSubmatch(line); m != nil {
			key := strings.ToLower(m[1])
			if _, seen := fields[key]; !seen {
				keys = append(keys, key)
			}
			fields[key] = strings.TrimSpace(m[2])
			last = key
			continue
		}
		if last != "" && isContinuation([]byte(line)) {
			fields[last] = strings.TrimSpace(fields[last] + " " + strings.TrimSpace(line))
		}
	}
	return fields, keys
}

func isContinuation(line []byte) bool {
	return len(line) > 0 && (line[0] == ' ' || line[0] == '\t')
}
