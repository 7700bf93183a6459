package content

import (
	"fmt"
	"sort"
	"strings"
	"time"

	cerrors "git.home.luguber.info/inful/postpress/internal/content/errors"
	"git.home.luguber.info/inful/postpress/internal/foundation/normalization"
	"git.home.luguber.info/inful/postpress/internal/report"
)

// Recognized metadata keys. Any other key is ignored and reported.
const (
	KeyTitle      = "title"
	KeyDate       = "date"
	KeyCategories = "categories"
	KeySlug       = "slug"
	KeySummary    = "summary"
	KeyStatus     = "status"
)

var recognizedKeys = map[string]struct{}{
	KeyTitle: {}, KeyDate: {}, KeyCategories: {}, KeySlug: {}, KeySummary: {}, KeyStatus: {},
}

// Status is the publication state declared by the status key.
type Status string

const (
	StatusPublished Status = "published"
	StatusDraft     Status = "draft"
)

var statusNormalizer = normalization.NewNormalizer(map[string]Status{
	"published": StatusPublished,
	"publish":   StatusPublished,
	"draft":     StatusDraft,
	"wip":       StatusDraft,
}, StatusPublished)

// DateLayouts are tried in order when parsing the date key.
var DateLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006-01-02T15:04:05",
}

// Metadata is the typed view of a post header.
type Metadata struct {
	Title      string
	Date       time.Time
	HasDate    bool
	Categories []string
	Slug       string
	Summary    string
	Status     Status

	// Unrecognized lists ignored keys in order of appearance.
	Unrecognized []string
}

// problem is one reason a header cannot be published.
type problem struct {
	code report.Code
	err  error
}

// decodeMetadata maps header fields onto Metadata. Dates without an explicit
// zone are interpreted in loc.
func decodeMetadata(fields map[string]any, keys []string, loc *time.Location) (Metadata, []problem) {
	var md Metadata
	var problems []problem

	for _, k := range keys {
		if _, ok := recognizedKeys[k]; !ok {
			md.Unrecognized = append(md.Unrecognized, k)
		}
	}

	md.Title = scalarString(fields[KeyTitle])
	md.Slug = scalarString(fields[KeySlug])
	md.Summary = scalarString(fields[KeySummary])
	md.Status = statusNormalizer.Normalize(scalarString(fields[KeyStatus]))
	md.Categories = parseCategories(fields[KeyCategories])

	if raw, ok := fields[KeyDate]; ok && raw != nil {
		d, err := parseDate(raw, loc)
		if err != nil {
			problems = append(problems, problem{code: report.CodeInvalidDate, err: err})
		} else {
			md.Date, md.HasDate = d, true
		}
	}
	return md, problems
}

// parseDate accepts the header string layouts and RFC 3339 timestamps.
// Values without an offset are read in loc.
func parseDate(raw any, loc *time.Location) (time.Time, error) {
	if t, ok := raw.(time.Time); ok {
		return t, nil
	}
	s := scalarString(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", cerrors.ErrInvalidDate)
	}
	for _, layout := range DateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	// YAML timestamps may carry an explicit offset.
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: %q does not match YYYY-MM-DD HH:MM", cerrors.ErrInvalidDate, s)
}

// parseCategories splits a header value on whitespace and commas, or takes a
// YAML list as is. The result is sorted and de-duplicated.
func parseCategories(raw any) []string {
	var tokens []string
	switch v := raw.(type) {
	case nil:
		return nil
	case []string:
		for _, s := range v {
			tokens = append(tokens, splitTokens(s)...)
		}
	default:
		tokens = splitTokens(scalarString(v))
	}

	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	sort.Strings(out)
	return out
}

func splitTokens(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
}

func scalarString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	case []string:
		return strings.TrimSpace(strings.Join(s, " "))
	default:
		return strings.TrimSpace(fmt.Sprint(s))
	}
}
