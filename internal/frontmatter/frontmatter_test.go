package frontmatter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_NoFrontmatter_ReturnsBodyOnly(t *testing.T) {
	input := []byte("# Title\n\nHello\n")

	fm, body, had, err := Split(input)
	require.NoError(t, err)
	require.False(t, had)
	require.Empty(t, fm)
	require.Equal(t, input, body)
}

func TestSplit_YAMLFrontmatter_SplitsFrontmatterAndBody(t *testing.T) {
	input := []byte("---\ntitle: Generators\n---\n# Title\n")

	fm, body, had, err := Split(input)
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, []byte("title: Generators\n"), fm)
	require.Equal(t, []byte("# Title\n"), body)
}

func TestSplit_MissingClosingDelimiter_ReturnsError(t *testing.T) {
	_, _, had, err := Split([]byte("---\ntitle: x\n# Title\n"))
	require.Error(t, err)
	require.False(t, had)
	require.True(t, errors.Is(err, ErrMissingClosingDelimiter))
}

func TestSplit_CRLF_SplitsFrontmatterAndBody(t *testing.T) {
	fm, body, had, err := Split([]byte("---\r\ntitle: x\r\n---\r\n# Title\r\n"))
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, []byte("title: x\r\n"), fm)
	require.Equal(t, []byte("# Title\r\n"), body)
}

func TestSplit_EmptyBlockAndClosingAtEOF(t *testing.T) {
	fm, body, had, err := Split([]byte("---\n---\n# Title\n"))
	require.NoError(t, err)
	require.True(t, had)
	require.Empty(t, fm)
	require.Equal(t, []byte("# Title\n"), body)

	fm, body, had, err = Split([]byte("---\ntitle: x\n---"))
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, []byte("title: x\n"), fm)
	require.Empty(t, body)
}

func TestParseYAML_NormalizesSequences(t *testing.T) {
	fields, err := ParseYAML([]byte("Title: abc\ncategories:\n  - python\n  - web frameworks\n"))
	require.NoError(t, err)
	require.Equal(t, "abc", fields["title"])
	require.Equal(t, []string{"python", "web frameworks"}, fields["categories"])
}

func TestParseYAML_Empty_ReturnsEmptyMap(t *testing.T) {
	fields, err := ParseYAML(nil)
	require.NoError(t, err)
	require.Empty(t, fields)
}

func TestParseYAML_InvalidYAML_ReturnsError(t *testing.T) {
	_, err := ParseYAML([]byte("title: [unclosed\n"))
	require.Error(t, err)

	_, err = ParseYAML([]byte("- just\n- a list\n"))
	require.Error(t, err)
}

func TestSplitHeader(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantHad    bool
		wantHeader string
		wantBody   string
	}{
		{
			name:       "header then blank line",
			input:      "Title: Decorators Explained\nDate: 2013-11-29 10:00\n\nBody text\n",
			wantHad:    true,
			wantHeader: "Title: Decorators Explained\nDate: 2013-11-29 10:00\n",
			wantBody:   "Body text\n",
		},
		{
			name:     "no header",
			input:    "# Heading\n\nBody\n",
			wantHad:  false,
			wantBody: "# Heading\n\nBody\n",
		},
		{
			name:       "header only",
			input:      "Title: x\nDate: 2013-11-29",
			wantHad:    true,
			wantHeader: "Title: x\nDate: 2013-11-29",
			wantBody:   "",
		},
		{
			name:       "continuation lines stay in header",
			input:      "Title: A long\n  title\n\nBody\n",
			wantHad:    true,
			wantHeader: "Title: A long\n  title\n",
			wantBody:   "Body\n",
		},
		{
			name:       "non header line ends the block",
			input:      "Title: x\n# Heading\n",
			wantHad:    true,
			wantHeader: "Title: x\n",
			wantBody:   "# Heading\n",
		},
		{
			name:       "crlf",
			input:      "Title: x\r\n\r\nBody\r\n",
			wantHad:    true,
			wantHeader: "Title: x\r\n",
			wantBody:   "Body\r\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header, body, had := SplitHeader([]byte(tt.input))
			require.Equal(t, tt.wantHad, had)
			assert.Equal(t, tt.wantHeader, string(header))
			assert.Equal(t, tt.wantBody, string(body))
		})
	}
}

func TestParseHeader(t *testing.T) {
	fields, keys := ParseHeader([]byte("Title: A long\n  title\nDATE: 2013-11-29\nCategories: python  decorators\nx-custom:value\n"))
	assert.Equal(t, "A long title", fields["title"])
	assert.Equal(t, "2013-11-29", fields["date"])
	assert.Equal(t, "python  decorators", fields["categories"])
	assert.Equal(t, "value", fields["x-custom"])
	assert.Equal(t, []string{"title", "date", "categories", "x-custom"}, keys)
}

func TestExtract(t *testing.T) {
	block, body, err := Extract([]byte("Title: Header post\n\nBody\n"))
	require.NoError(t, err)
	assert.Equal(t, FormatHeader, block.Format)
	assert.Equal(t, "Header post", block.Fields["title"])
	assert.Equal(t, "Body\n", string(body))

	block, body, err = Extract([]byte("---\ntitle: YAML post\n---\nBody\n"))
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, block.Format)
	assert.Equal(t, "YAML post", block.Fields["title"])
	assert.Equal(t, []string{"title"}, block.Keys)
	assert.Equal(t, "Body\n", string(body))

	block, body, err = Extract([]byte("Just text\n"))
	require.NoError(t, err)
	assert.Equal(t, FormatNone, block.Format)
	assert.Empty(t, block.Fields)
	assert.Equal(t, "Just text\n", string(body))

	_, _, err = Extract([]byte("---\ntitle: x\n"))
	require.ErrorIs(t, err, ErrMissingClosingDelimiter)
}

func TestParseYAML_TimestampsStayText(t *testing.T) {
	fields, err := ParseYAML([]byte("date: 2014-01-05\nupdated: 2014-01-05T10:00:00+02:00\ncount: 3\n"))
	require.NoError(t, err)
	assert.Equal(t, "2014-01-05", fields["date"])
	assert.Equal(t, "2014-01-05T10:00:00+02:00", fields["updated"])
	assert.Equal(t, 3, fields["count"])
}
