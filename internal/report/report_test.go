package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReport_FinishOrdersIssuesAndDerivesOutcome(t *testing.T) {
	r := New("posts", "site")
	require.NotEmpty(t, r.RunID)

	r.Add(
		Issue{Kind: KindRenderWarning, Code: CodeUnterminatedFence, Path: "b.md", Line: 9, Message: "fence"},
		Issue{Kind: KindMalformedMetadata, Code: CodeMissingKey, Path: "a.md", Message: "missing date", Skipped: true},
		Issue{Kind: KindInfo, Code: CodeUnrecognizedKeys, Path: "b.md", Message: "tags"},
	)
	r.Finish()

	require.Len(t, r.Issues, 3)
	assert.Equal(t, "a.md", r.Issues[0].Path)
	assert.Equal(t, KindInfo, r.Issues[1].Kind, "line 0 sorts before line 9 within a path")
	assert.Equal(t, OutcomeWarning, r.Outcome)
	assert.Equal(t, 1, r.Count(KindMalformedMetadata))
	assert.Len(t, r.Skipped(), 1)
	assert.Len(t, r.Warnings(), 1)
	assert.Len(t, r.Notes(), 1)
}

func TestReport_Outcomes(t *testing.T) {
	clean := New("posts", "site")
	clean.Add(Issue{Kind: KindInfo, Code: CodeDraftSkipped, Path: "in_progress/x.md", Skipped: true})
	clean.Finish()
	assert.Equal(t, OutcomeSuccess, clean.Outcome, "skipped drafts alone do not degrade the outcome")

	failed := New("posts", "site")
	failed.SetFatal(errors.New("output root unwritable"))
	failed.Finish()
	assert.Equal(t, OutcomeFailed, failed.Outcome)
}

func TestReport_WriteSummary(t *testing.T) {
	r := New("posts", "site")
	r.PostsFound = 2
	r.PostsPublished = 1
	r.Add(
		Issue{Kind: KindMalformedMetadata, Code: CodeMissingKey, Post: "draft", Path: "draft.md", Message: "missing required key \"date\"", Skipped: true},
		Issue{Kind: KindInfo, Code: CodeUnrecognizedKeys, Path: "a.md", Message: "ignored keys: tags"},
	)
	r.Finish()

	var quiet bytes.Buffer
	require.NoError(t, r.WriteSummary(&quiet, false))
	out := quiet.String()
	assert.Contains(t, out, "posts=2 published=1")
	assert.Contains(t, out, "Skipped posts (1):")
	assert.Contains(t, out, "draft.md [MalformedMetadata/MISSING_KEY]")
	assert.NotContains(t, out, "Notes")

	var verbose bytes.Buffer
	require.NoError(t, r.WriteSummary(&verbose, true))
	assert.Contains(t, verbose.String(), "Notes (1):")
}

func TestReport_Persist(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reports", "run.json")
	r := New("posts", "site")
	r.Add(Issue{Kind: KindRenderWarning, Code: CodeDanglingFootnote, Path: "a.md", Message: "no definition for [^1]"})

	require.NoError(t, r.Persist(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, r.RunID, decoded["run_id"])
	assert.Equal(t, "warning", decoded["outcome"])
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file must be renamed away")
}
