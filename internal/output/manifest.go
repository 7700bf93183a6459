package output

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
)

// ManifestName is the file at the output root that tracks generated files.
const ManifestName = ".postpress-manifest.json"

const manifestVersion = 1

// Manifest lists every file produced by a run. It carries no timestamps so
// identical inputs produce an identical manifest.
type Manifest struct {
	Version int         `json:"version"`
	Files   []FileEntry `json:"files"`
	Sources []Source    `json:"sources,omitempty"`
}

// FileEntry is one generated file.
type FileEntry struct {
	Path   string `json:"path"`
	SHA256 string `json:"sha256"`
}

// Source records the fingerprint of a post that contributed to the output.
type Source struct {
	Path        string `json:"path"`
	Fingerprint string `json:"fingerprint"`
}

func newManifest(files []FileEntry, sources []Source) *Manifest {
	m := &Manifest{Version: manifestVersion, Files: files, Sources: sources}
	sort.Slice(m.Files, func(i, j int) bool { return m.Files[i].Path < m.Files[j].Path })
	sort.Slice(m.Sources, func(i, j int) bool { return m.Sources[i].Path < m.Sources[j].Path })
	return m
}

// Paths returns the tracked file paths.
func (m *Manifest) Paths() []string {
	out := make([]string, len(m.Files))
	for i, f := range m.Files {
		out[i] = f.Path
	}
	return out
}

// Encode returns the canonical JSON form.
func (m *Manifest) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	return append(data, '\n'), nil
}

// ReadManifest loads the manifest at the output root. A missing manifest is
// returned as an empty one.
func ReadManifest(root string) (*Manifest, error) {
	data, err := os.ReadFile(joinRoot(root, ManifestName))
	if errors.Is(err, os.ErrNotExist) {
		return &Manifest{Version: manifestVersion}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}
	return &m, nil
}

// cleanRel validates a slash-separated path relative to the output root.
// Paths that are absolute or climb out of the root are rejected.
func cleanRel(rel string) (string, bool) {
	if rel == "" || strings.Contains(rel, "\\") || strings.HasPrefix(rel, "/") {
		return "", false
	}
	c := path.Clean(rel)
	if c == "." || c == ".." || strings.HasPrefix(c, "../") || c == ManifestName {
		return "", false
	}
	return c, true
}

func sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
