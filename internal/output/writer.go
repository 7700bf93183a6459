// Package output writes generated pages into the output tree and keeps the
// manifest of generated files so later runs only ever remove their own files.
package output

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"

	ferrors "git.home.luguber.info/inful/postpress/internal/foundation/errors"
	"git.home.luguber.info/inful/postpress/internal/logfields"
	"git.home.luguber.info/inful/postpress/internal/site"
)

// Result summarizes one Write.
type Result struct {
	Written   int
	Unchanged int
	Removed   int
	// Replaced counts untracked files that a page overwrote.
	Replaced int
}

// Writer owns the manifest-tracked files below an output root.
type Writer struct {
	root string
}

// NewWriter returns a Writer for root. root is created on first Write.
func NewWriter(root string) *Writer {
	return &Writer{root: root}
}

// Write replaces the tracked file set with pages. Files listed in the
// previous manifest but absent from pages are removed first, together with
// directories that removal leaves empty. Each page is then written to a
// temporary file and renamed into place; pages whose bytes are unchanged are
// left untouched. The manifest is written last.
func (w *Writer) Write(ctx context.Context, pages []site.Page, sources []Source) (Result, error) {
	var res Result
	if err := os.MkdirAll(w.root, 0o755); err != nil {
		return res, fatalIO("cannot create output root", w.root, err)
	}

	next := make(map[string][]byte, len(pages))
	for _, p := range pages {
		rel, ok := cleanRel(p.Path)
		if !ok {
			return res, ferrors.InternalError("refusing to write outside the output root").
				WithContext("path", p.Path).Build()
		}
		if _, dup := next[rel]; dup {
			return res, ferrors.InternalError("page generated twice").WithContext("path", rel).Build()
		}
		next[rel] = p.Data
	}

	prev, err := ReadManifest(w.root)
	if err != nil {
		slog.Warn("Ignoring unreadable output manifest", logfields.Output(w.root), logfields.Error(err))
		prev = &Manifest{}
	}

	removed, err := w.removeStale(prev, next)
	res.Removed = removed
	if err != nil {
		return res, err
	}

	paths := make([]string, 0, len(next))
	for rel := range next {
		paths = append(paths, rel)
	}
	sort.Strings(paths)

	tracked := make(map[string]struct{}, len(prev.Files))
	for _, p := range prev.Paths() {
		tracked[p] = struct{}{}
	}

	entries := make([]FileEntry, 0, len(paths))
	for _, rel := range paths {
		if err := ctx.Err(); err != nil {
			return res, ferrors.CanceledError("output write canceled").WithCause(err).Build()
		}
		data := next[rel]
		target := joinRoot(w.root, rel)
		_, isTracked := tracked[rel]
		foreign := false
		if !isTracked {
			if info, err := os.Lstat(target); err == nil && info.Mode().IsRegular() {
				foreign = true
			}
		}
		changed, err := writeIfChanged(target, data)
		if err != nil {
			return res, fatalIO("cannot write output file", rel, err)
		}
		if changed && foreign {
			slog.Warn("Replaced output file not generated by an earlier run", logfields.Path(rel))
			res.Replaced++
		}
		if changed {
			res.Written++
		} else {
			res.Unchanged++
		}
		entries = append(entries, FileEntry{Path: rel, SHA256: sum(data)})
	}

	manifest, err := newManifest(entries, sources).Encode()
	if err != nil {
		return res, ferrors.InternalError("cannot encode output manifest").WithCause(err).Build()
	}
	if _, err := writeIfChanged(joinRoot(w.root, ManifestName), manifest); err != nil {
		return res, fatalIO("cannot write output manifest", ManifestName, err)
	}

	slog.Info("Output written", logfields.Output(w.root),
		slog.Int("written", res.Written), slog.Int("unchanged", res.Unchanged), slog.Int("removed", res.Removed))
	return res, nil
}

// removeStale deletes previously generated files that are not regenerated.
// Manifest entries that do not resolve inside the root are skipped.
func (w *Writer) removeStale(prev *Manifest, next map[string][]byte) (int, error) {
	removed := 0
	dirs := make(map[string]struct{})
	for _, f := range prev.Files {
		rel, ok := cleanRel(f.Path)
		if !ok {
			slog.Warn("Ignoring manifest entry outside output root", logfields.Path(f.Path))
			continue
		}
		if _, keep := next[rel]; keep {
			continue
		}
		full := joinRoot(w.root, rel)
		info, err := os.Lstat(full)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return removed, fatalIO("cannot inspect stale output file", rel, err)
		}
		if info.IsDir() {
			continue
		}
		if err := os.Remove(full); err != nil {
			return removed, fatalIO("cannot remove stale output file", rel, err)
		}
		slog.Debug("Removed stale output file", logfields.Path(rel))
		removed++
		for d := path.Dir(rel); d != "."; d = path.Dir(d) {
			dirs[d] = struct{}{}
		}
	}

	// Deepest directories first so parents empty out before they are checked.
	ordered := make([]string, 0, len(dirs))
	for d := range dirs {
		ordered = append(ordered, d)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if len(ordered[i]) != len(ordered[j]) {
			return len(ordered[i]) > len(ordered[j])
		}
		return ordered[i] < ordered[j]
	})
	for _, d := range ordered {
		full := joinRoot(w.root, d)
		entries, err := os.ReadDir(full)
		if err != nil || len(entries) > 0 {
			continue
		}
		if err := os.Remove(full); err == nil {
			slog.Debug("Pruned empty output directory", logfields.Path(d))
		}
	}
	return removed, nil
}

// writeIfChanged atomically replaces target with data unless it already holds data.
func writeIfChanged(target string, data []byte) (bool, error) {
	if existing, err := os.ReadFile(target); err == nil && bytes.Equal(existing, data) {
		return false, nil
	}
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target)+".tmp-*")
	if err != nil {
		return false, err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return false, err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return false, err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return false, err
	}
	if err := os.Rename(tmpName, target); err != nil {
		cleanup()
		return false, err
	}
	return true, nil
}

func joinRoot(root, rel string) string {
	return filepath.Join(root, filepath.FromSlash(rel))
}

func fatalIO(msg, p string, err error) error {
	return ferrors.FileSystemError(msg).WithCause(err).WithContext("path", p).Build()
}
