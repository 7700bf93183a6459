package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyPost       = "post"
	KeyPath       = "path"
	KeySource     = "source"
	KeyOutput     = "output"
	KeyCategory   = "category"
	KeyKind       = "kind"
	KeyCode       = "code"
	KeyPhase      = "phase"
	KeyCount      = "count"
	KeyWorkers    = "workers"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr        { return slog.String(KeyRunID, id) }
func Post(id string) slog.Attr         { return slog.String(KeyPost, id) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func Source(p string) slog.Attr        { return slog.String(KeySource, p) }
func Output(p string) slog.Attr        { return slog.String(KeyOutput, p) }
func Category(c string) slog.Attr      { return slog.String(KeyCategory, c) }
func Kind(k string) slog.Attr          { return slog.String(KeyKind, k) }
func Code(c string) slog.Attr          { return slog.String(KeyCode, c) }
func Phase(name string) slog.Attr      { return slog.String(KeyPhase, name) }
func Count(n int) slog.Attr            { return slog.Int(KeyCount, n) }
func Workers(n int) slog.Attr          { return slog.Int(KeyWorkers, n) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }

// Elapsed records d under the duration_ms key.
func Elapsed(d time.Duration) slog.Attr { return DurationMS(float64(d.Microseconds()) / 1000) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
