// Package debug gates the SDK's diagnostic output by category.
//
// Categories select which subsystems talk: http (request bodies and
// gateway errors), retry (backoff decisions), stream (raw chunks and frame
// drops) and config. "all" enables every category. ZAGUAN_DEBUG seeds the
// set at startup; SetCategories replaces it at runtime.
//
// Output goes to the logger installed with SetLogger, or slog.Default when
// none is set. That logger's level decides whether TRACE detail (full bodies,
// raw stream bytes) is emitted.
//
//	debug.SetCategories("http,retry")
//	debug.SetLogger(debug.NewLogger(os.Stderr, "TRACE"))
package debug

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"
	"sync/atomic"
)

// LevelTrace sits below slog.LevelDebug. Bodies are only logged at TRACE.
const LevelTrace = slog.LevelDebug - 4

// Known lists the categories the SDK emits.
var Known = []string{"http", "retry", "stream", "config", "all"}

var (
	categories atomic.Pointer[map[string]bool]
	output     atomic.Pointer[slog.Logger]
)

func init() {
	SetCategories(os.Getenv("ZAGUAN_DEBUG"))
}

// SetCategories replaces the enabled set with the comma-separated list s.
// Names are case-insensitive; an empty s disables all output.
func SetCategories(s string) {
	m := parseCategories(s)
	categories.Store(&m)
}

// CheckCategories reports names in s that are not in Known.
func CheckCategories(s string) error {
	var unknown []string
	for c := range parseCategories(s) {
		if !slices.Contains(Known, c) {
			unknown = append(unknown, c)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	slices.Sort(unknown)
	return fmt.Errorf("unknown debug categories %s (known: %s)", strings.Join(unknown, ", "), strings.Join(Known, ", "))
}

// SetLogger routes debug output to l. A nil l restores slog.Default.
func SetLogger(l *slog.Logger) {
	output.Store(l)
}

// NewLogger returns a text logger on w that emits records at level and
// above. level is parsed with ParseLevel.
func NewLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

func logger() *slog.Logger {
	if l := output.Load(); l != nil {
		return l
	}
	return slog.Default()
}

// Enabled reports whether category produces output.
func Enabled(category string) bool {
	m := *categories.Load()
	return m["all"] || m[category]
}

// Log emits msg at DEBUG when category is enabled.
func Log(category string, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	logger().Debug(msg, append([]any{"debug", category}, args...)...)
}

// Trace emits msg at TRACE when category is enabled.
func Trace(category string, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	logger().Log(context.Background(), LevelTrace, msg, append([]any{"debug", category}, args...)...)
}

// TraceIsEnabled reports whether Trace output for category would be written.
// Callers use it to skip building large values.
func TraceIsEnabled(category string) bool {
	return Enabled(category) && logger().Enabled(context.Background(), LevelTrace)
}

// Raw logs text verbatim under the "raw" key at TRACE.
func Raw(category string, text string) {
	if !TraceIsEnabled(category) {
		return
	}
	logger().Log(context.Background(), LevelTrace, "raw", "debug", category, "raw", text)
}

// ParseLevel converts a level name to a slog.Level. Unknown names map to
// INFO.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return LevelTrace
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Categories returns the enabled categories in sorted order.
func Categories() []string {
	return slices.Sorted(maps.Keys(*categories.Load()))
}

// Truncate cuts s to maxLen bytes and marks the cut with "...".
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func parseCategories(s string) map[string]bool {
	m := make(map[string]bool)
	for _, cat := range strings.Split(s, ",") {
		if cat = strings.ToLower(strings.TrimSpace(cat)); cat != "" {
			m[cat] = true
		}
	}
	return m
}
