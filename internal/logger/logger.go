// Package logger is the process-wide logging facade: printf-style helpers
// over a single slog handler whose destination and level are set once at
// startup. Oracle payload dumping lives in oracle.go on a separate writer.
package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"log/slog"
)

var (
	minLevel slog.LevelVar
	current  atomic.Pointer[slog.Logger]
)

func init() {
	current.Store(build(os.Stdout))
}

func build(w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: &minLevel}))
}

// SetOutput redirects all subsequent log lines; pass an io.MultiWriter to
// tee stdout and a file.
func SetOutput(w io.Writer) {
	current.Store(build(w))
}

// SetLevel accepts debug, info, warn/warning or error. Unknown names fall
// back to info rather than failing startup over a typo.
func SetLevel(name string) {
	name = strings.TrimSpace(name)
	if strings.EqualFold(name, "warning") {
		name = "warn"
	}
	var lv slog.Level
	if err := lv.UnmarshalText([]byte(name)); err != nil {
		lv = slog.LevelInfo
	}
	minLevel.Set(lv)
}

func logf(lv slog.Level, format string, v ...any) {
	current.Load().Log(context.Background(), lv, fmt.Sprintf(format, v...))
}

func Debugf(format string, v ...any) { logf(slog.LevelDebug, format, v...) }

func Infof(format string, v ...any) { logf(slog.LevelInfo, format, v...) }

func Warnf(format string, v ...any) { logf(slog.LevelWarn, format, v...) }

func Errorf(format string, v ...any) { logf(slog.LevelError, format, v...) }

// InfoBlock logs a multi-line message one line at a time, so every line
// carries the handler's timestamp and level prefix.
func InfoBlock(block string) {
	for _, line := range strings.Split(strings.TrimSpace(block), "\n") {
		if line == "" {
			continue
		}
		Infof("%s", line)
	}
}
