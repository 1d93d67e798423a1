package digestlog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Kind string

const (
	KindDebug Kind = "DEBUG"
	KindInfo  Kind = "INFO"
	KindWarn  Kind = "WARN"
	KindError Kind = "ERROR"
	KindRun   Kind = "RUN"
	KindSend  Kind = "SEND"
	KindHTTP  Kind = "HTTP"
)

type Logger struct {
	mu sync.Mutex

	file io.Writer
	term io.Writer

	termEnabled bool
	termColor   bool
	debug       bool
}

type Options struct {
	File io.Writer
	Term io.Writer

	TermEnabled bool
	TermColor   bool
	Debug       bool
}

type Config struct {
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
	Debug      bool   `json:"debug"`
	Quiet      bool   `json:"quiet"`
}

func (c Config) WithDefaults() Config {
	out := c
	if strings.TrimSpace(out.Path) == "" {
		out.Path = filepath.Join("logs", "digest.log")
	}
	if out.MaxSizeMB <= 0 {
		out.MaxSizeMB = 20
	}
	if out.MaxBackups <= 0 {
		out.MaxBackups = 5
	}
	if out.MaxAgeDays <= 0 {
		out.MaxAgeDays = 30
	}
	return out
}

func New(opts Options) *Logger {
	return &Logger{
		file:        opts.File,
		term:        opts.Term,
		termEnabled: opts.TermEnabled,
		termColor:   opts.TermColor,
		debug:       opts.Debug,
	}
}

// Open builds a logger that writes to a rotated file and, unless quiet, to stderr.
func Open(cfg Config) (*Logger, error) {
	cfg = cfg.WithDefaults()
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	file := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		LocalTime:  true,
	}
	return New(Options{
		File:        file,
		Term:        os.Stderr,
		TermEnabled: !cfg.Quiet,
		TermColor:   TermColorEnabled(os.Stderr),
		Debug:       cfg.Debug,
	}), nil
}

// Discard is a logger that drops everything; handy in tests.
func Discard() *Logger {
	return New(Options{})
}

func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if c, ok := l.file.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Writer exposes the file sink so other components (gin) can share it.
func (l *Logger) Writer() io.Writer {
	if l == nil || l.file == nil {
		return io.Discard
	}
	return lockedWriter{l: l}
}

type lockedWriter struct{ l *Logger }

func (w lockedWriter) Write(p []byte) (int, error) {
	w.l.mu.Lock()
	defer w.l.mu.Unlock()
	return w.l.file.Write(p)
}

func TermColorEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	termEnv := strings.TrimSpace(os.Getenv("TERM"))
	if termEnv == "" || termEnv == "dumb" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

func (l *Logger) Debugf(format string, args ...any) { l.Logf(KindDebug, format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.Logf(KindInfo, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.Logf(KindWarn, format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.Logf(KindError, format, args...) }

func (l *Logger) Logf(kind Kind, format string, args ...any) {
	if l == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	l.Log(kind, msg)
}

func (l *Logger) Log(kind Kind, msg string) {
	if l == nil {
		return
	}
	if kind == KindDebug && !l.debug {
		return
	}
	text := strings.TrimRight(msg, "\n")
	if strings.TrimSpace(text) == "" {
		return
	}

	ts := time.Now().Format("2006-01-02 15:04:05.000")
	line := fmt.Sprintf("[%s] [%s] %s\n", ts, strings.TrimSpace(string(kind)), text)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		_, _ = io.WriteString(l.file, line)
	}
	if l.termEnabled && l.term != nil {
		if l.termColor {
			_, _ = io.WriteString(l.term, colorize(kind, line))
		} else {
			_, _ = io.WriteString(l.term, line)
		}
	}
}

const (
	ansiReset   = "\x1b[0m"
	ansiBold    = "\x1b[1m"
	ansiDim     = "\x1b[2m"
	ansiCyan    = "\x1b[36m"
	ansiGreen   = "\x1b[32m"
	ansiYellow  = "\x1b[33m"
	ansiRed     = "\x1b[31m"
	ansiMagenta = "\x1b[35m"
)

func colorize(kind Kind, line string) string {
	code := ""
	switch kind {
	case KindDebug:
		code = ansiDim
	case KindInfo:
		code = ansiCyan
	case KindWarn:
		code = ansiYellow
	case KindError:
		code = ansiRed
	case KindRun:
		code = ansiBold + ansiGreen
	case KindSend:
		code = ansiGreen
	case KindHTTP:
		code = ansiMagenta
	default:
		return line
	}
	return code + line + ansiReset
}

// Preview flattens whitespace and truncates raw to at most max bytes.
func Preview(raw string, max int) string {
	if max <= 0 {
		return ""
	}
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\n", " ")
	text = strings.Join(strings.Fields(text), " ")
	if len(text) <= max {
		return text
	}
	const suffix = " ... (truncated)"
	if max < 2*len(suffix) {
		return text[:max]
	}
	return text[:max-len(suffix)] + suffix
}
