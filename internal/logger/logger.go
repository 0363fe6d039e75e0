package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

const (
	LevelFatal slog.Level = 12
)

// Options configures Init.
type Options struct {
	Debug         bool
	Dir           string
	RetentionDays int
}

// sink is the shared writer behind every handler derived with WithAttrs/WithGroup.
type sink struct {
	ch          chan []byte
	mu          sync.Mutex
	writer      io.Writer
	currentDay  int
	currentFile *os.File
	basePath    string
	retention   time.Duration
	wg          sync.WaitGroup
	closeOnce   sync.Once
}

type AsyncHandler struct {
	sink     *sink
	attrs    []slog.Attr
	group    string
	logLevel slog.Level
}

func NewAsyncHandler(basePath string, logLevel slog.Level, retention time.Duration) *AsyncHandler {
	s := &sink{
		ch:        make(chan []byte, 1024),
		basePath:  basePath,
		retention: retention,
		writer:    os.Stdout,
	}
	if err := s.rotateIfNeeded(); err != nil {
		fmt.Fprintf(os.Stderr, "log file unavailable, writing to stdout only: %v\n", err)
	}
	s.wg.Add(1)
	go s.startWorker()
	return &AsyncHandler{sink: s, logLevel: logLevel}
}

func (s *sink) cleanOldLogs() {
	if s.retention <= 0 {
		return
	}
	files, _ := filepath.Glob(filepath.Join(s.basePath, "*.log"))
	now := time.Now()
	for _, f := range files {
		fi, err := os.Stat(f)
		if err != nil {
			continue
		}
		if now.Sub(fi.ModTime()) > s.retention {
			_ = os.Remove(f)
		}
	}
}

// rotateIfNeeded opens the log file for the current day, closing yesterday's.
func (s *sink) rotateIfNeeded() error {
	if s.basePath == "" {
		return nil
	}
	now := time.Now()
	currentDay := now.YearDay()
	if currentDay == s.currentDay && s.currentFile != nil {
		return nil
	}

	if s.currentFile != nil {
		if err := s.currentFile.Close(); err != nil {
			return fmt.Errorf("close log file: %w", err)
		}
		s.currentFile = nil
		s.writer = os.Stdout
	}

	logPath := filepath.Join(s.basePath, now.Format("2006-01-02")+".log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	s.currentFile = f
	s.currentDay = currentDay
	s.writer = io.MultiWriter(os.Stdout, s.currentFile)
	s.cleanOldLogs()
	return nil
}

func (s *sink) startWorker() {
	defer s.wg.Done()
	for data := range s.ch {
		s.mu.Lock()
		_ = s.rotateIfNeeded()
		_, _ = s.writer.Write(data)
		s.mu.Unlock()
	}
}

func (s *sink) close() {
	s.closeOnce.Do(func() {
		close(s.ch)
		s.wg.Wait()
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.currentFile != nil {
			_ = s.currentFile.Sync()
			_ = s.currentFile.Close()
			s.currentFile = nil
		}
	})
}

func (h *AsyncHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.logLevel
}

func (h *AsyncHandler) Handle(_ context.Context, r slog.Record) error {
	level := r.Level.String()

	switch r.Level {
	case slog.LevelDebug:
		level = color.MagentaString(level)
	case slog.LevelInfo:
		level = color.BlueString(level)
	case slog.LevelWarn:
		level = color.YellowString(level)
	case slog.LevelError:
		level = color.RedString(level)
	case LevelFatal:
		level = color.HiRedString("FATAL")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s | %-5s | %s",
		color.GreenString(r.Time.Format("2006-01-02T15:04:05")),
		level,
		color.CyanString(r.Message),
	)

	prefix := ""
	if h.group != "" {
		prefix = h.group + "."
	}
	for _, attr := range h.attrs {
		b.WriteString(color.CyanString(" %s%s=%v", prefix, attr.Key, attr.Value))
	}
	r.Attrs(func(attr slog.Attr) bool {
		b.WriteString(color.CyanString(" %s%s=%v", prefix, attr.Key, attr.Value))
		return true
	})
	b.WriteByte('\n')

	h.Write([]byte(b.String()))
	return nil
}

func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	newAttrs = append(newAttrs, h.attrs...)
	newAttrs = append(newAttrs, attrs...)
	return &AsyncHandler{sink: h.sink, attrs: newAttrs, group: h.group, logLevel: h.logLevel}
}

func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	group := name
	if h.group != "" {
		group = h.group + "." + name
	}
	return &AsyncHandler{sink: h.sink, attrs: h.attrs, group: group, logLevel: h.logLevel}
}

// Write queues p for the writer goroutine. Writes after Close go to stderr.
func (h *AsyncHandler) Write(p []byte) {
	pb := make([]byte, len(p))
	copy(pb, p)
	defer func() {
		if recover() != nil {
			_, _ = os.Stderr.Write(pb)
		}
	}()
	h.sink.ch <- pb
}

func (h *AsyncHandler) Close() error {
	h.sink.close()
	return nil
}

type ShutdownCallback struct {
	handler *AsyncHandler
}

func (lc *ShutdownCallback) Invoke(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		_ = lc.handler.Close()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func Init(opts Options) *ShutdownCallback {
	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}
	handler := NewAsyncHandler(opts.Dir, level, time.Duration(opts.RetentionDays)*24*time.Hour)
	slog.SetDefault(slog.New(handler))
	slog.Debug("Logger initialized")
	return &ShutdownCallback{handler: handler}
}

func Debug(msg string, v ...interface{}) {
	slog.Debug(msg, v...)
}

func DebugF(msg string, v ...interface{}) {
	slog.Debug(fmt.Sprintf(msg, v...))
}

func Info(msg string, v ...interface{}) {
	slog.Info(msg, v...)
}

func InfoF(msg string, v ...interface{}) {
	slog.Info(fmt.Sprintf(msg, v...))
}

func Warn(msg string, v ...interface{}) {
	slog.Warn(msg, v...)
}

func WarnF(msg string, v ...interface{}) {
	slog.Warn(fmt.Sprintf(msg, v...))
}

func Error(msg string, v ...interface{}) {
	slog.Error(msg, v...)
}

func ErrorF(msg string, v ...interface{}) {
	slog.Error(fmt.Sprintf(msg, v...))
}

func Fatal(msg string, v ...interface{}) {
	slog.Log(context.Background(), LevelFatal, msg, v...)
}

func FatalF(msg string, v ...interface{}) {
	slog.Log(context.Background(), LevelFatal, fmt.Sprintf(msg, v...))
}
