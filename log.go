package mtproto

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/fatih/color"
)

// LogHandler receives leveled log events from the engine. Implementations
// decide how (or whether) to render them; SimpleLogHandler is the default.
type LogHandler interface {
	Log(level LogLevel, err error, format string, args []interface{})
}

type LogLevel int

const (
	LogDebug LogLevel = iota
	LogInfo
	LogWarn
	LogError
)

func (l LogLevel) String() string {
	switch l {
	case LogDebug:
		return "DEBUG"
	case LogInfo:
		return "INFO"
	case LogWarn:
		return "WARN"
	case LogError:
		return "ERROR"
	default:
		return "?????"
	}
}

// Logger is a thin leveled wrapper passed around the engine, mirroring the
// Logger{hnd LogHandler} shape.
type Logger struct {
	hnd LogHandler
}

func NewLogger(hnd LogHandler) Logger {
	if hnd == nil {
		hnd = &SimpleLogHandler{}
	}
	return Logger{hnd}
}

func (l Logger) Debug(format string, args ...interface{}) { l.hnd.Log(LogDebug, nil, format, args) }
func (l Logger) Info(format string, args ...interface{})  { l.hnd.Log(LogInfo, nil, format, args) }
func (l Logger) Warn(format string, args ...interface{})  { l.hnd.Log(LogWarn, nil, format, args) }
func (l Logger) Error(err error, format string, args ...interface{}) {
	l.hnd.Log(LogError, err, format, args)
}

// SimpleLogHandler writes colored, level-tagged lines to stderr, in the same
// spirit as fatih/color usage elsewhere in the CLI tooling this engine
// ships alongside the engine.
type SimpleLogHandler struct {
	MinLevel LogLevel
}

var (
	colDebug = color.New(color.FgHiBlack)
	colInfo  = color.New(color.FgCyan)
	colWarn  = color.New(color.FgYellow)
	colError = color.New(color.FgRed, color.Bold)
)

func (h *SimpleLogHandler) Log(level LogLevel, err error, format string, args []interface{}) {
	if level < h.MinLevel {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if err != nil {
		msg = msg + ": " + err.Error()
	}
	ts := time.Now().Format("15:04:05.000")
	line := fmt.Sprintf("%s [%s] %s", ts, level, msg)
	switch level {
	case LogDebug:
		colDebug.Fprintln(os.Stderr, line)
	case LogInfo:
		colInfo.Fprintln(os.Stderr, line)
	case LogWarn:
		colWarn.Fprintln(os.Stderr, line)
	case LogError:
		colError.Fprintln(os.Stderr, line)
	default:
		log.Println(line)
	}
}

// NoopLogHandler discards everything; useful for tests and library embedders
// that install their own handler.
type NoopLogHandler struct{}

func (NoopLogHandler) Log(LogLevel, error, string, []interface{}) {}
