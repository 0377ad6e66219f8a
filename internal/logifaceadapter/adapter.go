// Package logifaceadapter wires asyncrt's minimal Logger seam to a real
// structured-logging backend, the same pairing the teacher package tests
// its own Logger interface against: github.com/joeycumines/logiface for the
// builder API, github.com/joeycumines/stumpy as the concrete JSON event
// implementation.
//
// The demo binaries (cmd/echosrv, cmd/echoclient, cmd/minikv) are the only
// callers; asyncrt's core never imports this package, preserving the
// dependency direction described in SPEC_FULL.md (the runtime logs through
// an interface it owns, backends plug in from outside).
package logifaceadapter

import (
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"

	"github.com/finshing/asyncrt"
)

// Logger adapts a *logiface.Logger[*stumpy.Event] to asyncrt.Logger.
type Logger struct {
	l        *logiface.Logger[*stumpy.Event]
	minLevel asyncrt.Level
}

// New builds a Logger writing line-delimited JSON via stumpy at or above
// minLevel.
func New(minLevel asyncrt.Level) *Logger {
	return &Logger{
		minLevel: minLevel,
		l: stumpy.L.New(
			stumpy.L.WithStumpy(),
			logiface.WithLevel[*stumpy.Event](toLogifaceLevel(minLevel)),
		),
	}
}

func toLogifaceLevel(l asyncrt.Level) logiface.Level {
	switch l {
	case asyncrt.LevelDebug:
		return logiface.LevelDebug
	case asyncrt.LevelInfo:
		return logiface.LevelInformational
	case asyncrt.LevelWarn:
		return logiface.LevelWarning
	case asyncrt.LevelError:
		return logiface.LevelError
	default:
		return logiface.LevelInformational
	}
}

// IsEnabled reports whether level would actually produce output, so
// Executor.log can skip building an Entry for suppressed levels.
func (a *Logger) IsEnabled(level asyncrt.Level) bool {
	return level >= a.minLevel
}

// Log renders an asyncrt.Entry through the underlying logiface builder.
func (a *Logger) Log(e asyncrt.Entry) {
	b := a.l.Build(toLogifaceLevel(e.Level))
	if b == nil {
		return
	}
	b = b.Str("category", e.Category)
	if e.TaskID != 0 {
		b = b.Int64("task", e.TaskID)
	}
	if e.TimerID != 0 {
		b = b.Int64("timer", e.TimerID)
	}
	for k, v := range e.Fields {
		b = b.Any(k, v)
	}
	if e.Err != nil {
		b = b.Err(e.Err)
	}
	b.Log(e.Message)
}
