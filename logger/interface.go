/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package logger wraps logrus with the level and fields conventions used
// across the engine: one Logger per host, fields carrying connection/message
// identifiers, and a level filter independent from logrus' own.
package logger

import (
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	logfld "github.com/sabouaram/msgnet/logger/fields"
	loglvl "github.com/sabouaram/msgnet/logger/level"
)

// FuncLog returns a Logger instance; used for lazy injection into components
// built before a logger is available (e.g. tunables defaults).
type FuncLog func() Logger

// Logger is the structured logging facade used throughout the engine.
type Logger interface {
	// SetLevel changes the minimal level of emitted log entries.
	SetLevel(lvl loglvl.Level)

	// GetLevel returns the minimal level of emitted log entries.
	GetLevel() loglvl.Level

	// SetOutput changes the destination writer for log entries.
	SetOutput(w io.Writer)

	// SetFields replaces the default fields attached to every entry.
	SetFields(f logfld.Fields)

	// GetFields returns the default fields attached to every entry.
	GetFields() logfld.Fields

	// Clone returns a new Logger sharing the same level and a copy of the
	// default fields, safe to mutate independently.
	Clone() Logger

	// WithFields returns a disposable *logrus.Entry carrying the default
	// fields merged with extra, for call sites that need one-off values.
	WithFields(extra logfld.Fields) *logrus.Entry

	Debug(message string, args ...interface{})
	Info(message string, args ...interface{})
	Warning(message string, args ...interface{})
	Error(message string, err error, args ...interface{})
	Fatal(message string, err error, args ...interface{})

	// CheckError logs err at lvlKO if non-nil, or at lvlOK (if not NilLevel)
	// otherwise, and reports whether err was nil.
	CheckError(lvlKO, lvlOK loglvl.Level, message string, err error) bool
}

// New returns a Logger writing to out at InfoLevel with no default fields.
func New(out io.Writer) Logger {
	l := &lgr{
		l: logrus.New(),
		f: logfld.New(),
	}

	l.l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if out != nil {
		l.l.SetOutput(out)
	}

	l.SetLevel(loglvl.InfoLevel)

	return l
}

type lgr struct {
	mu sync.RWMutex
	l  *logrus.Logger
	f  logfld.Fields
}
