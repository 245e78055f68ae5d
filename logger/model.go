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

package logger

import (
	"io"

	"github.com/sirupsen/logrus"

	logfld "github.com/sabouaram/msgnet/logger/fields"
	loglvl "github.com/sabouaram/msgnet/logger/level"
)

func (o *lgr) SetLevel(lvl loglvl.Level) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.l.SetLevel(lvl.Logrus())
}

func (o *lgr) GetLevel() loglvl.Level {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return loglvl.ParseFromInt(int(o.l.GetLevel()))
}

func (o *lgr) SetOutput(w io.Writer) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if w != nil {
		o.l.SetOutput(w)
	}
}

func (o *lgr) SetFields(f logfld.Fields) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if f == nil {
		f = logfld.New()
	}

	o.f = f
}

func (o *lgr) GetFields() logfld.Fields {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return o.f
}

func (o *lgr) Clone() Logger {
	o.mu.RLock()
	defer o.mu.RUnlock()

	n := &lgr{
		l: o.l,
		f: o.f.Clone(),
	}

	return n
}

func (o *lgr) WithFields(extra logfld.Fields) *logrus.Entry {
	o.mu.RLock()
	defer o.mu.RUnlock()

	f := o.f.Clone()
	f.Merge(extra)

	return o.l.WithFields(f.Logrus())
}

func (o *lgr) Debug(message string, args ...interface{}) {
	o.WithFields(nil).Debugf(message, args...)
}

func (o *lgr) Info(message string, args ...interface{}) {
	o.WithFields(nil).Infof(message, args...)
}

func (o *lgr) Warning(message string, args ...interface{}) {
	o.WithFields(nil).Warnf(message, args...)
}

func (o *lgr) Error(message string, err error, args ...interface{}) {
	e := o.WithFields(nil)

	if err != nil {
		e = e.WithError(err)
	}

	e.Errorf(message, args...)
}

func (o *lgr) Fatal(message string, err error, args ...interface{}) {
	e := o.WithFields(nil)

	if err != nil {
		e = e.WithError(err)
	}

	e.Fatalf(message, args...)
}

func (o *lgr) CheckError(lvlKO, lvlOK loglvl.Level, message string, err error) bool {
	if err != nil {
		o.logAt(lvlKO, message, err)
		return false
	}

	if lvlOK != loglvl.NilLevel {
		o.logAt(lvlOK, message, nil)
	}

	return true
}

func (o *lgr) logAt(lvl loglvl.Level, message string, err error) {
	e := o.WithFields(nil)

	if err != nil {
		e = e.WithError(err)
	}

	e.Log(lvl.Logrus(), message)
}
