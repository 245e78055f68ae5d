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

// Package fields provides a thread-safe collection of structured logging
// key/value pairs that can be attached to log entries and converted to
// logrus.Fields for emission.
package fields

import (
	"github.com/sirupsen/logrus"
)

// Fields is a thread-safe, chainable collection of structured log attributes.
// It is used to carry per-connection or per-message context (host id,
// remote address, sequence number, ...) through the engine without forcing
// every call site to build a logrus.Fields map by hand.
type Fields interface {
	// Clone returns an independent copy of the receiver.
	Clone() Fields

	// Clean removes every stored key/value pair.
	Clean()

	// Add stores val under key and returns the receiver for chaining.
	Add(key string, val interface{}) Fields

	// Delete removes key, if present, and returns the receiver for chaining.
	Delete(key string) Fields

	// Merge copies every pair of f into the receiver, overwriting on conflict.
	Merge(f Fields) Fields

	// Walk calls fct for every stored pair until fct returns false or the
	// set is exhausted. Iteration order is not guaranteed.
	Walk(fct func(key string, val interface{}) bool) Fields

	// Get retrieves the value stored under key.
	Get(key string) (val interface{}, ok bool)

	// Store is Add without the chaining return value.
	Store(key string, val interface{})

	// LoadOrStore returns the existing value for key, storing val if absent.
	LoadOrStore(key string, val interface{}) (interface{}, bool)

	// LoadAndDelete removes key and returns the value that was stored, if any.
	LoadAndDelete(key string) (interface{}, bool)

	// Logrus renders the receiver as a logrus.Fields map suitable for
	// logrus.WithFields.
	Logrus() logrus.Fields
}

// New returns an empty, ready to use Fields set.
func New() Fields {
	return newFields()
}
