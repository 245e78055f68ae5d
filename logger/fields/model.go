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

package fields

import (
	"github.com/sirupsen/logrus"

	libatm "github.com/sabouaram/msgnet/atomic"
)

type fldModel struct {
	v libatm.MapTyped[string, interface{}]
}

func newFields() *fldModel {
	return &fldModel{
		v: libatm.NewMapTyped[string, interface{}](),
	}
}

func (o *fldModel) Clone() Fields {
	n := newFields()
	o.Walk(func(key string, val interface{}) bool {
		n.Store(key, val)
		return true
	})
	return n
}

func (o *fldModel) Clean() {
	o.v.Range(func(key string, val interface{}) bool {
		o.v.Delete(key)
		return true
	})
}

func (o *fldModel) Add(key string, val interface{}) Fields {
	o.v.Store(key, val)
	return o
}

func (o *fldModel) Delete(key string) Fields {
	o.v.Delete(key)
	return o
}

func (o *fldModel) Merge(f Fields) Fields {
	if f == nil {
		return o
	}

	f.Walk(func(key string, val interface{}) bool {
		o.v.Store(key, val)
		return true
	})

	return o
}

func (o *fldModel) Walk(fct func(key string, val interface{}) bool) Fields {
	if fct == nil {
		return o
	}

	o.v.Range(func(key string, val interface{}) bool {
		return fct(key, val)
	})

	return o
}

func (o *fldModel) Get(key string) (interface{}, bool) {
	return o.v.Load(key)
}

func (o *fldModel) Store(key string, val interface{}) {
	o.v.Store(key, val)
}

func (o *fldModel) LoadOrStore(key string, val interface{}) (interface{}, bool) {
	return o.v.LoadOrStore(key, val)
}

func (o *fldModel) LoadAndDelete(key string) (interface{}, bool) {
	return o.v.LoadAndDelete(key)
}

func (o *fldModel) Logrus() logrus.Fields {
	f := make(logrus.Fields)

	o.Walk(func(key string, val interface{}) bool {
		f[key] = val
		return true
	})

	return f
}
