/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package props implements the element property tree: an immutable tagged
// value (null, bool, number, text, map, list) addressed by key paths.
//
// Values never change after construction. Set and Delete return a new tree
// that shares every subtree not on the edited path, so snapshots holding an
// older tree are unaffected by later edits.
package props

import (
	"sort"
	"strings"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindText
	KindMap
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindMap:
		return "map"
	case KindList:
		return "list"
	default:
		return "unknown"
	}
}

// Value is a node of the property tree. The zero Value is Null.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	m    map[string]Value
	l    []Value
}

func Null() Value             { return Value{} }
func Bool(b bool) Value       { return Value{kind: KindBool, b: b} }
func Number(n float64) Value  { return Value{kind: KindNumber, n: n} }
func Text(s string) Value     { return Value{kind: KindText, s: s} }
func EmptyMap() Value         { return Value{kind: KindMap, m: map[string]Value{}} }
func List(items ...Value) Value {
	return Value{kind: KindList, l: append([]Value(nil), items...)}
}

// Map builds a map value from entries. The entries map is copied.
func Map(entries map[string]Value) Value {
	m := make(map[string]Value, len(entries))
	for k, v := range entries {
		m[k] = v
	}
	return Value{kind: KindMap, m: m}
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsBool() (bool, bool)      { return v.b, v.kind == KindBool }
func (v Value) AsNumber() (float64, bool) { return v.n, v.kind == KindNumber }
func (v Value) AsText() (string, bool)    { return v.s, v.kind == KindText }

// Len returns the number of entries of a map or items of a list, 0 otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindMap:
		return len(v.m)
	case KindList:
		return len(v.l)
	}
	return 0
}

// Keys returns the sorted keys of a map value.
func (v Value) Keys() []string {
	if v.kind != KindMap {
		return nil
	}
	keys := make([]string, 0, len(v.m))
	for k := range v.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Field returns the entry stored under key in a map value.
func (v Value) Field(key string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	f, ok := v.m[key]
	return f, ok
}

// Items returns a copy of the items of a list value.
func (v Value) Items() []Value {
	if v.kind != KindList {
		return nil
	}
	return append([]Value(nil), v.l...)
}

// Get walks path from v. The empty path returns v itself.
func (v Value) Get(p Path) (Value, bool) {
	cur := v
	for _, key := range p {
		next, ok := cur.Field(key)
		if !ok {
			return Value{}, false
		}
		cur = next
	}
	return cur, true
}

// Set returns a tree where path holds nv. Missing intermediate levels are
// created as maps; a non-map value in the way is replaced by a map.
// Siblings of every node on the path are carried over untouched.
func (v Value) Set(p Path, nv Value) Value {
	if len(p) == 0 {
		return nv
	}
	m := make(map[string]Value, v.Len()+1)
	if v.kind == KindMap {
		for k, child := range v.m {
			m[k] = child
		}
	}
	m[p[0]] = m[p[0]].Set(p[1:], nv)
	return Value{kind: KindMap, m: m}
}

// Delete returns a tree without the entry at path. Missing paths return v unchanged.
func (v Value) Delete(p Path) Value {
	if len(p) == 0 || v.kind != KindMap {
		return v
	}
	child, ok := v.m[p[0]]
	if !ok {
		return v
	}
	m := make(map[string]Value, len(v.m))
	for k, c := range v.m {
		m[k] = c
	}
	if len(p) == 1 {
		delete(m, p[0])
	} else {
		m[p[0]] = child.Delete(p[1:])
	}
	return Value{kind: KindMap, m: m}
}

// Clone returns a deep copy that shares no map or slice with v.
func (v Value) Clone() Value {
	switch v.kind {
	case KindMap:
		m := make(map[string]Value, len(v.m))
		for k, c := range v.m {
			m[k] = c.Clone()
		}
		return Value{kind: KindMap, m: m}
	case KindList:
		l := make([]Value, len(v.l))
		for i, c := range v.l {
			l[i] = c.Clone()
		}
		return Value{kind: KindList, l: l}
	}
	return v
}

// Equal reports deep equality.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return v.n == o.n
	case KindText:
		return v.s == o.s
	case KindMap:
		if len(v.m) != len(o.m) {
			return false
		}
		for k, c := range v.m {
			oc, ok := o.m[k]
			if !ok || !c.Equal(oc) {
				return false
			}
		}
		return true
	case KindList:
		if len(v.l) != len(o.l) {
			return false
		}
		for i := range v.l {
			if !v.l[i].Equal(o.l[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// Path addresses a node by map keys from the root.
type Path []string

// ParsePath splits a dotted path ("style.font.size").
func ParsePath(s string) Path {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return Path(strings.Split(s, "."))
}

// Child returns a new path with key appended. The receiver is never aliased.
func (p Path) Child(key string) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = key
	return out
}

// Last returns the final key or "" for the root path.
func (p Path) Last() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

func (p Path) String() string { return strings.Join(p, ".") }
