/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package props

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
)

// MaxDepth bounds the nesting of loaded trees.
const MaxDepth = 64

var (
	ErrTooDeep     = errors.New("property tree too deep")
	ErrCycle       = errors.New("property tree contains a cycle")
	ErrUnsupported = errors.New("unsupported property value")
)

// Parse decodes JSON text into a validated tree.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Value{}, fmt.Errorf("decode properties: %w", err)
	}
	if dec.More() {
		return Value{}, errors.New("decode properties: trailing data")
	}
	return FromAny(raw)
}

// FromAny converts decoded or hand-built data (maps, slices, scalars) into a
// Value. Back-references are rejected with ErrCycle and nesting beyond
// MaxDepth with ErrTooDeep, so every tree that enters the editor is finite.
func FromAny(x any) (Value, error) {
	c := converter{onPath: map[uintptr]bool{}}
	return c.convert(reflect.ValueOf(x), 0, nil)
}

type converter struct {
	onPath map[uintptr]bool
}

func (c *converter) convert(rv reflect.Value, depth int, at Path) (Value, error) {
	if depth > MaxDepth {
		return Value{}, fmt.Errorf("%w at %q", ErrTooDeep, at.String())
	}
	for rv.IsValid() && (rv.Kind() == reflect.Interface || rv.Kind() == reflect.Pointer) {
		if rv.IsNil() {
			return Null(), nil
		}
		if rv.Kind() == reflect.Pointer {
			if v, ok := rv.Interface().(*Value); ok {
				return *v, nil
			}
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return Null(), nil
	}
	if rv.Type() == reflect.TypeOf(Value{}) {
		return rv.Interface().(Value), nil
	}
	if rv.Type() == reflect.TypeOf(json.Number("")) {
		f, err := rv.Interface().(json.Number).Float64()
		if err != nil {
			return Value{}, fmt.Errorf("%w: number %q at %q", ErrUnsupported, rv.String(), at.String())
		}
		return Number(f), nil
	}
	switch rv.Kind() {
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Number(float64(rv.Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Number(float64(rv.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return Number(rv.Float()), nil
	case reflect.String:
		return Text(rv.String()), nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return Value{}, fmt.Errorf("%w: map key %s at %q", ErrUnsupported, rv.Type().Key(), at.String())
		}
		if rv.IsNil() {
			return Null(), nil
		}
		ptr := rv.Pointer()
		if c.onPath[ptr] {
			return Value{}, fmt.Errorf("%w at %q", ErrCycle, at.String())
		}
		c.onPath[ptr] = true
		defer delete(c.onPath, ptr)
		m := make(map[string]Value, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key := iter.Key().String()
			child, err := c.convert(iter.Value(), depth+1, at.Child(key))
			if err != nil {
				return Value{}, err
			}
			m[key] = child
		}
		return Value{kind: KindMap, m: m}, nil
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice {
			if rv.IsNil() {
				return Null(), nil
			}
			if rv.Len() > 0 {
				ptr := rv.Pointer()
				if c.onPath[ptr] {
					return Value{}, fmt.Errorf("%w at %q", ErrCycle, at.String())
				}
				c.onPath[ptr] = true
				defer delete(c.onPath, ptr)
			}
		}
		l := make([]Value, rv.Len())
		for i := range l {
			child, err := c.convert(rv.Index(i), depth+1, at.Child(fmt.Sprintf("[%d]", i)))
			if err != nil {
				return Value{}, err
			}
			l[i] = child
		}
		return Value{kind: KindList, l: l}, nil
	}
	return Value{}, fmt.Errorf("%w: %s at %q", ErrUnsupported, rv.Type(), at.String())
}

// ToAny converts v into plain Go data suitable for encoding/json.
func (v Value) ToAny() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindText:
		return v.s
	case KindMap:
		m := make(map[string]any, len(v.m))
		for k, c := range v.m {
			m[k] = c.ToAny()
		}
		return m
	case KindList:
		l := make([]any, len(v.l))
		for i, c := range v.l {
			l[i] = c.ToAny()
		}
		return l
	}
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) { return json.Marshal(v.ToAny()) }

func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// String renders v as compact JSON.
func (v Value) String() string {
	b, err := v.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<%s>", v.kind)
	}
	return string(b)
}

// Indent renders v as indented JSON for structured-text editing.
func (v Value) Indent() string {
	b, err := json.MarshalIndent(v.ToAny(), "", "  ")
	if err != nil {
		return v.String()
	}
	return string(b)
}
