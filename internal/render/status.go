/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package render submits compositions to a remote render service and tracks
// the resulting jobs until they succeed, fail or exceed their deadline.
package render

import (
	"errors"
	"strings"
)

var (
	ErrSubmission    = errors.New("render submission failed")
	ErrTransientPoll = errors.New("render status temporarily unavailable")
	ErrProtocol      = errors.New("render protocol error")
	ErrTimedOut      = errors.New("render timed out")
	ErrJobFailed     = errors.New("render job failed")
)

// Class groups remote status labels.
type Class int

const (
	ClassUnknown Class = iota
	ClassContinuing
	ClassSucceeded
	ClassFailed
)

func (c Class) String() string {
	switch c {
	case ClassContinuing:
		return "continuing"
	case ClassSucceeded:
		return "succeeded"
	case ClassFailed:
		return "failed"
	default:
		return "unknown"
	}
}

var continuing = map[string]struct{}{
	"queued":             {},
	"planned":            {},
	"waiting":            {},
	"in-progress":        {},
	"rendering":          {},
	"transcribing":       {},
	"preparing-captions": {},
}

// Classify maps a remote status label. Labels are compared case-insensitively;
// anything not recognised is ClassUnknown.
func Classify(label string) Class {
	l := strings.ToLower(strings.TrimSpace(label))
	switch l {
	case "succeeded":
		return ClassSucceeded
	case "failed":
		return ClassFailed
	}
	if _, ok := continuing[l]; ok {
		return ClassContinuing
	}
	return ClassUnknown
}

// ContinuingLabels returns the labels that keep a poll running.
func ContinuingLabels() []string {
	return []string{"queued", "planned", "waiting", "in-progress", "rendering", "transcribing", "preparing-captions"}
}
