/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package domain

import "clipcomposer/internal/props"

// Clip element types understood by the composition engine.
const (
	ClipVideo = "video"
	ClipAudio = "audio"
	ClipImage = "image"
	ClipText  = "text"
)

// Clip is one timed element of a composition. Track numbers are layers; a
// higher track draws above a lower one.
type Clip struct {
	ID       string      `json:"id"`
	Type     string      `json:"type"`
	Track    int         `json:"track"`
	Time     float64     `json:"time"`
	Duration float64     `json:"duration,omitempty"`
	Source   string      `json:"source,omitempty"`
	Text     string      `json:"text,omitempty"`
	Props    props.Value `json:"properties,omitempty"`
}

// Composition is the source description handed to the playback engine and the
// render service.
type Composition struct {
	OutputFormat string  `json:"outputFormat,omitempty"`
	FrameRate    float64 `json:"frameRate,omitempty"`
	Width        int     `json:"width,omitempty"`
	Height       int     `json:"height,omitempty"`
	Duration     float64 `json:"duration,omitempty"`
	Clips        []Clip  `json:"elements"`
}

// Clone returns a deep copy of c.
func (c Composition) Clone() Composition {
	out := c
	out.Clips = make([]Clip, len(c.Clips))
	for i, cl := range c.Clips {
		cl.Props = cl.Props.Clone()
		out.Clips[i] = cl
	}
	return out
}

// Find returns the clip with the given id.
func (c Composition) Find(id string) (Clip, int, bool) {
	for i, cl := range c.Clips {
		if cl.ID == id {
			return cl, i, true
		}
	}
	return Clip{}, -1, false
}

// MaxTrack returns the highest track in use, 0 for an empty composition.
func (c Composition) MaxTrack() int {
	max := 0
	for _, cl := range c.Clips {
		if cl.Track > max {
			max = cl.Track
		}
	}
	return max
}

// End returns the latest clip end time, or Duration when that is larger.
func (c Composition) End() float64 {
	end := c.Duration
	for _, cl := range c.Clips {
		if e := cl.Time + cl.Duration; e > end {
			end = e
		}
	}
	return end
}
