/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import "math"

// Orientation of a guide line.
type Orientation string

const (
	Vertical   Orientation = "vertical"
	Horizontal Orientation = "horizontal"
)

// Feature names what aligned.
type Feature string

const (
	FeatureEdge   Feature = "edge"
	FeatureCenter Feature = "center"
)

// DefaultSnapThreshold applies when SnapOptions.Threshold is not positive.
const DefaultSnapThreshold = 6

// SnapOptions selects the candidate features and the snap distance.
type SnapOptions struct {
	Threshold     float64
	SnapToEdges   bool
	SnapToCenters bool
}

// Anchor is a fixed rect the moving one may align to: the frame or a sibling.
// A higher Weight wins a closer race; zero counts as 1.
type Anchor struct {
	Rect   Rect
	Weight float64
}

// GuideLine is the visual feedback for one snapped axis. Position is the x of
// a vertical guide or the y of a horizontal one, rounded to 3 places.
type GuideLine struct {
	Orientation Orientation
	Kind        Feature
	Position    float64
	From        Pt
	To          Pt
}

// span is one axis of a rect: low edge, center, high edge.
type span struct{ lo, mid, hi float64 }

func xSpan(r Rect) span { return span{r.X, r.X + r.W/2, r.X + r.W} }
func ySpan(r Rect) span { return span{r.Y, r.Y + r.H/2, r.Y + r.H} }

// pairing is a moving feature matched against an anchor feature.
type pairing struct {
	moving, anchor func(span) float64
	feature        Feature
}

var (
	spanLo  = func(s span) float64 { return s.lo }
	spanMid = func(s span) float64 { return s.mid }
	spanHi  = func(s span) float64 { return s.hi }

	edgePairings = []pairing{
		{spanLo, spanLo, FeatureEdge},
		{spanHi, spanHi, FeatureEdge},
		{spanLo, spanHi, FeatureEdge},
		{spanHi, spanLo, FeatureEdge},
	}
	centerPairings = []pairing{{spanMid, spanMid, FeatureCenter}}
)

// axisBest tracks the winning candidate on one axis.
type axisBest struct {
	found bool
	score float64
	delta float64
	at    float64
	feat  Feature
	other Rect
}

func (b *axisBest) consider(delta, weight, threshold, at float64, feat Feature, other Rect) {
	dist := math.Abs(delta)
	if dist > threshold {
		return
	}
	score := dist / math.Max(1, weight)
	if b.found && score >= b.score {
		return
	}
	*b = axisBest{found: true, score: score, delta: delta, at: at, feat: feat, other: other}
}

// ComputeSmartGuides snaps moving to the nearest anchor feature within the
// threshold, independently per axis, and returns a guide for each snapped axis.
func ComputeSmartGuides(moving Rect, anchors []Anchor, opts SnapOptions) (Rect, []GuideLine) {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultSnapThreshold
	}
	var pairs []pairing
	if opts.SnapToEdges {
		pairs = append(pairs, edgePairings...)
	}
	if opts.SnapToCenters {
		pairs = append(pairs, centerPairings...)
	}

	mx, my := xSpan(moving), ySpan(moving)
	var bx, by axisBest
	for _, a := range anchors {
		ax, ay := xSpan(a.Rect), ySpan(a.Rect)
		for _, p := range pairs {
			bx.consider(p.moving(mx)-p.anchor(ax), a.Weight, opts.Threshold, p.anchor(ax), p.feature, a.Rect)
			by.consider(p.moving(my)-p.anchor(ay), a.Weight, opts.Threshold, p.anchor(ay), p.feature, a.Rect)
		}
	}

	snapped := moving
	var guides []GuideLine
	if bx.found {
		snapped.X = FloatRound(moving.X-bx.delta, 3)
		x := FloatRound(bx.at, 3)
		guides = append(guides, GuideLine{
			Orientation: Vertical,
			Kind:        bx.feat,
			Position:    x,
			From:        Pt{x, math.Min(moving.Y, bx.other.Y)},
			To:          Pt{x, math.Max(moving.Y+moving.H, bx.other.Y+bx.other.H)},
		})
	}
	if by.found {
		snapped.Y = FloatRound(moving.Y-by.delta, 3)
		y := FloatRound(by.at, 3)
		guides = append(guides, GuideLine{
			Orientation: Horizontal,
			Kind:        by.feat,
			Position:    y,
			From:        Pt{math.Min(moving.X, by.other.X), y},
			To:          Pt{math.Max(moving.X+moving.W, by.other.X+by.other.W), y},
		})
	}
	return snapped, guides
}
