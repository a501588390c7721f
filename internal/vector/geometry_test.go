/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import "testing"

func TestRectContains(t *testing.T) {
	r := R(10, 20, 100, 50)
	if !r.Contains(Pt{10, 20}) || !r.Contains(Pt{110, 70}) {
		t.Fatalf("expected edge points to be contained")
	}
	if r.Contains(Pt{9, 20}) || r.Contains(Pt{10, 71}) {
		t.Fatalf("expected outside points to be rejected")
	}
}

func TestAffineBasic(t *testing.T) {
	m := Translate(10, 5).Mul(Scale(2, 3))
	p := m.Apply(Pt{1, 1})
	if p.X != 12 || p.Y != 8 { // (1*2+10, 1*3+5)
		t.Fatalf("unexpected transform result: %+v", p)
	}
}

func TestAffineInvertRoundTrip(t *testing.T) {
	m := Translate(40, -12).Mul(Scale(0.5, 0.5))
	p := Pt{X: 300, Y: 90}
	back := m.Invert().Apply(m.Apply(p))
	if FloatRound(back.X, 6) != p.X || FloatRound(back.Y, 6) != p.Y {
		t.Fatalf("round trip = %+v, want %+v", back, p)
	}
}

func TestFrameToDocument(t *testing.T) {
	m := FrameToDocument(R(20, 30, 540, 2000), 1080)
	if got := m.Apply(Pt{X: 20, Y: 30}); got != (Pt{}) {
		t.Fatalf("frame origin = %+v, want {0 0}", got)
	}
	if got := m.Apply(Pt{X: 560, Y: 80}); got != (Pt{X: 1080, Y: 100}) {
		t.Fatalf("frame right edge = %+v, want {1080 100}", got)
	}
	back := m.Invert().Apply(Pt{X: 1080, Y: 100})
	if back != (Pt{X: 560, Y: 80}) {
		t.Fatalf("inverse = %+v, want {560 80}", back)
	}
	if got := FrameToDocument(R(5, 5, 0, 0), 1080).Apply(Pt{X: 15, Y: 25}); got != (Pt{X: 10, Y: 20}) {
		t.Fatalf("degenerate frame = %+v, want {10 20}", got)
	}
}

func TestClampInFrame(t *testing.T) {
	cases := []struct {
		in   Pt
		w    float64
		want Pt
	}{
		{Pt{100, 50}, 200, Pt{100, 50}},
		{Pt{950, 50}, 200, Pt{880, 50}},
		{Pt{-20, -5}, 200, Pt{0, 0}},
		{Pt{10, 10}, 2000, Pt{0, 10}},
	}
	for _, tc := range cases {
		if got := ClampInFrame(tc.in, tc.w, 1080); got != tc.want {
			t.Fatalf("ClampInFrame(%+v, %v) = %+v, want %+v", tc.in, tc.w, got, tc.want)
		}
	}
}

func TestParseHexAndFormat(t *testing.T) {
	c, err := ParseHex("#ff8000")
	if err != nil || c != (Color{255, 128, 0, 255}) {
		t.Fatalf("ParseHex = %+v, %v", c, err)
	}
	if c.Hex() != "#ff8000" {
		t.Fatalf("Hex = %s", c.Hex())
	}
	if c, _ := ParseHex("#0f0"); c != (Color{0, 255, 0, 255}) {
		t.Fatalf("short form = %+v", c)
	}
	if _, err := ParseHex("red"); err == nil {
		t.Fatalf("expected error for named color")
	}
}
