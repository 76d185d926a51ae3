package bars

import (
	"math"
	"math/rand"
	"testing"
)

func TestTargetsStayWithinBoostedRange(t *testing.T) {
	const count = 64
	sim := NewSimulator(count, rand.New(rand.NewSource(7)))
	state := NewState(count)

	ts := 1_700_000_000_000.0
	for frame := 0; frame < 2000; frame++ {
		sim.Step(state, ts)
		ts += 16.6
		for i, bar := range state.Bars {
			if math.IsNaN(bar.Target) || math.IsNaN(bar.Current) {
				t.Fatalf("frame %d bar %d: NaN (%+v)", frame, i, bar)
			}
			if bar.Target < floor || bar.Target > ceiling*MaxEdgeBoost {
				t.Fatalf("frame %d bar %d: target %f outside [%f,%f]", frame, i, bar.Target, floor, MaxEdgeBoost)
			}
			if bar.Current < 0 || bar.Current > ceiling*MaxEdgeBoost {
				t.Fatalf("frame %d bar %d: current %f out of range", frame, i, bar.Current)
			}
		}
	}
}

func TestTargetRespectsPerBarBoost(t *testing.T) {
	const count = 32
	sim := NewSimulator(count, rand.New(rand.NewSource(3)))
	for i := 0; i < count; i++ {
		boost := EdgeBoost(i, count)
		for k := 0; k < 200; k++ {
			v := sim.Target(i, float64(k)*16)
			if v < floor*boost-1e-9 || v > ceiling*boost+1e-9 {
				t.Fatalf("bar %d: %f outside [%f,%f]", i, v, floor*boost, boost)
			}
		}
	}
}

func TestEdgeBoostShape(t *testing.T) {
	const count = 64
	if got := EdgeBoost(0, count); math.Abs(got-MaxEdgeBoost) > 1e-9 {
		t.Fatalf("edge boost at 0 = %f want %f", got, MaxEdgeBoost)
	}
	if got := EdgeBoost(count/2, count); math.Abs(got-1) > 1e-9 {
		t.Fatalf("edge boost at centre = %f want 1", got)
	}
	for i := 1; i <= count/2; i++ {
		if EdgeBoost(i, count) > EdgeBoost(i-1, count) {
			t.Fatalf("edge boost should fall towards the centre at %d", i)
		}
	}
	if got := EdgeBoost(0, 1); got < 1 || got > MaxEdgeBoost {
		t.Fatalf("single bar boost %f out of range", got)
	}
}

func TestSmoothingConvergesGeometrically(t *testing.T) {
	const target = 0.8
	start := 0.0
	current := start
	prevGap := math.Abs(current - target)
	for n := 1; n <= 300; n++ {
		current = Smooth(current, target)
		gap := math.Abs(current - target)
		want := math.Abs(start-target) * math.Pow(1-Smoothing, float64(n))
		if math.Abs(gap-want) > 1e-9 {
			t.Fatalf("frame %d: gap=%g want=%g", n, gap, want)
		}
		if gap > prevGap {
			t.Fatalf("frame %d: gap grew from %g to %g", n, prevGap, gap)
		}
		prevGap = gap
	}
}

func TestStepKeepsLength(t *testing.T) {
	sim := NewSimulator(10, rand.New(rand.NewSource(1)))
	state := NewState(10)
	for i := 0; i < 5; i++ {
		sim.Step(state, float64(i))
	}
	if state.Len() != 10 {
		t.Fatalf("len=%d want 10", state.Len())
	}
}

func TestSameSeedSameTargets(t *testing.T) {
	a := NewSimulator(16, rand.New(rand.NewSource(42)))
	b := NewSimulator(16, rand.New(rand.NewSource(42)))
	for i := 0; i < 16; i++ {
		if a.Target(i, 1000) != b.Target(i, 1000) {
			t.Fatalf("bar %d diverged", i)
		}
	}
}
