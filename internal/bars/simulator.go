package bars

import (
	"math"
	"math/rand"
	"time"
)

const (
	// Smoothing is the per-frame fraction of the gap between current and
	// target that a bar closes.
	Smoothing = 0.03

	// MaxEdgeBoost is the amplification of the outermost bars.
	MaxEdgeBoost = 2.5

	floor       = 0.1
	ceiling     = 1.0
	spikeChance = 0.1
	spikeGain   = 1.5
)

// Bar is one smoothed amplitude. Current persists across frames, Target is
// recomputed every frame.
type Bar struct {
	Current float64
	Target  float64
}

// State owns every bar of a running animation. Its length never changes.
type State struct {
	Bars []Bar
}

// NewState returns count zeroed bars.
func NewState(count int) *State {
	if count < 0 {
		count = 0
	}
	return &State{Bars: make([]Bar, count)}
}

// Len returns the number of bars.
func (s *State) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// Simulator synthesises equalizer-like targets. It holds no per-bar state.
type Simulator struct {
	count int
	rng   *rand.Rand
}

// NewSimulator builds a simulator for count bars. A nil rng is replaced by a
// time-seeded source.
func NewSimulator(count int, rng *rand.Rand) *Simulator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Simulator{count: count, rng: rng}
}

// Count returns the bar count the simulator was built for.
func (s *Simulator) Count() int { return s.count }

// Step recomputes every target for time t (milliseconds) and moves each
// current value towards it.
func (s *Simulator) Step(state *State, t float64) {
	n := min(len(state.Bars), s.count)
	for i := 0; i < n; i++ {
		bar := &state.Bars[i]
		bar.Target = s.Target(i, t)
		bar.Current = Smooth(bar.Current, bar.Target)
	}
}

// Target returns the amplitude bar i should reach at time t.
func (s *Simulator) Target(i int, t float64) float64 {
	n := float64(s.count)
	normalizedPos := float64(i) / n
	boost := EdgeBoost(i, s.count)

	timeOffset := math.Sin(t*0.0005+float64(i)) * 0.01
	baseHeight := 0.15 + math.Sin(normalizedPos*math.Pi+timeOffset)*0.2

	flicker := 0.4 + baseHeight*0.1
	randomFlicker := (s.rng.Float64()*flicker - flicker*0.55) * boost
	if s.rng.Float64() < spikeChance {
		randomFlicker *= spikeGain
	}

	// the edge boost is applied after the clamp on purpose, outer bars may
	// exceed 1.0
	return clamp(baseHeight+randomFlicker, floor, ceiling) * boost
}

// EdgeBoost is 1 at the centre bar and rises linearly to MaxEdgeBoost at
// both ends.
func EdgeBoost(i, count int) float64 {
	half := float64(count) / 2
	if half == 0 {
		return 1
	}
	centerBias := 1 - math.Abs(float64(i)-half)/half
	return 1 + (1-centerBias)*1.5
}

// Smooth applies one frame of exponential smoothing.
func Smooth(current, target float64) float64 {
	return current + (target-current)*Smoothing
}

// Millis converts a frame timestamp to the millisecond clock Target expects.
func Millis(ts time.Time) float64 {
	return float64(ts.UnixNano()) / float64(time.Millisecond)
}

func clamp(v, minVal, maxVal float64) float64 {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}
