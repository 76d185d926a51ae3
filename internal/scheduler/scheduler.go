package scheduler

import (
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/guidoenr/retrobars/internal/bars"
	"github.com/guidoenr/retrobars/internal/glitch"
	"github.com/guidoenr/retrobars/internal/params"
	"github.com/guidoenr/retrobars/internal/render"
	"go.uber.org/zap"
)

// State is the scheduler lifecycle state.
type State int32

const (
	Stopped State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "stopped"
}

// FrameInfo describes a frame handed to the presenter.
type FrameInfo struct {
	Seq      uint64
	Time     time.Time
	Excited  bool
	Palette  string
	Glitched bool
}

// PresentFunc puts a finished surface on screen. A returned error stops the
// scheduler.
type PresentFunc func(surface *render.Surface, info FrameInfo) error

// Config wires a Scheduler to its host and collaborators.
type Config struct {
	Visual  params.VisualConfig
	Host    Host
	Signal  *Signal
	Present PresentFunc
	Rand    *rand.Rand
	Log     *zap.Logger

	// OnError is told about presenter failures after the scheduler stopped.
	OnError func(error)

	// Trace marks the end of each pipeline section when set.
	Trace func(section string)
}

// Stats are cumulative counters since construction.
type Stats struct {
	Frames   uint64 `json:"frames"`
	Skipped  uint64 `json:"skipped"`
	Glitches uint64 `json:"glitches"`
}

// Scheduler drives the simulate, composite, glitch, present pipeline once
// per host frame.
type Scheduler struct {
	cfg        Config
	log        *zap.Logger
	sim        *bars.Simulator
	compositor *render.Compositor
	glitch     *glitch.Effect
	surface    *render.Surface

	mu         sync.Mutex
	alive      atomic.Bool
	state      *bars.State
	frameID    FrameID
	listenerID ListenerID

	frames   atomic.Uint64
	skipped  atomic.Uint64
	glitches atomic.Uint64
}

// New validates the configuration. Nothing is scheduled until Start.
func New(cfg Config) (*Scheduler, error) {
	if cfg.Host == nil {
		return nil, fmt.Errorf("scheduler: host is required")
	}
	compositor, err := render.NewCompositor(cfg.Visual)
	if err != nil {
		return nil, err
	}
	if cfg.Signal == nil {
		cfg.Signal = &Signal{}
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Scheduler{
		cfg:        cfg,
		log:        cfg.Log,
		sim:        bars.NewSimulator(cfg.Visual.BarCount, cfg.Rand),
		compositor: compositor,
		glitch:     glitch.New(cfg.Visual.GlitchProbability, cfg.Visual.GlitchAmount, cfg.Rand),
		surface:    render.NewSurface(0, 0),
	}, nil
}

// Start moves Stopped -> Running: fresh bar state, a resize listener, the
// current host size and the first frame request. Starting twice is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.alive.Load() {
		return
	}
	s.state = bars.NewState(s.cfg.Visual.BarCount)
	s.listenerID = s.cfg.Host.AddResizeListener(s.resize)
	s.surface.Resize(s.cfg.Host.Size())
	s.alive.Store(true)
	s.frameID = s.cfg.Host.RequestFrame(s.frame)
	s.log.Debug("animation started",
		zap.Int("bars", s.cfg.Visual.BarCount),
		zap.Int("width", s.surface.Width()),
		zap.Int("height", s.surface.Height()))
}

// Stop moves Running -> Stopped. The pending frame is cancelled and the
// resize listener removed; callbacks already handed out do nothing.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.alive.Swap(false) {
		return
	}
	s.cfg.Host.CancelFrame(s.frameID)
	s.cfg.Host.RemoveResizeListener(s.listenerID)
	s.log.Debug("animation stopped", zap.Uint64("frames", s.frames.Load()))
}

// State reports the lifecycle state.
func (s *Scheduler) State() State {
	if s.alive.Load() {
		return Running
	}
	return Stopped
}

// Surface returns the owned pixel surface. Only read it from the host
// goroutine or after Stop.
func (s *Scheduler) Surface() *render.Surface { return s.surface }

// Signal returns the excitement flag sampled every frame.
func (s *Scheduler) Signal() *Signal { return s.cfg.Signal }

// Visual returns the configuration the scheduler was built with.
func (s *Scheduler) Visual() params.VisualConfig { return s.cfg.Visual }

func (s *Scheduler) Stats() Stats {
	return Stats{
		Frames:   s.frames.Load(),
		Skipped:  s.skipped.Load(),
		Glitches: s.glitches.Load(),
	}
}

func (s *Scheduler) resize(width, height int) {
	if !s.alive.Load() {
		return
	}
	s.surface.Resize(width, height)
}

func (s *Scheduler) frame(ts time.Time) {
	if !s.alive.Load() {
		return
	}

	if s.surface.Ready() {
		if err := s.draw(ts); err != nil {
			s.Stop()
			s.log.Warn("presenter failed, animation stopped", zap.Error(err))
			if s.cfg.OnError != nil {
				s.cfg.OnError(err)
			}
			return
		}
	} else {
		s.skipped.Add(1)
	}

	s.mu.Lock()
	if s.alive.Load() {
		s.frameID = s.cfg.Host.RequestFrame(s.frame)
	}
	s.mu.Unlock()
}

func (s *Scheduler) draw(ts time.Time) error {
	s.trace("begin")
	excited := s.cfg.Signal.Excited()
	palette := render.Select(excited)

	s.sim.Step(s.state, bars.Millis(ts))
	s.trace("simulate")

	s.compositor.Render(s.surface, s.state, palette)
	s.trace("composite")

	glitched := s.glitch.MaybeCorrupt(s.surface.Image())
	if glitched {
		s.glitches.Add(1)
	}
	s.trace("glitch")

	seq := s.frames.Add(1)
	if s.cfg.Present == nil {
		return nil
	}
	err := s.cfg.Present(s.surface, FrameInfo{
		Seq:      seq,
		Time:     ts,
		Excited:  excited,
		Palette:  palette.Name,
		Glitched: glitched,
	})
	s.trace("present")
	return err
}

func (s *Scheduler) trace(section string) {
	if s.cfg.Trace != nil {
		s.cfg.Trace(section)
	}
}
