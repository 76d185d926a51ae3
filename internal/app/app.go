package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"math/rand"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/guidoenr/retrobars/internal/params"
	"github.com/guidoenr/retrobars/internal/render"
	"github.com/guidoenr/retrobars/internal/scheduler"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

// Mode selects where frames are presented.
type Mode string

const (
	ModeTerminal Mode = "terminal"
	ModeWindow   Mode = "window"
	ModeHeadless Mode = "headless"
)

// ErrWindowClosed is returned by the window presenter when the user closes
// the window; Run treats it as a normal exit.
var ErrWindowClosed = errors.New("window closed")

const snapshotInterval = 100 * time.Millisecond

// Config configures the application runtime.
type Config struct {
	Visual     params.VisualConfig
	ConfigPath string
	Watch      bool
	Mode       Mode
	// Width and Height are terminal cells in terminal mode and device
	// pixels otherwise.
	Width         int
	Height        int
	Scale         int
	TargetFPS     float64
	ShowStatusBar bool
	UseANSI       bool
	Snapshots     bool
	ProfilePath   string
	Seed          int64
	Log           *zap.Logger
}

// App ties the scheduler to a presenter, input and config reloads.
type App struct {
	cfg      Config
	log      *zap.Logger
	host     *scheduler.LoopHost
	signal   *scheduler.Signal
	rng      *rand.Rand
	profiler *profiler

	mu    sync.RWMutex
	sched *scheduler.Scheduler

	// terminal presenter state, touched only on the loop goroutine
	out          *bufio.Writer
	cells        cellFrame
	cols         int
	rows         int
	renderRows   int
	lastFrame    time.Time
	window       *window
	failErr      error
	fpsBits      atomic.Uint64
	inputEvents  chan inputEvent
	cancel       context.CancelFunc
	snapMu       sync.Mutex
	snapshot     *image.RGBA
	lastSnapshot time.Time
}

// New validates cfg and builds the first scheduler. Nothing runs until Run.
func New(cfg Config) (*App, error) {
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	if cfg.TargetFPS <= 0 {
		cfg.TargetFPS = 60
	}
	if cfg.Scale <= 0 {
		cfg.Scale = 4
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeTerminal
	}
	if err := cfg.Visual.Validate(); err != nil {
		return nil, err
	}

	a := &App{
		cfg:    cfg,
		log:    cfg.Log,
		signal: &scheduler.Signal{},
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		out:    bufio.NewWriterSize(os.Stdout, 1<<16),
		cells:  cellFrame{depth: detectDepth(cfg.UseANSI)},
	}
	if cfg.Seed == 0 {
		a.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	var width, height int
	switch cfg.Mode {
	case ModeTerminal:
		a.cols = positiveOr(cfg.Width, 80)
		a.rows = positiveOr(cfg.Height, 24)
		a.renderRows = renderRows(a.rows, cfg.ShowStatusBar)
		width, height = a.cols*cfg.Scale, a.renderRows*2*cfg.Scale
	case ModeWindow, ModeHeadless:
		width = positiveOr(cfg.Width, 960)
		height = positiveOr(cfg.Height, 540)
	default:
		return nil, fmt.Errorf("unknown mode %q", cfg.Mode)
	}
	a.host = scheduler.NewLoopHost(cfg.TargetFPS, width, height)
	a.profiler = newProfiler(cfg.ProfilePath, a.log)

	sched, err := a.newScheduler(cfg.Visual)
	if err != nil {
		return nil, err
	}
	a.sched = sched
	return a, nil
}

// Run presents frames until ctx is cancelled, the user quits, or the
// presenter fails.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.cancel = cancel

	switch a.cfg.Mode {
	case ModeTerminal:
		enterAltScreen()
		clearScreen()
		hideCursor()
		defer func() {
			showCursor()
			exitAltScreen()
		}()
		a.ensureDimensions()
		a.startInputListener(ctx)
	case ModeWindow:
		w, h := a.host.Size()
		win, err := openWindow(w, h, a.host, a.signal)
		if err != nil {
			return fmt.Errorf("open window: %w", err)
		}
		a.window = win
		defer func() {
			if err := win.Close(); err != nil {
				a.log.Warn("close window", zap.Error(err))
			}
		}()
	}

	g, gctx := errgroup.WithContext(ctx)
	if a.inputEvents != nil {
		events := a.inputEvents
		g.Go(func() error {
			a.handleInput(gctx, events)
			return nil
		})
	}
	if a.cfg.Watch && a.cfg.ConfigPath != "" {
		watcher, err := params.NewWatcher(a.cfg.ConfigPath, a.log)
		if err != nil {
			a.log.Warn("config watch disabled", zap.Error(err))
		} else {
			g.Go(func() error {
				return watcher.Run(gctx, func(cfg params.VisualConfig) {
					a.host.Post(func() { a.reload(cfg) })
				})
			})
		}
	}

	a.current().Start()
	w, h := a.host.Size()
	a.log.Info("animation running",
		zap.String("mode", string(a.cfg.Mode)),
		zap.Int("width", w),
		zap.Int("height", h),
		zap.Float64("fps", a.cfg.TargetFPS))

	runErr := a.host.Run(ctx)
	a.current().Stop()
	cancel()
	if err := g.Wait(); err != nil {
		a.log.Warn("background task failed", zap.Error(err))
	}

	if a.cfg.Mode == ModeTerminal {
		moveCursorHome()
	}
	if a.failErr != nil {
		if errors.Is(a.failErr, ErrWindowClosed) {
			return nil
		}
		return a.failErr
	}
	if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
		return nil
	}
	return runErr
}

// Close releases held resources.
func (a *App) Close() error {
	return a.profiler.Close()
}

// Signal returns the excitement flag shared by every scheduler generation.
func (a *App) Signal() *scheduler.Signal { return a.signal }

func (a *App) Visual() params.VisualConfig { return a.current().Visual() }

func (a *App) Stats() scheduler.Stats { return a.current().Stats() }

func (a *App) State() scheduler.State { return a.current().State() }

func (a *App) Size() (int, int) { return a.host.Size() }

// FPS returns the measured presentation rate.
func (a *App) FPS() float64 { return math.Float64frombits(a.fpsBits.Load()) }

// Snapshot returns a copy of a recent frame, or nil before the first one.
func (a *App) Snapshot() image.Image {
	a.snapMu.Lock()
	defer a.snapMu.Unlock()
	if a.snapshot == nil {
		return nil
	}
	return a.snapshot
}

// Restart discards the bar state by stopping and starting the scheduler on
// the loop goroutine.
func (a *App) Restart() {
	a.host.Post(func() {
		s := a.current()
		s.Stop()
		s.Start()
		a.log.Info("animation restarted")
	})
}

func (a *App) current() *scheduler.Scheduler {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.sched
}

func (a *App) newScheduler(visual params.VisualConfig) (*scheduler.Scheduler, error) {
	var trace func(string)
	if a.profiler != nil {
		trace = a.profiler.trace
	}
	return scheduler.New(scheduler.Config{
		Visual:  visual,
		Host:    a.host,
		Signal:  a.signal,
		Present: a.present,
		OnError: a.fail,
		Trace:   trace,
		Rand:    a.rng,
		Log:     a.log.Named("scheduler"),
	})
}

// reload swaps in a scheduler built from cfg. It runs on the loop goroutine.
func (a *App) reload(cfg params.VisualConfig) {
	next, err := a.newScheduler(cfg)
	if err != nil {
		a.log.Warn("reload rejected", zap.Error(err))
		return
	}
	a.mu.Lock()
	prev := a.sched
	a.sched = next
	a.mu.Unlock()

	prev.Stop()
	next.Start()
	a.log.Info("visual config applied", zap.Int("bars", cfg.BarCount))
}

func (a *App) fail(err error) {
	a.failErr = err
	if a.cancel != nil {
		a.cancel()
	}
}

func (a *App) handleInput(ctx context.Context, events <-chan inputEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			switch evt {
			case inputEventToggle:
				a.signal.Toggle()
			case inputEventExcite:
				a.signal.Set(true)
			case inputEventCalm:
				a.signal.Set(false)
			case inputEventRestart:
				a.Restart()
			case inputEventQuit:
				a.cancel()
				return
			}
		}
	}
}

func (a *App) present(surface *render.Surface, info scheduler.FrameInfo) error {
	a.trackFPS(info.Time)
	if a.cfg.Snapshots {
		a.storeSnapshot(surface.Image(), info.Time)
	}

	switch a.cfg.Mode {
	case ModeTerminal:
		if err := a.presentTerminal(surface, info); err != nil {
			return err
		}
		a.ensureDimensions()
	case ModeWindow:
		return a.window.present(surface, info)
	default:
		if info.Seq%600 == 0 {
			a.log.Debug("headless frame", zap.Uint64("seq", info.Seq), zap.Float64("fps", a.FPS()))
		}
	}
	return nil
}

func (a *App) presentTerminal(surface *render.Surface, info scheduler.FrameInfo) error {
	lines := a.cells.lines(surface.Image(), a.cols, a.renderRows)
	a.out.WriteString("\x1b[H")
	a.out.WriteString(strings.Join(lines, "\n"))
	if a.cfg.ShowStatusBar {
		text := statusText(info, a.Stats(), a.FPS(), surface.Width(), surface.Height())
		a.out.WriteByte('\n')
		a.out.WriteString(statusBar(text, a.cols, info.Excited, a.cells.depth != depthNone))
	}
	return a.out.Flush()
}

func (a *App) trackFPS(ts time.Time) {
	if !a.lastFrame.IsZero() {
		if delta := ts.Sub(a.lastFrame).Seconds(); delta > 0 {
			a.fpsBits.Store(math.Float64bits(1 / delta))
		}
	}
	a.lastFrame = ts
}

func (a *App) storeSnapshot(img *image.RGBA, ts time.Time) {
	if img == nil || ts.Sub(a.lastSnapshot) < snapshotInterval {
		return
	}
	a.lastSnapshot = ts
	clone := &image.RGBA{
		Pix:    append([]uint8(nil), img.Pix...),
		Stride: img.Stride,
		Rect:   img.Rect,
	}
	a.snapMu.Lock()
	a.snapshot = clone
	a.snapMu.Unlock()
}

// ensureDimensions follows the terminal size and forwards changes to the
// host as device pixels.
func (a *App) ensureDimensions() {
	fd := int(os.Stdout.Fd())
	if fd < 0 {
		return
	}
	w, h, err := term.GetSize(fd)
	if err != nil || w <= 0 || h <= 0 {
		return
	}
	rows := renderRows(h, a.cfg.ShowStatusBar)
	if w == a.cols && h == a.rows && rows == a.renderRows {
		return
	}
	a.cols = w
	a.rows = h
	a.renderRows = rows
	a.host.Resize(w*a.cfg.Scale, rows*2*a.cfg.Scale)
	clearScreen()
}

func renderRows(rows int, statusBar bool) int {
	if statusBar && rows > 1 {
		rows--
	}
	if rows <= 0 {
		rows = 1
	}
	return rows
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

func clearScreen() {
	fmt.Print("\x1b[2J")
	moveCursorHome()
}

func moveCursorHome() {
	fmt.Print("\x1b[H")
}

func hideCursor() {
	fmt.Print("\x1b[?25l")
}

func showCursor() {
	fmt.Print("\x1b[?25h")
}

func enterAltScreen() {
	fmt.Print("\x1b[?1049h")
}

func exitAltScreen() {
	fmt.Print("\x1b[?1049l\x1b[0m")
}
