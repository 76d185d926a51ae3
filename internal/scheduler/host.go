package scheduler

import (
	"context"
	"slices"
	"sync"
	"time"
)

// FrameFunc is invoked once per requested frame with the frame timestamp.
type FrameFunc func(ts time.Time)

// ResizeFunc receives the new device-pixel size of the display.
type ResizeFunc func(width, height int)

type (
	FrameID    uint64
	ListenerID uint64
)

// Host is the display environment a Scheduler runs in: a one-shot frame
// request queue plus a resize notification registry.
type Host interface {
	RequestFrame(fn FrameFunc) FrameID
	CancelFrame(id FrameID)
	AddResizeListener(fn ResizeFunc) ListenerID
	RemoveResizeListener(id ListenerID)
	Size() (width, height int)
}

// LoopHost runs frames off a ticker. Frame callbacks, resize notifications
// and posted tasks all execute on the goroutine that calls Run.
type LoopHost struct {
	interval time.Duration

	mu        sync.Mutex
	nextID    uint64
	frames    map[FrameID]FrameFunc
	batch     map[FrameID]FrameFunc
	listeners map[ListenerID]ResizeFunc
	width     int
	height    int
	resized   bool
	tasks     []func()
}

// NewLoopHost returns a host ticking at fps frames per second.
func NewLoopHost(fps float64, width, height int) *LoopHost {
	if fps <= 0 {
		fps = 60
	}
	return &LoopHost{
		interval:  time.Duration(float64(time.Second) / fps),
		frames:    make(map[FrameID]FrameFunc),
		listeners: make(map[ListenerID]ResizeFunc),
		width:     width,
		height:    height,
	}
}

func (h *LoopHost) RequestFrame(fn FrameFunc) FrameID {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := FrameID(h.nextID)
	h.frames[id] = fn
	return id
}

func (h *LoopHost) CancelFrame(id FrameID) {
	h.mu.Lock()
	delete(h.frames, id)
	delete(h.batch, id)
	h.mu.Unlock()
}

func (h *LoopHost) AddResizeListener(fn ResizeFunc) ListenerID {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := ListenerID(h.nextID)
	h.listeners[id] = fn
	return id
}

func (h *LoopHost) RemoveResizeListener(id ListenerID) {
	h.mu.Lock()
	delete(h.listeners, id)
	h.mu.Unlock()
}

func (h *LoopHost) Size() (int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.width, h.height
}

// Resize records a new display size. Listeners hear about it on the loop
// goroutine before the next frame runs.
func (h *LoopHost) Resize(width, height int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if width == h.width && height == h.height {
		return
	}
	h.width = width
	h.height = height
	h.resized = true
}

// Post queues fn to run on the loop goroutine ahead of the next frame.
func (h *LoopHost) Post(fn func()) {
	h.mu.Lock()
	h.tasks = append(h.tasks, fn)
	h.mu.Unlock()
}

// Pending reports how many frame requests are outstanding.
func (h *LoopHost) Pending() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.frames)
}

// Listeners reports how many resize listeners are registered.
func (h *LoopHost) Listeners() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners)
}

// Run ticks until ctx is cancelled.
func (h *LoopHost) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			h.Tick(now)
		}
	}
}

// Tick runs one loop iteration: posted tasks, then a pending resize, then
// every frame requested before this call.
func (h *LoopHost) Tick(now time.Time) {
	h.mu.Lock()
	tasks := h.tasks
	h.tasks = nil
	h.mu.Unlock()
	for _, task := range tasks {
		task()
	}

	h.mu.Lock()
	var listeners []ResizeFunc
	width, height := h.width, h.height
	if h.resized {
		h.resized = false
		listeners = make([]ResizeFunc, 0, len(h.listeners))
		for _, fn := range h.listeners {
			listeners = append(listeners, fn)
		}
	}
	h.batch = h.frames
	ids := make([]FrameID, 0, len(h.batch))
	for id := range h.batch {
		ids = append(ids, id)
	}
	h.frames = make(map[FrameID]FrameFunc)
	h.mu.Unlock()
	slices.Sort(ids)

	for _, fn := range listeners {
		fn(width, height)
	}
	for _, id := range ids {
		// a listener or an earlier frame may have cancelled this one
		h.mu.Lock()
		fn, ok := h.batch[id]
		delete(h.batch, id)
		h.mu.Unlock()
		if ok {
			fn(now)
		}
	}
	h.mu.Lock()
	h.batch = nil
	h.mu.Unlock()
}
