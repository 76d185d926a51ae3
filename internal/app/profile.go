package app

import (
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// profiler receives the scheduler's section marks and appends one CSV row
// per section plus a frame_total row when the frame is presented.
type profiler struct {
	mu    sync.Mutex
	file  *os.File
	start time.Time
	last  time.Time
}

// newProfiler returns nil when path is empty or cannot be opened; a nil
// profiler ignores every mark.
func newProfiler(path string, log *zap.Logger) *profiler {
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		if log != nil {
			log.Warn("profiler disabled", zap.String("path", path), zap.Error(err))
		}
		return nil
	}
	fmt.Fprintln(f, "timestamp,section,delta_ms")
	return &profiler{file: f}
}

// trace is installed as scheduler.Config.Trace. "begin" opens a frame,
// every other section records the time since the previous mark, and
// "present" also closes the frame.
func (p *profiler) trace(section string) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.file == nil {
		return
	}

	now := time.Now()
	if section == "begin" {
		p.start = now
		p.last = now
		return
	}
	p.write(now, section, now.Sub(p.last))
	p.last = now
	if section == "present" {
		p.write(now, "frame_total", now.Sub(p.start))
	}
}

func (p *profiler) write(now time.Time, section string, d time.Duration) {
	fmt.Fprintf(p.file, "%s,%s,%.3f\n", now.Format(time.RFC3339Nano), section, float64(d.Microseconds())/1000)
}

func (p *profiler) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.file == nil {
		return nil
	}
	err := p.file.Close()
	p.file = nil
	return err
}
