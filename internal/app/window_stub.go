//go:build !sdl

package app

import (
	"errors"

	"github.com/guidoenr/retrobars/internal/render"
	"github.com/guidoenr/retrobars/internal/scheduler"
)

type window struct{}

func openWindow(width, height int, host *scheduler.LoopHost, signal *scheduler.Signal) (*window, error) {
	return nil, errors.New("window backend not enabled; rebuild with -tags sdl")
}

func (w *window) present(*render.Surface, scheduler.FrameInfo) error {
	return ErrWindowClosed
}

func (w *window) Close() error { return nil }

func SupportsWindow() bool { return false }
