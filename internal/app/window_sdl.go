//go:build sdl

package app

import (
	"fmt"

	"github.com/guidoenr/retrobars/internal/render"
	"github.com/guidoenr/retrobars/internal/scheduler"
	"github.com/veandco/go-sdl2/sdl"
)

// window presents frames through a resizable SDL window. Pointer hover sets
// the excitement signal and size changes are forwarded to the host.
type window struct {
	win      *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture
	width    int
	height   int
	title    string
	host     *scheduler.LoopHost
	signal   *scheduler.Signal
}

func openWindow(width, height int, host *scheduler.LoopHost, signal *scheduler.Signal) (*window, error) {
	if err := sdl.InitSubSystem(sdl.INIT_VIDEO); err != nil {
		return nil, err
	}
	win, err := sdl.CreateWindow(
		"retrobars",
		sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED,
		int32(width), int32(height),
		sdl.WINDOW_SHOWN|sdl.WINDOW_RESIZABLE,
	)
	if err != nil {
		sdl.QuitSubSystem(sdl.INIT_VIDEO)
		return nil, err
	}
	renderer, err := sdl.CreateRenderer(win, -1, sdl.RENDERER_ACCELERATED|sdl.RENDERER_PRESENTVSYNC)
	if err != nil {
		win.Destroy()
		sdl.QuitSubSystem(sdl.INIT_VIDEO)
		return nil, err
	}
	return &window{
		win:      win,
		renderer: renderer,
		host:     host,
		signal:   signal,
	}, nil
}

func (w *window) ensureTexture(width, height int) error {
	if w.texture != nil && w.width == width && w.height == height {
		return nil
	}
	if w.texture != nil {
		w.texture.Destroy()
		w.texture = nil
	}
	tex, err := w.renderer.CreateTexture(
		sdl.PIXELFORMAT_ABGR8888,
		sdl.TEXTUREACCESS_STREAMING,
		int32(width), int32(height),
	)
	if err != nil {
		return err
	}
	w.texture = tex
	w.width = width
	w.height = height
	return nil
}

func (w *window) present(surface *render.Surface, info scheduler.FrameInfo) error {
	img := surface.Image()
	if err := w.ensureTexture(surface.Width(), surface.Height()); err != nil {
		return fmt.Errorf("create texture: %w", err)
	}
	title := "retrobars - " + info.Palette
	if title != w.title {
		_ = w.win.SetTitle(title)
		w.title = title
	}
	if err := w.texture.Update(nil, img.Pix, img.Stride); err != nil {
		return err
	}
	if err := w.renderer.Clear(); err != nil {
		return err
	}
	if err := w.renderer.Copy(w.texture, nil, nil); err != nil {
		return err
	}
	w.renderer.Present()
	return w.pollEvents()
}

func (w *window) pollEvents() error {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			return ErrWindowClosed
		case *sdl.WindowEvent:
			switch e.Event {
			case sdl.WINDOWEVENT_SIZE_CHANGED:
				w.host.Resize(int(e.Data1), int(e.Data2))
			case sdl.WINDOWEVENT_ENTER:
				w.signal.Set(true)
			case sdl.WINDOWEVENT_LEAVE:
				w.signal.Set(false)
			}
		}
	}
	return nil
}

func (w *window) Close() error {
	if w.texture != nil {
		w.texture.Destroy()
		w.texture = nil
	}
	if w.renderer != nil {
		w.renderer.Destroy()
		w.renderer = nil
	}
	if w.win != nil {
		w.win.Destroy()
		w.win = nil
	}
	sdl.QuitSubSystem(sdl.INIT_VIDEO)
	return nil
}

// SupportsWindow reports whether the binary was built with the SDL backend.
func SupportsWindow() bool { return true }
