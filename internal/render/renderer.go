package render

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/guidoenr/retrobars/internal/bars"
	"github.com/guidoenr/retrobars/internal/params"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/draw"
)

const (
	// glow and shadow overlays carry a literal alpha suffix
	glowAlpha   = "33"
	shadowAlpha = "22"

	sideMargin     = 0.05
	barHeightRatio = 0.35
	shadowRatio    = 0.3

	scanlinePitch = 4
	vignetteInner = 0.25
)

var (
	scanlineColor = color.NRGBA{R: 200, G: 200, B: 200, A: alpha8(0.03)}
	vignetteColor = color.NRGBA{R: 200, G: 200, B: 200}
	vignetteAlpha = 0.4
)

// Compositor draws the bar scene onto a Surface.
type Compositor struct {
	cfg        params.VisualConfig
	background color.NRGBA
	grid       color.NRGBA

	// vignette alpha per pixel, rebuilt when the surface size changes
	vignette  []uint8
	vignetteW int
	vignetteH int
}

// NewCompositor validates cfg and pre-parses its colours.
func NewCompositor(cfg params.VisualConfig) (*Compositor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	bg, err := ParseColor(cfg.BackgroundColor)
	if err != nil {
		return nil, fmt.Errorf("background: %w", err)
	}
	grid, err := ParseColor(cfg.GridColor)
	if err != nil {
		return nil, fmt.Errorf("grid: %w", err)
	}
	// a 0.5px hairline covers half of the pixel it lands on
	grid.A = alpha8(cfg.GridOpacity * 0.5)
	return &Compositor{cfg: cfg, background: bg, grid: grid}, nil
}

// Render overwrites the whole surface: background, grid, bars, then the
// retro overlay. An unavailable surface is left alone. Drawing does not
// depend on the frame time, so none is passed.
func (c *Compositor) Render(s *Surface, state *bars.State, palette Palette) {
	if !s.Ready() {
		return
	}
	img := s.Image()
	width := s.Width()
	height := s.Height()

	draw.Draw(img, img.Bounds(), image.NewUniform(c.background), image.Point{}, draw.Src)

	if c.cfg.ShowGrid {
		c.drawGrid(img, width, height)
	}
	c.drawBars(img, width, height, state, palette)
	c.drawRetroEffects(img, width, height)
}

func (c *Compositor) drawGrid(img *image.RGBA, width, height int) {
	step := c.cfg.GridSize
	src := image.NewUniform(c.grid)
	for x := 0; x < width; x += step {
		draw.Draw(img, image.Rect(x, 0, x+1, height), src, image.Point{}, draw.Over)
	}
	for y := 0; y < height; y += step {
		draw.Draw(img, image.Rect(0, y, width, y+1), src, image.Point{}, draw.Over)
	}
}

func (c *Compositor) drawBars(img *image.RGBA, width, height int, state *bars.State, palette Palette) {
	count := state.Len()
	if count == 0 {
		return
	}

	gradStart, _ := colorful.Hex(palette.GradientStart)
	gradEnd, _ := colorful.Hex(palette.GradientEnd)
	glow := image.NewUniform(mustColor(palette.Primary + glowAlpha))
	shadow := image.NewUniform(mustColor(palette.Secondary + shadowAlpha))

	w := float64(width)
	h := float64(height)
	totalSpacing := w * sideMargin
	barWidth := (w - totalSpacing) / float64(count)
	spacing := 0.0
	if count > 1 {
		spacing = totalSpacing / float64(count-1)
	}
	barMaxHeight := h * barHeightRatio
	bottomY := h

	for i, bar := range state.Bars {
		x := float64(i) * (barWidth + spacing)
		barHeight := math.Max(bar.Current*barMaxHeight, c.cfg.BarMinHeight)
		top := bottomY - barHeight

		rect := floatRect(x, top, barWidth, barHeight).Intersect(img.Rect)
		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			pos := (bottomY - (float64(y) + 0.5)) / barHeight
			row := image.Rect(rect.Min.X, y, rect.Max.X, y+1)
			draw.Draw(img, row, image.NewUniform(gradientAt(gradEnd, gradStart, pos)), image.Point{}, draw.Src)
		}

		draw.Draw(img, floatRect(x-1, top, barWidth+2, barHeight+2), glow, image.Point{}, draw.Over)
		draw.Draw(img, floatRect(x, bottomY, barWidth, barHeight*shadowRatio), shadow, image.Point{}, draw.Over)
	}
}

func (c *Compositor) drawRetroEffects(img *image.RGBA, width, height int) {
	scan := image.NewUniform(scanlineColor)
	for y := 0; y < height; y += scanlinePitch {
		draw.Draw(img, image.Rect(0, y, width, y+1), scan, image.Point{}, draw.Over)
	}

	c.ensureVignette(width, height)
	pix := img.Pix
	for y := 0; y < height; y++ {
		row := y * img.Stride
		mask := c.vignette[y*width : (y+1)*width]
		for x, a := range mask {
			if a == 0 {
				continue
			}
			blendOver(pix[row+x*4:row+x*4+4], vignetteColor, a)
		}
	}
}

func (c *Compositor) ensureVignette(width, height int) {
	if c.vignetteW == width && c.vignetteH == height && len(c.vignette) == width*height {
		return
	}
	c.vignette = make([]uint8, width*height)
	c.vignetteW = width
	c.vignetteH = height

	short := float64(min(width, height))
	inner := short * vignetteInner
	outer := short
	cx := float64(width) / 2
	cy := float64(height) / 2
	for y := 0; y < height; y++ {
		dy := float64(y) + 0.5 - cy
		for x := 0; x < width; x++ {
			dist := math.Hypot(float64(x)+0.5-cx, dy)
			t := clamp01((dist - inner) / (outer - inner))
			c.vignette[y*width+x] = alpha8(vignetteAlpha * t)
		}
	}
}

// blendOver composites an opaque-destination pixel with c at alpha a.
func blendOver(dst []uint8, c color.NRGBA, a uint8) {
	alpha := uint32(a)
	inv := 255 - alpha
	dst[0] = uint8((uint32(c.R)*alpha + uint32(dst[0])*inv + 127) / 255)
	dst[1] = uint8((uint32(c.G)*alpha + uint32(dst[1])*inv + 127) / 255)
	dst[2] = uint8((uint32(c.B)*alpha + uint32(dst[2])*inv + 127) / 255)
	dst[3] = uint8((alpha*255 + uint32(dst[3])*inv + 127) / 255)
}

func floatRect(x, y, w, h float64) image.Rectangle {
	return image.Rect(
		int(math.Round(x)),
		int(math.Round(y)),
		int(math.Round(x+w)),
		int(math.Round(y+h)),
	)
}

func alpha8(v float64) uint8 {
	return uint8(math.Round(clamp01(v) * 255))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
