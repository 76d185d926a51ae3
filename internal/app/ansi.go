package app

import (
	"image"
	"math"
	"os"
	"strconv"
	"strings"

	"golang.org/x/image/draw"
)

const upperHalf = '▀'

var (
	resetANSI = "\x1b[0m"
	monoRamp  = []rune(" .:-=+*#%@")
)

var fgANSI, bgANSI [256]string

func init() {
	for i := range fgANSI {
		fgANSI[i] = "\x1b[38;5;" + strconv.Itoa(i) + "m"
		bgANSI[i] = "\x1b[48;5;" + strconv.Itoa(i) + "m"
	}
}

type colorDepth int

const (
	depthNone colorDepth = iota
	depth256
	depthTrue
)

// detectDepth picks the richest colour output the terminal advertises.
func detectDepth(useANSI bool) colorDepth {
	if !useANSI {
		return depthNone
	}
	if _, disabled := os.LookupEnv("NO_COLOR"); disabled {
		return depthNone
	}
	colorTerm := strings.ToLower(os.Getenv("COLORTERM"))
	if strings.Contains(colorTerm, "truecolor") || strings.Contains(colorTerm, "24bit") {
		return depthTrue
	}
	return depth256
}

// cellFrame converts device pixels to terminal cells. Each cell shows two
// vertically stacked pixels through an upper half block.
type cellFrame struct {
	depth colorDepth
	cells *image.RGBA
}

// lines downsamples src to cols x rows cells and encodes it.
func (f *cellFrame) lines(src *image.RGBA, cols, rows int) []string {
	if src == nil || cols <= 0 || rows <= 0 {
		return nil
	}
	bounds := image.Rect(0, 0, cols, rows*2)
	if f.cells == nil || f.cells.Rect != bounds {
		f.cells = image.NewRGBA(bounds)
	}
	draw.ApproxBiLinear.Scale(f.cells, bounds, src, src.Bounds(), draw.Src, nil)

	out := make([]string, rows)
	var builder strings.Builder
	for row := 0; row < rows; row++ {
		builder.Reset()
		builder.Grow(cols * 24)
		lastFG, lastBG := -1, -1
		for col := 0; col < cols; col++ {
			top := f.cells.RGBAAt(col, row*2)
			bottom := f.cells.RGBAAt(col, row*2+1)
			switch f.depth {
			case depthTrue:
				builder.WriteString("\x1b[38;2;")
				writeRGB(&builder, top.R, top.G, top.B)
				builder.WriteString("\x1b[48;2;")
				writeRGB(&builder, bottom.R, bottom.G, bottom.B)
				builder.WriteRune(upperHalf)
			case depth256:
				fg := rgbToANSI(float64(top.R)/255, float64(top.G)/255, float64(top.B)/255)
				bg := rgbToANSI(float64(bottom.R)/255, float64(bottom.G)/255, float64(bottom.B)/255)
				if fg != lastFG {
					builder.WriteString(fgANSI[fg])
					lastFG = fg
				}
				if bg != lastBG {
					builder.WriteString(bgANSI[bg])
					lastBG = bg
				}
				builder.WriteRune(upperHalf)
			default:
				lum := (luma(top.R, top.G, top.B) + luma(bottom.R, bottom.G, bottom.B)) / 2
				// dark pixels get dense glyphs so bars stand out on a light page
				idx := clampInt(int((1-lum)*float64(len(monoRamp)-1)+0.5), 0, len(monoRamp)-1)
				builder.WriteRune(monoRamp[idx])
			}
		}
		if f.depth != depthNone {
			builder.WriteString(resetANSI)
		}
		out[row] = builder.String()
	}
	return out
}

func writeRGB(b *strings.Builder, r, g, bl uint8) {
	var buf [16]byte
	b.Write(strconv.AppendUint(buf[:0], uint64(r), 10))
	b.WriteByte(';')
	b.Write(strconv.AppendUint(buf[:0], uint64(g), 10))
	b.WriteByte(';')
	b.Write(strconv.AppendUint(buf[:0], uint64(bl), 10))
	b.WriteByte('m')
}

func luma(r, g, b uint8) float64 {
	return (0.2126*float64(r) + 0.7152*float64(g) + 0.0722*float64(b)) / 255
}

func rgbToANSI(r, g, b float64) int {
	r = clamp01(r)
	g = clamp01(g)
	b = clamp01(b)

	// grayscale ramp for neutral colours
	if math.Abs(r-g) < 0.02 && math.Abs(g-b) < 0.02 {
		gray := int(clampFloat(math.Round(r*23), 0, 23))
		return 232 + gray
	}

	ri := int(clampFloat(r*5+0.5, 0, 5))
	gi := int(clampFloat(g*5+0.5, 0, 5))
	bi := int(clampFloat(b*5+0.5, 0, 5))

	return 16 + 36*ri + 6*gi + bi
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

func clampFloat(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
