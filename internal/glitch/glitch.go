// Package glitch corrupts a rendered frame in place.
package glitch

import (
	"image"
	"math/rand"
	"time"
)

// Effect fires a channel shear with a fixed per-frame probability.
type Effect struct {
	probability float64
	amount      int
	rng         *rand.Rand
}

// New returns an Effect. A nil rng is replaced by a time-seeded source.
func New(probability float64, amount int, rng *rand.Rand) *Effect {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Effect{probability: probability, amount: amount, rng: rng}
}

// Trigger runs one independent Bernoulli trial.
func (e *Effect) Trigger() bool {
	return e.rng.Float64() < e.probability
}

// Shift draws a shear distance in [0, amount).
func (e *Effect) Shift() int {
	if e.amount <= 0 {
		return 0
	}
	return e.rng.Intn(e.amount)
}

// MaybeCorrupt shears img when this frame's trial fires and reports whether
// it did.
func (e *Effect) MaybeCorrupt(img *image.RGBA) bool {
	if img == nil || len(img.Pix) == 0 {
		return false
	}
	if !e.Trigger() {
		return false
	}
	Shear(img, e.Shift())
	return true
}

// Shear walks every row left to right, pulling red from shift pixels to the
// right and blue from shift pixels to the left. It works on the live buffer,
// so blue reads see values already sheared earlier in the row. Green and
// alpha are never touched.
func Shear(img *image.RGBA, shift int) {
	if shift <= 0 {
		return
	}
	width := img.Rect.Dx()
	height := img.Rect.Dy()
	pix := img.Pix
	step := shift * 4
	for y := 0; y < height; y++ {
		row := y * img.Stride
		for x := 0; x < width; x++ {
			off := row + x*4
			if x+shift < width {
				pix[off] = pix[off+step]
			}
			if x-shift >= 0 {
				pix[off+2] = pix[off-step+2]
			}
		}
	}
}
