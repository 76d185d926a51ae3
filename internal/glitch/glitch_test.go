package glitch

import (
	"image"
	"math"
	"math/rand"
	"testing"
)

func fromPix(w, h int, pix []uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	copy(img.Pix, pix)
	return img
}

func TestShearTwoByTwo(t *testing.T) {
	in := []uint8{
		10, 11, 12, 13, 20, 21, 22, 23,
		30, 31, 32, 33, 40, 41, 42, 43,
	}
	img := fromPix(2, 2, in)
	Shear(img, 1)

	want := []uint8{
		20, 11, 12, 13, 20, 21, 12, 23,
		40, 31, 32, 33, 40, 41, 32, 43,
	}
	for i := range want {
		if img.Pix[i] != want[i] {
			t.Fatalf("byte %d = %d want %d (got %v)", i, img.Pix[i], want[i], img.Pix)
		}
	}
}

func TestShearIsInPlace(t *testing.T) {
	// 4x1 row, shift 1: blue cascades from the first pixel
	in := []uint8{
		1, 0, 5, 255, 2, 0, 6, 255, 3, 0, 7, 255, 4, 0, 8, 255,
	}
	img := fromPix(4, 1, in)
	Shear(img, 1)

	wantRed := []uint8{2, 3, 4, 4}
	wantBlue := []uint8{5, 5, 5, 5}
	for x := 0; x < 4; x++ {
		if img.Pix[x*4] != wantRed[x] || img.Pix[x*4+2] != wantBlue[x] {
			t.Fatalf("pixel %d = %v", x, img.Pix[x*4:x*4+4])
		}
	}
}

func TestShearLeavesGreenAndAlpha(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	in := make([]uint8, 7*5*4)
	for i := range in {
		in[i] = uint8(rng.Intn(256))
	}
	img := fromPix(7, 5, in)
	Shear(img, 3)
	for i := 0; i < len(in); i += 4 {
		if img.Pix[i+1] != in[i+1] || img.Pix[i+3] != in[i+3] {
			t.Fatalf("green/alpha changed at %d", i/4)
		}
	}
}

func TestZeroShiftIsNoop(t *testing.T) {
	in := []uint8{1, 2, 3, 4, 5, 6, 7, 8}
	img := fromPix(2, 1, in)
	Shear(img, 0)
	for i := range in {
		if img.Pix[i] != in[i] {
			t.Fatalf("byte %d changed", i)
		}
	}
	e := New(1, 0, rand.New(rand.NewSource(1)))
	if s := e.Shift(); s != 0 {
		t.Fatalf("shift=%d with zero amount", s)
	}
}

func TestTriggerRate(t *testing.T) {
	const (
		frames = 100_000
		p      = 0.1
	)
	e := New(p, 4, rand.New(rand.NewSource(2024)))
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	hits := 0
	for i := 0; i < frames; i++ {
		if e.MaybeCorrupt(img) {
			hits++
		}
	}
	rate := float64(hits) / frames
	sigma := math.Sqrt(p * (1 - p) / frames)
	if math.Abs(rate-p) > 4*sigma {
		t.Fatalf("trigger rate %.4f not within 4 sigma of %.2f", rate, p)
	}
}

func TestShiftRange(t *testing.T) {
	e := New(1, 5, rand.New(rand.NewSource(5)))
	for i := 0; i < 1000; i++ {
		if s := e.Shift(); s < 0 || s >= 5 {
			t.Fatalf("shift %d outside [0,5)", s)
		}
	}
}

func TestMaybeCorruptIgnoresEmpty(t *testing.T) {
	e := New(1, 3, nil)
	if e.MaybeCorrupt(nil) {
		t.Fatal("nil image should never be corrupted")
	}
}
