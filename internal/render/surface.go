package render

import "image"

// Surface is the pixel target the compositor draws into.
type Surface struct {
	img *image.RGBA
}

// NewSurface allocates a width x height surface. Non-positive sizes give an
// empty, unavailable surface.
func NewSurface(width, height int) *Surface {
	s := &Surface{}
	s.Resize(width, height)
	return s
}

// Resize reallocates the pixel buffer when the dimensions change.
func (s *Surface) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		s.img = nil
		return
	}
	if s.img != nil && s.img.Rect.Dx() == width && s.img.Rect.Dy() == height {
		return
	}
	s.img = image.NewRGBA(image.Rect(0, 0, width, height))
}

// Ready reports whether there is anything to draw on.
func (s *Surface) Ready() bool {
	return s != nil && s.img != nil && len(s.img.Pix) > 0
}

func (s *Surface) Width() int {
	if s == nil || s.img == nil {
		return 0
	}
	return s.img.Rect.Dx()
}

func (s *Surface) Height() int {
	if s == nil || s.img == nil {
		return 0
	}
	return s.img.Rect.Dy()
}

// Image exposes the backing buffer; nil when unavailable.
func (s *Surface) Image() *image.RGBA {
	if s == nil {
		return nil
	}
	return s.img
}
