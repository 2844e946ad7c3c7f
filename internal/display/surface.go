package display

// Rect is an axis-aligned region in surface pixel coordinates
type Rect struct {
	X int
	Y int
	W int
	H int
}

// FullRect covers a whole w*h surface
func FullRect(w, h int) Rect {
	return Rect{W: w, H: h}
}

// Bounds returns the rectangle corners as x1, y1, x2, y2
func (r Rect) Bounds() (x1, y1, x2, y2 int) {
	return r.X, r.Y, r.X + r.W, r.Y + r.H
}

// Contains checks if a point is within the rectangle
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// Empty reports whether the rectangle covers no pixels
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// Intersect clips r against o. The result is the zero Rect when they do not
// overlap.
func (r Rect) Intersect(o Rect) Rect {
	x1, y1, x2, y2 := r.Bounds()
	ox1, oy1, ox2, oy2 := o.Bounds()
	x1 = max(x1, ox1)
	y1 = max(y1, oy1)
	x2 = min(x2, ox2)
	y2 = min(y2, oy2)
	if x2 <= x1 || y2 <= y1 {
		return Rect{}
	}
	return Rect{X: x1, Y: y1, W: x2 - x1, H: y2 - y1}
}

// Surface is a host-owned pixel buffer
type Surface struct {
	Data   []byte
	Width  int
	Height int
	Stride int // bytes per row
	Format Format
}

// NewSurface allocates a zeroed surface with a tightly packed stride
func NewSurface(w, h int, f Format) *Surface {
	stride := w * f.BytesPerPixel()
	return &Surface{
		Data:   make([]byte, stride*h),
		Width:  w,
		Height: h,
		Stride: stride,
		Format: f,
	}
}

// BitsPerPixel returns the pixel depth of the surface format
func (s *Surface) BitsPerPixel() int {
	return s.Format.BitsPerPixel()
}

// Bounds returns the full surface rectangle
func (s *Surface) Bounds() Rect {
	return FullRect(s.Width, s.Height)
}

// Row returns the bytes of row y starting at column x. It returns nil when
// the row lies outside the surface.
func (s *Surface) Row(x, y int) []byte {
	if y < 0 || y >= s.Height || x < 0 || x >= s.Width {
		return nil
	}
	off := y*s.Stride + x*s.Format.BytesPerPixel()
	end := y*s.Stride + s.Width*s.Format.BytesPerPixel()
	if end > len(s.Data) {
		return nil
	}
	return s.Data[off:end]
}
