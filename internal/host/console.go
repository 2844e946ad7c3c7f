package host

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/bnema/vmshm/internal/bridge"
	"github.com/bnema/vmshm/internal/display"
)

// ErrFormatRejected is returned by Register when a listener cannot take the
// console surface format
var ErrFormatRejected = errors.New("listener rejected surface format")

// bandWidth is the width of the moving test pattern band
const bandWidth = 16

var _ bridge.Console = (*Console)(nil)

// Console is a synthetic guest display. Graphic consoles draw an
// x8r8g8b8 test pattern with a band that moves on every step.
type Console struct {
	mu        sync.Mutex
	index     int
	graphic   bool
	surface   *display.Surface
	listeners []bridge.Listener
	interval  time.Duration
	last      time.Time
	band      int
	frames    int
	now       func() time.Time
}

// NewConsole creates a graphic console of w by h pixels
func NewConsole(index, w, h int) *Console {
	c := &Console{index: index, graphic: true, now: time.Now}
	c.surface = display.NewSurface(w, h, display.FormatX8R8G8B8)
	drawPattern(c.surface)
	return c
}

// NewTextConsole creates a console without a pixel surface
func NewTextConsole(index int) *Console {
	return &Console{index: index, now: time.Now}
}

func (c *Console) Index() int      { return c.index }
func (c *Console) IsGraphic() bool { return c.graphic }

func (c *Console) Surface() *display.Surface {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.surface
}

// Register attaches l and hands it the current surface
func (c *Console) Register(l bridge.Listener) error {
	c.mu.Lock()
	if !c.graphic {
		c.mu.Unlock()
		return fmt.Errorf("console %d is not graphic", c.index)
	}
	s := c.surface
	if s != nil && !l.CheckFormat(s.Format) {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrFormatRejected, s.Format)
	}
	c.listeners = append(c.listeners, l)
	c.mu.Unlock()

	if s != nil {
		l.SwitchSurface(s)
	}
	return nil
}

func (c *Console) Unregister(l bridge.Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = slices.DeleteFunc(c.listeners, func(cur bridge.Listener) bool {
		return cur == l
	})
}

// Listeners returns the number of attached listeners
func (c *Console) Listeners() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.listeners)
}

func (c *Console) SetRefreshInterval(d time.Duration) {
	c.mu.Lock()
	c.interval = d
	c.mu.Unlock()
}

// RefreshInterval returns the cadence last requested by a listener
func (c *Console) RefreshInterval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interval
}

// Frames returns the number of steps drawn so far
func (c *Console) Frames() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames
}

// RequestUpdate draws the next step once the refresh interval has passed
func (c *Console) RequestUpdate() {
	c.mu.Lock()
	now := c.now()
	if c.interval > 0 && !c.last.IsZero() && now.Sub(c.last) < c.interval {
		c.mu.Unlock()
		return
	}
	c.last = now
	c.mu.Unlock()

	c.Step()
}

// Step moves the band one position and reports the damage to every
// listener
func (c *Console) Step() {
	c.mu.Lock()
	s := c.surface
	if s == nil || s.Width == 0 {
		c.mu.Unlock()
		return
	}
	old := c.bandRect()
	c.band = (c.band + bandWidth) % s.Width
	cur := c.bandRect()
	restoreRect(s, old)
	fillRect(s, cur, bandColor)
	c.frames++
	listeners := slices.Clone(c.listeners)
	c.mu.Unlock()

	for _, l := range listeners {
		l.Update(old)
		l.Update(cur)
	}
}

func (c *Console) bandRect() display.Rect {
	return display.Rect{X: c.band, Y: 0, W: bandWidth, H: c.surface.Height}.Intersect(c.surface.Bounds())
}

// Resize switches the console to a new w by h surface, as a guest mode
// change would
func (c *Console) Resize(w, h int) {
	c.mu.Lock()
	s := display.NewSurface(w, h, display.FormatX8R8G8B8)
	drawPattern(s)
	c.surface = s
	c.band = 0
	listeners := slices.Clone(c.listeners)
	c.mu.Unlock()

	for _, l := range listeners {
		l.SwitchSurface(s)
	}
}

// rgb is an opaque color
type rgb struct{ r, g, b uint8 }

var bandColor = rgb{0xff, 0xff, 0xff}

// gradient is the background color at x, y: red grows to the right and
// green downwards
func gradient(s *display.Surface, x, y int) rgb {
	return rgb{
		r: uint8(x * 255 / max(1, s.Width-1)),
		g: uint8(y * 255 / max(1, s.Height-1)),
		b: 0x40,
	}
}

func drawPattern(s *display.Surface) {
	restoreRect(s, s.Bounds())
}

func restoreRect(s *display.Surface, r display.Rect) {
	for y := r.Y; y < r.Y+r.H; y++ {
		row := s.Row(r.X, y)
		for i := 0; i < r.W && i*4 < len(row); i++ {
			putPixel(row[i*4:], gradient(s, r.X+i, y))
		}
	}
}

func fillRect(s *display.Surface, r display.Rect, col rgb) {
	for y := r.Y; y < r.Y+r.H; y++ {
		row := s.Row(r.X, y)
		for i := 0; i < r.W && i*4 < len(row); i++ {
			putPixel(row[i*4:], col)
		}
	}
}

// putPixel writes an x8r8g8b8 pixel, memory order B G R X
func putPixel(p []byte, c rgb) {
	p[0], p[1], p[2], p[3] = c.b, c.g, c.r, 0xff
}

// Consoles is an ordered console set
type Consoles []*Console

var _ bridge.ConsoleSource = Consoles(nil)

// NewConsoles creates n graphic consoles of w by h pixels
func NewConsoles(n, w, h int) Consoles {
	set := make(Consoles, 0, n)
	for i := 0; i < n; i++ {
		set = append(set, NewConsole(i, w, h))
	}
	return set
}

func (cs Consoles) Console(index int) (bridge.Console, bool) {
	if index < 0 || index >= len(cs) || cs[index] == nil {
		return nil, false
	}
	return cs[index], true
}

// Step advances every console
func (cs Consoles) Step() {
	for _, c := range cs {
		c.Step()
	}
}
