package bridge

import (
	"context"
	"fmt"
	"time"

	"github.com/bnema/vmshm/internal/config"
	"github.com/bnema/vmshm/internal/display"
	"github.com/bnema/vmshm/internal/keymap"
	"github.com/bnema/vmshm/internal/shmif"
)

type resizeCall struct {
	w, h     int
	ext      shmif.ResizeExt
	hints    shmif.RenderHint
	underLck bool
}

type fakeSegment struct {
	id      uint32
	w, h    int
	native  display.Format
	buf     []byte
	mapped  bool
	hints   shmif.RenderHint
	locked  bool
	resizes []resizeCall
	dirty   []display.Rect
	signals []shmif.SignalMask
	inbox   []shmif.Event
	sent    []shmif.Event
	drops   int

	resizeErr error

	accelSetups []shmif.AccelConfig
	textures    []uint32
	ctxDrops    int
}

func newFakeSegment(id uint32, w, h int) *fakeSegment {
	return &fakeSegment{
		id:     id,
		w:      w,
		h:      h,
		native: display.FormatA8B8G8R8,
		buf:    make([]byte, w*h*4),
		mapped: true,
	}
}

func (s *fakeSegment) ID() uint32                   { return s.id }
func (s *fakeSegment) Kind() shmif.Kind             { return shmif.KindVM }
func (s *fakeSegment) Mapped() bool                 { return s.mapped }
func (s *fakeSegment) Width() int                   { return s.w }
func (s *fakeSegment) Height() int                  { return s.h }
func (s *fakeSegment) Stride() int                  { return s.w * 4 }
func (s *fakeSegment) NativeFormat() display.Format { return s.native }
func (s *fakeSegment) VideoBuffer() []byte          { return s.buf }
func (s *fakeSegment) Hints() shmif.RenderHint      { return s.hints }
func (s *fakeSegment) SetHints(h shmif.RenderHint)  { s.hints = h }
func (s *fakeSegment) Lock()                        { s.locked = true }
func (s *fakeSegment) Unlock()                      { s.locked = false }

func (s *fakeSegment) Resize(w, h int, ext shmif.ResizeExt) error {
	s.resizes = append(s.resizes, resizeCall{w: w, h: h, ext: ext, hints: s.hints, underLck: s.locked})
	if s.resizeErr != nil {
		return s.resizeErr
	}
	s.w, s.h = w, h
	s.buf = make([]byte, w*h*4)
	return nil
}

func (s *fakeSegment) SetDirty(r display.Rect) { s.dirty = append(s.dirty, r) }

func (s *fakeSegment) Signal(mask shmif.SignalMask) error {
	s.signals = append(s.signals, mask)
	return nil
}

func (s *fakeSegment) Poll() (shmif.Event, bool) {
	if len(s.inbox) == 0 {
		return shmif.Event{}, false
	}
	ev := s.inbox[0]
	s.inbox = s.inbox[1:]
	return ev, true
}

func (s *fakeSegment) Enqueue(ev shmif.Event) error {
	s.sent = append(s.sent, ev)
	return nil
}

func (s *fakeSegment) Drop() error {
	s.drops++
	s.mapped = false
	return nil
}

func (s *fakeSegment) SetupAccel(cfg shmif.AccelConfig) error {
	s.accelSetups = append(s.accelSetups, cfg)
	return nil
}

func (s *fakeSegment) DropContext()       { s.ctxDrops++ }
func (s *fakeSegment) MakeCurrent() error { return nil }

func (s *fakeSegment) SignalTexture(tex uint32, mask shmif.SignalMask) error {
	s.textures = append(s.textures, tex)
	return nil
}

func (s *fakeSegment) post(evs ...shmif.Event) {
	s.inbox = append(s.inbox, evs...)
}

func (s *fakeSegment) idents() []string {
	var out []string
	for _, ev := range s.sent {
		if ev.External.Kind == shmif.ExternalIdent {
			out = append(out, ev.External.Message)
		}
	}
	return out
}

type subReply struct {
	seg *fakeSegment
	err error
}

type fakePrimary struct {
	*fakeSegment
	replies  []subReply
	requests int
}

func (p *fakePrimary) RequestSubsegment(ctx context.Context, kind shmif.Kind) (shmif.Segment, error) {
	p.requests++
	if len(p.replies) == 0 {
		return nil, shmif.ErrDeclined
	}
	r := p.replies[0]
	p.replies = p.replies[1:]
	if r.err != nil {
		return nil, r.err
	}
	return r.seg, nil
}

type fakeTransport struct {
	primary *fakePrimary
	args    map[string]string
	err     error
}

func (t *fakeTransport) Open(ctx context.Context) (shmif.Primary, map[string]string, error) {
	if t.err != nil {
		return nil, nil, t.err
	}
	return t.primary, t.args, nil
}

type fakeConsole struct {
	index       int
	graphic     bool
	surface     *display.Surface
	registerErr error
	listeners   []Listener
	intervals   []time.Duration
	updates     int
}

func newFakeConsole(index int) *fakeConsole {
	return &fakeConsole{
		index:   index,
		graphic: true,
		surface: display.NewSurface(64, 48, display.FormatX8R8G8B8),
	}
}

func (c *fakeConsole) Index() int                         { return c.index }
func (c *fakeConsole) IsGraphic() bool                    { return c.graphic }
func (c *fakeConsole) Surface() *display.Surface          { return c.surface }
func (c *fakeConsole) SetRefreshInterval(d time.Duration) { c.intervals = append(c.intervals, d) }
func (c *fakeConsole) RequestUpdate()                     { c.updates++ }

func (c *fakeConsole) Register(l Listener) error {
	if c.registerErr != nil {
		return c.registerErr
	}
	c.listeners = append(c.listeners, l)
	if c.surface != nil {
		l.SwitchSurface(c.surface)
	}
	return nil
}

func (c *fakeConsole) Unregister(l Listener) {
	for i, cur := range c.listeners {
		if cur == l {
			c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
			return
		}
	}
}

type fakeConsoles []*fakeConsole

func (f fakeConsoles) Console(index int) (Console, bool) {
	if index < 0 || index >= len(f) {
		return nil, false
	}
	return f[index], true
}

type fakeInjector struct {
	calls []string
	syncs int
}

func (f *fakeInjector) SendKey(code keymap.Code, down bool) error {
	f.calls = append(f.calls, fmt.Sprintf("key %s %v", code, down))
	return nil
}

func (f *fakeInjector) QueueButton(console int, btn Button, down bool) error {
	f.calls = append(f.calls, fmt.Sprintf("btn %d %s %v", console, btn, down))
	return nil
}

func (f *fakeInjector) QueueRel(console int, axis Axis, delta int32) error {
	f.calls = append(f.calls, fmt.Sprintf("rel %d %s %d", console, axis, delta))
	return nil
}

func (f *fakeInjector) QueueAbs(console int, axis Axis, value, min, max int32) error {
	f.calls = append(f.calls, fmt.Sprintf("abs %d %s %d [%d,%d]", console, axis, value, min, max))
	return nil
}

func (f *fakeInjector) Sync() error {
	f.syncs++
	return nil
}

type fakeMachine struct {
	running   bool
	shutdowns []Cause
	resets    []Cause
	ledFns    []func(LEDState)
	runFns    []func(bool)
}

func (m *fakeMachine) RequestShutdown(c Cause) { m.shutdowns = append(m.shutdowns, c) }
func (m *fakeMachine) RequestReset(c Cause)    { m.resets = append(m.resets, c) }
func (m *fakeMachine) IsRunning() bool         { return m.running }

func (m *fakeMachine) OnLEDChange(fn func(LEDState))  { m.ledFns = append(m.ledFns, fn) }
func (m *fakeMachine) OnRunStateChange(fn func(bool)) { m.runFns = append(m.runFns, fn) }

// rig is a single bridge on a primary segment with fake collaborators
type rig struct {
	reg     *Registry
	bridge  *Bridge
	seg     *fakeSegment
	console *fakeConsole
	input   *fakeInjector
	machine *fakeMachine
}

func testOptions() Options {
	return Options{
		DisplayLimit:          4,
		RefreshInterval:       30 * time.Millisecond,
		HiddenRefreshInterval: 500 * time.Millisecond,
		SubsegmentTimeout:     50 * time.Millisecond,
		InstanceName:          "test",
	}
}

func newRig(params config.Params) *rig {
	seg := newFakeSegment(1, 800, 600)
	prim := &fakePrimary{fakeSegment: seg}
	con := newFakeConsole(0)
	con.surface = nil
	in := &fakeInjector{}
	m := &fakeMachine{running: true}
	reg := NewRegistry(Host{Consoles: fakeConsoles{con}, Input: in, Machine: m}, prim, params, testOptions())
	b := newBridge(reg, 0, con, prim)
	reg.bridges = append(reg.bridges, b)
	return &rig{reg: reg, bridge: b, seg: seg, console: con, input: in, machine: m}
}

func keyEvent(sym keymap.Sym, down bool) shmif.Event {
	return shmif.Event{
		Category: shmif.CategoryIO,
		IO: shmif.IOEvent{
			DevKind:    shmif.DevKeyboard,
			DataType:   shmif.DataTranslated,
			Translated: shmif.Translated{Keysym: uint16(sym), Active: down},
		},
	}
}

func buttonEvent(kind shmif.DevKind, subid uint16, down bool) shmif.Event {
	return shmif.Event{
		Category: shmif.CategoryIO,
		IO: shmif.IOEvent{
			DevKind:  kind,
			DataType: shmif.DataDigital,
			SubID:    subid,
			Digital:  shmif.Digital{Active: down},
		},
	}
}

func motionEvent(subid uint16, relative bool, axes ...int32) shmif.Event {
	ev := shmif.Event{
		Category: shmif.CategoryIO,
		IO: shmif.IOEvent{
			DevKind:  shmif.DevMouse,
			DataType: shmif.DataAnalog,
			SubID:    subid,
			Analog:   shmif.Analog{Relative: relative, Count: uint8(len(axes))},
		},
	}
	copy(ev.IO.Analog.Axes[:], axes)
	return ev
}

func withDevKind(ev shmif.Event, kind shmif.DevKind) shmif.Event {
	ev.IO.DevKind = kind
	return ev
}

func targetEvent(kind shmif.TargetKind, values ...int32) shmif.Event {
	ev := shmif.Event{Category: shmif.CategoryTarget, Target: shmif.TargetEvent{Kind: kind}}
	for i, v := range values {
		ev.Target.Values[i].IV = v
	}
	return ev
}

func displayHint(flags int32) shmif.Event {
	return targetEvent(shmif.TargetDisplayHint, 0, 0, flags)
}
