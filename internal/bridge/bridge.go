// Package bridge connects guest consoles to compositor segments. Each
// Bridge mirrors one console into one segment, forwards input back into the
// guest and reacts to compositor lifecycle requests. The Registry owns all
// bridges of a connection.
package bridge

import (
	"errors"
	"time"

	"github.com/bnema/vmshm/internal/config"
	"github.com/bnema/vmshm/internal/display"
	"github.com/bnema/vmshm/internal/logger"
	"github.com/bnema/vmshm/internal/shmif"
	"github.com/charmbracelet/log"
)

var (
	// ErrPrimaryUnavailable is returned when the first segment cannot be
	// opened
	ErrPrimaryUnavailable = errors.New("primary segment unavailable")
	// ErrNoDisplay is returned when no console could be attached to the
	// primary segment
	ErrNoDisplay = errors.New("no display attached")
	// ErrUnsupportedFormat is returned for surfaces the blit engine cannot
	// convert
	ErrUnsupportedFormat = errors.New("unsupported surface format")
	// ErrNotAccelerated is returned by GPU calls on a CPU-only bridge
	ErrNotAccelerated = errors.New("display is not accelerated")
	// ErrContextsExhausted is returned when every GPU context slot is taken
	ErrContextsExhausted = errors.New("gpu context slots exhausted")
)

// Options are the per-connection bridge settings
type Options struct {
	DisplayLimit          int
	RefreshInterval       time.Duration
	HiddenRefreshInterval time.Duration
	SubsegmentTimeout     time.Duration
	InstanceName          string
	Accelerated           bool
}

// OptionsFromConfig converts the bridge config section
func OptionsFromConfig(c config.BridgeConfig) Options {
	return Options{
		DisplayLimit:          c.DisplayLimit,
		RefreshInterval:       c.RefreshInterval(),
		HiddenRefreshInterval: c.HiddenRefreshInterval(),
		SubsegmentTimeout:     c.SubsegmentTimeout(),
		InstanceName:          c.InstanceName,
		Accelerated:           c.Accelerated,
	}
}

// Bridge mirrors one guest console into one compositor segment
type Bridge struct {
	index    int
	console  Console
	segment  shmif.Segment
	registry *Registry

	mode    BlitMode
	surface *display.Surface

	// surface handed over before the segment was usable
	pending    *display.Surface
	hasPending bool

	keys   KeyState
	hidden bool
	log    *log.Logger

	lastRefresh time.Time
	now         func() time.Time
}

func newBridge(r *Registry, index int, con Console, seg shmif.Segment) *Bridge {
	return &Bridge{
		index:    index,
		console:  con,
		segment:  seg,
		registry: r,
		mode:     BlitRepack,
		log:      logger.With("display", index),
		now:      time.Now,
	}
}

// Index is the host console index this bridge mirrors
func (b *Bridge) Index() int {
	return b.index
}

// Segment returns the compositor segment, nil once dropped
func (b *Bridge) Segment() shmif.Segment {
	return b.segment
}

// Mode returns the current blit strategy
func (b *Bridge) Mode() BlitMode {
	return b.mode
}

// Surface returns the adopted host surface
func (b *Bridge) Surface() *display.Surface {
	return b.surface
}

// Hidden reports whether the compositor marked the display invisible
func (b *Bridge) Hidden() bool {
	return b.hidden
}

// Keys exposes the held-key state
func (b *Bridge) Keys() *KeyState {
	return &b.keys
}

// IsPrimary reports whether this bridge owns the primary segment
func (b *Bridge) IsPrimary() bool {
	return b.registry != nil && b.segment != nil && b.registry.isPrimary(b.segment)
}

func (b *Bridge) params() config.Params {
	if b.registry == nil {
		return config.DefaultParams
	}
	return b.registry.params
}

func (b *Bridge) accelerated() bool {
	return b.params().Accelerated
}

func (b *Bridge) usable() bool {
	return b.segment != nil && b.segment.Mapped()
}

// Attach binds a segment to a bridge that was created without one and
// applies any surface switch it missed.
func (b *Bridge) Attach(seg shmif.Segment) {
	b.segment = seg
	b.applyPending()
}

func (b *Bridge) applyPending() {
	if !b.hasPending || !b.usable() {
		return
	}
	s := b.pending
	b.pending, b.hasPending = nil, false
	b.SwitchSurface(s)
}

// Refresh is called on every refresh tick. It lets the guest display push
// changes and then drains the compositor event queue. A hidden display is
// refreshed at most once per hidden refresh interval.
func (b *Bridge) Refresh() {
	if b.segment == nil {
		return
	}
	now := b.now()
	if b.hidden && !b.lastRefresh.IsZero() && now.Sub(b.lastRefresh) < b.hiddenInterval() {
		return
	}
	b.lastRefresh = now
	b.applyPending()
	if b.console != nil {
		b.console.RequestUpdate()
	}
	b.PumpOnce()
}

func (b *Bridge) hiddenInterval() time.Duration {
	if b.registry == nil {
		return 0
	}
	return b.registry.opts.HiddenRefreshInterval
}

func (b *Bridge) drop() error {
	if b.segment == nil {
		return nil
	}
	seg := b.segment
	b.segment = nil
	b.keys.Clear()
	return seg.Drop()
}
