package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bnema/vmshm/internal/config"
	"github.com/bnema/vmshm/internal/logger"
	"github.com/bnema/vmshm/internal/shmif"
)

// Registry owns every bridge of one compositor connection. The first bridge
// always holds the primary segment.
type Registry struct {
	mu       sync.Mutex
	host     Host
	opts     Options
	params   config.Params
	primary  shmif.Primary
	bridges  []*Bridge
	contexts *ContextPool
	leds     LEDState
	closed   bool
}

// Start opens the primary segment, attaches one bridge per graphical
// console and announces every display to the compositor.
func Start(ctx context.Context, t shmif.Transport, host Host, opts Options) (*Registry, error) {
	primary, args, err := t.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPrimaryUnavailable, err)
	}

	params := config.ParseConnArgs(args)
	params.Accelerated = opts.Accelerated
	logger.Debug("Connection parameters", "vbufc", params.VideoBuffers, "abufc", params.AudioBuffers,
		"abuf_sz", params.AudioBufSize, "accelerated", params.Accelerated)

	primary.SetHints(shmif.HintSubregion)
	if err := primary.Enqueue(shmif.CursorHint("hidden")); err != nil {
		logger.Warn("Failed to hide compositor cursor", "error", err)
	}

	r := NewRegistry(host, primary, params, opts)
	if err := r.attachConsoles(ctx); err != nil {
		return nil, err
	}

	if host.Notifier != nil {
		host.Notifier.OnLEDChange(r.SetLEDState)
		host.Notifier.OnRunStateChange(func(bool) { r.UpdateTitles() })
	}
	r.UpdateTitles()
	logger.Info("Bridge started", "displays", r.Len(), "instance", opts.InstanceName)
	return r, nil
}

// NewRegistry builds an empty registry around an opened primary segment
func NewRegistry(host Host, primary shmif.Primary, params config.Params, opts Options) *Registry {
	if opts.DisplayLimit < 1 {
		opts.DisplayLimit = config.DefaultConfig.Bridge.DisplayLimit
	}
	return &Registry{
		host:     host,
		opts:     opts,
		params:   params,
		primary:  primary,
		contexts: &ContextPool{},
	}
}

func (r *Registry) isPrimary(seg any) bool {
	return r.primary != nil && seg == any(r.primary)
}

// attachConsoles walks the host consoles in order, stopping at the first
// index the host does not know.
func (r *Registry) attachConsoles(ctx context.Context) error {
	if r.host.Consoles == nil {
		r.teardown()
		return ErrNoDisplay
	}

	for idx := 0; ; idx++ {
		con, ok := r.host.Consoles.Console(idx)
		if !ok {
			break
		}
		if !con.IsGraphic() {
			continue
		}
		if len(r.bridges) >= r.opts.DisplayLimit {
			logger.Warn("Display limit reached, ignoring remaining consoles", "limit", r.opts.DisplayLimit)
			break
		}

		first := len(r.bridges) == 0
		var seg shmif.Segment = r.primary
		if !first {
			sub, err := r.requestSegment(ctx)
			if errors.Is(err, shmif.ErrRefused) {
				r.teardown()
				return fmt.Errorf("console %d: %w", idx, err)
			}
			if err != nil {
				if ctx.Err() != nil {
					r.teardown()
					return ctx.Err()
				}
				if errors.Is(err, shmif.ErrDeclined) || errors.Is(err, context.DeadlineExceeded) {
					logger.Info("Compositor declined more displays", "console", idx)
				} else {
					logger.Warn("Subsegment negotiation failed", "console", idx, "error", err)
				}
				break
			}
			seg = sub
		}

		b := newBridge(r, idx, con, seg)
		if r.params.Accelerated {
			r.setupAccel(b)
		}
		r.bridges = append(r.bridges, b)
		if err := con.Register(b); err != nil {
			r.bridges = r.bridges[:len(r.bridges)-1]
			if first {
				r.teardown()
				return fmt.Errorf("%w: register console %d: %w", ErrNoDisplay, idx, err)
			}
			logger.Warn("Console listener registration failed", "console", idx, "error", err)
			_ = b.drop()
			break
		}
		con.SetRefreshInterval(r.opts.RefreshInterval)
		logger.Debug("Display attached", "console", idx, "segment", seg.ID())
	}

	if len(r.bridges) == 0 {
		r.teardown()
		return ErrNoDisplay
	}
	return nil
}

func (r *Registry) requestSegment(ctx context.Context) (shmif.Segment, error) {
	if r.opts.SubsegmentTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.SubsegmentTimeout)
		defer cancel()
	}
	return r.primary.RequestSubsegment(ctx, shmif.KindVM)
}

func (r *Registry) setupAccel(b *Bridge) {
	acc, ok := b.segment.(shmif.Accelerated)
	if !ok {
		logger.Warn("Segment cannot forward textures, using CPU transfer", "display", b.index)
		return
	}
	if err := acc.SetupAccel(shmif.AccelConfig{BuiltinFBO: false}); err != nil {
		logger.Warn("GPU setup failed, using CPU transfer", "display", b.index, "error", err)
	}
}

// teardown drops every segment acquired so far, the primary included
func (r *Registry) teardown() {
	_ = r.closeLocked()
}

// Close detaches every bridge and drops each segment exactly once
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closeLocked()
}

func (r *Registry) closeLocked() error {
	if r.closed {
		return nil
	}

	var errs []error
	primaryDropped := false
	for _, b := range r.bridges {
		if b.console != nil {
			b.console.Unregister(b)
		}
		if r.isPrimary(b.segment) {
			primaryDropped = true
		}
		if err := b.drop(); err != nil {
			errs = append(errs, fmt.Errorf("display %d: %w", b.index, err))
		}
	}
	if !primaryDropped && r.primary != nil {
		if err := r.primary.Drop(); err != nil {
			errs = append(errs, fmt.Errorf("primary: %w", err))
		}
	}
	r.bridges = nil
	r.primary = nil
	r.closed = true
	return errors.Join(errs...)
}

// Remove detaches a single secondary bridge. The primary bridge can only go
// away with Close.
func (r *Registry) Remove(b *Bridge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, cur := range r.bridges {
		if cur != b {
			continue
		}
		if r.isPrimary(b.segment) {
			return fmt.Errorf("display %d holds the primary segment", b.index)
		}
		if b.console != nil {
			b.console.Unregister(b)
		}
		r.bridges = append(r.bridges[:i], r.bridges[i+1:]...)
		return b.drop()
	}
	return fmt.Errorf("display %d is not registered", b.index)
}

// Bridges returns a snapshot of the active bridges in console order
func (r *Registry) Bridges() []*Bridge {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Bridge(nil), r.bridges...)
}

// Len returns the number of active bridges
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bridges)
}

// Primary returns the primary segment, nil once closed
func (r *Registry) Primary() shmif.Primary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.primary
}

// Params returns the negotiated connection parameters
func (r *Registry) Params() config.Params {
	return r.params
}

// Contexts returns the GPU context pool shared by all bridges
func (r *Registry) Contexts() *ContextPool {
	return r.contexts
}

// SetInstanceName changes the name announced in identification strings
func (r *Registry) SetInstanceName(name string) {
	r.mu.Lock()
	r.opts.InstanceName = name
	r.mu.Unlock()
	r.UpdateTitles()
}

// SetLEDState records the guest lock indicators and re-announces titles
func (r *Registry) SetLEDState(s LEDState) {
	r.mu.Lock()
	r.leds = s
	r.mu.Unlock()
	r.UpdateTitles()
}

// UpdateTitles sends the identification string of every mapped display
func (r *Registry) UpdateTitles() {
	r.mu.Lock()
	bridges := append([]*Bridge(nil), r.bridges...)
	leds, name := r.leds, r.opts.InstanceName
	r.mu.Unlock()

	running := r.host.Machine != nil && r.host.Machine.IsRunning()
	for _, b := range bridges {
		if !b.usable() {
			continue
		}
		ident := FormatIdent(b.index, leds, name, running)
		if err := b.segment.Enqueue(shmif.Ident(ident)); err != nil {
			b.log.Debug("Failed to announce display", "error", err)
		}
	}
}

// Refresh ticks every bridge once
func (r *Registry) Refresh() {
	for _, b := range r.Bridges() {
		b.Refresh()
	}
}
