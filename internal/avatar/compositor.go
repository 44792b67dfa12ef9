package avatar

import (
	"context"
	"image"
	"sync"
	"time"

	"rewards_backend/internal/domain"
	"rewards_backend/internal/logger"
)

// CrossfadeDuration is the fade between two committed stacks.
const CrossfadeDuration = 150 * time.Millisecond

// Snapshot is the committed (visible) state of a compositor.
type Snapshot struct {
	Config     domain.AvatarConfig
	Layers     []Layer
	Generation uint64
	Fading     bool
}

type stack struct {
	cfg    domain.AvatarConfig
	layers []Layer
	frame  *image.RGBA
	gen    uint64
}

// Compositor keeps the visible avatar stack for one viewer. A new config is
// committed only once every asset it needs has resolved; until then the
// previous stack stays visible unchanged.
type Compositor struct {
	loader *Loader
	size   int
	now    func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	current   *stack
	previous  *stack
	fadeStart time.Time
	requested uint64
	wg        sync.WaitGroup
}

type CompositorOption func(*Compositor)

// WithNow overrides the clock used for crossfade timing.
func WithNow(now func() time.Time) CompositorOption {
	return func(c *Compositor) { c.now = now }
}

func NewCompositor(loader *Loader, size int, opts ...CompositorOption) *Compositor {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Compositor{
		loader: loader,
		size:   size,
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Update starts preloading cfg and returns a channel closed once the update
// is committed, superseded by a newer one, or dropped after Close.
func (c *Compositor) Update(cfg domain.AvatarConfig) <-chan struct{} {
	done := make(chan struct{})

	c.mu.Lock()
	if c.ctx.Err() != nil {
		c.mu.Unlock()
		close(done)
		return done
	}
	c.requested++
	gen := c.requested
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		defer close(done)

		layers := Resolve(cfg)
		images := c.loader.LoadAll(c.ctx, AssetsOf(layers))
		if c.ctx.Err() != nil {
			return
		}
		frame := Render(layers, images, c.size)

		c.commit(&stack{cfg: cfg, layers: layers, frame: frame, gen: gen})
	}()
	return done
}

func (c *Compositor) commit(next *stack) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ctx.Err() != nil || next.gen != c.requested {
		logger.Debug("avatar update superseded", "generation", next.gen)
		return
	}

	prev := c.current
	c.current = next
	c.previous = nil
	if prev != nil && needsCrossfade(prev.cfg, next.cfg) {
		c.previous = prev
		c.fadeStart = c.now()
	}
}

// Visible returns the committed state.
func (c *Compositor) Visible() (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return Snapshot{}, false
	}
	layers := make([]Layer, len(c.current.layers))
	copy(layers, c.current.layers)
	return Snapshot{
		Config:     c.current.cfg,
		Layers:     layers,
		Generation: c.current.gen,
		Fading:     c.previous != nil && c.now().Sub(c.fadeStart) < CrossfadeDuration,
	}, true
}

// Frame returns the image to show at now, blending during a crossfade.
func (c *Compositor) Frame(now time.Time) *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return image.NewRGBA(image.Rect(0, 0, c.size, c.size))
	}
	if c.previous == nil {
		return cloneRGBA(c.current.frame)
	}
	elapsed := now.Sub(c.fadeStart)
	if elapsed >= CrossfadeDuration {
		c.previous = nil
		return cloneRGBA(c.current.frame)
	}
	t := float64(elapsed) / float64(CrossfadeDuration)
	return Blend(c.previous.frame, c.current.frame, t)
}

// FadeStart returns when the current crossfade began and whether one is active.
func (c *Compositor) FadeStart() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fadeStart, c.previous != nil
}

// Warm preloads hair and garment assets of cfg for both genders in the
// background. Rendering never depends on it.
func (c *Compositor) Warm(cfg domain.AvatarConfig) {
	var paths []string
	for _, g := range []domain.Gender{domain.GenderMale, domain.GenderFemale} {
		variant := cfg
		variant.Gender = g
		for _, l := range Resolve(variant) {
			switch l.Slot() {
			case SlotHair, SlotShirt, SlotSweater:
				paths = append(paths, l.Assets()...)
			}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ctx.Err() != nil {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.loader.LoadAll(c.ctx, paths)
	}()
}

// Close cancels in-flight preloads. Results arriving later are discarded.
func (c *Compositor) Close() {
	c.mu.Lock()
	c.cancel()
	c.mu.Unlock()
	c.wg.Wait()
}
