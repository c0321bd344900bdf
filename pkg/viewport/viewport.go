// Package viewport tunes the external layout engine for the active view and
// fits the camera once the layout has settled.
//
// The controller moves through four named states:
//
//	Idle                 nothing scheduled
//	RetunePending        a resize or graph change is waiting out the debounce
//	AwaitingSettle       forces were retuned and auto-fit is armed
//	AwaitingSecondaryFit the first fit ran; a tighter one follows shortly
//
// AwaitingSecondaryFit exists because some layout engines report settled
// while nodes are still drifting. Engines that settle precisely can run
// with a zero secondary delay.
package viewport

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/ritzau/cpg-explorer/pkg/debounce"
	"github.com/ritzau/cpg-explorer/pkg/logging"
	"github.com/ritzau/cpg-explorer/pkg/viewmodel"
)

type State int

const (
	Idle State = iota
	RetunePending
	AwaitingSettle
	AwaitingSecondaryFit
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case RetunePending:
		return "retune-pending"
	case AwaitingSettle:
		return "awaiting-settle"
	case AwaitingSecondaryFit:
		return "awaiting-secondary-fit"
	default:
		return "unknown"
	}
}

// Fit is a camera fit request.
type Fit struct {
	Duration time.Duration `json:"duration"`
	Padding  int           `json:"padding"`
}

var (
	FirstFit  = Fit{Duration: 460 * time.Millisecond, Padding: 92}
	SecondFit = Fit{Duration: 260 * time.Millisecond, Padding: 102}
	ResetFit  = Fit{Duration: 560 * time.Millisecond, Padding: 98}
)

const (
	DefaultRetuneDelay       = 180 * time.Millisecond
	DefaultSecondaryFitDelay = 130 * time.Millisecond
)

// LayoutEngine is the force-directed renderer. Distances are given per
// link, in model order.
type LayoutEngine interface {
	SetCharge(strength float64)
	SetLinkDistances(distances []float64)
	Reheat()
	ZoomToFit(f Fit)
}

// Size is the canvas size in pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Charge returns the node repulsion strength for view.
func Charge(view viewmodel.ViewMode) float64 {
	switch view {
	case viewmodel.ViewPackages:
		return -230
	case viewmodel.ViewTypes:
		return -210
	case viewmodel.ViewDataflow:
		return -170
	default:
		return -145
	}
}

// LinkDistance returns the target length of l in view.
func LinkDistance(view viewmodel.ViewMode, l viewmodel.GraphLink) float64 {
	switch view {
	case viewmodel.ViewPackages:
		weight := l.Weight
		if weight == 0 {
			weight = 1
		}
		return math.Max(72, 230-weight*8)
	case viewmodel.ViewDataflow:
		if l.Kind == "dfg" {
			return 95
		}
		return 122
	case viewmodel.ViewTypes:
		if l.Kind == "implements" {
			return 138
		}
		return 105
	default:
		return 118
	}
}

type Options struct {
	RetuneDelay       time.Duration
	SecondaryFitDelay time.Duration
}

// Controller drives a LayoutEngine from resize, graph and settle signals.
// Engine methods are never called with the controller lock held.
type Controller struct {
	engine         LayoutEngine
	retune         *debounce.Debouncer
	secondaryDelay time.Duration

	mu         sync.Mutex
	state      State
	size       Size
	model      viewmodel.Model
	pendingFit bool
	secondary  *time.Timer
	gen        uint64
	onState    func(State)
}

func New(ctx context.Context, engine LayoutEngine, opts Options) *Controller {
	if opts.RetuneDelay <= 0 {
		opts.RetuneDelay = DefaultRetuneDelay
	}
	if opts.SecondaryFitDelay < 0 {
		opts.SecondaryFitDelay = 0
	}
	return &Controller{
		engine:         engine,
		retune:         debounce.New(ctx, "viewport", opts.RetuneDelay),
		secondaryDelay: opts.SecondaryFitDelay,
	}
}

// OnStateChange registers fn to observe state transitions.
func (c *Controller) OnStateChange(fn func(State)) {
	c.mu.Lock()
	c.onState = fn
	c.mu.Unlock()
}

// setState updates the state and returns the observer to call after
// unlocking. Callers hold mu.
func (c *Controller) setState(s State) func() {
	if c.state == s {
		return func() {}
	}
	logging.Trace("viewport state", "from", c.state, "to", s)
	c.state = s
	fn := c.onState
	if fn == nil {
		return func() {}
	}
	return func() { fn(s) }
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Size() Size {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Resize records the canvas size and schedules a retune.
func (c *Controller) Resize(width, height int) {
	c.mu.Lock()
	c.size = Size{Width: max(1, width), Height: max(1, height)}
	c.mu.Unlock()
	c.schedule()
}

// GraphChanged records the new model and schedules a retune.
func (c *Controller) GraphChanged(m viewmodel.Model) {
	c.mu.Lock()
	c.model = m
	c.mu.Unlock()
	c.schedule()
}

func (c *Controller) schedule() {
	c.mu.Lock()
	if c.model.IsEmpty() || c.size.Width <= 1 || c.size.Height <= 1 {
		c.gen++
		notify := func() {}
		if c.state == RetunePending {
			notify = c.setState(Idle)
		}
		c.mu.Unlock()
		c.retune.Cancel()
		notify()
		return
	}
	c.gen++
	gen := c.gen
	notify := c.setState(RetunePending)
	c.mu.Unlock()
	notify()

	c.retune.Schedule(func(ctx context.Context) {
		c.apply(ctx, gen)
	})
}

// apply pushes forces for the current model and arms auto-fit.
func (c *Controller) apply(ctx context.Context, gen uint64) {
	c.mu.Lock()
	if ctx.Err() != nil || gen != c.gen {
		c.mu.Unlock()
		return
	}
	view := c.model.View
	distances := make([]float64, len(c.model.Links))
	for i, l := range c.model.Links {
		distances[i] = LinkDistance(view, l)
	}
	c.pendingFit = true
	notify := c.setState(AwaitingSettle)
	c.mu.Unlock()
	notify()

	logging.Debug("retuning layout", "view", view, "links", len(distances))
	c.engine.SetCharge(Charge(view))
	c.engine.SetLinkDistances(distances)
	c.engine.Reheat()
}

// Settled is called by the layout engine when its simulation stops. When
// auto-fit is armed it runs the two-stage fit and disarms.
func (c *Controller) Settled() {
	c.mu.Lock()
	if !c.pendingFit {
		c.mu.Unlock()
		return
	}
	c.pendingFit = false
	if c.secondary != nil {
		c.secondary.Stop()
	}
	gen := c.gen
	notify := c.setState(AwaitingSecondaryFit)
	c.secondary = time.AfterFunc(c.secondaryDelay, func() {
		c.mu.Lock()
		if gen != c.gen || c.state != AwaitingSecondaryFit {
			c.mu.Unlock()
			return
		}
		c.secondary = nil
		notify := c.setState(Idle)
		c.mu.Unlock()
		notify()

		c.engine.ZoomToFit(SecondFit)
	})
	c.mu.Unlock()
	notify()

	c.engine.ZoomToFit(FirstFit)
}

// Reset reheats the layout and fits once, immediately.
func (c *Controller) Reset() {
	c.engine.Reheat()
	c.engine.ZoomToFit(ResetFit)
}

// Close stops all pending work.
func (c *Controller) Close() {
	c.retune.Cancel()
	c.mu.Lock()
	c.gen++
	if c.secondary != nil {
		c.secondary.Stop()
		c.secondary = nil
	}
	c.pendingFit = false
	notify := c.setState(Idle)
	c.mu.Unlock()
	notify()
}
