package web

import (
	"github.com/ritzau/cpg-explorer/pkg/logging"
	"github.com/ritzau/cpg-explorer/pkg/pubsub"
	"github.com/ritzau/cpg-explorer/pkg/viewport"
)

// Viewport command event types.
const (
	CommandCharge        = "charge"
	CommandLinkDistances = "linkDistances"
	CommandReheat        = "reheat"
	CommandZoomToFit     = "zoomToFit"
)

// Engine drives the browser renderer's force layout by publishing
// commands on the viewport topic.
type Engine struct {
	publisher pubsub.Publisher
}

var _ viewport.LayoutEngine = (*Engine)(nil)

func NewEngine(p pubsub.Publisher) *Engine {
	return &Engine{publisher: p}
}

func (e *Engine) publish(command string, data any) {
	if err := e.publisher.Publish(pubsub.TopicViewport, command, data); err != nil {
		logging.Warn("could not publish viewport command", "command", command, "error", err)
	}
}

func (e *Engine) SetCharge(strength float64) {
	e.publish(CommandCharge, map[string]float64{"strength": strength})
}

func (e *Engine) SetLinkDistances(distances []float64) {
	e.publish(CommandLinkDistances, map[string][]float64{"distances": distances})
}

func (e *Engine) Reheat() {
	e.publish(CommandReheat, struct{}{})
}

func (e *Engine) ZoomToFit(f viewport.Fit) {
	e.publish(CommandZoomToFit, map[string]int64{
		"durationMs": f.Duration.Milliseconds(),
		"padding":    int64(f.Padding),
	})
}
