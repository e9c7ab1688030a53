package pipeline

import (
	"github.com/charmbracelet/log"

	"github.com/matzehuels/schemaplot/pkg/layout"
	"github.com/matzehuels/schemaplot/pkg/schema"
)

// logObserver reports planner events as debug log lines.
type logObserver struct {
	logger *log.Logger
}

func (o logObserver) OnPhase(p layout.Phase) {
	o.logger.Debug("layout phase", "phase", p)
}

func (o logObserver) OnPlace(p layout.Phase, t *schema.Table) {
	o.logger.Debug("placed table", "phase", p, "table", t.Name, "x", t.X, "y", t.Y, "w", t.Width, "h", t.Height)
}

func (o logObserver) OnGrow(c layout.Canvas) {
	o.logger.Debug("canvas grown", "width", c.Width, "height", c.Height)
}
