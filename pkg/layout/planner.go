package layout

import (
	"sync"

	"github.com/matzehuels/schemaplot/pkg/schema"
)

// Phase identifies a stage of a layout run.
type Phase string

// Layout phases, in execution order.
const (
	PhaseOrphans       Phase = "orphans"
	PhaseFlag          Phase = "flag"
	PhaseCluster       Phase = "cluster"
	PhaseResidualStack Phase = "residual-stack"
	PhaseResidualGrid  Phase = "residual-grid"
)

// Canvas is the drawing area. Width and Height grow during a run; the
// center is fixed at the center of the initial size.
type Canvas struct {
	Width   int `json:"width"`
	Height  int `json:"height"`
	CenterX int `json:"center_x"`
	CenterY int `json:"center_y"`
}

// Observer receives placement events. Calls happen synchronously on the
// goroutine running the layout.
type Observer interface {
	OnPhase(phase Phase)
	OnPlace(phase Phase, t *schema.Table)
	OnGrow(c Canvas)
}

// NoopObserver ignores all events.
type NoopObserver struct{}

func (NoopObserver) OnPhase(Phase)                {}
func (NoopObserver) OnPlace(Phase, *schema.Table) {}
func (NoopObserver) OnGrow(Canvas)                {}

// Option configures a layout run.
type Option func(*options)

type options struct {
	observer Observer
}

// WithObserver reports placement events to o.
func WithObserver(o Observer) Option {
	return func(opts *options) {
		if o != nil {
			opts.observer = o
		}
	}
}

// Result summarizes a finished layout run. Table positions are written to
// the schema's tables.
type Result struct {
	Canvas       Canvas
	Connectivity *Connectivity

	Placed   int
	Unplaced []string
	Growths  int

	Overlaps         []Overlap
	ConnectionLength float64
	CenterCount      int
}

// Place lays out every table of s on a fresh [State].
func Place(s *schema.Schema, cfg Config, opts ...Option) (*Result, error) {
	st, err := NewState(s, cfg, opts...)
	if err != nil {
		return nil, err
	}
	return st.Run()
}

// Planner runs layouts with a fixed configuration. Runs through the same
// Planner are serialized, so its observer never sees interleaved events.
type Planner struct {
	mu   sync.Mutex
	cfg  Config
	opts []Option
	runs int
}

// NewPlanner returns a planner for cfg.
func NewPlanner(cfg Config, opts ...Option) *Planner {
	return &Planner{cfg: cfg, opts: opts}
}

// Place lays out s. It blocks while another run of p is in progress.
func (p *Planner) Place(s *schema.Schema) (*Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.runs++
	return Place(s, p.cfg, p.opts...)
}

// Runs returns the number of layouts p has started.
func (p *Planner) Runs() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runs
}

// State is the mutable state of one layout run: the schema being placed,
// the occupied-area tracker and the canvas. A State must not be shared.
type State struct {
	cfg     Config
	schema  *schema.Schema
	conn    *Connectivity
	ranked  []*schema.Table
	tracker *Tracker
	canvas  Canvas
	obs     Observer
	phase   Phase

	placed  int
	growths int

	// stacks maps a parent to the children stacked beneath it, top to bottom.
	stacks map[string][]string
}

// NewState validates cfg, clears previous placement on s, sizes every table
// and analyzes connectivity.
func NewState(s *schema.Schema, cfg Config, opts ...Option) (*State, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{observer: NoopObserver{}}
	for _, opt := range opts {
		opt(&o)
	}

	s.ResetPlacement()
	ApplyDimensions(s, cfg.Metrics)
	conn := Analyze(s)

	return &State{
		cfg:     cfg,
		schema:  s,
		conn:    conn,
		ranked:  Ranked(s),
		tracker: NewTracker(cfg.Margin),
		canvas: Canvas{
			Width:   cfg.CanvasWidth,
			Height:  cfg.CanvasHeight,
			CenterX: cfg.CanvasWidth / 2,
			CenterY: cfg.CanvasHeight / 2,
		},
		obs:    o.observer,
		stacks: make(map[string][]string),
	}, nil
}

// Canvas returns the current canvas.
func (s *State) Canvas() Canvas { return s.canvas }

// Tracker returns the occupied-area tracker.
func (s *State) Tracker() *Tracker { return s.tracker }

// Connectivity returns the connectivity analysis of the schema.
func (s *State) Connectivity() *Connectivity { return s.conn }

// Run executes every phase and returns the result. A State runs once.
func (s *State) Run() (*Result, error) {
	phases := []struct {
		phase Phase
		run   func() error
	}{
		{PhaseOrphans, s.placeOrphans},
		{PhaseFlag, s.placeClusters},
		{PhaseResidualStack, s.stackResiduals},
		{PhaseResidualGrid, s.placeGrid},
	}
	for _, p := range phases {
		if s.full() {
			break
		}
		s.enter(p.phase)
		if err := p.run(); err != nil {
			return nil, err
		}
	}
	return s.result(), nil
}

func (s *State) result() *Result {
	res := &Result{
		Canvas:       s.canvas,
		Connectivity: s.conn,
		Placed:       s.placed,
		Growths:      s.growths,
	}
	for _, t := range s.schema.Tables() {
		if !t.Placed {
			res.Unplaced = append(res.Unplaced, t.Name)
		}
	}
	res.Overlaps = VerifyNoOverlaps(s.schema)
	res.ConnectionLength = ConnectionLength(s.schema, s.conn)
	res.CenterCount = CenterCount(s.schema, s.canvas, s.cfg.CenterReserve)
	return res
}

func (s *State) enter(p Phase) {
	if s.phase == p {
		return
	}
	s.phase = p
	s.obs.OnPhase(p)
}

// full reports whether the MaxTables cutoff has been reached.
func (s *State) full() bool {
	return s.cfg.MaxTables > 0 && s.placed >= s.cfg.MaxTables
}

func (s *State) place(t *schema.Table, x, y int) {
	t.X, t.Y = x, y
	t.Placed = true
	s.tracker.Add(t.Name, x, y, t.Width, t.Height)
	s.placed++
	s.obs.OnPlace(s.phase, t)
}

// placeOrphans tiles unconnected tables into the bottom-right corner, rows
// bottom to top and each row right to left.
func (s *State) placeOrphans() error {
	var orphans []*schema.Table
	for _, t := range s.schema.Tables() {
		if t.Connections == 0 {
			orphans = append(orphans, t)
		}
	}
	if len(orphans) == 0 {
		return nil
	}

	m := s.cfg.Margin
	var rows [][]*schema.Table
	for i := 0; i < len(orphans); i += s.cfg.OrphanRowSize {
		rows = append(rows, orphans[i:min(i+s.cfg.OrphanRowSize, len(orphans))])
	}

	rowHeights := make([]int, len(rows))
	blockW, blockH := 0, m*(len(rows)-1)
	for i, row := range rows {
		rowW := m * (len(row) - 1)
		for _, t := range row {
			rowW += t.Width
			rowHeights[i] = max(rowHeights[i], t.Height)
		}
		blockW = max(blockW, rowW)
		blockH += rowHeights[i]
	}

	// The block plus a margin on each side must fit right of and below the
	// center region.
	needW := blockW + 2*m - (s.canvas.Width - s.canvas.CenterX - s.cfg.CenterReserve)
	needH := blockH + 2*m - (s.canvas.Height - s.canvas.CenterY - s.cfg.CenterReserve)
	if needW > 0 {
		if err := s.grow(needW, 0); err != nil {
			return err
		}
	}
	if needH > 0 {
		if err := s.grow(0, needH); err != nil {
			return err
		}
	}

	y := s.canvas.Height - m
	for i := len(rows) - 1; i >= 0; i-- {
		y -= rowHeights[i]
		x := s.canvas.Width - m
		for j := len(rows[i]) - 1; j >= 0; j-- {
			if s.full() {
				return nil
			}
			t := rows[i][j]
			x -= t.Width
			s.place(t, x, y)
			x -= m
		}
		y -= m
	}
	return nil
}

// placeClusters alternates flag selection and cluster expansion until no
// unplaced table with more than one connection remains.
func (s *State) placeClusters() error {
	for !s.full() {
		flag := s.nextFlag()
		if flag == nil {
			return nil
		}
		s.enter(PhaseFlag)
		if err := s.placeBlock(flag, s.centerAnchor(), s.cfg.Center); err != nil {
			return err
		}

		s.enter(PhaseCluster)
		for !s.full() {
			cand := s.bestCandidate(flag)
			if cand == nil {
				break
			}
			if err := s.placeBlock(cand, tableAnchor(flag), s.cfg.Near); err != nil {
				return err
			}
		}
	}
	return nil
}

// nextFlag returns the highest-ranked unplaced table with more than one
// connection.
func (s *State) nextFlag() *schema.Table {
	for _, t := range s.ranked {
		if !t.Placed && t.Connections > 1 {
			return t
		}
	}
	return nil
}

// bestCandidate returns the unplaced multi-connection table sharing the most
// edges with flag, or nil when none shares any. Ties keep rank order.
func (s *State) bestCandidate(flag *schema.Table) *schema.Table {
	var best *schema.Table
	bestScore := 0
	for _, t := range s.ranked {
		if t.Placed || t.Connections <= 1 {
			continue
		}
		if score := s.conn.EdgesBetween(t.Name, flag.Name); score > bestScore {
			best, bestScore = t, score
		}
	}
	return best
}

// placeBlock reserves the combined block of t and its unplaced single
// children, places t at the top-left of the block and stacks the children
// beneath it.
func (s *State) placeBlock(t *schema.Table, a anchor, ring RingParams) error {
	children := s.pendingChildren(t.Name)
	w, h := t.Width, t.Height
	for _, c := range children {
		w = max(w, c.Width)
		h += c.Height
	}

	x, y, err := s.search(a, w, h, ring)
	if err != nil {
		return err
	}
	s.place(t, x, y)
	s.stack(t, children)
	return nil
}

func (s *State) pendingChildren(parent string) []*schema.Table {
	var out []*schema.Table
	for _, name := range s.conn.Children[parent] {
		if c := s.schema.Table(name); !c.Placed {
			out = append(out, c)
		}
	}
	return out
}

// stackBottom returns the y coordinate just below parent's current stack.
func (s *State) stackBottom(parent *schema.Table) int {
	y := parent.Y + parent.Height
	for _, name := range s.stacks[parent.Name] {
		y += s.schema.Table(name).Height
	}
	return y
}

// stack places children beneath parent's current stack, touching and
// left-aligned with the parent.
func (s *State) stack(parent *schema.Table, children []*schema.Table) {
	y := s.stackBottom(parent)
	for _, c := range children {
		if s.full() {
			return
		}
		s.place(c, parent.X, y)
		s.stacks[parent.Name] = append(s.stacks[parent.Name], c.Name)
		y += c.Height
	}
}

// stackResiduals places single children that were not reached through
// their parent.
func (s *State) stackResiduals() error {
	var (
		groups = make(map[string][]*schema.Table)
		order  []string
	)
	for _, t := range s.schema.Tables() {
		if s.full() {
			return nil
		}
		if t.Placed || t.Connections != 1 {
			continue
		}

		parentName, ok := s.conn.Parent[t.Name]
		if !ok {
			x, y, err := s.search(s.centerAnchor(), t.Width, t.Height, s.cfg.Center)
			if err != nil {
				return err
			}
			s.place(t, x, y)
			continue
		}

		parent := s.schema.Table(parentName)
		if !parent.Placed {
			if err := s.placeBlock(parent, s.centerAnchor(), s.cfg.Center); err != nil {
				return err
			}
			continue
		}
		if _, seen := groups[parentName]; !seen {
			order = append(order, parentName)
		}
		groups[parentName] = append(groups[parentName], t)
	}

	for _, name := range order {
		if s.full() {
			return nil
		}
		if err := s.attach(s.schema.Table(name), groups[name]); err != nil {
			return err
		}
	}
	return nil
}

// attach stacks children under an already placed parent. When the space
// below the parent's stack is taken, the parent, its existing stack and the
// new children move together to a free position.
func (s *State) attach(parent *schema.Table, children []*schema.Table) error {
	gw, gh := 0, 0
	for _, c := range children {
		gw = max(gw, c.Width)
		gh += c.Height
	}

	x, y := parent.X, s.stackBottom(parent)
	skip := map[string]bool{parent.Name: true}
	for _, name := range s.stacks[parent.Name] {
		skip[name] = true
	}
	b := s.cfg.Border
	inside := x >= b && x+gw+b <= s.canvas.Width && y+gh+b <= s.canvas.Height
	if inside && s.tracker.isFreeExcept(x, y, gw, gh, skip) {
		s.stack(parent, children)
		return nil
	}

	bw, bh := max(parent.Width, gw), parent.Height+gh
	for _, name := range s.stacks[parent.Name] {
		c := s.schema.Table(name)
		bw = max(bw, c.Width)
		bh += c.Height
	}
	nx, ny, err := s.search(s.centerAnchor(), bw, bh, s.cfg.Center)
	if err != nil {
		return err
	}
	s.relocate(parent, nx, ny)
	s.stack(parent, children)
	return nil
}

// relocate moves a placed parent and its stack to (x, y). The old areas
// stay registered.
func (s *State) relocate(parent *schema.Table, x, y int) {
	parent.X, parent.Y = x, y
	s.tracker.Add(parent.Name, x, y, parent.Width, parent.Height)
	s.obs.OnPlace(s.phase, parent)

	bottom := y + parent.Height
	for _, name := range s.stacks[parent.Name] {
		c := s.schema.Table(name)
		c.X, c.Y = x, bottom
		s.tracker.Add(c.Name, c.X, c.Y, c.Width, c.Height)
		s.obs.OnPlace(s.phase, c)
		bottom += c.Height
	}
}

// placeGrid places every remaining table by rank with a bottom-left grid
// scan.
func (s *State) placeGrid() error {
	for _, t := range s.ranked {
		if s.full() {
			return nil
		}
		if t.Placed {
			continue
		}
		x, y, err := s.gridSearch(t.Width, t.Height)
		if err != nil {
			return err
		}
		s.place(t, x, y)
	}
	return nil
}
