package layout

// Area is an occupied rectangle, already inflated by the tracker margin.
// X2 and Y2 are exclusive.
type Area struct {
	X1, Y1, X2, Y2 int
	Owner          string
}

func (a Area) intersects(b Area) bool {
	return a.X1 < b.X2 && b.X1 < a.X2 && a.Y1 < b.Y2 && b.Y1 < a.Y2
}

// Tracker records occupied areas and answers free-space queries.
//
// Areas are only ever appended. Queries scan the full list, which is fine
// for diagrams of a few hundred tables; a spatial grid could replace the
// scan without changing the Tracker API.
type Tracker struct {
	margin int
	areas  []Area
}

// NewTracker returns an empty tracker inflating every rectangle by margin.
func NewTracker(margin int) *Tracker {
	return &Tracker{margin: margin}
}

func (t *Tracker) inflate(owner string, x, y, w, h int) Area {
	return Area{
		X1:    x - t.margin,
		Y1:    y - t.margin,
		X2:    x + w + t.margin,
		Y2:    y + h + t.margin,
		Owner: owner,
	}
}

// Add registers the rectangle at (x, y) of size w×h as occupied by owner.
func (t *Tracker) Add(owner string, x, y, w, h int) {
	t.areas = append(t.areas, t.inflate(owner, x, y, w, h))
}

// IsFree reports whether the rectangle, inflated by the margin, intersects
// no occupied area.
func (t *Tracker) IsFree(x, y, w, h int) bool {
	return t.isFreeExcept(x, y, w, h, nil)
}

// isFreeExcept is IsFree ignoring areas whose owner is in skip.
func (t *Tracker) isFreeExcept(x, y, w, h int, skip map[string]bool) bool {
	q := t.inflate("", x, y, w, h)
	for _, a := range t.areas {
		if skip[a.Owner] {
			continue
		}
		if q.intersects(a) {
			return false
		}
	}
	return true
}

// Areas returns a copy of the occupied areas in registration order.
func (t *Tracker) Areas() []Area {
	out := make([]Area, len(t.areas))
	copy(out, t.areas)
	return out
}

// Len returns the number of occupied areas.
func (t *Tracker) Len() int { return len(t.areas) }
