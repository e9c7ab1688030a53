// Package layout computes non-overlapping positions for the tables of an
// entity-relationship diagram.
//
// # Overview
//
// The layout is a deterministic greedy heuristic. Highly connected "hub"
// tables are placed near the canvas center, their neighbors are clustered
// around them, and tables with exactly one connection (single children) are
// stacked directly beneath their only neighbor. Tables without any
// connection are tiled into the bottom-right corner so they never compete
// for center space.
//
// A run goes through a fixed sequence of phases:
//
//   - [PhaseOrphans]: tables with no connections, tiled in rows of
//     [Config.OrphanRowSize] from the bottom-right corner.
//   - [PhaseFlag]: the highest-ranked unplaced table with more than one
//     connection becomes the "flag" and is placed near the canvas center
//     together with its stacked single children.
//   - [PhaseCluster]: unplaced tables connected to the current flag are
//     placed around it, best-connected first. When none remain a new flag is
//     selected.
//   - [PhaseResidualStack]: single children whose parent was not reached
//     earlier are stacked beneath their parent, relocating the parent's
//     stack when there is no room.
//   - [PhaseResidualGrid]: any remaining table is placed by a grid scan from
//     the bottom-left corner.
//
// # Ordering
//
// Every decision that depends on order uses the same rule: connection count
// descending, then table name ascending (ordinal byte comparison). Two runs
// over equal input produce identical positions.
//
// # Free-position search
//
// Placement candidates are probed on expanding rings around an anchor (the
// canvas center or the current flag's center). The first free slot on the
// smallest ring wins. When no ring yields space the canvas grows by
// [Config.GrowWidth] or [Config.GrowHeight] and the block goes to the new
// edge. Growth is bounded by [Config.MaxGrowths].
//
// # Usage
//
//	metrics := layout.DefaultMetrics()
//	layout.ApplyDimensions(s, metrics)
//	res, err := layout.Place(s, layout.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res.Canvas.Width, res.Canvas.Height, len(res.Overlaps))
//
// [Place] computes dimensions itself; calling [ApplyDimensions] first is only
// needed when sizes are required before placement.
package layout
