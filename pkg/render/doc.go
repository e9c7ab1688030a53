// Package render turns a positioned diagram into viewable output.
//
// Layout is never recomputed here: every renderer draws tables exactly where
// the diagram says they are.
//
// # Formats
//
//   - [FormatDOT]: Graphviz DOT source with pinned node positions ([ToDOT])
//   - [FormatSVG]: DOT laid out by neato with positions fixed ([RenderSVG])
//   - [FormatPNG]: a raster preview drawn directly with gg ([RenderPNG])
//   - [FormatXML]: WWW SQL Designer markup
//   - [FormatJSON]: the diagram itself
//
// [Render] dispatches on the format:
//
//	out, err := render.Render(ctx, d, render.FormatSVG, render.Options{})
//
// # Coordinates
//
// Diagram coordinates have their origin at the top-left corner with y growing
// downwards. Graphviz places the origin at the bottom-left, so [ToDOT] flips
// the y axis against the canvas height. Positions are written in points with
// inputscale=72, one diagram unit per point.
package render
