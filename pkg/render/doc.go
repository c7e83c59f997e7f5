// Package render draws skill trees with Graphviz.
//
// # Overview
//
// The editor core owns positions, so rendering never lays anything out.
// [ToDOT] writes an undirected DOT graph in which every node is pinned at
// its canvas position (pos="x,y!") and sized like its bounding rectangle.
// Rendering that DOT with the neato engine reproduces the canvas exactly:
//
//	dot := render.ToDOT(store, render.Options{Dark: true})
//	svg, err := render.RenderSVG(ctx, dot)
//
// Canvas coordinates grow downwards; Graphviz coordinates grow upwards, so
// y is negated on the way out.
//
// # Themes
//
// [Dark] and [Light] mirror the two editor themes. The central node is
// drawn with an accent fill, selected nodes with a highlighted border.
//
// # Formats
//
// [Render] produces SVG, PNG or the DOT source itself. SVG output has its
// viewBox normalized to start at the origin so it embeds cleanly.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process rendering;
// no Graphviz installation is required.
package render
