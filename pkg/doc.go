// Package pkg provides the core libraries for skill-tree editing.
//
// # Overview
//
// A skill tree is a central skill with labeled nodes connected around it,
// kept connected to the central node at all times. The pkg directory is
// organized by concern:
//
//  1. [graph] - Node and connection storage with positions and sizes
//  2. [connectivity] - Reachability from the central node and orphan repair
//  3. [edit] - Tree mutations (add child, remove, split, link, move)
//  4. [selection] - Click, box and group-drag selection state
//  5. [session] - One editing session serializing all of the above
//  6. [token] - The compact string form of a tree
//  7. [clipboard] - Token sharing over pluggable key-value stores
//  8. [render] - Graphviz DOT, SVG and PNG output
//
// # Architecture
//
// The typical data flow:
//
//	Host gesture (terminal key, mouse, HTTP request)
//	         ↓
//	    [session] Do (serialized event handler)
//	         ↓
//	    [edit] package (mutation + immediate reconcile)
//	         ↓
//	    [connectivity] package (reattach orphans)
//	         ↓
//	    [token] / [render] output
//
// # Quick Start
//
//	sess := session.New(session.Options{})
//	go sess.Run(ctx, session.DefaultTick)
//
//	tok, err := sess.Export()
//	// share tok, then later:
//	_, err = sess.Import(tok)
//
// Supporting packages: [errors] for coded errors shared by every layer,
// [observability] for metric hooks, and [buildinfo] for version data.
package pkg
