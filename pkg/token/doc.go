// Package token converts a skill tree to and from its compact token string.
//
// # Overview
//
// A token is the whole tree plus the theme flag encoded as one JSON array.
// It is what users paste between sessions, and it travels over any string
// channel: a text field, a clipboard backend, an HTTP body. There is no
// version field.
//
// # Format
//
// The token is a three-element array:
//
//	[
//	  [["0", 350, 250, "Central Skill", true], ["1", 470, 250, "Go", false]],
//	  [["0", "1"]],
//	  true
//	]
//
// The first element lists nodes as [id, x, y, label, isCentral], the second
// lists connections as [id1, id2] and the third is the dark-mode flag.
// Ids are written as decimal strings and coordinates as integers. On input,
// ids may be strings or numbers, the central flag may be missing and the
// dark-mode flag is optional.
//
// # Import
//
// [Import] rejects input that is not JSON, not an array, shorter than two
// elements, carries malformed records or no nodes at all. Rejection leaves
// the target store untouched. Accepted tokens replace the store contents
// completely; id allocation restarts at zero and serialized ids are
// remapped:
//
//	res, err := token.Import(store, tok)
//	if err != nil {
//	    return err // INVALID_INPUT, store unchanged
//	}
//	fmt.Println(res.Nodes, "nodes,", res.Skipped, "connections skipped")
//
// # Export
//
// [Export] snapshots every node and connection. Node sizes are not part of
// the format and are restored to the default size on import:
//
//	tok, err := token.Export(store, darkMode)
//
// [Decode] parses a token without a store, and [Payload.Document] gives a
// named-field view for inspection tools.
package token
