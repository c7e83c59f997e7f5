package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	errs "github.com/matzehuels/skilltree/pkg/errors"
	"github.com/matzehuels/skilltree/pkg/graph"
	"github.com/matzehuels/skilltree/pkg/render"
	"github.com/matzehuels/skilltree/pkg/session"
	"github.com/matzehuels/skilltree/pkg/token"
)

// maxBody bounds request bodies; tokens are the largest payload.
const maxBody = errs.MaxTokenSize + 4096

type ctxKey struct{}

// =============================================================================
// Wire types
// =============================================================================

type pointJSON struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p pointJSON) point() graph.Point { return graph.Point{X: p.X, Y: p.Y} }

type nodeJSON struct {
	ID       graph.NodeID `json:"id"`
	X        float64      `json:"x"`
	Y        float64      `json:"y"`
	Width    float64      `json:"width"`
	Height   float64      `json:"height"`
	Label    string       `json:"label"`
	Central  bool         `json:"central,omitempty"`
	Selected bool         `json:"selected,omitempty"`
}

type connectionJSON struct {
	A graph.NodeID `json:"a"`
	B graph.NodeID `json:"b"`
}

type stateJSON struct {
	ID          string           `json:"id"`
	Revision    uint64           `json:"revision"`
	DarkMode    bool             `json:"dark_mode"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	Nodes       []nodeJSON       `json:"nodes"`
	Connections []connectionJSON `json:"connections"`
	Selection   []graph.NodeID   `json:"selection"`
	Orphans     []graph.NodeID   `json:"orphans,omitempty"`
}

type summaryJSON struct {
	ID        string    `json:"id"`
	Revision  uint64    `json:"revision"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type tokenJSON struct {
	Token string `json:"token"`
}

type codeJSON struct {
	Code string `json:"code"`
}

type importJSON struct {
	Nodes       int          `json:"nodes"`
	Connections int          `json:"connections"`
	Skipped     int          `json:"skipped"`
	Central     graph.NodeID `json:"central"`
	DarkMode    *bool        `json:"dark_mode,omitempty"`
}

func importResult(res token.Result) importJSON {
	return importJSON{
		Nodes:       res.Nodes,
		Connections: res.Connections,
		Skipped:     res.Skipped,
		Central:     res.Central,
		DarkMode:    res.DarkMode,
	}
}

type errorJSON struct {
	Error string    `json:"error"`
	Code  errs.Code `json:"code,omitempty"`
}

// =============================================================================
// Sessions
// =============================================================================

func (s *Server) listSessions(w http.ResponseWriter, _ *http.Request) {
	list := s.sessions.List()
	out := make([]summaryJSON, 0, len(list))
	for _, sess := range list {
		out = append(out, summaryJSON{
			ID:        sess.ID,
			Revision:  sess.Revision(),
			CreatedAt: sess.CreatedAt,
			UpdatedAt: sess.UpdatedAt(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// createSession starts a session, optionally seeded from a token.
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req tokenJSON
	if err := decodeOptional(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	// Validate before registering so a bad token leaves no session behind.
	if req.Token != "" {
		if _, err := token.Decode(req.Token); err != nil {
			s.writeError(w, err)
			return
		}
	}

	sess := s.NewSession()
	if req.Token != "" {
		if _, err := sess.Import(req.Token); err != nil {
			s.CloseSession(sess.ID)
			s.writeError(w, err)
			return
		}
	}
	st, err := snapshot(sess)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Location", "/api/sessions/"+sess.ID)
	writeJSON(w, http.StatusCreated, st)
}

func (s *Server) loadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.sessions.Get(chi.URLParam(r, "session"))
		if err != nil {
			s.writeError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, sess)))
	})
}

func current(r *http.Request) *session.Session {
	return r.Context().Value(ctxKey{}).(*session.Session)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	st, err := snapshot(current(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	s.CloseSession(current(r).ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	s.hub.Serve(w, r, current(r).ID)
}

// snapshot captures the session state. The tree and the selection are read
// in one critical section.
func snapshot(sess *session.Session) (stateJSON, error) {
	st := stateJSON{
		ID:        sess.ID,
		Revision:  sess.Revision(),
		DarkMode:  sess.DarkMode(),
		CreatedAt: sess.CreatedAt,
		UpdatedAt: sess.UpdatedAt(),
	}
	err := sess.View(func(tx *session.Tx) error {
		for _, n := range tx.Store.Nodes() {
			st.Nodes = append(st.Nodes, nodeJSON{
				ID:       n.ID,
				X:        n.Position.X,
				Y:        n.Position.Y,
				Width:    n.Size.Width,
				Height:   n.Size.Height,
				Label:    n.Label,
				Central:  n.Central,
				Selected: tx.Selection.Contains(n.ID),
			})
		}
		st.Connections = make([]connectionJSON, 0, tx.Store.ConnectionCount())
		for _, c := range tx.Store.Connections() {
			st.Connections = append(st.Connections, connectionJSON{A: c.A, B: c.B})
		}
		st.Selection = tx.Selection.IDs()
		st.Orphans = tx.Editor.Engine().Orphans()
		return nil
	})
	if st.Selection == nil {
		st.Selection = []graph.NodeID{}
	}
	return st, err
}

// =============================================================================
// Mutations
// =============================================================================

type addChildRequest struct {
	Parent graph.NodeID `json:"parent"`
	// At is the new node's position; it defaults to the spot right of the
	// parent.
	At    *pointJSON `json:"at,omitempty"`
	Label string     `json:"label"`
}

func (s *Server) addChild(w http.ResponseWriter, r *http.Request) {
	var req addChildRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	var id graph.NodeID
	err := current(r).Do(func(tx *session.Tx) error {
		pos, err := tx.Editor.ChildPosition(req.Parent)
		if err != nil {
			return err
		}
		if req.At != nil {
			pos = req.At.point()
		}
		id, err = tx.Editor.AddChild(req.Parent, pos, req.Label)
		return err
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeNode(w, r, http.StatusCreated, id)
}

type updateNodeRequest struct {
	At     *pointJSON `json:"at,omitempty"`
	Width  *float64   `json:"width,omitempty"`
	Height *float64   `json:"height,omitempty"`
	Label  *string    `json:"label,omitempty"`
}

// updateNode applies any combination of reposition, resize and rename.
func (s *Server) updateNode(w http.ResponseWriter, r *http.Request) {
	id, err := nodeParam(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req updateNodeRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	err = current(r).Do(func(tx *session.Tx) error {
		n, err := tx.Store.Node(id)
		if err != nil {
			return err
		}
		if req.At != nil {
			if err := tx.Editor.Reposition(id, req.At.point()); err != nil {
				return err
			}
		}
		if req.Width != nil || req.Height != nil {
			size := n.Size
			if req.Width != nil {
				size.Width = *req.Width
			}
			if req.Height != nil {
				size.Height = *req.Height
			}
			if err := tx.Editor.Resize(id, size); err != nil {
				return err
			}
		}
		if req.Label != nil {
			return tx.Editor.Rename(id, *req.Label)
		}
		return nil
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeNode(w, r, http.StatusOK, id)
}

func (s *Server) removeNode(w http.ResponseWriter, r *http.Request) {
	id, err := nodeParam(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	err = current(r).Do(func(tx *session.Tx) error {
		return tx.Editor.RemoveNode(id)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// link connects two nodes. Self and duplicate links answer 204.
func (s *Server) link(w http.ResponseWriter, r *http.Request) {
	var req connectionJSON
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	var created *graph.Connection
	err := current(r).Do(func(tx *session.Tx) error {
		var err error
		created, err = tx.Editor.Link(req.A, req.B)
		return err
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	if created == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusCreated, connectionJSON{A: created.A, B: created.B})
}

type splitRequest struct {
	A graph.NodeID `json:"a"`
	B graph.NodeID `json:"b"`
	// At defaults to the midpoint of the connection.
	At    *pointJSON `json:"at,omitempty"`
	Label string     `json:"label"`
}

func (s *Server) splitEdge(w http.ResponseWriter, r *http.Request) {
	var req splitRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	var id graph.NodeID
	err := current(r).Do(func(tx *session.Tx) error {
		pos, err := tx.Editor.Midpoint(req.A, req.B)
		if err != nil {
			return err
		}
		if req.At != nil {
			pos = req.At.point()
		}
		id, err = tx.Editor.SplitEdge(req.A, req.B, pos, req.Label)
		return err
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeNode(w, r, http.StatusCreated, id)
}

func (s *Server) reconcile(w http.ResponseWriter, r *http.Request) {
	res := current(r).Reconcile()
	linked := make([]connectionJSON, 0, len(res.Linked))
	for _, c := range res.Linked {
		linked = append(linked, connectionJSON{A: c.A, B: c.B})
	}
	writeJSON(w, http.StatusOK, map[string]any{"orphans": res.Orphans, "linked": linked})
}

// =============================================================================
// Selection
// =============================================================================

type clickRequest struct {
	ID       graph.NodeID `json:"id"`
	Modifier bool         `json:"modifier"`
}

type boxRequest struct {
	From pointJSON `json:"from"`
	To   pointJSON `json:"to"`
}

type dragRequest struct {
	From pointJSON `json:"from"`
	// Path lists the pointer positions of the drag; the last one is where
	// the group is dropped.
	Path []pointJSON `json:"path"`
}

type selectionJSON struct {
	Selection []graph.NodeID `json:"selection"`
	// Draggable is set by click when a drag may start from the clicked node.
	Draggable *bool `json:"draggable,omitempty"`
}

func (s *Server) getSelection(w http.ResponseWriter, r *http.Request) {
	var ids []graph.NodeID
	current(r).View(func(tx *session.Tx) error {
		ids = tx.Selection.IDs()
		return nil
	})
	writeSelection(w, ids, nil)
}

func (s *Server) clearSelection(w http.ResponseWriter, r *http.Request) {
	var ids []graph.NodeID
	current(r).Do(func(tx *session.Tx) error {
		tx.Selection.Clear()
		ids = tx.Selection.IDs()
		return nil
	})
	writeSelection(w, ids, nil)
}

func (s *Server) click(w http.ResponseWriter, r *http.Request) {
	var req clickRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	var (
		ids       []graph.NodeID
		draggable bool
	)
	err := current(r).Do(func(tx *session.Tx) error {
		if !tx.Store.HasNode(req.ID) {
			return errs.New(errs.ErrCodeNotFound, "node %d not found", req.ID)
		}
		draggable = tx.Selection.Click(req.ID, req.Modifier)
		ids = tx.Selection.IDs()
		return nil
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeSelection(w, ids, &draggable)
}

// boxSelect runs a whole box gesture from one request.
func (s *Server) boxSelect(w http.ResponseWriter, r *http.Request) {
	var req boxRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	var ids []graph.NodeID
	current(r).Do(func(tx *session.Tx) error {
		tx.Selection.BeginBox(req.From.point())
		tx.Selection.EndBox(req.To.point(), tx.Store.Nodes())
		ids = tx.Selection.IDs()
		return nil
	})
	writeSelection(w, ids, nil)
}

// drag moves the selected group along a pointer path. Orphans left behind
// are reattached by the next tick.
func (s *Server) drag(w http.ResponseWriter, r *http.Request) {
	var req dragRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if len(req.Path) == 0 {
		s.writeError(w, errs.New(errs.ErrCodeInvalidInput, "drag path is empty"))
		return
	}
	var ids []graph.NodeID
	err := current(r).Do(func(tx *session.Tx) error {
		tx.Selection.BeginDrag(tx.Store, req.From.point())
		defer tx.Selection.EndDrag()
		for _, p := range req.Path {
			if err := tx.Selection.DragTo(tx.Editor, p.point()); err != nil {
				return err
			}
		}
		ids = tx.Selection.IDs()
		return nil
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeSelection(w, ids, nil)
}

func writeSelection(w http.ResponseWriter, ids []graph.NodeID, draggable *bool) {
	if ids == nil {
		ids = []graph.NodeID{}
	}
	writeJSON(w, http.StatusOK, selectionJSON{Selection: ids, Draggable: draggable})
}

// =============================================================================
// Tokens, theme and rendering
// =============================================================================

func (s *Server) exportToken(w http.ResponseWriter, r *http.Request) {
	tok, err := current(r).Export()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenJSON{Token: tok})
}

func (s *Server) importToken(w http.ResponseWriter, r *http.Request) {
	var req tokenJSON
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	res, err := current(r).Import(req.Token)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, importResult(res))
}

func (s *Server) toggleTheme(w http.ResponseWriter, r *http.Request) {
	dark := current(r).ToggleTheme()
	writeJSON(w, http.StatusOK, map[string]bool{"dark_mode": dark})
}

// render draws the session with Graphviz. The format query parameter
// selects svg (default), png or dot.
func (s *Server) render(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("format")
	if name == "" {
		name = string(render.FormatSVG)
	}
	format, err := render.ParseFormat(name)
	if err != nil {
		s.writeError(w, err)
		return
	}

	sess := current(r)
	opts := render.Options{Dark: sess.DarkMode(), ShowIDs: r.URL.Query().Has("ids")}
	var dot string
	sess.View(func(tx *session.Tx) error {
		opts.Selected = tx.Selection.IDs()
		dot = render.ToDOT(tx.Store, opts)
		return nil
	})

	out, err := render.Render(r.Context(), dot, format)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}

// =============================================================================
// Clipboard
// =============================================================================

func (s *Server) clipWrite(w http.ResponseWriter, r *http.Request) {
	var req tokenJSON
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	code, err := s.board.Write(r.Context(), req.Token)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, codeJSON{Code: code})
}

func (s *Server) clipRead(w http.ResponseWriter, r *http.Request) {
	tok, err := s.board.Read(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenJSON{Token: tok})
}

// share exports the session and stores the token on the clipboard.
func (s *Server) share(w http.ResponseWriter, r *http.Request) {
	tok, err := current(r).Export()
	if err != nil {
		s.writeError(w, err)
		return
	}
	code, err := s.board.Write(r.Context(), tok)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, codeJSON{Code: code})
}

// paste imports the token stored under a share code.
func (s *Server) paste(w http.ResponseWriter, r *http.Request) {
	var req codeJSON
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	tok, err := s.board.Read(r.Context(), req.Code)
	if err != nil {
		s.writeError(w, err)
		return
	}
	res, err := current(r).Import(tok)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, importResult(res))
}

// =============================================================================
// Helpers
// =============================================================================

func nodeParam(r *http.Request) (graph.NodeID, error) {
	raw := chi.URLParam(r, "node")
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errs.New(errs.ErrCodeInvalidInput, "invalid node id %q", raw)
	}
	return graph.NodeID(n), nil
}

func (s *Server) writeNode(w http.ResponseWriter, r *http.Request, status int, id graph.NodeID) {
	var out nodeJSON
	err := current(r).View(func(tx *session.Tx) error {
		n, err := tx.Store.Node(id)
		if err != nil {
			return err
		}
		out = nodeJSON{
			ID:       n.ID,
			X:        n.Position.X,
			Y:        n.Position.Y,
			Width:    n.Size.Width,
			Height:   n.Size.Height,
			Label:    n.Label,
			Central:  n.Central,
			Selected: tx.Selection.Contains(id),
		}
		return nil
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, status, out)
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errs.Wrap(errs.ErrCodeInvalidInput, err, "invalid request body")
	}
	return nil
}

// decodeOptional is decode for endpoints whose body may be empty.
func decodeOptional(w http.ResponseWriter, r *http.Request, v any) error {
	err := decode(w, r, v)
	if err != nil && errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

var statusByCode = map[errs.Code]int{
	errs.ErrCodeInvalidInput:    http.StatusBadRequest,
	errs.ErrCodeInvalidPath:     http.StatusBadRequest,
	errs.ErrCodeInvalidCode:     http.StatusBadRequest,
	errs.ErrCodeNotFound:        http.StatusNotFound,
	errs.ErrCodeSessionNotFound: http.StatusNotFound,
	errs.ErrCodeForbidden:       http.StatusForbidden,
	errs.ErrCodeNetwork:         http.StatusBadGateway,
	errs.ErrCodeTimeout:         http.StatusGatewayTimeout,
}

// httpStatus maps coded errors onto response statuses. Uncoded errors are
// internal.
func httpStatus(err error) int {
	if st, ok := statusByCode[errs.GetCode(err)]; ok {
		return st
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := httpStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	} else {
		s.logger.Debug("request rejected", "err", err)
	}
	code := errs.GetCode(err)
	if code == "" {
		code = errs.ErrCodeInternal
	}
	writeJSON(w, status, errorJSON{Error: errs.UserMessage(err), Code: code})
}
