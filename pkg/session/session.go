// Package session holds one skill-tree editing session.
//
// A [Session] owns everything that used to be document-global state: the
// graph store, the editor and connectivity engine bound to it, the
// selection, and the theme flag. Hosts (the terminal editor, the HTTP
// server) never touch those pieces directly. They run event handlers through
// [Session.Do], which serializes handlers so that gestures and the periodic
// reconciliation tick interleave only at handler granularity.
//
// # Eventual reconciliation
//
// Mutations made through the editor reconcile immediately. Position changes
// reported by the host (drags) can orphan nodes without the core noticing,
// so hosts also run [Session.Run], which reconciles on a fixed period:
//
//	sess := session.New(session.Options{})
//	go sess.Run(ctx, session.DefaultTick)
//
//	err := sess.Do(func(tx *session.Tx) error {
//	    pos, err := tx.Editor.ChildPosition(tx.Central())
//	    if err != nil {
//	        return err
//	    }
//	    _, err = tx.Editor.AddChild(tx.Central(), pos, "Go")
//	    return err
//	})
//
// The tree is allowed to be unreconciled for at most one tick.
//
// # Registry
//
// [Registry] keeps sessions in memory keyed by id for multi-session hosts.
// Sessions are never persisted; a token export is the only way to carry a
// tree across processes.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/skilltree/pkg/connectivity"
	"github.com/matzehuels/skilltree/pkg/edit"
	"github.com/matzehuels/skilltree/pkg/graph"
	"github.com/matzehuels/skilltree/pkg/selection"
	"github.com/matzehuels/skilltree/pkg/token"
)

// Defaults for new sessions.
const (
	DefaultTick         = 100 * time.Millisecond
	DefaultCanvasWidth  = 1200
	DefaultCanvasHeight = 800
	CentralLabel        = "Central Skill"
)

// CentralSize is the size of the central node seeded into new sessions.
var CentralSize = graph.Size{Width: 100, Height: 100}

// Options configures a new session. Zero values select defaults.
type Options struct {
	CanvasWidth   float64
	CanvasHeight  float64
	FallbackLabel string
	// LightMode starts the session in the light theme.
	LightMode bool
	Logger    *log.Logger
}

// Tx exposes the session state to one event handler. It must not be
// retained after the handler returns.
type Tx struct {
	Store     *graph.Store
	Editor    *edit.Editor
	Selection *selection.Manager
}

// Central returns the central node id.
func (tx *Tx) Central() graph.NodeID {
	id, _ := tx.Store.Central()
	return id
}

// Session is one editing session. All methods are safe for concurrent use.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu        sync.Mutex
	store     *graph.Store
	editor    *edit.Editor
	selection *selection.Manager
	darkMode  bool
	revision  uint64
	updatedAt time.Time
	onChange  func(rev uint64)
	logger    *log.Logger
}

// New creates a session whose store holds only the central node, placed
// near the middle of the canvas.
func New(opts Options) *Session {
	if opts.CanvasWidth <= 0 {
		opts.CanvasWidth = DefaultCanvasWidth
	}
	if opts.CanvasHeight <= 0 {
		opts.CanvasHeight = DefaultCanvasHeight
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	var gopts []graph.Option
	if opts.FallbackLabel != "" {
		gopts = append(gopts, graph.WithFallbackLabel(opts.FallbackLabel))
	}
	store := graph.New(gopts...)
	store.CreateNode(graph.Point{
		X: opts.CanvasWidth/2 - graph.MinNodeSize/2,
		Y: opts.CanvasHeight/2 - graph.MinNodeSize/2,
	}, CentralLabel, CentralSize, true)

	now := time.Now()
	s := &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		store:     store,
		selection: selection.New(),
		darkMode:  !opts.LightMode,
		updatedAt: now,
	}
	s.logger = logger.With("session", s.ID[:8])
	s.editor = edit.New(store, connectivity.New(store), s.logger)
	return s
}

// OnChange registers fn to be called, under the session lock, after every
// state change with the new revision. fn must not call back into the
// session. A nil fn removes the listener.
func (s *Session) OnChange(fn func(rev uint64)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// Do runs fn exclusively and counts it as a state change when it returns
// nil. Selected ids whose nodes were removed by fn are dropped.
func (s *Session) Do(fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := fn(s.tx())
	s.selection.Prune(s.store.HasNode)
	if err != nil {
		return err
	}
	s.changed()
	return nil
}

// View runs fn exclusively without recording a change.
func (s *Session) View(fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.tx())
}

// Reconcile runs one connectivity pass. It counts as a change only when
// the pass linked something.
func (s *Session) Reconcile() connectivity.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := s.editor.Reconcile()
	if len(res.Linked) > 0 {
		s.changed()
	}
	return res
}

// Run reconciles every interval until ctx is done. It returns ctx.Err().
func (s *Session) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultTick
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if res := s.Reconcile(); len(res.Linked) > 0 {
				s.logger.Debug("tick reattached orphans", "linked", len(res.Linked))
			}
		}
	}
}

// Export returns the token for the current tree and theme.
func (s *Session) Export() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return token.Export(s.store, s.darkMode)
}

// Import replaces the tree with the one encoded in tok. The selection is
// cleared, the theme follows the token when it carries one, and the new
// tree is reconciled. On error nothing changes.
func (s *Session) Import(tok string) (token.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := token.Import(s.store, tok)
	if err != nil {
		s.logger.Warn("import rejected", "err", err)
		return res, err
	}
	s.selection.Clear()
	if res.DarkMode != nil {
		s.darkMode = *res.DarkMode
	}
	rec := s.editor.Reconcile()
	s.logger.Info("imported tree", "nodes", res.Nodes, "connections", res.Connections,
		"skipped", res.Skipped, "linked", len(rec.Linked))
	s.changed()
	return res, nil
}

// ToggleTheme flips the theme flag and returns the new dark-mode value.
func (s *Session) ToggleTheme() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.darkMode = !s.darkMode
	s.changed()
	return s.darkMode
}

// DarkMode reports whether the session uses the dark theme.
func (s *Session) DarkMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.darkMode
}

// Revision returns a counter incremented on every state change.
func (s *Session) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// UpdatedAt returns the time of the last state change.
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

func (s *Session) tx() *Tx {
	return &Tx{Store: s.store, Editor: s.editor, Selection: s.selection}
}

// changed must be called with mu held.
func (s *Session) changed() {
	s.revision++
	s.updatedAt = time.Now()
	if s.onChange != nil {
		s.onChange(s.revision)
	}
}
