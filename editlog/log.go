// Package editlog implements the replayable edit log behind an instance
// editing session.
//
// The log holds a base snapshot (the last state known to match the remote
// store), an undo stack and a redo stack of edits, and the working
// snapshot. Replaying the undo stack against a clone of the base
// reproduces the logical state; the working snapshot may additionally
// carry in-place changes that were not concealed yet.
package editlog

import (
	"fmt"
	"sync"

	"github.com/brunoga/confedit"
	"github.com/brunoga/confedit/model"
)

var (
	// ErrNoBase is returned by operations that need a base snapshot when
	// none was installed. It signals a programming error.
	ErrNoBase = fmt.Errorf("edit log has no base snapshot")
	// ErrNothingToUndo is returned by Undo on an empty undo stack.
	ErrNothingToUndo = fmt.Errorf("nothing to undo")
	// ErrNothingToRedo is returned by Redo on an empty redo stack.
	ErrNothingToRedo = fmt.Errorf("nothing to redo")
	// ErrUnconcealed is returned by Conceal with a factory while the
	// working snapshot carries unconcealed changes the edit would drop.
	ErrUnconcealed = fmt.Errorf("working snapshot has unconcealed changes")
)

// Option configures a Log.
type Option func(*Log)

// WithCloner sets the function used to clone snapshots at every transition.
func WithCloner(clone func(*model.Snapshot) (*model.Snapshot, error)) Option {
	return func(l *Log) {
		l.clone = clone
	}
}

// WithStrategy clones snapshots with the given strategy.
func WithStrategy(s confedit.CloneStrategy) Option {
	return WithCloner(confedit.Cloner[*model.Snapshot](confedit.WithStrategy(s)))
}

// WithSink sets the function receiving every newly published working
// snapshot. The sink gets its own copy and is called without the log's
// lock held.
func WithSink(sink func(*model.Snapshot)) Option {
	return func(l *Log) {
		l.sink = sink
	}
}

// Log is an undo/redo capable edit log. It is safe for concurrent use.
type Log struct {
	mu    sync.Mutex
	base  *model.Snapshot
	state *model.Snapshot
	undo  []Edit
	redo  []Edit

	clone func(*model.Snapshot) (*model.Snapshot, error)
	sink  func(*model.Snapshot)
}

// New returns an empty Log. Reset must be called before editing.
func New(opts ...Option) *Log {
	l := &Log{
		clone: confedit.Cloner[*model.Snapshot](),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Reset installs base as the new base snapshot, clears both stacks and
// publishes a fresh working snapshot.
func (l *Log) Reset(base *model.Snapshot) error {
	if base == nil {
		return ErrNoBase
	}

	l.mu.Lock()
	b, err := l.clone(base)
	if err != nil {
		l.mu.Unlock()
		return fmt.Errorf("clone base: %w", err)
	}
	state, err := l.clone(b)
	if err != nil {
		l.mu.Unlock()
		return fmt.Errorf("clone base: %w", err)
	}
	l.base = b
	l.state = state
	l.undo = nil
	l.redo = nil
	published, err := l.publishable()
	l.mu.Unlock()

	return l.publish(published, err)
}

// Mutate runs fn against the working snapshot in place. The change stays
// unconcealed (the log is dirty) until Conceal or Discard is called.
func (l *Log) Mutate(fn func(*model.Snapshot)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.base == nil {
		return ErrNoBase
	}
	fn(l.state)
	return nil
}

// Conceal commits the difference between the rebuilt snapshot and the
// working snapshot as one Edit. A nil factory captures the working
// snapshot as a whole. A factory builds its edit against the rebuilt
// snapshot, so it is refused with ErrUnconcealed while the log is dirty.
// The redo stack is cleared and the rebuilt working snapshot is published.
func (l *Log) Conceal(description string, factory EditFactory) (Edit, error) {
	l.mu.Lock()

	if l.base == nil {
		l.mu.Unlock()
		return nil, ErrNoBase
	}

	rebuilt, err := l.rebuildLocked()
	if err != nil {
		l.mu.Unlock()
		return nil, err
	}

	var edit Edit
	if factory == nil {
		captured, cerr := l.clone(l.state)
		if cerr != nil {
			l.mu.Unlock()
			return nil, fmt.Errorf("capture %q: %w", description, cerr)
		}
		edit = &stateEdit{description: description, state: captured, clone: l.clone}
	} else {
		if confedit.HasChanges(rebuilt, l.state) {
			l.mu.Unlock()
			return nil, ErrUnconcealed
		}
		edit, err = factory(description, rebuilt, l.state)
		if err != nil {
			l.mu.Unlock()
			return nil, err
		}
	}

	redo := l.redo
	l.undo = append(l.undo, edit)
	l.redo = nil

	if err := l.refreshLocked(); err != nil {
		// Keep stacks and state consistent with each other.
		l.undo = l.undo[:len(l.undo)-1]
		l.redo = redo
		l.mu.Unlock()
		return nil, err
	}
	published, err := l.publishable()
	l.mu.Unlock()

	return edit, l.publish(published, err)
}

// Undo moves the most recent edit onto the redo stack and rebuilds.
func (l *Log) Undo() error {
	l.mu.Lock()

	if l.base == nil {
		l.mu.Unlock()
		return ErrNoBase
	}
	if len(l.undo) == 0 {
		l.mu.Unlock()
		return ErrNothingToUndo
	}

	edit := l.undo[len(l.undo)-1]
	l.undo = l.undo[:len(l.undo)-1]
	l.redo = append(l.redo, edit)

	if err := l.refreshLocked(); err != nil {
		l.redo = l.redo[:len(l.redo)-1]
		l.undo = append(l.undo, edit)
		l.mu.Unlock()
		return err
	}
	published, err := l.publishable()
	l.mu.Unlock()

	return l.publish(published, err)
}

// Redo moves the most recent undone edit back onto the undo stack and
// rebuilds.
func (l *Log) Redo() error {
	l.mu.Lock()

	if l.base == nil {
		l.mu.Unlock()
		return ErrNoBase
	}
	if len(l.redo) == 0 {
		l.mu.Unlock()
		return ErrNothingToRedo
	}

	edit := l.redo[len(l.redo)-1]
	l.redo = l.redo[:len(l.redo)-1]
	l.undo = append(l.undo, edit)

	if err := l.refreshLocked(); err != nil {
		l.undo = l.undo[:len(l.undo)-1]
		l.redo = append(l.redo, edit)
		l.mu.Unlock()
		return err
	}
	published, err := l.publishable()
	l.mu.Unlock()

	return l.publish(published, err)
}

// Discard throws away unconcealed changes by rebuilding the working
// snapshot from the undo stack. The stacks are not touched.
func (l *Log) Discard() error {
	l.mu.Lock()

	if l.base == nil {
		l.mu.Unlock()
		return ErrNoBase
	}
	if err := l.refreshLocked(); err != nil {
		l.mu.Unlock()
		return err
	}
	published, err := l.publishable()
	l.mu.Unlock()

	return l.publish(published, err)
}

// Rebuild returns clone(base) with every edit of the undo stack applied in
// order. It does not change the log.
func (l *Log) Rebuild() (*model.Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.base == nil {
		return nil, ErrNoBase
	}
	return l.rebuildLocked()
}

// IsDirty reports whether the working snapshot carries changes that were
// not concealed yet.
func (l *Log) IsDirty() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.base == nil {
		return false
	}
	rebuilt, err := l.rebuildLocked()
	if err != nil {
		return false
	}
	return confedit.HasChanges(rebuilt, l.state)
}

// IsSaveable reports whether concealed edits differ from the base.
func (l *Log) IsSaveable() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.isSaveableLocked()
}

func (l *Log) isSaveableLocked() bool {
	if l.base == nil || len(l.undo) == 0 {
		return false
	}
	return confedit.HasChanges(l.state, l.base)
}

// HasBase reports whether a base snapshot is installed.
func (l *Log) HasBase() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.base != nil
}

// Base returns a copy of the base snapshot, or nil.
func (l *Log) Base() *model.Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.copyLocked(l.base)
}

// State returns a copy of the working snapshot, or nil.
func (l *Log) State() *model.Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.copyLocked(l.state)
}

// UndoLen returns the number of edits on the undo stack.
func (l *Log) UndoLen() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.undo)
}

// RedoLen returns the number of edits on the redo stack.
func (l *Log) RedoLen() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.redo)
}

// History returns the descriptions of the undo stack, oldest first.
func (l *Log) History() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]string, len(l.undo))
	for i, e := range l.undo {
		out[i] = e.Description()
	}
	return out
}

func (l *Log) rebuildLocked() (*model.Snapshot, error) {
	cur, err := l.clone(l.base)
	if err != nil {
		return nil, fmt.Errorf("clone base: %w", err)
	}
	for i, e := range l.undo {
		cur, err = e.Apply(cur)
		if err != nil {
			return nil, fmt.Errorf("replay edit %d (%q): %w", i, e.Description(), err)
		}
	}
	return cur, nil
}

func (l *Log) refreshLocked() error {
	state, err := l.rebuildLocked()
	if err != nil {
		return err
	}
	l.state = state
	return nil
}

func (l *Log) copyLocked(s *model.Snapshot) *model.Snapshot {
	if s == nil {
		return nil
	}
	c, err := l.clone(s)
	if err != nil {
		return nil
	}
	return c
}

func (l *Log) publishable() (*model.Snapshot, error) {
	if l.sink == nil {
		return nil, nil
	}
	s, err := l.clone(l.state)
	if err != nil {
		return nil, fmt.Errorf("clone published snapshot: %w", err)
	}
	return s, nil
}

func (l *Log) publish(s *model.Snapshot, err error) error {
	if err != nil {
		return err
	}
	if l.sink != nil && s != nil {
		l.sink(s)
	}
	return nil
}
