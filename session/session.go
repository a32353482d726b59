// Package session implements the editing surface of a single configuration
// document: an edit log over a base loaded from a remote store, a conflict
// guard fed by change notifications, a save pipeline with optimistic
// concurrency and debounced advisory validation.
//
// Sinks configured on a Session are called synchronously and must not call
// back into editing operations of the same Session.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/danielorbach/go-component"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/brunoga/confedit/diff"
	"github.com/brunoga/confedit/editlog"
	"github.com/brunoga/confedit/feed"
	"github.com/brunoga/confedit/model"
	"github.com/brunoga/confedit/store"
)

var (
	// ErrIncompatible is returned by editing operations once the remote
	// version changed under pending edits. Only Reload recovers.
	ErrIncompatible = fmt.Errorf("remote version changed under pending edits")
	// ErrSaveInProgress is returned by operations that would race with a
	// running save.
	ErrSaveInProgress = fmt.Errorf("save in progress")
	// ErrUnknownWarning is returned by DismissWarning for unknown ids.
	ErrUnknownWarning = fmt.Errorf("unknown warning")
)

// Session edits one document of a store. It is safe for concurrent use.
type Session struct {
	id     string
	store  store.Store
	types  diff.TypeResolver
	cfg    config
	log    *editlog.Log
	guard  *Guard
	logger *slog.Logger

	ctx        context.Context
	cancel     context.CancelFunc
	validation *scheduler

	mu         sync.Mutex
	saving     bool
	deferred   []string
	generation uint64
	issues     []model.ValidationIssue
}

// New returns a Session for document id without a base. Reload must
// succeed before editing. types resolves parameter types for every diff
// the session produces, so sensitive values are always masked; it must not
// be nil. The logger is taken from ctx; background work keeps ctx values
// but not its cancellation and stops on Close.
func New(ctx context.Context, st store.Store, types diff.TypeResolver, id string, opts ...Option) *Session {
	if types == nil {
		panic("session: nil TypeResolver")
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &Session{
		id:     id,
		store:  st,
		types:  types,
		cfg:    cfg,
		guard:  NewGuard(""),
		logger: component.Logger(ctx).With(slog.String(documentID, id)),
		ctx:    ctx,
		cancel: cancel,
	}
	s.log = editlog.New(
		editlog.WithStrategy(cfg.strategy),
		editlog.WithSink(cfg.snapshotSink),
	)
	s.validation = newScheduler(ctx, cfg.debounce, s.validate)
	return s
}

// Open returns a Session for document id with its current version loaded
// as the base.
func Open(ctx context.Context, st store.Store, types diff.TypeResolver, id string, opts ...Option) (*Session, error) {
	s := New(ctx, st, types, id, opts...)
	if err := s.Reload(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Close stops background validation and waits for it to return.
func (s *Session) Close() {
	s.cancel()
	s.validation.close()
}

// ID returns the id of the edited document.
func (s *Session) ID() string {
	return s.id
}

// Reload discards every pending edit and installs the current remote
// version as the new base. It is the only way out of Incompatible.
func (s *Session) Reload(ctx context.Context) (err error) {
	ctx, span := tracer.Start(ctx, "session.Reload", trace.WithAttributes(
		attribute.String(documentID, s.id),
	))
	defer endSpan(span, &err)

	s.mu.Lock()
	saving := s.saving
	s.mu.Unlock()
	if saving {
		return fmt.Errorf("reload %s: %w", s.id, ErrSaveInProgress)
	}

	snap, err := s.store.Load(ctx, s.id, "")
	if err != nil {
		return fmt.Errorf("reload %s: %w", s.id, err)
	}

	s.mu.Lock()
	err = s.resetLocked(snap)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("reload %s: %w", s.id, err)
	}

	s.logger.Info("Base reloaded", slog.String("version", snap.Version))
	s.RequestValidation()
	return nil
}

// Mutate changes the working snapshot in place. The change is pending
// (IsDirty) until Conceal or Discard.
func (s *Session) Mutate(fn func(*model.Snapshot)) error {
	if err := s.log.Mutate(fn); err != nil {
		s.misuse("Mutate", err)
		return fmt.Errorf("mutate %s: %w", s.id, err)
	}
	return nil
}

// Conceal commits the pending in-place changes as one edit.
func (s *Session) Conceal(description string) error {
	return s.conceal(description, nil)
}

// ConcealMove commits an edit moving a process of node into group at index.
// It fails with editlog.ErrUnconcealed while Mutate changes are pending;
// Conceal or Discard them first.
func (s *Session) ConcealMove(description, node, processID, group string, index int) error {
	return s.conceal(description, editlog.Move(node, processID, group, index))
}

func (s *Session) conceal(description string, factory editlog.EditFactory) error {
	s.mu.Lock()
	if err := s.editableLocked(); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("conceal %q: %w", description, err)
	}
	_, err := s.log.Conceal(description, factory)
	s.mu.Unlock()

	if err != nil {
		s.misuse("Conceal", err)
		return fmt.Errorf("conceal %q: %w", description, err)
	}
	s.concealed(description)
	return nil
}

// DismissWarning removes a warning from the working snapshot as an edit of
// its own.
func (s *Session) DismissWarning(id string) error {
	description := "Dismiss warning " + id

	s.mu.Lock()
	if err := s.editableLocked(); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("dismiss warning %s: %w", id, err)
	}
	found := false
	err := s.log.Mutate(func(snap *model.Snapshot) {
		found = snap.RemoveWarning(id)
	})
	if err == nil && !found {
		err = ErrUnknownWarning
	}
	if err == nil {
		_, err = s.log.Conceal(description, nil)
	}
	s.mu.Unlock()

	if err != nil {
		s.misuse("DismissWarning", err)
		return fmt.Errorf("dismiss warning %s: %w", id, err)
	}
	s.concealed(description)
	return nil
}

// Undo reverts the most recent edit.
func (s *Session) Undo() error {
	return s.step("undo", s.log.Undo)
}

// Redo reapplies the most recently undone edit.
func (s *Session) Redo() error {
	return s.step("redo", s.log.Redo)
}

func (s *Session) step(op string, fn func() error) error {
	s.mu.Lock()
	if s.saving {
		s.mu.Unlock()
		return fmt.Errorf("%s: %w", op, ErrSaveInProgress)
	}
	err := fn()
	s.mu.Unlock()

	if err != nil {
		s.misuse(op, err)
		return fmt.Errorf("%s: %w", op, err)
	}
	if s.cfg.validateOnConceal {
		s.RequestValidation()
	}
	return nil
}

// Discard drops pending in-place changes.
func (s *Session) Discard() error {
	if err := s.log.Discard(); err != nil {
		s.misuse("Discard", err)
		return fmt.Errorf("discard: %w", err)
	}
	return nil
}

// Save stores the rebuilt snapshot, expecting the remote version to still
// be the base version. On success the saved version becomes the new base
// and the log is cleared. On failure the log is left untouched; a version
// conflict also trips the guard.
func (s *Session) Save(ctx context.Context) (_ store.SaveResult, err error) {
	ctx, span := tracer.Start(ctx, "session.Save", trace.WithAttributes(
		attribute.String(documentID, s.id),
	))
	defer endSpan(span, &err)

	s.mu.Lock()
	if err := s.editableLocked(); err != nil {
		s.mu.Unlock()
		return store.SaveResult{}, fmt.Errorf("save %s: %w", s.id, err)
	}
	base := s.log.Base()
	rebuilt, err := s.log.Rebuild()
	if err != nil {
		s.mu.Unlock()
		s.misuse("Save", err)
		return store.SaveResult{}, fmt.Errorf("save %s: %w", s.id, err)
	}
	s.saving = true
	s.mu.Unlock()

	logger := s.logger.With(slog.String("version.expected", base.Version))
	res, err := s.store.Save(ctx, s.id, rebuilt.Document, rebuilt.Files, base.Version)

	var fresh *model.Snapshot
	if err == nil {
		var lerr error
		fresh, lerr = s.store.Load(ctx, s.id, res.Version)
		if lerr != nil {
			logger.Warn("Couldn't load saved version, using local copy",
				slog.String("version", res.Version),
				slog.Any("error", lerr),
			)
			fresh = &model.Snapshot{
				Document: rebuilt.Document,
				Files:    rebuilt.Files,
				Warnings: res.Warnings,
				Version:  res.Version,
			}
		}
	}

	s.mu.Lock()
	s.saving = false
	deferred := s.deferred
	s.deferred = nil
	if err == nil {
		err = s.resetLocked(fresh)
	} else if errors.Is(err, store.ErrConflict) {
		count(ctx, saveConflicts, s.id)
		if s.guard.Trip() {
			count(ctx, guardTrips, s.id)
		}
		logger.Warn("Save rejected, remote version changed", slog.Any("error", err))
	} else {
		logger.Error("Save failed", slog.Any("error", err))
	}
	s.mu.Unlock()

	s.replay(ctx, deferred)
	if err != nil {
		return store.SaveResult{}, fmt.Errorf("save %s: %w", s.id, err)
	}

	count(ctx, saves, s.id)
	logger.Info("Saved", slog.String("version", res.Version), slog.Int("warnings", len(res.Warnings)))
	s.RequestValidation()
	return res, nil
}

// Observe evaluates a change notification. Notifications of other
// documents are ignored; notifications arriving during a save are
// evaluated after it completes.
func (s *Session) Observe(ctx context.Context, e feed.Event) error {
	if e.EntityID != s.id {
		return nil
	}

	s.mu.Lock()
	if s.saving {
		s.deferred = append(s.deferred, e.Version)
		s.mu.Unlock()
		return nil
	}
	verdict := s.guard.Observe(e.Version, s.log.UndoLen() > 0)
	s.mu.Unlock()

	switch verdict {
	case Trip:
		count(ctx, guardTrips, s.id)
		s.logger.Warn("Remote version changed under pending edits",
			slog.String("version", s.guard.Version()),
			slog.String("version.remote", e.Version),
		)
	case Reload:
		return s.silentReload(ctx, e.Version)
	}
	return nil
}

// Follow feeds the notifications of sub to Observe until ctx is done.
func (s *Session) Follow(ctx context.Context, sub *feed.Subscriber) error {
	return sub.Run(ctx, s.Observe)
}

func (s *Session) silentReload(ctx context.Context, version string) error {
	snap, err := s.store.Load(ctx, s.id, version)
	if err != nil {
		return fmt.Errorf("reload %s@%s: %w", s.id, version, err)
	}

	s.mu.Lock()
	switch {
	case s.saving:
		s.deferred = append(s.deferred, version)
		s.mu.Unlock()
		return nil
	case s.guard.State() == Incompatible || s.guard.Known(snap.Version):
		s.mu.Unlock()
		return nil
	case s.log.UndoLen() > 0:
		// Edits were concealed while loading.
		tripped := s.guard.Trip()
		s.mu.Unlock()
		if tripped {
			count(ctx, guardTrips, s.id)
			s.logger.Warn("Remote version changed under pending edits", slog.String("version.remote", version))
		}
		return nil
	}
	err = s.resetLocked(snap)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("reload %s@%s: %w", s.id, version, err)
	}

	s.logger.Info("Base silently reloaded", slog.String("version", version))
	s.RequestValidation()
	return nil
}

func (s *Session) replay(ctx context.Context, versions []string) {
	for _, v := range versions {
		if err := s.Observe(ctx, feed.Event{EntityID: s.id, Version: v}); err != nil {
			s.logger.Warn("Couldn't evaluate deferred change notification",
				slog.String("version.remote", v),
				slog.Any("error", err),
			)
		}
	}
}

// RequestValidation schedules a validation of the working snapshot after
// the debounce delay.
func (s *Session) RequestValidation() {
	s.logger.Debug("Validation requested")
	s.validation.request()
}

func (s *Session) validate(ctx context.Context) {
	s.mu.Lock()
	gen := s.generation
	s.mu.Unlock()

	// Unconcealed changes are not validated.
	rebuilt, err := s.log.Rebuild()
	if err != nil || rebuilt.Document == nil {
		return
	}

	ctx, span := tracer.Start(ctx, "session.Validate", trace.WithAttributes(
		attribute.String(documentID, s.id),
	))
	defer span.End()

	start := time.Now()
	issues, err := s.store.Validate(ctx, rebuilt.Document)
	measureValidation(ctx, s.id, time.Since(start))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.logger.Warn("Validation failed", slog.Any("error", err))
		return
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		s.logger.Debug("Discarding validation result of a previous base")
		s.RequestValidation()
		return
	}
	s.issues = issues
	sink := s.cfg.issuesSink
	s.mu.Unlock()

	if sink != nil {
		sink(slices.Clone(issues))
	}
}

// Issues returns the latest validation result.
func (s *Session) Issues() []model.ValidationIssue {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.issues)
}

// Snapshot returns a copy of the working snapshot.
func (s *Session) Snapshot() *model.Snapshot {
	return s.log.State()
}

// Base returns a copy of the base snapshot.
func (s *Session) Base() *model.Snapshot {
	return s.log.Base()
}

// IsDirty reports whether there are pending in-place changes.
func (s *Session) IsDirty() bool {
	return s.log.IsDirty()
}

// IsSaveable reports whether concealed edits differ from the base.
func (s *Session) IsSaveable() bool {
	return s.log.IsSaveable()
}

// UndoLen returns the number of concealed edits.
func (s *Session) UndoLen() int {
	return s.log.UndoLen()
}

// RedoLen returns the number of undone edits.
func (s *Session) RedoLen() int {
	return s.log.RedoLen()
}

// History returns the descriptions of the concealed edits, oldest first.
func (s *Session) History() []string {
	return s.log.History()
}

// GuardState returns the state of the conflict guard.
func (s *Session) GuardState() GuardState {
	return s.guard.State()
}

// LocalChanges compares the base with the working snapshot.
func (s *Session) LocalChanges() (*diff.InstanceDiff, error) {
	base := s.log.Base()
	if base == nil {
		s.misuse("LocalChanges", editlog.ErrNoBase)
		return nil, fmt.Errorf("local changes %s: %w", s.id, editlog.ErrNoBase)
	}
	return diff.Instances(base, s.log.State(), s.diffOptions()...), nil
}

// Compare loads two stored versions of the document and compares them.
func (s *Session) Compare(ctx context.Context, base, compare string) (_ *diff.InstanceDiff, err error) {
	ctx, span := tracer.Start(ctx, "session.Compare", trace.WithAttributes(
		attribute.String(documentID, s.id),
		attribute.String("version.base", base),
		attribute.String("version.compare", compare),
	))
	defer endSpan(span, &err)

	var b, c *model.Snapshot
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		b, err = s.store.Load(ctx, s.id, base)
		return err
	})
	g.Go(func() (err error) {
		c, err = s.store.Load(ctx, s.id, compare)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("compare %s..%s: %w", base, compare, err)
	}
	return diff.Instances(b, c, s.diffOptions()...), nil
}

// diffOptions returns the configured diff options with the session's type
// resolver applied last.
func (s *Session) diffOptions() []diff.Option {
	return append(slices.Clone(s.cfg.diffOptions), diff.WithTypeResolver(s.types))
}

// editableLocked reports why the log must not change now, if it must not.
func (s *Session) editableLocked() error {
	if s.guard.State() == Incompatible {
		return ErrIncompatible
	}
	if s.saving {
		return ErrSaveInProgress
	}
	if !s.log.HasBase() {
		s.misuse("edit", editlog.ErrNoBase)
		return editlog.ErrNoBase
	}
	return nil
}

func (s *Session) resetLocked(snap *model.Snapshot) error {
	if err := s.log.Reset(snap); err != nil {
		return err
	}
	s.guard.Reset(snap.Version)
	s.generation++
	s.issues = nil
	return nil
}

func (s *Session) concealed(description string) {
	count(s.ctx, concealedEdits, s.id)
	s.logger.Debug("Edit concealed", slog.String("edit", description))
	if s.cfg.validateOnConceal {
		s.RequestValidation()
	}
}

// misuse logs programming errors. Other errors are left to the caller.
func (s *Session) misuse(op string, err error) {
	if errors.Is(err, editlog.ErrNoBase) {
		s.logger.Error("Session used without a base", slog.String("op", op), slog.Any("error", err))
	}
}

func endSpan(span trace.Span, err *error) {
	if *err != nil {
		span.SetStatus(codes.Error, (*err).Error())
	}
	span.End()
}
