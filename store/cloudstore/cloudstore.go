// Package cloudstore implements store.Store on top of gocloud docstore
// collections.
//
// Two collections are used. The head collection holds one record per
// document with the current version; its writes are checked against the
// record revision, so concurrent saves of the same document cannot both
// win. The history collection keeps every stored version for historical
// loads and comparisons. Version tokens are ULIDs, so they sort in
// creation order.
package cloudstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/danielorbach/go-component"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gocloud.dev/docstore"
	"gocloud.dev/docstore/memdocstore"
	"gocloud.dev/gcerrors"

	"github.com/brunoga/confedit/feed"
	"github.com/brunoga/confedit/model"
	"github.com/brunoga/confedit/store"
	"github.com/brunoga/confedit/validate"
)

// record is the docstore shape of both head and history entries.
type record struct {
	Key              string
	Entity           string
	Version          string
	Body             []byte
	DocstoreRevision any
}

func historyKey(id, version string) string {
	return id + "@" + version
}

// Version describes one stored version of a document.
type Version struct {
	ID      string
	Created time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithPublisher makes the store publish a feed event after every save.
func WithPublisher(p *feed.Publisher) Option {
	return func(s *Store) {
		s.publisher = p
	}
}

// WithValidator sets the validator used by Validate and by Save to attach
// warnings to stored versions.
func WithValidator(v *validate.Validator) Option {
	return func(s *Store) {
		s.validator = v
	}
}

// Store is a store.Store backed by docstore collections.
type Store struct {
	heads     *docstore.Collection
	history   *docstore.Collection
	publisher *feed.Publisher
	validator *validate.Validator
}

var _ store.Store = (*Store)(nil)

// New returns a Store over heads and history. Both collections must use
// "Key" as their key field.
func New(heads, history *docstore.Collection, opts ...Option) *Store {
	s := &Store{
		heads:     heads,
		history:   history,
		validator: validate.New(nil),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenMem returns a Store over fresh in-memory collections.
func OpenMem(opts ...Option) (*Store, error) {
	heads, err := memdocstore.OpenCollection("Key", nil)
	if err != nil {
		return nil, fmt.Errorf("open heads: %w", err)
	}
	history, err := memdocstore.OpenCollection("Key", nil)
	if err != nil {
		heads.Close()
		return nil, fmt.Errorf("open history: %w", err)
	}
	return New(heads, history, opts...), nil
}

// Close closes both collections.
func (s *Store) Close() error {
	return errors.Join(s.heads.Close(), s.history.Close())
}

// Create stores doc as the first version of a new document.
func (s *Store) Create(ctx context.Context, doc *model.Document, files []model.File) (_ store.SaveResult, err error) {
	ctx, span := tracer.Start(ctx, "cloudstore.Create", trace.WithAttributes(
		attribute.String("document.id", doc.ID),
	))
	defer endSpan(span, &err)

	version := newVersion()
	warnings := s.warnings(doc)
	body, err := encode(doc, files, warnings)
	if err != nil {
		return store.SaveResult{}, err
	}

	if err := s.appendHistory(ctx, doc.ID, version, body); err != nil {
		return store.SaveResult{}, err
	}
	head := &record{Key: doc.ID, Entity: doc.ID, Version: version, Body: body}
	if err := s.heads.Create(ctx, head); err != nil {
		s.dropHistory(ctx, doc.ID, version)
		if gcerrors.Code(err) == gcerrors.AlreadyExists {
			return store.SaveResult{}, &store.ConflictError{ID: doc.ID, Expected: "", Actual: "existing"}
		}
		return store.SaveResult{}, &store.TransportError{Op: "create", Err: err}
	}
	s.notify(ctx, doc.ID, version)

	return store.SaveResult{Version: version, Warnings: warnings}, nil
}

// Load returns the given version of document id, or the current one when
// version is empty.
func (s *Store) Load(ctx context.Context, id, version string) (_ *model.Snapshot, err error) {
	ctx, span := tracer.Start(ctx, "cloudstore.Load", trace.WithAttributes(
		attribute.String("document.id", id),
		attribute.String("version", version),
	))
	defer endSpan(span, &err)

	rec := &record{Key: id}
	coll := s.heads
	if version != "" {
		rec.Key = historyKey(id, version)
		coll = s.history
	}
	if err := coll.Get(ctx, rec); err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, fmt.Errorf("load %s@%s: %w", id, version, store.ErrNotFound)
		}
		return nil, &store.TransportError{Op: "load", Err: err}
	}
	return decode(rec.Body, rec.Version)
}

// Save stores doc as the new current version of document id if the current
// version is expected.
func (s *Store) Save(ctx context.Context, id string, doc *model.Document, files []model.File, expected string) (_ store.SaveResult, err error) {
	ctx, span := tracer.Start(ctx, "cloudstore.Save", trace.WithAttributes(
		attribute.String("document.id", id),
		attribute.String("version.expected", expected),
	))
	defer endSpan(span, &err)

	head := &record{Key: id}
	if err := s.heads.Get(ctx, head); err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return store.SaveResult{}, fmt.Errorf("save %s: %w", id, store.ErrNotFound)
		}
		return store.SaveResult{}, &store.TransportError{Op: "save", Err: err}
	}
	if head.Version != expected {
		return store.SaveResult{}, &store.ConflictError{ID: id, Expected: expected, Actual: head.Version}
	}

	version := newVersion()
	warnings := s.warnings(doc)
	body, err := encode(doc, files, warnings)
	if err != nil {
		return store.SaveResult{}, err
	}

	// History goes first: the head only ever points at a loadable version,
	// and a failed write leaves the head at expected for a retry.
	if err := s.appendHistory(ctx, id, version, body); err != nil {
		return store.SaveResult{}, err
	}

	head.Version = version
	head.Body = body
	// The revision read above makes Replace fail if another save won.
	if err := s.heads.Replace(ctx, head); err != nil {
		s.dropHistory(ctx, id, version)
		if gcerrors.Code(err) == gcerrors.FailedPrecondition {
			return store.SaveResult{}, &store.ConflictError{ID: id, Expected: expected, Actual: "concurrent write"}
		}
		return store.SaveResult{}, &store.TransportError{Op: "save", Err: err}
	}
	span.SetAttributes(attribute.String("version", version))
	s.notify(ctx, id, version)

	return store.SaveResult{Version: version, Warnings: warnings}, nil
}

// Validate runs the store's validator against doc.
func (s *Store) Validate(ctx context.Context, doc *model.Document) ([]model.ValidationIssue, error) {
	_, span := tracer.Start(ctx, "cloudstore.Validate")
	defer span.End()

	if doc == nil {
		return nil, nil
	}
	return s.validator.Validate(doc), nil
}

// Versions lists the stored versions of document id, oldest first.
func (s *Store) Versions(ctx context.Context, id string) ([]Version, error) {
	iter := s.history.Query().Where("Entity", "=", id).Get(ctx)
	defer iter.Stop()

	var out []Version
	for {
		var rec record
		err := iter.Next(ctx, &rec)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &store.TransportError{Op: "versions", Err: err}
		}
		v := Version{ID: rec.Version}
		if u, err := ulid.ParseStrict(rec.Version); err == nil {
			v.Created = ulid.Time(u.Time())
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) appendHistory(ctx context.Context, id, version string, body []byte) error {
	rec := &record{Key: historyKey(id, version), Entity: id, Version: version, Body: body}
	if err := s.history.Create(ctx, rec); err != nil {
		return &store.TransportError{Op: "append history", Err: err}
	}
	return nil
}

// dropHistory removes the history record of a version that never became
// current. Failures only leave an unreferenced record behind.
func (s *Store) dropHistory(ctx context.Context, id, version string) {
	if err := s.history.Delete(ctx, &record{Key: historyKey(id, version)}); err != nil {
		component.Logger(ctx).Warn("Couldn't drop history of an unsaved version",
			slog.String("document.id", id),
			slog.String("version", version),
			slog.Any("error", err),
		)
	}
}

// warnings converts validation issues into dismissable snapshot warnings.
func (s *Store) warnings(doc *model.Document) []model.Warning {
	var out []model.Warning
	for _, i := range s.validator.Validate(doc) {
		out = append(out, model.Warning{
			ID:          uuid.NewString(),
			Message:     i.Message,
			ProcessID:   i.ProcessID,
			ParameterID: i.ParameterID,
		})
	}
	return out
}

// notify publishes a change event. The save already happened, so failures
// are only logged.
func (s *Store) notify(ctx context.Context, id, version string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, feed.Event{EntityID: id, Version: version}); err != nil {
		component.Logger(ctx).Warn("Couldn't publish change notification",
			slog.String("document.id", id),
			slog.String("version", version),
			slog.Any("error", err),
		)
	}
}

func newVersion() string {
	return ulid.Make().String()
}

func endSpan(span trace.Span, err *error) {
	if *err != nil {
		span.SetStatus(codes.Error, (*err).Error())
	}
	span.End()
}
