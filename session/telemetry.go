package session

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("github.com/brunoga/confedit/session")
var meter = otel.Meter("github.com/brunoga/confedit/session")

// documentID is the attribute key associating records with the edited
// document.
const documentID = "document.id"

var (
	// concealedEdits counts edits pushed onto the undo stack.
	concealedEdits metric.Int64Counter
	// saves counts successful saves.
	saves metric.Int64Counter
	// saveConflicts counts saves rejected by the store for a stale version.
	saveConflicts metric.Int64Counter
	// guardTrips counts transitions of the conflict guard to Incompatible.
	guardTrips metric.Int64Counter
	// validationDuration measures single validation calls.
	validationDuration metric.Float64Histogram
)

func init() {
	var err error
	concealedEdits, err = meter.Int64Counter(
		"session.edits.concealed",
		metric.WithDescription("The number of edits concealed into edit logs."),
	)
	if err != nil {
		panic("session: failed to init 'session.edits.concealed' instrument")
	}

	saves, err = meter.Int64Counter(
		"session.saves",
		metric.WithDescription("The number of successful saves."),
	)
	if err != nil {
		panic("session: failed to init 'session.saves' instrument")
	}

	saveConflicts, err = meter.Int64Counter(
		"session.saves.conflicts",
		metric.WithDescription("The number of saves rejected because the remote version changed."),
	)
	if err != nil {
		panic("session: failed to init 'session.saves.conflicts' instrument")
	}

	guardTrips, err = meter.Int64Counter(
		"session.guard.trips",
		metric.WithDescription("The number of times a conflict guard became incompatible."),
	)
	if err != nil {
		panic("session: failed to init 'session.guard.trips' instrument")
	}

	validationDuration, err = meter.Float64Histogram(
		"session.validation.duration",
		metric.WithDescription("The duration of a single validation call."),
		metric.WithUnit("ms"),
	)
	if err != nil {
		panic("session: failed to init 'session.validation.duration' instrument")
	}
}

func count(ctx context.Context, c metric.Int64Counter, id string) {
	c.Add(ctx, 1, metric.WithAttributeSet(attribute.NewSet(attribute.String(documentID, id))))
}

func measureValidation(ctx context.Context, id string, d time.Duration) {
	attrs := attribute.NewSet(attribute.String(documentID, id))
	validationDuration.Record(ctx, float64(d)/float64(time.Millisecond), metric.WithAttributeSet(attrs))
}
