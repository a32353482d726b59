package cloudstore

import (
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("github.com/brunoga/confedit/store/cloudstore")
