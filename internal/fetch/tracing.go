package fetch

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/JakeFAU/proxyfetch/internal/fetch"

// tracer resolves against the current global provider on each call so a
// provider installed after package init still takes effect.
func tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}
