package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInitTracerProviderDisabled(t *testing.T) {
	t.Parallel()

	shutdown, err := InitTracerProvider(context.Background(), Config{})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestInitTracerProviderRejectsUnknownExporter(t *testing.T) {
	t.Parallel()

	_, err := InitTracerProvider(context.Background(), Config{Enabled: true, Exporter: "zipkin"})
	require.ErrorContains(t, err, "zipkin")
}

func TestInitTracerProviderStdout(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var buf bytes.Buffer
	shutdown, err := InitTracerProvider(context.Background(), Config{
		Enabled:        true,
		Exporter:       ExporterStdout,
		ServiceName:    "proxyfetch",
		ServiceVersion: "test",
		Writer:         &buf,
	})
	require.NoError(t, err)

	_, span := otel.Tracer("telemetry-test").Start(context.Background(), "unit-span")
	span.End()
	require.NoError(t, shutdown(context.Background()))

	require.Contains(t, buf.String(), "unit-span")
	require.Contains(t, buf.String(), "proxyfetch")
}
