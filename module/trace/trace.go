package trace

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// SpanName is the name of a span.
type SpanName string

const (
	FleetRun       SpanName = "fleet.run"
	WalletPipeline SpanName = "fleet.wallet"
	ActionExecute  SpanName = "action.execute"
	GasEstimation  SpanName = "action.estimateGas"
	AwaitReceipt   SpanName = "action.awaitReceipt"
	GameEpisode    SpanName = "game.episode"
	GameGuess      SpanName = "game.guess"
)

const shutdownTimeout = 5 * time.Second

// Tracer exports spans over OTLP/gRPC. The collector endpoint is read from the
// standard OTEL_EXPORTER_OTLP_* environment variables unless given explicitly.
type Tracer struct {
	log      zerolog.Logger
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// NewTracer creates a tracer and installs its provider as the global one.
func NewTracer(log zerolog.Logger, serviceName string, chainID string, endpoint string) (*Tracer, error) {
	ctx := context.Background()

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", serviceName),
			attribute.String("chain_id", chainID),
		),
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithHost(),
	)
	if err != nil {
		return nil, fmt.Errorf("could not create trace resource: %w", err)
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithInsecure()}
	if endpoint != "" {
		opts = append(opts, otlptracegrpc.WithEndpoint(endpoint))
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("could not create trace exporter: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(provider)
	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
		log.Debug().Err(err).Msg("tracing error")
	}))

	return &Tracer{
		log:      log.With().Str("component", "tracer").Logger(),
		provider: provider,
		tracer:   provider.Tracer(serviceName),
	}, nil
}

// Ready returns a channel that will close when the tracer is ready.
func (t *Tracer) Ready() <-chan struct{} {
	ready := make(chan struct{})
	close(ready)
	return ready
}

// Done flushes pending spans and returns a channel that will close when shutdown is complete.
func (t *Tracer) Done() <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := t.provider.Shutdown(ctx); err != nil {
			t.log.Warn().Err(err).Msg("failed to flush spans")
		}
	}()
	return done
}

func (t *Tracer) StartSpanFromContext(
	ctx context.Context,
	operationName SpanName,
	opts ...trace.SpanStartOption,
) (
	trace.Span,
	context.Context,
) {
	ctx, span := t.tracer.Start(ctx, string(operationName), opts...)
	return span, ctx
}

func (t *Tracer) WithSpanFromContext(
	ctx context.Context,
	operationName SpanName,
	f func(),
	opts ...trace.SpanStartOption,
) {
	span, _ := t.StartSpanFromContext(ctx, operationName, opts...)
	defer span.End()

	f()
}
