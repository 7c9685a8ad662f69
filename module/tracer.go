package module

import (
	"context"

	otelTrace "go.opentelemetry.io/otel/trace"

	"github.com/onflow/evm-fleet/module/trace"
)

var (
	_ Tracer = &trace.Tracer{}
	_ Tracer = &trace.NoopTracer{}
)

// Tracer creates spans for wallet pipelines and the actions they run.
type Tracer interface {
	ReadyDoneAware

	// StartSpanFromContext starts a span as a child of the span carried by ctx, if any.
	// It also returns the context including this span which can be used for
	// nested calls.
	StartSpanFromContext(
		ctx context.Context,
		operationName trace.SpanName,
		opts ...otelTrace.SpanStartOption,
	) (
		otelTrace.Span,
		context.Context,
	)

	// WithSpanFromContext encapsulates executing a function within an span, i.e., it starts a span with the specified SpanName from the context,
	// executes the function f, and finishes the span once the function returns.
	WithSpanFromContext(
		ctx context.Context,
		operationName trace.SpanName,
		f func(),
		opts ...otelTrace.SpanStartOption,
	)
}
