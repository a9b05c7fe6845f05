// Package telemetry provides OpenTelemetry tracing helpers.
// This package is internal and should not be imported by external projects.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "sigrag"

// Tracer 返回全局 tracer. 未安装 TracerProvider 时为 no-op.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartSpan 开启一个命名 span 并附加属性.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := Tracer().Start(ctx, name)
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	return ctx, span
}
