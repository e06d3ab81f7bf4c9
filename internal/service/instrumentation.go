package service

import (
	"context"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medpractice/pkg/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/dmehra2102/prod-golang-projects/medpractice/internal/service")

func startSpan(ctx context.Context, name string, caller domain.Session) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.Int64("enduser.id", caller.UserID),
		attribute.String("enduser.role", string(caller.Role)),
	))
}

// observe records a failed Result on the span and the failure counter.
func observe[T any](span trace.Span, m *metrics.Collector, op string, r Result[T]) Result[T] {
	if r.IsSuccess() {
		span.SetStatus(codes.Ok, "")
		return r
	}
	span.SetAttributes(attribute.String("result.kind", r.Kind.String()))
	span.SetStatus(codes.Error, strings.Join(r.Errors, "; "))
	m.OperationFailures.WithLabelValues(op, r.Kind.String()).Inc()
	return r
}
