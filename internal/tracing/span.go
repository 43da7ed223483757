package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	attrService = attribute.Key("callcheck.service")
	attrCallID  = attribute.Key("callcheck.call_id")
	attrOutcome = attribute.Key("callcheck.outcome")
)

// StartCallSpan starts a client span for one call to service.
func StartCallSpan(ctx context.Context, tracer trace.Tracer, req *http.Request, service, callID string) (context.Context, trace.Span) {
	name := req.Method
	if service != "" {
		name = req.Method + " " + service
	}
	ctx, span := tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		semconv.HTTPRequestMethodKey.String(req.Method),
		semconv.URLFull(req.URL.Redacted()),
		semconv.ServerAddress(req.URL.Hostname()),
		attrService.String(service),
		attrCallID.String(callID),
	)
	return ctx, span
}

// EndCallSpan records the resolved call and ends span. A status code of 0
// means no response was received.
func EndCallSpan(span trace.Span, statusCode int, outcome string, err error) {
	attrs := []attribute.KeyValue{attrOutcome.String(outcome)}
	if statusCode > 0 {
		attrs = append(attrs, semconv.HTTPResponseStatusCode(statusCode))
	}
	EndSpan(span, err, attrs...)
}

// EndSpan finishes a span, recording error status if applicable.
func EndSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// InjectHTTPHeaders injects W3C trace context into HTTP headers.
func InjectHTTPHeaders(ctx context.Context, headers http.Header) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(headers))
}
