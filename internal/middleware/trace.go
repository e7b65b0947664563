package middleware

import (
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"tally/internal/telemetry"
)

const tracerName = "tally/http"

// TraceHeader is the response header carrying the request's trace id.
const TraceHeader = "X-Trace-Id"

// Trace opens a server span per request, continuing any W3C trace context
// from the inbound headers, and exposes the trace id to the client. Handler
// errors are recorded on the span and returned unchanged.
func Trace() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx := otel.GetTextMapPropagator().Extract(req.Context(), propagation.HeaderCarrier(req.Header))
			ctx, span := telemetry.Tracer(tracerName).Start(ctx,
				req.Method+" "+c.Path(),
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.method", req.Method),
					attribute.String("http.route", c.Path()),
				),
			)
			defer span.End()

			if sc := span.SpanContext(); sc.HasTraceID() {
				c.Response().Header().Set(TraceHeader, sc.TraceID().String())
			}
			c.SetRequest(req.WithContext(ctx))

			if err := next(c); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return err
			}
			span.SetAttributes(attribute.Int("http.status_code", c.Response().Status))
			return nil
		}
	}
}
