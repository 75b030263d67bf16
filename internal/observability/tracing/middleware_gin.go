package tracing

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/mercado/internal/observability/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// duesQueryAttributes are the list filters worth seeing on a request span.
var duesQueryAttributes = []string{"period", "block", "category", "status", "group_by", "source"}

// GinMiddleware opens a server span per request and tags it with the due or
// stand being addressed and the dues filters in the query string.
func GinMiddleware() gin.HandlerFunc {
	tracer := otel.Tracer("mercado/http")
	return func(c *gin.Context) {
		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, "HTTP "+strings.ToUpper(c.Request.Method), trace.WithSpanKind(trace.SpanKindServer))

		if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
			ctx = withRequestBaggage(ctx, requestID)
			span.SetAttributes(attribute.String("request_id", requestID))
		}

		c.Request = c.Request.WithContext(ctx)
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		attrs := []attribute.KeyValue{
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", c.Writer.Status()),
			attribute.Int64("http.server_duration_ms", time.Since(start).Milliseconds()),
		}
		attrs = append(attrs, resourceAttributes(route, c.Param("id"))...)
		for _, key := range duesQueryAttributes {
			if v := strings.TrimSpace(c.Query(key)); v != "" {
				attrs = append(attrs, attribute.String("dues."+key, v))
			}
		}
		if operator := obscontext.OperatorFromContext(ctx); operator != "" {
			attrs = append(attrs, attribute.String("operator", operator))
		}
		span.SetName("HTTP " + strings.ToUpper(c.Request.Method) + " " + route)
		span.SetAttributes(SafeAttributes(attrs...)...)

		if c.Writer.Status() >= http.StatusInternalServerError {
			if lastErr := c.Errors.Last(); lastErr != nil {
				span.RecordError(SafeError(lastErr.Err))
			}
			span.SetStatus(codes.Error, "request error")
		}
		span.End()
	}
}

// resourceAttributes names the path id after the resource the route is
// rooted at.
func resourceAttributes(route, id string) []attribute.KeyValue {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	switch {
	case strings.Contains(route, "/stands/"):
		return []attribute.KeyValue{attribute.String("stand.id", id)}
	case strings.Contains(route, "/dues/"):
		return []attribute.KeyValue{attribute.String("due.id", id)}
	default:
		return nil
	}
}

func withRequestBaggage(ctx context.Context, requestID string) context.Context {
	member, err := baggage.NewMember("request_id", requestID)
	if err != nil {
		return ctx
	}
	bag, err := baggage.New(member)
	if err != nil {
		return ctx
	}
	return baggage.ContextWithBaggage(ctx, bag)
}
