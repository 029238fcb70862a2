package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

type subjectKey struct{}

// requestSlot is installed by the outermost middleware so it can see the
// subject that the auth middleware attaches further in.
type requestSlot struct {
	subject string
}

type slotKey struct{}

func withRequestSlot(ctx context.Context) (context.Context, *requestSlot) {
	slot := &requestSlot{}
	return context.WithValue(ctx, slotKey{}, slot), slot
}

func WithSubject(ctx context.Context, subjectID string) context.Context {
	if slot, ok := ctx.Value(slotKey{}).(*requestSlot); ok {
		slot.subject = subjectID
	}
	return context.WithValue(ctx, subjectKey{}, subjectID)
}

func SubjectFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(subjectKey{}).(string)
	return v, ok && v != ""
}

// requestAttrs identifies r in log lines.
func requestAttrs(r *http.Request) []any {
	attrs := []any{
		slog.String("method", r.Method),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	}
	if sub, ok := SubjectFromContext(r.Context()); ok {
		attrs = append(attrs, slog.String("subject", sub))
	}
	return attrs
}
