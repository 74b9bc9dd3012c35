package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/tasklens/tasklens/internal/domain"
)

// TimeoutMiddleware caps one request end to end. Cancellation is cooperative:
// the pipeline observes the context through its outbound model calls and
// unwinds. When the handler unwinds without having written anything, the
// middleware answers with the canonical upstream_timeout error body so a
// timed-out plan request looks like every other pipeline failure.
func TimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			tw := &timeoutResponseWriter{ResponseWriter: w}
			next.ServeHTTP(tw, r.WithContext(ctx))

			if ctx.Err() == context.DeadlineExceeded && !tw.wrote {
				perr := domain.ErrUpstreamTimeout("request exceeded the server time limit")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(perr.HTTPStatusCode())
				json.NewEncoder(w).Encode(errorResponse{Error: perr})
			}
		})
	}
}

// timeoutResponseWriter records whether the handler produced a response, so
// the middleware never writes a second status line.
type timeoutResponseWriter struct {
	http.ResponseWriter
	wrote bool
}

func (tw *timeoutResponseWriter) WriteHeader(code int) {
	tw.wrote = true
	tw.ResponseWriter.WriteHeader(code)
}

func (tw *timeoutResponseWriter) Write(b []byte) (int, error) {
	tw.wrote = true
	return tw.ResponseWriter.Write(b)
}
