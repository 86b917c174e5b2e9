package middleware

import (
	"net/http"
	"strconv"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/todoapp/todo-api/internal/metrics"
)

// Metrics records request count, in-flight requests and latency per chi route.
// A panicking handler is counted as a 500 and the panic is passed on to Recover.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		metrics.HTTPRequestsInFlight.Inc()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			metrics.HTTPRequestsInFlight.Dec()

			rec := recover()
			status := ww.Status()
			if rec != nil {
				status = http.StatusInternalServerError
			} else if status == 0 {
				status = http.StatusOK
			}
			route := routePattern(r)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
			metrics.HTTPRequestDurationSeconds.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())

			if rec != nil {
				panic(rec)
			}
		}()

		next.ServeHTTP(ww, r)
	})
}
