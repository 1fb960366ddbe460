package middleware

import (
	"net/http"
	"time"

	"eventers-ticketing-backend/logger"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// statusRecorder remembers the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// ResponseTimeLogging logs the latency of every request under its route
// template, so /v1/tickets/T1 and /v1/tickets/T2 group together.
func ResponseTimeLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func(start time.Time) {
			logger.LogExecutionTime(r.Context(), start, "Total response time", logrus.Fields{
				"method": r.Method,
				"route":  routeTemplate(r),
				"status": rec.status,
			})
		}(time.Now().UTC())
		next.ServeHTTP(rec, r)
	})
}

// routeTemplate returns the matched mux path template, or the raw path when
// no route matched.
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}
