package middleware

import (
	"eventers-ticketing-backend/logger"
	"eventers-ticketing-backend/response"
	"fmt"
	"net/http"
	"runtime"

	"github.com/sirupsen/logrus"
)

// PanicHandler turns a panic into a 500 and logs it with the route and stack.
func PanicHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				buf := make([]byte, 1<<16)
				buf = buf[:runtime.Stack(buf, false)]

				logger.WithFields(r.Context(), logrus.Fields{
					"method": r.Method,
					"route":  routeTemplate(r),
					"stack":  string(buf),
				}).Error(fmt.Sprintf("panic: %v", err))

				response.SomethingWrong().Send(r.Context(), w)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
