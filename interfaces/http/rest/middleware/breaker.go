package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"deployboard/interfaces/http/rest/api"
	apperrors "deployboard/pkg/errors"
)

var errServerFault = errors.New("server fault")

// CircuitBreaker fails fast with 503 once consecutive 5xx responses reach
// maxFailures, and lets a probe through after timeout.
func CircuitBreaker(name string, maxFailures uint32, timeout time.Duration, logger *zap.Logger) func(next http.Handler) http.Handler {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, err := cb.Execute(func() (interface{}, error) {
				ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
				next.ServeHTTP(ww, r)
				if ww.Status() >= http.StatusInternalServerError {
					return nil, fmt.Errorf("%w: status %d", errServerFault, ww.Status())
				}
				return nil, nil
			})
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				api.RespondError(w, logger, apperrors.NewUnavailableError(name).WithCause(err))
			}
		})
	}
}
