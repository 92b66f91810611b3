package httpserver

import (
	"expvar"
	"net/http"
	"strconv"
	"sync"

	"github.com/felixge/httpsnoop"
)

var (
	metricsOnce                     sync.Once
	totalRequestsReceived           *expvar.Int
	totalResponsesSent              *expvar.Int
	totalProcessingTimeMicroseconds *expvar.Int
	totalResponsesSentByStatus      *expvar.Map
)

// metrics counts requests, responses and processing time. The expvar
// variables are process-wide, so they are published only once no matter how
// many servers are built.
func metrics(next http.Handler) http.Handler {
	metricsOnce.Do(func() {
		totalRequestsReceived = expvar.NewInt("total_requests_received")
		totalResponsesSent = expvar.NewInt("total_responses_sent")
		totalProcessingTimeMicroseconds = expvar.NewInt("total_processing_time_μs")
		totalResponsesSentByStatus = expvar.NewMap("total_responses_sent_by_status")
	})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		totalRequestsReceived.Add(1)

		m := httpsnoop.CaptureMetrics(next, w, r)

		totalResponsesSent.Add(1)
		totalProcessingTimeMicroseconds.Add(m.Duration.Microseconds())
		totalResponsesSentByStatus.Add(strconv.Itoa(m.Code), 1)
	})
}

// enableCORS emits CORS headers for trusted origins. A "*" entry trusts every
// origin. Preflight requests are answered directly with 204.
func enableCORS(trustedOrigins []string) func(http.Handler) http.Handler {
	allowAll := false
	for _, origin := range trustedOrigins {
		if origin == "*" {
			allowAll = true
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("Vary", "Origin")
			w.Header().Add("Vary", "Access-Control-Request-Method")

			origin := r.Header.Get("Origin")
			if origin != "" {
				allowed := allowAll
				for _, trusted := range trustedOrigins {
					if origin == trusted {
						allowed = true
						break
					}
				}

				if allowed {
					if allowAll {
						w.Header().Set("Access-Control-Allow-Origin", "*")
					} else {
						w.Header().Set("Access-Control-Allow-Origin", origin)
					}

					if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
						w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
						w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
						w.WriteHeader(http.StatusNoContent)
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}
