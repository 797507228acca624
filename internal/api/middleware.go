package api

import (
	"net/http"

	"github.com/felixge/httpsnoop"
	log "github.com/sirupsen/logrus"
)

// AccessLog logs one line per request once the handler has finished.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		entry := log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.RequestURI(),
			"ip":       ClientIP(r),
			"status":   m.Code,
			"duration": m.Duration.String(),
			"bytes":    m.Written,
		})
		switch {
		case m.Code >= 500:
			entry.Error("handled")
		case m.Code >= 400:
			entry.Warn("handled")
		default:
			entry.Info("handled")
		}
	})
}
