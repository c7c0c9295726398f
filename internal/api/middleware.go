package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/banshee-data/scene.report/internal/monitoring"
)

var (
	pathStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	successStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	redirectStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	failureStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
)

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	code := strconv.Itoa(statusCode)
	switch {
	case statusCode >= 200 && statusCode < 300:
		return successStyle.Render(code)
	case statusCode >= 300 && statusCode < 400:
		return redirectStyle.Render(code)
	case statusCode >= 400:
		return failureStyle.Render(code)
	default:
		return code
	}
}

// LoggingMiddleware logs method, path, status and duration of each request.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			pathStyle.Render(r.RequestURI),
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}
