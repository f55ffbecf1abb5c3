// Package middleware holds HTTP plumbing shared by the API clients.
package middleware

import (
	"net/http"
	"time"

	"logobatch/internal/infra"
)

// LoggingTransport logs every outbound request with its status and latency.
// The query string is left out so signed result URLs stay out of the logs.
type LoggingTransport struct {
	Next   http.RoundTripper
	Logger *infra.Logger
}

// NewLoggingTransport wraps next, falling back to http.DefaultTransport.
func NewLoggingTransport(next http.RoundTripper, logger *infra.Logger) *LoggingTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &LoggingTransport{Next: next, Logger: logger}
}

func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.Next.RoundTrip(req)
	elapsed := time.Since(start)
	if err != nil {
		t.Logger.Debug().
			Err(err).
			Str("method", req.Method).
			Str("host", req.URL.Host).
			Str("path", req.URL.Path).
			Dur("elapsed", elapsed).
			Msg("http: request failed")
		return nil, err
	}
	t.Logger.Debug().
		Str("method", req.Method).
		Str("host", req.URL.Host).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("elapsed", elapsed).
		Msgf("%s %s %d %s", req.Method, req.URL.Path, resp.StatusCode, elapsed)
	return resp, nil
}
