// Package transport provides HTTP round trippers used by the outbound API clients.
package transport

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDHeader carries a per-request identifier so upstream logs can be correlated with ours
const RequestIDHeader = "X-Request-ID"

// LoggingTransport tags each request with a request ID and logs the exchange. It never logs headers or bodies, and
// it never retries: a rate-limited response is returned to the caller as-is, with the server's retry-after hint
// logged.
type LoggingTransport struct {
	base   http.RoundTripper
	logger *zap.Logger
}

// WithRequestLogging wraps base, or http.DefaultTransport if base is nil
func WithRequestLogging(base http.RoundTripper, logger *zap.Logger) *LoggingTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingTransport{base: base, logger: logger}
}

func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	requestID := req.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
		// RoundTrippers must not modify the caller's request
		req = req.Clone(req.Context())
		req.Header.Set(RequestIDHeader, requestID)
	}

	logger := t.logger.With(
		zap.String("request_id", requestID),
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
	)

	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	duration := time.Since(start)
	if err != nil {
		logger.Warn("API request failed", zap.Duration("duration", duration), zap.Error(err))
		return resp, err
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		fields := []zap.Field{zap.Duration("duration", duration)}
		if wait := parseRetryAfter(resp.Header.Get("retry-after"), time.Now()); wait > 0 {
			fields = append(fields, zap.Duration("retry_after", wait))
		}
		logger.Warn("API request rate limited", fields...)
		return resp, nil
	}

	logger.Debug("API response", zap.Int("status", resp.StatusCode), zap.Duration("duration", duration))
	return resp, nil
}

// parseRetryAfter interprets a retry-after header given either as seconds or as an HTTP date. It returns zero if the
// header is absent or unparseable.
func parseRetryAfter(value string, now time.Time) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if retryTime, err := time.Parse(time.RFC1123, value); err == nil {
		return retryTime.Sub(now)
	}
	return 0
}
