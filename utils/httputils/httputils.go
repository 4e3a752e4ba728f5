// Copyright 2025 The SmogMap Authors
// SPDX-License-Identifier: Apache-2.0

// Package httputils provides http.RoundTripper building blocks.
package httputils

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

/////////////////////////////////////////
/// RountTrippers

var (
	redactHeader = regexp.MustCompile(`(?im)^(authorization|x-goog-api-key):.*$`)
	redactQuery  = regexp.MustCompile(`([?&]key=)[^&\s]*`)
)

// LoggingRoundTripper traces HTTP transactions. Every round trip is logged at
// debug level; when Writer is set the request and response are also dumped.
type LoggingRoundTripper struct {
	Transport http.RoundTripper
	Writer    io.Writer
	DumpBody  bool
	Logger    *slog.Logger
}

// redact removes credentials from a dump.
func redact(dump string) string {
	dump = redactHeader.ReplaceAllString(dump, "$1: ******")

	return redactQuery.ReplaceAllString(dump, "${1}******")
}

// reduce the content the liens.
func abbreviate(lines []string, prefix rune) []string {
	const maxLines, maxChars = 2048, 512

	for i, line := range lines {
		if i < maxLines {
			lines[i] = fmt.Sprintf("%c %s", prefix, line)
		} else {
			break
		}
	}

	if len(lines) > maxLines {
		lines = lines[:maxLines]
		lines = append(lines, "…")
	}

	for i, line := range lines {
		if len(line) > maxChars {
			lines[i] = line[0:maxChars] + "…"
		}
	}

	return lines
}

func (t *LoggingRoundTripper) dumpRequest(req *http.Request) error {
	dump, err := httputil.DumpRequestOut(req, true)
	if err != nil {
		return fmt.Errorf("tracing HTTP request: %w", err)
	}

	lines := abbreviate(strings.Split(redact(string(dump)), "\n"), '>')
	lines = append(lines, "")
	_, err = fmt.Fprint(t.Writer, strings.Join(lines, "\n"))

	return err
}

func (t *LoggingRoundTripper) dumpResponse(resp *http.Response, duration time.Duration) error {
	dump, err := httputil.DumpResponse(resp, t.DumpBody)
	if err != nil {
		return fmt.Errorf("tracing HTTP request: %w", err)
	}

	lines := abbreviate(strings.Split(string(dump), "\n"), '<')

	_, err = fmt.Fprintf(t.Writer, "< RESPONSE: [%v]\n", duration)
	if err != nil {
		return fmt.Errorf("tracing HTTP request: %w", err)
	}

	lines = append(lines, "")
	_, err = fmt.Fprint(t.Writer, strings.Join(lines, "\n"))

	return err
}

func (t *LoggingRoundTripper) logger() *slog.Logger {
	if t.Logger != nil {
		return t.Logger
	}

	return slog.Default()
}

// RoundTrip implements the http.RoundTripper interface.
func (t *LoggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Writer != nil {
		if err := t.dumpRequest(req); err != nil {
			return nil, err
		}
	}

	start := time.Now()

	resp, err := t.Transport.RoundTrip(req)
	duration := time.Since(start)

	if err != nil {
		t.logger().Debug("http request failed",
			"method", req.Method,
			"host", req.URL.Host,
			"path", req.URL.Path,
			"duration", duration,
			"error", err,
		)

		return nil, err
	}

	t.logger().Debug("http request",
		"method", req.Method,
		"host", req.URL.Host,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration", duration,
	)

	if t.Writer != nil {
		if err := t.dumpResponse(resp, duration); err != nil {
			return nil, err
		}
	}

	return resp, nil
}

// AppendRequestHeadersRoundTripper adds headers to the request.
type AppendRequestHeadersRoundTripper struct {
	Transport http.RoundTripper
	Headers   map[string]string
}

// RoundTrip implements the http.RoundTripper interface.
func (t *AppendRequestHeadersRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrippers must not modify the caller's request.
	req = req.Clone(req.Context())
	for k, v := range t.Headers {
		req.Header.Set(k, v)
	}

	return t.Transport.RoundTrip(req)
}

// RateLimitedRoundTripper spaces out requests to an upstream that
// throttles its clients.
type RateLimitedRoundTripper struct {
	Transport http.RoundTripper
	Limiter   *rate.Limiter
}

// NewRateLimitedRoundTripper allows rps requests per second with the given
// burst. A non-positive rps disables limiting.
func NewRateLimitedRoundTripper(transport http.RoundTripper, rps float64, burst int) *RateLimitedRoundTripper {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}

	if burst < 1 {
		burst = 1
	}

	return &RateLimitedRoundTripper{
		Transport: transport,
		Limiter:   rate.NewLimiter(limit, burst),
	}
}

// RoundTrip implements the http.RoundTripper interface.
func (t *RateLimitedRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.Limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("rate limit wait canceled: %w", err)
	}

	return t.Transport.RoundTrip(req)
}
