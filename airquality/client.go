// Copyright 2025 The SmogMap Authors
// SPDX-License-Identifier: Apache-2.0

package airquality

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/smogmap/smogmap/utils/httputils"
	"golang.org/x/net/html/charset"
)

// Defaults for ClientOptions.
const (
	DefaultBaseURL   = "https://smogmap.github.io/api/v1/air-quality"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 1.0
	DefaultRateBurst = 3

	maxBodySize = 1 << 20
)

// ClientOptions configuration for Client.
type ClientOptions struct {
	// BaseURL is the air quality endpoint, without query.
	BaseURL string

	// UserAgent is the User-Agent header to use in HTTP requests
	UserAgent string

	// Timeout bounds the whole request. Non-positive values use DefaultTimeout.
	Timeout time.Duration

	// Enables light tracing of HTTP requests and responses
	EnableHTTPTrace bool

	// Enables full HTTP body tracing
	EnableHTTPBodyTrace bool

	// Requests per second sent upstream; non-positive disables limiting.
	RateLimit float64

	// Burst allowed by the rate limiter.
	RateBurst int

	// Transport replaces the network transport, mostly for tests.
	Transport http.RoundTripper
}

// Fetcher retrieves one reading for a coordinate and data source.
type Fetcher interface {
	Fetch(ctx context.Context, latitude, longitude float64, source DataSource) (*Reading, error)
}

// ClientStatus is the observable state of a Client.
type ClientStatus struct {
	Busy      bool
	LastError error
}

// Client talks to the air quality endpoint.
type Client struct {
	baseURL string
	client  *http.Client

	mu       sync.Mutex
	inflight int
	started  uint64
	lastErr  error
	subs     map[int]func(ClientStatus)
	nextSub  int
}

// NewClient creates a new client with the provided options.
func NewClient(options *ClientOptions) *Client {
	if options == nil {
		options = &ClientOptions{}
	}

	var httpLogWriter io.Writer
	if options.EnableHTTPTrace {
		httpLogWriter = os.Stderr
	}

	transport := options.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			MaxIdleConns:          4,
			MaxIdleConnsPerHost:   2,
			IdleConnTimeout:       30 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
		}
	}

	rateLimited := httputils.NewRateLimitedRoundTripper(transport, options.RateLimit, options.RateBurst)

	loggingTransport := &httputils.LoggingRoundTripper{
		Writer:    httpLogWriter,
		DumpBody:  options.EnableHTTPBodyTrace,
		Transport: rateLimited,
	}

	userAgent := "smogmap/unknown"
	if options.UserAgent != "" {
		userAgent = options.UserAgent
	}

	headerTransport := &httputils.AppendRequestHeadersRoundTripper{
		Headers: map[string]string{
			"User-Agent": userAgent,
			"Accept":     "application/json",
		},
		Transport: loggingTransport,
	}

	timeout := options.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	baseURL := options.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout:   timeout,
			Transport: headerTransport,
		},
		subs: make(map[int]func(ClientStatus)),
	}
}

// Status returns the current busy flag and last error.
func (c *Client) Status() ClientStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	return ClientStatus{Busy: c.inflight > 0, LastError: c.lastErr}
}

// Subscribe registers fn to be called after every status change. The
// returned function removes the subscription.
func (c *Client) Subscribe(fn func(ClientStatus)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		delete(c.subs, id)
	}
}

func (c *Client) update(fn func()) {
	c.mu.Lock()
	fn()
	status := ClientStatus{Busy: c.inflight > 0, LastError: c.lastErr}

	subs := make([]func(ClientStatus), 0, len(c.subs))
	for _, s := range c.subs {
		subs = append(subs, s)
	}
	c.mu.Unlock()

	for _, s := range subs {
		s(status)
	}
}

// Fetch retrieves the reading nearest to the coordinate from source. It
// never retries. LastError reflects the most recently started call only.
func (c *Client) Fetch(ctx context.Context, latitude, longitude float64, source DataSource) (*Reading, error) {
	var id uint64

	c.update(func() {
		c.inflight++
		c.started++
		id = c.started
		c.lastErr = nil
	})

	reading, err := c.fetch(ctx, latitude, longitude, source)

	c.update(func() {
		c.inflight--
		if id == c.started {
			c.lastErr = err
		}
	})

	return reading, err
}

// RequestURL builds the endpoint URL for a coordinate and source.
func (c *Client) RequestURL(latitude, longitude float64, source DataSource) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base url: %w", err)
	}

	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("base url %q must be absolute", c.baseURL)
	}

	q := u.Query()
	q.Set("lat", strconv.FormatFloat(latitude, 'f', -1, 64))
	q.Set("long", strconv.FormatFloat(longitude, 'f', -1, 64))
	q.Set("datasource", source.String())
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func (c *Client) fetch(ctx context.Context, latitude, longitude float64, source DataSource) (*Reading, error) {
	target, err := c.RequestURL(latitude, longitude, source)
	if err != nil {
		return nil, &Error{Type: ErrorTypeInvalidRequest, Message: "invalid request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &Error{Type: ErrorTypeInvalidRequest, Message: "invalid request", Err: err}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ClassifyHTTPStatus(resp.StatusCode)
	}

	// A failed read is a connection problem; only what was fully received
	// is subject to decoding.
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, transportError(err)
	}

	if len(body) > maxBodySize {
		return nil, &Error{Type: ErrorTypeDecode, Message: "body too large"}
	}

	raw, err := decodeRawReading(body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}

	return Normalize(*raw), nil
}

// wireReading mirrors RawReading with every field optional, so that
// missing required fields can be told apart from zero values.
type wireReading struct {
	Date     *string  `json:"date"`
	Lat      *float64 `json:"lat"`
	Long     *float64 `json:"long"`
	Measurer *string  `json:"measurer"`
	PM10     *float64 `json:"pm10"`
	PM25     *float64 `json:"pm25"`
	Sensor   *string  `json:"sensor"`
}

// decodeRawReading expects exactly one JSON object in body.
func decodeRawReading(body []byte, contentType string) (*RawReading, error) {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, &Error{Type: ErrorTypeDecode, Message: "unsupported charset", Err: err}
	}

	dec := json.NewDecoder(r)

	var w wireReading
	if err := dec.Decode(&w); err != nil {
		return nil, &Error{Type: ErrorTypeDecode, Message: "malformed body", Err: err}
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errors.New("unexpected data after object")
		}

		return nil, &Error{Type: ErrorTypeDecode, Message: "trailing data", Err: err}
	}

	var missing []error
	if w.Date == nil {
		missing = append(missing, errors.New("missing date"))
	}

	if w.Lat == nil {
		missing = append(missing, errors.New("missing lat"))
	}

	if w.Long == nil {
		missing = append(missing, errors.New("missing long"))
	}

	if len(missing) > 0 {
		return nil, &Error{Type: ErrorTypeDecode, Message: "unexpected body", Err: errors.Join(missing...)}
	}

	return &RawReading{
		Date:     *w.Date,
		Lat:      *w.Lat,
		Long:     *w.Long,
		Measurer: w.Measurer,
		PM10:     w.PM10,
		PM25:     w.PM25,
		Sensor:   w.Sensor,
	}, nil
}
