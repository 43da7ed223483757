package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/torosent/callcheck/internal/config"
	"github.com/torosent/callcheck/internal/variables"
)

type RequestBuilder struct {
	method      string
	target      string
	headers     http.Header
	body        BodySource
	bearerToken string
}

func NewRequestBuilder(cfg *config.Config) (*RequestBuilder, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	target := strings.TrimSpace(cfg.TargetURL)
	if target == "" {
		return nil, errors.New("target URL is required")
	}

	method := strings.TrimSpace(cfg.Method)
	if method == "" {
		method = http.MethodGet
	}
	method = strings.ToUpper(method)

	bodySource, err := NewBodySource(cfg)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	for key, value := range cfg.Headers {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" || strings.ContainsAny(trimmedKey, "\r\n") {
			return nil, fmt.Errorf("invalid header key %q", key)
		}
		canonicalKey := http.CanonicalHeaderKey(trimmedKey)
		if strings.ContainsAny(value, "\r\n") {
			return nil, fmt.Errorf("invalid header value for %s", canonicalKey)
		}
		headers.Set(canonicalKey, value)
	}

	token := strings.TrimSpace(cfg.BearerToken)
	if strings.ContainsAny(token, "\r\n") {
		return nil, errors.New("invalid bearer token")
	}

	return &RequestBuilder{
		method:      method,
		target:      target,
		headers:     headers,
		body:        bodySource,
		bearerToken: token,
	}, nil
}

// Build prepares a new request. Placeholders in the URL, header values and
// body are expanded from the variable store on ctx, if any.
func (b *RequestBuilder) Build(ctx context.Context) (*http.Request, error) {
	if b == nil {
		return nil, errors.New("builder cannot be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	store := variables.FromContext(ctx)
	target := variables.Expand(b.target, store)

	body := b.body
	if store != nil {
		expanded, err := expandBody(b.body, store)
		if err != nil {
			return nil, err
		}
		body = expanded
	}

	reader, err := body.NewReader()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, b.method, target, reader)
	if err != nil {
		_ = reader.Close()
		return nil, err
	}

	req.Header = make(http.Header, len(b.headers)+1)
	for key, values := range b.headers {
		for _, val := range values {
			req.Header.Add(key, variables.Expand(val, store))
		}
	}
	if b.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+variables.Expand(b.bearerToken, store))
	}

	if length, ok := body.ContentLength(); ok {
		req.ContentLength = length
	}
	req.GetBody = body.NewReader

	return req, nil
}

func expandBody(source BodySource, store variables.Store) (BodySource, error) {
	if _, empty := source.(emptyBodySource); empty {
		return source, nil
	}
	reader, err := source.NewReader()
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(reader)
	_ = reader.Close()
	if err != nil {
		return nil, fmt.Errorf("read body for substitution: %w", err)
	}
	return &inlineBodySource{data: []byte(variables.Expand(string(data), store))}, nil
}

// Timeouts bounds the phases of one exchange. Zero disables a bound.
type Timeouts struct {
	Connect time.Duration
	Read    time.Duration
	Write   time.Duration
}

func TimeoutsFromConfig(cfg *config.Config) Timeouts {
	if cfg == nil {
		return Timeouts{
			Connect: config.DefaultConnectTimeout,
			Read:    config.DefaultReadTimeout,
			Write:   config.DefaultWriteTimeout,
		}
	}
	return Timeouts{Connect: cfg.ConnectTimeout, Read: cfg.ReadTimeout, Write: cfg.WriteTimeout}
}

// Total is the overall bound applied as http.Client.Timeout. net/http has no
// per-write deadline, so the write budget is folded in here.
func (t Timeouts) Total() time.Duration {
	var total time.Duration
	for _, d := range []time.Duration{t.Connect, t.Read, t.Write} {
		if d > 0 {
			total += d
		}
	}
	return total
}

func NewClient(timeouts Timeouts) *http.Client {
	connect := timeouts.Connect
	if connect < 0 {
		connect = 0
	}
	read := timeouts.Read
	if read < 0 {
		read = 0
	}

	dialer := &net.Dialer{
		Timeout:   connect,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		TLSHandshakeTimeout:   connect,
		ResponseHeaderTimeout: read,
		ExpectContinueTimeout: 1 * time.Second,
		IdleConnTimeout:       90 * time.Second,
	}

	return &http.Client{
		Timeout:   timeouts.Total(),
		Transport: transport,
	}
}
