package httpclient

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/torosent/callcheck/internal/config"
	"github.com/torosent/callcheck/internal/variables"
)

func TestBuildRequestWithHeaders(t *testing.T) {
	cfg := &config.Config{
		Method:    "post",
		TargetURL: "http://example.com/api",
		Headers: map[string]string{
			"content-type": "application/json",
			"X-Trace-Id":   "12345",
		},
		Body: `{"hello":"world"}`,
	}

	builder, err := NewRequestBuilder(cfg)
	if err != nil {
		t.Fatalf("expected builder, got error: %v", err)
	}

	req, err := builder.Build(context.Background())
	if err != nil {
		t.Fatalf("expected request, got error: %v", err)
	}

	if req.Method != http.MethodPost {
		t.Fatalf("expected method POST, got %s", req.Method)
	}
	if req.URL.String() != cfg.TargetURL {
		t.Fatalf("expected URL %s, got %s", cfg.TargetURL, req.URL.String())
	}
	if req.Header.Get("Content-Type") != "application/json" {
		t.Fatalf("expected canonical Content-Type header, got %q", req.Header.Get("Content-Type"))
	}
	if req.Header.Get("X-Trace-Id") != "12345" {
		t.Fatalf("expected X-Trace-Id header, got %q", req.Header.Get("X-Trace-Id"))
	}

	bodyBytes, err := io.ReadAll(req.Body)
	if err != nil {
		t.Fatalf("read body failed: %v", err)
	}
	_ = req.Body.Close()
	if string(bodyBytes) != cfg.Body {
		t.Fatalf("expected body %q, got %q", cfg.Body, string(bodyBytes))
	}
	if req.ContentLength != int64(len(cfg.Body)) {
		t.Fatalf("expected content length %d, got %d", len(cfg.Body), req.ContentLength)
	}

	if req.GetBody == nil {
		t.Fatalf("expected request to support body replay")
	}
	replayBody, err := req.GetBody()
	if err != nil {
		t.Fatalf("expected replay body, got error: %v", err)
	}
	replayBytes, _ := io.ReadAll(replayBody)
	_ = replayBody.Close()
	if string(replayBytes) != cfg.Body {
		t.Fatalf("expected replay body %q, got %q", cfg.Body, string(replayBytes))
	}
}

func TestRequestBuilder_InvalidHeaders(t *testing.T) {
	cases := map[string]map[string]string{
		"empty key":        {"": "value"},
		"newline in key":   {"Bad\nKey": "value"},
		"newline in value": {"X-Test": "a\r\nb"},
		"whitespace key":   {"   ": "value"},
	}
	for name, headers := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := &config.Config{TargetURL: "http://example.com", Headers: headers}
			if _, err := NewRequestBuilder(cfg); err == nil {
				t.Fatalf("expected error for headers %v", headers)
			}
		})
	}
}

func TestRequestBuilder_RequiresTarget(t *testing.T) {
	if _, err := NewRequestBuilder(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := NewRequestBuilder(&config.Config{TargetURL: "  "}); err == nil {
		t.Fatal("expected error for empty target")
	}
}

func TestRequestBuilder_MethodFallback(t *testing.T) {
	builder, err := NewRequestBuilder(&config.Config{TargetURL: "http://example.com"})
	if err != nil {
		t.Fatalf("NewRequestBuilder() error = %v", err)
	}
	req, err := builder.Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if req.Method != http.MethodGet {
		t.Fatalf("expected GET fallback, got %s", req.Method)
	}
	if req.ContentLength != 0 {
		t.Fatalf("expected empty body, got length %d", req.ContentLength)
	}
}

func TestRequestBuilder_BearerToken(t *testing.T) {
	cfg := &config.Config{
		TargetURL:   "http://example.com",
		Headers:     map[string]string{"Authorization": "Basic ignored"},
		BearerToken: "secret",
	}
	builder, err := NewRequestBuilder(cfg)
	if err != nil {
		t.Fatalf("NewRequestBuilder() error = %v", err)
	}
	req, err := builder.Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer secret" {
		t.Fatalf("Authorization = %q, want bearer token", got)
	}
}

func TestRequestBuilder_ExpandsVariables(t *testing.T) {
	cfg := &config.Config{
		Method:      "PUT",
		TargetURL:   "http://example.com/orders/{{order_id}}",
		Headers:     map[string]string{"X-Tenant": "{{tenant}}"},
		Body:        `{"id":"{{order_id}}"}`,
		BearerToken: "{{token}}",
	}
	builder, err := NewRequestBuilder(cfg)
	if err != nil {
		t.Fatalf("NewRequestBuilder() error = %v", err)
	}

	store := variables.NewStore(map[string]string{"order_id": "o-17", "tenant": "acme", "token": "t0k"})
	req, err := builder.Build(variables.NewContext(context.Background(), store))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if req.URL.Path != "/orders/o-17" {
		t.Errorf("path = %q", req.URL.Path)
	}
	if req.Header.Get("X-Tenant") != "acme" {
		t.Errorf("X-Tenant = %q", req.Header.Get("X-Tenant"))
	}
	if req.Header.Get("Authorization") != "Bearer t0k" {
		t.Errorf("Authorization = %q", req.Header.Get("Authorization"))
	}
	body, _ := io.ReadAll(req.Body)
	if string(body) != `{"id":"o-17"}` {
		t.Errorf("body = %q", body)
	}
	if req.ContentLength != int64(len(body)) {
		t.Errorf("ContentLength = %d, want %d", req.ContentLength, len(body))
	}

	// the builder keeps its template for the next call
	store.Set("order_id", "o-18")
	next, err := builder.Build(variables.NewContext(context.Background(), store))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if next.URL.Path != "/orders/o-18" {
		t.Errorf("second path = %q", next.URL.Path)
	}
}

func TestBodySourceFromFile(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "body.txt")
	content := "file body payload"
	if err := os.WriteFile(filePath, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}

	source, err := NewBodySource(&config.Config{BodyFile: filePath})
	if err != nil {
		t.Fatalf("expected body source, got error: %v", err)
	}

	for i := 0; i < 2; i++ {
		reader, err := source.NewReader()
		if err != nil {
			t.Fatalf("expected reader #%d, got error: %v", i+1, err)
		}
		data, err := io.ReadAll(reader)
		if err != nil {
			t.Fatalf("read body #%d failed: %v", i+1, err)
		}
		_ = reader.Close()
		if string(data) != content {
			t.Fatalf("expected body %q, got %q on iteration %d", content, string(data), i+1)
		}
	}
}

func TestTimeoutsTotal(t *testing.T) {
	tm := Timeouts{Connect: time.Second, Read: 2 * time.Second, Write: 3 * time.Second}
	if tm.Total() != 6*time.Second {
		t.Fatalf("Total() = %s, want 6s", tm.Total())
	}
	if (Timeouts{}).Total() != 0 {
		t.Fatalf("zero timeouts should disable the overall bound")
	}
	if (Timeouts{Read: time.Second, Write: -time.Second}).Total() != time.Second {
		t.Fatalf("negative components should be ignored")
	}

	defaults := TimeoutsFromConfig(nil)
	if defaults.Connect != 60*time.Second || defaults.Read != 30*time.Second || defaults.Write != 30*time.Second {
		t.Fatalf("TimeoutsFromConfig(nil) = %+v", defaults)
	}
}

func TestClientReadTimeoutApplied(t *testing.T) {
	timeout := 50 * time.Millisecond
	client := NewClient(Timeouts{Connect: time.Second, Read: timeout})
	defer client.CloseIdleConnections()

	transport, ok := client.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("expected *http.Transport, got %T", client.Transport)
	}
	if transport.ResponseHeaderTimeout != timeout {
		t.Fatalf("expected response header timeout %s, got %s", timeout, transport.ResponseHeaderTimeout)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(timeout * 3)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if resp != nil {
		resp.Body.Close()
	}
	if err == nil {
		t.Fatalf("expected timeout error, got nil")
	}
	if elapsed := time.Since(start); elapsed > timeout*5 {
		t.Fatalf("request took too long: %s", elapsed)
	}

	if !errors.Is(err, context.DeadlineExceeded) {
		var netErr net.Error
		if !errors.As(err, &netErr) || !netErr.Timeout() {
			t.Fatalf("expected timeout error, got %v", err)
		}
	}
}

func TestCurlCommand(t *testing.T) {
	builder, err := NewRequestBuilder(&config.Config{
		Method:      "POST",
		TargetURL:   "http://example.com/orders?x=1",
		Headers:     map[string]string{"Content-Type": "application/json"},
		Body:        `{"name":"it's"}`,
		BearerToken: "secret",
	})
	if err != nil {
		t.Fatalf("NewRequestBuilder() error = %v", err)
	}
	req, err := builder.Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	got := CurlCommand(req)
	want := `curl -X POST 'http://example.com/orders?x=1' -H 'Authorization: REDACTED' -H 'Content-Type: application/json' --data-raw '{"name":"it'"'"'s"}'`
	if got != want {
		t.Fatalf("CurlCommand() =\n%s\nwant\n%s", got, want)
	}
	if strings.Contains(got, "secret") {
		t.Fatal("bearer token leaked into curl output")
	}

	// the request body is still readable after rendering
	body, _ := io.ReadAll(req.Body)
	if string(body) != `{"name":"it's"}` {
		t.Fatalf("body consumed by CurlCommand: %q", body)
	}
}
