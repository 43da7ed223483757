package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/torosent/callcheck/internal/auth"
	"github.com/torosent/callcheck/internal/classify"
	"github.com/torosent/callcheck/internal/errmodel"
	"github.com/torosent/callcheck/internal/extractor"
	"github.com/torosent/callcheck/internal/httpclient"
	"github.com/torosent/callcheck/internal/tracing"
	"github.com/torosent/callcheck/internal/variables"
)

// Policy is the per-call failure and logging policy.
type Policy struct {
	Strict  bool
	LogBody bool
	// ServiceName labels the call in logs, metrics and errors. Empty means
	// the request host.
	ServiceName string
	// Extract captures values from a successful body into the variable store.
	Extract []extractor.Rule
}

func (p Policy) service(req *http.Request) string {
	if p.ServiceName != "" {
		return p.ServiceName
	}
	if req.URL != nil && req.URL.Host != "" {
		return req.URL.Host
	}
	return "unknown"
}

// RequestIDHeader carries the call ID on every outgoing request.
const RequestIDHeader = "X-Request-Id"

// Call executes req and decodes a successful JSON body into T. A failure body
// is decoded against candidates, in order, under a lenient policy.
func Call[T any](ctx context.Context, e *Executor, req *http.Request, policy Policy, candidates ...errmodel.Candidate) (Result[T], error) {
	return execute(ctx, e, req, policy, candidates, decodeJSON[T])
}

// Do executes req and returns the full response envelope as the success value.
func (e *Executor) Do(ctx context.Context, req *http.Request, policy Policy, candidates ...errmodel.Candidate) (Result[Response], error) {
	return execute(ctx, e, req, policy, candidates, envelope)
}

func decodeJSON[T any](outcome classify.Outcome) (*T, error) {
	value := new(T)
	if !outcome.HasBody {
		return value, nil
	}
	if err := json.Unmarshal(outcome.Body, value); err != nil {
		return nil, err
	}
	return value, nil
}

func envelope(outcome classify.Outcome) (*Response, error) {
	return &Response{
		StatusCode: outcome.StatusCode,
		Status:     outcome.Status,
		Header:     outcome.Header,
		Body:       outcome.Body,
	}, nil
}

func execute[T any](ctx context.Context, e *Executor, req *http.Request, policy Policy, candidates []errmodel.Candidate, decode func(classify.Outcome) (*T, error)) (Result[T], error) {
	if e == nil {
		return Result[T]{}, errors.New("executor is nil")
	}
	if req == nil || req.URL == nil {
		return Result[T]{}, errors.New("request is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := Replayable(req)
	if err != nil {
		return Result[T]{}, err
	}

	res := Result[T]{
		CallID:  e.newID(),
		Service: policy.service(req),
	}
	e.logger.Info("calling %s: %s %s [%s]", res.Service, req.Method, req.URL.Redacted(), res.CallID)

	ctx, span := tracing.StartCallSpan(ctx, e.tracer, req, res.Service, res.CallID)
	out, err := e.prepare(ctx, req, res.CallID)
	if err != nil {
		return transportFailed(e, span, res, policy, err)
	}
	if e.logHeaders {
		e.logger.Info("request: %s", httpclient.CurlCommand(out))
	}

	start := e.now()
	body, resp, err := e.exchange(out)
	res.Elapsed = e.now().Sub(start)
	if err != nil {
		return transportFailed(e, span, res, policy, err)
	}

	res.Outcome = classify.Classify(resp, body)
	if res.Outcome.Success {
		return succeeded(ctx, e, span, res, policy, decode)
	}
	return failed(e, span, req, res, policy, candidates)
}

// prepare clones req and gives the clone a fresh body from GetBody, which
// Replayable guarantees for any request that has one.
func (e *Executor) prepare(ctx context.Context, req *http.Request, callID string) (*http.Request, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}
	out := req.Clone(ctx)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("replay request body: %w", err)
		}
		out.Body = body
	}
	if out.Header == nil {
		out.Header = http.Header{}
	}
	if err := auth.Inject(ctx, e.auth, out.Header); err != nil {
		return nil, err
	}
	if out.Header.Get(RequestIDHeader) == "" {
		out.Header.Set(RequestIDHeader, callID)
	}
	if e.propagate {
		tracing.InjectHTTPHeaders(ctx, out.Header)
	}
	return out, nil
}

func (e *Executor) exchange(req *http.Request) ([]byte, *http.Response, error) {
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read response body: %w", err)
	}
	return body, resp, nil
}

func transportFailed[T any](e *Executor, span trace.Span, res Result[T], policy Policy, err error) (Result[T], error) {
	res.Kind = KindTransportFailed
	res.TransportErr = err
	e.logger.Warning("call to %s did not complete [%s]: %v", res.Service, res.CallID, err)
	e.finish(span, res.Service, res.Kind, 0, res.Elapsed, err)

	if policy.Strict {
		return res, &FailedCallError{Service: res.Service, CallID: res.CallID, Err: err}
	}
	return res, nil
}

func succeeded[T any](ctx context.Context, e *Executor, span trace.Span, res Result[T], policy Policy, decode func(classify.Outcome) (*T, error)) (Result[T], error) {
	out := res.Outcome
	e.logger.Success("%s responded %d %s [%s]", res.Service, out.StatusCode, out.Status, res.CallID)
	if policy.LogBody {
		e.logBody("response body", out.Body)
	}

	res.Kind = KindSuccess
	value, err := decode(out)
	if err != nil {
		derr := &DecodeError{Service: res.Service, CallID: res.CallID, StatusCode: out.StatusCode, Body: out.Body, Err: err}
		e.logger.Error("%v", derr)
		e.finish(span, res.Service, res.Kind, out.StatusCode, res.Elapsed, derr)
		return res, derr
	}
	res.Value = value

	if len(policy.Extract) > 0 {
		store := variables.FromContext(ctx)
		if store == nil {
			store = e.store
		}
		for name, val := range extractor.Apply(out.Body, policy.Extract, store, e.logger) {
			e.logger.Info("captured %s=%s", name, val)
		}
	}

	e.finish(span, res.Service, res.Kind, out.StatusCode, res.Elapsed, nil)
	return res, nil
}

func failed[T any](e *Executor, span trace.Span, req *http.Request, res Result[T], policy Policy, candidates []errmodel.Candidate) (Result[T], error) {
	out := res.Outcome
	e.logger.Warning("%s responded %d %s [%s]: %s", res.Service, out.StatusCode, out.Status, res.CallID, classify.Describe(req, out))
	if policy.LogBody {
		e.logBody("error body", out.Body)
	}

	res.Kind = KindErrorUndecodable
	statusErr := fmt.Errorf("status %d", out.StatusCode)
	if policy.Strict {
		e.finish(span, res.Service, res.Kind, out.StatusCode, res.Elapsed, statusErr)
		return res, &FailedCallError{
			Service:    res.Service,
			CallID:     res.CallID,
			StatusCode: out.StatusCode,
			Status:     out.Status,
			Body:       out.Body,
		}
	}

	if match, ok := errmodel.NewChain(candidates...).Decode(out.Body); ok {
		res.Kind = KindErrorDecoded
		res.ErrorValue = match.Value
		res.ErrorModel = match.Model
		e.logger.Info("decoded %s error body as %s", res.Service, match.Model)
	}
	e.finish(span, res.Service, res.Kind, out.StatusCode, res.Elapsed, statusErr)
	return res, nil
}

func (e *Executor) finish(span trace.Span, service string, kind Kind, statusCode int, elapsed time.Duration, err error) {
	if e.recorder != nil {
		e.recorder.RecordCall(service, kind.String(), statusCode, elapsed, err)
	}
	tracing.EndCallSpan(span, statusCode, kind.String(), err)
}

// logBody renders body for the log. A body that cannot be rendered is
// reported and logged raw; the call carries on.
func (e *Executor) logBody(label string, body []byte) {
	text, err := classify.PrettyBody(body)
	if err != nil {
		e.logger.Error("cannot render %s: %v", label, err)
	}
	if text == "" {
		e.logger.Info("%s: <empty>", label)
		return
	}
	e.logger.Info("%s:\n%s", label, text)
}
