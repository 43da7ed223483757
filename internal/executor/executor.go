// Package executor issues prepared HTTP requests and resolves each exchange
// into one of four terminal outcomes under a strict or lenient policy.
//
// Under a lenient policy nothing but an undecodable success body is returned
// as an error: transport failures and unsuccessful statuses resolve to a
// Result whose payload may be nil. Under a strict policy both escalate to a
// *FailedCallError.
package executor

import (
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/time/rate"

	"github.com/torosent/callcheck/internal/auth"
	"github.com/torosent/callcheck/internal/httpclient"
	"github.com/torosent/callcheck/internal/logging"
	"github.com/torosent/callcheck/internal/variables"
)

// Doer sends one request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Recorder receives every resolved call. statusCode is 0 when no response
// was received.
type Recorder interface {
	RecordCall(service, outcome string, statusCode int, latency time.Duration, err error)
}

// Executor is safe for concurrent use; its configuration is fixed by New.
type Executor struct {
	client     Doer
	logger     logging.Logger
	keepLogs   bool
	logHeaders bool
	tracer     trace.Tracer
	propagate  bool
	recorder   Recorder
	limiter    *rate.Limiter
	auth       auth.Provider
	newID      func() string
	store      variables.Store
	now        func() time.Time
}

type Option func(*Executor)

func WithLogger(l logging.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithKeepLogs controls informational logging. Warnings and errors are
// always logged.
func WithKeepLogs(keep bool) Option {
	return func(e *Executor) { e.keepLogs = keep }
}

// WithLogHeaders logs each outgoing request as a curl command line.
func WithLogHeaders(enabled bool) Option {
	return func(e *Executor) { e.logHeaders = enabled }
}

// WithTracer starts a client span per call. With propagate set, W3C trace
// context is injected into the outgoing headers.
func WithTracer(tracer trace.Tracer, propagate bool) Option {
	return func(e *Executor) {
		if tracer != nil {
			e.tracer = tracer
		}
		e.propagate = propagate
	}
}

func WithRecorder(r Recorder) Option {
	return func(e *Executor) { e.recorder = r }
}

// WithRateLimit spaces outgoing calls. A non-positive limit disables it.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(e *Executor) {
		if limit <= 0 {
			e.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		e.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithAuth authorizes every call that does not already carry an
// Authorization header with a bearer token from p.
func WithAuth(p auth.Provider) Option {
	return func(e *Executor) { e.auth = p }
}

// WithIDSource replaces the ULID call ID generator.
func WithIDSource(next func() string) Option {
	return func(e *Executor) {
		if next != nil {
			e.newID = next
		}
	}
}

// WithVariables sets the store extraction rules write to when the call
// context carries none.
func WithVariables(store variables.Store) Option {
	return func(e *Executor) { e.store = store }
}

// New creates an Executor. A nil client uses httpclient.NewClient with the
// default timeouts.
func New(client Doer, opts ...Option) *Executor {
	if client == nil {
		client = httpclient.NewClient(httpclient.TimeoutsFromConfig(nil))
	}
	e := &Executor{
		client:   client,
		logger:   logging.NullLogger(),
		keepLogs: true,
		tracer:   noop.NewTracerProvider().Tracer("callcheck"),
		newID:    func() string { return ulid.Make().String() },
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.Gate(e.logger, e.keepLogs)
	return e
}
