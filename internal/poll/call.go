package poll

import (
	"context"
	"net/http"

	"github.com/torosent/callcheck/internal/errmodel"
	"github.com/torosent/callcheck/internal/executor"
)

// Call returns a predicate that executes req on every attempt and applies
// cond to the result. A nil cond accepts any successful call. Errors from the
// executor, such as strict failures, abort the poll. A body without GetBody is
// buffered here so every attempt sends the same bytes.
func Call[T any](e *executor.Executor, req *http.Request, policy executor.Policy, cond func(executor.Result[T]) bool, candidates ...errmodel.Candidate) Predicate {
	req, bufErr := executor.Replayable(req)
	return func(ctx context.Context) (bool, error) {
		if bufErr != nil {
			return false, bufErr
		}
		res, err := executor.Call[T](ctx, e, req, policy, candidates...)
		if err != nil {
			return false, err
		}
		return accept(res, cond), nil
	}
}

// Exchange is Call for the full response envelope.
func Exchange(e *executor.Executor, req *http.Request, policy executor.Policy, cond func(executor.Result[executor.Response]) bool, candidates ...errmodel.Candidate) Predicate {
	req, bufErr := executor.Replayable(req)
	return func(ctx context.Context) (bool, error) {
		if bufErr != nil {
			return false, bufErr
		}
		res, err := e.Do(ctx, req, policy, candidates...)
		if err != nil {
			return false, err
		}
		return accept(res, cond), nil
	}
}

func accept[T any](res executor.Result[T], cond func(executor.Result[T]) bool) bool {
	if cond == nil {
		return res.OK()
	}
	return cond(res)
}
