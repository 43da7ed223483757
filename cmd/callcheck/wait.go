package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/torosent/callcheck/internal/config"
	"github.com/torosent/callcheck/internal/executor"
	"github.com/torosent/callcheck/internal/extractor"
	"github.com/torosent/callcheck/internal/output"
	"github.com/torosent/callcheck/internal/poll"
)

func newWaitCommand(stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wait [target]",
		Short: "Poll a call until it succeeds or the expected value appears",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, args)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg, stdout, stderr)
			if err != nil {
				return err
			}
			defer a.close()
			return a.wait(cmd, stderr)
		},
	}
	config.RegisterFlags(cmd)
	return cmd
}

func (a *app) wait(cmd *cobra.Command, stderr io.Writer) error {
	ctx, req, err := a.request(cmd.Context())
	if err != nil {
		return err
	}

	var last executor.Result[executor.Response]
	cond := func(res executor.Result[executor.Response]) bool {
		last = res
		return a.expected(res)
	}

	spec := poll.Spec{Timeout: a.cfg.Poll.Timeout, Repeats: a.cfg.Poll.Repeats}
	poller := &poll.Poller{Logger: a.logger}
	ok, err := poller.Until(ctx, spec, poll.Exchange(a.exec, req, a.policy, cond, a.candidates...))
	if err != nil {
		return err
	}

	if last.CallID != "" {
		if err := a.report(last); err != nil {
			return err
		}
	}
	if a.cfg.KeepLogs {
		if err := output.PrintSummary(stderr, a.collector.Snapshot(), config.OutputText); err != nil {
			return err
		}
	}
	if !ok {
		return fmt.Errorf("%w within %s", errConditionNotMet, spec.Timeout)
	}
	return nil
}

// expected reports whether res satisfies the configured expectation: a
// successful call and, when an expect path is set, a matching value there.
func (a *app) expected(res executor.Result[executor.Response]) bool {
	if !res.OK() {
		return false
	}
	path := a.cfg.Poll.ExpectPath
	if path == "" {
		return true
	}
	value, found := extractor.Lookup(res.Value.Body, path)
	if !found {
		return false
	}
	return value.String() == a.cfg.Poll.ExpectValue
}
