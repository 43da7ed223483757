package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/torosent/callcheck/internal/config"
)

func newCallCommand(stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call [target]",
		Short: "Execute one call and print its resolved outcome",
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
			return a.call(cmd)
		},
	}
	config.RegisterFlags(cmd)
	return cmd
}

func (a *app) call(cmd *cobra.Command) error {
	ctx, req, err := a.request(cmd.Context())
	if err != nil {
		return err
	}
	res, callErr := a.exec.Do(ctx, req, a.policy, a.candidates...)
	if err := a.report(res); err != nil {
		return err
	}
	return callErr
}
